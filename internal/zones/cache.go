package zones

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"campus-sentinel/pkg/logger"
)

const cacheTTL = 10 * time.Minute

// CachedSource wraps another Source with a Redis cache. The zone graph
// changes rarely, so a short TTL is plenty; cache failures fall through
// to the inner source.
type CachedSource struct {
	inner Source
	rdb   *redis.Client
}

func NewCachedSource(inner Source, rdb *redis.Client) *CachedSource {
	return &CachedSource{inner: inner, rdb: rdb}
}

func (c *CachedSource) AdjacentZones(ctx context.Context, zoneID string, maxDistance int) ([]string, error) {
	key := fmt.Sprintf("zones:adjacent:%s:%d", zoneID, maxDistance)

	if c.rdb != nil {
		raw, err := c.rdb.Get(ctx, key).Bytes()
		if err == nil {
			var out []string
			if err := json.Unmarshal(raw, &out); err == nil {
				return out, nil
			}
			// Corrupt entry; fall through and rewrite it.
		} else if err != redis.Nil {
			logger.From(ctx).Warn("zone cache read failed", "key", key, "err", err)
		}
	}

	out, err := c.inner.AdjacentZones(ctx, zoneID, maxDistance)
	if err != nil {
		return nil, err
	}

	if c.rdb != nil {
		if raw, err := json.Marshal(out); err == nil {
			if err := c.rdb.Set(ctx, key, raw, cacheTTL).Err(); err != nil {
				logger.From(ctx).Warn("zone cache write failed", "key", key, "err", err)
			}
		}
	}
	return out, nil
}
