package audit

import (
	"context"
	"sync"
)

// MemoryRepo is a simple in-memory append-only repository useful for tests.
// It is not intended for production use.

type MemoryRepo struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Append(ctx context.Context, e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

// AppendIn ignores the executor; memory entries have no transaction to join.
func (r *MemoryRepo) AppendIn(ctx context.Context, _ Execer, e Entry) error {
	return r.Append(ctx, e)
}

func (r *MemoryRepo) TrailForAlert(ctx context.Context, alertID string, limit, offset int) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []Entry
	// newest first
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].AlertID == alertID {
			all = append(all, r.entries[i])
		}
	}
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *MemoryRepo) CountForAlert(ctx context.Context, alertID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if e.AlertID == alertID {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepo) DeleteMock(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.entries[:0]
	var removed int64
	for _, e := range r.entries {
		if e.IsMock {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	r.entries = kept
	return removed, nil
}

func (r *MemoryRepo) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}
