package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"campus-sentinel/internal/alerts"
	"campus-sentinel/internal/metrics"
	"campus-sentinel/internal/staff"
	"campus-sentinel/pkg/logger"
	"campus-sentinel/pkg/utils"
)

const (
	queueKeyNormal   = "notify:queue"
	queueKeyCritical = "notify:queue:critical"
	burstKeyPrefix   = "notify:burst:"
)

// ProfileGetter resolves staff recipients at delivery time.
type ProfileGetter interface {
	Get(ctx context.Context, staffID string) (staff.Profile, error)
}

// Config tunes the queue service.
type Config struct {
	MaxRetries int

	// BurstLimit caps queued notifications per staff member within
	// BurstWindow. Zero disables the guard.
	BurstLimit  int
	BurstWindow time.Duration
}

// Service is a Redis-backed notification queue.
//
// Two lists back the queue: critical-priority messages go to their own
// list and are drained first. Failed sends are re-queued until the
// retry budget is spent, then dropped with an error log.
//
// Everything here is fire-and-forget from the caller's perspective:
// assignment and escalation never fail because a notification could not
// be queued or sent.
type Service struct {
	rdb       *redis.Client
	profiles  ProfileGetter
	providers map[Channel]Provider
	cfg       Config

	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(rdb *redis.Client, profiles ProfileGetter, cfg Config, providers ...Provider) *Service {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	m := make(map[Channel]Provider, len(providers))
	for _, p := range providers {
		m[p.Channel()] = p
	}
	return &Service{
		rdb:       rdb,
		profiles:  profiles,
		providers: m,
		cfg:       cfg,
		clock:     time.Now,
	}
}

// Enqueue puts one message on the queue. The per-staff burst guard may
// reject it; that is reported as a nil error with ok=false, since a
// suppressed duplicate page is not a failure.
func (s *Service) Enqueue(ctx context.Context, msg Message) (bool, error) {
	if s.rdb == nil {
		return false, errors.New("notify: redis not configured")
	}
	if msg.StaffID == "" || msg.Channel == "" {
		return false, errors.New("notify: staff_id and channel are required")
	}

	if s.cfg.BurstLimit > 0 {
		ok, err := utils.AcquireBurstSlot(ctx, s.rdb, burstKeyPrefix+msg.StaffID, s.cfg.BurstLimit, s.cfg.BurstWindow)
		if err != nil {
			logger.From(ctx).Warn("burst guard check failed, allowing", "staff_id", msg.StaffID, "err", err)
		} else if !ok {
			logger.From(ctx).Warn("notification suppressed by burst guard",
				"staff_id", msg.StaffID, "alert_id", msg.AlertID, "channel", msg.Channel)
			return false, nil
		}
	}

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.EnqueuedAt.IsZero() {
		msg.EnqueuedAt = s.clock().UTC()
	}
	if msg.Priority == "" {
		msg.Priority = PriorityNormal
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		return false, err
	}
	key := queueKeyNormal
	if msg.Priority == PriorityCritical {
		key = queueKeyCritical
	}
	if err := s.rdb.LPush(ctx, key, raw).Err(); err != nil {
		return false, fmt.Errorf("notify: enqueue: %w", err)
	}
	return true, nil
}

// NotifyAssignment queues assignment notifications for one staff member,
// honoring their contact preferences. Failures are logged, not returned;
// callers treat this as fire-and-forget.
func (s *Service) NotifyAssignment(ctx context.Context, recipient staff.Profile, a alerts.Alert, isCritical bool) {
	priority := PriorityHigh
	if isCritical {
		priority = PriorityCritical
	}

	subject := assignmentSubject(a)
	body := assignmentBody(a)

	if recipient.ContactPreferences.Email {
		s.enqueueLogged(ctx, Message{
			StaffID:  recipient.ID,
			AlertID:  a.ID,
			Channel:  ChannelEmail,
			Subject:  subject,
			Body:     body,
			Priority: priority,
			Metadata: map[string]any{"alert_severity": string(a.Severity), "zone_id": a.Location.ZoneID},
		})
	}
	if recipient.ContactPreferences.SMS {
		s.enqueueLogged(ctx, Message{
			StaffID:  recipient.ID,
			AlertID:  a.ID,
			Channel:  ChannelSMS,
			Subject:  subject,
			Body:     assignmentSMSBody(a),
			Priority: priority,
			Metadata: map[string]any{"alert_severity": string(a.Severity)},
		})
	}
	if recipient.ContactPreferences.Push {
		s.enqueueLogged(ctx, Message{
			StaffID:  recipient.ID,
			AlertID:  a.ID,
			Channel:  ChannelPush,
			Subject:  subject,
			Body:     truncate(body, 200),
			Priority: priority,
			Metadata: map[string]any{"alert_id": a.ID, "action": "view_alert"},
		})
	}
}

// NotifyEscalation queues escalation notifications. Email always goes
// out for escalations regardless of preferences; SMS follows them.
func (s *Service) NotifyEscalation(ctx context.Context, recipient staff.Profile, a alerts.Alert, reason string) {
	subject := escalationSubject(a)

	s.enqueueLogged(ctx, Message{
		StaffID:  recipient.ID,
		AlertID:  a.ID,
		Channel:  ChannelEmail,
		Subject:  subject,
		Body:     escalationBody(a, reason),
		Priority: PriorityCritical,
		Metadata: map[string]any{"escalation_reason": reason},
	})
	if recipient.ContactPreferences.SMS {
		s.enqueueLogged(ctx, Message{
			StaffID:  recipient.ID,
			AlertID:  a.ID,
			Channel:  ChannelSMS,
			Subject:  subject,
			Body:     escalationSMSBody(a, reason),
			Priority: PriorityCritical,
		})
	}
}

func (s *Service) enqueueLogged(ctx context.Context, msg Message) {
	if _, err := s.Enqueue(ctx, msg); err != nil {
		logger.From(ctx).Error("notification enqueue failed",
			"staff_id", msg.StaffID, "alert_id", msg.AlertID, "channel", msg.Channel, "err", err)
	}
}

// QueueDepth reports pending message counts.
func (s *Service) QueueDepth(ctx context.Context) (critical, normal int64, err error) {
	critical, err = s.rdb.LLen(ctx, queueKeyCritical).Result()
	if err != nil {
		return 0, 0, err
	}
	normal, err = s.rdb.LLen(ctx, queueKeyNormal).Result()
	if err != nil {
		return 0, 0, err
	}
	return critical, normal, nil
}

// ProcessQueue drains up to batchSize messages, critical lane first.
func (s *Service) ProcessQueue(ctx context.Context, batchSize int) (Results, error) {
	if batchSize <= 0 {
		batchSize = 50
	}
	var res Results

	for i := 0; i < batchSize; i++ {
		raw, key, err := s.pop(ctx)
		if err != nil {
			return res, err
		}
		if raw == nil {
			break
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			res.Dropped++
			logger.From(ctx).Error("dropping undecodable notification", "queue", key, "err", err)
			continue
		}

		if err := s.deliver(ctx, msg); err != nil {
			metrics.NotificationsSent.WithLabelValues(string(msg.Channel), "false").Inc()
			res.Failed++
			msg.RetryCount++
			if msg.RetryCount >= s.cfg.MaxRetries {
				res.Dropped++
				logger.From(ctx).Error("notification dropped after retries",
					"id", msg.ID, "staff_id", msg.StaffID, "channel", msg.Channel, "retries", msg.RetryCount, "err", err)
				continue
			}
			res.Requeued++
			requeued, mErr := json.Marshal(msg)
			if mErr != nil {
				continue
			}
			if pErr := s.rdb.LPush(ctx, key, requeued).Err(); pErr != nil {
				logger.From(ctx).Error("notification requeue failed", "id", msg.ID, "err", pErr)
			}
			continue
		}
		metrics.NotificationsSent.WithLabelValues(string(msg.Channel), "true").Inc()
		res.Sent++
	}

	if res.Sent+res.Failed > 0 {
		logger.From(ctx).Info("processed notification queue",
			"sent", res.Sent, "failed", res.Failed, "requeued", res.Requeued, "dropped", res.Dropped)
	}
	return res, nil
}

// pop takes from the critical lane first, then the normal one.
func (s *Service) pop(ctx context.Context) ([]byte, string, error) {
	for _, key := range []string{queueKeyCritical, queueKeyNormal} {
		raw, err := s.rdb.RPop(ctx, key).Bytes()
		if err == nil {
			return raw, key, nil
		}
		if err != redis.Nil {
			return nil, "", err
		}
	}
	return nil, "", nil
}

func (s *Service) deliver(ctx context.Context, msg Message) error {
	provider, ok := s.providers[msg.Channel]
	if !ok {
		return fmt.Errorf("no provider for channel %s", msg.Channel)
	}
	recipient, err := s.profiles.Get(ctx, msg.StaffID)
	if err != nil {
		return fmt.Errorf("recipient %s: %w", msg.StaffID, err)
	}
	return provider.Send(ctx, recipient, msg)
}

// Run processes the queue on a fixed interval until ctx is cancelled.
func (s *Service) Run(ctx context.Context, interval time.Duration, batchSize int) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.From(ctx).Info("notification worker started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			logger.From(ctx).Info("notification worker stopped")
			return
		case <-ticker.C:
			if _, err := s.ProcessQueue(ctx, batchSize); err != nil {
				logger.From(ctx).Error("notification queue pass failed", "err", err)
			}
		}
	}
}
