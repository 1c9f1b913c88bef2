package assignment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campus-sentinel/internal/alerts"
	"campus-sentinel/internal/config"
	"campus-sentinel/internal/metrics"
	"campus-sentinel/pkg/logger"
)

// AlertSweeper is the slice of the alert service the checker needs to
// find alerts that blew their response deadlines.
type AlertSweeper interface {
	OverdueUnacknowledged(ctx context.Context, deadline time.Duration) ([]alerts.Alert, error)
	OverdueUnresolved(ctx context.Context, deadline time.Duration) ([]alerts.Alert, error)
	MaxEscalationsReachedCount(ctx context.Context) (int, error)
}

// SweepCounts summarizes one escalation sweep.
type SweepCounts struct {
	NoAcknowledgment int `json:"no_acknowledgment"`
	NoResolution     int `json:"no_resolution"`
	MaxReached       int `json:"max_reached"`
}

// EscalationChecker periodically escalates alerts that sat too long.
//
// Two triggers: an assigned alert not acknowledged within the ack
// deadline, and an acknowledged or investigating alert not resolved
// within the resolution deadline. Alerts already at the escalation cap
// are counted but left alone. A failure on one alert never stops the
// sweep.
type EscalationChecker struct {
	engine  *Engine
	sweeper AlertSweeper

	noAck        time.Duration
	noResolution time.Duration
}

func NewEscalationChecker(engine *Engine, sweeper AlertSweeper, cfg config.AlertConfig) *EscalationChecker {
	if cfg.NoAckDeadline <= 0 {
		cfg.NoAckDeadline = 10 * time.Minute
	}
	if cfg.NoResolutionDeadline <= 0 {
		cfg.NoResolutionDeadline = 30 * time.Minute
	}
	return &EscalationChecker{
		engine:       engine,
		sweeper:      sweeper,
		noAck:        cfg.NoAckDeadline,
		noResolution: cfg.NoResolutionDeadline,
	}
}

// CheckAndEscalate runs one sweep and reports what it did.
func (c *EscalationChecker) CheckAndEscalate(ctx context.Context) (SweepCounts, error) {
	log := logger.From(ctx)
	var counts SweepCounts

	unacked, err := c.sweeper.OverdueUnacknowledged(ctx, c.noAck)
	if err != nil {
		return counts, fmt.Errorf("escalation sweep: unacknowledged: %w", err)
	}
	reason := fmt.Sprintf("No acknowledgment after %d minutes", int(c.noAck.Minutes()))
	for _, a := range unacked {
		if c.escalateOne(ctx, a, reason) {
			counts.NoAcknowledgment++
			metrics.AlertsEscalated.WithLabelValues("no_acknowledgment").Inc()
		}
	}

	unresolved, err := c.sweeper.OverdueUnresolved(ctx, c.noResolution)
	if err != nil {
		return counts, fmt.Errorf("escalation sweep: unresolved: %w", err)
	}
	reason = fmt.Sprintf("No resolution after %d minutes", int(c.noResolution.Minutes()))
	for _, a := range unresolved {
		if c.escalateOne(ctx, a, reason) {
			counts.NoResolution++
			metrics.AlertsEscalated.WithLabelValues("no_resolution").Inc()
		}
	}

	maxed, err := c.sweeper.MaxEscalationsReachedCount(ctx)
	if err != nil {
		return counts, fmt.Errorf("escalation sweep: max-reached count: %w", err)
	}
	counts.MaxReached = maxed

	log.Info("escalation check complete",
		"no_acknowledgment", counts.NoAcknowledgment,
		"no_resolution", counts.NoResolution,
		"max_reached", counts.MaxReached,
	)
	return counts, nil
}

func (c *EscalationChecker) escalateOne(ctx context.Context, a alerts.Alert, reason string) bool {
	_, err := c.engine.EscalateAlert(ctx, a, reason)
	if err != nil {
		if errors.Is(err, ErrNoStaffAvailable) {
			logger.From(ctx).Warn("no escalation target found", "alert_id", a.ID)
		} else {
			logger.From(ctx).Error("escalation failed", "alert_id", a.ID, "err", err)
		}
		return false
	}
	return true
}

// Run sweeps on a fixed interval until ctx is cancelled.
func (c *EscalationChecker) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.From(ctx).Info("escalation checker started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			logger.From(ctx).Info("escalation checker stopped")
			return
		case <-ticker.C:
			if _, err := c.CheckAndEscalate(ctx); err != nil {
				logger.From(ctx).Error("escalation sweep failed", "err", err)
			}
		}
	}
}
