package notify

import (
	"context"
	"fmt"

	"campus-sentinel/internal/staff"
	"campus-sentinel/pkg/logger"
)

// Provider delivers a message on one channel.
type Provider interface {
	Channel() Channel
	Send(ctx context.Context, recipient staff.Profile, msg Message) error
}

// LogProvider writes deliveries to the structured log instead of an
// external gateway. It stands in until real email/SMS/push providers
// are wired, and is what tests and local runs use.
type LogProvider struct {
	channel Channel
}

func NewLogProvider(channel Channel) *LogProvider {
	return &LogProvider{channel: channel}
}

func (p *LogProvider) Channel() Channel { return p.channel }

func (p *LogProvider) Send(ctx context.Context, recipient staff.Profile, msg Message) error {
	addr := recipientAddress(recipient, p.channel)
	if addr == "" {
		return fmt.Errorf("no %s address for staff %s", p.channel, recipient.ID)
	}
	logger.From(ctx).Info("notification delivered",
		"channel", p.channel,
		"to", addr,
		"alert_id", msg.AlertID,
		"priority", msg.Priority,
		"subject", msg.Subject,
	)
	return nil
}

func recipientAddress(p staff.Profile, ch Channel) string {
	switch ch {
	case ChannelEmail:
		return p.Email
	case ChannelSMS:
		return p.Phone
	case ChannelPush:
		return "push:" + p.ID
	default:
		return ""
	}
}
