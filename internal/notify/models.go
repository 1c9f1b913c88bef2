package notify

import "time"

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
)

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Message is one queued notification. Delivery is at-most-maxRetries,
// best-effort; the alert lifecycle never blocks on it.
type Message struct {
	ID      string  `json:"id"`
	StaffID string  `json:"staff_id"`
	AlertID string  `json:"alert_id"`
	Channel Channel `json:"channel"`

	Subject string `json:"subject"`
	Body    string `json:"body"`

	Priority Priority       `json:"priority"`
	Metadata map[string]any `json:"metadata,omitempty"`

	RetryCount int       `json:"retry_count"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Results summarizes one queue-processing pass.
type Results struct {
	Sent     int `json:"sent"`
	Failed   int `json:"failed"`
	Requeued int `json:"requeued"`
	Dropped  int `json:"dropped"`
}
