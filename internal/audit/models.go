package audit

import "time"

// Entry is an immutable, append-only audit log record.
//
// Invariants:
// - Entries are never updated or deleted.
// - Every alert lifecycle action produces exactly one entry, written in
//   the same transaction as the state change it records.
//
// Storage recommendation (Postgres):
// - Table alert_audit_logs with an INSERT-only policy.
// - Optional: trigger to prevent UPDATE/DELETE.
// - Optional: partition by time for retention.

type Entry struct {
	ID      string `json:"id" db:"id"`
	AlertID string `json:"alert_id" db:"alert_id"`

	// Action indicates which lifecycle step produced the record.
	Action Action `json:"action" db:"action"`

	// ActorID is the staff member (or automation identity) causing the action.
	ActorID string `json:"actor_id,omitempty" db:"actor_id"`
	// ActorKind distinguishes human actors from the escalation sweeper
	// and other automation.
	ActorKind ActorKind `json:"actor_kind" db:"actor_kind"`
	// ActorRole may include hidden roles.
	ActorRole string `json:"actor_role,omitempty" db:"actor_role"`

	// Details carries action-specific fields (previous status, new assignee,
	// escalation reason, ...). Kept schemaless on purpose.
	Details map[string]any `json:"details,omitempty" db:"details"`

	// IsMock marks entries produced by demo scenarios so they can be
	// purged together with their alerts.
	IsMock bool `json:"is_mock" db:"is_mock"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Action string

const (
	ActionCreated         Action = "created"
	ActionAssigned        Action = "assigned"
	ActionAcknowledged    Action = "acknowledged"
	ActionStatusChanged   Action = "status_changed"
	ActionNoteAdded       Action = "note_added"
	ActionResolved        Action = "resolved"
	ActionEscalated       Action = "escalated"
	ActionReassigned      Action = "reassigned"
	ActionSeverityChanged Action = "severity_changed"
	ActionBackupRequested Action = "backup_requested"
)

type ActorKind string

const (
	ActorKindStaff  ActorKind = "staff"
	ActorKindAdmin  ActorKind = "admin"
	ActorKindSystem ActorKind = "system"
)
