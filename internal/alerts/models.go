package alerts

import "time"

type Status string

const (
	StatusCreated       Status = "created"
	StatusAssigned      Status = "assigned"
	StatusAcknowledged  Status = "acknowledged"
	StatusInvestigating Status = "investigating"
	StatusResolved      Status = "resolved"
	StatusEscalated     Status = "escalated"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities for sorting; higher is more urgent.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

func ValidSeverity(s Severity) bool { return s.Rank() > 0 }

type ResolutionType string

const (
	ResolutionFalseAlarm       ResolutionType = "false_alarm"
	ResolutionResolved         ResolutionType = "resolved"
	ResolutionEscalated        ResolutionType = "escalated"
	ResolutionNoActionRequired ResolutionType = "no_action_required"
)

func ValidResolutionType(r ResolutionType) bool {
	switch r {
	case ResolutionFalseAlarm, ResolutionResolved, ResolutionEscalated, ResolutionNoActionRequired:
		return true
	default:
		return false
	}
}

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Location pins an alert to the campus zone graph. ZoneID is the unit
// of proximity search; building/floor/coordinates are display metadata.
type Location struct {
	ZoneID      string       `json:"zone_id"`
	Building    string       `json:"building,omitempty"`
	Floor       string       `json:"floor,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// EscalationEntry is one step of an alert's escalation history.
type EscalationEntry struct {
	EscalatedTo      string    `json:"escalated_to"`
	Reason           string    `json:"reason"`
	Timestamp        time.Time `json:"timestamp"`
	EscalationNumber int       `json:"escalation_number"`
}

type Alert struct {
	ID string `json:"id"`

	// Links back to the detection pipeline.
	AnomalyID   string `json:"anomaly_id,omitempty"`
	AnomalyType string `json:"anomaly_type,omitempty"`

	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
	Status      Status   `json:"status"`

	Location         Location       `json:"location"`
	AffectedEntities []string       `json:"affected_entities,omitempty"`
	DataSources      []string       `json:"data_sources,omitempty"`
	Evidence         map[string]any `json:"evidence,omitempty"`

	AssignedTo string     `json:"assigned_to,omitempty"`
	AssignedAt *time.Time `json:"assigned_at,omitempty"`

	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`

	ResolvedAt      *time.Time     `json:"resolved_at,omitempty"`
	ResolvedBy      string         `json:"resolved_by,omitempty"`
	ResolutionType  ResolutionType `json:"resolution_type,omitempty"`
	ResolutionNotes string         `json:"resolution_notes,omitempty"`

	EscalationCount   int               `json:"escalation_count"`
	EscalationHistory []EscalationEntry `json:"escalation_history,omitempty"`

	IsMock       bool   `json:"is_mock"`
	MockScenario string `json:"mock_scenario,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Assignment is one row of an alert's assignment history. At most one
// primary assignment is active at a time; backup assignments for
// critical alerts are additional active rows that never change the
// alert's assigned_to.
type Assignment struct {
	ID      string `json:"id"`
	AlertID string `json:"alert_id"`
	StaffID string `json:"staff_id"`

	AssignedAt     time.Time  `json:"assigned_at"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`

	Reason         string   `json:"assignment_reason,omitempty"`
	ProximityScore *float64 `json:"proximity_score,omitempty"`
	IsBackup       bool     `json:"is_backup"`
	IsActive       bool     `json:"is_active"`
}

// Note lives inside Alert.Evidence under the "notes" key.
type Note struct {
	Content   string    `json:"content"`
	AddedBy   string    `json:"added_by"`
	Timestamp time.Time `json:"timestamp"`
}

type CreateRequest struct {
	AnomalyID        string         `json:"anomaly_id,omitempty"`
	AnomalyType      string         `json:"anomaly_type,omitempty"`
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	Severity         Severity       `json:"severity"`
	Location         Location       `json:"location"`
	AffectedEntities []string       `json:"affected_entities,omitempty"`
	DataSources      []string       `json:"data_sources,omitempty"`
	Evidence         map[string]any `json:"evidence,omitempty"`
	IsMock           bool           `json:"is_mock,omitempty"`
	MockScenario     string         `json:"mock_scenario,omitempty"`
}

// UpdateRequest patches alert metadata. Nil fields are left untouched.
// Evidence is merged key-wise, not replaced.
type UpdateRequest struct {
	Title       *string        `json:"title,omitempty"`
	Description *string        `json:"description,omitempty"`
	Severity    *Severity      `json:"severity,omitempty"`
	Location    *Location      `json:"location,omitempty"`
	Evidence    map[string]any `json:"evidence,omitempty"`
}

type ListFilter struct {
	Status     Status
	Severity   Severity
	ZoneID     string
	AssignedTo string
	// IsMock filters on the demo flag when non-nil.
	IsMock          *bool
	IncludeResolved bool

	Limit  int
	Offset int
}
