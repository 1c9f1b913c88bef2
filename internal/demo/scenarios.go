package demo

import (
	"time"

	"campus-sentinel/internal/alerts"
)

// Step is one timeline event in a scenario. Delay is the offset from
// scenario start, not from the previous step.
type Step struct {
	Delay       time.Duration  `json:"delay_seconds"`
	Action      string         `json:"action"`
	Description string         `json:"description"`
	Narration   string         `json:"narration,omitempty"`
	Data        map[string]any `json:"action_data,omitempty"`
}

// Step actions understood by the player.
const (
	ActionCreate       = "create"
	ActionAutoAssign   = "auto_assign"
	ActionAcknowledge  = "acknowledge"
	ActionStatusChange = "status_change"
	ActionNoteAdd      = "note_add"
	ActionEscalate     = "escalate"
	ActionResolve      = "resolve"
)

// Scenario is a scripted alert walkthrough. The template alert is
// created mock-flagged at start; timeline steps then drive the normal
// alert APIs.
type Scenario struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Severity    alerts.Severity `json:"severity"`

	DefaultSpeed float64 `json:"default_speed"`
	AutoAdvance  bool    `json:"auto_advance"`

	Template alerts.CreateRequest `json:"alert_template"`
	Timeline []Step               `json:"timeline"`
}

// Duration reports the scripted length of the scenario at 1x speed.
func (s Scenario) Duration() time.Duration {
	if len(s.Timeline) == 0 {
		return 0
	}
	return s.Timeline[len(s.Timeline)-1].Delay
}

func builtinScenarios() []Scenario {
	return []Scenario{
		{
			ID:           "unauthorized_lab_access",
			Name:         "Unauthorized Lab Access",
			Description:  "A badge mismatch at a restricted lab, worked end to end by a nearby guard.",
			Severity:     alerts.SeverityHigh,
			DefaultSpeed: 1.0,
			AutoAdvance:  true,
			Template: alerts.CreateRequest{
				AnomalyType: "unauthorized_access",
				Title:       "Unauthorized access attempt at LAB_101",
				Description: "Card swipe by an entity without lab clearance, followed by a door-held-open event.",
				Severity:    alerts.SeverityHigh,
				Location:    alerts.Location{ZoneID: "LAB_101", Building: "Science Block", Floor: "1"},
				DataSources: []string{"card_swipes", "door_sensors"},
				Evidence: map[string]any{
					"swipe_result": "denied",
					"door_event":   "held_open",
				},
			},
			Timeline: []Step{
				{Delay: 0, Action: ActionCreate, Description: "Alert raised by the detection pipeline",
					Narration: "An access anomaly fires at LAB_101."},
				{Delay: 5 * time.Second, Action: ActionAutoAssign, Description: "Assignment engine picks the nearest available guard",
					Narration: "Proximity, workload and role fit select the responder."},
				{Delay: 15 * time.Second, Action: ActionAcknowledge, Description: "Responder acknowledges the alert"},
				{Delay: 25 * time.Second, Action: ActionStatusChange, Description: "Responder starts investigating on site",
					Data: map[string]any{"new_status": "investigating", "note": "On site, checking door logs"}},
				{Delay: 40 * time.Second, Action: ActionNoteAdd, Description: "Field note added",
					Data: map[string]any{"note": "Contractor badge expired yesterday, identity confirmed"}},
				{Delay: 55 * time.Second, Action: ActionResolve, Description: "Alert resolved as a false alarm",
					Data:      map[string]any{"resolution_type": "false_alarm", "notes": "Expired contractor badge, access re-provisioned"},
					Narration: "The audit trail now shows the full lifecycle."},
			},
		},
		{
			ID:           "critical_overcrowding",
			Name:         "Critical Overcrowding",
			Description:  "Auditorium overcrowding escalating past the primary responder to a supervisor.",
			Severity:     alerts.SeverityCritical,
			DefaultSpeed: 1.0,
			AutoAdvance:  true,
			Template: alerts.CreateRequest{
				AnomalyType: "overcrowding",
				Title:       "Occupancy threshold exceeded in AUDITORIUM",
				Description: "Zone occupancy at 140% of rated capacity during an unscheduled gathering.",
				Severity:    alerts.SeverityCritical,
				Location:    alerts.Location{ZoneID: "AUDITORIUM", Building: "Main Block"},
				DataSources: []string{"wifi_presence", "cctv_headcount"},
				Evidence: map[string]any{
					"occupancy":      420,
					"rated_capacity": 300,
				},
			},
			Timeline: []Step{
				{Delay: 0, Action: ActionCreate, Description: "Critical alert raised",
					Narration: "Overcrowding trips the critical threshold."},
				{Delay: 5 * time.Second, Action: ActionAutoAssign, Description: "Response team assembled: primary plus backups",
					Narration: "Critical alerts page multiple responders at once."},
				{Delay: 20 * time.Second, Action: ActionAcknowledge, Description: "Primary responder acknowledges"},
				{Delay: 35 * time.Second, Action: ActionEscalate, Description: "Situation beyond the responder, escalated up the hierarchy",
					Data:      map[string]any{"reason": "Crowd not dispersing, supervisor required"},
					Narration: "Escalation hands the alert to a supervisor and records history."},
				{Delay: 60 * time.Second, Action: ActionResolve, Description: "Crowd dispersed, alert resolved",
					Data: map[string]any{"resolution_type": "resolved", "notes": "Additional exits opened, occupancy back under capacity"}},
			},
		},
		{
			ID:           "after_hours_equipment",
			Name:         "After-Hours Equipment Misuse",
			Description:  "Lab equipment activity outside operating hours, routed to a lab supervisor.",
			Severity:     alerts.SeverityMedium,
			DefaultSpeed: 1.0,
			AutoAdvance:  true,
			Template: alerts.CreateRequest{
				AnomalyType: "equipment_misuse",
				Title:       "Equipment activity in LAB_305 after hours",
				Description: "Power draw on restricted lab equipment at 02:10 with no booked session.",
				Severity:    alerts.SeverityMedium,
				Location:    alerts.Location{ZoneID: "LAB_305", Building: "Science Block", Floor: "3"},
				DataSources: []string{"power_meters", "lab_bookings"},
				Evidence: map[string]any{
					"device":       "centrifuge_4",
					"booked":       false,
					"power_draw_w": 850,
				},
			},
			Timeline: []Step{
				{Delay: 0, Action: ActionCreate, Description: "Alert raised"},
				{Delay: 5 * time.Second, Action: ActionAutoAssign, Description: "Routed to lab supervision by skill match",
					Narration: "Equipment misuse prefers lab supervisors over guards."},
				{Delay: 15 * time.Second, Action: ActionAcknowledge, Description: "Lab supervisor acknowledges"},
				{Delay: 25 * time.Second, Action: ActionStatusChange, Description: "Investigation starts",
					Data: map[string]any{"new_status": "investigating"}},
				{Delay: 45 * time.Second, Action: ActionResolve, Description: "Resolved: unlogged research run",
					Data: map[string]any{"resolution_type": "no_action_required", "notes": "Approved overnight run, booking system entry missed"}},
			},
		},
	}
}
