package staff

import "time"

// ContactPreferences selects which notification channels a staff member
// wants to receive.
type ContactPreferences struct {
	Email bool `json:"email"`
	SMS   bool `json:"sms"`
	Push  bool `json:"push"`
}

func DefaultContactPreferences() ContactPreferences {
	return ContactPreferences{Email: true, SMS: false, Push: true}
}

type Profile struct {
	ID string `json:"id"`
	// EntityID links the profile to the campus entity graph.
	EntityID   string `json:"entity_id,omitempty"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone,omitempty"`
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`

	OnDuty bool `json:"on_duty"`
	// MaxConcurrent caps the number of active alerts assigned at once.
	MaxConcurrent int `json:"max_concurrent_assignments"`

	ContactPreferences ContactPreferences `json:"contact_preferences"`

	IsMockUser bool `json:"is_mock_user"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Location is one observation of where a staff member is. Rows are
// append-only; the newest row per staff member is the current location.
type Location struct {
	ID      string `json:"id"`
	StaffID string `json:"staff_id"`
	ZoneID  string `json:"zone_id"`

	Building string `json:"building,omitempty"`
	Floor    string `json:"floor,omitempty"`

	// Source of the observation: card_swipe, manual, gps.
	Source string `json:"source"`

	Timestamp time.Time `json:"timestamp"`
}

// Nearby pairs a staff member with their current zone and the hop
// distance from a target zone (0 = same zone).
type Nearby struct {
	Profile     Profile `json:"profile"`
	CurrentZone string  `json:"current_zone"`
	Distance    int     `json:"distance"`
}

type CreateRequest struct {
	EntityID           string              `json:"entity_id,omitempty"`
	Name               string              `json:"name"`
	Email              string              `json:"email"`
	Phone              string              `json:"phone,omitempty"`
	Role               string              `json:"role"`
	Department         string              `json:"department,omitempty"`
	OnDuty             bool                `json:"on_duty"`
	MaxConcurrent      int                 `json:"max_concurrent_assignments"`
	ContactPreferences *ContactPreferences `json:"contact_preferences,omitempty"`
	IsMockUser         bool                `json:"is_mock_user,omitempty"`
}

// UpdateRequest patches a profile. Nil fields are left untouched.
type UpdateRequest struct {
	Name               *string             `json:"name,omitempty"`
	Email              *string             `json:"email,omitempty"`
	Phone              *string             `json:"phone,omitempty"`
	Role               *string             `json:"role,omitempty"`
	Department         *string             `json:"department,omitempty"`
	OnDuty             *bool               `json:"on_duty,omitempty"`
	MaxConcurrent      *int                `json:"max_concurrent_assignments,omitempty"`
	ContactPreferences *ContactPreferences `json:"contact_preferences,omitempty"`
}

type ListFilter struct {
	Role   string
	OnDuty *bool
	IsMock *bool
	Limit  int
	Offset int
}

type RecordLocationRequest struct {
	ZoneID   string `json:"zone_id"`
	Building string `json:"building,omitempty"`
	Floor    string `json:"floor,omitempty"`
	Source   string `json:"source,omitempty"`
}

// Statistics summarizes one staff member's alert workload.
type Statistics struct {
	StaffID           string `json:"staff_id"`
	Name              string `json:"name"`
	Role              string `json:"role"`
	OnDuty            bool   `json:"on_duty"`
	ActiveAlerts      int    `json:"active_alerts"`
	ResolvedAlerts    int    `json:"resolved_alerts"`
	TotalAssigned     int    `json:"total_assigned"`
	MaxConcurrent     int    `json:"max_concurrent"`
	AvailableCapacity int    `json:"available_capacity"`
}
