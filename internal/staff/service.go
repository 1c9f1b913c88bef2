package staff

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"time"

	"campus-sentinel/internal/rbac"
	"campus-sentinel/pkg/logger"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

const defaultMaxConcurrent = 3

// Service manages the staff directory: profiles, duty status, location
// tracking and availability.
//
// Availability invariant: a staff member is available for assignment iff
// they are on duty and their active alert count is below their cap.
type Service struct {
	db *sql.DB
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db, clock: time.Now}
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (Profile, error) {
	if req.Name == "" || req.Email == "" {
		return Profile{}, ErrInvalidArgument
	}
	if !rbac.KnownRole(req.Role) {
		return Profile{}, ErrInvalidArgument
	}
	if !strings.Contains(req.Email, "@") {
		return Profile{}, ErrInvalidArgument
	}

	now := s.clock().UTC()
	p := Profile{
		ID:            uuid.NewString(),
		EntityID:      req.EntityID,
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		Role:          req.Role,
		Department:    req.Department,
		OnDuty:        req.OnDuty,
		MaxConcurrent: req.MaxConcurrent,
		IsMockUser:    req.IsMockUser,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if p.MaxConcurrent <= 0 {
		p.MaxConcurrent = defaultMaxConcurrent
	}
	if req.ContactPreferences != nil {
		p.ContactPreferences = *req.ContactPreferences
	} else {
		p.ContactPreferences = DefaultContactPreferences()
	}

	if err := insertProfile(ctx, s.db, p); err != nil {
		return Profile{}, err
	}
	logger.From(ctx).Info("staff created", "staff_id", p.ID, "role", p.Role)
	return p, nil
}

func (s *Service) Get(ctx context.Context, staffID string) (Profile, error) {
	if staffID == "" {
		return Profile{}, ErrInvalidArgument
	}
	return getProfile(ctx, s.db, staffID)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (Profile, error) {
	if email == "" {
		return Profile{}, ErrInvalidArgument
	}
	return getProfileByEmail(ctx, s.db, email)
}

func (s *Service) GetByEntityID(ctx context.Context, entityID string) (Profile, error) {
	if entityID == "" {
		return Profile{}, ErrInvalidArgument
	}
	return getProfileByEntityID(ctx, s.db, entityID)
}

// Exists implements the staff check used by the alert service before
// recording assignments.
func (s *Service) Exists(ctx context.Context, staffID string) (bool, error) {
	if staffID == "" {
		return false, nil
	}
	return profileExists(ctx, s.db, staffID)
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Profile, int, error) {
	return listProfiles(ctx, s.db, f)
}

func (s *Service) Update(ctx context.Context, staffID string, req UpdateRequest) (Profile, error) {
	if staffID == "" {
		return Profile{}, ErrInvalidArgument
	}
	if req.Role != nil && !rbac.KnownRole(*req.Role) {
		return Profile{}, ErrInvalidArgument
	}

	p, err := getProfile(ctx, s.db, staffID)
	if err != nil {
		return Profile{}, err
	}

	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Email != nil {
		p.Email = *req.Email
	}
	if req.Phone != nil {
		p.Phone = *req.Phone
	}
	if req.Role != nil {
		p.Role = *req.Role
	}
	if req.Department != nil {
		p.Department = *req.Department
	}
	if req.OnDuty != nil {
		p.OnDuty = *req.OnDuty
	}
	if req.MaxConcurrent != nil {
		if *req.MaxConcurrent <= 0 {
			return Profile{}, ErrInvalidArgument
		}
		p.MaxConcurrent = *req.MaxConcurrent
	}
	if req.ContactPreferences != nil {
		p.ContactPreferences = *req.ContactPreferences
	}
	p.UpdatedAt = s.clock().UTC()

	if err := updateProfileRow(ctx, s.db, p); err != nil {
		return Profile{}, err
	}
	logger.From(ctx).Info("staff updated", "staff_id", staffID)
	return p, nil
}

func (s *Service) SetDutyStatus(ctx context.Context, staffID string, onDuty bool) (Profile, error) {
	return s.Update(ctx, staffID, UpdateRequest{OnDuty: &onDuty})
}

func (s *Service) Delete(ctx context.Context, staffID string) error {
	if staffID == "" {
		return ErrInvalidArgument
	}
	ok, err := deleteProfile(ctx, s.db, staffID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	logger.From(ctx).Info("staff deleted", "staff_id", staffID)
	return nil
}

/* ===================== LOCATION TRACKING ===================== */

func (s *Service) RecordLocation(ctx context.Context, staffID string, req RecordLocationRequest) (Location, error) {
	if staffID == "" || req.ZoneID == "" {
		return Location{}, ErrInvalidArgument
	}
	if _, err := getProfile(ctx, s.db, staffID); err != nil {
		return Location{}, err
	}

	source := req.Source
	if source == "" {
		source = "card_swipe"
	}
	l := Location{
		ID:        uuid.NewString(),
		StaffID:   staffID,
		ZoneID:    req.ZoneID,
		Building:  req.Building,
		Floor:     req.Floor,
		Source:    source,
		Timestamp: s.clock().UTC(),
	}
	if err := insertLocation(ctx, s.db, l); err != nil {
		return Location{}, err
	}
	logger.From(ctx).Debug("staff location recorded", "staff_id", staffID, "zone", req.ZoneID)
	return l, nil
}

func (s *Service) CurrentLocation(ctx context.Context, staffID string) (Location, error) {
	if staffID == "" {
		return Location{}, ErrInvalidArgument
	}
	return currentLocation(ctx, s.db, staffID)
}

func (s *Service) LocationHistory(ctx context.Context, staffID string, limit int) ([]Location, error) {
	if staffID == "" {
		return nil, ErrInvalidArgument
	}
	return locationHistory(ctx, s.db, staffID, limit)
}

/* ===================== AVAILABILITY & WORKLOAD ===================== */

func (s *Service) ActiveAssignmentCount(ctx context.Context, staffID string) (int, error) {
	if staffID == "" {
		return 0, ErrInvalidArgument
	}
	return activeAssignmentCount(ctx, s.db, staffID)
}

// IsAvailable reports whether the staff member can take another alert.
func (s *Service) IsAvailable(ctx context.Context, staffID string) (bool, error) {
	p, err := getProfile(ctx, s.db, staffID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if !p.OnDuty {
		return false, nil
	}
	n, err := activeAssignmentCount(ctx, s.db, staffID)
	if err != nil {
		return false, err
	}
	return n < p.MaxConcurrent, nil
}

// AvailableStaff returns everyone who could take an assignment now,
// optionally filtered by role and with exclusions.
func (s *Service) AvailableStaff(ctx context.Context, role string, excludeIDs []string) ([]Profile, error) {
	return availableProfiles(ctx, s.db, role, excludeIDs)
}

/* ===================== PROXIMITY ===================== */

// NearbyStaff returns staff in the target zone or one of its adjacent
// zones, sorted by hop distance then name. adjacentZones must be ordered
// nearest first; the target zone itself is distance 0.
func (s *Service) NearbyStaff(ctx context.Context, zoneID string, adjacentZones []string, excludeIDs []string, onDutyOnly bool) ([]Nearby, error) {
	if zoneID == "" {
		return nil, ErrInvalidArgument
	}

	distances := map[string]int{zoneID: 0}
	zones := append([]string{zoneID}, adjacentZones...)
	for i, z := range adjacentZones {
		if _, ok := distances[z]; !ok {
			distances[z] = i + 1
		}
	}

	profiles, currentZones, err := profilesInZones(ctx, s.db, zones, excludeIDs, onDutyOnly)
	if err != nil {
		return nil, err
	}

	out := make([]Nearby, 0, len(profiles))
	for i, p := range profiles {
		out = append(out, Nearby{
			Profile:     p,
			CurrentZone: currentZones[i],
			Distance:    distances[currentZones[i]],
		})
	}
	// Distance first, then name for determinism.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Profile.Name < out[j].Profile.Name
	})
	return out, nil
}

/* ===================== STATISTICS ===================== */

func (s *Service) Statistics(ctx context.Context, staffID string) (Statistics, error) {
	p, err := s.Get(ctx, staffID)
	if err != nil {
		return Statistics{}, err
	}

	active, err := activeAssignmentCount(ctx, s.db, staffID)
	if err != nil {
		return Statistics{}, err
	}
	resolved, err := resolvedCount(ctx, s.db, staffID)
	if err != nil {
		return Statistics{}, err
	}
	total, err := totalAssignedCount(ctx, s.db, staffID)
	if err != nil {
		return Statistics{}, err
	}

	return Statistics{
		StaffID:           p.ID,
		Name:              p.Name,
		Role:              p.Role,
		OnDuty:            p.OnDuty,
		ActiveAlerts:      active,
		ResolvedAlerts:    resolved,
		TotalAssigned:     total,
		MaxConcurrent:     p.MaxConcurrent,
		AvailableCapacity: p.MaxConcurrent - active,
	}, nil
}
