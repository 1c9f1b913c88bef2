package assignment

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"campus-sentinel/internal/alerts"
	"campus-sentinel/internal/audit"
	"campus-sentinel/internal/config"
	"campus-sentinel/internal/rbac"
	"campus-sentinel/internal/staff"
	"campus-sentinel/internal/zones"
	"campus-sentinel/pkg/logger"
)

// ErrNoStaffAvailable means no on-duty staff with spare capacity could
// be found for the alert. Callers surface this as an actionable
// condition rather than a failure.
var ErrNoStaffAvailable = errors.New("assignment: no staff available")

// StaffDirectory is the slice of the staff service the engine needs.
type StaffDirectory interface {
	Get(ctx context.Context, staffID string) (staff.Profile, error)
	NearbyStaff(ctx context.Context, zoneID string, adjacentZones []string, excludeIDs []string, onDutyOnly bool) ([]staff.Nearby, error)
	AvailableStaff(ctx context.Context, role string, excludeIDs []string) ([]staff.Profile, error)
	IsAvailable(ctx context.Context, staffID string) (bool, error)
	ActiveAssignmentCount(ctx context.Context, staffID string) (int, error)
}

// AlertWriter is the slice of the alert service the engine needs.
type AlertWriter interface {
	Assign(ctx context.Context, alertID, staffID, assignedBy string, kind audit.ActorKind, reason string, proximityScore *float64) (alerts.Alert, error)
	AddBackupAssignment(ctx context.Context, alertID, staffID, reason string, proximityScore *float64) (alerts.Assignment, error)
	Escalate(ctx context.Context, alertID, escalateTo, reason, escalatedBy string, kind audit.ActorKind) (alerts.Alert, error)
}

// Notifier queues outbound notifications. Implementations are
// fire-and-forget; the engine never fails an assignment over them.
type Notifier interface {
	NotifyAssignment(ctx context.Context, recipient staff.Profile, a alerts.Alert, isCritical bool)
	NotifyEscalation(ctx context.Context, recipient staff.Profile, a alerts.Alert, reason string)
}

// Engine picks responders for alerts.
//
// Candidates are scored on three axes, each 0-1 with lower better:
// proximity (zone hops to the alert), workload (active assignments
// against capacity), and skill match (role fit for the anomaly type).
// The weighted total decides; supervisors and admins get a 20% score
// reduction on critical alerts so seniors win ties there.
type Engine struct {
	staff    StaffDirectory
	alerts   AlertWriter
	zones    zones.Source
	notifier Notifier
	cfg      config.AlertConfig
}

func NewEngine(dir StaffDirectory, aw AlertWriter, src zones.Source, notifier Notifier, cfg config.AlertConfig) *Engine {
	if cfg.SearchRadius <= 0 {
		cfg.SearchRadius = 3
	}
	if cfg.CriticalMaxAssignees <= 0 {
		cfg.CriticalMaxAssignees = 3
	}
	if cfg.WeightProximity == 0 && cfg.WeightWorkload == 0 && cfg.WeightSkill == 0 {
		cfg.WeightProximity, cfg.WeightWorkload, cfg.WeightSkill = 0.5, 0.3, 0.2
	}
	return &Engine{staff: dir, alerts: aw, zones: src, notifier: notifier, cfg: cfg}
}

type candidate struct {
	profile     staff.Profile
	currentZone string
	distance    int

	proximityScore float64
	workloadScore  float64
	skillScore     float64
	totalScore     float64
}

// AssignAlert assigns an alert to the best available staff member and
// queues their notification. forceStaffID overrides the scoring for
// manual assignment. Returns ErrNoStaffAvailable when nobody qualifies.
func (e *Engine) AssignAlert(ctx context.Context, a alerts.Alert, excludeIDs []string, forceStaffID string) (staff.Profile, error) {
	log := logger.From(ctx)

	if forceStaffID != "" {
		target, err := e.staff.Get(ctx, forceStaffID)
		if err != nil {
			return staff.Profile{}, fmt.Errorf("assignment: forced staff %s: %w", forceStaffID, err)
		}
		if err := e.doAssignment(ctx, a, target, "manual", nil); err != nil {
			return staff.Profile{}, err
		}
		return target, nil
	}

	if a.Location.ZoneID == "" {
		log.Warn("alert has no zone, cannot auto-assign", "alert_id", a.ID)
		return staff.Profile{}, ErrNoStaffAvailable
	}

	ranked, err := e.rankCandidates(ctx, a, excludeIDs)
	if err != nil {
		return staff.Profile{}, err
	}
	if len(ranked) == 0 {
		log.Warn("no available staff for alert", "alert_id", a.ID, "zone_id", a.Location.ZoneID)
		return staff.Profile{}, ErrNoStaffAvailable
	}

	best := ranked[0]
	if err := e.doAssignment(ctx, a, best.profile, "auto", &best.proximityScore); err != nil {
		return staff.Profile{}, err
	}

	log.Info("auto-assigned alert",
		"alert_id", a.ID,
		"staff_id", best.profile.ID,
		"staff_name", best.profile.Name,
		"score", best.totalScore,
		"zone_id", a.Location.ZoneID,
	)
	return best.profile, nil
}

// AssignCriticalAlert assigns a critical alert to up to maxAssignees
// staff members. The top-scored candidate becomes the primary assignee;
// the rest get backup assignment rows that never change the alert's
// assigned_to. All of them are notified.
func (e *Engine) AssignCriticalAlert(ctx context.Context, a alerts.Alert, maxAssignees int) ([]staff.Profile, error) {
	log := logger.From(ctx)

	if maxAssignees <= 0 {
		maxAssignees = e.cfg.CriticalMaxAssignees
	}
	if a.Location.ZoneID == "" {
		return nil, ErrNoStaffAvailable
	}

	ranked, err := e.rankCandidates(ctx, a, nil)
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		return nil, ErrNoStaffAvailable
	}
	if len(ranked) > maxAssignees {
		ranked = ranked[:maxAssignees]
	}

	assigned := make([]staff.Profile, 0, len(ranked))
	for i, c := range ranked {
		score := c.proximityScore
		if i == 0 {
			if err := e.doAssignment(ctx, a, c.profile, "critical_primary", &score); err != nil {
				return assigned, err
			}
		} else {
			if _, err := e.alerts.AddBackupAssignment(ctx, a.ID, c.profile.ID, "critical_backup", &score); err != nil {
				log.Error("backup assignment failed", "alert_id", a.ID, "staff_id", c.profile.ID, "err", err)
				continue
			}
			if e.notifier != nil {
				e.notifier.NotifyAssignment(ctx, c.profile, a, true)
			}
		}
		assigned = append(assigned, c.profile)
	}

	log.Info("critical alert assigned to response team", "alert_id", a.ID, "assignees", len(assigned))
	return assigned, nil
}

// FindEscalationTarget picks who an alert escalates to.
//
// The hierarchy follows the current assignee's role: security and lab
// supervisors escalate to a supervisor then an admin, supervisors to an
// admin, unassigned alerts to a supervisor then an admin. As a last
// resort any available staff member is acceptable.
func (e *Engine) FindEscalationTarget(ctx context.Context, a alerts.Alert) (staff.Profile, error) {
	var excludeIDs []string
	if a.AssignedTo != "" {
		excludeIDs = []string{a.AssignedTo}
	}

	targetRoles := []string{rbac.RoleSupervisor, rbac.RoleAdmin}
	if a.AssignedTo != "" {
		current, err := e.staff.Get(ctx, a.AssignedTo)
		if err == nil {
			switch current.Role {
			case rbac.RoleSecurity, rbac.RoleLabSupervisor:
				targetRoles = []string{rbac.RoleSupervisor, rbac.RoleAdmin}
			case rbac.RoleSupervisor:
				targetRoles = []string{rbac.RoleAdmin}
			}
		}
	}

	for _, role := range targetRoles {
		available, err := e.staff.AvailableStaff(ctx, role, excludeIDs)
		if err != nil {
			return staff.Profile{}, err
		}
		if len(available) > 0 {
			return available[0], nil
		}
	}

	// Last resort, any available staff.
	available, err := e.staff.AvailableStaff(ctx, "", excludeIDs)
	if err != nil {
		return staff.Profile{}, err
	}
	if len(available) == 0 {
		return staff.Profile{}, ErrNoStaffAvailable
	}
	return available[0], nil
}

// EscalateAlert finds a target, performs the escalation handover, and
// notifies the target.
func (e *Engine) EscalateAlert(ctx context.Context, a alerts.Alert, reason string) (staff.Profile, error) {
	target, err := e.FindEscalationTarget(ctx, a)
	if err != nil {
		return staff.Profile{}, err
	}

	updated, err := e.alerts.Escalate(ctx, a.ID, target.ID, reason, "system", audit.ActorKindSystem)
	if err != nil {
		return staff.Profile{}, err
	}

	if e.notifier != nil {
		e.notifier.NotifyEscalation(ctx, target, updated, reason)
	}

	logger.From(ctx).Info("escalated alert",
		"alert_id", a.ID, "escalated_to", target.ID, "target_name", target.Name, "reason", reason)
	return target, nil
}

// Candidate is the exported view of a scored assignment candidate,
// used by the candidates inspection endpoint.
type Candidate struct {
	StaffID     string  `json:"staff_id"`
	Name        string  `json:"name"`
	Role        string  `json:"role"`
	CurrentZone string  `json:"current_zone"`
	Distance    int     `json:"zone_distance"`

	ProximityScore float64 `json:"proximity_score"`
	WorkloadScore  float64 `json:"workload_score"`
	SkillScore     float64 `json:"skill_score"`
	TotalScore     float64 `json:"total_score"`
}

// Candidates returns the ranked candidate list for a zone, scored as if
// a medium-severity alert of the given anomaly type had fired there.
func (e *Engine) Candidates(ctx context.Context, zoneID, anomalyType string) ([]Candidate, error) {
	probe := alerts.Alert{
		AnomalyType: anomalyType,
		Severity:    alerts.SeverityMedium,
		Location:    alerts.Location{ZoneID: zoneID},
	}
	ranked, err := e.rankCandidates(ctx, probe, nil)
	if err != nil {
		return nil, err
	}
	out := make([]Candidate, 0, len(ranked))
	for _, c := range ranked {
		out = append(out, Candidate{
			StaffID:        c.profile.ID,
			Name:           c.profile.Name,
			Role:           c.profile.Role,
			CurrentZone:    c.currentZone,
			Distance:       c.distance,
			ProximityScore: c.proximityScore,
			WorkloadScore:  c.workloadScore,
			SkillScore:     c.skillScore,
			TotalScore:     c.totalScore,
		})
	}
	return out, nil
}

func (e *Engine) rankCandidates(ctx context.Context, a alerts.Alert, excludeIDs []string) ([]candidate, error) {
	adjacent, err := e.zones.AdjacentZones(ctx, a.Location.ZoneID, e.cfg.SearchRadius)
	if err != nil {
		return nil, fmt.Errorf("assignment: adjacent zones for %s: %w", a.Location.ZoneID, err)
	}

	nearby, err := e.staff.NearbyStaff(ctx, a.Location.ZoneID, adjacent, excludeIDs, true)
	if err != nil {
		return nil, fmt.Errorf("assignment: nearby staff: %w", err)
	}

	ranked := make([]candidate, 0, len(nearby))
	for _, n := range nearby {
		ok, err := e.staff.IsAvailable(ctx, n.Profile.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		c, err := e.score(ctx, n, a)
		if err != nil {
			return nil, err
		}
		ranked = append(ranked, c)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].totalScore < ranked[j].totalScore
	})
	return ranked, nil
}

func (e *Engine) score(ctx context.Context, n staff.Nearby, a alerts.Alert) (candidate, error) {
	active, err := e.staff.ActiveAssignmentCount(ctx, n.Profile.ID)
	if err != nil {
		return candidate{}, err
	}

	c := candidate{
		profile:        n.Profile,
		currentZone:    n.CurrentZone,
		distance:       n.Distance,
		proximityScore: proximityScore(n.Distance),
		workloadScore:  workloadScore(active, n.Profile.MaxConcurrent),
		skillScore:     skillScore(n.Profile.Role, a.AnomalyType),
	}
	c.totalScore = e.cfg.WeightProximity*c.proximityScore +
		e.cfg.WeightWorkload*c.workloadScore +
		e.cfg.WeightSkill*c.skillScore

	// Seniors get a 20% score reduction on critical alerts.
	if a.Severity == alerts.SeverityCritical {
		switch n.Profile.Role {
		case rbac.RoleSupervisor, rbac.RoleAdmin:
			c.totalScore *= 0.8
		}
	}
	return c, nil
}

// proximityScore maps zone hops to 0-1, lower is better. Same zone is
// a perfect 0; anything three or more hops out saturates at 1.
func proximityScore(distance int) float64 {
	switch {
	case distance <= 0:
		return 0.0
	case distance == 1:
		return 0.33
	case distance == 2:
		return 0.67
	default:
		return 1.0
	}
}

func workloadScore(active, maxConcurrent int) float64 {
	if maxConcurrent <= 0 {
		return 1.0
	}
	score := float64(active) / float64(maxConcurrent)
	if score > 1.0 {
		return 1.0
	}
	return score
}

func (e *Engine) doAssignment(ctx context.Context, a alerts.Alert, target staff.Profile, reason string, proximityScore *float64) error {
	updated, err := e.alerts.Assign(ctx, a.ID, target.ID, "system", audit.ActorKindSystem, reason, proximityScore)
	if err != nil {
		return err
	}
	if e.notifier != nil {
		e.notifier.NotifyAssignment(ctx, target, updated, a.Severity == alerts.SeverityCritical)
	}
	return nil
}
