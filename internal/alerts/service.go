package alerts

import (
	"context"
	"database/sql"
	"time"

	"campus-sentinel/internal/audit"
	"campus-sentinel/pkg/logger"
	"campus-sentinel/pkg/utils"

	"github.com/google/uuid"
)

// StaffChecker verifies staff existence before an assignment is recorded.
// Implemented by the staff service; kept as an interface so lifecycle
// logic can be tested without the staff tables.
type StaffChecker interface {
	Exists(ctx context.Context, staffID string) (bool, error)
}

// Service owns the alert lifecycle.
//
// Lifecycle invariants:
// - Status changes follow the transition table in transitions.go.
// - Every lifecycle action writes its audit entry in the same
//   transaction as the state change; a committed transition always has
//   its trail row.
// - All mutations run in a DB transaction with the alert row locked.
// - Only the assigned staff member can acknowledge, checked against the
//   locked row.
// - resolved is terminal.
type Service struct {
	db    *sql.DB
	audit *audit.Service
	staff StaffChecker

	// maxEscalations is a soft cap: escalations past it are allowed but
	// logged, and the sweep reports them as max_reached.
	maxEscalations int

	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(db *sql.DB, auditSvc *audit.Service, staff StaffChecker, maxEscalations int) *Service {
	if maxEscalations <= 0 {
		maxEscalations = 3
	}
	return &Service{
		db:             db,
		audit:          auditSvc,
		staff:          staff,
		maxEscalations: maxEscalations,
		clock:          time.Now,
	}
}

// MaxEscalations exposes the configured soft cap to the sweep.
func (s *Service) MaxEscalations() int { return s.maxEscalations }

func (s *Service) Create(ctx context.Context, req CreateRequest, createdBy string, kind audit.ActorKind) (Alert, error) {
	if req.Title == "" || req.Description == "" {
		return Alert{}, ErrInvalidArgument
	}
	if !ValidSeverity(req.Severity) {
		return Alert{}, ErrInvalidArgument
	}
	if req.Location.ZoneID == "" {
		return Alert{}, ErrInvalidArgument
	}

	now := s.clock().UTC()
	a := Alert{
		ID:               uuid.NewString(),
		AnomalyID:        req.AnomalyID,
		AnomalyType:      req.AnomalyType,
		Title:            req.Title,
		Description:      req.Description,
		Severity:         req.Severity,
		Status:           StatusCreated,
		Location:         req.Location,
		AffectedEntities: req.AffectedEntities,
		DataSources:      req.DataSources,
		Evidence:         req.Evidence,
		IsMock:           req.IsMock,
		MockScenario:     req.MockScenario,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		if err := insertAlert(ctx, tx, a); err != nil {
			return err
		}
		return s.auditInTx(ctx, tx, audit.Entry{
			AlertID:   a.ID,
			Action:    audit.ActionCreated,
			ActorID:   createdBy,
			ActorKind: kind,
			Details: map[string]any{
				"title":      a.Title,
				"severity":   string(a.Severity),
				"zone_id":    a.Location.ZoneID,
				"anomaly_id": a.AnomalyID,
			},
			IsMock: a.IsMock,
		})
	})
	if err != nil {
		return Alert{}, err
	}

	logger.From(ctx).Info("alert created", "alert_id", a.ID, "severity", a.Severity, "zone", a.Location.ZoneID)
	return a, nil
}

func (s *Service) Get(ctx context.Context, alertID string) (Alert, error) {
	if alertID == "" {
		return Alert{}, ErrInvalidArgument
	}
	return getAlert(ctx, s.db, alertID)
}

func (s *Service) Assignments(ctx context.Context, alertID string) ([]Assignment, error) {
	if alertID == "" {
		return nil, ErrInvalidArgument
	}
	return listAssignments(ctx, s.db, alertID)
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Alert, int, error) {
	return listAlerts(ctx, s.db, f)
}

// ListForStaff returns alerts the staff member is involved in, primary
// or backup, most urgent first.
func (s *Service) ListForStaff(ctx context.Context, staffID string, activeOnly bool, since *time.Time, limit int) ([]Alert, error) {
	if staffID == "" {
		return nil, ErrInvalidArgument
	}
	return listAlertsForStaff(ctx, s.db, staffID, activeOnly, since, limit)
}

func (s *Service) ActiveCountForStaff(ctx context.Context, staffID string) (int, error) {
	if staffID == "" {
		return 0, ErrInvalidArgument
	}
	return countActiveForStaff(ctx, s.db, staffID)
}

// UpdateStatus moves the alert to newStatus after validating the
// transition. A same-status update is an idempotent no-op.
func (s *Service) UpdateStatus(ctx context.Context, alertID string, newStatus Status, updatedBy string, kind audit.ActorKind, notes string) (Alert, error) {
	if alertID == "" {
		return Alert{}, ErrInvalidArgument
	}

	now := s.clock().UTC()
	var out Alert
	changed := false

	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		a, err := lockAlert(ctx, tx, alertID)
		if err != nil {
			return err
		}

		if a.Status == newStatus {
			out = a
			return nil
		}
		if !CanTransition(a.Status, newStatus) {
			return &InvalidTransitionError{From: a.Status, To: newStatus}
		}

		oldStatus := a.Status
		a.Status = newStatus
		a.UpdatedAt = now

		var entry audit.Entry
		if newStatus == StatusAcknowledged {
			a.AcknowledgedAt = &now
			if a.AssignedTo != "" {
				if err := markAssignmentAcknowledged(ctx, tx, a.ID, a.AssignedTo, now); err != nil {
					return err
				}
			}
			entry = audit.Entry{
				AlertID:   a.ID,
				Action:    audit.ActionAcknowledged,
				ActorID:   updatedBy,
				ActorKind: kind,
				IsMock:    a.IsMock,
			}
		} else {
			details := map[string]any{
				"previous_status": string(oldStatus),
				"new_status":      string(newStatus),
			}
			if notes != "" {
				details["notes"] = notes
			}
			entry = audit.Entry{
				AlertID:   a.ID,
				Action:    audit.ActionStatusChanged,
				ActorID:   updatedBy,
				ActorKind: kind,
				Details:   details,
				IsMock:    a.IsMock,
			}
		}

		if err := updateAlertRow(ctx, tx, a); err != nil {
			return err
		}
		if err := s.auditInTx(ctx, tx, entry); err != nil {
			return err
		}
		out = a
		changed = true
		return nil
	})
	if err != nil {
		return Alert{}, err
	}

	if changed {
		logger.From(ctx).Info("alert status updated", "alert_id", alertID, "status", out.Status)
	}
	return out, nil
}

// Assign hands the alert to a staff member. The previous primary
// assignment (if any) is completed; assignment history is append-only.
// Status only advances when the alert is still in created.
func (s *Service) Assign(ctx context.Context, alertID, staffID, assignedBy string, kind audit.ActorKind, reason string, proximityScore *float64) (Alert, error) {
	if alertID == "" || staffID == "" {
		return Alert{}, ErrInvalidArgument
	}
	if reason == "" {
		reason = "auto"
	}

	if s.staff != nil {
		ok, err := s.staff.Exists(ctx, staffID)
		if err != nil {
			return Alert{}, err
		}
		if !ok {
			return Alert{}, ErrStaffNotFound
		}
	}

	now := s.clock().UTC()
	var out Alert

	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		a, err := lockAlert(ctx, tx, alertID)
		if err != nil {
			return err
		}
		if a.Status == StatusResolved {
			return &InvalidTransitionError{From: StatusResolved, To: StatusAssigned}
		}

		reassignedFrom := ""
		if a.AssignedTo != "" {
			reassignedFrom = a.AssignedTo
			if err := completePrimaryAssignments(ctx, tx, a.ID, now); err != nil {
				return err
			}
		}

		as := Assignment{
			ID:             uuid.NewString(),
			AlertID:        a.ID,
			StaffID:        staffID,
			AssignedAt:     now,
			Reason:         reason,
			ProximityScore: proximityScore,
			IsActive:       true,
		}
		if err := insertAssignment(ctx, tx, as); err != nil {
			return err
		}

		a.AssignedTo = staffID
		a.AssignedAt = &now
		if a.Status == StatusCreated {
			a.Status = StatusAssigned
		}
		a.UpdatedAt = now

		if err := updateAlertRow(ctx, tx, a); err != nil {
			return err
		}

		details := map[string]any{
			"assigned_to": staffID,
			"reason":      reason,
		}
		if proximityScore != nil {
			details["proximity_score"] = *proximityScore
		}
		action := audit.ActionAssigned
		if reassignedFrom != "" && reassignedFrom != staffID {
			action = audit.ActionReassigned
			details["previous_assignee"] = reassignedFrom
		}
		if err := s.auditInTx(ctx, tx, audit.Entry{
			AlertID:   a.ID,
			Action:    action,
			ActorID:   assignedBy,
			ActorKind: kind,
			Details:   details,
			IsMock:    a.IsMock,
		}); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return Alert{}, err
	}

	logger.From(ctx).Info("alert assigned", "alert_id", alertID, "staff_id", staffID, "reason", reason)
	return out, nil
}

// AddBackupAssignment records an additional active assignment without
// changing the alert's primary assignee. Used for critical alerts and
// backup requests.
func (s *Service) AddBackupAssignment(ctx context.Context, alertID, staffID, reason string, proximityScore *float64) (Assignment, error) {
	if alertID == "" || staffID == "" {
		return Assignment{}, ErrInvalidArgument
	}
	if reason == "" {
		reason = "backup"
	}

	if s.staff != nil {
		ok, err := s.staff.Exists(ctx, staffID)
		if err != nil {
			return Assignment{}, err
		}
		if !ok {
			return Assignment{}, ErrStaffNotFound
		}
	}

	now := s.clock().UTC()
	var out Assignment

	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		a, err := lockAlert(ctx, tx, alertID)
		if err != nil {
			return err
		}
		if a.Status == StatusResolved {
			return &InvalidTransitionError{From: StatusResolved, To: StatusAssigned}
		}

		as := Assignment{
			ID:             uuid.NewString(),
			AlertID:        a.ID,
			StaffID:        staffID,
			AssignedAt:     now,
			Reason:         reason,
			ProximityScore: proximityScore,
			IsBackup:       true,
			IsActive:       true,
		}
		if err := insertAssignment(ctx, tx, as); err != nil {
			return err
		}
		if err := s.auditInTx(ctx, tx, audit.Entry{
			AlertID:   a.ID,
			Action:    audit.ActionAssigned,
			ActorKind: audit.ActorKindSystem,
			Details: map[string]any{
				"assigned_to": staffID,
				"reason":      reason,
				"backup":      true,
			},
			IsMock: a.IsMock,
		}); err != nil {
			return err
		}
		out = as
		return nil
	})
	if err != nil {
		return Assignment{}, err
	}
	return out, nil
}

// ActiveBackupCount reports how many backup responders are currently
// attached to the alert.
func (s *Service) ActiveBackupCount(ctx context.Context, alertID string) (int, error) {
	if alertID == "" {
		return 0, ErrInvalidArgument
	}
	var n int
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{ReadOnly: true}, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		n, err = countActiveBackups(ctx, tx, alertID)
		return err
	})
	return n, err
}

// Acknowledge is the staff action confirming receipt of an assignment.
// The assignee check runs against the locked row, so a reassignment
// racing this call cannot let the previous assignee acknowledge.
func (s *Service) Acknowledge(ctx context.Context, alertID, staffID string) (Alert, error) {
	if alertID == "" || staffID == "" {
		return Alert{}, ErrInvalidArgument
	}

	now := s.clock().UTC()
	var out Alert

	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		a, err := lockAlert(ctx, tx, alertID)
		if err != nil {
			return err
		}
		if a.AssignedTo != staffID {
			return ErrNotAssignee
		}
		if a.Status == StatusAcknowledged {
			out = a
			return nil
		}
		if !CanTransition(a.Status, StatusAcknowledged) {
			return &InvalidTransitionError{From: a.Status, To: StatusAcknowledged}
		}

		a.Status = StatusAcknowledged
		a.AcknowledgedAt = &now
		a.UpdatedAt = now

		if err := markAssignmentAcknowledged(ctx, tx, a.ID, staffID, now); err != nil {
			return err
		}
		if err := updateAlertRow(ctx, tx, a); err != nil {
			return err
		}
		if err := s.auditInTx(ctx, tx, audit.Entry{
			AlertID:   a.ID,
			Action:    audit.ActionAcknowledged,
			ActorID:   staffID,
			ActorKind: audit.ActorKindStaff,
			IsMock:    a.IsMock,
		}); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return Alert{}, err
	}

	logger.From(ctx).Info("alert acknowledged", "alert_id", alertID, "staff_id", staffID)
	return out, nil
}

// Resolve closes the alert. Legal from any non-resolved state; a second
// resolve is rejected.
func (s *Service) Resolve(ctx context.Context, alertID, resolvedBy string, rt ResolutionType, notes string, kind audit.ActorKind) (Alert, error) {
	if alertID == "" || resolvedBy == "" {
		return Alert{}, ErrInvalidArgument
	}
	if !ValidResolutionType(rt) {
		return Alert{}, ErrInvalidArgument
	}
	if notes == "" {
		return Alert{}, ErrInvalidArgument
	}

	now := s.clock().UTC()
	var out Alert

	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		a, err := lockAlert(ctx, tx, alertID)
		if err != nil {
			return err
		}
		if a.Status == StatusResolved {
			return &InvalidTransitionError{From: StatusResolved, To: StatusResolved}
		}

		a.Status = StatusResolved
		a.ResolvedAt = &now
		a.ResolvedBy = resolvedBy
		a.ResolutionType = rt
		a.ResolutionNotes = notes
		a.UpdatedAt = now

		if err := completeAllAssignments(ctx, tx, a.ID, now); err != nil {
			return err
		}
		if err := updateAlertRow(ctx, tx, a); err != nil {
			return err
		}
		if err := s.auditInTx(ctx, tx, audit.Entry{
			AlertID:   a.ID,
			Action:    audit.ActionResolved,
			ActorID:   resolvedBy,
			ActorKind: kind,
			Details: map[string]any{
				"resolution_type":  string(rt),
				"resolution_notes": notes,
			},
			IsMock: a.IsMock,
		}); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return Alert{}, err
	}

	logger.From(ctx).Info("alert resolved", "alert_id", alertID, "resolution_type", rt)
	return out, nil
}

// Escalate hands the alert to a higher-level responder. The escalation
// cap is soft: past the cap the escalation still happens but is logged.
// The alert ends in escalated status with escalateTo as the assignee.
func (s *Service) Escalate(ctx context.Context, alertID, escalateTo, reason, escalatedBy string, kind audit.ActorKind) (Alert, error) {
	if alertID == "" || escalateTo == "" || reason == "" {
		return Alert{}, ErrInvalidArgument
	}

	if s.staff != nil {
		ok, err := s.staff.Exists(ctx, escalateTo)
		if err != nil {
			return Alert{}, err
		}
		if !ok {
			return Alert{}, ErrStaffNotFound
		}
	}

	now := s.clock().UTC()
	var out Alert

	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		a, err := lockAlert(ctx, tx, alertID)
		if err != nil {
			return err
		}
		if a.Status == StatusResolved {
			return &InvalidTransitionError{From: StatusResolved, To: StatusEscalated}
		}

		if a.EscalationCount >= s.maxEscalations {
			logger.From(ctx).Warn("alert past max escalations",
				"alert_id", a.ID, "escalation_count", a.EscalationCount, "max", s.maxEscalations)
		}

		a.EscalationCount++
		a.EscalationHistory = append(a.EscalationHistory, EscalationEntry{
			EscalatedTo:      escalateTo,
			Reason:           reason,
			Timestamp:        now,
			EscalationNumber: a.EscalationCount,
		})
		a.Status = StatusEscalated

		// Hand the alert over inside the same transaction.
		if a.AssignedTo != "" {
			if err := completePrimaryAssignments(ctx, tx, a.ID, now); err != nil {
				return err
			}
		}
		as := Assignment{
			ID:         uuid.NewString(),
			AlertID:    a.ID,
			StaffID:    escalateTo,
			AssignedAt: now,
			Reason:     "escalation: " + reason,
			IsActive:   true,
		}
		if err := insertAssignment(ctx, tx, as); err != nil {
			return err
		}
		a.AssignedTo = escalateTo
		a.AssignedAt = &now
		a.UpdatedAt = now

		if err := updateAlertRow(ctx, tx, a); err != nil {
			return err
		}
		if err := s.auditInTx(ctx, tx, audit.Entry{
			AlertID:   a.ID,
			Action:    audit.ActionEscalated,
			ActorID:   escalatedBy,
			ActorKind: kind,
			Details: map[string]any{
				"escalated_to":     escalateTo,
				"reason":           reason,
				"escalation_count": a.EscalationCount,
			},
			IsMock: a.IsMock,
		}); err != nil {
			return err
		}
		if err := s.auditInTx(ctx, tx, audit.Entry{
			AlertID:   a.ID,
			Action:    audit.ActionAssigned,
			ActorID:   escalatedBy,
			ActorKind: kind,
			Details: map[string]any{
				"assigned_to": escalateTo,
				"reason":      "escalation: " + reason,
			},
			IsMock: a.IsMock,
		}); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return Alert{}, err
	}

	logger.From(ctx).Info("alert escalated",
		"alert_id", alertID, "escalated_to", escalateTo, "escalation_count", out.EscalationCount)
	return out, nil
}

// AddNote appends a note to the alert's evidence under the "notes" key.
func (s *Service) AddNote(ctx context.Context, alertID, note, addedBy string) (Alert, error) {
	if alertID == "" || note == "" || addedBy == "" {
		return Alert{}, ErrInvalidArgument
	}

	now := s.clock().UTC()
	var out Alert

	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		a, err := lockAlert(ctx, tx, alertID)
		if err != nil {
			return err
		}

		if a.Evidence == nil {
			a.Evidence = map[string]any{}
		}
		notes, _ := a.Evidence["notes"].([]any)
		notes = append(notes, map[string]any{
			"content":   note,
			"added_by":  addedBy,
			"timestamp": now.Format(time.RFC3339),
		})
		a.Evidence["notes"] = notes
		a.UpdatedAt = now

		if err := updateAlertRow(ctx, tx, a); err != nil {
			return err
		}
		if err := s.auditInTx(ctx, tx, audit.Entry{
			AlertID:   a.ID,
			Action:    audit.ActionNoteAdded,
			ActorID:   addedBy,
			ActorKind: audit.ActorKindStaff,
			Details:   map[string]any{"note": note},
			IsMock:    a.IsMock,
		}); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return Alert{}, err
	}
	return out, nil
}

// RequestBackup records that the assignee asked for backup on the alert.
// Candidate selection and the backup assignment itself are done by the
// assignment engine. The audit record is the operation's only effect, so
// a failed write is reported to the caller.
func (s *Service) RequestBackup(ctx context.Context, alertID, requestedBy, backupStaffID string) error {
	if alertID == "" || requestedBy == "" {
		return ErrInvalidArgument
	}
	a, err := getAlert(ctx, s.db, alertID)
	if err != nil {
		return err
	}
	if a.AssignedTo != requestedBy {
		return ErrNotAssignee
	}

	if s.audit == nil {
		return nil
	}
	return s.audit.Append(ctx, audit.Entry{
		AlertID:   alertID,
		Action:    audit.ActionBackupRequested,
		ActorID:   requestedBy,
		ActorKind: audit.ActorKindStaff,
		Details:   map[string]any{"backup_staff_id": backupStaffID},
		IsMock:    a.IsMock,
	})
}

// Update patches alert metadata. Severity changes get their own audit entry.
func (s *Service) Update(ctx context.Context, alertID string, req UpdateRequest, updatedBy string, kind audit.ActorKind) (Alert, error) {
	if alertID == "" {
		return Alert{}, ErrInvalidArgument
	}
	if req.Severity != nil && !ValidSeverity(*req.Severity) {
		return Alert{}, ErrInvalidArgument
	}

	now := s.clock().UTC()
	var out Alert

	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		a, err := lockAlert(ctx, tx, alertID)
		if err != nil {
			return err
		}

		var severityChange *audit.Entry
		if req.Title != nil {
			a.Title = *req.Title
		}
		if req.Description != nil {
			a.Description = *req.Description
		}
		if req.Severity != nil && *req.Severity != a.Severity {
			severityChange = &audit.Entry{
				AlertID:   a.ID,
				Action:    audit.ActionSeverityChanged,
				ActorID:   updatedBy,
				ActorKind: kind,
				Details: map[string]any{
					"previous_severity": string(a.Severity),
					"new_severity":      string(*req.Severity),
				},
				IsMock: a.IsMock,
			}
			a.Severity = *req.Severity
		}
		if req.Location != nil {
			a.Location = *req.Location
		}
		if req.Evidence != nil {
			if a.Evidence == nil {
				a.Evidence = map[string]any{}
			}
			for k, v := range req.Evidence {
				a.Evidence[k] = v
			}
		}
		a.UpdatedAt = now

		if err := updateAlertRow(ctx, tx, a); err != nil {
			return err
		}
		if severityChange != nil {
			if err := s.auditInTx(ctx, tx, *severityChange); err != nil {
				return err
			}
		}
		out = a
		return nil
	})
	if err != nil {
		return Alert{}, err
	}
	return out, nil
}

// OverdueUnacknowledged returns real, under-cap assigned alerts whose
// assignment is older than the deadline. Used by the escalation sweep.
func (s *Service) OverdueUnacknowledged(ctx context.Context, deadline time.Duration) ([]Alert, error) {
	cutoff := s.clock().UTC().Add(-deadline)
	return overdueUnacknowledged(ctx, s.db, cutoff, s.maxEscalations)
}

// OverdueUnresolved returns acknowledged/investigating alerts whose
// acknowledgment is older than the resolution deadline.
func (s *Service) OverdueUnresolved(ctx context.Context, deadline time.Duration) ([]Alert, error) {
	cutoff := s.clock().UTC().Add(-deadline)
	return overdueUnresolved(ctx, s.db, cutoff, s.maxEscalations)
}

// MaxEscalationsReachedCount reports how many live alerts sit at or past
// the escalation cap.
func (s *Service) MaxEscalationsReachedCount(ctx context.Context) (int, error) {
	return countMaxEscalated(ctx, s.db, s.maxEscalations)
}

// Delete removes an alert outright. Admin-only; demo cleanup should use
// ClearMock instead.
func (s *Service) Delete(ctx context.Context, alertID string) error {
	if alertID == "" {
		return ErrInvalidArgument
	}
	return utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		ok, err := deleteAlert(ctx, tx, alertID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		return nil
	})
}

// ClearMock deletes all demo alerts and their audit entries.
func (s *Service) ClearMock(ctx context.Context) (int64, error) {
	var n int64
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		n, err = deleteMockAlerts(ctx, tx)
		return err
	})
	if err != nil {
		return 0, err
	}

	if s.audit != nil {
		if _, err := s.audit.PurgeMock(ctx); err != nil {
			logger.From(ctx).Error("mock audit purge failed", "err", err)
		}
	}
	logger.From(ctx).Info("cleared mock alerts", "count", n)
	return n, nil
}

// auditInTx writes the entry through the open transaction; an audit
// failure aborts the state change rather than leaving a silent gap in
// the trail.
func (s *Service) auditInTx(ctx context.Context, tx *sql.Tx, e audit.Entry) error {
	if s.audit == nil {
		return nil
	}
	return s.audit.AppendTx(ctx, tx, e)
}
