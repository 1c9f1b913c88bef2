package alerts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-sentinel/internal/audit"
)

var alertTestColumns = []string{
	"id", "anomaly_id", "anomaly_type", "title", "description", "severity", "status",
	"location", "affected_entities", "data_sources", "evidence",
	"assigned_to", "assigned_at", "acknowledged_at",
	"resolved_at", "resolved_by", "resolution_type", "resolution_notes",
	"escalation_count", "escalation_history",
	"is_mock", "mock_scenario", "created_at", "updated_at",
}

type alertRow struct {
	id         string
	status     Status
	severity   Severity
	assignedTo any // nil or string
	escCount   int
}

func addAlertRow(rows *sqlmock.Rows, r alertRow) *sqlmock.Rows {
	now := time.Unix(1700000000, 0).UTC()
	var assignedAt any
	if r.assignedTo != nil {
		assignedAt = now
	}
	return rows.AddRow(
		r.id, nil, nil, "Tailgating at lab door", "Badge reader saw one swipe, camera saw two people", string(r.severity), string(r.status),
		[]byte(`{"zone_id":"LAB_101","building":"Science A"}`), nil, nil, nil,
		r.assignedTo, assignedAt, nil,
		nil, nil, nil, nil,
		r.escCount, nil,
		false, nil, now, now,
	)
}

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := NewService(db, audit.NewService(audit.NewMemoryRepo()), nil, 3)
	svc.clock = func() time.Time { return time.Unix(1700001000, 0).UTC() }
	return svc, mock
}

func TestCreate_ValidatesInput(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []CreateRequest{
		{},
		{Title: "x", Description: "y", Severity: "urgent", Location: Location{ZoneID: "LAB_101"}},
		{Title: "x", Description: "y", Severity: SeverityHigh},
	}
	for i, req := range cases {
		_, err := svc.Create(ctx, req, "", audit.ActorKindSystem)
		assert.ErrorIs(t, err, ErrInvalidArgument, "case %d", i)
	}
}

func TestCreate_InsertsAlert(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO alerts").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	a, err := svc.Create(context.Background(), CreateRequest{
		Title:       "Tailgating at lab door",
		Description: "Badge reader saw one swipe, camera saw two people",
		Severity:    SeverityHigh,
		Location:    Location{ZoneID: "LAB_101"},
	}, "detector", audit.ActorKindSystem)
	require.NoError(t, err)

	assert.NotEmpty(t, a.ID)
	assert.Equal(t, StatusCreated, a.Status)
	assert.Equal(t, SeverityHigh, a.Severity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_SameStatusIsNoOp(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM alerts WHERE id = \\$1 FOR UPDATE").
		WithArgs("a1").
		WillReturnRows(addAlertRow(sqlmock.NewRows(alertTestColumns), alertRow{id: "a1", status: StatusAssigned, severity: SeverityHigh, assignedTo: "s1"}))
	mock.ExpectCommit()

	a, err := svc.UpdateStatus(context.Background(), "a1", StatusAssigned, "s1", audit.ActorKindStaff, "")
	require.NoError(t, err)
	assert.Equal(t, StatusAssigned, a.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_RejectsInvalidTransition(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("a1").
		WillReturnRows(addAlertRow(sqlmock.NewRows(alertTestColumns), alertRow{id: "a1", status: StatusResolved, severity: SeverityHigh}))
	mock.ExpectRollback()

	_, err := svc.UpdateStatus(context.Background(), "a1", StatusAssigned, "s1", audit.ActorKindStaff, "")
	var ite *InvalidTransitionError
	require.True(t, errors.As(err, &ite))
	assert.Equal(t, StatusResolved, ite.From)
	assert.Equal(t, StatusAssigned, ite.To)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_AcknowledgedStampsTimestamp(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("a1").
		WillReturnRows(addAlertRow(sqlmock.NewRows(alertTestColumns), alertRow{id: "a1", status: StatusAssigned, severity: SeverityHigh, assignedTo: "s1"}))
	mock.ExpectExec("UPDATE alert_assignments").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE alerts SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	a, err := svc.UpdateStatus(context.Background(), "a1", StatusAcknowledged, "s1", audit.ActorKindStaff, "")
	require.NoError(t, err)
	assert.Equal(t, StatusAcknowledged, a.Status)
	require.NotNil(t, a.AcknowledgedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssign_AdvancesCreatedToAssigned(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("a1").
		WillReturnRows(addAlertRow(sqlmock.NewRows(alertTestColumns), alertRow{id: "a1", status: StatusCreated, severity: SeverityMedium}))
	mock.ExpectExec("INSERT INTO alert_assignments").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE alerts SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	a, err := svc.Assign(context.Background(), "a1", "s1", "", audit.ActorKindSystem, "proximity", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusAssigned, a.Status)
	assert.Equal(t, "s1", a.AssignedTo)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssign_ReassignmentKeepsStatus(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("a1").
		WillReturnRows(addAlertRow(sqlmock.NewRows(alertTestColumns), alertRow{id: "a1", status: StatusEscalated, severity: SeverityHigh, assignedTo: "s1"}))
	mock.ExpectExec("UPDATE alert_assignments").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO alert_assignments").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE alerts SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	a, err := svc.Assign(context.Background(), "a1", "s2", "admin-1", audit.ActorKindAdmin, "manual", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusEscalated, a.Status)
	assert.Equal(t, "s2", a.AssignedTo)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssign_RejectsResolvedAlert(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("a1").
		WillReturnRows(addAlertRow(sqlmock.NewRows(alertTestColumns), alertRow{id: "a1", status: StatusResolved, severity: SeverityLow}))
	mock.ExpectRollback()

	_, err := svc.Assign(context.Background(), "a1", "s1", "", audit.ActorKindSystem, "", nil)
	var ite *InvalidTransitionError
	require.True(t, errors.As(err, &ite))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcknowledge_OnlyAssigneeMayAcknowledge(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("a1").
		WillReturnRows(addAlertRow(sqlmock.NewRows(alertTestColumns), alertRow{id: "a1", status: StatusAssigned, severity: SeverityHigh, assignedTo: "s1"}))
	mock.ExpectRollback()

	_, err := svc.Acknowledge(context.Background(), "a1", "someone-else")
	assert.ErrorIs(t, err, ErrNotAssignee)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcknowledge_AssigneeAcknowledges(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("a1").
		WillReturnRows(addAlertRow(sqlmock.NewRows(alertTestColumns), alertRow{id: "a1", status: StatusAssigned, severity: SeverityHigh, assignedTo: "s1"}))
	mock.ExpectExec("UPDATE alert_assignments").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE alerts SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	a, err := svc.Acknowledge(context.Background(), "a1", "s1")
	require.NoError(t, err)
	assert.Equal(t, StatusAcknowledged, a.Status)
	require.NotNil(t, a.AcknowledgedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// The assignee check runs against the row read under FOR UPDATE, so an
// acknowledge racing a reassignment sees the new assignee and is denied.
func TestAcknowledge_ReassignedAlertRejectsPreviousAssignee(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("a1").
		WillReturnRows(addAlertRow(sqlmock.NewRows(alertTestColumns), alertRow{id: "a1", status: StatusAssigned, severity: SeverityHigh, assignedTo: "s2"}))
	mock.ExpectRollback()

	_, err := svc.Acknowledge(context.Background(), "a1", "s1")
	assert.ErrorIs(t, err, ErrNotAssignee)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolve_SetsResolutionFields(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("a1").
		WillReturnRows(addAlertRow(sqlmock.NewRows(alertTestColumns), alertRow{id: "a1", status: StatusInvestigating, severity: SeverityHigh, assignedTo: "s1"}))
	mock.ExpectExec("UPDATE alert_assignments").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE alerts SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	a, err := svc.Resolve(context.Background(), "a1", "s1", ResolutionFalseAlarm, "camera glare, no second person", audit.ActorKindStaff)
	require.NoError(t, err)
	assert.Equal(t, StatusResolved, a.Status)
	assert.Equal(t, ResolutionFalseAlarm, a.ResolutionType)
	assert.Equal(t, "s1", a.ResolvedBy)
	require.NotNil(t, a.ResolvedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolve_RejectsSecondResolve(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("a1").
		WillReturnRows(addAlertRow(sqlmock.NewRows(alertTestColumns), alertRow{id: "a1", status: StatusResolved, severity: SeverityHigh}))
	mock.ExpectRollback()

	_, err := svc.Resolve(context.Background(), "a1", "s1", ResolutionResolved, "done", audit.ActorKindStaff)
	var ite *InvalidTransitionError
	require.True(t, errors.As(err, &ite))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolve_RequiresNotesAndValidType(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Resolve(ctx, "a1", "s1", ResolutionResolved, "", audit.ActorKindStaff)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.Resolve(ctx, "a1", "s1", "closed", "notes", audit.ActorKindStaff)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestEscalate_IncrementsCountPastSoftCap(t *testing.T) {
	svc, mock := newTestService(t)

	// escalation_count already at the cap; the escalation still proceeds.
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("a1").
		WillReturnRows(addAlertRow(sqlmock.NewRows(alertTestColumns), alertRow{id: "a1", status: StatusAssigned, severity: SeverityCritical, assignedTo: "s1", escCount: 3}))
	mock.ExpectExec("UPDATE alert_assignments").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO alert_assignments").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE alerts SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	a, err := svc.Escalate(context.Background(), "a1", "sup-1", "no acknowledgment after 10m0s", "", audit.ActorKindSystem)
	require.NoError(t, err)
	assert.Equal(t, StatusEscalated, a.Status)
	assert.Equal(t, 4, a.EscalationCount)
	assert.Equal(t, "sup-1", a.AssignedTo)
	require.Len(t, a.EscalationHistory, 1)
	assert.Equal(t, 4, a.EscalationHistory[0].EscalationNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// newTestServiceSQLAudit routes audit entries through the same mocked
// database, so the tests can see the audit INSERT inside the transaction.
func newTestServiceSQLAudit(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := NewService(db, audit.NewService(audit.NewPostgresRepo(db)), nil, 3)
	svc.clock = func() time.Time { return time.Unix(1700001000, 0).UTC() }
	return svc, mock
}

func TestUpdateStatus_AuditEntryCommitsWithTransition(t *testing.T) {
	svc, mock := newTestServiceSQLAudit(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("a1").
		WillReturnRows(addAlertRow(sqlmock.NewRows(alertTestColumns), alertRow{id: "a1", status: StatusAcknowledged, severity: SeverityHigh, assignedTo: "s1"}))
	mock.ExpectExec("UPDATE alerts SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO alert_audit_logs").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	a, err := svc.UpdateStatus(context.Background(), "a1", StatusInvestigating, "s1", audit.ActorKindStaff, "checking cameras")
	require.NoError(t, err)
	assert.Equal(t, StatusInvestigating, a.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_AuditFailureRollsBackTransition(t *testing.T) {
	svc, mock := newTestServiceSQLAudit(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("a1").
		WillReturnRows(addAlertRow(sqlmock.NewRows(alertTestColumns), alertRow{id: "a1", status: StatusAcknowledged, severity: SeverityHigh, assignedTo: "s1"}))
	mock.ExpectExec("UPDATE alerts SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO alert_audit_logs").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := svc.UpdateStatus(context.Background(), "a1", StatusInvestigating, "s1", audit.ActorKindStaff, "")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_AuditFailureRollsBackInsert(t *testing.T) {
	svc, mock := newTestServiceSQLAudit(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO alerts").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO alert_audit_logs").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := svc.Create(context.Background(), CreateRequest{
		Title:       "Tailgating at lab door",
		Description: "Badge reader saw one swipe, camera saw two people",
		Severity:    SeverityHigh,
		Location:    Location{ZoneID: "LAB_101"},
	}, "detector", audit.ActorKindSystem)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEscalate_WritesBothAuditEntriesInTransaction(t *testing.T) {
	svc, mock := newTestServiceSQLAudit(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("a1").
		WillReturnRows(addAlertRow(sqlmock.NewRows(alertTestColumns), alertRow{id: "a1", status: StatusAssigned, severity: SeverityCritical, assignedTo: "s1"}))
	mock.ExpectExec("UPDATE alert_assignments").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO alert_assignments").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE alerts SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO alert_audit_logs").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO alert_audit_logs").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	a, err := svc.Escalate(context.Background(), "a1", "sup-1", "no acknowledgment after 10m0s", "", audit.ActorKindSystem)
	require.NoError(t, err)
	assert.Equal(t, StatusEscalated, a.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddNote_AppendsToEvidence(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("a1").
		WillReturnRows(addAlertRow(sqlmock.NewRows(alertTestColumns), alertRow{id: "a1", status: StatusAcknowledged, severity: SeverityHigh, assignedTo: "s1"}))
	mock.ExpectExec("UPDATE alerts SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	a, err := svc.AddNote(context.Background(), "a1", "checked the east entrance, clear", "s1")
	require.NoError(t, err)
	notes, ok := a.Evidence["notes"].([]any)
	require.True(t, ok)
	require.Len(t, notes, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
