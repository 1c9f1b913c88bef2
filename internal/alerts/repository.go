package alerts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// NOTE: This repository assumes the following tables exist:
// - alerts
// - alert_assignments (assignment history; one active primary at a time)
//
// Severity ordering is done in SQL via a CASE rank so that listings are
// critical-first without a dedicated rank column.

const alertColumns = `
  id, anomaly_id, anomaly_type, title, description, severity, status,
  location, affected_entities, data_sources, evidence,
  assigned_to, assigned_at, acknowledged_at,
  resolved_at, resolved_by, resolution_type, resolution_notes,
  escalation_count, escalation_history,
  is_mock, mock_scenario, created_at, updated_at`

const severityRank = `
  CASE severity
    WHEN 'critical' THEN 4
    WHEN 'high' THEN 3
    WHEN 'medium' THEN 2
    ELSE 1
  END`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (Alert, error) {
	var a Alert
	var (
		anomalyID, anomalyType            sql.NullString
		location, entities, sources       []byte
		evidence, history                 []byte
		assignedTo, resolvedBy            sql.NullString
		resolutionType, resolutionNotes   sql.NullString
		mockScenario                      sql.NullString
		assignedAt, ackedAt, resolvedAt   sql.NullTime
	)

	err := row.Scan(
		&a.ID, &anomalyID, &anomalyType, &a.Title, &a.Description, &a.Severity, &a.Status,
		&location, &entities, &sources, &evidence,
		&assignedTo, &assignedAt, &ackedAt,
		&resolvedAt, &resolvedBy, &resolutionType, &resolutionNotes,
		&a.EscalationCount, &history,
		&a.IsMock, &mockScenario, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Alert{}, ErrNotFound
		}
		return Alert{}, err
	}

	a.AnomalyID = anomalyID.String
	a.AnomalyType = anomalyType.String
	a.AssignedTo = assignedTo.String
	a.ResolvedBy = resolvedBy.String
	a.ResolutionType = ResolutionType(resolutionType.String)
	a.ResolutionNotes = resolutionNotes.String
	a.MockScenario = mockScenario.String
	a.AssignedAt = timePtr(assignedAt)
	a.AcknowledgedAt = timePtr(ackedAt)
	a.ResolvedAt = timePtr(resolvedAt)

	if err := json.Unmarshal(location, &a.Location); err != nil {
		return Alert{}, fmt.Errorf("alert %s: location: %w", a.ID, err)
	}
	if len(entities) > 0 {
		if err := json.Unmarshal(entities, &a.AffectedEntities); err != nil {
			return Alert{}, fmt.Errorf("alert %s: affected_entities: %w", a.ID, err)
		}
	}
	if len(sources) > 0 {
		if err := json.Unmarshal(sources, &a.DataSources); err != nil {
			return Alert{}, fmt.Errorf("alert %s: data_sources: %w", a.ID, err)
		}
	}
	if len(evidence) > 0 {
		if err := json.Unmarshal(evidence, &a.Evidence); err != nil {
			return Alert{}, fmt.Errorf("alert %s: evidence: %w", a.ID, err)
		}
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &a.EscalationHistory); err != nil {
			return Alert{}, fmt.Errorf("alert %s: escalation_history: %w", a.ID, err)
		}
	}
	return a, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func getAlert(ctx context.Context, db *sql.DB, alertID string) (Alert, error) {
	q := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1`
	return scanAlert(db.QueryRowContext(ctx, q, alertID))
}

func lockAlert(ctx context.Context, tx *sql.Tx, alertID string) (Alert, error) {
	// Lock the alert row to serialize concurrent lifecycle operations.
	q := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1 FOR UPDATE`
	return scanAlert(tx.QueryRowContext(ctx, q, alertID))
}

func insertAlert(ctx context.Context, tx *sql.Tx, a Alert) error {
	location, err := json.Marshal(a.Location)
	if err != nil {
		return err
	}
	entities, err := marshalOrNil(a.AffectedEntities)
	if err != nil {
		return err
	}
	sources, err := marshalOrNil(a.DataSources)
	if err != nil {
		return err
	}
	evidence, err := marshalOrNil(a.Evidence)
	if err != nil {
		return err
	}
	history, err := marshalOrNil(a.EscalationHistory)
	if err != nil {
		return err
	}

	const q = `
INSERT INTO alerts (
  id, anomaly_id, anomaly_type, title, description, severity, status,
  location, affected_entities, data_sources, evidence,
  escalation_count, escalation_history,
  is_mock, mock_scenario, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17
)`
	_, err = tx.ExecContext(ctx, q,
		a.ID, nullStr(a.AnomalyID), nullStr(a.AnomalyType), a.Title, a.Description, string(a.Severity), string(a.Status),
		location, entities, sources, evidence,
		a.EscalationCount, history,
		a.IsMock, nullStr(a.MockScenario), a.CreatedAt, a.UpdatedAt,
	)
	return err
}

// updateAlertRow writes back all mutable columns of a previously locked alert.
func updateAlertRow(ctx context.Context, tx *sql.Tx, a Alert) error {
	location, err := json.Marshal(a.Location)
	if err != nil {
		return err
	}
	evidence, err := marshalOrNil(a.Evidence)
	if err != nil {
		return err
	}
	history, err := marshalOrNil(a.EscalationHistory)
	if err != nil {
		return err
	}

	const q = `
UPDATE alerts SET
  title = $2, description = $3, severity = $4, status = $5,
  location = $6, evidence = $7,
  assigned_to = $8, assigned_at = $9, acknowledged_at = $10,
  resolved_at = $11, resolved_by = $12, resolution_type = $13, resolution_notes = $14,
  escalation_count = $15, escalation_history = $16,
  updated_at = $17
WHERE id = $1`
	res, err := tx.ExecContext(ctx, q,
		a.ID, a.Title, a.Description, string(a.Severity), string(a.Status),
		location, evidence,
		nullStr(a.AssignedTo), nullTime(a.AssignedAt), nullTime(a.AcknowledgedAt),
		nullTime(a.ResolvedAt), nullStr(a.ResolvedBy), nullStr(string(a.ResolutionType)), nullStr(a.ResolutionNotes),
		a.EscalationCount, history,
		a.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func listAlerts(ctx context.Context, db *sql.DB, f ListFilter) ([]Alert, int, error) {
	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Status != "" {
		where = append(where, "status = "+arg(string(f.Status)))
	} else if !f.IncludeResolved {
		where = append(where, "status <> "+arg(string(StatusResolved)))
	}
	if f.Severity != "" {
		where = append(where, "severity = "+arg(string(f.Severity)))
	}
	if f.ZoneID != "" {
		where = append(where, "location->>'zone_id' = "+arg(f.ZoneID))
	}
	if f.AssignedTo != "" {
		where = append(where, "assigned_to = "+arg(f.AssignedTo))
	}
	if f.IsMock != nil {
		where = append(where, "is_mock = "+arg(*f.IsMock))
	}

	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM alerts"+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	q := "SELECT " + alertColumns + " FROM alerts" + cond +
		" ORDER BY " + severityRank + " DESC, created_at DESC" +
		" LIMIT " + arg(limit) + " OFFSET " + arg(f.Offset)

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

// listAlertsForStaff returns alerts the staff member is involved in,
// either as the primary assignee or through an active backup assignment.
func listAlertsForStaff(ctx context.Context, db *sql.DB, staffID string, activeOnly bool, since *time.Time, limit int) ([]Alert, error) {
	var where []string
	args := []any{staffID}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if activeOnly {
		where = append(where, "a.status <> "+arg(string(StatusResolved)))
	}
	if since != nil {
		where = append(where, "a.created_at >= "+arg(*since))
	}
	cond := ""
	if len(where) > 0 {
		cond = " AND " + strings.Join(where, " AND ")
	}
	if limit <= 0 {
		limit = 50
	}

	q := `
SELECT DISTINCT ` + prefixColumns("a") + `, ` + severityRankOn("a") + ` AS sev_rank
FROM alerts a
LEFT JOIN alert_assignments aa
  ON aa.alert_id = a.id AND aa.staff_id = $1 AND aa.is_active = TRUE
WHERE (a.assigned_to = $1 OR aa.staff_id IS NOT NULL)` + cond + `
ORDER BY sev_rank DESC, a.created_at DESC
LIMIT ` + arg(limit)

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Alert
	for rows.Next() {
		a, err := scanAlertWithRank(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAlertWithRank(rows *sql.Rows) (Alert, error) {
	// Same columns as scanAlert plus the trailing sev_rank the DISTINCT
	// query needs in its select list.
	var a Alert
	var (
		anomalyID, anomalyType          sql.NullString
		location, entities, sources     []byte
		evidence, history               []byte
		assignedTo, resolvedBy          sql.NullString
		resolutionType, resolutionNotes sql.NullString
		mockScenario                    sql.NullString
		assignedAt, ackedAt, resolvedAt sql.NullTime
		rank                            int
	)
	err := rows.Scan(
		&a.ID, &anomalyID, &anomalyType, &a.Title, &a.Description, &a.Severity, &a.Status,
		&location, &entities, &sources, &evidence,
		&assignedTo, &assignedAt, &ackedAt,
		&resolvedAt, &resolvedBy, &resolutionType, &resolutionNotes,
		&a.EscalationCount, &history,
		&a.IsMock, &mockScenario, &a.CreatedAt, &a.UpdatedAt,
		&rank,
	)
	if err != nil {
		return Alert{}, err
	}
	a.AnomalyID = anomalyID.String
	a.AnomalyType = anomalyType.String
	a.AssignedTo = assignedTo.String
	a.ResolvedBy = resolvedBy.String
	a.ResolutionType = ResolutionType(resolutionType.String)
	a.ResolutionNotes = resolutionNotes.String
	a.MockScenario = mockScenario.String
	a.AssignedAt = timePtr(assignedAt)
	a.AcknowledgedAt = timePtr(ackedAt)
	a.ResolvedAt = timePtr(resolvedAt)

	if err := json.Unmarshal(location, &a.Location); err != nil {
		return Alert{}, fmt.Errorf("alert %s: location: %w", a.ID, err)
	}
	if len(entities) > 0 {
		if err := json.Unmarshal(entities, &a.AffectedEntities); err != nil {
			return Alert{}, err
		}
	}
	if len(sources) > 0 {
		if err := json.Unmarshal(sources, &a.DataSources); err != nil {
			return Alert{}, err
		}
	}
	if len(evidence) > 0 {
		if err := json.Unmarshal(evidence, &a.Evidence); err != nil {
			return Alert{}, err
		}
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &a.EscalationHistory); err != nil {
			return Alert{}, err
		}
	}
	return a, nil
}

func prefixColumns(alias string) string {
	cols := strings.Split(alertColumns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

func severityRankOn(alias string) string {
	return strings.Replace(severityRank, "CASE severity", "CASE "+alias+".severity", 1)
}

/* ===================== ASSIGNMENTS ===================== */

const assignmentColumns = `
  id, alert_id, staff_id, assigned_at, acknowledged_at, completed_at,
  assignment_reason, proximity_score, is_backup, is_active`

func scanAssignment(row rowScanner) (Assignment, error) {
	var as Assignment
	var (
		ackedAt, completedAt sql.NullTime
		reason               sql.NullString
		score                sql.NullFloat64
	)
	err := row.Scan(
		&as.ID, &as.AlertID, &as.StaffID, &as.AssignedAt, &ackedAt, &completedAt,
		&reason, &score, &as.IsBackup, &as.IsActive,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Assignment{}, ErrNotFound
		}
		return Assignment{}, err
	}
	as.AcknowledgedAt = timePtr(ackedAt)
	as.CompletedAt = timePtr(completedAt)
	as.Reason = reason.String
	if score.Valid {
		v := score.Float64
		as.ProximityScore = &v
	}
	return as, nil
}

func insertAssignment(ctx context.Context, tx *sql.Tx, as Assignment) error {
	const q = `
INSERT INTO alert_assignments (
  id, alert_id, staff_id, assigned_at, assignment_reason, proximity_score, is_backup, is_active
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8
)`
	var score any
	if as.ProximityScore != nil {
		score = *as.ProximityScore
	}
	_, err := tx.ExecContext(ctx, q,
		as.ID, as.AlertID, as.StaffID, as.AssignedAt, nullStr(as.Reason), score, as.IsBackup, as.IsActive,
	)
	return err
}

// completePrimaryAssignments deactivates active non-backup assignments
// for the alert, stamping completed_at.
func completePrimaryAssignments(ctx context.Context, tx *sql.Tx, alertID string, now time.Time) error {
	const q = `
UPDATE alert_assignments
SET is_active = FALSE, completed_at = $2
WHERE alert_id = $1 AND is_active = TRUE AND is_backup = FALSE`
	_, err := tx.ExecContext(ctx, q, alertID, now)
	return err
}

// completeAllAssignments deactivates every active assignment for the
// alert, including backups. Used on resolution.
func completeAllAssignments(ctx context.Context, tx *sql.Tx, alertID string, now time.Time) error {
	const q = `
UPDATE alert_assignments
SET is_active = FALSE, completed_at = $2
WHERE alert_id = $1 AND is_active = TRUE`
	_, err := tx.ExecContext(ctx, q, alertID, now)
	return err
}

func markAssignmentAcknowledged(ctx context.Context, tx *sql.Tx, alertID, staffID string, now time.Time) error {
	const q = `
UPDATE alert_assignments
SET acknowledged_at = $3
WHERE alert_id = $1 AND staff_id = $2 AND is_active = TRUE AND acknowledged_at IS NULL`
	_, err := tx.ExecContext(ctx, q, alertID, staffID, now)
	return err
}

func listAssignments(ctx context.Context, db *sql.DB, alertID string) ([]Assignment, error) {
	q := `SELECT ` + assignmentColumns + ` FROM alert_assignments WHERE alert_id = $1 ORDER BY assigned_at ASC`
	rows, err := db.QueryContext(ctx, q, alertID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Assignment
	for rows.Next() {
		as, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, as)
	}
	return out, rows.Err()
}

func countActiveBackups(ctx context.Context, tx *sql.Tx, alertID string) (int, error) {
	const q = `
SELECT COUNT(*) FROM alert_assignments
WHERE alert_id = $1 AND is_active = TRUE AND is_backup = TRUE`
	var n int
	err := tx.QueryRowContext(ctx, q, alertID).Scan(&n)
	return n, err
}

func countActiveForStaff(ctx context.Context, db *sql.DB, staffID string) (int, error) {
	const q = `
SELECT COUNT(*) FROM alerts
WHERE assigned_to = $1 AND status <> 'resolved'`
	var n int
	err := db.QueryRowContext(ctx, q, staffID).Scan(&n)
	return n, err
}

// The escalation sweep only considers real alerts that are still under
// the escalation cap; past-cap alerts are reported separately.
func overdueUnacknowledged(ctx context.Context, db *sql.DB, assignedBefore time.Time, maxEscalations int) ([]Alert, error) {
	q := `SELECT ` + alertColumns + ` FROM alerts
WHERE status = 'assigned'
  AND assigned_at IS NOT NULL AND assigned_at < $1
  AND acknowledged_at IS NULL
  AND escalation_count < $2
  AND is_mock = FALSE
ORDER BY ` + severityRank + ` DESC, created_at ASC`
	return queryAlerts(ctx, db, q, assignedBefore, maxEscalations)
}

func overdueUnresolved(ctx context.Context, db *sql.DB, acknowledgedBefore time.Time, maxEscalations int) ([]Alert, error) {
	q := `SELECT ` + alertColumns + ` FROM alerts
WHERE status IN ('acknowledged', 'investigating')
  AND acknowledged_at < $1
  AND escalation_count < $2
  AND is_mock = FALSE
ORDER BY ` + severityRank + ` DESC, created_at ASC`
	return queryAlerts(ctx, db, q, acknowledgedBefore, maxEscalations)
}

// countMaxEscalated reports how many live alerts are already past the cap.
func countMaxEscalated(ctx context.Context, db *sql.DB, maxEscalations int) (int, error) {
	const q = `
SELECT COUNT(*) FROM alerts
WHERE status <> 'resolved' AND escalation_count >= $1 AND is_mock = FALSE`
	var n int
	err := db.QueryRowContext(ctx, q, maxEscalations).Scan(&n)
	return n, err
}

func queryAlerts(ctx context.Context, db *sql.DB, q string, args ...any) ([]Alert, error) {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func deleteAlert(ctx context.Context, tx *sql.Tx, alertID string) (bool, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM alerts WHERE id = $1`, alertID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func deleteMockAlerts(ctx context.Context, tx *sql.Tx) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM alerts WHERE is_mock = TRUE`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func marshalOrNil(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	switch t := v.(type) {
	case []string:
		if t == nil {
			return nil, nil
		}
	case map[string]any:
		if t == nil {
			return nil, nil
		}
	case []EscalationEntry:
		if t == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
