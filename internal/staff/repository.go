package staff

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// NOTE: This repository assumes the following tables exist:
// - staff_profiles
// - staff_locations (append-only; newest row per staff is current)
//
// The active-workload counts read the alerts table directly; the staff
// and alert services share one database in this monolith.

const profileColumns = `
  id, entity_id, name, email, phone, role, department,
  on_duty, max_concurrent_assignments, contact_preferences,
  is_mock_user, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (Profile, error) {
	var p Profile
	var (
		entityID, phone, department sql.NullString
		prefs                       []byte
	)
	err := row.Scan(
		&p.ID, &entityID, &p.Name, &p.Email, &phone, &p.Role, &department,
		&p.OnDuty, &p.MaxConcurrent, &prefs,
		&p.IsMockUser, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, err
	}
	p.EntityID = entityID.String
	p.Phone = phone.String
	p.Department = department.String
	if len(prefs) > 0 {
		if err := json.Unmarshal(prefs, &p.ContactPreferences); err != nil {
			return Profile{}, fmt.Errorf("staff %s: contact_preferences: %w", p.ID, err)
		}
	}
	return p, nil
}

func getProfile(ctx context.Context, db *sql.DB, staffID string) (Profile, error) {
	q := `SELECT ` + profileColumns + ` FROM staff_profiles WHERE id = $1`
	return scanProfile(db.QueryRowContext(ctx, q, staffID))
}

func getProfileByEmail(ctx context.Context, db *sql.DB, email string) (Profile, error) {
	q := `SELECT ` + profileColumns + ` FROM staff_profiles WHERE email = $1`
	return scanProfile(db.QueryRowContext(ctx, q, email))
}

func getProfileByEntityID(ctx context.Context, db *sql.DB, entityID string) (Profile, error) {
	q := `SELECT ` + profileColumns + ` FROM staff_profiles WHERE entity_id = $1`
	return scanProfile(db.QueryRowContext(ctx, q, entityID))
}

func profileExists(ctx context.Context, db *sql.DB, staffID string) (bool, error) {
	var one int
	err := db.QueryRowContext(ctx, `SELECT 1 FROM staff_profiles WHERE id = $1`, staffID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func insertProfile(ctx context.Context, db *sql.DB, p Profile) error {
	prefs, err := json.Marshal(p.ContactPreferences)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO staff_profiles (
  id, entity_id, name, email, phone, role, department,
  on_duty, max_concurrent_assignments, contact_preferences,
  is_mock_user, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
)`
	_, err = db.ExecContext(ctx, q,
		p.ID, nullStr(p.EntityID), p.Name, p.Email, nullStr(p.Phone), p.Role, nullStr(p.Department),
		p.OnDuty, p.MaxConcurrent, prefs,
		p.IsMockUser, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

func updateProfileRow(ctx context.Context, db *sql.DB, p Profile) error {
	prefs, err := json.Marshal(p.ContactPreferences)
	if err != nil {
		return err
	}
	const q = `
UPDATE staff_profiles SET
  name = $2, email = $3, phone = $4, role = $5, department = $6,
  on_duty = $7, max_concurrent_assignments = $8, contact_preferences = $9,
  updated_at = $10
WHERE id = $1`
	res, err := db.ExecContext(ctx, q,
		p.ID, p.Name, p.Email, nullStr(p.Phone), p.Role, nullStr(p.Department),
		p.OnDuty, p.MaxConcurrent, prefs, p.UpdatedAt,
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

func deleteProfile(ctx context.Context, db *sql.DB, staffID string) (bool, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM staff_profiles WHERE id = $1`, staffID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func listProfiles(ctx context.Context, db *sql.DB, f ListFilter) ([]Profile, int, error) {
	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Role != "" {
		where = append(where, "role = "+arg(f.Role))
	}
	if f.OnDuty != nil {
		where = append(where, "on_duty = "+arg(*f.OnDuty))
	}
	if f.IsMock != nil {
		where = append(where, "is_mock_user = "+arg(*f.IsMock))
	}

	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM staff_profiles"+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	q := "SELECT " + profileColumns + " FROM staff_profiles" + cond +
		" ORDER BY name LIMIT " + arg(limit) + " OFFSET " + arg(f.Offset)

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

// availableProfiles returns on-duty staff with spare capacity, using a
// workload join against the alerts table.
func availableProfiles(ctx context.Context, db *sql.DB, role string, excludeIDs []string) ([]Profile, error) {
	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	where = append(where, "p.on_duty = TRUE")
	if role != "" {
		where = append(where, "p.role = "+arg(role))
	}
	for _, id := range excludeIDs {
		where = append(where, "p.id <> "+arg(id))
	}
	where = append(where, "COALESCE(w.n, 0) < p.max_concurrent_assignments")

	q := `
SELECT ` + prefixProfileColumns("p") + `
FROM staff_profiles p
LEFT JOIN (
  SELECT assigned_to, COUNT(*) AS n
  FROM alerts
  WHERE status <> 'resolved' AND assigned_to IS NOT NULL
  GROUP BY assigned_to
) w ON w.assigned_to = p.id
WHERE ` + strings.Join(where, " AND ") + `
ORDER BY p.name`

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func prefixProfileColumns(alias string) string {
	cols := strings.Split(profileColumns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

/* ===================== LOCATIONS ===================== */

const locationColumns = `id, staff_id, zone_id, building, floor, source, timestamp`

func scanLocation(row rowScanner) (Location, error) {
	var l Location
	var building, floor sql.NullString
	err := row.Scan(&l.ID, &l.StaffID, &l.ZoneID, &building, &floor, &l.Source, &l.Timestamp)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Location{}, ErrNotFound
		}
		return Location{}, err
	}
	l.Building = building.String
	l.Floor = floor.String
	return l, nil
}

func insertLocation(ctx context.Context, db *sql.DB, l Location) error {
	const q = `
INSERT INTO staff_locations (id, staff_id, zone_id, building, floor, source, timestamp)
VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := db.ExecContext(ctx, q,
		l.ID, l.StaffID, l.ZoneID, nullStr(l.Building), nullStr(l.Floor), l.Source, l.Timestamp,
	)
	return err
}

func currentLocation(ctx context.Context, db *sql.DB, staffID string) (Location, error) {
	q := `SELECT ` + locationColumns + ` FROM staff_locations
WHERE staff_id = $1
ORDER BY timestamp DESC
LIMIT 1`
	return scanLocation(db.QueryRowContext(ctx, q, staffID))
}

func locationHistory(ctx context.Context, db *sql.DB, staffID string, limit int) ([]Location, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT ` + locationColumns + ` FROM staff_locations
WHERE staff_id = $1
ORDER BY timestamp DESC
LIMIT $2`
	rows, err := db.QueryContext(ctx, q, staffID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// profilesInZones returns staff whose latest location is in one of the
// given zones, via DISTINCT ON.
func profilesInZones(ctx context.Context, db *sql.DB, zones []string, excludeIDs []string, onDutyOnly bool) ([]Profile, []string, error) {
	if len(zones) == 0 {
		return nil, nil, nil
	}

	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	zonePlaceholders := make([]string, len(zones))
	for i, z := range zones {
		zonePlaceholders[i] = arg(z)
	}

	var where []string
	where = append(where, "cl.zone_id IN ("+strings.Join(zonePlaceholders, ",")+")")
	if onDutyOnly {
		where = append(where, "p.on_duty = TRUE")
	}
	for _, id := range excludeIDs {
		where = append(where, "p.id <> "+arg(id))
	}

	q := `
SELECT ` + prefixProfileColumns("p") + `, cl.zone_id
FROM staff_profiles p
JOIN (
  SELECT DISTINCT ON (staff_id) staff_id, zone_id
  FROM staff_locations
  ORDER BY staff_id, timestamp DESC
) cl ON cl.staff_id = p.id
WHERE ` + strings.Join(where, " AND ") + `
ORDER BY p.name`

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var profiles []Profile
	var currentZones []string
	for rows.Next() {
		var p Profile
		var (
			entityID, phone, department sql.NullString
			prefs                       []byte
			zone                        string
		)
		err := rows.Scan(
			&p.ID, &entityID, &p.Name, &p.Email, &phone, &p.Role, &department,
			&p.OnDuty, &p.MaxConcurrent, &prefs,
			&p.IsMockUser, &p.CreatedAt, &p.UpdatedAt,
			&zone,
		)
		if err != nil {
			return nil, nil, err
		}
		p.EntityID = entityID.String
		p.Phone = phone.String
		p.Department = department.String
		if len(prefs) > 0 {
			if err := json.Unmarshal(prefs, &p.ContactPreferences); err != nil {
				return nil, nil, err
			}
		}
		profiles = append(profiles, p)
		currentZones = append(currentZones, zone)
	}
	return profiles, currentZones, rows.Err()
}

/* ===================== WORKLOAD ===================== */

func activeAssignmentCount(ctx context.Context, db *sql.DB, staffID string) (int, error) {
	const q = `SELECT COUNT(*) FROM alerts WHERE assigned_to = $1 AND status <> 'resolved'`
	var n int
	err := db.QueryRowContext(ctx, q, staffID).Scan(&n)
	return n, err
}

func resolvedCount(ctx context.Context, db *sql.DB, staffID string) (int, error) {
	const q = `SELECT COUNT(*) FROM alerts WHERE resolved_by = $1 AND status = 'resolved'`
	var n int
	err := db.QueryRowContext(ctx, q, staffID).Scan(&n)
	return n, err
}

func totalAssignedCount(ctx context.Context, db *sql.DB, staffID string) (int, error) {
	const q = `SELECT COUNT(*) FROM alert_assignments WHERE staff_id = $1`
	var n int
	err := db.QueryRowContext(ctx, q, staffID).Scan(&n)
	return n, err
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
