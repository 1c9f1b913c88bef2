package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// Execer is the slice of database/sql needed to write one entry. Both
// *sql.DB and *sql.Tx satisfy it, so an audit row can join the
// transaction of the state change it records.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// PostgresRepo persists audit entries in the alert_audit_logs table.
// The table is INSERT-only; the sole delete path is DeleteMock, which
// exists so demo scenarios can be cleaned up without touching real data.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Entry) error {
	if r.db == nil {
		return fmt.Errorf("audit: db not configured")
	}
	return r.AppendIn(ctx, r.db, e)
}

// AppendIn writes the entry through ex, normally the caller's open
// transaction, so the row commits or rolls back with the state change.
func (r *PostgresRepo) AppendIn(ctx context.Context, ex Execer, e Entry) error {
	if ex == nil {
		return fmt.Errorf("audit: no executor")
	}

	var details []byte
	if e.Details != nil {
		b, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("audit: marshal details: %w", err)
		}
		details = b
	}

	const q = `
		INSERT INTO alert_audit_logs
			(id, alert_id, action, actor_id, actor_kind, actor_role, details, is_mock, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := ex.ExecContext(ctx, q,
		e.ID, e.AlertID, string(e.Action), e.ActorID, string(e.ActorKind), e.ActorRole,
		nullableJSON(details), e.IsMock, e.CreatedAt,
	)
	return err
}

func (r *PostgresRepo) TrailForAlert(ctx context.Context, alertID string, limit, offset int) ([]Entry, error) {
	if r.db == nil {
		return nil, fmt.Errorf("audit: db not configured")
	}

	const q = `
		SELECT id, alert_id, action, actor_id, actor_kind, actor_role, details, is_mock, created_at
		FROM alert_audit_logs
		WHERE alert_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, q, alertID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var details []byte
		if err := rows.Scan(&e.ID, &e.AlertID, &e.Action, &e.ActorID, &e.ActorKind, &e.ActorRole, &details, &e.IsMock, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, fmt.Errorf("audit: unmarshal details for %s: %w", e.ID, err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) CountForAlert(ctx context.Context, alertID string) (int, error) {
	if r.db == nil {
		return 0, fmt.Errorf("audit: db not configured")
	}
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM alert_audit_logs WHERE alert_id = $1`, alertID).Scan(&n)
	return n, err
}

func (r *PostgresRepo) DeleteMock(ctx context.Context) (int64, error) {
	if r.db == nil {
		return 0, fmt.Errorf("audit: db not configured")
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM alert_audit_logs WHERE is_mock = TRUE`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
