package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit entries.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.

type Repository interface {
	Append(ctx context.Context, e Entry) error
	AppendIn(ctx context.Context, ex Execer, e Entry) error
	TrailForAlert(ctx context.Context, alertID string, limit, offset int) ([]Entry, error)
	CountForAlert(ctx context.Context, alertID string) (int, error)
	DeleteMock(ctx context.Context) (int64, error)
}

// Service records the audit trail of alert lifecycle actions.
//
// Lifecycle services write their entry through AppendTx inside the same
// transaction as the state change, so a committed transition always has
// its trail row. Append remains for standalone records that have no
// surrounding transaction.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEntry = errors.New("audit: invalid entry")

const defaultTrailLimit = 50

func (s *Service) Append(ctx context.Context, e Entry) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	e, err := s.prepare(e)
	if err != nil {
		return err
	}
	return s.repo.Append(ctx, e)
}

// AppendTx writes the entry through the caller's open transaction so the
// audit row commits, or rolls back, together with the state change.
func (s *Service) AppendTx(ctx context.Context, ex Execer, e Entry) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	e, err := s.prepare(e)
	if err != nil {
		return err
	}
	return s.repo.AppendIn(ctx, ex, e)
}

func (s *Service) prepare(e Entry) (Entry, error) {
	if e.AlertID == "" {
		return Entry{}, ErrInvalidEntry
	}
	if e.Action == "" {
		return Entry{}, ErrInvalidEntry
	}
	if e.ActorKind == "" {
		e.ActorKind = ActorKindStaff
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return e, nil
}

// Trail returns one page of the alert's audit trail, newest first,
// along with the total entry count.
func (s *Service) Trail(ctx context.Context, alertID string, limit, offset int) ([]Entry, int, error) {
	if s.repo == nil {
		return nil, 0, errors.New("audit: repository not configured")
	}
	if alertID == "" {
		return nil, 0, ErrInvalidEntry
	}
	if limit <= 0 {
		limit = defaultTrailLimit
	}
	if offset < 0 {
		offset = 0
	}

	entries, err := s.repo.TrailForAlert(ctx, alertID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.CountForAlert(ctx, alertID)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// PurgeMock removes audit entries produced by demo scenarios.
// This is the one sanctioned deletion path; real entries are untouched.
func (s *Service) PurgeMock(ctx context.Context) (int64, error) {
	if s.repo == nil {
		return 0, errors.New("audit: repository not configured")
	}
	return s.repo.DeleteMock(ctx)
}

// LogAction records a lifecycle action performed by a staff member or admin.
func (s *Service) LogAction(ctx context.Context, alertID string, action Action, actorID, actorRole string, kind ActorKind, details map[string]any, isMock bool) error {
	return s.Append(ctx, Entry{
		AlertID:   alertID,
		Action:    action,
		ActorID:   actorID,
		ActorRole: actorRole,
		ActorKind: kind,
		Details:   details,
		IsMock:    isMock,
	})
}

// LogSystemAction records an action taken by automation, such as the
// escalation sweeper or the demo player.
func (s *Service) LogSystemAction(ctx context.Context, alertID string, action Action, details map[string]any, isMock bool) error {
	return s.Append(ctx, Entry{
		AlertID:   alertID,
		Action:    action,
		ActorID:   "system",
		ActorKind: ActorKindSystem,
		Details:   details,
		IsMock:    isMock,
	})
}
