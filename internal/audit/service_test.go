package audit

import (
	"context"
	"testing"
)

func TestService_AppendRequiresAlertAndAction(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Append(context.Background(), Entry{Action: ActionCreated}); err == nil {
		t.Fatalf("expected error")
	}
	if err := svc.Append(context.Background(), Entry{AlertID: "a"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestService_AppendsImmutableEntries(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	err := svc.LogAction(context.Background(), "alert-1", ActionAssigned, "staff-1", "security", ActorKindStaff,
		map[string]any{"assigned_to": "staff-1"}, false)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	entries := repo.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry")
	}
	e := entries[0]
	if e.ID == "" || e.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp to be filled: %+v", e)
	}
	if e.Action != ActionAssigned || e.ActorKind != ActorKindStaff {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if e.Details["assigned_to"] != "staff-1" {
		t.Fatalf("expected details preserved")
	}
}

func TestService_TrailIsNewestFirst(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	_ = svc.LogAction(ctx, "alert-1", ActionCreated, "s1", "security", ActorKindStaff, nil, false)
	_ = svc.LogAction(ctx, "alert-1", ActionAssigned, "s1", "security", ActorKindStaff, nil, false)
	_ = svc.LogAction(ctx, "alert-2", ActionCreated, "s2", "security", ActorKindStaff, nil, false)

	trail, total, err := svc.Trail(ctx, "alert-1", 0, 0)
	if err != nil {
		t.Fatalf("trail: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected total 2, got %d", total)
	}
	if len(trail) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(trail))
	}
	if trail[0].Action != ActionAssigned || trail[1].Action != ActionCreated {
		t.Fatalf("expected newest first, got %+v", trail)
	}
}

func TestService_TrailPaginates(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	_ = svc.LogAction(ctx, "alert-1", ActionCreated, "s1", "security", ActorKindStaff, nil, false)
	_ = svc.LogAction(ctx, "alert-1", ActionAssigned, "s1", "security", ActorKindStaff, nil, false)
	_ = svc.LogAction(ctx, "alert-1", ActionAcknowledged, "s1", "security", ActorKindStaff, nil, false)

	page, total, err := svc.Trail(ctx, "alert-1", 1, 1)
	if err != nil {
		t.Fatalf("trail: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected total 3, got %d", total)
	}
	if len(page) != 1 || page[0].Action != ActionAssigned {
		t.Fatalf("expected middle entry, got %+v", page)
	}

	past, total, err := svc.Trail(ctx, "alert-1", 10, 10)
	if err != nil {
		t.Fatalf("trail past end: %v", err)
	}
	if total != 3 || len(past) != 0 {
		t.Fatalf("expected empty page with total 3, got %d entries, total %d", len(past), total)
	}
}

func TestService_AppendTxFillsDefaults(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	err := svc.AppendTx(context.Background(), nil, Entry{
		AlertID:   "alert-1",
		Action:    ActionResolved,
		ActorID:   "s1",
		ActorKind: ActorKindStaff,
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	entries := repo.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry")
	}
	if entries[0].ID == "" || entries[0].CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp to be filled: %+v", entries[0])
	}

	if err := svc.AppendTx(context.Background(), nil, Entry{Action: ActionResolved}); err == nil {
		t.Fatalf("expected invalid entry error")
	}
}

func TestService_SystemActorKind(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	err := svc.LogSystemAction(context.Background(), "alert-1", ActionEscalated,
		map[string]any{"reason": "no acknowledgment after 10m0s"}, false)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	entries := repo.Entries()
	if entries[0].ActorKind != ActorKindSystem {
		t.Fatalf("expected system actor kind")
	}
}

func TestService_PurgeMockKeepsRealEntries(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	_ = svc.LogAction(ctx, "alert-1", ActionCreated, "s1", "security", ActorKindStaff, nil, true)
	_ = svc.LogAction(ctx, "alert-2", ActionCreated, "s1", "security", ActorKindStaff, nil, false)

	n, err := svc.PurgeMock(ctx)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 purged, got %d", n)
	}
	if got := len(repo.Entries()); got != 1 {
		t.Fatalf("expected 1 entry remaining, got %d", got)
	}
}
