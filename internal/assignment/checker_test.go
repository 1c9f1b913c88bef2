package assignment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-sentinel/internal/alerts"
	"campus-sentinel/internal/config"
	"campus-sentinel/internal/staff"
)

type fakeSweeper struct {
	unacked    []alerts.Alert
	unresolved []alerts.Alert
	maxReached int

	ackDeadline        time.Duration
	resolutionDeadline time.Duration
}

func (s *fakeSweeper) OverdueUnacknowledged(_ context.Context, deadline time.Duration) ([]alerts.Alert, error) {
	s.ackDeadline = deadline
	return s.unacked, nil
}

func (s *fakeSweeper) OverdueUnresolved(_ context.Context, deadline time.Duration) ([]alerts.Alert, error) {
	s.resolutionDeadline = deadline
	return s.unresolved, nil
}

func (s *fakeSweeper) MaxEscalationsReachedCount(_ context.Context) (int, error) {
	return s.maxReached, nil
}

func newCheckerTest(dir *fakeDirectory, sweeper *fakeSweeper) (*EscalationChecker, *fakeAlertWriter, *fakeNotifier) {
	engine, aw, nt := newEngineTest(dir)
	checker := NewEscalationChecker(engine, sweeper, config.AlertConfig{
		NoAckDeadline:        10 * time.Minute,
		NoResolutionDeadline: 30 * time.Minute,
	})
	return checker, aw, nt
}

func overdueAlert(id, assignee string, status alerts.Status) alerts.Alert {
	a := zoneAlert(id, "LAB_101", alerts.SeverityHigh, "unauthorized_access")
	a.Status = status
	a.AssignedTo = assignee
	return a
}

func TestCheckAndEscalate_EscalatesOverdueAlerts(t *testing.T) {
	supervisor := guard("sup-1", "supervisor", 5)
	dir := &fakeDirectory{
		profiles: map[string]staff.Profile{"sec-1": guard("sec-1", "security", 3)},
		byRole:   map[string][]staff.Profile{"supervisor": {supervisor}},
	}
	sweeper := &fakeSweeper{
		unacked:    []alerts.Alert{overdueAlert("a1", "sec-1", alerts.StatusAssigned)},
		unresolved: []alerts.Alert{overdueAlert("a2", "sec-1", alerts.StatusAcknowledged)},
		maxReached: 2,
	}
	checker, aw, nt := newCheckerTest(dir, sweeper)

	counts, err := checker.CheckAndEscalate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, counts.NoAcknowledgment)
	assert.Equal(t, 1, counts.NoResolution)
	assert.Equal(t, 2, counts.MaxReached)

	assert.Equal(t, 10*time.Minute, sweeper.ackDeadline)
	assert.Equal(t, 30*time.Minute, sweeper.resolutionDeadline)

	require.Len(t, aw.escalates, 2)
	assert.Equal(t, "a1", aw.escalates[0].alertID)
	assert.Equal(t, "No acknowledgment after 10 minutes", aw.escalates[0].reason)
	assert.Equal(t, "a2", aw.escalates[1].alertID)
	assert.Equal(t, "No resolution after 30 minutes", aw.escalates[1].reason)

	// Both handovers went to the supervisor, with notifications.
	for _, call := range aw.escalates {
		assert.Equal(t, "sup-1", call.escalateTo)
	}
	assert.Len(t, nt.escalations, 2)
}

func TestCheckAndEscalate_SkipsAlertsWithNoTarget(t *testing.T) {
	// Nobody is available anywhere.
	dir := &fakeDirectory{byRole: map[string][]staff.Profile{}}
	sweeper := &fakeSweeper{
		unacked: []alerts.Alert{
			overdueAlert("a1", "", alerts.StatusAssigned),
			overdueAlert("a2", "", alerts.StatusAssigned),
		},
	}
	checker, aw, _ := newCheckerTest(dir, sweeper)

	counts, err := checker.CheckAndEscalate(context.Background())
	require.NoError(t, err)

	assert.Zero(t, counts.NoAcknowledgment)
	assert.Empty(t, aw.escalates)
}

func TestCheckAndEscalate_QuietSweep(t *testing.T) {
	dir := &fakeDirectory{}
	checker, aw, nt := newCheckerTest(dir, &fakeSweeper{})

	counts, err := checker.CheckAndEscalate(context.Background())
	require.NoError(t, err)

	assert.Zero(t, counts.NoAcknowledgment)
	assert.Zero(t, counts.NoResolution)
	assert.Zero(t, counts.MaxReached)
	assert.Empty(t, aw.escalates)
	assert.Empty(t, nt.escalations)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	dir := &fakeDirectory{}
	checker, _, _ := newCheckerTest(dir, &fakeSweeper{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		checker.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("checker did not stop after cancel")
	}
}
