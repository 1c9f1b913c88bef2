package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-sentinel/internal/alerts"
	"campus-sentinel/internal/staff"
)

type fakeProvider struct {
	channel Channel
	sent    []Message
	fail    int // fail this many sends before succeeding
}

func (p *fakeProvider) Channel() Channel { return p.channel }

func (p *fakeProvider) Send(_ context.Context, _ staff.Profile, msg Message) error {
	if p.fail > 0 {
		p.fail--
		return errors.New("gateway unavailable")
	}
	p.sent = append(p.sent, msg)
	return nil
}

type fakeDirectory struct {
	profiles map[string]staff.Profile
}

func (d *fakeDirectory) Get(_ context.Context, id string) (staff.Profile, error) {
	p, ok := d.profiles[id]
	if !ok {
		return staff.Profile{}, staff.ErrNotFound
	}
	return p, nil
}

func testProfile(id string, prefs staff.ContactPreferences) staff.Profile {
	return staff.Profile{
		ID:                 id,
		Name:               "Test Guard",
		Email:              id + "@campus.edu",
		Phone:              "+15550001111",
		Role:               "security",
		ContactPreferences: prefs,
	}
}

func testAlert(severity alerts.Severity) alerts.Alert {
	return alerts.Alert{
		ID:          "alert-1",
		Title:       "Unauthorized access detected",
		Description: "Badge mismatch at server room door",
		Severity:    severity,
		Status:      alerts.StatusAssigned,
		Location:    alerts.Location{ZoneID: "LAB_101", Building: "Science Block"},
		CreatedAt:   time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC),
	}
}

func newQueueTest(t *testing.T, cfg Config, providers ...Provider) (*Service, *fakeDirectory, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	dir := &fakeDirectory{profiles: map[string]staff.Profile{}}
	svc := NewService(rdb, dir, cfg, providers...)
	svc.clock = func() time.Time { return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC) }
	return svc, dir, mr
}

func TestEnqueueAndProcess_DeliversViaProvider(t *testing.T) {
	email := &fakeProvider{channel: ChannelEmail}
	svc, dir, _ := newQueueTest(t, Config{}, email)
	dir.profiles["staff-1"] = testProfile("staff-1", staff.DefaultContactPreferences())

	ok, err := svc.Enqueue(context.Background(), Message{
		StaffID: "staff-1",
		AlertID: "alert-1",
		Channel: ChannelEmail,
		Subject: "ALERT: test",
		Body:    "body",
	})
	require.NoError(t, err)
	require.True(t, ok)

	res, err := svc.ProcessQueue(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	assert.Zero(t, res.Failed)

	require.Len(t, email.sent, 1)
	assert.Equal(t, "alert-1", email.sent[0].AlertID)
	assert.NotEmpty(t, email.sent[0].ID)
}

func TestProcessQueue_CriticalLaneDrainsFirst(t *testing.T) {
	email := &fakeProvider{channel: ChannelEmail}
	svc, dir, _ := newQueueTest(t, Config{}, email)
	dir.profiles["staff-1"] = testProfile("staff-1", staff.DefaultContactPreferences())

	ctx := context.Background()
	_, err := svc.Enqueue(ctx, Message{
		StaffID: "staff-1", Channel: ChannelEmail,
		Subject: "routine", Priority: PriorityNormal,
	})
	require.NoError(t, err)
	_, err = svc.Enqueue(ctx, Message{
		StaffID: "staff-1", Channel: ChannelEmail,
		Subject: "urgent", Priority: PriorityCritical,
	})
	require.NoError(t, err)

	_, err = svc.ProcessQueue(ctx, 10)
	require.NoError(t, err)

	require.Len(t, email.sent, 2)
	assert.Equal(t, "urgent", email.sent[0].Subject)
	assert.Equal(t, "routine", email.sent[1].Subject)
}

func TestProcessQueue_RequeuesFailedSendThenSucceeds(t *testing.T) {
	email := &fakeProvider{channel: ChannelEmail, fail: 1}
	svc, dir, _ := newQueueTest(t, Config{MaxRetries: 3}, email)
	dir.profiles["staff-1"] = testProfile("staff-1", staff.DefaultContactPreferences())

	ctx := context.Background()
	_, err := svc.Enqueue(ctx, Message{StaffID: "staff-1", Channel: ChannelEmail, Subject: "hi"})
	require.NoError(t, err)

	res, err := svc.ProcessQueue(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Requeued)

	res, err = svc.ProcessQueue(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	require.Len(t, email.sent, 1)
	assert.Equal(t, 1, email.sent[0].RetryCount)
}

func TestProcessQueue_DropsAfterRetryBudget(t *testing.T) {
	email := &fakeProvider{channel: ChannelEmail, fail: 100}
	svc, dir, _ := newQueueTest(t, Config{MaxRetries: 2}, email)
	dir.profiles["staff-1"] = testProfile("staff-1", staff.DefaultContactPreferences())

	ctx := context.Background()
	_, err := svc.Enqueue(ctx, Message{StaffID: "staff-1", Channel: ChannelEmail, Subject: "hi"})
	require.NoError(t, err)

	res, err := svc.ProcessQueue(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Requeued)

	res, err = svc.ProcessQueue(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Dropped)

	crit, normal, err := svc.QueueDepth(ctx)
	require.NoError(t, err)
	assert.Zero(t, crit)
	assert.Zero(t, normal)
}

func TestProcessQueue_UnknownRecipientFails(t *testing.T) {
	email := &fakeProvider{channel: ChannelEmail}
	svc, _, _ := newQueueTest(t, Config{MaxRetries: 1}, email)

	ctx := context.Background()
	_, err := svc.Enqueue(ctx, Message{StaffID: "ghost", Channel: ChannelEmail, Subject: "hi"})
	require.NoError(t, err)

	res, err := svc.ProcessQueue(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Dropped)
	assert.Empty(t, email.sent)
}

func TestEnqueue_BurstGuardSuppressesFloods(t *testing.T) {
	svc, dir, _ := newQueueTest(t, Config{BurstLimit: 2, BurstWindow: time.Minute})
	dir.profiles["staff-1"] = testProfile("staff-1", staff.DefaultContactPreferences())

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		ok, err := svc.Enqueue(ctx, Message{StaffID: "staff-1", Channel: ChannelEmail, Subject: "hi"})
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, err := svc.Enqueue(ctx, Message{StaffID: "staff-1", Channel: ChannelEmail, Subject: "hi"})
	require.NoError(t, err)
	assert.False(t, ok, "third message inside the window should be suppressed")

	// Another staff member is unaffected.
	dir.profiles["staff-2"] = testProfile("staff-2", staff.DefaultContactPreferences())
	ok, err = svc.Enqueue(ctx, Message{StaffID: "staff-2", Channel: ChannelEmail, Subject: "hi"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNotifyAssignment_HonorsContactPreferences(t *testing.T) {
	svc, dir, _ := newQueueTest(t, Config{})
	recipient := testProfile("staff-1", staff.ContactPreferences{Email: true, SMS: false, Push: true})
	dir.profiles["staff-1"] = recipient

	ctx := context.Background()
	svc.NotifyAssignment(ctx, recipient, testAlert(alerts.SeverityHigh), false)

	crit, normal, err := svc.QueueDepth(ctx)
	require.NoError(t, err)
	assert.Zero(t, crit)
	assert.Equal(t, int64(2), normal, "email and push only, no SMS")
}

func TestNotifyAssignment_CriticalUsesCriticalLaneAndPrefix(t *testing.T) {
	email := &fakeProvider{channel: ChannelEmail}
	push := &fakeProvider{channel: ChannelPush}
	svc, dir, _ := newQueueTest(t, Config{}, email, push)
	recipient := testProfile("staff-1", staff.DefaultContactPreferences())
	dir.profiles["staff-1"] = recipient

	ctx := context.Background()
	svc.NotifyAssignment(ctx, recipient, testAlert(alerts.SeverityCritical), true)

	crit, _, err := svc.QueueDepth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), crit)

	_, err = svc.ProcessQueue(ctx, 10)
	require.NoError(t, err)
	require.Len(t, email.sent, 1)
	assert.Contains(t, email.sent[0].Subject, "CRITICAL ALERT")
	require.Len(t, push.sent, 1)
	assert.LessOrEqual(t, len(push.sent[0].Body), 200)
}

func TestNotifyEscalation_EmailAlwaysSMSPerPrefs(t *testing.T) {
	svc, dir, _ := newQueueTest(t, Config{})
	ctx := context.Background()

	// Email disabled in prefs; escalations still email.
	noEmail := testProfile("staff-1", staff.ContactPreferences{Email: false, SMS: true})
	dir.profiles["staff-1"] = noEmail
	svc.NotifyEscalation(ctx, noEmail, testAlert(alerts.SeverityHigh), "No acknowledgment after 15 minutes")

	crit, _, err := svc.QueueDepth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), crit, "escalations are critical priority: email plus SMS")
}
