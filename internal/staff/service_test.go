package staff

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-sentinel/internal/rbac"
)

var profileTestColumns = []string{
	"id", "entity_id", "name", "email", "phone", "role", "department",
	"on_duty", "max_concurrent_assignments", "contact_preferences",
	"is_mock_user", "created_at", "updated_at",
}

func addProfileRow(rows *sqlmock.Rows, id, name, role string, onDuty bool, maxConcurrent int) *sqlmock.Rows {
	now := time.Unix(1700000000, 0).UTC()
	return rows.AddRow(
		id, nil, name, name+"@campus.edu", nil, role, nil,
		onDuty, maxConcurrent, []byte(`{"email":true,"sms":false,"push":true}`),
		false, now, now,
	)
}

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := NewService(db)
	svc.clock = func() time.Time { return time.Unix(1700001000, 0).UTC() }
	return svc, mock
}

func TestCreate_ValidatesInput(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []CreateRequest{
		{},
		{Name: "Dana", Email: "dana@campus.edu", Role: "janitor"},
		{Name: "Dana", Email: "dana@campus.edu", Role: rbac.RoleSystem}, // hidden role never on a profile
		{Name: "Dana", Email: "not-an-email", Role: rbac.RoleSecurity},
	}
	for i, req := range cases {
		_, err := svc.Create(ctx, req)
		assert.ErrorIs(t, err, ErrInvalidArgument, "case %d", i)
	}
}

func TestCreate_AppliesDefaults(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectExec("INSERT INTO staff_profiles").WillReturnResult(sqlmock.NewResult(0, 1))

	p, err := svc.Create(context.Background(), CreateRequest{
		Name:  "Dana Reyes",
		Email: "dana@campus.edu",
		Role:  rbac.RoleSecurity,
	})
	require.NoError(t, err)
	assert.Equal(t, defaultMaxConcurrent, p.MaxConcurrent)
	assert.True(t, p.ContactPreferences.Email)
	assert.True(t, p.ContactPreferences.Push)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsAvailable_OffDutyIsNever(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("FROM staff_profiles WHERE id = \\$1").
		WithArgs("s1").
		WillReturnRows(addProfileRow(sqlmock.NewRows(profileTestColumns), "s1", "Dana Reyes", rbac.RoleSecurity, false, 3))

	ok, err := svc.IsAvailable(context.Background(), "s1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsAvailable_CapacityBound(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("FROM staff_profiles WHERE id = \\$1").
		WithArgs("s1").
		WillReturnRows(addProfileRow(sqlmock.NewRows(profileTestColumns), "s1", "Dana Reyes", rbac.RoleSecurity, true, 3))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM alerts").
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	ok, err := svc.IsAvailable(context.Background(), "s1")
	require.NoError(t, err)
	assert.False(t, ok, "at capacity means unavailable")

	mock.ExpectQuery("FROM staff_profiles WHERE id = \\$1").
		WithArgs("s1").
		WillReturnRows(addProfileRow(sqlmock.NewRows(profileTestColumns), "s1", "Dana Reyes", rbac.RoleSecurity, true, 3))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM alerts").
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	ok, err = svc.IsAvailable(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsAvailable_UnknownStaffIsFalseNotError(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("FROM staff_profiles WHERE id = \\$1").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(profileTestColumns))

	ok, err := svc.IsAvailable(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNearbyStaff_SortsByDistanceThenName(t *testing.T) {
	svc, mock := newTestService(t)

	rows := sqlmock.NewRows(append(append([]string{}, profileTestColumns...), "zone_id"))
	now := time.Unix(1700000000, 0).UTC()
	add := func(id, name, zone string) {
		rows.AddRow(id, nil, name, name+"@campus.edu", nil, rbac.RoleSecurity, nil,
			true, 3, []byte(`{"email":true,"sms":false,"push":true}`), false, now, now, zone)
	}
	// returned in name order by SQL; service re-sorts by distance
	add("s1", "Alice", "LAB_102")   // adjacent, distance 1
	add("s2", "Bob", "LAB_101")     // same zone, distance 0
	add("s3", "Charlie", "LAB_101") // same zone, distance 0

	mock.ExpectQuery("FROM staff_profiles p").WillReturnRows(rows)

	nearby, err := svc.NearbyStaff(context.Background(), "LAB_101", []string{"LAB_102", "LIB_ENT"}, nil, true)
	require.NoError(t, err)
	require.Len(t, nearby, 3)

	assert.Equal(t, "Bob", nearby[0].Profile.Name)
	assert.Equal(t, 0, nearby[0].Distance)
	assert.Equal(t, "Charlie", nearby[1].Profile.Name)
	assert.Equal(t, "Alice", nearby[2].Profile.Name)
	assert.Equal(t, 1, nearby[2].Distance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatistics_ComputesCapacity(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("FROM staff_profiles WHERE id = \\$1").
		WithArgs("s1").
		WillReturnRows(addProfileRow(sqlmock.NewRows(profileTestColumns), "s1", "Dana Reyes", rbac.RoleSupervisor, true, 5))
	mock.ExpectQuery("FROM alerts WHERE assigned_to").
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery("FROM alerts WHERE resolved_by").
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectQuery("FROM alert_assignments WHERE staff_id").
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	stats, err := svc.Statistics(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ActiveAlerts)
	assert.Equal(t, 7, stats.ResolvedAlerts)
	assert.Equal(t, 11, stats.TotalAssigned)
	assert.Equal(t, 3, stats.AvailableCapacity)
	assert.NoError(t, mock.ExpectationsWereMet())
}
