package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"campus-sentinel/internal/alerts"
	"campus-sentinel/internal/audit"
	"campus-sentinel/internal/auth"
	"campus-sentinel/internal/demo"
	"campus-sentinel/internal/rbac"
	"campus-sentinel/internal/staff"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRespondError_StatusMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"alert not found", alerts.ErrNotFound, http.StatusNotFound},
		{"staff not found", staff.ErrNotFound, http.StatusNotFound},
		{"scenario not found", demo.ErrScenarioNotFound, http.StatusNotFound},
		{"not assignee", alerts.ErrNotAssignee, http.StatusForbidden},
		{"invalid argument", alerts.ErrInvalidArgument, http.StatusBadRequest},
		{"unknown assignee staff", alerts.ErrStaffNotFound, http.StatusNotFound},
		{"no demo running", demo.ErrNoDemoRunning, http.StatusBadRequest},
		{"wrapped not found", fmt.Errorf("get alert: %w", alerts.ErrNotFound), http.StatusNotFound},
		{"invalid transition", &alerts.InvalidTransitionError{From: alerts.StatusResolved, To: alerts.StatusAssigned}, http.StatusConflict},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondError(c, tc.err)
			assert.Equal(t, tc.wantStatus, rec.Code)
		})
	}
}

func TestRespondError_TransitionBodyListsValidSuccessors(t *testing.T) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	respondError(c, &alerts.InvalidTransitionError{From: alerts.StatusAssigned, To: alerts.StatusResolved})

	assert.Equal(t, http.StatusConflict, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "acknowledged")
	assert.Contains(t, body, "escalated")
}

func TestRespondError_InternalErrorsAreOpaque(t *testing.T) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	respondError(c, errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestActorKind(t *testing.T) {
	assert.Equal(t, audit.ActorKindAdmin, actorKind(rbac.RoleAdmin))
	assert.Equal(t, audit.ActorKindSystem, actorKind(rbac.RoleSystem))
	assert.Equal(t, audit.ActorKindStaff, actorKind(rbac.RoleSecurity))
	assert.Equal(t, audit.ActorKindStaff, actorKind(rbac.RoleSupervisor))
	assert.Equal(t, audit.ActorKindStaff, actorKind(""))
}

func TestIntQuery(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?limit=25&bad=x&neg=-3", nil)

	assert.Equal(t, 25, intQuery(c, "limit", 20))
	assert.Equal(t, 20, intQuery(c, "missing", 20))
	assert.Equal(t, 20, intQuery(c, "bad", 20))
	assert.Equal(t, 20, intQuery(c, "neg", 20))
}

func TestMe_ReturnsIdentityFromContext(t *testing.T) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	c.Request = req.WithContext(auth.WithIdentity(req.Context(), "staff-1", rbac.RoleSecurity))

	Handlers{}.Me(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "staff-1")
	assert.Contains(t, rec.Body.String(), "security")
}
