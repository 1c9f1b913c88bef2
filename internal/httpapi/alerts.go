package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"campus-sentinel/internal/alerts"
	"campus-sentinel/internal/assignment"
	"campus-sentinel/internal/audit"
	"campus-sentinel/internal/metrics"
	"campus-sentinel/internal/rbac"
	"campus-sentinel/pkg/logger"
)

func actorKind(role string) audit.ActorKind {
	switch role {
	case rbac.RoleAdmin:
		return audit.ActorKindAdmin
	case rbac.RoleSystem:
		return audit.ActorKindSystem
	default:
		return audit.ActorKindStaff
	}
}

// CreateAlert creates a new alert, normally called by the detection
// pipeline. Unless auto_assign=false, the alert is immediately routed
// through the assignment engine; critical alerts page a response team.
// Mock alerts are never auto-assigned here, the demo player drives them.
func (h Handlers) CreateAlert(c *gin.Context) {
	var req alerts.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	staffID, role := identity(c)
	created, err := h.Alerts.Create(c.Request.Context(), req, staffID, actorKind(role))
	if err != nil {
		respondError(c, err)
		return
	}
	metrics.AlertsCreated.WithLabelValues(string(created.Severity), created.AnomalyType).Inc()

	autoAssign := c.DefaultQuery("auto_assign", "true") == "true"
	assigned := false
	if autoAssign && !created.IsMock {
		if created.Severity == alerts.SeverityCritical {
			team, err := h.Engine.AssignCriticalAlert(c.Request.Context(), created, 0)
			if err != nil && !errors.Is(err, assignment.ErrNoStaffAvailable) {
				respondError(c, err)
				return
			}
			assigned = len(team) > 0
		} else {
			_, err := h.Engine.AssignAlert(c.Request.Context(), created, nil, "")
			if err != nil && !errors.Is(err, assignment.ErrNoStaffAvailable) {
				respondError(c, err)
				return
			}
			assigned = err == nil
		}
		if assigned {
			metrics.AlertsAssigned.WithLabelValues("auto").Inc()
			created, err = h.Alerts.Get(c.Request.Context(), created.ID)
			if err != nil {
				respondError(c, err)
				return
			}
		}
	}

	c.JSON(http.StatusCreated, gin.H{"alert": created, "assigned": assigned})
}

func (h Handlers) ListAlerts(c *gin.Context) {
	f := alerts.ListFilter{
		Status:     alerts.Status(c.Query("status")),
		Severity:   alerts.Severity(c.Query("severity")),
		ZoneID:     c.Query("zone_id"),
		AssignedTo: c.Query("assigned_to"),
		Limit:      intQuery(c, "limit", 20),
		Offset:     intQuery(c, "offset", 0),
	}
	f.IncludeResolved = c.Query("include_resolved") == "true"
	if raw := c.Query("is_mock"); raw != "" {
		v := raw == "true"
		f.IsMock = &v
	}

	list, total, err := h.Alerts.List(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"alerts":   list,
		"total":    total,
		"limit":    f.Limit,
		"offset":   f.Offset,
		"has_more": f.Offset+len(list) < total,
	})
}

// ListActiveAlerts is the dashboard view: open, real alerts only.
func (h Handlers) ListActiveAlerts(c *gin.Context) {
	notMock := false
	f := alerts.ListFilter{
		Severity: alerts.Severity(c.Query("severity")),
		IsMock:   &notMock,
		Limit:    intQuery(c, "limit", 50),
	}

	list, total, err := h.Alerts.List(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": list, "total": total, "limit": f.Limit, "offset": 0, "has_more": false})
}

func (h Handlers) GetAlert(c *gin.Context) {
	a, err := h.Alerts.Get(c.Request.Context(), c.Param("alert_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h Handlers) UpdateAlert(c *gin.Context) {
	var req alerts.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	staffID, role := identity(c)
	a, err := h.Alerts.Update(c.Request.Context(), c.Param("alert_id"), req, staffID, actorKind(role))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// DeleteAlert is a hard delete; the normal workflow resolves instead.
func (h Handlers) DeleteAlert(c *gin.Context) {
	if err := h.Alerts.Delete(c.Request.Context(), c.Param("alert_id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type statusUpdateRequest struct {
	Status alerts.Status `json:"status"`
	Notes  string        `json:"notes,omitempty"`
}

func (h Handlers) UpdateAlertStatus(c *gin.Context) {
	var req statusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	staffID, role := identity(c)
	a, err := h.Alerts.UpdateStatus(c.Request.Context(), c.Param("alert_id"), req.Status, staffID, actorKind(role), req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

type assignRequest struct {
	StaffID string `json:"staff_id"`
	Reason  string `json:"assignment_reason,omitempty"`
}

// AssignAlert is manual assignment by an admin or supervisor; the
// assignment engine handles the automatic path.
func (h Handlers) AssignAlert(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.StaffID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "staff_id required"})
		return
	}
	if req.Reason == "" {
		req.Reason = "manual"
	}

	staffID, role := identity(c)
	a, err := h.Alerts.Assign(c.Request.Context(), c.Param("alert_id"), req.StaffID, staffID, actorKind(role), req.Reason, nil)
	if err != nil {
		respondError(c, err)
		return
	}
	metrics.AlertsAssigned.WithLabelValues("manual").Inc()

	if profile, perr := h.Staff.Get(c.Request.Context(), req.StaffID); perr == nil && h.Notify != nil {
		h.Notify.NotifyAssignment(c.Request.Context(), profile, a, a.Severity == alerts.SeverityCritical)
	}
	c.JSON(http.StatusOK, a)
}

// AcknowledgeAlert is a staff action; only the assigned responder may
// acknowledge.
func (h Handlers) AcknowledgeAlert(c *gin.Context) {
	staffID, _ := identity(c)
	a, err := h.Alerts.Acknowledge(c.Request.Context(), c.Param("alert_id"), staffID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

type resolveRequest struct {
	ResolutionType  alerts.ResolutionType `json:"resolution_type"`
	ResolutionNotes string                `json:"resolution_notes"`
}

func (h Handlers) ResolveAlert(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	staffID, role := identity(c)
	a, err := h.Alerts.Resolve(c.Request.Context(), c.Param("alert_id"), staffID, req.ResolutionType, req.ResolutionNotes, actorKind(role))
	if err != nil {
		respondError(c, err)
		return
	}
	metrics.AlertsResolved.WithLabelValues(string(req.ResolutionType)).Inc()
	c.JSON(http.StatusOK, a)
}

type escalateRequest struct {
	EscalateTo string `json:"escalate_to"`
	Reason     string `json:"reason"`
}

// EscalateAlert hands the alert to a named staff member. With no
// escalate_to the assignment engine picks the target up the hierarchy.
func (h Handlers) EscalateAlert(c *gin.Context) {
	var req escalateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Reason == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "reason required"})
		return
	}

	staffID, role := identity(c)
	var a alerts.Alert
	var err error
	if req.EscalateTo != "" {
		a, err = h.Alerts.Escalate(c.Request.Context(), c.Param("alert_id"), req.EscalateTo, req.Reason, staffID, actorKind(role))
		if err == nil {
			if profile, perr := h.Staff.Get(c.Request.Context(), req.EscalateTo); perr == nil && h.Notify != nil {
				h.Notify.NotifyEscalation(c.Request.Context(), profile, a, req.Reason)
			}
		}
	} else {
		a, err = h.Alerts.Get(c.Request.Context(), c.Param("alert_id"))
		if err == nil {
			_, err = h.Engine.EscalateAlert(c.Request.Context(), a, req.Reason)
		}
		if err == nil {
			a, err = h.Alerts.Get(c.Request.Context(), c.Param("alert_id"))
		}
	}
	if err != nil {
		if errors.Is(err, assignment.ErrNoStaffAvailable) {
			c.JSON(http.StatusOK, gin.H{"escalated": false, "message": "no escalation target available"})
			return
		}
		respondError(c, err)
		return
	}
	metrics.AlertsEscalated.WithLabelValues("manual").Inc()
	c.JSON(http.StatusOK, a)
}

type noteRequest struct {
	Note string `json:"note"`
}

func (h Handlers) AddAlertNote(c *gin.Context) {
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Note == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "note required"})
		return
	}

	staffID, _ := identity(c)
	a, err := h.Alerts.AddNote(c.Request.Context(), c.Param("alert_id"), req.Note, staffID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// AlertAuditTrail returns one page of the audit history, newest first.
func (h Handlers) AlertAuditTrail(c *gin.Context) {
	alertID := c.Param("alert_id")
	if _, err := h.Alerts.Get(c.Request.Context(), alertID); err != nil {
		respondError(c, err)
		return
	}

	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	trail, total, err := h.Audit.Trail(c.Request.Context(), alertID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"logs":     trail,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
		"has_more": offset+len(trail) < total,
	})
}

func (h Handlers) AlertAssignments(c *gin.Context) {
	rows, err := h.Alerts.Assignments(c.Request.Context(), c.Param("alert_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assignments": rows})
}

// AutoAssignAlert routes an existing alert through the assignment
// engine. Responds 200 with an actionable body when nobody is
// available, that is an operational condition rather than a failure.
func (h Handlers) AutoAssignAlert(c *gin.Context) {
	a, err := h.Alerts.Get(c.Request.Context(), c.Param("alert_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if a.Status == alerts.StatusResolved {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "cannot assign resolved alert"})
		return
	}

	if a.Severity == alerts.SeverityCritical {
		team, err := h.Engine.AssignCriticalAlert(c.Request.Context(), a, 0)
		if err != nil {
			if errors.Is(err, assignment.ErrNoStaffAvailable) {
				c.JSON(http.StatusOK, gin.H{"assigned": false, "message": "no available staff for assignment"})
				return
			}
			respondError(c, err)
			return
		}
		metrics.AlertsAssigned.WithLabelValues("critical_primary").Inc()
		logger.FromGin(c).Info("critical alert auto-assigned", "alert_id", a.ID, "assignees", len(team))
	} else {
		if _, err := h.Engine.AssignAlert(c.Request.Context(), a, nil, ""); err != nil {
			if errors.Is(err, assignment.ErrNoStaffAvailable) {
				c.JSON(http.StatusOK, gin.H{"assigned": false, "message": "no available staff for assignment"})
				return
			}
			respondError(c, err)
			return
		}
		metrics.AlertsAssigned.WithLabelValues("auto").Inc()
	}

	updated, err := h.Alerts.Get(c.Request.Context(), a.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assigned": true, "alert": updated})
}

type backupRequest struct {
	BackupStaffID string `json:"backup_staff_id"`
}

// RequestBackup lets the assigned responder pull in another staff
// member as an active backup on the alert.
func (h Handlers) RequestBackup(c *gin.Context) {
	var req backupRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.BackupStaffID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "backup_staff_id required"})
		return
	}

	staffID, _ := identity(c)
	alertID := c.Param("alert_id")
	ctx := c.Request.Context()

	if err := h.Alerts.RequestBackup(ctx, alertID, staffID, req.BackupStaffID); err != nil {
		respondError(c, err)
		return
	}
	if _, err := h.Alerts.AddBackupAssignment(ctx, alertID, req.BackupStaffID, "backup_request", nil); err != nil {
		respondError(c, err)
		return
	}
	metrics.AlertsAssigned.WithLabelValues("critical_backup").Inc()

	if profile, err := h.Staff.Get(ctx, req.BackupStaffID); err == nil && h.Notify != nil {
		a, aerr := h.Alerts.Get(ctx, alertID)
		if aerr == nil {
			h.Notify.NotifyAssignment(ctx, profile, a, true)
		}
	}
	c.JSON(http.StatusOK, gin.H{"backup_requested": true, "backup_staff_id": req.BackupStaffID})
}

// ClearMockAlerts purges demo data after a session.
func (h Handlers) ClearMockAlerts(c *gin.Context) {
	var (
		count int64
		err   error
	)
	if h.Demo != nil {
		count, err = h.Demo.ClearMockData(c.Request.Context())
	} else {
		count, err = h.Alerts.ClearMock(c.Request.Context())
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "mock alerts cleared", "count": count})
}

// TriggerEscalationCheck runs one escalation sweep on demand; the
// background checker runs the same sweep on a schedule.
func (h Handlers) TriggerEscalationCheck(c *gin.Context) {
	counts, err := h.Checker.CheckAndEscalate(c.Request.Context())
	if err != nil {
		metrics.EscalationSweeps.WithLabelValues("error").Inc()
		respondError(c, err)
		return
	}
	metrics.EscalationSweeps.WithLabelValues("ok").Inc()
	c.JSON(http.StatusOK, gin.H{"message": "escalation check complete", "results": counts})
}

// AssignmentCandidates shows the ranked candidate list for a zone,
// useful for understanding who would be assigned and why.
func (h Handlers) AssignmentCandidates(c *gin.Context) {
	candidates, err := h.Engine.Candidates(c.Request.Context(), c.Param("zone_id"), c.Query("alert_type"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"zone_id": c.Param("zone_id"), "candidates": candidates})
}

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
