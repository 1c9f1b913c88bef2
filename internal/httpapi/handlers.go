package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"campus-sentinel/internal/alerts"
	"campus-sentinel/internal/assignment"
	"campus-sentinel/internal/audit"
	"campus-sentinel/internal/auth"
	"campus-sentinel/internal/demo"
	"campus-sentinel/internal/notify"
	"campus-sentinel/internal/staff"
	"campus-sentinel/pkg/logger"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth    *auth.Manager
	Alerts  *alerts.Service
	Staff   *staff.Service
	Audit   *audit.Service
	Engine  *assignment.Engine
	Checker *assignment.EscalationChecker
	Notify  *notify.Service
	Demo    *demo.Player
}

// respondError maps service errors to HTTP statuses.
func respondError(c *gin.Context, err error) {
	var transition *alerts.InvalidTransitionError
	switch {
	case errors.As(err, &transition):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"error": transition.Error(),
			"from":  transition.From,
			"to":    transition.To,
			"valid": alerts.ValidNext(transition.From),
		})
	case errors.Is(err, alerts.ErrNotFound),
		errors.Is(err, staff.ErrNotFound),
		errors.Is(err, alerts.ErrStaffNotFound),
		errors.Is(err, demo.ErrScenarioNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, alerts.ErrNotAssignee):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, alerts.ErrInvalidArgument),
		errors.Is(err, staff.ErrInvalidArgument),
		errors.Is(err, demo.ErrNoDemoRunning),
		errors.Is(err, demo.ErrDemoComplete):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.FromGin(c).Error("request failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func identity(c *gin.Context) (staffID, role string) {
	staffID, _ = auth.StaffID(c.Request.Context())
	role, _ = auth.Role(c.Request.Context())
	return staffID, role
}

// --- Auth ---

type loginRequest struct {
	Email string `json:"email"`
}

// Login issues a JWT token pair for a staff member looked up by email.
//
// NOTE: credential validation against a campus identity provider is a
// deployment concern; this endpoint only resolves the staff profile.
func (h Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Email == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "email required"})
		return
	}

	profile, err := h.Staff.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, staff.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown staff"})
			return
		}
		respondError(c, err)
		return
	}

	pair, err := h.Auth.IssuePair(time.Now(), profile.ID, profile.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"staff_id":      profile.ID,
		"role":          profile.Role,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h Handlers) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "refresh_token required"})
		return
	}

	claims, err := h.Auth.Verify(req.RefreshToken, auth.TokenTypeRefresh, time.Now())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}

	// Re-read the profile so role changes take effect on refresh.
	profile, err := h.Staff.Get(c.Request.Context(), claims.StaffID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown staff"})
		return
	}

	pair, err := h.Auth.IssuePair(time.Now(), profile.ID, profile.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

func (h Handlers) Me(c *gin.Context) {
	staffID, role := identity(c)
	c.JSON(http.StatusOK, gin.H{"staff_id": staffID, "role": role})
}
