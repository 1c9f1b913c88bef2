package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campus-sentinel/internal/staff"
)

func (h Handlers) CreateStaff(c *gin.Context) {
	var req staff.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	profile, err := h.Staff.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, profile)
}

func (h Handlers) ListStaff(c *gin.Context) {
	f := staff.ListFilter{
		Role:   c.Query("role"),
		Limit:  intQuery(c, "limit", 50),
		Offset: intQuery(c, "offset", 0),
	}
	if raw := c.Query("on_duty"); raw != "" {
		v := raw == "true"
		f.OnDuty = &v
	}

	profiles, total, err := h.Staff.List(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"staff": profiles, "total": total})
}

// AvailableStaff lists on-duty staff with spare capacity, optionally
// filtered by role.
func (h Handlers) AvailableStaff(c *gin.Context) {
	profiles, err := h.Staff.AvailableStaff(c.Request.Context(), c.Query("role"), nil)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"staff": profiles, "total": len(profiles)})
}

func (h Handlers) GetStaff(c *gin.Context) {
	profile, err := h.Staff.Get(c.Request.Context(), c.Param("staff_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h Handlers) GetStaffByEmail(c *gin.Context) {
	profile, err := h.Staff.GetByEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h Handlers) UpdateStaff(c *gin.Context) {
	var req staff.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	profile, err := h.Staff.Update(c.Request.Context(), c.Param("staff_id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h Handlers) DeleteStaff(c *gin.Context) {
	if err := h.Staff.Delete(c.Request.Context(), c.Param("staff_id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type dutyRequest struct {
	OnDuty bool `json:"on_duty"`
}

func (h Handlers) SetDutyStatus(c *gin.Context) {
	var req dutyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	profile, err := h.Staff.SetDutyStatus(c.Request.Context(), c.Param("staff_id"), req.OnDuty)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// RecordLocation appends a location sample; the latest sample is the
// staff member's current zone for assignment purposes.
func (h Handlers) RecordLocation(c *gin.Context) {
	var req staff.RecordLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	loc, err := h.Staff.RecordLocation(c.Request.Context(), c.Param("staff_id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, loc)
}

func (h Handlers) CurrentLocation(c *gin.Context) {
	loc, err := h.Staff.CurrentLocation(c.Request.Context(), c.Param("staff_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loc)
}

func (h Handlers) LocationHistory(c *gin.Context) {
	history, err := h.Staff.LocationHistory(c.Request.Context(), c.Param("staff_id"), intQuery(c, "limit", 50))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"locations": history, "total": len(history)})
}

// StaffInZone lists staff currently located in a zone.
func (h Handlers) StaffInZone(c *gin.Context) {
	onDutyOnly := c.DefaultQuery("on_duty_only", "true") == "true"
	nearby, err := h.Staff.NearbyStaff(c.Request.Context(), c.Param("zone_id"), nil, nil, onDutyOnly)
	if err != nil {
		respondError(c, err)
		return
	}

	profiles := make([]staff.Profile, 0, len(nearby))
	for _, n := range nearby {
		profiles = append(profiles, n.Profile)
	}
	c.JSON(http.StatusOK, gin.H{"zone_id": c.Param("zone_id"), "staff": profiles, "total": len(profiles)})
}

func (h Handlers) StaffStatistics(c *gin.Context) {
	stats, err := h.Staff.Statistics(c.Request.Context(), c.Param("staff_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// StaffAlerts lists the alerts a staff member is working, including
// backup assignments.
func (h Handlers) StaffAlerts(c *gin.Context) {
	activeOnly := c.DefaultQuery("active_only", "true") == "true"
	list, err := h.Alerts.ListForStaff(c.Request.Context(), c.Param("staff_id"), activeOnly, nil, intQuery(c, "limit", 50))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": list, "total": len(list)})
}
