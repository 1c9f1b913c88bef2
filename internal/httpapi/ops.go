package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campus-sentinel/internal/metrics"
)

// --- Notifications ---

// NotificationQueueStatus reports pending queue depth per lane.
func (h Handlers) NotificationQueueStatus(c *gin.Context) {
	critical, normal, err := h.Notify.QueueDepth(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	metrics.NotificationQueueDepth.WithLabelValues("critical").Set(float64(critical))
	metrics.NotificationQueueDepth.WithLabelValues("normal").Set(float64(normal))
	c.JSON(http.StatusOK, gin.H{
		"critical_pending": critical,
		"normal_pending":   normal,
		"total_pending":    critical + normal,
	})
}

// ProcessNotificationQueue drains a batch on demand; the background
// worker does the same on a schedule.
func (h Handlers) ProcessNotificationQueue(c *gin.Context) {
	res, err := h.Notify.ProcessQueue(c.Request.Context(), intQuery(c, "batch_size", 50))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// --- Demo ---

func (h Handlers) DemoScenarios(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"scenarios": h.Demo.Scenarios()})
}

func (h Handlers) DemoScenario(c *gin.Context) {
	s, err := h.Demo.Scenario(c.Param("scenario_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h Handlers) DemoState(c *gin.Context) {
	c.JSON(http.StatusOK, h.Demo.State())
}

type demoStartRequest struct {
	Speed       float64 `json:"speed,omitempty"`
	AutoAdvance *bool   `json:"auto_advance,omitempty"`
}

func (h Handlers) DemoStart(c *gin.Context) {
	var req demoStartRequest
	// Body is optional; defaults apply.
	_ = c.ShouldBindJSON(&req)

	autoAdvance := true
	if req.AutoAdvance != nil {
		autoAdvance = *req.AutoAdvance
	}

	state, err := h.Demo.Start(c.Request.Context(), c.Param("scenario_id"), req.Speed, autoAdvance)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h Handlers) DemoStop(c *gin.Context) {
	state, err := h.Demo.Stop(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h Handlers) DemoPause(c *gin.Context) {
	state, err := h.Demo.Pause()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h Handlers) DemoResume(c *gin.Context) {
	state, err := h.Demo.Resume()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h Handlers) DemoAdvance(c *gin.Context) {
	state, err := h.Demo.Advance(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

type demoSpeedRequest struct {
	Speed float64 `json:"speed"`
}

func (h Handlers) DemoSetSpeed(c *gin.Context) {
	var req demoSpeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	state, err := h.Demo.SetSpeed(req.Speed)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, state)
}
