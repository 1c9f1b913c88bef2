package main

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"campus-sentinel/internal/auth"
	"campus-sentinel/internal/httpapi"
	"campus-sentinel/internal/metrics"
	"campus-sentinel/internal/rbac"
	"campus-sentinel/pkg/utils"
)

func registerRoutes(r *gin.Engine, h httpapi.Handlers, am *auth.Manager, db *sql.DB, rdb *redis.Client) {
	r.GET("/healthz", func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), db, 2*time.Second); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "postgres": err.Error()})
			return
		}
		if err := rdb.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "redis": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", metrics.Handler())

	r.POST("/v1/auth/login", h.Login)
	r.POST("/v1/auth/refresh", h.Refresh)

	v1 := r.Group("/v1")
	v1.Use(auth.RequireAccessToken(am))
	v1.Use(metrics.Middleware())

	v1.GET("/me", h.Me)

	manage := rbac.RequireAnyRole(rbac.RoleSupervisor, rbac.RoleAdmin)
	adminOnly := rbac.RequireAnyRole(rbac.RoleAdmin)

	al := v1.Group("/alerts")
	{
		// Detection pipelines post with the system role; staff create
		// alerts manually with their own.
		al.POST("", h.CreateAlert)
		al.GET("", h.ListAlerts)
		al.GET("/active", h.ListActiveAlerts)
		al.GET("/candidates/:zone_id", manage, h.AssignmentCandidates)
		al.POST("/escalation-check", manage, h.TriggerEscalationCheck)
		al.DELETE("/mock", manage, h.ClearMockAlerts)

		al.GET("/:alert_id", h.GetAlert)
		al.PATCH("/:alert_id", manage, h.UpdateAlert)
		al.DELETE("/:alert_id", adminOnly, h.DeleteAlert)
		al.POST("/:alert_id/status", h.UpdateAlertStatus)
		al.POST("/:alert_id/assign", manage, h.AssignAlert)
		al.POST("/:alert_id/acknowledge", h.AcknowledgeAlert)
		al.POST("/:alert_id/resolve", h.ResolveAlert)
		al.POST("/:alert_id/escalate", h.EscalateAlert)
		al.POST("/:alert_id/auto-assign", manage, h.AutoAssignAlert)
		al.POST("/:alert_id/backup", h.RequestBackup)
		al.POST("/:alert_id/notes", h.AddAlertNote)
		al.GET("/:alert_id/audit", h.AlertAuditTrail)
		al.GET("/:alert_id/assignments", h.AlertAssignments)
	}

	st := v1.Group("/staff")
	{
		st.POST("", adminOnly, h.CreateStaff)
		st.GET("", h.ListStaff)
		st.GET("/available", h.AvailableStaff)
		st.GET("/by-email/:email", h.GetStaffByEmail)
		st.GET("/zone/:zone_id", h.StaffInZone)

		st.GET("/:staff_id", h.GetStaff)
		st.PATCH("/:staff_id", adminOnly, h.UpdateStaff)
		st.DELETE("/:staff_id", adminOnly, h.DeleteStaff)
		st.POST("/:staff_id/duty", h.SetDutyStatus)
		st.POST("/:staff_id/location", h.RecordLocation)
		st.GET("/:staff_id/location", h.CurrentLocation)
		st.GET("/:staff_id/location/history", h.LocationHistory)
		st.GET("/:staff_id/statistics", h.StaffStatistics)
		st.GET("/:staff_id/alerts", h.StaffAlerts)
	}

	nt := v1.Group("/notifications")
	{
		nt.GET("/queue", h.NotificationQueueStatus)
		nt.POST("/queue/process", manage, h.ProcessNotificationQueue)
	}

	dm := v1.Group("/demo", manage)
	{
		dm.GET("/scenarios", h.DemoScenarios)
		dm.GET("/scenarios/:scenario_id", h.DemoScenario)
		dm.POST("/scenarios/:scenario_id/start", h.DemoStart)
		dm.GET("/state", h.DemoState)
		dm.POST("/stop", h.DemoStop)
		dm.POST("/pause", h.DemoPause)
		dm.POST("/resume", h.DemoResume)
		dm.POST("/advance", h.DemoAdvance)
		dm.POST("/speed", h.DemoSetSpeed)
	}
}
