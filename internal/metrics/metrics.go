package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentinel_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Alert lifecycle metrics
	AlertsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_alerts_created_total",
			Help: "Total number of alerts created",
		},
		[]string{"severity", "anomaly_type"},
	)

	AlertsAssigned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_alerts_assigned_total",
			Help: "Total number of alert assignments",
		},
		[]string{"reason"}, // auto, manual, critical_primary, critical_backup, escalation
	)

	AlertsEscalated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_alerts_escalated_total",
			Help: "Total number of alert escalations",
		},
		[]string{"trigger"}, // manual, no_acknowledgment, no_resolution
	)

	AlertsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_alerts_resolved_total",
			Help: "Total number of alerts resolved",
		},
		[]string{"resolution_type"},
	)

	// Notification queue metrics
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_notifications_sent_total",
			Help: "Total number of notifications delivered",
		},
		[]string{"channel", "success"},
	)

	NotificationQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sentinel_notification_queue_depth",
			Help: "Number of notifications waiting in the queue",
		},
		[]string{"lane"}, // critical, normal
	)

	// Escalation sweep metrics
	EscalationSweeps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_escalation_sweeps_total",
			Help: "Total number of escalation sweep runs",
		},
		[]string{"result"}, // ok, error
	)
)
