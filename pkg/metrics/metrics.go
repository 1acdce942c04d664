package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records admin sign-in attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registrar_auth_attempts_total",
			Help: "Total number of admin sign-in attempts",
		},
		[]string{"result"},
	)

	// StatusTransitions counts lifecycle writes by branch (status|estimate|review) and target status.
	StatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registrar_request_transitions_total",
			Help: "Request lifecycle writes by branch and target status",
		},
		[]string{"branch", "status"},
	)

	// PushDispatches counts push hand-offs (skipped|queued|dropped) and background
	// deliveries (sent|failed) by result.
	PushDispatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registrar_push_dispatches_total",
			Help: "Push notification dispatch attempts",
		},
		[]string{"result"},
	)

	// NotificationsCreated counts notification rows by origin (request|news).
	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registrar_notifications_created_total",
			Help: "Notifications appended to user inboxes",
		},
		[]string{"origin"},
	)

	// NewsFanout counts per-user notifications produced by news publication, by result (ok|error).
	NewsFanout = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registrar_news_fanout_total",
			Help: "Per-user news notifications attempted during publication",
		},
		[]string{"result"},
	)

	// FeedSubscribers tracks live change-feed listeners.
	FeedSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "registrar_feed_subscribers",
			Help: "Number of active change-feed subscriptions",
		},
	)

	// RealtimeConnections tracks open dashboard websockets.
	RealtimeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "registrar_realtime_connections",
			Help: "Number of open dashboard websocket connections",
		},
	)

	// APILatency measures HTTP request latencies by route template and status class.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "registrar_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route", "status"},
	)

	// APIInFlight tracks requests currently being served.
	APIInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "registrar_api_in_flight_requests",
			Help: "Number of HTTP requests being served",
		},
	)

	// APIResponseBytes records response body sizes by route template.
	APIResponseBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "registrar_api_response_bytes",
			Help:    "Size of HTTP response bodies",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		},
		[]string{"route"},
	)

	// PanicsRecovered counts handler panics converted into 500 replies.
	PanicsRecovered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registrar_http_panics_total",
			Help: "Handler panics recovered by the HTTP stack",
		},
		[]string{"route"},
	)
)
