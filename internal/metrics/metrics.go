package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts counts authentication attempts by channel
	// (email, webapp, widget, bot, token) and outcome.
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supermock_auth_attempts_total",
			Help: "The total number of authentication attempts.",
		},
		[]string{"channel", "outcome"},
	)

	// HTTPRequests counts handled HTTP requests.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supermock_http_requests_total",
			Help: "The total number of HTTP requests handled.",
		},
		[]string{"route", "method", "status"},
	)

	// HTTPDuration is a histogram of request latency.
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "supermock_http_request_duration_seconds",
			Help:    "A histogram of HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// PendingAuths is the number of bot deep-link logins awaiting verification.
	PendingAuths = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "supermock_pending_auths",
			Help: "The number of pending Telegram bot authentications.",
		},
	)

	// Notifications counts bot notifications by result (sent, failed, dropped).
	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supermock_notifications_total",
			Help: "The total number of interview notifications.",
		},
		[]string{"result"},
	)

	// Users is the number of users per status.
	Users = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "supermock_users",
			Help: "The number of users by status.",
		},
		[]string{"status"},
	)

	// Interviews is the number of interviews per status.
	Interviews = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "supermock_interviews",
			Help: "The number of interviews by status.",
		},
		[]string{"status"},
	)
)
