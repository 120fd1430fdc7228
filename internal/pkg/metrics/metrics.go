package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	RateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests rejected by the rate limiter.",
		},
	)

	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "doorlock_sessions_active",
			Help: "Device connections bound to a session token.",
		},
	)

	CommandsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doorlock_commands_sent_total",
			Help: "Commands pushed to devices by the reconciliation loop.",
		},
		[]string{"command"},
	)

	EventsReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doorlock_events_received_total",
			Help: "Frames received from authenticated devices.",
		},
		[]string{"event"},
	)

	StoreErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doorlock_store_errors_total",
			Help: "Record store failures seen by the device gateway.",
		},
		[]string{"op"},
	)

	PushFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "doorlock_push_failures_total",
			Help: "Push notifications that failed to dispatch.",
		},
	)
)

var registerOnce sync.Once

// MustRegister registers every collector with the default registry. Safe to
// call more than once.
func MustRegister() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDurationSeconds,
			RateLimited,
			SessionsActive,
			CommandsSent,
			EventsReceived,
			StoreErrors,
			PushFailures,
		)
	})
}
