package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "billing_admin",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "billing_admin",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "billing_admin",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	authAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "billing_admin",
			Subsystem: "auth",
			Name:      "attempts_total",
			Help:      "Login attempts by principal kind and outcome.",
		},
		[]string{"kind", "result"},
	)

	alertsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "billing_admin",
			Subsystem: "alerts",
			Name:      "created_total",
			Help:      "Persisted alerts created by severity.",
		},
		[]string{"severity"},
	)

	alertsResolved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "billing_admin",
			Subsystem: "alerts",
			Name:      "resolved_total",
			Help:      "Alerts marked resolved, manually or on recovery.",
		},
	)

	syncPayments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "billing_admin",
			Subsystem: "sync",
			Name:      "payments_total",
			Help:      "Payments received through sync push by result.",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		authAttempts,
		alertsCreated,
		alertsResolved,
		syncPayments,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RequestStarted marks a request in flight and returns a func that records
// its completion.
func RequestStarted(method, path string) func(status int) {
	start := time.Now()
	httpInFlight.Inc()
	return func(status int) {
		httpInFlight.Dec()
		httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// RecordAuthAttempt counts a login attempt.
func RecordAuthAttempt(kind string, ok bool) {
	result := "failure"
	if ok {
		result = "success"
	}
	authAttempts.WithLabelValues(kind, result).Inc()
}

// RecordAlertCreated counts a newly persisted alert.
func RecordAlertCreated(severity string) {
	alertsCreated.WithLabelValues(severity).Inc()
}

// RecordAlertsResolved counts n resolved alerts.
func RecordAlertsResolved(n int) {
	if n > 0 {
		alertsResolved.Add(float64(n))
	}
}

// RecordSyncPayments counts synced and skipped payment records.
func RecordSyncPayments(synced, skipped int) {
	syncPayments.WithLabelValues("synced").Add(float64(synced))
	syncPayments.WithLabelValues("skipped").Add(float64(skipped))
}
