package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service collectors. Each instance registers on its own registry
// so tests and multiple servers in one process do not collide.
type Metrics struct {
	enrollmentOps    *prometheus.CounterVec
	eventFailures    *prometheus.CounterVec
	requestDurations *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		enrollmentOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "activity",
			Subsystem: "enrollment",
			Name:      "operations_total",
			Help:      "Signup and unregister attempts, labeled by operation and outcome code.",
		}, []string{"operation", "outcome"}),
		eventFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "activity",
			Subsystem: "enrollment",
			Name:      "events_failed_total",
			Help:      "Enrollment events that could not be published after a committed roster change.",
		}, []string{"type"}),
		requestDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "activity",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method, route pattern and status.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(m.enrollmentOps, m.eventFailures, m.requestDurations)
	return m
}

// ObserveEnrollment counts one signup/unregister attempt.
func (m *Metrics) ObserveEnrollment(operation, outcome string) {
	m.enrollmentOps.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) ObserveEventFailure(eventType string) {
	m.eventFailures.WithLabelValues(eventType).Inc()
}

func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.requestDurations.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
