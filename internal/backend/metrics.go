package backend

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records backend call counts and latency per endpoint name.
type Metrics struct {
	calls   *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

// NewMetrics creates backend metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	calls := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "findit_backend_requests_total",
			Help: "Total requests sent to the lost-and-found backend",
		},
		[]string{"endpoint", "status"},
	)
	latency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "findit_backend_request_duration_seconds",
			Help:    "Backend request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
	reg.MustRegister(calls, latency)
	return &Metrics{calls: calls, latency: latency}
}

func (m *Metrics) observe(endpoint, status string, seconds float64) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(endpoint, status).Inc()
	m.latency.WithLabelValues(endpoint).Observe(seconds)
}
