package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the process-wide Prometheus metrics.
type Metrics struct {
	EndpointLatency *prometheus.HistogramVec
	RequestsTotal   *prometheus.CounterVec
}

// New creates and registers the process-wide metrics.
func New() *Metrics {
	return &Metrics{
		EndpointLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "attest_endpoint_latency_seconds",
			Help:    "Latency of endpoints in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "attest_requests_total",
			Help: "Total HTTP requests, labeled by endpoint and status class",
		}, []string{"endpoint", "status"}),
	}
}

// ObserveEndpointLatency records the latency for a given endpoint.
func (m *Metrics) ObserveEndpointLatency(endpoint string, durationSeconds float64) {
	m.EndpointLatency.WithLabelValues(endpoint).Observe(durationSeconds)
}

// IncrementRequests counts a finished request.
func (m *Metrics) IncrementRequests(endpoint, status string) {
	m.RequestsTotal.WithLabelValues(endpoint, status).Inc()
}
