package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the ledger provider layer.
type Metrics struct {
	ResolutionLatency prometheus.Histogram
	ResolutionFailed  prometheus.Counter
	Reads             *prometheus.CounterVec
	Writes            *prometheus.CounterVec
	HandleInvalidated prometheus.Counter
}

// New creates and registers the ledger metrics.
func New() *Metrics {
	return &Metrics{
		ResolutionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "attest_ledger_resolution_latency_seconds",
			Help:    "Latency of read-only provider resolution races",
			Buckets: prometheus.DefBuckets,
		}),
		ResolutionFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attest_ledger_resolution_failed_total",
			Help: "Total provider resolutions where every endpoint failed",
		}),
		Reads: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "attest_ledger_reads_total",
			Help: "Total ledger entry reads, labeled by outcome",
		}, []string{"outcome"}),
		Writes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "attest_ledger_writes_total",
			Help: "Total ledger write attempts, labeled by outcome",
		}, []string{"outcome"}),
		HandleInvalidated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attest_ledger_handle_invalidated_total",
			Help: "Total write-capable handle invalidations from agent changes",
		}),
	}
}
