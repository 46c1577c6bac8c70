package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the certificate service layer.
type Metrics struct {
	Issued        *prometheus.CounterVec
	IssueRejected *prometheus.CounterVec
	Verifications *prometheus.CounterVec
	IssueLatency  prometheus.Histogram
}

// New creates and registers the certificate metrics.
func New() *Metrics {
	return &Metrics{
		Issued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "attest_certificates_issued_total",
			Help: "Total certificates issued, labeled by ledger sub-status",
		}, []string{"ledger_status"}),
		IssueRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "attest_certificates_rejected_total",
			Help: "Total issuance requests rejected, labeled by reason",
		}, []string{"reason"}),
		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "attest_verifications_total",
			Help: "Total verification requests, labeled by verdict or failure",
		}, []string{"verdict"}),
		IssueLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "attest_issue_latency_seconds",
			Help:    "End-to-end issuance latency including any ledger write",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
