package collector

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"osint/pkg/metrics"
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
	outcomePanic   = "panic"
)

// Metrics records per-source lookup latency and failures.
type Metrics struct {
	duration *prometheus.HistogramVec
	failures *prometheus.CounterVec
}

// NewMetrics registers the collector metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metrics.Name("source", "lookup_duration_seconds"),
			Help:    "Duration of source lookups by module and outcome.",
			Buckets: metrics.LookupBuckets,
		}, []string{"module", "outcome"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.Name("source", "failures_total"),
			Help: "Source lookups that ended in an error envelope, by module.",
		}, []string{"module"}),
	}
}

func (m *Metrics) observe(module, outcome string, seconds float64) {
	m.duration.WithLabelValues(module, outcome).Observe(seconds)
	if outcome != outcomeSuccess {
		m.failures.WithLabelValues(module).Inc()
	}
}
