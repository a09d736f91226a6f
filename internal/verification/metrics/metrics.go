package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification engine.
type Metrics struct {
	// Outcomes by terminal state and reason
	Outcome *prometheus.CounterVec

	// Provider lookup latency by institution
	LookupLatency *prometheus.HistogramVec

	// End-to-end verify latency including retries
	VerifyLatency prometheus.Histogram
}

// New creates a Metrics instance with all verification metrics registered.
func New() *Metrics {
	return &Metrics{
		Outcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "enrollgate_verification_outcomes_total",
			Help: "Terminal verification outcomes by state and reason",
		}, []string{"outcome", "reason"}),

		LookupLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "enrollgate_provider_lookup_duration_seconds",
			Help:    "Duration of provider lookups including retries, by institution",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"institution"}),

		VerifyLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "enrollgate_verify_duration_seconds",
			Help:    "Duration of full verification including scoring and audit",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}

// IncrementOutcome records a terminal outcome.
func (m *Metrics) IncrementOutcome(outcome, reason string) {
	if m != nil {
		m.Outcome.WithLabelValues(outcome, reason).Inc()
	}
}

// ObserveLookupLatency records the duration of a provider lookup.
func (m *Metrics) ObserveLookupLatency(institution string, d time.Duration) {
	if m != nil {
		m.LookupLatency.WithLabelValues(institution).Observe(d.Seconds())
	}
}

// ObserveVerifyLatency records the total verification duration.
func (m *Metrics) ObserveVerifyLatency(d time.Duration) {
	if m != nil {
		m.VerifyLatency.Observe(d.Seconds())
	}
}
