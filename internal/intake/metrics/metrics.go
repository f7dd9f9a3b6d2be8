package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the intake module.
// All methods are nil-safe so services can run without metrics in tests.
type Metrics struct {
	// Submissions by gate status and routing result
	Submissions *prometheus.CounterVec

	// Submissions rejected before evaluation (validation, rate limit)
	Rejections *prometheus.CounterVec

	// End-to-end submission latency
	SubmitLatency prometheus.Histogram

	// Degradations to manual review caused by infrastructure failures
	Degradations prometheus.Counter
}

// New creates a Metrics instance with all intake metrics registered.
func New() *Metrics {
	return &Metrics{
		Submissions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "leadgate_intake_submissions_total",
			Help: "Total intake submissions by gate status and routing result",
		}, []string{"gate_status", "routing"}),

		Rejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "leadgate_intake_rejections_total",
			Help: "Total submissions rejected before gate evaluation by reason",
		}, []string{"reason"}), // reason: "validation", "rate_limited"

		SubmitLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "leadgate_intake_submit_duration_seconds",
			Help:    "Duration of processing one intake submission",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		Degradations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "leadgate_intake_degradations_total",
			Help: "Total submissions degraded to manual review by infrastructure failures",
		}),
	}
}

// IncrementSubmission records one evaluated submission.
func (m *Metrics) IncrementSubmission(gateStatus, routing string) {
	if m != nil {
		m.Submissions.WithLabelValues(gateStatus, routing).Inc()
	}
}

// IncrementRejection records a submission rejected before evaluation.
func (m *Metrics) IncrementRejection(reason string) {
	if m != nil {
		m.Rejections.WithLabelValues(reason).Inc()
	}
}

// ObserveSubmitLatency records the duration of one submission.
func (m *Metrics) ObserveSubmitLatency(start time.Time) {
	if m != nil {
		m.SubmitLatency.Observe(time.Since(start).Seconds())
	}
}

// IncrementDegradation records a forced manual-review fallback.
func (m *Metrics) IncrementDegradation() {
	if m != nil {
		m.Degradations.Inc()
	}
}
