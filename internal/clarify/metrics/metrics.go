package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the clarification module.
// All methods are nil-safe so services can run without metrics in tests.
type Metrics struct {
	// Sessions started, labeled by the highest-priority trigger
	SessionsStarted *prometheus.CounterVec

	// Sessions finished, labeled by terminal status
	SessionsFinished *prometheus.CounterVec

	// Answered turns, labeled by target field
	TurnsAnswered *prometheus.CounterVec

	// Question generation latency (includes timeouts)
	GeneratorLatency prometheus.Histogram

	// Answer-processing latency end to end
	AnswerLatency prometheus.Histogram

	// Lost CAS races on the session turn index
	TurnConflicts prometheus.Counter
}

// New creates a Metrics instance with all clarification metrics registered.
func New() *Metrics {
	return &Metrics{
		SessionsStarted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "leadgate_clarify_sessions_started_total",
			Help: "Total clarification sessions started by first trigger reason",
		}, []string{"trigger"}),

		SessionsFinished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "leadgate_clarify_sessions_finished_total",
			Help: "Total clarification sessions finished by terminal status",
		}, []string{"status"}),

		TurnsAnswered: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "leadgate_clarify_turns_answered_total",
			Help: "Total answered clarification turns by target field",
		}, []string{"field"}),

		GeneratorLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "leadgate_clarify_generator_duration_seconds",
			Help:    "Duration of clarifying-question generation",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),

		AnswerLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "leadgate_clarify_answer_duration_seconds",
			Help:    "Duration of processing one clarification answer",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		TurnConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "leadgate_clarify_turn_conflicts_total",
			Help: "Total clarification answers rejected by the turn-index CAS",
		}),
	}
}

// IncrementSessionStarted records a new session by its first trigger.
func (m *Metrics) IncrementSessionStarted(trigger string) {
	if m != nil {
		m.SessionsStarted.WithLabelValues(trigger).Inc()
	}
}

// IncrementSessionFinished records a session reaching a terminal status.
func (m *Metrics) IncrementSessionFinished(status string) {
	if m != nil {
		m.SessionsFinished.WithLabelValues(status).Inc()
	}
}

// IncrementTurnAnswered records one applied answer.
func (m *Metrics) IncrementTurnAnswered(field string) {
	if m != nil {
		m.TurnsAnswered.WithLabelValues(field).Inc()
	}
}

// ObserveGeneratorLatency records the duration of one generator call.
func (m *Metrics) ObserveGeneratorLatency(start time.Time) {
	if m != nil {
		m.GeneratorLatency.Observe(time.Since(start).Seconds())
	}
}

// ObserveAnswerLatency records the duration of one answer round trip.
func (m *Metrics) ObserveAnswerLatency(start time.Time) {
	if m != nil {
		m.AnswerLatency.Observe(time.Since(start).Seconds())
	}
}

// IncrementTurnConflict records a lost turn-index race.
func (m *Metrics) IncrementTurnConflict() {
	if m != nil {
		m.TurnConflicts.Inc()
	}
}
