package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the request review module.
type Metrics struct {
	// Applied transitions by target status
	TransitionsApplied *prometheus.CounterVec

	// Denied transitions by denial reason
	TransitionsDenied *prometheus.CounterVec

	// Transitions applied whose finalization side effect failed
	FinalizationFailures prometheus.Counter

	// Latency of the full apply path including the store round trip
	ApplyLatency prometheus.Histogram
}

// New creates a Metrics instance with all review metrics registered.
func New() *Metrics {
	return &Metrics{
		TransitionsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "consulat_request_transitions_applied_total",
			Help: "Total applied status transitions by target status",
		}, []string{"target"}),

		TransitionsDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "consulat_request_transitions_denied_total",
			Help: "Total denied status transitions by denial reason",
		}, []string{"reason"}),

		FinalizationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "consulat_request_finalization_failures_total",
			Help: "Validated transitions whose handover enqueue failed",
		}),

		ApplyLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "consulat_request_apply_duration_seconds",
			Help:    "Duration of transition application including persistence",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// IncrementApplied records an applied transition.
func (m *Metrics) IncrementApplied(target string) {
	if m != nil {
		m.TransitionsApplied.WithLabelValues(target).Inc()
	}
}

// IncrementDenied records a denied transition.
func (m *Metrics) IncrementDenied(reason string) {
	if m != nil {
		m.TransitionsDenied.WithLabelValues(reason).Inc()
	}
}

// IncrementFinalizationFailure records a failed handover enqueue.
func (m *Metrics) IncrementFinalizationFailure() {
	if m != nil {
		m.FinalizationFailures.Inc()
	}
}

// ObserveApplyLatency records the duration of one apply.
func (m *Metrics) ObserveApplyLatency(d time.Duration) {
	if m != nil {
		m.ApplyLatency.Observe(d.Seconds())
	}
}
