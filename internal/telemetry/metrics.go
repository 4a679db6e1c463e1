// Package telemetry provides the prometheus collectors and OpenTelemetry
// spans of an analysis run.
//
// Collectors are registered against a caller-supplied registerer, so every
// App instance (and every test) owns an independent set. All methods are
// safe on a nil *Metrics, which disables collection.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bucketgrid"

// Metrics holds the collectors of one App instance.
type Metrics struct {
	// RunsTotal counts analysis runs by split and outcome (ok, cancelled,
	// failed).
	RunsTotal *prometheus.CounterVec
	// SamplesTotal counts samples that entered SchemaCompletion.
	SamplesTotal prometheus.Counter
	// DataErrorsTotal counts DataErrors by feature.
	DataErrorsTotal *prometheus.CounterVec
	// EvaluationErrorsTotal counts omitted bucket records.
	EvaluationErrorsTotal prometheus.Counter
	// PrunedFeaturesTotal counts training-dependent features pruned.
	PrunedFeaturesTotal prometheus.Counter
	// PhaseDuration observes the wall time of each pipeline phase.
	PhaseDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Analysis runs by split and outcome.",
		}, []string{"split", "outcome"}),
		SamplesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_total",
			Help:      "Samples processed by schema completion.",
		}),
		DataErrorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "data_errors_total",
			Help:      "Per-sample data errors by feature.",
		}, []string{"feature"}),
		EvaluationErrorsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluation_errors_total",
			Help:      "Bucket performance records omitted after an evaluation error.",
		}),
		PrunedFeaturesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pruned_features_total",
			Help:      "Training-set-dependent features pruned for lack of statistics.",
		}),
		PhaseDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Wall time of each analysis phase.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"phase"}),
	}
}

// Run records the outcome of one run.
func (m *Metrics) Run(split, outcome string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(split, outcome).Inc()
}

// Samples adds n processed samples.
func (m *Metrics) Samples(n int) {
	if m == nil {
		return
	}
	m.SamplesTotal.Add(float64(n))
}

// DataError counts one data error for feature.
func (m *Metrics) DataError(feature string) {
	if m == nil {
		return
	}
	m.DataErrorsTotal.WithLabelValues(feature).Inc()
}

// EvaluationError counts one omitted bucket record.
func (m *Metrics) EvaluationError() {
	if m == nil {
		return
	}
	m.EvaluationErrorsTotal.Inc()
}

// Pruned adds n pruned features.
func (m *Metrics) Pruned(n int) {
	if m == nil {
		return
	}
	m.PrunedFeaturesTotal.Add(float64(n))
}

// Phase observes the duration of a phase.
func (m *Metrics) Phase(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.PhaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}
