package metric

import (
	"errors"
	"fmt"
	"math"

	"github.com/vk/bucketgrid/internal/diag"
	"github.com/vk/bucketgrid/internal/sigfig"
)

// ErrEmpty is returned when there is nothing to evaluate.
var ErrEmpty = errors.New("empty label sequence")

// PerformanceRecord is one rounded metric result.
type PerformanceRecord struct {
	Metric string  `yaml:"metric"`
	Value  float64 `yaml:"value"`
	CILow  float64 `yaml:"ci_low"`
	CIHigh float64 `yaml:"ci_high"`
	Count  int     `yaml:"count"`
	// Cases lists illustrative misclassified sample ids.
	Cases []int `yaml:"cases,omitempty"`
}

// Evaluator computes named metrics through a Registry.
type Evaluator struct {
	metrics *Registry
}

// NewEvaluator creates an evaluator over r.
func NewEvaluator(r *Registry) *Evaluator {
	return &Evaluator{metrics: r}
}

// Check resolves every name up front so an unknown metric fails before any
// sample is processed.
func (e *Evaluator) Check(names ...string) error {
	for _, n := range names {
		if _, err := e.metrics.Get(n); err != nil {
			return err
		}
	}
	return nil
}

// Evaluate computes metric name over the label pairs. Value and interval
// bounds are rounded to sigfig.Digits significant digits and the interval
// is widened if needed so that CILow <= Value <= CIHigh always holds.
//
// An unknown name is a ConfigurationError. Empty or misaligned input and
// metric failures are EvaluationErrors.
func (e *Evaluator) Evaluate(trueLabels, predicted []any, name string, withCI bool) (*PerformanceRecord, error) {
	m, err := e.metrics.Get(name)
	if err != nil {
		return nil, err
	}
	if len(trueLabels) == 0 {
		return nil, &diag.EvaluationError{Metric: name, Err: ErrEmpty}
	}
	if len(trueLabels) != len(predicted) {
		return nil, &diag.EvaluationError{Metric: name, Err: fmt.Errorf("%d true labels but %d predictions", len(trueLabels), len(predicted))}
	}

	value, err := m.Compute(trueLabels, predicted)
	if err != nil {
		return nil, &diag.EvaluationError{Metric: name, Err: err}
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, &diag.EvaluationError{Metric: name, Err: fmt.Errorf("metric returned %v", value)}
	}

	low, high := value, value
	if im, ok := m.(IntervalMetric); ok && withCI {
		l, h, err := im.ConfidenceInterval(trueLabels, predicted)
		if err != nil {
			return nil, &diag.EvaluationError{Metric: name, Err: fmt.Errorf("confidence interval: %w", err)}
		}
		if !math.IsNaN(l) && !math.IsNaN(h) {
			low, high = l, h
		}
	}

	rec := &PerformanceRecord{
		Metric: name,
		Value:  sigfig.Round(value, sigfig.Digits),
		CILow:  sigfig.Round(low, sigfig.Digits),
		CIHigh: sigfig.Round(high, sigfig.Digits),
		Count:  len(trueLabels),
	}
	rec.CILow = math.Min(rec.CILow, rec.Value)
	rec.CIHigh = math.Max(rec.CIHigh, rec.Value)
	return rec, nil
}
