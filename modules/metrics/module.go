// Package metrics provides the built-in classification metrics. Each
// estimates its confidence interval with a seeded percentile bootstrap, so
// repeated runs on the same labels report the same interval.
package metrics

import (
	"github.com/vk/bucketgrid/internal/metric"
)

// Defaults for the bootstrap interval.
const (
	DefaultLevel      = 0.95
	DefaultIterations = 1000
)

// Module implements the metric.Module interface for this package.
type Module struct {
	// Level and Iterations override the bootstrap defaults when non-zero.
	Level      float64
	Iterations int
}

// RegisterMetrics registers accuracy and f1_macro.
func (m *Module) RegisterMetrics(r *metric.Registry) {
	b := bootstrap{level: m.Level, iterations: m.Iterations}
	if b.level <= 0 || b.level >= 1 {
		b.level = DefaultLevel
	}
	if b.iterations <= 0 {
		b.iterations = DefaultIterations
	}
	r.Register(&Accuracy{bootstrap: b})
	r.Register(&F1Macro{bootstrap: b})
}
