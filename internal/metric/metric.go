// Package metric holds the metric registry and the PerformanceEvaluator,
// which owns the calling convention for metrics and the rounding policy
// applied to every reported number.
package metric

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vk/bucketgrid/internal/diag"
)

// Metric computes a score over aligned label sequences. Implementations
// may assume both slices are non-empty and of equal length.
type Metric interface {
	Name() string
	Compute(trueLabels, predicted []any) (float64, error)
}

// IntervalMetric is a Metric that can also estimate a confidence interval.
// Metrics that do not implement it report a zero-width interval.
type IntervalMetric interface {
	Metric
	ConfidenceInterval(trueLabels, predicted []any) (low, high float64, err error)
}

// Registry maps metric names to implementations. The zero value is not
// usable; call NewRegistry.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Metric
}

// NewRegistry creates an empty metric registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Metric)}
}

// Register adds m. Registering the same name twice is a programming error
// and panics.
func (r *Registry) Register(m Metric) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[m.Name()]; exists {
		panic(fmt.Sprintf("metric %q registered twice", m.Name()))
	}
	r.byName[m.Name()] = m
}

// Get returns the metric registered under name. An unknown name is a
// ConfigurationError.
func (r *Registry) Get(name string) (Metric, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byName[name]
	if !ok {
		return nil, diag.Configf("metric "+name, "unknown metric")
	}
	return m, nil
}

// Names returns the registered names sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byName))
	for n := range r.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Module is implemented by packages contributing metrics.
type Module interface {
	RegisterMetrics(r *Registry)
}
