// Package operation wraps data-transform functions (edits, preprocessors,
// featurizers, aggregators) with the metadata and application contract that
// a sample container needs to run them.
//
// A Descriptor is immutable once built. Its function satisfies exactly one
// of SampleOperation, CorpusOperation or RecordOperation, and which one is
// checked against the capability class at construction time.
package operation

import (
	"fmt"

	"github.com/vk/bucketgrid/internal/capability"
	"github.com/vk/bucketgrid/internal/diag"
	"github.com/vk/bucketgrid/internal/features"
	"github.com/vk/bucketgrid/internal/trainstats"
)

// Resources is what an operation receives next to its input value.
type Resources struct {
	// Config is the descriptor's resource-config map. Operations must treat
	// it as read-only.
	Config map[string]any
	// Stats is the training-split statistics bundle, nil when none exists.
	Stats *trainstats.Bundle
}

// Output maps newly produced field names to values.
type Output map[string]any

// SampleOperation is applied to one field value of one sample.
type SampleOperation interface {
	ApplySample(value any, res Resources) (Output, error)
}

// CorpusOperation is applied once to the full column of a split.
type CorpusOperation interface {
	ApplyCorpus(column []any, res Resources) (Output, error)
}

// RecordOperation is applied to a whole sample mapping.
type RecordOperation interface {
	ApplyRecord(sample map[string]any, res Resources) (Output, error)
}

// SampleFunc adapts a plain function to SampleOperation.
type SampleFunc func(value any, res Resources) (Output, error)

func (f SampleFunc) ApplySample(value any, res Resources) (Output, error) { return f(value, res) }

// CorpusFunc adapts a plain function to CorpusOperation.
type CorpusFunc func(column []any, res Resources) (Output, error)

func (f CorpusFunc) ApplyCorpus(column []any, res Resources) (Output, error) { return f(column, res) }

// RecordFunc adapts a plain function to RecordOperation.
type RecordFunc func(sample map[string]any, res Resources) (Output, error)

func (f RecordFunc) ApplyRecord(sample map[string]any, res Resources) (Output, error) {
	return f(sample, res)
}

// Spec is the metadata a Descriptor is built from.
type Spec struct {
	Name            string
	Class           capability.Class
	Resources       map[string]any
	Contributor     string
	Task            string
	Description     string
	ProcessedFields []string
	GeneratedField  string
	// OutputType is the dtype of GeneratedField. Defaults to float.
	OutputType features.DType
	// Container is the sample-container kind the operation expects.
	Container string
}

// Descriptor is an immutable, registered operation.
type Descriptor struct {
	spec Spec
	mode capability.Mode
	fn   any
}

// New validates spec against fn and returns the descriptor. fn must be a
// SampleOperation, CorpusOperation or RecordOperation (or a plain function
// with one of the matching signatures) consistent with the dispatch mode of
// spec.Class. Every validation failure is a ConfigurationError.
func New(spec Spec, fn any) (*Descriptor, error) {
	subject := "operation " + spec.Name
	if spec.Name == "" {
		return nil, diag.Configf("operation", "name must not be empty")
	}
	mode, err := capability.DispatchMode(spec.Class)
	if err != nil {
		return nil, diag.Configf(subject, "%v", err)
	}

	fn = adapt(fn)
	var ok bool
	switch mode {
	case capability.PerSample:
		_, ok = fn.(SampleOperation)
	case capability.Corpus:
		_, ok = fn.(CorpusOperation)
	case capability.WholeSample:
		_, ok = fn.(RecordOperation)
	}
	if !ok {
		return nil, diag.Configf(subject, "class %s dispatches %s but function is %T", spec.Class, mode, fn)
	}
	if mode != capability.WholeSample && len(spec.ProcessedFields) == 0 {
		return nil, diag.Configf(subject, "class %s requires at least one processed field", spec.Class)
	}

	if spec.OutputType == "" {
		spec.OutputType = features.Float
	}
	if _, err := features.ParseDType(string(spec.OutputType)); err != nil {
		return nil, diag.Configf(subject, "%v", err)
	}
	if spec.Container == "" {
		spec.Container = "dataset"
	}

	spec.ProcessedFields = append([]string(nil), spec.ProcessedFields...)
	spec.Resources = copyConfig(spec.Resources)
	return &Descriptor{spec: spec, mode: mode, fn: fn}, nil
}

// MustNew is New for package-level registrations; it panics on error.
func MustNew(spec Spec, fn any) *Descriptor {
	d, err := New(spec, fn)
	if err != nil {
		panic(err)
	}
	return d
}

func adapt(fn any) any {
	switch f := fn.(type) {
	case func(any, Resources) (Output, error):
		return SampleFunc(f)
	case func([]any, Resources) (Output, error):
		return CorpusFunc(f)
	case func(map[string]any, Resources) (Output, error):
		return RecordFunc(f)
	default:
		return fn
	}
}

func (d *Descriptor) Name() string               { return d.spec.Name }
func (d *Descriptor) Class() capability.Class    { return d.spec.Class }
func (d *Descriptor) Mode() capability.Mode      { return d.mode }
func (d *Descriptor) Contributor() string        { return d.spec.Contributor }
func (d *Descriptor) Task() string               { return d.spec.Task }
func (d *Descriptor) Description() string        { return d.spec.Description }
func (d *Descriptor) GeneratedField() string     { return d.spec.GeneratedField }
func (d *Descriptor) OutputType() features.DType { return d.spec.OutputType }
func (d *Descriptor) Container() string          { return d.spec.Container }
func (d *Descriptor) ProcessedFields() []string {
	return append([]string(nil), d.spec.ProcessedFields...)
}
func (d *Descriptor) ResourceConfig() map[string]any { return copyConfig(d.spec.Resources) }

// InputField is the first processed field, the one per-sample and corpus
// dispatch read from. It is empty for whole-sample operations.
func (d *Descriptor) InputField() string {
	if len(d.spec.ProcessedFields) == 0 {
		return ""
	}
	return d.spec.ProcessedFields[0]
}

// Resources builds the per-call resources. Each call gets its own copy of
// the config map.
func (d *Descriptor) Resources(stats *trainstats.Bundle) Resources {
	return Resources{Config: copyConfig(d.spec.Resources), Stats: stats}
}

// Sample invokes a per-sample operation.
func (d *Descriptor) Sample(value any, res Resources) (Output, error) {
	op, ok := d.fn.(SampleOperation)
	if !ok || d.mode != capability.PerSample {
		return nil, fmt.Errorf("operation %q is not a per-sample operation", d.spec.Name)
	}
	return op.ApplySample(value, res)
}

// Corpus invokes a corpus-wide operation.
func (d *Descriptor) Corpus(column []any, res Resources) (Output, error) {
	op, ok := d.fn.(CorpusOperation)
	if !ok || d.mode != capability.Corpus {
		return nil, fmt.Errorf("operation %q is not a corpus operation", d.spec.Name)
	}
	return op.ApplyCorpus(column, res)
}

// Record invokes a whole-sample operation.
func (d *Descriptor) Record(sample map[string]any, res Resources) (Output, error) {
	op, ok := d.fn.(RecordOperation)
	if !ok || d.mode != capability.WholeSample {
		return nil, fmt.Errorf("operation %q is not a whole-sample operation", d.spec.Name)
	}
	return op.ApplyRecord(sample, res)
}

// copyConfig deep-copies a resource map, including nested maps and slices,
// so no caller can reach the descriptor's own copy.
func copyConfig(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return copyConfig(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = copyValue(e)
		}
		return out
	case []string:
		return append([]string(nil), x...)
	case []float64:
		return append([]float64(nil), x...)
	case []int:
		return append([]int(nil), x...)
	default:
		return v
	}
}
