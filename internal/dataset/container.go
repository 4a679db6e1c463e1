// Package dataset wraps a split's raw samples and dispatches operation
// descriptors against them according to their capability class.
package dataset

import (
	"context"
	"fmt"

	"github.com/vk/bucketgrid/internal/capability"
	"github.com/vk/bucketgrid/internal/ctxlog"
	"github.com/vk/bucketgrid/internal/diag"
	"github.com/vk/bucketgrid/internal/operation"
	"github.com/vk/bucketgrid/internal/trainstats"
)

// DefaultKind is the container kind operations expect unless they say
// otherwise.
const DefaultKind = "dataset"

// Sample is one field-name to value mapping. Its identifier is its ordinal
// position within the split.
type Sample map[string]any

// Clone returns a shallow copy of the sample mapping.
func (s Sample) Clone() Sample {
	out := make(Sample, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Container holds the samples of one split. Containers are never modified
// in place; Apply returns a new container.
type Container struct {
	split   string
	kind    string
	samples []Sample
}

// New wraps samples. The slice is copied but the sample maps are shared, so
// callers must not mutate them afterwards.
func New(split string, samples []Sample) *Container {
	return &Container{
		split:   split,
		kind:    DefaultKind,
		samples: append([]Sample(nil), samples...),
	}
}

// Split returns the split identifier.
func (c *Container) Split() string { return c.split }

// Kind returns the container kind operations are checked against.
func (c *Container) Kind() string { return c.kind }

// Len returns the number of samples.
func (c *Container) Len() int { return len(c.samples) }

// Sample returns a copy of the sample with ordinal id.
func (c *Container) Sample(id int) Sample { return c.samples[id].Clone() }

// Value returns field of sample id without copying the sample.
func (c *Container) Value(id int, field string) (any, bool) {
	v, ok := c.samples[id][field]
	return v, ok
}

// Samples returns copies of all samples in ordinal order.
func (c *Container) Samples() []Sample {
	out := make([]Sample, len(c.samples))
	for i, s := range c.samples {
		out[i] = s.Clone()
	}
	return out
}

// Column returns the values of field in ordinal order together with the ids
// they came from. Samples without the field are skipped and reported.
func (c *Container) Column(field string) ([]any, []int, []error) {
	var (
		values []any
		ids    []int
		errs   []error
	)
	for id, s := range c.samples {
		v, ok := s[field]
		if !ok {
			errs = append(errs, &diag.DataError{SampleID: id, Feature: field, Err: fmt.Errorf("missing field %q", field)})
			continue
		}
		values = append(values, v)
		ids = append(ids, id)
	}
	return values, ids, errs
}

// Result is the outcome of applying one descriptor.
type Result struct {
	// Container holds the enriched samples. For corpus operations it is the
	// input container unchanged.
	Container *Container
	// Dataset holds the dataset-level output of a corpus operation.
	Dataset operation.Output
	// Errors are the DataErrors of individual samples, in ordinal order.
	Errors []error
}

type applyConfig struct {
	stats   *trainstats.Bundle
	workers int
}

// ApplyOption customizes Apply.
type ApplyOption func(*applyConfig)

// WithStats hands the training statistics bundle to the operation.
func WithStats(b *trainstats.Bundle) ApplyOption {
	return func(c *applyConfig) { c.stats = b }
}

// WithWorkers partitions per-sample dispatch across n workers. Values below
// two mean sequential execution.
func WithWorkers(n int) ApplyOption {
	return func(c *applyConfig) { c.workers = n }
}

// Apply runs d against the container. The dispatch rule is chosen from the
// descriptor's capability class:
//
//   - per-sample classes read sample[processed_fields[0]] and merge the
//     returned fields into a copy of the sample;
//   - aggregating reads the whole column once and yields dataset-level
//     values;
//   - every other class receives the whole sample mapping.
//
// A missing processed field or a failing call is a DataError for that sample
// only. Cancellation is checked before every sample and aborts the whole
// call with diag.ErrCancelled.
func (c *Container) Apply(ctx context.Context, d *operation.Descriptor, opts ...ApplyOption) (*Result, error) {
	cfg := applyConfig{}
	for _, o := range opts {
		o(&cfg)
	}
	if d.Container() != c.kind {
		return nil, diag.Configf("operation "+d.Name(), "expects a %q container, got %q", d.Container(), c.kind)
	}

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Applying operation.", "operation", d.Name(), "class", d.Class().String(), "split", c.split, "samples", len(c.samples))

	switch d.Mode() {
	case capability.PerSample, capability.WholeSample:
		return c.applyPerSample(ctx, d, cfg)
	case capability.Corpus:
		return c.applyCorpus(ctx, d, cfg)
	default:
		return nil, diag.Configf("operation "+d.Name(), "unsupported dispatch mode %s", d.Mode())
	}
}

func (c *Container) applyCorpus(ctx context.Context, d *operation.Descriptor, cfg applyConfig) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", diag.ErrCancelled, err)
	}
	column, _, errs := c.Column(d.InputField())
	out, err := d.Corpus(column, d.Resources(cfg.stats))
	if err != nil {
		errs = append(errs, &diag.DataError{SampleID: -1, Feature: d.GeneratedField(), Err: fmt.Errorf("operation %q: %w", d.Name(), err)})
	}
	return &Result{Container: c, Dataset: out, Errors: errs}, nil
}

// applyOne computes the enriched form of one sample. It never mutates in.
func applyOne(id int, in Sample, d *operation.Descriptor, res operation.Resources) (Sample, error) {
	var (
		out operation.Output
		err error
	)
	if d.Mode() == capability.WholeSample {
		out, err = d.Record(in.Clone(), res)
	} else {
		v, ok := in[d.InputField()]
		if !ok {
			return in, &diag.DataError{SampleID: id, Feature: d.InputField(), Err: fmt.Errorf("missing field %q", d.InputField())}
		}
		out, err = d.Sample(v, res)
	}
	if err != nil {
		return in, &diag.DataError{SampleID: id, Feature: d.GeneratedField(), Err: fmt.Errorf("operation %q: %w", d.Name(), err)}
	}

	enriched := in.Clone()
	for k, v := range out {
		enriched[k] = v
	}
	return enriched, nil
}
