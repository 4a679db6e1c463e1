package features

import (
	"fmt"

	"github.com/vk/bucketgrid/internal/diag"
)

// Schema is the ordered set of features for one task. A run works on its own
// Clone so that pruning never leaks between runs.
type Schema struct {
	Task   string
	order  []string
	byName map[string]*Descriptor
	pruned map[string]struct{}
}

// NewSchema returns an empty schema for task.
func NewSchema(task string) *Schema {
	return &Schema{
		Task:   task,
		byName: make(map[string]*Descriptor),
		pruned: make(map[string]struct{}),
	}
}

// Add validates and appends a feature. Re-adding a pruned feature is refused,
// which keeps pruning monotonic within a run.
func (s *Schema) Add(d *Descriptor) error {
	if d.Level == "" {
		d.Level = SampleLevel
	}
	if err := d.Validate(); err != nil {
		return err
	}
	if _, gone := s.pruned[d.Name]; gone {
		return fmt.Errorf("feature %q was pruned from this run and cannot be re-added", d.Name)
	}
	if _, exists := s.byName[d.Name]; exists {
		return diag.Configf("feature "+d.Name, "declared twice in task %q", s.Task)
	}
	s.byName[d.Name] = d.clone()
	s.order = append(s.order, d.Name)
	return nil
}

// AddRaw declares an input field. Raw input fields are never bucketed.
func (s *Schema) AddRaw(name string, dtype DType) error {
	return s.Add(&Descriptor{Name: name, DType: dtype, Raw: true, Level: SampleLevel})
}

// MarkGenerated records that an operation produces field with dtype. A field
// that is already declared keeps its declaration, except that a same-type
// echo of a raw input field stays raw and is never bucketed. An undeclared
// field becomes a bucket feature with the default strategy for its dtype.
func (s *Schema) MarkGenerated(field string, dtype DType, operation string) error {
	if existing, ok := s.byName[field]; ok {
		if existing.Raw && existing.DType == dtype {
			existing.IsBucket = false
			existing.Bucket = nil
		}
		if existing.Operation == "" && !existing.Raw {
			existing.Operation = operation
		}
		return nil
	}
	if _, gone := s.pruned[field]; gone {
		return nil
	}
	return s.Add(&Descriptor{
		Name:      field,
		DType:     dtype,
		IsBucket:  true,
		Bucket:    DefaultBucket(dtype),
		Level:     SampleLevel,
		Operation: operation,
	})
}

// Get returns the named feature.
func (s *Schema) Get(name string) (*Descriptor, bool) {
	d, ok := s.byName[name]
	return d, ok
}

// Has reports whether name is in the live schema.
func (s *Schema) Has(name string) bool {
	_, ok := s.byName[name]
	return ok
}

// Features returns the live features in declaration order.
func (s *Schema) Features() []*Descriptor {
	out := make([]*Descriptor, 0, len(s.order))
	for _, n := range s.order {
		out = append(out, s.byName[n])
	}
	return out
}

// BucketFeatures returns the live sample-level bucket features in declaration order.
func (s *Schema) BucketFeatures() []*Descriptor {
	var out []*Descriptor
	for _, d := range s.Features() {
		if d.IsBucket && d.Level == SampleLevel {
			out = append(out, d)
		}
	}
	return out
}

// DatasetFeatures returns the live dataset-level features in declaration order.
func (s *Schema) DatasetFeatures() []*Descriptor {
	var out []*Descriptor
	for _, d := range s.Features() {
		if d.Level == DatasetLevel {
			out = append(out, d)
		}
	}
	return out
}

// PruneTrainingDependent removes every feature that requires training-set
// statistics when none are available, and returns their names in
// declaration order. With statistics available it removes nothing.
func (s *Schema) PruneTrainingDependent(statsAvailable bool) []string {
	if statsAvailable {
		return nil
	}
	var removed []string
	kept := s.order[:0]
	for _, n := range s.order {
		if s.byName[n].RequireTrainingSet {
			removed = append(removed, n)
			delete(s.byName, n)
			s.pruned[n] = struct{}{}
			continue
		}
		kept = append(kept, n)
	}
	s.order = kept
	return removed
}

// IsPruned reports whether name was pruned from this schema.
func (s *Schema) IsPruned(name string) bool {
	_, ok := s.pruned[name]
	return ok
}

// Clone returns a deep copy, including the pruned set.
func (s *Schema) Clone() *Schema {
	c := NewSchema(s.Task)
	c.order = append(c.order, s.order...)
	for n, d := range s.byName {
		c.byName[n] = d.clone()
	}
	for n := range s.pruned {
		c.pruned[n] = struct{}{}
	}
	return c
}
