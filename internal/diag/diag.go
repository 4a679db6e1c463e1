package diag

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Kind classifies a diagnostic entry.
type Kind string

const (
	KindInfo       Kind = "info"
	KindData       Kind = "data"
	KindEvaluation Kind = "evaluation"
)

// Diagnostic is one entry of the side channel returned with a report.
type Diagnostic struct {
	Kind     Kind   `yaml:"kind"`
	Feature  string `yaml:"feature,omitempty"`
	Bucket   string `yaml:"bucket,omitempty"`
	SampleID int    `yaml:"sample_id"`
	Message  string `yaml:"message"`
}

func (d Diagnostic) String() string { return d.Message }

// Collector accumulates diagnostics from concurrent workers. Entries are
// returned in a deterministic order regardless of which worker recorded them.
type Collector struct {
	mu      sync.Mutex
	entries []Diagnostic
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Note records an informational message, such as a pruned feature.
func (c *Collector) Note(format string, args ...any) {
	c.add(Diagnostic{Kind: KindInfo, SampleID: -1, Message: fmt.Sprintf(format, args...)})
}

// Record classifies err and stores it. Errors that are neither DataError nor
// EvaluationError are stored as data diagnostics without a sample id.
func (c *Collector) Record(err error) {
	var de *DataError
	var ee *EvaluationError
	switch {
	case errors.As(err, &de):
		c.add(Diagnostic{Kind: KindData, Feature: de.Feature, SampleID: de.SampleID, Message: de.Error()})
	case errors.As(err, &ee):
		c.add(Diagnostic{Kind: KindEvaluation, Feature: ee.Feature, Bucket: ee.Bucket, SampleID: -1, Message: ee.Error()})
	default:
		c.add(Diagnostic{Kind: KindData, SampleID: -1, Message: err.Error()})
	}
}

func (c *Collector) add(d Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, d)
}

// Len returns the number of recorded entries.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// List returns the entries ordered by kind (info, data, evaluation), then
// feature, then sample id, then message. Concurrent recording order does not
// leak into the result.
func (c *Collector) List() []Diagnostic {
	c.mu.Lock()
	out := make([]Diagnostic, len(c.entries))
	copy(out, c.entries)
	c.mu.Unlock()

	rank := map[Kind]int{KindInfo: 0, KindData: 1, KindEvaluation: 2}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if rank[a.Kind] != rank[b.Kind] {
			return rank[a.Kind] < rank[b.Kind]
		}
		if a.Kind == KindInfo {
			return false
		}
		if a.Feature != b.Feature {
			return a.Feature < b.Feature
		}
		if a.SampleID != b.SampleID {
			return a.SampleID < b.SampleID
		}
		if a.Bucket != b.Bucket {
			return a.Bucket < b.Bucket
		}
		return a.Message < b.Message
	})
	return out
}

// Count returns how many entries of the given kind were recorded.
func (c *Collector) Count(kind Kind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, d := range c.entries {
		if d.Kind == kind {
			n++
		}
	}
	return n
}
