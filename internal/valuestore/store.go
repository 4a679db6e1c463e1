// Package valuestore defines the interface for storing the per-sample
// feature values an analysis run extracts.
//
// The store separates mutable run state from the immutable inputs (the
// sample container and the feature schema). It is:
//  1. Created once per analysis run.
//  2. Written concurrently by schema completion, one feature per worker.
//     Samples whose value could not be extracted are never written.
//  3. Read column by column by the bucketing phase.
//  4. Discarded when the run ends.
package valuestore

import (
	"context"
	"fmt"
)

// Key addresses one cell of the value table.
type Key struct {
	Feature  string
	SampleID int
}

func (k Key) String() string {
	return fmt.Sprintf("%s[%d]", k.Feature, k.SampleID)
}

// Store holds normalized feature values keyed by (feature, sample id).
//
// Implementations MUST be safe for concurrent reads and writes.
type Store interface {
	// SetValue records the normalized value of a feature for one sample.
	SetValue(ctx context.Context, key Key, value any) error

	// Column returns the values of feature for sample ids [0, n) together
	// with a presence mask. A false entry means no value was recorded.
	Column(ctx context.Context, feature string, n int) ([]any, []bool, error)
}
