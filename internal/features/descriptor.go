// Package features declares the fields a sample or dataset may carry for a
// task and whether each participates in bucketed analysis.
package features

import (
	"github.com/vk/bucketgrid/internal/diag"
)

// Level says whether a feature is computed per sample or once per split.
type Level string

const (
	SampleLevel  Level = "sample"
	DatasetLevel Level = "dataset"
)

// Strategy selects how a bucket feature is partitioned.
type Strategy string

const (
	Discrete Strategy = "discrete"
	Range    Strategy = "range"
)

// TieBreak orders discrete values of equal frequency when the bucket cap
// forces a merge into the "other" bucket.
type TieBreak string

const (
	FirstSeen TieBreak = "first_seen"
	Lexical   TieBreak = "lexical"
)

// Default bucket counts used when a generated field is promoted to a bucket
// feature without an explicit bucket declaration.
const (
	DefaultRangeBuckets    = 4
	DefaultDiscreteBuckets = 10
)

// BucketSpec carries the strategy and its parameters.
type BucketSpec struct {
	Strategy   Strategy
	Number     int
	Boundaries []float64
	TieBreak   TieBreak
}

// Descriptor is one declared feature.
type Descriptor struct {
	Name               string
	Description        string
	DType              DType
	IsBucket           bool
	Bucket             *BucketSpec
	Raw                bool
	Level              Level
	RequireTrainingSet bool
	// Operation names the descriptor that computes this feature. Empty means
	// the value is read from the sample field of the same name.
	Operation string
}

// DefaultBucket returns the bucket spec a feature of dtype d gets when none
// is declared.
func DefaultBucket(d DType) *BucketSpec {
	if d.Numeric() {
		return &BucketSpec{Strategy: Range, Number: DefaultRangeBuckets}
	}
	return &BucketSpec{Strategy: Discrete, Number: DefaultDiscreteBuckets, TieBreak: FirstSeen}
}

// Validate checks the descriptor's invariants. Every failure is a
// ConfigurationError.
func (d *Descriptor) Validate() error {
	if d.Name == "" {
		return diag.Configf("feature", "name must not be empty")
	}
	if _, err := ParseDType(string(d.DType)); err != nil {
		return diag.Configf("feature "+d.Name, "%v", err)
	}
	switch d.Level {
	case SampleLevel, DatasetLevel:
	default:
		return diag.Configf("feature "+d.Name, "unknown feature level %q", d.Level)
	}
	if !d.IsBucket {
		return nil
	}
	if d.Level == DatasetLevel {
		return diag.Configf("feature "+d.Name, "dataset-level features cannot be bucketed")
	}
	if d.Bucket == nil {
		return diag.Configf("feature "+d.Name, "bucket feature has no bucket strategy")
	}
	return d.Bucket.validate(d.Name, d.DType)
}

func (b *BucketSpec) validate(feature string, dtype DType) error {
	subject := "feature " + feature
	switch b.Strategy {
	case Discrete:
		if b.Number < 1 {
			return diag.Configf(subject, "discrete bucket cap must be at least 1, got %d", b.Number)
		}
		if len(b.Boundaries) > 0 {
			return diag.Configf(subject, "boundaries are only valid for range bucketing")
		}
		switch b.TieBreak {
		case "", FirstSeen, Lexical:
		default:
			return diag.Configf(subject, "unknown tie-break policy %q", b.TieBreak)
		}
	case Range:
		if !dtype.Numeric() {
			return diag.Configf(subject, "range bucketing requires a numeric dtype, got %s", dtype)
		}
		if len(b.Boundaries) == 0 && b.Number < 1 {
			return diag.Configf(subject, "range bucket count must be at least 1, got %d", b.Number)
		}
		if len(b.Boundaries) == 1 {
			return diag.Configf(subject, "explicit boundaries need at least two edges")
		}
		for i := 1; i < len(b.Boundaries); i++ {
			if b.Boundaries[i] <= b.Boundaries[i-1] {
				return diag.Configf(subject, "boundaries must be strictly increasing")
			}
		}
	default:
		return diag.Configf(subject, "unknown bucket strategy %q", b.Strategy)
	}
	return nil
}

func (d *Descriptor) clone() *Descriptor {
	c := *d
	if d.Bucket != nil {
		b := *d.Bucket
		b.Boundaries = append([]float64(nil), d.Bucket.Boundaries...)
		c.Bucket = &b
	}
	return &c
}
