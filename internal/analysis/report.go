package analysis

import (
	"github.com/vk/bucketgrid/internal/dataset"
	"github.com/vk/bucketgrid/internal/diag"
	"github.com/vk/bucketgrid/internal/metric"
)

// Report is the result of one run.
type Report struct {
	RunID string `yaml:"run_id"`
	Task  string `yaml:"task"`
	Split string `yaml:"split"`
	// Samples is the number of samples analysed.
	Samples int `yaml:"samples"`
	// Overall holds one record per metric over the whole split.
	Overall []metric.PerformanceRecord `yaml:"overall"`
	// FineGrained holds the bucket performances of every bucket feature, in
	// schema order.
	FineGrained []FeaturePerformance `yaml:"fine_grained"`
	// DatasetFeatures holds the dataset-level values computed by
	// aggregating operations.
	DatasetFeatures map[string]any `yaml:"dataset_features,omitempty"`
	// Diagnostics is the side channel of data and evaluation problems.
	Diagnostics []diag.Diagnostic `yaml:"diagnostics,omitempty"`

	// Enriched is the sample container after SchemaCompletion.
	Enriched *dataset.Container `yaml:"-"`
}

// FeaturePerformance is the ordered bucket list of one feature.
type FeaturePerformance struct {
	Feature string              `yaml:"feature"`
	Buckets []BucketPerformance `yaml:"buckets"`
}

// BucketPerformance is one bucket's records, one per metric that could be
// evaluated on it.
type BucketPerformance struct {
	Bucket       string                     `yaml:"bucket"`
	Count        int                        `yaml:"count"`
	Performances []metric.PerformanceRecord `yaml:"performances"`
}

// Feature returns the fine-grained performance of name.
func (r *Report) Feature(name string) (FeaturePerformance, bool) {
	for _, f := range r.FineGrained {
		if f.Feature == name {
			return f, true
		}
	}
	return FeaturePerformance{}, false
}

// Bucket returns the performance of the bucket with the given display name.
func (f FeaturePerformance) Bucket(name string) (BucketPerformance, bool) {
	for _, b := range f.Buckets {
		if b.Bucket == name {
			return b, true
		}
	}
	return BucketPerformance{}, false
}

// Record returns the record for metric name.
func (b BucketPerformance) Record(name string) (metric.PerformanceRecord, bool) {
	for _, r := range b.Performances {
		if r.Metric == name {
			return r, true
		}
	}
	return metric.PerformanceRecord{}, false
}
