package config

import (
	"fmt"
	"sort"

	"github.com/vk/bucketgrid/internal/diag"
	"github.com/vk/bucketgrid/internal/features"
)

// Model is the unified, format-agnostic representation of all loaded
// manifests.
type Model struct {
	Tasks      map[string]*TaskDefinition
	Operations map[string]*OperationDefinition
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{
		Tasks:      make(map[string]*TaskDefinition),
		Operations: make(map[string]*OperationDefinition),
	}
}

// OperationNames returns the declared operation names, sorted.
func (m *Model) OperationNames() []string {
	names := make([]string, 0, len(m.Operations))
	for n := range m.Operations {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Task returns the named task definition.
func (m *Model) Task(name string) (*TaskDefinition, error) {
	t, ok := m.Tasks[name]
	if !ok {
		return nil, diag.Configf("task", "unknown task %q", name)
	}
	return t, nil
}

// TaskDefinition is the format-agnostic representation of a `task` block.
type TaskDefinition struct {
	Name               string
	Description        string
	TrueLabel          string
	PredictedLabel     string
	Metrics            []string
	ConfidenceInterval bool
	TrainingSplit      string
	MaxCases           int
	// Operations lists extra operations to run whose generated fields are
	// not declared as features.
	Operations []string
	Features   []*FeatureDefinition
}

// FeatureDefinition is the format-agnostic representation of a `feature` block.
type FeatureDefinition struct {
	Name               string
	Description        string
	DType              string
	Level              string
	Raw                bool
	RequireTrainingSet bool
	Operation          string
	Bucket             *BucketDefinition
}

// BucketDefinition is the format-agnostic representation of a `bucket` block.
type BucketDefinition struct {
	Strategy   string
	Number     int
	Boundaries []float64
	TieBreak   string
}

// OperationDefinition is the format-agnostic representation of an
// `operation` block, binding a registered Go handler to descriptor metadata.
type OperationDefinition struct {
	Name            string
	Handler         string
	Capability      string
	Contributor     string
	Task            string
	Description     string
	ProcessedFields []string
	GeneratedField  string
	OutputType      string
	Container       string
	Resources       map[string]any
}

// Schema instantiates the task's feature schema. Features with a bucket
// block are bucket features; the others are plain declarations.
func (t *TaskDefinition) Schema() (*features.Schema, error) {
	s := features.NewSchema(t.Name)
	for _, f := range t.Features {
		dtype, err := features.ParseDType(f.DType)
		if err != nil {
			return nil, diag.Configf(fmt.Sprintf("task %s, feature %s", t.Name, f.Name), "%v", err)
		}
		d := &features.Descriptor{
			Name:               f.Name,
			Description:        f.Description,
			DType:              dtype,
			Raw:                f.Raw,
			Level:              features.Level(f.Level),
			RequireTrainingSet: f.RequireTrainingSet,
			Operation:          f.Operation,
		}
		if f.Bucket != nil {
			d.IsBucket = true
			d.Bucket = &features.BucketSpec{
				Strategy:   features.Strategy(f.Bucket.Strategy),
				Number:     f.Bucket.Number,
				Boundaries: f.Bucket.Boundaries,
				TieBreak:   features.TieBreak(f.Bucket.TieBreak),
			}
		}
		if err := s.Add(d); err != nil {
			return nil, err
		}
	}
	return s, nil
}
