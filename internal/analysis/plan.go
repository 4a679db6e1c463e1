package analysis

import (
	"github.com/vk/bucketgrid/internal/config"
	"github.com/vk/bucketgrid/internal/features"
)

// Plan is the task-level input of a run.
type Plan struct {
	Task               string
	Schema             *features.Schema
	TrueLabel          string
	PredictedLabel     string
	Metrics            []string
	ConfidenceInterval bool
	// TrainingSplit selects the statistics bundle training-dependent
	// features need.
	TrainingSplit string
	// MaxCases caps the misclassified sample ids collected per bucket.
	// Zero disables case collection.
	MaxCases int
	// Operations lists extra operations to run.
	Operations []string
}

// NewPlan instantiates a plan from a task definition.
func NewPlan(t *config.TaskDefinition) (*Plan, error) {
	s, err := t.Schema()
	if err != nil {
		return nil, err
	}
	return &Plan{
		Task:               t.Name,
		Schema:             s,
		TrueLabel:          t.TrueLabel,
		PredictedLabel:     t.PredictedLabel,
		Metrics:            append([]string(nil), t.Metrics...),
		ConfidenceInterval: t.ConfidenceInterval,
		TrainingSplit:      t.TrainingSplit,
		MaxCases:           t.MaxCases,
		Operations:         append([]string(nil), t.Operations...),
	}, nil
}
