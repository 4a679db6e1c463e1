package hcl

import (
	"github.com/hashicorp/hcl/v2"
)

// fileRoot decodes all possible top-level blocks from any manifest file.
type fileRoot struct {
	Tasks      []*taskBlock      `hcl:"task,block"`
	Operations []*operationBlock `hcl:"operation,block"`
	Remain     hcl.Body          `hcl:",remain"`
}

// taskBlock represents a `task` block: the label fields, metrics and feature
// declarations of one analysis task.
type taskBlock struct {
	Name               string          `hcl:"name,label"`
	Description        string          `hcl:"description,optional"`
	TrueLabel          string          `hcl:"true_label,optional"`
	PredictedLabel     string          `hcl:"predicted_label,optional"`
	Metrics            []string        `hcl:"metrics,optional"`
	ConfidenceInterval bool            `hcl:"confidence_interval,optional"`
	TrainingSplit      string          `hcl:"training_split,optional"`
	MaxCases           int             `hcl:"max_cases,optional"`
	Operations         []string        `hcl:"operations,optional"`
	Features           []*featureBlock `hcl:"feature,block"`
}

// featureBlock represents a `feature` block. The dtype is a type keyword
// expression (`string`, `int`, `float`, `dict`, `class_label`).
type featureBlock struct {
	Name               string         `hcl:"name,label"`
	Description        string         `hcl:"description,optional"`
	DType              hcl.Expression `hcl:"dtype"`
	Level              string         `hcl:"level,optional"`
	Raw                bool           `hcl:"raw,optional"`
	RequireTrainingSet bool           `hcl:"require_training_set,optional"`
	Operation          string         `hcl:"operation,optional"`
	Bucket             *bucketBlock   `hcl:"bucket,block"`
}

// bucketBlock represents the `bucket` block nested in a feature.
type bucketBlock struct {
	Strategy   string    `hcl:"strategy"`
	Number     int       `hcl:"number,optional"`
	Boundaries []float64 `hcl:"boundaries,optional"`
	TieBreak   string    `hcl:"tie_break,optional"`
}

// operationBlock represents an `operation` block binding a registered Go
// handler to descriptor metadata.
type operationBlock struct {
	Name            string         `hcl:"name,label"`
	Handler         string         `hcl:"handler"`
	Capability      string         `hcl:"capability"`
	Contributor     string         `hcl:"contributor,optional"`
	Task            string         `hcl:"task,optional"`
	Description     string         `hcl:"description,optional"`
	ProcessedFields []string       `hcl:"processed_fields,optional"`
	GeneratedField  string         `hcl:"generated_field,optional"`
	OutputType      hcl.Expression `hcl:"output_type,optional"`
	Container       string         `hcl:"container,optional"`
	Resources       hcl.Expression `hcl:"resources,optional"`
}
