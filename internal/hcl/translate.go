// This file translates decoded HCL blocks into the format-agnostic model
// defined in the config package.

package hcl

import (
	"context"
	"fmt"

	"github.com/vk/bucketgrid/internal/config"
	"github.com/vk/bucketgrid/internal/diag"
	"github.com/vk/bucketgrid/internal/features"
)

const (
	defaultTrueLabel      = "true_label"
	defaultPredictedLabel = "predicted_label"
)

// translateTask converts a task block into the agnostic model.
func (l *Loader) translateTask(ctx context.Context, b *taskBlock) (*config.TaskDefinition, error) {
	t := &config.TaskDefinition{
		Name:               b.Name,
		Description:        b.Description,
		TrueLabel:          b.TrueLabel,
		PredictedLabel:     b.PredictedLabel,
		Metrics:            append([]string(nil), b.Metrics...),
		ConfidenceInterval: b.ConfidenceInterval,
		TrainingSplit:      b.TrainingSplit,
		MaxCases:           b.MaxCases,
		Operations:         append([]string(nil), b.Operations...),
	}
	if t.TrueLabel == "" {
		t.TrueLabel = defaultTrueLabel
	}
	if t.PredictedLabel == "" {
		t.PredictedLabel = defaultPredictedLabel
	}
	if t.MaxCases < 0 {
		return nil, diag.Configf("task "+b.Name, "max_cases must not be negative")
	}

	seen := make(map[string]struct{}, len(b.Features))
	for _, fb := range b.Features {
		if _, dup := seen[fb.Name]; dup {
			return nil, diag.Configf("task "+b.Name, "feature %q declared twice", fb.Name)
		}
		seen[fb.Name] = struct{}{}

		f, err := l.translateFeature(ctx, b.Name, fb)
		if err != nil {
			return nil, err
		}
		t.Features = append(t.Features, f)
	}
	return t, nil
}

// translateFeature converts a feature block into the agnostic model.
func (l *Loader) translateFeature(ctx context.Context, task string, b *featureBlock) (*config.FeatureDefinition, error) {
	dtype, err := typeExprToDType(ctx, b.DType, "")
	if err != nil {
		return nil, diag.Configf(fmt.Sprintf("task %s, feature %s", task, b.Name), "%v", err)
	}
	f := &config.FeatureDefinition{
		Name:               b.Name,
		Description:        b.Description,
		DType:              string(dtype),
		Level:              b.Level,
		Raw:                b.Raw,
		RequireTrainingSet: b.RequireTrainingSet,
		Operation:          b.Operation,
	}
	if f.Level == "" {
		f.Level = string(features.SampleLevel)
	}
	if b.Bucket != nil {
		f.Bucket = &config.BucketDefinition{
			Strategy:   b.Bucket.Strategy,
			Number:     b.Bucket.Number,
			Boundaries: append([]float64(nil), b.Bucket.Boundaries...),
			TieBreak:   b.Bucket.TieBreak,
		}
		if f.Bucket.Number == 0 && len(f.Bucket.Boundaries) == 0 {
			f.Bucket.Number = features.DefaultBucket(dtype).Number
		}
	}
	return f, nil
}

// translateOperation converts an operation block into the agnostic model.
func (l *Loader) translateOperation(ctx context.Context, b *operationBlock) (*config.OperationDefinition, error) {
	subject := "operation " + b.Name
	outputType, err := typeExprToDType(ctx, b.OutputType, features.Float)
	if err != nil {
		return nil, diag.Configf(subject, "%v", err)
	}

	resources := map[string]any{}
	if b.Resources != nil {
		val, diags := b.Resources.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("in %s, resources: %w", subject, diags)
		}
		resources, err = resourcesToGo(val)
		if err != nil {
			return nil, diag.Configf(subject, "%v", err)
		}
	}

	return &config.OperationDefinition{
		Name:            b.Name,
		Handler:         b.Handler,
		Capability:      b.Capability,
		Contributor:     b.Contributor,
		Task:            b.Task,
		Description:     b.Description,
		ProcessedFields: append([]string(nil), b.ProcessedFields...),
		GeneratedField:  b.GeneratedField,
		OutputType:      string(outputType),
		Container:       b.Container,
		Resources:       resources,
	}, nil
}
