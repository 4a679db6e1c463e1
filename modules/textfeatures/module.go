// Package textfeatures provides the built-in text operations: whitespace
// length, lowercasing, truncation, vocabulary and length aggregation,
// training-set frequency rank and a label-agreement evaluation field.
package textfeatures

import (
	"github.com/vk/bucketgrid/internal/capability"
	"github.com/vk/bucketgrid/internal/features"
	"github.com/vk/bucketgrid/internal/operation"
	"github.com/vk/bucketgrid/internal/registry"
)

const contributor = "bucketgrid"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the handlers manifests can bind to, and the built-in
// descriptors that use them.
func (m *Module) Register(r *registry.Registry) {
	h := r.Handlers()
	h.RegisterHandler("GetLength", GetLength)
	h.RegisterHandler("Lowercase", Lowercase)
	h.RegisterHandler("Truncate", Truncate)
	h.RegisterHandler("VocabularySize", VocabularySize)
	h.RegisterHandler("AverageLength", AverageLength)
	h.RegisterHandler("FrequencyRank", FrequencyRank)
	h.RegisterHandler("LabelAgreement", LabelAgreement)

	r.Register(operation.MustNew(operation.Spec{
		Name:            "get_length",
		Class:           capability.Featurizing,
		Contributor:     contributor,
		Task:            "text_classification",
		Description:     "Number of whitespace-separated tokens.",
		ProcessedFields: []string{"text"},
		GeneratedField:  "length",
		OutputType:      features.Int,
	}, GetLength))
	r.Register(operation.MustNew(operation.Spec{
		Name:            "lowercase",
		Class:           capability.Preprocessing,
		Contributor:     contributor,
		Description:     "Lowercased copy of the text.",
		ProcessedFields: []string{"text"},
		GeneratedField:  "text_lower",
		OutputType:      features.String,
	}, Lowercase))
	r.Register(operation.MustNew(operation.Spec{
		Name:            "truncate",
		Class:           capability.Editing,
		Contributor:     contributor,
		Description:     "Text cut to at most max_tokens tokens.",
		ProcessedFields: []string{"text"},
		GeneratedField:  "text_truncated",
		OutputType:      features.String,
		Resources:       map[string]any{"max_tokens": 64},
	}, Truncate))
	r.Register(operation.MustNew(operation.Spec{
		Name:            "vocabulary_size",
		Class:           capability.Aggregating,
		Contributor:     contributor,
		Task:            "text_classification",
		Description:     "Number of distinct tokens in the split.",
		ProcessedFields: []string{"text"},
		GeneratedField:  "vocabulary_size",
		OutputType:      features.Int,
	}, VocabularySize))
	r.Register(operation.MustNew(operation.Spec{
		Name:            "average_length",
		Class:           capability.Aggregating,
		Contributor:     contributor,
		Task:            "text_classification",
		Description:     "Mean token count of the split.",
		ProcessedFields: []string{"text"},
		GeneratedField:  "average_length",
		OutputType:      features.Float,
	}, AverageLength))
	r.Register(operation.MustNew(operation.Spec{
		Name:            "fre_rank",
		Class:           capability.Featurizing,
		Contributor:     contributor,
		Task:            "text_classification",
		Description:     "Mean training-set frequency rank of the tokens.",
		ProcessedFields: []string{"text"},
		GeneratedField:  "fre_rank",
		OutputType:      features.Float,
	}, FrequencyRank))
	r.Register(operation.MustNew(operation.Spec{
		Name:           "label_agreement",
		Class:          capability.AutoEval,
		Contributor:    contributor,
		Description:    "Whether the prediction matches the reference label.",
		GeneratedField: "agreement",
		OutputType:     features.ClassLabel,
		Resources:      map[string]any{"true_field": "true_label", "predicted_field": "predicted_label"},
	}, LabelAgreement))
}
