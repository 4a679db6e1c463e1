package hcl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/bucketgrid/internal/config"
	"github.com/vk/bucketgrid/internal/diag"
	"github.com/vk/bucketgrid/internal/features"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

const taskHCL = `
task "text_classification" {
  description         = "Sentence-level sentiment."
  metrics             = ["accuracy", "f1_macro"]
  confidence_interval = true
  training_split      = "sst2/train"
  max_cases           = 3
  operations          = ["lowercase"]

  feature "text" {
    dtype = string
    raw   = true
  }

  feature "true_label" {
    dtype = class_label
    bucket {
      strategy  = "discrete"
      number    = 5
      tie_break = "lexical"
    }
  }

  feature "length" {
    dtype     = int
    operation = "get_length"
    bucket {
      strategy = "range"
    }
  }

  feature "fre_rank" {
    dtype                = "float"
    require_training_set = true
    bucket {
      strategy   = "range"
      boundaries = [0, 10, 100]
    }
  }

  feature "vocab_size" {
    dtype = int
    level = "dataset"
  }
}
`

const operationHCL = `
operation "get_length" {
  handler          = "GetLength"
  capability       = "Featurizing"
  contributor      = "datalab"
  processed_fields = ["text"]
  generated_field  = "length"
  output_type      = int
  resources = {
    tokenizer = "whitespace"
    lowercase = true
    window    = 3
    weights   = [0.5, 1]
  }
}

operation "vocab" {
  handler          = "Vocabulary"
  capability       = "aggregating"
  processed_fields = ["text"]
}
`

func TestLoader_LoadsTasksAndOperations(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	root := writeFiles(t, map[string]string{
		"tasks/text.hcl":      taskHCL,
		"operations/text.hcl": operationHCL,
		"README.md":           "not a manifest",
	})

	// --- Act ---
	model, err := NewLoader().Load(context.Background(), root)

	// --- Assert ---
	require.NoError(t, err)
	require.Len(t, model.Tasks, 1)
	require.Equal(t, []string{"get_length", "vocab"}, model.OperationNames())

	task := model.Tasks["text_classification"]
	assert.Equal(t, "true_label", task.TrueLabel)
	assert.Equal(t, "predicted_label", task.PredictedLabel)
	assert.Equal(t, []string{"accuracy", "f1_macro"}, task.Metrics)
	assert.True(t, task.ConfidenceInterval)
	assert.Equal(t, 3, task.MaxCases)
	assert.Equal(t, []string{"lowercase"}, task.Operations)
	require.Len(t, task.Features, 5)

	length := task.Features[2]
	assert.Equal(t, "int", length.DType)
	assert.Equal(t, "get_length", length.Operation)
	assert.Equal(t, features.DefaultRangeBuckets, length.Bucket.Number)

	fre := task.Features[3]
	assert.Equal(t, "float", fre.DType)
	assert.True(t, fre.RequireTrainingSet)
	assert.Equal(t, []float64{0, 10, 100}, fre.Bucket.Boundaries)

	op := model.Operations["get_length"]
	want := &config.OperationDefinition{
		Name:            "get_length",
		Handler:         "GetLength",
		Capability:      "Featurizing",
		Contributor:     "datalab",
		ProcessedFields: []string{"text"},
		GeneratedField:  "length",
		OutputType:      "int",
		Resources: map[string]any{
			"tokenizer": "whitespace",
			"lowercase": true,
			"window":    3,
			"weights":   []any{0.5, 1},
		},
	}
	if diff := cmp.Diff(want, op); diff != "" {
		t.Errorf("operation mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "float", model.Operations["vocab"].OutputType)
	assert.Empty(t, model.Operations["vocab"].Resources)

	schema, err := task.Schema()
	require.NoError(t, err)
	assert.Len(t, schema.BucketFeatures(), 3)
	assert.Len(t, schema.DatasetFeatures(), 1)
}

func TestLoader_Rejections(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"syntax error": `task "a" {`,
		"unknown dtype": `task "a" {
  feature "x" {
    dtype = tensor
  }
}`,
		"duplicate feature": `task "a" {
  feature "x" { dtype = int }
  feature "x" { dtype = int }
}`,
		"resources not an object": `operation "o" {
  handler    = "H"
  capability = "editing"
  resources  = "nope"
}`,
	}
	for name, content := range cases {
		root := writeFiles(t, map[string]string{"main.hcl": content})
		_, err := NewLoader().Load(context.Background(), root)
		assert.Error(t, err, name)
	}

	root := writeFiles(t, map[string]string{
		"a.hcl": `task "dup" {}`,
		"b.hcl": `task "dup" {}`,
	})
	_, err := NewLoader().Load(context.Background(), root)
	require.Error(t, err)
	assert.True(t, diag.IsConfiguration(err))
}
