package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/bucketgrid/internal/diag"
)

func TestParse(t *testing.T) {
	t.Parallel()

	cases := map[string]Class{
		"Editing":           Editing,
		"preprocessing":     Preprocessing,
		" Featurizing ":     Featurizing,
		"aggregating":       Aggregating,
		"DatasetOperation":  DatasetOperation,
		"dataset_operation": DatasetOperation,
		"AutoEval":          AutoEval,
		"function":          Function,
	}
	for token, want := range cases {
		got, err := Parse(token)
		require.NoError(t, err, token)
		assert.Equal(t, want, got, token)
	}
}

func TestParse_UnknownIsConfigurationError(t *testing.T) {
	t.Parallel()

	_, err := Parse("translating")
	require.Error(t, err)
	assert.True(t, diag.IsConfiguration(err))
	assert.Contains(t, err.Error(), `"translating"`)
}

func TestDispatchMode_Exhaustive(t *testing.T) {
	t.Parallel()

	want := map[Class]Mode{
		Editing:          PerSample,
		Preprocessing:    PerSample,
		Featurizing:      PerSample,
		Function:         PerSample,
		Aggregating:      Corpus,
		DatasetOperation: WholeSample,
		AutoEval:         WholeSample,
	}
	for _, c := range All {
		mode, err := DispatchMode(c)
		require.NoError(t, err, c.String())
		assert.Equal(t, want[c], mode, c.String())
	}

	_, err := DispatchMode(Unclassified)
	assert.True(t, diag.IsConfiguration(err))
}
