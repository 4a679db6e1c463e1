package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/bucketgrid/internal/metric"
)

func newEvaluator() *metric.Evaluator {
	r := metric.NewRegistry()
	(&Module{}).RegisterMetrics(r)
	return metric.NewEvaluator(r)
}

func TestAccuracy_WithInterval(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	e := newEvaluator()
	trueLabels := []any{1, 0, 1, 1}
	predicted := []any{1, 0, 0, 1}

	// --- Act ---
	rec, err := e.Evaluate(trueLabels, predicted, "accuracy", true)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, 0.75, rec.Value)
	assert.Equal(t, 4, rec.Count)
	assert.LessOrEqual(t, rec.CILow, rec.Value)
	assert.GreaterOrEqual(t, rec.CIHigh, rec.Value)
	assert.GreaterOrEqual(t, rec.CILow, 0.0)
	assert.LessOrEqual(t, rec.CIHigh, 1.0)
}

func TestInterval_IsDeterministic(t *testing.T) {
	t.Parallel()

	e := newEvaluator()
	trueLabels := []any{"a", "b", "c", "a", "b", "c", "a", "a", "b", "c"}
	predicted := []any{"a", "b", "b", "a", "c", "c", "a", "b", "b", "a"}

	first, err := e.Evaluate(trueLabels, predicted, "f1_macro", true)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := e.Evaluate(trueLabels, predicted, "f1_macro", true)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Less(t, first.CILow, first.CIHigh)
}

func TestF1Macro(t *testing.T) {
	t.Parallel()

	m := &F1Macro{}

	testCases := []struct {
		name      string
		trueLabel []any
		predicted []any
		want      float64
	}{
		{name: "perfect", trueLabel: []any{"a", "b"}, predicted: []any{"a", "b"}, want: 1},
		{name: "all wrong", trueLabel: []any{"a", "b"}, predicted: []any{"b", "a"}, want: 0},
		// class 1: tp=1 fp=0 fn=1 -> 2/3; class 0: tp=1 fp=1 fn=0 -> 2/3
		{name: "mixed", trueLabel: []any{1, 0, 1}, predicted: []any{1, 0, 0}, want: 2.0 / 3},
		{name: "float labels match ints", trueLabel: []any{1.0, 0.0}, predicted: []any{1, 0}, want: 1},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := m.Compute(tc.trueLabel, tc.predicted)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-12)
		})
	}
}

func TestAccuracy_Empty(t *testing.T) {
	t.Parallel()

	_, err := (&Accuracy{}).Compute(nil, nil)
	assert.Error(t, err)
	_, _, err = (&Accuracy{}).ConfidenceInterval(nil, nil)
	assert.Error(t, err)
}
