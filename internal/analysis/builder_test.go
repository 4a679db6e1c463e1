package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/bucketgrid/internal/capability"
	"github.com/vk/bucketgrid/internal/dataset"
	"github.com/vk/bucketgrid/internal/diag"
	"github.com/vk/bucketgrid/internal/features"
	"github.com/vk/bucketgrid/internal/metric"
	"github.com/vk/bucketgrid/internal/operation"
	"github.com/vk/bucketgrid/internal/registry"
	"github.com/vk/bucketgrid/internal/telemetry"
	"github.com/vk/bucketgrid/internal/trainstats"
	"github.com/vk/bucketgrid/modules/metrics"
	"github.com/vk/bucketgrid/modules/textfeatures"
)

const task = "text_classification"

func newBuilder(t *testing.T, opts ...Option) (*Builder, *registry.Registry) {
	t.Helper()
	ops := registry.New(nil)
	(&textfeatures.Module{}).Register(ops)
	mr := metric.NewRegistry()
	(&metrics.Module{Iterations: 200}).RegisterMetrics(mr)
	opts = append([]Option{WithRunID(func() string { return "run-1" })}, opts...)
	return NewBuilder(ops, metric.NewEvaluator(mr), opts...), ops
}

func newPlan(t *testing.T, extra ...*features.Descriptor) *Plan {
	t.Helper()
	s := features.NewSchema(task)
	require.NoError(t, s.AddRaw("text", features.String))
	require.NoError(t, s.Add(&features.Descriptor{
		Name: "true_label", DType: features.ClassLabel, IsBucket: true,
		Bucket: features.DefaultBucket(features.ClassLabel),
	}))
	require.NoError(t, s.Add(&features.Descriptor{
		Name: "length", DType: features.Int, IsBucket: true, Operation: "get_length",
		Bucket: &features.BucketSpec{Strategy: features.Range, Number: 2},
	}))
	for _, d := range extra {
		require.NoError(t, s.Add(d))
	}
	return &Plan{
		Task:           task,
		Schema:         s,
		TrueLabel:      "true_label",
		PredictedLabel: "predicted_label",
		Metrics:        []string{"accuracy"},
		TrainingSplit:  "toy/train",
	}
}

func fourSamples() *dataset.Container {
	return dataset.New("toy/test", []dataset.Sample{
		{"text": "a b", "true_label": 1, "predicted_label": 1},
		{"text": "a b c", "true_label": 0, "predicted_label": 0},
		{"text": "a", "true_label": 1, "predicted_label": 0},
		{"text": "a b c d", "true_label": 1, "predicted_label": 1},
	})
}

func freRank() *features.Descriptor {
	return &features.Descriptor{
		Name: "fre_rank", DType: features.Float, IsBucket: true, RequireTrainingSet: true,
		Operation: "fre_rank", Bucket: &features.BucketSpec{Strategy: features.Range, Number: 2},
	}
}

func TestRun_OverallAndFineGrained(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	b, _ := newBuilder(t)

	// --- Act ---
	report, err := b.Run(context.Background(), newPlan(t), fourSamples(), nil)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, 4, report.Samples)
	require.Len(t, report.Overall, 1)
	assert.Equal(t, 0.75, report.Overall[0].Value)
	assert.LessOrEqual(t, report.Overall[0].CILow, 0.75)
	assert.GreaterOrEqual(t, report.Overall[0].CIHigh, 0.75)

	require.Len(t, report.FineGrained, 2)
	assert.Equal(t, "true_label", report.FineGrained[0].Feature)
	assert.Equal(t, "length", report.FineGrained[1].Feature)

	label := report.FineGrained[0]
	require.Len(t, label.Buckets, 2)
	assert.Equal(t, "1", label.Buckets[0].Bucket)
	assert.Equal(t, 3, label.Buckets[0].Count)
	acc, ok := label.Buckets[0].Record("accuracy")
	require.True(t, ok)
	assert.Equal(t, 0.6667, acc.Value)
	assert.Equal(t, "0", label.Buckets[1].Bucket)

	length := report.FineGrained[1]
	var names []string
	for _, bp := range length.Buckets {
		names = append(names, bp.Bucket)
	}
	assert.Equal(t, []string{"[1,3)", "[3,4]"}, names)
	short, _ := length.Bucket("[1,3)")
	acc, _ = short.Record("accuracy")
	assert.Equal(t, 0.5, acc.Value)
	assert.Equal(t, 2, short.Count)

	// Every record keeps its value inside its interval.
	for _, fp := range report.FineGrained {
		for _, bp := range fp.Buckets {
			for _, rec := range bp.Performances {
				assert.LessOrEqual(t, rec.CILow, rec.Value)
				assert.GreaterOrEqual(t, rec.CIHigh, rec.Value)
			}
		}
	}

	assert.Equal(t, dataset.Sample{"text": "a b", "true_label": 1, "predicted_label": 1, "length": 2}, report.Enriched.Sample(0))
	assert.Empty(t, report.Diagnostics)
}

func TestRun_PrunesTrainingDependentFeatureWithoutStats(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	b, _ := newBuilder(t)
	plan := newPlan(t, freRank())

	// --- Act ---
	report, err := b.Run(context.Background(), plan, fourSamples(), nil)

	// --- Assert ---
	require.NoError(t, err)
	_, present := report.Feature("fre_rank")
	assert.False(t, present)
	assert.NotContains(t, report.Enriched.Sample(0), "fre_rank")

	var notes []string
	for _, d := range report.Diagnostics {
		if d.Kind == diag.KindInfo {
			notes = append(notes, d.Message)
		}
	}
	assert.Equal(t, []string{"fre_rank pruned: no training statistics"}, notes)

	// The plan's own schema is untouched, so a later run with statistics
	// still computes the feature.
	assert.True(t, plan.Schema.Has("fre_rank"))
	stats := trainstats.Set{"toy/train": trainstats.Build("toy/train", [][]string{{"a", "b"}})}
	report, err = b.Run(context.Background(), plan, fourSamples(), stats)
	require.NoError(t, err)
	fp, present := report.Feature("fre_rank")
	require.True(t, present)
	assert.NotEmpty(t, fp.Buckets)
	assert.Empty(t, report.Diagnostics)
}

func TestRun_DataErrorsAreScopedToFeature(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	b, _ := newBuilder(t)
	samples := dataset.New("toy/test", []dataset.Sample{
		{"text": "a b", "true_label": 1, "predicted_label": 1},
		{"true_label": 0, "predicted_label": 0},
		{"text": "a", "true_label": 1, "predicted_label": 0},
		{"text": "a b c", "predicted_label": 1},
	})

	// --- Act ---
	report, err := b.Run(context.Background(), newPlan(t), samples, nil)

	// --- Assert ---
	require.NoError(t, err)

	// Sample 1 misses only its text: it is still in the label buckets.
	label, _ := report.Feature("true_label")
	var labelCount int
	for _, bp := range label.Buckets {
		labelCount += bp.Count
	}
	assert.Equal(t, 3, labelCount)

	length, _ := report.Feature("length")
	var lengthCount int
	for _, bp := range length.Buckets {
		lengthCount += bp.Count
	}
	assert.Equal(t, 2, lengthCount, "sample 1 has no length and sample 3 no label")

	var data []diag.Diagnostic
	for _, d := range report.Diagnostics {
		if d.Kind == diag.KindData {
			data = append(data, d)
		}
	}
	require.Len(t, data, 3, "one for the missing text, one per missing label occurrence")
	assert.Equal(t, "text", data[0].Feature)
	assert.Equal(t, 1, data[0].SampleID)
	for _, d := range data[1:] {
		assert.Equal(t, "true_label", d.Feature)
		assert.Equal(t, 3, d.SampleID)
	}
}

func TestRun_CompletenessAndPartition(t *testing.T) {
	t.Parallel()

	b, _ := newBuilder(t)
	var raw []dataset.Sample
	for i := 0; i < 40; i++ {
		s := dataset.Sample{"true_label": i % 3, "predicted_label": i % 2}
		if i%7 != 0 {
			s["text"] = "w w w w w w w w w"[:2*(i%5)+1]
		}
		raw = append(raw, s)
	}
	plan := newPlan(t)
	plan.Metrics = nil

	report, err := b.Run(context.Background(), plan, dataset.New("toy/test", raw), nil)
	require.NoError(t, err)

	length, ok := report.Feature("length")
	require.True(t, ok)
	total := 0
	for _, bp := range length.Buckets {
		total += bp.Count
	}
	assert.Equal(t, 40-6, total)

	label, _ := report.Feature("true_label")
	total = 0
	for _, bp := range label.Buckets {
		total += bp.Count
	}
	assert.Equal(t, 40, total)
	assert.Empty(t, report.Overall)
}

func TestRun_DeterministicAcrossWorkersAndRuns(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	var raw []dataset.Sample
	for i := 0; i < 60; i++ {
		raw = append(raw, dataset.Sample{
			"text":            []string{"a", "a b", "a b c", "b c d e", "e"}[i%5],
			"true_label":      i % 3,
			"predicted_label": (i * 7) % 3,
		})
	}
	samples := dataset.New("toy/test", raw)
	plan := newPlan(t)
	plan.MaxCases = 2
	plan.ConfidenceInterval = true
	seqB, _ := newBuilder(t)
	parB, _ := newBuilder(t, WithWorkers(4))

	// --- Act ---
	first, err := seqB.Run(context.Background(), plan, samples, nil)
	require.NoError(t, err)
	again, err := seqB.Run(context.Background(), plan, samples, nil)
	require.NoError(t, err)
	parallel, err := parB.Run(context.Background(), plan, samples, nil)
	require.NoError(t, err)

	// --- Assert ---
	ignore := cmpopts.IgnoreFields(Report{}, "Enriched")
	if diff := cmp.Diff(first, again, ignore); diff != "" {
		t.Errorf("second run differs (-first +again):\n%s", diff)
	}
	if diff := cmp.Diff(first, parallel, ignore); diff != "" {
		t.Errorf("parallel run differs (-seq +par):\n%s", diff)
	}
	if diff := cmp.Diff(first.Enriched.Samples(), again.Enriched.Samples()); diff != "" {
		t.Errorf("enriched tables differ:\n%s", diff)
	}
	assert.Equal(t, raw[0], samples.Sample(0), "input samples are not modified")
}

func TestRun_CollectsCases(t *testing.T) {
	t.Parallel()

	b, _ := newBuilder(t)
	plan := newPlan(t)
	plan.MaxCases = 1
	samples := dataset.New("toy/test", []dataset.Sample{
		{"text": "a", "true_label": 1, "predicted_label": 0},
		{"text": "b", "true_label": 1, "predicted_label": 0},
		{"text": "c", "true_label": 1, "predicted_label": 1},
	})

	report, err := b.Run(context.Background(), plan, samples, nil)

	require.NoError(t, err)
	label, _ := report.Feature("true_label")
	require.Len(t, label.Buckets, 1)
	assert.Equal(t, []int{0}, label.Buckets[0].Performances[0].Cases)
}

func TestRun_CasesAgreeWithMetricLabelEquality(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	b, _ := newBuilder(t)
	plan := newPlan(t)
	plan.MaxCases = 5
	samples := dataset.New("toy/test", []dataset.Sample{
		{"text": "a", "true_label": 1, "predicted_label": 1.0},
		{"text": "b", "true_label": "0", "predicted_label": 0.0},
		{"text": "c", "true_label": 1, "predicted_label": 0},
	})

	// --- Act ---
	report, err := b.Run(context.Background(), plan, samples, nil)

	// --- Assert ---
	require.NoError(t, err)
	require.Len(t, report.Overall, 1)
	assert.Equal(t, 0.6667, report.Overall[0].Value)

	label, _ := report.Feature("true_label")
	positive, ok := label.Bucket("1")
	require.True(t, ok)
	acc, _ := positive.Record("accuracy")
	assert.Equal(t, 0.5, acc.Value)
	assert.Equal(t, []int{2}, acc.Cases, "only the sample accuracy scores as wrong is a case")

	negative, ok := label.Bucket("0")
	require.True(t, ok)
	acc, _ = negative.Record("accuracy")
	assert.Equal(t, 1.0, acc.Value)
	assert.Empty(t, acc.Cases)
}

func TestRun_DatasetFeaturesAndExtraOperations(t *testing.T) {
	t.Parallel()

	b, _ := newBuilder(t)
	plan := newPlan(t, &features.Descriptor{Name: "vocabulary_size", DType: features.Int, Level: features.DatasetLevel})
	plan.Operations = []string{"lowercase", "average_length"}
	samples := dataset.New("toy/test", []dataset.Sample{
		{"text": "A b", "true_label": 1, "predicted_label": 1},
		{"text": "a B c", "true_label": 0, "predicted_label": 1},
	})

	report, err := b.Run(context.Background(), plan, samples, nil)

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"vocabulary_size": 5, "average_length": 2.5}, report.DatasetFeatures)

	lower, ok := report.Feature("text_lower")
	require.True(t, ok, "generated fields become bucket features")
	var names []string
	for _, bp := range lower.Buckets {
		names = append(names, bp.Bucket)
	}
	assert.Equal(t, []string{"a b", "a b c"}, names)
	_, ok = report.Feature("vocabulary_size")
	assert.False(t, ok, "dataset-level features are never bucketed")
}

func TestRun_ConfigurationErrorsBeforeProcessing(t *testing.T) {
	t.Parallel()

	calls := 0
	b, ops := newBuilder(t)
	ops.Register(operation.MustNew(operation.Spec{
		Name:            "count_calls",
		Class:           capability.Featurizing,
		ProcessedFields: []string{"text"},
		GeneratedField:  "calls",
	}, func(value any, res operation.Resources) (operation.Output, error) {
		calls++
		return operation.Output{"calls": calls}, nil
	}))

	testCases := []struct {
		name   string
		mutate func(p *Plan)
	}{
		{name: "unknown metric", mutate: func(p *Plan) { p.Metrics = []string{"bleu"} }},
		{name: "unknown extra operation", mutate: func(p *Plan) { p.Operations = []string{"count_calls", "nope"} }},
		{name: "unknown feature operation", mutate: func(p *Plan) {
			require.NoError(t, p.Schema.Add(&features.Descriptor{Name: "x", DType: features.Int, Operation: "missing"}))
		}},
		{name: "dataset feature from per-sample operation", mutate: func(p *Plan) {
			require.NoError(t, p.Schema.Add(&features.Descriptor{Name: "calls", DType: features.Int, Level: features.DatasetLevel, Operation: "count_calls"}))
		}},
	}
	for _, tc := range testCases {
		plan := newPlan(t)
		plan.Operations = []string{"count_calls"}
		tc.mutate(plan)

		_, err := b.Run(context.Background(), plan, fourSamples(), nil)

		require.Error(t, err, tc.name)
		assert.True(t, diag.IsConfiguration(err), tc.name)
	}
	assert.Zero(t, calls)
}

func TestRun_CancelledEmitsNoReport(t *testing.T) {
	t.Parallel()

	b, _ := newBuilder(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := b.Run(ctx, newPlan(t), fourSamples(), nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, diag.ErrCancelled))
	assert.Nil(t, report)
}

func TestRun_EmptyBucketEvaluationIsOmitted(t *testing.T) {
	t.Parallel()

	b, _ := newBuilder(t)
	samples := dataset.New("toy/test", []dataset.Sample{
		{"text": "a", "true_label": 1, "predicted_label": 1},
		{"text": "a b c", "true_label": 0},
	})

	report, err := b.Run(context.Background(), newPlan(t), samples, nil)

	require.NoError(t, err)
	length, _ := report.Feature("length")
	require.Len(t, length.Buckets, 1, "[3,3] holds only the unlabelled sample")
	assert.Equal(t, "[1,3)", length.Buckets[0].Bucket)

	var kinds []diag.Kind
	for _, d := range report.Diagnostics {
		kinds = append(kinds, d.Kind)
	}
	assert.Equal(t, []diag.Kind{diag.KindData, diag.KindEvaluation, diag.KindEvaluation}, kinds)
	assert.Equal(t, "length", report.Diagnostics[1].Feature)
	assert.Equal(t, "[3,3]", report.Diagnostics[1].Bucket)
	last := report.Diagnostics[len(report.Diagnostics)-1]
	assert.Equal(t, "true_label", last.Feature)
	assert.Equal(t, "0", last.Bucket)

	label, _ := report.Feature("true_label")
	require.Len(t, label.Buckets, 1, "the bucket with no labelled sample is omitted")
	assert.Equal(t, "1", label.Buckets[0].Bucket)
}

func TestRun_Telemetry(t *testing.T) {
	t.Parallel()

	m := telemetry.NewMetrics(prometheus.NewRegistry())
	b, _ := newBuilder(t, WithTelemetry(m))

	_, err := b.Run(context.Background(), newPlan(t, freRank()), fourSamples(), nil)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("toy/test", "ok")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.SamplesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PrunedFeaturesTotal))
	assert.Equal(t, 4, testutil.CollectAndCount(m.PhaseDuration))
}
