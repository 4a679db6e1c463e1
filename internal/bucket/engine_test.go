package bucket

import (
	"context"
	"math"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/bucketgrid/internal/diag"
	"github.com/vk/bucketgrid/internal/features"
)

func seq(n int) []int {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = i
	}
	return ids
}

func TestDiscrete_GroupsByValueInEncounterOrder(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	values := []any{"pos", "pos", "neg", "pos"}

	// --- Act ---
	got := Discrete(values, seq(4), 10, features.FirstSeen)

	// --- Assert ---
	assert.Equal(t, []string{"pos", "neg"}, got.Names())
	assert.Equal(t, map[string][]int{"pos": {0, 1, 3}, "neg": {2}}, got.Map())
}

func TestDiscrete_CapMergesLeastFrequentIntoOther(t *testing.T) {
	t.Parallel()

	values := []any{"c", "a", "b", "a", "d", "b", "e", "a"}

	got := Discrete(values, seq(len(values)), 3, features.FirstSeen)

	require.Equal(t, []string{"a", "b", "other"}, got.Names())
	assert.Equal(t, map[string][]int{
		"a":     {1, 3, 7},
		"b":     {2, 5},
		"other": {0, 4, 6},
	}, got.Map())
}

func TestDiscrete_TieBreakPolicies(t *testing.T) {
	t.Parallel()

	// All values occur once; the cap keeps two.
	values := []any{"zeta", "beta", "alpha", "gamma"}

	testCases := []struct {
		name string
		tie  features.TieBreak
		want []string
	}{
		{name: "first seen", tie: features.FirstSeen, want: []string{"zeta", "beta", "other"}},
		{name: "default is first seen", tie: "", want: []string{"zeta", "beta", "other"}},
		{name: "lexical", tie: features.Lexical, want: []string{"beta", "alpha", "other"}},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Discrete(values, seq(len(values)), 3, tc.tie)
			assert.Equal(t, tc.want, got.Names())
		})
	}
}

func TestDiscrete_ValueNamedOtherDoesNotCollide(t *testing.T) {
	t.Parallel()

	values := []any{"other", "other", "x", "y"}

	got := Discrete(values, seq(4), 2, features.FirstSeen)

	assert.Equal(t, []string{"other", "other (merged)"}, got.Names())
	assert.Equal(t, 4, got.Len())
}

func TestDiscrete_NumericAndMissing(t *testing.T) {
	t.Parallel()

	values := []any{1, 2, math.NaN(), 1}

	got := Discrete(values, []int{10, 11, 12, 13}, 0, features.FirstSeen)

	assert.Equal(t, map[string][]int{"1": {10, 13}, "2": {11}, "no-value": {12}}, got.Map())
}

func TestEqualFrequency_TwoBuckets(t *testing.T) {
	t.Parallel()

	values := []float64{1, 2, 3, 4, 5, 6, 7, 8}

	got := EqualFrequency(values, seq(8), 2)

	assert.Equal(t, []string{"[1,5)", "[5,8]"}, got.Names())
	assert.Equal(t, map[string][]int{"[1,5)": {0, 1, 2, 3}, "[5,8]": {4, 5, 6, 7}}, got.Map())
}

func TestEqualFrequency_EdgeCases(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		values []float64
		n      int
		want   map[string][]int
	}{
		{
			name:   "constant column collapses to one closed bucket",
			values: []float64{3, 3, 3},
			n:      4,
			want:   map[string][]int{"[3,3]": {0, 1, 2}},
		},
		{
			name:   "duplicate lower edges are dropped",
			values: []float64{1, 1, 1, 5},
			n:      2,
			want:   map[string][]int{"[1,5]": {0, 1, 2, 3}},
		},
		{
			name:   "edge on repeated maximum splits off the top value",
			values: []float64{1, 1, 2, 2},
			n:      2,
			want:   map[string][]int{"[1,2)": {0, 1}, "[2,2]": {2, 3}},
		},
		{
			name:   "repeated maximum above the middle edge",
			values: []float64{1, 2, 3, 3},
			n:      2,
			want:   map[string][]int{"[1,3)": {0, 1}, "[3,3]": {2, 3}},
		},
		{
			name:   "four tiers with repeated maximum",
			values: []float64{1, 2, 3, 4, 5, 6, 8, 8},
			n:      4,
			want: map[string][]int{
				"[1,3)": {0, 1},
				"[3,5)": {2, 3},
				"[5,8)": {4, 5},
				"[8,8]": {6, 7},
			},
		},
		{
			name:   "NaN goes to no-value and is ignored for edges",
			values: []float64{math.NaN(), 2, 4},
			n:      2,
			want:   map[string][]int{"no-value": {0}, "[2,4]": {1, 2}},
		},
		{
			name:   "all NaN",
			values: []float64{math.NaN()},
			n:      2,
			want:   map[string][]int{"no-value": {0}},
		},
		{
			name:   "empty",
			values: nil,
			n:      2,
			want:   map[string][]int{},
		},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := EqualFrequency(tc.values, seq(len(tc.values)), tc.n)
			if diff := cmp.Diff(tc.want, got.Map()); diff != "" {
				t.Errorf("buckets mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEqualFrequency_RepeatedMaximumOrder(t *testing.T) {
	t.Parallel()

	// Arrange
	values := []float64{2, 1, 2, 1}

	// Act
	got := EqualFrequency(values, seq(4), 2)

	// Assert
	require.Len(t, got, 2)
	assert.Equal(t, []string{"[2,2]", "[1,2)"}, got.Names())
	assert.Equal(t, map[string][]int{"[2,2]": {0, 2}, "[1,2)": {1, 3}}, got.Map())
}

func TestExplicit_OutOfRange(t *testing.T) {
	t.Parallel()

	values := []float64{0, 1, 9, 10, 11, math.NaN()}

	got := Explicit(values, seq(6), []float64{1, 5, 10})

	assert.Equal(t, []string{"out-of-range", "[1,5)", "[5,10]", "no-value"}, got.Names())
	assert.Equal(t, map[string][]int{
		"out-of-range": {0, 4},
		"[1,5)":        {1},
		"[5,10]":       {2, 3},
		"no-value":     {5},
	}, got.Map())
}

func TestCompute_Dispatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	length := &features.Descriptor{
		Name: "length", DType: features.Int, IsBucket: true,
		Bucket: &features.BucketSpec{Strategy: features.Range, Number: 2},
	}
	got, err := Compute(ctx, length, []any{1, 2, 3, 4, 5, 6, 7, 8}, seq(8))
	require.NoError(t, err)
	assert.Equal(t, []string{"[1,5)", "[5,8]"}, got.Names())

	label := &features.Descriptor{
		Name: "label", DType: features.String, IsBucket: true,
		Bucket: features.DefaultBucket(features.String),
	}
	got, err = Compute(ctx, label, []any{"pos", "neg"}, []int{4, 7})
	require.NoError(t, err)
	assert.Equal(t, map[string][]int{"pos": {4}, "neg": {7}}, got.Map())

	_, err = Compute(ctx, length, []any{"x"}, []int{0})
	require.Error(t, err)
	assert.True(t, diag.IsConfiguration(err))

	_, err = Compute(ctx, &features.Descriptor{Name: "plain"}, nil, nil)
	assert.True(t, diag.IsConfiguration(err))

	_, err = Compute(ctx, label, []any{"pos"}, nil)
	assert.Error(t, err)
}

// Completeness and partition: every computed id appears in exactly one
// bucket, and repeated runs agree exactly.
func TestBuckets_PartitionAndDeterminism(t *testing.T) {
	t.Parallel()

	raw := []float64{5, 3, math.NaN(), 8, 1, 1, 9, 2, 7, 7, 4, 6, 0, 3}
	ids := []int{0, 2, 3, 5, 6, 7, 8, 9, 11, 12, 13, 14, 15, 16}
	anyValues := make([]any, len(raw))
	for i, v := range raw {
		anyValues[i] = v
	}

	runs := map[string]func() Buckets{
		"discrete": func() Buckets { return Discrete(anyValues, ids, 4, features.Lexical) },
		"range":    func() Buckets { return EqualFrequency(raw, ids, 3) },
		"explicit": func() Buckets { return Explicit(raw, ids, []float64{2, 4, 6}) },
	}
	for name, run := range runs {
		run := run
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			first := run()

			var union []int
			for _, b := range first {
				union = append(union, b.SampleIDs...)
			}
			sort.Ints(union)
			assert.Equal(t, ids, union)

			for i := 0; i < 5; i++ {
				if diff := cmp.Diff(first, run()); diff != "" {
					t.Fatalf("non-deterministic buckets (-first +again):\n%s", diff)
				}
			}
		})
	}
}

func TestKey_Beautify(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "[0.3333,12350)", Key{Kind: Interval, Lo: 1.0 / 3, Hi: 12345.6}.Beautify())
	assert.Equal(t, "[0.3333333333333333,12345.6)", Key{Kind: Interval, Lo: 1.0 / 3, Hi: 12345.6}.String())
	assert.Equal(t, "[1,2]", Key{Kind: Interval, Lo: 1, Hi: 2, Closed: true}.Beautify())
	assert.Equal(t, "pos", Key{Kind: Value, Value: "pos"}.Beautify())
	assert.Equal(t, "no-value", Key{Kind: NoValue}.Beautify())
}
