package metrics

import (
	"fmt"
	"sort"

	"github.com/vk/bucketgrid/internal/metric"
)

// Accuracy is the fraction of exact label matches.
type Accuracy struct {
	bootstrap
}

func (*Accuracy) Name() string { return "accuracy" }

// Compute returns the fraction of positions where the labels agree.
func (*Accuracy) Compute(trueLabels, predicted []any) (float64, error) {
	if len(trueLabels) == 0 {
		return 0, fmt.Errorf("no labels")
	}
	correct := 0
	for i := range trueLabels {
		if metric.SameLabel(trueLabels[i], predicted[i]) {
			correct++
		}
	}
	return float64(correct) / float64(len(trueLabels)), nil
}

// ConfidenceInterval bootstraps the accuracy.
func (a *Accuracy) ConfidenceInterval(trueLabels, predicted []any) (float64, float64, error) {
	return a.bootstrap.interval(trueLabels, predicted, a.Compute)
}

// F1Macro is the unweighted mean of per-class F1 over every class that
// occurs in either sequence.
type F1Macro struct {
	bootstrap
}

func (*F1Macro) Name() string { return "f1_macro" }

// Compute returns macro-averaged F1.
func (*F1Macro) Compute(trueLabels, predicted []any) (float64, error) {
	if len(trueLabels) == 0 {
		return 0, fmt.Errorf("no labels")
	}
	tp := map[string]int{}
	fp := map[string]int{}
	fn := map[string]int{}
	classes := map[string]struct{}{}
	for i := range trueLabels {
		t, p := metric.LabelKey(trueLabels[i]), metric.LabelKey(predicted[i])
		classes[t] = struct{}{}
		classes[p] = struct{}{}
		if t == p {
			tp[t]++
			continue
		}
		fp[p]++
		fn[t]++
	}

	names := make([]string, 0, len(classes))
	for c := range classes {
		names = append(names, c)
	}
	sort.Strings(names)

	sum := 0.0
	for _, c := range names {
		denom := 2*tp[c] + fp[c] + fn[c]
		if denom > 0 {
			sum += float64(2*tp[c]) / float64(denom)
		}
	}
	return sum / float64(len(names)), nil
}

// ConfidenceInterval bootstraps the macro F1.
func (f *F1Macro) ConfidenceInterval(trueLabels, predicted []any) (float64, float64, error) {
	return f.bootstrap.interval(trueLabels, predicted, f.Compute)
}
