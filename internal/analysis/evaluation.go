package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/bucketgrid/internal/diag"
	"github.com/vk/bucketgrid/internal/metric"
	"golang.org/x/sync/errgroup"
)

// ErrEmptyBucket marks a bucket that has no labelled sample to score.
var ErrEmptyBucket = errors.New("bucket has no labelled samples")

// evaluate is phase 3: overall performance first, then every
// (feature, bucket) pair restricted to the bucket's ids. A failing bucket
// is omitted and recorded; it never affects the overall result or other
// buckets.
func (r *run) evaluate(ctx context.Context) error {
	r.fine = make([][]bucketResult, len(r.bucketed))
	if len(r.plan.Metrics) == 0 {
		// Nothing to score: report bucket sizes only.
		for i, fb := range r.bucketed {
			for _, b := range fb.buckets {
				r.fine[i] = append(r.fine[i], bucketResult{key: b.Key, count: len(b.SampleIDs)})
			}
		}
		return nil
	}

	n := r.samples.Len()
	r.labeled = make([]bool, n)
	trueLabels := make([]any, n)
	predicted := make([]any, n)
	var all []int
	for id := 0; id < n; id++ {
		t, okT := r.samples.Value(id, r.plan.TrueLabel)
		p, okP := r.samples.Value(id, r.plan.PredictedLabel)
		switch {
		case !okT:
			r.diags.Record(&diag.DataError{SampleID: id, Feature: r.plan.TrueLabel, Err: fmt.Errorf("missing field %q", r.plan.TrueLabel)})
			r.b.telemetry.DataError(r.plan.TrueLabel)
		case !okP:
			r.diags.Record(&diag.DataError{SampleID: id, Feature: r.plan.PredictedLabel, Err: fmt.Errorf("missing field %q", r.plan.PredictedLabel)})
			r.b.telemetry.DataError(r.plan.PredictedLabel)
		default:
			r.labeled[id] = true
			trueLabels[id], predicted[id] = t, p
			all = append(all, id)
		}
	}

	for _, name := range r.plan.Metrics {
		rec, err := r.score(trueLabels, predicted, all, name, "", "")
		if err != nil {
			continue
		}
		r.overall = append(r.overall, *rec)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.b.workers)
	for i, fb := range r.bucketed {
		i, fb := i, fb
		g.Go(func() error {
			var results []bucketResult
			for _, b := range fb.buckets {
				if err := gctx.Err(); err != nil {
					return err
				}
				ids := make([]int, 0, len(b.SampleIDs))
				for _, id := range b.SampleIDs {
					if r.labeled[id] {
						ids = append(ids, id)
					}
				}
				if len(ids) == 0 {
					r.diags.Record(&diag.EvaluationError{Feature: fb.feature.Name, Bucket: b.Key.Beautify(), Metric: "*", Err: ErrEmptyBucket})
					r.b.telemetry.EvaluationError()
					continue
				}
				cases := r.cases(trueLabels, predicted, ids)
				res := bucketResult{key: b.Key, count: len(ids)}
				for _, name := range r.plan.Metrics {
					rec, err := r.score(trueLabels, predicted, ids, name, fb.feature.Name, b.Key.Beautify())
					if err != nil {
						continue
					}
					rec.Cases = cases
					res.records = append(res.records, *rec)
				}
				if len(res.records) > 0 {
					results = append(results, res)
				}
			}
			r.fine[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return cancelled(err)
	}
	return nil
}

// score evaluates one metric over the given ids. Failures are recorded as
// EvaluationErrors scoped to feature and bucket and returned so the caller
// can omit the record.
func (r *run) score(trueLabels, predicted []any, ids []int, name, feature, bucketName string) (*metric.PerformanceRecord, error) {
	t := make([]any, len(ids))
	p := make([]any, len(ids))
	for i, id := range ids {
		t[i], p[i] = trueLabels[id], predicted[id]
	}
	rec, err := r.b.evaluator.Evaluate(t, p, name, r.plan.ConfidenceInterval)
	if err != nil {
		ee := &diag.EvaluationError{Feature: feature, Bucket: bucketName, Metric: name, Err: err}
		var inner *diag.EvaluationError
		if errors.As(err, &inner) {
			ee.Err = inner.Err
		}
		r.diags.Record(ee)
		r.b.telemetry.EvaluationError()
		return nil, ee
	}
	return rec, nil
}

// cases returns up to MaxCases misclassified ids in bucket order.
func (r *run) cases(trueLabels, predicted []any, ids []int) []int {
	if r.plan.MaxCases <= 0 {
		return nil
	}
	var out []int
	for _, id := range ids {
		if !metric.SameLabel(trueLabels[id], predicted[id]) {
			out = append(out, id)
			if len(out) == r.plan.MaxCases {
				break
			}
		}
	}
	return out
}
