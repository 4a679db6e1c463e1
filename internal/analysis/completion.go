package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/bucketgrid/internal/ctxlog"
	"github.com/vk/bucketgrid/internal/dataset"
	"github.com/vk/bucketgrid/internal/diag"
	"github.com/vk/bucketgrid/internal/features"
	"github.com/vk/bucketgrid/internal/operation"
	"github.com/vk/bucketgrid/internal/valuestore"
	"golang.org/x/sync/errgroup"
)

// completeSchema is phase 1. Per-sample operations run one after another,
// each on the output of the previous one, so a featurizer may read a field
// a preprocessor produced. Aggregating operations run once all per-sample
// work is merged. Finally every bucket feature is extracted into the value
// store, one feature per worker.
func (r *run) completeSchema(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	r.b.telemetry.Samples(r.input.Len())

	container := r.input
	for _, d := range r.perSample {
		res, err := container.Apply(ctx, d, dataset.WithStats(r.stats), dataset.WithWorkers(r.b.workers))
		if err != nil {
			return err
		}
		r.recordOperationErrors(d, res.Errors)
		container = res.Container

		if gf := d.GeneratedField(); gf != "" {
			if err := r.schema.MarkGenerated(gf, d.OutputType(), d.Name()); err != nil {
				return err
			}
		}
	}
	r.samples = container

	for _, d := range r.corpus {
		if err := ctx.Err(); err != nil {
			return cancelled(err)
		}
		res, err := container.Apply(ctx, d, dataset.WithStats(r.stats))
		if err != nil {
			return err
		}
		r.recordOperationErrors(d, res.Errors)
		for k, v := range res.Dataset {
			r.datasetValues[k] = v
		}
	}
	r.normalizeDatasetValues()

	bucketFeatures := r.schema.BucketFeatures()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.b.workers)
	for _, f := range bucketFeatures {
		f := f
		g.Go(func() error { return r.extract(gctx, f) })
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return cancelled(err)
		}
		return err
	}

	logger.Debug("Schema completed.", "operations", len(r.perSample)+len(r.corpus), "bucket_features", len(bucketFeatures))
	return nil
}

func (r *run) recordOperationErrors(d *operation.Descriptor, errs []error) {
	if len(errs) == 0 {
		return
	}
	failed := r.opFailed[d.GeneratedField()]
	if failed == nil {
		failed = make(map[int]bool)
		r.opFailed[d.GeneratedField()] = failed
	}
	for _, err := range errs {
		r.diags.Record(err)
		var de *diag.DataError
		if errors.As(err, &de) {
			failed[de.SampleID] = true
			r.b.telemetry.DataError(de.Feature)
			continue
		}
		r.b.telemetry.DataError(d.GeneratedField())
	}
}

// normalizeDatasetValues checks declared dataset-level values against
// their dtype. A value that does not conform is dropped with a DataError.
func (r *run) normalizeDatasetValues() {
	for _, f := range r.schema.DatasetFeatures() {
		v, ok := r.datasetValues[f.Name]
		if !ok {
			continue
		}
		nv, err := f.DType.Normalize(v)
		if err != nil {
			delete(r.datasetValues, f.Name)
			r.diags.Record(&diag.DataError{SampleID: -1, Feature: f.Name, Err: err})
			r.b.telemetry.DataError(f.Name)
			continue
		}
		r.datasetValues[f.Name] = nv
	}
}

// extract reads the value of f from every enriched sample, normalizes it to
// the declared dtype and stores it. Samples where that fails get a
// DataError and no value, which excludes them from bucketing for f only.
func (r *run) extract(ctx context.Context, f *features.Descriptor) error {
	failed := r.opFailed[f.Name]
	for id := 0; id < r.samples.Len(); id++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		v, ok := r.samples.Value(id, f.Name)
		if !ok {
			if !failed[id] {
				r.diags.Record(&diag.DataError{SampleID: id, Feature: f.Name, Err: fmt.Errorf("missing field %q", f.Name)})
				r.b.telemetry.DataError(f.Name)
			}
			continue
		}
		nv, err := f.DType.Normalize(v)
		if err != nil {
			r.diags.Record(&diag.DataError{SampleID: id, Feature: f.Name, Err: err})
			r.b.telemetry.DataError(f.Name)
			continue
		}
		if err := r.store.SetValue(ctx, valuestore.Key{Feature: f.Name, SampleID: id}, nv); err != nil {
			return err
		}
	}
	return nil
}
