package analysis

import (
	"context"

	"github.com/vk/bucketgrid/internal/bucket"
	"github.com/vk/bucketgrid/internal/ctxlog"
	"golang.org/x/sync/errgroup"
)

// bucketize is phase 2. Each bucket feature reads its column from the
// value store; features share nothing, so they run concurrently and land
// in schema order.
func (r *run) bucketize(ctx context.Context) error {
	feats := r.schema.BucketFeatures()
	r.bucketed = make([]featureBuckets, len(feats))
	n := r.samples.Len()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.b.workers)
	for i, f := range feats {
		i, f := i, f
		g.Go(func() error {
			column, present, err := r.store.Column(gctx, f.Name, n)
			if err != nil {
				return err
			}
			values := make([]any, 0, n)
			ids := make([]int, 0, n)
			for id, ok := range present {
				if ok {
					values = append(values, column[id])
					ids = append(ids, id)
				}
			}

			bs, err := bucket.Compute(gctx, f, values, ids)
			if err != nil {
				return err
			}
			r.bucketed[i] = featureBuckets{feature: f, buckets: bs}
			ctxlog.FromContext(gctx).Debug("Feature bucketed.", "feature", f.Name, "bucket_count", len(bs), "samples", len(ids))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return cancelled(err)
		}
		return err
	}
	return nil
}
