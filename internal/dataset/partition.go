package dataset

import (
	"context"
	"fmt"

	"github.com/vk/bucketgrid/internal/ctxlog"
	"github.com/vk/bucketgrid/internal/diag"
	"github.com/vk/bucketgrid/internal/operation"
	"golang.org/x/sync/errgroup"
)

// partition is a contiguous range of sample ids [lo, hi).
type partition struct {
	lo, hi int
}

// partitions splits n ids into at most k contiguous, near-equal ranges.
func partitions(n, k int) []partition {
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	if n == 0 {
		return nil
	}
	out := make([]partition, 0, k)
	size, rest := n/k, n%k
	lo := 0
	for i := 0; i < k; i++ {
		hi := lo + size
		if i < rest {
			hi++
		}
		out = append(out, partition{lo: lo, hi: hi})
		lo = hi
	}
	return out
}

// applyPerSample dispatches d over every sample. With more than one worker
// the corpus is split into contiguous partitions processed concurrently;
// each worker writes only its own slots, and per-partition errors are
// concatenated in partition order, so the result is identical to a
// sequential run.
func (c *Container) applyPerSample(ctx context.Context, d *operation.Descriptor, cfg applyConfig) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	enriched := make([]Sample, len(c.samples))
	parts := partitions(len(c.samples), cfg.workers)
	partErrs := make([][]error, len(parts))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range parts {
		i, p := i, p
		g.Go(func() error {
			res := d.Resources(cfg.stats)
			for id := p.lo; id < p.hi; id++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				s, err := applyOne(id, c.samples[id], d, res)
				if err != nil {
					partErrs[i] = append(partErrs[i], err)
				}
				enriched[id] = s
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Debug("Operation aborted.", "operation", d.Name(), "error", err)
		return nil, fmt.Errorf("%w: %v", diag.ErrCancelled, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", diag.ErrCancelled, err)
	}

	var errs []error
	for _, pe := range partErrs {
		errs = append(errs, pe...)
	}
	if len(errs) > 0 {
		logger.Debug("Operation finished with data errors.", "operation", d.Name(), "errors", len(errs))
	}
	return &Result{
		Container: &Container{split: c.split, kind: c.kind, samples: enriched},
		Errors:    errs,
	}, nil
}
