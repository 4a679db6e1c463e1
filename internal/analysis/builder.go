package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vk/bucketgrid/internal/bucket"
	"github.com/vk/bucketgrid/internal/capability"
	"github.com/vk/bucketgrid/internal/ctxlog"
	"github.com/vk/bucketgrid/internal/dataset"
	"github.com/vk/bucketgrid/internal/diag"
	"github.com/vk/bucketgrid/internal/features"
	"github.com/vk/bucketgrid/internal/inmemorystore"
	"github.com/vk/bucketgrid/internal/metric"
	"github.com/vk/bucketgrid/internal/operation"
	"github.com/vk/bucketgrid/internal/registry"
	"github.com/vk/bucketgrid/internal/telemetry"
	"github.com/vk/bucketgrid/internal/trainstats"
	"github.com/vk/bucketgrid/internal/valuestore"
	"go.opentelemetry.io/otel/attribute"
)

// Phase names, used for spans, metrics and logs.
const (
	PhaseSchemaCompletion = "schema_completion"
	PhaseBucketing        = "bucketing"
	PhaseEvaluation       = "evaluation"
	PhaseReportAssembly   = "report_assembly"
)

// Builder runs the analysis pipeline. It holds only immutable
// collaborators and is safe for concurrent use.
type Builder struct {
	ops       *registry.Registry
	evaluator *metric.Evaluator
	telemetry *telemetry.Metrics
	workers   int
	newStore  func() valuestore.Store
	newRunID  func() string
}

// Option customizes a Builder.
type Option func(*Builder)

// WithWorkers sets the parallelism used for per-sample dispatch and for
// per-feature work. Values below two mean sequential execution.
func WithWorkers(n int) Option {
	return func(b *Builder) { b.workers = n }
}

// WithTelemetry records run metrics on m.
func WithTelemetry(m *telemetry.Metrics) Option {
	return func(b *Builder) { b.telemetry = m }
}

// WithStore replaces the per-run value store factory.
func WithStore(f func() valuestore.Store) Option {
	return func(b *Builder) { b.newStore = f }
}

// WithRunID replaces the run id generator.
func WithRunID(f func() string) Option {
	return func(b *Builder) { b.newRunID = f }
}

// NewBuilder creates a builder over an operation registry and an evaluator.
func NewBuilder(ops *registry.Registry, ev *metric.Evaluator, opts ...Option) *Builder {
	b := &Builder{
		ops:       ops,
		evaluator: ev,
		workers:   1,
		newStore:  inmemorystore.New,
		newRunID:  uuid.NewString,
	}
	for _, o := range opts {
		o(b)
	}
	if b.workers < 1 {
		b.workers = 1
	}
	return b
}

// run is the state of one pipeline execution. Nothing in it outlives the
// run or is shared with another one.
type run struct {
	b     *Builder
	id    string
	plan  *Plan
	split string

	schema  *features.Schema
	stats   *trainstats.Bundle
	input   *dataset.Container
	samples *dataset.Container
	store   valuestore.Store
	diags   *diag.Collector

	perSample []*operation.Descriptor
	corpus    []*operation.Descriptor
	// opFailed marks (generated field, sample id) pairs whose operation
	// already reported a DataError.
	opFailed map[string]map[int]bool

	datasetValues map[string]any
	bucketed      []featureBuckets
	labeled       []bool
	overall       []metric.PerformanceRecord
	fine          [][]bucketResult
}

type featureBuckets struct {
	feature *features.Descriptor
	buckets bucket.Buckets
}

type bucketResult struct {
	key     bucket.Key
	count   int
	records []metric.PerformanceRecord
}

// Run analyses one split. ConfigurationErrors surface before any sample is
// processed. Data and evaluation problems end up in Report.Diagnostics.
// Cancellation of ctx aborts the run with diag.ErrCancelled and no report.
func (b *Builder) Run(ctx context.Context, plan *Plan, samples *dataset.Container, stats trainstats.Set) (*Report, error) {
	r, err := b.prepare(ctx, plan, samples, stats)
	if err != nil {
		split := ""
		if samples != nil {
			split = samples.Split()
		}
		b.telemetry.Run(split, "failed")
		return nil, err
	}

	ctx, logger := ctxlog.With(ctx, "run_id", r.id, "task", plan.Task, "split", r.split)
	ctx, end := telemetry.StartSpan(ctx, "analysis.run",
		attribute.String("run_id", r.id),
		attribute.String("task", plan.Task),
		attribute.String("split", r.split),
	)
	logger.Info("Analysis started.", "samples", samples.Len(), "bucket_features", len(r.schema.BucketFeatures()))

	report, err := r.execute(ctx)
	end(err)
	if err != nil {
		outcome := "failed"
		if errors.Is(err, diag.ErrCancelled) {
			outcome = "cancelled"
		}
		b.telemetry.Run(r.split, outcome)
		logger.Warn("Analysis aborted.", "error", err)
		return nil, err
	}

	b.telemetry.Run(r.split, "ok")
	logger.Info("Analysis finished.", "features", len(report.FineGrained), "diagnostics", len(report.Diagnostics))
	return report, nil
}

func (r *run) execute(ctx context.Context) (*Report, error) {
	phases := []struct {
		name string
		fn   func(context.Context) error
	}{
		{PhaseSchemaCompletion, r.completeSchema},
		{PhaseBucketing, r.bucketize},
		{PhaseEvaluation, r.evaluate},
	}
	for _, p := range phases {
		if err := r.phase(ctx, p.name, p.fn); err != nil {
			return nil, err
		}
	}

	var report *Report
	err := r.phase(ctx, PhaseReportAssembly, func(context.Context) error {
		report = r.assemble()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// phase runs fn after checking for cancellation, inside its own span.
func (r *run) phase(ctx context.Context, name string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return cancelled(err)
	}
	logger := ctxlog.FromContext(ctx)
	ctx, end := telemetry.StartSpan(ctx, "analysis."+name)
	start := time.Now()
	logger.Debug("Phase started.", "phase", name)

	err := fn(ctx)
	end(err)
	r.b.telemetry.Phase(name, time.Since(start))
	if err != nil {
		return err
	}
	logger.Debug("Phase finished.", "phase", name, "duration", time.Since(start))
	return nil
}

func cancelled(err error) error {
	if errors.Is(err, diag.ErrCancelled) {
		return err
	}
	return fmt.Errorf("%w: %v", diag.ErrCancelled, err)
}

// prepare validates everything that can be validated without touching a
// sample, clones and prunes the schema, and resolves the operations to run.
func (b *Builder) prepare(ctx context.Context, plan *Plan, samples *dataset.Container, stats trainstats.Set) (*run, error) {
	if plan == nil || plan.Schema == nil {
		return nil, diag.Configf("analysis", "plan has no schema")
	}
	if samples == nil {
		return nil, diag.Configf("analysis", "no samples")
	}
	if err := b.evaluator.Check(plan.Metrics...); err != nil {
		return nil, err
	}

	r := &run{
		b:             b,
		id:            b.newRunID(),
		plan:          plan,
		split:         samples.Split(),
		schema:        plan.Schema.Clone(),
		input:         samples,
		samples:       samples,
		store:         b.newStore(),
		diags:         diag.NewCollector(),
		opFailed:      make(map[string]map[int]bool),
		datasetValues: make(map[string]any),
	}

	bundle, ok := stats.Lookup(plan.TrainingSplit)
	if ok {
		r.stats = bundle
	}
	pruned := r.schema.PruneTrainingDependent(ok)
	for _, name := range pruned {
		r.diags.Note("%s pruned: no training statistics", name)
	}
	if len(pruned) > 0 {
		ctxlog.FromContext(ctx).Warn("Pruned training-dependent features.", "features", pruned, "training_split", plan.TrainingSplit)
		b.telemetry.Pruned(len(pruned))
	}

	if err := r.resolveOperations(); err != nil {
		return nil, err
	}
	return r, nil
}

// resolveOperations picks the descriptor for every live feature that is
// not read straight from the samples, plus the plan's extra operations.
// Per-sample operations run in the order found; corpus operations run
// after all of them.
func (r *run) resolveOperations() error {
	seen := make(map[string]bool)
	add := func(d *operation.Descriptor) {
		if seen[d.Name()] {
			return
		}
		seen[d.Name()] = true
		if d.Mode() == capability.Corpus {
			r.corpus = append(r.corpus, d)
			return
		}
		r.perSample = append(r.perSample, d)
	}

	for _, f := range r.schema.Features() {
		if f.Raw {
			continue
		}
		d, err := r.operationFor(f)
		if err != nil {
			return err
		}
		if d == nil {
			continue
		}
		corpus := d.Mode() == capability.Corpus
		switch {
		case f.Level == features.DatasetLevel && !corpus:
			return diag.Configf("feature "+f.Name, "dataset-level feature needs an aggregating operation, %q is %s", d.Name(), d.Class())
		case f.Level == features.SampleLevel && corpus:
			return diag.Configf("feature "+f.Name, "sample-level feature cannot come from aggregating operation %q", d.Name())
		}
		add(d)
	}

	for _, name := range r.plan.Operations {
		d, ok := r.b.ops.Get(name)
		if !ok {
			return diag.Configf("task "+r.plan.Task, "operation %q is not registered", name)
		}
		if gf := d.GeneratedField(); gf != "" && r.schema.IsPruned(gf) {
			continue
		}
		add(d)
	}
	return nil
}

// operationFor returns the descriptor computing f, or nil when f is read
// from the sample field of the same name.
func (r *run) operationFor(f *features.Descriptor) (*operation.Descriptor, error) {
	if f.Operation != "" {
		d, ok := r.b.ops.Get(f.Operation)
		if !ok {
			return nil, diag.Configf("feature "+f.Name, "operation %q is not registered", f.Operation)
		}
		return d, nil
	}
	for _, d := range r.b.ops.ForTask(r.plan.Task) {
		if d.GeneratedField() == f.Name {
			return d, nil
		}
	}
	if f.Level == features.DatasetLevel {
		return nil, diag.Configf("feature "+f.Name, "no aggregating operation generates this dataset-level feature")
	}
	return nil, nil
}
