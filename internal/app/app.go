package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vk/bucketgrid/internal/analysis"
	"github.com/vk/bucketgrid/internal/config"
	"github.com/vk/bucketgrid/internal/ctxlog"
	"github.com/vk/bucketgrid/internal/metric"
	"github.com/vk/bucketgrid/internal/registry"
	"github.com/vk/bucketgrid/internal/telemetry"
	"github.com/vk/bucketgrid/internal/trainstats"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	ctx        context.Context
	logger     *slog.Logger
	config     *Config
	registry   *registry.Registry
	metrics    *metric.Registry
	model      *config.Model
	plan       *analysis.Plan
	stats      trainstats.Set
	prometheus *prometheus.Registry
	telemetry  *telemetry.Metrics
	builder    *analysis.Builder
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger, registries
// and collectors. Configuration that cannot be loaded or does not match the
// registered Go code is a fatal startup error and panics.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loader.Load(ctx, cfg.ManifestPaths...)
	if err != nil {
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}
	logger.Debug("Configuration loaded and translated into unified model.")

	reg := registry.New(nil, registry.WithLogger(logger))
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All Go modules registered.", "count", len(modules), "handlers", reg.Handlers().Names())

	if err := reg.PopulateFromModel(ctx, model); err != nil {
		panic(err)
	}

	task, err := model.Task(cfg.Task)
	if err != nil {
		panic(err)
	}
	if err := reg.ValidateTask(task); err != nil {
		panic(err)
	}
	plan, err := analysis.NewPlan(task)
	if err != nil {
		panic(err)
	}
	logger.Debug("Registry validation passed.", "operations", reg.Len())

	metricReg := metric.NewRegistry()
	for _, mod := range coreMetricModules {
		mod.RegisterMetrics(metricReg)
	}

	var stats trainstats.Set
	if cfg.StatsPath != "" {
		stats, err = trainstats.LoadFile(cfg.StatsPath)
		if err != nil {
			panic(fmt.Errorf("failed to load training statistics: %w", err))
		}
		logger.Debug("Training statistics loaded.", "splits", len(stats))
	}

	promReg := prometheus.NewRegistry()
	tm := telemetry.NewMetrics(promReg)

	return &App{
		outW:       outW,
		ctx:        ctx,
		logger:     logger,
		config:     cfg,
		registry:   reg,
		metrics:    metricReg,
		model:      model,
		plan:       plan,
		stats:      stats,
		prometheus: promReg,
		telemetry:  tm,
		builder: analysis.NewBuilder(reg, metric.NewEvaluator(metricReg),
			analysis.WithWorkers(cfg.WorkerCount),
			analysis.WithTelemetry(tm),
		),
	}
}

// Registry returns the application's operation registry. This is primarily
// for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Plan returns the analysis plan of the configured task.
func (a *App) Plan() *analysis.Plan {
	return a.plan
}

// Prometheus returns the application's collector registry.
func (a *App) Prometheus() *prometheus.Registry {
	return a.prometheus
}
