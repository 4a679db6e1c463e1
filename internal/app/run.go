package app

import (
	"context"
	"fmt"

	"github.com/vk/bucketgrid/internal/analysis"
	"github.com/vk/bucketgrid/internal/ctxlog"
)

// Run analyses every configured split in turn and writes one YAML report
// holding all of them. Splits share no mutable state; a failing split
// aborts the whole run.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	a.healthCheckServer()
	defer a.closeHealthCheckServer()

	files, err := splitFiles(a.config.SamplePaths)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		a.logger.Warn("No split files found, analysis not required.")
		return nil
	}

	reports := make([]*analysis.Report, 0, len(files))
	for _, file := range files {
		samples, err := readSplit(file)
		if err != nil {
			return fmt.Errorf("failed to read split: %w", err)
		}
		a.logger.Info("Analysing split.", "split", samples.Split(), "file", file, "samples", samples.Len())

		report, err := a.builder.Run(ctx, a.plan, samples, a.stats)
		if err != nil {
			return fmt.Errorf("analysis of split %q failed: %w", samples.Split(), err)
		}
		reports = append(reports, report)
	}

	if err := a.writeReports(reports); err != nil {
		return err
	}
	a.logger.Debug("App.Run method finished.", "reports", len(reports))
	return nil
}
