package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/bucketgrid/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// listFlag collects a flag given several times or as a comma-separated list.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			*l = append(*l, p)
		}
	}
	return nil
}

// Parse processes command-line arguments. It returns a populated AppConfig,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("bucketgrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
BucketGrid - Fine-grained, feature-bucketed evaluation of model predictions.

Usage:
  bucketgrid -task NAME -manifests PATH[,PATH] [options] SPLIT_PATH...

Arguments:
  SPLIT_PATH
    A JSON-lines file with one sample per line, or a directory of .jsonl
    files. Each file is analysed as one split named after the file.

Options:
`)
		flagSet.PrintDefaults()
	}

	var manifests listFlag
	flagSet.Var(&manifests, "manifests", "Manifest .hcl file or directory. Repeatable or comma-separated.")
	flagSet.Var(&manifests, "m", "Manifest path (shorthand).")
	taskFlag := flagSet.String("task", "", "Name of the task block to analyse.")
	statsFlag := flagSet.String("stats", "", "Optional YAML file with training statistics.")
	outputFlag := flagSet.String("output", "", "Report file. Defaults to standard output.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check and metrics server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	workersFlag := flagSet.Int("workers", 4, "Number of concurrent workers per phase.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	if flagSet.NArg() == 0 && len(manifests) == 0 {
		slog.Debug("No inputs provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	config, err := app.NewConfig(app.Config{
		ManifestPaths:   manifests,
		Task:            *taskFlag,
		SamplePaths:     flagSet.Args(),
		StatsPath:       *statsFlag,
		OutputPath:      *outputFlag,
		HealthcheckPort: *healthPortFlag,
		LogFormat:       strings.ToLower(*logFormatFlag),
		LogLevel:        strings.ToLower(*logLevelFlag),
		WorkerCount:     *workersFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
