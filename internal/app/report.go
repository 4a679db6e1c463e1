package app

import (
	"fmt"
	"io"
	"os"

	"github.com/vk/bucketgrid/internal/analysis"
	"gopkg.in/yaml.v3"
)

type reportFile struct {
	Reports []*analysis.Report `yaml:"reports"`
}

// writeReports encodes the reports as one YAML document to the configured
// output file, or to the app's output writer.
func (a *App) writeReports(reports []*analysis.Report) error {
	w := a.outW
	if a.config.OutputPath != "" {
		f, err := os.Create(a.config.OutputPath)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		w = f
	}
	return encodeReports(w, reports)
}

func encodeReports(w io.Writer, reports []*analysis.Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(reportFile{Reports: reports}); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return enc.Close()
}
