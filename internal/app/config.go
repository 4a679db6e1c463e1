package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var configValidate = validator.New()

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// ManifestPaths are .hcl files or directories declaring tasks and
	// operations.
	ManifestPaths []string `validate:"required,min=1,dive,required"`
	// Task names the task block to analyse.
	Task string `validate:"required"`
	// SamplePaths are JSON-lines split files, or directories of them. Each
	// file is one split named after the file.
	SamplePaths []string `validate:"required,min=1,dive,required"`
	// StatsPath is an optional YAML training statistics file.
	StatsPath string
	// OutputPath receives the YAML report. Empty means the output writer.
	OutputPath string

	LogFormat       string `validate:"oneof=text json"`
	LogLevel        string `validate:"oneof=debug info warn error"`
	HealthcheckPort int    `validate:"gte=0,lte=65535"`
	WorkerCount     int    `validate:"gte=1,lte=1024"`
}

// NewConfig validates cfg and returns a copy of it.
func NewConfig(cfg Config) (*Config, error) {
	if err := configValidate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed '%s' validation", fe.Field(), fe.Tag()))
			}
			return nil, fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
