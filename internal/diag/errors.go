// Package diag defines the error taxonomy of an analysis run and the
// side-channel diagnostics list that accompanies every report.
//
// Configuration problems are fatal and surface synchronously. Data and
// evaluation problems are recorded against the offending sample, feature or
// bucket and never abort the run on their own.
package diag

import (
	"errors"
	"fmt"
)

// ErrCancelled is returned when a run is aborted through its context. No
// partial report is ever emitted alongside it.
var ErrCancelled = errors.New("analysis cancelled")

// ConfigurationError reports an invalid declaration discovered before any
// sample is processed: an unknown capability tag, an unknown metric name, or
// malformed bucket parameters.
type ConfigurationError struct {
	Subject string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Subject, e.Reason)
}

// Configf builds a ConfigurationError for subject.
func Configf(subject, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Subject: subject, Reason: fmt.Sprintf(format, args...)}
}

// DataError is scoped to one sample. The sample is excluded from downstream
// bucketing for Feature only.
type DataError struct {
	SampleID int
	Feature  string
	Err      error
}

func (e *DataError) Error() string {
	if e.Feature == "" {
		return fmt.Sprintf("sample %d: %v", e.SampleID, e.Err)
	}
	return fmt.Sprintf("sample %d, feature %q: %v", e.SampleID, e.Feature, e.Err)
}

func (e *DataError) Unwrap() error { return e.Err }

// EvaluationError means one bucket could not be scored. Its record is omitted
// from the report; overall performance is unaffected.
type EvaluationError struct {
	Feature string
	Bucket  string
	Metric  string
	Err     error
}

func (e *EvaluationError) Error() string {
	if e.Feature == "" {
		return fmt.Sprintf("evaluating %s overall: %v", e.Metric, e.Err)
	}
	return fmt.Sprintf("evaluating %s on %s/%s: %v", e.Metric, e.Feature, e.Bucket, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// IsConfiguration reports whether err is, or wraps, a ConfigurationError.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
