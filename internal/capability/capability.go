// Package capability defines the closed set of capability classes an
// operation can be registered under, and the single decision point that maps
// each class to the way a sample container dispatches it.
package capability

import (
	"strings"

	"github.com/vk/bucketgrid/internal/diag"
)

// Class tags an operation descriptor with its expected input/output shape.
type Class int

const (
	// Unclassified is the zero value and is never accepted at registration.
	Unclassified Class = iota
	Editing
	Preprocessing
	Featurizing
	Aggregating
	DatasetOperation
	AutoEval
	// Function is a generic per-sample transform with no further semantics.
	Function
)

// All lists every registrable class in declaration order.
var All = []Class{Editing, Preprocessing, Featurizing, Aggregating, DatasetOperation, AutoEval, Function}

var names = map[Class]string{
	Unclassified:     "unclassified",
	Editing:          "editing",
	Preprocessing:    "preprocessing",
	Featurizing:      "featurizing",
	Aggregating:      "aggregating",
	DatasetOperation: "dataset_operation",
	AutoEval:         "auto_eval",
	Function:         "function",
}

func (c Class) String() string {
	if n, ok := names[c]; ok {
		return n
	}
	return "unknown"
}

// Parse resolves a capability token. Matching ignores case and underscores,
// so "DatasetOperation", "dataset_operation" and "datasetoperation" are the
// same class. Anything else is a ConfigurationError.
func Parse(token string) (Class, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(token)), "_", "")
	for _, c := range All {
		if strings.ReplaceAll(names[c], "_", "") == norm {
			return c, nil
		}
	}
	return Unclassified, diag.Configf("capability", "unknown capability class %q", token)
}

// Mode is how a container feeds an operation.
type Mode int

const (
	// PerSample passes sample[processed_fields[0]] to the operation once per sample.
	PerSample Mode = iota + 1
	// Corpus passes the full column of processed_fields[0] once per split.
	Corpus
	// WholeSample passes the entire sample mapping once per sample.
	WholeSample
)

func (m Mode) String() string {
	switch m {
	case PerSample:
		return "per_sample"
	case Corpus:
		return "corpus"
	case WholeSample:
		return "whole_sample"
	default:
		return "invalid"
	}
}

// DispatchMode is the only place that decides how a class is executed.
func DispatchMode(c Class) (Mode, error) {
	switch c {
	case Editing, Preprocessing, Featurizing, Function:
		return PerSample, nil
	case Aggregating:
		return Corpus, nil
	case DatasetOperation, AutoEval:
		return WholeSample, nil
	default:
		return 0, diag.Configf("capability", "no dispatch rule for class %q", c)
	}
}
