package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/bucketgrid/internal/config"
	"github.com/vk/bucketgrid/internal/ctxlog"
	"github.com/vk/bucketgrid/internal/diag"
	"github.com/vk/bucketgrid/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file under the given paths and merges all task and
// operation blocks into one model. Names must be unique across files.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	model := config.NewModel()

	var hclFiles []string
	for _, p := range paths {
		found, err := fsutil.FindFilesByExtension(p, ".hcl")
		if err != nil {
			return nil, fmt.Errorf("failed to walk manifest path %s: %w", p, err)
		}
		hclFiles = append(hclFiles, found...)
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	parser := hclparse.NewParser()

	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, tb := range root.Tasks {
			if _, dup := model.Tasks[tb.Name]; dup {
				return nil, diag.Configf("task "+tb.Name, "declared more than once (again in %s)", file)
			}
			task, err := l.translateTask(ctx, tb)
			if err != nil {
				return nil, fmt.Errorf("in %s: %w", file, err)
			}
			model.Tasks[task.Name] = task
		}
		for _, ob := range root.Operations {
			if _, dup := model.Operations[ob.Name]; dup {
				return nil, diag.Configf("operation "+ob.Name, "declared more than once (again in %s)", file)
			}
			op, err := l.translateOperation(ctx, ob)
			if err != nil {
				return nil, fmt.Errorf("in %s: %w", file, err)
			}
			model.Operations[op.Name] = op
		}
		logger.Debug("Loaded manifest file.", "file", file, "tasks", len(root.Tasks), "operations", len(root.Operations))
	}

	logger.Info("Manifests loaded.", "tasks", len(model.Tasks), "operations", len(model.Operations))
	return model, nil
}
