package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vk/bucketgrid/internal/capability"
	"github.com/vk/bucketgrid/internal/config"
	"github.com/vk/bucketgrid/internal/ctxlog"
	"github.com/vk/bucketgrid/internal/diag"
	"github.com/vk/bucketgrid/internal/features"
	"github.com/vk/bucketgrid/internal/operation"
)

// PopulateFromModel builds a descriptor for every manifest-declared
// operation and registers it. It performs a strict parity check between
// manifests and Go code: the handler must exist, the capability token must
// be known, and the handler's shape must match the class's dispatch mode.
// All problems are collected and returned together as a ConfigurationError.
func (r *Registry) PopulateFromModel(ctx context.Context, model *config.Model) error {
	logger := ctxlog.FromContext(ctx)
	var errs []string

	for _, name := range model.OperationNames() {
		def := model.Operations[name]
		d, err := r.descriptorFromDefinition(def)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		if err := r.add(d); err != nil {
			errs = append(errs, err.Error())
			continue
		}
		logger.Debug("Bound manifest operation to handler.", "operation", name, "handler", def.Handler, "class", d.Class().String())
	}

	if len(errs) > 0 {
		return diag.Configf("registry", "validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func (r *Registry) descriptorFromDefinition(def *config.OperationDefinition) (*operation.Descriptor, error) {
	fn, ok := r.handlers.Get(def.Handler)
	if !ok {
		return nil, fmt.Errorf("operation '%s': handler '%s' is not registered", def.Name, def.Handler)
	}
	class, err := capability.Parse(def.Capability)
	if err != nil {
		return nil, fmt.Errorf("operation '%s': %w", def.Name, err)
	}
	d, err := operation.New(operation.Spec{
		Name:            def.Name,
		Class:           class,
		Resources:       def.Resources,
		Contributor:     def.Contributor,
		Task:            def.Task,
		Description:     def.Description,
		ProcessedFields: def.ProcessedFields,
		GeneratedField:  def.GeneratedField,
		OutputType:      features.DType(def.OutputType),
		Container:       def.Container,
	}, fn)
	if err != nil {
		var ce *diag.ConfigurationError
		if errors.As(err, &ce) {
			return nil, fmt.Errorf("operation '%s': %s", def.Name, ce.Reason)
		}
		return nil, err
	}
	return d, nil
}

// ValidateTask checks that every operation a task names is registered, and
// that each operation bound to a feature actually produces it.
func (r *Registry) ValidateTask(task *config.TaskDefinition) error {
	var errs []string
	for _, f := range task.Features {
		if f.Operation == "" {
			continue
		}
		d, ok := r.Get(f.Operation)
		if !ok {
			errs = append(errs, fmt.Sprintf("feature '%s': operation '%s' is not registered", f.Name, f.Operation))
			continue
		}
		if d.GeneratedField() != "" && d.GeneratedField() != f.Name {
			errs = append(errs, fmt.Sprintf("feature '%s': operation '%s' generates '%s'", f.Name, f.Operation, d.GeneratedField()))
		}
	}
	for _, name := range task.Operations {
		if _, ok := r.Get(name); !ok {
			errs = append(errs, fmt.Sprintf("operation '%s' is not registered", name))
		}
	}
	if len(errs) > 0 {
		return diag.Configf("task "+task.Name, "%s", strings.Join(errs, "; "))
	}
	return nil
}
