package registry

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/bucketgrid/internal/capability"
	"github.com/vk/bucketgrid/internal/handlers"
	"github.com/vk/bucketgrid/internal/operation"
)

// Module is the interface that all operation modules must implement to be
// registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds the registered descriptors and handler functions for a
// single application instance.
type Registry struct {
	handlers *handlers.Handlers
	byName   map[string]*operation.Descriptor
	order    []string
	logger   *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger registration events are written to. Without
// it they are discarded.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a registry around the given handler storage. A nil storage is
// replaced by an empty one.
func New(h *handlers.Handlers, opts ...Option) *Registry {
	if h == nil {
		h = handlers.New()
	}
	r := &Registry{
		handlers: h,
		byName:   make(map[string]*operation.Descriptor),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handlers exposes the handler storage so modules can register functions
// that manifests refer to by name.
func (r *Registry) Handlers() *handlers.Handlers {
	return r.handlers
}

// Register adds a descriptor. Registering the same name twice is a
// programming error and panics.
func (r *Registry) Register(d *operation.Descriptor) {
	if err := r.add(d); err != nil {
		panic(err.Error())
	}
}

func (r *Registry) add(d *operation.Descriptor) error {
	if d == nil {
		return fmt.Errorf("operation descriptor is nil")
	}
	if _, exists := r.byName[d.Name()]; exists {
		return fmt.Errorf("operation with name '%s' already registered", d.Name())
	}
	r.logger.Debug("Registering operation.", "name", d.Name(), "class", d.Class().String())
	r.byName[d.Name()] = d
	r.order = append(r.order, d.Name())
	return nil
}

// Get returns the named descriptor.
func (r *Registry) Get(name string) (*operation.Descriptor, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// Len returns the number of registered descriptors.
func (r *Registry) Len() int {
	return len(r.order)
}

// All returns every descriptor in registration order.
func (r *Registry) All() []*operation.Descriptor {
	out := make([]*operation.Descriptor, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.byName[n])
	}
	return out
}

// ByClass returns the descriptors of one capability class in registration
// order.
func (r *Registry) ByClass(c capability.Class) []*operation.Descriptor {
	var out []*operation.Descriptor
	for _, d := range r.All() {
		if d.Class() == c {
			out = append(out, d)
		}
	}
	return out
}

// Grouped returns the registry contents keyed by capability class. Classes
// without descriptors are omitted.
func (r *Registry) Grouped() map[capability.Class][]*operation.Descriptor {
	out := make(map[capability.Class][]*operation.Descriptor)
	for _, d := range r.All() {
		out[d.Class()] = append(out[d.Class()], d)
	}
	return out
}

// ByGeneratedField returns the first registered descriptor that produces
// field.
func (r *Registry) ByGeneratedField(field string) (*operation.Descriptor, bool) {
	for _, d := range r.All() {
		if d.GeneratedField() == field {
			return d, true
		}
	}
	return nil, false
}

// ForTask returns the descriptors applicable to task, which includes the
// descriptors registered without a task tag.
func (r *Registry) ForTask(task string) []*operation.Descriptor {
	var out []*operation.Descriptor
	for _, d := range r.All() {
		if d.Task() == "" || d.Task() == task {
			out = append(out, d)
		}
	}
	return out
}
