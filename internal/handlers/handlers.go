// Package handlers stores the compiled Go functions that operation manifests
// refer to by name.
package handlers

import (
	"fmt"
	"log/slog"
	"sort"
)

// Handlers holds all the registered handler functions.
type Handlers struct {
	all map[string]any
}

// New creates and initializes a new Handlers instance.
func New() *Handlers {
	return &Handlers{
		all: make(map[string]any),
	}
}

// RegisterHandler registers a Go function under name. fn must satisfy one of
// the operation interfaces or match one of their plain function signatures;
// that is checked when a manifest binds the handler to a capability class.
func (h *Handlers) RegisterHandler(name string, fn any) {
	if fn == nil {
		panic(fmt.Sprintf("handler '%s' is nil", name))
	}
	if _, exists := h.all[name]; exists {
		panic(fmt.Sprintf("handler with name '%s' already registered", name))
	}
	slog.Debug("Registering operation handler.", "name", name)
	h.all[name] = fn
}

// Get returns the handler registered under name.
func (h *Handlers) Get(name string) (any, bool) {
	fn, ok := h.all[name]
	return fn, ok
}

// Names returns the registered handler names, sorted.
func (h *Handlers) Names() []string {
	names := make([]string, 0, len(h.all))
	for n := range h.all {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
