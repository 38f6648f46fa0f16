// internal/engines/registry.go
package engines

import (
	"errors"
	"sort"
)

// Factory constructs an engine. Local engines receive the resolved compute
// device; hosted engines are handed the empty string.
type Factory[T any] func(device string) (T, error)

// Entry describes one registered engine.
type Entry[T any] struct {
	New Factory[T]
	// Local marks engines that run on this machine and therefore need a
	// device. Hosted engines ignore device selection entirely.
	Local bool
}

// Registry maps engine names to factories. Registries are built by the caller
// and injected into the pipeline; there is no package-level default.
type Registry[T any] struct {
	entries map[string]Entry[T]
}

// NewRegistry returns an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{entries: make(map[string]Entry[T])}
}

// Register adds or replaces an entry.
func (r *Registry[T]) Register(name string, entry Entry[T]) {
	r.entries[name] = entry
}

// Names returns the registered engine names in sorted order.
func (r *Registry[T]) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New constructs the named engine. The device is passed only to entries
// registered as local. Unknown names and factory failures are LoadErrors.
func (r *Registry[T]) New(name, device string) (T, error) {
	var zero T
	entry, ok := r.entries[name]
	if !ok {
		return zero, &LoadError{Engine: name, Err: errors.New("not registered")}
	}
	if !entry.Local {
		device = ""
	}
	engine, err := entry.New(device)
	if err != nil {
		return zero, &LoadError{Engine: name, Err: err}
	}
	return engine, nil
}
