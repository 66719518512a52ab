package raster

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Factory creates a Backend.
type Factory func() Backend

type registration struct {
	name    string
	factory Factory
}

// Registry maps backend names and format suffixes to backend factories.
//
// Registry is safe for concurrent use, but is expected to be populated once
// at process start and only read afterwards.
type Registry struct {
	mu       sync.RWMutex
	byName   map[string]registration
	byFormat map[string][]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName:   make(map[string]registration),
		byFormat: make(map[string][]string),
	}
}

// Register adds a backend under name and associates it with the given format
// suffixes. The first backend registered for a format is preferred by
// ForFormat. Registering the same name twice panics.
func (r *Registry) Register(name string, factory Factory, formats ...string) {
	if name == "" || factory == nil {
		panic("raster: Register requires a name and a factory")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.byName[name]; dup {
		panic(fmt.Sprintf("raster: backend %q registered twice", name))
	}
	r.byName[name] = registration{name: name, factory: factory}
	for _, f := range formats {
		f = normalizeFormat(f)
		r.byFormat[f] = append(r.byFormat[f], name)
	}
}

// Lookup creates the backend registered under name.
func (r *Registry) Lookup(name string) (Backend, error) {
	r.mu.RLock()
	reg, ok := r.byName[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no raster backend named %q", name)
	}
	return reg.factory(), nil
}

// ForFormat creates the preferred backend for a format suffix such as "tif".
func (r *Registry) ForFormat(format string) (Backend, error) {
	r.mu.RLock()
	names := r.byFormat[normalizeFormat(format)]
	r.mu.RUnlock()
	if len(names) == 0 {
		return nil, fmt.Errorf("no raster backend for format %q", format)
	}
	return r.Lookup(names[0])
}

// Names returns the registered backend names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func normalizeFormat(f string) string {
	return strings.ToLower(strings.TrimPrefix(f, "."))
}
