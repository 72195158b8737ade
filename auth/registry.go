package auth

import (
	"fmt"
	"sync"
)

// Registry is a thread-safe registry of named TokenSource instances.
// A Factory registers each named source as a filter, so contracts refer
// to it by name, e.g. `filter:"billing"`.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]TokenSource
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]TokenSource)}
}

// Register adds or replaces a named source.
func (r *Registry) Register(name string, src TokenSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[name] = src
}

// Get returns the named source.
func (r *Registry) Get(name string) (TokenSource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src, ok := r.sources[name]
	if !ok {
		return nil, fmt.Errorf("auth: token source %q not registered", name)
	}
	return src, nil
}

// Names returns all registered names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.sources))
	for n := range r.sources {
		names = append(names, n)
	}
	return names
}
