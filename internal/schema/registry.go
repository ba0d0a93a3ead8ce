package schema

import (
	"context"
	"sort"
	"sync"
)

// Registry holds the materialized descriptors of all enabled types. It is
// built at startup and rebuilt on schema change, so lookups on the request
// path never touch the store.
type Registry struct {
	mu    sync.RWMutex
	types map[string]TypeDef
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]TypeDef)}
}

// Load replaces the registry contents with the enabled descriptors from the
// store.
func (r *Registry) Load(ctx context.Context, repo Repository) error {
	defs, err := repo.LoadAll(ctx)
	if err != nil {
		return err
	}
	next := make(map[string]TypeDef, len(defs))
	for _, def := range defs {
		if def.Enabled {
			next[def.Name] = def
		}
	}
	r.mu.Lock()
	r.types = next
	r.mu.Unlock()
	return nil
}

// Put registers a single descriptor, replacing any previous one of the same
// name.
func (r *Registry) Put(def TypeDef) {
	r.mu.Lock()
	r.types[def.Name] = def
	r.mu.Unlock()
}

// Remove unregisters a descriptor by name.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	delete(r.types, name)
	r.mu.Unlock()
}

// Lookup returns the descriptor for a type name.
func (r *Registry) Lookup(name string) (TypeDef, bool) {
	r.mu.RLock()
	def, ok := r.types[name]
	r.mu.RUnlock()
	return def, ok
}

// Names returns the registered type names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}
