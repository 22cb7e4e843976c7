package core

import "sync"

// Factory builds a mapper over a session.
type Factory func(s Session) *Mapper

// Registry maps logical names to mapper factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Add registers f under name, replacing any previous factory.
func (r *Registry) Add(name string, f Factory) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[name] = f
	return r
}

// AddTable registers a plain mapper over table under name.
func (r *Registry) AddTable(name, table string, opts ...MapperOption) *Registry {
	return r.Add(name, func(s Session) *Mapper {
		return NewMapper(s, table, opts...)
	})
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.factories[name]
	return ok
}

// Map builds the mapper registered under name. Unknown names get a plain
// mapper over the table of the same name.
func (r *Registry) Map(s Session, name string) *Mapper {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()

	if ok {
		return f(s)
	}
	return NewMapper(s, name)
}
