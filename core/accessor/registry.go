package accessor

import (
	"sync"

	"storesync/core/record"
)

// Registry maps record types to the accessor serving them. The last
// registration for a type wins.
type Registry struct {
	mu        sync.RWMutex
	accessors map[*record.Type]Accessor
}

// NewRegistry returns a registry holding accessors.
func NewRegistry(accessors ...Accessor) *Registry {
	r := &Registry{accessors: make(map[*record.Type]Accessor)}
	r.Register(accessors...)
	return r
}

// Register maps every type declared by each accessor to it.
func (r *Registry) Register(accessors ...Accessor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range accessors {
		for _, t := range a.Types() {
			r.accessors[t] = a
		}
	}
}

// Unregister removes mappings for the given types and for every type declared
// by the given accessors.
func (r *Registry) Unregister(types []*record.Type, accessors []Accessor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range types {
		delete(r.accessors, t)
	}
	for _, a := range accessors {
		for _, t := range a.Types() {
			delete(r.accessors, t)
		}
	}
}

// Clear removes every mapping.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accessors = make(map[*record.Type]Accessor)
}

// ForType returns the accessor serving t, or nil.
func (r *Registry) ForType(t *record.Type) Accessor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.accessors[t]
}

// ForRecord returns the accessor serving rec's type, or nil.
func (r *Registry) ForRecord(rec *record.Record) Accessor {
	if rec == nil {
		return nil
	}
	return r.ForType(rec.Type())
}

// Types returns the registered types sorted by name.
func (r *Registry) Types() []*record.Type {
	r.mu.RLock()
	types := make([]*record.Type, 0, len(r.accessors))
	for t := range r.accessors {
		types = append(types, t)
	}
	r.mu.RUnlock()

	record.SortTypes(types)
	return types
}

// Accessors returns the distinct registered accessors in type-name order.
func (r *Registry) Accessors() []Accessor {
	var out []Accessor
	seen := make(map[Accessor]bool)
	for _, t := range r.Types() {
		a := r.ForType(t)
		if a != nil && !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	return out
}
