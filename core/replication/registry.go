package replication

import (
	"context"
	"fmt"
	"sync"

	"storesync/core/metrics"
	"storesync/core/record"
	"storesync/core/store"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Registry holds an ordered set of stores with unique names.
type Registry struct {
	mu      sync.RWMutex
	stores  []*store.Store
	count   int
	logger  *zap.Logger
	metrics *metrics.Metrics

	watchers map[*store.Store]int
}

// NewRegistry returns a registry managing stores. A nil logger discards logs
// and nil metrics record nothing.
func NewRegistry(logger *zap.Logger, m *metrics.Metrics, stores ...*store.Store) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		count:    DefaultCount,
		logger:   logger,
		metrics:  m,
		watchers: make(map[*store.Store]int),
	}
	for _, s := range stores {
		r.AddStore(s)
	}
	return r
}

// SetCount sets the default synchronize page size. Values below one restore
// DefaultCount.
func (r *Registry) SetCount(count int) {
	if count < 1 {
		count = DefaultCount
	}
	r.mu.Lock()
	r.count = count
	r.mu.Unlock()
}

// Count returns the default synchronize page size.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

// AddStore appends s, replacing a managed store with the same name in place.
func (r *Registry) AddStore(s *store.Store) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, cur := range r.stores {
		if cur.Name() == s.Name() {
			r.stores[i] = s
			return
		}
	}
	r.stores = append(r.stores, s)
}

// RemoveStore stops managing the named store.
func (r *Registry) RemoveStore(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, s := range r.stores {
		if s.Name() == name {
			if id, ok := r.watchers[s]; ok {
				s.Unobserve(id)
				delete(r.watchers, s)
			}
			r.stores = append(r.stores[:i], r.stores[i+1:]...)
			return
		}
	}
}

// Stores returns the managed stores in order.
func (r *Registry) Stores() []*store.Store {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*store.Store, len(r.stores))
	copy(out, r.stores)
	return out
}

// Store returns the named store.
func (r *Registry) Store(name string) (*store.Store, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.stores {
		if s.Name() == name {
			return s, true
		}
	}
	return nil, false
}

// Lookup resolves store names. No names means every managed store.
func (r *Registry) Lookup(names ...string) ([]*store.Store, error) {
	if len(names) == 0 {
		return r.Stores(), nil
	}
	out := make([]*store.Store, 0, len(names))
	for _, name := range names {
		s, ok := r.Store(name)
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownStore, name)
		}
		out = append(out, s)
	}
	return out, nil
}

// Types returns the union of the types served by stores, sorted by name.
func Types(stores []*store.Store) []*record.Type {
	seen := make(map[*record.Type]bool)
	var types []*record.Type
	for _, s := range stores {
		for _, t := range s.Types() {
			if !seen[t] {
				seen[t] = true
				types = append(types, t)
			}
		}
	}
	record.SortTypes(types)
	return types
}

// Connect connects every managed store. Failures are aggregated.
func (r *Registry) Connect(ctx context.Context) error {
	var errs error
	for _, s := range r.Stores() {
		errs = multierr.Append(errs, s.Connect(ctx))
	}
	return errs
}

// Disconnect disconnects every managed store. Failures are aggregated.
func (r *Registry) Disconnect(ctx context.Context) error {
	var errs error
	for _, s := range r.Stores() {
		errs = multierr.Append(errs, s.Disconnect(ctx))
	}
	return errs
}
