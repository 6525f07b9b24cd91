package memory

import (
	"context"
	"errors"
	"sort"

	"storesync/core/accessor"
	"storesync/core/record"
)

var errDisconnected = errors.New("memory backend not connected")

// Accessor serves record types from a Backend.
type Accessor struct {
	backend *Backend
	types   []*record.Type
	served  map[*record.Type]bool
}

var _ accessor.Accessor = (*Accessor)(nil)

// NewAccessor returns an accessor for types backed by b.
func NewAccessor(b *Backend, types ...*record.Type) *Accessor {
	served := make(map[*record.Type]bool, len(types))
	for _, t := range types {
		served[t] = true
	}
	return &Accessor{backend: b, types: types, served: served}
}

func (a *Accessor) Types() []*record.Type {
	return a.types
}

func (a *Accessor) Create(ctx context.Context, rtype *record.Type, data map[string]any) (*record.Record, error) {
	if !a.served[rtype] {
		return nil, accessor.NewError(accessor.ErrValidation, rtype.Name(), "")
	}
	return accessor.Materialize(rtype, data)
}

// check validates records and returns whether each one is already stored.
// The caller holds the backend lock.
func (a *Accessor) check(records []*record.Record) ([]bool, error) {
	if !a.backend.connected {
		return nil, accessor.Wrap(accessor.ErrBackend, errDisconnected)
	}
	exists := make([]bool, len(records))
	for i, rec := range records {
		t := rec.Type()
		if !a.served[t] {
			return nil, accessor.NewError(accessor.ErrValidation, t.Name(), rec.Key())
		}
		_, exists[i] = a.backend.tables[t.Name()][rec.Key()]
	}
	return exists, nil
}

func (a *Accessor) put(rec *record.Record) error {
	c, err := rec.Copy(nil)
	if err != nil {
		return accessor.Wrap(accessor.ErrValidation, err)
	}
	a.backend.table(rec.Type().Name())[rec.Key()] = c
	return nil
}

func (a *Accessor) Add(ctx context.Context, records []*record.Record) ([]*record.Record, error) {
	a.backend.mu.Lock()
	defer a.backend.mu.Unlock()

	exists, err := a.check(records)
	if err != nil {
		return nil, err
	}
	batch := make(map[string]bool, len(records))
	for i, rec := range records {
		id := rec.Type().Name() + "/" + rec.Key()
		if exists[i] || batch[id] {
			return nil, accessor.NewError(accessor.ErrAlreadyExists, rec.Type().Name(), rec.Key())
		}
		batch[id] = true
	}

	for _, rec := range records {
		if err := a.put(rec); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func (a *Accessor) Update(ctx context.Context, records []*record.Record, upsert bool) ([]*record.Record, error) {
	a.backend.mu.Lock()
	defer a.backend.mu.Unlock()

	exists, err := a.check(records)
	if err != nil {
		return nil, err
	}
	if !upsert {
		for i, rec := range records {
			if !exists[i] {
				return nil, accessor.NewError(accessor.ErrNotFound, rec.Type().Name(), rec.Key())
			}
		}
	}

	for _, rec := range records {
		if err := a.put(rec); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func (a *Accessor) Get(ctx context.Context, rec *record.Record) (*record.Record, error) {
	a.backend.mu.RLock()
	defer a.backend.mu.RUnlock()

	if _, err := a.check([]*record.Record{rec}); err != nil {
		return nil, err
	}
	stored, ok := a.backend.tables[rec.Type().Name()][rec.Key()]
	if !ok {
		return nil, accessor.NewError(accessor.ErrNotFound, rec.Type().Name(), rec.Key())
	}
	return a.clone(stored)
}

func (a *Accessor) clone(rec *record.Record) (*record.Record, error) {
	c, err := rec.Copy(nil)
	if err != nil {
		return nil, accessor.Wrap(accessor.ErrValidation, err)
	}
	return c, nil
}

// matching returns the stored records of rtype matching filter, by key.
// The caller holds the backend lock.
func (a *Accessor) matching(rtype *record.Type, filter accessor.Filter) ([]*record.Record, error) {
	if !a.backend.connected {
		return nil, accessor.Wrap(accessor.ErrBackend, errDisconnected)
	}
	if !a.served[rtype] {
		return nil, accessor.NewError(accessor.ErrValidation, rtype.Name(), "")
	}

	table := a.backend.tables[rtype.Name()]
	keys := make([]string, 0, len(table))
	for k, rec := range table {
		if accessor.Match(rec, filter) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := make([]*record.Record, len(keys))
	for i, k := range keys {
		out[i] = table[k]
	}
	return out, nil
}

func (a *Accessor) Find(ctx context.Context, rtype *record.Type, filter accessor.Filter, page accessor.Page) ([]*record.Record, error) {
	a.backend.mu.RLock()
	defer a.backend.mu.RUnlock()

	all, err := a.matching(rtype, filter)
	if err != nil {
		return nil, err
	}
	selected := accessor.Paginate(all, page)
	out := make([]*record.Record, 0, len(selected))
	for _, rec := range selected {
		c, err := a.clone(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (a *Accessor) Count(ctx context.Context, rtype *record.Type, filter accessor.Filter) (int, error) {
	a.backend.mu.RLock()
	defer a.backend.mu.RUnlock()

	all, err := a.matching(rtype, filter)
	if err != nil {
		return 0, err
	}
	return len(all), nil
}

func (a *Accessor) Remove(ctx context.Context, records []*record.Record, rtype *record.Type, filter accessor.Filter) ([]*record.Record, error) {
	a.backend.mu.Lock()
	defer a.backend.mu.Unlock()

	if len(records) == 0 {
		if rtype == nil {
			return nil, nil
		}
		matched, err := a.matching(rtype, filter)
		if err != nil {
			return nil, err
		}
		table := a.backend.tables[rtype.Name()]
		for _, rec := range matched {
			delete(table, rec.Key())
		}
		return matched, nil
	}

	exists, err := a.check(records)
	if err != nil {
		return nil, err
	}
	for i, rec := range records {
		if !exists[i] {
			return nil, accessor.NewError(accessor.ErrNotFound, rec.Type().Name(), rec.Key())
		}
	}
	for _, rec := range records {
		delete(a.backend.tables[rec.Type().Name()], rec.Key())
	}
	return records, nil
}
