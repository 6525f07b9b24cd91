package record

import (
	"context"
	"fmt"

	"storesync/core/globalid"
	"storesync/core/utils"

	"go.uber.org/multierr"
)

// Store is the part of a store a record needs to commit or delete itself.
// *store.Store satisfies it.
type Store interface {
	Name() string
	Update(ctx context.Context, records []*Record, upsert bool) ([]*Record, error)
	Remove(ctx context.Context, records []*Record) ([]*Record, error)
}

// Record is a schema'd, dirty-tracked bag of field values mirrored into zero
// or more stores.
//
// A Record is not safe for concurrent use.
type Record struct {
	typ    *Type
	data   map[string]any
	old    map[string]any
	stores []Store
}

// Type returns the record type.
func (r *Record) Type() *Type {
	return r.typ
}

// Get returns the current value of a field.
func (r *Record) Get(name string) (any, error) {
	if _, ok := r.typ.index[name]; !ok {
		return nil, fmt.Errorf("%s: %w: %s", r.typ.name, ErrNoSuchField, name)
	}
	return r.data[name], nil
}

// Value returns the current value of a field, or nil if it is absent or
// undeclared.
func (r *Record) Value(name string) any {
	return r.data[name]
}

// Set validates value against the field and stores it. The first change of a
// field since the last commit records its previous value for Cancel.
func (r *Record) Set(name string, value any) error {
	f, ok := r.typ.index[name]
	if !ok {
		return fmt.Errorf("%s: %w: %s", r.typ.name, ErrNoSuchField, name)
	}

	v, err := f.Resolve(value)
	if err != nil {
		return err
	}

	current := r.data[name]
	if sameValue(current, v, 0) {
		return nil
	}

	if _, stashed := r.old[name]; !stashed {
		r.old[name] = current
	}
	r.data[name] = v

	return nil
}

// IsDirty reports whether fields changed since the last commit or cancel.
func (r *Record) IsDirty() bool {
	return len(r.old) > 0
}

// Cancel restores every changed field to its value at the last commit.
func (r *Record) Cancel() {
	for name, v := range r.old {
		r.data[name] = v
	}
	r.old = make(map[string]any)
}

// Key returns the record identity: the first identifier field is the local
// id, following identifier fields are parent ids.
func (r *Record) Key() string {
	ids := r.typ.Identifiers()
	if len(ids) == 0 {
		return ""
	}

	parts := make([]string, len(ids))
	for i, f := range ids {
		if v := r.data[f.Name]; v != nil {
			parts[i] = utils.ToString(v)
		}
	}

	return globalid.Encode(parts[0], parts[1:]...)
}

// Stores returns the stores this record is registered with.
func (r *Record) Stores() []Store {
	out := make([]Store, len(r.stores))
	copy(out, r.stores)
	return out
}

// HasStore reports whether s is one of the record's stores.
func (r *Record) HasStore(s Store) bool {
	for _, rs := range r.stores {
		if rs == s {
			return true
		}
	}
	return false
}

// AddStore registers s as one of the record's stores.
func (r *Record) AddStore(s Store) {
	if !r.HasStore(s) {
		r.stores = append(r.stores, s)
	}
}

// RemoveStore unregisters every occurrence of s.
func (r *Record) RemoveStore(s Store) {
	kept := r.stores[:0]
	for _, rs := range r.stores {
		if rs != s {
			kept = append(kept, rs)
		}
	}
	for i := len(kept); i < len(r.stores); i++ {
		r.stores[i] = nil
	}
	r.stores = kept
}

// Commit upserts the record into stores, defaulting to its own stores. The
// first failing store aborts the commit; stores already written are not
// rolled back.
func (r *Record) Commit(ctx context.Context, stores ...Store) error {
	if len(stores) == 0 {
		stores = r.Stores()
	}

	for _, s := range stores {
		if _, err := s.Update(ctx, []*Record{r}, true); err != nil {
			return fmt.Errorf("commit %s %s to %s: %w", r.typ.name, r.Key(), s.Name(), err)
		}
		r.AddStore(s)
	}

	r.old = make(map[string]any)
	return nil
}

// Delete removes the record from stores, defaulting to its own stores. Every
// store is attempted; failures are aggregated.
func (r *Record) Delete(ctx context.Context, stores ...Store) error {
	if len(stores) == 0 {
		stores = r.Stores()
	}

	var errs error
	for _, s := range stores {
		if _, err := s.Remove(ctx, []*Record{r}); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("delete %s %s from %s: %w", r.typ.name, r.Key(), s.Name(), err))
			continue
		}
		r.RemoveStore(s)
	}

	return errs
}

// Copy returns a detached deep copy of the record, with data overriding field
// values. The copy is registered with the given stores only.
func (r *Record) Copy(data map[string]any, stores ...Store) (*Record, error) {
	values := make(map[string]any, len(r.data))
	for name, v := range r.data {
		values[name] = cloneValue(v, make(map[*Record]*Record))
	}
	for name, v := range data {
		values[name] = v
	}

	c, err := r.typ.New(values)
	if err != nil {
		return nil, err
	}
	for _, s := range stores {
		c.AddStore(s)
	}
	return c, nil
}

func cloneValue(v any, seen map[*Record]*Record) any {
	switch val := v.(type) {
	case *Record:
		if val == nil {
			return val
		}
		if c, ok := seen[val]; ok {
			return c
		}
		c := &Record{
			typ:  val.typ,
			data: make(map[string]any, len(val.data)),
			old:  make(map[string]any),
		}
		seen[val] = c
		for name, fv := range val.data {
			c.data[name] = cloneValue(fv, seen)
		}
		return c
	case []byte:
		return append([]byte(nil), val...)
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = cloneValue(e, seen)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = cloneValue(e, seen)
		}
		return out
	default:
		return v
	}
}

func (r *Record) String() string {
	return fmt.Sprintf("%s(%s)", r.typ.name, r.Key())
}
