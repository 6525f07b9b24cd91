package accessor

import (
	"context"
	"reflect"

	"storesync/core/record"

	"github.com/google/uuid"
)

// Filter is an exact-match conjunction over field values.
type Filter map[string]any

// Page bounds a find. A zero Limit means no limit.
type Page struct {
	Limit int
	Skip  int
}

// Accessor implements physical record operations against one backend for the
// record types it declares.
//
// Implementations hold a reference to the backend connection owned by their
// store and must only return errors built with this package (see Error).
type Accessor interface {
	// Types returns the record types served by this accessor.
	Types() []*record.Type

	// Create materializes a record of rtype from raw values without any I/O.
	Create(ctx context.Context, rtype *record.Type, data map[string]any) (*record.Record, error)

	// Add inserts records. It fails with ErrAlreadyExists if one exists.
	Add(ctx context.Context, records []*record.Record) ([]*record.Record, error)

	// Update overwrites records. Missing records fail with ErrNotFound unless
	// upsert is set.
	Update(ctx context.Context, records []*record.Record, upsert bool) ([]*record.Record, error)

	// Get returns the stored record with the same identity as rec.
	Get(ctx context.Context, rec *record.Record) (*record.Record, error)

	// Find returns records of rtype matching filter, ordered by key.
	Find(ctx context.Context, rtype *record.Type, filter Filter, page Page) ([]*record.Record, error)

	// Count returns the number of records of rtype matching filter.
	Count(ctx context.Context, rtype *record.Type, filter Filter) (int, error)

	// Remove deletes the given records, or every record of rtype matching
	// filter when records is empty. It returns the removed records.
	Remove(ctx context.Context, records []*record.Record, rtype *record.Type, filter Filter) ([]*record.Record, error)
}

// Materialize builds a record of rtype from raw backend values. An empty
// local identifier is filled with a new UUID.
func Materialize(rtype *record.Type, data map[string]any) (*record.Record, error) {
	ids := rtype.Identifiers()
	if len(ids) > 0 && ids[0].Kind == record.String {
		local := ids[0]
		v := data[local.Name]
		if v == nil {
			v = local.Default
		}
		if s, ok := v.(string); v == nil || (ok && s == "") {
			filled := make(map[string]any, len(data)+1)
			for k, val := range data {
				filled[k] = val
			}
			filled[local.Name] = uuid.NewString()
			data = filled
		}
	}

	rec, err := rtype.FromRaw(data)
	if err != nil {
		return nil, Wrap(ErrValidation, err)
	}
	return rec, nil
}

// Match reports whether rec satisfies filter. A filter key that is not a
// field of rec never matches.
func Match(rec *record.Record, filter Filter) bool {
	for name, want := range filter {
		got, err := rec.Get(name)
		if err != nil {
			return false
		}
		if !valueEqual(got, want) {
			return false
		}
	}
	return true
}

func valueEqual(got, want any) bool {
	if r, ok := got.(*record.Record); ok {
		if w, ok := want.(*record.Record); ok {
			return r.Equal(w)
		}
		return false
	}
	return reflect.DeepEqual(got, want)
}

// Paginate applies page to items already ordered by the caller.
func Paginate[T any](items []T, page Page) []T {
	if page.Skip >= len(items) {
		return nil
	}
	items = items[page.Skip:]
	if page.Limit > 0 && page.Limit < len(items) {
		items = items[:page.Limit]
	}
	return items
}
