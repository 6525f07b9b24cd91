package reconcile

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"

	"storesync/core/accessor"
	"storesync/core/record"
	"storesync/core/store"
)

// ReconcileAll performs a full reconciliation across spec.Stores.
// It indexes every store, computes the union of keys per type, and returns a
// result for each key indicating presence and mismatches.
func (e *Engine) ReconcileAll(ctx context.Context, spec *Spec) ([]Result, error) {
	cache, err := e.GetOrBuildCache(ctx, spec)
	if err != nil {
		return nil, err
	}
	return fromCache(cache, spec), nil
}

// ReconcileOne reconciles a single record identity.
// It uses cached indices when caching is enabled, and targeted reads
// otherwise.
func (e *Engine) ReconcileOne(ctx context.Context, spec *Spec, rtype *record.Type, key string) (*Result, error) {
	if spec.CacheTTL > 0 {
		cache, err := e.GetOrBuildCache(ctx, spec)
		if err != nil {
			return nil, err
		}
		result := buildResult(rtype.Name(), key, cachedEntries(cache, rtype.Name(), key), serving(spec.Stores, rtype), spec.Reference)
		return &result, nil
	}

	probe, err := rtype.FromKey(key)
	if err != nil {
		return nil, accessor.Wrap(accessor.ErrValidation, err)
	}

	stores := serving(spec.Stores, rtype)
	entries := make(map[string]Entry, len(stores))
	for _, s := range stores {
		rec, err := s.Get(ctx, probe)
		if errors.Is(err, accessor.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if accessor.Match(rec, spec.Filter) {
			entries[s.Name()] = Entry{Record: rec, Hash: rec.Hash()}
		}
	}

	result := buildResult(rtype.Name(), key, entries, stores, spec.Reference)
	return &result, nil
}

// fromCache builds one result per indexed key, sorted by type then key.
func fromCache(cache *Cache, spec *Spec) []Result {
	types := spec.types()
	names := make([]string, 0, len(types))
	byName := make(map[string]*record.Type, len(types))
	for _, t := range types {
		names = append(names, t.Name())
		byName[t.Name()] = t
	}
	sort.Strings(names)

	var results []Result
	for _, name := range names {
		stores := serving(spec.Stores, byName[name])
		for _, key := range unionKeys(cache, name) {
			results = append(results, buildResult(name, key, cachedEntries(cache, name, key), stores, spec.Reference))
		}
	}
	return results
}

// unionKeys returns every key of type name held by any indexed store, sorted.
func unionKeys(cache *Cache, name string) []string {
	union := make(map[string]struct{})
	for _, index := range cache.Indices {
		for key := range index[name] {
			union[key] = struct{}{}
		}
	}

	keys := make([]string, 0, len(union))
	for key := range union {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// cachedEntries returns the entries for one identity, by store name.
func cachedEntries(cache *Cache, name, key string) map[string]Entry {
	entries := make(map[string]Entry)
	for storeName, index := range cache.Indices {
		if entry, ok := index[name][key]; ok {
			entries[storeName] = entry
		}
	}
	return entries
}

// serving returns the stores among stores that serve rtype, in order.
func serving(stores []*store.Store, rtype *record.Type) []*store.Store {
	var out []*store.Store
	for _, s := range stores {
		for _, t := range s.Types() {
			if t == rtype {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// buildResult compares the entries held for one identity. Only stores
// serving the type take part.
func buildResult(rtype, key string, entries map[string]Entry, stores []*store.Store, reference string) Result {
	result := Result{
		Type:     rtype,
		Key:      key,
		Present:  make(map[string]bool, len(stores)),
		Mismatch: []string{},
	}

	for _, s := range stores {
		_, ok := entries[s.Name()]
		result.Present[s.Name()] = ok
		if ok && result.Reference == "" && reference == "" {
			result.Reference = s.Name()
		}
	}
	if reference != "" {
		if _, ok := entries[reference]; ok {
			result.Reference = reference
		}
	}
	if result.Reference == "" {
		return result
	}

	ref := entries[result.Reference]
	for _, s := range stores {
		entry, ok := entries[s.Name()]
		if ok && s.Name() != result.Reference && entry.Hash != ref.Hash {
			result.Mismatch = append(result.Mismatch, s.Name())
		}
	}
	return result
}

// diffFields returns the names of the fields whose values differ, sorted.
func diffFields(a, b *record.Record) []string {
	ra, rb := a.Raw(true), b.Raw(true)
	var out []string
	for name, v := range ra {
		if !reflect.DeepEqual(v, rb[name]) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// missingReason builds a reason string for why a record should be purged.
func missingReason(result Result) string {
	missing := result.Missing()
	if len(missing) == 0 {
		return "complete"
	}
	return fmt.Sprintf("missing in: %v", missing)
}
