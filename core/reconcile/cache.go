package reconcile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"storesync/core/record"
	"storesync/core/store"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Entry is an indexed record with its content hash.
type Entry struct {
	Record *record.Record
	Hash   uint64
}

// Index maps type name then record key to the entries held by one store.
type Index map[string]map[string]Entry

// Cache holds pre-built indices for fast targeted reconciliation.
type Cache struct {
	// Indices maps store names to their index.
	Indices map[string]Index

	// Built is the timestamp when this cache was built.
	Built time.Time

	// TTL is the time-to-live for this cache.
	TTL time.Duration
}

// IsExpired returns true if this cache has expired based on its TTL.
func (c *Cache) IsExpired() bool {
	if c.TTL == 0 {
		return true // No caching
	}
	return time.Since(c.Built) > c.TTL
}

// Engine reconciles stores and caches their indices per spec.
type Engine struct {
	mu     sync.RWMutex
	caches map[string]*Cache
	sf     singleflight.Group
	logger *zap.Logger
}

// NewEngine returns an engine with an empty cache.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{caches: make(map[string]*Cache), logger: logger}
}

// LoadIndex scans every record of types held by s and indexes them.
func LoadIndex(ctx context.Context, s *store.Store, types []*record.Type, spec *Spec) (Index, error) {
	served := make(map[*record.Type]bool)
	for _, t := range s.Types() {
		served[t] = true
	}

	index := make(Index)
	count := spec.count()
	for _, t := range types {
		if !served[t] {
			continue
		}
		entries := make(map[string]Entry)
		index[t.Name()] = entries
		for skip := 0; ; skip += count {
			page, err := s.Find(ctx, store.Query{Types: []*record.Type{t}, Filter: spec.Filter, Limit: count, Skip: skip})
			if err != nil {
				return nil, fmt.Errorf("index %s: %w", s.Name(), err)
			}
			if len(page) == 0 {
				break
			}
			for _, rec := range page {
				entries[rec.Key()] = Entry{Record: rec, Hash: rec.Hash()}
			}
		}
	}
	return index, nil
}

// BuildCache builds a new cache for the given spec by loading all indices.
// This function does NOT store the cache; use GetOrBuildCache for that.
func BuildCache(ctx context.Context, spec *Spec) (*Cache, error) {
	types := spec.types()

	var (
		mu      sync.Mutex
		indices = make(map[string]Index, len(spec.Stores))
		errs    error
		wg      sync.WaitGroup
	)

	// Build indices concurrently, one goroutine per store
	for _, s := range spec.Stores {
		wg.Add(1)
		go func(s *store.Store) {
			defer wg.Done()
			index, err := LoadIndex(ctx, s, types, spec)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = multierr.Append(errs, err)
				return
			}
			indices[s.Name()] = index
		}(s)
	}
	wg.Wait()

	if errs != nil {
		return nil, errs
	}

	return &Cache{
		Indices: indices,
		Built:   time.Now(),
		TTL:     spec.CacheTTL,
	}, nil
}

// GetOrBuildCache retrieves a cache for the given spec,
// or builds a new one if it doesn't exist or has expired.
// Uses singleflight to prevent cache stampedes.
func (e *Engine) GetOrBuildCache(ctx context.Context, spec *Spec) (*Cache, error) {
	if spec.CacheTTL <= 0 {
		return BuildCache(ctx, spec)
	}
	cacheKey := spec.CacheKey()

	// Fast path: check if cache exists and is fresh
	e.mu.RLock()
	cache, exists := e.caches[cacheKey]
	e.mu.RUnlock()

	if exists && !cache.IsExpired() {
		return cache, nil
	}

	result, err, _ := e.sf.Do(cacheKey, func() (any, error) {
		// Double-check after acquiring singleflight lock
		e.mu.RLock()
		cache, exists := e.caches[cacheKey]
		e.mu.RUnlock()

		if exists && !cache.IsExpired() {
			return cache, nil
		}

		newCache, err := BuildCache(ctx, spec)
		if err != nil {
			return nil, err
		}

		e.mu.Lock()
		e.caches[cacheKey] = newCache
		e.mu.Unlock()

		return newCache, nil
	})

	if err != nil {
		return nil, err
	}

	return result.(*Cache), nil
}

// InvalidateCache drops the cached indices of spec.
func (e *Engine) InvalidateCache(spec *Spec) {
	e.mu.Lock()
	delete(e.caches, spec.CacheKey())
	e.mu.Unlock()
}
