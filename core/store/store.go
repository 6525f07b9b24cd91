package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"storesync/core/accessor"
	"storesync/core/record"

	"go.uber.org/zap"
)

// Connector is the connection lifecycle of a store backend.
type Connector interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	IsConnected() bool
}

// Query selects records across one or more types. Types are paged in the
// given order; an empty list means every type served by the store.
type Query struct {
	Types  []*record.Type
	Filter accessor.Filter
	Limit  int
	Skip   int
}

// Store dispatches record operations to the accessor serving each record
// type. It implements record.Store.
type Store struct {
	name     string
	conn     Connector
	registry *accessor.Registry
	logger   *zap.Logger

	mu        sync.RWMutex
	observers map[int]*observer
	nextID    int
}

var _ record.Store = (*Store)(nil)

// New creates a store. A nil conn means the backend needs no connection;
// otherwise the store connects on first use.
func New(name string, conn Connector, logger *zap.Logger, accessors ...accessor.Accessor) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		name:      name,
		conn:      conn,
		registry:  accessor.NewRegistry(accessors...),
		logger:    logger.With(zap.String("store", name)),
		observers: make(map[int]*observer),
	}
}

// Name returns the store name.
func (s *Store) Name() string {
	return s.name
}

func (s *Store) String() string {
	return s.name
}

// SetAccessors replaces every registered accessor.
func (s *Store) SetAccessors(accessors ...accessor.Accessor) {
	s.registry.Clear()
	s.registry.Register(accessors...)
}

// Accessors returns the distinct registered accessors.
func (s *Store) Accessors() []accessor.Accessor {
	return s.registry.Accessors()
}

// Registry exposes the accessor registry.
func (s *Store) Registry() *accessor.Registry {
	return s.registry
}

// Types returns the record types served by the store, sorted by name.
func (s *Store) Types() []*record.Type {
	return s.registry.Types()
}

// Connect opens the backend connection.
func (s *Store) Connect(ctx context.Context) error {
	if s.conn == nil {
		return nil
	}
	if err := s.conn.Connect(ctx); err != nil {
		return s.wrap("connect", err)
	}
	s.logger.Debug("Connected")
	return nil
}

// Disconnect closes the backend connection.
func (s *Store) Disconnect(ctx context.Context) error {
	if s.conn == nil {
		return nil
	}
	if err := s.conn.Disconnect(ctx); err != nil {
		return s.wrap("disconnect", err)
	}
	s.logger.Debug("Disconnected")
	return nil
}

// IsConnected reports whether the backend is connected.
func (s *Store) IsConnected() bool {
	return s.conn == nil || s.conn.IsConnected()
}

func (s *Store) ensureConnected(ctx context.Context) error {
	if s.IsConnected() {
		return nil
	}
	return s.Connect(ctx)
}

func (s *Store) selectAccessor(t *record.Type) (accessor.Accessor, error) {
	if t == nil {
		return nil, ErrNoAccessor
	}
	a := s.registry.ForType(t)
	if a == nil {
		return nil, fmt.Errorf("%w for type %s", ErrNoAccessor, t.Name())
	}
	return a, nil
}

type batch struct {
	acc     accessor.Accessor
	records []*record.Record
}

// batches splits records by type, in order of first appearance, and resolves
// the accessor for each type.
func (s *Store) batches(records []*record.Record) ([]batch, error) {
	var out []batch
	index := make(map[*record.Type]int)
	for _, rec := range records {
		t := rec.Type()
		i, ok := index[t]
		if !ok {
			a, err := s.selectAccessor(t)
			if err != nil {
				return nil, err
			}
			i = len(out)
			index[t] = i
			out = append(out, batch{acc: a})
		}
		out[i].records = append(out[i].records, rec)
	}
	return out, nil
}

func (s *Store) register(records []*record.Record) {
	for _, rec := range records {
		rec.AddStore(s)
	}
}

// Create materializes a record of rtype from data and adds it.
func (s *Store) Create(ctx context.Context, rtype *record.Type, data map[string]any) (*record.Record, error) {
	a, err := s.selectAccessor(rtype)
	if err != nil {
		return nil, s.wrap("create", err)
	}
	rec, err := a.Create(ctx, rtype, data)
	if err != nil {
		return nil, s.wrap("create", err)
	}
	if _, err := s.Add(ctx, []*record.Record{rec}); err != nil {
		return nil, err
	}
	return rec, nil
}

// Add inserts records and registers the store on each of them.
func (s *Store) Add(ctx context.Context, records []*record.Record) ([]*record.Record, error) {
	if len(records) == 0 {
		return nil, nil
	}
	if err := s.ensureConnected(ctx); err != nil {
		return nil, err
	}
	batches, err := s.batches(records)
	if err != nil {
		return nil, s.wrap("add", err)
	}

	var out []*record.Record
	for _, b := range batches {
		added, err := b.acc.Add(ctx, b.records)
		if err != nil {
			s.logger.Debug("Add failed", zap.Int("records", len(b.records)), zap.Error(err))
			return out, s.wrap("add", err)
		}
		s.register(b.records)
		s.notify(ctx, EventAdd, b.records)
		out = append(out, added...)
	}
	return out, nil
}

// Update overwrites records. With upsert, records the backend does not hold
// are added instead.
func (s *Store) Update(ctx context.Context, records []*record.Record, upsert bool) ([]*record.Record, error) {
	if len(records) == 0 {
		return nil, nil
	}
	if err := s.ensureConnected(ctx); err != nil {
		return nil, err
	}
	batches, err := s.batches(records)
	if err != nil {
		return nil, s.wrap("update", err)
	}

	var out []*record.Record
	for _, b := range batches {
		event := EventUpdate
		updated, err := b.acc.Update(ctx, b.records, upsert)
		if err != nil && upsert && errors.Is(err, accessor.ErrNotFound) {
			event = EventAdd
			updated, err = b.acc.Add(ctx, b.records)
		}
		if err != nil {
			s.logger.Debug("Update failed", zap.Int("records", len(b.records)), zap.Bool("upsert", upsert), zap.Error(err))
			return out, s.wrap("update", err)
		}
		s.register(b.records)
		s.notify(ctx, event, b.records)
		out = append(out, updated...)
	}
	return out, nil
}

// Upsert is Update with upsert set.
func (s *Store) Upsert(ctx context.Context, records ...*record.Record) ([]*record.Record, error) {
	return s.Update(ctx, records, true)
}

// Get returns the stored record with the identity of rec.
func (s *Store) Get(ctx context.Context, rec *record.Record) (*record.Record, error) {
	if err := s.ensureConnected(ctx); err != nil {
		return nil, err
	}
	a, err := s.selectAccessor(rec.Type())
	if err != nil {
		return nil, s.wrap("get", err)
	}
	got, err := a.Get(ctx, rec)
	if err != nil {
		return nil, s.wrap("get", err)
	}
	got.AddStore(s)
	return got, nil
}

// Find returns the records selected by q. With several types, Limit and Skip
// apply to the concatenation of every type's results in q.Types order.
func (s *Store) Find(ctx context.Context, q Query) ([]*record.Record, error) {
	if err := s.ensureConnected(ctx); err != nil {
		return nil, err
	}
	types := q.Types
	if len(types) == 0 {
		types = s.Types()
	}

	var out []*record.Record
	skip := q.Skip
	for _, t := range types {
		a, err := s.selectAccessor(t)
		if err != nil {
			return nil, s.wrap("find", err)
		}

		if skip > 0 && len(types) > 1 {
			n, err := a.Count(ctx, t, q.Filter)
			if err != nil {
				return nil, s.wrap("find", err)
			}
			if skip >= n {
				skip -= n
				continue
			}
		}

		page := accessor.Page{Skip: skip}
		if q.Limit > 0 {
			page.Limit = q.Limit - len(out)
		}
		found, err := a.Find(ctx, t, q.Filter, page)
		if err != nil {
			return nil, s.wrap("find", err)
		}
		skip = 0
		out = append(out, found...)

		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}

	s.register(out)
	return out, nil
}

// Count returns the number of records of rtype matching filter.
func (s *Store) Count(ctx context.Context, rtype *record.Type, filter accessor.Filter) (int, error) {
	if err := s.ensureConnected(ctx); err != nil {
		return 0, err
	}
	a, err := s.selectAccessor(rtype)
	if err != nil {
		return 0, s.wrap("count", err)
	}
	n, err := a.Count(ctx, rtype, filter)
	if err != nil {
		return 0, s.wrap("count", err)
	}
	return n, nil
}

// Remove deletes records and unregisters the store from each of them.
func (s *Store) Remove(ctx context.Context, records []*record.Record) ([]*record.Record, error) {
	if len(records) == 0 {
		return nil, nil
	}
	if err := s.ensureConnected(ctx); err != nil {
		return nil, err
	}
	batches, err := s.batches(records)
	if err != nil {
		return nil, s.wrap("remove", err)
	}

	var out []*record.Record
	for _, b := range batches {
		removed, err := b.acc.Remove(ctx, b.records, nil, nil)
		if err != nil {
			s.logger.Debug("Remove failed", zap.Int("records", len(b.records)), zap.Error(err))
			return out, s.wrap("remove", err)
		}
		for _, rec := range b.records {
			rec.RemoveStore(s)
		}
		s.notify(ctx, EventRemove, b.records)
		out = append(out, removed...)
	}
	return out, nil
}

// RemoveWhere deletes every record of rtype matching filter.
func (s *Store) RemoveWhere(ctx context.Context, rtype *record.Type, filter accessor.Filter) ([]*record.Record, error) {
	if err := s.ensureConnected(ctx); err != nil {
		return nil, err
	}
	a, err := s.selectAccessor(rtype)
	if err != nil {
		return nil, s.wrap("remove", err)
	}
	removed, err := a.Remove(ctx, nil, rtype, filter)
	if err != nil {
		return nil, s.wrap("remove", err)
	}
	for _, rec := range removed {
		rec.RemoveStore(s)
	}
	s.notify(ctx, EventRemove, removed)
	return removed, nil
}
