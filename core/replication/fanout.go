package replication

import (
	"context"

	"storesync/core/record"
	"storesync/core/store"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Outcome is the result of a fan-out operation on one store.
type Outcome struct {
	Store   *store.Store
	Records []*record.Record
	Err     error
}

// Results holds one outcome per selected store, in registry order.
type Results []Outcome

// Succeeded maps the name of every store that succeeded to its records.
func (rs Results) Succeeded() map[string][]*record.Record {
	out := make(map[string][]*record.Record)
	for _, o := range rs {
		if o.Err == nil {
			out[o.Store.Name()] = o.Records
		}
	}
	return out
}

// Failed maps the name of every store that failed to its error.
func (rs Results) Failed() map[string]error {
	out := make(map[string]error)
	for _, o := range rs {
		if o.Err != nil {
			out[o.Store.Name()] = o.Err
		}
	}
	return out
}

// Err combines every failure, or returns nil.
func (rs Results) Err() error {
	var errs error
	for _, o := range rs {
		errs = multierr.Append(errs, o.Err)
	}
	return errs
}

func (r *Registry) fanout(ctx context.Context, op string, stores []*store.Store, fn func(*store.Store) ([]*record.Record, error)) Results {
	if len(stores) == 0 {
		stores = r.Stores()
	}

	results := make(Results, 0, len(stores))
	for _, s := range stores {
		recs, err := fn(s)
		if err != nil {
			r.logger.Warn("Fan-out operation failed",
				zap.String("op", op),
				zap.String("store", s.Name()),
				zap.Error(err),
			)
			r.metrics.FanoutFailed(s.Name(), op)
		}
		results = append(results, Outcome{Store: s, Records: recs, Err: err})
	}
	return results
}

// Add adds records to every selected store.
func (r *Registry) Add(ctx context.Context, records []*record.Record, stores ...*store.Store) Results {
	return r.fanout(ctx, "add", stores, func(s *store.Store) ([]*record.Record, error) {
		return s.Add(ctx, records)
	})
}

// Update updates records in every selected store.
func (r *Registry) Update(ctx context.Context, records []*record.Record, upsert bool, stores ...*store.Store) Results {
	return r.fanout(ctx, "update", stores, func(s *store.Store) ([]*record.Record, error) {
		return s.Update(ctx, records, upsert)
	})
}

// Get reads the record with the identity of rec from every selected store.
func (r *Registry) Get(ctx context.Context, rec *record.Record, stores ...*store.Store) Results {
	return r.fanout(ctx, "get", stores, func(s *store.Store) ([]*record.Record, error) {
		got, err := s.Get(ctx, rec)
		if err != nil {
			return nil, err
		}
		return []*record.Record{got}, nil
	})
}

// Find runs q on every selected store.
func (r *Registry) Find(ctx context.Context, q store.Query, stores ...*store.Store) Results {
	return r.fanout(ctx, "find", stores, func(s *store.Store) ([]*record.Record, error) {
		return s.Find(ctx, q)
	})
}

// Remove removes records from every selected store.
func (r *Registry) Remove(ctx context.Context, records []*record.Record, stores ...*store.Store) Results {
	return r.fanout(ctx, "remove", stores, func(s *store.Store) ([]*record.Record, error) {
		return s.Remove(ctx, records)
	})
}
