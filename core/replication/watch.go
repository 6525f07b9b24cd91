package replication

import (
	"context"
	"errors"

	"storesync/core/accessor"
	"storesync/core/record"
	"storesync/core/store"

	"go.uber.org/zap"
)

// Watch replays every write observed on a managed store on all other managed
// stores. Replayed writes do not notify observers. Calling Watch again has no
// effect on stores already watched.
func (r *Registry) Watch() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.stores {
		if _, ok := r.watchers[s]; ok {
			continue
		}
		r.watchers[s] = s.Observe(store.EventAll, r.propagate)
	}
}

// Unwatch stops live propagation.
func (r *Registry) Unwatch() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for s, id := range r.watchers {
		s.Unobserve(id)
	}
	r.watchers = make(map[*store.Store]int)
}

func (r *Registry) propagate(ctx context.Context, event store.Event, rec *record.Record, src *store.Store) {
	if replaying(ctx) {
		return
	}
	ctx = store.WithoutNotify(ctx)

	var targets []*store.Store
	for _, s := range r.Stores() {
		if s != src {
			targets = append(targets, s)
		}
	}
	if len(targets) == 0 {
		return
	}

	r.fanout(ctx, "propagate", targets, func(dst *store.Store) ([]*record.Record, error) {
		recs := []*record.Record{rec}
		switch event {
		case store.EventAdd:
			out, err := dst.Add(ctx, recs)
			if errors.Is(err, accessor.ErrAlreadyExists) {
				return dst.Update(ctx, recs, true)
			}
			return out, err
		case store.EventUpdate:
			return dst.Update(ctx, recs, true)
		case store.EventRemove:
			out, err := dst.Remove(ctx, recs)
			if errors.Is(err, accessor.ErrNotFound) {
				return nil, nil
			}
			return out, err
		}
		return nil, nil
	})

	r.logger.Debug("Write propagated",
		zap.String("source", src.Name()),
		zap.Stringer("event", event),
		zap.String("key", rec.Key()),
	)
}
