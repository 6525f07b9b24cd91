package store

import (
	"context"
	"sort"
	"strings"

	"storesync/core/record"
)

// Event is a bitmask of store write events.
type Event uint8

const (
	EventAdd Event = 1 << iota
	EventUpdate
	EventRemove

	EventAll = EventAdd | EventUpdate | EventRemove
)

func (e Event) String() string {
	var names []string
	if e&EventAdd != 0 {
		names = append(names, "add")
	}
	if e&EventUpdate != 0 {
		names = append(names, "update")
	}
	if e&EventRemove != 0 {
		names = append(names, "remove")
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// Observer is called synchronously after a successful write, once per record.
type Observer func(ctx context.Context, event Event, rec *record.Record, s *Store)

type observer struct {
	events Event
	types  map[*record.Type]bool
	fn     Observer
}

func (o *observer) wants(event Event, t *record.Type) bool {
	if o.events&event == 0 {
		return false
	}
	return len(o.types) == 0 || o.types[t]
}

type silentKey struct{}

// WithoutNotify returns a context under which store writes do not notify
// observers.
func WithoutNotify(ctx context.Context) context.Context {
	return context.WithValue(ctx, silentKey{}, true)
}

func silenced(ctx context.Context) bool {
	v, _ := ctx.Value(silentKey{}).(bool)
	return v
}

// Observe registers fn for events on records of the given types, or of every
// type when none is given. It returns an id for Unobserve.
func (s *Store) Observe(events Event, fn Observer, types ...*record.Type) int {
	o := &observer{events: events, fn: fn}
	if len(types) > 0 {
		o.types = make(map[*record.Type]bool, len(types))
		for _, t := range types {
			o.types[t] = true
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.observers[s.nextID] = o
	return s.nextID
}

// Unobserve removes the observer registered under id.
func (s *Store) Unobserve(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.observers, id)
}

func (s *Store) notify(ctx context.Context, event Event, records []*record.Record) {
	if len(records) == 0 || silenced(ctx) {
		return
	}

	s.mu.RLock()
	ids := make([]int, 0, len(s.observers))
	for id := range s.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	observers := make([]*observer, 0, len(ids))
	for _, id := range ids {
		observers = append(observers, s.observers[id])
	}
	s.mu.RUnlock()

	for _, rec := range records {
		for _, o := range observers {
			if o.wants(event, rec.Type()) {
				o.fn(ctx, event, rec, s)
			}
		}
	}
}
