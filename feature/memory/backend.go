package memory

import (
	"context"
	"sync"

	"storesync/core/record"
	"storesync/core/store"

	"go.uber.org/zap"
)

// Backend holds the tables of one memory store.
type Backend struct {
	mu        sync.RWMutex
	connected bool
	tables    map[string]map[string]*record.Record
}

// NewBackend returns an empty, disconnected backend.
func NewBackend() *Backend {
	return &Backend{tables: make(map[string]map[string]*record.Record)}
}

func (b *Backend) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = true
	return nil
}

func (b *Backend) Disconnect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = false
	return nil
}

func (b *Backend) IsConnected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.connected
}

// Len returns the number of records held for a type name.
func (b *Backend) Len(typeName string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.tables[typeName])
}

func (b *Backend) table(typeName string) map[string]*record.Record {
	t, ok := b.tables[typeName]
	if !ok {
		t = make(map[string]*record.Record)
		b.tables[typeName] = t
	}
	return t
}

// Factory builds memory stores. Options are not used.
func Factory(logger *zap.Logger) store.Factory {
	return func(ctx context.Context, spec store.Spec, types []*record.Type) (*store.Store, error) {
		b := NewBackend()
		return store.New(spec.Name, b, logger, NewAccessor(b, types...)), nil
	}
}
