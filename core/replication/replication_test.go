package replication

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"storesync/core/accessor"
	"storesync/core/database"
	"storesync/core/metrics"
	"storesync/core/reconcile"
	"storesync/core/record"
	"storesync/core/store"
	"storesync/feature/memory"
	"storesync/feature/sqlstore"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var (
	itemType = record.MustNewType("item",
		record.Field{Name: "id", Kind: record.String, Identifier: true},
		record.Field{Name: "qty", Kind: record.Int, Default: 0},
	)
	tagType = record.MustNewType("tag",
		record.Field{Name: "id", Kind: record.String, Identifier: true},
	)
)

var errInjected = errors.New("injected failure")

// flakyAccessor fails the selected operations.
type flakyAccessor struct {
	*memory.Accessor
	failAdd    bool
	failUpdate bool
}

func (f *flakyAccessor) Add(ctx context.Context, records []*record.Record) ([]*record.Record, error) {
	if f.failAdd {
		return nil, accessor.Wrap(accessor.ErrBackend, errInjected)
	}
	return f.Accessor.Add(ctx, records)
}

func (f *flakyAccessor) Update(ctx context.Context, records []*record.Record, upsert bool) ([]*record.Record, error) {
	if f.failUpdate {
		return nil, accessor.Wrap(accessor.ErrBackend, errInjected)
	}
	return f.Accessor.Update(ctx, records, upsert)
}

func newMemStore(name string, types ...*record.Type) *store.Store {
	if len(types) == 0 {
		types = []*record.Type{itemType, tagType}
	}
	b := memory.NewBackend()
	return store.New(name, b, nil, memory.NewAccessor(b, types...))
}

func newFlakyStore(name string, failAdd, failUpdate bool) *store.Store {
	b := memory.NewBackend()
	acc := &flakyAccessor{Accessor: memory.NewAccessor(b, itemType, tagType), failAdd: failAdd, failUpdate: failUpdate}
	return store.New(name, b, nil, acc)
}

func items(t *testing.T, n int) []*record.Record {
	t.Helper()
	out := make([]*record.Record, n)
	for i := range out {
		r, err := itemType.New(map[string]any{"id": fmt.Sprintf("i%02d", i), "qty": i})
		require.NoError(t, err)
		out[i] = r
	}
	return out
}

func snapshot(t *testing.T, s *store.Store, types ...*record.Type) map[string]map[string]any {
	t.Helper()
	recs, err := s.Find(context.Background(), store.Query{Types: types})
	require.NoError(t, err)
	out := make(map[string]map[string]any, len(recs))
	for _, r := range recs {
		out[r.Type().Name()+"/"+r.Key()] = r.Raw(true)
	}
	return out
}

func TestSynchronize_Convergence(t *testing.T) {
	ctx := context.Background()

	for _, count := range []int{1, 3, 7, 100} {
		t.Run(fmt.Sprintf("Count%d", count), func(t *testing.T) {
			src, dst := newMemStore("src"), newMemStore("dst")
			_, err := src.Add(ctx, items(t, 7))
			require.NoError(t, err)

			r := NewRegistry(nil, nil, src, dst)
			rep, err := r.Synchronize(ctx, SyncOptions{
				Types:   []*record.Type{itemType},
				Sources: []*store.Store{src},
				Targets: []*store.Store{dst},
				Count:   count,
			})
			require.NoError(t, err)

			assert.Equal(t, 7, rep.Records)
			assert.Equal(t, (7+count-1)/count, rep.Pages)
			assert.Equal(t, map[string]int{"src": 7}, rep.PerSource)
			assert.Equal(t, snapshot(t, src, itemType), snapshot(t, dst, itemType))
		})
	}
}

func TestSynchronize_EncodedTarget(t *testing.T) {
	ctx := context.Background()
	eventType := record.MustNewType("event",
		record.Field{Name: "id", Kind: record.String, Identifier: true},
		record.Field{Name: "at", Kind: record.Time},
		record.Field{Name: "meta"},
	)

	cet := time.FixedZone("CET", 3600)
	var originals []*record.Record
	for i := 0; i < 3; i++ {
		r, err := eventType.New(map[string]any{
			"id": fmt.Sprintf("e%d", i),
			"at": time.Now().In(cet),
			"meta": map[string]any{
				"n":    5 + i,
				"neg":  int64(-2),
				"list": []any{1, uint8(2), 2.5, "x"},
				"when": time.Date(2024, 6, 1, 8, 0, 0, 0, cet),
			},
		})
		require.NoError(t, err)
		originals = append(originals, r)
	}

	src := newMemStore("src", eventType)
	_, err := src.Add(ctx, originals)
	require.NoError(t, err)

	b := sqlstore.NewBackend(database.Config{Driver: "sqlite", Name: ":memory:"}, sqlstore.Options{}, nil)
	dst := store.New("sql", b, nil, sqlstore.NewAccessor(b, eventType))
	require.NoError(t, dst.Connect(ctx))
	t.Cleanup(func() { _ = dst.Disconnect(ctx) })

	r := NewRegistry(nil, nil, src, dst)
	_, err = r.Synchronize(ctx, SyncOptions{Sources: []*store.Store{src}, Targets: []*store.Store{dst}, Count: 1})
	require.NoError(t, err)

	for _, want := range originals {
		got, err := dst.Get(ctx, want)
		require.NoError(t, err)
		assert.True(t, want.Equal(got), "record %s differs after round trip: %v != %v", want.Key(), want.Raw(true), got.Raw(true))
		assert.Equal(t, want.Hash(), got.Hash())
	}

	spec := &reconcile.Spec{Stores: []*store.Store{src, dst}, Types: []*record.Type{eventType}, Count: 2}
	plan, err := reconcile.NewEngine(nil).Plan(ctx, spec, reconcile.Options{DoRepair: true})
	require.NoError(t, err)
	assert.Equal(t, 3, plan.Summary.TotalItems)
	assert.Zero(t, plan.Summary.Mismatches)
	assert.Empty(t, plan.Actions)
}

func TestSynchronize_PageSizes(t *testing.T) {
	ctx := context.Background()
	src := newMemStore("src")
	_, err := src.Add(ctx, items(t, 7))
	require.NoError(t, err)

	var sizes []int
	b := memory.NewBackend()
	spy := &pageSpy{Accessor: memory.NewAccessor(b, itemType), onUpdate: func(n int) { sizes = append(sizes, n) }}
	dst := store.New("dst", b, nil, spy)

	r := NewRegistry(nil, nil, src, dst)
	_, err = r.Synchronize(ctx, SyncOptions{Sources: []*store.Store{src}, Targets: []*store.Store{dst}, Count: 3})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 3, 1}, sizes)
}

// pageSpy reports the size of every update batch.
type pageSpy struct {
	*memory.Accessor
	onUpdate func(int)
}

func (p *pageSpy) Update(ctx context.Context, records []*record.Record, upsert bool) ([]*record.Record, error) {
	p.onUpdate(len(records))
	return p.Accessor.Update(ctx, records, upsert)
}

func TestSynchronize_Idempotent(t *testing.T) {
	ctx := context.Background()
	src, dst := newMemStore("src"), newMemStore("dst")
	_, err := src.Add(ctx, items(t, 5))
	require.NoError(t, err)

	r := NewRegistry(nil, nil, src, dst)
	opts := SyncOptions{Sources: []*store.Store{src}, Targets: []*store.Store{dst}, Count: 2}

	_, err = r.Synchronize(ctx, opts)
	require.NoError(t, err)
	first := snapshot(t, dst)

	rep, err := r.Synchronize(ctx, opts)
	require.NoError(t, err)
	assert.Equal(t, 5, rep.Records)
	assert.Equal(t, first, snapshot(t, dst))
}

func TestSynchronize_Defaults(t *testing.T) {
	ctx := context.Background()
	a, b := newMemStore("a"), newMemStore("b", itemType)
	_, err := a.Add(ctx, items(t, 2))
	require.NoError(t, err)
	tag, err := tagType.New(map[string]any{"id": "t1"})
	require.NoError(t, err)
	_, err = a.Add(ctx, []*record.Record{tag})
	require.NoError(t, err)
	_, err = b.Add(ctx, []*record.Record{items(t, 4)[3]})
	require.NoError(t, err)

	r := NewRegistry(nil, nil, a, b)
	rep, err := r.Synchronize(ctx, SyncOptions{Types: []*record.Type{itemType}})
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"a": 2, "b": 3}, rep.PerSource)
	assert.Equal(t, snapshot(t, a, itemType), snapshot(t, b, itemType))

	n, err := a.Count(ctx, itemType, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSynchronize_TargetTypes(t *testing.T) {
	ctx := context.Background()
	a, b := newMemStore("a"), newMemStore("b", itemType)
	_, err := a.Add(ctx, items(t, 2))
	require.NoError(t, err)
	tag, err := tagType.New(map[string]any{"id": "t1"})
	require.NoError(t, err)
	_, err = a.Add(ctx, []*record.Record{tag})
	require.NoError(t, err)

	r := NewRegistry(nil, nil, a, b)
	rep, err := r.Synchronize(ctx, SyncOptions{Sources: []*store.Store{a}})
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Records)

	n, err := b.Count(ctx, itemType, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSynchronize_WarnsUnservedType(t *testing.T) {
	ctx := context.Background()
	a, b := newMemStore("a"), newMemStore("b", itemType)
	tag, err := tagType.New(map[string]any{"id": "t1"})
	require.NoError(t, err)
	_, err = a.Add(ctx, []*record.Record{tag})
	require.NoError(t, err)

	core, logs := observer.New(zap.WarnLevel)
	r := NewRegistry(zap.New(core), nil, a, b)

	t.Run("ExplicitTypes", func(t *testing.T) {
		_, err := r.Synchronize(ctx, SyncOptions{Types: []*record.Type{tagType}, Sources: []*store.Store{a}, Targets: []*store.Store{b}})
		require.NoError(t, err)

		entries := logs.FilterMessage("Target does not serve requested type, skipping").All()
		require.Len(t, entries, 1)
		fields := entries[0].ContextMap()
		assert.Equal(t, "b", fields["target"])
		assert.Equal(t, "tag", fields["type"])
	})

	t.Run("DefaultTypes", func(t *testing.T) {
		logs.TakeAll()
		_, err := r.Synchronize(ctx, SyncOptions{Sources: []*store.Store{a}, Targets: []*store.Store{b}})
		require.NoError(t, err)
		assert.Zero(t, logs.Len())
	})
}

func TestSynchronize_FailureStops(t *testing.T) {
	ctx := context.Background()
	src, ok, bad := newMemStore("src"), newMemStore("ok"), newFlakyStore("bad", false, true)
	_, err := src.Add(ctx, items(t, 4))
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	r := NewRegistry(nil, metrics.New(reg), src, ok, bad)
	rep, err := r.Synchronize(ctx, SyncOptions{Sources: []*store.Store{src}, Targets: []*store.Store{ok, bad}, Count: 2})
	require.Error(t, err)

	var re *Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "src", re.Source)
	assert.Equal(t, "bad", re.Target)
	assert.Equal(t, 0, re.Skip)
	assert.ErrorIs(t, err, errInjected)

	var se *store.Error
	assert.ErrorAs(t, err, &se)
	assert.Equal(t, 1, rep.Pages)

	// The first page reached the target ordered before the failing one.
	n, err := ok.Count(ctx, itemType, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSynchronize_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src, dst := newMemStore("src"), newMemStore("dst")
	r := NewRegistry(nil, nil, src, dst)
	_, err := r.Synchronize(ctx, SyncOptions{Sources: []*store.Store{src}, Targets: []*store.Store{dst}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFanout_BestEffort(t *testing.T) {
	ctx := context.Background()
	a, b, broken := newMemStore("a"), newMemStore("b"), newFlakyStore("broken", true, false)
	r := NewRegistry(nil, nil, a, broken, b)
	rec := items(t, 1)[0]

	results := r.Add(ctx, []*record.Record{rec})
	assert.Len(t, results, 3)

	ok := results.Succeeded()
	assert.Len(t, ok, 2)
	assert.Contains(t, ok, "a")
	assert.Contains(t, ok, "b")
	assert.NotContains(t, ok, "broken")

	failed := results.Failed()
	require.Contains(t, failed, "broken")
	assert.ErrorIs(t, failed["broken"], errInjected)
	assert.ErrorIs(t, results.Err(), errInjected)

	assert.True(t, rec.HasStore(a))
	assert.False(t, rec.HasStore(broken))

	t.Run("Get", func(t *testing.T) {
		got := r.Get(ctx, rec).Succeeded()
		assert.Len(t, got, 2)
		assert.True(t, got["a"][0].Equal(rec))
	})

	t.Run("Find", func(t *testing.T) {
		found := r.Find(ctx, store.Query{Types: []*record.Type{itemType}})
		assert.NoError(t, found.Err())
		assert.Len(t, found.Succeeded()["broken"], 0)
		assert.Len(t, found.Succeeded()["b"], 1)
	})

	t.Run("SelectedStores", func(t *testing.T) {
		require.NoError(t, rec.Set("qty", 9))
		res := r.Update(ctx, []*record.Record{rec}, false, b)
		assert.Len(t, res, 1)
		assert.NoError(t, res.Err())
	})

	t.Run("Remove", func(t *testing.T) {
		res := r.Remove(ctx, []*record.Record{rec})
		assert.Len(t, res.Succeeded(), 2)
		assert.Len(t, res.Failed(), 1)
		assert.Empty(t, rec.Stores())
	})
}

func TestRegistry_Stores(t *testing.T) {
	a, b := newMemStore("a"), newMemStore("b")
	r := NewRegistry(nil, nil, a, b)

	got, err := r.Lookup("b", "a")
	require.NoError(t, err)
	assert.Equal(t, []*store.Store{b, a}, got)

	_, err = r.Lookup("c")
	assert.ErrorIs(t, err, ErrUnknownStore)

	a2 := newMemStore("a")
	r.AddStore(a2)
	assert.Equal(t, []*store.Store{a2, b}, r.Stores())

	r.RemoveStore("a")
	assert.Equal(t, []*store.Store{b}, r.Stores())

	r.SetCount(0)
	assert.Equal(t, DefaultCount, r.Count())
	r.SetCount(10)
	assert.Equal(t, 10, r.Count())

	assert.Equal(t, []*record.Type{itemType, tagType}, Types([]*store.Store{newMemStore("x", tagType), b}))
}

func TestWatch(t *testing.T) {
	ctx := context.Background()
	a, b, c := newMemStore("a"), newMemStore("b"), newMemStore("c")
	r := NewRegistry(nil, nil, a, b, c)
	r.Watch()
	r.Watch()

	rec := items(t, 1)[0]
	_, err := a.Add(ctx, []*record.Record{rec})
	require.NoError(t, err)

	for _, s := range []*store.Store{b, c} {
		got, err := s.Get(ctx, rec)
		require.NoError(t, err, s.Name())
		assert.True(t, got.Equal(rec))
	}

	require.NoError(t, rec.Set("qty", 42))
	_, err = b.Update(ctx, []*record.Record{rec}, false)
	require.NoError(t, err)
	got, err := c.Get(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, 42, got.Value("qty"))

	_, err = c.Remove(ctx, []*record.Record{rec})
	require.NoError(t, err)
	for _, s := range []*store.Store{a, b} {
		_, err := s.Get(ctx, rec)
		assert.ErrorIs(t, err, accessor.ErrNotFound, s.Name())
	}

	r.Unwatch()
	other := items(t, 2)[1]
	_, err = a.Add(ctx, []*record.Record{other})
	require.NoError(t, err)
	_, err = b.Get(ctx, other)
	assert.ErrorIs(t, err, accessor.ErrNotFound)
}

func TestWatch_IgnoresSynchronize(t *testing.T) {
	ctx := context.Background()
	src, dst, third := newMemStore("src"), newMemStore("dst"), newMemStore("third")
	_, err := src.Add(ctx, items(t, 3))
	require.NoError(t, err)

	r := NewRegistry(nil, nil, src, dst, third)
	r.Watch()
	_, err = r.Synchronize(ctx, SyncOptions{Sources: []*store.Store{src}, Targets: []*store.Store{dst}})
	require.NoError(t, err)

	n, err := third.Count(ctx, itemType, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRun(t *testing.T) {
	src, dst := newMemStore("src"), newMemStore("dst")
	_, err := src.Add(context.Background(), items(t, 3))
	require.NoError(t, err)
	r := NewRegistry(nil, nil, src, dst)
	opts := SyncOptions{Sources: []*store.Store{src}, Targets: []*store.Store{dst}}

	t.Run("Once", func(t *testing.T) {
		require.NoError(t, r.Run(context.Background(), 0, opts))
		n, err := dst.Count(context.Background(), itemType, nil)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("OnceFailure", func(t *testing.T) {
		bad := NewRegistry(nil, nil, src, newFlakyStore("bad", false, true))
		assert.Error(t, bad.Run(context.Background(), 0, SyncOptions{}))
	})

	t.Run("Periodic", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		extra := items(t, 5)[4]
		go func() {
			time.Sleep(5 * time.Millisecond)
			_, _ = src.Add(context.Background(), []*record.Record{extra})
		}()

		assert.NoError(t, r.Run(ctx, 10*time.Millisecond, opts))
		_, err := dst.Get(context.Background(), extra)
		assert.NoError(t, err)
	})
}
