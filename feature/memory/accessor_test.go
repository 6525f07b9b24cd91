package memory

import (
	"context"
	"testing"

	"storesync/core/accessor"
	"storesync/core/record"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	teamType = record.MustNewType("team",
		record.Field{Name: "id", Kind: record.String, Identifier: true},
		record.Field{Name: "name", Kind: record.String},
	)
	memberType = record.MustNewType("member",
		record.Field{Name: "id", Kind: record.String, Identifier: true},
		record.Field{Name: "team", Kind: record.Ref, RefType: teamType},
	)
)

func setup(t *testing.T) (*Accessor, *Backend) {
	t.Helper()
	b := NewBackend()
	require.NoError(t, b.Connect(context.Background()))
	return NewAccessor(b, teamType, memberType), b
}

func team(t *testing.T, id, name string) *record.Record {
	t.Helper()
	r, err := teamType.New(map[string]any{"id": id, "name": name})
	require.NoError(t, err)
	return r
}

func TestAccessor_AddGet(t *testing.T) {
	ctx := context.Background()
	a, b := setup(t)
	r := team(t, "t1", "red")

	_, err := a.Add(ctx, []*record.Record{r})
	require.NoError(t, err)
	assert.Equal(t, 1, b.Len("team"))

	got, err := a.Get(ctx, r)
	require.NoError(t, err)
	assert.True(t, got.Equal(r))

	t.Run("StoredCopyIsDetached", func(t *testing.T) {
		require.NoError(t, r.Set("name", "blue"))
		got, err := a.Get(ctx, r)
		require.NoError(t, err)
		assert.Equal(t, "red", got.Value("name"))
		r.Cancel()
	})

	t.Run("Duplicate", func(t *testing.T) {
		_, err := a.Add(ctx, []*record.Record{r})
		assert.ErrorIs(t, err, accessor.ErrAlreadyExists)
	})

	t.Run("DuplicateInBatch", func(t *testing.T) {
		x := team(t, "t2", "x")
		_, err := a.Add(ctx, []*record.Record{x, team(t, "t2", "y")})
		assert.ErrorIs(t, err, accessor.ErrAlreadyExists)
		assert.Equal(t, 1, b.Len("team"), "failed batches are not applied")
	})
}

func TestAccessor_Update(t *testing.T) {
	ctx := context.Background()
	a, _ := setup(t)
	r := team(t, "t1", "red")

	_, err := a.Update(ctx, []*record.Record{r}, false)
	assert.ErrorIs(t, err, accessor.ErrNotFound)

	_, err = a.Update(ctx, []*record.Record{r}, true)
	require.NoError(t, err)

	require.NoError(t, r.Set("name", "green"))
	_, err = a.Update(ctx, []*record.Record{r}, false)
	require.NoError(t, err)

	got, err := a.Get(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, "green", got.Value("name"))
}

func TestAccessor_FindCountRemove(t *testing.T) {
	ctx := context.Background()
	a, b := setup(t)
	_, err := a.Add(ctx, []*record.Record{team(t, "c", "red"), team(t, "a", "red"), team(t, "b", "blue")})
	require.NoError(t, err)

	found, err := a.Find(ctx, teamType, accessor.Filter{"name": "red"}, accessor.Page{})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "a", found[0].Key())
	assert.Equal(t, "c", found[1].Key())

	found, err = a.Find(ctx, teamType, nil, accessor.Page{Skip: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "b", found[0].Key())

	n, err := a.Count(ctx, teamType, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	removed, err := a.Remove(ctx, nil, teamType, accessor.Filter{"name": "red"})
	require.NoError(t, err)
	assert.Len(t, removed, 2)
	assert.Equal(t, 1, b.Len("team"))

	_, err = a.Remove(ctx, []*record.Record{team(t, "a", "red")}, nil, nil)
	assert.ErrorIs(t, err, accessor.ErrNotFound)
}

func TestAccessor_References(t *testing.T) {
	ctx := context.Background()
	a, _ := setup(t)
	red := team(t, "t1", "red")
	m, err := memberType.New(map[string]any{"id": "m1", "team": red})
	require.NoError(t, err)

	_, err = a.Add(ctx, []*record.Record{m})
	require.NoError(t, err)

	got, err := a.Get(ctx, m)
	require.NoError(t, err)
	ref, ok := got.Value("team").(*record.Record)
	require.True(t, ok)
	assert.True(t, ref.Equal(red))
	assert.NotSame(t, red, ref)
}

func TestAccessor_Errors(t *testing.T) {
	ctx := context.Background()
	b := NewBackend()
	a := NewAccessor(b, teamType)

	_, err := a.Add(ctx, []*record.Record{team(t, "t1", "red")})
	assert.ErrorIs(t, err, accessor.ErrBackend, "disconnected backend")

	require.NoError(t, b.Connect(ctx))
	m, err := memberType.New(map[string]any{"id": "m1"})
	require.NoError(t, err)
	_, err = a.Add(ctx, []*record.Record{m})
	assert.ErrorIs(t, err, accessor.ErrValidation, "type not served")

	_, err = a.Create(ctx, memberType, nil)
	assert.ErrorIs(t, err, accessor.ErrValidation)

	created, err := a.Create(ctx, teamType, map[string]any{"id": "t9", "name": "gold"})
	require.NoError(t, err)
	assert.Equal(t, 0, b.Len("team"), "create performs no I/O")
	assert.Equal(t, "t9", created.Key())
}
