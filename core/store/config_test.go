package store_test

import (
	"context"
	"testing"

	"storesync/core/record"
	"storesync/core/store"
	"storesync/feature/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBuilder(t *testing.T) {
	ctx := context.Background()
	b := store.NewBuilder(record.NewSchema(userType, postType))
	b.Register("memory", memory.Factory(zap.NewNop()))
	assert.Equal(t, []string{"memory"}, b.Kinds())

	t.Run("SelectedTypes", func(t *testing.T) {
		s, err := b.Build(ctx, store.Spec{Name: "cache", Kind: "memory", Types: []string{"user"}})
		require.NoError(t, err)
		assert.Equal(t, "cache", s.Name())
		assert.Equal(t, []*record.Type{userType}, s.Types())
	})

	t.Run("AllTypes", func(t *testing.T) {
		s, err := b.Build(ctx, store.Spec{Name: "cache", Kind: "memory"})
		require.NoError(t, err)
		assert.Equal(t, []*record.Type{postType, userType}, s.Types())
	})

	t.Run("UnknownKind", func(t *testing.T) {
		_, err := b.Build(ctx, store.Spec{Name: "x", Kind: "redis"})
		assert.ErrorContains(t, err, `unknown kind "redis"`)
	})

	t.Run("UnknownType", func(t *testing.T) {
		_, err := b.Build(ctx, store.Spec{Name: "x", Kind: "memory", Types: []string{"ghost"}})
		assert.ErrorContains(t, err, `unknown record type "ghost"`)
	})

	t.Run("BuildAll", func(t *testing.T) {
		stores, err := b.BuildAll(ctx, []store.Spec{
			{Name: "a", Kind: "memory"},
			{Name: "b", Kind: "memory"},
		})
		require.NoError(t, err)
		assert.Len(t, stores, 2)

		_, err = b.BuildAll(ctx, []store.Spec{{Name: "a", Kind: "memory"}, {Name: "a", Kind: "memory"}})
		assert.ErrorContains(t, err, `duplicate store "a"`)
	})
}

func TestSpec_DecodeOptions(t *testing.T) {
	var opts struct {
		Table string `mapstructure:"table"`
		Batch int    `mapstructure:"batch"`
	}

	spec := store.Spec{Name: "db", Options: map[string]any{"table": "records", "batch": "50"}}
	require.NoError(t, spec.DecodeOptions(&opts))
	assert.Equal(t, "records", opts.Table)
	assert.Equal(t, 50, opts.Batch)

	spec.Options["extra"] = true
	assert.Error(t, spec.DecodeOptions(&opts))
}
