package sqlstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"storesync/core/accessor"
	"storesync/core/database"
	"storesync/core/record"
	"storesync/core/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var (
	cityType = record.MustNewType("city",
		record.Field{Name: "id", Kind: record.String, Identifier: true},
		record.Field{Name: "country", Kind: record.String, Identifier: true},
		record.Field{Name: "population", Kind: record.Int, Default: 0},
		record.Field{Name: "founded", Kind: record.Time},
	)
	riverType = record.MustNewType("river",
		record.Field{Name: "id", Kind: record.String, Identifier: true},
		record.Field{Name: "length", Kind: record.Float},
	)
)

func setupSQLite(t *testing.T) (*Accessor, *Backend) {
	t.Helper()
	b := NewBackend(database.Config{Driver: "sqlite", Name: ":memory:"}, Options{}, nil)
	require.NoError(t, b.Connect(context.Background()))
	t.Cleanup(func() { _ = b.Disconnect(context.Background()) })
	return NewAccessor(b, cityType, riverType), b
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open mock sql db: %v", err)
	}

	dialector := mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open gorm db: %v", err)
	}

	return gormDB, mock
}

func city(t *testing.T, id, country string, population int) *record.Record {
	t.Helper()
	r, err := cityType.New(map[string]any{
		"id":         id,
		"country":    country,
		"population": population,
		"founded":    time.Date(1200, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return r
}

func TestBackend_Migrate(t *testing.T) {
	_, b := setupSQLite(t)
	assert.True(t, b.IsConnected())
	assert.Equal(t, "records", b.Table())

	missing, err := database.MissingColumns(b.session(context.Background()), "records", "record_type", "record_key", "data", "updated_at")
	require.NoError(t, err)
	assert.Empty(t, missing)

	require.NoError(t, b.Disconnect(context.Background()))
	assert.False(t, b.IsConnected())
	assert.Nil(t, b.session(context.Background()))
}

func TestAccessor_AddGet(t *testing.T) {
	ctx := context.Background()
	a, _ := setupSQLite(t)
	lyon := city(t, "lyon", "fr", 500000)

	_, err := a.Add(ctx, []*record.Record{lyon})
	require.NoError(t, err)

	got, err := a.Get(ctx, lyon)
	require.NoError(t, err)
	assert.True(t, got.Equal(lyon))
	assert.Equal(t, "lyon::4::fr", got.Key())

	_, err = a.Add(ctx, []*record.Record{lyon})
	assert.ErrorIs(t, err, accessor.ErrAlreadyExists)

	_, err = a.Get(ctx, city(t, "nice", "fr", 0))
	assert.ErrorIs(t, err, accessor.ErrNotFound)
}

func TestAccessor_Update(t *testing.T) {
	ctx := context.Background()
	a, _ := setupSQLite(t)
	lyon := city(t, "lyon", "fr", 500000)

	_, err := a.Update(ctx, []*record.Record{lyon}, false)
	assert.ErrorIs(t, err, accessor.ErrNotFound)

	_, err = a.Update(ctx, []*record.Record{lyon}, true)
	require.NoError(t, err)

	require.NoError(t, lyon.Set("population", 520000))
	_, err = a.Update(ctx, []*record.Record{lyon}, false)
	require.NoError(t, err)

	got, err := a.Get(ctx, lyon)
	require.NoError(t, err)
	assert.Equal(t, 520000, got.Value("population"))
}

func TestAccessor_FindCountRemove(t *testing.T) {
	ctx := context.Background()
	a, _ := setupSQLite(t)
	_, err := a.Add(ctx, []*record.Record{
		city(t, "lyon", "fr", 5), city(t, "bern", "ch", 1), city(t, "nice", "fr", 3), city(t, "oslo", "no", 7),
	})
	require.NoError(t, err)
	nile, err := riverType.New(map[string]any{"id": "nile", "length": 6650.0})
	require.NoError(t, err)
	_, err = a.Add(ctx, []*record.Record{nile})
	require.NoError(t, err)

	keys := func(recs []*record.Record) []string {
		out := make([]string, len(recs))
		for i, r := range recs {
			out[i] = r.Key()
		}
		return out
	}

	all, err := a.Find(ctx, cityType, nil, accessor.Page{})
	require.NoError(t, err)
	assert.Equal(t, []string{"bern::4::ch", "lyon::4::fr", "nice::4::fr", "oslo::4::no"}, keys(all))

	page, err := a.Find(ctx, cityType, nil, accessor.Page{Skip: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"lyon::4::fr", "nice::4::fr"}, keys(page))

	tail, err := a.Find(ctx, cityType, nil, accessor.Page{Skip: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"oslo::4::no"}, keys(tail))

	french, err := a.Find(ctx, cityType, accessor.Filter{"country": "fr"}, accessor.Page{Skip: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"nice::4::fr"}, keys(french))

	n, err := a.Count(ctx, cityType, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	n, err = a.Count(ctx, cityType, accessor.Filter{"country": "fr"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = a.Count(ctx, riverType, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	removed, err := a.Remove(ctx, nil, cityType, accessor.Filter{"country": "fr"})
	require.NoError(t, err)
	assert.Len(t, removed, 2)

	_, err = a.Remove(ctx, []*record.Record{city(t, "lyon", "fr", 5)}, nil, nil)
	assert.ErrorIs(t, err, accessor.ErrNotFound)

	_, err = a.Remove(ctx, []*record.Record{nile}, nil, nil)
	require.NoError(t, err)
	n, err = a.Count(ctx, riverType, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestAccessor_WithStore(t *testing.T) {
	ctx := context.Background()
	b := NewBackend(database.Config{Driver: "sqlite", Name: ":memory:"}, Options{Table: "cities"}, nil)
	s := store.New("sql", b, nil, NewAccessor(b, cityType))
	t.Cleanup(func() { _ = s.Disconnect(ctx) })

	rec, err := s.Create(ctx, cityType, map[string]any{"id": "rome", "country": "it", "population": 2800000})
	require.NoError(t, err)
	assert.True(t, s.IsConnected())
	assert.Equal(t, "cities", b.Table())

	got, err := s.Get(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, 2800000, got.Value("population"))
}

func TestAccessor_BackendErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("Disconnected", func(t *testing.T) {
		a := NewAccessor(NewBackend(database.Config{}, Options{}, nil), cityType)
		_, err := a.Find(ctx, cityType, nil, accessor.Page{})
		assert.ErrorIs(t, err, accessor.ErrBackend)
	})

	t.Run("QueryFailure", func(t *testing.T) {
		db, mock := setupMockDB(t)
		b := WithDB(db, Options{SkipMigrate: true}, nil)
		require.NoError(t, b.Connect(ctx))
		a := NewAccessor(b, cityType)

		mock.ExpectQuery("SELECT \\* FROM `records`").WillReturnError(errors.New("connection reset"))
		_, err := a.Get(ctx, city(t, "lyon", "fr", 1))
		assert.ErrorIs(t, err, accessor.ErrBackend)
		assert.ErrorContains(t, err, "connection reset")

		mock.ExpectQuery("SELECT count\\(\\*\\) FROM `records`").WillReturnError(errors.New("timeout"))
		_, err = a.Count(ctx, cityType, nil)
		assert.ErrorIs(t, err, accessor.ErrBackend)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("CorruptRow", func(t *testing.T) {
		db, mock := setupMockDB(t)
		b := WithDB(db, Options{SkipMigrate: true}, nil)
		require.NoError(t, b.Connect(ctx))
		a := NewAccessor(b, cityType)

		rows := sqlmock.NewRows([]string{"record_type", "record_key", "data", "updated_at"}).
			AddRow("city", "lyon::4::fr", []byte{0xff}, time.Now())
		mock.ExpectQuery("SELECT \\* FROM `records`").WillReturnRows(rows)

		_, err := a.Get(ctx, city(t, "lyon", "fr", 1))
		assert.ErrorIs(t, err, accessor.ErrValidation)
	})

	t.Run("UnservedType", func(t *testing.T) {
		a, _ := setupSQLite(t)
		nile, err := riverType.New(map[string]any{"id": "nile"})
		require.NoError(t, err)
		only := NewAccessor(a.backend, cityType)
		_, err = only.Add(ctx, []*record.Record{nile})
		assert.ErrorIs(t, err, accessor.ErrValidation)
	})
}
