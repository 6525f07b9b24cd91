package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect(t *testing.T) {
	ctx := context.Background()

	t.Run("InvalidConnection", func(t *testing.T) {
		cfg := Config{
			Driver:         "mysql",
			Host:           "localhost",
			Port:           9999,
			User:           "root",
			Password:       "wrongpassword",
			Name:           "storesync",
			TimeoutSeconds: 1,
		}

		db, err := Connect(ctx, cfg)
		assert.Error(t, err)
		assert.Nil(t, db)
	})

	t.Run("UnsupportedDriver", func(t *testing.T) {
		_, err := Connect(ctx, Config{Driver: "oracle"})
		assert.ErrorContains(t, err, `unsupported database driver "oracle"`)
	})

	t.Run("SQLite", func(t *testing.T) {
		db, err := Connect(ctx, Config{Driver: "sqlite", Name: ":memory:"})
		require.NoError(t, err)
		assert.Equal(t, "sqlite", db.Dialector.Name())
		assert.NoError(t, Close(db))
	})
}
