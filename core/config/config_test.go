package config

import (
	"os"
	"path/filepath"
	"testing"

	"storesync/core/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const syncFile = `
server:
  port: "9090"
sync:
  count: 250
  watch: true
  types:
    - name: user
      fields:
        - name: id
          kind: string
          identifier: true
        - name: age
          kind: int
          default: "0"
  stores:
    - name: cache
      kind: memory
    - name: db
      kind: sql
      types: [user]
      options:
        table: users
`

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "storesync", cfg.Storage.Bucket)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 5000, cfg.Sync.Count)
	assert.Equal(t, 0, cfg.Sync.IntervalSeconds)
	assert.Empty(t, cfg.Sync.Stores)
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "storesync.yaml"), []byte(syncFile), 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 250, cfg.Sync.Count)
	assert.True(t, cfg.Sync.Watch)
	require.Len(t, cfg.Sync.Types, 1)
	assert.Equal(t, "user", cfg.Sync.Types[0].Name)
	require.Len(t, cfg.Sync.Types[0].Fields, 2)
	assert.True(t, cfg.Sync.Types[0].Fields[0].Identifier)
	assert.Equal(t, "0", cfg.Sync.Types[0].Fields[1].Default)

	require.Len(t, cfg.Sync.Stores, 2)
	assert.Equal(t, store.Spec{Name: "cache", Kind: "memory"}, cfg.Sync.Stores[0])
	assert.Equal(t, []string{"user"}, cfg.Sync.Stores[1].Types)
	assert.Equal(t, "users", cfg.Sync.Stores[1].Options["table"])
}

func TestLoadConfig_Env(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "storesync.yaml"), []byte(syncFile), 0o600))
	t.Setenv("SYNC_COUNT", "10")
	t.Setenv("SERVER_API_KEY", "secret")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Sync.Count)
	assert.Equal(t, "secret", cfg.Server.ApiKey)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "storesync.yaml"), []byte("sync: [unclosed"), 0o600))

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}
