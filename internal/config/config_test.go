package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocatorDefaults(t *testing.T) {
	cfg := AllocatorConfig{}
	cfg.ApplyDefaults()

	assert.Equal(t, 500, cfg.ChunkSize)
	assert.Equal(t, 1, cfg.ChunkRetries)
	assert.Equal(t, 100*time.Millisecond, cfg.RetryDelay)
	assert.Equal(t, 10*time.Second, cfg.LockTTL)
	assert.Equal(t, 3, cfg.LockTries)
	assert.Equal(t, 2*time.Second, cfg.LockBackoff)
}

func TestAllocatorDefaultsKeepExplicitValues(t *testing.T) {
	cfg := AllocatorConfig{ChunkSize: 250, ChunkRetries: 2}
	cfg.ApplyDefaults()

	assert.Equal(t, 250, cfg.ChunkSize)
	assert.Equal(t, 2, cfg.ChunkRetries)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(file, []byte(`
api:
  environment: development
  port: "8080"
postgres:
  host: localhost
  port: "5432"
allocator:
  chunk_size: 100
`), 0o600))

	cfg, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.API.Environment)
	assert.Equal(t, "8080", cfg.API.Port)
	assert.Equal(t, "localhost", cfg.Postgres.Host)

	// Sparse allocator sections fall back to defaults per field.
	assert.Equal(t, 100, cfg.Allocator.ChunkSize)
	assert.Equal(t, 1, cfg.Allocator.ChunkRetries)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	assert.Error(t, err)
}
