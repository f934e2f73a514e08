package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "./workspaces", cfg.Storage.Root)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 0, cfg.Pool.Workers)
	assert.Equal(t, 10_000, cfg.Archive.MaxEntries)
	assert.Equal(t, int64(512<<20), cfg.Archive.MaxTotalBytes)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loft.yaml")
	data := []byte("server:\n  port: 8080\nlogging:\n  level: debug\n  format: console\n")
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	// Unset values keep their defaults
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LOFT_SERVER_PORT", "9090")
	t.Setenv("LOFT_STORAGE_ROOT", "/tmp/loft-data")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/tmp/loft-data", cfg.Storage.Root)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loft.yaml")
	data := []byte("logging:\n  level: loud\n")
	require.NoError(t, os.WriteFile(path, data, 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
