package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "localhost:8080", cfg.ListenAddr())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 4, cfg.Profiling.CPU.Workers)
	assert.True(t, cfg.Profiling.Heap.Enabled)
	assert.Positive(t, cfg.HeapSampleRate())
}

func TestLoadMissingPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Server.Port, cfg.Server.Port)
}

func TestLoadNonexistentFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  host: 0.0.0.0
  port: 9090
logging:
  level: debug
  format: json
profiling:
  cpu:
    workers: 8
  heap:
    enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr())
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 8, cfg.Profiling.CPU.Workers)
	assert.Zero(t, cfg.HeapSampleRate())
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o600))

	t.Setenv("HOTPATH_PORT", "7070")
	t.Setenv("HOTPATH_HEAP_PROFILING", "false")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.False(t, cfg.Profiling.Heap.Enabled)
}

func TestNormalizeOutOfRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  port: -1
profiling:
  cpu:
    workers: 0
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	// Out-of-range values fall back to defaults, never reject.
	assert.Equal(t, Default().Server.Port, cfg.Server.Port)
	assert.Equal(t, Default().Profiling.CPU.Workers, cfg.Profiling.CPU.Workers)
}
