package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the loader at an empty config file so a developer's
// ~/.pitwall/config.yaml can't leak into assertions.
func isolate(t *testing.T) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(""), 0644))
	t.Setenv("PITWALL_CONFIG_PATH", path)
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8001", cfg.BackendURL)
	assert.Equal(t, 3*time.Second, cfg.PollInterval)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.Debug)
	assert.NotEmpty(t, cfg.DataDir)
}

func TestLoadEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("PITWALL_BACKEND_URL", "http://backend:9000")
	t.Setenv("PITWALL_POLL_INTERVAL", "500ms")
	t.Setenv("PITWALL_DEBUG", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://backend:9000", cfg.BackendURL)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.True(t, cfg.Debug)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "backend_url: http://filehost:8001\npoll_interval: 7s\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	t.Setenv("PITWALL_CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://filehost:8001", cfg.BackendURL)
	assert.Equal(t, 7*time.Second, cfg.PollInterval)
	// Keys the file omits keep their defaults.
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
}

func TestLoadEnvBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend_url: http://filehost:8001\n"), 0644))
	t.Setenv("PITWALL_CONFIG_PATH", path)
	t.Setenv("PITWALL_BACKEND_URL", "http://envhost:8001")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://envhost:8001", cfg.BackendURL)
}

func TestLoadMissingExplicitConfigFile(t *testing.T) {
	t.Setenv("PITWALL_CONFIG_PATH", filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := Load()
	assert.Error(t, err)
}

func TestDBPath(t *testing.T) {
	cfg := &Config{DataDir: "/tmp/pitwall-test"}
	assert.Equal(t, filepath.Join("/tmp/pitwall-test", "pitwall.db"), cfg.DBPath())
}
