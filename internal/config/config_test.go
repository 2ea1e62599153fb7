package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoad_ParsesAndAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
backend:
  streamUrl: wss://example.com/ws
session:
  maxRetries: 5
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "wss://example.com/ws", cfg.Backend.StreamURL)
	assert.Equal(t, 5, cfg.Session.MaxRetries)
	// untouched fields fall back to defaults
	assert.Equal(t, Defaults().Backend.FallbackURL, cfg.Backend.FallbackURL)
	assert.Equal(t, Defaults().Session.RetryDelaySeconds, cfg.Session.RetryDelaySeconds)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "backend: [not a map")
	_, err := Load(path)
	require.Error(t, err)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CONCIERGE_STREAM_URL", "wss://override.example.com/ws")
	t.Setenv("CONCIERGE_MAX_RETRIES", "7")
	t.Setenv("CONCIERGE_LOG_LEVEL", "DEBUG")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "wss://override.example.com/ws", cfg.Backend.StreamURL)
	assert.Equal(t, 7, cfg.Session.MaxRetries)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidate_OK(t *testing.T) {
	cfg := Defaults()
	assert.Empty(t, Validate(&cfg))
}

func TestValidate_Issues(t *testing.T) {
	cfg := Defaults()
	cfg.Backend.StreamURL = "https://not-a-ws-url"
	cfg.Backend.FallbackURL = "ftp://wrong"
	cfg.Session.MaxRetries = -1
	cfg.Storage.Driver = "postgres"
	cfg.Logging.Level = "loud"

	issues := Validate(&cfg)
	require.Len(t, issues, 5)

	paths := make([]string, 0, len(issues))
	for _, issue := range issues {
		paths = append(paths, issue.Path)
	}
	assert.Contains(t, paths, "backend.streamUrl")
	assert.Contains(t, paths, "backend.fallbackUrl")
	assert.Contains(t, paths, "session.maxRetries")
	assert.Contains(t, paths, "storage.driver")
	assert.Contains(t, paths, "logging.level")
}

func TestResolvePaths_Home(t *testing.T) {
	t.Setenv("CONCIERGE_HOME", "/tmp/concierge-test")
	p, err := ResolvePaths()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/concierge-test", p.Dir)
	assert.Equal(t, filepath.Join("/tmp/concierge-test", "config.yaml"), p.Config)
	assert.Equal(t, filepath.Join("/tmp/concierge-test", "state.db"), p.State)
}
