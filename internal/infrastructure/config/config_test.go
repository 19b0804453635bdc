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

	assert.Equal(t, "127.0.0.1:8077", cfg.Server.Addr)
	assert.True(t, cfg.Server.Enabled)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	assert.Equal(t, int64(1<<20), cfg.Cache.ThresholdBytes)
	assert.Equal(t, 4096, cfg.Cache.MaxEntries)
	assert.Equal(t, 1000, cfg.AccessLog.Size)

	assert.Equal(t, SinkBadger, cfg.Ledger.Sink)
	assert.Equal(t, "filesystem", cfg.Ledger.District)
	assert.Equal(t, MethodSudo, cfg.Elevation.Method)
	assert.Equal(t, 100, cfg.Search.DefaultMaxResults)

	require.NotEmpty(t, cfg.Host.CriticalPaths)
	assert.Equal(t, cfg.Host.Home, cfg.Host.CriticalPaths[0])
	assert.NoError(t, cfg.Validate())
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"FSPLANE_ADMIN_ADDR":         "127.0.0.1:9999",
		"FSPLANE_LOG_LEVEL":          "debug",
		"FSPLANE_CACHE_THRESHOLD":    "2048",
		"FSPLANE_ACCESS_LOG_SIZE":    "5",
		"FSPLANE_LEDGER_SINK":        "memory",
		"FSPLANE_CRITICAL_PATHS":     "~/a,/etc",
		"FSPLANE_ELEVATION_METHOD":   "none",
		"FSPLANE_SEARCH_MAX_RESULTS": "7",
	}
	for k, v := range envVars {
		t.Setenv(k, v)
	}
	t.Setenv("FSPLANE_HOME", "/home/tester")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9999", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, int64(2048), cfg.Cache.ThresholdBytes)
	assert.Equal(t, 5, cfg.AccessLog.Size)
	assert.Equal(t, SinkMemory, cfg.Ledger.Sink)
	assert.Equal(t, MethodNone, cfg.Elevation.Method)
	assert.Equal(t, 7, cfg.Search.DefaultMaxResults)
	assert.Equal(t, []string{filepath.Join("/home/tester", "a"), "/etc"}, cfg.Host.CriticalPaths)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fsplane.yaml")
	content := `
cache:
  threshold_bytes: 4096
ledger:
  sink: nop
watch:
  ignore:
    - "**/target/**"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(4096), cfg.Cache.ThresholdBytes)
	assert.Equal(t, SinkNop, cfg.Ledger.Sink)
	assert.Equal(t, []string{"**/target/**"}, cfg.Watch.Ignore)
	// untouched sections keep their defaults
	assert.Equal(t, 1000, cfg.AccessLog.Size)
}

func TestLoadTOMLFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fsplane.toml")
	content := `
[access_log]
size = 10

[ledger]
sink = "memory"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("FSPLANE_ACCESS_LOG_SIZE", "20")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.AccessLog.Size)
	assert.Equal(t, SinkMemory, cfg.Ledger.Sink)
}

func TestLoadRejectsUnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fsplane.ini")
	require.NoError(t, os.WriteFile(path, []byte("x=1"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
	assert.NotNil(t, LoadOrDefault(path))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero threshold", func(c *Config) { c.Cache.ThresholdBytes = 0 }},
		{"zero log size", func(c *Config) { c.AccessLog.Size = 0 }},
		{"unknown sink", func(c *Config) { c.Ledger.Sink = "kafka" }},
		{"http without url", func(c *Config) { c.Ledger.Sink = SinkHTTP }},
		{"unknown method", func(c *Config) { c.Elevation.Method = "su" }},
		{"zero rate", func(c *Config) { c.Ledger.Rate = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
