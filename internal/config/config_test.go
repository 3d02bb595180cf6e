package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/symdex/internal/errors"
)

// isolate points the user config at an empty temp dir and clears env overrides.
func isolate(t *testing.T) string {
	t.Helper()
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	for _, k := range []string{
		"SYMDEX_HOST", "SYMDEX_PORT", "SYMDEX_SNAPSHOT", "SYMDEX_LOG_LEVEL",
		"SYMDEX_WATCH", "LLM_AUTOMATION_HOST", "LLM_AUTOMATION_PORT",
	} {
		t.Setenv(k, "")
	}
	return xdg
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, "127.0.0.1:5015", cfg.Addr())
	assert.True(t, cfg.Server.HTTP)
	assert.False(t, cfg.Server.Daemon)
	assert.Equal(t, 500, cfg.Search.MaxResults)
	assert.Equal(t, 128, cfg.Search.PatternCacheSize)
	assert.Equal(t, 300*time.Millisecond, cfg.DebounceDuration())
	assert.True(t, cfg.Telemetry.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestLoad_NoFiles(t *testing.T) {
	isolate(t)

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, NewConfig(), cfg)
}

func TestLoad_Precedence(t *testing.T) {
	// Given: user config, project config, and env each set something
	xdg := isolate(t)
	writeFile(t, filepath.Join(xdg, "symdex", "config.yaml"), `
server:
  port: 6000
  log_level: debug
search:
  pattern_cache_size: 16
`)
	project := t.TempDir()
	writeFile(t, filepath.Join(project, ".symdex.yaml"), `
server:
  port: 7000
  http: false
snapshot:
  path: /data/snapshot.json
`)
	t.Setenv("SYMDEX_LOG_LEVEL", "warn")

	// When: loading
	cfg, err := Load(project)
	require.NoError(t, err)

	// Then: later layers win, untouched keys keep earlier values
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.False(t, cfg.Server.HTTP, "explicit false must override the default")
	assert.Equal(t, "warn", cfg.Server.LogLevel)
	assert.Equal(t, 16, cfg.Search.PatternCacheSize)
	assert.Equal(t, "/data/snapshot.json", cfg.Snapshot.Path)
	assert.Equal(t, DefaultHost, cfg.Server.Host)
}

func TestLoad_YmlFallback(t *testing.T) {
	isolate(t)
	project := t.TempDir()
	writeFile(t, filepath.Join(project, ".symdex.yml"), "server:\n  host: 0.0.0.0\n")

	cfg, err := Load(project)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("LLM_AUTOMATION_HOST", "10.0.0.1")
	t.Setenv("LLM_AUTOMATION_PORT", "6100")
	t.Setenv("SYMDEX_PORT", "6200")
	t.Setenv("SYMDEX_SNAPSHOT", "/tmp/s.json")
	t.Setenv("SYMDEX_WATCH", "true")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.1", cfg.Server.Host)
	assert.Equal(t, 6200, cfg.Server.Port, "SYMDEX_PORT wins over LLM_AUTOMATION_PORT")
	assert.Equal(t, "/tmp/s.json", cfg.Snapshot.Path)
	assert.True(t, cfg.Snapshot.Watch)
}

func TestLoad_InvalidEnvPortIgnored(t *testing.T) {
	isolate(t)
	t.Setenv("LLM_AUTOMATION_PORT", "not-a-port")
	t.Setenv("SYMDEX_PORT", "70000")
	t.Setenv("SYMDEX_WATCH", "maybe")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.False(t, cfg.Snapshot.Watch)
}

func TestLoad_BadYAML(t *testing.T) {
	isolate(t)
	project := t.TempDir()
	writeFile(t, filepath.Join(project, ".symdex.yaml"), "server: [unclosed\n")

	_, err := Load(project)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigInvalid, errors.GetCode(err))
}

func TestLoadFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	writeFile(t, path, "telemetry:\n  enabled: false\n  db_path: /tmp/m.db\n")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "/tmp/m.db", cfg.Telemetry.DBPath)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigNotFound, errors.GetCode(err))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty host", func(c *Config) { c.Server.Host = " " }},
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"port too high", func(c *Config) { c.Server.Port = 65536 }},
		{"bad level", func(c *Config) { c.Server.LogLevel = "loud" }},
		{"negative max results", func(c *Config) { c.Search.MaxResults = -1 }},
		{"negative cache", func(c *Config) { c.Search.PatternCacheSize = -1 }},
		{"bad debounce", func(c *Config) { c.Snapshot.Debounce = "soon" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, errors.CategoryConfig, errors.GetCategory(err))
		})
	}
}

func TestDebounceDuration_Fallback(t *testing.T) {
	cfg := NewConfig()
	cfg.Snapshot.Debounce = "1s"
	assert.Equal(t, time.Second, cfg.DebounceDuration())

	cfg.Snapshot.Debounce = ""
	assert.Equal(t, 300*time.Millisecond, cfg.DebounceDuration())
}

func TestWriteYAML_RoundTrip(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := NewConfig()
	cfg.Server.Daemon = true
	cfg.Snapshot.Path = "/s.json"
	require.NoError(t, cfg.WriteYAML(path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestGetUserConfigPath_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	assert.Equal(t, filepath.Join("/xdg", "symdex", "config.yaml"), GetUserConfigPath())
	assert.False(t, UserConfigExists())
}
