// Package config loads symdex configuration.
//
// Values are layered in increasing precedence:
//  1. Defaults (NewConfig)
//  2. User config ($XDG_CONFIG_HOME/symdex/config.yaml or ~/.config/symdex/config.yaml)
//  3. Project config (.symdex.yaml or .symdex.yml in the working directory)
//  4. Environment variables (SYMDEX_*, plus LLM_AUTOMATION_HOST/PORT)
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/symdex/internal/errors"
)

// Defaults shared with the transports.
const (
	DefaultHost             = "127.0.0.1"
	DefaultPort             = 5015
	DefaultMaxResults       = 500
	DefaultPatternCacheSize = 128
	DefaultDebounce         = "300ms"
)

// Config is the complete symdex configuration.
type Config struct {
	Version   int             `yaml:"version" json:"version"`
	Server    ServerConfig    `yaml:"server" json:"server"`
	Search    SearchConfig    `yaml:"search" json:"search"`
	Snapshot  SnapshotConfig  `yaml:"snapshot" json:"snapshot"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
}

// ServerConfig selects and configures the transports started by `serve`.
type ServerConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`

	// HTTP enables the loopback HTTP API.
	HTTP bool `yaml:"http" json:"http"`
	// Daemon enables the JSON-RPC unix socket used by CLI queries.
	Daemon bool `yaml:"daemon" json:"daemon"`
	// MCP serves MCP over stdio. It takes over stdout.
	MCP bool `yaml:"mcp" json:"mcp"`

	// SocketPath and PIDPath override the daemon defaults when set.
	SocketPath string `yaml:"socket_path" json:"socket_path"`
	PIDPath    string `yaml:"pid_path" json:"pid_path"`

	LogLevel string `yaml:"log_level" json:"log_level"`
}

// SearchConfig tunes query execution.
type SearchConfig struct {
	// MaxResults is the cap used when a request does not give one.
	MaxResults int `yaml:"max_results" json:"max_results"`
	// PatternCacheSize is the number of compiled regexes kept.
	PatternCacheSize int `yaml:"pattern_cache_size" json:"pattern_cache_size"`
}

// SnapshotConfig locates the corpus snapshot.
type SnapshotConfig struct {
	// Path is the snapshot JSON file. Empty reads stdin.
	Path string `yaml:"path" json:"path"`
	// Watch reloads the snapshot when the file changes.
	Watch bool `yaml:"watch" json:"watch"`
	// Debounce is the quiet period before a reload, as a Go duration.
	Debounce string `yaml:"debounce" json:"debounce"`
}

// TelemetryConfig controls query metrics.
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// DBPath persists metrics to SQLite. Empty keeps them in memory.
	DBPath string `yaml:"db_path" json:"db_path"`
}

// NewConfig returns the default configuration.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Server: ServerConfig{
			Host:     DefaultHost,
			Port:     DefaultPort,
			HTTP:     true,
			LogLevel: "info",
		},
		Search: SearchConfig{
			MaxResults:       DefaultMaxResults,
			PatternCacheSize: DefaultPatternCacheSize,
		},
		Snapshot: SnapshotConfig{
			Debounce: DefaultDebounce,
		},
		Telemetry: TelemetryConfig{
			Enabled: true,
		},
	}
}

// Addr returns host:port for the HTTP listener.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// DebounceDuration parses Snapshot.Debounce, falling back to the default.
func (c *Config) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(c.Snapshot.Debounce)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultDebounce)
	}
	return d
}

// GetUserConfigPath returns the user configuration file path following
// the XDG base directory layout.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "symdex", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "symdex", "config.yaml")
	}
	return filepath.Join(home, ".config", "symdex", "config.yaml")
}

// UserConfigExists reports whether the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// FindProjectConfig returns the project config file in dir, or "" if none.
// .symdex.yaml wins over .symdex.yml.
func FindProjectConfig(dir string) string {
	for _, name := range []string{".symdex.yaml", ".symdex.yml"} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return path
		}
	}
	return ""
}

// Load builds the configuration for a process started in dir.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	if path := FindProjectConfig(dir); path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile builds the configuration from defaults, one explicit file, and
// the environment. It is used for the --config flag.
func LoadFile(path string) (*Config, error) {
	cfg := NewConfig()
	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadYAML overlays the keys present in path onto c.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.New(errors.ErrCodeConfigNotFound, fmt.Sprintf("failed to read config file %s", path), err).
			WithDetail("path", path)
	}

	overlay := *c
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return errors.ConfigError(fmt.Sprintf("failed to parse config file %s", path), err).
			WithDetail("path", path).
			WithSuggestion("check the YAML syntax, or regenerate it with `symdex config init --force`")
	}
	*c = overlay
	return nil
}

// applyEnvOverrides applies environment overrides. SYMDEX_* wins over the
// LLM_AUTOMATION_* names. Unparsable values are ignored.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("LLM_AUTOMATION_HOST"); v != "" {
		c.Server.Host = v
	}
	if p, ok := envPort("LLM_AUTOMATION_PORT"); ok {
		c.Server.Port = p
	}

	if v := os.Getenv("SYMDEX_HOST"); v != "" {
		c.Server.Host = v
	}
	if p, ok := envPort("SYMDEX_PORT"); ok {
		c.Server.Port = p
	}
	if v := os.Getenv("SYMDEX_SNAPSHOT"); v != "" {
		c.Snapshot.Path = v
	}
	if v := os.Getenv("SYMDEX_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("SYMDEX_WATCH"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Snapshot.Watch = b
		}
	}
}

func envPort(name string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return 0, false
	}
	p, err := strconv.Atoi(v)
	if err != nil || p < 1 || p > 65535 {
		return 0, false
	}
	return p, true
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return errors.ConfigError(fmt.Sprintf(format, args...), nil)
	}

	if strings.TrimSpace(c.Server.Host) == "" {
		return invalid("server.host must not be empty")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return invalid("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	switch strings.ToLower(c.Server.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return invalid("server.log_level must be 'debug', 'info', 'warn', or 'error', got %q", c.Server.LogLevel)
	}

	if c.Search.MaxResults < 0 {
		return invalid("search.max_results must be non-negative, got %d", c.Search.MaxResults)
	}
	if c.Search.PatternCacheSize < 0 {
		return invalid("search.pattern_cache_size must be non-negative, got %d", c.Search.PatternCacheSize)
	}

	if c.Snapshot.Debounce != "" {
		if _, err := time.ParseDuration(c.Snapshot.Debounce); err != nil {
			return invalid("snapshot.debounce is not a duration: %q", c.Snapshot.Debounce)
		}
	}
	return nil
}

// WriteYAML writes the configuration to path, creating parent directories.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
