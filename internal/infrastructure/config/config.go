package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/fsplane/internal/shared/paths"
)

// Config holds all control plane configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Logging   LogConfig       `yaml:"logging" toml:"logging"`
	Host      HostConfig      `yaml:"host" toml:"host"`
	Cache     CacheConfig     `yaml:"cache" toml:"cache"`
	AccessLog AccessLogConfig `yaml:"access_log" toml:"access_log"`
	Watch     WatchConfig     `yaml:"watch" toml:"watch"`
	Backup    BackupConfig    `yaml:"backup" toml:"backup"`
	Elevation ElevationConfig `yaml:"elevation" toml:"elevation"`
	Ledger    LedgerConfig    `yaml:"ledger" toml:"ledger"`
	Search    SearchConfig    `yaml:"search" toml:"search"`
}

// ServerConfig holds the admin listener configuration.
type ServerConfig struct {
	Addr         string   `envconfig:"FSPLANE_ADMIN_ADDR" yaml:"addr" toml:"addr"`
	Enabled      bool     `envconfig:"FSPLANE_ADMIN_ENABLED" yaml:"enabled" toml:"enabled"`
	AllowOrigins []string `envconfig:"FSPLANE_ADMIN_ORIGINS" yaml:"allow_origins" toml:"allow_origins"`
	RateLimit    int      `envconfig:"FSPLANE_ADMIN_RATE" yaml:"rate_limit" toml:"rate_limit"`
	Burst        int      `envconfig:"FSPLANE_ADMIN_BURST" yaml:"burst" toml:"burst"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"FSPLANE_LOG_LEVEL" yaml:"level" toml:"level"`
	Development bool   `envconfig:"FSPLANE_LOG_DEV" yaml:"development" toml:"development"`
}

// HostConfig describes the host layout.
type HostConfig struct {
	Home              string   `envconfig:"FSPLANE_HOME" yaml:"home" toml:"home"`
	CriticalPaths     []string `envconfig:"FSPLANE_CRITICAL_PATHS" yaml:"critical_paths" toml:"critical_paths"`
	ProtectedPrefixes []string `envconfig:"FSPLANE_PROTECTED_PREFIXES" yaml:"protected_prefixes" toml:"protected_prefixes"`
	Actor             string   `envconfig:"FSPLANE_ACTOR" yaml:"actor" toml:"actor"`
}

// CacheConfig bounds the read cache.
type CacheConfig struct {
	ThresholdBytes int64 `envconfig:"FSPLANE_CACHE_THRESHOLD" yaml:"threshold_bytes" toml:"threshold_bytes"`
	MaxEntries     int   `envconfig:"FSPLANE_CACHE_MAX_ENTRIES" yaml:"max_entries" toml:"max_entries"`
}

// AccessLogConfig bounds the access log ring.
type AccessLogConfig struct {
	Size int `envconfig:"FSPLANE_ACCESS_LOG_SIZE" yaml:"size" toml:"size"`
}

// WatchConfig controls change notification.
type WatchConfig struct {
	Enabled bool     `envconfig:"FSPLANE_WATCH_ENABLED" yaml:"enabled" toml:"enabled"`
	Ignore  []string `envconfig:"FSPLANE_WATCH_IGNORE" yaml:"ignore" toml:"ignore"`
}

// BackupConfig controls where versioned backups are kept.
type BackupConfig struct {
	Dir      string `envconfig:"FSPLANE_BACKUP_DIR" yaml:"dir" toml:"dir"`
	Compress bool   `envconfig:"FSPLANE_BACKUP_COMPRESS" yaml:"compress" toml:"compress"`
}

// ElevationConfig controls privileged execution.
type ElevationConfig struct {
	Method     string `envconfig:"FSPLANE_ELEVATION_METHOD" yaml:"method" toml:"method"`
	StagingDir string `envconfig:"FSPLANE_STAGING_DIR" yaml:"staging_dir" toml:"staging_dir"`
}

// LedgerConfig controls the external ledger sink and forwarding.
type LedgerConfig struct {
	Sink      string  `envconfig:"FSPLANE_LEDGER_SINK" yaml:"sink" toml:"sink"`
	Location  string  `envconfig:"FSPLANE_LEDGER_LOCATION" yaml:"location" toml:"location"`
	URL       string  `envconfig:"FSPLANE_LEDGER_URL" yaml:"url" toml:"url"`
	District  string  `envconfig:"FSPLANE_LEDGER_DISTRICT" yaml:"district" toml:"district"`
	Rate      float64 `envconfig:"FSPLANE_LEDGER_RATE" yaml:"rate" toml:"rate"`
	Burst     int     `envconfig:"FSPLANE_LEDGER_BURST" yaml:"burst" toml:"burst"`
	QueueSize int     `envconfig:"FSPLANE_LEDGER_QUEUE" yaml:"queue_size" toml:"queue_size"`
	TimeoutMS int     `envconfig:"FSPLANE_LEDGER_TIMEOUT_MS" yaml:"timeout_ms" toml:"timeout_ms"`
}

// SearchConfig holds search defaults.
type SearchConfig struct {
	DefaultMaxResults int `envconfig:"FSPLANE_SEARCH_MAX_RESULTS" yaml:"default_max_results" toml:"default_max_results"`
}

// Ledger sinks
const (
	SinkBadger = "badger"
	SinkFile   = "file"
	SinkHTTP   = "http"
	SinkMemory = "memory"
	SinkNop    = "nop"
)

// Elevation methods
const (
	MethodSudo   = "sudo"
	MethodPkexec = "pkexec"
	MethodDoas   = "doas"
	MethodNone   = "none"
)

// Load builds configuration from defaults, an optional file, then the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.expand()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads configuration or falls back to defaults.
func LoadOrDefault(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration for the running platform.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Server: ServerConfig{
			Addr:      "127.0.0.1:8077",
			Enabled:   true,
			RateLimit: 50,
			Burst:     100,
		},
		Logging: LogConfig{
			Level: "info",
		},
		Host: HostConfig{
			Home:              home,
			CriticalPaths:     paths.CriticalRoots(runtime.GOOS, home),
			ProtectedPrefixes: paths.ProtectedPrefixes(runtime.GOOS),
		},
		Cache: CacheConfig{
			ThresholdBytes: 1 << 20,
			MaxEntries:     4096,
		},
		AccessLog: AccessLogConfig{
			Size: 1000,
		},
		Watch: WatchConfig{
			Enabled: true,
			Ignore:  []string{"**/.git/**", "**/node_modules/**"},
		},
		Backup: BackupConfig{
			Dir:      filepath.Join(home, ".fsplane", "versions"),
			Compress: true,
		},
		Elevation: ElevationConfig{
			Method: MethodSudo,
		},
		Ledger: LedgerConfig{
			Sink:      SinkBadger,
			Location:  filepath.Join(home, ".fsplane", "ledger"),
			District:  "filesystem",
			Rate:      200,
			Burst:     50,
			QueueSize: 1024,
			TimeoutMS: 5000,
		},
		Search: SearchConfig{
			DefaultMaxResults: 100,
		},
	}
}

// Validate rejects configurations the control plane cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Cache.ThresholdBytes <= 0:
		return fmt.Errorf("cache threshold must be positive, got %d", c.Cache.ThresholdBytes)
	case c.Cache.MaxEntries <= 0:
		return fmt.Errorf("cache max entries must be positive, got %d", c.Cache.MaxEntries)
	case c.AccessLog.Size <= 0:
		return fmt.Errorf("access log size must be positive, got %d", c.AccessLog.Size)
	case c.Ledger.QueueSize <= 0:
		return fmt.Errorf("ledger queue size must be positive, got %d", c.Ledger.QueueSize)
	case c.Ledger.Rate <= 0:
		return fmt.Errorf("ledger rate must be positive, got %v", c.Ledger.Rate)
	case c.Server.RateLimit <= 0 || c.Server.Burst <= 0:
		return fmt.Errorf("admin rate limit and burst must be positive, got %d/%d", c.Server.RateLimit, c.Server.Burst)
	case c.Search.DefaultMaxResults <= 0:
		return fmt.Errorf("search default max results must be positive, got %d", c.Search.DefaultMaxResults)
	}

	switch c.Ledger.Sink {
	case SinkBadger, SinkFile:
		if c.Ledger.Location == "" {
			return fmt.Errorf("ledger sink %q needs a location", c.Ledger.Sink)
		}
	case SinkHTTP:
		if c.Ledger.URL == "" {
			return fmt.Errorf("ledger sink %q needs a url", c.Ledger.Sink)
		}
	case SinkMemory, SinkNop:
	default:
		return fmt.Errorf("unknown ledger sink %q", c.Ledger.Sink)
	}

	switch c.Elevation.Method {
	case MethodSudo, MethodPkexec, MethodDoas, MethodNone:
	default:
		return fmt.Errorf("unknown elevation method %q", c.Elevation.Method)
	}
	return nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, c)
	case ".toml":
		return toml.Unmarshal(data, c)
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
}

func (c *Config) expand() {
	home := c.Host.Home
	for i, p := range c.Host.CriticalPaths {
		c.Host.CriticalPaths[i] = paths.Expand(p, home)
	}
	c.Backup.Dir = paths.Expand(c.Backup.Dir, home)
	c.Ledger.Location = paths.Expand(c.Ledger.Location, home)
	c.Elevation.StagingDir = paths.Expand(c.Elevation.StagingDir, home)
}
