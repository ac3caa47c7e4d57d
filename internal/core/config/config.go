package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config represents the top-level application config.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Source  SourceConfig  `koanf:"source"`
	Query   QueryConfig   `koanf:"query"`
	Archive ArchiveConfig `koanf:"archive"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port int    `koanf:"port"`
	Host string `koanf:"host"`
	Mode string `koanf:"mode"` // debug | release
}

// SourceConfig holds the phpMyAdmin data source settings.
type SourceConfig struct {
	BaseURL    string `koanf:"base_url"`
	Username   string `koanf:"username"`
	Password   string `koanf:"password"`
	Database   string `koanf:"database"`
	Table      string `koanf:"table"`
	OrderBy    string `koanf:"order_by"`
	Timeout    string `koanf:"timeout"` // parsed as time.Duration
	VerifySSL  bool   `koanf:"verify_ssl"`
	MaxRetries int    `koanf:"max_retries"`
}

// QueryConfig holds the query service tuning knobs.
type QueryConfig struct {
	DefaultLimit      int    `koanf:"default_limit"`
	MaxLimit          int    `koanf:"max_limit"`
	MaxCustomSpanDays int    `koanf:"max_custom_span_days"`
	CacheSize         int    `koanf:"cache_size"`
	CacheTTL          string `koanf:"cache_ttl"` // parsed as time.Duration
	Location          string `koanf:"location"`  // IANA name, or "Local"
}

// ArchiveConfig holds the optional daily rollup archive settings.
type ArchiveConfig struct {
	Enabled      bool   `koanf:"enabled"`
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
	Interval     string `koanf:"interval"` // parsed as time.Duration
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}

	if strings.TrimSpace(c.Source.BaseURL) == "" {
		return fmt.Errorf("source.base_url is required")
	}
	if strings.TrimSpace(c.Source.Username) == "" {
		return fmt.Errorf("source.username is required")
	}
	if strings.TrimSpace(c.Source.Database) == "" {
		return fmt.Errorf("source.database is required")
	}
	if strings.TrimSpace(c.Source.Table) == "" {
		return fmt.Errorf("source.table is required")
	}
	if _, err := time.ParseDuration(c.Source.Timeout); err != nil {
		return fmt.Errorf("invalid source.timeout %q: %w", c.Source.Timeout, err)
	}
	if c.Source.MaxRetries < 0 {
		return fmt.Errorf("source.max_retries must be >= 0")
	}

	if c.Query.DefaultLimit <= 0 {
		return fmt.Errorf("query.default_limit must be > 0")
	}
	if c.Query.MaxLimit < c.Query.DefaultLimit {
		return fmt.Errorf("query.max_limit must be >= query.default_limit")
	}
	if c.Query.MaxCustomSpanDays <= 0 {
		return fmt.Errorf("query.max_custom_span_days must be > 0")
	}
	if c.Query.CacheSize <= 0 {
		return fmt.Errorf("query.cache_size must be > 0")
	}
	if _, err := time.ParseDuration(c.Query.CacheTTL); err != nil {
		return fmt.Errorf("invalid query.cache_ttl %q: %w", c.Query.CacheTTL, err)
	}
	if _, err := c.QueryLocation(); err != nil {
		return fmt.Errorf("invalid query.location %q: %w", c.Query.Location, err)
	}

	if c.Archive.Enabled {
		if strings.TrimSpace(c.Archive.DSN) == "" {
			return fmt.Errorf("archive.dsn is required when archive.enabled is true")
		}
		if c.Archive.MaxOpenConns <= 0 {
			return fmt.Errorf("archive.max_open_conns must be > 0")
		}
		if c.Archive.MaxIdleConns <= 0 {
			return fmt.Errorf("archive.max_idle_conns must be > 0")
		}
		interval, err := time.ParseDuration(c.Archive.Interval)
		if err != nil {
			return fmt.Errorf("invalid archive.interval %q: %w", c.Archive.Interval, err)
		}
		if interval <= 0 {
			return fmt.Errorf("archive.interval must be > 0")
		}
	}

	return nil
}

// QueryLocation resolves the configured query timezone.
func (c *Config) QueryLocation() (*time.Location, error) {
	name := c.Query.Location
	if name == "" || strings.EqualFold(name, "Local") {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}

// SourceTimeout returns the parsed source request timeout.
// Call only after Validate.
func (c *Config) SourceTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Source.Timeout)
	return d
}

// QueryCacheTTL returns the parsed record cache TTL.
// Call only after Validate.
func (c *Config) QueryCacheTTL() time.Duration {
	d, _ := time.ParseDuration(c.Query.CacheTTL)
	return d
}

// ArchiveInterval returns the parsed snapshot interval.
// Call only after Validate.
func (c *Config) ArchiveInterval() time.Duration {
	d, _ := time.ParseDuration(c.Archive.Interval)
	return d
}

// Load parses config from defaults, an optional yaml file, and env overrides,
// then validates it.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":                8080,
		"server.host":                "0.0.0.0",
		"server.mode":                "release",
		"source.base_url":            "",
		"source.username":            "",
		"source.password":            "",
		"source.database":            "mut_supermap_datalog",
		"source.table":               "data_value",
		"source.order_by":            "timestamp",
		"source.timeout":             "30s",
		"source.verify_ssl":          false,
		"source.max_retries":         3,
		"query.default_limit":        5,
		"query.max_limit":            100,
		"query.max_custom_span_days": 7,
		"query.cache_size":           64,
		"query.cache_ttl":            "30s",
		"query.location":             "Local",
		"archive.enabled":            false,
		"archive.dsn":                "",
		"archive.max_open_conns":     10,
		"archive.max_idle_conns":     5,
		"archive.auto_migrate":       true,
		"archive.interval":           "30m",
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// POWERMON_SOURCE__BASE_URL overrides source.base_url
	if err := k.Load(env.Provider("POWERMON_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "POWERMON_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
