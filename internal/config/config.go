package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"
)

const envPrefix = "METERSTATS_"

// Database backends.
const (
	DatabasePostgres = "postgres"
	DatabaseBadger   = "badger"
)

// Price sources for the cost series.
const (
	CostSourceNone   = "none"
	CostSourceStatic = "static"
	CostSourceTable  = "table"
)

// Config represents the top-level configuration for meterstats.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Meters   MetersConfig   `koanf:"meters"`
	Poll     PollConfig     `koanf:"poll"`
	Import   ImportConfig   `koanf:"import"`
	Verify   VerifyConfig   `koanf:"verify"`
	Cost     CostConfig     `koanf:"cost"`
	Source   SourceConfig   `koanf:"source"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port          int    `koanf:"port"`
	Host          string `koanf:"host"`
	MaxBodySizeMB int    `koanf:"max_body_size_mb"`
	Mode          string `koanf:"mode"` // debug | release
}

// DatabaseConfig selects and configures the statistics sink.
type DatabaseConfig struct {
	Type         string `koanf:"type"` // postgres | badger
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`

	// Badger only.
	Path             string        `koanf:"path"`
	InMemory         bool          `koanf:"in_memory"`
	MaxMemoryMB      int           `koanf:"max_memory_mb"`
	CompilerInterval time.Duration `koanf:"compiler_interval"` // 0 disables the embedded compiler
}

// MetersConfig points at the meter definition files.
type MetersConfig struct {
	ConfigDir string `koanf:"config_dir"`
}

// PollConfig controls the periodic import of every meter.
type PollConfig struct {
	Enabled     bool          `koanf:"enabled"`
	Interval    time.Duration `koanf:"interval"`
	Days        int           `koanf:"days"`
	InitialDays int           `koanf:"initial_days"` // first pass after startup, 0 skips it
}

// ImportConfig bounds import requests.
type ImportConfig struct {
	MaxParallel int `koanf:"max_parallel"`
	DefaultDays int `koanf:"default_days"`
}

// VerifyConfig controls the read-back check after an import.
type VerifyConfig struct {
	Attempts int           `koanf:"attempts"`
	Delay    time.Duration `koanf:"delay"`
}

// CostConfig selects the price source of the cost series.
type CostConfig struct {
	Source       string `koanf:"source"` // none | static | table
	PricePerUnit string `koanf:"price_per_unit"`
	Currency     string `koanf:"currency"`
}

// SourceConfig configures the meter data service client.
type SourceConfig struct {
	BaseURL  string        `koanf:"base_url"`
	APIToken string        `koanf:"api_token"`
	Timeout  time.Duration `koanf:"timeout"`
}

// LoggingConfig holds the slog level.
type LoggingConfig struct {
	Level string `koanf:"level"`
}

// SlogLevel parses the configured level.
func (c LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid logging.level %q: %w", c.Level, err)
	}
	return level, nil
}

// Price parses the static price. ok is false when none is configured.
func (c CostConfig) Price() (price decimal.Decimal, ok bool, err error) {
	if strings.TrimSpace(c.PricePerUnit) == "" {
		return decimal.Zero, false, nil
	}
	price, err = decimal.NewFromString(c.PricePerUnit)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("invalid cost.price_per_unit %q: %w", c.PricePerUnit, err)
	}
	return price, true, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.MaxBodySizeMB <= 0 {
		return fmt.Errorf("server.max_body_size_mb must be > 0")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}

	switch c.Database.Type {
	case DatabasePostgres:
		if strings.TrimSpace(c.Database.DSN) == "" {
			return fmt.Errorf("database.dsn is required")
		}
		if c.Database.MaxOpenConns <= 0 {
			return fmt.Errorf("database.max_open_conns must be > 0")
		}
		if c.Database.MaxIdleConns <= 0 {
			return fmt.Errorf("database.max_idle_conns must be > 0")
		}
	case DatabaseBadger:
		if !c.Database.InMemory && strings.TrimSpace(c.Database.Path) == "" {
			return fmt.Errorf("database.path is required for badger")
		}
		if c.Database.CompilerInterval < 0 {
			return fmt.Errorf("database.compiler_interval must be >= 0")
		}
	default:
		return fmt.Errorf("unsupported database.type %q", c.Database.Type)
	}

	if strings.TrimSpace(c.Meters.ConfigDir) == "" {
		return fmt.Errorf("meters.config_dir is required")
	}

	if c.Poll.Enabled {
		if c.Poll.Interval <= 0 {
			return fmt.Errorf("poll.interval must be > 0")
		}
		if c.Poll.Days <= 0 {
			return fmt.Errorf("poll.days must be > 0")
		}
	}
	if c.Poll.InitialDays < 0 {
		return fmt.Errorf("poll.initial_days must be >= 0")
	}

	if c.Import.MaxParallel <= 0 {
		return fmt.Errorf("import.max_parallel must be > 0")
	}
	if c.Import.DefaultDays <= 0 {
		return fmt.Errorf("import.default_days must be > 0")
	}
	if c.Verify.Attempts < 0 {
		return fmt.Errorf("verify.attempts must be >= 0")
	}
	if c.Verify.Delay < 0 {
		return fmt.Errorf("verify.delay must be >= 0")
	}

	switch c.Cost.Source {
	case CostSourceNone, CostSourceTable:
	case CostSourceStatic:
		if _, _, err := c.Cost.Price(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported cost.source %q", c.Cost.Source)
	}
	if c.Cost.Source == CostSourceTable && c.Database.Type != DatabasePostgres {
		return fmt.Errorf("cost.source %q requires database.type %q", CostSourceTable, DatabasePostgres)
	}

	if strings.TrimSpace(c.Source.BaseURL) == "" {
		return fmt.Errorf("source.base_url is required")
	}
	if c.Source.Timeout <= 0 {
		return fmt.Errorf("source.timeout must be > 0")
	}

	if _, err := c.Logging.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// Load parses config from defaults, file and env, then validates it.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":                8080,
		"server.host":                "0.0.0.0",
		"server.max_body_size_mb":    1,
		"server.mode":                "release",
		"database.type":              DatabasePostgres,
		"database.dsn":               "",
		"database.max_open_conns":    10,
		"database.max_idle_conns":    10,
		"database.auto_migrate":      true,
		"database.path":              "./data/statistics",
		"database.in_memory":         false,
		"database.max_memory_mb":     64,
		"database.compiler_interval": "0s",
		"meters.config_dir":          "./config/meters",
		"poll.enabled":               true,
		"poll.interval":              "15m",
		"poll.days":                  3,
		"poll.initial_days":          30,
		"import.max_parallel":        4,
		"import.default_days":        365,
		"verify.attempts":            3,
		"verify.delay":               "500ms",
		"cost.source":                CostSourceNone,
		"cost.price_per_unit":        "",
		"cost.currency":              "USD",
		"source.base_url":            "https://eyeonwater.com",
		"source.api_token":           "",
		"source.timeout":             "30s",
		"logging.level":              "info",
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// METERSTATS_POLL__INTERVAL=5m overrides poll.interval
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".", -1)
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
