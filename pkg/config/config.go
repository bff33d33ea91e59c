// Package config defines the file-based configuration for the reliq
// runtime: extraction sources, trace storage, the optimizer's oracle, and
// logging. Configuration loads from YAML with defaults applied first and
// RELIQ_* environment variables taking precedence over the file.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration.
type Config struct {
	Extract   ExtractConfig   `yaml:"extract"`
	Engine    EngineConfig    `yaml:"engine"`
	Storage   StorageConfig   `yaml:"storage"`
	Optimizer OptimizerConfig `yaml:"optimizer"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ExtractConfig controls source scanning.
type ExtractConfig struct {
	// SourcePath is the legacy source file or directory.
	SourcePath string `yaml:"source_path"`

	// Watch re-extracts when the source changes.
	Watch bool `yaml:"watch"`

	// DebounceInterval is the quiet period before re-extraction fires.
	DebounceInterval time.Duration `yaml:"debounce_interval"`

	// Extensions limits which files are scanned.
	Extensions []string `yaml:"extensions"`
}

// EngineConfig controls rule execution.
type EngineConfig struct {
	// MetricsEnabled exposes Prometheus metrics for rule executions.
	MetricsEnabled bool `yaml:"metrics_enabled"`

	// MetricsNamespace prefixes every metric name.
	MetricsNamespace string `yaml:"metrics_namespace"`
}

// StorageConfig selects and configures the trace store backend.
type StorageConfig struct {
	// Backend is "memory" or "sqlite".
	Backend string `yaml:"backend"`

	SQLite SQLiteConfig `yaml:"sqlite"`
}

// SQLiteConfig configures the sqlite backend.
type SQLiteConfig struct {
	Path         string        `yaml:"path"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	WALMode      bool          `yaml:"wal_mode"`
	BusyTimeout  time.Duration `yaml:"busy_timeout"`
}

// OptimizerConfig controls optimization passes.
type OptimizerConfig struct {
	// OracleURL is the external advice oracle endpoint. Empty means the
	// built-in heuristic advisor.
	OracleURL string `yaml:"oracle_url"`

	// OracleTimeout bounds every oracle call.
	OracleTimeout time.Duration `yaml:"oracle_timeout"`

	// Schedule is a cron expression for periodic passes; empty disables
	// scheduling.
	Schedule string `yaml:"schedule"`

	// SampleSize bounds the rule sample sent to the oracle.
	SampleSize int `yaml:"sample_size"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	// Level is debug, info, warn, or error.
	Level string `yaml:"level"`

	// Format is json or text.
	Format string `yaml:"format"`
}

// ApplyDefaults fills in every unset field with its default.
func ApplyDefaults(cfg *Config) {
	if cfg.Extract.DebounceInterval <= 0 {
		cfg.Extract.DebounceInterval = 250 * time.Millisecond
	}
	if len(cfg.Extract.Extensions) == 0 {
		cfg.Extract.Extensions = []string{".cbl", ".cob", ".cpy"}
	}

	if cfg.Engine.MetricsNamespace == "" {
		cfg.Engine.MetricsNamespace = "reliq"
	}

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "memory"
	}
	if cfg.Storage.SQLite.Path == "" {
		cfg.Storage.SQLite.Path = "data/traces.db"
		cfg.Storage.SQLite.WALMode = true
	}
	if cfg.Storage.SQLite.MaxOpenConns <= 0 {
		cfg.Storage.SQLite.MaxOpenConns = 10
	}
	if cfg.Storage.SQLite.MaxIdleConns <= 0 {
		cfg.Storage.SQLite.MaxIdleConns = 5
	}
	if cfg.Storage.SQLite.BusyTimeout <= 0 {
		cfg.Storage.SQLite.BusyTimeout = 5 * time.Second
	}

	if cfg.Optimizer.OracleTimeout <= 0 {
		cfg.Optimizer.OracleTimeout = 30 * time.Second
	}
	if cfg.Optimizer.SampleSize <= 0 {
		cfg.Optimizer.SampleSize = 20
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// Validate checks the configuration for inconsistencies.
func Validate(cfg *Config) error {
	switch cfg.Storage.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("storage.backend must be memory or sqlite, got %q", cfg.Storage.Backend)
	}
	if cfg.Storage.Backend == "sqlite" && cfg.Storage.SQLite.Path == "" {
		return fmt.Errorf("storage.sqlite.path is required for the sqlite backend")
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text, got %q", cfg.Logging.Format)
	}

	if cfg.Extract.Watch && cfg.Extract.SourcePath == "" {
		return fmt.Errorf("extract.source_path is required when extract.watch is enabled")
	}

	return nil
}
