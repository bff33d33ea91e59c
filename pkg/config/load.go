package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Default returns the configuration with every default applied and no file
// loaded.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// LoadConfig loads configuration from a YAML file, applies defaults, and
// validates the result. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and then
// applies RELIQ_SECTION_FIELD environment variable overrides
// (e.g. RELIQ_STORAGE_BACKEND). Environment variables always win over the
// file; the merged result is re-validated.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("RELIQ_EXTRACT_SOURCE_PATH"); val != "" {
		cfg.Extract.SourcePath = val
	}
	if val := os.Getenv("RELIQ_EXTRACT_WATCH"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Extract.Watch = b
		}
	}
	if val := os.Getenv("RELIQ_EXTRACT_DEBOUNCE_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Extract.DebounceInterval = d
		}
	}

	if val := os.Getenv("RELIQ_ENGINE_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Engine.MetricsEnabled = b
		}
	}
	if val := os.Getenv("RELIQ_ENGINE_METRICS_NAMESPACE"); val != "" {
		cfg.Engine.MetricsNamespace = val
	}

	if val := os.Getenv("RELIQ_STORAGE_BACKEND"); val != "" {
		cfg.Storage.Backend = val
	}
	if val := os.Getenv("RELIQ_STORAGE_SQLITE_PATH"); val != "" {
		cfg.Storage.SQLite.Path = val
	}
	if val := os.Getenv("RELIQ_STORAGE_SQLITE_BUSY_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Storage.SQLite.BusyTimeout = d
		}
	}

	if val := os.Getenv("RELIQ_OPTIMIZER_ORACLE_URL"); val != "" {
		cfg.Optimizer.OracleURL = val
	}
	if val := os.Getenv("RELIQ_OPTIMIZER_ORACLE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Optimizer.OracleTimeout = d
		}
	}
	if val := os.Getenv("RELIQ_OPTIMIZER_SCHEDULE"); val != "" {
		cfg.Optimizer.Schedule = val
	}
	if val := os.Getenv("RELIQ_OPTIMIZER_SAMPLE_SIZE"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Optimizer.SampleSize = i
		}
	}

	if val := os.Getenv("RELIQ_LOGGING_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("RELIQ_LOGGING_FORMAT"); val != "" {
		cfg.Logging.Format = val
	}
}
