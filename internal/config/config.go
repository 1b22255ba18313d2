package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Transport struct {
		Endpoint string `yaml:"endpoint"`
		Identity string `yaml:"identity"`
	} `yaml:"transport"`
	Charts struct {
		Directory string `yaml:"directory"`
	} `yaml:"charts"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Retention struct {
		SweepCron  string `yaml:"sweep_cron"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"retention"`
	LogLevel string `yaml:"log_level"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("QUEUE_ENDPOINT"); v != "" {
		cfg.Transport.Endpoint = v
	}
	if v := os.Getenv("QUEUE_IDENTITY"); v != "" {
		cfg.Transport.Identity = v
	}
	if v := os.Getenv("CHARTS_DIR"); v != "" {
		cfg.Charts.Directory = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("CHARTS_MAX_AGE_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil {
			cfg.Retention.MaxAgeDays = days
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	// Defaults
	if cfg.Transport.Endpoint == "" {
		cfg.Transport.Endpoint = "tcp://127.0.0.1:6565"
	}
	if cfg.Transport.Identity == "" {
		cfg.Transport.Identity = "gocharts"
	}
	if cfg.Retention.SweepCron == "" {
		cfg.Retention.SweepCron = "0 0 3 * * *"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Charts.Directory == "" {
		return fmt.Errorf("charts.directory is required")
	}
	if c.Retention.MaxAgeDays < 0 {
		return fmt.Errorf("retention.max_age_days must not be negative")
	}
	return nil
}
