// Package config loads the engine configuration: YAML file overlaid on
// defaults, with environment variable overrides for container deployments.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for the NERVE engine.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Scraper   ScraperConfig   `yaml:"scraper"`
	TimeShift TimeShiftConfig `yaml:"timeshift"`
	Stats     StatsConfig     `yaml:"stats"`
	Database  DatabaseConfig  `yaml:"database"`
	LogLevel  string          `yaml:"logLevel"` // "debug", "info", "warn", "error"
}

type ServerConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

type ScraperConfig struct {
	Interval time.Duration `yaml:"interval"`
	// VisionPaths are the export targets for the per-cycle market
	// snapshot. Empty disables the export.
	VisionPaths []string `yaml:"visionPaths"`
}

type TimeShiftConfig struct {
	// MinPriceReductionPct is the threshold above which a shifted
	// window is recommended.
	MinPriceReductionPct float64 `yaml:"minPriceReductionPct"`
}

type StatsConfig struct {
	// Path of the persisted counters file. Empty keeps counters
	// memory-only.
	Path string `yaml:"path"`
}

type DatabaseConfig struct {
	// Path of the SQLite price snapshot database. Empty disables
	// persistence and warm starts.
	Path string `yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Address: "0.0.0.0",
			Port:    8000,
		},
		Scraper: ScraperConfig{
			Interval:    60 * time.Second,
			VisionPaths: []string{"data/nerve_scraped_data.json"},
		},
		TimeShift: TimeShiftConfig{
			MinPriceReductionPct: 5.0,
		},
		Stats: StatsConfig{
			Path: "data/nerve_stats.json",
		},
		Database: DatabaseConfig{
			Path: "data/nerve.db",
		},
		LogLevel: "info",
	}
	cfg.applyEnvOverrides()
	return cfg
}

// LoadFromFile loads config from a YAML file, overlaying on defaults.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides applies environment variables on top of the loaded
// values, for container platforms that inject settings this way.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("BIND_ADDRESS"); v != "" {
		c.Server.Address = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("SCRAPE_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Scraper.Interval = d
		}
	}
	if v := os.Getenv("NERVE_STATS_PATH"); v != "" {
		c.Stats.Path = v
	}
	if v := os.Getenv("NERVE_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("TIMESHIFT_MIN_REDUCTION_PCT"); v != "" {
		if pct, err := strconv.ParseFloat(v, 64); err == nil {
			c.TimeShift.MinPriceReductionPct = pct
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Validate checks the config for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be 1-65535", c.Server.Port)
	}

	if c.Scraper.Interval < time.Second {
		return fmt.Errorf("scrape interval %s too short: must be at least 1s", c.Scraper.Interval)
	}

	if c.TimeShift.MinPriceReductionPct < 0 || c.TimeShift.MinPriceReductionPct > 100 {
		return fmt.Errorf("minPriceReductionPct %.1f out of range: must be 0-100", c.TimeShift.MinPriceReductionPct)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q: must be debug, info, warn, or error", c.LogLevel)
	}

	return nil
}

// ListenAddr returns the address:port the API server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}
