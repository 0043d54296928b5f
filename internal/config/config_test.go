package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v, want nil", err)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("Port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.Scraper.Interval != 60*time.Second {
		t.Errorf("Interval = %v, want 60s", cfg.Scraper.Interval)
	}
	if cfg.TimeShift.MinPriceReductionPct != 5.0 {
		t.Errorf("MinPriceReductionPct = %v, want 5.0", cfg.TimeShift.MinPriceReductionPct)
	}
}

func TestLoadFromFileOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nerve.yaml")
	yaml := `
server:
  port: 9090
scraper:
  interval: 30s
timeshift:
  minPriceReductionPct: 10
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.Address != "0.0.0.0" {
		t.Errorf("Address = %q, want default kept", cfg.Server.Address)
	}
	if cfg.Scraper.Interval != 30*time.Second {
		t.Errorf("Interval = %v, want 30s", cfg.Scraper.Interval)
	}
	if cfg.TimeShift.MinPriceReductionPct != 10 {
		t.Errorf("MinPriceReductionPct = %v, want 10", cfg.TimeShift.MinPriceReductionPct)
	}
	if cfg.Stats.Path != "data/nerve_stats.json" {
		t.Errorf("Stats.Path = %q, want default kept", cfg.Stats.Path)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("LoadFromFile on missing file returned nil error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7777")
	t.Setenv("SCRAPE_INTERVAL", "2m")
	t.Setenv("TIMESHIFT_MIN_REDUCTION_PCT", "12.5")

	cfg := DefaultConfig()
	if cfg.Server.Port != 7777 {
		t.Errorf("Port = %d, want 7777 from env", cfg.Server.Port)
	}
	if cfg.Scraper.Interval != 2*time.Minute {
		t.Errorf("Interval = %v, want 2m from env", cfg.Scraper.Interval)
	}
	if cfg.TimeShift.MinPriceReductionPct != 12.5 {
		t.Errorf("MinPriceReductionPct = %v, want 12.5 from env", cfg.TimeShift.MinPriceReductionPct)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }},
		{"interval too short", func(c *Config) { c.Scraper.Interval = 100 * time.Millisecond }},
		{"negative threshold", func(c *Config) { c.TimeShift.MinPriceReductionPct = -1 }},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestListenAddr(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Address = "127.0.0.1"
	cfg.Server.Port = 8000
	if got := cfg.ListenAddr(); got != "127.0.0.1:8000" {
		t.Errorf("ListenAddr() = %q, want 127.0.0.1:8000", got)
	}
}
