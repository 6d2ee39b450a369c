// Package config holds the application configuration. Everything works
// with zero configuration; a file only overrides the defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the main configuration structure.
type Config struct {
	Store   StoreConfig   `yaml:"store" json:"store"`
	Rules   RulesConfig   `yaml:"rules" json:"rules"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
	Log     LogConfig     `yaml:"log" json:"log"`
}

// StoreConfig selects the time-series backend.
type StoreConfig struct {
	// Backend is "memory" or "sqlite".
	Backend string `yaml:"backend" json:"backend"`
	// Path is the database file, sqlite only.
	Path string `yaml:"path" json:"path"`
}

// RulesConfig points at an external rule set. An empty path means the
// built-in threshold table.
type RulesConfig struct {
	Path string `yaml:"path" json:"path"`
}

// MetricsConfig tunes the derived-metric formulas. Zero values fall
// back to the calculator defaults.
type MetricsConfig struct {
	BurnWindowDays    int     `yaml:"burn_window_days" json:"burn_window_days"`
	WorkHoursPerDay   float64 `yaml:"work_hours_per_day" json:"work_hours_per_day"`
	OfficeCostPerSeat float64 `yaml:"office_cost_per_seat" json:"office_cost_per_seat"`
}

// LogConfig controls logger construction.
type LogConfig struct {
	Level string `yaml:"level" json:"level"`
}

// Default returns the zero-config setup: in-memory store, built-in
// rules, info logging.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads a configuration file, YAML or JSON by extension, applies
// defaults, and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	c := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, c)
	default:
		err = yaml.Unmarshal(data, c)
	}
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Store.Backend == "" {
		if c.Store.Path != "" {
			c.Store.Backend = "sqlite"
		} else {
			c.Store.Backend = "memory"
		}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks backend selection and numeric ranges.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "memory":
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("sqlite backend needs store.path")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	if c.Metrics.BurnWindowDays < 0 {
		return fmt.Errorf("metrics.burn_window_days must not be negative")
	}
	if c.Metrics.WorkHoursPerDay < 0 {
		return fmt.Errorf("metrics.work_hours_per_day must not be negative")
	}
	if c.Metrics.OfficeCostPerSeat < 0 {
		return fmt.Errorf("metrics.office_cost_per_seat must not be negative")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	return nil
}
