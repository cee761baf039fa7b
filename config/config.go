// Package config loads the simulator's run configuration: topology size,
// deadlock policy, and logging, from an optional YAML file layered with
// REPCREC_* environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"repcrec/logging"
)

// Config holds the full run configuration.
type Config struct {
	Sites          int                   `yaml:"sites" env:"REPCREC_SITES"`
	Variables      int                   `yaml:"variables" env:"REPCREC_VARIABLES"`
	DeadlockPolicy string                `yaml:"deadlock_policy" env:"REPCREC_DEADLOCK_POLICY"`
	Logging        logging.LoggingConfig `yaml:"logging"`
}

// DefaultConfig returns the simulator's documented defaults: 10 sites, 20
// variables, youngest-transaction deadlock victim selection.
func DefaultConfig() *Config {
	return &Config{
		Sites:          10,
		Variables:      20,
		DeadlockPolicy: "youngest",
		Logging:        logging.DefaultConfig(),
	}
}

// Load builds a Config starting from defaults, overlaying a YAML file at
// path (if non-empty), then REPCREC_* environment variables.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.loadFromEnv()
	return cfg, nil
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("REPCREC_SITES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Sites = n
		}
	}
	if v := os.Getenv("REPCREC_VARIABLES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Variables = n
		}
	}
	if v := os.Getenv("REPCREC_DEADLOCK_POLICY"); v != "" {
		c.DeadlockPolicy = v
	}
	if v := os.Getenv("REPCREC_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("REPCREC_LOG_OUTPUT"); v != "" {
		c.Logging.Output = v
	}
}

// Validate reports whether the configuration is usable.
func (c *Config) Validate() error {
	if c.Sites <= 0 {
		return fmt.Errorf("sites must be positive, got %d", c.Sites)
	}
	if c.Variables <= 0 {
		return fmt.Errorf("variables must be positive, got %d", c.Variables)
	}
	if strings.ToLower(c.DeadlockPolicy) != "youngest" {
		return fmt.Errorf("unsupported deadlock policy: %s", c.DeadlockPolicy)
	}
	return nil
}
