// Package config assembles the runtime configuration of the analysis
// pipeline. Values come from three layers, weakest first: built-in defaults,
// an optional YAML file, then DTA_-prefixed environment variables.
package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"drivetest/internal/analysis"
	"drivetest/internal/report"
)

// Config is the complete configuration surface of the pipeline.
type Config struct {
	Logging  LoggingConfig   `yaml:"logging"`
	Store    StoreConfig     `yaml:"store"`
	Analysis analysis.Config `yaml:"analysis"`
	Report   report.Config   `yaml:"report"`
}

// LoggingConfig controls the slog handler the pipeline installs. Defaults
// live in Default(), not in struct tags: envconfig applies default tags even
// when the variable is unset, which would clobber values read from the YAML
// file. Env names derive from the field path (DTA_LOGGING_LEVEL and so on);
// an explicit envconfig tag would also register the bare tag name as an
// alternate lookup, which for a field like Path collides with $PATH.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StoreConfig controls the optional persistence sink.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Logging:  LoggingConfig{Level: "info", Format: "json"},
		Store:    StoreConfig{Path: "data/drivetest.db"},
		Analysis: analysis.DefaultConfig(),
		Report:   report.DefaultConfig(),
	}
}

// Load builds the configuration. path may be empty; a missing file is not an
// error, the defaults simply stand.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := loadFromFile(path, &cfg); err != nil {
				return nil, fmt.Errorf("failed to load config from file: %w", err)
			}
		}
	}

	if err := envconfig.Process("DTA", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks the threshold sections; logging and store fields have no
// invalid states beyond what their consumers report themselves.
func (c *Config) Validate() error {
	if err := c.Analysis.Validate(); err != nil {
		return err
	}
	return c.Report.Validate()
}
