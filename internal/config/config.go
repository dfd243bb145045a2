// Package config provides configuration management for exambank.
//
// Config file locations (priority order):
//  1. $EXAMBANK_CONFIG
//  2. ./exambank.yaml
//  3. $XDG_CONFIG_HOME/exambank/config.yaml
//  4. ~/.config/exambank/config.yaml
//  5. /etc/exambank/config.yaml
//
// A missing file is not an error: Load returns DefaultConfig.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDatabasePath      = "./exambank.db"
	DefaultServerAddr        = ":8080"
	DefaultShutdownTimeout   = 10 * time.Second
	DefaultEnrichConcurrency = 4
	DefaultLogLevel          = "info"
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()
	if path == "" {
		return DefaultConfig(), "", nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// Parse decodes a YAML document, rejecting unknown keys, and fills defaults
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Database.Path == "" {
		c.Database.Path = DefaultDatabasePath
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = Duration(DefaultShutdownTimeout)
	}
	if c.Search.EnrichConcurrency == 0 {
		c.Search.EnrichConcurrency = DefaultEnrichConcurrency
	}
}

// Validate rejects values the application cannot run with
func (c *Config) Validate() error {
	if _, err := c.ZapLevel(); err != nil {
		return err
	}
	if c.Search.EnrichConcurrency < 1 {
		return fmt.Errorf("search.enrich_concurrency must be positive, got %d", c.Search.EnrichConcurrency)
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("server.shutdown_timeout must not be negative")
	}
	return nil
}

// ZapLevel parses log.level
func (c *Config) ZapLevel() (zapcore.Level, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// Summary returns a one-line human-readable config summary
func (c *Config) Summary() string {
	catalog := c.Catalog.Path
	if catalog == "" {
		catalog = "embedded"
	}
	return fmt.Sprintf("database=%s catalog=%s log=%s addr=%s enrich=%d",
		c.Database.Path, catalog, c.Log.Level, c.Server.Addr, c.Search.EnrichConcurrency)
}
