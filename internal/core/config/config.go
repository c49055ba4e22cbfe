// Package config handles configuration loading and validation for workboard.
package config

import (
	"fmt"
	"net"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	GitHub      GitHubConfig   `yaml:"github"`
	Server      ServerConfig   `yaml:"server"`
	Database    DatabaseConfig `yaml:"database"`
	IgnoreRepos []string       `yaml:"ignore_repos"`
	DataDir     string         `yaml:"-"` // set by caller, not from config file
}

// GitHubConfig identifies the account whose review queue is tracked.
type GitHubConfig struct {
	// User is the GitHub login searched for authored, assigned and
	// review-requested pull requests.
	User string `yaml:"user"`
}

// ServerConfig holds the local web UI settings.
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// DatabaseConfig holds SQLite tuning knobs.
type DatabaseConfig struct {
	MaxOpenConns  int `yaml:"max_open_conns"`
	MaxIdleConns  int `yaml:"max_idle_conns"`
	BusyTimeoutMS int `yaml:"busy_timeout_ms"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Listen: "localhost:16666",
		},
		Database: DatabaseConfig{
			MaxOpenConns:  10,
			MaxIdleConns:  5,
			BusyTimeoutMS: 5000,
		},
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Server.Listen == "" {
		c.Server.Listen = defaults.Server.Listen
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = defaults.Database.MaxOpenConns
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = defaults.Database.MaxIdleConns
	}
	if c.Database.BusyTimeoutMS == 0 {
		c.Database.BusyTimeoutMS = defaults.Database.BusyTimeoutMS
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.GitHub.User == "" {
		return fmt.Errorf("github.user cannot be empty")
	}

	if c.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}

	if _, _, err := net.SplitHostPort(c.Server.Listen); err != nil {
		return fmt.Errorf("server.listen %q is not host:port: %w", c.Server.Listen, err)
	}

	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("database.max_open_conns must be at least 1")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.BusyTimeoutMS < 0 {
		return fmt.Errorf("database.busy_timeout_ms cannot be negative")
	}

	for _, pattern := range c.IgnoreRepos {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("ignore_repos pattern %q is invalid", pattern)
		}
	}

	return nil
}

// IgnoresRepo reports whether the owner/name repository matches any
// ignore_repos glob.
func (c *Config) IgnoresRepo(repo string) bool {
	for _, pattern := range c.IgnoreRepos {
		if ok, _ := doublestar.Match(pattern, repo); ok {
			return true
		}
	}
	return false
}
