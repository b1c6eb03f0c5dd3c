// Package config loads the fleetwatch server configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/fleetwatch/internal/alert"
	"github.com/ppiankov/fleetwatch/internal/guard"
)

const (
	// DefaultCommandTimeout is the per-command timeout in seconds.
	DefaultCommandTimeout = 30
	// DefaultBatchTimeout is the per-device timeout for batch runs in seconds.
	DefaultBatchTimeout = 60
)

// Config holds all configurable server parameters.
type Config struct {
	DevicesFile      string         `yaml:"devices_file"`
	ConfigBlocklist  string         `yaml:"config_blocklist"`
	CommandBlocklist string         `yaml:"command_blocklist"`
	CommandTimeout   int            `yaml:"command_timeout"` // seconds
	BatchTimeout     int            `yaml:"batch_timeout"`   // seconds
	Listen           string         `yaml:"listen"`          // empty means stdio
	AuditLog         string         `yaml:"audit_log"`
	HistoryDB        string         `yaml:"history_db"`
	LogLevel         string         `yaml:"log_level"`
	Alerts           []alert.Config `yaml:"alerts"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DevicesFile:      "devices.json",
		ConfigBlocklist:  guard.DefaultConfigBlocklist,
		CommandBlocklist: guard.DefaultCommandBlocklist,
		CommandTimeout:   DefaultCommandTimeout,
		BatchTimeout:     DefaultBatchTimeout,
		LogLevel:         "info",
	}
}

// Load reads configuration from a YAML file.
// Empty path falls back to ~/.fleetwatch/config.yaml.
// Missing file returns defaults. Invalid YAML returns an error.
func Load(path string) (*Config, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Default(), nil
		}
		path = filepath.Join(home, ".fleetwatch", "config.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	// Start with defaults, YAML overwrites only specified fields
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = DefaultCommandTimeout
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = DefaultBatchTimeout
	}

	return cfg, nil
}

// CommandWait returns the command timeout as a duration.
func (c *Config) CommandWait() time.Duration {
	return time.Duration(c.CommandTimeout) * time.Second
}

// BatchWait returns the batch per-device timeout as a duration.
func (c *Config) BatchWait() time.Duration {
	return time.Duration(c.BatchTimeout) * time.Second
}

// DefaultYAML returns a commented configuration template for the init
// command. A non-empty dir anchors the file paths there, so a config under
// ~/.fleetwatch does not depend on the working directory.
func DefaultYAML(dir string) string {
	devices := "devices.json"
	configBlock := guard.DefaultConfigBlocklist
	commandBlock := guard.DefaultCommandBlocklist
	if dir != "" {
		devices = filepath.Join(dir, devices)
		configBlock = filepath.Join(dir, configBlock)
		commandBlock = filepath.Join(dir, commandBlock)
	}

	return fmt.Sprintf(`# fleetwatch server configuration
# Generated by: fleetwatch init

# Device inventory (JSON map of router name -> connection details).
devices_file: %s

# Blocklist files. Relative paths resolve against the working directory
# first, then against the directory of the fleetwatch binary.
config_blocklist: %s
command_blocklist: %s

# Timeouts in seconds.
command_timeout: 30
batch_timeout: 60

# MCP transport. Empty means stdio; set host:port for streamable HTTP.
# listen: "127.0.0.1:8080"

# Hash-chained decision log (JSONL). Empty disables auditing.
# audit_log: fleetwatch-audit.jsonl

# Execution history database (sqlite). Empty disables history.
# history_db: fleetwatch-history.db

# Log level: trace, debug, info, warn, error.
log_level: info

# Webhook alert destinations.
# alerts:
#   - url: https://hooks.slack.com/services/T000/B000/XXXX
#     format: slack
#     events: ["reject", "policy_file_change"]
#   - url: https://alerts.example.com/hook
#     format: generic
#     events: ["reject"]
#     headers:
#       Authorization: "Bearer secret"
`, devices, configBlock, commandBlock)
}
