// Copyright 2026 The Guardian Agent Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for guardian agent
// components.
//
// Configuration is loaded from a single YAML file named by the
// GUARDIAN_CONFIG environment variable. There are no fallbacks or
// automatic discovery: when the variable is unset, the built-in
// defaults apply. This keeps an intercepted process's behavior
// deterministic and auditable — no hidden overrides picked up from
// whatever directory it happens to run in.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/AurioPinto/guardian-agent/lib/guard"
)

// EnvVar names the environment variable holding the config file path.
const EnvVar = "GUARDIAN_CONFIG"

// Config controls the interception layer and its companion tools.
type Config struct {
	// SocketDir overrides the directory holding the elevation
	// daemon's socket. Empty means the system temporary directory.
	SocketDir string `yaml:"socket_dir,omitempty"`

	// AgentSocket overrides the full path of the trusted agent's
	// socket. Empty means the user runtime directory default.
	AgentSocket string `yaml:"agent_socket,omitempty"`

	// LogLevel is one of debug, info, warn, error. Empty means warn:
	// an interception layer inside arbitrary processes should stay
	// quiet unless something needs attention.
	LogLevel string `yaml:"log_level,omitempty"`

	// Disabled turns elevation off entirely. Intercepted syscalls
	// pass through with their real results.
	Disabled bool `yaml:"disabled,omitempty"`
}

// Load reads the file named by GUARDIAN_CONFIG, or returns the
// default configuration when the variable is unset.
func Load() (*Config, error) {
	path := os.Getenv(EnvVar)
	if path == "" {
		return &Config{}, nil
	}
	return LoadFile(path)
}

// LoadFile reads and validates the YAML configuration at path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if _, err := cfg.SlogLevel(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &cfg, nil
}

// GuardoSocket returns the elevation daemon endpoint this
// configuration selects.
func (c *Config) GuardoSocket() string {
	if c.SocketDir != "" {
		return filepath.Join(c.SocketDir, guard.GuardoSocketName)
	}
	return guard.GuardoSocketPath()
}

// AgentSocketPath returns the agent endpoint this configuration
// selects.
func (c *Config) AgentSocketPath() string {
	if c.AgentSocket != "" {
		return c.AgentSocket
	}
	return guard.AgentSocketPath()
}

// SlogLevel maps LogLevel to a slog level.
func (c *Config) SlogLevel() (slog.Level, error) {
	switch c.LogLevel {
	case "":
		return slog.LevelWarn, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", c.LogLevel)
	}
}
