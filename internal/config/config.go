// Package config loads toolsmith configuration from the workspace.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the workspace-relative config location.
const FileName = ".toolsmith/config.yaml"

// Config holds all toolsmith configuration.
type Config struct {
	// ToolsDir overrides the default tool directories when set.
	ToolsDir string `yaml:"tools_dir"`

	// TimeoutSeconds bounds live calls made from playgrounds.
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// Mock makes playgrounds substitute deterministic responses for
	// permission-sensitive modules.
	Mock bool `yaml:"mock"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig configures structured logging output.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		TimeoutSeconds: 30,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the workspace config file, returning defaults when the file
// does not exist.
func Load(workspace string) (*Config, error) {
	cfg := DefaultConfig()

	path := filepath.Join(workspace, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save writes the config back to the workspace.
func (c *Config) Save(workspace string) error {
	path := filepath.Join(workspace, FileName)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Timeout returns the configured live-call timeout.
func (c *Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("TOOLSMITH_TOOLS_DIR"); v != "" {
		c.ToolsDir = v
	}
	if v := os.Getenv("TOOLSMITH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if os.Getenv("TOOLSMITH_MOCK") == "1" {
		c.Mock = true
	}
}
