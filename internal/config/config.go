// Package config handles configuration loading and management for autonoma.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for autonoma.
type Config struct {
	Claude   ClaudeConfig   `mapstructure:"claude" yaml:"claude"`
	Workers  WorkersConfig  `mapstructure:"workers" yaml:"workers"`
	Timeouts TimeoutsConfig `mapstructure:"timeouts" yaml:"timeouts"`
	DataDir  string         `mapstructure:"data_dir" yaml:"data_dir"`
}

// ClaudeConfig holds Claude backend settings.
type ClaudeConfig struct {
	// Path is the claude CLI binary.
	Path string `mapstructure:"path" yaml:"path"`
	// Model to use; empty takes the backend default.
	Model string `mapstructure:"model" yaml:"model"`
	// Backend selects "cli" or "api".
	Backend string `mapstructure:"backend" yaml:"backend"`
	// APIKey for the api backend, ${VAR} references are expanded.
	APIKey string `mapstructure:"api_key" yaml:"api_key"`
}

// WorkersConfig holds worker pool and retry settings.
type WorkersConfig struct {
	// Max bounds concurrent work item execution.
	Max int `mapstructure:"max" yaml:"max"`
	// MaxRetries is the attempt count before an item escalates.
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`
	// PollInterval is the scheduler's idle wait.
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
}

// TimeoutsConfig holds timeout settings.
type TimeoutsConfig struct {
	// Task bounds one work item execution.
	Task time.Duration `mapstructure:"task" yaml:"task"`
	// Shutdown bounds the graceful drain on interrupt.
	Shutdown time.Duration `mapstructure:"shutdown" yaml:"shutdown"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (AUTONOMA_*, ANTHROPIC_API_KEY)
// 2. Project config (.autonoma.yaml in current directory or parent)
// 3. User config (~/.config/autonoma/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Load user config from XDG path
	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Load project config if present
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			// Merge project config (takes precedence)
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	// Environment variable overrides
	v.SetEnvPrefix("AUTONOMA")
	v.AutomaticEnv()

	v.BindEnv("claude.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("claude.model", "AUTONOMA_MODEL")
	v.BindEnv("claude.backend", "AUTONOMA_BACKEND")
	v.BindEnv("workers.max", "AUTONOMA_MAX_WORKERS")
	v.BindEnv("workers.max_retries", "AUTONOMA_MAX_RETRIES")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references
	cfg.Claude.APIKey = os.ExpandEnv(cfg.Claude.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Claude.APIKey = os.ExpandEnv(cfg.Claude.APIKey)

	return cfg, nil
}

// Save writes the configuration to the user config file.
func Save(cfg *Config) error {
	configDir := getUserConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	// Durations are rendered in their string form so the file round-trips
	// through the duration parsing on load.
	doc := map[string]any{
		"claude": map[string]any{
			"path":    cfg.Claude.Path,
			"model":   cfg.Claude.Model,
			"backend": cfg.Claude.Backend,
			"api_key": cfg.Claude.APIKey,
		},
		"workers": map[string]any{
			"max":           cfg.Workers.Max,
			"max_retries":   cfg.Workers.MaxRetries,
			"poll_interval": cfg.Workers.PollInterval.String(),
		},
		"timeouts": map[string]any{
			"task":     cfg.Timeouts.Task.String(),
			"shutdown": cfg.Timeouts.Shutdown.String(),
		},
		"data_dir": cfg.DataDir,
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	configPath := GetUserConfigPath()
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("claude.path", "claude")
	v.SetDefault("claude.model", "")
	v.SetDefault("claude.backend", "cli")
	v.SetDefault("claude.api_key", "")

	v.SetDefault("workers.max", 5)
	v.SetDefault("workers.max_retries", 3)
	v.SetDefault("workers.poll_interval", "50ms")

	v.SetDefault("timeouts.task", "10m")
	v.SetDefault("timeouts.shutdown", "10s")

	v.SetDefault("data_dir", ".autonoma")
}

// getUserConfigDir returns the XDG config directory for autonoma.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "autonoma")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "autonoma")
	}
	return filepath.Join(home, ".config", "autonoma")
}

// findProjectConfig searches for .autonoma.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".autonoma.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Claude: ClaudeConfig{
			Path:    "claude",
			Backend: "cli",
		},
		Workers: WorkersConfig{
			Max:          5,
			MaxRetries:   3,
			PollInterval: 50 * time.Millisecond,
		},
		Timeouts: TimeoutsConfig{
			Task:     10 * time.Minute,
			Shutdown: 10 * time.Second,
		},
		DataDir: ".autonoma",
	}
}
