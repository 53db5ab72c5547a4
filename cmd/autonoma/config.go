package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ShayCichocki/autonoma/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify autonoma configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/autonoma/config.yaml
Project-specific overrides can be placed in .autonoma.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig renders the effective configuration as YAML with the
// API key masked.
func displayAllConfig(cfg *config.Config) {
	doc := map[string]any{
		"claude": map[string]any{
			"path":    cfg.Claude.Path,
			"model":   cfg.Claude.Model,
			"backend": cfg.Claude.Backend,
			"api_key": config.MaskAPIKey(cfg.Claude.APIKey),
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
	out, err := yaml.Marshal(doc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error rendering config: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(string(out))
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Set %s = %s\n", key, value)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "claude.path":
		return cfg.Claude.Path, nil
	case "claude.model":
		return orUnset(cfg.Claude.Model), nil
	case "claude.backend":
		return cfg.Claude.Backend, nil
	case "claude.api_key":
		return config.MaskAPIKey(cfg.Claude.APIKey), nil
	case "workers.max":
		return strconv.Itoa(cfg.Workers.Max), nil
	case "workers.max_retries":
		return strconv.Itoa(cfg.Workers.MaxRetries), nil
	case "workers.poll_interval":
		return cfg.Workers.PollInterval.String(), nil
	case "timeouts.task":
		return cfg.Timeouts.Task.String(), nil
	case "timeouts.shutdown":
		return cfg.Timeouts.Shutdown.String(), nil
	case "data_dir":
		return cfg.DataDir, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "claude.path":
		cfg.Claude.Path = value
	case "claude.model":
		cfg.Claude.Model = value
	case "claude.backend":
		if value != "cli" && value != "api" {
			return fmt.Errorf("invalid backend %q: must be cli or api", value)
		}
		cfg.Claude.Backend = value
	case "claude.api_key":
		cfg.Claude.APIKey = value
	case "workers.max":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for workers.max: %w", err)
		}
		if n < 1 {
			return fmt.Errorf("workers.max must be at least 1")
		}
		cfg.Workers.Max = n
	case "workers.max_retries":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for workers.max_retries: %w", err)
		}
		cfg.Workers.MaxRetries = n
	case "workers.poll_interval":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for workers.poll_interval: %w", err)
		}
		cfg.Workers.PollInterval = d
	case "timeouts.task":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for timeouts.task: %w", err)
		}
		cfg.Timeouts.Task = d
	case "timeouts.shutdown":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for timeouts.shutdown: %w", err)
		}
		cfg.Timeouts.Shutdown = d
	case "data_dir":
		cfg.DataDir = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
