package app

import (
	"fmt"
	"os"
	"path/filepath"

	"gb-go/internal/config"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - GB_CONFIG_PATH: config file location (default: ~/.config/gb.toml)
//   - GB_HOME: base directory for gb data (default: ~/.local/share/gb)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// getConfigPath returns the config file path, checking GB_CONFIG_PATH env var first,
// then falling back to the default ~/.config/gb.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("GB_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "gb.toml"), nil
}

// getBaseDir returns the base directory for gb data, checking GB_HOME env var first,
// then falling back to the XDG default ~/.local/share/gb.
func getBaseDir() (string, error) {
	if path := os.Getenv("GB_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "gb"), nil
}

// LoadConfig reads the config file named by the defaults. A missing file
// yields the default configuration.
func LoadConfig() (*config.Config, error) {
	defaults, err := GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}
	cfg, err := config.Load(defaults["config_path"], defaults["base_dir"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}
