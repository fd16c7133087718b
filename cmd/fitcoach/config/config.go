// Package config holds the CLI-level preferences for fitcoach: where the
// chat database lives and whether debug logging is on. The per-feature
// chat limits live in the database itself (internal/config), not here.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config holds user preferences for the CLI.
type Config struct {
	DataDir string `json:"data_dir"` // Directory holding fitcoach.db
	Debug   bool   `json:"debug"`    // Enable debug logging
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{}
}

// ConfigDir returns the directory where config is stored.
func ConfigDir() (string, error) {
	// Explicit override, for scripting and tests
	if dir := os.Getenv("FITCOACH_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	// Prefer a project-local .fitcoach directory if present
	if cwd, err := os.Getwd(); err == nil {
		localDir := filepath.Join(cwd, ".fitcoach")
		if stat, err := os.Stat(localDir); err == nil && stat.IsDir() {
			return localDir, nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".fitcoach"), nil
}

// ConfigFile returns the full path to the config file.
func ConfigFile() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the configuration from disk.
func Load() (Config, error) {
	path, err := ConfigFile()
	if err != nil {
		return DefaultConfig(), err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return DefaultConfig(), err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), err
	}
	return cfg, nil
}

// Save writes the configuration to disk.
func Save(cfg Config) error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path, err := ConfigFile()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ResolveDataDir resolves the effective data directory: the configured
// one, or the config directory itself when unset.
func (c Config) ResolveDataDir() (string, error) {
	if c.DataDir != "" {
		return c.DataDir, nil
	}
	return ConfigDir()
}
