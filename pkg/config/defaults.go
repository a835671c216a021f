package config

import (
	"os"
	"path/filepath"
)

// defaultWatchDir returns the default watched directory.
//
// Returns: <os temp dir>/dropwatch.
func defaultWatchDir() string {
	return filepath.Join(os.TempDir(), "dropwatch")
}

// defaultConfigPath returns the default configuration file path.
//
// Returns: ~/.config/dropwatch/config.yaml.
func defaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./config.yaml"
	}

	return filepath.Join(homeDir, ".config", "dropwatch", "config.yaml")
}

// DefaultPath returns the configuration file written by Save when no
// explicit path is given.
func DefaultPath() string {
	return defaultConfigPath()
}

// SearchPaths returns the locations Load checks for a configuration file,
// in order.
func SearchPaths() []string {
	return []string{
		"./dropwatch.yaml",
		defaultConfigPath(),
	}
}
