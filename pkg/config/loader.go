package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvDirectory  = "DROPWATCH_DIR"
	EnvExtensions = "DROPWATCH_EXTENSIONS"
	EnvBackend    = "DROPWATCH_BACKEND"
	EnvLogLevel   = "DROPWATCH_LOG_LEVEL"
)

// Loader provides methods for loading configuration from various sources.
type Loader interface {
	// Load loads configuration with the following precedence:
	// 1. Environment variables
	// 2. Configuration file
	// 3. Default values
	//
	// Returns the merged configuration or an error if validation fails.
	Load() (*Config, error)

	// LoadFromFile loads configuration from a specific file on top of the
	// defaults. The result is not validated.
	LoadFromFile(path string) (*Config, error)

	// Path returns the file the last Load read, or "" if it used none.
	Path() string
}

// loader implements the Loader interface.
type loader struct {
	configPath string
	usedPath   string
}

// NewLoader creates a new configuration loader.
//
// If configPath is empty, the first existing file in SearchPaths is used.
func NewLoader(configPath string) Loader {
	return &loader{
		configPath: configPath,
	}
}

// Load implements Loader.Load.
func (l *loader) Load() (*Config, error) {
	cfg := Default()
	l.usedPath = ""

	configPath := l.configPath
	if configPath == "" {
		configPath = l.findConfigFile()
	}

	if configPath != "" {
		fileCfg, err := l.LoadFromFile(configPath)
		switch {
		case err == nil:
			cfg = fileCfg
			l.usedPath = configPath
		case l.configPath != "":
			// An explicitly requested file must load.
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	}

	cfg = l.applyEnvVars(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadFromFile implements Loader.LoadFromFile.
//
// The file is decoded over Default(), so keys absent from the file keep
// their default values. Unknown keys are rejected.
func (l *loader) LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return cfg, nil
}

// Path implements Loader.Path.
func (l *loader) Path() string {
	return l.usedPath
}

// findConfigFile returns the first existing file in SearchPaths, or "".
func (l *loader) findConfigFile() string {
	for _, path := range SearchPaths() {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// applyEnvVars applies environment variable overrides to the configuration.
//
// Supported environment variables:
//   - DROPWATCH_DIR: Directory to watch
//   - DROPWATCH_EXTENSIONS: Comma-separated extension list
//   - DROPWATCH_BACKEND: Notification backend
//   - DROPWATCH_LOG_LEVEL: Log level
func (l *loader) applyEnvVars(cfg *Config) *Config {
	result := *cfg

	if dir := os.Getenv(EnvDirectory); dir != "" {
		result.Watch.Directory = dir
	}

	if exts := os.Getenv(EnvExtensions); exts != "" {
		result.Watch.Extensions = ParseExtensions(exts)
	}

	if backend := os.Getenv(EnvBackend); backend != "" {
		result.Watch.Backend = strings.ToLower(strings.TrimSpace(backend))
	}

	if logLevel := os.Getenv(EnvLogLevel); logLevel != "" {
		result.Logging.Level = strings.ToLower(logLevel)
	}

	return &result
}

// Load is a convenience function that creates a loader and loads configuration.
func Load() (*Config, error) {
	return NewLoader("").Load()
}

// LoadFromFile is a convenience function that loads and validates
// configuration from a file, with environment overrides applied.
func LoadFromFile(path string) (*Config, error) {
	return NewLoader(path).Load()
}

// Save writes the configuration to a YAML file.
//
// Creates parent directories if they don't exist.
// File is created with 0600 permissions (read/write for owner only).
func Save(cfg *Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
