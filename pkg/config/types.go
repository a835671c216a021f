// Package config provides configuration management for dropwatch.
//
// Configuration is loaded from multiple sources with the following precedence:
// 1. Command-line flags (highest priority)
// 2. Environment variables
// 3. Configuration file
// 4. Default values (lowest priority)
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("watching %s for %v\n", cfg.Watch.Directory, cfg.Watch.Extensions)
package config

import (
	"strings"
	"time"

	"github.com/0xmhha/dropwatch/pkg/filter"
	"github.com/0xmhha/dropwatch/pkg/logger"
	"github.com/0xmhha/dropwatch/pkg/notify"
)

// Config represents the complete application configuration.
//
// Invariants:
// - Watch.Directory is not empty
// - Watch.Extensions holds at least one non-empty extension
// - Watch.WaitTimeout must be > 0
// - Watch.BufferSize is within [notify.MinBufferSize, notify.MaxBufferSize]
// - Watch.DispatchQueue and Processing.Delay must be >= 0.
type Config struct {
	// Watch settings
	Watch WatchConfig `yaml:"watch" json:"watch"`

	// Processing settings for the demo callback
	Processing ProcessingConfig `yaml:"processing" json:"processing"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// WatchConfig contains the watched directory and notification tuning.
type WatchConfig struct {
	// Directory to watch (not recursive)
	Directory string `yaml:"directory" json:"directory"`

	// File extensions to accept, without the leading dot
	Extensions []string `yaml:"extensions" json:"extensions"`

	// Upper bound on a single wait; also the cancellation-check cadence
	WaitTimeout time.Duration `yaml:"wait_timeout" json:"wait_timeout"`

	// Notification buffer capacity in bytes
	BufferSize int `yaml:"buffer_size" json:"buffer_size"`

	// Notification backend (native, portable)
	Backend string `yaml:"backend" json:"backend"`

	// Bounded callback queue length; 0 runs the callback in the loop
	DispatchQueue int `yaml:"dispatch_queue" json:"dispatch_queue"`
}

// ProcessingConfig contains settings for what happens to accepted files.
type ProcessingConfig struct {
	// Delete each file after it was handed to the callback
	RemoveProcessed bool `yaml:"remove_processed" json:"remove_processed"`

	// Simulated processing time per file
	Delay time.Duration `yaml:"delay" json:"delay"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `yaml:"level" json:"level"`

	// Log output destination (stdout, stderr, file path)
	Output string `yaml:"output" json:"output"`

	// Log format (text, json, auto)
	Format string `yaml:"format" json:"format"`
}

// Validate checks if the configuration satisfies all invariants.
//
// Thread-safety: This method is read-only and thread-safe.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Watch.Directory) == "" {
		return ErrNoDirectory
	}
	if len(filter.New(c.Watch.Extensions).Extensions()) == 0 {
		return ErrNoExtensions
	}
	if c.Watch.WaitTimeout <= 0 {
		return ErrInvalidWaitTimeout
	}
	if c.Watch.BufferSize < notify.MinBufferSize || c.Watch.BufferSize > notify.MaxBufferSize {
		return ErrInvalidBufferSize
	}
	if _, err := notify.ParseBackend(c.Watch.Backend); err != nil {
		return ErrInvalidBackend
	}
	if c.Watch.DispatchQueue < 0 {
		return ErrInvalidDispatchQueue
	}

	if c.Processing.Delay < 0 {
		return ErrInvalidDelay
	}

	if !logger.ValidLevel(c.Logging.Level) {
		return ErrInvalidLogLevel
	}
	if !logger.ValidFormat(c.Logging.Format) {
		return ErrInvalidLogFormat
	}

	return nil
}

// LoggerConfig converts the logging section for logger.New.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:  c.Logging.Level,
		Output: c.Logging.Output,
		Format: c.Logging.Format,
	}
}

// Default returns a configuration with sensible default values.
func Default() *Config {
	return &Config{
		Watch: WatchConfig{
			Directory:     defaultWatchDir(),
			Extensions:    []string{"dat"},
			WaitTimeout:   16 * time.Millisecond,
			BufferSize:    notify.DefaultBufferSize,
			Backend:       string(notify.BackendNative),
			DispatchQueue: 0,
		},
		Processing: ProcessingConfig{
			RemoveProcessed: true,
			Delay:           0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stderr",
			Format: logger.FormatAuto,
		},
	}
}

// ParseExtensions splits a comma-separated extension list such as
// ".dat, TXT" into normalised extensions. Empty items are dropped.
func ParseExtensions(s string) []string {
	var exts []string
	for _, item := range strings.Split(s, ",") {
		if ext := filter.Normalize(item); ext != "" {
			exts = append(exts, ext)
		}
	}
	return exts
}
