package config

import "errors"

// Common errors returned by the config package.
var (
	// ErrNoDirectory is returned when no watch directory is specified.
	ErrNoDirectory = errors.New("no watch directory specified")

	// ErrNoExtensions is returned when the extension list is empty.
	ErrNoExtensions = errors.New("no file extensions specified")

	// ErrInvalidWaitTimeout is returned when the wait timeout is <= 0.
	ErrInvalidWaitTimeout = errors.New("invalid wait timeout: must be > 0")

	// ErrInvalidBufferSize is returned when the buffer size is out of range.
	ErrInvalidBufferSize = errors.New("invalid buffer size: must be between 4096 and 1048576")

	// ErrInvalidBackend is returned when the backend is not recognized.
	ErrInvalidBackend = errors.New("invalid backend: must be native or portable")

	// ErrInvalidDispatchQueue is returned when the dispatch queue length is < 0.
	ErrInvalidDispatchQueue = errors.New("invalid dispatch queue: must be >= 0")

	// ErrInvalidDelay is returned when the processing delay is < 0.
	ErrInvalidDelay = errors.New("invalid processing delay: must be >= 0")

	// ErrInvalidLogLevel is returned when log level is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level: must be debug, info, warn, or error")

	// ErrInvalidLogFormat is returned when log format is not recognized.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text, json, or auto")

	// ErrConfigNotFound is returned when config file is not found.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrInvalidYAML is returned when config file has invalid YAML syntax.
	ErrInvalidYAML = errors.New("invalid YAML syntax in config file")
)
