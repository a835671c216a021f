package watcher

import "errors"

// Common errors returned by the watcher.
var (
	// ErrNilCallback is returned when the configuration has no callback.
	ErrNilCallback = errors.New("callback is nil")

	// ErrEmptyDirectory is returned when the configuration has no directory.
	ErrEmptyDirectory = errors.New("watch directory is empty")
)
