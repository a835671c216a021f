package discovery

import "errors"

// ErrDirectoryNotFound is returned when the scanned directory does not exist.
var ErrDirectoryNotFound = errors.New("directory not found")
