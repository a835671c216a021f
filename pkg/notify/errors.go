package notify

import "errors"

// Common errors returned by channels.
var (
	// ErrAcquisition is returned when the directory handle or its completion
	// binding cannot be acquired.
	ErrAcquisition = errors.New("notification channel acquisition failed")

	// ErrFatalRead is returned when the facility rejects a read or a wait.
	ErrFatalRead = errors.New("notification read failed")

	// ErrOverflow is reported when the OS dropped notifications.
	ErrOverflow = errors.New("notification queue overflow")

	// ErrReleased is returned when using a released channel.
	ErrReleased = errors.New("notification channel released")

	// ErrNotDirectory is returned when the watch target is not a directory.
	ErrNotDirectory = errors.New("not a directory")

	// ErrUnknownBackend is returned for an unrecognised backend name.
	ErrUnknownBackend = errors.New("unknown notification backend")

	// ErrInvalidBufferSize is returned when the buffer size is out of range.
	ErrInvalidBufferSize = errors.New("invalid buffer size")
)
