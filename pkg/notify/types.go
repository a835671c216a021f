// Package notify provides OS-level directory change notification channels.
//
// A Channel owns a directory handle, the completion or readiness mechanism
// bound to it, and a fixed-capacity buffer the OS fills with change records.
// The caller arms a read with RequestRead, blocks in WaitForCompletion with a
// bounded timeout, and decodes the filled buffer using Layout.
//
// Backends are selected per platform:
//   - linux: inotify with an epoll readiness queue
//   - windows: ReadDirectoryChangesW bound to an I/O completion port
//   - everywhere else: fsnotify (kqueue on darwin and the BSDs)
//
// The fsnotify backend is also available on every platform as
// BackendPortable.
//
// Example usage:
//
//	ch, err := notify.Acquire("/data/inbox", notify.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ch.Release()
//
//	if out := ch.RequestRead(); out.Status == notify.ReadFatal {
//	    log.Fatal(out.Err)
//	}
//	out := ch.WaitForCompletion(16 * time.Millisecond)
//	if out.Status == notify.CompletionDone && out.Len > 0 {
//	    records := decoder.New(ch.Layout(), ch.Directory()).Decode(ch.Buffer(), out.Len)
//	    ...
//	}
package notify

import (
	"time"

	"github.com/0xmhha/dropwatch/pkg/decoder"
	"github.com/0xmhha/dropwatch/pkg/logger"
)

// Buffer size limits.
const (
	DefaultBufferSize = 64 * 1024
	MinBufferSize     = 4 * 1024
	MaxBufferSize     = 1024 * 1024
)

// Backend names a channel implementation.
type Backend string

// Available backends.
const (
	// BackendNative selects the platform's own notification facility.
	BackendNative Backend = "native"

	// BackendPortable selects the fsnotify-based channel.
	BackendPortable Backend = "portable"
)

// ReadStatus is the result kind of RequestRead.
type ReadStatus uint8

// Read results.
const (
	// ReadQueued means the read is pending and will be resolved by
	// WaitForCompletion. This is the normal asynchronous state.
	ReadQueued ReadStatus = iota

	// ReadCompleted means data was already available; Len bytes are ready.
	ReadCompleted

	// ReadFatal means the facility rejected the read. The channel is invalid.
	ReadFatal
)

// String returns the read status name.
func (s ReadStatus) String() string {
	switch s {
	case ReadQueued:
		return "QUEUED"
	case ReadCompleted:
		return "COMPLETED"
	case ReadFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ReadOutcome is returned by RequestRead.
type ReadOutcome struct {
	Status ReadStatus
	Len    int
	Err    error
}

// CompletionStatus is the result kind of WaitForCompletion.
type CompletionStatus uint8

// Completion results.
const (
	// CompletionTimedOut means nothing completed within the timeout.
	CompletionTimedOut CompletionStatus = iota

	// CompletionDone means the read finished with Len bytes. Zero bytes
	// signal possible event loss and call for a rescan.
	CompletionDone

	// CompletionFatal means the wait failed. The channel is invalid.
	CompletionFatal
)

// String returns the completion status name.
func (s CompletionStatus) String() string {
	switch s {
	case CompletionTimedOut:
		return "TIMED_OUT"
	case CompletionDone:
		return "DONE"
	case CompletionFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// CompletionOutcome is returned by WaitForCompletion.
type CompletionOutcome struct {
	Status CompletionStatus
	Len    int
	Err    error
}

// Channel is an asynchronous change-notification binding for one directory.
//
// A Channel is owned by a single goroutine. Only Valid may be called
// concurrently with the other methods.
type Channel interface {
	// RequestRead arms an asynchronous read into the owned buffer.
	// Arming while a read is already pending is a no-op returning ReadQueued.
	RequestRead() ReadOutcome

	// WaitForCompletion blocks up to timeout for the armed read.
	WaitForCompletion(timeout time.Duration) CompletionOutcome

	// Buffer returns the owned buffer. Its length is fixed at acquisition.
	Buffer() []byte

	// Layout returns the record layout written into Buffer.
	Layout() decoder.Layout

	// Directory returns the watched directory.
	Directory() string

	// Valid reports whether the channel can still deliver notifications.
	// It turns false exactly once, on a fatal error or on Release.
	Valid() bool

	// Release frees the handle, the binding and the buffer. It is idempotent.
	Release() error
}

// Options configures channel acquisition.
type Options struct {
	// BufferSize is the capacity of the notification buffer.
	// Default: 64 KiB.
	BufferSize int

	// Backend selects the implementation.
	// Default: BackendNative.
	Backend Backend

	// Logger receives backend diagnostics.
	// Default: logger.Noop().
	Logger logger.Logger
}
