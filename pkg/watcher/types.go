// Package watcher delivers files that arrive in a directory to a callback.
//
// A Watcher acquires a notification channel for one directory at
// construction, then Watch drives a loop that arms a read, waits for it with
// a bounded timeout, decodes the filled buffer and hands every accepted path
// to the callback. Stop may be called from any goroutine; Watch notices it
// within one wait timeout.
//
// Example usage:
//
//	w := watcher.New(watcher.Config{
//	    Directory:  "/data/inbox",
//	    Extensions: []string{"dat"},
//	    Callback: func(path string) {
//	        fmt.Println("new file:", path)
//	    },
//	}, logger.Default())
//	if !w.Valid() {
//	    log.Fatal(w.Err())
//	}
//
//	go func() {
//	    time.Sleep(5 * time.Minute)
//	    w.Stop()
//	}()
//	w.Watch()
//	fmt.Println("processed", w.ProcessedFilesCount())
package watcher

import (
	"time"

	"github.com/0xmhha/dropwatch/pkg/notify"
)

// DefaultWaitTimeout bounds a single wait for a notification.
const DefaultWaitTimeout = 16 * time.Millisecond

// Callback receives the full path of an accepted file.
type Callback func(path string)

// AcquireFunc opens a notification channel. notify.Acquire is the default.
type AcquireFunc func(dir string, opts notify.Options) (notify.Channel, error)

// Config contains watcher configuration. It is copied by New.
type Config struct {
	// Directory is the directory to watch. Required.
	Directory string

	// Extensions lists accepted file extensions, case-insensitive and
	// with or without a leading dot. An empty list accepts nothing.
	Extensions []string

	// Callback is invoked once per accepted file. Required.
	Callback Callback

	// WaitTimeout is the upper bound on a single wait, and so the latency
	// of Stop.
	// Default: 16ms.
	WaitTimeout time.Duration

	// BufferSize is the notification buffer capacity.
	// Default: 64 KiB.
	BufferSize int

	// Backend selects the notification implementation.
	// Default: notify.BackendNative.
	Backend notify.Backend

	// DispatchQueue, when positive, runs the callback on a separate
	// goroutine fed by a queue of this length. Zero runs the callback
	// in the watch loop.
	DispatchQueue int

	// Acquire overrides channel acquisition.
	// Default: notify.Acquire.
	Acquire AcquireFunc
}

// State is the position of the watch loop.
type State uint32

// Watch loop states.
const (
	StateInit State = iota
	StateArmed
	StateDraining
	StateStopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateArmed:
		return "ARMED"
	case StateDraining:
		return "DRAINING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Stats is a snapshot of the watcher counters.
type Stats struct {
	// Processed counts accepted records handed to the callback.
	Processed uint64 `json:"processed"`

	// Ignored counts decoded records that were rejected.
	Ignored uint64 `json:"ignored"`

	// Rescans counts empty completions, where notifications may have been lost.
	Rescans uint64 `json:"rescans"`

	// DecodeErrors counts buffers whose decoding stopped early.
	DecodeErrors uint64 `json:"decode_errors"`
}
