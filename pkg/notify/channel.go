package notify

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/0xmhha/dropwatch/pkg/logger"
)

// Acquire opens dir for change notification using the configured backend.
//
// Acquisition fails fast: any error leaves nothing open and wraps
// ErrAcquisition.
func Acquire(dir string, opts Options) (Channel, error) {
	opts = opts.withDefaults()
	if opts.BufferSize < MinBufferSize || opts.BufferSize > MaxBufferSize {
		return nil, fmt.Errorf("%w: %w: %d", ErrAcquisition, ErrInvalidBufferSize, opts.BufferSize)
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAcquisition, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s: %w", ErrAcquisition, dir, ErrNotDirectory)
	}

	switch opts.Backend {
	case BackendNative:
		return acquireNative(dir, opts)
	case BackendPortable:
		return acquirePortable(dir, opts)
	default:
		return nil, fmt.Errorf("%w: %w: %q", ErrAcquisition, ErrUnknownBackend, opts.Backend)
	}
}

// ParseBackend converts a configuration string to a Backend.
// An empty string selects BackendNative.
func ParseBackend(s string) (Backend, error) {
	switch Backend(s) {
	case "", BackendNative:
		return BackendNative, nil
	case BackendPortable:
		return BackendPortable, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBackend, s)
	}
}

func (o Options) withDefaults() Options {
	if o.BufferSize == 0 {
		o.BufferSize = DefaultBufferSize
	}
	if o.Backend == "" {
		o.Backend = BackendNative
	}
	if o.Logger == nil {
		o.Logger = logger.Noop()
	}
	return o
}

// channelState is the part of every backend that does not touch the OS.
type channelState struct {
	dir   string
	buf   []byte
	valid atomic.Bool

	releaseOnce sync.Once
	releaseErr  error
}

// init allocates the buffer and marks the channel valid.
func (s *channelState) init(dir string, size int) {
	s.dir = dir
	s.buf = make([]byte, size)
	s.valid.Store(true)
}

// Buffer implements Channel.Buffer.
func (s *channelState) Buffer() []byte {
	return s.buf
}

// Directory implements Channel.Directory.
func (s *channelState) Directory() string {
	return s.dir
}

// Valid implements Channel.Valid.
func (s *channelState) Valid() bool {
	return s.valid.Load()
}

// invalidate flips valid to false. It reports whether this call did so.
func (s *channelState) invalidate() bool {
	return s.valid.CompareAndSwap(true, false)
}

// release runs fn once and remembers its error.
func (s *channelState) release(fn func() error) error {
	s.releaseOnce.Do(func() {
		s.invalidate()
		s.releaseErr = fn()
	})
	return s.releaseErr
}

func readFatal(err error) ReadOutcome {
	return ReadOutcome{Status: ReadFatal, Err: err}
}

func completionFatal(err error) CompletionOutcome {
	return CompletionOutcome{Status: CompletionFatal, Err: err}
}

func completionDone(n int) CompletionOutcome {
	return CompletionOutcome{Status: CompletionDone, Len: n}
}

var completionTimedOut = CompletionOutcome{Status: CompletionTimedOut}

// timeoutMillis converts a wait timeout to whole milliseconds, rounding a
// positive sub-millisecond timeout up to one.
func timeoutMillis(timeout time.Duration) int {
	if timeout < 0 {
		return -1
	}
	ms := timeout.Milliseconds()
	if ms == 0 && timeout > 0 {
		ms = 1
	}
	return int(ms)
}
