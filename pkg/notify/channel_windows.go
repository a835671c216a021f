//go:build windows

package notify

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/windows"

	"github.com/0xmhha/dropwatch/pkg/decoder"
	"github.com/0xmhha/dropwatch/pkg/logger"
)

// Win32 error codes not exported as named Errno values by every x/sys release.
const (
	errWaitTimeout    = windows.Errno(258)  // WAIT_TIMEOUT
	errNotifyEnumDir  = windows.Errno(1022) // ERROR_NOTIFY_ENUM_DIR
	errOperationAbort = windows.Errno(995)  // ERROR_OPERATION_ABORTED
)

// releaseDrainTimeout bounds how long Release waits for a cancelled read to
// hand its buffer back.
const releaseDrainTimeout = 100 * time.Millisecond

// completionPortChannel implements Channel with ReadDirectoryChangesW on an
// overlapped directory handle bound to an I/O completion port.
type completionPortChannel struct {
	channelState

	handle     windows.Handle
	port       windows.Handle
	overlapped windows.Overlapped
	pending    bool
	logger     logger.Logger
}

// acquireNative opens dir and binds it to a new completion port.
func acquireNative(dir string, opts Options) (Channel, error) {
	path, err := windows.UTF16PtrFromString(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAcquisition, err)
	}

	handle, err := windows.CreateFile(
		path,
		windows.FILE_LIST_DIRECTORY,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE|windows.FILE_SHARE_DELETE,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_FLAG_BACKUP_SEMANTICS|windows.FILE_FLAG_OVERLAPPED,
		0,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrAcquisition, dir, err)
	}

	port, err := windows.CreateIoCompletionPort(handle, 0, 0, 1)
	if err != nil {
		_ = windows.CloseHandle(handle) //nolint:errcheck // best effort cleanup
		return nil, fmt.Errorf("%w: bind completion port: %w", ErrAcquisition, err)
	}

	c := &completionPortChannel{
		handle: handle,
		port:   port,
		logger: opts.Logger,
	}
	c.init(dir, opts.BufferSize)

	opts.Logger.Debug("completion port channel acquired",
		"dir", dir,
		"buffer_size", opts.BufferSize)

	return c, nil
}

// Layout implements Channel.Layout.
func (c *completionPortChannel) Layout() decoder.Layout {
	return decoder.LayoutNotifyInformation
}

// RequestRead implements Channel.RequestRead.
//
// An overlapped ReadDirectoryChangesW always reports through the completion
// port, so a successful submission and ERROR_IO_PENDING both mean queued.
func (c *completionPortChannel) RequestRead() ReadOutcome {
	if !c.Valid() {
		return readFatal(ErrReleased)
	}
	if c.pending {
		return ReadOutcome{Status: ReadQueued}
	}

	c.overlapped = windows.Overlapped{}
	err := windows.ReadDirectoryChanges(
		c.handle,
		&c.buf[0],
		uint32(len(c.buf)),
		false,
		windows.FILE_NOTIFY_CHANGE_FILE_NAME,
		nil,
		&c.overlapped,
		0,
	)
	if err != nil && !errors.Is(err, windows.ERROR_IO_PENDING) {
		c.invalidate()
		return readFatal(fmt.Errorf("%w: ReadDirectoryChangesW: %w", ErrFatalRead, err))
	}

	c.pending = true
	return ReadOutcome{Status: ReadQueued}
}

// WaitForCompletion implements Channel.WaitForCompletion.
func (c *completionPortChannel) WaitForCompletion(timeout time.Duration) CompletionOutcome {
	if !c.Valid() {
		return completionFatal(ErrReleased)
	}

	var (
		n          uint32
		key        uintptr
		overlapped *windows.Overlapped
	)
	err := windows.GetQueuedCompletionStatus(c.port, &n, &key, &overlapped, uint32(timeoutMillis(timeout)))

	if overlapped == nil {
		switch {
		case err == nil, errors.Is(err, errWaitTimeout):
			return completionTimedOut
		default:
			c.invalidate()
			return completionFatal(fmt.Errorf("%w: GetQueuedCompletionStatus: %w", ErrFatalRead, err))
		}
	}

	// A packet for our read arrived, successful or not.
	c.pending = false

	switch {
	case err == nil:
		return completionDone(int(n))
	case errors.Is(err, errNotifyEnumDir):
		c.logger.Warn("directory change buffer overflow", "dir", c.dir, "error", ErrOverflow)
		return completionDone(0)
	default:
		c.invalidate()
		return completionFatal(fmt.Errorf("%w: completion: %w", ErrFatalRead, err))
	}
}

// Release implements Channel.Release.
func (c *completionPortChannel) Release() error {
	return c.release(func() error {
		var errs []error

		if c.pending {
			if err := windows.CancelIo(c.handle); err != nil {
				errs = append(errs, err)
			} else {
				c.drainCancelled()
			}
		}
		if err := windows.CloseHandle(c.handle); err != nil {
			errs = append(errs, err)
		}
		if err := windows.CloseHandle(c.port); err != nil {
			errs = append(errs, err)
		}

		if err := errors.Join(errs...); err != nil {
			return fmt.Errorf("failed to release completion port channel: %w", err)
		}
		c.logger.Debug("completion port channel released", "dir", c.dir)
		return nil
	})
}

// drainCancelled waits for the aborted read's completion packet so the
// kernel no longer references the buffer.
func (c *completionPortChannel) drainCancelled() {
	var (
		n          uint32
		key        uintptr
		overlapped *windows.Overlapped
	)
	err := windows.GetQueuedCompletionStatus(c.port, &n, &key, &overlapped, uint32(releaseDrainTimeout.Milliseconds()))
	if overlapped != nil {
		c.pending = false
		return
	}
	if err != nil && !errors.Is(err, errOperationAbort) {
		c.logger.Warn("cancelled read did not complete", "dir", c.dir, "error", err)
	}
}
