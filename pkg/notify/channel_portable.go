package notify

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/0xmhha/dropwatch/pkg/decoder"
	"github.com/0xmhha/dropwatch/pkg/logger"
)

// portableChannel implements Channel on top of fsnotify. Events are packed
// into the owned buffer in the notify-information layout, so callers decode
// them exactly like completion-port buffers.
type portableChannel struct {
	channelState

	fsw     *fsnotify.Watcher
	encoder *decoder.Encoder
	carry   *fsnotify.Event // event that did not fit into the previous read
	logger  logger.Logger
}

// acquirePortable creates an fsnotify watch on dir.
func acquirePortable(dir string, opts Options) (Channel, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create fsnotify watcher: %w", ErrAcquisition, err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close() //nolint:errcheck // best effort cleanup
		return nil, fmt.Errorf("%w: watch %s: %w", ErrAcquisition, dir, err)
	}

	c := &portableChannel{
		fsw:    fsw,
		logger: opts.Logger,
	}
	c.init(dir, opts.BufferSize)
	c.encoder = decoder.NewEncoder(c.buf)

	opts.Logger.Debug("portable channel acquired",
		"dir", dir,
		"buffer_size", opts.BufferSize)

	return c, nil
}

// Layout implements Channel.Layout.
func (c *portableChannel) Layout() decoder.Layout {
	return decoder.LayoutNotifyInformation
}

// RequestRead implements Channel.RequestRead.
//
// Events fsnotify has already delivered are packed immediately; otherwise
// the read stays queued until WaitForCompletion sees the next event.
func (c *portableChannel) RequestRead() ReadOutcome {
	if !c.Valid() {
		return readFatal(ErrReleased)
	}

	c.encoder.Reset()
	if !c.fill() {
		c.invalidate()
		return readFatal(fmt.Errorf("%w: fsnotify event stream closed", ErrFatalRead))
	}
	if c.encoder.Empty() {
		return ReadOutcome{Status: ReadQueued}
	}
	return ReadOutcome{Status: ReadCompleted, Len: c.encoder.Len()}
}

// WaitForCompletion implements Channel.WaitForCompletion.
func (c *portableChannel) WaitForCompletion(timeout time.Duration) CompletionOutcome {
	if !c.Valid() {
		return completionFatal(ErrReleased)
	}

	c.encoder.Reset()
	if c.carry != nil {
		if !c.fill() {
			c.invalidate()
			return completionFatal(fmt.Errorf("%w: fsnotify event stream closed", ErrFatalRead))
		}
		return completionDone(c.encoder.Len())
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case event, ok := <-c.fsw.Events:
		if !ok {
			c.invalidate()
			return completionFatal(fmt.Errorf("%w: fsnotify event stream closed", ErrFatalRead))
		}
		c.carry = &event
		if !c.fill() {
			c.invalidate()
			return completionFatal(fmt.Errorf("%w: fsnotify event stream closed", ErrFatalRead))
		}
		return completionDone(c.encoder.Len())

	case err, ok := <-c.fsw.Errors:
		if !ok {
			c.invalidate()
			return completionFatal(fmt.Errorf("%w: fsnotify error stream closed", ErrFatalRead))
		}
		if errors.Is(err, fsnotify.ErrEventOverflow) {
			c.logger.Warn("fsnotify queue overflow", "dir", c.dir, "error", ErrOverflow)
		} else {
			c.logger.Warn("fsnotify error, events may be lost", "dir", c.dir, "error", err)
		}
		return completionDone(0)

	case <-timer.C:
		return completionTimedOut
	}
}

// Release implements Channel.Release.
func (c *portableChannel) Release() error {
	return c.release(func() error {
		if err := c.fsw.Close(); err != nil {
			return fmt.Errorf("failed to close fsnotify watcher: %w", err)
		}
		c.logger.Debug("portable channel released", "dir", c.dir)
		return nil
	})
}

// fill packs the carried event and every event already waiting in the
// fsnotify stream into the buffer, stopping when the buffer is full.
// It returns false if the event stream was closed.
func (c *portableChannel) fill() bool {
	if c.carry != nil {
		if !c.encode(*c.carry) {
			return true
		}
		c.carry = nil
	}

	for {
		select {
		case event, ok := <-c.fsw.Events:
			if !ok {
				return false
			}
			if !c.encode(event) {
				c.carry = &event
				return true
			}
		default:
			return true
		}
	}
}

// encode appends one event. It returns false when the event must wait for
// the next read. An event too large for an empty buffer is dropped.
func (c *portableChannel) encode(event fsnotify.Event) bool {
	name, err := filepath.Rel(c.dir, event.Name)
	if err != nil {
		name = filepath.Base(event.Name)
	}

	action := fileAction(event.Op)
	if action == decoder.FileActionAdded && isDir(event.Name) {
		// Directories are never delivered; inotify reports them with IN_ISDIR.
		action = decoder.FileActionModified
	}

	if c.encoder.Encode(action, filepath.ToSlash(name)) {
		return true
	}
	if c.encoder.Empty() {
		c.logger.Warn("dropping event larger than buffer",
			"path", event.Name,
			"buffer_size", len(c.buf))
		return true
	}
	return false
}

// isDir reports whether path is a directory. A path that vanished before
// the check is treated as a file, like the native backends would report it.
func isDir(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.IsDir()
}

// fileAction maps an fsnotify operation to a FILE_NOTIFY_INFORMATION action.
// fsnotify reports renames into the directory as Create.
func fileAction(op fsnotify.Op) uint32 {
	switch {
	case op.Has(fsnotify.Create):
		return decoder.FileActionAdded
	case op.Has(fsnotify.Remove):
		return decoder.FileActionRemoved
	case op.Has(fsnotify.Rename):
		return decoder.FileActionRenamedOldName
	default:
		return decoder.FileActionModified
	}
}
