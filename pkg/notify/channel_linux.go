//go:build linux

package notify

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/0xmhha/dropwatch/pkg/decoder"
	"github.com/0xmhha/dropwatch/pkg/logger"
)

// inotifyMask selects name changes in the directory. Deletes and renames
// away are watched so they can be counted, never delivered.
const inotifyMask = unix.IN_CREATE | unix.IN_MOVED_TO | unix.IN_MOVED_FROM |
	unix.IN_DELETE | unix.IN_ONLYDIR

// inotifyChannel implements Channel with a non-blocking inotify descriptor
// registered in an epoll readiness queue.
type inotifyChannel struct {
	channelState

	fd     int
	epfd   int
	events [1]unix.EpollEvent
	logger logger.Logger
}

// acquireNative opens an inotify watch on dir.
func acquireNative(dir string, opts Options) (Channel, error) {
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if err != nil {
		return nil, fmt.Errorf("%w: inotify_init1: %w", ErrAcquisition, err)
	}

	if _, err := unix.InotifyAddWatch(fd, dir, inotifyMask); err != nil {
		_ = unix.Close(fd) //nolint:errcheck // best effort cleanup
		if errors.Is(err, unix.ENOTDIR) {
			err = ErrNotDirectory
		}
		return nil, fmt.Errorf("%w: watch %s: %w", ErrAcquisition, dir, err)
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		_ = unix.Close(fd) //nolint:errcheck // best effort cleanup
		return nil, fmt.Errorf("%w: epoll_create1: %w", ErrAcquisition, err)
	}

	event := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &event); err != nil {
		_ = unix.Close(epfd) //nolint:errcheck // best effort cleanup
		_ = unix.Close(fd)   //nolint:errcheck // best effort cleanup
		return nil, fmt.Errorf("%w: epoll_ctl: %w", ErrAcquisition, err)
	}

	c := &inotifyChannel{
		fd:     fd,
		epfd:   epfd,
		logger: opts.Logger,
	}
	c.init(dir, opts.BufferSize)

	opts.Logger.Debug("inotify channel acquired",
		"dir", dir,
		"buffer_size", opts.BufferSize)

	return c, nil
}

// Layout implements Channel.Layout.
func (c *inotifyChannel) Layout() decoder.Layout {
	return decoder.LayoutInotify
}

// RequestRead implements Channel.RequestRead.
//
// inotify has no separate arm step: the descriptor stays readable while
// events are queued, so arming is a non-blocking read attempt.
func (c *inotifyChannel) RequestRead() ReadOutcome {
	if !c.Valid() {
		return readFatal(ErrReleased)
	}

	n, err := c.read()
	switch {
	case err == nil && n > 0:
		return ReadOutcome{Status: ReadCompleted, Len: c.overflowAdjusted(n)}
	case err == nil, errors.Is(err, unix.EAGAIN):
		return ReadOutcome{Status: ReadQueued}
	default:
		c.invalidate()
		return readFatal(fmt.Errorf("%w: read: %w", ErrFatalRead, err))
	}
}

// WaitForCompletion implements Channel.WaitForCompletion.
func (c *inotifyChannel) WaitForCompletion(timeout time.Duration) CompletionOutcome {
	if !c.Valid() {
		return completionFatal(ErrReleased)
	}

	ready, err := unix.EpollWait(c.epfd, c.events[:], timeoutMillis(timeout))
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return completionTimedOut
		}
		c.invalidate()
		return completionFatal(fmt.Errorf("%w: epoll_wait: %w", ErrFatalRead, err))
	}
	if ready == 0 {
		return completionTimedOut
	}
	if c.events[0].Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
		c.invalidate()
		return completionFatal(fmt.Errorf("%w: inotify descriptor hung up", ErrFatalRead))
	}

	n, err := c.read()
	switch {
	case err == nil:
		return completionDone(c.overflowAdjusted(n))
	case errors.Is(err, unix.EAGAIN):
		// Readiness without data; the read stays armed.
		return completionTimedOut
	default:
		c.invalidate()
		return completionFatal(fmt.Errorf("%w: read: %w", ErrFatalRead, err))
	}
}

// Release implements Channel.Release.
func (c *inotifyChannel) Release() error {
	return c.release(func() error {
		epErr := unix.Close(c.epfd)
		fdErr := unix.Close(c.fd)
		if err := errors.Join(epErr, fdErr); err != nil {
			return fmt.Errorf("failed to release inotify channel: %w", err)
		}
		c.logger.Debug("inotify channel released", "dir", c.dir)
		return nil
	})
}

// read fills the buffer, retrying interrupted reads.
func (c *inotifyChannel) read() (int, error) {
	for {
		n, err := unix.Read(c.fd, c.buf)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		return n, err
	}
}

// overflowAdjusted reports a read holding nothing but the kernel's queue
// overflow record as an empty completion, which triggers a rescan.
func (c *inotifyChannel) overflowAdjusted(n int) int {
	if n != decoder.InotifyHeaderSize {
		return n
	}
	mask := binary.NativeEndian.Uint32(c.buf[4:8])
	if mask&unix.IN_Q_OVERFLOW == 0 {
		return n
	}
	c.logger.Warn("inotify queue overflow", "dir", c.dir, "error", ErrOverflow)
	return 0
}
