package watcher

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/0xmhha/dropwatch/pkg/decoder"
	"github.com/0xmhha/dropwatch/pkg/filter"
	"github.com/0xmhha/dropwatch/pkg/logger"
	"github.com/0xmhha/dropwatch/pkg/notify"
)

// Watcher monitors one directory and dispatches arriving files.
//
// Watch runs on a single goroutine. Stop, the counters, State, Valid and
// Err are safe to call from any goroutine.
type Watcher struct {
	cfg    Config
	logger logger.Logger
	filter *filter.Filter

	ch  notify.Channel
	dec *decoder.Decoder

	valid   atomic.Bool
	started atomic.Bool
	state   atomic.Uint32

	processed    atomic.Uint64
	ignored      atomic.Uint64
	rescans      atomic.Uint64
	decodeErrors atomic.Uint64

	mu  sync.Mutex
	err error
}

// New creates a watcher and acquires its notification channel.
//
// New never fails outright: a configuration or acquisition error produces
// an invalid watcher whose Watch returns false and whose Err reports why.
func New(cfg Config, log logger.Logger) *Watcher {
	if log == nil {
		log = logger.Noop()
	}
	cfg = cfg.withDefaults()

	w := &Watcher{
		cfg:    cfg,
		logger: log.With("dir", cfg.Directory),
		filter: filter.New(cfg.Extensions),
	}

	if err := cfg.validate(); err != nil {
		w.err = err
		w.logger.Error("invalid watcher configuration", "error", err)
		return w
	}

	ch, err := cfg.Acquire(cfg.Directory, notify.Options{
		BufferSize: cfg.BufferSize,
		Backend:    cfg.Backend,
		Logger:     w.logger,
	})
	if err != nil {
		w.err = fmt.Errorf("failed to acquire notification channel: %w", err)
		w.logger.Error("failed to acquire notification channel", "error", err)
		return w
	}

	w.ch = ch
	w.dec = decoder.New(ch.Layout(), cfg.Directory)
	w.valid.Store(true)

	if len(w.filter.Extensions()) == 0 {
		w.logger.Warn("no extensions configured, every file will be ignored")
	}
	w.logger.Info("watcher created",
		"extensions", w.filter.Extensions(),
		"backend", cfg.Backend,
		"layout", ch.Layout(),
		"buffer_size", len(ch.Buffer()),
		"wait_timeout", cfg.WaitTimeout,
		"dispatch_queue", cfg.DispatchQueue)

	return w
}

func (c Config) withDefaults() Config {
	c.Directory = strings.TrimSpace(c.Directory)
	c.Extensions = append([]string(nil), c.Extensions...)
	if c.WaitTimeout <= 0 {
		c.WaitTimeout = DefaultWaitTimeout
	}
	if c.BufferSize == 0 {
		c.BufferSize = notify.DefaultBufferSize
	}
	if c.Backend == "" {
		c.Backend = notify.BackendNative
	}
	if c.DispatchQueue < 0 {
		c.DispatchQueue = 0
	}
	if c.Acquire == nil {
		c.Acquire = notify.Acquire
	}
	return c
}

func (c Config) validate() error {
	if c.Directory == "" {
		return ErrEmptyDirectory
	}
	if c.Callback == nil {
		return ErrNilCallback
	}
	return nil
}

// Watch runs the notification loop until Stop is called or the channel
// fails. It returns false without blocking if the watcher was never valid or
// Watch has already been called; otherwise it returns true.
//
// The channel is released before Watch returns and the watcher cannot be
// restarted.
func (w *Watcher) Watch() bool {
	if w.ch == nil {
		return false
	}
	if !w.started.CompareAndSwap(false, true) {
		w.logger.Warn("watch already started")
		return false
	}
	defer w.teardown()

	if !w.valid.Load() {
		// Stopped before the loop began.
		return true
	}

	dispatch, wait := w.dispatcher()
	defer wait()

	w.logger.Info("watching directory")
	w.loop(dispatch)
	return true
}

// WatchContext is Watch with Stop called when ctx is done.
func (w *Watcher) WatchContext(ctx context.Context) bool {
	stop := context.AfterFunc(ctx, w.Stop)
	defer stop()
	return w.Watch()
}

// Stop asks a running Watch to return. It is idempotent and may be called
// from any goroutine, before or during Watch.
func (w *Watcher) Stop() {
	if w.valid.CompareAndSwap(true, false) {
		w.logger.Info("stop requested")
	}
}

// Close releases the channel of a watcher whose Watch was never called.
// On a running watcher it behaves like Stop.
func (w *Watcher) Close() error {
	if w.ch == nil {
		return nil
	}
	if !w.started.CompareAndSwap(false, true) {
		w.Stop()
		return nil
	}

	w.valid.Store(false)
	w.setState(StateStopped)
	if err := w.ch.Release(); err != nil {
		return fmt.Errorf("failed to release notification channel: %w", err)
	}
	return nil
}

// Valid reports whether the watcher can still deliver notifications.
func (w *Watcher) Valid() bool {
	return w.valid.Load()
}

// Err returns the configuration or acquisition error of an invalid watcher,
// or the fatal error that ended Watch. It is nil after a clean stop.
func (w *Watcher) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// State returns the current loop state.
func (w *Watcher) State() State {
	return State(w.state.Load())
}

// ProcessedFilesCount returns how many files were handed to the callback.
func (w *Watcher) ProcessedFilesCount() uint64 {
	return w.processed.Load()
}

// IgnoredFilesCount returns how many change records were rejected.
func (w *Watcher) IgnoredFilesCount() uint64 {
	return w.ignored.Load()
}

// Stats returns a snapshot of all counters.
func (w *Watcher) Stats() Stats {
	return Stats{
		Processed:    w.processed.Load(),
		Ignored:      w.ignored.Load(),
		Rescans:      w.rescans.Load(),
		DecodeErrors: w.decodeErrors.Load(),
	}
}

// loop is the wait loop. It returns when the watcher turns invalid.
func (w *Watcher) loop(dispatch func(string)) {
	if !w.arm(dispatch) {
		return
	}

	for w.valid.Load() {
		out := w.ch.WaitForCompletion(w.cfg.WaitTimeout)

		switch out.Status {
		case notify.CompletionTimedOut:
			continue

		case notify.CompletionDone:
			if out.Len == 0 {
				w.rescan()
			} else {
				w.drain(out.Len, dispatch)
			}
			if !w.arm(dispatch) {
				return
			}

		case notify.CompletionFatal:
			w.fail(out.Err)
			return
		}
	}
}

// arm requests reads until one is pending. Reads that complete on the spot
// are drained before asking again.
func (w *Watcher) arm(dispatch func(string)) bool {
	for w.valid.Load() {
		out := w.ch.RequestRead()

		switch out.Status {
		case notify.ReadQueued:
			w.setState(StateArmed)
			return true

		case notify.ReadCompleted:
			if out.Len == 0 {
				w.rescan()
				continue
			}
			w.drain(out.Len, dispatch)

		case notify.ReadFatal:
			w.fail(out.Err)
			return false
		}
	}
	return false
}

// drain decodes n bytes of the channel buffer and dispatches accepted paths.
func (w *Watcher) drain(n int, dispatch func(string)) {
	w.setState(StateDraining)

	records := w.dec.Decode(w.ch.Buffer(), n)
	for records.Next() {
		rec := records.Record()
		path := w.dec.Path(rec)

		if !w.filter.Accept(rec, path) {
			w.ignored.Add(1)
			w.logger.Debug("change ignored", "path", path, "action", rec.Action)
			continue
		}

		w.processed.Add(1)
		w.logger.Debug("change accepted", "path", path, "action", rec.Action)
		dispatch(path)
	}

	if err := records.Err(); err != nil {
		w.decodeErrors.Add(1)
		w.logger.Warn("notification buffer decoded partially", "error", err, "filled", n)
	}
}

// rescan records an empty completion. The caller re-arms without draining.
func (w *Watcher) rescan() {
	w.rescans.Add(1)
	w.logger.Warn("notifications may have been dropped, rescanning", "error", notify.ErrOverflow)
}

// fail ends the loop after a fatal channel error.
func (w *Watcher) fail(err error) {
	w.valid.Store(false)

	w.mu.Lock()
	w.err = err
	w.mu.Unlock()

	w.logger.Error("notification channel failed", "error", err)
}

// teardown releases the channel and marks the watcher stopped.
func (w *Watcher) teardown() {
	w.valid.Store(false)
	if err := w.ch.Release(); err != nil {
		w.logger.Error("failed to release notification channel", "error", err)
	}
	w.setState(StateStopped)

	stats := w.Stats()
	w.logger.Info("watcher stopped",
		"processed", stats.Processed,
		"ignored", stats.Ignored,
		"rescans", stats.Rescans,
		"decode_errors", stats.DecodeErrors)
}

func (w *Watcher) setState(s State) {
	w.state.Store(uint32(s))
}

// dispatcher returns the function drain hands accepted paths to, and a wait
// function that returns once every dispatched path reached the callback.
func (w *Watcher) dispatcher() (dispatch func(string), wait func()) {
	if w.cfg.DispatchQueue <= 0 {
		return w.invoke, func() {}
	}

	queue := make(chan string, w.cfg.DispatchQueue)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for path := range queue {
			w.invoke(path)
		}
	}()

	dispatch = func(path string) {
		queue <- path
	}
	wait = func() {
		close(queue)
		wg.Wait()
	}
	return dispatch, wait
}

// invoke runs the callback, containing any panic.
func (w *Watcher) invoke(path string) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("callback panicked",
				"path", path,
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()

	w.cfg.Callback(path)
}
