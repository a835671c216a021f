package notify

import (
	"sync/atomic"
	"time"

	"github.com/0xmhha/dropwatch/pkg/decoder"
)

// fakeResult is one scripted outcome.
type fakeResult struct {
	payload []byte
	err     error
}

// Fake implements an in-memory Channel whose reads are scripted by a test.
//
// Results queued with PushImmediate are returned by the next RequestRead.
// Results queued with Complete or Fail are returned by WaitForCompletion.
// Payloads are copied into the owned buffer, so they must already be in the
// fake's layout.
type Fake struct {
	channelState

	layout    decoder.Layout
	immediate chan fakeResult
	completed chan fakeResult
	reads     atomic.Int64
	released  atomic.Bool
}

// NewFake returns a valid fake channel for dir.
func NewFake(dir string, layout decoder.Layout, bufferSize int) *Fake {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	f := &Fake{
		layout:    layout,
		immediate: make(chan fakeResult, 64),
		completed: make(chan fakeResult, 64),
	}
	f.init(dir, bufferSize)
	return f
}

// PushImmediate makes a later RequestRead complete synchronously with payload.
func (f *Fake) PushImmediate(payload []byte) {
	f.immediate <- fakeResult{payload: payload}
}

// FailRead makes a later RequestRead fail with err.
func (f *Fake) FailRead(err error) {
	f.immediate <- fakeResult{err: err}
}

// Complete resolves a pending read with payload. An empty payload reports
// a zero-byte completion, as the OS does after an overflow.
func (f *Fake) Complete(payload []byte) {
	f.completed <- fakeResult{payload: payload}
}

// Fail makes a later WaitForCompletion fail with err.
func (f *Fake) Fail(err error) {
	f.completed <- fakeResult{err: err}
}

// Reads returns how many times RequestRead was called.
func (f *Fake) Reads() int {
	return int(f.reads.Load())
}

// Released reports whether Release was called.
func (f *Fake) Released() bool {
	return f.released.Load()
}

// Layout implements Channel.Layout.
func (f *Fake) Layout() decoder.Layout {
	return f.layout
}

// RequestRead implements Channel.RequestRead.
func (f *Fake) RequestRead() ReadOutcome {
	f.reads.Add(1)
	if !f.Valid() {
		return readFatal(ErrReleased)
	}

	select {
	case r := <-f.immediate:
		if r.err != nil {
			f.invalidate()
			return readFatal(r.err)
		}
		return ReadOutcome{Status: ReadCompleted, Len: copy(f.buf, r.payload)}
	default:
		return ReadOutcome{Status: ReadQueued}
	}
}

// WaitForCompletion implements Channel.WaitForCompletion.
func (f *Fake) WaitForCompletion(timeout time.Duration) CompletionOutcome {
	if !f.Valid() {
		return completionFatal(ErrReleased)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-f.completed:
		if r.err != nil {
			f.invalidate()
			return completionFatal(r.err)
		}
		return completionDone(copy(f.buf, r.payload))
	case <-timer.C:
		return completionTimedOut
	}
}

// Release implements Channel.Release.
func (f *Fake) Release() error {
	return f.release(func() error {
		f.released.Store(true)
		return nil
	})
}

var _ Channel = (*Fake)(nil)
