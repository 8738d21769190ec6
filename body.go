// Copyright (c) 2024-2026 httpcore Authors.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package httpcore

import (
	"fmt"
	"sync"
)

// BodyReader is the lazy byte-chunk sequence backing a Request or Response
// body. It is observable by at most one subscriber: Subscribe wires a
// Transfer (transfer.go) between the underlying chunk producer and the
// caller's consumer, and fails if called twice.
type BodyReader struct {
	produce Producer[[]byte]

	mu         sync.Mutex
	subscribed bool
	transfer   *Transfer[[]byte]

	doneOnce sync.Once
	done     chan struct{}
	doneErr error
}

// NewBodyReader wraps produce, a function that yields the next chunk of
// the body or ok=false once exhausted. doneErr, if non-nil when produce
// finally returns ok=false, is reported as the completion error: a clean
// end of stream completes Await with nil, a timeout or abort completes it
// with whatever SetDoneErr recorded.
func NewBodyReader(produce Producer[[]byte]) *BodyReader {
	return &BodyReader{produce: produce, done: make(chan struct{})}
}

// Subscribe attaches consume as the single observer of this body and
// returns the Transfer driving delivery; the caller controls pacing via
// Transfer.IncreaseDemand. Returns an error if a subscriber already
// attached, or if the body was already discarded.
func (b *BodyReader) Subscribe(consume Consumer[[]byte], beforeFirst func()) (*Transfer[[]byte], error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subscribed {
		return nil, fmt.Errorf("httpcore: body already has a subscriber")
	}
	b.subscribed = true
	wrapped := func() ([]byte, bool) {
		chunk, ok := b.produce()
		if !ok {
			b.markDone()
		}
		return chunk, ok
	}
	b.transfer = NewTransfer(wrapped, consume, beforeFirst)
	return b.transfer, nil
}

// Discard drains the body without delivering it anywhere, used when a
// connection is moving on to its next exchange and no handler ever
// subscribed to this one's body. A no-op if a subscriber already attached.
func (b *BodyReader) Discard() {
	b.mu.Lock()
	if b.subscribed {
		b.mu.Unlock()
		return
	}
	b.subscribed = true
	wrapped := func() ([]byte, bool) {
		chunk, ok := b.produce()
		if !ok {
			b.markDone()
		}
		return chunk, ok
	}
	b.transfer = NewTransfer(wrapped, func([]byte) {}, nil)
	b.mu.Unlock()
	b.transfer.IncreaseDemand(Unbounded)
}

func (b *BodyReader) markDone() { b.doneOnce.Do(func() { close(b.done) }) }

// SetDoneErr records the error Await/DoneErr should observe once the body
// finishes, e.g. a BodyTimeout or ClientAborted raised while pulling
// chunks from the connection.
func (b *BodyReader) SetDoneErr(err error) { b.doneErr = err }

// Await blocks until the body has delivered its final chunk (or been
// discarded), returning the completion error if any.
func (b *BodyReader) Await() error {
	<-b.done
	return b.doneErr
}

// DoneErr reports the completion error without blocking: nil if the body
// hasn't finished yet, or if it finished without one.
func (b *BodyReader) DoneErr() error {
	select {
	case <-b.done:
		return b.doneErr
	default:
		return nil
	}
}

// Cancel stops any in-flight delivery, used when the connection is closed
// out from under an in-progress exchange.
func (b *BodyReader) Cancel(cause error) {
	b.doneErr = cause
	b.mu.Lock()
	t := b.transfer
	b.mu.Unlock()
	if t != nil {
		t.Finish(b.markDone)
	} else {
		b.markDone()
	}
}
