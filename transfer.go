// Copyright (c) 2024-2026 httpcore Authors.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package httpcore

// Producer supplies the next item, or ok=false when none is currently
// available (the engine halts until the next TryTransfer or IncreaseDemand).
type Producer[T any] func() (item T, ok bool)

// Consumer receives one delivered item.
type Consumer[T any] func(item T)

// Transfer is the backpressure primitive: a single-producer/single-consumer
// pipeline that delivers at most D items, D being the cumulative demand
// signalled via IncreaseDemand, strictly serially and never overlapping
// with itself.
//
// It drives every lazy body transfer in this package (request bodies in
// body.go, response bodies in pipeline.go): the familiar reactive-streams
// demand vocabulary, reimplemented here as a plain demand counter plus a
// serial executor rather than pulling in a full reactive-streams library,
// since nothing in this package needs more than a single producer and a
// single consumer at a time.
type Transfer[T any] struct {
	demand demandCell
	exec   *SerialExecutor

	produce Producer[T]
	consume Consumer[T]

	beforeFirst func()
	firstDone   bool
}

// NewTransfer wires a Transfer between producer and consumer. beforeFirst,
// if non-nil, runs exactly once, immediately before the first item is ever
// delivered.
func NewTransfer[T any](producer Producer[T], consumer Consumer[T], beforeFirst func()) *Transfer[T] {
	return &Transfer[T]{
		exec:        NewSerialExecutor(true),
		produce:     producer,
		consume:     consumer,
		beforeFirst: beforeFirst,
	}
}

// IncreaseDemand authorises n (n >= 1) further deliveries and kicks off a
// transfer attempt. Demand saturates at Unbounded and is never decremented
// past that point.
func (t *Transfer[T]) IncreaseDemand(n int64) {
	if n < 1 {
		return
	}
	t.demand.increase(n)
	t.TryTransfer()
}

// TryTransfer initiates a delivery attempt. If a transfer is already
// running on this Transfer, the attempt is queued behind it rather than
// running concurrently.
func (t *Transfer[T]) TryTransfer() {
	t.exec.Submit(t.deliverLoop)
}

// deliverLoop runs entirely inside the serial executor: it is never called
// concurrently with itself or with finish's callback, by construction.
func (t *Transfer[T]) deliverLoop() {
	for {
		if t.demand.isFinished() {
			return
		}
		ok, isFinished := t.demand.take()
		if isFinished {
			return
		}
		if !ok {
			return // demand exhausted; wait for next IncreaseDemand/TryTransfer
		}
		item, has := t.produce()
		if !has {
			// Demand was already taken for this attempt but no item was
			// available; give it back so a later successful pull isn't
			// short-changed.
			t.demand.increase(1)
			return
		}
		if !t.firstDone {
			t.firstDone = true
			if t.beforeFirst != nil {
				t.beforeFirst()
			}
		}
		// The item counts as consumed now, regardless of whether consume
		// panics below.
		t.consume(item)
	}
}

// Finish atomically stops future transfers and arranges for cb to run
// exactly once: immediately if the engine is idle, or after the in-flight
// transfer completes otherwise. Returns false if already finished.
func (t *Transfer[T]) Finish(cb func()) bool {
	first := t.demand.finish()
	done := make(chan struct{})
	t.exec.Submit(func() {
		if cb != nil {
			cb()
		}
		close(done)
	})
	<-done
	return first
}

// IsFinished reports whether Finish has already been called.
func (t *Transfer[T]) IsFinished() bool { return t.demand.isFinished() }
