// Copyright (c) 2024-2026 httpcore Authors.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package httpcore

import (
	"context"
	"sync"
)

// SerialExecutor guarantees that submitted actions run strictly FIFO and
// never overlap, whether submitted concurrently from many goroutines or
// recursively from within a running action.
//
// This mirrors the per-connection serialisation every exchange in this
// package relies on (head parse, handler invocation, and response writes
// for one connection never run concurrently), the same guarantee a
// one-goroutine-per-connection HTTP/1 loop makes by construction; here it
// is made explicit and reusable so the Transfer engine (transfer.go) can
// build on it.
//
// A plain sync.Mutex plus a pending-action queue is the obvious primitive
// for this; no dependency in the ecosystem offers a serial-FIFO executor
// that also supports same-frame recursive submission, which is the one
// piece of behavior this type actually needs beyond what a mutex gives for
// free.
type SerialExecutor struct {
	recursive bool

	mu      sync.Mutex
	running bool
	pending []func()
}

// NewSerialExecutor creates an executor. When recursive is true, a
// SubmitCtx call made synchronously from within a currently-running action
// (identified by ctx carrying this executor's marker, see WithFrame) runs
// inline instead of being queued; when false, every submission is enqueued
// and drained by the running goroutine, making a stack overflow from
// runaway recursion impossible.
func NewSerialExecutor(recursive bool) *SerialExecutor {
	return &SerialExecutor{recursive: recursive}
}

type frameKey struct{}

// WithFrame marks ctx as running inside this executor's current action, so
// that a later SubmitCtx(ctx, ...) call made synchronously down this same
// call chain is recognised as a same-frame recursive submission rather than
// an independent concurrent one. Go has no supported way to inspect "which
// goroutine is this" for that purpose, so the marker is carried explicitly
// through context.Context instead of guessed at.
func (e *SerialExecutor) WithFrame(ctx context.Context) context.Context {
	return context.WithValue(ctx, frameKey{}, e)
}

func (e *SerialExecutor) inFrame(ctx context.Context) bool {
	owner, _ := ctx.Value(frameKey{}).(*SerialExecutor)
	return owner == e
}

// Submit is SubmitCtx with a background context, i.e. never treated as a
// recursive same-frame call.
func (e *SerialExecutor) Submit(action func()) { e.SubmitCtx(context.Background(), action) }

// SubmitCtx runs action on the calling goroutine if the executor is idle, or
// inline if recursive mode is on and ctx was produced by WithFrame for this
// executor; otherwise it enqueues action for the currently running
// goroutine to drain once its current and pending actions finish.
func (e *SerialExecutor) SubmitCtx(ctx context.Context, action func()) {
	e.mu.Lock()
	if !e.running {
		e.running = true
		e.mu.Unlock()
		e.runLoop(action)
		return
	}
	if e.recursive && e.inFrame(ctx) {
		e.mu.Unlock()
		action()
		return
	}
	e.pending = append(e.pending, action)
	e.mu.Unlock()
}

// runLoop drains action and anything it (or later concurrent Submit calls)
// enqueues, strictly FIFO, until the queue is empty. The frame marker an
// action needs in order to recurse inline is embedded by the caller via
// WithFrame before the first SubmitCtx call, not by runLoop itself.
func (e *SerialExecutor) runLoop(first func()) {
	action := first
	for {
		e.runOne(action)
		e.mu.Lock()
		if len(e.pending) == 0 {
			e.running = false
			e.mu.Unlock()
			return
		}
		action = e.pending[0]
		e.pending = e.pending[1:]
		e.mu.Unlock()
	}
}

// runOne executes action and, on panic, drains whatever had already queued
// behind it via fresh Submit calls before re-panicking, so a single
// misbehaving action cannot wedge every future submission behind a dead
// goroutine.
func (e *SerialExecutor) runOne(action func()) {
	defer func() {
		if r := recover(); r != nil {
			e.mu.Lock()
			e.running = false
			pending := e.pending
			e.pending = nil
			e.mu.Unlock()
			for _, p := range pending {
				e.Submit(p)
			}
			panic(r)
		}
	}()
	action()
}
