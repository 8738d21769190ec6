// Copyright (c) 2024-2026 httpcore Authors.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package httpcore

import "go.uber.org/atomic"

// Unbounded is the demand sentinel meaning "never decrement further",
// reached once accumulated demand saturates.
const Unbounded int64 = 1<<63 - 1

// finished is a distinct sentinel value stored in the same cell as demand,
// disjoint from every legal demand value (which is always >= 0), so one
// atomic cell can hold either "remaining demand" or "finished".
const finished int64 = -1

// demandCell is the single atomic 64-bit cell the Transfer engine's
// algorithm is built around, chosen for the same reason the yarpc-go
// dispatcher reaches for go.uber.org/atomic over a bare mutex-guarded
// counter: it's a lock-free counter with no allocation on the hot path.
type demandCell struct {
	v atomic.Int64
}

func (d *demandCell) increase(n int64) {
	for {
		cur := d.v.Load()
		if cur == finished || cur == Unbounded {
			return
		}
		next := cur + n
		if next < 0 || next > Unbounded { // overflow or saturation
			next = Unbounded
		}
		if d.v.CompareAndSwap(cur, next) {
			return
		}
	}
}

// take attempts to consume one unit of demand, returning false if there is
// none left (or the cell has finished). Unbounded demand is never
// decremented.
func (d *demandCell) take() (ok bool, isFinished bool) {
	for {
		cur := d.v.Load()
		if cur == finished {
			return false, true
		}
		if cur <= 0 {
			return false, false
		}
		if cur == Unbounded {
			return true, false
		}
		if d.v.CompareAndSwap(cur, cur-1) {
			return true, false
		}
	}
}

// finish marks the cell finished, returning false if it already was.
func (d *demandCell) finish() bool {
	for {
		cur := d.v.Load()
		if cur == finished {
			return false
		}
		if d.v.CompareAndSwap(cur, finished) {
			return true
		}
	}
}

func (d *demandCell) isFinished() bool { return d.v.Load() == finished }
