// Copyright (c) 2024-2026 httpcore Authors.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package httpcore

import (
	"runtime"
	"sync"
)

// WorkerPool runs exchange handlers off the connection's own goroutine, so
// a slow handler on one connection never delays head parsing on another.
// One pool is shared process-wide across every Server, sized once from
// whichever Server starts first — mirroring how a single process normally
// runs one listener stack, not one pool per listening endpoint.
type WorkerPool struct {
	tasks chan func()
}

var (
	poolOnce   sync.Once
	globalPool *WorkerPool
)

// InitPool returns the process-wide pool, creating it sized to size
// workers (or runtime.GOMAXPROCS(0) if size <= 0) on the first call; later
// calls with a different size are ignored, since the pool, once running,
// can't be resized.
func InitPool(size int) *WorkerPool {
	poolOnce.Do(func() {
		if size <= 0 {
			size = runtime.GOMAXPROCS(0)
		}
		p := &WorkerPool{tasks: make(chan func(), size*4)}
		for i := 0; i < size; i++ {
			go p.run()
		}
		globalPool = p
	})
	return globalPool
}

func (p *WorkerPool) run() {
	for task := range p.tasks {
		task()
	}
}

// Submit queues task to run on some worker goroutine. Blocks if every
// worker and the queue's buffer are busy, applying natural backpressure to
// whatever connection submitted it.
func (p *WorkerPool) Submit(task func()) {
	p.tasks <- task
}
