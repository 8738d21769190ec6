package httpcore

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransferDeliversNothingBeforeDemand(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	i := 0
	var mu sync.Mutex
	var consumed []int

	producer := func() (int, bool) {
		mu.Lock()
		defer mu.Unlock()
		if i >= len(items) {
			return 0, false
		}
		v := items[i]
		i++
		return v, true
	}
	consumer := func(item int) {
		mu.Lock()
		consumed = append(consumed, item)
		mu.Unlock()
	}

	tr := NewTransfer(producer, consumer, nil)
	done := make(chan struct{})
	tr.Finish(func() { close(done) })
	// Finish before any demand: produce loop never ran.
	mu.Lock()
	assert.Empty(t, consumed)
	mu.Unlock()
}

func TestTransferBeforeFirstRunsOnce(t *testing.T) {
	var beforeFirstCalls int
	var mu sync.Mutex
	remaining := 3
	producer := func() (int, bool) {
		mu.Lock()
		defer mu.Unlock()
		if remaining == 0 {
			return 0, false
		}
		remaining--
		return remaining, true
	}
	var delivered int
	consumer := func(int) {
		mu.Lock()
		delivered++
		mu.Unlock()
	}
	beforeFirst := func() {
		mu.Lock()
		beforeFirstCalls++
		mu.Unlock()
	}

	tr := NewTransfer(producer, consumer, beforeFirst)
	tr.IncreaseDemand(10)

	done := make(chan struct{})
	tr.Finish(func() { close(done) })
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, beforeFirstCalls)
	assert.Equal(t, 3, delivered)
}

func TestTransferFinishIsIdempotent(t *testing.T) {
	tr := NewTransfer(func() (int, bool) { return 0, false }, func(int) {}, nil)
	assert.True(t, tr.Finish(nil))
	assert.False(t, tr.Finish(nil))
	assert.True(t, tr.IsFinished())
}
