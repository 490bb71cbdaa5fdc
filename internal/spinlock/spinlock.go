// Package spinlock implements a compare-and-swap lock on a 32-bit word,
// cheaper than sync.Mutex under the low-contention regime expected
// for one attribute-set's histogram updates (§4.3): most MetricPoints
// see updates from one or a small number of recorder goroutines, so a
// spin almost never blocks for long.
package spinlock

import (
	"runtime"
	"sync/atomic"
)

// Lock is a spinlock whose state is an atomic.Uint32, not a single
// byte. The zero value is unlocked.
type Lock struct {
	state atomic.Uint32
}

func (l *Lock) Acquire() {
	for !l.state.CompareAndSwap(0, 1) {
		runtime.Gosched()
	}
}

func (l *Lock) Release() {
	l.state.Store(0)
}
