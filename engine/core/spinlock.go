package core

import (
	"runtime"
	"sync/atomic"
)

// spins before a waiting goroutine yields its P
const activeSpin = 32

// Spinlock is a mutual-exclusion lock for critical sections that last a
// handful of instructions. The zero value is unlocked.
//
// It is not fair and not reentrant: locking it twice from the same goroutine
// deadlocks. Pair every Lock with a deferred Unlock so the lock is released on
// every return path, panics included.
type Spinlock struct {
	locked atomic.Bool
}

// Lock blocks until the lock is acquired. A failed attempt spins on a plain
// load until the flag clears and only then retries the swap, so waiters do
// not hammer the cache line with writes.
func (s *Spinlock) Lock() {
	for {
		if !s.locked.Swap(true) {
			return
		}
		for i := 0; s.locked.Load(); i++ {
			if i >= activeSpin {
				runtime.Gosched()
				i = 0
			}
		}
	}
}

// TryLock acquires the lock if it is free and reports whether it did.
func (s *Spinlock) TryLock() bool {
	return !s.locked.Load() && !s.locked.Swap(true)
}

// Unlock releases the lock. It must only be called by the holder.
func (s *Spinlock) Unlock() {
	s.locked.Store(false)
}
