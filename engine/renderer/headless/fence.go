package headless

import (
	"sync"
	"time"
)

type Fence struct {
	mu       sync.Mutex
	signaled bool
	// zero when no submission is pending
	signalAt time.Time
}

// NewFence creates a fence. Frame fences start signaled so the first wait
// on them returns at once.
func NewFence(signaled bool) *Fence {
	return &Fence{signaled: signaled}
}

func (f *Fence) signalAfter(latency time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if latency <= 0 {
		f.signaled = true
		f.signalAt = time.Time{}
		return
	}
	f.signaled = false
	f.signalAt = time.Now().Add(latency)
}

func (f *Fence) poll() (bool, time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signaled {
		return true, 0
	}
	if f.signalAt.IsZero() {
		return false, -1
	}
	remaining := time.Until(f.signalAt)
	if remaining <= 0 {
		f.signaled = true
		f.signalAt = time.Time{}
		return true, 0
	}
	return false, remaining
}

// wait reports whether the fence got signaled within timeout.
func (f *Fence) wait(timeout time.Duration) bool {
	ok, remaining := f.poll()
	if ok {
		return true
	}
	if remaining < 0 || remaining > timeout {
		time.Sleep(timeout)
	} else {
		time.Sleep(remaining)
	}
	ok, _ = f.poll()
	return ok
}

func (f *Fence) Signaled() bool {
	ok, _ := f.poll()
	return ok
}

// Signal marks the fence signaled, as the device would on completion.
func (f *Fence) Signal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signaled = true
	f.signalAt = time.Time{}
}

func (f *Fence) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signaled = false
	f.signalAt = time.Time{}
}
