package core

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpinlockTryLock(t *testing.T) {
	var s Spinlock
	require.True(t, s.TryLock())
	assert.False(t, s.TryLock(), "second TryLock must fail while held")
	s.Unlock()
	assert.True(t, s.TryLock())
	s.Unlock()
}

func TestSpinlockMutualExclusion(t *testing.T) {
	var (
		s       Spinlock
		wg      sync.WaitGroup
		counter int
	)
	const goroutines, iterations = 8, 2000

	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				s.Lock()
				counter++
				s.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, goroutines*iterations, counter)
}

func TestSpinlockLockWaitsForUnlock(t *testing.T) {
	var s Spinlock
	s.Lock()

	acquired := make(chan struct{})
	go func() {
		s.Lock()
		defer s.Unlock()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("lock acquired while held")
	default:
	}

	s.Unlock()
	<-acquired
}

func TestSpinlockIsLocker(t *testing.T) {
	var _ sync.Locker = &Spinlock{}
}
