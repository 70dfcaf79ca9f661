package systems

import "sync/atomic"

// Latch is a counting completion barrier. It is armed with Reset and
// completes when CountDown has been called that many times.
type Latch struct {
	remaining atomic.Int64
}

func (l *Latch) Reset(count int) {
	l.remaining.Store(int64(count))
}

// CountDown reports true for exactly the call that completes the latch.
func (l *Latch) CountDown() bool {
	return l.remaining.Add(-1) == 0
}

func (l *Latch) Remaining() int {
	return int(l.remaining.Load())
}
