// Package headless is an in-memory rendering backend. It keeps recorded
// command streams for inspection, completes submissions after a configurable
// latency and lets callers inject failures.
package headless

import (
	"fmt"
	"sync"
	"time"

	"github.com/spaghettifunk/phusis/engine/core"
	"github.com/spaghettifunk/phusis/engine/renderer"
)

// Submission is a snapshot of one submitted primary command buffer.
type Submission struct {
	Fence   *Fence
	Primary []Command
	// Secondaries holds the command stream of every executed secondary
	// buffer, in execution order.
	Secondaries [][]Command
}

// Draws counts the indexed draws of the submission.
func (s *Submission) Draws() int {
	draws := 0
	for _, commands := range s.Secondaries {
		for _, c := range commands {
			if c.Op == OpDrawIndexed {
				draws++
			}
		}
	}
	return draws
}

type Option func(*Backend)

// WithLatency delays fence signaling after each submit.
func WithLatency(latency time.Duration) Option {
	return func(b *Backend) {
		b.latency = latency
	}
}

// WithHistory bounds how many submissions are kept. Zero keeps all of them.
func WithHistory(n int) Option {
	return func(b *Backend) {
		b.history = n
	}
}

type Backend struct {
	mu          sync.Mutex
	latency     time.Duration
	history     int
	pools       []*CommandPool
	destroyed   int
	submissions []*Submission
	submitted   int
	timeouts    int

	failPoolAt  int
	failPoolErr error
	failWait    error
	failSubmit  error
	onEnd       func(cb *CommandBuffer) error
}

var _ renderer.Backend = (*Backend)(nil)

func New(opts ...Option) *Backend {
	b := &Backend{failPoolAt: -1}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Backend) CreateCommandPool(queueFamily uint32) (renderer.CommandPool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failPoolErr != nil && len(b.pools) == b.failPoolAt {
		return nil, b.failPoolErr
	}
	p := &CommandPool{backend: b, queueFamily: queueFamily}
	b.pools = append(b.pools, p)
	return p, nil
}

func (b *Backend) fence(handle interface{}) (*Fence, error) {
	f, ok := handle.(*Fence)
	if !ok || f == nil {
		return nil, fmt.Errorf("not a headless fence: %T", handle)
	}
	return f, nil
}

func (b *Backend) WaitForFence(handle interface{}, timeout time.Duration) error {
	f, err := b.fence(handle)
	if err != nil {
		return err
	}
	b.mu.Lock()
	failWait := b.failWait
	b.mu.Unlock()
	if failWait != nil {
		return failWait
	}

	if f.wait(timeout) {
		return nil
	}
	b.mu.Lock()
	b.timeouts++
	b.mu.Unlock()
	return fmt.Errorf("fence still unsignaled after %s: %w", timeout, core.ErrFenceTimeout)
}

func (b *Backend) ResetFence(handle interface{}) error {
	f, err := b.fence(handle)
	if err != nil {
		return err
	}
	f.Reset()
	return nil
}

func (b *Backend) Submit(primary renderer.CommandBuffer, handle interface{}) error {
	f, err := b.fence(handle)
	if err != nil {
		return err
	}
	cb, ok := primary.(*CommandBuffer)
	if !ok {
		return fmt.Errorf("not a headless command buffer: %T", primary)
	}
	if !cb.executable {
		return fmt.Errorf("primary command buffer is not executable")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failSubmit != nil {
		return b.failSubmit
	}

	s := &Submission{Fence: f, Primary: cb.Commands()}
	for _, c := range s.Primary {
		if c.Op != OpExecuteCommands {
			continue
		}
		for _, secondary := range c.Executed {
			s.Secondaries = append(s.Secondaries, secondary.Commands())
		}
	}
	b.submissions = append(b.submissions, s)
	if b.history > 0 && len(b.submissions) > b.history {
		b.submissions = b.submissions[len(b.submissions)-b.history:]
	}
	b.submitted++

	f.signalAfter(b.latency)
	return nil
}

func (b *Backend) poolDestroyed() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.destroyed++
}

func (b *Backend) endHook() func(cb *CommandBuffer) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.onEnd
}

// FailPoolCreation makes the n-th (zero based) CreateCommandPool call fail.
func (b *Backend) FailPoolCreation(n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failPoolAt = n
	b.failPoolErr = err
}

// FailFenceWaits makes every fence wait return err. nil clears it.
func (b *Backend) FailFenceWaits(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failWait = err
}

// FailSubmits makes every submit return err. nil clears it.
func (b *Backend) FailSubmits(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failSubmit = err
}

// OnEnd installs a hook run when a command buffer ends recording. An error
// from the hook is returned by End.
func (b *Backend) OnEnd(hook func(cb *CommandBuffer) error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onEnd = hook
}

// Pool returns the n-th command pool created, nil if there is none.
func (b *Backend) Pool(n int) *CommandPool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n < 0 || n >= len(b.pools) {
		return nil
	}
	return b.pools[n]
}

func (b *Backend) PoolsCreated() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pools)
}

func (b *Backend) PoolsDestroyed() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.destroyed
}

// Submitted counts every submission, including those dropped from history.
func (b *Backend) Submitted() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.submitted
}

func (b *Backend) Submissions() []*Submission {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Submission(nil), b.submissions...)
}

func (b *Backend) LastSubmission() *Submission {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.submissions) == 0 {
		return nil
	}
	return b.submissions[len(b.submissions)-1]
}

// Timeouts counts fence waits that timed out.
func (b *Backend) Timeouts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.timeouts
}
