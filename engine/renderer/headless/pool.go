package headless

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/phusis/engine/renderer"
	"github.com/spaghettifunk/phusis/engine/renderer/metadata"
)

type CommandPool struct {
	backend     *Backend
	queueFamily uint32

	mu          sync.Mutex
	buffers     []*CommandBuffer
	resets      int
	allocations int
	destroyed   bool
	failAlloc   error
	limit       int
}

func (p *CommandPool) Allocate(level metadata.CommandBufferLevel, count int) ([]renderer.CommandBuffer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.destroyed {
		return nil, fmt.Errorf("command pool destroyed")
	}
	if p.failAlloc != nil {
		return nil, p.failAlloc
	}
	if count <= 0 {
		return nil, fmt.Errorf("invalid command buffer count %d", count)
	}
	if p.limit > 0 && len(p.buffers)+count > p.limit {
		return nil, fmt.Errorf("pool limited to %d command buffers, %d requested", p.limit, len(p.buffers)+count)
	}

	out := make([]renderer.CommandBuffer, count)
	for i := range out {
		cb := &CommandBuffer{pool: p, level: level}
		p.buffers = append(p.buffers, cb)
		out[i] = cb
	}
	p.allocations++
	return out, nil
}

func (p *CommandPool) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.destroyed {
		return fmt.Errorf("command pool destroyed")
	}
	p.buffers = nil
	p.resets++
	return nil
}

func (p *CommandPool) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.destroyed {
		return
	}
	p.destroyed = true
	p.buffers = nil
	p.backend.poolDestroyed()
}

// FailAllocations makes every following Allocate return err. nil clears it.
func (p *CommandPool) FailAllocations(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failAlloc = err
}

// SetLimit caps the number of live buffers of the pool. Zero removes the cap.
func (p *CommandPool) SetLimit(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.limit = n
}

// Live is the number of buffers allocated since the last reset.
func (p *CommandPool) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buffers)
}

func (p *CommandPool) Resets() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resets
}

func (p *CommandPool) Allocations() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.allocations
}

func (p *CommandPool) Destroyed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.destroyed
}
