package systems

import (
	"github.com/spaghettifunk/phusis/engine/core"
)

// RenderJob fans one callback out over the worker pool and lets the
// submitter join on it. At most one fan-out per job is in flight.
type RenderJob struct {
	pool     *WorkerPool
	callback Batchable
	run      Batchable
	gate     core.Spinlock
	latch    Latch
}

func NewRenderJob(pool *WorkerPool, callback Batchable) *RenderJob {
	j := &RenderJob{
		pool:     pool,
		callback: callback,
	}
	j.run = j.item
	return j
}

func (j *RenderJob) item(worker, item int) {
	// the last item to finish opens the gate, even if the callback panics
	defer func() {
		if j.latch.CountDown() {
			j.gate.Unlock()
		}
	}()
	j.callback(worker, item)
}

/**
 * @brief Starts a fan-out of size items.
 * @return false without side effects when a previous fan-out is still running
 * or the pool is shut down.
 */
func (j *RenderJob) Dispatch(size int) bool {
	if !j.gate.TryLock() {
		return false
	}
	if size <= 0 {
		j.gate.Unlock()
		return true
	}
	j.latch.Reset(size)
	if err := j.pool.SubmitBatch(j.run, size); err != nil {
		j.latch.Reset(0)
		j.gate.Unlock()
		core.LogError("render job dispatch failed: %s", err)
		return false
	}
	return true
}

// Wait blocks until the fan-out in flight, if any, has completed.
func (j *RenderJob) Wait() {
	j.gate.Lock()
	j.gate.Unlock()
}

// Running reports whether a fan-out has items left to run.
func (j *RenderJob) Running() bool {
	return j.latch.Remaining() > 0
}
