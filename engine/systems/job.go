package systems

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/spaghettifunk/phusis/engine/containers"
	"github.com/spaghettifunk/phusis/engine/core"
	"github.com/spaghettifunk/phusis/engine/math"
)

// Task is a unit of work run on a single worker. worker is the index of the
// worker executing it.
type Task func(worker int)

// Batchable is one logical job split into items. It is invoked once per item.
type Batchable func(worker, item int)

// polls of an empty queue before a worker parks on its wake channel
const idleSpin = 64

var ErrNoWorkers = fmt.Errorf("attempting to create worker pool with less than 1 worker")

// task is what sits in a worker queue: either a single Task or the half-open
// item range [begin, end) of a Batchable.
type task struct {
	run   Task
	batch Batchable
	begin int
	end   int
}

type worker struct {
	id    int
	lock  core.Spinlock
	queue *containers.RingQueue[task]
	wake  chan struct{}
}

func (w *worker) push(t task) {
	w.lock.Lock()
	defer w.lock.Unlock()
	w.queue.Enqueue(t)
}

func (w *worker) pop() (task, bool) {
	w.lock.Lock()
	defer w.lock.Unlock()
	t, err := w.queue.Dequeue()
	return t, err == nil
}

func (w *worker) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// WorkerPool is a fixed set of OS-thread bound workers, each with a private
// FIFO queue guarded by its own spinlock.
type WorkerPool struct {
	workers []*worker
	next    atomic.Uint64
	// submitters currently between the closed check and the enqueue
	pending atomic.Int64
	closed  atomic.Bool
	quit    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

// DefaultWorkerCount reserves one hardware thread for the submitter.
func DefaultWorkerCount() int {
	return math.Max(runtime.GOMAXPROCS(0)-1, 1)
}

/**
 * @brief Creates and starts a worker pool.
 * @param numWorkers The number of workers. Zero picks DefaultWorkerCount.
 * @return The running pool or ErrNoWorkers when numWorkers is negative.
 */
func NewWorkerPool(numWorkers int) (*WorkerPool, error) {
	if numWorkers < 0 {
		return nil, ErrNoWorkers
	}
	if numWorkers == 0 {
		numWorkers = DefaultWorkerCount()
	}

	p := &WorkerPool{
		workers: make([]*worker, numWorkers),
		quit:    make(chan struct{}),
	}
	capacity := math.Max(512/numWorkers, 16)
	for i := range p.workers {
		p.workers[i] = &worker{
			id:    i,
			queue: containers.NewRingQueue[task](capacity),
			wake:  make(chan struct{}, 1),
		}
	}

	p.start()

	core.LogDebug("worker pool started with %d workers", numWorkers)
	return p, nil
}

func (p *WorkerPool) start() {
	for _, w := range p.workers {
		p.wg.Add(1)
		go p.loop(w)
	}
}

func (p *WorkerPool) loop(w *worker) {
	defer p.wg.Done()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	idle := 0
	for {
		if t, ok := w.pop(); ok {
			p.execute(w.id, t)
			idle = 0
			continue
		}
		if idle < idleSpin {
			idle++
			runtime.Gosched()
			continue
		}
		idle = 0
		select {
		case <-w.wake:
		case <-p.quit:
			// nothing can be enqueued once quit is closed
			for t, ok := w.pop(); ok; t, ok = w.pop() {
				p.execute(w.id, t)
			}
			return
		}
	}
}

func (p *WorkerPool) execute(worker int, t task) {
	if t.batch == nil {
		p.runTask(worker, t.run)
		return
	}
	for item := t.begin; item < t.end; item++ {
		p.runItem(worker, t.batch, item)
	}
}

func (p *WorkerPool) runTask(worker int, run Task) {
	defer p.recover(worker)
	run(worker)
}

func (p *WorkerPool) runItem(worker int, batch Batchable, item int) {
	defer p.recover(worker)
	batch(worker, item)
}

func (p *WorkerPool) recover(worker int) {
	if r := recover(); r != nil {
		core.LogError("worker %d: task panicked: %v", worker, r)
	}
}

// Workers returns the number of workers in the pool.
func (p *WorkerPool) Workers() int {
	return len(p.workers)
}

func (p *WorkerPool) enter() bool {
	p.pending.Add(1)
	if p.closed.Load() {
		p.pending.Add(-1)
		return false
	}
	return true
}

func (p *WorkerPool) leave() {
	p.pending.Add(-1)
}

func (p *WorkerPool) enqueue(idx int, t task) {
	w := p.workers[idx]
	w.push(t)
	w.signal()
}

/**
 * @brief Submits the provided task to the next worker in round-robin order.
 * Tasks on the same worker run in submission order.
 * @return ErrPoolClosed after Shutdown, nil otherwise.
 */
func (p *WorkerPool) Submit(run Task) error {
	if !p.enter() {
		return core.ErrPoolClosed
	}
	defer p.leave()

	idx := int((p.next.Add(1) - 1) % uint64(len(p.workers)))
	p.enqueue(idx, task{run: run})
	return nil
}

/**
 * @brief Splits batch into batchSize items and spreads them across the workers.
 * With batchSize <= Workers() worker i runs item i. Otherwise every worker runs
 * its contiguous slice as computed by Partition.
 * @return ErrPoolClosed after Shutdown, nil otherwise.
 */
func (p *WorkerPool) SubmitBatch(batch Batchable, batchSize int) error {
	if !p.enter() {
		return core.ErrPoolClosed
	}
	defer p.leave()

	workers := len(p.workers)
	if batchSize <= workers {
		for i := 0; i < batchSize; i++ {
			p.enqueue(i, task{batch: batch, begin: i, end: i + 1})
		}
		return nil
	}
	for i := 0; i < workers; i++ {
		offset, size := Partition(batchSize, workers, i)
		if size == 0 {
			continue
		}
		p.enqueue(i, task{batch: batch, begin: offset, end: offset + size})
	}
	return nil
}

/**
 * @brief Shuts the pool down. Queued tasks still run; Shutdown returns once
 * every worker has exited. Calling it again is a no-op.
 */
func (p *WorkerPool) Shutdown() error {
	p.once.Do(func() {
		p.closed.Store(true)
		for p.pending.Load() != 0 {
			runtime.Gosched()
		}
		close(p.quit)
		p.wg.Wait()
		core.LogDebug("worker pool shut down")
	})
	return nil
}

// Partition returns the contiguous slice of [0, total) owned by part idx out
// of parts. Slices differ in size by at most one, larger ones first.
func Partition(total, parts, idx int) (offset, size int) {
	return math.Share(total, parts, idx)
}
