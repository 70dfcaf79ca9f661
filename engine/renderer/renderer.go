package renderer

import (
	"errors"
	"fmt"
	"time"

	"github.com/spaghettifunk/phusis/engine/core"
	"github.com/spaghettifunk/phusis/engine/math"
	"github.com/spaghettifunk/phusis/engine/renderer/metadata"
	"github.com/spaghettifunk/phusis/engine/systems"
)

const DefaultFenceTimeout = 100 * time.Millisecond

type State int32

const (
	StateIdle State = iota
	StatePoolsReady
	StateRecording
	StateSubmitted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePoolsReady:
		return "pools-ready"
	case StateRecording:
		return "recording"
	case StateSubmitted:
		return "submitted"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// FrameStats summarises the recording of the last frame.
type FrameStats struct {
	// Recorded is the number of secondary command buffers executed.
	Recorded int
	// Skipped counts disabled objects.
	Skipped int
	// Failed counts objects whose recording failed. Their draws are missing
	// from the frame.
	Failed int
	// Err is the first recording error of the lowest failing slot.
	Err error
}

type Option func(*FrameStateMachine)

// WithFenceTimeout bounds a single fence wait. Waits are retried on timeout.
func WithFenceTimeout(timeout time.Duration) Option {
	return func(m *FrameStateMachine) {
		if timeout > 0 {
			m.fenceTimeout = timeout
		}
	}
}

func WithClearColor(color math.Vec4) Option {
	return func(m *FrameStateMachine) {
		m.clearColor = color
	}
}

// FrameStateMachine records each frame in parallel, one thread slot per
// worker, and submits the merged result. It is owned by the frame loop and
// is not safe for concurrent use, except for Metrics.
type FrameStateMachine struct {
	backend      Backend
	pool         *systems.WorkerPool
	context      metadata.RenderContext
	fenceTimeout time.Duration
	clearColor   math.Vec4

	state       State
	slots       []*threadSlot
	primaryPool CommandPool
	primary     CommandBuffer
	job         *systems.RenderJob
	knownTarget int
	// fence of the last submission, until it has been waited on
	inFlight interface{}

	// per-frame inputs read by the workers while recording
	bound       *metadata.FrameBoundData
	inheritance metadata.Inheritance
	executed    []CommandBuffer

	clock   *core.Clock
	metrics *core.FrameMetrics
	stats   FrameStats
}

func NewFrameStateMachine(backend Backend, pool *systems.WorkerPool, context metadata.RenderContext, opts ...Option) *FrameStateMachine {
	m := &FrameStateMachine{
		backend:      backend,
		pool:         pool,
		context:      context,
		fenceTimeout: DefaultFenceTimeout,
		clearColor:   math.NewVec4(0, 0, 0, 1),
		clock:        core.NewClock(),
		metrics:      core.NewFrameMetrics(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

/**
 * @brief Creates one secondary command pool per worker plus the primary pool
 * and buffer. On failure everything created so far is destroyed and the
 * machine stays idle.
 */
func (m *FrameStateMachine) Start() error {
	if m.state != StateIdle {
		return core.ErrAlreadyStarted
	}

	workers := m.pool.Workers()
	slots := make([]*threadSlot, 0, workers)
	cleanup := func() {
		for _, s := range slots {
			s.pool.Destroy()
		}
	}

	for i := 0; i < workers; i++ {
		pool, err := m.backend.CreateCommandPool(m.context.QueueFamily)
		if err != nil {
			cleanup()
			core.LogError("failed to create command pool for worker %d: %s", i, err)
			return fmt.Errorf("create command pool for worker %d: %w", i, err)
		}
		slots = append(slots, &threadSlot{pool: pool})
	}

	primaryPool, err := m.backend.CreateCommandPool(m.context.QueueFamily)
	if err != nil {
		cleanup()
		core.LogError("failed to create primary command pool: %s", err)
		return fmt.Errorf("create primary command pool: %w", err)
	}
	primary, err := primaryPool.Allocate(metadata.COMMAND_BUFFER_LEVEL_PRIMARY, 1)
	if err != nil {
		primaryPool.Destroy()
		cleanup()
		core.LogError("failed to allocate primary command buffer: %s", err)
		return fmt.Errorf("allocate primary command buffer: %w", err)
	}

	m.slots = slots
	m.primaryPool = primaryPool
	m.primary = primary[0]
	m.job = systems.NewRenderJob(m.pool, m.recordSlice)
	m.knownTarget = 0
	m.clock.Reset()
	m.state = StatePoolsReady

	core.LogInfo("frame state machine started with %d thread slots", workers)
	return nil
}

// Stop waits for the frame in flight and releases every command pool.
func (m *FrameStateMachine) Stop() error {
	if m.state == StateIdle {
		return nil
	}
	m.job.Wait()
	err := m.awaitInFlight()
	if err != nil {
		core.LogError("failed to wait for the frame in flight: %s", err)
	}

	for _, s := range m.slots {
		s.pool.Destroy()
	}
	m.primaryPool.Destroy()

	m.slots = nil
	m.primaryPool = nil
	m.primary = nil
	m.executed = nil
	m.inFlight = nil
	m.knownTarget = 0
	m.state = StateIdle
	return err
}

/**
 * @brief Records and submits one frame: BeginDraw, BatchBuffer, EndDraw,
 * Submit. Objects that fail to record are left out of the frame and reported
 * through LastFrameStats; the frame is still submitted.
 * @param bound The frame's viewport, camera and scene objects.
 * @param frame The framebuffer to render into and the fence to signal.
 */
func (m *FrameStateMachine) Update(bound *metadata.FrameBoundData, frame *metadata.FrameResource) error {
	if m.state == StateIdle {
		return core.ErrNotStarted
	}
	// the thread slots are about to be re-recorded
	if err := m.awaitInFlight(); err != nil {
		m.state = StatePoolsReady
		return err
	}

	delta := m.clock.Tick()

	if err := m.beginDraw(bound, frame); err != nil {
		m.state = StatePoolsReady
		core.LogError("begin draw failed: %s", err)
		return err
	}
	if err := m.batchBuffer(); err != nil {
		m.abortDraw()
		m.state = StatePoolsReady
		core.LogError("batch recording failed: %s", err)
		return err
	}
	if err := m.endDraw(); err != nil {
		m.state = StatePoolsReady
		core.LogError("end draw failed: %s", err)
		return err
	}
	if err := m.submit(frame.Fence); err != nil {
		m.state = StatePoolsReady
		core.LogError("submit failed: %s", err)
		return err
	}
	m.state = StateSubmitted

	if delta > 0 {
		m.metrics.Update(delta)
	}
	return nil
}

// waitFence blocks until fence is signaled, retrying on timeout.
func (m *FrameStateMachine) waitFence(fence interface{}) error {
	for {
		err := m.backend.WaitForFence(fence, m.fenceTimeout)
		if err == nil {
			return nil
		}
		if !errors.Is(err, core.ErrFenceTimeout) {
			return fmt.Errorf("wait for fence: %w", err)
		}
		core.LogDebug("fence not signaled after %s, waiting again", m.fenceTimeout)
	}
}

func (m *FrameStateMachine) awaitInFlight() error {
	if m.inFlight == nil {
		return nil
	}
	if err := m.waitFence(m.inFlight); err != nil {
		return err
	}
	m.inFlight = nil
	return nil
}

func (m *FrameStateMachine) submit(fence interface{}) error {
	if err := m.waitFence(fence); err != nil {
		return err
	}
	if err := m.backend.ResetFence(fence); err != nil {
		return fmt.Errorf("reset fence: %w", err)
	}
	if err := m.backend.Submit(m.primary, fence); err != nil {
		return fmt.Errorf("submit primary command buffer: %w", err)
	}
	m.inFlight = fence
	return nil
}

func (m *FrameStateMachine) State() State {
	return m.state
}

// Capacities returns the number of secondary command buffers of each slot.
func (m *FrameStateMachine) Capacities() []int {
	capacities := make([]int, len(m.slots))
	for i, s := range m.slots {
		capacities[i] = len(s.buffers)
	}
	return capacities
}

// KnownTarget is the total number of secondary command buffers held by all
// slots.
func (m *FrameStateMachine) KnownTarget() int {
	return m.knownTarget
}

// Delta is the wall-clock time between the last two Update calls.
func (m *FrameStateMachine) Delta() time.Duration {
	return m.clock.Delta()
}

// Previous is when the last Update started.
func (m *FrameStateMachine) Previous() time.Time {
	return m.clock.Previous()
}

func (m *FrameStateMachine) Metrics() *core.FrameMetrics {
	return m.metrics
}

func (m *FrameStateMachine) LastFrameStats() FrameStats {
	return m.stats
}
