package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/spaghettifunk/phusis/engine/core"
	"github.com/spaghettifunk/phusis/engine/renderer"
	"github.com/spaghettifunk/phusis/engine/renderer/metadata"
	"github.com/spaghettifunk/phusis/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Engine released everything it owned
	EngineStageShutdown
)

// Step names a phase of bringing the engine up. Each one maps to its own
// process exit code.
type Step uint8

const (
	StepConfig Step = iota + 1
	StepPool
	StepBackend
	StepStart
	StepDistribute
	StepRun
)

func (s Step) String() string {
	switch s {
	case StepConfig:
		return "config"
	case StepPool:
		return "worker pool"
	case StepBackend:
		return "backend"
	case StepStart:
		return "start"
	case StepDistribute:
		return "distribute"
	case StepRun:
		return "run"
	}
	return fmt.Sprintf("Step(%d)", uint8(s))
}

func (s Step) ExitCode() int {
	return int(s)
}

type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %s", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// ExitCode returns the exit code of the step err failed in, or fallback when
// err carries no step.
func ExitCode(err error, fallback int) int {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Step.ExitCode()
	}
	return fallback
}

// frames between two timing reports
const reportEvery = 300

type Engine struct {
	currentStage Stage
	sessionID    core.Identifier
	config       *Config
	configPath   string
	gameInstance *Game
	frames       []*metadata.FrameResource
	pool         *systems.WorkerPool
	machine      *renderer.FrameStateMachine
	clock        *core.Clock
	strategy     atomic.Int32
	frameNumber  uint64
}

/**
 * @brief Creates the worker pool and the frame state machine. Nothing is
 * allocated on the backend until Initialize.
 * @param frames The frames rendered in turn. Each fence must start signaled.
 */
func New(cfg *Config, g *Game, backend renderer.Backend, renderContext metadata.RenderContext, frames []*metadata.FrameResource) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &StepError{Step: StepConfig, Err: err}
	}
	if len(frames) == 0 {
		return nil, &StepError{Step: StepBackend, Err: errors.New("no frame resources")}
	}

	pool, err := systems.NewWorkerPool(cfg.Jobs.Workers)
	if err != nil {
		core.LogError(err.Error())
		return nil, &StepError{Step: StepPool, Err: err}
	}

	machine := renderer.NewFrameStateMachine(backend, pool, renderContext,
		renderer.WithFenceTimeout(cfg.FenceTimeout()),
		renderer.WithClearColor(cfg.ClearColor()),
	)

	e := &Engine{
		currentStage: EngineStageUninitialized,
		sessionID:    core.IdentifierAquireNewID(),
		config:       cfg,
		gameInstance: g,
		frames:       frames,
		pool:         pool,
		machine:      machine,
		clock:        core.NewClock(),
	}
	e.strategy.Store(int32(cfg.Renderer.Strategy))
	return e, nil
}

// WatchConfig makes Run reload path whenever it changes. Only the log level
// and the distribution strategy are applied while running.
func (e *Engine) WatchConfig(path string) {
	e.configPath = path
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing
	core.SetLogLevel(e.config.Log.Level)

	if err := e.machine.Start(); err != nil {
		return &StepError{Step: StepStart, Err: err}
	}

	if fn := e.gameInstance.FnInitialize; fn != nil {
		if err := fn(); err != nil {
			core.LogError("failed to initialize the game: %s", err)
			return &StepError{Step: StepStart, Err: err}
		}
	}

	if err := e.syncPopulation(e.config.Application.Objects); err != nil {
		return &StepError{Step: StepDistribute, Err: err}
	}

	e.currentStage = EngineStageInitialized
	core.LogInfo("engine %s initialized: %d workers, %d command buffers (%s)",
		e.sessionID, e.pool.Workers(), e.machine.KnownTarget(), e.Strategy())
	return nil
}

/**
 * @brief Renders frames until ctx is cancelled or the configured number of
 * frames is reached. When a config path is watched, the watcher runs next to
 * the frame loop and stops with it.
 */
func (e *Engine) Run(ctx context.Context) error {
	if e.currentStage != EngineStageInitialized {
		return &StepError{Step: StepRun, Err: core.ErrNotStarted}
	}
	e.currentStage = EngineStageRunning
	e.clock.Reset()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	if e.configPath != "" {
		g.Go(func() error {
			return e.watch(ctx)
		})
	}
	g.Go(func() error {
		defer cancel()
		return e.loop(ctx)
	})
	err := g.Wait()

	e.currentStage = EngineStageInitialized
	m := e.machine.Metrics()
	core.LogInfo("engine %s rendered %d frames, %.2f ms average frame time", e.sessionID, m.Frames(), m.FrameTime())
	return err
}

func (e *Engine) loop(ctx context.Context) error {
	limit := e.config.Application.Frames
	for n := 0; limit == 0 || n < limit; n++ {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if err := e.frame(n); err != nil {
			return &StepError{Step: StepRun, Err: err}
		}
	}
	return nil
}

func (e *Engine) frame(n int) error {
	delta := e.clock.Tick()

	if fn := e.gameInstance.FnUpdate; fn != nil {
		if err := fn(delta); err != nil {
			return fmt.Errorf("game update: %w", err)
		}
	}

	bound := &metadata.FrameBoundData{
		Width:  e.config.Application.Width,
		Height: e.config.Application.Height,
	}
	if fn := e.gameInstance.FnRender; fn != nil {
		if err := fn(bound, delta); err != nil {
			return fmt.Errorf("game render: %w", err)
		}
	}

	// the frame is still recorded with the capacities we have
	if err := e.syncPopulation(len(bound.Objects)); err != nil {
		core.LogError("failed to resize command buffers for %d objects: %s", len(bound.Objects), err)
	}

	if err := e.machine.Update(bound, e.frames[n%len(e.frames)]); err != nil {
		return err
	}
	if stats := e.machine.LastFrameStats(); stats.Failed > 0 {
		core.LogWarn("frame %d: %d of %d objects not drawn: %s", e.frameNumber, stats.Failed, len(bound.Objects), stats.Err)
	}

	e.frameNumber++
	if e.frameNumber%reportEvery == 0 {
		m := e.machine.Metrics()
		core.LogDebug("frame %d: %.0f fps, %.2f ms", e.frameNumber, m.FPS(), m.FrameTime())
	}
	return nil
}

/**
 * @brief Resizes the thread slots to hold one command buffer per scene
 * object. Object i of a slice records into buffer i of the slot, so every
 * slot needs at least as many buffers as its slice has objects.
 *
 * Growing with the optimal strategy hands the new buffers out one at a time
 * to the smallest slot, which keeps the capacities equal to the slice sizes.
 * The targets are worked out first and every slot is resized once.
 * Shrinking always goes through the uniform strategy: taking buffers from
 * the largest slot would leave the first slices short.
 */
func (e *Engine) syncPopulation(population int) error {
	delta := population - e.machine.KnownTarget()
	switch {
	case delta == 0:
		return nil
	case delta < 0:
		return e.machine.DistributeBuffers(delta, metadata.DistributionUniform)
	}

	strategy := e.Strategy()
	if strategy != metadata.DistributionOptimal {
		return e.machine.DistributeBuffers(delta, strategy)
	}
	return e.machine.ResizeSlots(growSmallest(e.machine.Capacities(), delta))
}

// growSmallest adds n buffers one by one to the smallest entry of
// capacities, the lowest index winning ties.
func growSmallest(capacities []int, n int) []int {
	for ; n > 0; n-- {
		smallest := 0
		for i, c := range capacities {
			if c < capacities[smallest] {
				smallest = i
			}
		}
		capacities[smallest]++
	}
	return capacities
}

func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShutdown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown

	var errs []error
	if err := e.machine.Stop(); err != nil {
		errs = append(errs, err)
	}
	if err := e.pool.Shutdown(); err != nil {
		errs = append(errs, err)
	}
	if fn := e.gameInstance.FnShutdown; fn != nil {
		if err := fn(); err != nil {
			errs = append(errs, fmt.Errorf("game shutdown: %w", err))
		}
	}

	e.currentStage = EngineStageShutdown
	core.LogInfo("engine %s shut down", e.sessionID)
	return errors.Join(errs...)
}

func (e *Engine) Strategy() metadata.DistributionStrategy {
	return metadata.DistributionStrategy(e.strategy.Load())
}

// SetStrategy changes the strategy used by the next population change.
func (e *Engine) SetStrategy(strategy metadata.DistributionStrategy) {
	e.strategy.Store(int32(strategy))
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

func (e *Engine) SessionID() core.Identifier {
	return e.sessionID
}

func (e *Engine) Renderer() *renderer.FrameStateMachine {
	return e.machine
}

func (e *Engine) Frames() uint64 {
	return e.frameNumber
}
