package engine_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/phusis/engine"
	"github.com/spaghettifunk/phusis/engine/core"
	"github.com/spaghettifunk/phusis/engine/math"
	"github.com/spaghettifunk/phusis/engine/renderer/headless"
	"github.com/spaghettifunk/phusis/engine/renderer/metadata"
	"github.com/spaghettifunk/phusis/engine/systems"
)

var testContext = metadata.RenderContext{
	RenderPass:     "render-pass",
	Pipeline:       "pipeline",
	PipelineLayout: "layout",
}

func testConfig(workers, objects, frames int) *engine.Config {
	cfg := engine.DefaultConfig()
	cfg.Jobs.Workers = workers
	cfg.Application.Objects = objects
	cfg.Application.Frames = frames
	cfg.Log.Level = core.LogLevelError
	return cfg
}

func testFrames(n int) []*metadata.FrameResource {
	frames := make([]*metadata.FrameResource, n)
	for i := range frames {
		frames[i] = &metadata.FrameResource{Framebuffer: i, Fence: headless.NewFence(true)}
	}
	return frames
}

// populationGame renders populations[n] objects on frame n and keeps the
// last population afterwards.
func populationGame(populations ...int) *engine.Game {
	mesh := &metadata.Mesh{
		Vertices: []metadata.Buffer{{Handle: "vertices", Count: 8}},
		Indices:  []metadata.Buffer{{Handle: "indices", Count: 36}},
	}
	frame := 0
	return &engine.Game{
		FnRender: func(bound *metadata.FrameBoundData, delta time.Duration) error {
			n := populations[math.Min(frame, len(populations)-1)]
			frame++
			bound.View = math.NewMat4Identity()
			bound.Projection = math.NewMat4Identity()
			for i := 0; i < n; i++ {
				bound.Objects = append(bound.Objects, &metadata.SceneObject{
					ID:       core.IdentifierAquireNewID(),
					Enabled:  true,
					Rotation: math.NewMat4Identity(),
					Color:    math.NewVec4(1, 1, 1, 1),
					Mesh:     mesh,
				})
			}
			return nil
		},
	}
}

func newEngine(t *testing.T, cfg *engine.Config, g *engine.Game, backend *headless.Backend) *engine.Engine {
	t.Helper()
	e, err := engine.New(cfg, g, backend, testContext, testFrames(2))
	require.NoError(t, err)
	t.Cleanup(func() { e.Shutdown() })
	return e
}

func partition(total, parts int) []int {
	sizes := make([]int, parts)
	for i := range sizes {
		_, sizes[i] = systems.Partition(total, parts, i)
	}
	return sizes
}

func TestNewRejectsBadSetup(t *testing.T) {
	cfg := testConfig(2, 0, 1)
	cfg.Application.Width = 0
	_, err := engine.New(cfg, &engine.Game{}, headless.New(), testContext, testFrames(1))
	assert.Equal(t, int(engine.StepConfig), engine.ExitCode(err, -1))

	_, err = engine.New(testConfig(2, 0, 1), &engine.Game{}, headless.New(), testContext, nil)
	assert.Equal(t, int(engine.StepBackend), engine.ExitCode(err, -1))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 7, engine.ExitCode(errors.New("plain"), 7))
	wrapped := &engine.StepError{Step: engine.StepDistribute, Err: core.ErrInvalidDelta}
	assert.Equal(t, 5, engine.ExitCode(wrapped, 7))
	assert.ErrorIs(t, wrapped, core.ErrInvalidDelta)
	assert.Equal(t, "distribute: buffer distribution delta out of range", wrapped.Error())
}

func TestInitializeDistributesInitialPopulation(t *testing.T) {
	for _, strategy := range []metadata.DistributionStrategy{metadata.DistributionOptimal, metadata.DistributionUniform} {
		t.Run(strategy.String(), func(t *testing.T) {
			cfg := testConfig(4, 10, 1)
			cfg.Renderer.Strategy = strategy
			e := newEngine(t, cfg, &engine.Game{}, headless.New())

			require.NoError(t, e.Initialize())
			assert.Equal(t, engine.EngineStageInitialized, e.Stage())
			assert.Equal(t, []int{3, 3, 2, 2}, e.Renderer().Capacities())
			assert.Equal(t, 10, e.Renderer().KnownTarget())
		})
	}
}

func TestInitializeResizesEverySlotOnce(t *testing.T) {
	backend := headless.New()
	e := newEngine(t, testConfig(4, 256, 1), &engine.Game{}, backend)

	require.NoError(t, e.Initialize())
	assert.Equal(t, partition(256, 4), e.Renderer().Capacities())
	for i := 0; i < 4; i++ {
		assert.Equal(t, 1, backend.Pool(i).Resets(), "slot %d", i)
		assert.Equal(t, 1, backend.Pool(i).Allocations(), "slot %d", i)
	}
}

func TestOptimalGrowthKeepsSliceSizes(t *testing.T) {
	backend := headless.New()
	e := newEngine(t, testConfig(3, 4, 2), populationGame(4, 14), backend)
	require.NoError(t, e.Initialize())
	assert.Equal(t, []int{2, 1, 1}, e.Renderer().Capacities())

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, partition(14, 3), e.Renderer().Capacities())
	assert.Equal(t, 0, e.Renderer().LastFrameStats().Failed)
	// slot 0 grew from 2 to 5, the others from 1 to 5 and 4
	for i := 0; i < 3; i++ {
		assert.Equal(t, 2, backend.Pool(i).Allocations(), "slot %d", i)
	}
}

func TestInitializeStartFailure(t *testing.T) {
	backend := headless.New()
	backend.FailPoolCreation(1, errors.New("out of device memory"))
	e := newEngine(t, testConfig(2, 0, 1), &engine.Game{}, backend)

	err := e.Initialize()
	assert.Equal(t, int(engine.StepStart), engine.ExitCode(err, -1))
}

func TestInitializeGameFailure(t *testing.T) {
	g := &engine.Game{FnInitialize: func() error { return errors.New("no scene") }}
	e := newEngine(t, testConfig(2, 0, 1), g, headless.New())

	err := e.Initialize()
	assert.Equal(t, int(engine.StepStart), engine.ExitCode(err, -1))
}

func TestRunBeforeInitialize(t *testing.T) {
	e := newEngine(t, testConfig(2, 0, 1), &engine.Game{}, headless.New())
	err := e.Run(context.Background())
	assert.Equal(t, int(engine.StepRun), engine.ExitCode(err, -1))
	assert.ErrorIs(t, err, core.ErrNotStarted)
}

func TestRunRendersFrameBudget(t *testing.T) {
	backend := headless.New()
	e := newEngine(t, testConfig(3, 20, 5), populationGame(20), backend)
	require.NoError(t, e.Initialize())

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, uint64(5), e.Frames())
	assert.Equal(t, 5, backend.Submitted())
	for _, s := range backend.Submissions() {
		assert.Equal(t, 20, s.Draws())
	}
	assert.Equal(t, 0, e.Renderer().LastFrameStats().Failed)
}

func TestRunFollowsPopulation(t *testing.T) {
	populations := []int{10, 17, 17, 6, 11}
	for _, strategy := range []metadata.DistributionStrategy{metadata.DistributionOptimal, metadata.DistributionUniform} {
		t.Run(strategy.String(), func(t *testing.T) {
			cfg := testConfig(4, 10, len(populations))
			cfg.Renderer.Strategy = strategy
			backend := headless.New()
			e := newEngine(t, cfg, populationGame(populations...), backend)
			require.NoError(t, e.Initialize())

			require.NoError(t, e.Run(context.Background()))
			submissions := backend.Submissions()
			require.Len(t, submissions, len(populations))
			for i, s := range submissions {
				assert.Equal(t, populations[i], s.Draws(), "frame %d", i)
			}
			assert.Equal(t, partition(11, 4), e.Renderer().Capacities())
		})
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	e := newEngine(t, testConfig(2, 4, 0), populationGame(4), headless.New())
	require.NoError(t, e.Initialize())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	require.Eventually(t, func() bool { return e.Renderer().Metrics().Frames() > 3 }, 5*time.Second, time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestRunStopsOnGameError(t *testing.T) {
	g := &engine.Game{FnUpdate: func(delta time.Duration) error { return errors.New("scripting error") }}
	e := newEngine(t, testConfig(2, 0, 0), g, headless.New())
	require.NoError(t, e.Initialize())

	err := e.Run(context.Background())
	assert.Equal(t, int(engine.StepRun), engine.ExitCode(err, -1))
}

func TestRunReloadsConfig(t *testing.T) {
	if testing.Short() {
		t.Skip("waits on file system notifications")
	}
	path := filepath.Join(t.TempDir(), "phusis.toml")
	require.NoError(t, os.WriteFile(path, []byte("[renderer]\nstrategy = \"optimal\"\n"), 0o644))

	e := newEngine(t, testConfig(2, 4, 0), populationGame(4), headless.New())
	e.WatchConfig(path)
	require.NoError(t, e.Initialize())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	// rewritten until the watcher is up and picks it
	assert.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("[renderer]\nstrategy = \"uniform\"\n\n[log]\nlevel = \"error\"\n"), 0o644)
		return e.Strategy() == metadata.DistributionUniform
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestShutdown(t *testing.T) {
	backend := headless.New()
	shutdowns := 0
	g := &engine.Game{FnShutdown: func() error { shutdowns++; return nil }}
	e := newEngine(t, testConfig(2, 4, 1), g, backend)
	require.NoError(t, e.Initialize())

	require.NoError(t, e.Shutdown())
	require.NoError(t, e.Shutdown())
	assert.Equal(t, engine.EngineStageShutdown, e.Stage())
	assert.Equal(t, backend.PoolsCreated(), backend.PoolsDestroyed())
	assert.Equal(t, 1, shutdowns)
}
