package main

import (
	"github.com/spaghettifunk/phusis/engine"
	"github.com/spaghettifunk/phusis/engine/core"
	"github.com/spaghettifunk/phusis/engine/renderer"
	"github.com/spaghettifunk/phusis/engine/renderer/metadata"
	"github.com/spaghettifunk/phusis/engine/renderer/vulkan"
	"github.com/spaghettifunk/phusis/engine/systems"
)

// probeVulkan brings up a device and distributes the configured command
// buffers over real pools. Nothing is recorded: render pass, pipeline and
// framebuffers belong to the application.
func probeVulkan(cfg *engine.Config) int {
	context, err := vulkan.NewContext(cfg.Application.Name)
	if err != nil {
		core.LogError("failed to create the Vulkan context: %s", err)
		return engine.StepBackend.ExitCode()
	}
	defer context.Destroy()

	// frame fences start signaled, so the first wait returns at once
	fence, err := vulkan.NewFence(context, true)
	if err != nil {
		core.LogError("failed to create a fence: %s", err)
		return engine.StepBackend.ExitCode()
	}
	defer fence.FenceDestroy(context)
	backend := vulkan.New(context)
	if err := backend.WaitForFence(fence, cfg.FenceTimeout()); err != nil {
		core.LogError("signaled fence did not complete: %s", err)
		return engine.StepBackend.ExitCode()
	}

	pool, err := systems.NewWorkerPool(cfg.Jobs.Workers)
	if err != nil {
		core.LogError(err.Error())
		return engine.StepPool.ExitCode()
	}
	defer pool.Shutdown()

	machine := renderer.NewFrameStateMachine(backend, pool,
		metadata.RenderContext{QueueFamily: uint32(context.Device.GraphicsQueueIndex)},
		renderer.WithFenceTimeout(cfg.FenceTimeout()),
	)
	if err := machine.Start(); err != nil {
		return engine.StepStart.ExitCode()
	}
	defer machine.Stop()

	if err := machine.DistributeBuffers(cfg.Application.Objects, cfg.Renderer.Strategy); err != nil {
		core.LogError("failed to distribute %d command buffers: %s", cfg.Application.Objects, err)
		return engine.StepDistribute.ExitCode()
	}
	// shrinking back exercises the pool reset path
	if err := machine.DistributeBuffers(-cfg.Application.Objects, metadata.DistributionUniform); err != nil {
		core.LogError("failed to release %d command buffers: %s", cfg.Application.Objects, err)
		return engine.StepDistribute.ExitCode()
	}

	core.LogInfo("Vulkan probe passed: %d workers, %d command buffers", pool.Workers(), cfg.Application.Objects)
	return 0
}
