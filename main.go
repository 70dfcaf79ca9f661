/*
Runs the testbed scene on the headless backend, or probes a Vulkan device
with -probe-vulkan. Each failing setup step exits with its own code.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/automaxprocs/maxprocs"

	"github.com/spaghettifunk/phusis/engine"
	"github.com/spaghettifunk/phusis/engine/core"
	"github.com/spaghettifunk/phusis/engine/renderer/headless"
	"github.com/spaghettifunk/phusis/engine/renderer/metadata"
	"github.com/spaghettifunk/phusis/testbed"
)

// frames recorded ahead of the device
const framesInFlight = 2

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to a TOML config file, watched for changes")
	probe := flag.Bool("probe-vulkan", false, "allocate the configured command buffers on a Vulkan device and exit")
	seed := flag.Uint64("seed", uint64(time.Now().UnixNano()), "testbed random seed")
	flag.Parse()

	undo, err := maxprocs.Set(maxprocs.Logger(core.LogDebug))
	defer undo()
	if err != nil {
		core.LogWarn("failed to set GOMAXPROCS: %s", err)
	}

	cfg := engine.DefaultConfig()
	if *configPath != "" {
		if cfg, err = engine.LoadConfig(*configPath); err != nil {
			core.LogError(err.Error())
			return engine.StepConfig.ExitCode()
		}
	}
	core.SetLogLevel(cfg.Log.Level)

	if *probe {
		return probeVulkan(cfg)
	}

	backend := headless.New(headless.WithLatency(cfg.Latency()), headless.WithHistory(1))
	renderContext := metadata.RenderContext{
		RenderPass:     "headless.renderpass",
		Pipeline:       "headless.pipeline",
		PipelineLayout: "headless.layout",
	}
	frames := make([]*metadata.FrameResource, framesInFlight)
	for i := range frames {
		frames[i] = &metadata.FrameResource{
			Framebuffer: fmt.Sprintf("headless.framebuffer.%d", i),
			Fence:       headless.NewFence(true),
		}
	}

	tb := testbed.NewTestGame(&cfg.Application, *seed)
	e, err := engine.New(cfg, tb.Game, backend, renderContext, frames)
	if err != nil {
		core.LogError(err.Error())
		return engine.ExitCode(err, engine.StepPool.ExitCode())
	}
	defer func() {
		if err := e.Shutdown(); err != nil {
			core.LogError(err.Error())
		}
	}()

	if *configPath != "" {
		e.WatchConfig(*configPath)
	}
	if err := e.Initialize(); err != nil {
		core.LogError(err.Error())
		return engine.ExitCode(err, engine.StepStart.ExitCode())
	}

	// capture sigterm and other system calls here
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	if err := e.Run(ctx); err != nil {
		core.LogError(err.Error())
		return engine.ExitCode(err, engine.StepRun.ExitCode())
	}
	return 0
}
