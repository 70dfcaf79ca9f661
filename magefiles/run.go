//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

type Run mg.Namespace

// Runs the testbed with phusis.toml until interrupted. Edits to the file
// change the log level and the distribution strategy on the fly.
func (Run) Engine() error {
	fmt.Println("Run engine...")
	return sh.RunV("go", "run", ".", "-config", "phusis.toml")
}

// Runs the worker pool and frame recording benchmarks.
func (Run) Bench() error {
	return sh.RunV("go", "test", "-run", "^$", "-bench", ".", "-benchmem",
		"./engine/systems/", "./engine/renderer/")
}

// Brings up a Vulkan device and allocates the configured command buffers.
func (Run) Probe() error {
	return sh.RunV("go", "run", ".", "-config", "phusis.toml", "-probe-vulkan")
}
