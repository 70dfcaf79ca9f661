//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

type Test mg.Namespace

// Runs every test with the race detector.
func (Test) All() error {
	return sh.RunV("go", "test", "-race", "-count=1", "./...")
}

// Runs the tests that finish quickly.
func (Test) Short() error {
	return sh.RunV("go", "test", "-short", "./...")
}
