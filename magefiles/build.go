//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

type Build mg.Namespace

// Builds the engine binary into bin/.
func (Build) Engine() error {
	return sh.RunV("go", "build", "-o", "bin/phusis", ".")
}

// Tidies go.mod and checks the tree with go vet.
func (Build) Tidy() error {
	if err := sh.Run("go", "mod", "tidy"); err != nil {
		return err
	}
	return sh.RunV("go", "vet", "./...")
}
