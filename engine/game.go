package engine

import (
	"time"

	"github.com/spaghettifunk/phusis/engine/renderer/metadata"
)

type Game struct {
	ApplicationConfig *ApplicationConfig
	State             interface{}
	FnInitialize      Initialize
	FnUpdate          Update
	FnRender          Render
	FnShutdown        Shutdown
}

type Initialize func() error
type Update func(delta time.Duration) error

// Render fills the frame's camera and scene objects. Width and Height are
// already set.
type Render func(bound *metadata.FrameBoundData, delta time.Duration) error
type Shutdown func() error
