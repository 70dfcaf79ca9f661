package metadata

import (
	"github.com/spaghettifunk/phusis/engine/core"
	"github.com/spaghettifunk/phusis/engine/math"
)

/**
 * @brief One drawable in the scene. Only Enabled is expected to change
 * between frames, and never while a frame is recording.
 */
type SceneObject struct {
	ID       core.Identifier
	Enabled  bool
	Rotation math.Mat4
	Color    math.Vec4
	Mesh     *Mesh
}

/** @brief Read-only per-frame inputs of the frame state machine. */
type FrameBoundData struct {
	/** @brief Viewport width in pixels. */
	Width uint32
	/** @brief Viewport height in pixels. */
	Height     uint32
	View       math.Mat4
	Projection math.Mat4
	Objects    []*SceneObject
}

/** @brief The target of one frame and the fence its submission signals. */
type FrameResource struct {
	Framebuffer interface{}
	Fence       interface{}
}
