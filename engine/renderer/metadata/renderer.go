package metadata

import (
	"github.com/spaghettifunk/phusis/engine/math"
)

type CommandBufferLevel uint32

const (
	COMMAND_BUFFER_LEVEL_PRIMARY   CommandBufferLevel = 0
	COMMAND_BUFFER_LEVEL_SECONDARY CommandBufferLevel = 1
)

type SubpassContents uint32

const (
	SUBPASS_CONTENTS_INLINE                    SubpassContents = 0
	SUBPASS_CONTENTS_SECONDARY_COMMAND_BUFFERS SubpassContents = 1
)

/**
 * @brief Long-lived handles produced by device bootstrap and consumed as is
 * by the frame state machine.
 */
type RenderContext struct {
	/** @brief Queue family the command pools are created for. */
	QueueFamily    uint32
	RenderPass     interface{}
	Pipeline       interface{}
	PipelineLayout interface{}
}

/** @brief A clear value, either a colour or a depth/stencil pair. */
type ClearValue struct {
	Color   math.Vec4
	Depth   float32
	Stencil uint32
}

func ColorClear(color math.Vec4) ClearValue {
	return ClearValue{Color: color}
}

func DepthStencilClear(depth float32, stencil uint32) ClearValue {
	return ClearValue{Depth: depth, Stencil: stencil}
}

/** @brief Arguments of a render pass begin on the primary command buffer. */
type RenderPassBegin struct {
	RenderPass  interface{}
	Framebuffer interface{}
	Width       uint32
	Height      uint32
	/** @brief Colour first, then depth/stencil. */
	ClearValues [2]ClearValue
	Contents    SubpassContents
}

/** @brief What a secondary command buffer continues from the primary one. */
type Inheritance struct {
	RenderPass  interface{}
	Subpass     uint32
	Framebuffer interface{}
}

/** @brief Push constant block, laid out as the vertex shader reads it. */
type ConstantBlock struct {
	MVP   math.Mat4
	Color math.Vec4
}

func NewConstantBlock(projection, view, rotation math.Mat4, color math.Vec4) ConstantBlock {
	return ConstantBlock{
		MVP:   projection.Mul(view).Mul(rotation),
		Color: color,
	}
}
