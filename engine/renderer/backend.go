package renderer

import (
	"time"

	"github.com/spaghettifunk/phusis/engine/renderer/metadata"
)

// Backend is the part of a graphics device the frame state machine drives.
// Fences are the opaque handles carried by metadata.FrameResource.
type Backend interface {
	CreateCommandPool(queueFamily uint32) (CommandPool, error)
	// WaitForFence returns an error wrapping core.ErrFenceTimeout when the
	// fence is still unsignaled after timeout.
	WaitForFence(fence interface{}, timeout time.Duration) error
	ResetFence(fence interface{}) error
	// Submit queues primary for execution and signals fence once it completes.
	Submit(primary CommandBuffer, fence interface{}) error
}

// CommandPool owns command buffers recorded by a single goroutine at a time.
type CommandPool interface {
	// Allocate returns count new command buffers of the given level.
	Allocate(level metadata.CommandBufferLevel, count int) ([]CommandBuffer, error)
	// Reset releases every buffer allocated from the pool.
	Reset() error
	Destroy()
}

// CommandBuffer records GPU commands. Only Begin and End report errors, as
// recording calls are validated when the buffer is closed.
type CommandBuffer interface {
	// Begin starts recording. Secondary buffers pass the render pass state
	// they continue, primary buffers pass nil.
	Begin(inheritance *metadata.Inheritance) error
	End() error
	BeginRenderPass(begin *metadata.RenderPassBegin)
	EndRenderPass()
	SetViewport(width, height uint32)
	SetScissor(width, height uint32)
	BindPipeline(pipeline interface{})
	PushConstants(layout interface{}, block *metadata.ConstantBlock)
	BindVertexBuffers(buffers []metadata.Buffer)
	BindIndexBuffer(buffer metadata.Buffer)
	DrawIndexed(indexCount uint32)
	ExecuteCommands(buffers []CommandBuffer)
}
