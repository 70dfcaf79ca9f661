package headless

import (
	"fmt"

	"github.com/spaghettifunk/phusis/engine/renderer"
	"github.com/spaghettifunk/phusis/engine/renderer/metadata"
)

type Op uint8

const (
	OpBeginRenderPass Op = iota
	OpEndRenderPass
	OpSetViewport
	OpSetScissor
	OpBindPipeline
	OpPushConstants
	OpBindVertexBuffers
	OpBindIndexBuffer
	OpDrawIndexed
	OpExecuteCommands
)

func (o Op) String() string {
	switch o {
	case OpBeginRenderPass:
		return "begin-render-pass"
	case OpEndRenderPass:
		return "end-render-pass"
	case OpSetViewport:
		return "set-viewport"
	case OpSetScissor:
		return "set-scissor"
	case OpBindPipeline:
		return "bind-pipeline"
	case OpPushConstants:
		return "push-constants"
	case OpBindVertexBuffers:
		return "bind-vertex-buffers"
	case OpBindIndexBuffer:
		return "bind-index-buffer"
	case OpDrawIndexed:
		return "draw-indexed"
	case OpExecuteCommands:
		return "execute-commands"
	}
	return fmt.Sprintf("Op(%d)", uint8(o))
}

// Command is one recorded call. Only the fields of its Op are set.
type Command struct {
	Op         Op
	Width      uint32
	Height     uint32
	Count      uint32
	Handle     interface{}
	Buffers    []metadata.Buffer
	Block      metadata.ConstantBlock
	RenderPass metadata.RenderPassBegin
	Executed   []*CommandBuffer
}

// CommandBuffer keeps its commands in memory. Begin starts over, as a buffer
// from a pool created with the reset flag does, but refuses a buffer that was
// never ended.
type CommandBuffer struct {
	pool        *CommandPool
	level       metadata.CommandBufferLevel
	recording   bool
	executable  bool
	inheritance metadata.Inheritance
	commands    []Command
}

func (cb *CommandBuffer) Begin(inheritance *metadata.Inheritance) error {
	if cb.level == metadata.COMMAND_BUFFER_LEVEL_SECONDARY && inheritance == nil {
		return fmt.Errorf("secondary command buffer begun without inheritance")
	}
	if cb.recording {
		return fmt.Errorf("command buffer begun while still recording")
	}
	cb.commands = cb.commands[:0]
	cb.inheritance = metadata.Inheritance{}
	if inheritance != nil {
		cb.inheritance = *inheritance
	}
	cb.recording = true
	cb.executable = false
	return nil
}

func (cb *CommandBuffer) End() error {
	if !cb.recording {
		return fmt.Errorf("command buffer is not recording")
	}
	cb.recording = false
	if hook := cb.pool.backend.endHook(); hook != nil {
		if err := hook(cb); err != nil {
			return err
		}
	}
	cb.executable = true
	return nil
}

func (cb *CommandBuffer) record(c Command) {
	if cb.recording {
		cb.commands = append(cb.commands, c)
	}
}

func (cb *CommandBuffer) BeginRenderPass(begin *metadata.RenderPassBegin) {
	cb.record(Command{Op: OpBeginRenderPass, RenderPass: *begin})
}

func (cb *CommandBuffer) EndRenderPass() {
	cb.record(Command{Op: OpEndRenderPass})
}

func (cb *CommandBuffer) SetViewport(width, height uint32) {
	cb.record(Command{Op: OpSetViewport, Width: width, Height: height})
}

func (cb *CommandBuffer) SetScissor(width, height uint32) {
	cb.record(Command{Op: OpSetScissor, Width: width, Height: height})
}

func (cb *CommandBuffer) BindPipeline(pipeline interface{}) {
	cb.record(Command{Op: OpBindPipeline, Handle: pipeline})
}

func (cb *CommandBuffer) PushConstants(layout interface{}, block *metadata.ConstantBlock) {
	cb.record(Command{Op: OpPushConstants, Handle: layout, Block: *block})
}

func (cb *CommandBuffer) BindVertexBuffers(buffers []metadata.Buffer) {
	cb.record(Command{Op: OpBindVertexBuffers, Buffers: append([]metadata.Buffer(nil), buffers...)})
}

func (cb *CommandBuffer) BindIndexBuffer(buffer metadata.Buffer) {
	cb.record(Command{Op: OpBindIndexBuffer, Buffers: []metadata.Buffer{buffer}})
}

func (cb *CommandBuffer) DrawIndexed(indexCount uint32) {
	cb.record(Command{Op: OpDrawIndexed, Count: indexCount})
}

func (cb *CommandBuffer) ExecuteCommands(buffers []renderer.CommandBuffer) {
	executed := make([]*CommandBuffer, 0, len(buffers))
	for _, b := range buffers {
		if hb, ok := b.(*CommandBuffer); ok {
			executed = append(executed, hb)
		}
	}
	cb.record(Command{Op: OpExecuteCommands, Executed: executed})
}

func (cb *CommandBuffer) Level() metadata.CommandBufferLevel {
	return cb.level
}

func (cb *CommandBuffer) Recording() bool {
	return cb.recording
}

func (cb *CommandBuffer) Inheritance() metadata.Inheritance {
	return cb.inheritance
}

// Commands returns a copy of what was recorded since the last Begin.
func (cb *CommandBuffer) Commands() []Command {
	return append([]Command(nil), cb.commands...)
}
