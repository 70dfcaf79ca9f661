package renderer

import (
	"fmt"

	"github.com/spaghettifunk/phusis/engine/core"
	"github.com/spaghettifunk/phusis/engine/renderer/metadata"
	"github.com/spaghettifunk/phusis/engine/systems"
)

// threadSlot is the command pool of one worker and the secondary buffers
// allocated from it. During recording only that worker touches it.
type threadSlot struct {
	pool    CommandPool
	buffers []CommandBuffer

	// results of the current frame
	recorded []CommandBuffer
	skipped  int
	failed   int
	err      error
}

func (s *threadSlot) reset() {
	s.recorded = s.recorded[:0]
	s.skipped = 0
	s.failed = 0
	s.err = nil
}

func (s *threadSlot) fail(err error) {
	s.failed++
	if s.err == nil {
		s.err = err
	}
}

func (m *FrameStateMachine) beginDraw(bound *metadata.FrameBoundData, frame *metadata.FrameResource) error {
	if bound == nil || frame == nil {
		return fmt.Errorf("begin draw: missing frame data")
	}
	m.bound = bound
	m.inheritance = metadata.Inheritance{
		RenderPass:  m.context.RenderPass,
		Subpass:     0,
		Framebuffer: frame.Framebuffer,
	}

	if err := m.primary.Begin(nil); err != nil {
		return fmt.Errorf("begin primary command buffer: %w", err)
	}
	m.state = StateRecording

	m.primary.BeginRenderPass(&metadata.RenderPassBegin{
		RenderPass:  m.context.RenderPass,
		Framebuffer: frame.Framebuffer,
		Width:       bound.Width,
		Height:      bound.Height,
		ClearValues: [2]metadata.ClearValue{
			metadata.ColorClear(m.clearColor),
			metadata.DepthStencilClear(1.0, 0),
		},
		Contents: metadata.SUBPASS_CONTENTS_SECONDARY_COMMAND_BUFFERS,
	})
	return nil
}

// batchBuffer records every slot on its own worker and joins on all of them.
func (m *FrameStateMachine) batchBuffer() error {
	if !m.job.Dispatch(len(m.slots)) {
		if m.job.Running() {
			return core.ErrJobInFlight
		}
		return core.ErrPoolClosed
	}
	m.job.Wait()

	stats := FrameStats{}
	for i, s := range m.slots {
		stats.Recorded += len(s.recorded)
		stats.Skipped += s.skipped
		stats.Failed += s.failed
		if s.err != nil && stats.Err == nil {
			stats.Err = fmt.Errorf("thread slot %d: %w", i, s.err)
		}
	}
	m.stats = stats
	if stats.Failed > 0 {
		core.LogWarn("%d of %d objects failed to record, first error: %s", stats.Failed, len(m.bound.Objects), stats.Err)
	}
	return nil
}

// recordSlice records the objects of slot idx. Item idx of the fan-out runs
// on worker idx, so the slot is never shared.
func (m *FrameStateMachine) recordSlice(worker, idx int) {
	s := m.slots[idx]
	s.reset()

	objects := m.bound.Objects
	offset, size := systems.Partition(len(objects), len(m.slots), idx)
	for j := 0; j < size; j++ {
		obj := objects[offset+j]
		if obj == nil || !obj.Enabled {
			s.skipped++
			continue
		}
		// a disabled object keeps its buffer, so the object at slice
		// position j always records into buffer j
		if j >= len(s.buffers) {
			core.LogWarn("object %s: slot %d holds %d buffers, needs %d", obj.ID, idx, len(s.buffers), j+1)
			s.fail(fmt.Errorf("object %s: %w", obj.ID, core.ErrInsufficientBuffers))
			continue
		}
		cb := s.buffers[j]
		if err := m.recordObject(cb, obj); err != nil {
			core.LogWarn("object %s: recording on worker %d into slot %d buffer %d failed: %s", obj.ID, worker, idx, j, err)
			s.fail(fmt.Errorf("object %s: %w", obj.ID, err))
			continue
		}
		s.recorded = append(s.recorded, cb)
	}
}

func (m *FrameStateMachine) recordObject(cb CommandBuffer, obj *metadata.SceneObject) error {
	if err := cb.Begin(&m.inheritance); err != nil {
		return err
	}

	cb.SetViewport(m.bound.Width, m.bound.Height)
	cb.SetScissor(m.bound.Width, m.bound.Height)
	cb.BindPipeline(m.context.Pipeline)

	block := metadata.NewConstantBlock(m.bound.Projection, m.bound.View, obj.Rotation, obj.Color)
	cb.PushConstants(m.context.PipelineLayout, &block)

	if obj.Mesh != nil {
		cb.BindVertexBuffers(obj.Mesh.Vertices)
		for _, index := range obj.Mesh.Indices {
			cb.BindIndexBuffer(index)
			cb.DrawIndexed(index.Count)
		}
	}

	return cb.End()
}

// abortDraw closes the primary buffer opened by beginDraw when the frame is
// dropped before endDraw, so the next frame can begin it again.
func (m *FrameStateMachine) abortDraw() {
	m.primary.EndRenderPass()
	if err := m.primary.End(); err != nil {
		core.LogError("failed to close primary command buffer: %s", err)
	}
}

// endDraw executes the recorded buffers in slot order and closes the primary
// buffer.
func (m *FrameStateMachine) endDraw() error {
	m.executed = m.executed[:0]
	for _, s := range m.slots {
		m.executed = append(m.executed, s.recorded...)
	}
	if len(m.executed) > 0 {
		m.primary.ExecuteCommands(m.executed)
	}
	m.primary.EndRenderPass()

	if err := m.primary.End(); err != nil {
		return fmt.Errorf("end primary command buffer: %w", err)
	}
	return nil
}
