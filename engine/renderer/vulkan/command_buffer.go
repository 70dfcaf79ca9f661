package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/phusis/engine/renderer"
	"github.com/spaghettifunk/phusis/engine/renderer/metadata"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

// mat4 followed by vec4
const pushConstantFloats = 16 + 4

type VulkanCommandBuffer struct {
	Handle vk.CommandBuffer
	Level  metadata.CommandBufferLevel
	// Command buffer state.
	State VulkanCommandBufferState
}

var _ renderer.CommandBuffer = (*VulkanCommandBuffer)(nil)

func (v *VulkanCommandBuffer) Begin(inheritance *metadata.Inheritance) error {
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}

	if v.Level == metadata.COMMAND_BUFFER_LEVEL_SECONDARY {
		if inheritance == nil {
			return fmt.Errorf("secondary command buffer begun without inheritance")
		}
		renderPass, ok := inheritance.RenderPass.(vk.RenderPass)
		if !ok {
			return fmt.Errorf("inheritance render pass is %T, not vk.RenderPass", inheritance.RenderPass)
		}
		framebuffer, _ := inheritance.Framebuffer.(vk.Framebuffer)
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageRenderPassContinueBit)
		beginInfo.PInheritanceInfo = []vk.CommandBufferInheritanceInfo{{
			SType:       vk.StructureTypeCommandBufferInheritanceInfo,
			RenderPass:  renderPass,
			Subpass:     inheritance.Subpass,
			Framebuffer: framebuffer,
		}}
	}

	if err := resultError("vkBeginCommandBuffer", vk.BeginCommandBuffer(v.Handle, &beginInfo)); err != nil {
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (v *VulkanCommandBuffer) End() error {
	if err := resultError("vkEndCommandBuffer", vk.EndCommandBuffer(v.Handle)); err != nil {
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (v *VulkanCommandBuffer) BeginRenderPass(begin *metadata.RenderPassBegin) {
	renderPass, _ := begin.RenderPass.(vk.RenderPass)
	framebuffer, _ := begin.Framebuffer.(vk.Framebuffer)

	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  renderPass,
		Framebuffer: framebuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: vk.Extent2D{Width: begin.Width, Height: begin.Height},
		},
	}

	clearValues := clearValues(begin.ClearValues)
	beginInfo.ClearValueCount = uint32(len(clearValues))
	beginInfo.PClearValues = clearValues

	contents := vk.SubpassContentsInline
	if begin.Contents == metadata.SUBPASS_CONTENTS_SECONDARY_COMMAND_BUFFERS {
		contents = vk.SubpassContentsSecondaryCommandBuffers
	}
	vk.CmdBeginRenderPass(v.Handle, &beginInfo, contents)
	v.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
}

func (v *VulkanCommandBuffer) EndRenderPass() {
	vk.CmdEndRenderPass(v.Handle)
	v.State = COMMAND_BUFFER_STATE_RECORDING
}

func (v *VulkanCommandBuffer) SetViewport(width, height uint32) {
	viewport := vk.Viewport{
		X:        0.0,
		Y:        0.0,
		Width:    float32(width),
		Height:   float32(height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}
	vk.CmdSetViewport(v.Handle, 0, 1, []vk.Viewport{viewport})
}

func (v *VulkanCommandBuffer) SetScissor(width, height uint32) {
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: vk.Extent2D{Width: width, Height: height},
	}
	vk.CmdSetScissor(v.Handle, 0, 1, []vk.Rect2D{scissor})
}

func (v *VulkanCommandBuffer) BindPipeline(pipeline interface{}) {
	if p, ok := pipeline.(vk.Pipeline); ok {
		vk.CmdBindPipeline(v.Handle, vk.PipelineBindPointGraphics, p)
	}
}

func pushConstantData(block *metadata.ConstantBlock) [pushConstantFloats]float32 {
	var data [pushConstantFloats]float32
	copy(data[:16], block.MVP.Data[:])
	data[16] = block.Color.X
	data[17] = block.Color.Y
	data[18] = block.Color.Z
	data[19] = block.Color.W
	return data
}

func (v *VulkanCommandBuffer) PushConstants(layout interface{}, block *metadata.ConstantBlock) {
	l, ok := layout.(vk.PipelineLayout)
	if !ok {
		return
	}
	// cgo wants a flat local value here
	data := pushConstantData(block)
	vk.CmdPushConstants(
		v.Handle,
		l,
		vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		0,
		uint32(unsafe.Sizeof(data)),
		unsafe.Pointer(&data[0]))
}

func (v *VulkanCommandBuffer) BindVertexBuffers(buffers []metadata.Buffer) {
	handles := make([]vk.Buffer, 0, len(buffers))
	for _, b := range buffers {
		if h, ok := b.Handle.(vk.Buffer); ok {
			handles = append(handles, h)
		}
	}
	if len(handles) == 0 {
		return
	}
	offsets := make([]vk.DeviceSize, len(handles))
	vk.CmdBindVertexBuffers(v.Handle, 0, uint32(len(handles)), handles, offsets)
}

func (v *VulkanCommandBuffer) BindIndexBuffer(buffer metadata.Buffer) {
	if h, ok := buffer.Handle.(vk.Buffer); ok {
		vk.CmdBindIndexBuffer(v.Handle, h, 0, vk.IndexTypeUint32)
	}
}

func (v *VulkanCommandBuffer) DrawIndexed(indexCount uint32) {
	vk.CmdDrawIndexed(v.Handle, indexCount, 1, 0, 0, 0)
}

func (v *VulkanCommandBuffer) ExecuteCommands(buffers []renderer.CommandBuffer) {
	handles := make([]vk.CommandBuffer, 0, len(buffers))
	for _, b := range buffers {
		if vb, ok := b.(*VulkanCommandBuffer); ok {
			handles = append(handles, vb.Handle)
		}
	}
	if len(handles) == 0 {
		return
	}
	vk.CmdExecuteCommands(v.Handle, uint32(len(handles)), handles)
}

func (v *VulkanCommandBuffer) UpdateSubmitted() {
	v.State = COMMAND_BUFFER_STATE_SUBMITTED
}
