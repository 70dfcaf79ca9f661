package vulkan

import (
	"fmt"
	"sync"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/phusis/engine/renderer"
	"github.com/spaghettifunk/phusis/engine/renderer/metadata"
)

// VulkanCommandPool owns the command buffers allocated from it, so Reset can
// free them all.
type VulkanCommandPool struct {
	Handle  vk.CommandPool
	context *VulkanContext

	mu      sync.Mutex
	buffers []vk.CommandBuffer
}

var _ renderer.CommandPool = (*VulkanCommandPool)(nil)

func NewVulkanCommandPool(context *VulkanContext, queueFamily uint32) (*VulkanCommandPool, error) {
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: queueFamily,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var handle vk.CommandPool
	if err := resultError("vkCreateCommandPool", vk.CreateCommandPool(
		context.Device.LogicalDevice,
		&poolCreateInfo,
		context.Allocator,
		&handle)); err != nil {
		return nil, err
	}
	return &VulkanCommandPool{Handle: handle, context: context}, nil
}

func (p *VulkanCommandPool) Allocate(level metadata.CommandBufferLevel, count int) ([]renderer.CommandBuffer, error) {
	if count <= 0 {
		return nil, fmt.Errorf("invalid command buffer count %d", count)
	}

	vkLevel := vk.CommandBufferLevelPrimary
	if level == metadata.COMMAND_BUFFER_LEVEL_SECONDARY {
		vkLevel = vk.CommandBufferLevelSecondary
	}
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        p.Handle,
		CommandBufferCount: uint32(count),
		Level:              vkLevel,
	}

	handles := make([]vk.CommandBuffer, count)
	if err := resultError("vkAllocateCommandBuffers", vk.AllocateCommandBuffers(p.context.Device.LogicalDevice, &allocateInfo, handles)); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.buffers = append(p.buffers, handles...)
	p.mu.Unlock()

	out := make([]renderer.CommandBuffer, count)
	for i, h := range handles {
		out[i] = &VulkanCommandBuffer{Handle: h, Level: level, State: COMMAND_BUFFER_STATE_READY}
	}
	return out, nil
}

// Reset frees every buffer of the pool and returns its memory.
func (p *VulkanCommandPool) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.buffers) > 0 {
		vk.FreeCommandBuffers(p.context.Device.LogicalDevice, p.Handle, uint32(len(p.buffers)), p.buffers)
		p.buffers = nil
	}
	flags := vk.CommandPoolResetFlags(vk.CommandPoolResetReleaseResourcesBit)
	return resultError("vkResetCommandPool", vk.ResetCommandPool(p.context.Device.LogicalDevice, p.Handle, flags))
}

func (p *VulkanCommandPool) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Handle == nil {
		return
	}
	vk.DestroyCommandPool(p.context.Device.LogicalDevice, p.Handle, p.context.Allocator)
	p.Handle = nil
	p.buffers = nil
}
