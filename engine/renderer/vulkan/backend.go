package vulkan

import (
	"fmt"
	"sync"
	"time"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/phusis/engine/core"
	"github.com/spaghettifunk/phusis/engine/renderer"
)

// VulkanBackend submits to the graphics queue of a context. Fences handed
// to it must be *VulkanFence.
type VulkanBackend struct {
	context *VulkanContext
	// vkQueueSubmit needs external synchronisation on the queue
	queueLock sync.Mutex
}

var _ renderer.Backend = (*VulkanBackend)(nil)

func New(context *VulkanContext) *VulkanBackend {
	return &VulkanBackend{context: context}
}

func (vb *VulkanBackend) Context() *VulkanContext {
	return vb.context
}

func (vb *VulkanBackend) CreateCommandPool(queueFamily uint32) (renderer.CommandPool, error) {
	return NewVulkanCommandPool(vb.context, queueFamily)
}

func asFence(handle interface{}) (*VulkanFence, error) {
	f, ok := handle.(*VulkanFence)
	if !ok || f == nil {
		return nil, fmt.Errorf("not a vulkan fence: %T", handle)
	}
	return f, nil
}

func (vb *VulkanBackend) WaitForFence(handle interface{}, timeout time.Duration) error {
	f, err := asFence(handle)
	if err != nil {
		return err
	}
	return f.FenceWait(vb.context, timeout)
}

func (vb *VulkanBackend) ResetFence(handle interface{}) error {
	f, err := asFence(handle)
	if err != nil {
		return err
	}
	return f.FenceReset(vb.context)
}

func (vb *VulkanBackend) Submit(primary renderer.CommandBuffer, handle interface{}) error {
	f, err := asFence(handle)
	if err != nil {
		return err
	}
	cb, ok := primary.(*VulkanCommandBuffer)
	if !ok {
		return fmt.Errorf("not a vulkan command buffer: %T", primary)
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cb.Handle},
	}

	vb.queueLock.Lock()
	result := vk.QueueSubmit(vb.context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, f.Handle)
	vb.queueLock.Unlock()

	if err := resultError("vkQueueSubmit", result); err != nil {
		core.LogError(err.Error())
		return err
	}
	f.IsSignaled = false
	cb.UpdateSubmitted()
	return nil
}
