package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/cubeworks/prism/engine/core"
)

// CommandBufferAllocate takes one primary command buffer from the graphics
// pool.
func CommandBufferAllocate(context *VulkanContext) (vk.CommandBuffer, error) {
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        context.Device.GraphicsCommandPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}

	commandBuffers := make([]vk.CommandBuffer, 1)
	if res := vk.AllocateCommandBuffers(context.Device.LogicalDevice, &allocateInfo, commandBuffers); res != vk.Success {
		err := resultErr("vkAllocateCommandBuffers", res)
		core.LogError(err.Error())
		return nil, err
	}
	return commandBuffers[0], nil
}

func CommandBufferFree(context *VulkanContext, commandBuffer vk.CommandBuffer) {
	vk.FreeCommandBuffers(context.Device.LogicalDevice, context.Device.GraphicsCommandPool, 1, []vk.CommandBuffer{commandBuffer})
}

// CommandBufferBeginSingleUse starts a throwaway buffer for setup work
// like texture uploads.
func CommandBufferBeginSingleUse(context *VulkanContext) (vk.CommandBuffer, error) {
	commandBuffer, err := CommandBufferAllocate(context)
	if err != nil {
		return nil, err
	}

	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if res := vk.BeginCommandBuffer(commandBuffer, &beginInfo); res != vk.Success {
		CommandBufferFree(context, commandBuffer)
		err := resultErr("vkBeginCommandBuffer", res)
		core.LogError(err.Error())
		return nil, err
	}
	return commandBuffer, nil
}

// CommandBufferEndSingleUse submits the buffer and blocks until the queue
// drains it. Setup only, never on the frame path.
func CommandBufferEndSingleUse(context *VulkanContext, commandBuffer vk.CommandBuffer) error {
	defer CommandBufferFree(context, commandBuffer)

	if res := vk.EndCommandBuffer(commandBuffer); res != vk.Success {
		return resultErr("vkEndCommandBuffer", res)
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{commandBuffer},
	}
	if res := vk.QueueSubmit(context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, vk.NullFence); res != vk.Success {
		return resultErr("vkQueueSubmit", res)
	}
	if res := vk.QueueWaitIdle(context.Device.GraphicsQueue); res != vk.Success {
		return resultErr("vkQueueWaitIdle", res)
	}
	return nil
}
