package vulkan

import (
	"fmt"
	"time"

	vk "github.com/goki/vulkan"

	"github.com/cubeworks/prism/engine/core"
)

// fenceWaitTimeout bounds how long a frame slot may stay in flight. A
// frame that takes this long means the device is lost or hung, so the wait
// treats a timeout as fatal.
const fenceWaitTimeout = 10 * time.Second

// FrameSlot bundles everything one frame in flight owns: its command
// buffer, the two semaphores ordering acquire, submit and present, and the
// fence retiring the slot.
type FrameSlot struct {
	CommandBuffer           vk.CommandBuffer
	ImageAvailableSemaphore vk.Semaphore
	RenderCompleteSemaphore vk.Semaphore
	InFlightFence           vk.Fence
}

// SyncRing holds the per-slot frame resources.
type SyncRing struct {
	Slots []FrameSlot
}

func SyncRingCreate(context *VulkanContext, slotCount int) (*SyncRing, error) {
	ring := &SyncRing{Slots: make([]FrameSlot, slotCount)}

	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	// Fences start signaled so the very first wait on each slot passes.
	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
		Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit),
	}

	for i := range ring.Slots {
		slot := &ring.Slots[i]

		commandBuffer, err := CommandBufferAllocate(context)
		if err != nil {
			ring.SyncRingDestroy(context)
			return nil, err
		}
		slot.CommandBuffer = commandBuffer

		if res := vk.CreateSemaphore(context.Device.LogicalDevice, &semaphoreCreateInfo, context.Allocator, &slot.ImageAvailableSemaphore); res != vk.Success {
			ring.SyncRingDestroy(context)
			err := resultErr("vkCreateSemaphore", res)
			core.LogError(err.Error())
			return nil, err
		}
		if res := vk.CreateSemaphore(context.Device.LogicalDevice, &semaphoreCreateInfo, context.Allocator, &slot.RenderCompleteSemaphore); res != vk.Success {
			ring.SyncRingDestroy(context)
			err := resultErr("vkCreateSemaphore", res)
			core.LogError(err.Error())
			return nil, err
		}
		if res := vk.CreateFence(context.Device.LogicalDevice, &fenceCreateInfo, context.Allocator, &slot.InFlightFence); res != vk.Success {
			ring.SyncRingDestroy(context)
			err := resultErr("vkCreateFence", res)
			core.LogError(err.Error())
			return nil, err
		}
	}

	core.LogDebug("Frame synchronization ring created with %d slots.", slotCount)
	return ring, nil
}

func (sr *SyncRing) SyncRingDestroy(context *VulkanContext) {
	for i := range sr.Slots {
		slot := &sr.Slots[i]
		if slot.ImageAvailableSemaphore != vk.NullSemaphore {
			vk.DestroySemaphore(context.Device.LogicalDevice, slot.ImageAvailableSemaphore, context.Allocator)
			slot.ImageAvailableSemaphore = vk.NullSemaphore
		}
		if slot.RenderCompleteSemaphore != vk.NullSemaphore {
			vk.DestroySemaphore(context.Device.LogicalDevice, slot.RenderCompleteSemaphore, context.Allocator)
			slot.RenderCompleteSemaphore = vk.NullSemaphore
		}
		if slot.InFlightFence != vk.NullFence {
			vk.DestroyFence(context.Device.LogicalDevice, slot.InFlightFence, context.Allocator)
			slot.InFlightFence = vk.NullFence
		}
		if slot.CommandBuffer != nil {
			CommandBufferFree(context, slot.CommandBuffer)
			slot.CommandBuffer = nil
		}
	}
}

// WaitSlot blocks until the slot's previous frame has retired, then resets
// the command buffer for reuse. The fence is not reset here; a tick may
// still bail out before submitting and the fence has to stay signaled for
// the slot's next wait.
func (sr *SyncRing) WaitSlot(context *VulkanContext, slot int) error {
	s := &sr.Slots[slot]

	result := vk.WaitForFences(context.Device.LogicalDevice, 1, []vk.Fence{s.InFlightFence}, vk.True, uint64(fenceWaitTimeout.Nanoseconds()))
	switch result {
	case vk.Success:
	case vk.Timeout:
		return fmt.Errorf("frame slot %d fence wait timed out after %s, device presumed lost", slot, fenceWaitTimeout)
	default:
		return resultErr("vkWaitForFences", result)
	}

	if res := vk.ResetCommandBuffer(s.CommandBuffer, 0); res != vk.Success {
		return resultErr("vkResetCommandBuffer", res)
	}
	return nil
}

// Begin starts recording the slot's command buffer.
func (sr *SyncRing) Begin(slot int) error {
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	if res := vk.BeginCommandBuffer(sr.Slots[slot].CommandBuffer, &beginInfo); res != vk.Success {
		return resultErr("vkBeginCommandBuffer", res)
	}
	return nil
}

// Submit ends recording and hands the slot's work to the graphics queue.
// The wait on image-available happens at color attachment output so vertex
// work may start before the image is free.
func (sr *SyncRing) Submit(context *VulkanContext, slot int) error {
	s := &sr.Slots[slot]

	if res := vk.EndCommandBuffer(s.CommandBuffer); res != vk.Success {
		return resultErr("vkEndCommandBuffer", res)
	}

	if res := vk.ResetFences(context.Device.LogicalDevice, 1, []vk.Fence{s.InFlightFence}); res != vk.Success {
		return resultErr("vkResetFences", res)
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{s.ImageAvailableSemaphore},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{s.CommandBuffer},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{s.RenderCompleteSemaphore},
	}

	if res := vk.QueueSubmit(context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, s.InFlightFence); res != vk.Success {
		return resultErr("vkQueueSubmit", res)
	}
	return nil
}
