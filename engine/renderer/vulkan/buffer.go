package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/cubeworks/prism/engine/core"
)

// VulkanBuffer is a buffer with a dedicated allocation. Host-visible
// buffers stay persistently mapped for their whole lifetime so per-frame
// writes are a plain copy.
type VulkanBuffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   vk.DeviceSize

	mapped unsafe.Pointer
}

func BufferCreate(context *VulkanContext, size vk.DeviceSize, usage vk.BufferUsageFlags, memoryFlags vk.MemoryPropertyFlags) (*VulkanBuffer, error) {
	buffer := &VulkanBuffer{Size: size}

	bufferCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}

	var handle vk.Buffer
	if res := vk.CreateBuffer(context.Device.LogicalDevice, &bufferCreateInfo, context.Allocator, &handle); res != vk.Success {
		err := resultErr("vkCreateBuffer", res)
		core.LogError(err.Error())
		return nil, err
	}
	buffer.Handle = handle

	var memoryRequirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, buffer.Handle, &memoryRequirements)
	memoryRequirements.Deref()

	memoryType := context.FindMemoryIndex(memoryRequirements.MemoryTypeBits, uint32(memoryFlags))
	if memoryType == -1 {
		buffer.BufferDestroy(context)
		err := resultErr("vkGetBufferMemoryRequirements", vk.ErrorFormatNotSupported)
		core.LogError("Required memory type not found. Buffer not valid.")
		return nil, err
	}

	memoryAllocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memoryRequirements.Size,
		MemoryTypeIndex: uint32(memoryType),
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(context.Device.LogicalDevice, &memoryAllocateInfo, context.Allocator, &memory); res != vk.Success {
		buffer.BufferDestroy(context)
		err := resultErr("vkAllocateMemory", res)
		core.LogError(err.Error())
		return nil, err
	}
	buffer.Memory = memory

	if res := vk.BindBufferMemory(context.Device.LogicalDevice, buffer.Handle, buffer.Memory, 0); res != vk.Success {
		buffer.BufferDestroy(context)
		err := resultErr("vkBindBufferMemory", res)
		core.LogError(err.Error())
		return nil, err
	}

	if vk.MemoryPropertyFlagBits(memoryFlags)&vk.MemoryPropertyHostVisibleBit != 0 {
		if res := vk.MapMemory(context.Device.LogicalDevice, buffer.Memory, 0, size, 0, &buffer.mapped); res != vk.Success {
			buffer.BufferDestroy(context)
			err := resultErr("vkMapMemory", res)
			core.LogError(err.Error())
			return nil, err
		}
	}

	return buffer, nil
}

// Write copies data into a host-visible buffer at the given offset. The
// memory type is host coherent so no explicit flush is needed.
func (vb *VulkanBuffer) Write(offset vk.DeviceSize, data []byte) {
	if vb.mapped == nil {
		core.LogError("Write on an unmapped buffer.")
		return
	}
	dst := unsafe.Pointer(uintptr(vb.mapped) + uintptr(offset))
	vk.Memcopy(dst, data)
}

func (vb *VulkanBuffer) BufferDestroy(context *VulkanContext) {
	if vb.mapped != nil {
		vk.UnmapMemory(context.Device.LogicalDevice, vb.Memory)
		vb.mapped = nil
	}
	if vb.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(context.Device.LogicalDevice, vb.Memory, context.Allocator)
		vb.Memory = vk.NullDeviceMemory
	}
	if vb.Handle != vk.NullBuffer {
		vk.DestroyBuffer(context.Device.LogicalDevice, vb.Handle, context.Allocator)
		vb.Handle = vk.NullBuffer
	}
}
