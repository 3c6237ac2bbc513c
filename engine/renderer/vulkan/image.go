package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/cubeworks/prism/engine/core"
)

type VulkanImage struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView
	Width  uint32
	Height uint32
}

// ImageCreate makes a 2D image with a dedicated allocation and, when
// aspect is non-zero, a matching view.
func ImageCreate(
	context *VulkanContext,
	width uint32,
	height uint32,
	format vk.Format,
	tiling vk.ImageTiling,
	usage vk.ImageUsageFlags,
	memoryFlags vk.MemoryPropertyFlags,
	aspect vk.ImageAspectFlags) (*VulkanImage, error) {

	image := &VulkanImage{
		Width:  width,
		Height: height,
	}

	imageCreateInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent: vk.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        format,
		Tiling:        tiling,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         usage,
		Samples:       vk.SampleCount1Bit,
		SharingMode:   vk.SharingModeExclusive,
	}

	var handle vk.Image
	if res := vk.CreateImage(context.Device.LogicalDevice, &imageCreateInfo, context.Allocator, &handle); res != vk.Success {
		err := resultErr("vkCreateImage", res)
		core.LogError(err.Error())
		return nil, err
	}
	image.Handle = handle

	var memoryRequirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(context.Device.LogicalDevice, image.Handle, &memoryRequirements)
	memoryRequirements.Deref()

	memoryType := context.FindMemoryIndex(memoryRequirements.MemoryTypeBits, uint32(memoryFlags))
	if memoryType == -1 {
		image.ImageDestroy(context)
		err := resultErr("vkGetImageMemoryRequirements", vk.ErrorFormatNotSupported)
		core.LogError("Required memory type not found. Image not valid.")
		return nil, err
	}

	memoryAllocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memoryRequirements.Size,
		MemoryTypeIndex: uint32(memoryType),
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(context.Device.LogicalDevice, &memoryAllocateInfo, context.Allocator, &memory); res != vk.Success {
		image.ImageDestroy(context)
		err := resultErr("vkAllocateMemory", res)
		core.LogError(err.Error())
		return nil, err
	}
	image.Memory = memory

	if res := vk.BindImageMemory(context.Device.LogicalDevice, image.Handle, image.Memory, 0); res != vk.Success {
		image.ImageDestroy(context)
		err := resultErr("vkBindImageMemory", res)
		core.LogError(err.Error())
		return nil, err
	}

	if aspect != 0 {
		if err := image.viewCreate(context, format, aspect); err != nil {
			image.ImageDestroy(context)
			return nil, err
		}
	}

	return image, nil
}

func (vi *VulkanImage) viewCreate(context *VulkanContext, format vk.Format, aspect vk.ImageAspectFlags) error {
	viewCreateInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    vi.Handle,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}

	var view vk.ImageView
	if res := vk.CreateImageView(context.Device.LogicalDevice, &viewCreateInfo, context.Allocator, &view); res != vk.Success {
		err := resultErr("vkCreateImageView", res)
		core.LogError(err.Error())
		return err
	}
	vi.View = view
	return nil
}

func (vi *VulkanImage) ImageDestroy(context *VulkanContext) {
	if vi.View != vk.NullImageView {
		vk.DestroyImageView(context.Device.LogicalDevice, vi.View, context.Allocator)
		vi.View = vk.NullImageView
	}
	if vi.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(context.Device.LogicalDevice, vi.Memory, context.Allocator)
		vi.Memory = vk.NullDeviceMemory
	}
	if vi.Handle != vk.NullImage {
		vk.DestroyImage(context.Device.LogicalDevice, vi.Handle, context.Allocator)
		vi.Handle = vk.NullImage
	}
}
