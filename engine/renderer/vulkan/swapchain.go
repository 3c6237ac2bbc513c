package vulkan

import (
	"math"

	vk "github.com/goki/vulkan"

	"github.com/cubeworks/prism/engine/core"
	"github.com/cubeworks/prism/engine/m32"
)

type VulkanSwapchain struct {
	ImageFormat vk.SurfaceFormat
	PresentMode vk.PresentMode
	Extent      vk.Extent2D
	Handle      vk.Swapchain
	ImageCount  uint32
	Images      []vk.Image
	Views       []vk.ImageView

	// Framebuffers for the composition pass, one per swapchain image.
	Framebuffers []vk.Framebuffer
}

type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

// ChooseSurfaceFormat prefers an sRGB 8-bit BGRA surface and falls back to
// whatever the surface lists first.
func ChooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, format := range formats {
		if format.Format == vk.FormatB8g8r8a8Srgb && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format
		}
	}
	for _, format := range formats {
		if format.Format == vk.FormatB8g8r8a8Unorm && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format
		}
	}
	return formats[0]
}

// ChoosePresentMode takes mailbox when available, otherwise FIFO, which
// every conformant implementation provides. VSync forces FIFO.
func ChoosePresentMode(modes []vk.PresentMode, vsync bool) vk.PresentMode {
	if vsync {
		return vk.PresentModeFifo
	}
	for _, mode := range modes {
		if mode == vk.PresentModeMailbox {
			return mode
		}
	}
	return vk.PresentModeFifo
}

// ChooseExtent resolves the swapchain size. When the surface pins the
// extent it wins; otherwise the framebuffer size is clamped to the
// supported range.
func ChooseExtent(capabilities *vk.SurfaceCapabilities, width, height uint32) vk.Extent2D {
	if capabilities.CurrentExtent.Width != math.MaxUint32 {
		return capabilities.CurrentExtent
	}
	return vk.Extent2D{
		Width:  m32.Clamp(width, capabilities.MinImageExtent.Width, capabilities.MaxImageExtent.Width),
		Height: m32.Clamp(height, capabilities.MinImageExtent.Height, capabilities.MaxImageExtent.Height),
	}
}

// ChooseImageCount asks for one image over the minimum so acquisition does
// not stall on the driver, bounded by the surface maximum when one exists.
func ChooseImageCount(capabilities *vk.SurfaceCapabilities) uint32 {
	count := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && count > capabilities.MaxImageCount {
		count = capabilities.MaxImageCount
	}
	return count
}

func SwapchainCreate(context *VulkanContext, width, height uint32, vsync bool) (*VulkanSwapchain, error) {
	// Capabilities track the surface size, so refresh before every build.
	if err := DeviceQuerySwapchainSupport(context.Device.PhysicalDevice, context.Surface, &context.Device.SwapchainSupport); err != nil {
		return nil, err
	}
	support := &context.Device.SwapchainSupport

	swapchain := &VulkanSwapchain{
		ImageFormat: ChooseSurfaceFormat(support.Formats),
		PresentMode: ChoosePresentMode(support.PresentModes, vsync),
		Extent:      ChooseExtent(&support.Capabilities, width, height),
	}

	imageCount := ChooseImageCount(&support.Capabilities)

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      swapchain.ImageFormat.Format,
		ImageColorSpace:  swapchain.ImageFormat.ColorSpace,
		ImageExtent:      swapchain.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     support.Capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      swapchain.PresentMode,
		Clipped:          vk.True,
		OldSwapchain:     vk.NullSwapchain,
	}

	if context.Device.GraphicsQueueIndex != context.Device.PresentQueueIndex {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = []uint32{
			uint32(context.Device.GraphicsQueueIndex),
			uint32(context.Device.PresentQueueIndex),
		}
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	var swapchainHandle vk.Swapchain
	if res := vk.CreateSwapchain(context.Device.LogicalDevice, &swapchainCreateInfo, context.Allocator, &swapchainHandle); res != vk.Success {
		err := resultErr("vkCreateSwapchainKHR", res)
		core.LogError(err.Error())
		return nil, err
	}
	swapchain.Handle = swapchainHandle

	if res := vk.GetSwapchainImages(context.Device.LogicalDevice, swapchain.Handle, &swapchain.ImageCount, nil); res != vk.Success {
		err := resultErr("vkGetSwapchainImagesKHR", res)
		core.LogError(err.Error())
		return nil, err
	}
	swapchain.Images = make([]vk.Image, swapchain.ImageCount)
	swapchain.Views = make([]vk.ImageView, swapchain.ImageCount)
	if res := vk.GetSwapchainImages(context.Device.LogicalDevice, swapchain.Handle, &swapchain.ImageCount, swapchain.Images); res != vk.Success {
		err := resultErr("vkGetSwapchainImagesKHR", res)
		core.LogError(err.Error())
		return nil, err
	}

	for i := 0; i < int(swapchain.ImageCount); i++ {
		viewInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    swapchain.Images[i],
			ViewType: vk.ImageViewType2d,
			Format:   swapchain.ImageFormat.Format,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		}
		if res := vk.CreateImageView(context.Device.LogicalDevice, &viewInfo, context.Allocator, &swapchain.Views[i]); res != vk.Success {
			err := resultErr("vkCreateImageView", res)
			core.LogError(err.Error())
			return nil, err
		}
	}

	core.LogInfo("Swapchain created, %d images at %dx%d.", swapchain.ImageCount, swapchain.Extent.Width, swapchain.Extent.Height)
	return swapchain, nil
}

// AcquireNextImageIndex obtains the next presentable image. stale means
// the chain must be recreated before another acquire can succeed; the
// semaphore was not signaled in that case.
func (vs *VulkanSwapchain) AcquireNextImageIndex(context *VulkanContext, timeoutNS uint64, imageAvailableSemaphore vk.Semaphore) (imageIndex uint32, stale bool, err error) {
	result := vk.AcquireNextImage(context.Device.LogicalDevice, vs.Handle, timeoutNS, imageAvailableSemaphore, vk.NullFence, &imageIndex)
	switch {
	case result == vk.ErrorOutOfDate:
		return 0, true, nil
	case result != vk.Success && result != vk.Suboptimal:
		// Suboptimal still signaled the semaphore, so render the frame
		// and let present report the mismatch.
		return 0, false, resultErr("vkAcquireNextImageKHR", result)
	}
	return imageIndex, false, nil
}

// Present queues the image for display. stale means the chain should be
// rebuilt after this call; the image was still presented when possible.
func (vs *VulkanSwapchain) Present(context *VulkanContext, renderCompleteSemaphore vk.Semaphore, presentImageIndex uint32) (stale bool, err error) {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{renderCompleteSemaphore},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{vs.Handle},
		PImageIndices:      []uint32{presentImageIndex},
	}

	result := vk.QueuePresent(context.Device.PresentQueue, &presentInfo)
	switch {
	case result == vk.ErrorOutOfDate || result == vk.Suboptimal:
		return true, nil
	case result != vk.Success:
		return false, resultErr("vkQueuePresentKHR", result)
	}
	return false, nil
}

// SwapchainDestroy tears the chain down completely. The device must be
// idle; Recreate on the backend waits before calling this.
func (vs *VulkanSwapchain) SwapchainDestroy(context *VulkanContext) {
	for _, framebuffer := range vs.Framebuffers {
		vk.DestroyFramebuffer(context.Device.LogicalDevice, framebuffer, context.Allocator)
	}
	vs.Framebuffers = nil

	// Only destroy the views, not the images, since those are owned by
	// the swapchain and die with it.
	for _, view := range vs.Views {
		vk.DestroyImageView(context.Device.LogicalDevice, view, context.Allocator)
	}
	vs.Views = nil
	vs.Images = nil
	vs.ImageCount = 0

	if vs.Handle != vk.NullSwapchain {
		vk.DestroySwapchain(context.Device.LogicalDevice, vs.Handle, context.Allocator)
		vs.Handle = vk.NullSwapchain
	}
}
