package vulkan

import (
	"math"
	"testing"

	vk "github.com/goki/vulkan"
)

func TestChooseSurfaceFormatPrefersSRGB(t *testing.T) {
	formats := []vk.SurfaceFormat{
		{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear},
	}
	got := ChooseSurfaceFormat(formats)
	if got.Format != vk.FormatB8g8r8a8Srgb {
		t.Errorf("picked %v, want FormatB8g8r8a8Srgb", got.Format)
	}
}

func TestChooseSurfaceFormatFallsBackToUnorm(t *testing.T) {
	formats := []vk.SurfaceFormat{
		{Format: vk.FormatR8g8b8a8Snorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
	}
	got := ChooseSurfaceFormat(formats)
	if got.Format != vk.FormatB8g8r8a8Unorm {
		t.Errorf("picked %v, want FormatB8g8r8a8Unorm", got.Format)
	}
}

func TestChooseSurfaceFormatFirstWhenNothingMatches(t *testing.T) {
	formats := []vk.SurfaceFormat{
		{Format: vk.FormatR5g6b5UnormPack16, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		{Format: vk.FormatR8g8b8a8Snorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
	}
	got := ChooseSurfaceFormat(formats)
	if got.Format != vk.FormatR5g6b5UnormPack16 {
		t.Errorf("picked %v, want the first listed format", got.Format)
	}
}

func TestChoosePresentMode(t *testing.T) {
	withMailbox := []vk.PresentMode{vk.PresentModeImmediate, vk.PresentModeMailbox, vk.PresentModeFifo}
	if got := ChoosePresentMode(withMailbox, false); got != vk.PresentModeMailbox {
		t.Errorf("got %v, want mailbox", got)
	}

	// VSync pins FIFO even when mailbox is on offer.
	if got := ChoosePresentMode(withMailbox, true); got != vk.PresentModeFifo {
		t.Errorf("got %v, want fifo", got)
	}

	fifoOnly := []vk.PresentMode{vk.PresentModeImmediate, vk.PresentModeFifo}
	if got := ChoosePresentMode(fifoOnly, false); got != vk.PresentModeFifo {
		t.Errorf("got %v, want fifo", got)
	}

	// FIFO is always available even when the surface forgot to say so.
	if got := ChoosePresentMode(nil, false); got != vk.PresentModeFifo {
		t.Errorf("got %v, want fifo", got)
	}
}

func TestChooseExtentUsesCurrentWhenPinned(t *testing.T) {
	caps := vk.SurfaceCapabilities{
		CurrentExtent:  vk.Extent2D{Width: 1024, Height: 768},
		MinImageExtent: vk.Extent2D{Width: 1, Height: 1},
		MaxImageExtent: vk.Extent2D{Width: 4096, Height: 4096},
	}
	got := ChooseExtent(&caps, 1600, 900)
	if got.Width != 1024 || got.Height != 768 {
		t.Errorf("got %dx%d, want the surface's pinned 1024x768", got.Width, got.Height)
	}
}

func TestChooseExtentClampsFramebufferSize(t *testing.T) {
	caps := vk.SurfaceCapabilities{
		CurrentExtent:  vk.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32},
		MinImageExtent: vk.Extent2D{Width: 64, Height: 64},
		MaxImageExtent: vk.Extent2D{Width: 2048, Height: 2048},
	}

	got := ChooseExtent(&caps, 1600, 900)
	if got.Width != 1600 || got.Height != 900 {
		t.Errorf("in-range size changed: %dx%d", got.Width, got.Height)
	}

	got = ChooseExtent(&caps, 8, 9000)
	if got.Width != 64 || got.Height != 2048 {
		t.Errorf("got %dx%d, want clamped 64x2048", got.Width, got.Height)
	}
}

func TestSwapchainDestroyIsIdempotent(t *testing.T) {
	// A failed recreation can leave the backend pointing at a chain that
	// was already torn down; shutdown then destroys it a second time. The
	// stale image count must not send the view loop out of bounds.
	swapchain := &VulkanSwapchain{ImageCount: 3}
	swapchain.SwapchainDestroy(&VulkanContext{})
	if swapchain.ImageCount != 0 {
		t.Errorf("image count %d after destroy, want 0", swapchain.ImageCount)
	}
	swapchain.SwapchainDestroy(&VulkanContext{})
}

func TestChooseImageCount(t *testing.T) {
	unbounded := vk.SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 0}
	if got := ChooseImageCount(&unbounded); got != 3 {
		t.Errorf("got %d, want min+1 = 3", got)
	}

	bounded := vk.SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 2}
	if got := ChooseImageCount(&bounded); got != 2 {
		t.Errorf("got %d, want the surface maximum 2", got)
	}
}
