package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"

	"github.com/cubeworks/prism/engine/gui"
)

func TestClipToScissorClampsToExtent(t *testing.T) {
	extent := vk.Extent2D{Width: 400, Height: 600}

	got := clipToScissor(gui.DrawCommand{ClipX: -10, ClipY: -10, ClipW: 500, ClipH: 700}, 1, 1, extent)
	if got.Offset.X != 0 || got.Offset.Y != 0 {
		t.Errorf("offset %v, want origin", got.Offset)
	}
	if got.Extent.Width != 400 || got.Extent.Height != 600 {
		t.Errorf("extent %dx%d, want 400x600", got.Extent.Width, got.Extent.Height)
	}

	got = clipToScissor(gui.DrawCommand{ClipX: 100, ClipY: 50, ClipW: 40, ClipH: 30}, 2, 2, extent)
	if got.Offset.X != 200 || got.Offset.Y != 100 || got.Extent.Width != 80 || got.Extent.Height != 60 {
		t.Errorf("got offset=%v extent=%dx%d, want offset=(200,100) extent=80x60",
			got.Offset, got.Extent.Width, got.Extent.Height)
	}
}

func TestClipToScissorOutsideExtentIsEmpty(t *testing.T) {
	// During a window-grow frame the overlay lays out against the new
	// framebuffer while the chain still has the old extent, so a clip can
	// start entirely past it. The scissor must collapse to zero, never
	// wrap around.
	extent := vk.Extent2D{Width: 400, Height: 600}

	got := clipToScissor(gui.DrawCommand{ClipX: 1300, ClipW: 300, ClipH: 100}, 1, 1, extent)
	if got.Extent.Width != 0 || got.Extent.Height != 0 {
		t.Errorf("scissor %dx%d for a clip past the surface, want empty", got.Extent.Width, got.Extent.Height)
	}

	got = clipToScissor(gui.DrawCommand{ClipY: 900, ClipW: 100, ClipH: 50}, 1, 1, extent)
	if got.Extent.Width != 0 || got.Extent.Height != 0 {
		t.Errorf("scissor %dx%d for a clip below the surface, want empty", got.Extent.Width, got.Extent.Height)
	}
}
