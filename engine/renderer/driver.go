package renderer

import (
	"fmt"

	"github.com/cubeworks/prism/engine/core"
	"github.com/cubeworks/prism/engine/gui"
)

// FramesInFlight is the depth of the per-frame resource ring. Two slots
// keep the CPU at most one frame ahead of the GPU.
const FramesInFlight = 2

// Surface is the presentation side of the backend: image acquisition,
// presentation and swapchain replacement.
type Surface interface {
	// Acquire obtains the next presentable image using the slot's
	// image-acquired semaphore. stale means the swapchain no longer
	// matches the surface and must be recreated before any image can be
	// obtained.
	Acquire(slot int) (imageIndex uint32, stale bool, err error)
	// Present queues the image for display, waiting on the slot's
	// render-complete semaphore. stale means the swapchain should be
	// recreated after this call.
	Present(slot int, imageIndex uint32) (stale bool, err error)
	// Recreate replaces the swapchain and its dependent resources for the
	// given surface size. It must fully destroy the old chain first.
	Recreate(width, height uint32) error
}

// Targets owns the per-slot offscreen render targets the scene draws into.
type Targets interface {
	SlotSize(slot int) (width, height uint32)
	// ResizeSlot rebuilds one slot's target at the new size and returns
	// the texture handle for the replacement. Only this slot is touched.
	ResizeSlot(slot int, width, height uint32) (gui.TextureID, error)
	SlotTexture(slot int) gui.TextureID
}

// Ring is the per-slot synchronization and command recording surface.
type Ring interface {
	// WaitSlot blocks until the slot's previous submission has retired,
	// then resets its fence and command buffer.
	WaitSlot(slot int) error
	Begin(slot int) error
	// Submit ends recording and submits, waiting on the slot's
	// image-acquired semaphore and signaling render-complete and the
	// slot's fence.
	Submit(slot int) error
}

// Scene records the offscreen pass for one slot.
type Scene interface {
	Record(slot int, elapsed float64) error
}

// Composer records the presentation pass: scene texture plus GUI geometry
// onto the swapchain image.
type Composer interface {
	Compose(slot int, imageIndex uint32, list *gui.DrawList) error
}

// Overlay is the GUI surface the driver sequences each tick.
type Overlay interface {
	Begin(displayW, displayH uint32, scaleX, scaleY float32)
	DesiredPanelSize() (uint32, uint32)
	SetViewportTexture(id gui.TextureID)
	BuildFrame() *gui.DrawList
}

// Display reports window state the frame loop reacts to.
type Display interface {
	FramebufferSize() (uint32, uint32)
	ContentScale() (float32, float32)
	ConsumeResized() bool
}

// FrameDriver sequences one frame per Tick over the two-slot ring. It owns
// the frame index and all stale and resize handling; the concrete backend
// only executes the steps.
type FrameDriver struct {
	Surface  Surface
	Targets  Targets
	Ring     Ring
	Scene    Scene
	Composer Composer
	Overlay  Overlay
	Display  Display

	// OnGUI runs after the overlay frame begins, before geometry is built.
	// The application uses it to push info text.
	OnGUI func()

	frameIndex int
}

// FrameIndex returns the slot the next Tick will use.
func (d *FrameDriver) FrameIndex() int {
	return d.frameIndex
}

// Tick renders and presents one frame. A stale acquire recreates the
// swapchain and skips the tick without advancing the frame index, so the
// slot's semaphore stays unsignaled and safe to reuse. All other failures
// are fatal to the frame loop.
func (d *FrameDriver) Tick(elapsed float64) error {
	slot := d.frameIndex

	if err := d.Ring.WaitSlot(slot); err != nil {
		return fmt.Errorf("slot %d wait failed: %w", slot, err)
	}

	imageIndex, stale, err := d.Surface.Acquire(slot)
	if err != nil {
		return fmt.Errorf("image acquire failed: %w", err)
	}
	if stale {
		core.LogDebug("swapchain stale at acquire, recreating")
		return d.recreate()
	}

	w, h := d.Display.FramebufferSize()
	sx, sy := d.Display.ContentScale()
	d.Overlay.Begin(w, h, sx, sy)
	if d.OnGUI != nil {
		d.OnGUI()
	}

	// The panel drives its own target size. Only the current slot is
	// rebuilt; the other slot may still be in flight at its old size.
	pw, ph := d.Overlay.DesiredPanelSize()
	cw, ch := d.Targets.SlotSize(slot)
	if pw != cw || ph != ch {
		tex, err := d.Targets.ResizeSlot(slot, pw, ph)
		if err != nil {
			return fmt.Errorf("offscreen resize to %dx%d failed: %w", pw, ph, err)
		}
		d.Overlay.SetViewportTexture(tex)
	} else {
		d.Overlay.SetViewportTexture(d.Targets.SlotTexture(slot))
	}

	if err := d.Ring.Begin(slot); err != nil {
		return fmt.Errorf("command recording begin failed: %w", err)
	}
	if err := d.Scene.Record(slot, elapsed); err != nil {
		return fmt.Errorf("scene pass failed: %w", err)
	}
	list := d.Overlay.BuildFrame()
	if err := d.Composer.Compose(slot, imageIndex, list); err != nil {
		return fmt.Errorf("composition pass failed: %w", err)
	}
	if err := d.Ring.Submit(slot); err != nil {
		return fmt.Errorf("queue submit failed: %w", err)
	}

	presentStale, err := d.Surface.Present(slot, imageIndex)
	if err != nil {
		return fmt.Errorf("present failed: %w", err)
	}
	if presentStale || d.Display.ConsumeResized() {
		core.LogDebug("swapchain stale after present, recreating")
		if err := d.recreate(); err != nil {
			return err
		}
	}

	d.frameIndex = (d.frameIndex + 1) % FramesInFlight
	return nil
}

func (d *FrameDriver) recreate() error {
	w, h := d.Display.FramebufferSize()
	if w == 0 || h == 0 {
		// Minimized; the run loop stalls until the window has area again.
		return nil
	}
	if err := d.Surface.Recreate(w, h); err != nil {
		return fmt.Errorf("swapchain recreation failed: %w", err)
	}
	return nil
}
