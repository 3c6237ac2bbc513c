package platform

import (
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/cubeworks/prism/engine/core"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

// Platform owns the window and is the engine's only view of the window
// system: pixel framebuffer size, content scale, a latched resize flag and
// surface creation.
type Platform struct {
	Window *glfw.Window

	framebufferResized bool
}

func New() *Platform {
	return &Platform{}
}

func (p *Platform) Startup(title string, x, y int, width, height uint32) error {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return err
	}

	if !glfw.VulkanSupported() {
		return fmt.Errorf("vulkan is not supported by this glfw build")
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(width), int(height), title, nil, nil)
	if err != nil {
		core.LogError("failed to create window: %s", err)
		return err
	}
	p.Window = window

	p.Window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		p.framebufferResized = true
	})
	p.Window.SetPos(x, y)
	p.Window.Show()

	return nil
}

func (p *Platform) Shutdown() {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
}

// PumpMessages polls window-system events once.
func (p *Platform) PumpMessages() {
	glfw.PollEvents()
}

// ShouldClose reports whether the user asked to close the window.
func (p *Platform) ShouldClose() bool {
	return p.Window.ShouldClose()
}

// RequestClose flags the window for closing; the run loop exits on the next
// tick. Safe to call from a signal-handling goroutine.
func (p *Platform) RequestClose() {
	if p.Window != nil {
		p.Window.SetShouldClose(true)
	}
}

// Wake unblocks a WaitEvents stall, for example after a close request
// from a signal handler.
func (p *Platform) Wake() {
	glfw.PostEmptyEvent()
}

// FramebufferSize returns the window's current size in pixels.
func (p *Platform) FramebufferSize() (uint32, uint32) {
	w, h := p.Window.GetFramebufferSize()
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return uint32(w), uint32(h)
}

// ContentScale reports the display scale factor; GUI logical units times
// this scale gives backing pixels.
func (p *Platform) ContentScale() (float32, float32) {
	return p.Window.GetContentScale()
}

// ConsumeResized returns the latched resize notification and clears it.
func (p *Platform) ConsumeResized() bool {
	r := p.framebufferResized
	p.framebufferResized = false
	return r
}

// WaitWhileMinimized blocks until the framebuffer has a non-zero area,
// pumping events so the window can be restored.
func (p *Platform) WaitWhileMinimized() {
	w, h := p.FramebufferSize()
	for w == 0 || h == 0 {
		glfw.WaitEvents()
		w, h = p.FramebufferSize()
	}
}

// RequiredExtensionNames lists the instance extensions the window system
// needs for surface creation.
func (p *Platform) RequiredExtensionNames() []string {
	return p.Window.GetRequiredInstanceExtensions()
}

// CreateSurface makes a presentable surface for the window.
func (p *Platform) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	surface, err := p.Window.CreateWindowSurface(instance, nil)
	if err != nil {
		core.LogError("vulkan surface creation failed: %s", err)
		return vk.NullSurface, err
	}
	return vk.SurfaceFromPointer(surface), nil
}
