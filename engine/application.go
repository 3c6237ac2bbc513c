package engine

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cubeworks/prism/engine/assets"
	"github.com/cubeworks/prism/engine/config"
	"github.com/cubeworks/prism/engine/core"
	"github.com/cubeworks/prism/engine/gui"
	"github.com/cubeworks/prism/engine/platform"
	"github.com/cubeworks/prism/engine/renderer"
	"github.com/cubeworks/prism/engine/renderer/vulkan"
)

// Application wires the window, the renderer and the frame driver together
// and owns the run loop.
type Application struct {
	config *config.Config

	platform *platform.Platform
	renderer *vulkan.Renderer
	overlay  *gui.Context
	driver   *renderer.FrameDriver
	watcher  *assets.Watcher

	clock   *core.Clock
	metrics *core.Metrics
}

func New(cfg *config.Config) *Application {
	return &Application{
		config:  cfg,
		clock:   core.NewClock(),
		metrics: core.NewMetrics(),
	}
}

func (a *Application) Initialize() error {
	core.SetLogLevel(core.ParseLogLevel(a.config.Log.Level))

	a.platform = platform.New()
	if err := a.platform.Startup(a.config.Window.Title, a.config.Window.PosX, a.config.Window.PosY, a.config.Window.Width, a.config.Window.Height); err != nil {
		return fmt.Errorf("platform startup failed: %w", err)
	}

	font := gui.LoadFont(a.config.Shaders.Font)
	a.overlay = gui.NewContext(font)

	a.renderer = vulkan.New(a.platform)
	options := vulkan.RendererOptions{
		AppName:    a.config.Window.Title,
		ShaderDir:  a.config.Shaders.Dir,
		Validation: a.config.Debug.Validation,
		SlotCount:  renderer.FramesInFlight,
		PanelW:     a.config.Panel.Width,
		PanelH:     a.config.Panel.Height,
		VSync:      a.config.Window.VSync,
	}
	if err := a.renderer.Initialize(options, font); err != nil {
		a.platform.Shutdown()
		return fmt.Errorf("renderer initialization failed: %w", err)
	}

	a.driver = &renderer.FrameDriver{
		Surface:  a.renderer,
		Targets:  a.renderer,
		Ring:     a.renderer,
		Scene:    a.renderer,
		Composer: a.renderer,
		Overlay:  a.overlay,
		Display:  a.platform,
		OnGUI:    a.buildInfoPanel,
	}

	if a.config.Shaders.Watch {
		watcher, err := assets.NewWatcher(a.config.Shaders.Dir)
		if err != nil {
			core.LogWarn("Shader watching disabled: %s", err)
		} else {
			a.watcher = watcher
		}
	}

	// Ctrl-C should wind down cleanly instead of killing the process with
	// the device mid-frame.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		s := <-signals
		core.LogInfo("Received %s, shutting down.", s)
		a.platform.RequestClose()
		a.platform.Wake()
	}()

	core.LogInfo("Application initialized.")
	return nil
}

// Run drives frames until the window closes. Blocks the calling goroutine,
// which must be the main thread.
func (a *Application) Run() error {
	a.clock.Start()
	lastElapsed := 0.0

	for !a.platform.ShouldClose() {
		a.platform.PumpMessages()
		if a.platform.ShouldClose() {
			break
		}

		// A minimized window has no surface to render to; stall until it
		// comes back instead of spinning.
		a.platform.WaitWhileMinimized()

		a.clock.Update()
		elapsed := a.clock.Elapsed()
		a.metrics.Update(elapsed - lastElapsed)
		lastElapsed = elapsed

		if a.watcher != nil && a.watcher.ConsumeDirty() {
			if err := a.renderer.ReloadShaders(); err != nil {
				core.LogWarn("Shader reload failed, keeping previous pipelines: %s", err)
			}
		}

		if err := a.driver.Tick(elapsed); err != nil {
			return fmt.Errorf("frame loop failed: %w", err)
		}
	}
	return nil
}

func (a *Application) Shutdown() {
	if a.watcher != nil {
		a.watcher.Close()
		a.watcher = nil
	}
	if a.renderer != nil {
		a.renderer.Shutdown()
		a.renderer = nil
	}
	if a.platform != nil {
		a.platform.Shutdown()
		a.platform = nil
	}
	core.LogInfo("Application shut down.")
}

func (a *Application) buildInfoPanel() {
	a.overlay.Info(fmt.Sprintf("adapter  %s", a.renderer.AdapterName()))
	a.overlay.Info(fmt.Sprintf("fps      %.0f", a.metrics.FPS()))
	a.overlay.Info(fmt.Sprintf("frame    %.2f ms", a.metrics.FrameTime()))
	w, h := a.overlay.DesiredPanelSize()
	a.overlay.Info(fmt.Sprintf("panel    %dx%d", w, h))
	a.overlay.Info(fmt.Sprintf("slot     %d", a.driver.FrameIndex()))
}
