package vulkan

import (
	"fmt"
	"math"
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/cubeworks/prism/engine/assets"
	"github.com/cubeworks/prism/engine/core"
	"github.com/cubeworks/prism/engine/gui"
	"github.com/cubeworks/prism/engine/platform"
)

// Renderer is the concrete backend behind the frame driver. It owns the
// instance, device, swapchain, both render passes and every per-frame
// resource.
type Renderer struct {
	platform *platform.Platform
	context  *VulkanContext

	swapchain     *VulkanSwapchain
	presentPass   vk.RenderPass
	offscreenPass vk.RenderPass

	ring       *SyncRing
	targets    *OffscreenTargets
	scene      *SceneRenderer
	guiBackend *GuiBackend

	shaderDir string
	debug     bool
	vsync     bool
}

type RendererOptions struct {
	AppName    string
	ShaderDir  string
	Validation bool
	SlotCount  int
	PanelW     uint32
	PanelH     uint32
	VSync      bool
}

func New(p *platform.Platform) *Renderer {
	return &Renderer{
		platform: p,
		context:  &VulkanContext{Device: &VulkanDevice{}},
	}
}

func (r *Renderer) Initialize(options RendererOptions, font *gui.Font) error {
	r.shaderDir = options.ShaderDir
	r.debug = options.Validation
	r.vsync = options.VSync

	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		return fmt.Errorf("vulkan loader not available")
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		core.LogError("Failed to initialize the Vulkan binding: %s", err)
		return err
	}

	if err := r.createInstance(options.AppName); err != nil {
		return err
	}
	if r.debug {
		if err := r.createDebugger(); err != nil {
			return err
		}
	}

	core.LogDebug("Creating Vulkan surface...")
	surface, err := r.platform.CreateSurface(r.context.Instance)
	if err != nil {
		return err
	}
	r.context.Surface = surface

	if err := DeviceCreate(r.context); err != nil {
		return err
	}

	width, height := r.platform.FramebufferSize()
	r.swapchain, err = SwapchainCreate(r.context, width, height, r.vsync)
	if err != nil {
		return err
	}

	r.presentPass, err = PresentRenderpassCreate(r.context, r.swapchain.ImageFormat.Format)
	if err != nil {
		return err
	}
	r.offscreenPass, err = OffscreenRenderpassCreate(r.context)
	if err != nil {
		return err
	}

	if err := r.buildSwapchainFramebuffers(); err != nil {
		return err
	}

	r.ring, err = SyncRingCreate(r.context, options.SlotCount)
	if err != nil {
		return err
	}

	guiVert, guiFrag, err := r.loadShaderPair("gui")
	if err != nil {
		return err
	}
	r.guiBackend, err = GuiBackendCreate(r.context, r.presentPass, font, options.SlotCount, guiVert, guiFrag)
	vk.DestroyShaderModule(r.context.Device.LogicalDevice, guiVert, r.context.Allocator)
	vk.DestroyShaderModule(r.context.Device.LogicalDevice, guiFrag, r.context.Allocator)
	if err != nil {
		return err
	}

	r.targets, err = OffscreenTargetsCreate(r.context, r.guiBackend, r.offscreenPass, options.SlotCount, options.PanelW, options.PanelH)
	if err != nil {
		return err
	}

	cubeVert, cubeFrag, err := r.loadShaderPair("cube")
	if err != nil {
		return err
	}
	r.scene, err = SceneRendererCreate(r.context, r.targets, cubeVert, cubeFrag)
	vk.DestroyShaderModule(r.context.Device.LogicalDevice, cubeVert, r.context.Allocator)
	vk.DestroyShaderModule(r.context.Device.LogicalDevice, cubeFrag, r.context.Allocator)
	if err != nil {
		return err
	}

	core.LogInfo("Vulkan renderer initialized.")
	return nil
}

func (r *Renderer) Shutdown() {
	device := r.context.Device.LogicalDevice
	if device != nil {
		vk.DeviceWaitIdle(device)
	}

	if r.scene != nil {
		r.scene.SceneRendererDestroy(r.context)
		r.scene = nil
	}
	if r.targets != nil {
		r.targets.OffscreenTargetsDestroy(r.context)
		r.targets = nil
	}
	if r.guiBackend != nil {
		r.guiBackend.GuiBackendDestroy(r.context)
		r.guiBackend = nil
	}
	if r.ring != nil {
		r.ring.SyncRingDestroy(r.context)
		r.ring = nil
	}
	if r.swapchain != nil {
		r.swapchain.SwapchainDestroy(r.context)
		r.swapchain = nil
	}
	if r.offscreenPass != vk.NullRenderPass {
		vk.DestroyRenderPass(device, r.offscreenPass, r.context.Allocator)
		r.offscreenPass = vk.NullRenderPass
	}
	if r.presentPass != vk.NullRenderPass {
		vk.DestroyRenderPass(device, r.presentPass, r.context.Allocator)
		r.presentPass = vk.NullRenderPass
	}
	if device != nil {
		DeviceDestroy(r.context)
	}
	if r.context.Surface != vk.NullSurface {
		vk.DestroySurface(r.context.Instance, r.context.Surface, r.context.Allocator)
		r.context.Surface = vk.NullSurface
	}
	if r.context.debugMessenger != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(r.context.Instance, r.context.debugMessenger, r.context.Allocator)
		r.context.debugMessenger = vk.NullDebugReportCallback
	}
	if r.context.Instance != nil {
		vk.DestroyInstance(r.context.Instance, r.context.Allocator)
		r.context.Instance = nil
	}
	core.LogInfo("Vulkan renderer shut down.")
}

// AdapterName reports the selected GPU for the info overlay.
func (r *Renderer) AdapterName() string {
	return vk.ToString(r.context.Device.Properties.DeviceName[:])
}

// Acquire implements the driver's presentation surface.
func (r *Renderer) Acquire(slot int) (uint32, bool, error) {
	return r.swapchain.AcquireNextImageIndex(r.context, math.MaxUint64, r.ring.Slots[slot].ImageAvailableSemaphore)
}

func (r *Renderer) Present(slot int, imageIndex uint32) (bool, error) {
	return r.swapchain.Present(r.context, r.ring.Slots[slot].RenderCompleteSemaphore, imageIndex)
}

// Recreate atomically replaces the swapchain: full stop, destroy, build
// anew. Simpler to reason about than chaining through oldSwapchain and
// resize is rare.
func (r *Renderer) Recreate(width, height uint32) error {
	vk.DeviceWaitIdle(r.context.Device.LogicalDevice)

	r.swapchain.SwapchainDestroy(r.context)
	swapchain, err := SwapchainCreate(r.context, width, height, r.vsync)
	if err != nil {
		return err
	}
	r.swapchain = swapchain
	return r.buildSwapchainFramebuffers()
}

// SlotSize implements the driver's offscreen target surface.
func (r *Renderer) SlotSize(slot int) (uint32, uint32) {
	return r.targets.SlotSize(slot)
}

func (r *Renderer) SlotTexture(slot int) gui.TextureID {
	return r.targets.SlotTexture(slot)
}

func (r *Renderer) ResizeSlot(slot int, width, height uint32) (gui.TextureID, error) {
	return r.targets.ResizeSlot(r.context, slot, width, height)
}

// WaitSlot implements the driver's synchronization ring.
func (r *Renderer) WaitSlot(slot int) error {
	return r.ring.WaitSlot(r.context, slot)
}

func (r *Renderer) Begin(slot int) error {
	return r.ring.Begin(slot)
}

func (r *Renderer) Submit(slot int) error {
	return r.ring.Submit(r.context, slot)
}

// Record implements the driver's scene pass.
func (r *Renderer) Record(slot int, elapsed float64) error {
	r.scene.Record(r.ring.Slots[slot].CommandBuffer, slot, elapsed)
	return nil
}

// Compose records the presentation pass for the acquired image.
func (r *Renderer) Compose(slot int, imageIndex uint32, list *gui.DrawList) error {
	scaleX, scaleY := r.platform.ContentScale()
	return r.guiBackend.Record(
		r.context,
		r.ring.Slots[slot].CommandBuffer,
		slot,
		r.swapchain.Framebuffers[imageIndex],
		r.swapchain.Extent,
		scaleX, scaleY,
		list)
}

// ReloadShaders rebuilds both pipelines from the binaries on disk. Called
// between frames when the shader watcher saw a change; a failed reload
// keeps the old pipelines.
func (r *Renderer) ReloadShaders() error {
	cubeVert, cubeFrag, err := r.loadShaderPair("cube")
	if err != nil {
		return err
	}
	defer vk.DestroyShaderModule(r.context.Device.LogicalDevice, cubeVert, r.context.Allocator)
	defer vk.DestroyShaderModule(r.context.Device.LogicalDevice, cubeFrag, r.context.Allocator)

	guiVert, guiFrag, err := r.loadShaderPair("gui")
	if err != nil {
		return err
	}
	defer vk.DestroyShaderModule(r.context.Device.LogicalDevice, guiVert, r.context.Allocator)
	defer vk.DestroyShaderModule(r.context.Device.LogicalDevice, guiFrag, r.context.Allocator)

	vk.DeviceWaitIdle(r.context.Device.LogicalDevice)

	cubePipeline, err := CubePipelineCreate(r.context, r.offscreenPass, cubeVert, cubeFrag)
	if err != nil {
		return err
	}
	guiPipeline, err := GuiPipelineCreate(r.context, r.presentPass, r.guiBackend.DescriptorSetLayout(), guiVert, guiFrag)
	if err != nil {
		cubePipeline.PipelineDestroy(r.context)
		return err
	}

	r.scene.ReplacePipeline(r.context, cubePipeline)
	r.guiBackend.ReplacePipeline(r.context, guiPipeline)
	core.LogInfo("Shader pipelines reloaded.")
	return nil
}

func (r *Renderer) loadShaderPair(name string) (vk.ShaderModule, vk.ShaderModule, error) {
	vert, err := ShaderModuleLoad(r.context, assets.ShaderPath(r.shaderDir, name+".vert.spv"))
	if err != nil {
		return vk.NullShaderModule, vk.NullShaderModule, err
	}
	frag, err := ShaderModuleLoad(r.context, assets.ShaderPath(r.shaderDir, name+".frag.spv"))
	if err != nil {
		vk.DestroyShaderModule(r.context.Device.LogicalDevice, vert, r.context.Allocator)
		return vk.NullShaderModule, vk.NullShaderModule, err
	}
	return vert, frag, nil
}

func (r *Renderer) buildSwapchainFramebuffers() error {
	r.swapchain.Framebuffers = make([]vk.Framebuffer, r.swapchain.ImageCount)
	for i := 0; i < int(r.swapchain.ImageCount); i++ {
		framebuffer, err := FramebufferCreate(
			r.context,
			r.presentPass,
			r.swapchain.Extent.Width,
			r.swapchain.Extent.Height,
			[]vk.ImageView{r.swapchain.Views[i]})
		if err != nil {
			return err
		}
		r.swapchain.Framebuffers[i] = framebuffer
	}
	return nil
}

func (r *Renderer) createInstance(appName string) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Prism"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	requiredExtensions := r.platform.RequiredExtensionNames()
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		createInfo.Flags |= 1 // VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
	}

	var validationLayers []string
	if r.debug {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
		if hasInstanceLayer("VK_LAYER_KHRONOS_validation") {
			validationLayers = []string{"VK_LAYER_KHRONOS_validation"}
		} else {
			core.LogWarn("Validation requested but VK_LAYER_KHRONOS_validation is not installed.")
		}
	}
	core.LogDebug("Required instance extensions: %v", requiredExtensions)

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)
	createInfo.EnabledLayerCount = uint32(len(validationLayers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(validationLayers)

	if res := vk.CreateInstance(&createInfo, r.context.Allocator, &r.context.Instance); res != vk.Success {
		err := resultErr("vkCreateInstance", res)
		core.LogError(err.Error())
		return err
	}
	if err := vk.InitInstance(r.context.Instance); err != nil {
		core.LogError(err.Error())
		return err
	}
	core.LogInfo("Vulkan instance created.")
	return nil
}

func hasInstanceLayer(name string) bool {
	var availableLayerCount uint32
	if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, nil); res != vk.Success {
		return false
	}
	availableLayers := make([]vk.LayerProperties, availableLayerCount)
	if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, availableLayers); res != vk.Success {
		return false
	}
	for i := range availableLayers {
		availableLayers[i].Deref()
		if vk.ToString(availableLayers[i].LayerName[:]) == name {
			return true
		}
	}
	return false
}

func (r *Renderer) createDebugger() error {
	core.LogDebug("Creating Vulkan debugger...")
	debugCreateInfo := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: dbgCallbackFunc,
	}

	var dbg vk.DebugReportCallback
	if res := vk.CreateDebugReportCallback(r.context.Instance, &debugCreateInfo, nil, &dbg); res != vk.Success {
		err := resultErr("vkCreateDebugReportCallbackEXT", res)
		core.LogError(err.Error())
		return err
	}
	r.context.debugMessenger = dbg
	core.LogDebug("Vulkan debugger created.")
	return nil
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
