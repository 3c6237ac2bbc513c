package vulkan

import (
	"fmt"
	"runtime"

	vk "github.com/goki/vulkan"

	"github.com/cubeworks/prism/engine/core"
)

type VulkanDevice struct {
	PhysicalDevice     vk.PhysicalDevice
	LogicalDevice      vk.Device
	SwapchainSupport   VulkanSwapchainSupportInfo
	GraphicsQueueIndex int32
	PresentQueueIndex  int32

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue

	GraphicsCommandPool vk.CommandPool

	Properties vk.PhysicalDeviceProperties

	DepthFormat vk.Format
}

type vulkanPhysicalDeviceQueueFamilyInfo struct {
	GraphicsFamilyIndex int32
	PresentFamilyIndex  int32
}

func DeviceCreate(context *VulkanContext) error {
	if err := selectPhysicalDevice(context); err != nil {
		return err
	}

	core.LogInfo("Creating logical device...")

	// NOTE: Do not create additional queues for shared indices.
	presentSharesGraphicsQueue := context.Device.GraphicsQueueIndex == context.Device.PresentQueueIndex
	indices := []uint32{uint32(context.Device.GraphicsQueueIndex)}
	if !presentSharesGraphicsQueue {
		indices = append(indices, uint32(context.Device.PresentQueueIndex))
	}

	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(indices))
	for i := range indices {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: indices[i],
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	deviceFeatures := vk.PhysicalDeviceFeatures{}

	extensionNames := []string{vk.KhrSwapchainExtensionName}
	if portabilitySubsetRequired(context.Device.PhysicalDevice) {
		core.LogInfo("Adding required extension 'VK_KHR_portability_subset'.")
		extensionNames = append(extensionNames, "VK_KHR_portability_subset")
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}

	if res := vk.CreateDevice(
		context.Device.PhysicalDevice,
		&deviceCreateInfo,
		context.Allocator,
		&context.Device.LogicalDevice); res != vk.Success {
		err := resultErr("vkCreateDevice", res)
		core.LogError(err.Error())
		return err
	}
	core.LogInfo("Logical device created.")

	vk.GetDeviceQueue(
		context.Device.LogicalDevice,
		uint32(context.Device.GraphicsQueueIndex),
		0,
		&context.Device.GraphicsQueue)
	vk.GetDeviceQueue(
		context.Device.LogicalDevice,
		uint32(context.Device.PresentQueueIndex),
		0,
		&context.Device.PresentQueue)
	core.LogInfo("Queues obtained.")

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: uint32(context.Device.GraphicsQueueIndex),
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	if res := vk.CreateCommandPool(
		context.Device.LogicalDevice,
		&poolCreateInfo,
		context.Allocator,
		&context.Device.GraphicsCommandPool); res != vk.Success {
		err := resultErr("vkCreateCommandPool", res)
		core.LogError(err.Error())
		return err
	}
	core.LogInfo("Graphics command pool created.")

	if !DeviceDetectDepthFormat(context.Device) {
		context.Device.DepthFormat = vk.FormatUndefined
		return fmt.Errorf("no supported depth attachment format on this device")
	}

	return nil
}

func DeviceDestroy(context *VulkanContext) {
	context.Device.GraphicsQueue = nil
	context.Device.PresentQueue = nil

	core.LogInfo("Destroying command pools...")
	vk.DestroyCommandPool(
		context.Device.LogicalDevice,
		context.Device.GraphicsCommandPool,
		context.Allocator)

	core.LogInfo("Destroying logical device...")
	if context.Device.LogicalDevice != nil {
		vk.DestroyDevice(context.Device.LogicalDevice, context.Allocator)
		context.Device.LogicalDevice = nil
	}

	// Physical devices are not destroyed.
	context.Device.PhysicalDevice = nil
	context.Device.SwapchainSupport = VulkanSwapchainSupportInfo{}
	context.Device.GraphicsQueueIndex = -1
	context.Device.PresentQueueIndex = -1
}

// DeviceQuerySwapchainSupport refreshes the surface capabilities, formats
// and present modes. Called again before every swapchain recreation since
// the capabilities track the surface size.
func DeviceQuerySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface, supportInfo *VulkanSwapchainSupportInfo) error {
	if res := vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &supportInfo.Capabilities); res != vk.Success {
		return resultErr("vkGetPhysicalDeviceSurfaceCapabilitiesKHR", res)
	}
	supportInfo.Capabilities.Deref()
	supportInfo.Capabilities.CurrentExtent.Deref()
	supportInfo.Capabilities.MinImageExtent.Deref()
	supportInfo.Capabilities.MaxImageExtent.Deref()

	var formatCount uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, nil); res != vk.Success {
		return resultErr("vkGetPhysicalDeviceSurfaceFormatsKHR", res)
	}
	if formatCount != 0 {
		supportInfo.Formats = make([]vk.SurfaceFormat, formatCount)
		if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, supportInfo.Formats); res != vk.Success {
			return resultErr("vkGetPhysicalDeviceSurfaceFormatsKHR", res)
		}
		for i := range supportInfo.Formats {
			supportInfo.Formats[i].Deref()
		}
	}

	var presentModeCount uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, nil); res != vk.Success {
		return resultErr("vkGetPhysicalDeviceSurfacePresentModesKHR", res)
	}
	if presentModeCount != 0 {
		supportInfo.PresentModes = make([]vk.PresentMode, presentModeCount)
		if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, supportInfo.PresentModes); res != vk.Success {
			return resultErr("vkGetPhysicalDeviceSurfacePresentModesKHR", res)
		}
	}
	return nil
}

// depthFormatCandidates is the probe order. The packed 24-bit format comes
// first since it is cheapest where supported.
var depthFormatCandidates = []vk.Format{
	vk.FormatD24UnormS8Uint,
	vk.FormatD32SfloatS8Uint,
	vk.FormatD32Sfloat,
}

// selectDepthFormat picks the first candidate the adapter supports.
func selectDepthFormat(candidates []vk.Format, supported func(vk.Format) bool) (vk.Format, bool) {
	for _, candidate := range candidates {
		if supported(candidate) {
			return candidate, true
		}
	}
	return vk.FormatUndefined, false
}

// DeviceDetectDepthFormat probes depth formats in preference order.
func DeviceDetectDepthFormat(device *VulkanDevice) bool {
	flags := vk.FormatFeatureDepthStencilAttachmentBit
	format, ok := selectDepthFormat(depthFormatCandidates, func(candidate vk.Format) bool {
		var properties vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(device.PhysicalDevice, candidate, &properties)
		properties.Deref()
		return (vk.FormatFeatureFlagBits(properties.OptimalTilingFeatures) & flags) == flags
	})
	if ok {
		device.DepthFormat = format
	}
	return ok
}

// HasStencil reports whether the picked depth format carries a stencil
// aspect.
func HasStencil(format vk.Format) bool {
	return format == vk.FormatD24UnormS8Uint || format == vk.FormatD32SfloatS8Uint
}

func selectPhysicalDevice(context *VulkanContext) error {
	var physicalDeviceCount uint32
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, nil); res != vk.Success {
		return resultErr("vkEnumeratePhysicalDevices", res)
	}
	if physicalDeviceCount == 0 {
		return fmt.Errorf("no devices which support Vulkan were found")
	}

	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, physicalDevices); res != vk.Success {
		return resultErr("vkEnumeratePhysicalDevices", res)
	}

	requireDiscrete := runtime.GOOS != "darwin"

	type candidate struct {
		device     vk.PhysicalDevice
		properties vk.PhysicalDeviceProperties
		queueInfo  vulkanPhysicalDeviceQueueFamilyInfo
		support    VulkanSwapchainSupportInfo
		discrete   bool
	}
	var fallback *candidate

	for i := 0; i < int(physicalDeviceCount); i++ {
		var properties vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(physicalDevices[i], &properties)
		properties.Deref()

		c := candidate{
			device:     physicalDevices[i],
			properties: properties,
			discrete:   properties.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu,
		}
		if !physicalDeviceMeetsRequirements(c.device, context.Surface, &c.queueInfo, &c.support) {
			continue
		}

		if c.discrete || !requireDiscrete {
			adoptPhysicalDevice(context, c.device, &c.properties, &c.queueInfo, &c.support)
			return nil
		}
		if fallback == nil {
			cc := c
			fallback = &cc
		}
	}

	// No discrete adapter; take any suitable one rather than failing.
	if fallback != nil {
		core.LogWarn("No discrete GPU found, falling back to '%s'.", vk.ToString(fallback.properties.DeviceName[:]))
		adoptPhysicalDevice(context, fallback.device, &fallback.properties, &fallback.queueInfo, &fallback.support)
		return nil
	}

	return fmt.Errorf("no physical device meets the requirements")
}

func adoptPhysicalDevice(context *VulkanContext, device vk.PhysicalDevice, properties *vk.PhysicalDeviceProperties, queueInfo *vulkanPhysicalDeviceQueueFamilyInfo, support *VulkanSwapchainSupportInfo) {
	core.LogInfo("Selected device: '%s'.", vk.ToString(properties.DeviceName[:]))
	switch properties.DeviceType {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		core.LogInfo("GPU type is Integrated.")
	case vk.PhysicalDeviceTypeDiscreteGpu:
		core.LogInfo("GPU type is Discrete.")
	case vk.PhysicalDeviceTypeVirtualGpu:
		core.LogInfo("GPU type is Virtual.")
	case vk.PhysicalDeviceTypeCpu:
		core.LogInfo("GPU type is CPU.")
	default:
		core.LogInfo("GPU type is Unknown.")
	}
	core.LogInfo(
		"Vulkan API version: %d.%d.%d",
		vk.Version.Major(vk.Version(properties.ApiVersion)),
		vk.Version.Minor(vk.Version(properties.ApiVersion)),
		vk.Version.Patch(vk.Version(properties.ApiVersion)),
	)

	context.Device.PhysicalDevice = device
	context.Device.GraphicsQueueIndex = queueInfo.GraphicsFamilyIndex
	context.Device.PresentQueueIndex = queueInfo.PresentFamilyIndex
	context.Device.Properties = *properties
	context.Device.SwapchainSupport = *support
	core.LogDebug("Graphics Family Index: %d", queueInfo.GraphicsFamilyIndex)
	core.LogDebug("Present Family Index:  %d", queueInfo.PresentFamilyIndex)
}

func physicalDeviceMeetsRequirements(device vk.PhysicalDevice, surface vk.Surface, outQueueInfo *vulkanPhysicalDeviceQueueFamilyInfo, outSwapchainSupport *VulkanSwapchainSupportInfo) bool {
	outQueueInfo.GraphicsFamilyIndex = -1
	outQueueInfo.PresentFamilyIndex = -1

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	for i := 0; i < int(queueFamilyCount); i++ {
		queueFamilies[i].Deref()

		if outQueueInfo.GraphicsFamilyIndex < 0 &&
			vk.QueueFlagBits(queueFamilies[i].QueueFlags)&vk.QueueGraphicsBit > 0 {
			outQueueInfo.GraphicsFamilyIndex = int32(i)
		}

		var supportsPresent vk.Bool32 = vk.False
		if res := vk.GetPhysicalDeviceSurfaceSupport(device, uint32(i), surface, &supportsPresent); res != vk.Success {
			return false
		}
		if supportsPresent == vk.True {
			// Prefer a family that does both graphics and present.
			if outQueueInfo.PresentFamilyIndex < 0 || int32(i) == outQueueInfo.GraphicsFamilyIndex {
				outQueueInfo.PresentFamilyIndex = int32(i)
			}
		}
	}

	if outQueueInfo.GraphicsFamilyIndex < 0 || outQueueInfo.PresentFamilyIndex < 0 {
		return false
	}

	if err := DeviceQuerySwapchainSupport(device, surface, outSwapchainSupport); err != nil {
		core.LogWarn("Swapchain support query failed: %s", err)
		return false
	}
	if len(outSwapchainSupport.Formats) < 1 || len(outSwapchainSupport.PresentModes) < 1 {
		core.LogInfo("Required swapchain support not present, skipping device.")
		return false
	}

	return hasDeviceExtension(device, vk.KhrSwapchainExtensionName)
}

func hasDeviceExtension(device vk.PhysicalDevice, name string) bool {
	var availableExtensionCount uint32
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &availableExtensionCount, nil); res != vk.Success {
		return false
	}
	if availableExtensionCount == 0 {
		return false
	}
	availableExtensions := make([]vk.ExtensionProperties, availableExtensionCount)
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &availableExtensionCount, availableExtensions); res != vk.Success {
		return false
	}
	for i := range availableExtensions {
		availableExtensions[i].Deref()
		if vk.ToString(availableExtensions[i].ExtensionName[:]) == name {
			return true
		}
	}
	return false
}

func portabilitySubsetRequired(device vk.PhysicalDevice) bool {
	return hasDeviceExtension(device, "VK_KHR_portability_subset")
}
