package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/cubeworks/prism/engine/core"
	"github.com/cubeworks/prism/engine/gui"
	"github.com/cubeworks/prism/engine/m32"
)

// TextureRegistry is where offscreen color views become GUI texture
// handles. Implemented by the GUI backend.
type TextureRegistry interface {
	RegisterTexture(view vk.ImageView, sampler vk.Sampler) (gui.TextureID, error)
	UnregisterTexture(id gui.TextureID)
}

// offscreenSlot is one frame's scene target: color, depth, the
// framebuffer binding them to the offscreen pass and the texture handle
// the GUI samples.
type offscreenSlot struct {
	Color       *VulkanImage
	Depth       *VulkanImage
	Framebuffer vk.Framebuffer
	Texture     gui.TextureID
	Width       uint32
	Height      uint32
}

// OffscreenTargets owns one scene target per frame slot. Slots resize
// independently: only a slot whose fence has retired is ever rebuilt, so
// the other slot can still be in flight at its old size.
type OffscreenTargets struct {
	Renderpass vk.RenderPass
	Sampler    vk.Sampler

	slots    []offscreenSlot
	registry TextureRegistry
}

func OffscreenTargetsCreate(context *VulkanContext, registry TextureRegistry, renderpass vk.RenderPass, slotCount int, width, height uint32) (*OffscreenTargets, error) {
	targets := &OffscreenTargets{
		Renderpass: renderpass,
		slots:      make([]offscreenSlot, slotCount),
		registry:   registry,
	}

	samplerCreateInfo := vk.SamplerCreateInfo{
		SType:        vk.StructureTypeSamplerCreateInfo,
		MagFilter:    vk.FilterLinear,
		MinFilter:    vk.FilterLinear,
		MipmapMode:   vk.SamplerMipmapModeLinear,
		AddressModeU: vk.SamplerAddressModeClampToEdge,
		AddressModeV: vk.SamplerAddressModeClampToEdge,
		AddressModeW: vk.SamplerAddressModeClampToEdge,
		MaxLod:       1,
	}
	if res := vk.CreateSampler(context.Device.LogicalDevice, &samplerCreateInfo, context.Allocator, &targets.Sampler); res != vk.Success {
		err := resultErr("vkCreateSampler", res)
		core.LogError(err.Error())
		return nil, err
	}

	for slot := range targets.slots {
		if err := targets.buildSlot(context, slot, width, height); err != nil {
			targets.OffscreenTargetsDestroy(context)
			return nil, err
		}
	}

	core.LogInfo("Offscreen targets created, %d slots at %dx%d.", slotCount, width, height)
	return targets, nil
}

func (ot *OffscreenTargets) buildSlot(context *VulkanContext, slot int, width, height uint32) error {
	// A collapsed panel still needs a valid render target.
	width = m32.Max(width, 1)
	height = m32.Max(height, 1)

	s := &ot.slots[slot]

	color, err := ImageCreate(
		context,
		width, height,
		OffscreenColorFormat,
		vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit|vk.ImageUsageSampledBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		vk.ImageAspectFlags(vk.ImageAspectColorBit))
	if err != nil {
		return err
	}

	depthAspect := vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	if HasStencil(context.Device.DepthFormat) {
		depthAspect |= vk.ImageAspectFlags(vk.ImageAspectStencilBit)
	}
	depth, err := ImageCreate(
		context,
		width, height,
		context.Device.DepthFormat,
		vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		depthAspect)
	if err != nil {
		color.ImageDestroy(context)
		return err
	}

	framebuffer, err := FramebufferCreate(context, ot.Renderpass, width, height, []vk.ImageView{color.View, depth.View})
	if err != nil {
		depth.ImageDestroy(context)
		color.ImageDestroy(context)
		return err
	}

	texture, err := ot.registry.RegisterTexture(color.View, ot.Sampler)
	if err != nil {
		vk.DestroyFramebuffer(context.Device.LogicalDevice, framebuffer, context.Allocator)
		depth.ImageDestroy(context)
		color.ImageDestroy(context)
		return err
	}

	s.Color = color
	s.Depth = depth
	s.Framebuffer = framebuffer
	s.Texture = texture
	s.Width = width
	s.Height = height
	return nil
}

func (ot *OffscreenTargets) destroySlot(context *VulkanContext, slot int) {
	s := &ot.slots[slot]
	if s.Texture != (gui.TextureID{}) {
		ot.registry.UnregisterTexture(s.Texture)
		s.Texture = gui.TextureID{}
	}
	if s.Framebuffer != vk.NullFramebuffer {
		vk.DestroyFramebuffer(context.Device.LogicalDevice, s.Framebuffer, context.Allocator)
		s.Framebuffer = vk.NullFramebuffer
	}
	if s.Depth != nil {
		s.Depth.ImageDestroy(context)
		s.Depth = nil
	}
	if s.Color != nil {
		s.Color.ImageDestroy(context)
		s.Color = nil
	}
}

func (ot *OffscreenTargets) OffscreenTargetsDestroy(context *VulkanContext) {
	for slot := range ot.slots {
		ot.destroySlot(context, slot)
	}
	if ot.Sampler != vk.NullSampler {
		vk.DestroySampler(context.Device.LogicalDevice, ot.Sampler, context.Allocator)
		ot.Sampler = vk.NullSampler
	}
}

func (ot *OffscreenTargets) SlotSize(slot int) (uint32, uint32) {
	s := &ot.slots[slot]
	return s.Width, s.Height
}

func (ot *OffscreenTargets) SlotTexture(slot int) gui.TextureID {
	return ot.slots[slot].Texture
}

func (ot *OffscreenTargets) SlotFramebuffer(slot int) vk.Framebuffer {
	return ot.slots[slot].Framebuffer
}

// ResizeSlot rebuilds one slot at a new size. The caller guarantees the
// slot's previous frame has retired; the other slot is left alone.
func (ot *OffscreenTargets) ResizeSlot(context *VulkanContext, slot int, width, height uint32) (gui.TextureID, error) {
	core.LogDebug("Resizing offscreen slot %d to %dx%d.", slot, width, height)
	ot.destroySlot(context, slot)
	if err := ot.buildSlot(context, slot, width, height); err != nil {
		return gui.TextureID{}, err
	}
	return ot.slots[slot].Texture, nil
}
