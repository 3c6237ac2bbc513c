package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/cubeworks/prism/engine/core"
)

// OffscreenColorFormat is fixed so panel textures look identical across
// surfaces; the composition pass samples it as a plain UNORM texture.
const OffscreenColorFormat = vk.FormatR8g8b8a8Unorm

// OffscreenRenderpassCreate builds the scene pass: one color attachment
// that ends up sampleable and one transient depth attachment. The external
// dependencies order the previous frame's sampling against this frame's
// writes and vice versa.
func OffscreenRenderpassCreate(context *VulkanContext) (vk.RenderPass, error) {
	attachments := []vk.AttachmentDescription{
		{
			Format:         OffscreenColorFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutShaderReadOnlyOptimal,
		},
		{
			Format:         context.Device.DepthFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpDontCare,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		},
	}

	colorReference := vk.AttachmentReference{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}
	depthReference := vk.AttachmentReference{
		Attachment: 1,
		Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		ColorAttachmentCount:    1,
		PColorAttachments:       []vk.AttachmentReference{colorReference},
		PDepthStencilAttachment: &depthReference,
	}

	dependencies := []vk.SubpassDependency{
		{
			// Wait for any prior sampling of this target before writing.
			SrcSubpass:    vk.SubpassExternal,
			DstSubpass:    0,
			SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
			SrcAccessMask: vk.AccessFlags(vk.AccessShaderReadBit),
			DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageEarlyFragmentTestsBit),
			DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit | vk.AccessDepthStencilAttachmentWriteBit),
		},
		{
			// Finish writing before the composition pass samples.
			SrcSubpass:    0,
			DstSubpass:    vk.SubpassExternal,
			SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			SrcAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
			DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
			DstAccessMask: vk.AccessFlags(vk.AccessShaderReadBit),
		},
	}

	return renderpassCreate(context, attachments, subpass, dependencies, "offscreen")
}

// PresentRenderpassCreate builds the composition pass targeting the
// swapchain image. No depth, the GUI and the panel quad are unordered 2D.
func PresentRenderpassCreate(context *VulkanContext, colorFormat vk.Format) (vk.RenderPass, error) {
	attachments := []vk.AttachmentDescription{
		{
			Format:         colorFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutPresentSrc,
		},
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments: []vk.AttachmentReference{{
			Attachment: 0,
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		}},
	}

	dependencies := []vk.SubpassDependency{
		{
			SrcSubpass:    vk.SubpassExternal,
			DstSubpass:    0,
			SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			SrcAccessMask: 0,
			DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
		},
	}

	return renderpassCreate(context, attachments, subpass, dependencies, "present")
}

func renderpassCreate(context *VulkanContext, attachments []vk.AttachmentDescription, subpass vk.SubpassDescription, dependencies []vk.SubpassDependency, name string) (vk.RenderPass, error) {
	renderpassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: uint32(len(dependencies)),
		PDependencies:   dependencies,
	}

	var renderpass vk.RenderPass
	if res := vk.CreateRenderPass(context.Device.LogicalDevice, &renderpassCreateInfo, context.Allocator, &renderpass); res != vk.Success {
		err := resultErr("vkCreateRenderPass", res)
		core.LogError(err.Error())
		return vk.NullRenderPass, err
	}
	core.LogDebug("Renderpass '%s' created.", name)
	return renderpass, nil
}

// FramebufferCreate wraps the attachment views in a framebuffer for the
// given pass.
func FramebufferCreate(context *VulkanContext, renderpass vk.RenderPass, width, height uint32, views []vk.ImageView) (vk.Framebuffer, error) {
	framebufferCreateInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderpass,
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           width,
		Height:          height,
		Layers:          1,
	}

	var framebuffer vk.Framebuffer
	if res := vk.CreateFramebuffer(context.Device.LogicalDevice, &framebufferCreateInfo, context.Allocator, &framebuffer); res != vk.Success {
		err := resultErr("vkCreateFramebuffer", res)
		core.LogError(err.Error())
		return vk.NullFramebuffer, err
	}
	return framebuffer, nil
}
