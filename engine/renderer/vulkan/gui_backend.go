package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"

	"github.com/cubeworks/prism/engine/core"
	"github.com/cubeworks/prism/engine/gui"
	"github.com/cubeworks/prism/engine/m32"
)

const (
	guiInitialVertexCapacity = 4096
	guiInitialIndexCapacity  = 8192
	guiMaxTextures           = 64
)

// guiSlotBuffers are one frame's GUI geometry buffers. They grow but never
// shrink; a slot is only rebuilt after its fence retired.
type guiSlotBuffers struct {
	Vertex         *VulkanBuffer
	Index          *VulkanBuffer
	VertexCapacity int
	IndexCapacity  int
}

// GuiBackend renders draw lists into the composition pass and owns the
// descriptor machinery that turns image views into GUI texture handles.
type GuiBackend struct {
	Renderpass vk.RenderPass
	Pipeline   *VulkanPipeline

	device vk.Device

	descriptorSetLayout vk.DescriptorSetLayout
	descriptorPool      vk.DescriptorPool
	textures            map[gui.TextureID]vk.DescriptorSet

	fontSampler vk.Sampler
	fontImage   *VulkanImage

	slots []guiSlotBuffers
}

func GuiBackendCreate(context *VulkanContext, renderpass vk.RenderPass, font *gui.Font, slotCount int, vertModule, fragModule vk.ShaderModule) (*GuiBackend, error) {
	backend := &GuiBackend{
		Renderpass: renderpass,
		device:     context.Device.LogicalDevice,
		textures:   make(map[gui.TextureID]vk.DescriptorSet),
		slots:      make([]guiSlotBuffers, slotCount),
	}

	layoutBinding := vk.DescriptorSetLayoutBinding{
		Binding:         0,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
	}
	layoutCreateInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: 1,
		PBindings:    []vk.DescriptorSetLayoutBinding{layoutBinding},
	}
	if res := vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &layoutCreateInfo, context.Allocator, &backend.descriptorSetLayout); res != vk.Success {
		err := resultErr("vkCreateDescriptorSetLayout", res)
		core.LogError(err.Error())
		return nil, err
	}

	poolSize := vk.DescriptorPoolSize{
		Type:            vk.DescriptorTypeCombinedImageSampler,
		DescriptorCount: guiMaxTextures,
	}
	poolCreateInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       guiMaxTextures,
		PoolSizeCount: 1,
		PPoolSizes:    []vk.DescriptorPoolSize{poolSize},
	}
	if res := vk.CreateDescriptorPool(context.Device.LogicalDevice, &poolCreateInfo, context.Allocator, &backend.descriptorPool); res != vk.Success {
		backend.GuiBackendDestroy(context)
		err := resultErr("vkCreateDescriptorPool", res)
		core.LogError(err.Error())
		return nil, err
	}

	pipeline, err := GuiPipelineCreate(context, renderpass, backend.descriptorSetLayout, vertModule, fragModule)
	if err != nil {
		backend.GuiBackendDestroy(context)
		return nil, err
	}
	backend.Pipeline = pipeline

	if err := backend.uploadFontAtlas(context, font); err != nil {
		backend.GuiBackendDestroy(context)
		return nil, err
	}

	core.LogInfo("GUI backend created, font atlas %dx%d.", font.Width, font.Height)
	return backend, nil
}

func (gb *GuiBackend) GuiBackendDestroy(context *VulkanContext) {
	for i := range gb.slots {
		slot := &gb.slots[i]
		if slot.Vertex != nil {
			slot.Vertex.BufferDestroy(context)
			slot.Vertex = nil
		}
		if slot.Index != nil {
			slot.Index.BufferDestroy(context)
			slot.Index = nil
		}
	}
	if gb.fontImage != nil {
		gb.fontImage.ImageDestroy(context)
		gb.fontImage = nil
	}
	if gb.fontSampler != vk.NullSampler {
		vk.DestroySampler(context.Device.LogicalDevice, gb.fontSampler, context.Allocator)
		gb.fontSampler = vk.NullSampler
	}
	if gb.Pipeline != nil {
		gb.Pipeline.PipelineDestroy(context)
		gb.Pipeline = nil
	}
	if gb.descriptorPool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(context.Device.LogicalDevice, gb.descriptorPool, context.Allocator)
		gb.descriptorPool = vk.NullDescriptorPool
	}
	if gb.descriptorSetLayout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(context.Device.LogicalDevice, gb.descriptorSetLayout, context.Allocator)
		gb.descriptorSetLayout = vk.NullDescriptorSetLayout
	}
}

// DescriptorSetLayout exposes the layout for pipeline rebuilds.
func (gb *GuiBackend) DescriptorSetLayout() vk.DescriptorSetLayout {
	return gb.descriptorSetLayout
}

// ReplacePipeline swaps in a pipeline built from recompiled shaders.
func (gb *GuiBackend) ReplacePipeline(context *VulkanContext, pipeline *VulkanPipeline) {
	gb.Pipeline.PipelineDestroy(context)
	gb.Pipeline = pipeline
}

// RegisterTexture binds a view and sampler into a descriptor set and
// returns the handle draw lists reference it by.
func (gb *GuiBackend) RegisterTexture(view vk.ImageView, sampler vk.Sampler) (gui.TextureID, error) {
	id := uuid.New()
	if err := gb.registerTextureAs(id, view, sampler); err != nil {
		return gui.TextureID{}, err
	}
	return id, nil
}

func (gb *GuiBackend) registerTextureAs(id gui.TextureID, view vk.ImageView, sampler vk.Sampler) error {
	device := gb.device
	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     gb.descriptorPool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{gb.descriptorSetLayout},
	}

	var descriptorSet vk.DescriptorSet
	if res := vk.AllocateDescriptorSets(device, &allocateInfo, &descriptorSet); res != vk.Success {
		err := resultErr("vkAllocateDescriptorSets", res)
		core.LogError(err.Error())
		return err
	}

	imageInfo := vk.DescriptorImageInfo{
		Sampler:     sampler,
		ImageView:   view,
		ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          descriptorSet,
		DstBinding:      0,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		PImageInfo:      []vk.DescriptorImageInfo{imageInfo},
	}
	vk.UpdateDescriptorSets(device, 1, []vk.WriteDescriptorSet{write}, 0, nil)

	gb.textures[id] = descriptorSet
	return nil
}

// UnregisterTexture releases the texture's descriptor set. Draw lists
// still referencing the id afterwards are skipped at record time.
func (gb *GuiBackend) UnregisterTexture(id gui.TextureID) {
	descriptorSet, ok := gb.textures[id]
	if !ok {
		return
	}
	delete(gb.textures, id)
	vk.FreeDescriptorSets(gb.device, gb.descriptorPool, 1, &descriptorSet)
}

// Record writes the whole composition pass for one frame: clear the
// swapchain image, then replay the draw list.
func (gb *GuiBackend) Record(context *VulkanContext, commandBuffer vk.CommandBuffer, slot int, framebuffer vk.Framebuffer, extent vk.Extent2D, scaleX, scaleY float32, list *gui.DrawList) error {
	if err := gb.uploadDrawList(context, slot, list); err != nil {
		return err
	}

	clearValues := make([]vk.ClearValue, 1)
	clearValues[0].SetColor([]float32{0.10, 0.10, 0.10, 1.0})

	renderPassBeginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  gb.Renderpass,
		Framebuffer: framebuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: extent,
		},
		ClearValueCount: 1,
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(commandBuffer, &renderPassBeginInfo, vk.SubpassContentsInline)

	if len(list.Commands) > 0 {
		viewport := vk.Viewport{
			Width:    float32(extent.Width),
			Height:   float32(extent.Height),
			MinDepth: 0,
			MaxDepth: 1,
		}
		vk.CmdSetViewport(commandBuffer, 0, 1, []vk.Viewport{viewport})

		vk.CmdBindPipeline(commandBuffer, vk.PipelineBindPointGraphics, gb.Pipeline.Handle)

		buffers := &gb.slots[slot]
		vk.CmdBindVertexBuffers(commandBuffer, 0, 1, []vk.Buffer{buffers.Vertex.Handle}, []vk.DeviceSize{0})
		vk.CmdBindIndexBuffer(commandBuffer, buffers.Index.Handle, 0, vk.IndexTypeUint32)

		// Map logical pixel coordinates to clip space.
		pushData := [4]float32{
			2 * scaleX / float32(extent.Width),
			2 * scaleY / float32(extent.Height),
			-1,
			-1,
		}
		vk.CmdPushConstants(commandBuffer, gb.Pipeline.Layout,
			vk.ShaderStageFlags(vk.ShaderStageVertexBit), 0, 16, unsafe.Pointer(&pushData[0]))

		for _, cmd := range list.Commands {
			descriptorSet, ok := gb.textures[cmd.Texture]
			if !ok {
				core.LogWarn("Draw list references unknown texture %s, skipping.", cmd.Texture)
				continue
			}
			vk.CmdBindDescriptorSets(commandBuffer, vk.PipelineBindPointGraphics,
				gb.Pipeline.Layout, 0, 1, []vk.DescriptorSet{descriptorSet}, 0, nil)

			scissor := clipToScissor(cmd, scaleX, scaleY, extent)
			if scissor.Extent.Width == 0 || scissor.Extent.Height == 0 {
				continue
			}
			vk.CmdSetScissor(commandBuffer, 0, 1, []vk.Rect2D{scissor})
			vk.CmdDrawIndexed(commandBuffer, cmd.IndexCount, 1, cmd.IndexOffset, 0, 0)
		}
	}

	vk.CmdEndRenderPass(commandBuffer)
	return nil
}

// clipToScissor converts a logical-space clip rectangle into a pixel
// scissor clamped to the framebuffer.
func clipToScissor(cmd gui.DrawCommand, scaleX, scaleY float32, extent vk.Extent2D) vk.Rect2D {
	x0 := m32.Clamp(cmd.ClipX*scaleX, 0, float32(extent.Width))
	y0 := m32.Clamp(cmd.ClipY*scaleY, 0, float32(extent.Height))
	x1 := m32.Clamp((cmd.ClipX+cmd.ClipW)*scaleX, 0, float32(extent.Width))
	y1 := m32.Clamp((cmd.ClipY+cmd.ClipH)*scaleY, 0, float32(extent.Height))
	if x1 <= x0 || y1 <= y0 {
		return vk.Rect2D{}
	}
	return vk.Rect2D{
		Offset: vk.Offset2D{X: int32(x0), Y: int32(y0)},
		Extent: vk.Extent2D{Width: uint32(x1 - x0), Height: uint32(y1 - y0)},
	}
}

func (gb *GuiBackend) uploadDrawList(context *VulkanContext, slot int, list *gui.DrawList) error {
	if len(list.Vertices) == 0 {
		return nil
	}
	buffers := &gb.slots[slot]

	vertexSize := int(unsafe.Sizeof(gui.DrawVertex{}))
	if err := ensureBuffer(context, &buffers.Vertex, &buffers.VertexCapacity, len(list.Vertices), guiInitialVertexCapacity, vertexSize, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)); err != nil {
		return err
	}
	if err := ensureBuffer(context, &buffers.Index, &buffers.IndexCapacity, len(list.Indices), guiInitialIndexCapacity, 4, vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit)); err != nil {
		return err
	}

	vertexBytes := unsafe.Slice((*byte)(unsafe.Pointer(&list.Vertices[0])), len(list.Vertices)*vertexSize)
	buffers.Vertex.Write(0, vertexBytes)
	indexBytes := unsafe.Slice((*byte)(unsafe.Pointer(&list.Indices[0])), len(list.Indices)*4)
	buffers.Index.Write(0, indexBytes)
	return nil
}

// ensureBuffer grows a slot buffer geometrically so steady-state frames
// never reallocate.
func ensureBuffer(context *VulkanContext, buffer **VulkanBuffer, capacity *int, needed, initial, elementSize int, usage vk.BufferUsageFlags) error {
	if *buffer != nil && needed <= *capacity {
		return nil
	}
	newCapacity := *capacity
	if newCapacity == 0 {
		newCapacity = initial
	}
	for newCapacity < needed {
		newCapacity *= 2
	}
	if *buffer != nil {
		(*buffer).BufferDestroy(context)
	}
	created, err := BufferCreate(
		context,
		vk.DeviceSize(newCapacity*elementSize),
		usage,
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		*buffer = nil
		*capacity = 0
		return err
	}
	*buffer = created
	*capacity = newCapacity
	return nil
}

// uploadFontAtlas pushes the CPU-side atlas into a sampled image through a
// staging buffer and registers it under the font's texture handle.
func (gb *GuiBackend) uploadFontAtlas(context *VulkanContext, font *gui.Font) error {
	if len(font.Pixels) != int(font.Width*font.Height*4) {
		return fmt.Errorf("font atlas pixel data is %d bytes, want %d", len(font.Pixels), font.Width*font.Height*4)
	}

	image, err := ImageCreate(
		context,
		font.Width, font.Height,
		vk.FormatR8g8b8a8Unorm,
		vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageSampledBit|vk.ImageUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		vk.ImageAspectFlags(vk.ImageAspectColorBit))
	if err != nil {
		return err
	}

	staging, err := BufferCreate(
		context,
		vk.DeviceSize(len(font.Pixels)),
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		image.ImageDestroy(context)
		return err
	}
	staging.Write(0, font.Pixels)

	commandBuffer, err := CommandBufferBeginSingleUse(context)
	if err != nil {
		staging.BufferDestroy(context)
		image.ImageDestroy(context)
		return err
	}

	subresourceRange := vk.ImageSubresourceRange{
		AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
		LevelCount: 1,
		LayerCount: 1,
	}

	toTransfer := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           vk.ImageLayoutUndefined,
		NewLayout:           vk.ImageLayoutTransferDstOptimal,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image.Handle,
		SubresourceRange:    subresourceRange,
		DstAccessMask:       vk.AccessFlags(vk.AccessTransferWriteBit),
	}
	vk.CmdPipelineBarrier(commandBuffer,
		vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{toTransfer})

	region := vk.BufferImageCopy{
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LayerCount: 1,
		},
		ImageExtent: vk.Extent3D{Width: font.Width, Height: font.Height, Depth: 1},
	}
	vk.CmdCopyBufferToImage(commandBuffer, staging.Handle, image.Handle,
		vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})

	toSampled := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           vk.ImageLayoutTransferDstOptimal,
		NewLayout:           vk.ImageLayoutShaderReadOnlyOptimal,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image.Handle,
		SubresourceRange:    subresourceRange,
		SrcAccessMask:       vk.AccessFlags(vk.AccessTransferWriteBit),
		DstAccessMask:       vk.AccessFlags(vk.AccessShaderReadBit),
	}
	vk.CmdPipelineBarrier(commandBuffer,
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{toSampled})

	if err := CommandBufferEndSingleUse(context, commandBuffer); err != nil {
		staging.BufferDestroy(context)
		image.ImageDestroy(context)
		return err
	}
	staging.BufferDestroy(context)

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
	if res := vk.CreateSampler(context.Device.LogicalDevice, &samplerCreateInfo, context.Allocator, &gb.fontSampler); res != vk.Success {
		image.ImageDestroy(context)
		err := resultErr("vkCreateSampler", res)
		core.LogError(err.Error())
		return err
	}

	if err := gb.registerTextureAs(font.Texture, image.View, gb.fontSampler); err != nil {
		image.ImageDestroy(context)
		return err
	}
	gb.fontImage = image
	return nil
}
