package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/cubeworks/prism/engine/core"
)

// VulkanPipeline pairs a pipeline with its layout so both are destroyed
// together.
type VulkanPipeline struct {
	Handle vk.Pipeline
	Layout vk.PipelineLayout
}

func (vp *VulkanPipeline) PipelineDestroy(context *VulkanContext) {
	if vp.Handle != vk.NullPipeline {
		vk.DestroyPipeline(context.Device.LogicalDevice, vp.Handle, context.Allocator)
		vp.Handle = vk.NullPipeline
	}
	if vp.Layout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(context.Device.LogicalDevice, vp.Layout, context.Allocator)
		vp.Layout = vk.NullPipelineLayout
	}
}

// CubePipelineCreate builds the offscreen scene pipeline. Vertices are
// interleaved position and color, the whole transform rides in a push
// constant, and viewport and scissor stay dynamic so the pipeline survives
// panel resizes.
func CubePipelineCreate(context *VulkanContext, renderpass vk.RenderPass, vertModule, fragModule vk.ShaderModule) (*VulkanPipeline, error) {
	pipeline := &VulkanPipeline{}

	pushConstantRange := vk.PushConstantRange{
		StageFlags: vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		Offset:     0,
		Size:       16 * 4, // one mat4
	}

	layoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		PushConstantRangeCount: 1,
		PPushConstantRanges:    []vk.PushConstantRange{pushConstantRange},
	}
	if res := vk.CreatePipelineLayout(context.Device.LogicalDevice, &layoutCreateInfo, context.Allocator, &pipeline.Layout); res != vk.Success {
		err := resultErr("vkCreatePipelineLayout", res)
		core.LogError(err.Error())
		return nil, err
	}

	bindings := []vk.VertexInputBindingDescription{{
		Binding:   0,
		Stride:    6 * 4, // vec3 position, vec3 color
		InputRate: vk.VertexInputRateVertex,
	}}
	attributes := []vk.VertexInputAttributeDescription{
		{Location: 0, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 0},
		{Location: 1, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 3 * 4},
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:            vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:  vk.True,
		DepthWriteEnable: vk.True,
		DepthCompareOp:   vk.CompareOpLess,
	}

	colorBlendAttachment := vk.PipelineColorBlendAttachmentState{
		BlendEnable: vk.False,
		ColorWriteMask: vk.ColorComponentFlags(
			vk.ColorComponentRBit | vk.ColorComponentGBit |
				vk.ColorComponentBBit | vk.ColorComponentABit),
	}

	err := graphicsPipelineCreate(context, pipeline, renderpass, vertModule, fragModule,
		bindings, attributes, vk.CullModeFlags(vk.CullModeNone), &depthStencil, colorBlendAttachment)
	if err != nil {
		pipeline.PipelineDestroy(context)
		return nil, err
	}

	core.LogDebug("Cube pipeline created.")
	return pipeline, nil
}

// GuiPipelineCreate builds the composition pipeline for GUI geometry and
// the panel quad. Positions are in pixels; a scale and translate push
// constant maps them to clip space. Alpha blending is on for text.
func GuiPipelineCreate(context *VulkanContext, renderpass vk.RenderPass, descriptorSetLayout vk.DescriptorSetLayout, vertModule, fragModule vk.ShaderModule) (*VulkanPipeline, error) {
	pipeline := &VulkanPipeline{}

	pushConstantRange := vk.PushConstantRange{
		StageFlags: vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		Offset:     0,
		Size:       4 * 4, // vec2 scale, vec2 translate
	}

	layoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         1,
		PSetLayouts:            []vk.DescriptorSetLayout{descriptorSetLayout},
		PushConstantRangeCount: 1,
		PPushConstantRanges:    []vk.PushConstantRange{pushConstantRange},
	}
	if res := vk.CreatePipelineLayout(context.Device.LogicalDevice, &layoutCreateInfo, context.Allocator, &pipeline.Layout); res != vk.Success {
		err := resultErr("vkCreatePipelineLayout", res)
		core.LogError(err.Error())
		return nil, err
	}

	bindings := []vk.VertexInputBindingDescription{{
		Binding:   0,
		Stride:    5 * 4, // vec2 position, vec2 uv, packed color
		InputRate: vk.VertexInputRateVertex,
	}}
	attributes := []vk.VertexInputAttributeDescription{
		{Location: 0, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: 0},
		{Location: 1, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: 2 * 4},
		{Location: 2, Binding: 0, Format: vk.FormatR8g8b8a8Unorm, Offset: 4 * 4},
	}

	colorBlendAttachment := vk.PipelineColorBlendAttachmentState{
		BlendEnable:         vk.True,
		SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
		DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorOne,
		DstAlphaBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		AlphaBlendOp:        vk.BlendOpAdd,
		ColorWriteMask: vk.ColorComponentFlags(
			vk.ColorComponentRBit | vk.ColorComponentGBit |
				vk.ColorComponentBBit | vk.ColorComponentABit),
	}

	err := graphicsPipelineCreate(context, pipeline, renderpass, vertModule, fragModule,
		bindings, attributes, vk.CullModeFlags(vk.CullModeNone), nil, colorBlendAttachment)
	if err != nil {
		pipeline.PipelineDestroy(context)
		return nil, err
	}

	core.LogDebug("GUI pipeline created.")
	return pipeline, nil
}

func graphicsPipelineCreate(
	context *VulkanContext,
	pipeline *VulkanPipeline,
	renderpass vk.RenderPass,
	vertModule, fragModule vk.ShaderModule,
	bindings []vk.VertexInputBindingDescription,
	attributes []vk.VertexInputAttributeDescription,
	cullMode vk.CullModeFlags,
	depthStencil *vk.PipelineDepthStencilStateCreateInfo,
	colorBlendAttachment vk.PipelineColorBlendAttachmentState) error {

	stages := []vk.PipelineShaderStageCreateInfo{
		shaderStage(vk.ShaderStageVertexBit, vertModule),
		shaderStage(vk.ShaderStageFragmentBit, fragModule),
	}

	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(bindings)),
		PVertexBindingDescriptions:      bindings,
		VertexAttributeDescriptionCount: uint32(len(attributes)),
		PVertexAttributeDescriptions:    attributes,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: vk.PrimitiveTopologyTriangleList,
	}

	// Viewport and scissor are dynamic; the counts still must be one.
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	rasterizer := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		LineWidth:   1.0,
		CullMode:    cullMode,
		FrontFace:   vk.FrontFaceCounterClockwise,
	}

	multisampling := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
	}

	colorBlending := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachment},
	}

	dynamicStates := []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}
	dynamicState := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisampling,
		PDepthStencilState:  depthStencil,
		PColorBlendState:    &colorBlending,
		PDynamicState:       &dynamicState,
		Layout:              pipeline.Layout,
		RenderPass:          renderpass,
		Subpass:             0,
	}

	pipelines := make([]vk.Pipeline, 1)
	if res := vk.CreateGraphicsPipelines(
		context.Device.LogicalDevice,
		vk.NullPipelineCache,
		1,
		[]vk.GraphicsPipelineCreateInfo{pipelineCreateInfo},
		context.Allocator,
		pipelines); res != vk.Success {
		err := resultErr("vkCreateGraphicsPipelines", res)
		core.LogError(err.Error())
		return err
	}
	pipeline.Handle = pipelines[0]
	return nil
}
