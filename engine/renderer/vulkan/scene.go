package vulkan

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"

	"github.com/cubeworks/prism/engine/core"
)

// SceneVertex matches the cube pipeline's vertex input layout.
type SceneVertex struct {
	Position mgl32.Vec3
	Color    mgl32.Vec3
}

// CubeVertices returns the non-indexed cube, six faces of two triangles
// each, one flat color per face.
func CubeVertices() []SceneVertex {
	face := func(color mgl32.Vec3, corners [4]mgl32.Vec3) []SceneVertex {
		return []SceneVertex{
			{corners[0], color}, {corners[1], color}, {corners[2], color},
			{corners[0], color}, {corners[2], color}, {corners[3], color},
		}
	}

	var vertices []SceneVertex
	// +X red
	vertices = append(vertices, face(mgl32.Vec3{1.0, 0.2, 0.2}, [4]mgl32.Vec3{
		{+0.5, -0.5, -0.5}, {+0.5, +0.5, -0.5}, {+0.5, +0.5, +0.5}, {+0.5, -0.5, +0.5},
	})...)
	// -X green
	vertices = append(vertices, face(mgl32.Vec3{0.2, 1.0, 0.2}, [4]mgl32.Vec3{
		{-0.5, -0.5, +0.5}, {-0.5, +0.5, +0.5}, {-0.5, +0.5, -0.5}, {-0.5, -0.5, -0.5},
	})...)
	// +Y blue
	vertices = append(vertices, face(mgl32.Vec3{0.2, 0.2, 1.0}, [4]mgl32.Vec3{
		{-0.5, +0.5, -0.5}, {-0.5, +0.5, +0.5}, {+0.5, +0.5, +0.5}, {+0.5, +0.5, -0.5},
	})...)
	// -Y yellow
	vertices = append(vertices, face(mgl32.Vec3{1.0, 1.0, 0.2}, [4]mgl32.Vec3{
		{-0.5, -0.5, +0.5}, {-0.5, -0.5, -0.5}, {+0.5, -0.5, -0.5}, {+0.5, -0.5, +0.5},
	})...)
	// +Z magenta
	vertices = append(vertices, face(mgl32.Vec3{1.0, 0.2, 1.0}, [4]mgl32.Vec3{
		{-0.5, -0.5, +0.5}, {+0.5, -0.5, +0.5}, {+0.5, +0.5, +0.5}, {-0.5, +0.5, +0.5},
	})...)
	// -Z cyan
	vertices = append(vertices, face(mgl32.Vec3{0.2, 1.0, 1.0}, [4]mgl32.Vec3{
		{+0.5, -0.5, -0.5}, {-0.5, -0.5, -0.5}, {-0.5, +0.5, -0.5}, {+0.5, +0.5, -0.5},
	})...)
	return vertices
}

// SceneMVP builds the push-constant transform for a given time and target
// aspect. The cube tumbles about two axes; the camera orbits nothing, it
// sits fixed with Z up. The projection's Y axis is flipped for Vulkan's
// clip space.
func SceneMVP(elapsed float64, width, height uint32) mgl32.Mat4 {
	t := float32(elapsed)

	model := mgl32.HomogRotate3DZ(t).Mul4(mgl32.HomogRotate3DY(0.6 * t))

	view := mgl32.LookAtV(
		mgl32.Vec3{2.4, -3.2, 1.8},
		mgl32.Vec3{0, 0, 0},
		mgl32.Vec3{0, 0, 1},
	)

	aspect := float32(1.0)
	if height != 0 {
		aspect = float32(width) / float32(height)
	}
	proj := mgl32.Perspective(mgl32.DegToRad(60), aspect, 0.1, 100.0)
	// GL clip space has Y up, Vulkan has Y down.
	proj[5] *= -1

	return proj.Mul4(view).Mul4(model)
}

// SceneRenderer owns the cube geometry and records the offscreen pass.
type SceneRenderer struct {
	Pipeline     *VulkanPipeline
	VertexBuffer *VulkanBuffer
	VertexCount  uint32

	targets *OffscreenTargets
}

func SceneRendererCreate(context *VulkanContext, targets *OffscreenTargets, vertModule, fragModule vk.ShaderModule) (*SceneRenderer, error) {
	pipeline, err := CubePipelineCreate(context, targets.Renderpass, vertModule, fragModule)
	if err != nil {
		return nil, err
	}

	vertices := CubeVertices()
	byteLen := len(vertices) * int(unsafe.Sizeof(SceneVertex{}))
	data := unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), byteLen)

	// Host visible is fine here, the geometry is tiny and written once.
	vertexBuffer, err := BufferCreate(
		context,
		vk.DeviceSize(byteLen),
		vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		pipeline.PipelineDestroy(context)
		return nil, err
	}
	vertexBuffer.Write(0, data)

	core.LogDebug("Scene renderer created with %d vertices.", len(vertices))
	return &SceneRenderer{
		Pipeline:     pipeline,
		VertexBuffer: vertexBuffer,
		VertexCount:  uint32(len(vertices)),
		targets:      targets,
	}, nil
}

func (sr *SceneRenderer) SceneRendererDestroy(context *VulkanContext) {
	if sr.VertexBuffer != nil {
		sr.VertexBuffer.BufferDestroy(context)
		sr.VertexBuffer = nil
	}
	if sr.Pipeline != nil {
		sr.Pipeline.PipelineDestroy(context)
		sr.Pipeline = nil
	}
}

// ReplacePipeline swaps in a pipeline built from recompiled shaders. The
// caller guarantees the device is idle.
func (sr *SceneRenderer) ReplacePipeline(context *VulkanContext, pipeline *VulkanPipeline) {
	sr.Pipeline.PipelineDestroy(context)
	sr.Pipeline = pipeline
}

// Record writes the offscreen pass for one slot into its command buffer.
func (sr *SceneRenderer) Record(commandBuffer vk.CommandBuffer, slot int, elapsed float64) {
	width, height := sr.targets.SlotSize(slot)

	clearValues := make([]vk.ClearValue, 2)
	clearValues[0].SetColor([]float32{0.18, 0.18, 0.18, 1.0})
	clearValues[1].SetDepthStencil(1.0, 0)

	renderPassBeginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  sr.targets.Renderpass,
		Framebuffer: sr.targets.SlotFramebuffer(slot),
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: vk.Extent2D{Width: width, Height: height},
		},
		ClearValueCount: 2,
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(commandBuffer, &renderPassBeginInfo, vk.SubpassContentsInline)

	viewport := vk.Viewport{
		X: 0, Y: 0,
		Width:    float32(width),
		Height:   float32(height),
		MinDepth: 0,
		MaxDepth: 1,
	}
	vk.CmdSetViewport(commandBuffer, 0, 1, []vk.Viewport{viewport})
	scissor := vk.Rect2D{Extent: vk.Extent2D{Width: width, Height: height}}
	vk.CmdSetScissor(commandBuffer, 0, 1, []vk.Rect2D{scissor})

	vk.CmdBindPipeline(commandBuffer, vk.PipelineBindPointGraphics, sr.Pipeline.Handle)
	vk.CmdBindVertexBuffers(commandBuffer, 0, 1, []vk.Buffer{sr.VertexBuffer.Handle}, []vk.DeviceSize{0})

	mvp := SceneMVP(elapsed, width, height)
	vk.CmdPushConstants(commandBuffer, sr.Pipeline.Layout,
		vk.ShaderStageFlags(vk.ShaderStageVertexBit), 0, 16*4, unsafe.Pointer(&mvp[0]))

	vk.CmdDraw(commandBuffer, sr.VertexCount, 1, 0, 0)
	vk.CmdEndRenderPass(commandBuffer)
}
