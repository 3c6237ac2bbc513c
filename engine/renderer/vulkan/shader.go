package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/cubeworks/prism/engine/assets"
	"github.com/cubeworks/prism/engine/core"
)

func ShaderModuleCreate(context *VulkanContext, words []uint32) (vk.ShaderModule, error) {
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(words) * 4),
		PCode:    words,
	}

	var module vk.ShaderModule
	if res := vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &module); res != vk.Success {
		err := resultErr("vkCreateShaderModule", res)
		core.LogError(err.Error())
		return vk.NullShaderModule, err
	}
	return module, nil
}

// ShaderModuleLoad reads a SPIR-V binary from disk and wraps it in a
// module.
func ShaderModuleLoad(context *VulkanContext, path string) (vk.ShaderModule, error) {
	words, err := assets.LoadSPIRV(path)
	if err != nil {
		core.LogError(err.Error())
		return vk.NullShaderModule, err
	}
	return ShaderModuleCreate(context, words)
}

func shaderStage(stage vk.ShaderStageFlagBits, module vk.ShaderModule) vk.PipelineShaderStageCreateInfo {
	return vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  stage,
		Module: module,
		PName:  VulkanSafeString("main"),
	}
}
