// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"errors"
	"fmt"

	"github.com/devblok/windmill/model"
	vk "github.com/devblok/vulkan"
)

func (v *VulkanRenderer) createPipelineLayout() error {
	bindings := []vk.DescriptorSetLayoutBinding{
		{
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeSampledImage,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
			Binding:         0,
		},
		{
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeSampler,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
			Binding:         1,
		},
	}
	dslci := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}

	var descriptorSetLayout vk.DescriptorSetLayout
	if err := vk.Error(vk.CreateDescriptorSetLayout(v.logicalDevice, &dslci, nil, &descriptorSetLayout)); err != nil {
		return errors.New("vk.CreateDescriptorSetLayout(): " + err.Error())
	}
	v.descriptorSetLayout = descriptorSetLayout

	plci := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: 1,
		PSetLayouts:    []vk.DescriptorSetLayout{v.descriptorSetLayout},
	}

	var pipelineLayout vk.PipelineLayout
	if err := vk.Error(vk.CreatePipelineLayout(v.logicalDevice, &plci, nil, &pipelineLayout)); err != nil {
		return errors.New("vk.CreatePipelineLayout(): " + err.Error())
	}
	v.pipelineLayout = pipelineLayout
	return nil
}

// shaderStages builds the stage infos of a vertex and fragment shader pair
func (v *VulkanRenderer) shaderStages(names ...string) ([]vk.PipelineShaderStageCreateInfo, error) {
	stages := make([]vk.PipelineShaderStageCreateInfo, 0, len(names))
	for _, name := range names {
		shader, ok := v.shaders[name]
		if !ok {
			return nil, fmt.Errorf("shader %q not loaded", name)
		}

		var stage vk.ShaderStageFlagBits
		switch shader.Type() {
		case VertexShaderType:
			stage = vk.ShaderStageVertexBit
		case FragmentShaderType:
			stage = vk.ShaderStageFragmentBit
		default:
			return nil, errors.New("unsupported shader type attempted creation")
		}

		shaderModule, ok := shader.ShaderModule().(vk.ShaderModule)
		if !ok {
			return nil, errors.New("failed to assert shader module to it's original type")
		}

		stages = append(stages, vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  stage,
			Module: shaderModule,
			PName:  safeString(shader.EntryPoint()),
		})
	}
	return stages, nil
}

// lineWidth is the configured border width, clamped to what the device can do
func (v *VulkanRenderer) lineWidth() float32 {
	if !v.wideLines || v.configuration.LineWidth < 1 {
		return 1
	}
	return v.configuration.LineWidth
}

// createPipelines creates the interior and the border pipeline.
// Interiors are culled to their clockwise front faces, borders are never culled.
func (v *VulkanRenderer) createPipelines() error {
	interiorFragment := interiorShader
	if v.texture != nil {
		interiorFragment = texturedShader
	}

	interiorStages, err := v.shaderStages(vaneShader, interiorFragment)
	if err != nil {
		return err
	}
	borderStages, err := v.shaderStages(vaneShader, bordersShader)
	if err != nil {
		return err
	}

	vertexAttributeDescriptions := model.VertexAttributeDescriptions()
	vertexBindingDescriptions := model.VertexBindingDescriptions()
	vertexInput := &vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexAttributeDescriptionCount: uint32(len(vertexAttributeDescriptions)),
		PVertexAttributeDescriptions:    vertexAttributeDescriptions,
		VertexBindingDescriptionCount:   uint32(len(vertexBindingDescriptions)),
		PVertexBindingDescriptions:      vertexBindingDescriptions,
	}

	var depthTest vk.Bool32 = vk.False
	if v.configuration.DepthTest {
		depthTest = vk.True
	}
	depthStencil := &vk.PipelineDepthStencilStateCreateInfo{
		SType:            vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:  depthTest,
		DepthWriteEnable: depthTest,
		// Depth grows towards the camera
		DepthCompareOp:        vk.CompareOpGreaterOrEqual,
		DepthBoundsTestEnable: vk.False,
		StencilTestEnable:     vk.False,
		Back: vk.StencilOpState{
			FailOp:    vk.StencilOpKeep,
			PassOp:    vk.StencilOpKeep,
			CompareOp: vk.CompareOpAlways,
		},
		Front: vk.StencilOpState{
			FailOp:    vk.StencilOpKeep,
			PassOp:    vk.StencilOpKeep,
			CompareOp: vk.CompareOpAlways,
		},
	}

	viewportState := &vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}
	multisample := &vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
	}
	colorBlend := &vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: 1,
		PAttachments: []vk.PipelineColorBlendAttachmentState{{
			ColorWriteMask: 0xF,
			BlendEnable:    vk.False,
		}},
	}
	dynamicState := &vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: 2,
		PDynamicStates: []vk.DynamicState{
			vk.DynamicStateScissor,
			vk.DynamicStateViewport,
		},
	}

	gpci := []vk.GraphicsPipelineCreateInfo{
		{
			SType:             vk.StructureTypeGraphicsPipelineCreateInfo,
			StageCount:        uint32(len(interiorStages)),
			PStages:           interiorStages,
			PVertexInputState: vertexInput,
			PInputAssemblyState: &vk.PipelineInputAssemblyStateCreateInfo{
				SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
				Topology: vk.PrimitiveTopologyTriangleList,
			},
			PViewportState: viewportState,
			PRasterizationState: &vk.PipelineRasterizationStateCreateInfo{
				SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
				PolygonMode: vk.PolygonModeFill,
				CullMode:    vk.CullModeFlags(vk.CullModeBackBit),
				FrontFace:   vk.FrontFaceClockwise,
				LineWidth:   1.0,
			},
			PDepthStencilState: depthStencil,
			PMultisampleState:  multisample,
			PColorBlendState:   colorBlend,
			PDynamicState:      dynamicState,
			Layout:             v.pipelineLayout,
			RenderPass:         v.renderPass,
		},
		{
			SType:             vk.StructureTypeGraphicsPipelineCreateInfo,
			StageCount:        uint32(len(borderStages)),
			PStages:           borderStages,
			PVertexInputState: vertexInput,
			PInputAssemblyState: &vk.PipelineInputAssemblyStateCreateInfo{
				SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
				Topology: vk.PrimitiveTopologyLineList,
			},
			PViewportState: viewportState,
			PRasterizationState: &vk.PipelineRasterizationStateCreateInfo{
				SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
				PolygonMode: vk.PolygonModeFill,
				CullMode:    vk.CullModeFlags(vk.CullModeNone),
				FrontFace:   vk.FrontFaceClockwise,
				LineWidth:   v.lineWidth(),
			},
			PDepthStencilState: depthStencil,
			PMultisampleState:  multisample,
			PColorBlendState:   colorBlend,
			PDynamicState:      dynamicState,
			Layout:             v.pipelineLayout,
			RenderPass:         v.renderPass,
		},
	}

	pipelines := make([]vk.Pipeline, len(gpci))
	if err := vk.Error(vk.CreateGraphicsPipelines(v.logicalDevice, v.pipelineCache, uint32(len(gpci)), gpci, nil, pipelines)); err != nil {
		return errors.New("vk.CreateGraphicsPipelines(): " + err.Error())
	}
	v.interiorPipeline = pipelines[0]
	v.borderPipeline = pipelines[1]
	return nil
}
