// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"errors"
	"fmt"
	"image"
	"unsafe"

	vk "github.com/devblok/vulkan"
	log "github.com/sirupsen/logrus"
)

const textureFormat = vk.FormatR8g8b8a8Unorm

func (v *VulkanRenderer) createTextureSampler() error {
	sci := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vk.FilterLinear,
		MinFilter:               vk.FilterLinear,
		AddressModeU:            vk.SamplerAddressModeClampToEdge,
		AddressModeV:            vk.SamplerAddressModeClampToEdge,
		AddressModeW:            vk.SamplerAddressModeClampToEdge,
		AnisotropyEnable:        vk.False,
		MaxAnisotropy:           1,
		BorderColor:             vk.BorderColorFloatOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MipmapMode:              vk.SamplerMipmapModeLinear,
		MipLodBias:              0,
		MinLod:                  0,
		MaxLod:                  0,
	}

	var textureSampler vk.Sampler
	if err := vk.Error(vk.CreateSampler(v.logicalDevice, &sci, nil, &textureSampler)); err != nil {
		return fmt.Errorf("vk.CreateSampler(): %s", err.Error())
	}
	v.textureSampler = textureSampler

	return nil
}

// createTextureImage uploads the texture through a staging buffer
// into a device local image ready for sampling.
func (v *VulkanRenderer) createTextureImage(texture *image.RGBA) error {
	bounds := texture.Bounds()
	width, height := uint32(bounds.Dx()), uint32(bounds.Dy())
	pixels := GetPixels(texture, 0)

	var stagingBuffer vk.Buffer
	if err := v.createBuffer(&stagingBuffer, len(pixels), vk.BufferUsageTransferSrcBit); err != nil {
		return err
	}
	defer vk.DestroyBuffer(v.logicalDevice, stagingBuffer, nil)

	var memoryRequirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(v.logicalDevice, stagingBuffer, &memoryRequirements)
	memoryRequirements.Deref()

	var stagingMemory vk.DeviceMemory
	if err := v.allocateMemory(&stagingMemory, memoryRequirements.Size, memoryRequirements.MemoryTypeBits, vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit); err != nil {
		return err
	}
	defer vk.FreeMemory(v.logicalDevice, stagingMemory, nil)

	if err := vk.Error(vk.BindBufferMemory(v.logicalDevice, stagingBuffer, stagingMemory, 0)); err != nil {
		return fmt.Errorf("vk.BindBufferMemory(): %s", err.Error())
	}

	var mappedMemory unsafe.Pointer
	if err := vk.Error(vk.MapMemory(v.logicalDevice, stagingMemory, 0, vk.DeviceSize(len(pixels)), 0, &mappedMemory)); err != nil {
		return fmt.Errorf("vk.MapMemory(): %s", err.Error())
	}
	copy(unsafe.Slice((*uint8)(mappedMemory), len(pixels)), pixels)
	vk.UnmapMemory(v.logicalDevice, stagingMemory)

	ici := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent: vk.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        textureFormat,
		Tiling:        vk.ImageTilingOptimal,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         vk.ImageUsageFlags(vk.ImageUsageTransferDstBit | vk.ImageUsageSampledBit),
		SharingMode:   vk.SharingModeExclusive,
		Samples:       vk.SampleCount1Bit,
	}

	var textureImage vk.Image
	if err := vk.Error(vk.CreateImage(v.logicalDevice, &ici, nil, &textureImage)); err != nil {
		return fmt.Errorf("vk.CreateImage(): %s", err.Error())
	}
	v.textureImage = textureImage

	var memRequirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(v.logicalDevice, v.textureImage, &memRequirements)
	memRequirements.Deref()

	var textureImageMemory vk.DeviceMemory
	if err := v.allocateMemory(&textureImageMemory, memRequirements.Size, memRequirements.MemoryTypeBits, vk.MemoryPropertyDeviceLocalBit); err != nil {
		return err
	}
	v.textureImageMemory = textureImageMemory

	if err := vk.Error(vk.BindImageMemory(v.logicalDevice, v.textureImage, v.textureImageMemory, 0)); err != nil {
		return fmt.Errorf("vk.BindImageMemory(): %s", err.Error())
	}

	if err := v.transitionLayout(v.textureImage, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal); err != nil {
		return err
	}
	if err := v.copyBufferToImage(stagingBuffer, v.textureImage, width, height); err != nil {
		return err
	}
	if err := v.transitionLayout(v.textureImage, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal); err != nil {
		return err
	}

	ivci := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    v.textureImage,
		ViewType: vk.ImageViewType2d,
		Format:   textureFormat,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}

	var textureImageView vk.ImageView
	if err := vk.Error(vk.CreateImageView(v.logicalDevice, &ivci, nil, &textureImageView)); err != nil {
		return fmt.Errorf("vk.CreateImageView(): %s", err.Error())
	}
	v.textureImageView = textureImageView

	log.WithFields(log.Fields{
		"width":  width,
		"height": height,
	}).Debug("texture uploaded")
	return nil
}

func (v *VulkanRenderer) prepareDescriptorPool() error {
	poolSizes := []vk.DescriptorPoolSize{
		{
			Type:            vk.DescriptorTypeSampledImage,
			DescriptorCount: 1,
		},
		{
			Type:            vk.DescriptorTypeSampler,
			DescriptorCount: 1,
		},
	}
	dpci := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       1,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}

	var descriptorPool vk.DescriptorPool
	if err := vk.Error(vk.CreateDescriptorPool(v.logicalDevice, &dpci, nil, &descriptorPool)); err != nil {
		return errors.New("vk.CreateDescriptorPool(): " + err.Error())
	}
	v.descriptorPool = descriptorPool

	return nil
}

func (v *VulkanRenderer) createDescriptorSet() error {
	dsai := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     v.descriptorPool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{v.descriptorSetLayout},
	}

	var descriptorSet vk.DescriptorSet
	if err := vk.Error(vk.AllocateDescriptorSets(v.logicalDevice, &dsai, &descriptorSet)); err != nil {
		return fmt.Errorf("vk.AllocateDescriptorSets(): %s", err.Error())
	}

	wds := []vk.WriteDescriptorSet{{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          descriptorSet,
		DstBinding:      0,
		DescriptorType:  vk.DescriptorTypeSampledImage,
		DescriptorCount: 1,
		PImageInfo: []vk.DescriptorImageInfo{{
			ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
			ImageView:   v.textureImageView,
		}},
	}, {
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          descriptorSet,
		DstBinding:      1,
		DescriptorType:  vk.DescriptorTypeSampler,
		DescriptorCount: 1,
		PImageInfo: []vk.DescriptorImageInfo{{
			Sampler: v.textureSampler,
		}},
	}}
	vk.UpdateDescriptorSets(v.logicalDevice, uint32(len(wds)), wds, 0, nil)

	v.descriptorSet = descriptorSet
	return nil
}

func (v *VulkanRenderer) beginSingleTimeCommands() (vk.CommandBuffer, error) {
	cbai := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		Level:              vk.CommandBufferLevelPrimary,
		CommandPool:        v.commandPool,
		CommandBufferCount: 1,
	}

	commandBuffers := make([]vk.CommandBuffer, 1)
	if err := vk.Error(vk.AllocateCommandBuffers(v.logicalDevice, &cbai, commandBuffers)); err != nil {
		return nil, fmt.Errorf("vk.AllocateCommandBuffers(): %s", err.Error())
	}
	commandBuffer := commandBuffers[0]

	cbbi := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}

	if err := vk.Error(vk.BeginCommandBuffer(commandBuffer, &cbbi)); err != nil {
		vk.FreeCommandBuffers(v.logicalDevice, v.commandPool, 1, []vk.CommandBuffer{commandBuffer})
		return nil, fmt.Errorf("vk.BeginCommandBuffer(): %s", err.Error())
	}

	return commandBuffer, nil
}

func (v *VulkanRenderer) endSingleTimeCommands(commandBuffer vk.CommandBuffer) error {
	defer vk.FreeCommandBuffers(v.logicalDevice, v.commandPool, 1, []vk.CommandBuffer{commandBuffer})

	if err := vk.Error(vk.EndCommandBuffer(commandBuffer)); err != nil {
		return fmt.Errorf("vk.EndCommandBuffer(): %s", err.Error())
	}

	si := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{commandBuffer},
	}

	if err := vk.Error(vk.QueueSubmit(v.deviceQueue, 1, []vk.SubmitInfo{si}, vk.NullFence)); err != nil {
		return fmt.Errorf("vk.QueueSubmit(): %s", err.Error())
	}

	if err := vk.Error(vk.QueueWaitIdle(v.deviceQueue)); err != nil {
		return fmt.Errorf("vk.QueueWaitIdle(): %s", err.Error())
	}
	return nil
}

func (v *VulkanRenderer) transitionLayout(img vk.Image, old vk.ImageLayout, new vk.ImageLayout) error {
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           old,
		NewLayout:           new,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               img,
		SubresourceRange: vk.ImageSubresourceRange{
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
		},
	}

	var srcStage, dstStage vk.PipelineStageFlags
	switch {
	case old == vk.ImageLayoutUndefined && new == vk.ImageLayoutTransferDstOptimal:
		barrier.SrcAccessMask = 0
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	case old == vk.ImageLayoutTransferDstOptimal && new == vk.ImageLayoutShaderReadOnlyOptimal:
		barrier.SrcAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessShaderReadBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)
	default:
		return fmt.Errorf("unsupported layout transition from %d to %d", old, new)
	}

	cmd, err := v.beginSingleTimeCommands()
	if err != nil {
		return err
	}
	vk.CmdPipelineBarrier(cmd, srcStage, dstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
	return v.endSingleTimeCommands(cmd)
}

func (v *VulkanRenderer) copyBufferToImage(buf vk.Buffer, img vk.Image, width, height uint32) error {
	cmd, err := v.beginSingleTimeCommands()
	if err != nil {
		return err
	}

	bic := vk.BufferImageCopy{
		ImageOffset: vk.Offset3D{},
		ImageExtent: vk.Extent3D{
			Height: height,
			Width:  width,
			Depth:  1,
		},
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	vk.CmdCopyBufferToImage(cmd, buf, img, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{bic})
	return v.endSingleTimeCommands(cmd)
}
