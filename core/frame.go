// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"errors"
	"fmt"
	"math"
	"unsafe"

	"github.com/devblok/windmill/model"
	vk "github.com/devblok/vulkan"
	log "github.com/sirupsen/logrus"
)

// ClearGray is the background intensity of every frame
const ClearGray float32 = 0.8

// frameBuffers hold the geometry of the frame in flight.
// They are rebuilt from scratch on every Draw.
type frameBuffers struct {
	vertexBuffer vk.Buffer
	vertexMemory vk.DeviceMemory
	indexBuffer  vk.Buffer
	indexMemory  vk.DeviceMemory

	numVertices uint32
	numIndices  uint32
}

func (f *frameBuffers) destroy(device vk.Device) {
	if f.vertexBuffer != vk.NullBuffer {
		vk.DestroyBuffer(device, f.vertexBuffer, nil)
		vk.FreeMemory(device, f.vertexMemory, nil)
	}
	if f.indexBuffer != vk.NullBuffer {
		vk.DestroyBuffer(device, f.indexBuffer, nil)
		vk.FreeMemory(device, f.indexMemory, nil)
	}
	*f = frameBuffers{}
}

// createHostBuffer creates a host visible buffer and copies data into it
func (v *VulkanRenderer) createHostBuffer(buffer *vk.Buffer, memory *vk.DeviceMemory, data unsafe.Pointer, size int, usage vk.BufferUsageFlagBits) error {
	if err := v.createBuffer(buffer, size, usage); err != nil {
		return err
	}

	var memoryRequirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(v.logicalDevice, *buffer, &memoryRequirements)
	memoryRequirements.Deref()

	if err := v.allocateMemory(memory, memoryRequirements.Size, memoryRequirements.MemoryTypeBits, vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit); err != nil {
		vk.DestroyBuffer(v.logicalDevice, *buffer, nil)
		*buffer = vk.NullBuffer
		return err
	}

	if err := vk.Error(vk.BindBufferMemory(v.logicalDevice, *buffer, *memory, 0)); err != nil {
		return fmt.Errorf("vk.BindBufferMemory(): %s", err.Error())
	}

	var mappedMemory unsafe.Pointer
	if err := vk.Error(vk.MapMemory(v.logicalDevice, *memory, 0, vk.DeviceSize(size), 0, &mappedMemory)); err != nil {
		return fmt.Errorf("vk.MapMemory(): %s", err.Error())
	}
	copy(unsafe.Slice((*byte)(mappedMemory), size), unsafe.Slice((*byte)(data), size))
	vk.UnmapMemory(v.logicalDevice, *memory)
	return nil
}

// uploadMesh replaces the buffers of the previous frame with the mesh.
// The caller has waited for the previous frame to finish.
func (v *VulkanRenderer) uploadMesh(mesh model.Mesh) error {
	v.frame.destroy(v.logicalDevice)

	if len(mesh.Vertices) == 0 {
		return nil
	}
	if err := v.createHostBuffer(&v.frame.vertexBuffer, &v.frame.vertexMemory,
		unsafe.Pointer(&mesh.Vertices[0]), mesh.VertexBufferSize(), vk.BufferUsageVertexBufferBit); err != nil {
		return err
	}
	v.frame.numVertices = uint32(len(mesh.Vertices))

	if len(mesh.BorderIndices) == 0 {
		return nil
	}
	if err := v.createHostBuffer(&v.frame.indexBuffer, &v.frame.indexMemory,
		unsafe.Pointer(&mesh.BorderIndices[0]), mesh.IndexBufferSize(), vk.BufferUsageIndexBufferBit); err != nil {
		return err
	}
	v.frame.numIndices = uint32(len(mesh.BorderIndices))
	return nil
}

func (v *VulkanRenderer) buildCommandBuffer(imageIdx uint32) error {
	cmd := v.commandBuffers[imageIdx]
	if err := vk.Error(vk.ResetCommandBuffer(cmd, vk.CommandBufferResetFlags(vk.CommandBufferResetReleaseResourcesBit))); err != nil {
		return fmt.Errorf("vk.ResetCommandBuffer(): %s", err.Error())
	}

	cbbi := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if err := vk.Error(vk.BeginCommandBuffer(cmd, &cbbi)); err != nil {
		return fmt.Errorf("vk.BeginCommandBuffer()[%d]: %s", imageIdx, err.Error())
	}

	clearValues := make([]vk.ClearValue, 2)
	clearValues[0].SetColor([]float32{
		ClearGray, ClearGray, ClearGray, 1,
	})
	// Nearer fragments have greater depth
	clearValues[1].SetDepthStencil(0, 0)

	rpbi := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  v.renderPass,
		Framebuffer: v.framebuffers[imageIdx],
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{
				X: 0, Y: 0,
			},
			Extent: vk.Extent2D{
				Width:  v.currentSurfaceWidth,
				Height: v.currentSurfaceHeight,
			},
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(cmd, &rpbi, vk.SubpassContentsInline)

	if v.frame.numVertices > 0 {
		vk.CmdSetViewport(cmd, 0, 1, []vk.Viewport{v.viewport})
		vk.CmdSetScissor(cmd, 0, 1, []vk.Rect2D{v.scissor})
		vk.CmdBindVertexBuffers(cmd, 0, 1, []vk.Buffer{v.frame.vertexBuffer}, []vk.DeviceSize{0})
		vk.CmdBindDescriptorSets(cmd, vk.PipelineBindPointGraphics, v.pipelineLayout, 0, 1, []vk.DescriptorSet{v.descriptorSet}, 0, nil)

		vk.CmdBindPipeline(cmd, vk.PipelineBindPointGraphics, v.interiorPipeline)
		vk.CmdDraw(cmd, v.frame.numVertices, 1, 0, 0)

		if v.frame.numIndices > 0 {
			vk.CmdBindPipeline(cmd, vk.PipelineBindPointGraphics, v.borderPipeline)
			vk.CmdBindIndexBuffer(cmd, v.frame.indexBuffer, 0, vk.IndexTypeUint16)
			vk.CmdDrawIndexed(cmd, v.frame.numIndices, 1, 0, 0, 0)
		}
	}

	vk.CmdEndRenderPass(cmd)

	if err := vk.Error(vk.EndCommandBuffer(cmd)); err != nil {
		return fmt.Errorf("vk.EndCommandBuffer()[%d]: %s", imageIdx, err.Error())
	}
	return nil
}

// Draw implements interface
func (v *VulkanRenderer) Draw(mesh model.Mesh) error {
	v.frameSubmitted = false

	if err := vk.Error(vk.WaitForFences(v.logicalDevice, 1, []vk.Fence{v.imageFence}, vk.True, math.MaxUint64)); err != nil {
		return errors.New("vk.WaitForFences(): " + err.Error())
	}

	result := vk.AcquireNextImage(v.logicalDevice, v.swapchain, math.MaxUint64, v.imageAvailableSemaphore, vk.NullFence, &v.imageIndex)
	switch result {
	case vk.ErrorOutOfDate:
		// Nothing was acquired, the frame is dropped
		log.Debug("swapchain out of date on acquire")
		return v.recreateSwapchain()
	case vk.Success, vk.Suboptimal:
	default:
		return errors.New("vk.AcquireNextImage(): " + vk.Error(result).Error())
	}

	if err := v.uploadMesh(mesh); err != nil {
		return err
	}

	if err := v.buildCommandBuffer(v.imageIndex); err != nil {
		return err
	}

	submit := []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{v.imageAvailableSemaphore},
		PWaitDstStageMask: []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{v.commandBuffers[v.imageIndex]},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{v.renderFinishedSemphore},
	}}

	// Reset only right before the submit that signals it again
	if err := vk.Error(vk.ResetFences(v.logicalDevice, 1, []vk.Fence{v.imageFence})); err != nil {
		return errors.New("vk.ResetFences(): " + err.Error())
	}
	if err := vk.Error(vk.QueueSubmit(v.deviceQueue, 1, submit, v.imageFence)); err != nil {
		return errors.New("vk.QueueSubmit(): " + err.Error())
	}
	v.frameSubmitted = true

	return nil
}

// Present implements interface
func (v *VulkanRenderer) Present() error {
	if !v.frameSubmitted {
		return nil
	}
	v.frameSubmitted = false

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{v.renderFinishedSemphore},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{v.swapchain},
		PImageIndices:      []uint32{v.imageIndex},
	}

	presentResult := vk.QueuePresent(v.deviceQueue, &presentInfo)
	switch presentResult {
	case vk.Success:
		return nil
	case vk.ErrorOutOfDate, vk.Suboptimal:
		return v.recreateSwapchain()
	default:
		return errors.New("vk.QueuePresent(): " + vk.Error(presentResult).Error())
	}
}
