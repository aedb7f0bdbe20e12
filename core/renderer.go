// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/devblok/windmill/assets"
	"github.com/devblok/windmill/device"
	vk "github.com/devblok/vulkan"
	log "github.com/sirupsen/logrus"
)

// Shader names the renderer builds its pipelines from
const (
	vaneShader     = "vane"
	interiorShader = "interior"
	texturedShader = "textured"
	bordersShader  = "borders"
)

// NewVulkanRenderer creates a not yet initialised Vulkan API renderer.
// Shaders are compiled from src, texture is sampled by the vane
// interiors, when nil the interiors are plain grayscale.
func NewVulkanRenderer(instance Instance, cfg RendererConfiguration, src assets.Source, texture *image.RGBA) (Renderer, error) {
	devices := instance.AvailableDevices()
	if len(devices) == 0 {
		return nil, errors.New("no vulkan capable devices available")
	}
	if src == nil {
		src = assets.Bundled()
	}
	return &VulkanRenderer{
		configuration:        cfg,
		currentSurfaceHeight: cfg.ScreenHeight,
		currentSurfaceWidth:  cfg.ScreenWidth,
		surface:              instance.Surface(),
		devices:              devices,
		shaderSource:         src,
		texture:              texture,
	}, nil
}

// VulkanRenderer is a Vulkan API renderer. It draws the windmill
// with two pipelines sharing one vertex buffer, the vane interiors
// as a triangle list and the front face borders as a line list.
type VulkanRenderer struct {
	configuration RendererConfiguration

	surface              vk.Surface
	shaderSource         assets.Source
	shaders              map[string]Shader
	currentSurfaceHeight uint32
	currentSurfaceWidth  uint32

	swapchain           vk.Swapchain
	swapchainImages     []vk.Image
	swapchainImageViews []vk.ImageView
	framebuffers        []vk.Framebuffer

	logicalDevice  vk.Device
	devices        []vk.PhysicalDevice
	physicalDevice vk.PhysicalDevice
	deviceQueue    vk.Queue
	wideLines      bool

	imageFormat     vk.Format
	imageColorspace vk.ColorSpace

	viewport vk.Viewport
	scissor  vk.Rect2D

	pipelineLayout   vk.PipelineLayout
	interiorPipeline vk.Pipeline
	borderPipeline   vk.Pipeline
	pipelineCache    vk.PipelineCache

	descriptorPool      vk.DescriptorPool
	descriptorSetLayout vk.DescriptorSetLayout
	descriptorSet       vk.DescriptorSet
	renderPass          vk.RenderPass

	depthImage       vk.Image
	depthImageView   vk.ImageView
	depthImageMemory vk.DeviceMemory

	commandPool    vk.CommandPool
	commandBuffers []vk.CommandBuffer

	imageFence              vk.Fence
	renderFinishedSemphore  vk.Semaphore
	imageAvailableSemaphore vk.Semaphore
	imageIndex              uint32
	frameSubmitted          bool

	graphicsQueueIndex uint32

	frame frameBuffers

	texture            *image.RGBA
	textureImage       vk.Image
	textureImageMemory vk.DeviceMemory
	textureImageView   vk.ImageView
	textureSampler     vk.Sampler
}

// Initialise implements interface
func (v *VulkanRenderer) Initialise() error {
	pd, err := firstSuitable(v.devices, v.DeviceIsSuitable)
	if err != nil {
		return err
	}
	v.physicalDevice = pd

	info := device.Describe(v.physicalDevice)
	v.wideLines = info.WideLines
	log.WithFields(log.Fields{
		"device": info.Name,
		"type":   info.Type,
		"api":    info.APIVersion,
	}).Info("using physical device")

	queueIndex, err := v.findQueueFamily(v.physicalDevice)
	if err != nil {
		return err
	}
	v.graphicsQueueIndex = queueIndex

	/* Logical Device setup */
	if err := v.createLogicalDevice(); err != nil {
		return err
	}

	/* ImageFormat */
	if err := v.chooseSurfaceFormat(); err != nil {
		return err
	}

	/* Swapchain setup */
	if err := v.createSwapchain(vk.NullSwapchain); err != nil {
		return err
	}

	/* Viewport and scissors creation */
	v.createViewport()

	/* Depth image */
	if err := v.prepareDepthImage(); err != nil {
		return err
	}

	/* Render pass */
	if err := v.createRenderPass(); err != nil {
		return err
	}

	/* Shaders */
	shaders, err := loadShaders(v.shaderSource, v.logicalDevice)
	if err != nil {
		return err
	}
	v.shaders = shaders

	/* Pipeline Layout */
	if err := v.createPipelineLayout(); err != nil {
		return err
	}

	/* Pipeline cache */
	if err := v.createPipelineCache(); err != nil {
		return err
	}

	/* Pipelines */
	if err := v.createPipelines(); err != nil {
		return err
	}

	if err := v.createImageViews(); err != nil {
		return err
	}

	if err := v.createFramebuffers(); err != nil {
		return err
	}

	if err := v.createCommandPool(); err != nil {
		return err
	}

	if err := v.allocateCommandBuffers(); err != nil {
		return err
	}

	/* Texture */
	texture := v.texture
	if texture == nil {
		texture = assets.WhiteTexture()
	}
	if err := v.createTextureImage(texture); err != nil {
		return err
	}

	if err := v.createTextureSampler(); err != nil {
		return err
	}

	if err := v.prepareDescriptorPool(); err != nil {
		return err
	}

	if err := v.createDescriptorSet(); err != nil {
		return err
	}

	if err := v.createSynchronization(); err != nil {
		return err
	}

	return nil
}

// findQueueFamily finds a family that can both draw and present to the surface
func (v *VulkanRenderer) findQueueFamily(pd vk.PhysicalDevice) (uint32, error) {
	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &queueFamilyCount, nil)
	if queueFamilyCount == 0 {
		return 0, errors.New("vk.GetPhysicalDeviceQueueFamilyProperties(): no queuefamilies on GPU")
	}
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &queueFamilyCount, queueFamilies)

	for i := uint32(0); i < queueFamilyCount; i++ {
		queueFamilies[i].Deref()
		if queueFamilies[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) == 0 {
			continue
		}

		var supportsPresent vk.Bool32
		if err := vk.Error(vk.GetPhysicalDeviceSurfaceSupport(pd, i, v.surface, &supportsPresent)); err != nil {
			return 0, errors.New("vk.GetPhysicalDeviceSurfaceSupport(): " + err.Error())
		}
		if supportsPresent.B() {
			return i, nil
		}
	}
	return 0, errors.New("vulkan error: could not find a queue family with graphics and present capabilities")
}

func (v *VulkanRenderer) createLogicalDevice() error {
	requiredExtensions := []string{vk.KhrSwapchainExtensionName}
	for _, ext := range v.configuration.DeviceExtensions {
		if strings.TrimRight(ext, "\x00") != strings.TrimRight(vk.KhrSwapchainExtensionName, "\x00") {
			requiredExtensions = append(requiredExtensions, ext)
		}
	}

	queueInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: v.graphicsQueueIndex,
		QueueCount:       1,
		PQueuePriorities: []float32{1},
	}}

	var wideLines vk.Bool32 = vk.False
	if v.wideLines {
		wideLines = vk.True
	} else if v.configuration.LineWidth > 1 {
		log.WithField("lineWidth", v.configuration.LineWidth).Warn("device has no wide lines, borders are drawn 1px wide")
	}

	var vkDevice vk.Device
	dci := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(requiredExtensions)),
		PpEnabledExtensionNames: safeStrings(requiredExtensions),
		PEnabledFeatures: []vk.PhysicalDeviceFeatures{{
			WideLines: wideLines,
		}},
	}
	if err := vk.Error(vk.CreateDevice(v.physicalDevice, &dci, nil, &vkDevice)); err != nil {
		return errors.New("vk.CreateDevice(): " + err.Error())
	}

	var deviceQueue vk.Queue
	vk.GetDeviceQueue(vkDevice, v.graphicsQueueIndex, 0, &deviceQueue)

	v.deviceQueue = deviceQueue
	v.logicalDevice = vkDevice
	return nil
}

func (v *VulkanRenderer) chooseSurfaceFormat() error {
	var (
		surfaceFormatCount uint32
		surfaceFormats     []vk.SurfaceFormat
	)

	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(v.physicalDevice, v.surface, &surfaceFormatCount, nil)); err != nil {
		return errors.New("vk.GetPhysicalDeviceSurfaceFormats(): " + err.Error())
	}
	if surfaceFormatCount == 0 {
		return errors.New("vk.GetPhysicalDeviceSurfaceFormats(): surface has no formats")
	}

	surfaceFormats = make([]vk.SurfaceFormat, surfaceFormatCount)
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(v.physicalDevice, v.surface, &surfaceFormatCount, surfaceFormats)); err != nil {
		return errors.New("vk.GetPhysicalDeviceSurfaceFormats(): " + err.Error())
	}

	// The shaders write display values directly, prefer a UNORM target
	chosen := surfaceFormats[0]
	chosen.Deref()
	for _, format := range surfaceFormats {
		format.Deref()
		if format.Format == vk.FormatB8g8r8a8Unorm || format.Format == vk.FormatR8g8b8a8Unorm {
			chosen = format
			break
		}
	}

	if chosen.Format == vk.FormatUndefined {
		chosen.Format = vk.FormatB8g8r8a8Unorm
	}
	v.imageFormat = chosen.Format
	v.imageColorspace = chosen.ColorSpace
	return nil
}

func (v *VulkanRenderer) createPipelineCache() error {
	pcci := vk.PipelineCacheCreateInfo{
		SType: vk.StructureTypePipelineCacheCreateInfo,
	}

	var pipelineCache vk.PipelineCache
	if err := vk.Error(vk.CreatePipelineCache(v.logicalDevice, &pcci, nil, &pipelineCache)); err != nil {
		return errors.New("vk.CreatePipelineCache(): " + err.Error())
	}
	v.pipelineCache = pipelineCache
	return nil
}

func (v *VulkanRenderer) createSynchronization() error {
	sci := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	fci := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
		Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit),
	}

	var (
		imageAvailableSemaphore vk.Semaphore
		renderFinishedSemphore  vk.Semaphore
		fence                   vk.Fence
	)

	if err := vk.Error(vk.CreateSemaphore(v.logicalDevice, &sci, nil, &imageAvailableSemaphore)); err != nil {
		return errors.New("vk.CreateSemaphore(): " + err.Error())
	}
	if err := vk.Error(vk.CreateSemaphore(v.logicalDevice, &sci, nil, &renderFinishedSemphore)); err != nil {
		return errors.New("vk.CreateSemaphore(): " + err.Error())
	}
	if err := vk.Error(vk.CreateFence(v.logicalDevice, &fci, nil, &fence)); err != nil {
		return errors.New("vk.CreateFence(): " + err.Error())
	}

	v.imageAvailableSemaphore = imageAvailableSemaphore
	v.renderFinishedSemphore = renderFinishedSemphore
	v.imageFence = fence

	return nil
}

func (v *VulkanRenderer) createCommandPool() error {
	cpci := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: v.graphicsQueueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}

	var commandPool vk.CommandPool
	if err := vk.Error(vk.CreateCommandPool(v.logicalDevice, &cpci, nil, &commandPool)); err != nil {
		return errors.New("vk.CreateCommandPool(): " + err.Error())
	}
	v.commandPool = commandPool

	return nil
}

func (v *VulkanRenderer) allocateCommandBuffers() error {
	cbai := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        v.commandPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: uint32(len(v.swapchainImageViews)),
	}

	commandBuffers := make([]vk.CommandBuffer, len(v.swapchainImageViews))
	if err := vk.Error(vk.AllocateCommandBuffers(v.logicalDevice, &cbai, commandBuffers)); err != nil {
		return errors.New("vk.AllocateCommandBuffers(): " + err.Error())
	}
	v.commandBuffers = commandBuffers

	return nil
}

func findMemoryType(device vk.PhysicalDevice, filter uint32, properties vk.MemoryPropertyFlags) (uint32, error) {
	memoryProperties := vk.PhysicalDeviceMemoryProperties{}
	vk.GetPhysicalDeviceMemoryProperties(device, &memoryProperties)
	memoryProperties.Deref()

	for idx := uint32(0); idx < memoryProperties.MemoryTypeCount; idx++ {
		memoryProperties.MemoryTypes[idx].Deref()
		if filter&(1<<idx) != 0 && (memoryProperties.MemoryTypes[idx].PropertyFlags&properties) == properties {
			return idx, nil
		}
	}
	return 0, fmt.Errorf("memory type not found for properties %#x", properties)
}

func (v *VulkanRenderer) allocateMemory(memory *vk.DeviceMemory, size vk.DeviceSize, memoryType uint32, properties vk.MemoryPropertyFlagBits) error {
	memTypeIdx, err := findMemoryType(v.physicalDevice, memoryType, vk.MemoryPropertyFlags(properties))
	if err != nil {
		return err
	}

	mai := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  size,
		MemoryTypeIndex: memTypeIdx,
	}

	if err := vk.Error(vk.AllocateMemory(v.logicalDevice, &mai, nil, memory)); err != nil {
		return fmt.Errorf("vk.AllocateMemory(): %s", err.Error())
	}
	return nil
}

func (v *VulkanRenderer) createBuffer(buffer *vk.Buffer, size int, usage vk.BufferUsageFlagBits) error {
	bci := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       vk.BufferUsageFlags(usage),
		SharingMode: vk.SharingModeExclusive,
	}
	if err := vk.Error(vk.CreateBuffer(v.logicalDevice, &bci, nil, buffer)); err != nil {
		return fmt.Errorf("vk.CreateBuffer(): %s", err.Error())
	}
	return nil
}

// DeviceIsSuitable implements interface
func (v *VulkanRenderer) DeviceIsSuitable(pd vk.PhysicalDevice) (bool, string) {
	info := device.Describe(pd)
	if info.Invalid {
		return false, "device properties could not be queried"
	}
	if !info.HasExtension(vk.KhrSwapchainExtensionName) {
		return false, "device does not support " + vk.KhrSwapchainExtensionName
	}
	for _, ext := range v.configuration.DeviceExtensions {
		if !info.HasExtension(ext) {
			return false, "device does not support " + ext
		}
	}
	if len(info.GraphicsQueueFamilies()) == 0 {
		return false, "device has no graphics queue"
	}
	if _, err := v.findQueueFamily(pd); err != nil {
		return false, err.Error()
	}
	return true, ""
}

// Destroy implements interface
func (v *VulkanRenderer) Destroy() {
	if v.logicalDevice == nil {
		return
	}
	vk.DeviceWaitIdle(v.logicalDevice)

	v.frame.destroy(v.logicalDevice)

	for _, shader := range v.shaders {
		shader.Destroy()
	}

	vk.DestroySemaphore(v.logicalDevice, v.imageAvailableSemaphore, nil)
	vk.DestroySemaphore(v.logicalDevice, v.renderFinishedSemphore, nil)
	vk.DestroyFence(v.logicalDevice, v.imageFence, nil)

	v.destroySwapchainResources()
	vk.DestroyCommandPool(v.logicalDevice, v.commandPool, nil)

	vk.DestroyDescriptorPool(v.logicalDevice, v.descriptorPool, nil)
	vk.DestroyDescriptorSetLayout(v.logicalDevice, v.descriptorSetLayout, nil)

	vk.DestroyPipeline(v.logicalDevice, v.interiorPipeline, nil)
	vk.DestroyPipeline(v.logicalDevice, v.borderPipeline, nil)
	vk.DestroyPipelineCache(v.logicalDevice, v.pipelineCache, nil)
	vk.DestroyRenderPass(v.logicalDevice, v.renderPass, nil)
	vk.DestroyPipelineLayout(v.logicalDevice, v.pipelineLayout, nil)

	vk.DestroySampler(v.logicalDevice, v.textureSampler, nil)
	vk.DestroyImageView(v.logicalDevice, v.textureImageView, nil)
	vk.DestroyImage(v.logicalDevice, v.textureImage, nil)
	vk.FreeMemory(v.logicalDevice, v.textureImageMemory, nil)

	vk.DestroySwapchain(v.logicalDevice, v.swapchain, nil)
	vk.DestroyDevice(v.logicalDevice, nil)
	v.logicalDevice = nil
}
