// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package core holds the configuration, the time service and the
// Vulkan machinery that puts the windmill on screen.
package core

import (
	"unsafe"

	"github.com/devblok/windmill/device"
	"github.com/devblok/windmill/model"
	vk "github.com/devblok/vulkan"
)

// Destroyable is anything that holds API resources
// that need to be released explicitly.
type Destroyable interface {
	// Destroy destroys internal members
	Destroy()
}

// Instance describes a Vulkan instance and supporting methods.
// Once created it is ready to use.
type Instance interface {
	Destroyable

	// PhysicalDevicesInfo returns a struct for each Physical Device
	// along with info about those devices
	PhysicalDevicesInfo() []device.PhysicalDeviceInfo

	// AvailableDevices returns handles of Physical Devices
	// from the Vulkan API
	AvailableDevices() []vk.PhysicalDevice

	// SetSurface sets the window surface for rendering
	SetSurface(unsafe.Pointer)

	// Surface returns the window surface, if it's not set
	// it should return a valid but empty surface
	Surface() vk.Surface

	// Extensions returns enabled instance extensions
	Extensions() []string

	// Inner returns the inner handle of the underlying API
	Inner() interface{}
}

// Renderer describes the rendering machinery.
// It's created only with internal values set,
// it needs to be initialised with Initialise() before use.
type Renderer interface {
	Destroyable

	// Initialise sets up the configured rendering pipeline
	Initialise() error

	// DeviceIsSuitable checks if the device given is suitable
	// for the rendering pipeline. If not suitable string contains the reason
	DeviceIsSuitable(vk.PhysicalDevice) (bool, string)

	// Draw uploads the mesh and records and submits the frame
	Draw(model.Mesh) error

	// Present shows the last drawn frame
	Present() error
}

// Shader is a compiled shader stage
type Shader interface {
	Destroyable

	// Name is the file name up to the first dot
	Name() string

	// Type is the pipeline stage
	Type() ShaderType

	// EntryPoint is the name of the function the stage starts in
	EntryPoint() string

	// ShaderModule is the API specific handle
	ShaderModule() interface{}
}

// ShaderType represents the type of shader thats loaded
type ShaderType int

// Identifies shader objects with their types
const (
	VertexShaderType ShaderType = iota
	FragmentShaderType
	UnknownShaderType
)

func (s ShaderType) String() string {
	switch s {
	case VertexShaderType:
		return "vert"
	case FragmentShaderType:
		return "frag"
	default:
		return "unknown"
	}
}
