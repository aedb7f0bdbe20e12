// Package device describes the physical rendering devices
// a Vulkan instance can see.
package device

import (
	"strings"

	vk "github.com/devblok/vulkan"
)

// PhysicalDeviceInfo describes available physical properties of a rendering device
type PhysicalDeviceInfo struct {
	ID            int
	VendorID      int
	DriverVersion int
	APIVersion    string
	Name          string
	Type          string
	Invalid       bool
	Extensions    []string
	Layers        []string
	Memory        uint64
	WideLines     bool
	QueueFamilies []QueueFamily
}

// QueueFamily is one queue family of a device
type QueueFamily struct {
	Index    uint32
	Count    uint32
	Graphics bool
	Compute  bool
	Transfer bool
}

// HasExtension reports whether the device supports the named extension.
// A trailing NUL on name is ignored.
func (p PhysicalDeviceInfo) HasExtension(name string) bool {
	name = strings.TrimRight(name, "\x00")
	for _, ext := range p.Extensions {
		if ext == name {
			return true
		}
	}
	return false
}

// GraphicsQueueFamilies returns the indices of families that can draw
func (p PhysicalDeviceInfo) GraphicsQueueFamilies() []uint32 {
	var families []uint32
	for _, f := range p.QueueFamilies {
		if f.Graphics && f.Count > 0 {
			families = append(families, f.Index)
		}
	}
	return families
}

func deviceType(t vk.PhysicalDeviceType) string {
	switch t {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return "integrated"
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return "discrete"
	case vk.PhysicalDeviceTypeVirtualGpu:
		return "virtual"
	case vk.PhysicalDeviceTypeCpu:
		return "cpu"
	default:
		return "other"
	}
}
