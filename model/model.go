package model

import (
	"unsafe"

	vk "github.com/devblok/vulkan"
	glm "github.com/go-gl/mathgl/mgl32"
)

// Vertex is one interleaved vertex as the vertex shader consumes it.
type Vertex struct {
	Position glm.Vec3
	Normal   glm.Vec3
	TexCoord glm.Vec2
}

// Mesh is the geometry of a single frame. Vertices form a triangle list,
// BorderIndices a line list into Vertices.
type Mesh struct {
	Vertices      []Vertex
	BorderIndices []uint16
}

// VertexBufferSize returns the byte size of the vertex data.
func (m Mesh) VertexBufferSize() int {
	return int(unsafe.Sizeof(Vertex{})) * len(m.Vertices)
}

// IndexBufferSize returns the byte size of the border index data.
func (m Mesh) IndexBufferSize() int {
	return int(unsafe.Sizeof(uint16(0))) * len(m.BorderIndices)
}

// VertexBindingDescriptions return Vulkan Vertex descriptors
func VertexBindingDescriptions() []vk.VertexInputBindingDescription {
	return []vk.VertexInputBindingDescription{{
		Binding:   0,
		Stride:    uint32(unsafe.Sizeof(Vertex{})),
		InputRate: vk.VertexInputRateVertex,
	}}
}

// VertexAttributeDescriptions return Vulkan attribute descriptors,
// locations match the vertex shader inputs.
func VertexAttributeDescriptions() []vk.VertexInputAttributeDescription {
	return []vk.VertexInputAttributeDescription{
		{
			Binding:  0,
			Location: 0,
			Format:   vk.FormatR32g32b32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.Position)),
		},
		{
			Binding:  0,
			Location: 1,
			Format:   vk.FormatR32g32b32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.Normal)),
		},
		{
			Binding:  0,
			Location: 2,
			Format:   vk.FormatR32g32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.TexCoord)),
		},
	}
}
