// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package shading mirrors the two GPU shader stages on the CPU. The constants
// here must match the ones in assets/shaders/*.wgsl.
package shading

import (
	glm "github.com/go-gl/mathgl/mgl32"
)

// Fixed camera and lighting parameters shared with the shaders.
const (
	// PlaneD is the distance from the camera to the projection plane.
	PlaneD float32 = 2.0

	// CameraZ is the camera position on the z axis, looking towards -z.
	CameraZ float32 = 2.0

	AmbientTerm float32 = 0.1
	DiffuseTerm float32 = 0.6
)

// LightSource is the unit direction towards the light.
var LightSource = glm.Vec3{-1, 1, 2}.Normalize()

// Project is the vertex stage: a single perspective divide of x and y by the
// distance to the camera, with depth remapped as (z+1)/4.
func Project(position glm.Vec3) glm.Vec3 {
	shrinkage := PlaneD / (CameraZ - position.Z())
	return glm.Vec3{
		position.X() * shrinkage,
		position.Y() * shrinkage,
		(position.Z() + 1) / 4,
	}
}

// Brightness is the Lambertian term of the fragment stage.
func Brightness(normal glm.Vec3) float32 {
	return AmbientTerm + DiffuseTerm*glm.Clamp(LightSource.Dot(normal), 0, 1)
}

// Shade is the fragment stage. A nil texel gives a grayscale result,
// otherwise the texel colour is scaled by the brightness.
func Shade(normal glm.Vec3, texel *glm.Vec4) glm.Vec4 {
	b := Brightness(normal)
	if texel == nil {
		return glm.Vec4{b, b, b, 1}
	}
	return glm.Vec4{b * texel.X(), b * texel.Y(), b * texel.Z(), texel.W()}
}
