// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package scene builds the windmill geometry that is uploaded every frame.
package scene

import (
	"math"
	"time"

	"github.com/devblok/windmill/model"
	glm "github.com/go-gl/mathgl/mgl32"
)

const (
	// InnerRadius is the distance from the origin to each vane's tip.
	InnerRadius float32 = 0.25

	// OuterRadius is the distance from the origin to each vane's base corners.
	OuterRadius float32 = 0.5

	// DefaultSpinPeriod is the time of one full revolution of a vane.
	DefaultSpinPeriod = 8 * time.Second
)

// Face selects one side of a vane
type Face int

// Faces of a vane, the front one points towards +z before spinning
const (
	Front Face = iota
	Back
)

// Texture coordinates of the tip, first and second base corner.
var texCoords = [3]glm.Vec2{{0.5, 0}, {0, 1}, {1, 1}}

// Vane is a triangular blade spinning about the axis from its
// tip to the midpoint of its base.
type Vane struct {
	// Tip lies on the axis of rotation.
	Tip glm.Vec3

	// BaseMidpoint is the midpoint of the side opposite the tip.
	BaseMidpoint glm.Vec3

	// BaseRadius is half the length of the base.
	BaseRadius float32

	// BaseUnitI points from the base midpoint to the first corner
	// in the unrotated state.
	BaseUnitI glm.Vec3

	// BaseUnitJ is the front face normal in the unrotated state.
	BaseUnitJ glm.Vec3

	// Spin is the rotation about the tip to base axis, in radians.
	Spin float32
}

// unitAt returns the unit vector in the xy plane rotated
// angle radians counter-clockwise from the x axis.
func unitAt(angle float32) glm.Vec3 {
	return glm.Vec3{float32(math.Cos(float64(angle))), float32(math.Sin(float64(angle))), 0}
}

// mixByAngle returns the point angle radians around the ellipse
// with major axis i and minor axis j.
func mixByAngle(i, j glm.Vec3, angle float32) glm.Vec3 {
	return i.Mul(float32(math.Cos(float64(angle)))).Add(j.Mul(float32(math.Sin(float64(angle)))))
}

// NewVane creates an unspun vane pointing at angle radians.
func NewVane(angle float32) Vane {
	tip := unitAt(angle).Mul(InnerRadius)
	corner1 := unitAt(angle + math.Pi*7/6).Mul(OuterRadius)
	corner2 := unitAt(angle + math.Pi*5/6).Mul(OuterRadius)
	midpoint := corner1.Add(corner2).Mul(0.5)
	toCorner1 := corner1.Sub(midpoint)

	return Vane{
		Tip:          tip,
		BaseMidpoint: midpoint,
		BaseRadius:   toCorner1.Len(),
		BaseUnitI:    toCorner1.Normalize(),
		BaseUnitJ:    glm.Vec3{0, 0, 1},
	}
}

// Corners returns the three corners of a face, tip first. Seen from
// the side the face points to, the corners are in clockwise order.
func (v Vane) Corners(face Face) [3]glm.Vec3 {
	toCorner := mixByAngle(v.BaseUnitI, v.BaseUnitJ, v.Spin).Mul(v.BaseRadius)
	corner1 := v.BaseMidpoint.Add(toCorner)
	corner2 := v.BaseMidpoint.Sub(toCorner)
	if face == Back {
		return [3]glm.Vec3{v.Tip, corner2, corner1}
	}
	return [3]glm.Vec3{v.Tip, corner1, corner2}
}

// Normal returns the unit normal of a face.
func (v Vane) Normal(face Face) glm.Vec3 {
	n := mixByAngle(v.BaseUnitI, v.BaseUnitJ, v.Spin+math.Pi/2)
	if face == Back {
		return n.Mul(-1)
	}
	return n
}

// Windmill is three vanes evenly spread around the origin.
type Windmill struct {
	Vanes [3]Vane
}

// NewWindmill creates an unspun windmill.
func NewWindmill() *Windmill {
	return &Windmill{
		Vanes: [3]Vane{
			NewVane(0),
			NewVane(math.Pi * 2 / 3),
			NewVane(math.Pi * 4 / 3),
		},
	}
}

// SpinAt converts elapsed time to a spin angle, one
// revolution per period. A zero period means DefaultSpinPeriod.
func SpinAt(elapsed, period time.Duration) float32 {
	if period <= 0 {
		period = DefaultSpinPeriod
	}
	revolutions := elapsed.Seconds() / period.Seconds()
	return float32(revolutions * 2 * math.Pi)
}

// SetSpin sets the same spin on every vane.
func (w *Windmill) SetSpin(spin float32) {
	for idx := range w.Vanes {
		w.Vanes[idx].Spin = spin
	}
}

// Mesh builds the frame geometry. The front faces come first so
// the border indices only reference them.
func (w *Windmill) Mesh() model.Mesh {
	mesh := model.Mesh{
		Vertices:      make([]model.Vertex, 0, 2*3*len(w.Vanes)),
		BorderIndices: make([]uint16, 0, 6*len(w.Vanes)),
	}

	for _, face := range []Face{Front, Back} {
		for _, vane := range w.Vanes {
			normal := vane.Normal(face)
			corners := vane.Corners(face)
			order := [3]int{0, 1, 2}
			if face == Back {
				order = [3]int{0, 2, 1}
			}
			for idx, position := range corners {
				mesh.Vertices = append(mesh.Vertices, model.Vertex{
					Position: position,
					Normal:   normal,
					TexCoord: texCoords[order[idx]],
				})
			}
		}
	}

	for idx := range w.Vanes {
		i := uint16(3 * idx)
		mesh.BorderIndices = append(mesh.BorderIndices,
			i, i+1,
			i+1, i+2,
			i+2, i,
		)
	}
	return mesh
}
