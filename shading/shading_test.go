// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package shading_test

import (
	"testing"

	"github.com/devblok/windmill/shading"
	glm "github.com/go-gl/mathgl/mgl32"
)

const epsilon = 1e-5

func TestBrightnessParallelToLight(t *testing.T) {
	if b := shading.Brightness(shading.LightSource); !glm.FloatEqualThreshold(b, 0.7, epsilon) {
		t.Fatalf("expected 0.7, got: %f", b)
	}
}

func TestBrightnessPerpendicular(t *testing.T) {
	// (2, 0, 1) is orthogonal to (-1, 1, 2)
	normal := glm.Vec3{2, 0, 1}.Normalize()
	if b := shading.Brightness(normal); !glm.FloatEqualThreshold(b, 0.1, epsilon) {
		t.Fatalf("expected 0.1, got: %f", b)
	}
}

func TestBrightnessFacingAway(t *testing.T) {
	normal := shading.LightSource.Mul(-1)
	if b := shading.Brightness(normal); !glm.FloatEqualThreshold(b, 0.1, epsilon) {
		t.Fatalf("expected 0.1, got: %f", b)
	}
}

func TestBrightnessRange(t *testing.T) {
	normals := []glm.Vec3{
		{1, 0, 0}, {0, 1, 0}, {0, 0, 1},
		{-1, 0, 0}, {0, -1, 0}, {0, 0, -1},
		glm.Vec3{1, 1, 1}.Normalize(),
	}
	for _, n := range normals {
		b := shading.Brightness(n)
		if b < 0.1-epsilon || b > 0.7+epsilon {
			t.Errorf("brightness for %v out of range: %f", n, b)
		}
	}
}

func TestProjectAtOrigin(t *testing.T) {
	p := shading.Project(glm.Vec3{0.3, -0.4, 0})
	if !p.ApproxEqualThreshold(glm.Vec3{0.3, -0.4, 0.25}, epsilon) {
		t.Fatalf("unexpected projection: %v", p)
	}
}

func TestProjectShrinksFarPoints(t *testing.T) {
	near := shading.Project(glm.Vec3{0.5, 0.5, 0.5})
	far := shading.Project(glm.Vec3{0.5, 0.5, -0.5})
	if near.X() <= far.X() || near.Y() <= far.Y() {
		t.Fatalf("near point should project larger: near %v, far %v", near, far)
	}
	if !glm.FloatEqualThreshold(far.X(), 0.5*shading.PlaneD/(shading.CameraZ+0.5), epsilon) {
		t.Fatalf("unexpected shrinkage: %v", far)
	}
	if !glm.FloatEqualThreshold(near.Z(), 0.375, epsilon) || !glm.FloatEqualThreshold(far.Z(), 0.125, epsilon) {
		t.Fatalf("unexpected depth: near %f, far %f", near.Z(), far.Z())
	}
}

func TestShadeGrayscale(t *testing.T) {
	c := shading.Shade(shading.LightSource, nil)
	if !c.ApproxEqualThreshold(glm.Vec4{0.7, 0.7, 0.7, 1}, epsilon) {
		t.Fatalf("unexpected colour: %v", c)
	}
}

func TestShadeTextured(t *testing.T) {
	texel := glm.Vec4{1, 0.5, 0, 0.8}
	c := shading.Shade(shading.LightSource, &texel)
	if !c.ApproxEqualThreshold(glm.Vec4{0.7, 0.35, 0, 0.8}, epsilon) {
		t.Fatalf("unexpected colour: %v", c)
	}
}

func BenchmarkShade(b *testing.B) {
	texel := glm.Vec4{1, 1, 1, 1}
	normal := glm.Vec3{0, 0, 1}
	for idx := 0; idx < b.N; idx++ {
		shading.Shade(normal, &texel)
	}
}
