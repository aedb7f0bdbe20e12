// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package snapshot_test

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/devblok/windmill/model"
	"github.com/devblok/windmill/scene"
	"github.com/devblok/windmill/snapshot"
	qt "github.com/frankban/quicktest"
	glm "github.com/go-gl/mathgl/mgl32"
)

// clockwise triangle in the z = 0 plane, where projection is the identity
var triangle = [3]glm.Vec3{{-0.5, -0.5, 0}, {0, 0.5, 0}, {0.5, -0.5, 0}}

func triangleMesh(order [3]int, borders bool) model.Mesh {
	var mesh model.Mesh
	for _, idx := range order {
		mesh.Vertices = append(mesh.Vertices, model.Vertex{
			Position: triangle[idx],
			Normal:   glm.Vec3{0, 0, 1},
			TexCoord: glm.Vec2{0.5, 0.5},
		})
	}
	if borders {
		mesh.BorderIndices = []uint16{0, 1, 1, 2, 2, 0}
	}
	return mesh
}

func options() snapshot.Options {
	opts := snapshot.DefaultOptions()
	opts.Width, opts.Height = 200, 200
	return opts
}

func gray(c *qt.C, img image.Image, x, y int) int {
	r, g, b, _ := img.At(x, y).RGBA()
	c.Assert(r, qt.Equals, g, qt.Commentf("pixel %d,%d is not gray", x, y))
	c.Assert(g, qt.Equals, b, qt.Commentf("pixel %d,%d is not gray", x, y))
	return int(r >> 8)
}

func within(c *qt.C, got, want, tolerance int) {
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	c.Assert(diff <= tolerance, qt.Equals, true, qt.Commentf("got %d, want %d±%d", got, want, tolerance))
}

func TestWindmillUnspun(t *testing.T) {
	c := qt.New(t)
	img, err := snapshot.Render(scene.NewWindmill().Mesh(), options())
	c.Assert(err, qt.IsNil)
	c.Assert(img.Bounds(), qt.Equals, image.Rect(0, 0, 200, 200))

	// Inside the vane pointing along +x, facing the camera
	within(c, gray(c, img, 79, 100), 150, 3)

	// Corners are background
	within(c, gray(c, img, 0, 0), 204, 1)
	within(c, gray(c, img, 199, 199), 204, 1)
}

func TestTriangleShadedAndBordered(t *testing.T) {
	c := qt.New(t)
	img, err := snapshot.Render(triangleMesh([3]int{0, 1, 2}, true), options())
	c.Assert(err, qt.IsNil)

	within(c, gray(c, img, 100, 110), 150, 1)
	// Middle of the bottom edge
	c.Assert(gray(c, img, 100, 150) < 60, qt.Equals, true)
}

func TestBackFacesCulled(t *testing.T) {
	c := qt.New(t)
	img, err := snapshot.Render(triangleMesh([3]int{0, 2, 1}, false), options())
	c.Assert(err, qt.IsNil)
	within(c, gray(c, img, 100, 110), 204, 1)
}

func TestTextured(t *testing.T) {
	c := qt.New(t)
	texture := image.NewRGBA(image.Rect(0, 0, 1, 1))
	texture.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})

	opts := options()
	opts.Texture = texture
	img, err := snapshot.Render(triangleMesh([3]int{0, 1, 2}, false), opts)
	c.Assert(err, qt.IsNil)

	r, g, b, a := img.At(100, 110).RGBA()
	within(c, int(r>>8), 150, 1)
	c.Assert(g, qt.Equals, uint32(0))
	c.Assert(b, qt.Equals, uint32(0))
	c.Assert(a>>8, qt.Equals, uint32(255))
}

func TestDepthTest(t *testing.T) {
	c := qt.New(t)
	near := triangleMesh([3]int{0, 1, 2}, false)
	far := triangleMesh([3]int{0, 1, 2}, false)
	for idx := range far.Vertices {
		// Scaled so it projects onto the near one
		far.Vertices[idx].Position = far.Vertices[idx].Position.Mul(1.25)
		far.Vertices[idx].Position[2] = -0.5
		far.Vertices[idx].Normal = glm.Vec3{1, 0, 0}
	}

	// The far triangle is drawn last and wins without a depth test
	mesh := model.Mesh{Vertices: append(append([]model.Vertex{}, near.Vertices...), far.Vertices...)}

	img, err := snapshot.Render(mesh, options())
	c.Assert(err, qt.IsNil)
	within(c, gray(c, img, 100, 110), 26, 1)

	opts := options()
	opts.DepthTest = true
	img, err = snapshot.Render(mesh, opts)
	c.Assert(err, qt.IsNil)
	within(c, gray(c, img, 100, 110), 150, 1)
}

func TestRenderBlackBackground(t *testing.T) {
	c := qt.New(t)

	opts := options()
	opts.Background = 0
	img, err := snapshot.Render(model.Mesh{}, opts)
	c.Assert(err, qt.IsNil)
	c.Assert(gray(c, img, 0, 0), qt.Equals, 0)
	c.Assert(gray(c, img, 199, 199), qt.Equals, 0)
}

func TestRenderErrors(t *testing.T) {
	c := qt.New(t)

	opts := options()
	opts.Width = 0
	_, err := snapshot.Render(model.Mesh{}, opts)
	c.Assert(err, qt.ErrorMatches, "snapshot size must be positive")

	mesh := triangleMesh([3]int{0, 1, 2}, false)
	mesh.Vertices = mesh.Vertices[:2]
	_, err = snapshot.Render(mesh, options())
	c.Assert(err, qt.ErrorMatches, "mesh vertices do not form a triangle list")

	mesh = triangleMesh([3]int{0, 1, 2}, false)
	mesh.BorderIndices = []uint16{0, 7}
	_, err = snapshot.Render(mesh, options())
	c.Assert(err, qt.ErrorMatches, "border index out of range")
}

func TestSavePNG(t *testing.T) {
	c := qt.New(t)
	img, err := snapshot.Render(scene.NewWindmill().Mesh(), options())
	c.Assert(err, qt.IsNil)

	path := filepath.Join(t.TempDir(), "windmill.png")
	c.Assert(snapshot.SavePNG(img, path), qt.IsNil)

	f, err := os.Open(path)
	c.Assert(err, qt.IsNil)
	defer f.Close()
	decoded, err := png.Decode(f)
	c.Assert(err, qt.IsNil)
	c.Assert(decoded.Bounds(), qt.Equals, img.Bounds())
}

func BenchmarkRender(b *testing.B) {
	mesh := scene.NewWindmill().Mesh()
	opts := snapshot.DefaultOptions()
	for idx := 0; idx < b.N; idx++ {
		if _, err := snapshot.Render(mesh, opts); err != nil {
			b.Fatal(err)
		}
	}
}
