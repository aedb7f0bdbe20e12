// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package snapshot draws a frame of the windmill on the CPU, the same way
// the GPU pipelines do, so frames can be rendered without a display.
package snapshot

import (
	"errors"
	"image"
	"image/color"
	"math"

	"github.com/devblok/windmill/model"
	"github.com/devblok/windmill/shading"
	glm "github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gg"
)

// Options control the size and look of a snapshot
type Options struct {
	Width  int
	Height int

	// Texture is sampled by the vane interiors, nil for grayscale
	Texture *image.RGBA

	// LineWidth of the vane borders in pixels
	LineWidth float64

	// DepthTest resolves overlapping faces by depth instead of draw order
	DepthTest bool

	// Background gray level, DefaultOptions sets 0.8
	Background float32
}

// DefaultOptions match the renderer's defaults
func DefaultOptions() Options {
	return Options{
		Width:      1000,
		Height:     1000,
		LineWidth:  2,
		Background: 0.8,
	}
}

type screenVertex struct {
	x, y, depth float32
	normal      glm.Vec3
	texCoord    glm.Vec2
}

// Render draws the interiors with back face culling and then the borders.
func Render(mesh model.Mesh, opts Options) (image.Image, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, errors.New("snapshot size must be positive")
	}
	if len(mesh.Vertices)%3 != 0 {
		return nil, errors.New("mesh vertices do not form a triangle list")
	}
	img := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	bg := toByte(opts.Background)
	for idx := 0; idx < len(img.Pix); idx += 4 {
		img.Pix[idx], img.Pix[idx+1], img.Pix[idx+2], img.Pix[idx+3] = bg, bg, bg, 0xff
	}

	r := rasterizer{img: img, texture: opts.Texture}
	if opts.DepthTest {
		r.depth = make([]float32, opts.Width*opts.Height)
	}

	screen := make([]screenVertex, len(mesh.Vertices))
	for idx, v := range mesh.Vertices {
		screen[idx] = r.toScreen(v)
	}
	for idx := 0; idx+2 < len(screen); idx += 3 {
		r.triangle(screen[idx], screen[idx+1], screen[idx+2])
	}

	if len(mesh.BorderIndices) == 0 || opts.LineWidth <= 0 {
		return img, nil
	}

	dc := gg.NewContextForImage(img)
	defer dc.Close()
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(opts.LineWidth)
	for idx := 0; idx+1 < len(mesh.BorderIndices); idx += 2 {
		a, b := int(mesh.BorderIndices[idx]), int(mesh.BorderIndices[idx+1])
		if a >= len(screen) || b >= len(screen) {
			return nil, errors.New("border index out of range")
		}
		dc.MoveTo(float64(screen[a].x), float64(screen[a].y))
		dc.LineTo(float64(screen[b].x), float64(screen[b].y))
	}
	if err := dc.Stroke(); err != nil {
		return nil, err
	}
	return dc.Image(), nil
}

// SavePNG writes the snapshot to path
func SavePNG(img image.Image, path string) error {
	dc := gg.NewContextForImage(img)
	defer dc.Close()
	return dc.SavePNG(path)
}

func toByte(v float32) uint8 {
	return uint8(math.Round(float64(glm.Clamp(v, 0, 1) * 255)))
}

type rasterizer struct {
	img     *image.RGBA
	texture *image.RGBA
	depth   []float32
}

// toScreen runs the vertex stage and maps the result to pixel
// coordinates with +y pointing up.
func (r *rasterizer) toScreen(v model.Vertex) screenVertex {
	p := shading.Project(v.Position)
	w, h := float32(r.img.Rect.Dx()), float32(r.img.Rect.Dy())
	return screenVertex{
		x:        (p.X() + 1) / 2 * w,
		y:        (1 - p.Y()) / 2 * h,
		depth:    p.Z(),
		normal:   v.Normal,
		texCoord: v.TexCoord,
	}
}

// triangle fills the pixels whose centres fall inside a clockwise triangle.
// Counter-clockwise triangles face away and are culled.
func (r *rasterizer) triangle(a, b, c screenVertex) {
	// Pixel y grows downwards, so a clockwise triangle has positive area here
	area := edge(a, b, c.x, c.y)
	if area <= 0 {
		return
	}

	bounds := r.img.Rect
	minX := max(bounds.Min.X, int(math.Floor(float64(min(a.x, b.x, c.x)))))
	maxX := min(bounds.Max.X-1, int(math.Ceil(float64(max(a.x, b.x, c.x)))))
	minY := max(bounds.Min.Y, int(math.Floor(float64(min(a.y, b.y, c.y)))))
	maxY := min(bounds.Max.Y-1, int(math.Ceil(float64(max(a.y, b.y, c.y)))))

	for py := minY; py <= maxY; py++ {
		for px := minX; px <= maxX; px++ {
			cx, cy := float32(px)+0.5, float32(py)+0.5
			wa := edge(b, c, cx, cy) / area
			wb := edge(c, a, cx, cy) / area
			wc := edge(a, b, cx, cy) / area
			if wa < 0 || wb < 0 || wc < 0 {
				continue
			}

			if r.depth != nil {
				z := wa*a.depth + wb*b.depth + wc*c.depth
				at := (py-bounds.Min.Y)*bounds.Dx() + (px - bounds.Min.X)
				if z < r.depth[at] {
					continue
				}
				r.depth[at] = z
			}

			normal := a.normal.Mul(wa).Add(b.normal.Mul(wb)).Add(c.normal.Mul(wc))
			var texel *glm.Vec4
			if r.texture != nil {
				uv := a.texCoord.Mul(wa).Add(b.texCoord.Mul(wb)).Add(c.texCoord.Mul(wc))
				t := r.sample(uv)
				texel = &t
			}
			r.setPixel(px, py, shading.Shade(normal, texel))
		}
	}
}

// edge is the doubled signed area of the triangle a, b, (x, y)
func edge(a, b screenVertex, x, y float32) float32 {
	return (b.x-a.x)*(y-a.y) - (b.y-a.y)*(x-a.x)
}

// sample is a nearest neighbour lookup clamped to the edges
func (r *rasterizer) sample(uv glm.Vec2) glm.Vec4 {
	bounds := r.texture.Rect
	x := bounds.Min.X + int(glm.Clamp(uv.X(), 0, 1)*float32(bounds.Dx()-1)+0.5)
	y := bounds.Min.Y + int(glm.Clamp(uv.Y(), 0, 1)*float32(bounds.Dy()-1)+0.5)
	c := r.texture.RGBAAt(x, y)
	return glm.Vec4{
		float32(c.R) / 255,
		float32(c.G) / 255,
		float32(c.B) / 255,
		float32(c.A) / 255,
	}
}

func (r *rasterizer) setPixel(x, y int, c glm.Vec4) {
	r.img.SetRGBA(x, y, color.RGBA{
		R: toByte(c.X()),
		G: toByte(c.Y()),
		B: toByte(c.Z()),
		A: toByte(c.W()),
	})
}
