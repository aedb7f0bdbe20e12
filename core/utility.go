// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"path"
	"strings"

	"github.com/devblok/windmill/assets"
)

const shaderSuffix = ".wgsl"

type shaderFile struct {
	path       string
	name       string
	shaderType ShaderType
}

// shaderFiles lists the shader sources found in src. A shader file name
// has exactly three dot separated parts: the name of the shader, its
// type (vert or frag) and the wgsl extension. Other files are skipped.
func shaderFiles(src assets.Source) []shaderFile {
	var shaders []shaderFile
	for _, p := range src.List() {
		filename := path.Base(p)
		if !strings.HasSuffix(filename, shaderSuffix) {
			continue
		}

		nodes := strings.Split(strings.TrimSuffix(filename, shaderSuffix), ".")
		if len(nodes) != 2 {
			continue
		}

		var shaderType ShaderType
		switch nodes[1] {
		case "frag":
			shaderType = FragmentShaderType
		case "vert":
			shaderType = VertexShaderType
		default:
			continue
		}
		shaders = append(shaders, shaderFile{
			path:       p,
			name:       nodes[0],
			shaderType: shaderType,
		})
	}
	return shaders
}

// SliceUint32 reslices bytes into little endian words, that is used
// to sumbit vulkan shaders for processing. Trailing bytes are dropped.
func SliceUint32(data []byte) []uint32 {
	words := make([]uint32, len(data)/4)
	for idx := range words {
		words[idx] = binary.LittleEndian.Uint32(data[idx*4:])
	}
	return words
}

// firstSuitable returns the first device that passes check. When none
// does, the error lists why each one was rejected.
func firstSuitable[D any](devices []D, check func(D) (bool, string)) (D, error) {
	var reasons []string
	for idx, d := range devices {
		suitable, reason := check(d)
		if suitable {
			return d, nil
		}
		reasons = append(reasons, fmt.Sprintf("device %d: %s", idx, reason))
	}
	var none D
	if len(reasons) == 0 {
		return none, errors.New("no vulkan capable devices available")
	}
	return none, errors.New("no suitable device: " + strings.Join(reasons, "; "))
}

func safeString(s string) string {
	return fmt.Sprintf("%s\x00", s)
}

func safeStrings(sgs []string) []string {
	safe := []string{}
	for _, s := range sgs {
		if strings.HasSuffix(s, "\x00") {
			safe = append(safe, s)
			continue
		}
		safe = append(safe, safeString(s))
	}
	return safe
}

// GetPixels transforms a given image into right arrangement of pixels
// by drawing the decoded image onto a controlled RGBA canvas. Rows are
// rowPitch bytes apart when it's wider than the image, tightly packed otherwise.
func GetPixels(img image.Image, rowPitch int) []uint8 {
	bounds := img.Bounds()
	stride := 4 * bounds.Dx()
	if rowPitch > stride {
		stride = rowPitch
	}
	canvas := &image.RGBA{
		Pix:    make([]uint8, stride*bounds.Dy()),
		Stride: stride,
		Rect:   image.Rect(0, 0, bounds.Dx(), bounds.Dy()),
	}
	draw.Draw(canvas, canvas.Bounds(), img, bounds.Min, draw.Src)
	return canvas.Pix
}
