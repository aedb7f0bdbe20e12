// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/devblok/windmill/assets"
)

type listSource []string

func (l listSource) ReadFile(string) ([]byte, error) { return nil, nil }
func (l listSource) List() []string                  { return l }

func TestFirstSuitable(t *testing.T) {
	gpus := []string{"integrated", "headless", "discrete"}
	picked, err := firstSuitable(gpus, func(name string) (bool, string) {
		return name == "discrete", name + " has no present support"
	})
	if err != nil {
		t.Fatal(err)
	}
	if picked != "discrete" {
		t.Errorf("expected the discrete device, got: %s", picked)
	}

	_, err = firstSuitable(gpus[:2], func(name string) (bool, string) {
		return false, name + " has no present support"
	})
	if err == nil {
		t.Fatal("expected an error without a suitable device")
	}
	if msg := err.Error(); !strings.Contains(msg, "device 0: integrated") || !strings.Contains(msg, "device 1: headless") {
		t.Errorf("expected every rejection in the error, got: %s", msg)
	}

	if _, err := firstSuitable(nil, func(string) (bool, string) { return true, "" }); err == nil {
		t.Error("expected an error without devices")
	}
}

func TestShaderFiles(t *testing.T) {
	src := listSource{
		"borders.frag.wgsl",
		"shaders/vane.vert.wgsl",
		"vane.vert.spv",
		"too.many.parts.wgsl",
		"vane.geom.wgsl",
		"README.md",
	}
	files := shaderFiles(src)
	if len(files) != 2 {
		t.Fatalf("expected 2 shader files, got: %v", files)
	}
	if files[0].name != "borders" || files[0].shaderType != FragmentShaderType || files[0].path != "borders.frag.wgsl" {
		t.Errorf("unexpected first shader: %+v", files[0])
	}
	if files[1].name != "vane" || files[1].shaderType != VertexShaderType || files[1].path != "shaders/vane.vert.wgsl" {
		t.Errorf("unexpected second shader: %+v", files[1])
	}
}

func TestBundledShaderFiles(t *testing.T) {
	files := shaderFiles(assets.Bundled())
	if len(files) != 4 {
		t.Fatalf("expected the 4 bundled shaders, got: %v", files)
	}
}

func TestSliceUint32(t *testing.T) {
	words := SliceUint32([]byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00, 0xff})
	if len(words) != 2 {
		t.Fatalf("expected 2 words, got: %d", len(words))
	}
	if words[0] != 0x07230203 {
		t.Errorf("expected SPIR-V magic, got: %#x", words[0])
	}
	if words[1] != 0x00010000 {
		t.Errorf("unexpected second word: %#x", words[1])
	}
}

func TestSafeStrings(t *testing.T) {
	safe := safeStrings([]string{"VK_KHR_swapchain", "VK_EXT_debug_report\x00"})
	if safe[0] != "VK_KHR_swapchain\x00" || safe[1] != "VK_EXT_debug_report\x00" {
		t.Fatalf("unexpected strings: %q", safe)
	}
}

func TestGetPixels(t *testing.T) {
	img := image.NewNRGBA(image.Rect(2, 2, 4, 3))
	img.Set(2, 2, color.NRGBA{1, 2, 3, 255})
	img.Set(3, 2, color.NRGBA{4, 5, 6, 255})

	tight := GetPixels(img, 0)
	if len(tight) != 8 || tight[0] != 1 || tight[4] != 4 {
		t.Fatalf("unexpected tight pixels: %v", tight)
	}

	pitched := GetPixels(img, 16)
	if len(pitched) != 16 || pitched[4] != 4 || pitched[8] != 0 {
		t.Fatalf("unexpected pitched pixels: %v", pitched)
	}
}

func BenchmarkSliceUint32Small(b *testing.B) {
	data := make([]byte, 100)
	for idx := 0; idx < b.N; idx++ {
		SliceUint32(data)
	}
}

func BenchmarkSliceUint32Medium(b *testing.B) {
	data := make([]byte, 1000)
	for idx := 0; idx < b.N; idx++ {
		SliceUint32(data)
	}
}

func BenchmarkSliceUint32Big(b *testing.B) {
	data := make([]byte, 100000)
	for idx := 0; idx < b.N; idx++ {
		SliceUint32(data)
	}
}

func BenchmarkGetPixels(b *testing.B) {
	img := image.NewNRGBA(image.Rect(0, 0, 256, 256))
	for idx := 0; idx < b.N; idx++ {
		GetPixels(img, 0)
	}
}
