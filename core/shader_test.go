// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"testing"

	"github.com/devblok/windmill/assets"
	"github.com/devblok/windmill/core"
)

func TestCompileBundledShaders(t *testing.T) {
	src := assets.Bundled()
	for _, name := range src.List() {
		source, err := src.ReadFile(name)
		if err != nil {
			t.Fatal(err)
		}
		code, err := core.CompileShader(string(source))
		if err != nil {
			t.Errorf("%s: %s", name, err)
			continue
		}
		if code[0] != 0x07230203 {
			t.Errorf("%s: output does not start with the SPIR-V magic: %#x", name, code[0])
		}
	}
}

func TestCompileShaderError(t *testing.T) {
	if _, err := core.CompileShader("@vertex fn vs_main( {"); err == nil {
		t.Fatal("expected a compile error")
	}
}
