// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
)

func writeTree(c *qt.C, root string, files map[string]string) {
	for name, contents := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		c.Assert(os.MkdirAll(filepath.Dir(path), 0755), qt.IsNil)
		c.Assert(os.WriteFile(path, []byte(contents), 0644), qt.IsNil)
	}
}

func TestCompressListExtract(t *testing.T) {
	c := qt.New(t)
	files := map[string]string{
		"vane.vert.wgsl":    "@vertex fn vs_main() {}",
		"textures/vane.png": "not really a png",
	}
	src := t.TempDir()
	writeTree(c, src, files)

	archive := filepath.Join(t.TempDir(), "assets.kar")
	c.Assert(compressFiles(src, archive), qt.IsNil)
	c.Assert(compressFiles(src, archive), qt.ErrorMatches, "destination file exists.*")

	var listing bytes.Buffer
	c.Assert(listFiles(archive, &listing), qt.IsNil)
	c.Assert(strings.Contains(listing.String(), "textures/vane.png"), qt.Equals, true)
	c.Assert(strings.Contains(listing.String(), "vane.vert.wgsl"), qt.Equals, true)

	dst := t.TempDir()
	c.Assert(extractFiles(archive, dst), qt.IsNil)
	for name, contents := range files {
		data, err := os.ReadFile(filepath.Join(dst, filepath.FromSlash(name)))
		c.Assert(err, qt.IsNil)
		c.Assert(string(data), qt.Equals, contents)
	}
}

func TestCompressSingleFile(t *testing.T) {
	c := qt.New(t)
	src := t.TempDir()
	writeTree(c, src, map[string]string{"nested/only.txt": "only"})

	archive := filepath.Join(t.TempDir(), "single.kar")
	c.Assert(compressFiles(filepath.Join(src, "nested", "only.txt"), archive), qt.IsNil)

	var listing bytes.Buffer
	c.Assert(listFiles(archive, &listing), qt.IsNil)
	c.Assert(strings.Contains(listing.String(), " only.txt\n"), qt.Equals, true)
}

func TestExtractMissingArchive(t *testing.T) {
	c := qt.New(t)
	err := extractFiles(filepath.Join(t.TempDir(), "missing.kar"), t.TempDir())
	c.Assert(err, qt.Not(qt.IsNil))
}
