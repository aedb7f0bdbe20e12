// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package assets provides shader sources and textures, either
// bundled with the binary, from a directory or from a kar archive.
package assets

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/devblok/windmill/utility/kar"
	"github.com/gobuffalo/packd"
	"github.com/gobuffalo/packr"
)

// Source is a read only collection of named files.
// Names always use forward slashes.
type Source interface {
	// ReadFile returns the whole contents of a file
	ReadFile(name string) ([]byte, error)

	// List returns the names of all files, sorted
	List() []string
}

var shaderBox = packr.NewBox("./shaders")

// Bundled returns the shaders that are compiled into the binary.
func Bundled() Source {
	return boxSource{box: shaderBox}
}

type boxSource struct {
	box packr.Box
}

func (b boxSource) ReadFile(name string) ([]byte, error) {
	return b.box.Find(name)
}

func (b boxSource) List() []string {
	var names []string
	b.box.Walk(func(name string, _ packd.File) error {
		names = append(names, filepath.ToSlash(name))
		return nil
	})
	sort.Strings(names)
	return names
}

// Dir returns a source backed by a directory on disk.
func Dir(path string) Source {
	return dirSource(path)
}

type dirSource string

func (d dirSource) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(string(d), filepath.FromSlash(name)))
}

func (d dirSource) List() []string {
	var names []string
	filepath.Walk(string(d), func(path string, f os.FileInfo, err error) error {
		if err != nil || f.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(string(d), path)
		if err != nil {
			return nil
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	sort.Strings(names)
	return names
}

// Archive returns a source backed by a kar archive.
func Archive(ar *kar.Archive) Source {
	return archiveSource{archive: ar}
}

type archiveSource struct {
	archive *kar.Archive
}

func (a archiveSource) ReadFile(name string) ([]byte, error) {
	return a.archive.ReadAll(name)
}

func (a archiveSource) List() []string {
	return a.archive.List()
}
