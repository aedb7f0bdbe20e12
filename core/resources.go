// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"fmt"
	"image"
	"path/filepath"

	"github.com/devblok/windmill/assets"
	"github.com/devblok/windmill/utility/kar"
	log "github.com/sirupsen/logrus"
)

// Resources are the shader sources and the vane texture the renderer starts with
type Resources struct {
	Shaders assets.Source

	// Texture is nil when the vanes are drawn in grayscale
	Texture *image.RGBA

	archive *kar.Archive
}

// LoadResources resolves where shaders and the texture come from.
// A shader directory wins over the asset archive, which wins over
// the shaders bundled into the binary. Without an archive the texture
// name is a path on disk.
func LoadResources(cfg RendererConfiguration) (*Resources, error) {
	res := &Resources{Shaders: assets.Bundled()}

	var textureSource assets.Source
	textureName := cfg.Texture

	if cfg.AssetArchive != "" {
		archive, err := kar.OpenFile(cfg.AssetArchive)
		if err != nil {
			return nil, fmt.Errorf("kar.OpenFile(%s): %s", cfg.AssetArchive, err.Error())
		}
		res.archive = archive
		res.Shaders = assets.Archive(archive)
		textureSource = res.Shaders
		log.WithField("archive", cfg.AssetArchive).Info("using asset archive")
	} else if textureName != "" {
		textureSource = assets.Dir(filepath.Dir(textureName))
		textureName = filepath.Base(textureName)
	}

	if cfg.ShaderDirectory != "" {
		res.Shaders = assets.Dir(cfg.ShaderDirectory)
		log.WithField("directory", cfg.ShaderDirectory).Info("using shader directory")
	}

	if textureName != "" {
		texture, err := assets.LoadTexture(textureSource, textureName, cfg.TextureMaxSize)
		if err != nil {
			res.Close()
			return nil, err
		}
		res.Texture = texture
		log.WithFields(log.Fields{
			"texture": cfg.Texture,
			"width":   texture.Bounds().Dx(),
			"height":  texture.Bounds().Dy(),
		}).Info("texture loaded")
	}

	return res, nil
}

// Close releases the asset archive if one was opened
func (r *Resources) Close() error {
	if r.archive == nil {
		return nil
	}
	err := r.archive.Close()
	r.archive = nil
	return err
}
