// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/devblok/windmill/core"
	"github.com/devblok/windmill/model"
	"github.com/devblok/windmill/scene"
	"github.com/devblok/windmill/snapshot"
	log "github.com/sirupsen/logrus"
)

var (
	output   = flag.String("o", "windmill.png", "PNG file to write")
	elapsed  = flag.Duration("t", 0, "Time into the animation to draw")
	collada  = flag.String("collada", "", "Also export the frame's mesh as a Collada document")
	envFiles = flag.String("env", ".env", "Comma separated .env files to load")
)

func main() {
	flag.Parse()

	cfg, err := core.LoadConfiguration(strings.Split(*envFiles, ",")...)
	if err != nil {
		log.Fatal(err)
	}
	log.SetLevel(cfg.LogLevel)

	resources, err := core.LoadResources(cfg.Renderer)
	if err != nil {
		log.Fatal(err)
	}
	defer resources.Close()

	windmill := scene.NewWindmill()
	windmill.SetSpin(scene.SpinAt(*elapsed, cfg.Scene.SpinPeriod))
	mesh := windmill.Mesh()

	start := time.Now()
	opts := snapshot.DefaultOptions()
	opts.Width = int(cfg.Renderer.ScreenWidth)
	opts.Height = int(cfg.Renderer.ScreenHeight)
	opts.Texture = resources.Texture
	opts.LineWidth = float64(cfg.Renderer.LineWidth)
	opts.DepthTest = cfg.Renderer.DepthTest
	img, err := snapshot.Render(mesh, opts)
	if err != nil {
		log.Fatal(err)
	}
	if err := snapshot.SavePNG(img, *output); err != nil {
		log.Fatalf("snapshot.SavePNG(%s): %s", *output, err.Error())
	}
	log.WithFields(log.Fields{
		"file":     *output,
		"elapsed":  *elapsed,
		"duration": time.Since(start),
	}).Info("snapshot written")

	if *collada != "" {
		data, err := model.ExportCollada(mesh)
		if err != nil {
			log.Fatal(err)
		}
		if err := os.WriteFile(*collada, data, 0644); err != nil {
			log.Fatal(err)
		}
		log.WithField("file", *collada).Info("collada written")
	}
}
