// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/devblok/windmill/core"
	"github.com/devblok/windmill/scene"
	log "github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"
)

func init() {
	runtime.LockOSThread()
}

// Profiling
var (
	cpuProfile   = flag.String("cpuprof", "", "Profile CPU usage to file")
	memProfile   = flag.String("memprof", "", "Profile memory usage into a file")
	traceProfile = flag.String("trace", "", "Trace output for profiling")
	debug        = flag.Bool("vkdbg", false, "Load Vulkan validation layers")
	envFiles     = flag.String("env", ".env", "Comma separated .env files to load")
)

var frameCounter int64

func newWindow(cfg core.RendererConfiguration) *sdl.Window {
	window, err := sdl.CreateWindow("Windmill",
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		int32(cfg.ScreenWidth),
		int32(cfg.ScreenHeight),
		sdl.WINDOW_VULKAN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		log.Fatalf("sdl.CreateWindow(): %s", err.Error())
	}
	return window
}

func main() {
	flag.Parse()

	configuration, err := core.LoadConfiguration(strings.Split(*envFiles, ",")...)
	if err != nil {
		log.Fatal(err)
	}
	log.SetLevel(configuration.LogLevel)
	if *debug {
		configuration.Instance.DebugMode = true
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			log.Fatal(err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal(err)
		}
		defer pprof.StopCPUProfile()
	}

	if *traceProfile != "" {
		f, err := os.Create(*traceProfile)
		if err != nil {
			log.Fatal(err)
		}
		if err := trace.Start(f); err != nil {
			log.Fatal(err)
		}
		defer trace.Stop()
	}

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		log.Fatalf("sdl.Init(): %s", err.Error())
	}
	defer sdl.Quit()

	if err := sdl.VulkanLoadLibrary(""); err != nil {
		log.Fatalf("sdl.VulkanLoadLibrary(): %s", err.Error())
	}
	defer sdl.VulkanUnloadLibrary()

	// The window has to exist before it can report the extensions it needs
	sdlWindow := newWindow(configuration.Renderer)
	defer sdlWindow.Destroy()

	configuration.Instance.Extensions = append(configuration.Instance.Extensions, sdlWindow.VulkanGetInstanceExtensions()...)
	vkInstance, err := core.NewVulkanInstance(core.DefaultVulkanApplicationInfo, sdl.VulkanGetVkGetInstanceProcAddr(), configuration.Instance)
	if err != nil {
		log.Fatal(err)
	}
	defer vkInstance.Destroy()

	srf, err := sdlWindow.VulkanCreateSurface(vkInstance.Inner())
	if err != nil {
		log.Fatalf("sdl.VulkanCreateSurface(): %s", err.Error())
	}
	vkInstance.SetSurface(srf)

	resources, err := core.LoadResources(configuration.Renderer)
	if err != nil {
		log.Fatal(err)
	}
	defer resources.Close()

	vkRenderer, err := core.NewVulkanRenderer(vkInstance, configuration.Renderer, resources.Shaders, resources.Texture)
	if err != nil {
		log.Fatal(err)
	}

	if err := vkRenderer.Initialise(); err != nil {
		log.Fatal(err)
	}
	defer vkRenderer.Destroy()

	timeService := core.NewTime(configuration.Time)
	defer timeService.Stop()

	windmill := scene.NewWindmill()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	programSync := sync.WaitGroup{}

	/* Frame counter loop */
	programSync.Add(1)
	go func(ctx context.Context, wg *sync.WaitGroup) {
		defer wg.Done()
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				log.WithFields(log.Fields{
					"fps":      atomic.SwapInt64(&frameCounter, 0),
					"cgoCalls": runtime.NumCgoCall(),
				}).Debug("frame count")
			}
		}
	}(ctx, &programSync)

	minimized := false

	/* Event and draw loop, both stay on the locked thread */
EventLoop:
	for {
		select {
		case <-ctx.Done():
			log.Info("event loop exited")
			break EventLoop
		case <-timeService.FpsTicker().C:
			// select picks randomly when both cases are ready
			if ctx.Err() != nil {
				continue
			}
			for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
				switch et := event.(type) {
				case *sdl.KeyboardEvent:
					if et.Keysym.Sym == sdl.K_ESCAPE {
						cancel()
						continue EventLoop
					}
				case *sdl.WindowEvent:
					switch et.Event {
					case sdl.WINDOWEVENT_MINIMIZED:
						minimized = true
					case sdl.WINDOWEVENT_RESTORED, sdl.WINDOWEVENT_SHOWN:
						minimized = false
					}
				case *sdl.QuitEvent:
					cancel()
					continue EventLoop
				}
			}

			if minimized {
				continue
			}

			windmill.SetSpin(scene.SpinAt(timeService.Elapsed(), configuration.Scene.SpinPeriod))
			if err := vkRenderer.Draw(windmill.Mesh()); err != nil {
				log.WithError(err).Error("draw failed")
				cancel()
				continue
			}
			if err := vkRenderer.Present(); err != nil {
				log.WithError(err).Error("present failed")
				cancel()
				continue
			}
			atomic.AddInt64(&frameCounter, 1)
		}
	}

	programSync.Wait()

	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatal(err)
		}
	}
}
