// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/devblok/windmill/scene"
	"github.com/gobuffalo/envy"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Environment keys read by LoadConfiguration
const (
	EnvWidth         = "WINDMILL_WIDTH"
	EnvHeight        = "WINDMILL_HEIGHT"
	EnvFPS           = "WINDMILL_FPS"
	EnvSwapchainSize = "WINDMILL_SWAPCHAIN_SIZE"
	EnvDebug         = "WINDMILL_DEBUG"
	EnvShaders       = "WINDMILL_SHADERS"
	EnvAssets        = "WINDMILL_ASSETS"
	EnvTexture       = "WINDMILL_TEXTURE"
	EnvTextureMax    = "WINDMILL_TEXTURE_MAX"
	EnvSpinPeriod    = "WINDMILL_SPIN_PERIOD"
	EnvLineWidth     = "WINDMILL_LINE_WIDTH"
	EnvDepthTest     = "WINDMILL_DEPTH_TEST"
	EnvLogLevel      = "WINDMILL_LOG_LEVEL"
)

// Configuration defines a global engine configuration setting
type Configuration struct {
	Time     TimeConfiguration
	Instance InstanceConfiguration
	Renderer RendererConfiguration
	Scene    SceneConfiguration

	LogLevel log.Level
}

// TimeConfiguration is used to configure time services
type TimeConfiguration struct {
	// FramesPerSecond caps frames per second that is put out
	// To unlimit, set to 0
	FramesPerSecond int
}

// InstanceConfiguration is used to create the Vulkan instance
type InstanceConfiguration struct {
	// DebugMode enables the validation layer
	DebugMode bool

	Extensions []string
	Layers     []string
}

// RendererConfiguration is used to configure the renderer
type RendererConfiguration struct {
	SwapchainSize    uint32
	DeviceExtensions []string

	ScreenWidth  uint32
	ScreenHeight uint32

	// ShaderDirectory overrides the bundled shaders when set
	ShaderDirectory string

	// AssetArchive is a kar pack to take shaders and the texture from
	AssetArchive string

	// Texture is the name of the vane texture, empty for grayscale
	Texture        string
	TextureMaxSize int

	LineWidth float32
	DepthTest bool
}

// SceneConfiguration is used to configure the windmill
type SceneConfiguration struct {
	// SpinPeriod is the time of one revolution of the vanes
	SpinPeriod time.Duration
}

// DefaultConfiguration is the configuration with no environment set
func DefaultConfiguration() Configuration {
	return Configuration{
		Time: TimeConfiguration{
			FramesPerSecond: 60,
		},
		Renderer: RendererConfiguration{
			SwapchainSize:  3,
			ScreenWidth:    1000,
			ScreenHeight:   1000,
			TextureMaxSize: 1024,
			LineWidth:      2,
		},
		Scene: SceneConfiguration{
			SpinPeriod: scene.DefaultSpinPeriod,
		},
		LogLevel: log.InfoLevel,
	}
}

// LoadConfiguration reads the given .env files, missing ones are
// skipped, and builds the configuration from the environment.
// Values from the files override the ones already set.
func LoadConfiguration(files ...string) (Configuration, error) {
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) > 0 {
		if err := godotenv.Overload(existing...); err != nil {
			return Configuration{}, fmt.Errorf("godotenv.Overload(): %s", err.Error())
		}
	}
	envy.Reload()

	cfg := DefaultConfiguration()
	p := envParser{}

	cfg.Renderer.ScreenWidth = p.uint32(EnvWidth, cfg.Renderer.ScreenWidth)
	cfg.Renderer.ScreenHeight = p.uint32(EnvHeight, cfg.Renderer.ScreenHeight)
	cfg.Renderer.SwapchainSize = p.uint32(EnvSwapchainSize, cfg.Renderer.SwapchainSize)
	cfg.Renderer.ShaderDirectory = envy.Get(EnvShaders, "")
	cfg.Renderer.AssetArchive = envy.Get(EnvAssets, "")
	cfg.Renderer.Texture = envy.Get(EnvTexture, "")
	cfg.Renderer.TextureMaxSize = p.int(EnvTextureMax, cfg.Renderer.TextureMaxSize)
	cfg.Renderer.LineWidth = p.float32(EnvLineWidth, cfg.Renderer.LineWidth)
	cfg.Renderer.DepthTest = p.bool(EnvDepthTest, false)
	cfg.Time.FramesPerSecond = p.int(EnvFPS, cfg.Time.FramesPerSecond)
	cfg.Instance.DebugMode = p.bool(EnvDebug, false)
	cfg.Scene.SpinPeriod = p.duration(EnvSpinPeriod, cfg.Scene.SpinPeriod)

	if level := envy.Get(EnvLogLevel, ""); level != "" {
		parsed, err := log.ParseLevel(level)
		if err != nil {
			p.fail(EnvLogLevel, err)
		} else {
			cfg.LogLevel = parsed
		}
	}

	if p.err != nil {
		return Configuration{}, p.err
	}

	if cfg.Renderer.ScreenWidth == 0 || cfg.Renderer.ScreenHeight == 0 {
		return Configuration{}, fmt.Errorf("screen size %dx%d is empty", cfg.Renderer.ScreenWidth, cfg.Renderer.ScreenHeight)
	}
	if cfg.Scene.SpinPeriod <= 0 {
		return Configuration{}, fmt.Errorf("%s: spin period must be positive", EnvSpinPeriod)
	}
	if cfg.Renderer.LineWidth <= 0 {
		return Configuration{}, fmt.Errorf("%s: line width must be positive", EnvLineWidth)
	}
	return cfg, nil
}

// envParser keeps the first parse error so every key can be read in a row
type envParser struct {
	err error
}

func (p *envParser) fail(key string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%s: %s", key, err.Error())
	}
}

func (p *envParser) int(key string, def int) int {
	raw := envy.Get(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return v
}

func (p *envParser) uint32(key string, def uint32) uint32 {
	raw := envy.Get(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return uint32(v)
}

func (p *envParser) float32(key string, def float32) float32 {
	raw := envy.Get(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 32)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return float32(v)
}

func (p *envParser) bool(key string, def bool) bool {
	raw := envy.Get(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return v
}

func (p *envParser) duration(key string, def time.Duration) time.Duration {
	raw := envy.Get(key, "")
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return v
}
