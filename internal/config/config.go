// Package config handles viewer configuration loading and management.
package config

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Config holds all viewer settings.
type Config struct {
	Window  WindowConfig  `yaml:"window"`
	Render  RenderConfig  `yaml:"render"`
	Import  ImportConfig  `yaml:"import"`
	Assets  AssetsConfig  `yaml:"assets"`
	Logging LoggingConfig `yaml:"logging"`
}

// WindowConfig holds display settings.
type WindowConfig struct {
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	Fullscreen bool `yaml:"fullscreen"`
	VSync      bool `yaml:"vsync"`
}

// RenderConfig holds rendering settings.
type RenderConfig struct {
	Shadows          bool       `yaml:"shadows"`
	ShadowResolution int        `yaml:"shadow_resolution"`
	HDR              bool       `yaml:"hdr"` // float offscreen targets for screenshots
	ClearColor       [3]float32 `yaml:"clear_color"`
	ShowBounds       bool       `yaml:"show_bounds"`
}

// ImportConfig holds post-processing options for the importer.
type ImportConfig struct {
	GenNormals   bool `yaml:"gen_normals"`
	CalcTangents bool `yaml:"calc_tangents"`
}

// AssetsConfig holds asset cache settings.
type AssetsConfig struct {
	Watch         bool   `yaml:"watch"`
	FallbackColor string `yaml:"fallback_color"` // #rrggbb, used for missing albedo maps
	ScreenshotDir string `yaml:"screenshot_dir"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Width:      1280,
			Height:     720,
			Fullscreen: false,
			VSync:      true,
		},
		Render: RenderConfig{
			Shadows:          true,
			ShadowResolution: 2048,
			ClearColor:       [3]float32{0.1, 0.1, 0.15},
		},
		Assets: AssetsConfig{
			Watch:         false,
			FallbackColor: "#ff00ff",
			ScreenshotDir: "screenshots",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate reports settings that cannot be used.
func (c *Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height)
	}
	if r := c.Render.ShadowResolution; r <= 0 || r&(r-1) != 0 {
		return fmt.Errorf("shadow_resolution %d must be a positive power of two", r)
	}
	if _, err := ParseColor(c.Assets.FallbackColor); err != nil {
		return fmt.Errorf("fallback_color: %w", err)
	}
	return nil
}

// ParseColor parses an opaque #rrggbb color.
func ParseColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("color %q is not #rrggbb", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("color %q is not #rrggbb", s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}
