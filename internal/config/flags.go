package config

import "flag"

var (
	flagConfig       = flag.String("config", "", "Path to config file")
	flagDebug        = flag.Bool("debug", false, "Enable debug logging and bounding boxes")
	flagWindowed     = flag.Bool("windowed", false, "Run in windowed mode")
	flagFullscreen   = flag.Bool("fullscreen", false, "Run in fullscreen mode")
	flagWidth        = flag.Int("width", 0, "Window width")
	flagHeight       = flag.Int("height", 0, "Window height")
	flagWatch        = flag.Bool("watch", false, "Reload models and textures when they change on disk")
	flagGenNormals   = flag.Bool("gen-normals", false, "Generate normals for meshes without them")
	flagCalcTangents = flag.Bool("calc-tangents", false, "Calculate tangents and bitangents")
	flagNoShadows    = flag.Bool("no-shadows", false, "Disable shadow mapping")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the non-flag arguments.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
		cfg.Render.ShowBounds = true
	}
	if *flagWindowed {
		cfg.Window.Fullscreen = false
	}
	if *flagFullscreen {
		cfg.Window.Fullscreen = true
	}
	if *flagWidth > 0 {
		cfg.Window.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Window.Height = *flagHeight
	}
	if *flagWatch {
		cfg.Assets.Watch = true
	}
	if *flagGenNormals {
		cfg.Import.GenNormals = true
	}
	if *flagCalcTangents {
		cfg.Import.CalcTangents = true
	}
	if *flagNoShadows {
		cfg.Render.Shadows = false
	}
}
