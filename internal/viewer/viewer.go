// Package viewer implements the interactive model viewer: window, main loop,
// camera controls and model switching.
package viewer

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/sqweek/dialog"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/ember/internal/assets"
	"github.com/Faultbox/ember/internal/config"
	"github.com/Faultbox/ember/internal/engine/camera"
	"github.com/Faultbox/ember/internal/engine/debug"
	"github.com/Faultbox/ember/internal/engine/framebuffer"
	"github.com/Faultbox/ember/internal/engine/gfx"
	"github.com/Faultbox/ember/internal/engine/importer"
	"github.com/Faultbox/ember/internal/engine/input"
	"github.com/Faultbox/ember/internal/engine/lighting"
	"github.com/Faultbox/ember/internal/engine/model"
	"github.com/Faultbox/ember/internal/engine/picking"
	"github.com/Faultbox/ember/internal/engine/renderer"
	"github.com/Faultbox/ember/internal/engine/texture"
	"github.com/Faultbox/ember/internal/engine/window"
	"github.com/Faultbox/ember/internal/logger"
	"github.com/Faultbox/ember/pkg/formats"
)

const title = "Ember"

// SDL button state masks.
const (
	buttonLeft   = 1 << 0
	buttonMiddle = 1 << 1
	buttonRight  = 1 << 2
)

var (
	boundsColor    = mgl32.Vec3{0.2, 1, 0.3}
	selectionColor = mgl32.Vec3{1, 0.85, 0.1}
)

// Viewer is the model viewer instance.
type Viewer struct {
	cfg *config.Config
	log *zap.Logger

	window   *window.Window
	renderer *renderer.Renderer
	textures *texture.Loader
	assets   *assets.Manager
	input    *input.Input
	camera   *camera.OrbitCamera
	shots    *debug.ScreenshotCapture

	entry      *assets.Entry
	selected   int // mesh index, -1 for none
	showBounds bool
	headlight  bool
	running    bool

	// picks receives paths chosen in the file dialog.
	picks chan string
	// wantShot defers a screenshot until the frame has been drawn.
	wantShot bool
	// press is where the left button went down, for telling clicks from drags.
	press [2]int

	setTitle         func(string)
	toggleFullscreen func() error
	drawableSize     func() (int32, int32)
	// windowSize is in the same units as mouse coordinates.
	windowSize func() (int32, int32)
}

// New opens the window, creates the GL context and the render stack.
func New(cfg *config.Config) (*Viewer, error) {
	log := logger.Named("viewer")
	log.Info("initializing viewer",
		zap.Int("width", cfg.Window.Width),
		zap.Int("height", cfg.Window.Height),
	)

	win, err := window.New(window.Config{
		Title:      title,
		Width:      cfg.Window.Width,
		Height:     cfg.Window.Height,
		Fullscreen: cfg.Window.Fullscreen,
		VSync:      cfg.Window.VSync,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	// The GL context must be current before anything touches the driver.
	dev, err := gfx.NewGL()
	if err != nil {
		win.Close()
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	log.Info("OpenGL initialized", zap.String("version", dev.Version()), zap.String("renderer", dev.Renderer()))

	programs, err := renderer.BuildPrograms(dev)
	if err != nil {
		win.Close()
		return nil, fmt.Errorf("failed to build shaders: %w", err)
	}

	v, err := newViewer(cfg, dev, programs, win.DrawableSize)
	if err != nil {
		win.Close()
		return nil, err
	}
	v.window = win
	v.setTitle = win.SetTitle
	v.toggleFullscreen = win.ToggleFullscreen
	v.windowSize = func() (int32, int32) {
		w, h := win.GetSize()
		return int32(w), int32(h)
	}
	return v, nil
}

// newViewer builds everything below the window. drawableSize reports the
// default framebuffer size in pixels.
func newViewer(cfg *config.Config, dev gfx.Device, programs renderer.Programs, drawableSize func() (int32, int32)) (*Viewer, error) {
	log := logger.Named("viewer")
	width, height := drawableSize()

	rcfg := renderer.DefaultConfig()
	rcfg.Width, rcfg.Height = width, height
	rcfg.ClearColor = mgl32.Vec3(cfg.Render.ClearColor)
	rcfg.Shadows = cfg.Render.Shadows
	rcfg.ShadowResolution = int32(cfg.Render.ShadowResolution)
	rcfg.HDR = cfg.Render.HDR

	factory := framebuffer.NewFactory(dev).WithLogger(logger.Named("framebuffer"))
	r, err := renderer.New(dev, factory, rcfg, programs)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("failed to create renderer: %w", err), programs.Release())
	}

	textures := texture.NewLoader(dev).WithLogger(logger.Named("texture"))
	if c, err := config.ParseColor(cfg.Assets.FallbackColor); err == nil {
		textures.SetFallbackColor(model.DiffuseMap, c)
	}

	mgr, err := assets.NewManager(dev, textures, assets.Options{
		Import: importer.Options{
			GenNormals:       cfg.Import.GenNormals,
			CalcTangentSpace: cfg.Import.CalcTangents,
		},
		Watch:  cfg.Assets.Watch,
		Logger: logger.Named("assets"),
	})
	if err != nil {
		return nil, multierr.Append(err, r.Close())
	}

	return &Viewer{
		cfg:              cfg,
		log:              log,
		renderer:         r,
		textures:         textures,
		assets:           mgr,
		input:            input.New(),
		camera:           camera.NewOrbitCamera(),
		shots:            debug.NewScreenshotCapture(cfg.Assets.ScreenshotDir, "ember"),
		showBounds:       cfg.Render.ShowBounds,
		selected:         -1,
		picks:            make(chan string, 1),
		setTitle:         func(string) {},
		drawableSize:     drawableSize,
		windowSize:       drawableSize,
		toggleFullscreen: func() error { return nil },
	}, nil
}

// Open loads the model at path and makes it the displayed model. On failure
// the current model stays on screen.
func (v *Viewer) Open(path string) error {
	e, err := v.assets.Load(path)
	if err != nil {
		v.log.Error("failed to open model", zap.String("path", path), zap.Error(err))
		return err
	}

	if v.entry != nil && v.entry.ID != e.ID {
		if err := v.assets.Unload(v.entry.Path); err != nil {
			v.log.Warn("failed to unload previous model", zap.String("path", v.entry.Path), zap.Error(err))
		}
	}
	v.entry = e
	v.selected = -1
	v.camera.FitToBounds(e.Model.Bounds())
	v.updateTitle()
	return nil
}

// Model returns the displayed model, or nil.
func (v *Viewer) Model() *model.LoadedModelInfo {
	if v.entry == nil {
		return nil
	}
	return v.entry.Model
}

func (v *Viewer) updateTitle() {
	if v.entry == nil {
		v.setTitle(title)
		return
	}
	info := v.entry.Model
	v.setTitle(fmt.Sprintf("%s - %s (%d meshes, %d triangles)",
		title, filepath.Base(v.entry.Path), len(info.Meshes), info.TriangleCount()))
}

// Run starts the main loop and returns when the window is closed.
func (v *Viewer) Run() error {
	v.running = true

	lastTime := time.Now()
	frameCount := 0
	fpsTimer := time.Now()

	v.log.Info("starting main loop")

	for v.running {
		now := time.Now()
		dt := now.Sub(lastTime).Seconds()
		lastTime = now

		if v.input.Update() {
			v.running = false
			break
		}
		for _, ev := range v.input.Events() {
			v.handleEvent(ev)
		}

		if err := v.frame(); err != nil {
			return fmt.Errorf("render error: %w", err)
		}
		v.window.SwapBuffers()

		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			stats := v.renderer.Stats()
			texHits, texMisses, texCached := v.textures.Stats()
			v.log.Debug("fps",
				zap.Int("count", frameCount),
				zap.Float64("dt_ms", dt*1000),
				zap.Int("draw_calls", stats.DrawCalls),
				zap.Int("triangles", stats.Triangles),
				zap.Int("texture_hits", texHits),
				zap.Int("texture_misses", texMisses),
				zap.Int("textures_cached", texCached),
			)
			frameCount = 0
			fpsTimer = time.Now()
		}
	}
	return nil
}

// frame applies pending reloads and dialog picks, then draws.
func (v *Viewer) frame() error {
	select {
	case path := <-v.picks:
		_ = v.Open(path)
	default:
	}

	for _, e := range v.assets.ProcessReloads() {
		if v.entry != nil && e.ID == v.entry.ID {
			v.entry = e
			v.updateTitle()
			v.log.Info("model reloaded", zap.String("path", e.Path), zap.Int("generation", e.Generation))
		}
	}

	if err := v.render(); err != nil {
		return err
	}
	if v.wantShot {
		v.wantShot = false
		if _, err := v.Screenshot(); err != nil {
			v.log.Error("screenshot failed", zap.Error(err))
		}
	}
	return nil
}

func (v *Viewer) view() renderer.View {
	return renderer.View{
		View:       v.camera.ViewMatrix(),
		Projection: v.camera.ProjectionMatrix(v.renderer.Aspect()),
		Position:   v.camera.Position(),
	}
}

// render draws the displayed model to the default framebuffer.
func (v *Viewer) render() error {
	v.renderer.Begin()
	if v.entry == nil {
		return nil
	}
	return v.drawScene()
}

func (v *Viewer) drawScene() error {
	info := v.entry.Model
	transform := mgl32.Ident4()

	v.renderer.Lights = v.renderer.Lights[:0]
	if v.headlight {
		v.renderer.Lights = append(v.renderer.Lights, lighting.PointLight{
			Position:  v.camera.Position(),
			Color:     mgl32.Vec3{1, 1, 1},
			Range:     v.camera.Distance * 2,
			Intensity: 0.6,
		})
	}

	if err := v.renderer.ShadowPass(info, transform); err != nil {
		return err
	}
	view := v.view()
	if err := v.renderer.DrawModel(info, transform, view); err != nil {
		return err
	}
	if v.showBounds {
		if lines := debug.MeshWireframes(info, 0.01); len(lines) > 0 {
			if err := v.renderer.DrawLines(lines, boundsColor, view); err != nil {
				return err
			}
		}
	}
	if v.selected >= 0 && v.selected < len(info.Meshes) {
		lines := debug.BBoxWireframe(info.Meshes[v.selected].Bounds, 0.02)
		if err := v.renderer.DrawLines(lines, selectionColor, view); err != nil {
			return err
		}
	}
	return nil
}

// Selected returns the selected mesh, or nil.
func (v *Viewer) Selected() *model.Mesh {
	m := v.Model()
	if m == nil || v.selected < 0 || v.selected >= len(m.Meshes) {
		return nil
	}
	return m.Meshes[v.selected]
}

// pick selects the mesh under the window position x, y.
func (v *Viewer) pick(x, y int) {
	info := v.Model()
	if info == nil {
		return
	}
	w, h := v.windowSize()
	view := v.view()
	inv := view.Projection.Mul4(view.View).Inv()
	ray := picking.ScreenToRay(float32(x), float32(y), float32(w), float32(h), inv)

	idx, dist, ok := picking.PickMesh(ray, info)
	v.selected = idx
	if !ok {
		v.log.Debug("selection cleared")
		return
	}
	mesh := info.Meshes[idx]
	v.log.Info("mesh selected",
		zap.Int("index", idx),
		zap.String("name", mesh.Name),
		zap.Int("material", mesh.MaterialIndex),
		zap.Int("triangles", mesh.TriangleCount()),
		zap.Float32("distance", dist),
	)
}

// Screenshot renders the current model into an off-screen target and saves it
// as a PNG, returning the file name.
func (v *Viewer) Screenshot() (string, error) {
	target, err := v.renderer.Offscreen()
	if err != nil {
		return "", err
	}
	defer target.Release()

	restore, err := target.BindWithViewport()
	if err != nil {
		return "", err
	}
	v.renderer.Clear()
	if v.entry != nil {
		if err := v.drawScene(); err != nil {
			restore()
			return "", err
		}
	}
	restore()

	name, err := v.shots.CaptureTarget(target)
	if err != nil {
		return "", err
	}
	v.log.Info("screenshot saved", zap.String("file", name))
	return name, nil
}

// openDialog shows a native file picker. The dialog blocks, so it runs on
// its own goroutine and hands the path to the main loop.
func (v *Viewer) openDialog() {
	exts := formats.Extensions()
	go func() {
		path, err := dialog.File().
			Filter("3D Models", exts...).
			Filter("All Files", "*").
			Title("Open Model").
			Load()
		if err != nil {
			if err != dialog.ErrCancelled {
				v.log.Error("file dialog failed", zap.Error(err))
			}
			return
		}
		select {
		case v.picks <- path:
		default:
		}
	}()
}

// Close releases the model cache, renderer and window.
func (v *Viewer) Close() error {
	v.log.Info("closing viewer")

	var errs error
	if v.assets != nil {
		errs = multierr.Append(errs, v.assets.Close())
	}
	if v.renderer != nil {
		errs = multierr.Append(errs, v.renderer.Close())
	}
	if v.window != nil {
		v.window.Close()
	}
	return errs
}
