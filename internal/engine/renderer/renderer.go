// Package renderer draws imported models with a forward-lit shader.
package renderer

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/ember/internal/engine/framebuffer"
	"github.com/Faultbox/ember/internal/engine/gfx"
	"github.com/Faultbox/ember/internal/engine/lighting"
	"github.com/Faultbox/ember/internal/engine/model"
	"github.com/Faultbox/ember/internal/engine/renderer/shaders"
	"github.com/Faultbox/ember/internal/engine/shader"
	"github.com/Faultbox/ember/internal/engine/shadow"
	"github.com/Faultbox/ember/internal/logger"
)

// ShadowUnit is the texture unit the shadow map is sampled from. It is above
// every unit model.TextureSlot hands out.
const ShadowUnit = 10

// Config holds renderer configuration.
type Config struct {
	Width  int32
	Height int32

	ClearColor mgl32.Vec3
	// BaseColor is used for meshes without an albedo texture.
	BaseColor mgl32.Vec3

	Shadows          bool
	ShadowResolution int32
	// HDR makes Offscreen allocate a float color target.
	HDR bool
}

// DefaultConfig returns an 800x600 config with shadows on.
func DefaultConfig() Config {
	return Config{
		Width:            800,
		Height:           600,
		ClearColor:       mgl32.Vec3{0.1, 0.1, 0.15},
		BaseColor:        mgl32.Vec3{0.8, 0.8, 0.8},
		Shadows:          true,
		ShadowResolution: shadow.DefaultResolution,
	}
}

// Program is the shader interface the renderer needs. *shader.Program
// implements it.
type Program interface {
	model.Program
	SetFloat(name string, v float32)
	SetVec3(name string, v mgl32.Vec3)
	Release() error
}

// Programs are the shader programs used by the renderer. The renderer owns
// them after New.
type Programs struct {
	Model Program
	Depth Program
	Lines Program
}

// BuildPrograms compiles the embedded shaders. It needs a current context.
func BuildPrograms(dev gfx.Device) (Programs, error) {
	scope := gfx.NewScope()
	build := func(name, vs, fs string) (*shader.Program, error) {
		p, err := shader.Build(dev, name, vs, fs)
		if err != nil {
			return nil, err
		}
		scope.Add(p)
		return p, nil
	}

	modelProg, err := build("model", shaders.ModelVertexShader, shaders.ModelFragmentShader)
	if err != nil {
		return Programs{}, multierr.Append(err, scope.Close())
	}
	depthProg, err := build("depth", shaders.DepthVertexShader, shaders.DepthFragmentShader)
	if err != nil {
		return Programs{}, multierr.Append(err, scope.Close())
	}
	linesProg, err := build("lines", shaders.LinesVertexShader, shaders.LinesFragmentShader)
	if err != nil {
		return Programs{}, multierr.Append(err, scope.Close())
	}
	return Programs{Model: modelProg, Depth: depthProg, Lines: linesProg}, nil
}

// Release deletes every non-nil program.
func (p Programs) Release() error {
	var errs error
	for _, prog := range []Program{p.Model, p.Depth, p.Lines} {
		if prog != nil {
			errs = multierr.Append(errs, prog.Release())
		}
	}
	return errs
}

// View is the camera state for one frame.
type View struct {
	View       mgl32.Mat4
	Projection mgl32.Mat4
	Position   mgl32.Vec3
}

// Stats counts the work of the current frame.
type Stats struct {
	Meshes    int
	Triangles int
	DrawCalls int
}

// Renderer draws LoadedModelInfo values. All methods must be called on the
// render thread.
type Renderer struct {
	dev      gfx.Device
	cfg      Config
	programs Programs
	shadow   *shadow.Map
	factory  *framebuffer.Factory
	log      *zap.Logger

	// Sun and Lights are read every DrawModel.
	Sun    lighting.Sun
	Lights []lighting.PointLight

	fallback   *model.Material
	lightSpace mgl32.Mat4
	shadowDone bool

	lineVAO, lineVBO uint32

	stats Stats
}

// New creates a renderer. With cfg.Shadows the shadow map is allocated from
// factory.
func New(dev gfx.Device, factory *framebuffer.Factory, cfg Config, programs Programs) (*Renderer, error) {
	r := &Renderer{
		dev:      dev,
		cfg:      cfg,
		programs: programs,
		factory:  factory,
		log:      logger.Named("renderer"),
		Sun:      lighting.DefaultSun(),
		fallback: model.NewMaterial("default"),
	}

	if cfg.Shadows {
		m, err := shadow.NewMap(dev, factory, cfg.ShadowResolution)
		if err != nil {
			return nil, fmt.Errorf("creating shadow map: %w", err)
		}
		r.shadow = m
	}

	dev.Enable(gl.DEPTH_TEST)
	dev.DepthFunc(gl.LESS)
	dev.ClearColor(cfg.ClearColor[0], cfg.ClearColor[1], cfg.ClearColor[2], 1)

	r.log.Debug("renderer created",
		zap.Int32("width", cfg.Width),
		zap.Int32("height", cfg.Height),
		zap.Bool("shadows", cfg.Shadows),
	)
	return r, nil
}

// WithLogger replaces the renderer's logger.
func (r *Renderer) WithLogger(log *zap.Logger) *Renderer {
	r.log = log
	return r
}

// Resize handles window resize.
func (r *Renderer) Resize(width, height int32) {
	r.cfg.Width = width
	r.cfg.Height = height
	r.dev.Viewport(0, 0, width, height)
	r.log.Debug("renderer resized", zap.Int32("width", width), zap.Int32("height", height))
}

// Aspect returns width / height of the default framebuffer.
func (r *Renderer) Aspect() float32 {
	if r.cfg.Height == 0 {
		return 1
	}
	return float32(r.cfg.Width) / float32(r.cfg.Height)
}

// Begin starts a new frame on the default framebuffer.
func (r *Renderer) Begin() {
	r.stats = Stats{}
	r.shadowDone = false
	r.dev.BindFramebuffer(gl.FRAMEBUFFER, 0)
	r.dev.Viewport(0, 0, r.cfg.Width, r.cfg.Height)
	r.Clear()
}

// Clear clears color and depth of the bound framebuffer.
func (r *Renderer) Clear() {
	r.dev.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// Stats returns the counters of the current frame.
func (r *Renderer) Stats() Stats { return r.stats }

// ShadowPass renders info into the shadow map from the sun. It is a no-op
// when shadows are disabled.
func (r *Renderer) ShadowPass(info *model.LoadedModelInfo, transform mgl32.Mat4) error {
	if r.shadow == nil {
		return nil
	}
	bounds := transformBounds(info.Bounds(), transform)
	r.lightSpace = shadow.LightMatrix(r.Sun.Direction.Normalize(), bounds)

	end, err := r.shadow.Begin()
	if err != nil {
		return err
	}
	defer end()

	p := r.programs.Depth
	p.Use()
	p.SetMat4("lightSpace", r.lightSpace)
	p.SetMat4("model", transform)

	var errs error
	for _, mesh := range info.Meshes {
		if !mesh.Ready() {
			continue
		}
		errs = multierr.Append(errs, mesh.Draw(1))
		r.stats.DrawCalls++
	}
	r.shadowDone = true
	return errs
}

// DrawModel draws every ready mesh of info with its material.
func (r *Renderer) DrawModel(info *model.LoadedModelInfo, transform mgl32.Mat4, v View) error {
	return r.DrawModelInstanced(info, transform, v, 1)
}

// DrawModelInstanced draws instances copies of every ready mesh.
func (r *Renderer) DrawModelInstanced(info *model.LoadedModelInfo, transform mgl32.Mat4, v View, instances uint32) error {
	if instances == 0 {
		return nil
	}
	var errs error
	for _, mesh := range info.Meshes {
		if !mesh.Ready() {
			continue
		}
		mat := info.Material(mesh.MaterialIndex)
		if mat == nil {
			mat = r.fallback
		}
		if err := r.drawMesh(mesh, mat, transform, v, instances); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("drawing mesh %s: %w", mesh.Name, err))
		}
	}
	return errs
}

func (r *Renderer) drawMesh(mesh *model.Mesh, mat *model.Material, transform mgl32.Mat4, v View, instances uint32) error {
	if mat.Shader() == nil {
		mat.SetShader(r.programs.Model)
	}
	if err := mat.BindTextures(r.dev); err != nil {
		return err
	}
	if err := mat.SetMVP(transform, v.View, v.Projection); err != nil {
		return err
	}
	r.setLighting(mat, v)

	if err := mesh.Draw(instances); err != nil {
		return err
	}
	r.stats.Meshes++
	r.stats.DrawCalls++
	r.stats.Triangles += mesh.TriangleCount() * int(instances)
	return nil
}

func (r *Renderer) setLighting(mat *model.Material, v View) {
	p := r.programs.Model
	p.SetInt("useAlbedoMap", boolInt(hasTexture(mat, model.DiffuseMap)))
	p.SetInt("useNormalMap", boolInt(hasTexture(mat, model.NormalMap)))
	p.SetVec3("baseColor", r.cfg.BaseColor)
	p.SetVec3("sunDirection", r.Sun.Direction.Normalize())
	p.SetVec3("sunColor", r.Sun.Color)
	p.SetFloat("ambient", r.Sun.Ambient)
	p.SetVec3("viewPos", v.Position)

	lights := lighting.Limit(r.Lights)
	p.SetInt("pointLightCount", int32(len(lights)))
	for i, l := range lights {
		prefix := fmt.Sprintf("pointLights[%d].", i)
		p.SetVec3(prefix+"position", l.Position)
		p.SetVec3(prefix+"color", l.Color)
		p.SetFloat(prefix+"range", l.Range)
		p.SetFloat(prefix+"intensity", l.Intensity)
	}

	if r.shadow != nil && r.shadowDone {
		_ = r.shadow.BindTexture(ShadowUnit)
		p.SetInt("shadowMap", ShadowUnit)
		p.SetMat4("lightSpace", r.lightSpace)
		p.SetInt("shadowsEnabled", 1)
	} else {
		p.SetInt("shadowsEnabled", 0)
	}
}

// DrawLines draws vertices ([x, y, z] triples, two per segment) as lines.
func (r *Renderer) DrawLines(vertices []float32, color mgl32.Vec3, v View) error {
	if len(vertices) < 6 {
		return nil
	}
	if r.lineVAO == 0 {
		r.lineVAO = r.dev.GenVertexArray()
		r.lineVBO = r.dev.GenBuffer()
		if r.lineVAO == 0 || r.lineVBO == 0 {
			r.releaseLines()
			return &gfx.ResourceError{Op: "create line buffers", Err: gfx.ErrAllocation}
		}
		r.dev.BindVertexArray(r.lineVAO)
		r.dev.BindBuffer(gl.ARRAY_BUFFER, r.lineVBO)
		r.dev.EnableVertexAttribArray(0)
		r.dev.VertexAttribPointer(0, 3, gl.FLOAT, false, 3*4, 0)
		r.dev.BindVertexArray(0)
	}

	p := r.programs.Lines
	p.Use()
	p.SetMat4("view", v.View)
	p.SetMat4("projection", v.Projection)
	p.SetVec3("color", color)

	r.dev.BindVertexArray(r.lineVAO)
	r.dev.BindBuffer(gl.ARRAY_BUFFER, r.lineVBO)
	r.dev.BufferData(gl.ARRAY_BUFFER, unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), len(vertices)*4), gl.DYNAMIC_DRAW)
	r.dev.DrawArrays(gl.LINES, 0, int32(len(vertices)/3))
	r.dev.BindVertexArray(0)
	r.stats.DrawCalls++
	return nil
}

// Offscreen creates a color target matching the window size.
func (r *Renderer) Offscreen() (*framebuffer.Target, error) {
	if r.cfg.HDR {
		return r.factory.HDR(r.cfg.Width, r.cfg.Height)
	}
	return r.factory.ColorDepthStencil(r.cfg.Width, r.cfg.Height)
}

func (r *Renderer) releaseLines() {
	if r.lineVAO != 0 {
		r.dev.DeleteVertexArray(r.lineVAO)
		r.lineVAO = 0
	}
	if r.lineVBO != 0 {
		r.dev.DeleteBuffer(r.lineVBO)
		r.lineVBO = 0
	}
}

// Close releases the shadow map, line buffers and programs.
func (r *Renderer) Close() error {
	r.log.Info("closing renderer")
	var errs error
	if r.shadow != nil {
		errs = multierr.Append(errs, r.shadow.Release())
		r.shadow = nil
	}
	r.releaseLines()
	errs = multierr.Append(errs, r.programs.Release())
	r.programs = Programs{}
	return errs
}

func hasTexture(mat *model.Material, t model.TextureType) bool {
	for _, tex := range mat.Textures() {
		if tex.Type() == t {
			return true
		}
	}
	return false
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// transformBounds returns the axis-aligned box around b's corners under m.
func transformBounds(b model.Bounds, m mgl32.Mat4) model.Bounds {
	var out model.Bounds
	for i := 0; i < 8; i++ {
		corner := mgl32.Vec3{b.Min[0], b.Min[1], b.Min[2]}
		for axis := 0; axis < 3; axis++ {
			if i&(1<<axis) != 0 {
				corner[axis] = b.Max[axis]
			}
		}
		p := m.Mul4x1(corner.Vec4(1)).Vec3()
		if i == 0 {
			out = model.Bounds{Min: p, Max: p}
			continue
		}
		out = out.Union(model.Bounds{Min: p, Max: p})
	}
	return out
}
