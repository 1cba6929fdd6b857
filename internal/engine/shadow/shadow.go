// Package shadow renders directional-light shadow maps.
package shadow

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/ember/internal/engine/framebuffer"
	"github.com/Faultbox/ember/internal/engine/gfx"
	"github.com/Faultbox/ember/internal/engine/model"
)

// DefaultResolution is the default shadow map resolution.
const DefaultResolution = 2048

// Map is a depth target for the shadow pass.
type Map struct {
	dev    gfx.Device
	target *framebuffer.Target
}

// NewMap creates a square shadow map. A non-positive resolution selects
// DefaultResolution.
func NewMap(dev gfx.Device, factory *framebuffer.Factory, resolution int32) (*Map, error) {
	if resolution <= 0 {
		resolution = DefaultResolution
	}
	target, err := factory.DepthMap(resolution, resolution)
	if err != nil {
		return nil, err
	}
	return &Map{dev: dev, target: target}, nil
}

// Resolution returns the map's edge length.
func (m *Map) Resolution() int32 {
	w, _ := m.target.Size()
	return w
}

// Texture returns the depth texture handle.
func (m *Map) Texture() uint32 { return m.target.Texture() }

// Begin binds the map for the depth pass and culls front faces against
// shadow acne. The returned function restores the previous framebuffer,
// viewport and culling.
func (m *Map) Begin() (end func(), err error) {
	restore, err := m.target.BindWithViewport()
	if err != nil {
		return func() {}, err
	}
	m.dev.Clear(gl.DEPTH_BUFFER_BIT)
	m.dev.Enable(gl.DEPTH_TEST)
	m.dev.Enable(gl.CULL_FACE)
	m.dev.CullFace(gl.FRONT)

	return func() {
		m.dev.CullFace(gl.BACK)
		m.dev.Disable(gl.CULL_FACE)
		restore()
	}, nil
}

// BindTexture binds the depth texture to unit for sampling.
func (m *Map) BindTexture(unit uint32) error {
	return m.target.BindTexture(unit)
}

// Release deletes the map.
func (m *Map) Release() error {
	return m.target.Release()
}

// LightMatrix returns the view-projection of a directional light looking at
// bounds. lightDir points towards the light and must be normalized.
func LightMatrix(lightDir mgl32.Vec3, bounds model.Bounds) mgl32.Mat4 {
	center := bounds.Center()
	radius := bounds.Radius()
	if radius == 0 {
		radius = 1
	}

	lightDistance := radius * 2
	lightPos := center.Add(lightDir.Mul(lightDistance))

	up := mgl32.Vec3{0, 1, 0}
	if math32.Abs(lightDir.Y()) > 0.99 {
		up = mgl32.Vec3{0, 0, 1}
	}
	view := mgl32.LookAtV(lightPos, center, up)

	padding := radius * 0.1
	half := radius + padding
	far := lightDistance + radius + padding
	proj := mgl32.Ortho(-half, half, -half, half, 0.1, far)

	return proj.Mul4(view)
}
