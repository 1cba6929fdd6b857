package framebuffer

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/ember/internal/engine/gfx"
	"github.com/Faultbox/ember/internal/logger"
)

// Factory creates render targets on one device.
type Factory struct {
	dev gfx.Device
	log *zap.Logger
}

// NewFactory returns a factory creating targets on dev.
func NewFactory(dev gfx.Device) *Factory {
	return &Factory{dev: dev, log: logger.Named("framebuffer")}
}

// WithLogger replaces the factory's logger.
func (f *Factory) WithLogger(log *zap.Logger) *Factory {
	f.log = log
	return f
}

// ColorDepthStencil creates an 8-bit RGB color texture with linear filtering
// and a combined 24-bit depth / 8-bit stencil renderbuffer.
func (f *Factory) ColorDepthStencil(width, height int32) (*Target, error) {
	return f.build(KindColor, width, height)
}

// HDR creates a 16-bit float RGBA color texture with linear filtering and a
// depth renderbuffer.
func (f *Factory) HDR(width, height int32) (*Target, error) {
	return f.build(KindHDR, width, height)
}

// DepthMap creates a float depth texture with nearest filtering and repeat
// wrapping, for directional shadow maps. Color draw and read are disabled.
func (f *Factory) DepthMap(width, height int32) (*Target, error) {
	return f.build(KindDepth, width, height)
}

// DepthCubeMap creates a float depth cubemap (six faces) with nearest
// filtering and edge clamping, for point-light shadows. Color draw and read
// are disabled.
func (f *Factory) DepthCubeMap(width, height int32) (*Target, error) {
	return f.build(KindDepthCube, width, height)
}

func (f *Factory) build(kind Kind, width, height int32) (*Target, error) {
	width, height = clampSize(width, height)
	d := f.dev
	t := &Target{dev: d, kind: kind, width: width, height: height}

	t.fbo = d.GenFramebuffer()
	t.texture = d.GenTexture()
	if recipes[kind].rbFormat != 0 {
		t.rbo = d.GenRenderbuffer()
	}
	if t.fbo == 0 || t.texture == 0 || (recipes[kind].rbFormat != 0 && t.rbo == 0) {
		t.deleteHandles()
		return nil, f.fail(kind, gfx.ErrAllocation)
	}

	d.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
	t.allocate()

	switch kind {
	case KindColor, KindHDR:
		setFilter(d, gl.TEXTURE_2D, gl.LINEAR)
		d.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, t.texture, 0)
		attachment := uint32(gl.DEPTH_ATTACHMENT)
		if kind == KindColor {
			attachment = gl.DEPTH_STENCIL_ATTACHMENT
		}
		d.FramebufferRenderbuffer(gl.FRAMEBUFFER, attachment, gl.RENDERBUFFER, t.rbo)

	case KindDepth:
		setFilter(d, gl.TEXTURE_2D, gl.NEAREST)
		d.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
		d.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
		d.FramebufferTexture2D(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.TEXTURE_2D, t.texture, 0)
		d.DrawBuffer(gl.NONE)
		d.ReadBuffer(gl.NONE)

	case KindDepthCube:
		setFilter(d, gl.TEXTURE_CUBE_MAP, gl.NEAREST)
		d.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
		d.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
		d.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_WRAP_R, gl.CLAMP_TO_EDGE)
		d.FramebufferTexture(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, t.texture, 0)
		d.DrawBuffer(gl.NONE)
		d.ReadBuffer(gl.NONE)
	}

	status := d.CheckFramebufferStatus(gl.FRAMEBUFFER)
	d.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		t.deleteHandles()
		return nil, f.fail(kind, fmt.Errorf("%w: status 0x%x", ErrIncomplete, status))
	}

	f.log.Debug("render target created",
		zap.Stringer("kind", kind),
		zap.Int32("width", width),
		zap.Int32("height", height),
		zap.Uint32("fbo", t.fbo),
	)
	return t, nil
}

func (f *Factory) fail(kind Kind, err error) error {
	f.log.Error("failed to create render target", zap.Stringer("kind", kind), zap.Error(err))
	return &gfx.ResourceError{Op: "create framebuffer", Resource: kind.String(), Err: err}
}

func setFilter(d gfx.Device, target uint32, filter int32) {
	d.TexParameteri(target, gl.TEXTURE_MIN_FILTER, filter)
	d.TexParameteri(target, gl.TEXTURE_MAG_FILTER, filter)
}
