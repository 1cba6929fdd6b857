// Package framebuffer builds off-screen render targets.
//
// A Factory offers four recipes: a color target with a combined
// depth/stencil renderbuffer, an HDR color target, a depth map for
// directional shadows and a depth cubemap for point-light shadows. Every
// recipe checks completeness and leaves the default framebuffer bound.
package framebuffer

import (
	"errors"
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/ember/internal/engine/gfx"
)

var (
	// ErrIncomplete is returned when a target fails the completeness check.
	ErrIncomplete = errors.New("framebuffer incomplete")
	// ErrReleased is returned when a released target is used.
	ErrReleased = errors.New("framebuffer target released")
)

// Kind identifies the recipe a Target was built with.
type Kind int

const (
	KindColor Kind = iota
	KindHDR
	KindDepth
	KindDepthCube
)

func (k Kind) String() string {
	switch k {
	case KindColor:
		return "color"
	case KindHDR:
		return "hdr"
	case KindDepth:
		return "depth"
	case KindDepthCube:
		return "depth-cube"
	default:
		return "unknown"
	}
}

// storage is the image layout of a target's texture and renderbuffer.
type storage struct {
	internalFormat int32
	format         uint32
	xtype          uint32
	rbFormat       uint32 // 0 when the target has no renderbuffer
}

var recipes = map[Kind]storage{
	KindColor:     {internalFormat: gl.RGB8, format: gl.RGB, xtype: gl.UNSIGNED_BYTE, rbFormat: gl.DEPTH24_STENCIL8},
	KindHDR:       {internalFormat: gl.RGBA16F, format: gl.RGBA, xtype: gl.FLOAT, rbFormat: gl.DEPTH_COMPONENT},
	KindDepth:     {internalFormat: gl.DEPTH_COMPONENT, format: gl.DEPTH_COMPONENT, xtype: gl.FLOAT},
	KindDepthCube: {internalFormat: gl.DEPTH_COMPONENT, format: gl.DEPTH_COMPONENT, xtype: gl.FLOAT},
}

// Target is a framebuffer with its attachments. It owns its handles until
// Release.
type Target struct {
	dev      gfx.Device
	kind     Kind
	fbo      uint32
	texture  uint32
	rbo      uint32
	width    int32
	height   int32
	released bool
}

// Kind returns the recipe the target was built with.
func (t *Target) Kind() Kind { return t.kind }

// FBO returns the framebuffer handle.
func (t *Target) FBO() uint32 { return t.fbo }

// Texture returns the color or depth texture handle.
func (t *Target) Texture() uint32 { return t.texture }

// Renderbuffer returns the depth (or depth/stencil) renderbuffer handle, or
// zero for depth-only targets.
func (t *Target) Renderbuffer() uint32 { return t.rbo }

// Size returns the target dimensions.
func (t *Target) Size() (width, height int32) { return t.width, t.height }

func (t *Target) textureTarget() uint32 {
	if t.kind == KindDepthCube {
		return gl.TEXTURE_CUBE_MAP
	}
	return gl.TEXTURE_2D
}

// allocate (re)specifies texture and renderbuffer storage at the current size.
func (t *Target) allocate() {
	st := recipes[t.kind]
	d := t.dev

	d.BindTexture(t.textureTarget(), t.texture)
	if t.kind == KindDepthCube {
		for face := uint32(0); face < 6; face++ {
			d.TexImage2D(gl.TEXTURE_CUBE_MAP_POSITIVE_X+face, 0, st.internalFormat, t.width, t.height, st.format, st.xtype, nil)
		}
	} else {
		d.TexImage2D(gl.TEXTURE_2D, 0, st.internalFormat, t.width, t.height, st.format, st.xtype, nil)
	}

	if t.rbo != 0 {
		d.BindRenderbuffer(gl.RENDERBUFFER, t.rbo)
		d.RenderbufferStorage(gl.RENDERBUFFER, st.rbFormat, t.width, t.height)
	}
}

// Bind makes the target the current render destination and sets the viewport
// to cover it.
func (t *Target) Bind() error {
	if t.released {
		return ErrReleased
	}
	t.dev.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
	t.dev.Viewport(0, 0, t.width, t.height)
	return nil
}

// Unbind restores the default framebuffer.
func (t *Target) Unbind() {
	t.dev.BindFramebuffer(gl.FRAMEBUFFER, 0)
}

// BindWithViewport binds the target and returns a function restoring the
// previously bound framebuffer and viewport.
func (t *Target) BindWithViewport() (restore func(), err error) {
	if t.released {
		return func() {}, ErrReleased
	}
	prevFBO := make([]int32, 1)
	prevViewport := make([]int32, 4)
	t.dev.GetIntegerv(gl.FRAMEBUFFER_BINDING, prevFBO)
	t.dev.GetIntegerv(gl.VIEWPORT, prevViewport)

	t.dev.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
	t.dev.Viewport(0, 0, t.width, t.height)

	return func() {
		t.dev.BindFramebuffer(gl.FRAMEBUFFER, uint32(prevFBO[0]))
		t.dev.Viewport(prevViewport[0], prevViewport[1], prevViewport[2], prevViewport[3])
	}, nil
}

// BindTexture binds the target's texture to texture unit for sampling.
func (t *Target) BindTexture(unit uint32) error {
	if t.released {
		return ErrReleased
	}
	t.dev.ActiveTexture(gl.TEXTURE0 + unit)
	t.dev.BindTexture(t.textureTarget(), t.texture)
	return nil
}

// Resize reallocates the attachments if the size changed. Sizes below 1 are
// clamped to 1.
func (t *Target) Resize(width, height int32) error {
	if t.released {
		return ErrReleased
	}
	width, height = clampSize(width, height)
	if width == t.width && height == t.height {
		return nil
	}
	t.width, t.height = width, height
	t.allocate()
	return nil
}

// ReadPixels reads the color attachment as tightly packed RGBA bytes with the
// first row at the top. Depth targets have no color to read.
func (t *Target) ReadPixels() ([]byte, error) {
	if t.released {
		return nil, ErrReleased
	}
	if t.kind == KindDepth || t.kind == KindDepthCube {
		return nil, fmt.Errorf("read pixels: %s target has no color attachment", t.kind)
	}

	pixels := make([]byte, int(t.width)*int(t.height)*4)

	prevFBO := make([]int32, 1)
	t.dev.GetIntegerv(gl.FRAMEBUFFER_BINDING, prevFBO)
	t.dev.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
	t.dev.ReadPixels(0, 0, t.width, t.height, gl.RGBA, gl.UNSIGNED_BYTE, pixels)
	t.dev.BindFramebuffer(gl.FRAMEBUFFER, uint32(prevFBO[0]))

	flipRows(pixels, int(t.width)*4, int(t.height))
	return pixels, nil
}

// flipRows reverses row order in place; GL reads bottom-up.
func flipRows(pixels []byte, stride, rows int) {
	tmp := make([]byte, stride)
	for top, bottom := 0, rows-1; top < bottom; top, bottom = top+1, bottom-1 {
		a := pixels[top*stride : (top+1)*stride]
		b := pixels[bottom*stride : (bottom+1)*stride]
		copy(tmp, a)
		copy(a, b)
		copy(b, tmp)
	}
}

// Release deletes the framebuffer and its attachments.
func (t *Target) Release() error {
	if t.released {
		return ErrReleased
	}
	t.deleteHandles()
	t.released = true
	return nil
}

func (t *Target) deleteHandles() {
	if t.fbo != 0 {
		t.dev.DeleteFramebuffer(t.fbo)
		t.fbo = 0
	}
	if t.texture != 0 {
		t.dev.DeleteTexture(t.texture)
		t.texture = 0
	}
	if t.rbo != 0 {
		t.dev.DeleteRenderbuffer(t.rbo)
		t.rbo = 0
	}
}

func clampSize(width, height int32) (int32, int32) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return width, height
}
