package gfx

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// GL is the Device backed by the go-gl OpenGL 4.1 core bindings.
type GL struct{}

// NewGL loads the OpenGL function pointers. A context must be current on the
// calling thread.
func NewGL() (*GL, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("gl.Init failed: %w", err)
	}
	return &GL{}, nil
}

// Version returns the driver's GL_VERSION string.
func (*GL) Version() string {
	return gl.GoStr(gl.GetString(gl.VERSION))
}

// Renderer returns the driver's GL_RENDERER string.
func (*GL) Renderer() string {
	return gl.GoStr(gl.GetString(gl.RENDERER))
}

func (*GL) GenVertexArray() uint32 {
	var id uint32
	gl.GenVertexArrays(1, &id)
	return id
}

func (*GL) GenBuffer() uint32 {
	var id uint32
	gl.GenBuffers(1, &id)
	return id
}

func (*GL) GenTexture() uint32 {
	var id uint32
	gl.GenTextures(1, &id)
	return id
}

func (*GL) GenFramebuffer() uint32 {
	var id uint32
	gl.GenFramebuffers(1, &id)
	return id
}

func (*GL) GenRenderbuffer() uint32 {
	var id uint32
	gl.GenRenderbuffers(1, &id)
	return id
}

func (*GL) DeleteVertexArray(id uint32)  { gl.DeleteVertexArrays(1, &id) }
func (*GL) DeleteBuffer(id uint32)       { gl.DeleteBuffers(1, &id) }
func (*GL) DeleteTexture(id uint32)      { gl.DeleteTextures(1, &id) }
func (*GL) DeleteFramebuffer(id uint32)  { gl.DeleteFramebuffers(1, &id) }
func (*GL) DeleteRenderbuffer(id uint32) { gl.DeleteRenderbuffers(1, &id) }

func (*GL) BindVertexArray(id uint32) { gl.BindVertexArray(id) }
func (*GL) BindBuffer(target, id uint32) {
	gl.BindBuffer(target, id)
}

func (*GL) BufferData(target uint32, data []byte, usage uint32) {
	if len(data) == 0 {
		gl.BufferData(target, 0, nil, usage)
		return
	}
	gl.BufferData(target, len(data), gl.Ptr(data), usage)
}

func (*GL) EnableVertexAttribArray(index uint32) { gl.EnableVertexAttribArray(index) }

func (*GL) VertexAttribPointer(index uint32, size int32, xtype uint32, normalized bool, stride int32, offset uintptr) {
	gl.VertexAttribPointerWithOffset(index, size, xtype, normalized, stride, offset)
}

func (*GL) ClearColor(r, g, b, a float32) { gl.ClearColor(r, g, b, a) }
func (*GL) Clear(mask uint32)              { gl.Clear(mask) }
func (*GL) Enable(capability uint32)       { gl.Enable(capability) }
func (*GL) Disable(capability uint32)      { gl.Disable(capability) }
func (*GL) CullFace(mode uint32)           { gl.CullFace(mode) }
func (*GL) DepthFunc(fn uint32)            { gl.DepthFunc(fn) }

func (*GL) DrawElements(mode uint32, count int32, xtype uint32, offset uintptr) {
	gl.DrawElementsWithOffset(mode, count, xtype, offset)
}

func (*GL) DrawElementsInstanced(mode uint32, count int32, xtype uint32, offset uintptr, instances int32) {
	gl.DrawElementsInstanced(mode, count, xtype, gl.PtrOffset(int(offset)), instances)
}

func (*GL) DrawArrays(mode uint32, first, count int32) { gl.DrawArrays(mode, first, count) }

func (*GL) ActiveTexture(unit uint32)     { gl.ActiveTexture(unit) }
func (*GL) BindTexture(target, id uint32) { gl.BindTexture(target, id) }

func (*GL) TexImage2D(target uint32, level, internalFormat, width, height int32, format, xtype uint32, pixels []byte) {
	var ptr = gl.Ptr(nil)
	if len(pixels) > 0 {
		ptr = gl.Ptr(pixels)
	}
	gl.TexImage2D(target, level, internalFormat, width, height, 0, format, xtype, ptr)
}

func (*GL) TexParameteri(target, pname uint32, param int32) { gl.TexParameteri(target, pname, param) }
func (*GL) GenerateMipmap(target uint32)                    { gl.GenerateMipmap(target) }

func (*GL) BindFramebuffer(target, id uint32) { gl.BindFramebuffer(target, id) }

func (*GL) FramebufferTexture2D(target, attachment, texTarget, texture uint32, level int32) {
	gl.FramebufferTexture2D(target, attachment, texTarget, texture, level)
}

func (*GL) FramebufferTexture(target, attachment, texture uint32, level int32) {
	gl.FramebufferTexture(target, attachment, texture, level)
}

func (*GL) BindRenderbuffer(target, id uint32) { gl.BindRenderbuffer(target, id) }

func (*GL) RenderbufferStorage(target, internalFormat uint32, width, height int32) {
	gl.RenderbufferStorage(target, internalFormat, width, height)
}

func (*GL) FramebufferRenderbuffer(target, attachment, rbTarget, renderbuffer uint32) {
	gl.FramebufferRenderbuffer(target, attachment, rbTarget, renderbuffer)
}

func (*GL) CheckFramebufferStatus(target uint32) uint32 { return gl.CheckFramebufferStatus(target) }
func (*GL) DrawBuffer(mode uint32)                       { gl.DrawBuffer(mode) }
func (*GL) ReadBuffer(mode uint32)                       { gl.ReadBuffer(mode) }
func (*GL) Viewport(x, y, width, height int32)           { gl.Viewport(x, y, width, height) }

func (*GL) GetIntegerv(pname uint32, data []int32) {
	if len(data) == 0 {
		return
	}
	gl.GetIntegerv(pname, &data[0])
}

func (*GL) ReadPixels(x, y, width, height int32, format, xtype uint32, pixels []byte) {
	if len(pixels) == 0 {
		return
	}
	gl.ReadPixels(x, y, width, height, format, xtype, gl.Ptr(pixels))
}

func (*GL) UseProgram(id uint32)    { gl.UseProgram(id) }
func (*GL) DeleteProgram(id uint32) { gl.DeleteProgram(id) }

func (*GL) GetUniformLocation(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}

func (*GL) Uniform1i(location, v int32)                  { gl.Uniform1i(location, v) }
func (*GL) Uniform1f(location int32, v float32)          { gl.Uniform1f(location, v) }
func (*GL) Uniform3f(location int32, x, y, z float32)    { gl.Uniform3f(location, x, y, z) }
func (*GL) UniformMatrix4fv(location int32, m *[16]float32) {
	gl.UniformMatrix4fv(location, 1, false, &m[0])
}

var _ Device = (*GL)(nil)
