// Package gfx is the boundary between engine code and the OpenGL driver.
//
// Engine packages issue GPU calls through Device instead of calling go-gl
// directly, so the same code runs against the real driver (GL) or the
// recording fake in gfxtest. Every Device call must happen on the goroutine
// locked to the OS thread that owns the current GL context.
package gfx

// Device is the subset of the OpenGL 4.1 core API used by the engine.
// Names and argument order follow the GL entry points; object handles are
// generated and deleted one at a time.
type Device interface {
	GenVertexArray() uint32
	GenBuffer() uint32
	GenTexture() uint32
	GenFramebuffer() uint32
	GenRenderbuffer() uint32

	DeleteVertexArray(id uint32)
	DeleteBuffer(id uint32)
	DeleteTexture(id uint32)
	DeleteFramebuffer(id uint32)
	DeleteRenderbuffer(id uint32)

	// Vertex input
	BindVertexArray(id uint32)
	BindBuffer(target, id uint32)
	BufferData(target uint32, data []byte, usage uint32)
	EnableVertexAttribArray(index uint32)
	VertexAttribPointer(index uint32, size int32, xtype uint32, normalized bool, stride int32, offset uintptr)

	// Drawing
	ClearColor(r, g, b, a float32)
	Clear(mask uint32)
	Enable(capability uint32)
	Disable(capability uint32)
	CullFace(mode uint32)
	DepthFunc(fn uint32)
	DrawElements(mode uint32, count int32, xtype uint32, offset uintptr)
	DrawElementsInstanced(mode uint32, count int32, xtype uint32, offset uintptr, instances int32)
	DrawArrays(mode uint32, first, count int32)

	// Textures
	ActiveTexture(unit uint32)
	BindTexture(target, id uint32)
	TexImage2D(target uint32, level, internalFormat, width, height int32, format, xtype uint32, pixels []byte)
	TexParameteri(target, pname uint32, param int32)
	GenerateMipmap(target uint32)

	// Framebuffers
	BindFramebuffer(target, id uint32)
	FramebufferTexture2D(target, attachment, texTarget, texture uint32, level int32)
	FramebufferTexture(target, attachment, texture uint32, level int32)
	BindRenderbuffer(target, id uint32)
	RenderbufferStorage(target, internalFormat uint32, width, height int32)
	FramebufferRenderbuffer(target, attachment, rbTarget, renderbuffer uint32)
	CheckFramebufferStatus(target uint32) uint32
	DrawBuffer(mode uint32)
	ReadBuffer(mode uint32)
	Viewport(x, y, width, height int32)
	GetIntegerv(pname uint32, data []int32)
	ReadPixels(x, y, width, height int32, format, xtype uint32, pixels []byte)

	// Programs
	UseProgram(id uint32)
	DeleteProgram(id uint32)
	GetUniformLocation(program uint32, name string) int32
	Uniform1i(location, v int32)
	Uniform1f(location int32, v float32)
	Uniform3f(location int32, x, y, z float32)
	UniformMatrix4fv(location int32, m *[16]float32)
}
