// Package gfxtest provides a recording gfx.Device for tests that exercise GPU
// code without a driver.
package gfxtest

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/ember/internal/engine/gfx"
)

// Kind identifies the object namespace a handle belongs to.
type Kind string

const (
	KindVertexArray  Kind = "vao"
	KindBuffer       Kind = "buffer"
	KindTexture      Kind = "texture"
	KindFramebuffer  Kind = "framebuffer"
	KindRenderbuffer Kind = "renderbuffer"
	KindProgram      Kind = "program"
)

// Call is one recorded Device invocation.
type Call struct {
	Name string
	Args []any
}

func (c Call) String() string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = fmt.Sprint(a)
	}
	return c.Name + "(" + strings.Join(parts, ", ") + ")"
}

// Uniform is one recorded uniform upload.
type Uniform struct {
	Program  uint32
	Name     string
	Location int32
	Value    any
}

// Device is an in-memory gfx.Device. Handles are allocated from a single
// counter starting at 1; deletes of unknown handles are counted as bad
// deletes instead of panicking.
type Device struct {
	nextID uint32
	live   map[Kind]map[uint32]bool

	// FailGen makes the next Gen call for the kind return 0, then clears.
	FailGen map[Kind]bool
	// FramebufferStatus overrides CheckFramebufferStatus when non-zero.
	FramebufferStatus uint32

	Calls      []Call
	BadDeletes []string

	// Buffers holds the last data uploaded per buffer handle.
	Buffers map[uint32][]byte
	// TexImages records every TexImage2D per texture handle.
	TexImages map[uint32][]TexImage
	// Units maps texture unit index to the 2D texture last bound there.
	Units map[uint32]uint32
	// Uniforms lists uniform uploads in call order.
	Uniforms []Uniform

	Enabled           map[uint32]bool
	EnabledAttributes map[uint32]bool
	AttribPointers    map[uint32]AttribPointer
	DrawCalls         []Draw

	ActiveUnit       uint32
	BoundVAO         uint32
	BoundFramebuffer uint32
	CurrentProgram   uint32
	ViewportRect     [4]int32
	ReadPixelsFill   byte

	bound        map[uint32]uint32 // buffer target -> handle
	boundTexture uint32
	uniformNames map[int32]string
	nextUniform  int32
}

// TexImage records the arguments of one TexImage2D call.
type TexImage struct {
	Target         uint32
	InternalFormat int32
	Width, Height  int32
	Format, Type   uint32
	Bytes          int
}

// AttribPointer is one recorded VertexAttribPointer declaration.
type AttribPointer struct {
	Size   int32
	Type   uint32
	Stride int32
	Offset uintptr
}

// Draw is one recorded draw call.
type Draw struct {
	Mode      uint32
	Count     int32
	Instances int32
	VAO       uint32
}

// New returns an empty fake device with viewport 0,0,800,600.
func New() *Device {
	return &Device{
		live:              make(map[Kind]map[uint32]bool),
		FailGen:           make(map[Kind]bool),
		Buffers:           make(map[uint32][]byte),
		TexImages:         make(map[uint32][]TexImage),
		Units:             make(map[uint32]uint32),
		bound:             make(map[uint32]uint32),
		uniformNames:      make(map[int32]string),
		Enabled:           make(map[uint32]bool),
		EnabledAttributes: make(map[uint32]bool),
		AttribPointers:    make(map[uint32]AttribPointer),
		ViewportRect:      [4]int32{0, 0, 800, 600},
	}
}

func (d *Device) record(name string, args ...any) {
	d.Calls = append(d.Calls, Call{Name: name, Args: args})
}

func (d *Device) gen(kind Kind) uint32 {
	d.record("Gen" + string(kind))
	if d.FailGen[kind] {
		delete(d.FailGen, kind)
		return 0
	}
	d.nextID++
	if d.live[kind] == nil {
		d.live[kind] = make(map[uint32]bool)
	}
	d.live[kind][d.nextID] = true
	return d.nextID
}

func (d *Device) del(kind Kind, id uint32) {
	d.record("Delete"+string(kind), id)
	if id == 0 {
		return
	}
	if !d.live[kind][id] {
		d.BadDeletes = append(d.BadDeletes, fmt.Sprintf("%s %d", kind, id))
		return
	}
	delete(d.live[kind], id)
}

// Live returns the number of undeleted handles of kind.
func (d *Device) Live(kind Kind) int {
	return len(d.live[kind])
}

// LiveTotal returns the number of undeleted handles of every kind.
func (d *Device) LiveTotal() int {
	n := 0
	for _, m := range d.live {
		n += len(m)
	}
	return n
}

// IsLive reports whether id is an undeleted handle of kind.
func (d *Device) IsLive(kind Kind, id uint32) bool {
	return d.live[kind][id]
}

// AddProgram registers a program handle so it can be used and deleted.
func (d *Device) AddProgram() uint32 {
	return d.gen(KindProgram)
}

// Count returns how many times the named call was recorded.
func (d *Device) Count(name string) int {
	n := 0
	for _, c := range d.Calls {
		if c.Name == name {
			n++
		}
	}
	return n
}

// Last returns the most recent call with the given name.
func (d *Device) Last(name string) (Call, bool) {
	for i := len(d.Calls) - 1; i >= 0; i-- {
		if d.Calls[i].Name == name {
			return d.Calls[i], true
		}
	}
	return Call{}, false
}

// ResetCalls clears the call log, keeping object state.
func (d *Device) ResetCalls() {
	d.Calls = nil
	d.DrawCalls = nil
	d.Uniforms = nil
}

// UniformInt returns the last int value set for name on any program.
func (d *Device) UniformInt(name string) (int32, bool) {
	for i := len(d.Uniforms) - 1; i >= 0; i-- {
		if d.Uniforms[i].Name == name {
			v, ok := d.Uniforms[i].Value.(int32)
			return v, ok
		}
	}
	return 0, false
}

func (d *Device) GenVertexArray() uint32  { return d.gen(KindVertexArray) }
func (d *Device) GenBuffer() uint32       { return d.gen(KindBuffer) }
func (d *Device) GenTexture() uint32      { return d.gen(KindTexture) }
func (d *Device) GenFramebuffer() uint32  { return d.gen(KindFramebuffer) }
func (d *Device) GenRenderbuffer() uint32 { return d.gen(KindRenderbuffer) }

func (d *Device) DeleteVertexArray(id uint32)  { d.del(KindVertexArray, id) }
func (d *Device) DeleteBuffer(id uint32)       { d.del(KindBuffer, id) }
func (d *Device) DeleteTexture(id uint32)      { d.del(KindTexture, id) }
func (d *Device) DeleteFramebuffer(id uint32)  { d.del(KindFramebuffer, id) }
func (d *Device) DeleteRenderbuffer(id uint32) { d.del(KindRenderbuffer, id) }
func (d *Device) DeleteProgram(id uint32)      { d.del(KindProgram, id) }

func (d *Device) BindVertexArray(id uint32) {
	d.record("BindVertexArray", id)
	d.BoundVAO = id
}

func (d *Device) BindBuffer(target, id uint32) {
	d.record("BindBuffer", target, id)
	d.bound[target] = id
}

// BoundBuffer returns the handle bound to target.
func (d *Device) BoundBuffer(target uint32) uint32 {
	return d.bound[target]
}

func (d *Device) BufferData(target uint32, data []byte, usage uint32) {
	d.record("BufferData", target, len(data), usage)
	id := d.bound[target]
	d.Buffers[id] = append([]byte(nil), data...)
}

func (d *Device) EnableVertexAttribArray(index uint32) {
	d.record("EnableVertexAttribArray", index)
	d.EnabledAttributes[index] = true
}

func (d *Device) VertexAttribPointer(index uint32, size int32, xtype uint32, normalized bool, stride int32, offset uintptr) {
	d.record("VertexAttribPointer", index, size, xtype, normalized, stride, offset)
	d.AttribPointers[index] = AttribPointer{Size: size, Type: xtype, Stride: stride, Offset: offset}
}

func (d *Device) ClearColor(r, g, b, a float32) { d.record("ClearColor", r, g, b, a) }
func (d *Device) Clear(mask uint32)              { d.record("Clear", mask) }

func (d *Device) Enable(capability uint32) {
	d.record("Enable", capability)
	d.Enabled[capability] = true
}

func (d *Device) Disable(capability uint32) {
	d.record("Disable", capability)
	delete(d.Enabled, capability)
}

func (d *Device) CullFace(mode uint32) { d.record("CullFace", mode) }
func (d *Device) DepthFunc(fn uint32)  { d.record("DepthFunc", fn) }

func (d *Device) DrawElements(mode uint32, count int32, xtype uint32, offset uintptr) {
	d.record("DrawElements", mode, count, xtype, offset)
	d.DrawCalls = append(d.DrawCalls, Draw{Mode: mode, Count: count, Instances: 1, VAO: d.BoundVAO})
}

func (d *Device) DrawElementsInstanced(mode uint32, count int32, xtype uint32, offset uintptr, instances int32) {
	d.record("DrawElementsInstanced", mode, count, xtype, offset, instances)
	d.DrawCalls = append(d.DrawCalls, Draw{Mode: mode, Count: count, Instances: instances, VAO: d.BoundVAO})
}

func (d *Device) DrawArrays(mode uint32, first, count int32) {
	d.record("DrawArrays", mode, first, count)
	d.DrawCalls = append(d.DrawCalls, Draw{Mode: mode, Count: count, Instances: 1, VAO: d.BoundVAO})
}

func (d *Device) ActiveTexture(unit uint32) {
	d.record("ActiveTexture", unit)
	d.ActiveUnit = unit - gl.TEXTURE0
}

func (d *Device) BindTexture(target, id uint32) {
	d.record("BindTexture", target, id)
	d.boundTexture = id
	if target == gl.TEXTURE_2D {
		d.Units[d.ActiveUnit] = id
	}
}

func (d *Device) TexImage2D(target uint32, level, internalFormat, width, height int32, format, xtype uint32, pixels []byte) {
	d.record("TexImage2D", target, level, internalFormat, width, height, format, xtype)
	d.TexImages[d.boundTexture] = append(d.TexImages[d.boundTexture], TexImage{
		Target:         target,
		InternalFormat: internalFormat,
		Width:          width,
		Height:         height,
		Format:         format,
		Type:           xtype,
		Bytes:          len(pixels),
	})
}

func (d *Device) TexParameteri(target, pname uint32, param int32) {
	d.record("TexParameteri", target, pname, param)
}

func (d *Device) GenerateMipmap(target uint32) {
	d.record("GenerateMipmap", target)
}

func (d *Device) BindFramebuffer(target, id uint32) {
	d.record("BindFramebuffer", target, id)
	d.BoundFramebuffer = id
}

func (d *Device) FramebufferTexture2D(target, attachment, texTarget, texture uint32, level int32) {
	d.record("FramebufferTexture2D", target, attachment, texTarget, texture, level)
}

func (d *Device) FramebufferTexture(target, attachment, texture uint32, level int32) {
	d.record("FramebufferTexture", target, attachment, texture, level)
}

func (d *Device) BindRenderbuffer(target, id uint32) {
	d.record("BindRenderbuffer", target, id)
}

func (d *Device) RenderbufferStorage(target, internalFormat uint32, width, height int32) {
	d.record("RenderbufferStorage", target, internalFormat, width, height)
}

func (d *Device) FramebufferRenderbuffer(target, attachment, rbTarget, renderbuffer uint32) {
	d.record("FramebufferRenderbuffer", target, attachment, rbTarget, renderbuffer)
}

func (d *Device) CheckFramebufferStatus(target uint32) uint32 {
	d.record("CheckFramebufferStatus", target)
	if d.FramebufferStatus != 0 {
		return d.FramebufferStatus
	}
	return gl.FRAMEBUFFER_COMPLETE
}

func (d *Device) DrawBuffer(mode uint32) { d.record("DrawBuffer", mode) }
func (d *Device) ReadBuffer(mode uint32) { d.record("ReadBuffer", mode) }

func (d *Device) Viewport(x, y, width, height int32) {
	d.record("Viewport", x, y, width, height)
	d.ViewportRect = [4]int32{x, y, width, height}
}

func (d *Device) GetIntegerv(pname uint32, data []int32) {
	d.record("GetIntegerv", pname)
	switch pname {
	case gl.FRAMEBUFFER_BINDING:
		if len(data) > 0 {
			data[0] = int32(d.BoundFramebuffer)
		}
	case gl.VIEWPORT:
		copy(data, d.ViewportRect[:])
	}
}

func (d *Device) ReadPixels(x, y, width, height int32, format, xtype uint32, pixels []byte) {
	d.record("ReadPixels", x, y, width, height, format, xtype)
	for i := range pixels {
		pixels[i] = d.ReadPixelsFill
	}
}

func (d *Device) UseProgram(id uint32) {
	d.record("UseProgram", id)
	d.CurrentProgram = id
}

// GetUniformLocation hands out a stable location per name; names starting
// with "missing" report -1 like an inactive uniform.
func (d *Device) GetUniformLocation(program uint32, name string) int32 {
	d.record("GetUniformLocation", program, name)
	if strings.HasPrefix(name, "missing") {
		return -1
	}
	for loc, n := range d.uniformNames {
		if n == name {
			return loc
		}
	}
	loc := d.nextUniform
	d.nextUniform++
	d.uniformNames[loc] = name
	return loc
}

func (d *Device) setUniform(call string, location int32, v any) {
	d.record(call, location, v)
	d.Uniforms = append(d.Uniforms, Uniform{
		Program:  d.CurrentProgram,
		Name:     d.uniformNames[location],
		Location: location,
		Value:    v,
	})
}

func (d *Device) Uniform1i(location, v int32)         { d.setUniform("Uniform1i", location, v) }
func (d *Device) Uniform1f(location int32, v float32) { d.setUniform("Uniform1f", location, v) }

func (d *Device) Uniform3f(location int32, x, y, z float32) {
	d.setUniform("Uniform3f", location, [3]float32{x, y, z})
}

func (d *Device) UniformMatrix4fv(location int32, m *[16]float32) {
	d.setUniform("UniformMatrix4fv", location, *m)
}

var _ gfx.Device = (*Device)(nil)
