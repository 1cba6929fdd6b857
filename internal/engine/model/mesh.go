package model

import (
	"errors"
	"unsafe"

	"github.com/chewxy/math32"
	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/ember/internal/engine/gfx"
)

var (
	// ErrBuffersNotCreated is returned when a mesh is drawn or released
	// before CreateBuffers succeeded.
	ErrBuffersNotCreated = errors.New("mesh buffers not created")
	// ErrReleased is returned when a mesh is used after Release.
	ErrReleased = errors.New("mesh buffers already released")
)

// noCopy makes go vet's copylocks check flag value copies of Mesh.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

type bufferState int

const (
	stateEmpty bufferState = iota
	stateReady
	stateReleased
)

// Mesh is one drawable mesh: CPU-side vertices and triangle-list indices plus
// the vertex array, vertex buffer and index buffer that mirror them on the
// GPU. The handles belong to this Mesh alone; use Clone for a second copy.
//
// Meshes are not safe for concurrent use and must only be touched on the
// thread that owns the GL context once buffers exist.
type Mesh struct {
	_ noCopy

	Name          string
	MaterialIndex int
	Bounds        Bounds

	vertices []VertexInfo
	indices  []uint32

	dev           gfx.Device
	vao, vbo, ebo uint32
	state         bufferState
}

// NewMesh returns a mesh owning copies of vertices and indices.
func NewMesh(name string, vertices []VertexInfo, indices []uint32, materialIndex int) *Mesh {
	m := &Mesh{Name: name, MaterialIndex: materialIndex}
	m.SetVertices(vertices)
	m.SetIndices(indices)
	return m
}

// SetVertices replaces the CPU-side vertex data. The GPU copy is refreshed
// by the next CreateBuffers.
func (m *Mesh) SetVertices(vertices []VertexInfo) {
	m.vertices = append([]VertexInfo(nil), vertices...)
}

// SetIndices replaces the CPU-side index data.
func (m *Mesh) SetIndices(indices []uint32) {
	m.indices = append([]uint32(nil), indices...)
}

// Vertices returns the CPU-side vertices. Callers must not modify them.
func (m *Mesh) Vertices() []VertexInfo { return m.vertices }

// Indices returns the CPU-side indices. Callers must not modify them.
func (m *Mesh) Indices() []uint32 { return m.indices }

// TriangleCount returns len(Indices())/3.
func (m *Mesh) TriangleCount() int { return len(m.indices) / 3 }

// Ready reports whether GPU buffers exist and may be drawn.
func (m *Mesh) Ready() bool { return m.state == stateReady }

// Handles returns the vertex array, vertex buffer and index buffer handles.
// All three are zero unless the mesh is ready.
func (m *Mesh) Handles() (vao, vbo, ebo uint32) {
	return m.vao, m.vbo, m.ebo
}

// CreateBuffers uploads the mesh to dev. The first call, and the first call
// after Release, allocates the three handles; later calls reuse them and
// only re-upload data and re-declare the attribute layout. If the driver
// returns a zero handle, everything allocated so far is deleted, the mesh
// stays not ready and a *gfx.ResourceError wrapping gfx.ErrAllocation is
// returned.
func (m *Mesh) CreateBuffers(dev gfx.Device) error {
	if m.state != stateReady {
		vao := dev.GenVertexArray()
		vbo := dev.GenBuffer()
		ebo := dev.GenBuffer()
		if vao == 0 || vbo == 0 || ebo == 0 {
			if vao != 0 {
				dev.DeleteVertexArray(vao)
			}
			if vbo != 0 {
				dev.DeleteBuffer(vbo)
			}
			if ebo != 0 {
				dev.DeleteBuffer(ebo)
			}
			return &gfx.ResourceError{Op: "create buffers", Resource: m.Name, Err: gfx.ErrAllocation}
		}
		m.dev = dev
		m.vao, m.vbo, m.ebo = vao, vbo, ebo
		m.state = stateReady
	}

	d := m.dev
	d.BindVertexArray(m.vao)

	d.BindBuffer(gl.ARRAY_BUFFER, m.vbo)
	d.BufferData(gl.ARRAY_BUFFER, vertexBytes(m.vertices), gl.STATIC_DRAW)

	d.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, m.ebo)
	d.BufferData(gl.ELEMENT_ARRAY_BUFFER, indexBytes(m.indices), gl.STATIC_DRAW)

	for _, a := range VertexLayout() {
		d.EnableVertexAttribArray(a.Slot)
		d.VertexAttribPointer(a.Slot, a.Components, gl.FLOAT, false, VertexStride, a.Offset)
	}

	d.BindVertexArray(0)
	return nil
}

func vertexBytes(v []VertexInfo) []byte {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*int(VertexStride))
}

func indexBytes(idx []uint32) []byte {
	if len(idx) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&idx[0])), len(idx)*4)
}

// UpdateBounds recomputes Bounds from the vertex positions, taking the
// minimum and maximum of each axis independently. A mesh without vertices
// gets the zero box.
func (m *Mesh) UpdateBounds() {
	if len(m.vertices) == 0 {
		m.Bounds = Bounds{}
		return
	}

	b := Bounds{Min: m.vertices[0].Position, Max: m.vertices[0].Position}
	for _, v := range m.vertices[1:] {
		for i := 0; i < 3; i++ {
			b.Min[i] = math32.Min(b.Min[i], v.Position[i])
			b.Max[i] = math32.Max(b.Max[i], v.Position[i])
		}
	}
	m.Bounds = b
}

// Draw issues one draw over the whole index range, instanced when
// instanceCount > 1. The vertex array is unbound and texture unit 0 made
// active afterwards.
func (m *Mesh) Draw(instanceCount uint32) error {
	switch m.state {
	case stateEmpty:
		return ErrBuffersNotCreated
	case stateReleased:
		return ErrReleased
	}

	d := m.dev
	d.BindVertexArray(m.vao)
	count := int32(len(m.indices))
	if instanceCount > 1 {
		d.DrawElementsInstanced(gl.TRIANGLES, count, gl.UNSIGNED_INT, 0, int32(instanceCount))
	} else {
		d.DrawElements(gl.TRIANGLES, count, gl.UNSIGNED_INT, 0)
	}
	d.BindVertexArray(0)
	d.ActiveTexture(gl.TEXTURE0)
	return nil
}

// Release deletes the GPU handles. It fails with ErrBuffersNotCreated if
// there is nothing to release and with ErrReleased on a second call. The
// CPU-side data is kept, so CreateBuffers may upload the mesh again.
func (m *Mesh) Release() error {
	switch m.state {
	case stateEmpty:
		return ErrBuffersNotCreated
	case stateReleased:
		return ErrReleased
	}

	m.dev.DeleteVertexArray(m.vao)
	m.dev.DeleteBuffer(m.vbo)
	m.dev.DeleteBuffer(m.ebo)
	m.vao, m.vbo, m.ebo = 0, 0, 0
	m.dev = nil
	m.state = stateReleased
	return nil
}

// Clone returns a mesh with copies of the CPU-side data and no GPU buffers.
func (m *Mesh) Clone() *Mesh {
	c := NewMesh(m.Name, m.vertices, m.indices, m.MaterialIndex)
	c.Bounds = m.Bounds
	return c
}
