package model

import (
	"errors"
	"testing"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/ember/internal/engine/gfx"
	"github.com/Faultbox/ember/internal/engine/gfx/gfxtest"
)

func triangle() []VertexInfo {
	return []VertexInfo{
		{Position: mgl32.Vec3{0, 0, 0}},
		{Position: mgl32.Vec3{1, 0, 0}},
		{Position: mgl32.Vec3{0, 1, 0}},
	}
}

func TestVertexLayout(t *testing.T) {
	if VertexStride != 56 {
		t.Fatalf("VertexStride = %d, want 56", VertexStride)
	}
	want := []struct {
		components int32
		offset     uintptr
	}{
		{3, 0}, {3, 12}, {2, 24}, {3, 32}, {3, 44},
	}
	for i, a := range VertexLayout() {
		if a.Slot != uint32(i) || a.Components != want[i].components || a.Offset != want[i].offset {
			t.Errorf("attribute %d = %+v, want slot %d size %d offset %d", i, a, i, want[i].components, want[i].offset)
		}
	}
}

func TestCreateBuffersReusesHandles(t *testing.T) {
	dev := gfxtest.New()
	m := NewMesh("tri", triangle(), []uint32{0, 1, 2}, 0)

	if err := m.CreateBuffers(dev); err != nil {
		t.Fatalf("CreateBuffers: %v", err)
	}
	vao, vbo, ebo := m.Handles()
	if vao == 0 || vbo == 0 || ebo == 0 {
		t.Fatalf("expected non-zero handles, got %d %d %d", vao, vbo, ebo)
	}
	if got := len(dev.Buffers[vbo]); got != 3*int(VertexStride) {
		t.Errorf("vertex upload = %d bytes, want %d", got, 3*VertexStride)
	}

	quad := append(triangle(), VertexInfo{Position: mgl32.Vec3{1, 1, 0}})
	m.SetVertices(quad)
	m.SetIndices([]uint32{0, 1, 2, 2, 1, 3})
	if err := m.CreateBuffers(dev); err != nil {
		t.Fatalf("second CreateBuffers: %v", err)
	}

	vao2, vbo2, ebo2 := m.Handles()
	if vao2 != vao || vbo2 != vbo || ebo2 != ebo {
		t.Errorf("handles changed: %d %d %d -> %d %d %d", vao, vbo, ebo, vao2, vbo2, ebo2)
	}
	if dev.Live(gfxtest.KindVertexArray) != 1 || dev.Live(gfxtest.KindBuffer) != 2 {
		t.Errorf("second call allocated handles: %d vaos, %d buffers",
			dev.Live(gfxtest.KindVertexArray), dev.Live(gfxtest.KindBuffer))
	}
	if got := len(dev.Buffers[vbo]); got != 4*int(VertexStride) {
		t.Errorf("vertex upload after change = %d bytes, want %d", got, 4*VertexStride)
	}
	if got := len(dev.Buffers[ebo]); got != 6*4 {
		t.Errorf("index upload = %d bytes, want 24", got)
	}

	for slot := uint32(0); slot < 5; slot++ {
		if !dev.EnabledAttributes[slot] {
			t.Errorf("attribute %d not enabled", slot)
		}
	}

	if err := m.Draw(1); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	last := dev.DrawCalls[len(dev.DrawCalls)-1]
	if last.Count != 6 || last.VAO != vao {
		t.Errorf("draw = %+v, want 6 indices from vao %d", last, vao)
	}
}

func TestCreateBuffersAllocationFailure(t *testing.T) {
	dev := gfxtest.New()
	dev.FailGen[gfxtest.KindBuffer] = true
	m := NewMesh("broken", triangle(), []uint32{0, 1, 2}, 0)

	err := m.CreateBuffers(dev)
	if !errors.Is(err, gfx.ErrAllocation) {
		t.Fatalf("expected ErrAllocation, got %v", err)
	}
	var re *gfx.ResourceError
	if !errors.As(err, &re) || re.Resource != "broken" {
		t.Errorf("expected ResourceError for mesh, got %v", err)
	}
	if m.Ready() {
		t.Error("mesh must not be ready after failed allocation")
	}
	if n := dev.LiveTotal(); n != 0 {
		t.Errorf("leaked %d handles", n)
	}
	if err := m.Draw(1); !errors.Is(err, ErrBuffersNotCreated) {
		t.Errorf("Draw after failure = %v, want ErrBuffersNotCreated", err)
	}

	if err := m.CreateBuffers(dev); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !m.Ready() {
		t.Error("retry should leave mesh ready")
	}
}

func TestMeshPreconditions(t *testing.T) {
	dev := gfxtest.New()
	m := NewMesh("tri", triangle(), []uint32{0, 1, 2}, 0)

	if err := m.Draw(1); !errors.Is(err, ErrBuffersNotCreated) {
		t.Errorf("Draw before create = %v", err)
	}
	if err := m.Release(); !errors.Is(err, ErrBuffersNotCreated) {
		t.Errorf("Release before create = %v", err)
	}

	if err := m.CreateBuffers(dev); err != nil {
		t.Fatal(err)
	}
	if err := m.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if dev.LiveTotal() != 0 {
		t.Errorf("Release left %d live handles", dev.LiveTotal())
	}
	if err := m.Release(); !errors.Is(err, ErrReleased) {
		t.Errorf("second Release = %v, want ErrReleased", err)
	}
	if err := m.Draw(1); !errors.Is(err, ErrReleased) {
		t.Errorf("Draw after release = %v, want ErrReleased", err)
	}
	if len(dev.BadDeletes) != 0 {
		t.Errorf("bad deletes: %v", dev.BadDeletes)
	}

	if err := m.CreateBuffers(dev); err != nil {
		t.Fatalf("CreateBuffers after release: %v", err)
	}
	if vao, _, _ := m.Handles(); vao == 0 || !m.Ready() {
		t.Error("expected a fresh handle set after release")
	}
}

func TestDrawInstancedResetsState(t *testing.T) {
	dev := gfxtest.New()
	m := NewMesh("tri", triangle(), []uint32{0, 1, 2}, 0)
	if err := m.CreateBuffers(dev); err != nil {
		t.Fatal(err)
	}
	dev.ActiveTexture(gl.TEXTURE0 + 5)

	if err := m.Draw(4); err != nil {
		t.Fatal(err)
	}
	if dev.Count("DrawElementsInstanced") != 1 || dev.Count("DrawElements") != 0 {
		t.Errorf("expected one instanced draw, calls: %v", dev.Calls)
	}
	if got := dev.DrawCalls[0].Instances; got != 4 {
		t.Errorf("instances = %d, want 4", got)
	}
	if dev.BoundVAO != 0 {
		t.Errorf("vertex array left bound: %d", dev.BoundVAO)
	}
	if dev.ActiveUnit != 0 {
		t.Errorf("active unit = %d, want 0", dev.ActiveUnit)
	}
}

func TestUpdateBounds(t *testing.T) {
	tests := []struct {
		name     string
		vertices []VertexInfo
		want     Bounds
	}{
		{
			name:     "single vertex",
			vertices: []VertexInfo{{Position: mgl32.Vec3{1, 2, 3}}},
			want:     Bounds{Min: mgl32.Vec3{1, 2, 3}, Max: mgl32.Vec3{1, 2, 3}},
		},
		{
			name: "axes vary independently",
			vertices: []VertexInfo{
				{Position: mgl32.Vec3{0, 5, 0}},
				{Position: mgl32.Vec3{5, 0, -1}},
				{Position: mgl32.Vec3{-2, 1, 4}},
			},
			want: Bounds{Min: mgl32.Vec3{-2, 0, -1}, Max: mgl32.Vec3{5, 5, 4}},
		},
		{
			name: "empty",
			want: Bounds{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMesh(tt.name, tt.vertices, nil, NoMaterial)
			m.UpdateBounds()
			m.UpdateBounds()
			if m.Bounds != tt.want {
				t.Errorf("Bounds = %+v, want %+v", m.Bounds, tt.want)
			}
		})
	}
}

func TestCloneDoesNotShareHandles(t *testing.T) {
	dev := gfxtest.New()
	m := NewMesh("tri", triangle(), []uint32{0, 1, 2}, 2)
	if err := m.CreateBuffers(dev); err != nil {
		t.Fatal(err)
	}

	c := m.Clone()
	if c.Ready() {
		t.Error("clone must not be ready")
	}
	if vao, vbo, ebo := c.Handles(); vao|vbo|ebo != 0 {
		t.Errorf("clone has handles %d %d %d", vao, vbo, ebo)
	}
	if c.MaterialIndex != 2 || len(c.Vertices()) != 3 {
		t.Errorf("clone lost data: %+v", c)
	}

	c.SetVertices(nil)
	if len(m.Vertices()) != 3 {
		t.Error("clone aliases vertex storage")
	}
	if err := c.Release(); !errors.Is(err, ErrBuffersNotCreated) {
		t.Errorf("clone Release = %v", err)
	}
	if !m.Ready() {
		t.Error("original must stay ready")
	}
}

func TestSetVerticesCopies(t *testing.T) {
	src := triangle()
	m := NewMesh("tri", src, []uint32{0, 1, 2}, 0)
	src[0].Position = mgl32.Vec3{9, 9, 9}
	if m.Vertices()[0].Position != (mgl32.Vec3{}) {
		t.Error("mesh aliases caller's vertex slice")
	}
}
