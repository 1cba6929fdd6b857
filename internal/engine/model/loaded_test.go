package model

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/ember/internal/engine/gfx/gfxtest"
)

func TestLoadedModelInfo(t *testing.T) {
	a := NewMesh("a", []VertexInfo{{Position: mgl32.Vec3{-1, 0, 0}}, {Position: mgl32.Vec3{0, 1, 0}}}, []uint32{0, 1, 0}, 0)
	b := NewMesh("b", []VertexInfo{{Position: mgl32.Vec3{2, -3, 4}}}, []uint32{0, 0, 0}, NoMaterial)
	empty := NewMesh("empty", nil, nil, NoMaterial)
	for _, m := range []*Mesh{a, b, empty} {
		m.UpdateBounds()
	}
	info := &LoadedModelInfo{
		Materials: []*Material{NewMaterial("only")},
		Meshes:    []*Mesh{a, b, empty},
	}

	want := Bounds{Min: mgl32.Vec3{-1, -3, 0}, Max: mgl32.Vec3{2, 1, 4}}
	if got := info.Bounds(); got != want {
		t.Errorf("Bounds = %+v, want %+v", got, want)
	}
	if info.VertexCount() != 3 || info.TriangleCount() != 2 {
		t.Errorf("counts = %d vertices, %d triangles", info.VertexCount(), info.TriangleCount())
	}
	if info.Material(a.MaterialIndex) == nil || info.Material(b.MaterialIndex) != nil || info.Material(7) != nil {
		t.Error("Material lookup wrong")
	}

	dev := gfxtest.New()
	if err := info.CreateBuffers(dev); err != nil {
		t.Fatalf("CreateBuffers: %v", err)
	}
	if dev.Live(gfxtest.KindVertexArray) != 3 {
		t.Errorf("expected 3 vertex arrays, got %d", dev.Live(gfxtest.KindVertexArray))
	}
	if err := info.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := info.Release(); err != nil {
		t.Errorf("second Release: %v", err)
	}
	if dev.LiveTotal() != 0 || len(dev.BadDeletes) != 0 {
		t.Errorf("live %d, bad deletes %v", dev.LiveTotal(), dev.BadDeletes)
	}
}

func TestEmptyModel(t *testing.T) {
	info := &LoadedModelInfo{}
	if !info.Empty() {
		t.Error("zero value should be empty")
	}
	if info.Bounds() != (Bounds{}) {
		t.Error("empty model should have zero bounds")
	}
}
