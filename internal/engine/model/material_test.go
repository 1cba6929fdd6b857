package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/ember/internal/engine/gfx/gfxtest"
)

type fakeTexture struct {
	id  uint32
	typ TextureType
}

func (t fakeTexture) ID() uint32        { return t.id }
func (t fakeTexture) Type() TextureType { return t.typ }

type fakeProgram struct {
	uses  int
	ints  map[string]int32
	mats  map[string]mgl32.Mat4
	order []string
}

func newFakeProgram() *fakeProgram {
	return &fakeProgram{ints: make(map[string]int32), mats: make(map[string]mgl32.Mat4)}
}

func (p *fakeProgram) Use() { p.uses++ }

func (p *fakeProgram) SetMat4(name string, m mgl32.Mat4) {
	p.mats[name] = m
	p.order = append(p.order, name)
}

func (p *fakeProgram) SetInt(name string, v int32) {
	p.ints[name] = v
	p.order = append(p.order, name)
}

func TestSetPropertyUpserts(t *testing.T) {
	m := NewMaterial("m")
	m.SetProperty("x", IntValue(1))
	m.SetProperty("shininess", FloatValue(32))
	m.SetProperty("x", IntValue(2))

	props := m.Properties()
	if len(props) != 2 {
		t.Fatalf("expected 2 properties, got %d", len(props))
	}
	if props[0].Name != "x" {
		t.Errorf("overwrite moved the property: %v", props)
	}
	v, ok := m.Property("x")
	if !ok {
		t.Fatal("x missing")
	}
	if i, ok := v.Int(); !ok || i != 2 {
		t.Errorf("x = %v, want 2", v)
	}

	m.SetProperty("x", StringValue("two"))
	v, _ = m.Property("x")
	if v.Kind() != PropertyString {
		t.Errorf("kind = %v, want string", v.Kind())
	}
	if _, ok := v.Int(); ok {
		t.Error("string value reported as int")
	}
}

func TestPropertyValueString(t *testing.T) {
	tests := []struct {
		v    PropertyValue
		want string
	}{
		{IntValue(3), "3"},
		{FloatValue(0.5), "0.5"},
		{StringValue("a"), `"a"`},
		{BoolValue(true), "true"},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String() = %s, want %s", got, tt.want)
		}
	}
}

func TestTextureSlot(t *testing.T) {
	tests := []struct {
		typ     TextureType
		unit    uint32
		uniform string
	}{
		{DiffuseMap, 3, "albedoMap"},
		{NormalMap, 4, "normalMap"},
		{MetallicMap, 5, "metallicMap"},
		{RoughnessMap, 6, "roughnessMap"},
		{AOMap, 7, "aoMap"},
		{HeightMap, 8, "heightMap"},
		{SpecularMap, 9, "specularMap"},
	}
	seen := make(map[uint32]bool)
	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			unit, uniform, ok := TextureSlot(tt.typ)
			if !ok || unit != tt.unit || uniform != tt.uniform {
				t.Errorf("TextureSlot = %d %q %v, want %d %q", unit, uniform, ok, tt.unit, tt.uniform)
			}
			if seen[unit] {
				t.Errorf("unit %d reserved twice", unit)
			}
			seen[unit] = true
		})
	}
	if _, _, ok := TextureSlot(TextureType(42)); ok {
		t.Error("unknown type must not map to a slot")
	}
}

func TestBindTextures(t *testing.T) {
	dev := gfxtest.New()
	prog := newFakeProgram()

	m := NewMaterial("m")
	m.SetShader(prog)
	m.AttachTexture(fakeTexture{id: 10, typ: DiffuseMap})
	m.AttachTexture(fakeTexture{id: 11, typ: NormalMap})
	m.AttachTexture(fakeTexture{id: 12, typ: DiffuseMap})

	if err := m.BindTextures(dev); err != nil {
		t.Fatalf("BindTextures: %v", err)
	}
	if prog.uses != 1 {
		t.Errorf("program used %d times, want 1", prog.uses)
	}
	if got := dev.Units[3]; got != 12 {
		t.Errorf("unit 3 = %d, want the later diffuse texture 12", got)
	}
	if got := dev.Units[4]; got != 11 {
		t.Errorf("unit 4 = %d, want 11", got)
	}
	if prog.ints["albedoMap"] != 3 || prog.ints["normalMap"] != 4 {
		t.Errorf("sampler uniforms = %v", prog.ints)
	}

	// activate unit, set uniform, bind texture
	var seq []string
	for _, c := range dev.Calls {
		if c.Name == "ActiveTexture" || c.Name == "BindTexture" {
			seq = append(seq, c.String())
		}
	}
	if len(seq) != 6 || seq[0] != fmt.Sprintf("ActiveTexture(%d)", gl.TEXTURE0+3) {
		t.Errorf("call sequence = %v", seq)
	}
}

func TestBindTexturesWithoutShader(t *testing.T) {
	m := NewMaterial("m")
	m.AttachTexture(fakeTexture{id: 1, typ: DiffuseMap})
	if err := m.BindTextures(gfxtest.New()); !errors.Is(err, ErrNoShader) {
		t.Errorf("expected ErrNoShader, got %v", err)
	}
	if err := m.SetMVP(mgl32.Ident4(), mgl32.Ident4(), mgl32.Ident4()); !errors.Is(err, ErrNoShader) {
		t.Errorf("expected ErrNoShader, got %v", err)
	}
}

func TestSetMVP(t *testing.T) {
	prog := newFakeProgram()
	m := NewMaterial("m")
	m.SetShader(prog)

	model := mgl32.Translate3D(1, 2, 3)
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	proj := mgl32.Perspective(mgl32.DegToRad(45), 1, 0.1, 100)
	if err := m.SetMVP(model, view, proj); err != nil {
		t.Fatal(err)
	}
	if prog.mats["model"] != model || prog.mats["view"] != view || prog.mats["projection"] != proj {
		t.Errorf("matrices not uploaded: %v", prog.order)
	}
}

func TestTextureRefs(t *testing.T) {
	m := NewMaterial("m")
	m.AddTextureRef(TextureRef{Path: "/a/d1.png", Type: DiffuseMap})
	m.AddTextureRef(TextureRef{Path: "/a/n.png", Type: NormalMap})
	m.AddTextureRef(TextureRef{Path: "/a/d2.png", Type: DiffuseMap})

	if got := m.TexturePaths(DiffuseMap); len(got) != 2 || got[1] != "/a/d2.png" {
		t.Errorf("diffuse paths = %v", got)
	}

	m.SetTexturePaths(DiffuseMap, []string{"/b/d.png"})
	refs := m.TextureRefs()
	if len(refs) != 2 {
		t.Fatalf("refs = %v", refs)
	}
	if refs[0].Type != NormalMap || refs[1].Path != "/b/d.png" {
		t.Errorf("refs after replace = %v", refs)
	}

	refs[0].Path = "changed"
	if m.TextureRefs()[0].Path == "changed" {
		t.Error("TextureRefs exposes internal storage")
	}
}
