package model

import (
	"errors"
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/ember/internal/engine/gfx"
)

// ErrNoShader is returned when a material is bound without a shader program.
var ErrNoShader = errors.New("material has no shader")

// PropertyKind is the type held by a PropertyValue.
type PropertyKind int

const (
	PropertyInt PropertyKind = iota
	PropertyFloat
	PropertyString
	PropertyBool
)

// PropertyValue is one of int, float32, string or bool.
type PropertyValue struct {
	kind PropertyKind
	i    int
	f    float32
	s    string
	b    bool
}

// IntValue wraps an int.
func IntValue(v int) PropertyValue { return PropertyValue{kind: PropertyInt, i: v} }

// FloatValue wraps a float32.
func FloatValue(v float32) PropertyValue { return PropertyValue{kind: PropertyFloat, f: v} }

// StringValue wraps a string.
func StringValue(v string) PropertyValue { return PropertyValue{kind: PropertyString, s: v} }

// BoolValue wraps a bool.
func BoolValue(v bool) PropertyValue { return PropertyValue{kind: PropertyBool, b: v} }

// Kind returns the type of the held value.
func (v PropertyValue) Kind() PropertyKind { return v.kind }

// Int returns the value if it holds an int.
func (v PropertyValue) Int() (int, bool) { return v.i, v.kind == PropertyInt }

// Float returns the value if it holds a float.
func (v PropertyValue) Float() (float32, bool) { return v.f, v.kind == PropertyFloat }

// Str returns the value if it holds a string.
func (v PropertyValue) Str() (string, bool) { return v.s, v.kind == PropertyString }

// Bool returns the value if it holds a bool.
func (v PropertyValue) Bool() (bool, bool) { return v.b, v.kind == PropertyBool }

func (v PropertyValue) String() string {
	switch v.kind {
	case PropertyInt:
		return fmt.Sprint(v.i)
	case PropertyFloat:
		return fmt.Sprint(v.f)
	case PropertyString:
		return fmt.Sprintf("%q", v.s)
	default:
		return fmt.Sprint(v.b)
	}
}

// Property is a named material property.
type Property struct {
	Name  string
	Value PropertyValue
}

// Material holds the properties and textures of one surface.
//
// Texture references are filled in at import time; GPU textures are attached
// later by the texture loader. The shader is set by the renderer.
type Material struct {
	Name string

	properties []Property
	byName     map[string]int

	refs     []TextureRef
	textures []Texture
	program  Program
}

// NewMaterial returns an empty material.
func NewMaterial(name string) *Material {
	return &Material{Name: name, byName: make(map[string]int)}
}

// SetProperty sets name to v. Setting an existing name overwrites its value
// in place and keeps its position.
func (m *Material) SetProperty(name string, v PropertyValue) {
	if m.byName == nil {
		m.byName = make(map[string]int)
	}
	if i, ok := m.byName[name]; ok {
		m.properties[i].Value = v
		return
	}
	m.byName[name] = len(m.properties)
	m.properties = append(m.properties, Property{Name: name, Value: v})
}

// Property returns the value stored under name.
func (m *Material) Property(name string) (PropertyValue, bool) {
	i, ok := m.byName[name]
	if !ok {
		return PropertyValue{}, false
	}
	return m.properties[i].Value, true
}

// Properties returns the properties in insertion order.
func (m *Material) Properties() []Property {
	return append([]Property(nil), m.properties...)
}

// AddTextureRef appends a texture reference.
func (m *Material) AddTextureRef(ref TextureRef) {
	m.refs = append(m.refs, ref)
}

// SetTexturePaths replaces every reference of type t with paths, in order.
func (m *Material) SetTexturePaths(t TextureType, paths []string) {
	kept := m.refs[:0:0]
	for _, r := range m.refs {
		if r.Type != t {
			kept = append(kept, r)
		}
	}
	for _, p := range paths {
		kept = append(kept, TextureRef{Path: p, Type: t})
	}
	m.refs = kept
}

// TextureRefs returns the texture references in the order they were added.
func (m *Material) TextureRefs() []TextureRef {
	return append([]TextureRef(nil), m.refs...)
}

// TexturePaths returns the paths of every reference of type t.
func (m *Material) TexturePaths(t TextureType) []string {
	var paths []string
	for _, r := range m.refs {
		if r.Type == t {
			paths = append(paths, r.Path)
		}
	}
	return paths
}

// AttachTexture appends a loaded texture. Textures are bound in attach order.
func (m *Material) AttachTexture(tex Texture) {
	m.textures = append(m.textures, tex)
}

// Textures returns the attached textures.
func (m *Material) Textures() []Texture {
	return append([]Texture(nil), m.textures...)
}

// DetachTextures removes all attached textures, keeping the references.
func (m *Material) DetachTextures() {
	m.textures = nil
}

// SetShader sets the program used by SetMVP and BindTextures.
func (m *Material) SetShader(p Program) {
	m.program = p
}

// Shader returns the material's program, or nil.
func (m *Material) Shader() Program {
	return m.program
}

// SetMVP activates the program and uploads the model, view and projection
// matrices.
func (m *Material) SetMVP(model, view, projection mgl32.Mat4) error {
	if m.program == nil {
		return ErrNoShader
	}
	m.program.Use()
	m.program.SetMat4("view", view)
	m.program.SetMat4("projection", projection)
	m.program.SetMat4("model", model)
	return nil
}

// BindTextures activates the program and binds every attached texture to the
// unit reserved for its type (see TextureSlot). Two textures of the same type
// share a unit, so the later one wins. Texture unit state is global to the
// context; bind again before each draw that depends on it.
func (m *Material) BindTextures(dev gfx.Device) error {
	if m.program == nil {
		return ErrNoShader
	}
	m.program.Use()
	for _, tex := range m.textures {
		unit, uniform, ok := TextureSlot(tex.Type())
		if !ok {
			continue
		}
		dev.ActiveTexture(gl.TEXTURE0 + unit)
		m.program.SetInt(uniform, int32(unit))
		dev.BindTexture(gl.TEXTURE_2D, tex.ID())
	}
	return nil
}
