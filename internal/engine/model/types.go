// Package model holds the engine-native records produced by the importer:
// vertices, meshes with their GPU buffers, and materials with their texture
// bindings.
package model

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// NoMaterial is the material index of a mesh without a material.
const NoMaterial = -1

// VertexInfo is one vertex as laid out in the GPU vertex buffer.
type VertexInfo struct {
	Position  mgl32.Vec3
	Normal    mgl32.Vec3
	TexCoords mgl32.Vec2
	Tangent   mgl32.Vec3
	Bitangent mgl32.Vec3
}

// VertexStride is the size of one VertexInfo in bytes.
const VertexStride = int32(unsafe.Sizeof(VertexInfo{}))

// Attribute describes one float vertex attribute inside VertexInfo.
type Attribute struct {
	Slot       uint32
	Components int32
	Offset     uintptr
}

// VertexLayout returns the attribute layout shared by every mesh shader:
// 0 position, 1 normal, 2 texcoord, 3 tangent, 4 bitangent.
func VertexLayout() [5]Attribute {
	var v VertexInfo
	return [5]Attribute{
		{Slot: 0, Components: 3, Offset: unsafe.Offsetof(v.Position)},
		{Slot: 1, Components: 3, Offset: unsafe.Offsetof(v.Normal)},
		{Slot: 2, Components: 2, Offset: unsafe.Offsetof(v.TexCoords)},
		{Slot: 3, Components: 3, Offset: unsafe.Offsetof(v.Tangent)},
		{Slot: 4, Components: 3, Offset: unsafe.Offsetof(v.Bitangent)},
	}
}

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// Center returns the midpoint of the box.
func (b Bounds) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Size returns the extent of the box along each axis.
func (b Bounds) Size() mgl32.Vec3 {
	return b.Max.Sub(b.Min)
}

// Radius returns half the diagonal length.
func (b Bounds) Radius() float32 {
	return b.Size().Len() * 0.5
}

// Union returns the smallest box containing b and o.
func (b Bounds) Union(o Bounds) Bounds {
	for i := 0; i < 3; i++ {
		b.Min[i] = min(b.Min[i], o.Min[i])
		b.Max[i] = max(b.Max[i], o.Max[i])
	}
	return b
}

// TextureType tags how a texture is sampled by the shading model.
type TextureType int

const (
	DiffuseMap TextureType = iota
	NormalMap
	SpecularMap
	HeightMap
	MetallicMap
	RoughnessMap
	AOMap
)

func (t TextureType) String() string {
	switch t {
	case DiffuseMap:
		return "diffuse"
	case NormalMap:
		return "normal"
	case SpecularMap:
		return "specular"
	case HeightMap:
		return "height"
	case MetallicMap:
		return "metallic"
	case RoughnessMap:
		return "roughness"
	case AOMap:
		return "ao"
	default:
		return "unknown"
	}
}

// TextureSlot returns the texture unit and sampler uniform reserved for t.
// Every TextureType has exactly one pair; ok is false only for values
// outside the enum.
func TextureSlot(t TextureType) (unit uint32, uniform string, ok bool) {
	switch t {
	case DiffuseMap:
		return 3, "albedoMap", true
	case NormalMap:
		return 4, "normalMap", true
	case MetallicMap:
		return 5, "metallicMap", true
	case RoughnessMap:
		return 6, "roughnessMap", true
	case AOMap:
		return 7, "aoMap", true
	case HeightMap:
		return 8, "heightMap", true
	case SpecularMap:
		return 9, "specularMap", true
	default:
		return 0, "", false
	}
}

// TextureRef is a texture discovered at import time: the resolved file path
// and the role it plays. It carries no GPU state.
type TextureRef struct {
	Path string
	Type TextureType
}

// Texture is a GPU texture attached to a material after loading.
type Texture interface {
	ID() uint32
	Type() TextureType
}

// Program is the shader program a material binds through.
type Program interface {
	Use()
	SetMat4(name string, m mgl32.Mat4)
	SetInt(name string, v int32)
}
