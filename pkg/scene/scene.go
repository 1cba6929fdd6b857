// Package scene provides a format-neutral scene graph produced by model decoders.
//
// A Scene mirrors what a model file describes before any engine-specific
// flattening: a node hierarchy, a flat list of meshes with per-attribute
// arrays and polygon faces, and materials holding role-tagged texture slots.
package scene

// Flags describes the state of a decoded scene.
type Flags uint32

const (
	// FlagIncomplete marks a scene the decoder could not fully read.
	// Consumers must not use an incomplete scene.
	FlagIncomplete Flags = 1 << iota
	// FlagTriangulated is set once every face has exactly three indices.
	FlagTriangulated
	// FlagNormalsGenerated is set when GenNormals filled in missing normals.
	FlagNormalsGenerated
	// FlagTangentsGenerated is set when CalcTangentSpace produced tangents.
	FlagTangentsGenerated
)

// NoMaterial is the material index of a mesh that references no material.
const NoMaterial = -1

// TextureRole identifies how a texture slot is meant to be sampled.
type TextureRole int

const (
	RoleNone TextureRole = iota
	RoleDiffuse
	RoleSpecular
	RoleAmbient
	RoleEmissive
	RoleHeight
	RoleNormals
	RoleShininess
	RoleOpacity
	RoleDisplacement
	RoleMetalness
	RoleRoughness
	RoleAmbientOcclusion
)

// String returns the role name.
func (r TextureRole) String() string {
	switch r {
	case RoleDiffuse:
		return "diffuse"
	case RoleSpecular:
		return "specular"
	case RoleAmbient:
		return "ambient"
	case RoleEmissive:
		return "emissive"
	case RoleHeight:
		return "height"
	case RoleNormals:
		return "normals"
	case RoleShininess:
		return "shininess"
	case RoleOpacity:
		return "opacity"
	case RoleDisplacement:
		return "displacement"
	case RoleMetalness:
		return "metalness"
	case RoleRoughness:
		return "roughness"
	case RoleAmbientOcclusion:
		return "ambient_occlusion"
	default:
		return "none"
	}
}

// Material is a named set of texture slots grouped by role.
// Slot paths are kept exactly as written in the source file.
type Material struct {
	Name     string
	Textures map[TextureRole][]string
}

// NewMaterial creates an empty material.
func NewMaterial(name string) *Material {
	return &Material{
		Name:     name,
		Textures: make(map[TextureRole][]string),
	}
}

// AddTexture appends a texture slot for the given role.
func (m *Material) AddTexture(role TextureRole, path string) {
	if m.Textures == nil {
		m.Textures = make(map[TextureRole][]string)
	}
	m.Textures[role] = append(m.Textures[role], path)
}

// TextureCount returns the number of slots of the given role.
func (m *Material) TextureCount(role TextureRole) int {
	return len(m.Textures[role])
}

// Texture returns the i-th slot path of the given role.
func (m *Material) Texture(role TextureRole, i int) (string, bool) {
	slots := m.Textures[role]
	if i < 0 || i >= len(slots) {
		return "", false
	}
	return slots[i], true
}

// Face is a polygon referencing mesh vertices by index.
type Face struct {
	Indices []uint32
}

// Mesh holds per-vertex attribute arrays and faces.
// Every non-empty attribute array has one entry per vertex.
type Mesh struct {
	Name       string
	Positions  [][3]float32
	Normals    [][3]float32
	Tangents   [][3]float32
	Bitangents [][3]float32
	// TexCoords holds UV channels; only channel 0 is consumed by the engine.
	TexCoords     [][][2]float32
	Faces         []Face
	MaterialIndex int
}

// NumVertices returns the vertex count of the mesh.
func (m *Mesh) NumVertices() int {
	return len(m.Positions)
}

// HasPositions reports whether the mesh has vertex positions.
func (m *Mesh) HasPositions() bool {
	return len(m.Positions) > 0
}

// HasNormals reports whether the mesh has a normal per vertex.
func (m *Mesh) HasNormals() bool {
	return len(m.Normals) > 0 && len(m.Normals) == len(m.Positions)
}

// HasTangentsAndBitangents reports whether both tangents and bitangents exist.
func (m *Mesh) HasTangentsAndBitangents() bool {
	n := len(m.Positions)
	return n > 0 && len(m.Tangents) == n && len(m.Bitangents) == n
}

// HasTextureCoords reports whether UV channel ch exists.
func (m *Mesh) HasTextureCoords(ch int) bool {
	return ch >= 0 && ch < len(m.TexCoords) && len(m.TexCoords[ch]) > 0 &&
		len(m.TexCoords[ch]) == len(m.Positions)
}

// Node is an element of the scene hierarchy.
type Node struct {
	Name     string
	Meshes   []int
	Children []*Node
}

// Walk visits n and all of its descendants depth-first.
func (n *Node) Walk(fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Scene is a decoded model file.
type Scene struct {
	Root      *Node
	Meshes    []*Mesh
	Materials []*Material
	Flags     Flags
	// Warnings collects non-fatal decoder diagnostics.
	Warnings []string
}

// HasMeshes reports whether the scene contains meshes.
func (s *Scene) HasMeshes() bool {
	return len(s.Meshes) > 0
}

// HasMaterials reports whether the scene contains materials.
func (s *Scene) HasMaterials() bool {
	return len(s.Materials) > 0
}

// Incomplete reports whether the decoder flagged the scene as incomplete.
func (s *Scene) Incomplete() bool {
	return s.Flags&FlagIncomplete != 0
}
