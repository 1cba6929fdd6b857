// glTF 2.0 decoder for .gltf and .glb files.
package formats

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/ember/pkg/scene"
)

// ErrMalformedGLTF is returned when a glTF document references missing data.
var ErrMalformedGLTF = errors.New("malformed glTF data")

// ParseGLTFFile reads a .gltf or .glb file including its external buffers.
func ParseGLTFFile(path string) (*scene.Scene, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading glTF file: %w", err)
	}
	return ConvertGLTF(doc, filepath.Base(path))
}

type gltfConverter struct {
	doc   *gltf.Document
	scene *scene.Scene
	// meshes maps a glTF mesh index to the scene meshes built from its primitives.
	meshes map[int][]int
}

// ConvertGLTF builds a scene from a decoded glTF document. Every primitive
// becomes its own mesh; name is used for the root node when the document's
// scene is unnamed.
func ConvertGLTF(doc *gltf.Document, name string) (*scene.Scene, error) {
	c := &gltfConverter{
		doc:    doc,
		scene:  &scene.Scene{},
		meshes: make(map[int][]int),
	}

	for i, m := range doc.Materials {
		c.scene.Materials = append(c.scene.Materials, c.convertMaterial(i, m))
	}
	for i, m := range doc.Meshes {
		if err := c.convertMesh(i, m); err != nil {
			return nil, err
		}
	}
	root, err := c.buildRoot(name)
	if err != nil {
		return nil, err
	}
	c.scene.Root = root
	return c.scene, nil
}

func (c *gltfConverter) warnf(format string, args ...any) {
	c.scene.Warnings = append(c.scene.Warnings, fmt.Sprintf(format, args...))
}

func (c *gltfConverter) convertMaterial(index int, m *gltf.Material) *scene.Material {
	out := scene.NewMaterial(m.Name)
	add := func(role scene.TextureRole, texture int) {
		if path, ok := c.textureURI(index, texture); ok {
			out.AddTexture(role, path)
		}
	}

	if pbr := m.PBRMetallicRoughness; pbr != nil {
		if pbr.BaseColorTexture != nil {
			add(scene.RoleDiffuse, pbr.BaseColorTexture.Index)
		}
		if pbr.MetallicRoughnessTexture != nil {
			add(scene.RoleMetalness, pbr.MetallicRoughnessTexture.Index)
			add(scene.RoleRoughness, pbr.MetallicRoughnessTexture.Index)
		}
	}
	if m.NormalTexture != nil && m.NormalTexture.Index != nil {
		add(scene.RoleNormals, *m.NormalTexture.Index)
	}
	if m.OcclusionTexture != nil && m.OcclusionTexture.Index != nil {
		add(scene.RoleAmbientOcclusion, *m.OcclusionTexture.Index)
	}
	if m.EmissiveTexture != nil {
		add(scene.RoleEmissive, m.EmissiveTexture.Index)
	}
	return out
}

// textureURI resolves a texture index to the relative URI of its image.
// Images embedded in buffers or data URIs have no file path and are skipped.
func (c *gltfConverter) textureURI(material, texture int) (string, bool) {
	if texture < 0 || texture >= len(c.doc.Textures) {
		c.warnf("material %d: texture %d does not exist", material, texture)
		return "", false
	}
	src := c.doc.Textures[texture].Source
	if src == nil || *src < 0 || *src >= len(c.doc.Images) {
		c.warnf("material %d: texture %d has no image", material, texture)
		return "", false
	}
	img := c.doc.Images[*src]
	if img.URI == "" || img.IsEmbeddedResource() {
		c.warnf("material %d: embedded image %d skipped", material, *src)
		return "", false
	}
	uri, err := url.PathUnescape(img.URI)
	if err != nil {
		uri = img.URI
	}
	return uri, true
}

func (c *gltfConverter) accessor(idx int) (*gltf.Accessor, error) {
	if idx < 0 || idx >= len(c.doc.Accessors) {
		return nil, fmt.Errorf("%w: accessor %d does not exist", ErrMalformedGLTF, idx)
	}
	return c.doc.Accessors[idx], nil
}

func (c *gltfConverter) convertMesh(index int, m *gltf.Mesh) error {
	for pi, prim := range m.Primitives {
		name := m.Name
		if len(m.Primitives) > 1 {
			name = fmt.Sprintf("%s-%d", m.Name, pi)
		}
		mesh, err := c.convertPrimitive(name, prim)
		if err != nil {
			return fmt.Errorf("mesh %d primitive %d: %w", index, pi, err)
		}
		if mesh == nil {
			continue
		}
		c.meshes[index] = append(c.meshes[index], len(c.scene.Meshes))
		c.scene.Meshes = append(c.scene.Meshes, mesh)
	}
	return nil
}

func (c *gltfConverter) convertPrimitive(name string, prim *gltf.Primitive) (*scene.Mesh, error) {
	switch prim.Mode {
	case gltf.PrimitiveTriangles, gltf.PrimitiveTriangleStrip, gltf.PrimitiveTriangleFan:
	default:
		c.warnf("%s: non-triangle primitive skipped", name)
		return nil, nil
	}

	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		c.warnf("%s: primitive without POSITION skipped", name)
		return nil, nil
	}
	acr, err := c.accessor(posIdx)
	if err != nil {
		return nil, err
	}
	positions, err := modeler.ReadPosition(c.doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("reading positions: %w", err)
	}

	mesh := &scene.Mesh{
		Name:          name,
		Positions:     positions,
		MaterialIndex: scene.NoMaterial,
	}
	if prim.Material != nil {
		mesh.MaterialIndex = *prim.Material
	}

	if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
		acr, err := c.accessor(idx)
		if err != nil {
			return nil, err
		}
		if mesh.Normals, err = modeler.ReadNormal(c.doc, acr, nil); err != nil {
			return nil, fmt.Errorf("reading normals: %w", err)
		}
	}
	if idx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		acr, err := c.accessor(idx)
		if err != nil {
			return nil, err
		}
		uvs, err := modeler.ReadTextureCoord(c.doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("reading texcoords: %w", err)
		}
		mesh.TexCoords = [][][2]float32{uvs}
	}
	if idx, ok := prim.Attributes[gltf.TANGENT]; ok && mesh.HasNormals() {
		acr, err := c.accessor(idx)
		if err != nil {
			return nil, err
		}
		tangents, err := modeler.ReadTangent(c.doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("reading tangents: %w", err)
		}
		if len(tangents) == len(positions) {
			mesh.Tangents, mesh.Bitangents = tangentBasis(mesh.Normals, tangents)
		}
	}

	var indices []uint32
	if prim.Indices != nil {
		acr, err := c.accessor(*prim.Indices)
		if err != nil {
			return nil, err
		}
		if indices, err = modeler.ReadIndices(c.doc, acr, nil); err != nil {
			return nil, fmt.Errorf("reading indices: %w", err)
		}
	} else {
		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	mesh.Faces = primitiveFaces(prim.Mode, indices)
	return mesh, nil
}

// tangentBasis splits glTF vec4 tangents into tangent and bitangent arrays.
// The bitangent is cross(normal, tangent) scaled by the handedness in w.
func tangentBasis(normals [][3]float32, tangents [][4]float32) ([][3]float32, [][3]float32) {
	t := make([][3]float32, len(tangents))
	b := make([][3]float32, len(tangents))
	for i, tan := range tangents {
		v := mgl32.Vec4(tan).Vec3()
		t[i] = v
		w := tan[3]
		if w == 0 {
			w = 1
		}
		b[i] = mgl32.Vec3(normals[i]).Cross(v).Mul(w)
	}
	return t, b
}

// primitiveFaces expands an index stream into triangle faces.
func primitiveFaces(mode gltf.PrimitiveMode, indices []uint32) []scene.Face {
	var faces []scene.Face
	switch mode {
	case gltf.PrimitiveTriangleStrip:
		for i := 0; i+2 < len(indices); i++ {
			if i%2 == 0 {
				faces = append(faces, scene.Face{Indices: []uint32{indices[i], indices[i+1], indices[i+2]}})
			} else {
				faces = append(faces, scene.Face{Indices: []uint32{indices[i+1], indices[i], indices[i+2]}})
			}
		}
	case gltf.PrimitiveTriangleFan:
		for i := 1; i+1 < len(indices); i++ {
			faces = append(faces, scene.Face{Indices: []uint32{indices[0], indices[i], indices[i+1]}})
		}
	default:
		for i := 0; i+2 < len(indices); i += 3 {
			faces = append(faces, scene.Face{Indices: []uint32{indices[i], indices[i+1], indices[i+2]}})
		}
	}
	return faces
}

// buildRoot converts the document's default scene into a node tree under a
// synthetic root. Documents without scenes fall back to their parentless
// nodes, then to a flat list of meshes. A document with none of these has
// no root.
func (c *gltfConverter) buildRoot(name string) (*scene.Node, error) {
	doc := c.doc
	var top []int

	switch {
	case len(doc.Scenes) > 0:
		idx := 0
		if doc.Scene != nil {
			idx = *doc.Scene
		}
		if idx < 0 || idx >= len(doc.Scenes) {
			return nil, fmt.Errorf("%w: scene %d does not exist", ErrMalformedGLTF, idx)
		}
		if doc.Scenes[idx].Name != "" {
			name = doc.Scenes[idx].Name
		}
		top = doc.Scenes[idx].Nodes
	case len(doc.Nodes) > 0:
		isChild := make([]bool, len(doc.Nodes))
		for _, n := range doc.Nodes {
			for _, ch := range n.Children {
				if ch >= 0 && ch < len(isChild) {
					isChild[ch] = true
				}
			}
		}
		for i := range doc.Nodes {
			if !isChild[i] {
				top = append(top, i)
			}
		}
	case len(c.scene.Meshes) > 0:
		root := &scene.Node{Name: name}
		for i := range c.scene.Meshes {
			root.Meshes = append(root.Meshes, i)
		}
		return root, nil
	default:
		return nil, nil
	}

	root := &scene.Node{Name: name}
	visiting := make(map[int]bool)
	for _, idx := range top {
		n, err := c.convertNode(idx, visiting)
		if err != nil {
			return nil, err
		}
		root.Children = append(root.Children, n)
	}
	return root, nil
}

func (c *gltfConverter) convertNode(idx int, visiting map[int]bool) (*scene.Node, error) {
	if idx < 0 || idx >= len(c.doc.Nodes) {
		return nil, fmt.Errorf("%w: node %d does not exist", ErrMalformedGLTF, idx)
	}
	if visiting[idx] {
		return nil, fmt.Errorf("%w: node %d is its own ancestor", ErrMalformedGLTF, idx)
	}
	visiting[idx] = true
	defer delete(visiting, idx)

	src := c.doc.Nodes[idx]
	n := &scene.Node{Name: src.Name}
	if src.Mesh != nil {
		n.Meshes = append(n.Meshes, c.meshes[*src.Mesh]...)
	}
	for _, ch := range src.Children {
		child, err := c.convertNode(ch, visiting)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}
	return n, nil
}
