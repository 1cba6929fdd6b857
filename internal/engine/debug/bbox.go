// Package debug provides debug visualization utilities.
package debug

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/ember/internal/engine/model"
)

// BBoxWireframeVertexCount is the number of vertices for a bbox wireframe (12 edges × 2).
const BBoxWireframeVertexCount = 24

// BBoxWireframe creates line vertices for a wireframe box around b, grown by
// padding on every side. Returns 24 vertices as [x, y, z] triples.
func BBoxWireframe(b model.Bounds, padding float32) []float32 {
	pad := mgl32.Vec3{padding, padding, padding}
	lo, hi := b.Min.Sub(pad), b.Max.Add(pad)
	minX, minY, minZ := lo.Elem()
	maxX, maxY, maxZ := hi.Elem()

	return []float32{
		// Bottom face
		minX, minY, minZ, maxX, minY, minZ,
		maxX, minY, minZ, maxX, minY, maxZ,
		maxX, minY, maxZ, minX, minY, maxZ,
		minX, minY, maxZ, minX, minY, minZ,
		// Top face
		minX, maxY, minZ, maxX, maxY, minZ,
		maxX, maxY, minZ, maxX, maxY, maxZ,
		maxX, maxY, maxZ, minX, maxY, maxZ,
		minX, maxY, maxZ, minX, maxY, minZ,
		// Vertical edges
		minX, minY, minZ, minX, maxY, minZ,
		maxX, minY, minZ, maxX, maxY, minZ,
		maxX, minY, maxZ, maxX, maxY, maxZ,
		minX, minY, maxZ, minX, maxY, maxZ,
	}
}

// MeshWireframes returns one box per non-empty mesh of info, concatenated.
func MeshWireframes(info *model.LoadedModelInfo, padding float32) []float32 {
	var out []float32
	for _, m := range info.Meshes {
		if len(m.Vertices()) == 0 {
			continue
		}
		out = append(out, BBoxWireframe(m.Bounds, padding)...)
	}
	return out
}
