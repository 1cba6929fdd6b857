package model

import (
	"go.uber.org/multierr"

	"github.com/Faultbox/ember/internal/engine/gfx"
)

// LoadedModelInfo is the result of importing one model file. Meshes refer
// to materials by index into Materials.
type LoadedModelInfo struct {
	Materials []*Material
	Meshes    []*Mesh
}

// Empty reports whether the model has neither meshes nor materials.
func (info *LoadedModelInfo) Empty() bool {
	return len(info.Meshes) == 0 && len(info.Materials) == 0
}

// Material returns the material at index i, or nil for NoMaterial and
// out-of-range indices.
func (info *LoadedModelInfo) Material(i int) *Material {
	if i < 0 || i >= len(info.Materials) {
		return nil
	}
	return info.Materials[i]
}

// CreateBuffers uploads every mesh. Meshes that fail are left not ready;
// their errors are combined.
func (info *LoadedModelInfo) CreateBuffers(dev gfx.Device) error {
	var err error
	for _, m := range info.Meshes {
		err = multierr.Append(err, m.CreateBuffers(dev))
	}
	return err
}

// Release deletes the GPU buffers of every ready mesh. Meshes without
// buffers are skipped, so Release may be called more than once.
func (info *LoadedModelInfo) Release() error {
	var err error
	for _, m := range info.Meshes {
		if m.Ready() {
			err = multierr.Append(err, m.Release())
		}
	}
	return err
}

// Bounds returns the union of the bounds of all meshes with vertices.
func (info *LoadedModelInfo) Bounds() Bounds {
	var (
		b     Bounds
		found bool
	)
	for _, m := range info.Meshes {
		if len(m.vertices) == 0 {
			continue
		}
		if !found {
			b, found = m.Bounds, true
			continue
		}
		b = b.Union(m.Bounds)
	}
	return b
}

// VertexCount returns the number of vertices across all meshes.
func (info *LoadedModelInfo) VertexCount() int {
	n := 0
	for _, m := range info.Meshes {
		n += len(m.vertices)
	}
	return n
}

// TriangleCount returns the number of triangles across all meshes.
func (info *LoadedModelInfo) TriangleCount() int {
	n := 0
	for _, m := range info.Meshes {
		n += m.TriangleCount()
	}
	return n
}
