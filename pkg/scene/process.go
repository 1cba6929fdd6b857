package scene

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// PostProcess selects the steps Process applies to a decoded scene.
type PostProcess uint32

const (
	// Triangulate splits polygons into triangle fans and drops point/line faces.
	Triangulate PostProcess = 1 << iota
	// GenNormals computes smooth normals for meshes that have none.
	GenNormals
	// CalcTangentSpace computes tangents and bitangents from UV channel 0.
	CalcTangentSpace
)

// Process validates the scene and applies the selected steps in a fixed
// order: validation, triangulation, normals, tangent space.
// Validation failures set FlagIncomplete; the scene is left otherwise untouched.
func Process(s *Scene, steps PostProcess) {
	if err := Validate(s); err != nil {
		s.Flags |= FlagIncomplete
		s.Warnings = append(s.Warnings, err.Error())
		return
	}
	if steps&Triangulate != 0 {
		for _, m := range s.Meshes {
			if dropped := TriangulateMesh(m); dropped > 0 {
				s.Warnings = append(s.Warnings,
					fmt.Sprintf("mesh %q: dropped %d point/line faces", m.Name, dropped))
			}
		}
		s.Flags |= FlagTriangulated
	}
	if steps&GenNormals != 0 {
		for _, m := range s.Meshes {
			if GenerateNormals(m) {
				s.Flags |= FlagNormalsGenerated
			}
		}
	}
	if steps&CalcTangentSpace != 0 {
		for _, m := range s.Meshes {
			if CalculateTangents(m) {
				s.Flags |= FlagTangentsGenerated
			}
		}
	}
}

// Validate checks that every face index addresses an existing vertex and
// that every mesh material index is either NoMaterial or in range.
func Validate(s *Scene) error {
	for mi, m := range s.Meshes {
		if m == nil {
			return fmt.Errorf("mesh %d is nil", mi)
		}
		n := uint32(m.NumVertices())
		for fi, f := range m.Faces {
			for _, idx := range f.Indices {
				if idx >= n {
					return fmt.Errorf("mesh %q face %d: index %d out of range (%d vertices)", m.Name, fi, idx, n)
				}
			}
		}
		if m.MaterialIndex != NoMaterial && (m.MaterialIndex < 0 || m.MaterialIndex >= len(s.Materials)) {
			return fmt.Errorf("mesh %q: material index %d out of range (%d materials)", m.Name, m.MaterialIndex, len(s.Materials))
		}
	}
	return nil
}

// TriangulateMesh rewrites polygon faces as triangle fans in place.
// Faces with fewer than three indices are removed; the number removed is returned.
func TriangulateMesh(m *Mesh) int {
	out := make([]Face, 0, len(m.Faces))
	dropped := 0
	for _, f := range m.Faces {
		switch n := len(f.Indices); {
		case n < 3:
			dropped++
		case n == 3:
			out = append(out, f)
		default:
			for i := 1; i < n-1; i++ {
				out = append(out, Face{Indices: []uint32{f.Indices[0], f.Indices[i], f.Indices[i+1]}})
			}
		}
	}
	m.Faces = out
	return dropped
}

// GenerateNormals fills Normals with area-weighted smooth vertex normals when
// the mesh has none. Faces must already be triangles.
func GenerateNormals(m *Mesh) bool {
	if m.HasNormals() || !m.HasPositions() {
		return false
	}
	sums := make([]mgl32.Vec3, len(m.Positions))
	for _, f := range m.Faces {
		if len(f.Indices) != 3 {
			continue
		}
		p0 := mgl32.Vec3(m.Positions[f.Indices[0]])
		p1 := mgl32.Vec3(m.Positions[f.Indices[1]])
		p2 := mgl32.Vec3(m.Positions[f.Indices[2]])
		n := p1.Sub(p0).Cross(p2.Sub(p0))
		for _, idx := range f.Indices {
			sums[idx] = sums[idx].Add(n)
		}
	}
	normals := make([][3]float32, len(sums))
	for i, n := range sums {
		normals[i] = unit(n)
	}
	m.Normals = normals
	return true
}

// CalculateTangents derives per-vertex tangents and bitangents from UV
// channel 0. It requires positions, normals and UVs and leaves meshes that
// already carry a tangent basis alone.
func CalculateTangents(m *Mesh) bool {
	if m.HasTangentsAndBitangents() || !m.HasNormals() || !m.HasTextureCoords(0) {
		return false
	}
	uv := m.TexCoords[0]
	tsum := make([]mgl32.Vec3, len(m.Positions))
	bsum := make([]mgl32.Vec3, len(m.Positions))
	for _, f := range m.Faces {
		if len(f.Indices) != 3 {
			continue
		}
		i0, i1, i2 := f.Indices[0], f.Indices[1], f.Indices[2]
		p0 := mgl32.Vec3(m.Positions[i0])
		e1 := mgl32.Vec3(m.Positions[i1]).Sub(p0)
		e2 := mgl32.Vec3(m.Positions[i2]).Sub(p0)
		du1, dv1 := uv[i1][0]-uv[i0][0], uv[i1][1]-uv[i0][1]
		du2, dv2 := uv[i2][0]-uv[i0][0], uv[i2][1]-uv[i0][1]
		det := du1*dv2 - du2*dv1
		if math32.Abs(det) < 1e-12 {
			continue
		}
		r := 1 / det
		t := e1.Mul(dv2).Sub(e2.Mul(dv1)).Mul(r)
		b := e2.Mul(du1).Sub(e1.Mul(du2)).Mul(r)
		for _, idx := range f.Indices {
			tsum[idx] = tsum[idx].Add(t)
			bsum[idx] = bsum[idx].Add(b)
		}
	}
	tangents := make([][3]float32, len(tsum))
	bitangents := make([][3]float32, len(bsum))
	for i := range tsum {
		n := mgl32.Vec3(m.Normals[i])
		// Gram-Schmidt against the vertex normal.
		tangents[i] = unit(tsum[i].Sub(n.Mul(n.Dot(tsum[i]))))
		bitangents[i] = unit(bsum[i])
	}
	m.Tangents = tangents
	m.Bitangents = bitangents
	return true
}

// unit normalizes v, mapping degenerate vectors to zero instead of NaN.
func unit(v mgl32.Vec3) [3]float32 {
	if v.Len() < 1e-12 {
		return [3]float32{}
	}
	return v.Normalize()
}
