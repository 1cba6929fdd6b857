// Package picking provides ray casting against model bounds.
package picking

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/ember/internal/engine/model"
)

// Ray represents a ray in 3D space with origin and direction.
type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3 // normalized
}

// ScreenToRay converts screen coordinates to a world-space ray.
// screenX, screenY are pixel coordinates with the origin at the top left;
// invViewProj is the inverse of projection * view.
func ScreenToRay(screenX, screenY, viewportW, viewportH float32, invViewProj mgl32.Mat4) Ray {
	ndcX := 2*screenX/viewportW - 1
	ndcY := 1 - 2*screenY/viewportH // flip Y

	near := invViewProj.Mul4x1(mgl32.Vec4{ndcX, ndcY, -1, 1})
	far := invViewProj.Mul4x1(mgl32.Vec4{ndcX, ndcY, 1, 1})

	origin := perspectiveDivide(near)
	dir := perspectiveDivide(far).Sub(origin)
	if dir.Len() > 0 {
		dir = dir.Normalize()
	}
	return Ray{Origin: origin, Direction: dir}
}

func perspectiveDivide(v mgl32.Vec4) mgl32.Vec3 {
	if v[3] != 0 {
		return v.Vec3().Mul(1 / v[3])
	}
	return v.Vec3()
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float32) mgl32.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// IntersectPlaneY intersects the ray with the horizontal plane y = planeY.
func (r Ray) IntersectPlaneY(planeY float32) (x, z float32, ok bool) {
	if math32.Abs(r.Direction[1]) < 0.001 {
		return 0, 0, false // parallel
	}
	t := (planeY - r.Origin[1]) / r.Direction[1]
	if t < 0 {
		return 0, 0, false // behind origin
	}
	p := r.At(t)
	return p[0], p[2], true
}

// IntersectBounds tests the ray against an axis-aligned box using the slab
// method. If the ray starts inside the box the exit distance is returned.
func (r Ray) IntersectBounds(b model.Bounds) (t float32, hit bool) {
	var tmin float32 = -math32.MaxFloat32
	var tmax float32 = math32.MaxFloat32

	for axis := 0; axis < 3; axis++ {
		o, d := r.Origin[axis], r.Direction[axis]
		if d == 0 {
			if o < b.Min[axis] || o > b.Max[axis] {
				return 0, false
			}
			continue
		}
		t1 := (b.Min[axis] - o) / d
		t2 := (b.Max[axis] - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math32.Max(tmin, t1)
		tmax = math32.Min(tmax, t2)
	}

	if tmax < tmin || tmax < 0 {
		return 0, false
	}
	if tmin < 0 {
		return tmax, true
	}
	return tmin, true
}

// PickMesh returns the index of the mesh whose bounds the ray hits first.
// Meshes without vertices are skipped.
func PickMesh(r Ray, info *model.LoadedModelInfo) (index int, t float32, ok bool) {
	index = -1
	for i, m := range info.Meshes {
		if len(m.Vertices()) == 0 {
			continue
		}
		if d, hit := r.IntersectBounds(m.Bounds); hit && (!ok || d < t) {
			index, t, ok = i, d, true
		}
	}
	return index, t, ok
}
