package picking

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/ember/internal/engine/model"
)

func unitBox(center mgl32.Vec3) model.Bounds {
	half := mgl32.Vec3{0.5, 0.5, 0.5}
	return model.Bounds{Min: center.Sub(half), Max: center.Add(half)}
}

func TestIntersectBounds(t *testing.T) {
	box := unitBox(mgl32.Vec3{})

	tests := []struct {
		name  string
		ray   Ray
		hit   bool
		wantT float32
	}{
		{
			name:  "head on",
			ray:   Ray{Origin: mgl32.Vec3{0, 0, 5}, Direction: mgl32.Vec3{0, 0, -1}},
			hit:   true,
			wantT: 4.5,
		},
		{
			name:  "from inside returns exit",
			ray:   Ray{Origin: mgl32.Vec3{}, Direction: mgl32.Vec3{1, 0, 0}},
			hit:   true,
			wantT: 0.5,
		},
		{
			name: "miss",
			ray:  Ray{Origin: mgl32.Vec3{2, 0, 5}, Direction: mgl32.Vec3{0, 0, -1}},
		},
		{
			name: "box behind",
			ray:  Ray{Origin: mgl32.Vec3{0, 0, 5}, Direction: mgl32.Vec3{0, 0, 1}},
		},
		{
			name:  "axis parallel inside slab",
			ray:   Ray{Origin: mgl32.Vec3{0.2, 0.2, -3}, Direction: mgl32.Vec3{0, 0, 1}},
			hit:   true,
			wantT: 2.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, hit := tt.ray.IntersectBounds(box)
			if hit != tt.hit {
				t.Fatalf("hit = %v, want %v", hit, tt.hit)
			}
			if hit && mgl32.Abs(got-tt.wantT) > 1e-5 {
				t.Errorf("t = %v, want %v", got, tt.wantT)
			}
		})
	}
}

func TestIntersectPlaneY(t *testing.T) {
	r := Ray{Origin: mgl32.Vec3{1, 10, 2}, Direction: mgl32.Vec3{0, -1, 0}}
	x, z, ok := r.IntersectPlaneY(0)
	if !ok || x != 1 || z != 2 {
		t.Errorf("IntersectPlaneY = %v, %v, %v", x, z, ok)
	}

	flat := Ray{Origin: mgl32.Vec3{0, 1, 0}, Direction: mgl32.Vec3{1, 0, 0}}
	if _, _, ok := flat.IntersectPlaneY(0); ok {
		t.Error("parallel ray should not hit")
	}
}

func TestScreenToRay(t *testing.T) {
	eye := mgl32.Vec3{0, 0, 5}
	view := mgl32.LookAtV(eye, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	proj := mgl32.Perspective(mgl32.DegToRad(45), 1, 0.1, 100)
	inv := proj.Mul4(view).Inv()

	r := ScreenToRay(400, 400, 800, 800, inv)
	if !r.Direction.ApproxEqualThreshold(mgl32.Vec3{0, 0, -1}, 1e-4) {
		t.Errorf("center ray direction = %v", r.Direction)
	}
	if mgl32.Abs(r.Origin[2]-4.9) > 1e-3 {
		t.Errorf("center ray origin = %v, want on the near plane", r.Origin)
	}

	// top-left pixel points up and left
	corner := ScreenToRay(0, 0, 800, 800, inv)
	if corner.Direction[0] >= 0 || corner.Direction[1] <= 0 {
		t.Errorf("corner ray direction = %v", corner.Direction)
	}
}

func TestPickMesh(t *testing.T) {
	near := model.NewMesh("near", []model.VertexInfo{{}}, nil, model.NoMaterial)
	near.Bounds = unitBox(mgl32.Vec3{0, 0, 1})
	far := model.NewMesh("far", []model.VertexInfo{{}}, nil, model.NoMaterial)
	far.Bounds = unitBox(mgl32.Vec3{0, 0, -1})
	empty := model.NewMesh("empty", nil, nil, model.NoMaterial)
	empty.Bounds = unitBox(mgl32.Vec3{0, 0, 3})

	info := &model.LoadedModelInfo{Meshes: []*model.Mesh{far, empty, near}}
	r := Ray{Origin: mgl32.Vec3{0, 0, 5}, Direction: mgl32.Vec3{0, 0, -1}}

	idx, d, ok := PickMesh(r, info)
	if !ok || idx != 2 {
		t.Fatalf("PickMesh = %d, %v, %v; want mesh 2", idx, d, ok)
	}
	if mgl32.Abs(d-3.5) > 1e-5 {
		t.Errorf("distance = %v, want 3.5", d)
	}

	miss := Ray{Origin: mgl32.Vec3{5, 5, 5}, Direction: mgl32.Vec3{0, 0, -1}}
	if idx, _, ok := PickMesh(miss, info); ok || idx != -1 {
		t.Errorf("miss returned %d, %v", idx, ok)
	}
}
