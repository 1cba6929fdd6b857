package camera

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/ember/internal/engine/model"
)

func TestPositionAtZeroAngles(t *testing.T) {
	c := NewOrbitCamera()
	c.Center = mgl32.Vec3{1, 2, 3}
	c.Pitch, c.Yaw, c.Distance = 0, 0, 4

	if got := c.Position(); !got.ApproxEqualThreshold(mgl32.Vec3{1, 2, 7}, 1e-5) {
		t.Errorf("Position = %v", got)
	}
}

func TestHandleDragClampsPitch(t *testing.T) {
	c := NewOrbitCamera()
	c.HandleDrag(0, 1e6)
	if c.Pitch != c.MaxPitch {
		t.Errorf("pitch = %v, want %v", c.Pitch, c.MaxPitch)
	}
	c.HandleDrag(0, -1e6)
	if c.Pitch != c.MinPitch {
		t.Errorf("pitch = %v, want %v", c.Pitch, c.MinPitch)
	}
}

func TestHandleZoom(t *testing.T) {
	tests := []struct {
		name  string
		delta float32
		want  float32
	}{
		{"in", 1, 4.5},
		{"out", -1, 5.5},
		{"clamped", 100, 0.01},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewOrbitCamera()
			c.HandleZoom(tt.delta)
			if mgl32.Abs(c.Distance-tt.want) > 1e-5 {
				t.Errorf("distance = %v, want %v", c.Distance, tt.want)
			}
		})
	}
}

func TestHandlePanKeepsDistance(t *testing.T) {
	c := NewOrbitCamera()
	before := c.Position().Sub(c.Center).Len()
	c.HandlePan(100, 50)
	if c.Center == (mgl32.Vec3{}) {
		t.Error("pan did not move the center")
	}
	if after := c.Position().Sub(c.Center).Len(); mgl32.Abs(after-before) > 1e-4 {
		t.Errorf("distance changed from %v to %v", before, after)
	}
}

func TestFitToBounds(t *testing.T) {
	c := NewOrbitCamera()
	b := model.Bounds{Min: mgl32.Vec3{-10, 0, -10}, Max: mgl32.Vec3{10, 20, 10}}
	c.FitToBounds(b)

	if c.Center != (mgl32.Vec3{0, 10, 0}) {
		t.Errorf("center = %v", c.Center)
	}
	if c.Distance <= b.Radius() {
		t.Errorf("distance %v should exceed the bounding radius %v", c.Distance, b.Radius())
	}
	if c.Far <= c.Distance+b.Radius() {
		t.Errorf("far plane %v clips the model", c.Far)
	}

	// Every corner lands inside the clip volume.
	vp := c.ProjectionMatrix(1).Mul4(c.ViewMatrix())
	for _, corner := range []mgl32.Vec3{b.Min, b.Max} {
		p := vp.Mul4x1(corner.Vec4(1))
		ndc := p.Vec3().Mul(1 / p.W())
		for i := 0; i < 3; i++ {
			if ndc[i] < -1 || ndc[i] > 1 {
				t.Errorf("corner %v outside view: %v", corner, ndc)
				break
			}
		}
	}
}

func TestFitToEmptyBounds(t *testing.T) {
	c := NewOrbitCamera()
	c.FitToBounds(model.Bounds{})
	if c.Distance <= 0 || c.Near <= 0 {
		t.Errorf("degenerate fit: distance %v near %v", c.Distance, c.Near)
	}
}
