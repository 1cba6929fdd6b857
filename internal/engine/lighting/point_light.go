package lighting

import "github.com/go-gl/mathgl/mgl32"

// MaxPointLights is the maximum number of point lights supported in shaders.
const MaxPointLights = 8

// DefaultRange is used for lights without a positive range.
const DefaultRange = 10.0

// PointLight is a light source with distance falloff.
type PointLight struct {
	Position  mgl32.Vec3
	Color     mgl32.Vec3 // RGB, 0-1
	Range     float32
	Intensity float32
}

// Sanitize clamps the color to 0-1 and replaces a non-positive range or
// intensity with defaults.
func (l PointLight) Sanitize() PointLight {
	for i := range l.Color {
		l.Color[i] = mgl32.Clamp(l.Color[i], 0, 1)
	}
	if l.Range <= 0 {
		l.Range = DefaultRange
	}
	if l.Intensity <= 0 {
		l.Intensity = 1
	}
	return l
}

// Limit returns at most MaxPointLights sanitized lights.
func Limit(lights []PointLight) []PointLight {
	if len(lights) > MaxPointLights {
		lights = lights[:MaxPointLights]
	}
	out := make([]PointLight, len(lights))
	for i, l := range lights {
		out[i] = l.Sanitize()
	}
	return out
}
