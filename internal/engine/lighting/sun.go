// Package lighting provides the light sources used by the forward renderer.
package lighting

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Sun is a directional light.
type Sun struct {
	// Direction points towards the light and is normalized.
	Direction mgl32.Vec3
	Color     mgl32.Vec3
	Ambient   float32
}

// DefaultSun lights the scene from the upper front right.
func DefaultSun() Sun {
	return Sun{
		Direction: SunDirection(45, 50),
		Color:     mgl32.Vec3{1, 1, 1},
		Ambient:   0.25,
	}
}

// SunDirection converts azimuth (rotation around Y, degrees) and elevation
// (degrees above the horizon) to a normalized vector pointing at the sun.
func SunDirection(azimuth, elevation float32) mgl32.Vec3 {
	az := mgl32.DegToRad(azimuth)
	el := mgl32.DegToRad(elevation)
	return mgl32.Vec3{
		math32.Cos(el) * math32.Sin(az),
		math32.Sin(el),
		math32.Cos(el) * math32.Cos(az),
	}
}
