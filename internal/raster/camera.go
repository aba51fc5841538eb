package raster

import (
	"math"

	"flatrender/internal/mathutil"
	"flatrender/internal/scene"
)

// Near is the distance of the near clipping plane in map units.
const Near = 1.0

// Camera projects map-space points onto the framebuffer.
type Camera struct {
	eye    mathutil.Vec3
	basis  mathutil.Mat3 // rows: right, up, forward
	focal  float64
	cx, cy float64
}

// NewCamera places a camera at v for a w×h target. The horizontal field of
// view defaults to 90 degrees.
func NewCamera(v scene.View, w, h int) Camera {
	fov := v.FOV
	if fov <= 0 || fov >= 180 {
		fov = 90
	}
	yaw := mathutil.Deg2Rad(mathutil.NormalizeDegrees(v.Angle))
	cy, sy := math.Cos(yaw), math.Sin(yaw)
	level := mathutil.Mat3{
		sy, -cy, 0,
		0, 0, 1,
		cy, sy, 0,
	}

	return Camera{
		eye:   mathutil.Vec3{v.X, v.Y, v.Z},
		basis: mathutil.Mat3Mul(mathutil.RotX(mathutil.Deg2Rad(v.Pitch)), level),
		focal: float64(w) / 2 / math.Tan(mathutil.Deg2Rad(fov)/2),
		cx:    float64(w) / 2,
		cy:    float64(h) / 2,
	}
}

// ToView transforms a map-space point into camera space: x right, y up,
// z forward.
func (c Camera) ToView(p mathutil.Vec3) mathutil.Vec3 {
	return c.basis.MulVec3(p.Sub(c.eye))
}

// Project maps a camera-space point with z >= Near to screen coordinates.
func (c Camera) Project(p mathutil.Vec3) (x, y float64) {
	inv := c.focal / p[2]
	return c.cx + p[0]*inv, c.cy - p[1]*inv
}
