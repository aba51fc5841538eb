package raster

import "flatrender/internal/mathutil"

// clipVertex is a fan vertex in camera space with its attributes.
type clipVertex struct {
	view  mathutil.Vec3
	world mathutil.Vec3
	u, v  float64
}

func lerpClip(a, b clipVertex, t float64) clipVertex {
	return clipVertex{
		view:  a.view.Lerp(b.view, t),
		world: a.world.Lerp(b.world, t),
		u:     a.u + (b.u-a.u)*t,
		v:     a.v + (b.v-a.v)*t,
	}
}

// clipNear clips a convex polygon against the plane z = near
// (Sutherland-Hodgman) and appends the result to out.
func clipNear(in []clipVertex, near float64, out []clipVertex) []clipVertex {
	n := len(in)
	for i := 0; i < n; i++ {
		a, b := in[i], in[(i+1)%n]
		aIn, bIn := a.view[2] >= near, b.view[2] >= near
		if aIn {
			out = append(out, a)
		}
		if aIn != bIn {
			t := (near - a.view[2]) / (b.view[2] - a.view[2])
			out = append(out, lerpClip(a, b, t))
		}
	}
	return out
}
