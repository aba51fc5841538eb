package mathutil

// Plane is a sector plane a*x + b*y + c*z + d = 0. C is never zero for
// floors and ceilings; floors face up (C > 0), ceilings face down (C < 0).
type Plane struct {
	A, B, C, D float64
}

// Flat returns a horizontal plane at height h. Ceiling planes are flipped
// so their normal points into the sector.
func Flat(h float64, ceiling bool) Plane {
	if ceiling {
		return Plane{C: -1, D: h}
	}
	return Plane{C: 1, D: -h}
}

// ZAt returns the plane height at (x, y).
func (p Plane) ZAt(x, y float64) float64 {
	return -(p.A*x + p.B*y + p.D) / p.C
}

// Distance returns the signed distance of pt from the plane, positive on
// the side the normal points to.
func (p Plane) Distance(pt Vec3) float64 {
	n := Vec3{p.A, p.B, p.C}
	l := n.Len()
	if l == 0 {
		return 0
	}
	return (n.Dot(pt) + p.D) / l
}
