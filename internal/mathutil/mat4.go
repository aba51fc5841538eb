package mathutil

// Mat4 is a 4×4 matrix stored row-major. Texture matrices are built from it
// with the post-multiply convention of a fixed-function matrix stack:
// m.Scale(...) yields m × S, so the last operation is applied to the
// texture coordinate first.
type Mat4 [16]float64

func Mat4Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Mat4Mul returns a × b.
func Mat4Mul(a, b Mat4) Mat4 {
	var m Mat4
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			m[r*4+c] = a[r*4+0]*b[0*4+c] + a[r*4+1]*b[1*4+c] +
				a[r*4+2]*b[2*4+c] + a[r*4+3]*b[3*4+c]
		}
	}
	return m
}

// MulPoint transforms a 3D point (w=1) by the 4×4 matrix.
func (m Mat4) MulPoint(v Vec3) Vec3 {
	return Vec3{
		m[0]*v[0] + m[1]*v[1] + m[2]*v[2] + m[3],
		m[4]*v[0] + m[5]*v[1] + m[6]*v[2] + m[7],
		m[8]*v[0] + m[9]*v[1] + m[10]*v[2] + m[11],
	}
}

// FromMat3Translation builds a 4×4 affine matrix from a 3×3 rotation and translation.
func FromMat3Translation(r Mat3, t Vec3) Mat4 {
	return Mat4{
		r[0], r[1], r[2], t[0],
		r[3], r[4], r[5], t[1],
		r[6], r[7], r[8], t[2],
		0, 0, 0, 1,
	}
}

// Scale returns m × diag(x, y, z, 1).
func (m Mat4) Scale(x, y, z float64) Mat4 {
	return Mat4Mul(m, FromMat3Translation(Mat3{x, 0, 0, 0, y, 0, 0, 0, z}, Vec3{}))
}

// Translate returns m × T(x, y, z).
func (m Mat4) Translate(x, y, z float64) Mat4 {
	return Mat4Mul(m, FromMat3Translation(Mat3Identity(), Vec3{x, y, z}))
}

// RotateZ returns m × Rz(deg). Angle in degrees.
func (m Mat4) RotateZ(deg float64) Mat4 {
	return Mat4Mul(m, FromMat3Translation(RotZ(Deg2Rad(deg)), Vec3{}))
}
