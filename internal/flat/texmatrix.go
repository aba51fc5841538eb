package flat

import (
	"flatrender/internal/mathutil"
	"flatrender/internal/scene"
	"flatrender/internal/texture"
)

// refSize is the edge of the reference flat the default texture
// coordinates (map units / 64) are laid out for.
const refSize = 64

// TextureMatrix returns the matrix that positions m on a plane with
// placement pt. ok is false when the default mapping already fits and no
// matrix is needed.
func TextureMatrix(pt scene.PlaneTexture, m *texture.Material) (mat mathutil.Mat4, ok bool) {
	if m == nil || m.Width <= 0 || m.Height <= 0 {
		return mathutil.Mat4Identity(), false
	}
	if pt.XOffs == 0 && pt.YOffs == 0 &&
		pt.XScale == 1 && pt.YScale == 1 &&
		pt.Angle == 0 &&
		m.Width == refSize && m.Height == refSize {
		return mathutil.Mat4Identity(), false
	}

	w, h := float64(m.Width), float64(m.Height)
	yscale := pt.YScale
	if m.Canvas {
		yscale = -yscale
	}
	mat = mathutil.Mat4Identity().
		Scale(pt.XScale, yscale, 1).
		Translate(pt.XOffs/w, pt.YOffs/h, 0).
		Scale(refSize/w, refSize/h, 1).
		RotateZ(-pt.Angle)
	return mat, true
}

// setPlaneTextureRotation pushes the texture matrix of f if it needs one
// and reports whether it did. Every true result must be matched by
// popTexMatrix.
func (r *Renderer) setPlaneTextureRotation(f *Flat) bool {
	mat, ok := TextureMatrix(f.Plane.PlaneTexture, f.Texture)
	if !ok {
		return false
	}
	r.state.Device().PushTexMatrix(mat)
	r.stats.MatrixPushes++
	return true
}

func (r *Renderer) popTexMatrix() {
	r.state.Device().PopTexMatrix()
	r.stats.MatrixPops++
}
