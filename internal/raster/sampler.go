package raster

import (
	"image"
	"math"
)

// SampleTexture performs bilinear filtering with UV wrapping.
// Returns RGBA as uint8. Accesses tex.Pix directly for performance.
func SampleTexture(tex *image.NRGBA, u, v float64) (r, g, b, a uint8) {
	w := tex.Rect.Dx()
	h := tex.Rect.Dy()

	u -= math.Floor(u)
	v -= math.Floor(v)

	// texel centers sit at half-integer coordinates
	fx := u*float64(w) - 0.5
	fy := v*float64(h) - 0.5
	x0f := math.Floor(fx)
	y0f := math.Floor(fy)
	dx := fx - x0f
	dy := fy - y0f
	x0 := wrap(int(x0f), w)
	y0 := wrap(int(y0f), h)
	x1 := (x0 + 1) % w
	y1 := (y0 + 1) % h

	stride := tex.Stride
	pix := tex.Pix

	i00 := y0*stride + x0*4
	i10 := y0*stride + x1*4
	i01 := y1*stride + x0*4
	i11 := y1*stride + x1*4

	w00 := (1 - dx) * (1 - dy)
	w10 := dx * (1 - dy)
	w01 := (1 - dx) * dy
	w11 := dx * dy

	fr := float64(pix[i00])*w00 + float64(pix[i10])*w10 + float64(pix[i01])*w01 + float64(pix[i11])*w11
	fg := float64(pix[i00+1])*w00 + float64(pix[i10+1])*w10 + float64(pix[i01+1])*w01 + float64(pix[i11+1])*w11
	fb := float64(pix[i00+2])*w00 + float64(pix[i10+2])*w10 + float64(pix[i01+2])*w01 + float64(pix[i11+2])*w11
	fa := float64(pix[i00+3])*w00 + float64(pix[i10+3])*w10 + float64(pix[i01+3])*w01 + float64(pix[i11+3])*w11

	return uint8(fr + 0.5), uint8(fg + 0.5), uint8(fb + 0.5), uint8(fa + 0.5)
}

// SampleNearest returns the texel containing (u, v). Masked flats use it
// so alpha-tested edges stay crisp.
func SampleNearest(tex *image.NRGBA, u, v float64) (r, g, b, a uint8) {
	w := tex.Rect.Dx()
	h := tex.Rect.Dy()
	x := wrap(int(math.Floor(u*float64(w))), w)
	y := wrap(int(math.Floor(v*float64(h))), h)
	i := y*tex.Stride + x*4
	return tex.Pix[i], tex.Pix[i+1], tex.Pix[i+2], tex.Pix[i+3]
}

func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}
