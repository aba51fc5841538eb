// Package postprocess reduces supersampled frames to their output size.
package postprocess

import (
	"image"

	"golang.org/x/image/draw"
)

// Downsample reduces a supersampled frame to w×h. Filtering runs on
// premultiplied alpha so transparent texels do not bleed dark fringes into
// translucent flat edges. Frames that already fit are returned unchanged.
func Downsample(img *image.NRGBA, w, h int) *image.NRGBA {
	src := img.Bounds()
	if w <= 0 || h <= 0 || (src.Dx() <= w && src.Dy() <= h) {
		return img
	}
	dstRect := image.Rect(0, 0, w, h)

	premul := image.NewRGBA(src)
	draw.Draw(premul, src, img, src.Min, draw.Src)

	scaled := image.NewRGBA(dstRect)
	draw.CatmullRom.Scale(scaled, dstRect, premul, src, draw.Src, nil)
	clampToAlpha(scaled)

	out := image.NewNRGBA(dstRect)
	draw.Draw(out, dstRect, scaled, image.Point{}, draw.Src)
	return out
}

// clampToAlpha caps each color channel at its alpha. Catmull-Rom ringing
// near hard alpha edges can overshoot, which is not a valid premultiplied
// color.
func clampToAlpha(img *image.RGBA) {
	for i := 0; i+3 < len(img.Pix); i += 4 {
		a := img.Pix[i+3]
		for c := i; c < i+3; c++ {
			if img.Pix[c] > a {
				img.Pix[c] = a
			}
		}
	}
}
