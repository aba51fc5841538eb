package postprocess

import (
	"image"
	"image/color"
	"testing"
)

func fill(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestDownsample(t *testing.T) {
	tests := []struct {
		name         string
		srcW, srcH   int
		w, h         int
		wantW, wantH int
	}{
		{"halves", 64, 40, 32, 20, 32, 20},
		{"already small", 32, 20, 32, 20, 32, 20},
		{"zero target", 64, 40, 0, 0, 64, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Downsample(fill(tt.srcW, tt.srcH, color.NRGBA{200, 100, 50, 255}), tt.w, tt.h)
			if b := got.Bounds(); b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Fatalf("size = %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.wantW, tt.wantH)
			}
		})
	}
}

func TestDownsampleKeepsFlatColor(t *testing.T) {
	want := color.NRGBA{200, 100, 50, 255}
	got := Downsample(fill(64, 64, want), 16, 16)
	for _, p := range []image.Point{{0, 0}, {8, 8}, {15, 15}} {
		c := got.NRGBAAt(p.X, p.Y)
		if absDiff(c.R, want.R) > 1 || absDiff(c.G, want.G) > 1 || absDiff(c.B, want.B) > 1 || c.A != 255 {
			t.Errorf("pixel %v = %v, want %v", p, c, want)
		}
	}
}

func TestDownsampleNoDarkFringe(t *testing.T) {
	// transparent texels carry black color; premultiplying keeps it out
	img := fill(64, 64, color.NRGBA{0, 0, 0, 0})
	for y := 0; y < 64; y++ {
		for x := 0; x < 32; x++ {
			img.SetNRGBA(x, y, color.NRGBA{255, 255, 255, 255})
		}
	}
	got := Downsample(img, 16, 16)
	c := got.NRGBAAt(7, 8)
	if c.A == 0 || c.R < 250 {
		t.Errorf("edge pixel = %v, want white with partial alpha", c)
	}
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

func TestDownsampleHalfAlpha(t *testing.T) {
	// a 2x reduction of a uniform translucent frame keeps color and alpha
	want := color.NRGBA{40, 160, 240, 128}
	got := Downsample(fill(32, 32, want), 16, 16)
	c := got.NRGBAAt(8, 8)
	if absDiff(c.R, want.R) > 2 || absDiff(c.G, want.G) > 2 || absDiff(c.B, want.B) > 2 || absDiff(c.A, want.A) > 1 {
		t.Errorf("pixel = %v, want %v", c, want)
	}
}

func TestClampToAlpha(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	copy(img.Pix, []uint8{90, 10, 80, 64, 255, 255, 255, 255})
	clampToAlpha(img)
	want := []uint8{64, 10, 64, 64, 255, 255, 255, 255}
	for i := range want {
		if img.Pix[i] != want[i] {
			t.Fatalf("Pix = %v, want %v", img.Pix, want)
		}
	}
}
