package raster

import (
	"math"

	"github.com/gogpu/gputypes"

	"flatrender/internal/lights"
	"flatrender/internal/mathutil"
)

// screenVertex is a projected vertex. Attributes are divided by depth so
// they interpolate linearly in screen space.
type screenVertex struct {
	x, y   float64
	invZ   float64
	uz, vz float64
	wz     mathutil.Vec3 // world position / z
}

func (d *Device) project(cv clipVertex) screenVertex {
	x, y := d.cam.Project(cv.view)
	inv := 1 / cv.view[2]
	return screenVertex{
		x: x, y: y,
		invZ: inv,
		uz:   cv.u * inv,
		vz:   cv.v * inv,
		wz:   cv.world.Scale(inv),
	}
}

// fillTriangle rasterizes one triangle with a depth test against 1/z.
// Pixel centers are sampled at +0.5. Both windings are drawn.
func (d *Device) fillTriangle(sh *shading, a, b, c screenVertex) {
	fb := d.fb
	det := (b.y-c.y)*(a.x-c.x) + (c.x-b.x)*(a.y-c.y)
	if det > -1e-12 && det < 1e-12 {
		return
	}
	invDet := 1.0 / det

	minX := int(math.Floor(math.Min(math.Min(a.x, b.x), c.x)))
	maxX := int(math.Ceil(math.Max(math.Max(a.x, b.x), c.x)))
	minY := int(math.Floor(math.Min(math.Min(a.y, b.y), c.y)))
	maxY := int(math.Ceil(math.Max(math.Max(a.y, b.y), c.y)))
	minX = max(minX, 0)
	minY = max(minY, 0)
	maxX = min(maxX, fb.Width-1)
	maxY = min(maxY, fb.Height-1)
	if minX > maxX || minY > maxY {
		return
	}

	dy12 := b.y - c.y
	dx21 := c.x - b.x
	dy20 := c.y - a.y
	dx02 := a.x - c.x

	for sy := minY; sy <= maxY; sy++ {
		dsy := float64(sy) + 0.5 - c.y
		rowOff := sy * fb.Width
		for sx := minX; sx <= maxX; sx++ {
			dsx := float64(sx) + 0.5 - c.x
			w0 := (dy12*dsx + dx21*dsy) * invDet
			w1 := (dy20*dsx + dx02*dsy) * invDet
			w2 := 1.0 - w0 - w1
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}

			invZ := w0*a.invZ + w1*b.invZ + w2*c.invZ
			idx := rowOff + sx
			if invZ <= fb.Depth[idx] {
				continue
			}
			z := 1 / invZ
			u := (w0*a.uz + w1*b.uz + w2*c.uz) * z
			v := (w0*a.vz + w1*b.vz + w2*c.vz) * z

			r, g, bl, al := d.fragment(sh, u, v, z, func() mathutil.Vec3 {
				return a.wz.Scale(w0).Add(b.wz.Scale(w1)).Add(c.wz.Scale(w2)).Scale(z)
			})
			if al < 0 {
				continue
			}
			d.blend(idx, r, g, bl, al)
			if al >= 1 || d.alphaTest {
				fb.Depth[idx] = invZ
			}
		}
	}
}

// fragment shades one pixel. A negative alpha means the fragment is
// discarded. world is only evaluated when dynamic lights are active.
func (d *Device) fragment(sh *shading, u, v, z float64, world func() mathutil.Vec3) (r, g, b, a float64) {
	r, g, b, a = 1, 1, 1, 1
	if sh.tex != nil {
		var tr, tg, tb, ta uint8
		if sh.nearest {
			tr, tg, tb, ta = SampleNearest(sh.tex.Image, u, v)
		} else {
			tr, tg, tb, ta = SampleTexture(sh.tex.Image, u, v)
		}
		r, g, b, a = float64(tr)/255, float64(tg)/255, float64(tb)/255, float64(ta)/255
	}

	lr, lg, lb := sh.color[0], sh.color[1], sh.color[2]
	var ar, ag, ab float64
	if sh.lights {
		p := world()
		var dyn [3][3]float64
		d.accumulateLights(p, &dyn)
		lr = clamp01(lr + dyn[lights.Normal][0] - dyn[lights.Subtractive][0])
		lg = clamp01(lg + dyn[lights.Normal][1] - dyn[lights.Subtractive][1])
		lb = clamp01(lb + dyn[lights.Normal][2] - dyn[lights.Subtractive][2])
		ar, ag, ab = dyn[lights.Additive][0], dyn[lights.Additive][1], dyn[lights.Additive][2]
	}
	r = clamp01(r*lr + ar)
	g = clamp01(g*lg + ag)
	b = clamp01(b*lb + ab)
	a *= sh.color[3]

	if d.alphaTest && a <= d.threshold {
		return 0, 0, 0, -1
	}

	if sh.fog {
		f := math.Exp(-sh.density * z)
		r = r*f + sh.fogColor[0]*(1-f)
		g = g*f + sh.fogColor[1]*(1-f)
		b = b*f + sh.fogColor[2]*(1-f)
	}
	return r, g, b, a
}

// accumulateLights sums the uploaded lights reaching p, per category,
// with a linear falloff to the light's radius.
func (d *Device) accumulateLights(p mathutil.Vec3, out *[3][3]float64) {
	data := d.lights
	if len(data) < lights.HeaderLen {
		return
	}
	off := lights.HeaderLen
	for cat := 0; cat < 3; cat++ {
		n := int(data[cat])
		for i := 0; i < n && off+lights.FloatsPerLight <= len(data); i++ {
			l := data[off : off+lights.FloatsPerLight]
			off += lights.FloatsPerLight
			// uploaded as x, z, y
			dist := mathutil.Vec3{l[0] - p[0], l[2] - p[1], l[1] - p[2]}.Len()
			if dist >= l[3] {
				continue
			}
			att := 1 - dist/l[3]
			out[cat][0] += l[4] * att
			out[cat][1] += l[5] * att
			out[cat][2] += l[6] * att
		}
	}
}

// blend combines a shaded fragment with the framebuffer pixel idx. The
// blend function applies to color; coverage always composites "over".
func (d *Device) blend(idx int, r, g, b, a float64) {
	px := d.fb.Color[idx*4 : idx*4+4]
	dr, dg, db, da := float64(px[0])/255, float64(px[1])/255, float64(px[2])/255, float64(px[3])/255
	src := [4]float64{r, g, b, a}
	dst := [4]float64{dr, dg, db, da}

	for i := 0; i < 3; i++ {
		s := src[i] * factor(d.src, src, dst, i)
		t := dst[i] * factor(d.dst, src, dst, i)
		var out float64
		switch d.equation {
		case gputypes.BlendOperationSubtract:
			out = s - t
		case gputypes.BlendOperationReverseSubtract:
			out = t - s
		case gputypes.BlendOperationMin:
			out = math.Min(src[i], dst[i])
		case gputypes.BlendOperationMax:
			out = math.Max(src[i], dst[i])
		default:
			out = s + t
		}
		px[i] = clamp255(out * 255)
	}
	px[3] = clamp255((a + da*(1-a)) * 255)
}

// factor returns blend factor f for channel i.
func factor(f gputypes.BlendFactor, src, dst [4]float64, i int) float64 {
	switch f {
	case gputypes.BlendFactorZero:
		return 0
	case gputypes.BlendFactorSrc:
		return src[i]
	case gputypes.BlendFactorOneMinusSrc:
		return 1 - src[i]
	case gputypes.BlendFactorSrcAlpha:
		return src[3]
	case gputypes.BlendFactorOneMinusSrcAlpha:
		return 1 - src[3]
	case gputypes.BlendFactorDst:
		return dst[i]
	case gputypes.BlendFactorOneMinusDst:
		return 1 - dst[i]
	case gputypes.BlendFactorDstAlpha:
		return dst[3]
	case gputypes.BlendFactorOneMinusDstAlpha:
		return 1 - dst[3]
	default:
		return 1
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clamp255(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
