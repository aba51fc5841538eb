// Package lights collects the dynamic lights touching a flat's sub-sector
// and uploads them for the next draw.
package lights

import (
	"log/slog"
	"math"

	"flatrender/internal/mathutil"
	"flatrender/internal/renderstate"
	"flatrender/internal/scene"
)

// Light buffer categories.
const (
	Normal = iota
	Subtractive
	Additive

	categories
)

// Upload layout: HeaderLen floats holding the three category counts, then
// FloatsPerLight floats per light: x, z, y, radius, r, g, b, pad.
const (
	HeaderLen      = 4
	FloatsPerLight = 8
)

// Data is the per-surface light buffer.
type Data struct {
	Arrays [categories][]float64
}

// Clear empties every category, keeping capacity.
func (d *Data) Clear() {
	for i := range d.Arrays {
		d.Arrays[i] = d.Arrays[i][:0]
	}
}

// Count returns the number of lights in category i.
func (d *Data) Count(i int) int { return len(d.Arrays[i]) / FloatsPerLight }

// Total returns the number of lights in all categories.
func (d *Data) Total() int {
	n := 0
	for i := range d.Arrays {
		n += d.Count(i)
	}
	return n
}

// AppendUpload appends the upload layout to dst: a four-float header with
// the three category counts, then the categories in order.
func (d *Data) AppendUpload(dst []float64) []float64 {
	dst = append(dst, float64(d.Count(Normal)), float64(d.Count(Subtractive)), float64(d.Count(Additive)), 0)
	for i := range d.Arrays {
		dst = append(dst, d.Arrays[i]...)
	}
	return dst
}

// Options tune light culling.
type Options struct {
	CheckSide bool    // skip lights on the far side of the plane
	Size      float64 // radius multiplier, 0 means 1
}

// Accumulator gathers lights for one sub-sector at a time.
type Accumulator struct {
	opts      Options
	log       *slog.Logger
	data      Data
	upload    []float64
	processed int
}

// New returns an Accumulator. A nil logger discards output.
func New(opts Options, l *slog.Logger) *Accumulator {
	if opts.Size <= 0 {
		opts.Size = 1
	}
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	return &Accumulator{opts: opts, log: l}
}

// Processed returns how many non-dormant lights were visited since the
// last ResetCount. It is instrumentation only.
func (a *Accumulator) Processed() int { return a.processed }

// ResetCount zeroes the processed counter.
func (a *Accumulator) ResetCount() { a.processed = 0 }

// Data returns the buffer built by the last Setup.
func (a *Accumulator) Data() *Data { return &a.data }

// Setup builds the light buffer of sub-sector sub for a flat lying on
// plane, uploads it and applies st. ceiling is the direction the flat
// faces: a ceiling is not lit by lights above it, a floor not by lights
// below it.
func (a *Accumulator) Setup(st *renderstate.State, lvl *scene.Level, sub int, plane mathutil.Plane, ceiling bool) renderstate.Applied {
	a.data.Clear()
	ss := &lvl.SubSectors[sub]
	for cat := range ss.Lights {
		for _, li := range ss.Lights[cat] {
			light := &lvl.Lights[li]
			if light.Dormant {
				continue
			}
			a.processed++

			// The side check is done here because the plane orientation of
			// 3D-floor faces does not tell which way the flat faces.
			planeh := plane.ZAt(light.X, light.Y)
			if a.opts.CheckSide && ((planeh < light.Z && ceiling) || (planeh > light.Z && !ceiling)) {
				continue
			}
			a.add(plane, light)
		}
	}

	a.upload = a.data.AppendUpload(a.upload[:0])
	st.Device().UploadLights(a.upload)
	if a.data.Total() > 0 {
		st.SetDynLightIndex(0)
	} else {
		st.SetDynLightIndex(-1)
	}
	return st.Apply()
}

// add projects light onto plane and appends its contribution. Lights whose
// sphere does not reach the plane are dropped.
func (a *Accumulator) add(plane mathutil.Plane, light *scene.Light) bool {
	radius := light.Radius * a.opts.Size
	if radius <= 0 {
		return false
	}
	dist := math.Abs(plane.Distance(mathutil.Vec3{light.X, light.Y, light.Z}))
	if dist >= radius {
		return false
	}

	cat := Normal
	cs := 1.0
	if light.Additive {
		cs = 0.2
		cat = Additive
	}
	r := float64(light.Color.R) / 255 * cs
	g := float64(light.Color.G) / 255 * cs
	b := float64(light.Color.B) / 255 * cs
	if light.Subtractive {
		l := math.Sqrt(r*r + g*g + b*b)
		r, g, b = l-r, l-g, l-b
		cat = Subtractive
	}
	a.data.Arrays[cat] = append(a.data.Arrays[cat], light.X, light.Z, light.Y, radius, r, g, b, 0)
	return true
}
