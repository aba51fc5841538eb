package flat

import (
	"image/color"

	"github.com/gogpu/gputypes"

	"flatrender/internal/device"
	"flatrender/internal/renderstate"
	"flatrender/internal/scene"
)

// Fog densities for the exponential fog term exp(-density * distance).
const (
	distFogScale      = 1.0 / 512
	coloredFogDensity = 1.0 / 1024
)

// Draw renders f in the given pass.
func (r *Renderer) Draw(f *Flat, pass Pass) {
	rel := r.extraLight()
	st := r.state

	switch pass {
	case PassPlain, PassAll:
		r.setColor(f.LightLevel, rel, f.ColorMap, 1)
		r.setFog(f.LightLevel, rel, f.ColorMap, false)
		st.BindTexture(f.Texture)
		pushed := r.setPlaneTextureRotation(f)
		r.drawSubsectors(f, pass, false)
		if pushed {
			r.popTexMatrix()
		}

	case PassTranslucent:
		additive := f.Style == StyleAdditive
		if additive {
			st.BlendFunc(gputypes.BlendFactorSrcAlpha, gputypes.BlendFactorOne)
		}
		r.setColor(f.LightLevel, rel, f.ColorMap, f.Alpha)
		r.setFog(f.LightLevel, rel, f.ColorMap, additive)
		if f.Texture == nil {
			st.EnableTexture(false)
			r.drawSubsectors(f, pass, true)
			st.EnableTexture(true)
		} else {
			st.BindTexture(f.Texture)
			pushed := r.setPlaneTextureRotation(f)
			r.drawSubsectors(f, pass, true)
			st.EnableBrightmap(true)
			if pushed {
				r.popTexMatrix()
			}
		}
		if additive {
			st.BlendFunc(gputypes.BlendFactorSrcAlpha, gputypes.BlendFactorOneMinusSrcAlpha)
		}
	}
}

// drawSubsectors emits the geometry of f. A single sub-sector flat draws
// just that polygon. A sector flat draws every sub-sector flagged for its
// render flags, or all of them when translucent, from the static vertex
// buffer when it has a valid range. Sub-sectors borrowed through missing
// texture fills follow, except for 3D-floor faces.
func (r *Renderer) drawSubsectors(f *Flat, pass Pass, trans bool) {
	ok := r.state.Apply()
	lvl := r.level

	if f.Sub >= 0 {
		if pass == PassAll {
			ok = r.setupSubsectorLights(f, f.Sub)
		}
		r.drawSubsector(ok, f, f.Sub)
		return
	}

	sec := &lvl.Sectors[f.Sector]
	if f.VBOIndex >= 0 {
		index := f.VBOIndex
		for _, ss := range sec.SubSectors {
			n := len(lvl.SubSectors[ss].Verts)
			if r.info.ssRenderFlags[ss]&f.RenderFlags != 0 || trans {
				if pass == PassAll {
					ok = r.setupSubsectorLights(f, ss)
				}
				r.drawRange(ok, index, n)
			}
			index += n
		}
	} else {
		for _, ss := range sec.SubSectors {
			if r.info.ssRenderFlags[ss]&f.RenderFlags != 0 || trans {
				if pass == PassAll {
					ok = r.setupSubsectorLights(f, ss)
				}
				r.drawSubsector(ok, f, ss)
			}
		}
	}

	if f.RenderFlags&Render3DPlanes == 0 {
		others := r.info.OtherCeilingPlanes(f.Sector)
		if f.RenderFlags&RenderFloor != 0 {
			others = r.info.OtherFloorPlanes(f.Sector)
		}
		for _, ss := range others {
			if pass == PassAll {
				ok = r.setupSubsectorLights(f, ss)
			}
			r.drawSubsector(ok, f, ss)
		}
	}
}

// drawSubsector emits one sub-sector as a triangle fan. Texture
// coordinates are map units / 64 with y flipped.
func (r *Renderer) drawSubsector(_ renderstate.Applied, f *Flat, ss int) {
	lvl := r.level
	verts := lvl.SubSectors[ss].Verts
	fan := r.fan[:0]
	for _, vi := range verts {
		x, y := lvl.Vertex(vi)
		fan = append(fan, device.Vertex{
			X: x, Y: y,
			Z: f.Plane.Plane.ZAt(x, y) + f.DZ,
			U: x / 64, V: -y / 64,
		})
	}
	r.fan = fan
	r.state.Device().DrawFan(fan)

	r.stats.FlatVertices += len(verts)
	r.stats.FlatPrimitives++
}

func (r *Renderer) drawRange(_ renderstate.Applied, first, count int) {
	r.state.Device().DrawRange(first, count)
	r.stats.FlatVertices += count
	r.stats.FlatPrimitives++
}

func (r *Renderer) setupSubsectorLights(f *Flat, ss int) renderstate.Applied {
	return r.lights.Setup(r.state, r.level, ss, f.Plane.Plane, f.Ceiling)
}

// extraLight is the viewer's light bias, e.g. from a weapon flash.
func (r *Renderer) extraLight() int {
	if !r.opts.WeaponLight {
		return 0
	}
	return r.view.ExtraLight * 8
}

// setColor sets the vertex color for a light level and colormap. Under a
// fixed colormap everything is drawn at full brightness.
func (r *Renderer) setColor(light, rel int, cm scene.ColorMap, alpha float64) {
	if r.opts.FixedColormap {
		r.state.SetColor(1, 1, 1, alpha, 0)
		return
	}
	b := float64(clampLight(light+rel)) / MaxLight
	lc := cm.LightColor
	r.state.SetColor(
		float64(lc.R)/255*b,
		float64(lc.G)/255*b,
		float64(lc.B)/255*b,
		alpha,
		float64(cm.Desaturate)/255,
	)
}

// setFog sets up fog for a light level and colormap. A black fade is
// distance fog that thickens as the light drops; a colored fade is a
// constant density fog. Additive flats always fade to black.
func (r *Renderer) setFog(light, rel int, cm scene.ColorMap, additive bool) {
	if r.opts.FixedColormap {
		r.state.EnableFog(false)
		r.state.SetFog(color.NRGBA{}, 0)
		return
	}
	fade := cm.Fade
	var density float64
	if fade.R == 0 && fade.G == 0 && fade.B == 0 {
		density = float64(MaxLight-clampLight(light+rel)) / MaxLight * distFogScale
	} else {
		density = coloredFogDensity
	}
	if additive {
		fade = color.NRGBA{A: 255}
	}
	r.state.EnableFog(density > 0)
	r.state.SetFog(fade, density)
}
