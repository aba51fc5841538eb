package flat

import (
	"math"

	"flatrender/internal/scene"
)

// Process resolves the plane named by src into f and files f into a draw
// list. f.Sector is the sector whose area is drawn; src only supplies the
// plane data. Fog flats carry no texture. Sky planes and planes whose
// texture cannot be resolved are dropped.
func (r *Renderer) Process(f *Flat, src scene.PlaneSource, fog bool) {
	rp, ok := r.level.ResolvePlane(src)
	if !ok {
		return
	}
	f.Source = src
	f.Plane = rp

	if !fog {
		if rp.Texture == r.level.SkyFlat {
			return
		}
		m := r.textures.Material(rp.Texture)
		if m == nil {
			return
		}
		f.Texture = m
		if m.Fullbright {
			f.ColorMap.LightColor.R = 0xff
			f.ColorMap.LightColor.G = 0xff
			f.ColorMap.LightColor.B = 0xff
			f.LightLevel = MaxLight
		}
	} else {
		f.Texture = nil
		if f.LightLevel < 0 {
			f.LightLevel = -f.LightLevel
		}
	}

	// see-through doors sink their floor a unit to stay behind the door
	if !rp.IsCeiling && r.level.Sectors[f.Sector].TransDoor {
		f.DZ = -1
	} else {
		f.DZ = 0
	}
	f.Z = rp.Plane.ZAt(0, 0)

	r.PutFlat(f, fog)
	r.stats.RenderedFlats++
}

// PutFlat files f into exactly one draw list. Translucent 3D-floor faces
// go to the translucent list, translucent portal planes to the border
// list. Opaque flats are masked when their texture has holes and they are
// a 3D-floor face or a portal stack.
func (r *Renderer) PutFlat(f *Flat, fog bool) {
	if r.opts.FixedColormap {
		f.ColorMap.Clear()
	}

	list := ListPlain
	switch {
	case f.Style != StyleNormal || f.Alpha < 1-alphaEpsilon || fog:
		if f.RenderFlags&Render3DPlanes != 0 {
			list = ListTranslucent
		} else {
			list = ListTranslucentBorder
		}
	case f.Texture != nil:
		if f.Texture.Masked && (f.RenderFlags&Render3DPlanes != 0 || f.Stack) {
			list = ListMasked
		}
	}
	r.info.Lists[list].AddFlat(f)
}

// setFrom3DFloor takes light, colormap, alpha and style of one slab face.
// underside probes the light list just below the face.
func (r *Renderer) setFrom3DFloor(f *Flat, slab *scene.Slab, top, underside bool) {
	face := r.level.SlabFace(slab, top)
	sec := &r.level.Sectors[f.Sector]
	if li := r.level.GetPlaneLight(f.Sector, face.Plane, underside); li >= 0 {
		light := &sec.LightList[li]
		f.LightLevel = light.LightLevel
		if slab.Flags.Has(scene.SlabFog) {
			f.ColorMap.LightColor = light.ColorMap.Fade
		} else {
			f.ColorMap.CopyLightColor(light.ColorMap)
		}
	} else {
		f.LightLevel = sec.LightLevel
		f.ColorMap.CopyLightColor(sec.ColorMap)
	}

	f.Alpha = float64(slab.Alpha) / 255
	if slab.Flags.Has(scene.SlabAdditive) {
		f.Style = StyleAdditive
	} else {
		f.Style = StyleNormal
	}
	if r.vbo {
		f.VBOIndex = r.level.SlabVBOIndex(slab, top)
	} else {
		f.VBOIndex = -1
	}
}

// alphaOf converts a 0..1 reflectivity or portal alpha, snapping values
// within float32 precision of 0 to exactly 0 so they are culled.
func alphaOf(a float64) float64 {
	if math.Abs(a) < alphaEpsilon {
		return 0
	}
	return a
}
