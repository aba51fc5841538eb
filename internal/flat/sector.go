package flat

import (
	"flatrender/internal/scene"
)

// ProcessSector emits the flats of one sector for the current view: its
// floor, its ceiling and the visible faces of its 3D floors. It runs once
// per sector per frame; sub-sectors are picked up later through the
// render flags.
func (r *Renderer) ProcessSector(secIdx int) {
	lvl := r.level
	sec := &lvl.Sectors[secIdx]
	v := r.view
	hasSlabs := len(sec.Slabs) > 0

	f := &r.work
	*f = Flat{Sector: secIdx, Sub: -1, VBOIndex: -1}

	// floor
	if sec.Floor.Plane.ZAt(v.X, v.Y) <= v.Z {
		r.info.sectorRenderFlags[secIdx] |= RenderFloor

		f.LightLevel = clampLight(sec.PlaneLight(scene.Floor))
		f.ColorMap = sec.ColorMap
		f.Stack = sec.Floor.Portal >= 0
		if f.Stack {
			r.portals.AddFloorStack(secIdx)
			f.Alpha = alphaOf(sec.Floor.PortalAlpha)
		} else {
			f.Alpha = alphaOf(1 - sec.Floor.Reflect)
		}
		f.VBOIndex = r.planeVBO(&sec.Floor)
		f.Ceiling = false
		f.RenderFlags = RenderFloor

		if hasSlabs {
			if li := lvl.GetPlaneLight(secIdx, sec.Floor.Plane, false); li >= 0 {
				light := &sec.LightList[li]
				if (!sec.Floor.AbsLight || li != 0) && light.Source != secIdx {
					f.LightLevel = light.LightLevel
				}
				f.ColorMap.CopyLightColor(light.ColorMap)
			}
		}
		f.Style = StyleNormal
		if f.Alpha != 0 {
			r.Process(f, scene.OrdinaryPlane{Sector: secIdx, Which: scene.Floor}, false)
		}
	}

	// ceiling
	if sec.Ceiling.Plane.ZAt(v.X, v.Y) >= v.Z {
		r.info.sectorRenderFlags[secIdx] |= RenderCeiling

		f.LightLevel = clampLight(sec.PlaneLight(scene.Ceiling))
		f.ColorMap = sec.ColorMap
		f.Stack = sec.Ceiling.Portal >= 0
		if f.Stack {
			r.portals.AddCeilingStack(secIdx)
			f.Alpha = alphaOf(sec.Ceiling.PortalAlpha)
		} else {
			f.Alpha = alphaOf(1 - sec.Ceiling.Reflect)
		}
		f.VBOIndex = r.planeVBO(&sec.Ceiling)
		f.Ceiling = true
		f.RenderFlags = RenderCeiling

		if hasSlabs {
			if li := lvl.GetPlaneLight(secIdx, sec.Ceiling.Plane, true); li >= 0 {
				light := &sec.LightList[li]
				if !sec.Ceiling.AbsLight && light.Source != secIdx {
					f.LightLevel = light.LightLevel
				}
				f.ColorMap.CopyLightColor(light.ColorMap)
			}
		}
		f.Style = StyleNormal
		if f.Alpha != 0 {
			r.Process(f, scene.OrdinaryPlane{Sector: secIdx, Which: scene.Ceiling}, false)
		}
	}

	f.Stack = false
	if !hasSlabs {
		return
	}
	f.RenderFlags = Render3DPlanes
	r.info.sectorRenderFlags[secIdx] |= Render3DPlanes
	r.process3DFloors(f, sec)
}

// process3DFloors sweeps the slab stack twice. Slabs must not overlap.
// Top down, faces seen from below are emitted while they lie under the
// ceiling watermark; bottom up, faces seen from above while they lie over
// the floor watermark. Translucent slabs shift the watermark by one unit
// so the face of an adjacent slab at the same height still draws.
func (r *Renderer) process3DFloors(f *Flat, sec *scene.Sector) {
	lvl := r.level
	v := r.view
	cx, cy := sec.Center[0], sec.Center[1]
	lastCeiling := sec.CenterCeiling()
	lastFloor := sec.CenterFloor()

	f.Ceiling = true
	for k := range sec.Slabs {
		slab := &sec.Slabs[k]
		if !r.slabRenders(slab) {
			continue
		}
		fog := slab.Flags.Has(scene.SlabFog)
		if slab.Flags&(scene.SlabInvertPlanes|scene.SlabBothPlanes) != 0 {
			top := lvl.SlabFace(slab, true).Plane
			if h := top.ZAt(cx, cy); h < lastCeiling {
				if v.Z <= top.ZAt(v.X, v.Y) {
					r.processSlabFace(f, sec, k, true, fog, fog)
				}
				lastCeiling = h
			}
		}
		if !slab.Flags.Has(scene.SlabInvertPlanes) {
			bottom := lvl.SlabFace(slab, false).Plane
			if h := bottom.ZAt(cx, cy); h < lastCeiling {
				if v.Z <= bottom.ZAt(v.X, v.Y) {
					r.processSlabFace(f, sec, k, false, !fog, fog)
				}
				lastCeiling = h
				if slab.Alpha < 255 {
					lastCeiling++
				}
			}
		}
	}

	f.Ceiling = false
	for k := len(sec.Slabs) - 1; k >= 0; k-- {
		slab := &sec.Slabs[k]
		if !r.slabRenders(slab) {
			continue
		}
		fog := slab.Flags.Has(scene.SlabFog)
		fix := slab.Flags.Has(scene.SlabFix)
		if slab.Flags&(scene.SlabInvertPlanes|scene.SlabBothPlanes) != 0 {
			bottom := lvl.SlabFace(slab, false).Plane
			if h := bottom.ZAt(cx, cy); h > lastFloor || fix {
				if v.Z >= bottom.ZAt(v.X, v.Y) {
					r.prepareSlabFace(f, sec, slab, false, !fog)
					if fix {
						model := &lvl.Sectors[slab.Model]
						f.LightLevel = clampLight(model.LightLevel)
						f.ColorMap = model.ColorMap
					}
					r.emitSlabFace(f, k, false, fog)
				}
				lastFloor = h
			}
		}
		if !slab.Flags.Has(scene.SlabInvertPlanes) {
			top := lvl.SlabFace(slab, true).Plane
			if h := top.ZAt(cx, cy); h > lastFloor {
				if v.Z >= top.ZAt(v.X, v.Y) {
					r.processSlabFace(f, sec, k, true, fog, fog)
				}
				lastFloor = h
				if slab.Alpha < 255 {
					lastFloor--
				}
			}
		}
	}
}

// slabRenders reports whether a slab contributes faces at all. Fog slabs
// are skipped under a fixed colormap, before any fix-light handling.
func (r *Renderer) slabRenders(slab *scene.Slab) bool {
	const want = scene.SlabExists | scene.SlabRenderPlanes
	if slab.Flags&(want|scene.SlabThisInside) != want {
		return false
	}
	if slab.Model < 0 || slab.Model >= len(r.level.Sectors) {
		return false
	}
	return !(slab.Flags.Has(scene.SlabFog) && r.opts.FixedColormap)
}

func (r *Renderer) processSlabFace(f *Flat, sec *scene.Sector, k int, top, underside, fog bool) {
	r.prepareSlabFace(f, sec, &sec.Slabs[k], top, underside)
	r.emitSlabFace(f, k, top, fog)
}

func (r *Renderer) prepareSlabFace(f *Flat, sec *scene.Sector, slab *scene.Slab, top, underside bool) {
	f.ColorMap = sec.ColorMap
	r.setFrom3DFloor(f, slab, top, underside)
	f.ColorMap.Fade = sec.ColorMap.Fade
}

// emitSlabFace processes a prepared face. Fully transparent faces are
// culled here, after the sweep has already accounted for their height.
func (r *Renderer) emitSlabFace(f *Flat, k int, top, fog bool) {
	if f.Alpha == 0 {
		return
	}
	r.Process(f, scene.SlabPlane{Sector: f.Sector, Slab: k, Top: top}, fog)
}

func (r *Renderer) planeVBO(p *scene.SectorPlane) int {
	if r.vbo && p.VBOHeightCheck() {
		return p.VBOIndex
	}
	return -1
}
