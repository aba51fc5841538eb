package scene

import "flatrender/internal/mathutil"

// GetPlaneLight returns the index of the light-list band that lights a
// plane, or -1 if the sector has no light list. underside lowers the probe
// height by one unit so a plane coinciding with a band boundary is lit
// from below.
func (l *Level) GetPlaneLight(sector int, p mathutil.Plane, underside bool) int {
	s := &l.Sectors[sector]
	list := s.LightList
	if len(list) == 0 {
		return -1
	}
	cx, cy := s.Center[0], s.Center[1]
	h := p.ZAt(cx, cy)
	if underside {
		h--
	}
	for i := 1; i < len(list); i++ {
		if list[i].Plane.ZAt(cx, cy) <= h {
			return i - 1
		}
	}
	return len(list) - 1
}

// RebuildLightLists derives every sector's light bands from its slabs.
// Sectors without slabs get no light list.
func (l *Level) RebuildLightLists() {
	for i := range l.Sectors {
		l.rebuildLightList(i)
	}
}

func (l *Level) rebuildLightList(i int) {
	s := &l.Sectors[i]
	s.LightList = s.LightList[:0]
	if len(s.Slabs) == 0 {
		s.LightList = nil
		return
	}
	outside := LightListEntry{
		Plane:      s.Ceiling.Plane,
		LightLevel: s.LightLevel,
		Source:     i,
		ColorMap:   s.ColorMap,
	}
	s.LightList = append(s.LightList, outside)
	for k := range s.Slabs {
		slab := &s.Slabs[k]
		if !slab.Flags.Has(SlabExists) || slab.Model < 0 || slab.Model >= len(l.Sectors) {
			continue
		}
		model := &l.Sectors[slab.Model]
		s.LightList = append(s.LightList, LightListEntry{
			Plane:      l.SlabFace(slab, true).Plane,
			LightLevel: model.LightLevel,
			Source:     slab.Model,
			ColorMap:   model.ColorMap,
		})
		if slab.Flags.Has(SlabFog) {
			continue
		}
		below := outside
		below.Plane = l.SlabFace(slab, false).Plane
		s.LightList = append(s.LightList, below)
	}
}
