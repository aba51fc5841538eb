package scene

// PlaneSource names where a flat's plane comes from: a sector's own floor
// or ceiling, or one face of a 3D-floor slab.
type PlaneSource interface {
	planeSource()
}

// OrdinaryPlane is a sector's own floor or ceiling.
type OrdinaryPlane struct {
	Sector int
	Which  Which
}

// SlabPlane is the top or bottom face of a slab in Sector's stack.
type SlabPlane struct {
	Sector int
	Slab   int
	Top    bool
}

func (OrdinaryPlane) planeSource() {}
func (SlabPlane) planeSource()     {}

// ResolvedPlane is the sector plane that supplies geometry and texture.
type ResolvedPlane struct {
	Model     int
	IsCeiling bool
	SectorPlane
}

// Ref returns the reference a slab face resolves through.
func (s *Slab) Ref(top bool) PlaneRef {
	if top {
		return s.Top
	}
	return s.Bottom
}

// ResolvePlane returns the plane named by src. ok is false for references
// outside the level.
func (l *Level) ResolvePlane(src PlaneSource) (rp ResolvedPlane, ok bool) {
	var ref PlaneRef
	switch s := src.(type) {
	case OrdinaryPlane:
		ref = PlaneRef{Model: s.Sector, IsCeiling: s.Which == Ceiling}
	case SlabPlane:
		if s.Sector < 0 || s.Sector >= len(l.Sectors) {
			return rp, false
		}
		slabs := l.Sectors[s.Sector].Slabs
		if s.Slab < 0 || s.Slab >= len(slabs) {
			return rp, false
		}
		ref = slabs[s.Slab].Ref(s.Top)
	default:
		return rp, false
	}
	if ref.Model < 0 || ref.Model >= len(l.Sectors) {
		return rp, false
	}
	w := Floor
	if ref.IsCeiling {
		w = Ceiling
	}
	return ResolvedPlane{
		Model:       ref.Model,
		IsCeiling:   ref.IsCeiling,
		SectorPlane: *l.Sectors[ref.Model].Plane(w),
	}, true
}

// SlabFace returns the model sector plane of a slab face.
func (l *Level) SlabFace(s *Slab, top bool) *SectorPlane {
	ref := s.Ref(top)
	w := Floor
	if ref.IsCeiling {
		w = Ceiling
	}
	return l.Sectors[ref.Model].Plane(w)
}
