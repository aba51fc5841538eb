package flat

// DrawList is an ordered bucket of flats. Entries are copies, so the
// scheduler can keep reusing its working Flat.
type DrawList struct {
	flats []Flat
}

// AddFlat appends a copy of f.
func (d *DrawList) AddFlat(f *Flat) {
	d.flats = append(d.flats, *f)
}

// Len returns the number of queued flats.
func (d *DrawList) Len() int { return len(d.flats) }

// Flats returns the queued flats. The slice is valid until the next frame.
func (d *DrawList) Flats() []Flat { return d.flats }

func (d *DrawList) reset() { d.flats = d.flats[:0] }

// PortalCollector receives sectors whose floor or ceiling is a stacked
// portal, for the portal renderer to process.
type PortalCollector interface {
	AddFloorStack(sector int)
	AddCeilingStack(sector int)
}

// DrawInfo holds one frame's draw lists and visibility flags.
type DrawInfo struct {
	Lists [listCount]DrawList

	ssRenderFlags     []RenderFlags
	sectorRenderFlags []RenderFlags
	otherFloor        map[int][]int
	otherCeiling      map[int][]int

	FloorStacks   []int
	CeilingStacks []int
}

// NewDrawInfo returns empty frame data.
func NewDrawInfo() *DrawInfo {
	return &DrawInfo{
		otherFloor:   make(map[int][]int),
		otherCeiling: make(map[int][]int),
	}
}

// StartFrame clears everything left from the previous frame.
func (di *DrawInfo) StartFrame(sectors, subsectors int) {
	for i := range di.Lists {
		di.Lists[i].reset()
	}
	di.ssRenderFlags = resize(di.ssRenderFlags, subsectors)
	di.sectorRenderFlags = resize(di.sectorRenderFlags, sectors)
	clear(di.otherFloor)
	clear(di.otherCeiling)
	di.FloorStacks = di.FloorStacks[:0]
	di.CeilingStacks = di.CeilingStacks[:0]
}

func resize(s []RenderFlags, n int) []RenderFlags {
	if cap(s) < n {
		return make([]RenderFlags, n)
	}
	s = s[:n]
	clear(s)
	return s
}

// List returns draw list l.
func (di *DrawInfo) List(l List) *DrawList { return &di.Lists[l] }

// Total returns the number of flats in all lists.
func (di *DrawInfo) Total() int {
	n := 0
	for i := range di.Lists {
		n += di.Lists[i].Len()
	}
	return n
}

// MarkSubsector ORs flags into a sub-sector's render flags.
func (di *DrawInfo) MarkSubsector(ss int, flags RenderFlags) {
	di.ssRenderFlags[ss] |= flags
}

// SubsectorFlags returns a sub-sector's render flags.
func (di *DrawInfo) SubsectorFlags(ss int) RenderFlags { return di.ssRenderFlags[ss] }

// SectorFlags returns a sector's render flags.
func (di *DrawInfo) SectorFlags(sec int) RenderFlags { return di.sectorRenderFlags[sec] }

// AddOtherFloorPlane draws sub-sector ss with sector's floor, filling a
// hole left by a missing texture.
func (di *DrawInfo) AddOtherFloorPlane(sector, ss int) {
	di.otherFloor[sector] = append(di.otherFloor[sector], ss)
}

// AddOtherCeilingPlane is AddOtherFloorPlane for ceilings.
func (di *DrawInfo) AddOtherCeilingPlane(sector, ss int) {
	di.otherCeiling[sector] = append(di.otherCeiling[sector], ss)
}

func (di *DrawInfo) OtherFloorPlanes(sector int) []int   { return di.otherFloor[sector] }
func (di *DrawInfo) OtherCeilingPlanes(sector int) []int { return di.otherCeiling[sector] }

func (di *DrawInfo) AddFloorStack(sector int)   { di.FloorStacks = append(di.FloorStacks, sector) }
func (di *DrawInfo) AddCeilingStack(sector int) { di.CeilingStacks = append(di.CeilingStacks, sector) }

var _ PortalCollector = (*DrawInfo)(nil)
