package scene

import (
	"flatrender/internal/device"
	"flatrender/internal/mathutil"
)

// BuildVertexBuffer lays out every sector's floor, ceiling and 3D-floor
// faces as consecutive sub-sector fans and records each start index.
// Texture coordinates are map units / 64 with y flipped.
func (l *Level) BuildVertexBuffer() []device.Vertex {
	var verts []device.Vertex
	emit := func(s *Sector, p mathutil.Plane) int {
		start := len(verts)
		for _, ssi := range s.SubSectors {
			for _, vi := range l.SubSectors[ssi].Verts {
				x, y := l.Vertex(vi)
				verts = append(verts, device.Vertex{
					X: x, Y: y, Z: p.ZAt(x, y),
					U: x / 64, V: -y / 64,
				})
			}
		}
		return start
	}

	for si := range l.Sectors {
		s := &l.Sectors[si]
		for _, w := range []Which{Floor, Ceiling} {
			p := s.Plane(w)
			p.VBOIndex = emit(s, p.Plane)
			p.vbo = vboMark{built: true, plane: p.Plane}
		}
		for k := range s.Slabs {
			slab := &s.Slabs[k]
			for _, ref := range []*PlaneRef{&slab.Top, &slab.Bottom} {
				if ref.Model < 0 || ref.Model >= len(l.Sectors) {
					continue
				}
				p := l.SlabFace(slab, ref == &slab.Top).Plane
				ref.VIndex = emit(s, p)
				ref.vbo = vboMark{built: true, plane: p}
			}
		}
	}
	return verts
}

// SlabVBOIndex returns the vertex range of a slab face, or -1 when the
// face was never laid out or its plane has moved since.
func (l *Level) SlabVBOIndex(slab *Slab, top bool) int {
	ref := slab.Ref(top)
	if !ref.vbo.matches(l.SlabFace(slab, top).Plane) {
		return -1
	}
	return ref.VIndex
}
