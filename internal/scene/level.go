// Package scene holds the map data the flat pipeline consumes: sectors with
// their plane equations, sub-sector polygons, per-sub-sector light lists,
// 3D-floor slab stacks and portal links.
package scene

import (
	"image/color"

	"flatrender/internal/mathutil"
	"flatrender/internal/texture"
)

// Which selects a sector's floor or ceiling.
type Which int

const (
	Floor Which = iota
	Ceiling
)

// PlaneTexture positions a flat on its plane.
type PlaneTexture struct {
	Texture texture.ID
	XOffs   float64
	YOffs   float64
	XScale  float64
	YScale  float64
	Angle   float64 // degrees
}

// SectorPlane is a sector's floor or ceiling.
type SectorPlane struct {
	Plane mathutil.Plane
	PlaneTexture

	Light       int // added to the sector light unless AbsLight
	AbsLight    bool
	Portal      int // stacked-sector portal id, -1 for none
	PortalAlpha float64
	Reflect     float64

	VBOIndex int // first vertex in the static flat buffer
	vbo      vboMark
}

// vboMark remembers the plane a static vertex range was built against.
type vboMark struct {
	built bool
	plane mathutil.Plane
}

func (m vboMark) matches(p mathutil.Plane) bool { return m.built && m.plane == p }

// VBOHeightCheck reports whether the static vertex data still matches the
// plane, i.e. the plane has not moved since the buffer was built.
func (p *SectorPlane) VBOHeightCheck() bool {
	return p.vbo.matches(p.Plane)
}

// ColorMap is a sector's light tint and fog fade.
type ColorMap struct {
	LightColor color.NRGBA
	Fade       color.NRGBA
	Desaturate int
}

// DefaultColorMap is white light without fog.
var DefaultColorMap = ColorMap{
	LightColor: color.NRGBA{R: 255, G: 255, B: 255, A: 255},
	Fade:       color.NRGBA{A: 255},
}

// Clear resets cm to the default colormap.
func (cm *ColorMap) Clear() { *cm = DefaultColorMap }

// CopyLightColor takes the light color and desaturation of src, keeping the fade.
func (cm *ColorMap) CopyLightColor(src ColorMap) {
	cm.LightColor = src.LightColor
	cm.Desaturate = src.Desaturate
}

// LightListEntry is one band of a sector split by 3D floors. The band runs
// from Plane down to the next entry's plane.
type LightListEntry struct {
	Plane      mathutil.Plane
	LightLevel int
	Source     int // sector whose light level this band uses
	ColorMap   ColorMap
}

// SlabFlags describe a 3D floor.
type SlabFlags uint32

const (
	SlabExists SlabFlags = 1 << iota
	SlabRenderPlanes
	SlabThisInside
	SlabFog
	SlabInvertPlanes
	SlabBothPlanes
	SlabFix
	SlabAdditive
	SlabSolid
)

// Has reports whether all bits of f are set.
func (s SlabFlags) Has(f SlabFlags) bool { return s&f == f }

// PlaneRef points at the floor or ceiling of a control sector.
type PlaneRef struct {
	Model     int
	IsCeiling bool

	VIndex int // host sector's vertex range for this face
	vbo    vboMark
}

// Slab is a 3D floor inside a sector.
type Slab struct {
	Flags  SlabFlags
	Top    PlaneRef
	Bottom PlaneRef
	Alpha  int // 0..255
	Model  int // control sector supplying light and colormap
}

// Sector is a map sector.
type Sector struct {
	Index      int
	Floor      SectorPlane
	Ceiling    SectorPlane
	LightLevel int
	ColorMap   ColorMap
	SubSectors []int
	TransDoor  bool
	Center     [2]float64

	// Slabs are ordered top to bottom and must not overlap.
	Slabs     []Slab
	LightList []LightListEntry
}

// Plane returns the floor or ceiling.
func (s *Sector) Plane(w Which) *SectorPlane {
	if w == Ceiling {
		return &s.Ceiling
	}
	return &s.Floor
}

// PlaneLight returns the light level of a plane, relative to the sector
// light unless the plane's light is absolute.
func (s *Sector) PlaneLight(w Which) int {
	p := s.Plane(w)
	if p.AbsLight {
		return p.Light
	}
	return s.LightLevel + p.Light
}

// CenterFloor returns the floor height at the sector center.
func (s *Sector) CenterFloor() float64 { return s.Floor.Plane.ZAt(s.Center[0], s.Center[1]) }

// CenterCeiling returns the ceiling height at the sector center.
func (s *Sector) CenterCeiling() float64 { return s.Ceiling.Plane.ZAt(s.Center[0], s.Center[1]) }

// SubSector is a convex polygon of a sector, the atomic unit of flat
// rasterization. Lights holds indices into Level.Lights per category.
type SubSector struct {
	Sector int
	Verts  []int
	Lights [2][]int
}

// Light is a dynamic light.
type Light struct {
	X, Y, Z     float64
	Radius      float64
	Color       color.NRGBA
	Dormant     bool
	Subtractive bool
	Additive    bool
}

// Fill assigns a sub-sector to another sector's floor or ceiling, used
// where missing textures would leave holes.
type Fill struct {
	Sector    int
	SubSector int
	Ceiling   bool
}

// View is the viewpoint of a frame.
type View struct {
	X, Y, Z    float64
	Angle      float64 // degrees, 0 = east, counter-clockwise
	Pitch      float64 // degrees, positive looks up
	FOV        float64 // horizontal, degrees
	ExtraLight int
}

// Shot is a named viewpoint rendered by the batch tools.
type Shot struct {
	Name string
	View View
}

// Level is a complete map.
type Level struct {
	Name       string
	Vertices   [][2]float64
	Sectors    []Sector
	SubSectors []SubSector
	Lights     []Light
	Textures   []texture.Def
	SkyFlat    texture.ID
	Fills      []Fill
	Shots      []Shot
}

// Vertex returns the position of vertex i.
func (l *Level) Vertex(i int) (x, y float64) {
	v := l.Vertices[i]
	return v[0], v[1]
}
