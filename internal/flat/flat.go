// Package flat turns visible sector floors, ceilings and 3D-floor faces
// into draw-list entries and rasterizes them through the render state
// cache.
//
// Per frame, RenderFrame runs the sector scheduler (ProcessSector) over
// the visible sectors. Each candidate plane goes through Process, which
// resolves texture and lighting, and PutFlat, which files the flat into
// exactly one of four draw lists. The lists are then flushed in order:
// plain, masked, translucent, translucent border.
package flat

import (
	"flatrender/internal/scene"
	"flatrender/internal/texture"
)

// List identifies a draw list.
type List int

const (
	ListPlain List = iota
	ListMasked
	ListTranslucent
	ListTranslucentBorder

	listCount
)

var listNames = [listCount]string{"plain", "masked", "translucent", "translucent-border"}

func (l List) String() string {
	if l < 0 || l >= listCount {
		return "unknown"
	}
	return listNames[l]
}

// Style is a flat's blending style.
type Style int

const (
	StyleNormal   Style = iota // alpha blended, opaque at alpha 1
	StyleAdditive              // added onto the framebuffer
)

// RenderFlags mark which kinds of flats a sector or sub-sector renders
// this frame.
type RenderFlags uint8

const (
	RenderFloor RenderFlags = 1 << iota
	RenderCeiling
	Render3DPlanes
)

// Pass selects how Draw renders a flat.
type Pass int

const (
	PassPlain       Pass = iota // opaque, no dynamic lights
	PassAll                     // opaque with per-sub-sector dynamic lights
	PassTranslucent             // blended
)

// MaxLight is the brightest light level.
const MaxLight = 255

// alphaEpsilon is the single-precision machine epsilon; alphas within it
// of 1 count as opaque.
const alphaEpsilon = 1.1920929e-7

// Flat is one floor, ceiling or 3D-floor face queued for drawing.
type Flat struct {
	Sector int // sector whose sub-sectors are rasterized
	Sub    int // single sub-sector to draw, or -1 for the whole sector

	Source  scene.PlaneSource
	Plane   scene.ResolvedPlane
	Ceiling bool // faces down

	LightLevel int
	ColorMap   scene.ColorMap
	Alpha      float64
	Style      Style
	Texture    *texture.Material // nil for fog boundaries
	Stack      bool              // stacked-sector portal plane

	DZ          float64 // height offset added to every vertex
	Z           float64 // plane height at the map origin
	VBOIndex    int     // static vertex range, -1 for immediate fans
	RenderFlags RenderFlags
}

func clampLight(l int) int {
	if l < 0 {
		return 0
	}
	if l > MaxLight {
		return MaxLight
	}
	return l
}
