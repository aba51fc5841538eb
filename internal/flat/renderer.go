package flat

import (
	"log/slog"

	"github.com/gogpu/gputypes"

	"flatrender/internal/device"
	"flatrender/internal/lights"
	"flatrender/internal/renderstate"
	"flatrender/internal/scene"
	"flatrender/internal/texture"
)

// FlatVertexArray is the vertex array id the static flat buffer is
// uploaded to.
const FlatVertexArray uint32 = 1

// Options control the flat pipeline.
type Options struct {
	DynamicLights     bool    // draw opaque flats with per-sub-sector lights
	LightsCheckSide   bool    // cull lights on the far side of a flat
	DirectStateChange bool    // blend changes bypass the state cache
	LightsSize        float64 // light radius multiplier
	FixedColormap     bool    // global colormap override, e.g. light amplification
	WeaponLight       bool    // apply the viewer's extra light
}

// Stats are the counters of one frame.
type Stats struct {
	RenderedFlats   int
	FlatVertices    int
	FlatPrimitives  int
	LightIterations int
	MatrixPushes    int
	MatrixPops      int
	Lists           [listCount]int
}

// Renderer draws the flats of one level. It is not safe for concurrent
// use; give each rendering goroutine its own Renderer and device.
type Renderer struct {
	level    *scene.Level
	textures *texture.Manager
	state    *renderstate.State
	lights   *lights.Accumulator
	info     *DrawInfo
	portals  PortalCollector
	opts     Options
	log      *slog.Logger

	view  scene.View
	vbo   bool
	work  Flat
	fan   []device.Vertex
	seen  []bool
	stats Stats
}

// NewRenderer returns a renderer for lvl drawing to dev.
func NewRenderer(lvl *scene.Level, textures *texture.Manager, dev device.Device, opts Options) *Renderer {
	log := Logger()
	info := NewDrawInfo()
	r := &Renderer{
		level:    lvl,
		textures: textures,
		state: renderstate.New(dev,
			renderstate.WithDirectStateChange(opts.DirectStateChange),
			renderstate.WithLogger(log)),
		lights: lights.New(lights.Options{
			CheckSide: opts.LightsCheckSide,
			Size:      opts.LightsSize,
		}, log),
		info:    info,
		portals: info,
		opts:    opts,
		log:     log,
	}
	log.Info("flat: renderer ready",
		"map", lvl.Name,
		"sectors", len(lvl.Sectors),
		"subsectors", len(lvl.SubSectors),
		"direct", opts.DirectStateChange)
	return r
}

// UseVertexBuffer uploads the static flat vertices built by
// scene.Level.BuildVertexBuffer and enables ranged draws for planes that
// have not moved since.
func (r *Renderer) UseVertexBuffer(verts []device.Vertex) {
	r.state.Device().UploadVertexArray(FlatVertexArray, verts)
	r.state.SetVertexArray(FlatVertexArray)
	r.vbo = true
}

// SetPortalCollector routes stacked-sector planes to pc instead of the
// frame's DrawInfo.
func (r *Renderer) SetPortalCollector(pc PortalCollector) {
	if pc == nil {
		pc = r.info
	}
	r.portals = pc
}

// SetView sets the viewpoint used by ProcessSector.
func (r *Renderer) SetView(v scene.View) { r.view = v }

// State returns the render state the renderer draws through.
func (r *Renderer) State() *renderstate.State { return r.state }

// DrawInfo returns the current frame's draw lists.
func (r *Renderer) DrawInfo() *DrawInfo { return r.info }

// StartFrame clears the draw lists and counters for a new frame.
func (r *Renderer) StartFrame() {
	r.info.StartFrame(len(r.level.Sectors), len(r.level.SubSectors))
	r.lights.ResetCount()
	r.stats = Stats{}
}

// RenderFrame draws every flat visible from v. visible lists the
// sub-sectors the traversal reached; nil means all of them.
func (r *Renderer) RenderFrame(v scene.View, visible []int) Stats {
	lvl := r.level
	r.SetView(v)
	r.StartFrame()

	if visible == nil {
		visible = make([]int, len(lvl.SubSectors))
		for i := range visible {
			visible[i] = i
		}
	}

	for _, fill := range lvl.Fills {
		if fill.Ceiling {
			r.info.AddOtherCeilingPlane(fill.Sector, fill.SubSector)
		} else {
			r.info.AddOtherFloorPlane(fill.Sector, fill.SubSector)
		}
	}

	if cap(r.seen) < len(lvl.Sectors) {
		r.seen = make([]bool, len(lvl.Sectors))
	}
	r.seen = r.seen[:len(lvl.Sectors)]
	clear(r.seen)
	for _, ss := range visible {
		if ss < 0 || ss >= len(lvl.SubSectors) {
			continue
		}
		sec := lvl.SubSectors[ss].Sector
		if !r.seen[sec] {
			r.seen[sec] = true
			r.ProcessSector(sec)
		}
		r.info.MarkSubsector(ss, r.info.SectorFlags(sec))
	}

	r.Flush()

	st := r.stats
	st.LightIterations = r.lights.Processed()
	for i := range r.info.Lists {
		st.Lists[i] = r.info.Lists[i].Len()
	}
	r.log.Debug("flat: frame done",
		"flats", st.RenderedFlats,
		"primitives", st.FlatPrimitives,
		"plain", st.Lists[ListPlain],
		"masked", st.Lists[ListMasked],
		"translucent", st.Lists[ListTranslucent],
		"border", st.Lists[ListTranslucentBorder])
	return st
}

// Flush draws the lists in order: plain, masked with a 0.5 alpha test,
// then translucent and translucent border blended.
func (r *Renderer) Flush() {
	st := r.state
	pass := PassPlain
	if r.opts.DynamicLights {
		pass = PassAll
	}

	st.EnableAlphaTest(false)
	for i := range r.info.Lists[ListPlain].flats {
		r.Draw(&r.info.Lists[ListPlain].flats[i], pass)
	}

	st.EnableAlphaTest(true)
	st.AlphaFunc(gputypes.CompareFunctionGreaterEqual, 0.5)
	for i := range r.info.Lists[ListMasked].flats {
		r.Draw(&r.info.Lists[ListMasked].flats[i], pass)
	}

	st.EnableAlphaTest(false)
	for _, l := range []List{ListTranslucent, ListTranslucentBorder} {
		flats := r.info.Lists[l].flats
		for i := range flats {
			r.Draw(&flats[i], PassTranslucent)
		}
	}
}
