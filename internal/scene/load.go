package scene

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"flatrender/internal/mathutil"
	"flatrender/internal/texture"
)

var (
	// ErrNoSectors is returned for maps without sectors.
	ErrNoSectors = errors.New("scene: map has no sectors")
	// ErrBadReference is returned when an index points outside the map or a
	// value is out of range.
	ErrBadReference = errors.New("scene: bad reference")
)

type mapFile struct {
	Name     string        `yaml:"name"`
	Sky      string        `yaml:"sky"`
	Textures []texture.Def `yaml:"textures"`
	Vertices [][2]float64  `yaml:"vertices"`
	Sectors  []sectorDef   `yaml:"sectors"`
	Lights   []lightDef    `yaml:"lights"`
	Fills    []fillDef     `yaml:"fills"`
	Shots    []shotDef     `yaml:"shots"`
}

type planeDef struct {
	Height      float64   `yaml:"height"`
	Slope       []float64 `yaml:"slope"` // a, b, c, d; overrides height
	Texture     string    `yaml:"texture"`
	XOffs       float64   `yaml:"xoffs"`
	YOffs       float64   `yaml:"yoffs"`
	XScale      float64   `yaml:"xscale"`
	YScale      float64   `yaml:"yscale"`
	Angle       float64   `yaml:"angle"`
	Light       int       `yaml:"light"`
	AbsLight    bool      `yaml:"abslight"`
	Portal      *int      `yaml:"portal"`
	PortalAlpha *float64  `yaml:"portal_alpha"`
	Reflect     float64   `yaml:"reflect"`
}

type slabDef struct {
	Model  int      `yaml:"model"`
	Flags  []string `yaml:"flags"`
	Alpha  *int     `yaml:"alpha"`
	Top    *refDef  `yaml:"top"`
	Bottom *refDef  `yaml:"bottom"`
}

type refDef struct {
	Sector  int  `yaml:"sector"`
	Ceiling bool `yaml:"ceiling"`
}

type sectorDef struct {
	Floor      planeDef  `yaml:"floor"`
	Ceiling    planeDef  `yaml:"ceiling"`
	Light      int       `yaml:"light"`
	Color      []uint8   `yaml:"color"`
	Fade       []uint8   `yaml:"fade"`
	Desaturate int       `yaml:"desaturate"`
	TransDoor  bool      `yaml:"transdoor"`
	Center     []float64 `yaml:"center"`
	SubSectors [][]int   `yaml:"subsectors"`
	Slabs      []slabDef `yaml:"slabs"`
}

type lightDef struct {
	Pos         [3]float64 `yaml:"pos"`
	Radius      float64    `yaml:"radius"`
	Color       []uint8    `yaml:"color"`
	Dormant     bool       `yaml:"dormant"`
	Subtractive bool       `yaml:"subtractive"`
	Additive    bool       `yaml:"additive"`
	SubSectors  []int      `yaml:"subsectors"`
	Foreign     []int      `yaml:"foreign"` // second light category
}

type fillDef struct {
	Sector    int  `yaml:"sector"`
	SubSector int  `yaml:"subsector"`
	Ceiling   bool `yaml:"ceiling"`
}

type shotDef struct {
	Name       string     `yaml:"name"`
	Pos        [3]float64 `yaml:"pos"`
	Angle      float64    `yaml:"angle"`
	Pitch      float64    `yaml:"pitch"`
	FOV        float64    `yaml:"fov"`
	ExtraLight int        `yaml:"extralight"`
}

var slabFlagNames = map[string]SlabFlags{
	"exists":       SlabExists,
	"renderplanes": SlabRenderPlanes,
	"thisinside":   SlabThisInside,
	"fog":          SlabFog,
	"invertplanes": SlabInvertPlanes,
	"bothplanes":   SlabBothPlanes,
	"fix":          SlabFix,
	"additive":     SlabAdditive,
	"solid":        SlabSolid,
}

// Load reads a YAML map file.
func Load(path string) (*Level, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scene: read %s: %w", path, err)
	}
	lvl, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("scene: %s: %w", path, err)
	}
	return lvl, nil
}

// Parse decodes a YAML map, validates its references, computes sector
// centers and light lists.
func Parse(data []byte) (*Level, error) {
	var mf mapFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if len(mf.Sectors) == 0 {
		return nil, ErrNoSectors
	}

	texIDs := make(map[string]texture.ID, len(mf.Textures))
	for i, d := range mf.Textures {
		texIDs[strings.ToLower(d.Name)] = texture.ID(i)
	}
	lookup := func(name string) (texture.ID, error) {
		if name == "" || name == "-" {
			return texture.NoTexture, nil
		}
		id, ok := texIDs[strings.ToLower(name)]
		if !ok {
			return texture.NoTexture, fmt.Errorf("%w: texture %q", ErrBadReference, name)
		}
		return id, nil
	}

	lvl := &Level{
		Name:     mf.Name,
		Vertices: mf.Vertices,
		Textures: mf.Textures,
		SkyFlat:  texture.NoTexture,
	}
	if mf.Sky != "" {
		id, err := lookup(mf.Sky)
		if err != nil {
			return nil, err
		}
		lvl.SkyFlat = id
	}

	nsec := len(mf.Sectors)
	for i, sd := range mf.Sectors {
		sec := Sector{
			Index:      i,
			LightLevel: sd.Light,
			TransDoor:  sd.TransDoor,
			ColorMap: ColorMap{
				LightColor: rgb(sd.Color, DefaultColorMap.LightColor),
				Fade:       rgb(sd.Fade, DefaultColorMap.Fade),
				Desaturate: sd.Desaturate,
			},
		}
		var err error
		if sec.Floor, err = buildPlane(sd.Floor, false, lookup); err != nil {
			return nil, fmt.Errorf("sector %d floor: %w", i, err)
		}
		if sec.Ceiling, err = buildPlane(sd.Ceiling, true, lookup); err != nil {
			return nil, fmt.Errorf("sector %d ceiling: %w", i, err)
		}

		var cx, cy float64
		n := 0
		for _, loop := range sd.SubSectors {
			if len(loop) < 3 {
				return nil, fmt.Errorf("%w: sector %d sub-sector with %d vertices", ErrBadReference, i, len(loop))
			}
			for _, vi := range loop {
				if vi < 0 || vi >= len(lvl.Vertices) {
					return nil, fmt.Errorf("%w: sector %d vertex %d", ErrBadReference, i, vi)
				}
				cx += lvl.Vertices[vi][0]
				cy += lvl.Vertices[vi][1]
				n++
			}
			sec.SubSectors = append(sec.SubSectors, len(lvl.SubSectors))
			lvl.SubSectors = append(lvl.SubSectors, SubSector{Sector: i, Verts: loop})
		}
		switch {
		case len(sd.Center) == 2:
			sec.Center = [2]float64{sd.Center[0], sd.Center[1]}
		case n > 0:
			sec.Center = [2]float64{cx / float64(n), cy / float64(n)}
		}

		for k, sl := range sd.Slabs {
			slab, err := buildSlab(sl, nsec)
			if err != nil {
				return nil, fmt.Errorf("sector %d slab %d: %w", i, k, err)
			}
			sec.Slabs = append(sec.Slabs, slab)
		}
		lvl.Sectors = append(lvl.Sectors, sec)
	}

	for i, ld := range mf.Lights {
		light := Light{
			X: ld.Pos[0], Y: ld.Pos[1], Z: ld.Pos[2],
			Radius:      ld.Radius,
			Color:       rgb(ld.Color, color.NRGBA{R: 255, G: 255, B: 255, A: 255}),
			Dormant:     ld.Dormant,
			Subtractive: ld.Subtractive,
			Additive:    ld.Additive,
		}
		lvl.Lights = append(lvl.Lights, light)
		for cat, list := range [2][]int{ld.SubSectors, ld.Foreign} {
			for _, ss := range list {
				if ss < 0 || ss >= len(lvl.SubSectors) {
					return nil, fmt.Errorf("%w: light %d sub-sector %d", ErrBadReference, i, ss)
				}
				lvl.SubSectors[ss].Lights[cat] = append(lvl.SubSectors[ss].Lights[cat], i)
			}
		}
	}

	for _, fd := range mf.Fills {
		if fd.Sector < 0 || fd.Sector >= nsec || fd.SubSector < 0 || fd.SubSector >= len(lvl.SubSectors) {
			return nil, fmt.Errorf("%w: fill %+v", ErrBadReference, fd)
		}
		lvl.Fills = append(lvl.Fills, Fill{Sector: fd.Sector, SubSector: fd.SubSector, Ceiling: fd.Ceiling})
	}

	for _, sd := range mf.Shots {
		fov := sd.FOV
		if fov <= 0 {
			fov = 90
		}
		lvl.Shots = append(lvl.Shots, Shot{
			Name: sd.Name,
			View: View{
				X: sd.Pos[0], Y: sd.Pos[1], Z: sd.Pos[2],
				Angle: sd.Angle, Pitch: sd.Pitch, FOV: fov,
				ExtraLight: sd.ExtraLight,
			},
		})
	}

	lvl.RebuildLightLists()
	return lvl, nil
}

func buildPlane(pd planeDef, ceiling bool, lookup func(string) (texture.ID, error)) (SectorPlane, error) {
	id, err := lookup(pd.Texture)
	if err != nil {
		return SectorPlane{}, err
	}
	sp := SectorPlane{
		Plane: mathutil.Flat(pd.Height, ceiling),
		PlaneTexture: PlaneTexture{
			Texture: id,
			XOffs:   pd.XOffs,
			YOffs:   pd.YOffs,
			XScale:  orOne(pd.XScale),
			YScale:  orOne(pd.YScale),
			Angle:   pd.Angle,
		},
		Light:       pd.Light,
		AbsLight:    pd.AbsLight,
		Portal:      -1,
		PortalAlpha: 1,
		Reflect:     pd.Reflect,
		VBOIndex:    -1,
	}
	if len(pd.Slope) == 4 {
		if pd.Slope[2] == 0 {
			return SectorPlane{}, fmt.Errorf("%w: vertical plane", ErrBadReference)
		}
		sp.Plane = mathutil.Plane{A: pd.Slope[0], B: pd.Slope[1], C: pd.Slope[2], D: pd.Slope[3]}
	}
	if pd.Portal != nil {
		sp.Portal = *pd.Portal
	}
	if pd.PortalAlpha != nil {
		sp.PortalAlpha = *pd.PortalAlpha
	}
	return sp, nil
}

func buildSlab(sd slabDef, nsec int) (Slab, error) {
	if sd.Model < 0 || sd.Model >= nsec {
		return Slab{}, fmt.Errorf("%w: model sector %d", ErrBadReference, sd.Model)
	}
	slab := Slab{
		Model:  sd.Model,
		Alpha:  255,
		Top:    PlaneRef{Model: sd.Model, IsCeiling: true},
		Bottom: PlaneRef{Model: sd.Model, IsCeiling: false},
	}
	if sd.Alpha != nil {
		if *sd.Alpha < 0 || *sd.Alpha > 255 {
			return Slab{}, fmt.Errorf("%w: slab alpha %d", ErrBadReference, *sd.Alpha)
		}
		slab.Alpha = *sd.Alpha
	}
	for _, name := range sd.Flags {
		f, ok := slabFlagNames[strings.ToLower(name)]
		if !ok {
			return Slab{}, fmt.Errorf("%w: slab flag %q", ErrBadReference, name)
		}
		slab.Flags |= f
	}
	for _, r := range []struct {
		def *refDef
		dst *PlaneRef
	}{{sd.Top, &slab.Top}, {sd.Bottom, &slab.Bottom}} {
		if r.def == nil {
			continue
		}
		if r.def.Sector < 0 || r.def.Sector >= nsec {
			return Slab{}, fmt.Errorf("%w: plane sector %d", ErrBadReference, r.def.Sector)
		}
		*r.dst = PlaneRef{Model: r.def.Sector, IsCeiling: r.def.Ceiling}
	}
	return slab, nil
}

func rgb(c []uint8, def color.NRGBA) color.NRGBA {
	if len(c) < 3 {
		return def
	}
	return color.NRGBA{R: c[0], G: c[1], B: c[2], A: 255}
}

func orOne(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}
