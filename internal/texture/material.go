package texture

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// ID indexes a level's texture table. NoTexture marks an absent flat.
type ID int

const NoTexture ID = -1

// Def is a level's declaration of a flat texture.
type Def struct {
	Name       string `yaml:"name"`
	Fullbright bool   `yaml:"fullbright"`
	Canvas     bool   `yaml:"canvas"` // render-to-texture source, sampled upside down
}

// Material is a flat ready for binding. Width and Height are the logical
// texture size used for texture-coordinate scaling; Image may be resampled
// to power-of-two dimensions for the sampler.
type Material struct {
	ID         ID
	Name       string
	Width      int
	Height     int
	Image      *image.NRGBA
	Masked     bool // has fully transparent texels, drawn with alpha test
	Fullbright bool
	Canvas     bool
}

// Manager maps level texture IDs to materials. It is immutable after
// construction and safe to share between renderers.
type Manager struct {
	materials []*Material
}

// NewManager resolves every definition up front. Names the resolver cannot
// find get a checkerboard placeholder so the surface still draws.
func NewManager(res Resolver, defs []Def) *Manager {
	m := &Manager{materials: make([]*Material, len(defs))}
	for i, d := range defs {
		var img *image.NRGBA
		if res != nil {
			img = res.Resolve(d.Name)
		}
		if img == nil {
			img = placeholder()
		}
		b := img.Bounds()
		m.materials[i] = &Material{
			ID:         ID(i),
			Name:       d.Name,
			Width:      b.Dx(),
			Height:     b.Dy(),
			Image:      powerOfTwo(img),
			Masked:     hasHoles(img),
			Fullbright: d.Fullbright,
			Canvas:     d.Canvas,
		}
	}
	return m
}

// Material returns the material for id, or nil if id is out of range.
func (m *Manager) Material(id ID) *Material {
	if m == nil || id < 0 || int(id) >= len(m.materials) {
		return nil
	}
	return m.materials[id]
}

// Len returns the number of materials.
func (m *Manager) Len() int {
	return len(m.materials)
}

func hasHoles(img *image.NRGBA) bool {
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] == 0 {
			return true
		}
	}
	return false
}

func powerOfTwo(img *image.NRGBA) *image.NRGBA {
	b := img.Bounds()
	w, h := ceilPow2(b.Dx()), ceilPow2(b.Dy())
	if w == b.Dx() && h == b.Dy() {
		return img
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

func ceilPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func placeholder() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	dark := color.NRGBA{R: 48, G: 48, B: 48, A: 255}
	light := color.NRGBA{R: 160, G: 32, B: 160, A: 255}
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if (x/8+y/8)%2 == 0 {
				img.SetNRGBA(x, y, dark)
			} else {
				img.SetNRGBA(x, y, light)
			}
		}
	}
	return img
}
