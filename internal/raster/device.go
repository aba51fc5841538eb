// Package raster is a software implementation of device.Device. It
// rasterizes flat fans with perspective-correct texturing, a depth
// buffer, alpha testing, blending, fog and the uploaded dynamic lights.
package raster

import (
	"image"
	"log/slog"

	"github.com/gogpu/gputypes"

	"flatrender/internal/device"
	"flatrender/internal/mathutil"
	"flatrender/internal/renderstate"
	"flatrender/internal/scene"
	"flatrender/internal/texture"
)

// Device renders into a FrameBuffer. It is not safe for concurrent use.
type Device struct {
	fb  *FrameBuffer
	cam Camera
	log *slog.Logger

	texture   *texture.Material
	src, dst  gputypes.BlendFactor
	equation  gputypes.BlendOperation
	alphaTest bool
	threshold float64
	shader    int
	uniforms  device.Uniforms
	arrays    map[uint32][]device.Vertex
	vao       uint32
	lights    []float64
	texStack  []mathutil.Mat4

	poly    []clipVertex
	clipped []clipVertex
	screen  []screenVertex

	// Fans and Triangles count submitted fans and rasterized triangles;
	// Culled counts fans entirely behind the near plane.
	Fans      int
	Triangles int
	Culled    int
}

var _ device.Device = (*Device)(nil)

// New returns a device drawing a w×h image seen from v. A nil logger
// discards output.
func New(w, h int, v scene.View, l *slog.Logger) *Device {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	return &Device{
		fb:       NewFrameBuffer(w, h),
		cam:      NewCamera(v, w, h),
		log:      l,
		src:      gputypes.BlendFactorSrcAlpha,
		dst:      gputypes.BlendFactorOneMinusSrcAlpha,
		equation: gputypes.BlendOperationAdd,
		arrays:   make(map[uint32][]device.Vertex),
	}
}

// FrameBuffer returns the render target.
func (d *Device) FrameBuffer() *FrameBuffer { return d.fb }

// Image returns a snapshot of the rendered frame.
func (d *Device) Image() *image.NRGBA { return d.fb.Image() }

func (d *Device) BindTexture(m *texture.Material) { d.texture = m }

func (d *Device) SetBlendFunc(src, dst gputypes.BlendFactor) { d.src, d.dst = src, dst }

func (d *Device) SetBlendEquation(op gputypes.BlendOperation) { d.equation = op }

func (d *Device) SetAlphaTest(enabled bool, threshold float64) {
	d.alphaTest, d.threshold = enabled, threshold
}

func (d *Device) UseShader(index int) { d.shader = index }

func (d *Device) SetUniforms(u device.Uniforms) { d.uniforms = u }

func (d *Device) BindVertexArray(id uint32) { d.vao = id }

// UploadVertexArray stores a copy of verts under id.
func (d *Device) UploadVertexArray(id uint32, verts []device.Vertex) {
	d.arrays[id] = append([]device.Vertex(nil), verts...)
}

func (d *Device) UploadLights(data []float64) {
	d.lights = append(d.lights[:0], data...)
}

func (d *Device) PushTexMatrix(m mathutil.Mat4) { d.texStack = append(d.texStack, m) }

func (d *Device) PopTexMatrix() {
	if n := len(d.texStack); n > 0 {
		d.texStack = d.texStack[:n-1]
	}
}

// DrawRange draws count vertices of the bound vertex array as a fan.
// Ranges outside the array are ignored.
func (d *Device) DrawRange(first, count int) {
	verts := d.arrays[d.vao]
	if first < 0 || count < 3 || first+count > len(verts) {
		d.log.Debug("raster: draw range out of bounds", "vao", d.vao, "first", first, "count", count, "len", len(verts))
		return
	}
	d.DrawFan(verts[first : first+count])
}

// DrawFan transforms, clips, projects and rasterizes a convex fan.
func (d *Device) DrawFan(verts []device.Vertex) {
	if len(verts) < 3 {
		return
	}
	d.Fans++

	texMat, hasMat := mathutil.Mat4{}, false
	if n := len(d.texStack); n > 0 {
		texMat, hasMat = d.texStack[n-1], true
	}

	d.poly = d.poly[:0]
	for _, v := range verts {
		world := mathutil.Vec3{v.X, v.Y, v.Z}
		u, tv := v.U, v.V
		if hasMat {
			t := texMat.MulPoint(mathutil.Vec3{u, tv, 0})
			u, tv = t[0], t[1]
		}
		d.poly = append(d.poly, clipVertex{view: d.cam.ToView(world), world: world, u: u, v: tv})
	}

	d.clipped = clipNear(d.poly, Near, d.clipped[:0])
	if len(d.clipped) < 3 {
		d.Culled++
		return
	}

	d.screen = d.screen[:0]
	for _, cv := range d.clipped {
		d.screen = append(d.screen, d.project(cv))
	}

	sh := d.shading()
	for i := 1; i+1 < len(d.screen); i++ {
		d.fillTriangle(&sh, d.screen[0], d.screen[i], d.screen[i+1])
		d.Triangles++
	}
}

// shading is the per-draw state the fragment stage reads.
type shading struct {
	tex      *texture.Material
	nearest  bool
	fog      bool
	fogColor [3]float64
	density  float64
	color    [4]float64
	lights   bool
}

func (d *Device) shading() shading {
	u := &d.uniforms
	sh := shading{
		color: [4]float64{u.Color.R, u.Color.G, u.Color.B, u.Color.A},
	}
	if d.shader < renderstate.SpecialShaderBase {
		variant := d.shader % renderstate.VariantCount
		if variant&1 != 0 && d.texture != nil {
			sh.tex = d.texture
			sh.nearest = d.alphaTest && d.texture.Masked
		}
		sh.fog = variant&2 != 0 && u.FogDensity > 0
	} else if renderstate.Effect(d.shader-renderstate.SpecialShaderBase) == renderstate.EffectFogBoundary {
		sh.fog = u.FogDensity > 0
	}
	if sh.fog {
		sh.fogColor = [3]float64{
			float64(u.FogColor.R) / 255,
			float64(u.FogColor.G) / 255,
			float64(u.FogColor.B) / 255,
		}
		sh.density = u.FogDensity
	}
	sh.lights = u.LightIndex >= 0 && len(d.lights) > 0
	return sh
}
