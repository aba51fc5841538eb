package flat

import (
	"math"
	"testing"

	"github.com/gogpu/gputypes"

	"flatrender/internal/device"
	"flatrender/internal/mathutil"
	"flatrender/internal/renderstate"
	"flatrender/internal/scene"
)

func TestTextureMatrix(t *testing.T) {
	lvl := parseLevel(t, boxSector)
	tex := testTextures(lvl)
	floor, big := tex.Material(0), tex.Material(2)
	canvas := *floor
	canvas.Canvas = true

	unit := scene.PlaneTexture{XScale: 1, YScale: 1}
	tests := []struct {
		name   string
		pt     scene.PlaneTexture
		canvas bool
		big    bool
		in     mathutil.Vec3
		want   mathutil.Vec3
		ok     bool
	}{
		{"reference flat", unit, false, false, mathutil.Vec3{1, 1, 0}, mathutil.Vec3{1, 1, 0}, false},
		{"wide texture", unit, false, true, mathutil.Vec3{1, 0, 0}, mathutil.Vec3{0.5, 0, 0}, true},
		{"x offset", scene.PlaneTexture{XOffs: 32, XScale: 1, YScale: 1}, false, false, mathutil.Vec3{0, 0, 0}, mathutil.Vec3{0.5, 0, 0}, true},
		{"scaled", scene.PlaneTexture{XScale: 2, YScale: 3}, false, false, mathutil.Vec3{1, 1, 0}, mathutil.Vec3{2, 3, 0}, true},
		{"canvas flips y", scene.PlaneTexture{XScale: 1, YScale: 2}, true, false, mathutil.Vec3{0, 1, 0}, mathutil.Vec3{0, -2, 0}, true},
		{"rotated", scene.PlaneTexture{XScale: 1, YScale: 1, Angle: 90}, false, false, mathutil.Vec3{1, 0, 0}, mathutil.Vec3{0, -1, 0}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := floor
			switch {
			case tt.big:
				m = big
			case tt.canvas:
				m = &canvas
			}
			mat, ok := TextureMatrix(tt.pt, m)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			got := mat.MulPoint(tt.in)
			for i := range got {
				if math.Abs(got[i]-tt.want[i]) > 1e-9 {
					t.Errorf("matrix maps %v to %v, want %v", tt.in, got, tt.want)
					break
				}
			}
		})
	}
}

func TestTextureMatrixPushPopBalance(t *testing.T) {
	r, rec, _ := newTestRenderer(t, `
sectors:
  - floor: {height: 0, texture: big}
    ceiling: {height: 128, texture: floor, angle: 45}
    subsectors: [[0, 4, 5, 3]]
  - floor: {height: 0, texture: floor, xoffs: 8}
    ceiling: {height: 128, texture: floor, reflect: 0.5, yscale: 2}
    subsectors: [[4, 1, 2, 5]]
    slabs:
      - {model: 2, alpha: 100, flags: [exists, renderplanes, bothplanes]}
  - floor: {height: 40, texture: big}
    ceiling: {height: 60, texture: grate, xoffs: 3}
`, Options{DynamicLights: true})

	for _, z := range []float64{10, 50, 100} {
		stats := r.RenderFrame(scene.View{X: 64, Y: 64, Z: z}, nil)
		if stats.MatrixPushes == 0 {
			t.Errorf("z=%v: no texture matrix pushed", z)
		}
		if stats.MatrixPushes != stats.MatrixPops {
			t.Errorf("z=%v: %d pushes, %d pops", z, stats.MatrixPushes, stats.MatrixPops)
		}
		if rec.MatrixDepth != 0 {
			t.Errorf("z=%v: device matrix depth = %d after frame", z, rec.MatrixDepth)
		}
		if rec.MaxDepth > 1 {
			t.Errorf("z=%v: matrices nested %d deep", z, rec.MaxDepth)
		}
	}
}

func TestVertexBufferRanges(t *testing.T) {
	r, rec, lvl := newTestRenderer(t, boxSector, Options{})
	r.UseVertexBuffer(lvl.BuildVertexBuffer())
	view := scene.View{X: 32, Y: 32, Z: 64}

	r.RenderFrame(view, nil)
	if got := rec.Count(device.OpDrawFan); got != 0 {
		t.Errorf("immediate fans = %d, want 0", got)
	}
	var ranges [][2]int
	for _, c := range rec.Draws() {
		ranges = append(ranges, [2]int{c.First, c.Count})
	}
	want := [][2]int{{0, 4}, {4, 4}, {8, 4}, {12, 4}}
	if len(ranges) != len(want) {
		t.Fatalf("ranges = %v, want %v", ranges, want)
	}
	for i := range want {
		if ranges[i] != want[i] {
			t.Errorf("range %d = %v, want %v", i, ranges[i], want[i])
		}
	}
	if rec.VertexArray != FlatVertexArray {
		t.Errorf("bound vertex array = %d, want %d", rec.VertexArray, FlatVertexArray)
	}

	// a moved floor no longer matches the buffer and falls back to fans
	lvl.Sectors[0].Floor.Plane = mathutil.Flat(8, false)
	rec.Reset()
	r.RenderFrame(view, nil)
	if got := rec.Count(device.OpDrawRange); got != 2 {
		t.Errorf("ranges after move = %d, want 2", got)
	}
	if got := rec.Count(device.OpDrawFan); got != 2 {
		t.Errorf("fans after move = %d, want 2", got)
	}
}

func TestVisibleSubsectorsOnly(t *testing.T) {
	r, rec, lvl := newTestRenderer(t, boxSector, Options{})
	r.UseVertexBuffer(lvl.BuildVertexBuffer())

	r.RenderFrame(scene.View{X: 32, Y: 32, Z: 64}, []int{1})
	for _, c := range rec.Draws() {
		if c.First != 4 && c.First != 12 {
			t.Errorf("drew range %d, want only sub-sector 1", c.First)
		}
	}
	if got := len(rec.Draws()); got != 2 {
		t.Errorf("draws = %d, want 2", got)
	}
}

func TestSubsectorGeometry(t *testing.T) {
	r, rec, _ := newTestRenderer(t, `
sectors:
  - floor: {height: 16, texture: floor}
    ceiling: {height: 128, texture: floor}
    transdoor: true
    subsectors: [[0, 1, 2, 3]]
`, Options{})
	r.RenderFrame(scene.View{X: 32, Y: 32, Z: 64}, nil)

	for _, c := range rec.Draws() {
		ceiling := c.Verts[0].Z > 64
		for _, v := range c.Verts {
			if v.U != v.X/64 || v.V != -v.Y/64 {
				t.Errorf("texcoord of (%v, %v) = (%v, %v)", v.X, v.Y, v.U, v.V)
			}
			want := 15.0
			if ceiling {
				want = 128
			}
			if v.Z != want {
				t.Errorf("ceiling=%v vertex z = %v, want %v", ceiling, v.Z, want)
			}
		}
	}
}

func TestMissingTextureFills(t *testing.T) {
	r, rec, _ := newTestRenderer(t, `
sectors:
  - floor: {height: 0, texture: floor}
    ceiling: {height: 128, texture: floor}
    subsectors: [[0, 4, 5, 3]]
  - floor: {height: 16, texture: floor}
    ceiling: {height: 128, texture: floor}
    subsectors: [[4, 1, 2, 5]]
fills:
  - {sector: 0, subsector: 1}
`, Options{})
	r.RenderFrame(scene.View{X: 32, Y: 32, Z: 64}, nil)

	borrowed := 0
	for _, c := range rec.Draws() {
		if c.Verts[0].X >= 64 && c.Verts[1].X >= 64 && c.Verts[0].Z == 0 {
			borrowed++
		}
	}
	if borrowed != 1 {
		t.Errorf("sub-sector 1 drawn with sector 0's floor %d times, want 1", borrowed)
	}
	if got := rec.Count(device.OpDrawFan); got != 5 {
		t.Errorf("fans = %d, want 5", got)
	}
}

const additiveSlab = `
sectors:
  - floor: {height: 0, texture: floor}
    ceiling: {height: 256, texture: floor}
    subsectors: [[0, 1, 2, 3]]
    slabs:
      - {model: 1, alpha: 200, flags: [exists, renderplanes, additive]}
  - floor: {height: 160, texture: floor}
    ceiling: {height: 200, texture: floor}
`

func TestAdditiveBlendSwap(t *testing.T) {
	tests := []struct {
		name      string
		direct    bool
		deviceDst gputypes.BlendFactor
	}{
		{"cached", false, gputypes.BlendFactorOne},
		{"direct", true, gputypes.BlendFactorOneMinusSrcAlpha},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, rec, _ := newTestRenderer(t, additiveSlab, Options{DirectStateChange: tt.direct})
			r.RenderFrame(scene.View{X: 64, Y: 64, Z: 100}, nil)

			if r.DrawInfo().List(ListTranslucent).Len() != 1 {
				t.Fatalf("translucent list = %d flats, want 1", r.DrawInfo().List(ListTranslucent).Len())
			}
			additive := false
			for _, c := range rec.Calls {
				if c.Op == device.OpBlendFunc && c.Src == gputypes.BlendFactorSrcAlpha && c.Dst == gputypes.BlendFactorOne {
					additive = true
				}
			}
			if !additive {
				t.Error("additive blend never reached the device")
			}
			if _, dst := r.State().Blend(); dst != gputypes.BlendFactorOneMinusSrcAlpha {
				t.Errorf("logical blend dst = %v, want OneMinusSrcAlpha", dst)
			}
			if rec.Blend[1] != tt.deviceDst {
				t.Errorf("device blend dst = %v, want %v", rec.Blend[1], tt.deviceDst)
			}
		})
	}
}

func TestFogFlatDrawsUntextured(t *testing.T) {
	r, rec, _ := newTestRenderer(t, `
sectors:
  - floor: {height: 0, texture: floor}
    ceiling: {height: 256, texture: floor}
    subsectors: [[0, 1, 2, 3]]
    slabs:
      - {model: 1, alpha: 128, flags: [exists, renderplanes, fog]}
  - floor: {height: 160, texture: floor}
    ceiling: {height: 200, texture: floor}
`, Options{})
	r.RenderFrame(scene.View{X: 64, Y: 64, Z: 100}, nil)

	shader := -1
	var fogDraws int
	for _, c := range rec.Calls {
		switch c.Op {
		case device.OpUseShader:
			shader = c.Shader
		case device.OpDrawFan:
			if c.Verts[0].Z == 160 {
				fogDraws++
				if shader&1 != 0 {
					t.Errorf("fog flat drawn with textured shader %d", shader)
				}
			}
		}
	}
	if fogDraws != 1 {
		t.Errorf("fog draws = %d, want 1", fogDraws)
	}
	if !r.State().TextureEnabled() {
		t.Error("texturing left disabled after fog flat")
	}
}

func TestTranslucentEnablesBrightmap(t *testing.T) {
	r, _, _ := newTestRenderer(t, additiveSlab, Options{})
	if r.State().BrightmapEnabled() {
		t.Fatal("brightmap enabled before drawing")
	}
	r.RenderFrame(scene.View{X: 64, Y: 64, Z: 100}, nil)
	if !r.State().BrightmapEnabled() {
		t.Error("brightmap not enabled after textured translucent flat")
	}
}

func TestMaskedListUsesAlphaTest(t *testing.T) {
	r, rec, _ := newTestRenderer(t, `
sectors:
  - floor: {height: 0, texture: grate, portal: 0}
    ceiling: {height: 128, texture: floor}
    subsectors: [[0, 1, 2, 3]]
`, Options{})
	r.RenderFrame(scene.View{X: 64, Y: 64, Z: 64}, nil)

	alphaTest, threshold := false, 0.0
	for _, c := range rec.Calls {
		switch c.Op {
		case device.OpAlphaTest:
			alphaTest, threshold = c.Enabled, c.Threshold
		case device.OpDrawFan:
			masked := c.Texture != nil && c.Texture.Masked
			if masked != alphaTest {
				t.Errorf("masked=%v draw with alpha test %v", masked, alphaTest)
			}
			if masked && math.Abs(threshold-(0.5-renderstate.AlphaEpsilon)) > 1e-12 {
				t.Errorf("alpha threshold = %v, want %v", threshold, 0.5-renderstate.AlphaEpsilon)
			}
		}
	}
}

func TestDynamicLightsPass(t *testing.T) {
	const body = boxSector + `
lights:
  - {pos: [32, 32, 64], radius: 200, subsectors: [0, 1]}
  - {pos: [96, 32, 64], radius: 200, dormant: true, subsectors: [1]}
`
	tests := []struct {
		name    string
		dynamic bool
		uploads int
		lights  int
	}{
		{"all lights", true, 4, 4},
		{"plain", false, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, rec, _ := newTestRenderer(t, body, Options{DynamicLights: tt.dynamic, LightsCheckSide: true})
			stats := r.RenderFrame(scene.View{X: 32, Y: 32, Z: 64}, nil)

			if got := rec.Count(device.OpUploadLights); got != tt.uploads {
				t.Errorf("light uploads = %d, want %d", got, tt.uploads)
			}
			if stats.LightIterations != tt.lights {
				t.Errorf("LightIterations = %d, want %d", stats.LightIterations, tt.lights)
			}
		})
	}
}

func TestColorAndFog(t *testing.T) {
	tests := []struct {
		name       string
		opts       Options
		extra      int
		light      int
		wantBright float64
		wantFog    bool
	}{
		{"full light", Options{}, 0, 255, 1, false},
		{"dark", Options{}, 0, 0, 0, true},
		{"weapon light", Options{WeaponLight: true}, 4, 96, 128.0 / 255, true},
		{"weapon light off", Options{}, 4, 96, 96.0 / 255, true},
		{"fixed colormap", Options{FixedColormap: true}, 0, 0, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lvl := parseLevel(t, boxSector)
			rec := device.NewRecorder()
			r := NewRenderer(lvl, testTextures(lvl), rec, tt.opts)
			r.SetView(scene.View{ExtraLight: tt.extra})

			rel := r.extraLight()
			r.setColor(tt.light, rel, scene.DefaultColorMap, 1)
			r.setFog(tt.light, rel, scene.DefaultColorMap, false)
			r.State().Apply()

			u := rec.Uniforms
			if math.Abs(u.Color.R-tt.wantBright) > 1e-9 {
				t.Errorf("color r = %v, want %v", u.Color.R, tt.wantBright)
			}
			if got := u.FogDensity > 0; got != tt.wantFog {
				t.Errorf("fog = %v (density %v), want %v", got, u.FogDensity, tt.wantFog)
			}
		})
	}
}
