package raster

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/gogpu/gputypes"

	"flatrender/internal/device"
	"flatrender/internal/mathutil"
	"flatrender/internal/scene"
	"flatrender/internal/texture"
)

// eyeView looks east from 50 units above the origin.
var eyeView = scene.View{Z: 50, FOV: 90}

func floorFan(z float64) []device.Vertex {
	return []device.Vertex{
		{X: 1, Y: -1000, Z: z},
		{X: 1000, Y: -1000, Z: z},
		{X: 1000, Y: 1000, Z: z},
		{X: 1, Y: 1000, Z: z},
	}
}

func solidUniforms(r, g, b, a float64) device.Uniforms {
	return device.Uniforms{Color: gputypes.Color{R: r, G: g, B: b, A: a}, LightIndex: -1}
}

func TestClipNear(t *testing.T) {
	mk := func(zs ...float64) []clipVertex {
		out := make([]clipVertex, len(zs))
		for i, z := range zs {
			out[i] = clipVertex{view: mathutil.Vec3{float64(i), 0, z}}
		}
		return out
	}
	tests := []struct {
		name string
		zs   []float64
		want int
	}{
		{"all in front", []float64{2, 3, 4}, 3},
		{"one behind", []float64{-1, 3, 4}, 4},
		{"two behind", []float64{-1, -2, 4}, 3},
		{"all behind", []float64{-1, -2, 0.5}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := clipNear(mk(tt.zs...), Near, nil)
			if len(got) != tt.want {
				t.Fatalf("got %d vertices, want %d", len(got), tt.want)
			}
			for _, v := range got {
				if v.view[2] < Near-1e-9 {
					t.Errorf("vertex %v in front of near plane", v.view)
				}
			}
		})
	}
}

func TestCameraProject(t *testing.T) {
	tests := []struct {
		name  string
		view  scene.View
		p     mathutil.Vec3
		wantX float64
		wantY float64
	}{
		{"straight ahead", scene.View{}, mathutil.Vec3{10, 0, 0}, 32, 32},
		{"to the right", scene.View{}, mathutil.Vec3{10, -5, 0}, 48, 32},
		{"facing north", scene.View{Angle: 90}, mathutil.Vec3{0, 10, 0}, 32, 32},
		{"above", scene.View{}, mathutil.Vec3{10, 0, 5}, 32, 16},
		{"pitched up", scene.View{Pitch: 30}, mathutil.Vec3{10 * math.Cos(math.Pi/6), 0, 10 * math.Sin(math.Pi/6)}, 32, 32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam := NewCamera(tt.view, 64, 64)
			v := cam.ToView(tt.p)
			if v[2] <= 0 {
				t.Fatalf("point behind camera: %v", v)
			}
			x, y := cam.Project(v)
			if math.Abs(x-tt.wantX) > 1e-9 || math.Abs(y-tt.wantY) > 1e-9 {
				t.Errorf("Project = (%.3f, %.3f), want (%.3f, %.3f)", x, y, tt.wantX, tt.wantY)
			}
		})
	}
}

func TestDrawFanFloor(t *testing.T) {
	d := New(64, 64, eyeView, nil)
	d.SetUniforms(solidUniforms(1, 0, 0, 1))
	d.DrawFan(floorFan(0))

	img := d.Image()
	if got := img.NRGBAAt(32, 60); got != (color.NRGBA{255, 0, 0, 255}) {
		t.Errorf("floor pixel = %v, want red", got)
	}
	if got := img.NRGBAAt(32, 4); got != (color.NRGBA{0, 0, 0, 255}) {
		t.Errorf("sky pixel = %v, want background", got)
	}
	if d.Fans != 1 || d.Triangles != 2 {
		t.Errorf("Fans=%d Triangles=%d, want 1 and 2", d.Fans, d.Triangles)
	}
}

func TestDepthTest(t *testing.T) {
	d := New(64, 64, eyeView, nil)
	d.SetUniforms(solidUniforms(1, 0, 0, 1))
	d.DrawFan(floorFan(0))
	d.SetUniforms(solidUniforms(0, 1, 0, 1))
	d.DrawFan(floorFan(-10))

	if got := d.Image().NRGBAAt(32, 60); got.R != 255 || got.G != 0 {
		t.Errorf("pixel = %v, nearer floor should win", got)
	}
}

func TestAlphaTestDiscards(t *testing.T) {
	d := New(64, 64, eyeView, nil)
	d.SetAlphaTest(true, 0.5)
	d.SetUniforms(solidUniforms(1, 1, 1, 0.4))
	d.DrawFan(floorFan(0))

	if got := d.Image().NRGBAAt(32, 60); got != (color.NRGBA{0, 0, 0, 255}) {
		t.Errorf("pixel = %v, fragment should be discarded", got)
	}
	if d.FrameBuffer().Depth[60*64+32] != 0 {
		t.Error("discarded fragment wrote depth")
	}
}

func TestBlendModes(t *testing.T) {
	tests := []struct {
		name     string
		src, dst gputypes.BlendFactor
		op       gputypes.BlendOperation
		want     color.NRGBA
	}{
		{"alpha", gputypes.BlendFactorSrcAlpha, gputypes.BlendFactorOneMinusSrcAlpha, gputypes.BlendOperationAdd, color.NRGBA{50, 128, 0, 255}},
		{"additive", gputypes.BlendFactorSrcAlpha, gputypes.BlendFactorOne, gputypes.BlendOperationAdd, color.NRGBA{100, 128, 0, 255}},
		{"reverse subtract", gputypes.BlendFactorSrcAlpha, gputypes.BlendFactorOne, gputypes.BlendOperationReverseSubtract, color.NRGBA{100, 0, 0, 255}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(64, 64, eyeView, nil)
			d.FrameBuffer().Clear(color.NRGBA{100, 0, 0, 255})
			d.SetBlendFunc(tt.src, tt.dst)
			d.SetBlendEquation(tt.op)
			d.SetUniforms(solidUniforms(0, 1, 0, 0.5))
			d.DrawFan(floorFan(0))
			if got := d.Image().NRGBAAt(32, 60); got != tt.want {
				t.Errorf("pixel = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDrawRangeBounds(t *testing.T) {
	d := New(64, 64, eyeView, nil)
	d.UploadVertexArray(1, floorFan(0))
	d.BindVertexArray(1)
	d.SetUniforms(solidUniforms(1, 1, 1, 1))

	d.DrawRange(2, 4)
	d.DrawRange(0, 2)
	if d.Fans != 0 {
		t.Fatalf("invalid ranges drew %d fans", d.Fans)
	}
	d.DrawRange(0, 4)
	if d.Fans != 1 {
		t.Errorf("Fans = %d, want 1", d.Fans)
	}
}

func TestFanBehindCameraIsCulled(t *testing.T) {
	d := New(64, 64, eyeView, nil)
	d.SetUniforms(solidUniforms(1, 1, 1, 1))
	d.DrawFan([]device.Vertex{
		{X: -10, Y: -10}, {X: -100, Y: -10}, {X: -100, Y: 10},
	})
	if d.Culled != 1 || d.Triangles != 0 {
		t.Errorf("Culled=%d Triangles=%d, want 1 and 0", d.Culled, d.Triangles)
	}
}

func TestFogShader(t *testing.T) {
	d := New(64, 64, eyeView, nil)
	u := solidUniforms(1, 0, 0, 1)
	u.FogColor = color.NRGBA{0, 0, 255, 255}
	u.FogDensity = 1
	d.UseShader(2)
	d.SetUniforms(u)
	d.DrawFan(floorFan(0))

	if got := d.Image().NRGBAAt(32, 60); got != (color.NRGBA{0, 0, 255, 255}) {
		t.Errorf("pixel = %v, want fog color", got)
	}
}

func TestDynamicLight(t *testing.T) {
	d := New(64, 64, eyeView, nil)
	u := solidUniforms(0, 0, 0, 1)
	u.LightIndex = 0
	d.SetUniforms(u)
	// one normal light 10 units above the floor point under pixel (32, 60)
	d.UploadLights([]float64{1, 0, 0, 0, 57, 10, 0, 100, 1, 0, 0, 0})
	d.DrawFan(floorFan(0))

	got := d.Image().NRGBAAt(32, 60)
	if got.R < 200 || got.G != 0 {
		t.Errorf("lit pixel = %v, want strong red", got)
	}
	if far := d.Image().NRGBAAt(32, 36); far.R != 0 {
		t.Errorf("pixel outside radius = %v, want unlit", far)
	}
}

func TestTexturedFanUsesMatrix(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{255, 0, 0, 255})
	img.SetNRGBA(1, 0, color.NRGBA{0, 0, 255, 255})
	mat := &texture.Material{Name: "split", Width: 2, Height: 1, Image: img, Masked: true}

	d := New(64, 64, eyeView, nil)
	d.BindTexture(mat)
	d.UseShader(1)
	d.SetAlphaTest(true, 0.5)
	d.SetUniforms(solidUniforms(1, 1, 1, 1))
	// collapse every coordinate onto the second texel
	d.PushTexMatrix(mathutil.Mat4Identity().Translate(0.75, 0, 0).Scale(0, 0, 1))
	d.DrawFan(floorFan(0))
	d.PopTexMatrix()

	if got := d.Image().NRGBAAt(32, 60); got != (color.NRGBA{0, 0, 255, 255}) {
		t.Errorf("pixel = %v, want second texel", got)
	}
}

func TestSampleNearestWraps(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(1, 1, color.NRGBA{9, 8, 7, 6})
	tests := []struct{ u, v float64 }{
		{0.75, 0.75},
		{1.75, -0.25},
		{-1.25, 2.5},
	}
	for _, tt := range tests {
		r, g, b, a := SampleNearest(img, tt.u, tt.v)
		if r != 9 || g != 8 || b != 7 || a != 6 {
			t.Errorf("SampleNearest(%v, %v) = %d %d %d %d", tt.u, tt.v, r, g, b, a)
		}
	}
}
