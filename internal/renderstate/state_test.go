package renderstate

import (
	"image/color"
	"math"
	"testing"

	"github.com/gogpu/gputypes"

	"flatrender/internal/device"
	"flatrender/internal/texture"
)

func TestApplyIsIdempotent(t *testing.T) {
	rec := device.NewRecorder()
	s := New(rec)

	s.SetColor(0.5, 0.25, 1, 1, 0)
	s.EnableFog(true)
	s.BindTexture(&texture.Material{Name: "FLOOR0_1", Width: 64, Height: 64})
	s.Apply()
	if len(rec.Calls) == 0 {
		t.Fatal("first Apply issued no device calls")
	}

	rec.Reset()
	s.Apply()
	if len(rec.Calls) != 0 {
		t.Errorf("second Apply issued %d calls, want 0: %+v", len(rec.Calls), rec.Calls)
	}
}

func TestApplySendsOnlyDeltas(t *testing.T) {
	rec := device.NewRecorder()
	s := New(rec)
	s.Apply()
	rec.Reset()

	s.BlendFunc(gputypes.BlendFactorSrcAlpha, gputypes.BlendFactorOne)
	s.Apply()

	if got := rec.Count(device.OpBlendFunc); got != 1 {
		t.Errorf("BlendFunc calls = %d, want 1", got)
	}
	if len(rec.Calls) != 1 {
		t.Errorf("total calls = %d, want 1: %+v", len(rec.Calls), rec.Calls)
	}
	if rec.Blend[1] != gputypes.BlendFactorOne {
		t.Errorf("device dst blend = %v, want One", rec.Blend[1])
	}
}

func TestAlphaFuncEpsilon(t *testing.T) {
	tests := []struct {
		name string
		fn   gputypes.CompareFunction
		in   float64
		want float64
	}{
		{"greater keeps threshold", gputypes.CompareFunctionGreater, 0.5, 0.5},
		{"greater-equal subtracts epsilon", gputypes.CompareFunctionGreaterEqual, 0.5, 0.499},
		{"greater-equal at zero", gputypes.CompareFunctionGreaterEqual, 0, -0.001},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(device.NewRecorder())
			s.AlphaFunc(tt.fn, tt.in)
			if got := s.AlphaThreshold(); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("threshold = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPopVertexArrayOnEmptyStack(t *testing.T) {
	s := New(device.NewRecorder())
	s.SetVertexArray(7)
	s.PopVertexArray()
	if got := s.VertexArray(); got != 7 {
		t.Errorf("vertex array = %d after empty pop, want 7", got)
	}

	s.PushVertexArray()
	s.SetVertexArray(9)
	s.PushVertexArray()
	s.SetVertexArray(11)
	s.PopVertexArray()
	if got := s.VertexArray(); got != 9 {
		t.Errorf("after first pop = %d, want 9", got)
	}
	s.PopVertexArray()
	s.PopVertexArray()
	if got := s.VertexArray(); got != 7 {
		t.Errorf("after draining = %d, want 7", got)
	}
}

func TestDirectStateChange(t *testing.T) {
	rec := device.NewRecorder()
	s := New(rec, WithDirectStateChange(true))
	s.Apply()
	rec.Reset()

	s.BlendFunc(gputypes.BlendFactorSrcAlpha, gputypes.BlendFactorOne)
	if got := rec.Count(device.OpBlendFunc); got != 1 {
		t.Fatalf("direct BlendFunc calls = %d, want 1", got)
	}
	s.BlendEquation(gputypes.BlendOperationReverseSubtract)
	if got := rec.Count(device.OpBlendEquation); got != 1 {
		t.Fatalf("direct BlendEquation calls = %d, want 1", got)
	}

	rec.Reset()
	s.Apply()
	if len(rec.Calls) != 0 {
		t.Errorf("Apply after direct changes issued %d calls, want 0", len(rec.Calls))
	}
}

func TestCachedBlendWaitsForApply(t *testing.T) {
	rec := device.NewRecorder()
	s := New(rec)
	s.Apply()
	rec.Reset()

	s.BlendFunc(gputypes.BlendFactorSrcAlpha, gputypes.BlendFactorOne)
	if len(rec.Calls) != 0 {
		t.Fatalf("cached BlendFunc reached device early: %+v", rec.Calls)
	}
}

func TestSetupShader(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(s *State)
		want   int
		wantOK bool
	}{
		{"default textured", func(s *State) {}, variantTextured, true},
		{"untextured fog", func(s *State) { s.EnableTexture(false); s.EnableFog(true) }, variantFog, true},
		{"brightmap needs texture", func(s *State) { s.EnableTexture(false); s.EnableBrightmap(true) }, 0, true},
		{"glow and brightmap", func(s *State) { s.EnableGlow(true); s.EnableBrightmap(true) }, variantTextured | variantGlow | variantBrightmap, true},
		{"infrared", func(s *State) { s.SetSpecialMode(ModeInfrared) }, VariantCount + variantTextured, true},
		{"fog layer with fog", func(s *State) { s.SetSpecialMode(ModeFogLayer); s.EnableFog(true) }, 2*VariantCount + variantTextured | variantFog, true},
		{"fog layer without fog", func(s *State) { s.SetSpecialMode(ModeFogLayer) }, DefaultShader, false},
		{"burn effect", func(s *State) { s.SetEffect(EffectBurn) }, SpecialShaderBase + int(EffectBurn), true},
		{"unknown effect", func(s *State) { s.SetEffect(Effect(42)) }, DefaultShader, false},
		{"unknown mode", func(s *State) { s.SetSpecialMode(SpecialMode(9)) }, DefaultShader, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(device.NewRecorder())
			tt.setup(s)
			got, ok := s.SetupShader()
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("SetupShader() = (%d, %v), want (%d, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestApplyFallsBackOnBadShader(t *testing.T) {
	rec := device.NewRecorder()
	s := New(rec)
	s.SetEffect(Effect(99))
	a := s.Apply()
	if a.Shader() != DefaultShader || rec.Shader != DefaultShader {
		t.Errorf("shader = %d (device %d), want default", a.Shader(), rec.Shader)
	}
}

func TestSetFogKeepsDensityOnNegative(t *testing.T) {
	rec := device.NewRecorder()
	s := New(rec)
	s.SetFog(color.NRGBA{R: 10, A: 255}, 0.25)
	s.SetFog(color.NRGBA{G: 20, A: 255}, -1)
	s.Apply()
	if rec.Uniforms.FogDensity != 0.25 {
		t.Errorf("fog density = %v, want 0.25", rec.Uniforms.FogDensity)
	}
	if rec.Uniforms.FogColor.G != 20 {
		t.Errorf("fog color = %+v, want green 20", rec.Uniforms.FogColor)
	}
}

func TestTextureBoundOnlyWhenChanged(t *testing.T) {
	rec := device.NewRecorder()
	s := New(rec)
	a := &texture.Material{Name: "A"}
	b := &texture.Material{Name: "B"}

	s.BindTexture(a)
	s.Apply()
	s.BindTexture(a)
	s.Apply()
	s.BindTexture(b)
	s.Apply()

	if got := rec.Count(device.OpBindTexture); got != 2 {
		t.Errorf("BindTexture calls = %d, want 2", got)
	}
}

func TestDynLightReachesUniforms(t *testing.T) {
	rec := device.NewRecorder()
	s := New(rec)
	s.Apply()
	rec.Reset()

	s.SetDynLight(0.25, 0.5, 0.75)
	s.Apply()
	if rec.Count(device.OpUniforms) != 1 {
		t.Fatalf("uniform uploads = %d, want 1", rec.Count(device.OpUniforms))
	}
	if got := rec.Uniforms.DynLight; got != [3]float64{0.25, 0.5, 0.75} {
		t.Errorf("DynLight = %v", got)
	}

	rec.Reset()
	s.SetDynLight(0.25, 0.5, 0.75)
	s.Apply()
	if len(rec.Calls) != 0 {
		t.Errorf("unchanged dynamic light issued %d calls", len(rec.Calls))
	}
}
