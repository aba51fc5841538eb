package renderstate

import (
	"github.com/gogpu/gputypes"

	"flatrender/internal/device"
)

// SetupShader computes the shader index for the current logical state.
// Inconsistent parameters select DefaultShader; ok reports whether the
// requested combination was valid.
func (s *State) SetupShader() (index int, ok bool) {
	if s.effect != EffectNone {
		if s.effect < 0 || s.effect >= maxEffects {
			return DefaultShader, false
		}
		return SpecialShaderBase + int(s.effect), true
	}
	if s.specialMode < 0 || s.specialMode >= modeCount {
		return DefaultShader, false
	}
	if s.specialMode == ModeFogLayer && !s.fogEnabled {
		return DefaultShader, false
	}

	v := 0
	if s.textureEnabled {
		v |= variantTextured
	}
	if s.fogEnabled {
		v |= variantFog
	}
	if s.glowEnabled {
		v |= variantGlow
	}
	if s.brightmap && s.textureEnabled {
		v |= variantBrightmap
	}
	return int(s.specialMode)*VariantCount + v, true
}

func (s *State) uniforms() device.Uniforms {
	return device.Uniforms{
		Color:          gputypes.Color{R: s.color[0], G: s.color[1], B: s.color[2], A: s.color[3]},
		Desaturation:   s.color[4],
		ColorControl:   s.colorControl,
		TextureMode:    s.textureMode,
		FogColor:       s.fogColor,
		FogDensity:     s.fogDensity,
		ObjectColor:    s.objectColor,
		SoftLightLevel: s.softLightLevel,
		DynLight:       s.dynLight,
		LightParms:     s.lightParms,
		GlowParms:      s.glowParms,
		LightIndex:     s.lightIndex,
		TexMatrixIndex: s.texMatrixIndex,
	}
}

// Apply makes the device match the logical state, issuing only the calls
// whose state changed since the previous Apply.
func (s *State) Apply() Applied {
	s.applies++
	a := &s.applied
	first := !a.valid

	if first || a.src != s.srcBlend || a.dst != s.dstBlend {
		s.dev.SetBlendFunc(s.srcBlend, s.dstBlend)
		a.src, a.dst = s.srcBlend, s.dstBlend
	}
	if first || a.equation != s.blendEquation {
		s.dev.SetBlendEquation(s.blendEquation)
		a.equation = s.blendEquation
	}
	if first || a.alphaTest != s.alphaTest || a.threshold != s.alphaThreshold {
		s.dev.SetAlphaTest(s.alphaTest, s.alphaThreshold)
		a.alphaTest, a.threshold = s.alphaTest, s.alphaThreshold
	}

	shader, ok := s.SetupShader()
	if !ok {
		s.log.Debug("renderstate: inconsistent shader selection, using default",
			"effect", int(s.effect), "mode", int(s.specialMode), "fog", s.fogEnabled)
	}
	if first || a.shader != shader {
		s.dev.UseShader(shader)
		a.shader = shader
	}

	if s.textureEnabled && s.texture != nil && (first || a.texture != s.texture) {
		s.dev.BindTexture(s.texture)
		a.texture = s.texture
	}
	if first || a.vao != s.vertexArray {
		s.dev.BindVertexArray(s.vertexArray)
		a.vao = s.vertexArray
	}
	if u := s.uniforms(); first || u != a.uniforms {
		s.dev.SetUniforms(u)
		a.uniforms = u
	}

	a.valid = true
	return Applied{shader: shader}
}
