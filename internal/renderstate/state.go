// Package renderstate tracks the logical draw state of the flat pipeline
// and converges a device.Device to it with the minimum number of calls.
//
// A State is owned by one frame-rendering goroutine. Setters only record
// the requested state; Apply pushes the differences to the device. The
// Applied handle returned by Apply is what draw entry points accept, so
// geometry cannot be submitted through them without converging first.
package renderstate

import (
	"image/color"
	"log/slog"

	"github.com/gogpu/gputypes"

	"flatrender/internal/device"
	"flatrender/internal/texture"
)

// Effect selects a special-purpose shader.
type Effect int

const (
	EffectNone Effect = iota - 1
	EffectFogBoundary
	EffectSphereMap
	EffectBurn
	EffectStencil

	maxEffects
)

// SpecialMode selects a whole-scene shader family.
type SpecialMode int

const (
	ModeDefault SpecialMode = iota
	ModeInfrared
	ModeFogLayer

	modeCount
)

// Shader index layout: VariantCount variants per special mode, followed by
// one shader per effect.
const (
	variantTextured  = 1
	variantFog       = 2
	variantGlow      = 4
	variantBrightmap = 8

	VariantCount      = 16
	SpecialShaderBase = int(modeCount) * VariantCount
	DefaultShader     = 0
)

// AlphaEpsilon is subtracted from greater-or-equal thresholds so the
// device's greater-than test accepts the threshold value itself.
const AlphaEpsilon = 0.001

// Applied is proof that device state matched logical state at the time
// Apply returned.
type Applied struct {
	shader int
}

// Shader returns the shader index selected by Apply.
func (a Applied) Shader() int { return a.shader }

// Option configures a State.
type Option func(*State)

// WithDirectStateChange makes BlendFunc and BlendEquation reach the device
// immediately instead of waiting for Apply.
func WithDirectStateChange(on bool) Option {
	return func(s *State) { s.direct = on }
}

// WithLogger sets the debug logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *State) {
		if l != nil {
			s.log = l
		}
	}
}

type deviceState struct {
	valid     bool
	src, dst  gputypes.BlendFactor
	equation  gputypes.BlendOperation
	alphaTest bool
	threshold float64
	shader    int
	texture   *texture.Material
	vao       uint32
	uniforms  device.Uniforms
}

// State is the render state cache.
type State struct {
	dev    device.Device
	direct bool
	log    *slog.Logger

	vaoStack       []uint32
	color          [5]float64
	colorControl   int
	textureEnabled bool
	fogEnabled     bool
	glowEnabled    bool
	brightmap      bool
	effect         Effect
	textureMode    int
	softLightLevel float64
	dynLight       [3]float64
	lightParms     [2]float64
	srcBlend       gputypes.BlendFactor
	dstBlend       gputypes.BlendFactor
	alphaThreshold float64
	alphaTest      bool
	blendEquation  gputypes.BlendOperation
	specialMode    SpecialMode
	vertexArray    uint32
	lightIndex     int
	texMatrixIndex int
	glowParms      [16]float64
	fogColor       color.NRGBA
	objectColor    color.NRGBA
	fogDensity     float64
	texture        *texture.Material

	applied deviceState
	applies int
}

// New returns a reset State driving dev.
func New(dev device.Device, opts ...Option) *State {
	s := &State{dev: dev, log: slog.New(slog.DiscardHandler)}
	for _, o := range opts {
		o(s)
	}
	s.Reset()
	return s
}

// Reset restores the default logical state and forgets what the device
// holds, so the next Apply sends everything.
func (s *State) Reset() {
	s.vaoStack = s.vaoStack[:0]
	s.ResetColor()
	s.colorControl = 0
	s.textureEnabled = true
	s.fogEnabled = false
	s.glowEnabled = false
	s.brightmap = false
	s.effect = EffectNone
	s.textureMode = -1
	s.softLightLevel = -1
	s.dynLight = [3]float64{}
	s.lightParms = [2]float64{}
	s.srcBlend = gputypes.BlendFactorSrcAlpha
	s.dstBlend = gputypes.BlendFactorOneMinusSrcAlpha
	s.alphaThreshold = 0.5
	s.alphaTest = false
	s.blendEquation = gputypes.BlendOperationAdd
	s.specialMode = ModeDefault
	s.vertexArray = 0
	s.lightIndex = -1
	s.texMatrixIndex = 0
	s.glowParms = [16]float64{}
	s.fogColor = color.NRGBA{}
	s.objectColor = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	s.fogDensity = 0
	s.texture = nil
	s.applied = deviceState{}
}

// Device returns the device this state drives.
func (s *State) Device() device.Device { return s.dev }

// Applies returns how many times Apply ran.
func (s *State) Applies() int { return s.applies }

func (s *State) PushVertexArray() {
	s.vaoStack = append(s.vaoStack, s.vertexArray)
}

// PopVertexArray restores the last pushed vertex array. Popping an empty
// stack does nothing.
func (s *State) PopVertexArray() {
	if n := len(s.vaoStack); n > 0 {
		s.vertexArray = s.vaoStack[n-1]
		s.vaoStack = s.vaoStack[:n-1]
	}
}

func (s *State) SetVertexArray(vao uint32) { s.vertexArray = vao }

func (s *State) VertexArray() uint32 { return s.vertexArray }

func (s *State) SetDynLightIndex(li int) { s.lightIndex = li }

func (s *State) SetColorControl(ctrl int) { s.colorControl = ctrl }

func (s *State) SetColor(r, g, b, a, desat float64) {
	s.color = [5]float64{r, g, b, a, desat}
}

// SetColorAlpha sets the color from a palette entry with an explicit alpha.
func (s *State) SetColorAlpha(pe color.NRGBA, alpha, desat float64) {
	s.color = [5]float64{float64(pe.R) / 255, float64(pe.G) / 255, float64(pe.B) / 255, alpha, desat}
}

func (s *State) ResetColor() {
	s.color = [5]float64{1, 1, 1, 1, 0}
}

// Color returns r, g, b, a and desaturation.
func (s *State) Color() [5]float64 { return s.color }

func (s *State) SetTextureMode(mode int) { s.textureMode = mode }

func (s *State) EnableTexture(on bool) { s.textureEnabled = on }

func (s *State) TextureEnabled() bool { return s.textureEnabled }

func (s *State) EnableFog(on bool) { s.fogEnabled = on }

func (s *State) SetEffect(eff Effect) { s.effect = eff }

func (s *State) EnableGlow(on bool) { s.glowEnabled = on }

func (s *State) EnableBrightmap(on bool) { s.brightmap = on }

func (s *State) BrightmapEnabled() bool { return s.brightmap }

// SetGlowParams enables glow with top/bottom glow colors and the two glow
// planes packed as a, b, c, d.
func (s *State) SetGlowParams(top, bottom [4]float64, topPlane, bottomPlane [4]float64) {
	s.glowEnabled = true
	copy(s.glowParms[0:4], top[:])
	copy(s.glowParms[4:8], bottom[:])
	copy(s.glowParms[8:12], topPlane[:])
	copy(s.glowParms[12:16], bottomPlane[:])
}

func (s *State) SetSpecialMode(mode SpecialMode) { s.specialMode = mode }

func (s *State) SetSoftLightLevel(level float64) { s.softLightLevel = level }

func (s *State) SetDynLight(r, g, b float64) {
	s.dynLight = [3]float64{r, g, b}
}

// SetFog sets the fog color. A negative density keeps the current density.
func (s *State) SetFog(c color.NRGBA, density float64) {
	s.fogColor = c
	if density >= 0 {
		s.fogDensity = density
	}
}

func (s *State) FogColor() color.NRGBA { return s.fogColor }

func (s *State) SetLightParms(f, d float64) { s.lightParms = [2]float64{f, d} }

func (s *State) SetObjectColor(c color.NRGBA) { s.objectColor = c }

func (s *State) SetTextureMatrixIndex(i int) { s.texMatrixIndex = i }

// BindTexture selects the material for the next draw.
func (s *State) BindTexture(m *texture.Material) { s.texture = m }

// BlendFunc sets the blend factors. With direct state change the device is
// updated immediately.
func (s *State) BlendFunc(src, dst gputypes.BlendFactor) {
	s.srcBlend, s.dstBlend = src, dst
	if s.direct {
		s.dev.SetBlendFunc(src, dst)
		s.applied.src, s.applied.dst = src, dst
	}
}

// Blend returns the logical blend factors.
func (s *State) Blend() (src, dst gputypes.BlendFactor) { return s.srcBlend, s.dstBlend }

// AlphaFunc sets the alpha-test threshold. Only Greater and GreaterEqual
// are supported; anything else is treated as Greater.
func (s *State) AlphaFunc(fn gputypes.CompareFunction, thresh float64) {
	if fn == gputypes.CompareFunctionGreaterEqual {
		thresh -= AlphaEpsilon
	}
	s.alphaThreshold = thresh
}

// AlphaThreshold returns the stored alpha-test threshold.
func (s *State) AlphaThreshold() float64 { return s.alphaThreshold }

func (s *State) EnableAlphaTest(on bool) { s.alphaTest = on }

// BlendEquation sets the blend operation. With direct state change the
// device is updated immediately.
func (s *State) BlendEquation(eq gputypes.BlendOperation) {
	s.blendEquation = eq
	if s.direct {
		s.dev.SetBlendEquation(eq)
		s.applied.equation = eq
	}
}
