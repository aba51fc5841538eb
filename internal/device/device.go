// Package device defines the graphics backend consumed by the flat
// pipeline. Implementations are the software rasterizer in internal/raster
// and the call Recorder used by tests and the flatstats tool.
package device

import (
	"image/color"

	"github.com/gogpu/gputypes"

	"flatrender/internal/mathutil"
	"flatrender/internal/texture"
)

// Vertex is one flat vertex in map space: X/Y on the map, Z the height.
type Vertex struct {
	X, Y, Z float64
	U, V    float64
}

// Uniforms is the per-draw shader input block. It is comparable so state
// caches can detect changes with ==.
type Uniforms struct {
	Color          gputypes.Color
	Desaturation   float64
	ColorControl   int
	TextureMode    int
	FogColor       color.NRGBA
	FogDensity     float64
	ObjectColor    color.NRGBA
	SoftLightLevel float64
	DynLight       [3]float64
	LightParms     [2]float64
	GlowParms      [16]float64
	LightIndex     int
	TexMatrixIndex int
}

// Device is the opaque graphics API. Calls are fire-and-forget.
type Device interface {
	BindTexture(m *texture.Material)
	SetBlendFunc(src, dst gputypes.BlendFactor)
	SetBlendEquation(op gputypes.BlendOperation)
	// SetAlphaTest configures an "alpha > threshold" fragment test.
	SetAlphaTest(enabled bool, threshold float64)
	UseShader(index int)
	SetUniforms(u Uniforms)
	BindVertexArray(id uint32)
	UploadVertexArray(id uint32, verts []Vertex)
	UploadLights(data []float64)
	DrawFan(verts []Vertex)
	// DrawRange draws count vertices of the bound vertex array as a fan.
	DrawRange(first, count int)
	PushTexMatrix(m mathutil.Mat4)
	PopTexMatrix()
}
