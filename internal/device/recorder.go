package device

import (
	"github.com/gogpu/gputypes"

	"flatrender/internal/mathutil"
	"flatrender/internal/texture"
)

// Op names a recorded device call.
type Op string

const (
	OpBindTexture       Op = "BindTexture"
	OpBlendFunc         Op = "BlendFunc"
	OpBlendEquation     Op = "BlendEquation"
	OpAlphaTest         Op = "AlphaTest"
	OpUseShader         Op = "UseShader"
	OpUniforms          Op = "Uniforms"
	OpBindVertexArray   Op = "BindVertexArray"
	OpUploadVertexArray Op = "UploadVertexArray"
	OpUploadLights      Op = "UploadLights"
	OpDrawFan           Op = "DrawFan"
	OpDrawRange         Op = "DrawRange"
	OpPushTexMatrix     Op = "PushTexMatrix"
	OpPopTexMatrix      Op = "PopTexMatrix"
)

// Call is one recorded device call. Only the fields relevant to Op are set.
type Call struct {
	Op        Op
	Texture   *texture.Material
	Src, Dst  gputypes.BlendFactor
	Equation  gputypes.BlendOperation
	Enabled   bool
	Threshold float64
	Shader    int
	Uniforms  Uniforms
	ID        uint32
	Verts     []Vertex
	Lights    []float64
	First     int
	Count     int
	Matrix    mathutil.Mat4
}

// Recorder is a Device that records every call and tracks the state a
// real device would end up in.
type Recorder struct {
	Calls []Call

	Blend       [2]gputypes.BlendFactor
	Equation    gputypes.BlendOperation
	AlphaTest   bool
	Threshold   float64
	Shader      int
	Uniforms    Uniforms
	Texture     *texture.Material
	VertexArray uint32
	MatrixDepth int
	MaxDepth    int
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) record(c Call) { r.Calls = append(r.Calls, c) }

// Reset forgets recorded calls but keeps the tracked device state.
func (r *Recorder) Reset() { r.Calls = r.Calls[:0] }

// Count returns how many calls of op were recorded.
func (r *Recorder) Count(op Op) int {
	n := 0
	for _, c := range r.Calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Draws returns the recorded draw calls (fans and ranges) in order.
func (r *Recorder) Draws() []Call {
	var out []Call
	for _, c := range r.Calls {
		if c.Op == OpDrawFan || c.Op == OpDrawRange {
			out = append(out, c)
		}
	}
	return out
}

func (r *Recorder) BindTexture(m *texture.Material) {
	r.Texture = m
	r.record(Call{Op: OpBindTexture, Texture: m})
}

func (r *Recorder) SetBlendFunc(src, dst gputypes.BlendFactor) {
	r.Blend = [2]gputypes.BlendFactor{src, dst}
	r.record(Call{Op: OpBlendFunc, Src: src, Dst: dst})
}

func (r *Recorder) SetBlendEquation(op gputypes.BlendOperation) {
	r.Equation = op
	r.record(Call{Op: OpBlendEquation, Equation: op})
}

func (r *Recorder) SetAlphaTest(enabled bool, threshold float64) {
	r.AlphaTest, r.Threshold = enabled, threshold
	r.record(Call{Op: OpAlphaTest, Enabled: enabled, Threshold: threshold})
}

func (r *Recorder) UseShader(index int) {
	r.Shader = index
	r.record(Call{Op: OpUseShader, Shader: index})
}

func (r *Recorder) SetUniforms(u Uniforms) {
	r.Uniforms = u
	r.record(Call{Op: OpUniforms, Uniforms: u})
}

func (r *Recorder) BindVertexArray(id uint32) {
	r.VertexArray = id
	r.record(Call{Op: OpBindVertexArray, ID: id})
}

func (r *Recorder) UploadVertexArray(id uint32, verts []Vertex) {
	r.record(Call{Op: OpUploadVertexArray, ID: id, Count: len(verts)})
}

func (r *Recorder) UploadLights(data []float64) {
	r.record(Call{Op: OpUploadLights, Lights: append([]float64(nil), data...)})
}

func (r *Recorder) DrawFan(verts []Vertex) {
	r.record(Call{Op: OpDrawFan, Verts: append([]Vertex(nil), verts...), Count: len(verts), Texture: r.Texture, Uniforms: r.Uniforms})
}

func (r *Recorder) DrawRange(first, count int) {
	r.record(Call{Op: OpDrawRange, First: first, Count: count, Texture: r.Texture, Uniforms: r.Uniforms})
}

func (r *Recorder) PushTexMatrix(m mathutil.Mat4) {
	r.MatrixDepth++
	if r.MatrixDepth > r.MaxDepth {
		r.MaxDepth = r.MatrixDepth
	}
	r.record(Call{Op: OpPushTexMatrix, Matrix: m})
}

func (r *Recorder) PopTexMatrix() {
	if r.MatrixDepth > 0 {
		r.MatrixDepth--
	}
	r.record(Call{Op: OpPopTexMatrix})
}

var _ Device = (*Recorder)(nil)
