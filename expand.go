package quads

import "github.com/gogpu/quads/internal/vertex"

// Sampler indices in the order the renderer creates and binds them.
const (
	samplerNearestNearest = 0 // min nearest, mag nearest
	samplerLinearLinear   = 1 // min linear, mag linear
	samplerLinearNearest  = 2 // min linear, mag nearest
	samplerNearestLinear  = 3 // min nearest, mag linear
)

// samplerTable maps [min][mag] filter pairs to sampler indices.
var samplerTable = [2][2]uint8{
	FilterNearest: {FilterNearest: samplerNearestNearest, FilterLinear: samplerNearestLinear},
	FilterLinear:  {FilterNearest: samplerLinearNearest, FilterLinear: samplerLinearLinear},
}

// SamplerIndex returns the sampler slot used for a min/mag filter pair.
func SamplerIndex(minFilter, magFilter FilterMode) int {
	return int(samplerTable[minFilter&1][magFilter&1])
}

// selfUV are the quad-local corner coordinates in corner order.
var selfUV = [4][2]float32{
	BottomLeft:  {0, 0},
	TopLeft:     {0, 1},
	TopRight:    {1, 1},
	BottomRight: {1, 0},
}

// expander turns quads into corner vertices for one target.
type expander struct {
	// targetHeight flips scissor rectangles into top-left pixel space.
	targetHeight float32

	// nudgeU and nudgeV are set when the target width or height is odd.
	nudgeU, nudgeV bool
	nudge          float32
}

func newExpander(targetW, targetH int, nudge float32) expander {
	return expander{
		targetHeight: float32(targetH),
		nudgeU:       targetW%2 != 0,
		nudgeV:       targetH%2 != 0,
		nudge:        nudge,
	}
}

// expand fills out with the four corners of q. texIndex is the batch slot
// of q.Image, or -1 when q is untextured.
func (e *expander) expand(q *Quad, texIndex int8, out *[4]vertex.Vertex) {
	uv := [4][2]float32{
		BottomLeft:  {q.UV.X1, q.UV.Y1},
		TopLeft:     {q.UV.X1, q.UV.Y2},
		TopRight:    {q.UV.X2, q.UV.Y2},
		BottomRight: {q.UV.X2, q.UV.Y1},
	}
	if img := q.Image; img != nil && e.nudge != 0 {
		du, dv := float32(0), float32(0)
		if e.nudgeU {
			du = (2 / float32(img.width)) * e.nudge
		}
		if e.nudgeV {
			dv = (2 / float32(img.height)) * e.nudge
		}
		for i := range uv {
			uv[i][0] += du
			uv[i][1] -= dv
		}
	}

	// Per-quad attributes, computed once.
	color := [4]float32{q.Color.R, q.Color.G, q.Color.B, q.Color.A}
	sampler := samplerTable[q.MinFilter&1][q.MagFilter&1]
	var scissor [4]float32
	var hasScissor uint8
	if q.HasScissor {
		hasScissor = 1
		scissor = [4]float32{
			q.Scissor.X1,
			e.targetHeight - q.Scissor.Y2,
			q.Scissor.X2,
			e.targetHeight - q.Scissor.Y1,
		}
	}

	for i := range out {
		v := &out[i]
		v.Color = color
		v.Position = [4]float32{q.Corners[i].X, q.Corners[i].Y, 0, 1}
		v.UV = uv[i]
		v.SelfUV = selfUV[i]
		v.TextureIndex = texIndex
		v.Type = uint8(q.Type)
		v.Sampler = sampler
		v.HasScissor = hasScissor
		v.UserData = q.UserData
		v.Scissor = scissor
	}
}
