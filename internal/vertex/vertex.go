// Package vertex defines the GPU vertex layout shared by the quad expander
// and the quad shader.
package vertex

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/gputypes"
)

// UserDataCount is the number of opaque vec4 user data slots per vertex.
const UserDataCount = 1

// Vertex is one corner of an expanded quad.
//
// Byte layout (little-endian, no padding):
//
//	color        vec4<f32>          16 bytes  (location 0)
//	position     vec4<f32>          16 bytes  (location 1)
//	uv           vec2<f32>           8 bytes  (location 2)
//	self_uv      vec2<f32>           8 bytes  (location 3)
//	flags        vec4<i8>            4 bytes  (location 4)
//	             texture index, type, sampler, has scissor
//	userdata     UserDataCount x vec4<f32>    (location 5..)
//	scissor      vec4<f32>          16 bytes  (last location)
type Vertex struct {
	Color        [4]float32
	Position     [4]float32
	UV           [2]float32
	SelfUV       [2]float32
	TextureIndex int8
	Type         uint8
	Sampler      uint8
	HasScissor   uint8
	UserData     [UserDataCount][4]float32
	Scissor      [4]float32
}

// Byte offsets of each attribute.
const (
	offColor    = 0
	offPosition = 16
	offUV       = 32
	offSelfUV   = 40
	offFlags    = 48
	offUserData = 52
	offScissor  = offUserData + 16*UserDataCount
)

// Size is the encoded size of one Vertex in bytes.
const Size = offScissor + 16

// PerQuad is the number of vertices emitted for one quad.
const PerQuad = 4

// IndicesPerQuad is the number of indices drawn for one quad.
const IndicesPerQuad = 6

// Put encodes v into buf, which must hold at least Size bytes.
func Put(buf []byte, v *Vertex) {
	_ = buf[Size-1]
	putVec(buf[offColor:], v.Color[:])
	putVec(buf[offPosition:], v.Position[:])
	putVec(buf[offUV:], v.UV[:])
	putVec(buf[offSelfUV:], v.SelfUV[:])
	buf[offFlags+0] = byte(v.TextureIndex)
	buf[offFlags+1] = v.Type
	buf[offFlags+2] = v.Sampler
	buf[offFlags+3] = v.HasScissor
	for i := range v.UserData {
		putVec(buf[offUserData+16*i:], v.UserData[i][:])
	}
	putVec(buf[offScissor:], v.Scissor[:])
}

// Get decodes a vertex previously written by Put.
func Get(buf []byte) Vertex {
	_ = buf[Size-1]
	var v Vertex
	getVec(buf[offColor:], v.Color[:])
	getVec(buf[offPosition:], v.Position[:])
	getVec(buf[offUV:], v.UV[:])
	getVec(buf[offSelfUV:], v.SelfUV[:])
	v.TextureIndex = int8(buf[offFlags+0])
	v.Type = buf[offFlags+1]
	v.Sampler = buf[offFlags+2]
	v.HasScissor = buf[offFlags+3]
	for i := range v.UserData {
		getVec(buf[offUserData+16*i:], v.UserData[i][:])
	}
	getVec(buf[offScissor:], v.Scissor[:])
	return v
}

func putVec(buf []byte, v []float32) {
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
}

func getVec(buf []byte, v []float32) {
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
}

// Layout returns the vertex buffer layout matching the quad shader input.
func Layout() []gputypes.VertexBufferLayout {
	attrs := []gputypes.VertexAttribute{
		{Format: gputypes.VertexFormatFloat32x4, Offset: offColor, ShaderLocation: 0},
		{Format: gputypes.VertexFormatFloat32x4, Offset: offPosition, ShaderLocation: 1},
		{Format: gputypes.VertexFormatFloat32x2, Offset: offUV, ShaderLocation: 2},
		{Format: gputypes.VertexFormatFloat32x2, Offset: offSelfUV, ShaderLocation: 3},
		{Format: gputypes.VertexFormatSint8x4, Offset: offFlags, ShaderLocation: 4},
	}
	loc := uint32(5)
	for i := 0; i < UserDataCount; i++ {
		attrs = append(attrs, gputypes.VertexAttribute{
			Format:         gputypes.VertexFormatFloat32x4,
			Offset:         uint64(offUserData + 16*i),
			ShaderLocation: loc,
		})
		loc++
	}
	attrs = append(attrs, gputypes.VertexAttribute{
		Format: gputypes.VertexFormatFloat32x4, Offset: offScissor, ShaderLocation: loc,
	})
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: Size,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes:  attrs,
		},
	}
}

// QuadCapacity returns how many whole quads fit in a vertex buffer of the
// given byte size.
func QuadCapacity(bufferBytes uint64) int {
	return int(bufferBytes / Size / PerQuad) //nolint:gosec // buffer sizes fit in int
}

// IndexCount returns the number of indices needed to draw every quad that
// fits in a vertex buffer of the given byte size.
func IndexCount(bufferBytes uint64) int {
	return QuadCapacity(bufferBytes) * IndicesPerQuad
}

// QuadIndices returns the index pattern {0,1,2, 0,2,3} repeated for each
// quad with a base of 4*i.
func QuadIndices(quads int) []uint32 {
	idx := make([]uint32, 0, quads*IndicesPerQuad)
	for i := 0; i < quads; i++ {
		base := uint32(i * PerQuad) //nolint:gosec // quad count bounded by buffer size
		idx = append(idx, base, base+1, base+2, base, base+2, base+3)
	}
	return idx
}

// QuadIndexBytes returns QuadIndices encoded as little-endian uint32.
func QuadIndexBytes(quads int) []byte {
	idx := QuadIndices(quads)
	buf := make([]byte, len(idx)*4)
	for i, v := range idx {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	return buf
}
