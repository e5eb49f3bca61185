package quads

import (
	"fmt"
	"math/bits"

	"github.com/gogpu/quads/internal/vertex"
	"github.com/gogpu/quads/render"
)

// quadBytes is the vertex buffer space one quad takes.
const quadBytes = vertex.Size * vertex.PerQuad

// nextPow2 returns the smallest power of two >= n (1 for n == 0).
func nextPow2(n uint64) uint64 {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len64(n-1)
}

// arena is the CPU staging area vertices are expanded into between
// flushes. cursor counts bytes written.
type arena struct {
	data   []byte
	cursor int
}

func (a *arena) reset() { a.cursor = 0 }

// writeQuad appends four encoded vertices. Indexing panics if the arena
// was not sized for the frame.
func (a *arena) writeQuad(corners *[4]vertex.Vertex) {
	for i := range corners {
		vertex.Put(a.data[a.cursor:a.cursor+vertex.Size], &corners[i])
		a.cursor += vertex.Size
	}
}

func (a *arena) quads() int { return a.cursor / quadBytes }

func (a *arena) bytes() []byte { return a.data[:a.cursor] }

// bufferManager owns the GPU vertex and index buffers and the staging
// arena. Capacity only grows, always to a power of two.
type bufferManager struct {
	dev      render.Device
	capacity uint64 // vertex buffer bytes
	vbo      render.Buffer
	ibo      render.Buffer
	staging  arena
}

// ensure grows the buffers so that at least required vertex bytes fit.
func (m *bufferManager) ensure(required uint64) error {
	if required <= m.capacity {
		return nil
	}
	size := nextPow2(required)
	quadCount := vertex.QuadCapacity(size)

	vbo, err := m.dev.CreateBuffer(&render.BufferDescriptor{
		Label: "quad_vertices",
		Usage: render.BufferUsageVertex,
		Size:  size,
	})
	if err != nil {
		return fmt.Errorf("create vertex buffer (%d bytes): %w", size, err)
	}
	indices := vertex.QuadIndexBytes(quadCount)
	ibSize := uint64(len(indices))
	if ibSize == 0 {
		// Capacity below one quad; keep a valid non-empty buffer.
		ibSize = 4
	}
	ibo, err := m.dev.CreateBuffer(&render.BufferDescriptor{
		Label: "quad_indices",
		Usage: render.BufferUsageIndex,
		Size:  ibSize,
		Data:  indices,
	})
	if err != nil {
		m.dev.DestroyBuffer(vbo)
		return fmt.Errorf("create index buffer (%d indices): %w", quadCount*vertex.IndicesPerQuad, err)
	}

	Logger().Debug("grew quad vertex buffer",
		"old_bytes", m.capacity, "new_bytes", size, "quads", quadCount)

	m.release()
	m.vbo, m.ibo = vbo, ibo
	m.capacity = size
	m.staging = arena{data: make([]byte, size)}
	return nil
}

// indexCount is the number of indices in the current index buffer.
func (m *bufferManager) indexCount() int {
	return vertex.IndexCount(m.capacity)
}

func (m *bufferManager) release() {
	if m.ibo != nil {
		m.dev.DestroyBuffer(m.ibo)
		m.ibo = nil
	}
	if m.vbo != nil {
		m.dev.DestroyBuffer(m.vbo)
		m.vbo = nil
	}
}
