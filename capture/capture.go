package capture

import (
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/gogpu/quads"
)

// Version is the capture format version written by Write.
const Version = 1

// magic starts every capture stream.
const magic = "quadcap"

var (
	// ErrCaptureVersion is returned by Read for streams written by an
	// unsupported format version.
	ErrCaptureVersion = errors.New("capture: unsupported version")

	// ErrNotCapture is returned by Read when the stream is not a capture.
	ErrNotCapture = errors.New("capture: not a frame capture")

	// ErrUnnamedImage is returned by Write when names returns "" for an
	// image the frame references.
	ErrUnnamedImage = errors.New("capture: image has no name")

	// ErrUnknownImage is returned by Replay when lookup cannot resolve a
	// recorded image name.
	ErrUnknownImage = errors.New("capture: unknown image")

	// ErrBadDepth is returned by Replay for a recorded quad whose depth is
	// outside [quads.MinZ, quads.MaxZ].
	ErrBadDepth = errors.New("capture: depth out of range")
)

// header precedes the recording so readers can reject newer formats
// before decoding the body.
type header struct {
	Magic   string `msgpack:"magic"`
	Version int    `msgpack:"version"`
}

// Quad is the recorded form of a quads.Quad. Images are referenced by
// name.
type Quad struct {
	Corners    [4][2]float32                   `msgpack:"corners"`
	Color      [4]float32                      `msgpack:"color"`
	Image      string                          `msgpack:"image,omitempty"`
	UV         [4]float32                      `msgpack:"uv"`
	MinFilter  uint8                           `msgpack:"min"`
	MagFilter  uint8                           `msgpack:"mag"`
	Z          int32                           `msgpack:"z"`
	Type       uint8                           `msgpack:"type"`
	UserData   [quads.UserDataCount][4]float32 `msgpack:"user"`
	Scissor    [4]float32                      `msgpack:"scissor,omitempty"`
	HasScissor bool                            `msgpack:"has_scissor,omitempty"`
}

// Recording is one captured frame.
type Recording struct {
	ZSort bool   `msgpack:"zsort"`
	Quads []Quad `msgpack:"quads"`

	// Bound holds the bound image names by slot; "" is an empty slot.
	Bound [quads.MaxBoundImages]string `msgpack:"bound"`

	// Constants is the shader extension constant buffer. The extension
	// itself is not captured.
	Constants []byte `msgpack:"constants,omitempty"`
}

// Record converts f into a Recording. names maps every image the frame
// references to a stable name.
func Record(f *quads.Frame, names func(*quads.Image) string) (*Recording, error) {
	name := func(img *quads.Image) (string, error) {
		if img == nil {
			return "", nil
		}
		n := names(img)
		if n == "" {
			return "", fmt.Errorf("%w: %dx%d", ErrUnnamedImage, img.Width(), img.Height())
		}
		return n, nil
	}

	rec := &Recording{
		ZSort:     f.ZSorting(),
		Quads:     make([]Quad, 0, f.Len()),
		Constants: append([]byte(nil), f.ShaderConstants()...),
	}
	for slot := range rec.Bound {
		n, err := name(f.BoundImage(slot))
		if err != nil {
			return nil, err
		}
		rec.Bound[slot] = n
	}
	for _, q := range f.Quads() {
		n, err := name(q.Image)
		if err != nil {
			return nil, err
		}
		rec.Quads = append(rec.Quads, fromQuad(q, n))
	}
	return rec, nil
}

// Write captures f to w as a zstd compressed msgpack stream.
func Write(w io.Writer, f *quads.Frame, names func(*quads.Image) string) error {
	rec, err := Record(f, names)
	if err != nil {
		return err
	}
	return rec.Write(w)
}

// Write encodes the recording to w.
func (rec *Recording) Write(w io.Writer) error {
	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("capture: create zstd writer: %w", err)
	}
	defer zw.Close()

	enc := msgpack.NewEncoder(zw)
	if err := enc.Encode(header{Magic: magic, Version: Version}); err != nil {
		return fmt.Errorf("capture: encode header: %w", err)
	}
	if err := enc.Encode(rec); err != nil {
		return fmt.Errorf("capture: encode frame: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("capture: close zstd writer: %w", err)
	}
	return nil
}

// Read decodes a capture written by Write.
func Read(r io.Reader) (*Recording, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("capture: create zstd reader: %w", err)
	}
	defer zr.Close()

	dec := msgpack.NewDecoder(zr)
	var h header
	if err := dec.Decode(&h); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotCapture, err)
	}
	if h.Magic != magic {
		return nil, ErrNotCapture
	}
	if h.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrCaptureVersion, h.Version)
	}

	rec := new(Recording)
	if err := dec.Decode(rec); err != nil {
		return nil, fmt.Errorf("capture: decode frame: %w", err)
	}
	return rec, nil
}

// Replay appends the recorded quads to f and restores its sorting and
// bound images. lookup resolves recorded image names. The constant buffer
// is applied only when f already has a shader extension.
func (rec *Recording) Replay(f *quads.Frame, lookup func(string) *quads.Image) error {
	resolve := func(name string) (*quads.Image, error) {
		if name == "" {
			return nil, nil
		}
		img := lookup(name)
		if img == nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownImage, name)
		}
		return img, nil
	}

	// Resolve and validate everything before touching f so a failed replay
	// leaves it unchanged.
	var bound [quads.MaxBoundImages]*quads.Image
	for slot, name := range rec.Bound {
		img, err := resolve(name)
		if err != nil {
			return err
		}
		bound[slot] = img
	}
	out := make([]quads.Quad, len(rec.Quads))
	for i := range rec.Quads {
		if z := rec.Quads[i].Z; z < quads.MinZ || z > quads.MaxZ {
			return fmt.Errorf("%w: quad %d has z %d", ErrBadDepth, i, z)
		}
		img, err := resolve(rec.Quads[i].Image)
		if err != nil {
			return err
		}
		out[i] = rec.Quads[i].toQuad(img)
	}

	f.EnableZSorting(rec.ZSort)
	for slot, img := range bound {
		f.BindImage(slot, img)
	}
	if ext := f.ShaderExtension(); ext != nil && len(rec.Constants) > 0 {
		f.SetShaderExtension(ext, rec.Constants)
	}
	for _, q := range out {
		f.Submit(q)
	}
	return nil
}

func fromQuad(q quads.Quad, image string) Quad {
	out := Quad{
		Color:      [4]float32{q.Color.R, q.Color.G, q.Color.B, q.Color.A},
		Image:      image,
		UV:         rect(q.UV),
		MinFilter:  uint8(q.MinFilter),
		MagFilter:  uint8(q.MagFilter),
		Z:          q.Z,
		Type:       uint8(q.Type),
		UserData:   q.UserData,
		HasScissor: q.HasScissor,
	}
	for i, c := range q.Corners {
		out.Corners[i] = [2]float32{c.X, c.Y}
	}
	if q.HasScissor {
		out.Scissor = rect(q.Scissor)
	}
	return out
}

func (q *Quad) toQuad(img *quads.Image) quads.Quad {
	out := quads.Quad{
		Color:      quads.Color{R: q.Color[0], G: q.Color[1], B: q.Color[2], A: q.Color[3]},
		Image:      img,
		UV:         quads.Rect{X1: q.UV[0], Y1: q.UV[1], X2: q.UV[2], Y2: q.UV[3]},
		MinFilter:  quads.FilterMode(q.MinFilter),
		MagFilter:  quads.FilterMode(q.MagFilter),
		Z:          q.Z,
		Type:       quads.QuadType(q.Type),
		UserData:   q.UserData,
		HasScissor: q.HasScissor,
	}
	for i, c := range q.Corners {
		out.Corners[i] = quads.Vec2{X: c[0], Y: c[1]}
	}
	if q.HasScissor {
		out.Scissor = quads.Rect{X1: q.Scissor[0], Y1: q.Scissor[1], X2: q.Scissor[2], Y2: q.Scissor[3]}
	}
	return out
}

func rect(r quads.Rect) [4]float32 {
	return [4]float32{r.X1, r.Y1, r.X2, r.Y2}
}
