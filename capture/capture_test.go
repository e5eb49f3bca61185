package capture

import (
	"bytes"
	"errors"
	"runtime"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/gogpu/quads"
	"github.com/gogpu/quads/render/recorder"
)

// testImages creates two named images on a recorder-backed renderer.
func testImages(t *testing.T) (names func(*quads.Image) string, lookup func(string) *quads.Image, a, b *quads.Image) {
	t.Helper()
	runtime.LockOSThread()
	t.Cleanup(runtime.UnlockOSThread)

	r, err := quads.NewRenderer(recorder.New(64, 64))
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	t.Cleanup(r.Close)

	a, err = r.NewImage(2, 2, 4, make([]byte, 16), false)
	if err != nil {
		t.Fatalf("NewImage() error = %v", err)
	}
	b, err = r.NewImage(4, 4, 1, make([]byte, 16), false)
	if err != nil {
		t.Fatalf("NewImage() error = %v", err)
	}

	byImage := map[*quads.Image]string{a: "sprite", b: "mask"}
	byName := map[string]*quads.Image{"sprite": a, "mask": b}
	return func(img *quads.Image) string { return byImage[img] },
		func(name string) *quads.Image { return byName[name] },
		a, b
}

func sampleFrame(a, b *quads.Image) *quads.Frame {
	f := quads.NewFrame(4)
	f.EnableZSorting(true)
	f.BindImage(2, b)

	px := quads.Ortho(64, 64)
	f.Submit(quads.RectQuad(px, quads.Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}, quads.RGBA(255, 0, 0, 255), 5))
	img := quads.ImageQuad(px, quads.Rect{X1: 10, Y1: 10, X2: 30, Y2: 20}, a, quads.Rect{X1: 0, Y1: 1, X2: 1, Y2: 0}, quads.White, -3)
	img.UserData[quads.UserDataCount-1] = [4]float32{1, 2, 3, 4}
	img.Scissor = quads.Rect{X1: 1, Y1: 2, X2: 30, Y2: 40}
	img.HasScissor = true
	f.Submit(img)
	f.Submit(quads.CircleQuad(px, quads.Vec2{X: 32, Y: 32}, 8, quads.Black, 0))
	return f
}

func TestWriteReadReplay(t *testing.T) {
	names, lookup, a, b := testImages(t)
	src := sampleFrame(a, b)

	var buf bytes.Buffer
	if err := Write(&buf, src, names); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	rec, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(rec.Quads) != 3 {
		t.Fatalf("recorded quads = %d, want 3", len(rec.Quads))
	}
	if rec.Bound[2] != "mask" || rec.Quads[1].Image != "sprite" {
		t.Errorf("image names = %q, %q, want mask, sprite", rec.Bound[2], rec.Quads[1].Image)
	}

	dst := quads.NewFrame(0)
	if err := rec.Replay(dst, lookup); err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	if !dst.ZSorting() {
		t.Error("Replay() did not restore z sorting")
	}
	if dst.BoundImage(2) != b {
		t.Error("Replay() did not restore bound image 2")
	}
	if dst.Len() != src.Len() {
		t.Fatalf("replayed quads = %d, want %d", dst.Len(), src.Len())
	}
	for i := range src.Quads() {
		if got, want := dst.Quads()[i], src.Quads()[i]; got != want {
			t.Errorf("quad %d = %+v, want %+v", i, got, want)
		}
	}
}

func TestWriteUnnamedImage(t *testing.T) {
	_, _, a, b := testImages(t)
	err := Write(new(bytes.Buffer), sampleFrame(a, b), func(*quads.Image) string { return "" })
	if !errors.Is(err, ErrUnnamedImage) {
		t.Errorf("Write() error = %v, want ErrUnnamedImage", err)
	}
}

func TestReplayUnknownImage(t *testing.T) {
	names, _, a, b := testImages(t)
	rec, err := Record(sampleFrame(a, b), names)
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	dst := quads.NewFrame(0)
	err = rec.Replay(dst, func(string) *quads.Image { return nil })
	if !errors.Is(err, ErrUnknownImage) {
		t.Fatalf("Replay() error = %v, want ErrUnknownImage", err)
	}
	if dst.Len() != 0 || dst.ZSorting() {
		t.Error("failed Replay() modified the frame")
	}
}

func TestReplayBadDepth(t *testing.T) {
	names, lookup, a, b := testImages(t)
	rec, err := Record(sampleFrame(a, b), names)
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	for _, z := range []int32{quads.MaxZ + 1, quads.MinZ - 1} {
		rec.Quads[2].Z = z
		dst := quads.NewFrame(0)
		if err := rec.Replay(dst, lookup); !errors.Is(err, ErrBadDepth) {
			t.Fatalf("Replay(z=%d) error = %v, want ErrBadDepth", z, err)
		}
		if dst.Len() != 0 || dst.ZSorting() || dst.BoundImage(2) != nil {
			t.Errorf("failed Replay(z=%d) modified the frame", z)
		}
	}
}

func TestReadVersion(t *testing.T) {
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if err := msgpack.NewEncoder(zw).Encode(header{Magic: magic, Version: Version + 1}); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	if _, err := Read(&buf); !errors.Is(err, ErrCaptureVersion) {
		t.Errorf("Read() error = %v, want ErrCaptureVersion", err)
	}
}

func TestReadNotCapture(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"garbage", []byte("definitely not zstd")},
		{"empty", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Read(bytes.NewReader(tt.data)); err == nil {
				t.Error("Read() succeeded")
			}
		})
	}
}

func TestReadWrongMagic(t *testing.T) {
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if err := msgpack.NewEncoder(zw).Encode(header{Magic: "other", Version: Version}); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	if _, err := Read(&buf); !errors.Is(err, ErrNotCapture) {
		t.Errorf("Read() error = %v, want ErrNotCapture", err)
	}
}

func TestRecordConstants(t *testing.T) {
	f := quads.NewFrame(0)
	f.SetShaderExtension(nil, []byte{1, 2, 3, 4})
	rec, err := Record(f, func(*quads.Image) string { return "" })
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if !bytes.Equal(rec.Constants, []byte{1, 2, 3, 4}) {
		t.Errorf("Constants = %v", rec.Constants)
	}
}
