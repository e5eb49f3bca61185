package main

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/gogpu/quads"
	"github.com/gogpu/quads/backend"
	"github.com/gogpu/quads/capture"
	"github.com/gogpu/quads/render/recorder"
)

const testScene = `
width: 64
height: 48
clear: "#102030"
zsort: true
images:
  - name: checker
    path: checker.png
    resize: [8, 8]
layers:
  - name: background
    rects:
      - rect: [0, 0, 64, 48]
        color: [0.2, 0.2, 0.2]
        z: -10
    circles:
      - center: [32, 24]
        radius: 10
        color: "#ff000080"
  - name: overlay
    bind: [checker]
    sprites:
      - image: checker
        rect: [4, 4, 20, 20]
        rotate: 45
        nearest: true
    text:
      - text: "Hi"
        at: [30, 30]
        z: 5
`

// writeScene writes testScene and its image into a temporary directory.
func writeScene(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := imaging.Save(imaging.New(4, 4, color.NRGBA{R: 255, A: 255}), filepath.Join(dir, "checker.png")); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "scene.yaml")
	if err := os.WriteFile(path, []byte(testScene), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseScene(t *testing.T) {
	s, err := ParseScene([]byte(testScene))
	if err != nil {
		t.Fatalf("ParseScene() error = %v", err)
	}
	if s.Width != 64 || s.Height != 48 || !s.ZSort {
		t.Errorf("scene = %dx%d zsort=%v", s.Width, s.Height, s.ZSort)
	}
	if got, want := s.Clear.Or(quads.Black), quads.RGBA(0x10, 0x20, 0x30, 0xff); got != want {
		t.Errorf("clear = %v, want %v", got, want)
	}
	if got := s.Layers[0].Rects[0].Color.Or(quads.White); got != (quads.Color{R: 0.2, G: 0.2, B: 0.2, A: 1}) {
		t.Errorf("rect color = %v", got)
	}
	if got := s.Layers[0].Circles[0].Color.Or(quads.White); got != quads.RGBA(255, 0, 0, 0x80) {
		t.Errorf("circle color = %v", got)
	}
	if got := s.Layers[1].Text[0].Color.Or(quads.White); got != quads.White {
		t.Errorf("unset color = %v, want white", got)
	}
}

func TestParseSceneDefaults(t *testing.T) {
	s, err := ParseScene([]byte("layers: [{name: empty}]"))
	if err != nil {
		t.Fatalf("ParseScene() error = %v", err)
	}
	if s.Width != 800 || s.Height != 600 {
		t.Errorf("size = %dx%d, want 800x600", s.Width, s.Height)
	}
}

func TestParseSceneInvalid(t *testing.T) {
	tests := []struct {
		name  string
		scene string
	}{
		{"no layers", "width: 10\nheight: 10"},
		{"bad size", "width: -1\nlayers: [{name: a}]"},
		{"unknown sprite image", "layers: [{sprites: [{image: nope}]}]"},
		{"unknown bound image", "layers: [{bind: [nope]}]"},
		{"duplicate image", "images: [{name: a, path: a.png}, {name: a, path: b.png}]\nlayers: [{name: x}]"},
		{"reserved image name", "images: [{name: font, path: a.png}]\nlayers: [{name: x}]"},
		{"z out of range", "layers: [{rects: [{rect: [0,0,1,1], z: 2000000}]}]"},
		{"zero radius", "layers: [{circles: [{center: [1,1], radius: 0}]}]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseScene([]byte(tt.scene)); !errors.Is(err, errScene) {
				t.Errorf("ParseScene() error = %v, want errScene", err)
			}
		})
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{`"#ffffff"`, false},
		{`"#00000000"`, false},
		{`[1, 0, 0, 0.5]`, false},
		{`"red"`, true},
		{`"#fff"`, true},
		{`"#gggggg"`, true},
		{`[1, 0]`, true},
		{`{r: 1}`, true},
	}
	for _, tt := range tests {
		_, err := ParseScene([]byte("clear: " + tt.in + "\nlayers: [{name: a}]"))
		if (err != nil) != tt.wantErr {
			t.Errorf("clear %s: error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
	}
}

func TestBuildFrames(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	s, err := LoadScene(writeScene(t))
	if err != nil {
		t.Fatalf("LoadScene() error = %v", err)
	}
	r, err := quads.NewRenderer(recorder.New(s.Width, s.Height))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	a, err := LoadAssets(context.Background(), r, s, quads.Logger())
	if err != nil {
		t.Fatalf("LoadAssets() error = %v", err)
	}
	defer a.Destroy()
	if img := a.Images["checker"]; img == nil || img.Width() != 8 {
		t.Fatalf("checker image = %v, want resized to 8 wide", img)
	}

	frames, err := BuildFrames(context.Background(), s, a)
	if err != nil {
		t.Fatalf("BuildFrames() error = %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("frames = %d, want 2", len(frames))
	}
	if frames[0].Len() != 2 {
		t.Errorf("background quads = %d, want 2", frames[0].Len())
	}
	// One sprite and two glyphs.
	if frames[1].Len() != 3 {
		t.Errorf("overlay quads = %d, want 3", frames[1].Len())
	}
	if !frames[1].ZSorting() || frames[1].BoundImage(0) != a.Images["checker"] {
		t.Error("overlay frame lost sorting or its bound image")
	}
	sp := frames[1].Quads()[0]
	if sp.MinFilter != quads.FilterNearest || sp.Image != a.Images["checker"] {
		t.Errorf("sprite quad = %+v", sp)
	}
	if frames[1].Quads()[2].Type != quads.QuadText {
		t.Errorf("last overlay quad type = %v, want text", frames[1].Quads()[2].Type)
	}

	if err := r.Render(frames[1], nil); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	// Sprite and atlas share one draw.
	if st := r.Stats(); st.DrawCalls != 1 || st.Quads != 3 {
		t.Errorf("stats = %+v, want 1 draw of 3 quads", st)
	}
}

func TestRunRecorderCapture(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	scene := writeScene(t)
	capPath := filepath.Join(t.TempDir(), "frame.cap")
	var stderr bytes.Buffer
	err := run(context.Background(), []string{
		"-scene", scene, "-out", "", "-capture", capPath, "-backend", backend.BackendRecorder, "-v",
	}, &stderr)
	if err != nil {
		t.Fatalf("run() error = %v\n%s", err, stderr.String())
	}
	if !strings.Contains(stderr.String(), "opened device") {
		t.Errorf("log output missing device line:\n%s", stderr.String())
	}

	f, err := os.Open(capPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rec, err := capture.Read(f)
	if err != nil {
		t.Fatalf("capture.Read() error = %v", err)
	}
	if len(rec.Quads) != 5 || !rec.ZSort {
		t.Errorf("capture has %d quads zsort=%v, want 5 sorted", len(rec.Quads), rec.ZSort)
	}
	if rec.Quads[2].Image != "checker" || rec.Quads[4].Image != fontImage {
		t.Errorf("capture image names = %q, %q", rec.Quads[2].Image, rec.Quads[4].Image)
	}
}

func TestRunRecorderNoReadback(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	err := run(context.Background(), []string{
		"-scene", writeScene(t), "-out", filepath.Join(t.TempDir(), "out.png"), "-backend", backend.BackendRecorder,
	}, new(bytes.Buffer))
	if !errors.Is(err, errNoReadback) {
		t.Errorf("run() error = %v, want errNoReadback", err)
	}
}

func TestRunWGPUNoop(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	dir := t.TempDir()
	out := filepath.Join(dir, "out.png")
	logFile := filepath.Join(dir, "demo.log")
	err := run(context.Background(), []string{
		"-scene", writeScene(t), "-out", out, "-log", logFile, "-backend", backend.BackendWGPUNoop,
	}, new(bytes.Buffer))
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}

	img, err := imaging.Open(out)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
		t.Errorf("output = %dx%d, want 64x48", b.Dx(), b.Dy())
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte(`"msg":"opened device"`)) {
		t.Errorf("JSON log missing device line:\n%s", data)
	}
}

func TestRunUnknownBackend(t *testing.T) {
	err := run(context.Background(), []string{"-scene", writeScene(t), "-backend", "nope"}, new(bytes.Buffer))
	if !errors.Is(err, backend.ErrBackendNotAvailable) {
		t.Errorf("run() error = %v, want ErrBackendNotAvailable", err)
	}
}

func TestRunMissingScene(t *testing.T) {
	err := run(context.Background(), []string{"-scene", filepath.Join(t.TempDir(), "none.yaml")}, new(bytes.Buffer))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("run() error = %v, want ErrNotExist", err)
	}
}
