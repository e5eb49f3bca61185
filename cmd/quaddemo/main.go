// Command quaddemo renders a YAML scene with the quads renderer and saves
// the window as a PNG.
//
//	quaddemo -scene scene.yaml -out out.png [-log file] [-capture file] [-backend wgpu] [-v]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gogpu/gputypes"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/gogpu/quads"
	"github.com/gogpu/quads/backend"
	_ "github.com/gogpu/quads/backend/wgpu"
	"github.com/gogpu/quads/capture"
	"github.com/gogpu/quads/render"
	_ "github.com/gogpu/quads/render/recorder"
)

func init() {
	// The renderer belongs to the thread that created it.
	runtime.LockOSThread()
}

var errNoReadback = errors.New("backend cannot read the window back")

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "quaddemo:", err)
		os.Exit(1)
	}
}

type flags struct {
	scene   string
	out     string
	logFile string
	capture string
	backend string
	verbose bool
}

func parseFlags(args []string, stderr io.Writer) (*flags, error) {
	fs := flag.NewFlagSet("quaddemo", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var fl flags
	fs.StringVar(&fl.scene, "scene", "scene.yaml", "scene file")
	fs.StringVar(&fl.out, "out", "out.png", "output PNG; empty skips read back")
	fs.StringVar(&fl.logFile, "log", "", "rotating JSON log file; default logs text to stderr")
	fs.StringVar(&fl.capture, "capture", "", "write a frame capture of all layers")
	fs.StringVar(&fl.backend, "backend", "", fmt.Sprintf("device backend %v; default picks the best", backend.Available()))
	fs.BoolVar(&fl.verbose, "v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return &fl, nil
}

// newLogger returns the demo's logger and a function that flushes it.
func newLogger(fl *flags, stderr io.Writer) (*slog.Logger, func()) {
	level := slog.LevelInfo
	if fl.verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if fl.logFile == "" {
		return slog.New(slog.NewTextHandler(stderr, opts)), func() {}
	}
	w := &lumberjack.Logger{
		Filename:   fl.logFile,
		MaxSize:    16, // MB
		MaxBackups: 2,
	}
	return slog.New(slog.NewJSONHandler(w, opts)), func() { _ = w.Close() }
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	fl, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	log, closeLog := newLogger(fl, stderr)
	defer closeLog()
	quads.SetLogger(log)
	defer quads.SetLogger(nil)

	s, err := LoadScene(fl.scene)
	if err != nil {
		return err
	}

	cfg := backend.Config{Width: s.Width, Height: s.Height, ClearColor: gpuColor(s.Clear.Or(quads.Black))}
	var dev render.Device
	name := fl.backend
	if name == "" {
		dev, name, err = backend.Default(cfg)
	} else {
		dev, err = backend.Open(name, cfg)
	}
	if err != nil {
		return err
	}
	defer backend.Close(dev)
	log.Info("opened device", slog.String("backend", name))

	start := time.Now()
	r, err := quads.NewRenderer(dev)
	if err != nil {
		return err
	}
	defer r.Close()

	assets, err := LoadAssets(ctx, r, s, log)
	if err != nil {
		return err
	}
	defer assets.Destroy()

	frames, err := BuildFrames(ctx, s, assets)
	if err != nil {
		return err
	}

	if fl.capture != "" {
		if err := writeCapture(fl.capture, merge(s, frames), assets); err != nil {
			return err
		}
		log.Info("wrote capture", slog.String("path", fl.capture))
	}

	if err := r.ClearTarget(nil, s.Clear.Or(quads.Black)); err != nil {
		return err
	}
	var stats quads.Stats
	for i, f := range frames {
		if err := r.Render(f, nil); err != nil {
			return fmt.Errorf("layer %q: %w", s.Layers[i].Name, err)
		}
		st := r.Stats()
		stats.DrawCalls += st.DrawCalls
		stats.Quads += st.Quads
		log.Debug("rendered layer", slog.String("layer", s.Layers[i].Name),
			slog.Int("quads", f.Len()), slog.Int("draws", st.DrawCalls))
	}

	if fl.out != "" {
		img, err := readWindow(dev)
		if err != nil {
			return err
		}
		if err := imaging.Save(img, fl.out); err != nil {
			return err
		}
		log.Info("wrote image", slog.String("path", fl.out))
	}

	if err := r.EndFrame(quads.NewFrame(0)); err != nil {
		return err
	}
	log.Info("frame done",
		slog.Int("layers", len(frames)),
		slog.Int("quads", stats.Quads),
		slog.Int("draws", stats.DrawCalls),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

// readWindow reads the window of backends that support it.
func readWindow(dev render.Device) (*image.RGBA, error) {
	rd, ok := dev.(interface{ ReadWindow() (*image.RGBA, error) })
	if !ok {
		return nil, errNoReadback
	}
	return rd.ReadWindow()
}

func writeCapture(path string, f *quads.Frame, a *Assets) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := capture.Write(out, f, a.Name); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func gpuColor(c quads.Color) gputypes.Color {
	return gputypes.Color{R: float64(c.R), G: float64(c.G), B: float64(c.B), A: float64(c.A)}
}
