package quads

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/gogpu/quads/render/recorder"
)

func TestNopHandler(t *testing.T) {
	h := nopHandler{}
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if h.Enabled(context.Background(), level) {
			t.Errorf("nopHandler.Enabled(%v) = true, want false", level)
		}
	}
	if err := h.Handle(context.Background(), slog.Record{}); err != nil {
		t.Errorf("nopHandler.Handle() = %v, want nil", err)
	}
	if _, ok := h.WithAttrs([]slog.Attr{slog.String("key", "val")}).(nopHandler); !ok {
		t.Error("nopHandler.WithAttrs() did not return nopHandler")
	}
	if _, ok := h.WithGroup("group").(nopHandler); !ok {
		t.Error("nopHandler.WithGroup() did not return nopHandler")
	}
}

func TestLoggerDefaultSilent(t *testing.T) {
	l := Logger()
	if l == nil {
		t.Fatal("Logger() returned nil")
	}
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn} {
		if l.Enabled(context.Background(), level) {
			t.Errorf("default logger should not be enabled for %v", level)
		}
	}
}

func TestSetLogger(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var buf bytes.Buffer
	custom := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	SetLogger(custom)

	if Logger() != custom {
		t.Error("Logger() did not return the custom logger set via SetLogger")
	}

	// Buffer growth is logged at debug level.
	r, _ := newTestRenderer(t, 64, 64)
	if err := r.Reserve(1000); err != nil {
		t.Fatalf("Reserve() error = %v", err)
	}
	if !strings.Contains(buf.String(), "grew quad vertex buffer") {
		t.Errorf("expected buffer growth in log, got: %s", buf.String())
	}
}

func TestSetLoggerNilRestoresSilent(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	SetLogger(slog.Default())
	SetLogger(nil)

	l := Logger()
	if l == nil {
		t.Fatal("SetLogger(nil) should set nop logger, not nil")
	}
	if l.Enabled(context.Background(), slog.LevelError) {
		t.Error("SetLogger(nil) should produce a disabled logger")
	}
}

type loggingDevice struct {
	*recorder.Device
	logger *slog.Logger
}

func (d *loggingDevice) SetLogger(l *slog.Logger) { d.logger = l }

func TestSetLoggerPropagatesToDevice(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	custom := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	SetLogger(custom)

	dev := &loggingDevice{Device: recorder.New(8, 8)}
	r, err := NewRenderer(dev, WithThreadCheck(false))
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	if dev.logger != custom {
		t.Error("NewRenderer did not hand the current logger to the device")
	}

	other := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	SetLogger(other)
	if dev.logger != other {
		t.Error("SetLogger did not propagate to a live device")
	}

	r.Close()
	SetLogger(custom)
	if dev.logger != other {
		t.Error("SetLogger reached a device after its renderer closed")
	}
}

func TestContractViolationLogged(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	mustPanic(t, CheckZRange, func() { checkZ(MaxZ + 1) })
	if !strings.Contains(buf.String(), "check=z-range") {
		t.Errorf("violation not logged: %s", buf.String())
	}
}

func TestLoggerConcurrentAccess(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var wg sync.WaitGroup
	const goroutines = 100

	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l := Logger()
			if l == nil {
				t.Error("Logger() returned nil during concurrent access")
			}
			l.Debug("concurrent read")
		}()
	}
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			SetLogger(slog.Default())
			SetLogger(nil)
		}()
	}
	wg.Wait()
}

func BenchmarkLoggerDisabledLog(b *testing.B) {
	l := Logger()
	b.ReportAllocs()
	for b.Loop() {
		l.Debug("message", "key", "value")
	}
}
