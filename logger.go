package quads

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for quads and its sub-packages.
// By default nothing is logged. Pass nil to restore silence.
//
// Log levels used:
//   - [slog.LevelDebug]: buffer growth, batch flushes, pipeline creation
//   - [slog.LevelInfo]: device lifecycle (adapter selected, device closed)
//   - [slog.LevelWarn]: shader compiler diagnostics, release errors
//   - [slog.LevelError]: device failures and contract violations
//
// Example:
//
//	quads.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	devicesMu.Lock()
	defer devicesMu.Unlock()
	for d := range devices {
		propagateLogger(d, l)
	}
}

// Logger returns the current logger. Sub-packages (backend/wgpu, text)
// call this to share the same configuration.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by devices that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

// devices holds the devices of live renderers so SetLogger reaches them.
var (
	devicesMu sync.Mutex
	devices   = make(map[any]struct{})
)

func trackDevice(d any) {
	devicesMu.Lock()
	devices[d] = struct{}{}
	devicesMu.Unlock()
	propagateLogger(d, Logger())
}

func untrackDevice(d any) {
	devicesMu.Lock()
	delete(devices, d)
	devicesMu.Unlock()
}

func propagateLogger(d any, l *slog.Logger) {
	if ls, ok := d.(loggerSetter); ok {
		ls.SetLogger(l)
	}
}
