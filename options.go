package quads

// Option configures a Renderer during creation.
//
// Example:
//
//	r, err := quads.NewRenderer(dev,
//	    quads.WithReserve(1<<20),
//	    quads.WithUVNudge(0.25),
//	)
type Option func(*options)

// options holds optional configuration for Renderer creation.
type options struct {
	uvNudge     float32
	threadCheck bool
	reserve     uint64
	frameHint   int
}

// DefaultUVNudge is the default odd-size UV correction factor.
const DefaultUVNudge = 0.25

func defaultOptions() options {
	return options{
		uvNudge:     DefaultUVNudge,
		threadCheck: true,
	}
}

// WithUVNudge sets the correction applied to texture coordinates when the
// target has an odd width or height. For an odd width, u is shifted right
// by (2/imageWidth)*f; for an odd height, v is shifted down by
// (2/imageHeight)*f. Zero disables the correction.
func WithUVNudge(f float32) Option {
	return func(o *options) {
		o.uvNudge = f
	}
}

// WithThreadCheck enables or disables the owner thread assertion. It is on
// by default; callers that guarantee affinity some other way can turn it
// off.
func WithThreadCheck(enabled bool) Option {
	return func(o *options) {
		o.threadCheck = enabled
	}
}

// WithReserve grows the vertex buffer to hold at least bytes before the
// first frame.
func WithReserve(bytes uint64) Option {
	return func(o *options) {
		o.reserve = bytes
	}
}

// WithFrameHint presizes internal per-frame scratch for n quads.
func WithFrameHint(n int) Option {
	return func(o *options) {
		o.frameHint = n
	}
}
