package main

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/quads"
	"github.com/gogpu/quads/text"
)

// uprightUV shows a top-down Go image the right way up.
var uprightUV = quads.Rect{X1: 0, Y1: 1, X2: 1, Y2: 0}

// BuildFrames fills one frame per layer. Layers are built concurrently;
// building touches no GPU state.
func BuildFrames(ctx context.Context, s *Scene, a *Assets) ([]*quads.Frame, error) {
	frames := make([]*quads.Frame, len(s.Layers))
	g, ctx := errgroup.WithContext(ctx)
	for i := range s.Layers {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			frames[i] = buildLayer(s, &s.Layers[i], a)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return frames, nil
}

func buildLayer(s *Scene, l *Layer, a *Assets) *quads.Frame {
	n := len(l.Rects) + len(l.Circles) + len(l.Sprites)
	for _, t := range l.Text {
		n += len(t.Text)
	}
	f := quads.NewFrame(n)
	f.EnableZSorting(s.ZSort)
	for slot, name := range l.Bind {
		f.BindImage(slot, a.Images[name])
	}

	px := quads.Ortho(s.Width, s.Height)
	for _, r := range l.Rects {
		f.Submit(quads.RectQuad(px, rect(r.Rect), r.Color.Or(quads.White), r.Z))
	}
	for _, c := range l.Circles {
		center := quads.Vec2{X: c.Center[0], Y: c.Center[1]}
		f.Submit(quads.CircleQuad(px, center, c.Radius, c.Color.Or(quads.White), c.Z))
	}
	for _, sp := range l.Sprites {
		f.Submit(sprite(px, sp, a.Images[sp.Image]))
	}
	if a.Atlas != nil {
		for _, t := range l.Text {
			a.Atlas.Draw(f, px, t.Text, t.At[0], t.At[1], text.DrawOptions{
				Color:  t.Color.Or(quads.White),
				Z:      t.Z,
				Scale:  t.Scale,
				Shaper: a.Shaper,
			})
		}
	}
	return f
}

func sprite(px quads.Transform, sp SpriteItem, img *quads.Image) quads.Quad {
	r := rect(sp.Rect)
	m := px
	if sp.Rotate != 0 {
		cx, cy := (r.X1+r.X2)/2, (r.Y1+r.Y2)/2
		m = px.Multiply(quads.Translate(cx, cy)).
			Multiply(quads.Rotate(sp.Rotate * math.Pi / 180)).
			Multiply(quads.Translate(-cx, -cy))
	}
	uv := uprightUV
	if sp.UV != nil {
		uv = rect(*sp.UV)
	}
	q := quads.ImageQuad(m, r, img, uv, sp.Color.Or(quads.White), sp.Z)
	if sp.Nearest {
		q.MinFilter, q.MagFilter = quads.FilterNearest, quads.FilterNearest
	}
	return q
}

func rect(v [4]float32) quads.Rect {
	return quads.Rect{X1: v[0], Y1: v[1], X2: v[2], Y2: v[3]}
}

// merge concatenates frames for capture.
func merge(s *Scene, frames []*quads.Frame) *quads.Frame {
	n := 0
	for _, f := range frames {
		n += f.Len()
	}
	out := quads.NewFrame(n)
	out.EnableZSorting(s.ZSort)
	for _, f := range frames {
		for _, q := range f.Quads() {
			out.Submit(q)
		}
	}
	if len(frames) > 0 {
		for slot := range quads.MaxBoundImages {
			out.BindImage(slot, frames[0].BoundImage(slot))
		}
	}
	return out
}
