package main

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/quads"
	"github.com/gogpu/quads/text"
)

// fontImage names the text atlas in captures.
const fontImage = "font"

// Assets are the GPU resources a scene draws with.
type Assets struct {
	Images map[string]*quads.Image
	Atlas  *text.Atlas
	Shaper text.Shaper // nil uses the atlas face

	face font.Face
}

// Name returns the scene name of img, or "" when it is not a scene image.
func (a *Assets) Name(img *quads.Image) string {
	if a.Atlas != nil && img == a.Atlas.Image() {
		return fontImage
	}
	for name, x := range a.Images {
		if x == img {
			return name
		}
	}
	return ""
}

// Lookup is the inverse of Name.
func (a *Assets) Lookup(name string) *quads.Image {
	if name == fontImage && a.Atlas != nil {
		return a.Atlas.Image()
	}
	return a.Images[name]
}

// Destroy releases every image and the font face.
func (a *Assets) Destroy() {
	for _, img := range a.Images {
		img.Destroy()
	}
	if a.Atlas != nil {
		a.Atlas.Destroy()
	}
	if c, ok := a.face.(interface{ Close() error }); ok {
		_ = c.Close()
	}
}

// decodeImages reads and resizes the scene images concurrently.
func decodeImages(ctx context.Context, s *Scene, log *slog.Logger) ([]image.Image, error) {
	out := make([]image.Image, len(s.Images))
	g, ctx := errgroup.WithContext(ctx)
	for i, spec := range s.Images {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, err := imaging.Open(s.resolve(spec.Path))
			if err != nil {
				return fmt.Errorf("image %q: %w", spec.Name, err)
			}
			if w, h := spec.Resize[0], spec.Resize[1]; w > 0 || h > 0 {
				img = imaging.Resize(img, w, h, imaging.Lanczos)
			}
			log.Debug("decoded image", slog.String("name", spec.Name),
				slog.Int("width", img.Bounds().Dx()), slog.Int("height", img.Bounds().Dy()))
			out[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadAssets decodes the scene images and font and uploads them. It must
// run on the renderer's thread; only decoding is concurrent.
func LoadAssets(ctx context.Context, r *quads.Renderer, s *Scene, log *slog.Logger) (*Assets, error) {
	decoded, err := decodeImages(ctx, s, log)
	if err != nil {
		return nil, err
	}

	a := &Assets{Images: make(map[string]*quads.Image, len(decoded))}
	for i, src := range decoded {
		img, err := r.NewImageFromGo(src, false)
		if err != nil {
			a.Destroy()
			return nil, fmt.Errorf("upload image %q: %w", s.Images[i].Name, err)
		}
		a.Images[s.Images[i].Name] = img
	}

	if err := a.loadFont(r, s); err != nil {
		a.Destroy()
		return nil, err
	}
	return a, nil
}

func (a *Assets) loadFont(r *quads.Renderer, s *Scene) error {
	var runes []rune
	if s.Font.Runes != "" {
		runes = []rune(s.Font.Runes)
	}

	if s.Font.Path == "" {
		a.face = basicfont.Face7x13
	} else {
		data, err := os.ReadFile(s.resolve(s.Font.Path))
		if err != nil {
			return fmt.Errorf("font: %w", err)
		}
		size := s.Font.Size
		if size <= 0 {
			size = 16
		}
		f, err := opentype.Parse(data)
		if err != nil {
			return fmt.Errorf("font %s: %w", s.Font.Path, err)
		}
		a.face, err = opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
		if err != nil {
			return fmt.Errorf("font %s: %w", s.Font.Path, err)
		}
		if s.Font.Harfbuzz {
			a.Shaper, err = text.NewHarfbuzzShaper(data, size)
			if err != nil {
				return err
			}
		}
	}

	atlas, err := text.NewAtlas(r, a.face, runes)
	if err != nil {
		return fmt.Errorf("font atlas: %w", err)
	}
	a.Atlas = atlas
	return nil
}
