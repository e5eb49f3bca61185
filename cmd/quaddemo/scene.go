package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/quads"
)

// Scene is the YAML description of what the demo draws. Coordinates are
// window pixels with the origin at the bottom-left corner.
type Scene struct {
	Width  int   `yaml:"width"`
	Height int   `yaml:"height"`
	Clear  Color `yaml:"clear"`
	ZSort  bool  `yaml:"zsort"`

	Font   FontSpec    `yaml:"font"`
	Images []ImageSpec `yaml:"images"`
	Layers []Layer     `yaml:"layers"`

	// dir resolves relative image and font paths.
	dir string
}

// FontSpec selects the text face. An empty path uses the built-in 7x13
// bitmap face.
type FontSpec struct {
	Path     string  `yaml:"path"`
	Size     float64 `yaml:"size"`
	Harfbuzz bool    `yaml:"harfbuzz"`
	Runes    string  `yaml:"runes"`
}

// ImageSpec loads one image file.
type ImageSpec struct {
	Name   string `yaml:"name"`
	Path   string `yaml:"path"`
	Resize [2]int `yaml:"resize"`
}

// Layer is drawn as its own frame, in scene order.
type Layer struct {
	Name    string       `yaml:"name"`
	Bind    []string     `yaml:"bind"`
	Rects   []RectItem   `yaml:"rects"`
	Circles []CircleItem `yaml:"circles"`
	Sprites []SpriteItem `yaml:"sprites"`
	Text    []TextItem   `yaml:"text"`
}

// RectItem is a solid rectangle.
type RectItem struct {
	Rect  [4]float32 `yaml:"rect"`
	Color Color      `yaml:"color"`
	Z     int32      `yaml:"z"`
}

// CircleItem is a filled circle.
type CircleItem struct {
	Center [2]float32 `yaml:"center"`
	Radius float32    `yaml:"radius"`
	Color  Color      `yaml:"color"`
	Z      int32      `yaml:"z"`
}

// SpriteItem draws an image, optionally rotated about its center.
type SpriteItem struct {
	Image   string      `yaml:"image"`
	Rect    [4]float32  `yaml:"rect"`
	UV      *[4]float32 `yaml:"uv"`
	Color   Color       `yaml:"color"`
	Z       int32       `yaml:"z"`
	Rotate  float64     `yaml:"rotate"` // degrees
	Nearest bool        `yaml:"nearest"`
}

// TextItem is a string drawn from the scene font.
type TextItem struct {
	Text  string     `yaml:"text"`
	At    [2]float32 `yaml:"at"`
	Color Color      `yaml:"color"`
	Z     int32      `yaml:"z"`
	Scale float32    `yaml:"scale"`
}

// Color accepts "#rrggbb", "#rrggbbaa" or a list of three or four
// components in [0, 1]. An unset color is white.
type Color struct {
	quads.Color
	set bool
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *Color) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		v, err := parseHexColor(n.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", n.Line, err)
		}
		c.Color, c.set = v, true
		return nil
	case yaml.SequenceNode:
		var v []float32
		if err := n.Decode(&v); err != nil {
			return err
		}
		if len(v) != 3 && len(v) != 4 {
			return fmt.Errorf("line %d: color needs 3 or 4 components, got %d", n.Line, len(v))
		}
		if len(v) == 3 {
			v = append(v, 1)
		}
		c.Color, c.set = quads.Color{R: v[0], G: v[1], B: v[2], A: v[3]}, true
		return nil
	default:
		return fmt.Errorf("line %d: color must be a string or a list", n.Line)
	}
}

// Or returns c, or def when c was not set.
func (c Color) Or(def quads.Color) quads.Color {
	if !c.set {
		return def
	}
	return c.Color
}

func parseHexColor(s string) (quads.Color, error) {
	h, ok := strings.CutPrefix(s, "#")
	if !ok || (len(h) != 6 && len(h) != 8) {
		return quads.Color{}, fmt.Errorf("bad color %q", s)
	}
	if len(h) == 6 {
		h += "ff"
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return quads.Color{}, fmt.Errorf("bad color %q: %w", s, err)
	}
	return quads.RGBA(uint8(v>>24), uint8(v>>16), uint8(v>>8), uint8(v)), nil //nolint:gosec // byte extraction
}

var errScene = errors.New("invalid scene")

// LoadScene reads and validates a scene file.
func LoadScene(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := ParseScene(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.dir = filepath.Dir(path)
	return s, nil
}

// ParseScene decodes and validates a scene.
func ParseScene(data []byte) (*Scene, error) {
	s := &Scene{Width: 800, Height: 600}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, err
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scene) validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", errScene, s.Width, s.Height)
	}
	if len(s.Layers) == 0 {
		return fmt.Errorf("%w: no layers", errScene)
	}

	names := make(map[string]bool, len(s.Images))
	for _, img := range s.Images {
		if img.Name == "" || img.Path == "" {
			return fmt.Errorf("%w: image needs a name and a path", errScene)
		}
		if img.Name == fontImage {
			return fmt.Errorf("%w: image name %q is reserved", errScene, fontImage)
		}
		if names[img.Name] {
			return fmt.Errorf("%w: duplicate image %q", errScene, img.Name)
		}
		names[img.Name] = true
	}

	checkZ := func(layer string, z int32) error {
		if z < quads.MinZ || z > quads.MaxZ {
			return fmt.Errorf("%w: layer %q: z %d outside [%d, %d]", errScene, layer, z, quads.MinZ, quads.MaxZ)
		}
		return nil
	}
	for _, l := range s.Layers {
		if len(l.Bind) > quads.MaxBoundImages {
			return fmt.Errorf("%w: layer %q binds %d images, max %d", errScene, l.Name, len(l.Bind), quads.MaxBoundImages)
		}
		for _, b := range l.Bind {
			if !names[b] {
				return fmt.Errorf("%w: layer %q binds unknown image %q", errScene, l.Name, b)
			}
		}
		for _, sp := range l.Sprites {
			if !names[sp.Image] {
				return fmt.Errorf("%w: layer %q: unknown image %q", errScene, l.Name, sp.Image)
			}
			if err := checkZ(l.Name, sp.Z); err != nil {
				return err
			}
		}
		for _, r := range l.Rects {
			if err := checkZ(l.Name, r.Z); err != nil {
				return err
			}
		}
		for _, c := range l.Circles {
			if c.Radius <= 0 {
				return fmt.Errorf("%w: layer %q: circle radius %v", errScene, l.Name, c.Radius)
			}
			if err := checkZ(l.Name, c.Z); err != nil {
				return err
			}
		}
		for _, t := range l.Text {
			if err := checkZ(l.Name, t.Z); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolve returns path relative to the scene file.
func (s *Scene) resolve(path string) string {
	if filepath.IsAbs(path) || s.dir == "" {
		return path
	}
	return filepath.Join(s.dir, path)
}
