// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package recorder

import (
	"errors"
	"image"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/quads/backend"
	"github.com/gogpu/quads/render"
)

func TestWriteTextureRegion(t *testing.T) {
	d := New(8, 8)
	tex, err := d.CreateTexture(&render.TextureDescriptor{Width: 4, Height: 4, Format: gputypes.TextureFormatR8Unorm})
	if err != nil {
		t.Fatalf("CreateTexture() error = %v", err)
	}
	if err := d.WriteTexture(tex, image.Rect(1, 2, 3, 4), []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("WriteTexture() error = %v", err)
	}
	px := tex.(*Texture).Pixels
	if px[2*4+1] != 1 || px[2*4+2] != 2 || px[3*4+1] != 3 || px[3*4+2] != 4 {
		t.Errorf("pixels = %v", px)
	}
	if err := d.WriteTexture(tex, image.Rect(0, 0, 2, 2), []byte{1}); err == nil {
		t.Error("WriteTexture() accepted a short upload")
	}
}

func TestDrawIndexedSnapshotsState(t *testing.T) {
	d := New(8, 8)
	vb, _ := d.CreateBuffer(&render.BufferDescriptor{Usage: render.BufferUsageVertex, Size: 64})
	d.SetVertexBuffer(vb, 16)
	d.SetViewport(8, 8)

	if err := d.DrawIndexed(6); err != nil {
		t.Fatalf("DrawIndexed() error = %v", err)
	}
	if err := d.WriteBuffer(vb, []byte{9}); err != nil {
		t.Fatal(err)
	}

	draw := d.Draws[0]
	if draw.Quads() != 1 || len(draw.Vertices) != 64 {
		t.Errorf("draw = %d quads, %d vertex bytes, want 1 and 64", draw.Quads(), len(draw.Vertices))
	}
	if draw.Vertices[0] != 0 {
		t.Error("recorded vertices alias the live buffer")
	}
	if err := d.DrawIndexed(12); err == nil {
		t.Error("DrawIndexed() read past the vertex buffer")
	}
}

func TestFailInjection(t *testing.T) {
	d := New(8, 8)
	d.Fail = map[Op]bool{OpPresent: true}
	if err := d.Present(); !errors.Is(err, ErrInjected) {
		t.Errorf("Present() error = %v, want ErrInjected", err)
	}
	if d.Presents != 0 {
		t.Errorf("Presents = %d after a failed present", d.Presents)
	}
}

func TestUnbindCount(t *testing.T) {
	d := New(8, 8)
	d.SetTextures(0, make([]render.Texture, 4))
	if d.Unbinds != 1 {
		t.Errorf("Unbinds = %d, want 1", d.Unbinds)
	}
	d.Reset()
	if d.Unbinds != 0 {
		t.Errorf("Unbinds = %d after Reset", d.Unbinds)
	}
}

func TestRegistered(t *testing.T) {
	dev, err := backend.Open(backend.BackendRecorder, backend.Config{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if w, h := dev.Window().PixelSize(); w != defaultWidth || h != defaultHeight {
		t.Errorf("window = %dx%d, want the default size", w, h)
	}
}
