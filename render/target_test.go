// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"image"
	"image/color"
	"testing"

	"github.com/gogpu/gputypes"
)

func TestNewPixmapTarget(t *testing.T) {
	tests := []struct {
		name   string
		width  int
		height int
	}{
		{"small", 16, 16},
		{"window", 800, 600},
		{"wide", 1000, 10},
		{"tall", 10, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := NewPixmapTarget(tt.width, tt.height)

			if target.Width() != tt.width {
				t.Errorf("Width() = %d, want %d", target.Width(), tt.width)
			}
			if target.Height() != tt.height {
				t.Errorf("Height() = %d, want %d", target.Height(), tt.height)
			}
			if target.Format() != gputypes.TextureFormatRGBA8Unorm {
				t.Errorf("Format() = %v, want RGBA8Unorm", target.Format())
			}
			if target.TextureView() != nil {
				t.Error("TextureView() should be nil for CPU target")
			}
			if len(target.Pixels()) != tt.width*tt.height*4 {
				t.Errorf("len(Pixels()) = %d, want %d", len(target.Pixels()), tt.width*tt.height*4)
			}
			if target.Stride() != tt.width*4 {
				t.Errorf("Stride() = %d, want %d", target.Stride(), tt.width*4)
			}
		})
	}
}

func TestPixmapTargetFromImageSharesMemory(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 20, 10))
	img.SetRGBA(5, 5, color.RGBA{255, 0, 0, 255})

	target := NewPixmapTargetFromImage(img)
	if got := target.GetPixel(5, 5); got != (color.RGBA{255, 0, 0, 255}) {
		t.Errorf("GetPixel(5, 5) = %v, want red", got)
	}
	if target.Image() != img {
		t.Error("Image() should return the wrapped image")
	}
}

func TestPixmapTargetClear(t *testing.T) {
	for _, size := range []image.Point{{1, 1}, {3, 7}, {10, 10}} {
		target := NewPixmapTarget(size.X, size.Y)
		target.Clear(color.NRGBA{R: 10, G: 20, B: 30, A: 255})
		for y := 0; y < size.Y; y++ {
			for x := 0; x < size.X; x++ {
				if got := target.GetPixel(x, y); got != (color.RGBA{10, 20, 30, 255}) {
					t.Fatalf("%v: pixel (%d,%d) = %v after Clear", size, x, y, got)
				}
			}
		}
	}
}

func TestPixmapTargetResize(t *testing.T) {
	target := NewPixmapTarget(800, 600)
	before := target.Image()

	target.Resize(800, 600)
	if target.Image() != before {
		t.Error("Resize to the same size should keep the image")
	}

	target.Resize(400, 300)
	if target.Width() != 400 || target.Height() != 300 {
		t.Errorf("after Resize: %dx%d, want 400x300", target.Width(), target.Height())
	}
}

type fakeView struct{ destroyed bool }

func (v *fakeView) Destroy() { v.destroyed = true }

func TestSurfaceTarget(t *testing.T) {
	view := &fakeView{}
	target := NewSurfaceTarget(640, 480, gputypes.TextureFormatBGRA8Unorm, view)

	if target.Width() != 640 || target.Height() != 480 {
		t.Errorf("size = %dx%d, want 640x480", target.Width(), target.Height())
	}
	if target.Format() != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("Format() = %v, want BGRA8Unorm", target.Format())
	}
	if target.TextureView() != view {
		t.Error("TextureView() should return the wrapped view")
	}
	if target.Pixels() != nil || target.Stride() != 0 {
		t.Error("surface targets have no CPU pixels")
	}
}
