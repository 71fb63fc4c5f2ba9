// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"image"
	"image/color"

	"github.com/gogpu/gputypes"
)

// RenderTarget is the output of a composite.
//
// Targets expose CPU pixels (Pixels), a GPU texture view (TextureView), or
// both. The compositor picks the GPU backend when a view is present and
// the software path when pixels are.
type RenderTarget interface {
	// Width returns the target width in pixels.
	Width() int

	// Height returns the target height in pixels.
	Height() int

	// Format returns the pixel format of the target.
	Format() gputypes.TextureFormat

	// TextureView returns the GPU view to render into, or nil.
	TextureView() TextureView

	// Pixels returns RGBA bytes for CPU access, or nil.
	Pixels() []byte

	// Stride returns the number of bytes per row of Pixels.
	Stride() int
}

// TextureView is a GPU texture view. hal.TextureView satisfies it.
type TextureView interface {
	Destroy()
}

// PixmapTarget is a CPU-backed render target using *image.RGBA.
type PixmapTarget struct {
	img *image.RGBA
}

// NewPixmapTarget creates a new CPU-backed render target.
func NewPixmapTarget(width, height int) *PixmapTarget {
	return &PixmapTarget{img: image.NewRGBA(image.Rect(0, 0, width, height))}
}

// NewPixmapTargetFromImage wraps img without copying.
func NewPixmapTargetFromImage(img *image.RGBA) *PixmapTarget {
	return &PixmapTarget{img: img}
}

func (t *PixmapTarget) Width() int { return t.img.Bounds().Dx() }

func (t *PixmapTarget) Height() int { return t.img.Bounds().Dy() }

// Format returns RGBA8.
func (t *PixmapTarget) Format() gputypes.TextureFormat {
	return gputypes.TextureFormatRGBA8Unorm
}

// TextureView returns nil as this is a CPU-only target.
func (t *PixmapTarget) TextureView() TextureView { return nil }

func (t *PixmapTarget) Pixels() []byte { return t.img.Pix }

func (t *PixmapTarget) Stride() int { return t.img.Stride }

// Image returns the underlying image. It shares memory with the target.
func (t *PixmapTarget) Image() *image.RGBA { return t.img }

// Clear fills the entire target with c.
func (t *PixmapTarget) Clear(c color.Color) {
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	pix := t.img.Pix
	if len(pix) < 4 {
		return
	}
	pix[0], pix[1], pix[2], pix[3] = rgba.R, rgba.G, rgba.B, rgba.A
	// Doubling copy fills the rest of the buffer.
	for filled := 4; filled < len(pix); filled *= 2 {
		copy(pix[filled:], pix[:filled])
	}
}

// GetPixel returns the color at x, y.
func (t *PixmapTarget) GetPixel(x, y int) color.RGBA {
	return t.img.RGBAAt(x, y)
}

// Resize replaces the image with a new one of the given size. Contents are
// not preserved.
func (t *PixmapTarget) Resize(width, height int) {
	if width == t.Width() && height == t.Height() {
		return
	}
	t.img = image.NewRGBA(image.Rect(0, 0, width, height))
}

var _ RenderTarget = (*PixmapTarget)(nil)

// SurfaceTarget wraps the texture view of an acquired window surface
// texture for the duration of one frame.
type SurfaceTarget struct {
	width  int
	height int
	format gputypes.TextureFormat
	view   TextureView
}

// NewSurfaceTarget creates a render target from a surface texture view.
// The caller keeps ownership of view.
func NewSurfaceTarget(width, height int, format gputypes.TextureFormat, view TextureView) *SurfaceTarget {
	return &SurfaceTarget{
		width:  width,
		height: height,
		format: format,
		view:   view,
	}
}

func (t *SurfaceTarget) Width() int { return t.width }

func (t *SurfaceTarget) Height() int { return t.height }

func (t *SurfaceTarget) Format() gputypes.TextureFormat { return t.format }

// TextureView returns the current frame's texture view.
func (t *SurfaceTarget) TextureView() TextureView { return t.view }

// Pixels returns nil as surfaces do not support CPU access.
func (t *SurfaceTarget) Pixels() []byte { return nil }

// Stride returns 0 as surfaces do not support CPU access.
func (t *SurfaceTarget) Stride() int { return 0 }

var _ RenderTarget = (*SurfaceTarget)(nil)
