//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"fmt"
	"image"
	"unsafe"

	"github.com/gogpu/compositor/render"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// copyPitchAlignment is the BytesPerRow alignment required for
// texture-to-buffer copies.
const copyPitchAlignment = 256

// OffscreenTarget is a GPU color texture with a CPU mirror. The backend
// renders into the texture and copies it back into Pixels after every
// composite, so the result can be encoded or inspected on the CPU.
type OffscreenTarget struct {
	device hal.Device

	width, height int
	texture       hal.Texture
	view          hal.TextureView
	staging       hal.Buffer
	paddedRow     uint32

	img *image.RGBA
}

var _ render.RenderTarget = (*OffscreenTarget)(nil)

// NewOffscreenTarget creates a width x height RGBA8 target on device.
func NewOffscreenTarget(device hal.Device, width, height int) (*OffscreenTarget, error) {
	if device == nil {
		return nil, fmt.Errorf("offscreen target: nil device")
	}
	t := &OffscreenTarget{device: device}
	if err := t.Resize(width, height); err != nil {
		return nil, err
	}
	return t, nil
}

// Resize rebuilds the texture and staging buffer. It is a no-op when the
// size is unchanged.
func (t *OffscreenTarget) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("offscreen target: invalid size %dx%d", width, height)
	}
	if t.texture != nil && width == t.width && height == t.height {
		return nil
	}
	t.destroyGPU()

	w, h := uint32(width), uint32(height) //nolint:gosec // checked positive above
	tex, err := t.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "offscreen_color",
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("create offscreen texture: %w", err)
	}
	t.texture = tex

	view, err := t.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "offscreen_color_view",
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		t.destroyGPU()
		return fmt.Errorf("create offscreen view: %w", err)
	}
	t.view = view

	t.paddedRow = (w*4 + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	staging, err := t.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "offscreen_staging",
		Size:  uint64(t.paddedRow) * uint64(h),
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		t.destroyGPU()
		return fmt.Errorf("create offscreen staging buffer: %w", err)
	}
	t.staging = staging

	t.width, t.height = width, height
	t.img = image.NewRGBA(image.Rect(0, 0, width, height))
	slogger().Debug("offscreen target created", "width", width, "height", height)
	return nil
}

func (t *OffscreenTarget) Width() int { return t.width }

func (t *OffscreenTarget) Height() int { return t.height }

// Format returns TextureFormatRGBA8Unorm.
func (t *OffscreenTarget) Format() gputypes.TextureFormat { return gputypes.TextureFormatRGBA8Unorm }

// TextureView returns the color view the backend renders into.
func (t *OffscreenTarget) TextureView() render.TextureView {
	if t.view == nil {
		return nil
	}
	return t.view
}

// Pixels returns the CPU mirror filled by the last readback.
func (t *OffscreenTarget) Pixels() []byte {
	if t.img == nil {
		return nil
	}
	return t.img.Pix
}

func (t *OffscreenTarget) Stride() int {
	if t.img == nil {
		return 0
	}
	return t.img.Stride
}

// Image returns the CPU mirror as an image.
func (t *OffscreenTarget) Image() *image.RGBA { return t.img }

// encodeCopy records the texture to staging buffer copy.
func (t *OffscreenTarget) encodeCopy(encoder hal.CommandEncoder) {
	w, h := uint32(t.width), uint32(t.height) //nolint:gosec // positive after Resize

	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.texture,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	encoder.CopyTextureToBuffer(t.texture, t.staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: t.paddedRow, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: t.texture, MipLevel: 0, Aspect: gputypes.TextureAspectAll},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})
	// Back to RenderAttachment for the next frame's pass.
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.texture,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})
}

// readback maps the staging buffer and strips row padding into the CPU
// mirror. The GPU must be idle.
func (t *OffscreenTarget) readback() error {
	size := uint64(t.paddedRow) * uint64(t.height) //nolint:gosec // positive after Resize
	mapping, err := t.device.MapBuffer(t.staging, 0, size)
	if err != nil {
		return fmt.Errorf("map staging buffer: %w", err)
	}
	src := unsafe.Slice((*byte)(mapping.Ptr), size)
	rowBytes := t.width * 4
	for y := range t.height {
		srcOff := y * int(t.paddedRow)
		dstOff := y * t.img.Stride
		copy(t.img.Pix[dstOff:dstOff+rowBytes], src[srcOff:srcOff+rowBytes])
	}
	if err := t.device.UnmapBuffer(t.staging); err != nil {
		return fmt.Errorf("unmap staging buffer: %w", err)
	}
	return nil
}

func (t *OffscreenTarget) destroyGPU() {
	if t.staging != nil {
		t.device.DestroyBuffer(t.staging)
		t.staging = nil
	}
	if t.view != nil {
		t.device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.texture != nil {
		t.device.DestroyTexture(t.texture)
		t.texture = nil
	}
}

// Destroy releases the GPU resources. The CPU mirror stays readable.
func (t *OffscreenTarget) Destroy() {
	t.destroyGPU()
}
