//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/render"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// ErrFrameSkipped is returned by Presenter.Frame when the surface was
// outdated or lost. The surface has been reconfigured; draw the next frame
// normally.
var ErrFrameSkipped = errors.New("gpu: frame skipped, surface reconfigured")

// DefaultSurfaceFormat is the swapchain format used when none is given.
const DefaultSurfaceFormat = gputypes.TextureFormatBGRA8Unorm

// Presenter drives a window surface: it keeps the surface configured for
// the current viewport, acquires a texture per frame, composites into it
// and presents.
type Presenter struct {
	device  hal.Device
	queue   hal.Queue
	surface hal.Surface
	format  gputypes.TextureFormat

	configured compositor.Viewport
	presented  uint64
}

// NewPresenter returns a presenter for surface. A zero format selects
// DefaultSurfaceFormat. The surface is configured on the first Frame.
func NewPresenter(device hal.Device, queue hal.Queue, surface hal.Surface, format gputypes.TextureFormat) *Presenter {
	if format == gputypes.TextureFormatUndefined {
		format = DefaultSurfaceFormat
	}
	return &Presenter{device: device, queue: queue, surface: surface, format: format}
}

// Format returns the surface texture format.
func (p *Presenter) Format() gputypes.TextureFormat { return p.format }

// Configured returns the viewport the surface is currently configured for.
func (p *Presenter) Configured() compositor.Viewport { return p.configured }

// Presented returns the number of frames presented so far.
func (p *Presenter) Presented() uint64 { return p.presented }

// configure sets up the surface for vp in physical pixels. Fifo presents
// at display rate; the composite is opaque.
func (p *Presenter) configure(vp compositor.Viewport) error {
	w, h := vp.PixelSize()
	err := p.surface.Configure(p.device, &hal.SurfaceConfiguration{
		Width:       uint32(w), //nolint:gosec // PixelSize is at least 1
		Height:      uint32(h), //nolint:gosec // PixelSize is at least 1
		Format:      p.format,
		Usage:       gputypes.TextureUsageRenderAttachment,
		PresentMode: gputypes.PresentModeFifo,
		AlphaMode:   gputypes.CompositeAlphaModeOpaque,
	})
	if err != nil {
		p.configured = compositor.Viewport{}
		return fmt.Errorf("configure surface: %w", err)
	}
	p.configured = vp
	slogger().Info("surface configured", "width", w, "height", h, "format", p.format)
	return nil
}

// Frame composites layers into the next surface texture and presents it.
// The surface is reconfigured whenever vp differs from the last configured
// viewport. An outdated or lost surface is reconfigured and the frame is
// skipped with ErrFrameSkipped.
func (p *Presenter) Frame(c *compositor.Compositor, vp compositor.Viewport, layers []compositor.Layer) error {
	surfaceVP := vp.Clamp()
	if surfaceVP != p.configured {
		if err := p.configure(surfaceVP); err != nil {
			return err
		}
	}

	acquired, err := p.surface.AcquireTexture(nil)
	if err != nil {
		if errors.Is(err, hal.ErrSurfaceOutdated) || errors.Is(err, hal.ErrSurfaceLost) {
			slogger().Warn("surface unusable, reconfiguring", "err", err)
			if cerr := p.configure(surfaceVP); cerr != nil {
				return cerr
			}
			return ErrFrameSkipped
		}
		return fmt.Errorf("acquire surface texture: %w", err)
	}
	if acquired.Suboptimal {
		slogger().Debug("suboptimal surface texture")
	}

	view, err := p.device.CreateTextureView(acquired.Texture, &hal.TextureViewDescriptor{
		Label:         "surface_view",
		Format:        p.format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		p.surface.DiscardTexture(acquired.Texture)
		return fmt.Errorf("create surface view: %w", err)
	}
	defer p.device.DestroyTextureView(view)

	w, h := surfaceVP.PixelSize()
	target := render.NewSurfaceTarget(w, h, p.format, view)
	if err := c.Composite(target, vp, layers); err != nil {
		p.surface.DiscardTexture(acquired.Texture)
		return err
	}
	if err := p.queue.Present(p.surface, acquired.Texture, nil); err != nil {
		if errors.Is(err, hal.ErrSurfaceOutdated) || errors.Is(err, hal.ErrSurfaceLost) {
			if cerr := p.configure(surfaceVP); cerr != nil {
				return cerr
			}
			return ErrFrameSkipped
		}
		return fmt.Errorf("present: %w", err)
	}
	p.presented++
	return nil
}

// Destroy unconfigures the surface. The surface itself belongs to the
// caller.
func (p *Presenter) Destroy() {
	if p.configured.Valid() {
		p.surface.Unconfigure(p.device)
		p.configured = compositor.Viewport{}
	}
}
