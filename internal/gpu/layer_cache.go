//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/gogpu/compositor"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// layerKey identifies a cache slot. A LayerID drawn several times in one
// frame gets one slot per occurrence so each draw keeps its own uniform.
type layerKey struct {
	id  compositor.LayerID
	dup int
}

// layerEntry holds the GPU resources of one layer: its texture, view,
// uniform buffer and the two bind groups referencing them.
type layerEntry struct {
	key     layerKey
	size    image.Point
	version uint64
	loaded  bool
	used    bool

	texture      hal.Texture
	view         hal.TextureView
	uniformBuf   hal.Buffer
	textureGroup hal.BindGroup
	uniformGroup hal.BindGroup

	uniform [compositor.UniformSize]byte
}

// layerCache keeps layer resources alive across frames. Entries not drawn
// in a frame are evicted by evict.
type layerCache struct {
	device hal.Device
	queue  hal.Queue

	entries map[layerKey]*layerEntry

	sampler hal.Sampler
	filter  compositor.Filter

	fillBuf   hal.Buffer
	fillGroup hal.BindGroup

	uploads int
}

func newLayerCache(device hal.Device, queue hal.Queue) *layerCache {
	return &layerCache{
		device:  device,
		queue:   queue,
		entries: make(map[layerKey]*layerEntry),
	}
}

// prepare creates or refreshes the entries for items and writes their
// uniforms. The returned entries are in draw order.
func (c *layerCache) prepare(p *LayerPipeline, items []compositor.DrawItem, filter compositor.Filter) ([]*layerEntry, error) {
	if err := c.ensureSampler(filter); err != nil {
		return nil, err
	}
	for _, e := range c.entries {
		e.used = false
	}

	seen := make(map[compositor.LayerID]int, len(items))
	out := make([]*layerEntry, 0, len(items))
	for i := range items {
		item := &items[i]
		key := layerKey{id: item.Layer.ID, dup: seen[item.Layer.ID]}
		seen[item.Layer.ID]++

		e, err := c.entry(p, key, item.Layer.Image.Bounds().Size())
		if err != nil {
			return nil, err
		}
		if err := c.upload(e, &item.Layer); err != nil {
			return nil, err
		}
		item.Uniform.PutBytes(e.uniform[:])
		if err := c.queue.WriteBuffer(e.uniformBuf, 0, e.uniform[:]); err != nil {
			return nil, fmt.Errorf("write layer %d uniform: %w", key.id, err)
		}
		e.used = true
		out = append(out, e)
	}
	return out, nil
}

// entry returns the slot for key, rebuilding it when the image size changed.
func (c *layerCache) entry(p *LayerPipeline, key layerKey, size image.Point) (*layerEntry, error) {
	e, ok := c.entries[key]
	if ok && e.size != size {
		slogger().Debug("layer resized, rebuilding texture", "layer", key.id, "from", e.size, "to", size)
		c.destroyEntry(e)
		delete(c.entries, key)
		ok = false
	}
	if !ok {
		e = &layerEntry{key: key, size: size}
		if err := c.createEntry(p, e); err != nil {
			c.destroyEntry(e)
			return nil, err
		}
		c.entries[key] = e
	}
	if e.textureGroup == nil {
		if err := c.createTextureGroup(p, e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (c *layerCache) createEntry(p *LayerPipeline, e *layerEntry) error {
	w, h := uint32(e.size.X), uint32(e.size.Y) //nolint:gosec // image sizes are non-negative
	tex, err := c.device.CreateTexture(&hal.TextureDescriptor{
		Label:         fmt.Sprintf("layer_%d", e.key.id),
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create layer %d texture: %w", e.key.id, err)
	}
	e.texture = tex

	view, err := c.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         fmt.Sprintf("layer_%d_view", e.key.id),
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		return fmt.Errorf("create layer %d view: %w", e.key.id, err)
	}
	e.view = view

	buf, err := c.device.CreateBuffer(&hal.BufferDescriptor{
		Label: fmt.Sprintf("layer_%d_uniform", e.key.id),
		Size:  compositor.UniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create layer %d uniform buffer: %w", e.key.id, err)
	}
	e.uniformBuf = buf

	group, err := c.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  fmt.Sprintf("layer_%d_uniform_group", e.key.id),
		Layout: p.uniformLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: buf.NativeHandle(), Offset: 0, Size: compositor.UniformSize,
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("create layer %d uniform group: %w", e.key.id, err)
	}
	e.uniformGroup = group
	slogger().Debug("layer texture created", "layer", e.key.id, "size", e.size)
	return nil
}

func (c *layerCache) createTextureGroup(p *LayerPipeline, e *layerEntry) error {
	group, err := c.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  fmt.Sprintf("layer_%d_texture_group", e.key.id),
		Layout: p.textureLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.TextureViewBinding{TextureView: e.view.NativeHandle()}},
			{Binding: 1, Resource: gputypes.SamplerBinding{Sampler: c.sampler.NativeHandle()}},
		},
	})
	if err != nil {
		return fmt.Errorf("create layer %d texture group: %w", e.key.id, err)
	}
	e.textureGroup = group
	return nil
}

// upload copies the layer pixels into the texture when Version changed.
// Version zero uploads every frame.
func (c *layerCache) upload(e *layerEntry, l *compositor.Layer) error {
	if e.loaded && l.Version != 0 && l.Version == e.version {
		return nil
	}
	img := l.Image
	r := img.Bounds()
	pix := img.Pix[img.PixOffset(r.Min.X, r.Min.Y):]
	w, h := uint32(r.Dx()), uint32(r.Dy()) //nolint:gosec // image sizes are non-negative
	err := c.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: e.texture, Aspect: gputypes.TextureAspectAll},
		pix,
		&hal.ImageDataLayout{BytesPerRow: uint32(img.Stride), RowsPerImage: h}, //nolint:gosec // stride is non-negative
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
	if err != nil {
		return fmt.Errorf("upload layer %d: %w", e.key.id, err)
	}
	e.version = l.Version
	e.loaded = true
	c.uploads++
	return nil
}

// ensureSampler creates the clamp-to-edge sampler for filter. Changing the
// filter drops every texture bind group so they are rebuilt with the new
// sampler.
func (c *layerCache) ensureSampler(filter compositor.Filter) error {
	if c.sampler != nil && c.filter == filter {
		return nil
	}
	for _, e := range c.entries {
		if e.textureGroup != nil {
			c.device.DestroyBindGroup(e.textureGroup)
			e.textureGroup = nil
		}
	}
	if c.sampler != nil {
		c.device.DestroySampler(c.sampler)
		c.sampler = nil
	}
	mode := gputypes.FilterModeNearest
	if filter == compositor.FilterLinear {
		mode = gputypes.FilterModeLinear
	}
	sampler, err := c.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "layer_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    mode,
		MinFilter:    mode,
		MipmapFilter: gputypes.FilterModeNearest,
		LodMaxClamp:  32,
		Anisotropy:   1,
	})
	if err != nil {
		return fmt.Errorf("create layer sampler: %w", err)
	}
	c.sampler = sampler
	c.filter = filter
	return nil
}

// writeFill uploads the background color for the fill pass, creating the
// buffer and bind group on first use.
func (c *layerCache) writeFill(p *LayerPipeline, bg color.NRGBA) error {
	if c.fillBuf == nil {
		buf, err := c.device.CreateBuffer(&hal.BufferDescriptor{
			Label: "fill_uniform",
			Size:  fillUniformSize,
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("create fill uniform buffer: %w", err)
		}
		c.fillBuf = buf
		group, err := c.device.CreateBindGroup(&hal.BindGroupDescriptor{
			Label:  "fill_uniform_group",
			Layout: p.fillLayout,
			Entries: []gputypes.BindGroupEntry{
				{Binding: 2, Resource: gputypes.BufferBinding{
					Buffer: buf.NativeHandle(), Offset: 0, Size: fillUniformSize,
				}},
			},
		})
		if err != nil {
			return fmt.Errorf("create fill uniform group: %w", err)
		}
		c.fillGroup = group
	}
	return c.queue.WriteBuffer(c.fillBuf, 0, fillBytes(bg))
}

// fillBytes encodes bg as a premultiplied vec4<f32>.
func fillBytes(bg color.NRGBA) []byte {
	col := clearColor(bg)
	buf := make([]byte, fillUniformSize)
	for i, v := range [4]float64{col.R, col.G, col.B, col.A} {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(float32(v)))
	}
	return buf
}

// clearColor converts a straight-alpha background to the premultiplied
// value written into the target, matching the software path.
func clearColor(bg color.NRGBA) gputypes.Color {
	a := float64(bg.A) / 255
	return gputypes.Color{
		R: float64(bg.R) / 255 * a,
		G: float64(bg.G) / 255 * a,
		B: float64(bg.B) / 255 * a,
		A: a,
	}
}

// evict destroys entries that were not drawn by the last prepare.
func (c *layerCache) evict() {
	for key, e := range c.entries {
		if e.used {
			continue
		}
		slogger().Debug("layer evicted", "layer", key.id)
		c.destroyEntry(e)
		delete(c.entries, key)
	}
}

func (c *layerCache) destroyEntry(e *layerEntry) {
	if e.textureGroup != nil {
		c.device.DestroyBindGroup(e.textureGroup)
		e.textureGroup = nil
	}
	if e.uniformGroup != nil {
		c.device.DestroyBindGroup(e.uniformGroup)
		e.uniformGroup = nil
	}
	if e.uniformBuf != nil {
		c.device.DestroyBuffer(e.uniformBuf)
		e.uniformBuf = nil
	}
	if e.view != nil {
		c.device.DestroyTextureView(e.view)
		e.view = nil
	}
	if e.texture != nil {
		c.device.DestroyTexture(e.texture)
		e.texture = nil
	}
}

// count returns the number of cached layers.
func (c *layerCache) count() int { return len(c.entries) }

// destroy releases every cached resource.
func (c *layerCache) destroy() {
	for key, e := range c.entries {
		c.destroyEntry(e)
		delete(c.entries, key)
	}
	if c.fillGroup != nil {
		c.device.DestroyBindGroup(c.fillGroup)
		c.fillGroup = nil
	}
	if c.fillBuf != nil {
		c.device.DestroyBuffer(c.fillBuf)
		c.fillBuf = nil
	}
	if c.sampler != nil {
		c.device.DestroySampler(c.sampler)
		c.sampler = nil
	}
}
