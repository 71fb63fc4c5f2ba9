//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"slices"
	"testing"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/render"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

func solidLayer(id compositor.LayerID, x, y, w, h float32, version uint64) compositor.Layer {
	img := image.NewNRGBA(image.Rect(0, 0, int(w), int(h)))
	for i := range img.Pix {
		img.Pix[i] = 0xFF
	}
	return compositor.Layer{
		ID:      id,
		Offset:  compositor.Vec2{X: x, Y: y},
		Size:    compositor.Vec2{X: w, Y: h},
		Image:   img,
		Version: version,
	}
}

func prepare(t *testing.T, vp compositor.Viewport, opts compositor.Options, layers ...compositor.Layer) *compositor.Frame {
	t.Helper()
	frame, err := compositor.PrepareFrame(vp, layers, opts)
	if err != nil {
		t.Fatalf("PrepareFrame() error = %v", err)
	}
	return &frame
}

// viewTarget returns a GPU-only target backed by a noop view.
func viewTarget(t *testing.T, device hal.Device, w, h int) *render.SurfaceTarget {
	t.Helper()
	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         "test_target",
		Size:          hal.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatBGRA8Unorm,
		Usage:         gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		t.Fatal(err)
	}
	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{})
	if err != nil {
		t.Fatal(err)
	}
	return render.NewSurfaceTarget(w, h, gputypes.TextureFormatBGRA8Unorm, view)
}

func TestBackendWithoutDeviceFallsBack(t *testing.T) {
	b := NewBackend()
	if b.Name() != BackendName {
		t.Errorf("Name() = %q, want %q", b.Name(), BackendName)
	}
	device, _, cleanup := createNoopDevice(t)
	defer cleanup()

	target := viewTarget(t, device, 4, 4)
	frame := prepare(t, compositor.Viewport{Width: 4, Height: 4}, compositor.DefaultOptions())
	err := b.Composite(target, frame, compositor.DefaultOptions())
	if !errors.Is(err, compositor.ErrFallbackToCPU) {
		t.Errorf("Composite() without device = %v, want ErrFallbackToCPU", err)
	}
}

func TestBackendPixmapTargetFallsBack(t *testing.T) {
	b, _, sq := newSpyBackend(t)
	frame := prepare(t, compositor.Viewport{Width: 2, Height: 2}, compositor.DefaultOptions())
	err := b.Composite(render.NewPixmapTarget(2, 2), frame, compositor.DefaultOptions())
	if !errors.Is(err, compositor.ErrFallbackToCPU) {
		t.Errorf("Composite(pixmap) = %v, want ErrFallbackToCPU", err)
	}
	if sq.submits != 0 {
		t.Errorf("submits = %d, want 0", sq.submits)
	}
}

func TestBackendDrawOrder(t *testing.T) {
	b, sd, sq := newSpyBackend(t)
	vp := compositor.Viewport{Width: 100, Height: 100}
	opts := compositor.DefaultOptions()
	frame := prepare(t, vp, opts,
		solidLayer(1, 0, 0, 100, 100, 1),
		solidLayer(2, 10, 10, 20, 20, 1),
		solidLayer(3, 50, 50, 10, 10, 1),
	)

	if err := b.Composite(viewTarget(t, sd, 100, 100), frame, opts); err != nil {
		t.Fatalf("Composite() error = %v", err)
	}

	want := []string{"pipeline:layer_pipeline"}
	for _, id := range []string{"1", "2", "3"} {
		want = append(want,
			"group0:layer_"+id+"_texture_group",
			"group1:layer_"+id+"_uniform_group",
			"draw:4x1",
		)
	}
	want = append(want, "end")
	if !slices.Equal(sd.calls, want) {
		t.Errorf("render pass calls:\n got %v\nwant %v", sd.calls, want)
	}

	if len(sd.passes) != 1 {
		t.Fatalf("render passes = %d, want 1", len(sd.passes))
	}
	att := sd.passes[0].ColorAttachments[0]
	if att.LoadOp != gputypes.LoadOpClear || att.StoreOp != gputypes.StoreOpStore {
		t.Errorf("attachment ops = %v/%v, want clear/store", att.LoadOp, att.StoreOp)
	}
	if att.ClearValue != (gputypes.Color{R: 1, G: 1, B: 1, A: 1}) {
		t.Errorf("clear value = %+v, want opaque white", att.ClearValue)
	}
	if sq.submits != 1 {
		t.Errorf("submits = %d, want 1", sq.submits)
	}
	if got := b.pipeline.Format(); got != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("pipeline format = %v, want target format", got)
	}
}

func TestBackendEmptyFrameClearsOnly(t *testing.T) {
	b, sd, sq := newSpyBackend(t)
	opts := compositor.DefaultOptions()
	opts.Background = color.NRGBA{R: 255, A: 255}
	frame := prepare(t, compositor.Viewport{Width: 8, Height: 8}, opts)

	if err := b.Composite(viewTarget(t, sd, 8, 8), frame, opts); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(sd.calls, []string{"end"}) {
		t.Errorf("calls = %v, want only end", sd.calls)
	}
	if got := sd.passes[0].ColorAttachments[0].ClearValue; got != (gputypes.Color{R: 1, A: 1}) {
		t.Errorf("clear value = %+v, want red", got)
	}
	if sq.submits != 1 {
		t.Errorf("submits = %d, want 1", sq.submits)
	}
}

func TestBackendFillBackground(t *testing.T) {
	b, sd, sq := newSpyBackend(t)
	opts := compositor.DefaultOptions()
	opts.BackgroundMode = compositor.BackgroundFill
	opts.Background = color.NRGBA{R: 255, G: 0, B: 0, A: 128}
	frame := prepare(t, compositor.Viewport{Width: 8, Height: 8}, opts, solidLayer(7, 0, 0, 4, 4, 1))

	if err := b.Composite(viewTarget(t, sd, 8, 8), frame, opts); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"pipeline:fill_pipeline", "group0:fill_uniform_group", "draw:4x1",
		"pipeline:layer_pipeline", "group0:layer_7_texture_group", "group1:layer_7_uniform_group", "draw:4x1",
		"end",
	}
	if !slices.Equal(sd.calls, want) {
		t.Errorf("calls:\n got %v\nwant %v", sd.calls, want)
	}
	if got := sd.passes[0].ColorAttachments[0].ClearValue; got != (gputypes.Color{}) {
		t.Errorf("fill mode clear value = %+v, want transparent", got)
	}
	if got := sq.bufferWrites[b.cache.fillBuf]; !bytes.Equal(got, fillBytes(opts.Background)) {
		t.Errorf("fill uniform = %v, want %v", got, fillBytes(opts.Background))
	}
}

func TestBackendWritesLayerUniforms(t *testing.T) {
	b, sd, sq := newSpyBackend(t)
	vp := compositor.Viewport{Width: 800, Height: 600}
	opts := compositor.DefaultOptions()
	frame := prepare(t, vp, opts,
		solidLayer(1, 0, 0, 800, 600, 1),
		solidLayer(2, 100, 50, 200, 100, 1),
	)
	if err := b.Composite(viewTarget(t, sd, 800, 600), frame, opts); err != nil {
		t.Fatal(err)
	}
	for _, item := range frame.Items {
		e := b.cache.entries[layerKey{id: item.Layer.ID}]
		if e == nil {
			t.Fatalf("layer %d not cached", item.Layer.ID)
		}
		got := sq.bufferWrites[e.uniformBuf]
		if !bytes.Equal(got, item.Uniform.Bytes()) {
			t.Errorf("layer %d uniform = %v, want %v", item.Layer.ID, got, item.Uniform.Bytes())
		}
	}
}

func TestBackendUploadsOnVersionChange(t *testing.T) {
	b, sd, sq := newSpyBackend(t)
	vp := compositor.Viewport{Width: 16, Height: 16}
	opts := compositor.DefaultOptions()
	target := viewTarget(t, sd, 16, 16)

	run := func(version uint64) {
		t.Helper()
		frame := prepare(t, vp, opts, solidLayer(1, 0, 0, 16, 16, version))
		if err := b.Composite(target, frame, opts); err != nil {
			t.Fatal(err)
		}
	}

	run(1)
	run(1)
	if sq.textureWrites != 1 {
		t.Errorf("uploads after unchanged version = %d, want 1", sq.textureWrites)
	}
	run(2)
	if sq.textureWrites != 2 {
		t.Errorf("uploads after version bump = %d, want 2", sq.textureWrites)
	}
	run(0)
	run(0)
	if sq.textureWrites != 4 {
		t.Errorf("uploads with version 0 = %d, want 4", sq.textureWrites)
	}
	frames, layers, uploads := b.Stats()
	if frames != 5 || layers != 1 || uploads != 4 {
		t.Errorf("Stats() = %d, %d, %d; want 5, 1, 4", frames, layers, uploads)
	}
}

func TestBackendEvictsUnusedLayers(t *testing.T) {
	b, sd, _ := newSpyBackend(t)
	vp := compositor.Viewport{Width: 32, Height: 32}
	opts := compositor.DefaultOptions()
	target := viewTarget(t, sd, 32, 32)

	frame := prepare(t, vp, opts, solidLayer(1, 0, 0, 16, 16, 1), solidLayer(2, 16, 16, 16, 16, 1))
	if err := b.Composite(target, frame, opts); err != nil {
		t.Fatal(err)
	}
	if b.cache.count() != 2 {
		t.Fatalf("cached layers = %d, want 2", b.cache.count())
	}

	frame = prepare(t, vp, opts, solidLayer(1, 0, 0, 16, 16, 1))
	if err := b.Composite(target, frame, opts); err != nil {
		t.Fatal(err)
	}
	if b.cache.count() != 1 {
		t.Errorf("cached layers after eviction = %d, want 1", b.cache.count())
	}
	if _, ok := b.cache.entries[layerKey{id: 2}]; ok {
		t.Error("layer 2 should have been evicted")
	}
}

func TestBackendRebuildsTextureOnResize(t *testing.T) {
	b, sd, _ := newSpyBackend(t)
	vp := compositor.Viewport{Width: 64, Height: 64}
	opts := compositor.DefaultOptions()
	target := viewTarget(t, sd, 64, 64)
	base := sd.created["texture"]

	for _, size := range []float32{16, 16, 32} {
		frame := prepare(t, vp, opts, solidLayer(1, 0, 0, size, size, 1))
		if err := b.Composite(target, frame, opts); err != nil {
			t.Fatal(err)
		}
	}
	if got := sd.created["texture"] - base; got != 2 {
		t.Errorf("layer textures created = %d, want 2 (initial + resize)", got)
	}
	if e := b.cache.entries[layerKey{id: 1}]; e.size != image.Pt(32, 32) {
		t.Errorf("cached size = %v, want 32x32", e.size)
	}
}

func TestBackendDuplicateLayerIDs(t *testing.T) {
	b, sd, sq := newSpyBackend(t)
	vp := compositor.Viewport{Width: 32, Height: 32}
	opts := compositor.DefaultOptions()
	frame := prepare(t, vp, opts, solidLayer(5, 0, 0, 8, 8, 1), solidLayer(5, 16, 16, 8, 8, 1))
	if err := b.Composite(viewTarget(t, sd, 32, 32), frame, opts); err != nil {
		t.Fatal(err)
	}
	first := b.cache.entries[layerKey{id: 5, dup: 0}]
	second := b.cache.entries[layerKey{id: 5, dup: 1}]
	if first == nil || second == nil || first == second {
		t.Fatal("each occurrence of a layer ID needs its own cache slot")
	}
	if bytes.Equal(sq.bufferWrites[first.uniformBuf], sq.bufferWrites[second.uniformBuf]) {
		t.Error("duplicate layers must keep distinct uniforms")
	}
}

func TestBackendFilterChangeRebuildsSampler(t *testing.T) {
	b, sd, _ := newSpyBackend(t)
	vp := compositor.Viewport{Width: 8, Height: 8}
	target := viewTarget(t, sd, 8, 8)

	for _, f := range []compositor.Filter{compositor.FilterNearest, compositor.FilterNearest, compositor.FilterLinear} {
		opts := compositor.DefaultOptions()
		opts.Filter = f
		frame := prepare(t, vp, opts, solidLayer(1, 0, 0, 8, 8, 1))
		if err := b.Composite(target, frame, opts); err != nil {
			t.Fatal(err)
		}
	}
	if sd.created["sampler"] != 2 {
		t.Errorf("samplers created = %d, want 2", sd.created["sampler"])
	}
}

func TestBackendBlendChangeRebuildsPipeline(t *testing.T) {
	b, sd, _ := newSpyBackend(t)
	vp := compositor.Viewport{Width: 8, Height: 8}
	target := viewTarget(t, sd, 8, 8)

	for _, mode := range []compositor.BlendMode{compositor.BlendStraight, compositor.BlendStraight, compositor.BlendPremultiplied} {
		opts := compositor.DefaultOptions()
		opts.Blend = mode
		if err := b.Composite(target, prepare(t, vp, opts), opts); err != nil {
			t.Fatal(err)
		}
	}
	// Two pipelines (layer + fill) per build.
	if sd.created["pipeline"] != 4 {
		t.Errorf("render pipelines created = %d, want 4", sd.created["pipeline"])
	}
	if sd.created["shader"] != 1 {
		t.Errorf("shader modules created = %d, want 1", sd.created["shader"])
	}
}

type halHost struct {
	device, queue any
}

func (h halHost) HalDevice() any { return h.device }
func (h halHost) HalQueue() any  { return h.queue }

func TestBackendSetDeviceProvider(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	b := NewBackend()
	defer b.Close()
	if b.Ready() {
		t.Fatal("new backend should not be ready")
	}

	tests := []struct {
		name     string
		provider any
	}{
		{"no device", "not a provider"},
		{"wrong device type", halHost{device: 1, queue: queue}},
		{"nil queue", halHost{device: device, queue: nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := b.SetDeviceProvider(tt.provider); err == nil {
				t.Error("SetDeviceProvider() should fail")
			}
		})
	}

	if err := b.SetDeviceProvider(halHost{device: device, queue: queue}); err != nil {
		t.Fatalf("SetDeviceProvider() error = %v", err)
	}
	if !b.Ready() || b.Device() != device || b.Queue() != queue {
		t.Error("backend should use the shared device")
	}
	if !b.externalDevice {
		t.Error("shared device must be marked external")
	}
}

func TestBackendCloseFallsBack(t *testing.T) {
	b, sd, _ := newSpyBackend(t)
	target := viewTarget(t, sd, 4, 4)
	opts := compositor.DefaultOptions()
	frame := prepare(t, compositor.Viewport{Width: 4, Height: 4}, opts, solidLayer(1, 0, 0, 4, 4, 1))
	if err := b.Composite(target, frame, opts); err != nil {
		t.Fatal(err)
	}

	b.Close()
	if !slices.Contains(sd.destroyed, "layer_shader") || !slices.Contains(sd.destroyed, "texture") {
		t.Errorf("Close should destroy pipeline objects and layer textures, destroyed = %v", sd.destroyed)
	}
	if err := b.Composite(target, frame, opts); !errors.Is(err, compositor.ErrFallbackToCPU) {
		t.Errorf("Composite() after Close = %v, want ErrFallbackToCPU", err)
	}
}

func TestBackendDiscardsEncoderOnFailure(t *testing.T) {
	errEncode := errors.New("encoder failure")
	tests := []struct {
		name       string
		begin, end error
	}{
		{"begin", errEncode, nil},
		{"end", nil, errEncode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, sd, sq := newSpyBackend(t)
			target := viewTarget(t, sd, 4, 4)
			opts := compositor.DefaultOptions()
			frame := prepare(t, compositor.Viewport{Width: 4, Height: 4}, opts, solidLayer(1, 0, 0, 4, 4, 1))

			sd.beginErr, sd.endErr = tt.begin, tt.end
			if err := b.Composite(target, frame, opts); !errors.Is(err, errEncode) {
				t.Fatalf("Composite() = %v, want %v", err, errEncode)
			}
			if sd.discards != 1 {
				t.Errorf("discards = %d, want 1", sd.discards)
			}
			if sq.submits != 0 {
				t.Errorf("submits = %d, want 0", sq.submits)
			}

			sd.beginErr, sd.endErr = nil, nil
			if err := b.Composite(target, frame, opts); err != nil {
				t.Fatalf("Composite() after failure = %v", err)
			}
		})
	}
}

func TestBackendThroughCompositor(t *testing.T) {
	b, sd, sq := newSpyBackend(t)
	c := compositor.New()
	c.UseBackend(b)

	vp := compositor.Viewport{Width: 10, Height: 10}
	if err := c.Composite(viewTarget(t, sd, 10, 10), vp, []compositor.Layer{solidLayer(1, 0, 0, 10, 10, 1)}); err != nil {
		t.Fatal(err)
	}
	if sq.submits != 1 {
		t.Errorf("submits = %d, want 1", sq.submits)
	}
}
