//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/render"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// BackendName is the name reported by Backend.
const BackendName = "wgpu"

// Backend composites layers with wgpu HAL render passes.
//
// It either creates its own Vulkan device in Init or shares the host
// application's device through SetDeviceProvider. When no device is
// available Composite returns compositor.ErrFallbackToCPU.
type Backend struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	adapter  string

	externalDevice bool
	gpuReady       bool

	pipeline *LayerPipeline
	cache    *layerCache

	frames uint64
}

var (
	_ compositor.Backend             = (*Backend)(nil)
	_ compositor.DeviceProviderAware = (*Backend)(nil)
)

// NewBackend returns an uninitialized backend.
func NewBackend() *Backend {
	return &Backend{}
}

// NewBackendWithDevice returns a backend bound to device and queue. The
// caller keeps ownership of both.
func NewBackendWithDevice(device hal.Device, queue hal.Queue) *Backend {
	b := &Backend{}
	b.useDevice(device, queue, true)
	return b
}

// Name returns BackendName.
func (b *Backend) Name() string { return BackendName }

// Init opens a GPU device unless one was already supplied. A missing GPU is
// not an error: the backend stays registered and defers to the CPU path.
func (b *Backend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.gpuReady {
		return nil
	}
	if err := b.initGPU(); err != nil {
		slogger().Warn("GPU init failed, using CPU compositing", "err", err)
	}
	return nil
}

func (b *Backend) initGPU() error {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return fmt.Errorf("no GPU adapters found")
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return fmt.Errorf("open device: %w", err)
	}
	b.instance = instance
	b.adapter = selected.Info.Name
	b.useDevice(openDev.Device, openDev.Queue, false)
	slogger().Info("GPU compositor initialized", "adapter", selected.Info.Name)
	return nil
}

// useDevice rebinds the pipeline and cache to device. Caller holds mu or
// owns b exclusively.
func (b *Backend) useDevice(device hal.Device, queue hal.Queue, external bool) {
	b.device = device
	b.queue = queue
	b.externalDevice = external
	b.pipeline = NewLayerPipeline(device)
	b.cache = newLayerCache(device, queue)
	b.gpuReady = device != nil && queue != nil
}

// SetDeviceProvider switches to a device shared by the host. The provider
// must expose hal.Device and hal.Queue through render.HalProvider or
// render.DeviceHandle.
func (b *Backend) SetDeviceProvider(provider any) error {
	d, q, ok := render.HalObjects(provider)
	if !ok {
		return fmt.Errorf("gpu: provider does not expose a device")
	}
	device, ok := d.(hal.Device)
	if !ok || device == nil {
		return fmt.Errorf("gpu: provider device is %T, not hal.Device", d)
	}
	queue, ok := q.(hal.Queue)
	if !ok || queue == nil {
		return fmt.Errorf("gpu: provider queue is %T, not hal.Queue", q)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.releaseLocked()
	b.useDevice(device, queue, true)
	if info, ok := provider.(render.DeviceHandle); ok {
		b.adapter = info.AdapterInfo().Name
	}
	slogger().Info("GPU compositor switched to shared device", "adapter", b.adapter)
	return nil
}

// SetLogger receives the compositor logger.
func (b *Backend) SetLogger(l *slog.Logger) { setLogger(l) }

// Ready reports whether a device is bound.
func (b *Backend) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gpuReady
}

// Device returns the bound device, or nil.
func (b *Backend) Device() hal.Device {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.device
}

// Queue returns the bound queue, or nil.
func (b *Backend) Queue() hal.Queue {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queue
}

// Composite renders frame into target in one render pass: the background
// (clear or fill quad), then one quad per item in order. Offscreen targets
// are read back into their CPU pixels before returning.
func (b *Backend) Composite(target render.RenderTarget, frame *compositor.Frame, opts compositor.Options) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.gpuReady {
		return compositor.ErrFallbackToCPU
	}
	rv := target.TextureView()
	view, ok := rv.(hal.TextureView)
	if !ok || view == nil {
		return compositor.ErrFallbackToCPU
	}
	format := target.Format()
	if format == gputypes.TextureFormatUndefined {
		format = gputypes.TextureFormatRGBA8Unorm
	}

	if err := b.pipeline.Ensure(format, opts.Blend); err != nil {
		return fmt.Errorf("prepare pipeline: %w", err)
	}
	entries, err := b.cache.prepare(b.pipeline, frame.Items, opts.Filter)
	if err != nil {
		return err
	}
	fill := opts.BackgroundMode == compositor.BackgroundFill
	if fill {
		if err := b.cache.writeFill(b.pipeline, opts.Background); err != nil {
			return err
		}
	}

	encoder, err := b.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "composite_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("composite_frame"); err != nil {
		encoder.DiscardEncoding()
		return fmt.Errorf("begin encoding: %w", err)
	}

	clearValue := clearColor(opts.Background)
	if fill {
		clearValue = gputypes.Color{}
	}
	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "composite_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: clearValue,
		}},
	})
	if fill {
		b.pipeline.RecordFill(rp, b.cache.fillGroup)
	}
	b.pipeline.RecordLayers(rp, entries)
	rp.End()

	offscreen, _ := target.(*OffscreenTarget)
	if offscreen != nil {
		offscreen.encodeCopy(encoder)
	}

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		encoder.DiscardEncoding()
		return fmt.Errorf("end encoding: %w", err)
	}
	defer b.device.FreeCommandBuffer(cmdBuf)

	if _, err := b.queue.Submit([]hal.CommandBuffer{cmdBuf}); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	if err := b.device.WaitIdle(); err != nil {
		return fmt.Errorf("wait for GPU: %w", err)
	}
	if offscreen != nil {
		if err := offscreen.readback(); err != nil {
			return err
		}
	}

	b.cache.evict()
	b.frames++
	return nil
}

// Stats reports cache counters for diagnostics.
func (b *Backend) Stats() (frames uint64, layers, uploads int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cache == nil {
		return b.frames, 0, 0
	}
	return b.frames, b.cache.count(), b.cache.uploads
}

func (b *Backend) releaseLocked() {
	if b.cache != nil {
		b.cache.destroy()
	}
	if b.pipeline != nil {
		b.pipeline.Destroy()
	}
	if !b.externalDevice {
		if b.device != nil {
			b.device.Destroy()
		}
		if b.instance != nil {
			b.instance.Destroy()
		}
	}
	b.device = nil
	b.queue = nil
	b.instance = nil
	b.gpuReady = false
	b.externalDevice = false
}

// Close releases cached layers and pipelines, and the device when the
// backend created it.
func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.releaseLocked()
	b.cache = nil
	b.pipeline = nil
}
