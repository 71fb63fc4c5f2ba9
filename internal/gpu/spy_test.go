//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"fmt"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// createNoopDevice opens a device on the noop HAL backend.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

// labeled is a named placeholder for pipelines and bind groups so the spy
// can tell which object a render pass command received.
type labeled struct{ label string }

func (l *labeled) Destroy() {}

func labelOf(v any) string {
	if l, ok := v.(*labeled); ok {
		return l.label
	}
	return fmt.Sprintf("%T", v)
}

// spyDevice wraps a noop device and records resource lifecycles and the
// commands recorded into render passes.
type spyDevice struct {
	hal.Device

	created   map[string]int
	pipelines map[string]hal.RenderPipelineDescriptor
	destroyed []string
	calls     []string
	passes    []hal.RenderPassDescriptor
	copies    int

	// beginErr and endErr make the next encoders fail.
	beginErr, endErr error
	discards         int
}

func newSpyDevice(d hal.Device) *spyDevice {
	return &spyDevice{
		Device:    d,
		created:   make(map[string]int),
		pipelines: make(map[string]hal.RenderPipelineDescriptor),
	}
}

func (d *spyDevice) CreateTexture(desc *hal.TextureDescriptor) (hal.Texture, error) {
	d.created["texture"]++
	return d.Device.CreateTexture(desc)
}

func (d *spyDevice) DestroyTexture(tex hal.Texture) {
	d.destroyed = append(d.destroyed, "texture")
	d.Device.DestroyTexture(tex)
}

func (d *spyDevice) CreateSampler(desc *hal.SamplerDescriptor) (hal.Sampler, error) {
	d.created["sampler"]++
	return d.Device.CreateSampler(desc)
}

func (d *spyDevice) CreateRenderPipeline(desc *hal.RenderPipelineDescriptor) (hal.RenderPipeline, error) {
	d.created["pipeline"]++
	d.pipelines[desc.Label] = *desc
	return &labeled{label: desc.Label}, nil
}

func (d *spyDevice) DestroyRenderPipeline(p hal.RenderPipeline) {
	d.destroyed = append(d.destroyed, labelOf(p))
}

func (d *spyDevice) CreateBindGroupLayout(desc *hal.BindGroupLayoutDescriptor) (hal.BindGroupLayout, error) {
	return &labeled{label: desc.Label}, nil
}

func (d *spyDevice) DestroyBindGroupLayout(l hal.BindGroupLayout) {
	d.destroyed = append(d.destroyed, labelOf(l))
}

func (d *spyDevice) CreatePipelineLayout(desc *hal.PipelineLayoutDescriptor) (hal.PipelineLayout, error) {
	return &labeled{label: desc.Label}, nil
}

func (d *spyDevice) DestroyPipelineLayout(l hal.PipelineLayout) {
	d.destroyed = append(d.destroyed, labelOf(l))
}

func (d *spyDevice) CreateShaderModule(desc *hal.ShaderModuleDescriptor) (hal.ShaderModule, error) {
	d.created["shader"]++
	return &labeled{label: desc.Label}, nil
}

func (d *spyDevice) DestroyShaderModule(m hal.ShaderModule) {
	d.destroyed = append(d.destroyed, labelOf(m))
}

func (d *spyDevice) CreateBindGroup(desc *hal.BindGroupDescriptor) (hal.BindGroup, error) {
	d.created["bindgroup"]++
	return &labeled{label: desc.Label}, nil
}

func (d *spyDevice) CreateCommandEncoder(desc *hal.CommandEncoderDescriptor) (hal.CommandEncoder, error) {
	enc, err := d.Device.CreateCommandEncoder(desc)
	if err != nil {
		return nil, err
	}
	return &spyEncoder{CommandEncoder: enc, dev: d}, nil
}

type spyEncoder struct {
	hal.CommandEncoder
	dev *spyDevice
}

func (e *spyEncoder) BeginEncoding(label string) error {
	if e.dev.beginErr != nil {
		return e.dev.beginErr
	}
	return e.CommandEncoder.BeginEncoding(label)
}

func (e *spyEncoder) EndEncoding() (hal.CommandBuffer, error) {
	if e.dev.endErr != nil {
		return nil, e.dev.endErr
	}
	return e.CommandEncoder.EndEncoding()
}

func (e *spyEncoder) DiscardEncoding() {
	e.dev.discards++
	e.CommandEncoder.DiscardEncoding()
}

func (e *spyEncoder) BeginRenderPass(desc *hal.RenderPassDescriptor) hal.RenderPassEncoder {
	e.dev.passes = append(e.dev.passes, *desc)
	return &spyPass{RenderPassEncoder: e.CommandEncoder.BeginRenderPass(desc), dev: e.dev}
}

func (e *spyEncoder) CopyTextureToBuffer(src hal.Texture, dst hal.Buffer, regions []hal.BufferTextureCopy) {
	e.dev.copies++
	e.CommandEncoder.CopyTextureToBuffer(src, dst, regions)
}

type spyPass struct {
	hal.RenderPassEncoder
	dev *spyDevice
}

func (p *spyPass) SetPipeline(pipeline hal.RenderPipeline) {
	p.dev.calls = append(p.dev.calls, "pipeline:"+labelOf(pipeline))
}

func (p *spyPass) SetBindGroup(index uint32, group hal.BindGroup, _ []uint32) {
	p.dev.calls = append(p.dev.calls, fmt.Sprintf("group%d:%s", index, labelOf(group)))
}

func (p *spyPass) Draw(vertexCount, instanceCount, _, _ uint32) {
	p.dev.calls = append(p.dev.calls, fmt.Sprintf("draw:%dx%d", vertexCount, instanceCount))
}

func (p *spyPass) End() {
	p.dev.calls = append(p.dev.calls, "end")
	p.RenderPassEncoder.End()
}

// spyQueue records buffer and texture writes.
type spyQueue struct {
	hal.Queue

	bufferWrites  map[hal.Buffer][]byte
	textureWrites int
	submits       int
	presents      int
}

func newSpyQueue(q hal.Queue) *spyQueue {
	return &spyQueue{Queue: q, bufferWrites: make(map[hal.Buffer][]byte)}
}

func (q *spyQueue) WriteBuffer(buf hal.Buffer, offset uint64, data []byte) error {
	q.bufferWrites[buf] = append([]byte(nil), data...)
	return q.Queue.WriteBuffer(buf, offset, data)
}

func (q *spyQueue) WriteTexture(dst *hal.ImageCopyTexture, data []byte, layout *hal.ImageDataLayout, size *hal.Extent3D) error {
	q.textureWrites++
	return q.Queue.WriteTexture(dst, data, layout, size)
}

func (q *spyQueue) Submit(cbs []hal.CommandBuffer) (uint64, error) {
	q.submits++
	return q.Queue.Submit(cbs)
}

// newSpyBackend returns a backend on a spied noop device.
func newSpyBackend(t *testing.T) (*Backend, *spyDevice, *spyQueue) {
	t.Helper()
	device, queue, cleanup := createNoopDevice(t)
	t.Cleanup(cleanup)
	sd := newSpyDevice(device)
	sq := newSpyQueue(queue)
	b := NewBackendWithDevice(sd, sq)
	t.Cleanup(b.Close)
	return b, sd, sq
}
