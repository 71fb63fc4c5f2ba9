//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"fmt"

	"github.com/gogpu/compositor"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// LayerPipeline owns the GPU objects shared by every layer draw: the shader
// module, bind group layouts, pipeline layouts and the two render pipelines
// (layer quad and background fill).
//
// Bind group layout:
//
//	layer group 0: binding 0 texture_2d<f32>, binding 1 sampler (fragment)
//	layer group 1: binding 0 LayerUniform (vertex + fragment)
//	fill  group 0: binding 2 FillUniform (fragment)
//
// Layouts and the shader are created once. The render pipelines depend on
// the target format and blend mode and are rebuilt when either changes.
type LayerPipeline struct {
	device hal.Device

	shader          hal.ShaderModule
	textureLayout   hal.BindGroupLayout
	uniformLayout   hal.BindGroupLayout
	fillLayout      hal.BindGroupLayout
	layerPipeLayout hal.PipelineLayout
	fillPipeLayout  hal.PipelineLayout

	layerPipeline hal.RenderPipeline
	fillPipeline  hal.RenderPipeline
	format        gputypes.TextureFormat
	blend         compositor.BlendMode
}

// NewLayerPipeline creates a pipeline bound to device. GPU objects are not
// created until Ensure is called.
func NewLayerPipeline(device hal.Device) *LayerPipeline {
	return &LayerPipeline{device: device}
}

// Ensure makes the render pipelines ready for format and blend.
func (p *LayerPipeline) Ensure(format gputypes.TextureFormat, blend compositor.BlendMode) error {
	if p.shader == nil {
		if err := p.createLayouts(); err != nil {
			p.Destroy()
			return err
		}
	}
	if p.layerPipeline != nil && p.format == format && p.blend == blend {
		return nil
	}
	p.destroyPipelines()
	if err := p.createPipelines(format, blend); err != nil {
		p.destroyPipelines()
		return err
	}
	p.format = format
	p.blend = blend
	slogger().Debug("layer pipeline ready", "format", format, "blend", blend)
	return nil
}

// Ready reports whether Ensure has succeeded.
func (p *LayerPipeline) Ready() bool { return p.layerPipeline != nil }

// Format returns the color target format the pipelines were built for.
func (p *LayerPipeline) Format() gputypes.TextureFormat { return p.format }

func (p *LayerPipeline) createLayouts() error {
	if layerShaderSource == "" {
		return fmt.Errorf("layer shader source is empty")
	}
	shader, err := p.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "layer_shader",
		Source: hal.ShaderSource{WGSL: layerShaderSource},
	})
	if err != nil {
		return fmt.Errorf("compile layer shader: %w", err)
	}
	p.shader = shader

	p.textureLayout, err = p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "layer_texture_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create layer texture layout: %w", err)
	}

	p.uniformLayout, err = p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "layer_uniform_layout",
		Entries: []gputypes.BindGroupLayoutEntry{{
			Binding:    0,
			Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
			Buffer: &gputypes.BufferBindingLayout{
				Type:           gputypes.BufferBindingTypeUniform,
				MinBindingSize: compositor.UniformSize,
			},
		}},
	})
	if err != nil {
		return fmt.Errorf("create layer uniform layout: %w", err)
	}

	p.fillLayout, err = p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "fill_uniform_layout",
		Entries: []gputypes.BindGroupLayoutEntry{{
			Binding:    2,
			Visibility: gputypes.ShaderStageFragment,
			Buffer: &gputypes.BufferBindingLayout{
				Type:           gputypes.BufferBindingTypeUniform,
				MinBindingSize: fillUniformSize,
			},
		}},
	})
	if err != nil {
		return fmt.Errorf("create fill uniform layout: %w", err)
	}

	p.layerPipeLayout, err = p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "layer_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.textureLayout, p.uniformLayout},
	})
	if err != nil {
		return fmt.Errorf("create layer pipeline layout: %w", err)
	}

	p.fillPipeLayout, err = p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "fill_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.fillLayout},
	})
	if err != nil {
		return fmt.Errorf("create fill pipeline layout: %w", err)
	}
	return nil
}

func blendState(b compositor.BlendMode) gputypes.BlendState {
	if b == compositor.BlendPremultiplied {
		return gputypes.BlendStatePremultiplied()
	}
	return gputypes.BlendStateAlpha()
}

func (p *LayerPipeline) createPipelines(format gputypes.TextureFormat, blend compositor.BlendMode) error {
	layerBlend := blendState(blend)
	primitive := gputypes.PrimitiveState{
		Topology: gputypes.PrimitiveTopologyTriangleStrip,
		CullMode: gputypes.CullModeNone,
	}
	multisample := gputypes.MultisampleState{Count: 1, Mask: 0xFFFFFFFF}

	layer, err := p.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "layer_pipeline",
		Layout: p.layerPipeLayout,
		Vertex: hal.VertexState{
			Module:     p.shader,
			EntryPoint: layerVertexEntry,
		},
		Fragment: &hal.FragmentState{
			Module:     p.shader,
			EntryPoint: layerFragmentEntry,
			Targets: []gputypes.ColorTargetState{{
				Format:    format,
				Blend:     &layerBlend,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
		Primitive:   primitive,
		Multisample: multisample,
	})
	if err != nil {
		return fmt.Errorf("create layer pipeline: %w", err)
	}
	p.layerPipeline = layer

	// The fill replaces whatever the clear left behind.
	fill, err := p.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "fill_pipeline",
		Layout: p.fillPipeLayout,
		Vertex: hal.VertexState{
			Module:     p.shader,
			EntryPoint: fillVertexEntry,
		},
		Fragment: &hal.FragmentState{
			Module:     p.shader,
			EntryPoint: fillFragmentEntry,
			Targets: []gputypes.ColorTargetState{{
				Format:    format,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
		Primitive:   primitive,
		Multisample: multisample,
	})
	if err != nil {
		return fmt.Errorf("create fill pipeline: %w", err)
	}
	p.fillPipeline = fill
	return nil
}

// RecordFill records the background fill quad.
func (p *LayerPipeline) RecordFill(rp hal.RenderPassEncoder, fillGroup hal.BindGroup) {
	rp.SetPipeline(p.fillPipeline)
	rp.SetBindGroup(0, fillGroup, nil)
	rp.Draw(compositor.QuadVertexCount, 1, 0, 0)
}

// RecordLayers records one quad per entry, in order.
func (p *LayerPipeline) RecordLayers(rp hal.RenderPassEncoder, entries []*layerEntry) {
	if len(entries) == 0 {
		return
	}
	rp.SetPipeline(p.layerPipeline)
	for _, e := range entries {
		rp.SetBindGroup(0, e.textureGroup, nil)
		rp.SetBindGroup(1, e.uniformGroup, nil)
		rp.Draw(compositor.QuadVertexCount, 1, 0, 0)
	}
}

func (p *LayerPipeline) destroyPipelines() {
	if p.device == nil {
		return
	}
	if p.fillPipeline != nil {
		p.device.DestroyRenderPipeline(p.fillPipeline)
		p.fillPipeline = nil
	}
	if p.layerPipeline != nil {
		p.device.DestroyRenderPipeline(p.layerPipeline)
		p.layerPipeline = nil
	}
	p.format = gputypes.TextureFormatUndefined
}

// Destroy releases all GPU objects in reverse creation order. Safe to call
// multiple times.
func (p *LayerPipeline) Destroy() {
	p.destroyPipelines()
	if p.device == nil {
		return
	}
	if p.fillPipeLayout != nil {
		p.device.DestroyPipelineLayout(p.fillPipeLayout)
		p.fillPipeLayout = nil
	}
	if p.layerPipeLayout != nil {
		p.device.DestroyPipelineLayout(p.layerPipeLayout)
		p.layerPipeLayout = nil
	}
	if p.fillLayout != nil {
		p.device.DestroyBindGroupLayout(p.fillLayout)
		p.fillLayout = nil
	}
	if p.uniformLayout != nil {
		p.device.DestroyBindGroupLayout(p.uniformLayout)
		p.uniformLayout = nil
	}
	if p.textureLayout != nil {
		p.device.DestroyBindGroupLayout(p.textureLayout)
		p.textureLayout = nil
	}
	if p.shader != nil {
		p.device.DestroyShaderModule(p.shader)
		p.shader = nil
	}
}
