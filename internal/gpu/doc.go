//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gpu implements the hardware compositing backend on the gogpu/wgpu
// HAL.
//
// Each layer is drawn as a 4-vertex triangle strip with no vertex buffer.
// The vertex stage derives the quad corner from the vertex index and maps
// it onto the layer rectangle with a 32-byte uniform (offset, size,
// viewport, flip). The fragment stage samples the layer texture.
//
// Key components:
//
//   - Backend: compositor.Backend implementation; owns or shares the device
//   - LayerPipeline: shader module, bind group layouts and render pipelines
//   - layerCache: per-layer texture, uniform buffer and bind groups, kept
//     across frames and re-uploaded only when the layer version changes
//   - OffscreenTarget: color texture with CPU readback
//   - Presenter: window surface configuration, acquire and present
//
// # Frame
//
// Composite writes every layer uniform, then encodes a single render pass:
// the background (a clear, or a full-screen fill quad), then one draw per
// layer in paint order. The frame is submitted and the device waited on
// before returning.
//
// # Devices
//
// Init opens a Vulkan device. Hosts that already own a device pass it with
// SetDeviceProvider; the backend then never destroys it.
package gpu
