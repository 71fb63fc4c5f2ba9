// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render defines where composited frames go and how the host
// application hands its GPU device to the compositor.
//
// # Key Principle
//
// The compositor RECEIVES the GPU device and the window surface from the
// host; window creation and the event loop stay with the host.
//
// # RenderTarget Implementations
//
//   - PixmapTarget: CPU-backed *image.RGBA, composited in software
//   - SurfaceTarget: the texture view of an acquired window surface texture
//
// The GPU backend adds an offscreen texture target with CPU readback.
//
// # Device Integration
//
// DeviceHandle is gpucontext.DeviceProvider. HalObjects extracts the
// wgpu HAL device and queue from either a DeviceHandle or a host that
// implements HalProvider.
package render
