// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// DeviceHandle provides GPU device access from the host application.
//
// The compositor receives the device from the host window framework; it
// does not create one when a handle is supplied. Device and Queue are
// expected to hold wgpu hal.Device and hal.Queue values.
type DeviceHandle = gpucontext.DeviceProvider

// HalProvider is implemented by hosts that expose wgpu HAL objects
// directly instead of through DeviceHandle.
type HalProvider interface {
	HalDevice() any
	HalQueue() any
}

// NullDeviceHandle is a DeviceHandle without a device, used for CPU-only
// compositing.
type NullDeviceHandle struct{}

func (NullDeviceHandle) Device() gpucontext.Device { return nil }

func (NullDeviceHandle) Queue() gpucontext.Queue { return nil }

func (NullDeviceHandle) Adapter() gpucontext.Adapter { return nil }

// SurfaceFormat returns TextureFormatUndefined (headless).
func (NullDeviceHandle) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatUndefined
}

// AdapterInfo reports an unknown adapter.
func (NullDeviceHandle) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: "none", Type: gpucontext.AdapterTypeUnknown}
}

var _ DeviceHandle = NullDeviceHandle{}

// HalObjects extracts the device and queue values from a provider. It
// accepts HalProvider first and falls back to DeviceHandle. Callers type
// assert the results to hal.Device and hal.Queue.
func HalObjects(provider any) (device, queue any, ok bool) {
	switch p := provider.(type) {
	case HalProvider:
		return p.HalDevice(), p.HalQueue(), true
	case DeviceHandle:
		return p.Device(), p.Queue(), true
	}
	return nil, nil, false
}
