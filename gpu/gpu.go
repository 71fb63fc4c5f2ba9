//go:build !nogpu

// Package gpu registers the wgpu compositing backend.
//
// Import this package to composite layers on the GPU whenever the render
// target exposes a texture view:
//
//	import _ "github.com/gogpu/compositor/gpu"
//
// If GPU initialization fails (no Vulkan device available), the backend
// stays registered but defers every frame to the software compositor.
//
// Hosts that already own a device (for example a gogpu window) share it
// with SetDeviceProvider instead of letting the backend open its own.
package gpu

import (
	"github.com/gogpu/compositor"
	gpuimpl "github.com/gogpu/compositor/internal/gpu"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// ErrFrameSkipped is returned by Presenter.Frame when the surface had to be
// reconfigured. Draw the next frame normally.
var ErrFrameSkipped = gpuimpl.ErrFrameSkipped

// Presenter drives a window surface. See NewPresenter.
type Presenter = gpuimpl.Presenter

// OffscreenTarget is a GPU render target read back into CPU pixels.
type OffscreenTarget = gpuimpl.OffscreenTarget

func init() {
	if err := compositor.RegisterBackend(gpuimpl.NewBackend()); err != nil {
		compositor.Logger().Warn("GPU compositor not available", "err", err)
	}
}

// SetDeviceProvider makes the registered backend use a GPU device owned by
// the host. The provider must be a render.DeviceHandle or render.HalProvider
// whose device and queue are wgpu hal objects.
func SetDeviceProvider(provider any) error {
	return compositor.SetBackendDeviceProvider(provider)
}

// backendDevice returns the device and queue of the registered wgpu
// backend.
func backendDevice() (hal.Device, hal.Queue, bool) {
	b, ok := compositor.ActiveBackend().(*gpuimpl.Backend)
	if !ok || !b.Ready() {
		return nil, nil, false
	}
	return b.Device(), b.Queue(), true
}

// Available reports whether the registered backend has a usable device.
func Available() bool {
	_, _, ok := backendDevice()
	return ok
}

// NewOffscreenTarget creates a width x height target on the backend device.
// It returns compositor.ErrFallbackToCPU when no device is available.
func NewOffscreenTarget(width, height int) (*OffscreenTarget, error) {
	device, _, ok := backendDevice()
	if !ok {
		return nil, compositor.ErrFallbackToCPU
	}
	return gpuimpl.NewOffscreenTarget(device, width, height)
}

// NewPresenter returns a presenter for a surface created on the backend
// device's instance. A zero format selects BGRA8Unorm.
func NewPresenter(surface hal.Surface, format gputypes.TextureFormat) (*Presenter, error) {
	device, queue, ok := backendDevice()
	if !ok {
		return nil, compositor.ErrFallbackToCPU
	}
	return gpuimpl.NewPresenter(device, queue, surface, format), nil
}
