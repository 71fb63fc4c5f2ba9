package compositor

import (
	"errors"
	"sync"

	"github.com/gogpu/compositor/render"
)

// ErrFallbackToCPU indicates the backend cannot composite to this target.
// The Compositor then uses the software path if the target has pixels.
var ErrFallbackToCPU = errors.New("compositor: falling back to CPU compositing")

// Backend is a hardware compositing implementation.
//
// Backends are provided by separate packages and registered with
// RegisterBackend, usually from an init function:
//
//	import _ "github.com/gogpu/compositor/gpu"
type Backend interface {
	// Name returns the backend name (e.g., "wgpu").
	Name() string

	// Init acquires GPU resources. Called once during registration.
	Init() error

	// Close releases GPU resources.
	Close()

	// Composite runs the background pass and one layer pass per item of
	// frame, in order, into target. It returns ErrFallbackToCPU when it
	// cannot render to target.
	Composite(target render.RenderTarget, frame *Frame, opts Options) error
}

// DeviceProviderAware is implemented by backends that can share the GPU
// device of the host application instead of creating their own.
type DeviceProviderAware interface {
	SetDeviceProvider(provider any) error
}

var (
	backendMu sync.RWMutex
	backend   Backend
)

// RegisterBackend registers the hardware backend. Init is called first;
// when it fails the backend is not registered. A previously registered
// backend is closed.
func RegisterBackend(b Backend) error {
	if b == nil {
		return errors.New("compositor: backend must not be nil")
	}
	if err := b.Init(); err != nil {
		return err
	}
	backendMu.Lock()
	old := backend
	backend = b
	backendMu.Unlock()
	if old != nil && old != b {
		old.Close()
	}
	propagateLogger(b, Logger())
	return nil
}

// ActiveBackend returns the registered backend, or nil.
func ActiveBackend() Backend {
	backendMu.RLock()
	b := backend
	backendMu.RUnlock()
	return b
}

// UnregisterBackend removes and closes the registered backend.
func UnregisterBackend() {
	backendMu.Lock()
	old := backend
	backend = nil
	backendMu.Unlock()
	if old != nil {
		old.Close()
	}
}

// SetBackendDeviceProvider hands the host GPU device to the registered
// backend. It is a no-op when no backend is registered or the backend
// cannot share devices.
func SetBackendDeviceProvider(provider any) error {
	b := ActiveBackend()
	if b == nil {
		return nil
	}
	if dpa, ok := b.(DeviceProviderAware); ok {
		return dpa.SetDeviceProvider(provider)
	}
	return nil
}
