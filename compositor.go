package compositor

import (
	"errors"
	"fmt"

	"github.com/gogpu/compositor/render"
)

// Compositor draws layers into render targets.
//
// Composite prepares a Frame (viewport policy, layer validation, uniforms)
// and hands it to the hardware backend when the target exposes a texture
// view, or to the software compositor when it exposes pixels.
//
// A Compositor is not safe for concurrent use; drive it from the render
// thread.
type Compositor struct {
	opts     Options
	backend  Backend
	explicit bool
	software *SoftwareCompositor
}

// New creates a compositor with DefaultOptions modified by opts. It uses
// the registered backend, if any.
func New(opts ...Option) *Compositor {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Compositor{
		opts:     o,
		software: NewSoftwareCompositor(),
	}
}

// Options returns the active options.
func (c *Compositor) Options() Options { return c.opts }

// UseBackend pins a backend instead of the registered one. Pass nil to
// force software compositing.
func (c *Compositor) UseBackend(b Backend) {
	c.backend = b
	c.explicit = true
}

func (c *Compositor) activeBackend() Backend {
	if c.explicit {
		return c.backend
	}
	return ActiveBackend()
}

// Composite draws layers, back to front, over the background into target.
// The viewport must describe target in layer-space units. An empty layer
// list runs the background pass only.
func (c *Compositor) Composite(target render.RenderTarget, vp Viewport, layers []Layer) error {
	if target == nil {
		return errors.New("compositor: nil target")
	}
	frame, err := PrepareFrame(vp, layers, c.opts)
	if err != nil {
		return err
	}
	return c.CompositeFrame(target, &frame)
}

// CompositeFrame draws an already prepared frame.
func (c *Compositor) CompositeFrame(target render.RenderTarget, frame *Frame) error {
	if b := c.activeBackend(); b != nil && target.TextureView() != nil {
		err := b.Composite(target, frame, c.opts)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrFallbackToCPU) || target.Pixels() == nil {
			return fmt.Errorf("composite with %s: %w", b.Name(), err)
		}
		Logger().Warn("compositor: backend fell back to CPU", "backend", b.Name())
	}
	return c.software.Composite(target, frame, c.opts)
}

// Close releases the pinned backend. Registered backends are owned by the
// registry and stay open.
func (c *Compositor) Close() {
	if c.explicit && c.backend != nil {
		c.backend.Close()
		c.backend = nil
	}
}
