// Package compositor draws externally rendered image layers into a window
// surface.
//
// # Overview
//
// A rendering engine produces rectangular pixel buffers (layers), each placed
// at an offset and size in layer space. The compositor clears the output
// target to a background color and then draws every layer, back to front,
// through a procedural quad whose corners are mapped into clip space by a
// per-layer uniform. Layers are blended with source-over, so transparent
// regions reveal what lies beneath.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/compositor"
//	    "github.com/gogpu/compositor/render"
//	)
//
//	c := compositor.New(compositor.WithBackground(color.NRGBA{A: 255}))
//	target := render.NewPixmapTarget(800, 600)
//	err := c.Composite(target, compositor.Viewport{Width: 800, Height: 600}, []compositor.Layer{
//	    {ID: 1, Size: compositor.Vec2{X: 800, Y: 600}, Image: img},
//	})
//
// For hardware compositing, import the GPU backend:
//
//	import _ "github.com/gogpu/compositor/gpu"
//
// # Coordinate System
//
// Layer space uses window conventions:
//   - Origin (0,0) at top-left
//   - X increases right
//   - Y increases down
//
// The viewport is expressed in the same units. A layer with offset (0,0)
// and size equal to the viewport covers the whole output.
//
// # Backends
//
// SoftwareCompositor runs on the CPU with golang.org/x/image/draw and is
// always available. The wgpu backend registered by the gpu package encodes
// one render pass per frame: the background pass, then one draw per layer.
package compositor
