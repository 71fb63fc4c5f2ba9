package compositor

import (
	"errors"
	"math"

	"github.com/gogpu/gpucontext"
)

// ErrInvalidViewport is returned when a viewport has a zero, negative or
// non-finite dimension and the viewport policy rejects it.
var ErrInvalidViewport = errors.New("compositor: invalid viewport")

// Vec2 is a pair of float32 components, the host mirror of WGSL vec2<f32>.
type Vec2 struct {
	X, Y float32
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

// Mul returns the component-wise product v * o.
func (v Vec2) Mul(o Vec2) Vec2 { return Vec2{v.X * o.X, v.Y * o.Y} }

// Div returns the component-wise quotient v / o.
func (v Vec2) Div(o Vec2) Vec2 { return Vec2{v.X / o.X, v.Y / o.Y} }

// Scale returns v * s.
func (v Vec2) Scale(s float32) Vec2 { return Vec2{v.X * s, v.Y * s} }

// Positive reports whether both components are finite and greater than zero.
func (v Vec2) Positive() bool {
	return finite(v.X) && finite(v.Y) && v.X > 0 && v.Y > 0
}

// Finite reports whether both components are neither NaN nor infinite.
func (v Vec2) Finite() bool { return finite(v.X) && finite(v.Y) }

func finite(f float32) bool {
	return !math.IsNaN(float64(f)) && !math.IsInf(float64(f), 0)
}

// Viewport is the size of the output surface in layer-space units.
type Viewport struct {
	Width, Height float32
}

// Vec returns the viewport as a Vec2.
func (vp Viewport) Vec() Vec2 { return Vec2{vp.Width, vp.Height} }

// Valid reports whether both dimensions are finite and positive.
func (vp Viewport) Valid() bool { return vp.Vec().Positive() }

// Clamp returns the viewport with every dimension raised to at least 1.
// Non-finite dimensions become 1.
func (vp Viewport) Clamp() Viewport {
	return Viewport{Width: clampUnit(vp.Width), Height: clampUnit(vp.Height)}
}

func clampUnit(f float32) float32 {
	if !finite(f) || f < 1 {
		return 1
	}
	return f
}

// PixelSize returns the viewport rounded to whole pixels, at least 1x1.
func (vp Viewport) PixelSize() (int, int) {
	c := vp.Clamp()
	return int(math.Round(float64(c.Width))), int(math.Round(float64(c.Height)))
}

// ViewportFromWindow derives the viewport in physical pixels from a host
// window: logical size times the DPI scale factor.
func ViewportFromWindow(w gpucontext.WindowProvider) Viewport {
	width, height := w.Size()
	scale := w.ScaleFactor()
	if scale <= 0 {
		scale = 1
	}
	return Viewport{
		Width:  float32(float64(width) * scale),
		Height: float32(float64(height) * scale),
	}
}
