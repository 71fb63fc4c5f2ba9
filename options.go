package compositor

import (
	"fmt"
	"image/color"
	"strings"
)

// Filter selects how layer textures are sampled.
type Filter uint8

const (
	// FilterNearest samples the closest texel.
	FilterNearest Filter = iota
	// FilterLinear interpolates between neighbouring texels.
	FilterLinear
)

// TextureOrigin tells which image row is stored first.
type TextureOrigin uint8

const (
	// OriginTopLeft is the Go image and WebGPU texture convention: row 0 is
	// the top of the picture. Sampling uses flip (1, 1).
	OriginTopLeft TextureOrigin = iota
	// OriginBottomLeft is the OpenGL convention: row 0 is the bottom of the
	// picture. Sampling uses flip (1, -1).
	OriginBottomLeft
)

// BlendMode selects the source-over variant applied to layer pixels.
type BlendMode uint8

const (
	// BlendStraight expects straight alpha: src*a + dst*(1-a).
	BlendStraight BlendMode = iota
	// BlendPremultiplied expects premultiplied alpha: src + dst*(1-a).
	BlendPremultiplied
)

// FitMode selects how a layer image fills its offset/size rectangle.
type FitMode uint8

const (
	// FitStretch scales the image to the rectangle on each axis independently.
	FitStretch FitMode = iota
	// FitContain keeps the image aspect ratio and centers it in the rectangle.
	FitContain
)

// ViewportPolicy selects what happens to a zero or negative viewport.
type ViewportPolicy uint8

const (
	// ViewportClamp raises each dimension to at least 1 and composites.
	ViewportClamp ViewportPolicy = iota
	// ViewportSkip rejects the frame with ErrInvalidViewport.
	ViewportSkip
)

// BackgroundMode selects how the background pass fills the target.
type BackgroundMode uint8

const (
	// BackgroundClear clears the target as part of the render pass.
	BackgroundClear BackgroundMode = iota
	// BackgroundFill draws the procedural quad with the background color.
	BackgroundFill
)

// Options configures a Compositor.
type Options struct {
	Background     color.NRGBA
	BackgroundMode BackgroundMode
	Filter         Filter
	Origin         TextureOrigin
	Blend          BlendMode
	Fit            FitMode
	ViewportPolicy ViewportPolicy
}

// DefaultOptions returns opaque white background, nearest sampling,
// top-left origin, straight alpha, stretch and clamp.
func DefaultOptions() Options {
	return Options{
		Background: color.NRGBA{R: 255, G: 255, B: 255, A: 255},
	}
}

// Option configures a Compositor during creation.
type Option func(*Options)

// WithBackground sets the background pass color.
func WithBackground(c color.NRGBA) Option {
	return func(o *Options) { o.Background = c }
}

// WithBackgroundMode sets how the background pass is executed.
func WithBackgroundMode(m BackgroundMode) Option {
	return func(o *Options) { o.BackgroundMode = m }
}

// WithFilter sets the sampling filter used for every layer.
func WithFilter(f Filter) Option {
	return func(o *Options) { o.Filter = f }
}

// WithTextureOrigin sets the row order of layer images.
func WithTextureOrigin(origin TextureOrigin) Option {
	return func(o *Options) { o.Origin = origin }
}

// WithBlend sets the alpha convention of layer pixels.
func WithBlend(b BlendMode) Option {
	return func(o *Options) { o.Blend = b }
}

// WithFit sets how images fill their layer rectangle.
func WithFit(f FitMode) Option {
	return func(o *Options) { o.Fit = f }
}

// WithViewportPolicy sets the handling of invalid viewports.
func WithViewportPolicy(p ViewportPolicy) Option {
	return func(o *Options) { o.ViewportPolicy = p }
}

// WithOptions replaces all options at once.
func WithOptions(opts Options) Option {
	return func(o *Options) { *o = opts }
}

// ParseFilter parses "nearest" or "linear".
func ParseFilter(s string) (Filter, error) {
	switch strings.ToLower(s) {
	case "", "nearest":
		return FilterNearest, nil
	case "linear":
		return FilterLinear, nil
	}
	return 0, fmt.Errorf("unknown filter %q", s)
}

// ParseTextureOrigin parses "top-left" or "bottom-left".
func ParseTextureOrigin(s string) (TextureOrigin, error) {
	switch strings.ToLower(s) {
	case "", "top-left":
		return OriginTopLeft, nil
	case "bottom-left":
		return OriginBottomLeft, nil
	}
	return 0, fmt.Errorf("unknown texture origin %q", s)
}

// ParseBlendMode parses "straight" or "premultiplied".
func ParseBlendMode(s string) (BlendMode, error) {
	switch strings.ToLower(s) {
	case "", "straight":
		return BlendStraight, nil
	case "premultiplied":
		return BlendPremultiplied, nil
	}
	return 0, fmt.Errorf("unknown blend mode %q", s)
}

// ParseFitMode parses "stretch" or "contain".
func ParseFitMode(s string) (FitMode, error) {
	switch strings.ToLower(s) {
	case "", "stretch":
		return FitStretch, nil
	case "contain":
		return FitContain, nil
	}
	return 0, fmt.Errorf("unknown fit mode %q", s)
}

// ParseViewportPolicy parses "clamp" or "skip".
func ParseViewportPolicy(s string) (ViewportPolicy, error) {
	switch strings.ToLower(s) {
	case "", "clamp":
		return ViewportClamp, nil
	case "skip":
		return ViewportSkip, nil
	}
	return 0, fmt.Errorf("unknown viewport policy %q", s)
}

// ParseBackgroundMode parses "clear" or "fill".
func ParseBackgroundMode(s string) (BackgroundMode, error) {
	switch strings.ToLower(s) {
	case "", "clear":
		return BackgroundClear, nil
	case "fill":
		return BackgroundFill, nil
	}
	return 0, fmt.Errorf("unknown background mode %q", s)
}
