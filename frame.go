package compositor

import "fmt"

// DrawItem is one layer ready to be drawn with its derived uniform.
// Uniforms are recomputed every frame and never cached.
type DrawItem struct {
	Layer   Layer
	Uniform RenderUniform
}

// Frame is the validated input of one composite: the effective viewport
// and the drawable layers in paint order (back to front).
type Frame struct {
	Viewport Viewport
	Items    []DrawItem

	// Skipped counts layers dropped during preparation.
	Skipped int
}

// Empty reports whether only the background pass will run.
func (f *Frame) Empty() bool { return len(f.Items) == 0 }

// PrepareFrame validates the viewport and turns layers into draw items.
//
// An invalid viewport is clamped or rejected according to the viewport
// policy. Layers with a non-positive size, a non-finite offset or without
// an image are skipped and logged; the remaining layers keep their order.
func PrepareFrame(vp Viewport, layers []Layer, opts Options) (Frame, error) {
	if !vp.Valid() {
		if opts.ViewportPolicy == ViewportSkip {
			return Frame{}, fmt.Errorf("%w: %vx%v", ErrInvalidViewport, vp.Width, vp.Height)
		}
		clamped := vp.Clamp()
		Logger().Warn("compositor: clamping invalid viewport",
			"width", vp.Width, "height", vp.Height,
			"clamped_width", clamped.Width, "clamped_height", clamped.Height)
		vp = clamped
	}

	frame := Frame{Viewport: vp, Items: make([]DrawItem, 0, len(layers))}
	for i := range layers {
		l := &layers[i]
		if !l.Size.Positive() {
			Logger().Warn("compositor: skipping layer with non-positive size",
				"layer", l.ID, "index", i, "width", l.Size.X, "height", l.Size.Y)
			frame.Skipped++
			continue
		}
		if !l.Offset.Finite() {
			Logger().Warn("compositor: skipping layer with non-finite offset",
				"layer", l.ID, "index", i, "x", l.Offset.X, "y", l.Offset.Y)
			frame.Skipped++
			continue
		}
		if l.Image == nil || l.Image.Bounds().Empty() {
			Logger().Warn("compositor: skipping layer without content",
				"layer", l.ID, "index", i)
			frame.Skipped++
			continue
		}
		offset, size := FitRect(l.ImageSize(), l.Offset, l.Size, opts.Fit)
		frame.Items = append(frame.Items, DrawItem{
			Layer:   *l,
			Uniform: NewRenderUniform(offset, size, vp, opts.Origin),
		})
	}
	return frame, nil
}
