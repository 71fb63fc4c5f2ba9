package compositor

import "image"

// LayerID identifies an engine backing store across frames. GPU resources
// for a layer are cached under its ID.
type LayerID uint64

// Layer is one externally rendered image and its placement in layer space.
//
// The compositor borrows Image read-only for the duration of a Composite
// call and never retains it afterwards.
type Layer struct {
	ID LayerID

	// Offset is the top-left corner of the layer in layer space.
	Offset Vec2

	// Size is the extent of the layer in layer space. Both components must
	// be positive or the layer is skipped.
	Size Vec2

	// Image holds the layer pixels with straight (non-premultiplied) alpha,
	// or premultiplied alpha when the compositor uses BlendPremultiplied.
	// A nil Image means the engine has not produced content yet.
	Image *image.NRGBA

	// Version changes whenever the engine rewrites Image. Cached GPU
	// textures are re-uploaded only when it differs from the last upload.
	// Zero forces an upload every frame.
	Version uint64
}

// ImageSize returns the pixel dimensions of the layer image, or zero when
// there is no image.
func (l *Layer) ImageSize() image.Point {
	if l.Image == nil {
		return image.Point{}
	}
	return l.Image.Bounds().Size()
}

// FullScreenLayer returns a layer covering the whole viewport.
func FullScreenLayer(id LayerID, vp Viewport, img *image.NRGBA) Layer {
	return Layer{ID: id, Size: vp.Vec(), Image: img}
}
