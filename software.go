package compositor

import (
	"errors"
	"image"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/gogpu/compositor/render"
)

// SoftwareCompositor composites on the CPU with golang.org/x/image/draw.
//
// It derives each layer's destination from the same RenderUniform the GPU
// vertex stage uses, so both paths place layers identically. Layers are
// blended with draw.Over, which is source-over on premultiplied values.
type SoftwareCompositor struct{}

// NewSoftwareCompositor creates a CPU compositor.
func NewSoftwareCompositor() *SoftwareCompositor {
	return &SoftwareCompositor{}
}

// Composite fills target with the background color and draws every item
// of frame in order. The target must expose CPU pixels.
func (s *SoftwareCompositor) Composite(target render.RenderTarget, frame *Frame, opts Options) error {
	if target == nil {
		return errors.New("compositor: nil target")
	}
	pixels := target.Pixels()
	if pixels == nil {
		return errors.New("compositor: target does not support CPU compositing")
	}
	dst := &image.RGBA{
		Pix:    pixels,
		Stride: target.Stride(),
		Rect:   image.Rect(0, 0, target.Width(), target.Height()),
	}

	draw.Draw(dst, dst.Rect, image.NewUniform(opts.Background), image.Point{}, draw.Src)

	interp := interpolator(opts.Filter)
	for i := range frame.Items {
		s.drawLayer(dst, &frame.Items[i], interp, opts.Blend)
	}
	return nil
}

func (s *SoftwareCompositor) drawLayer(dst *image.RGBA, item *DrawItem, interp draw.Transformer, blend BlendMode) {
	src := layerSource(item.Layer.Image, blend)
	sr := src.Bounds()
	s2d := layerToTarget(item.Uniform, sr, dst.Rect.Size())
	interp.Transform(dst, s2d, src, sr, draw.Over, nil)
}

// layerToTarget builds the affine map from layer image pixels to target
// pixels. The image origin is src.Min, so sub-images land where their
// full-size equivalent would. NDC in [-1,1] maps onto [0,size] on each axis; y is already in
// layer orientation, so no clip-space negation applies here. A negative
// flip mirrors the image vertically, as the fragment stage does.
func layerToTarget(u RenderUniform, src image.Rectangle, target image.Point) f64.Aff3 {
	img := src.Size()
	lo, hi := u.Bounds()
	w, h := float64(target.X), float64(target.Y)
	x0 := (float64(lo.X) + 1) / 2 * w
	x1 := (float64(hi.X) + 1) / 2 * w
	y0 := (float64(lo.Y) + 1) / 2 * h
	y1 := (float64(hi.Y) + 1) / 2 * h

	sx := (x1 - x0) / float64(img.X)
	sy := (y1 - y0) / float64(img.Y)
	tx, ty := x0, y0
	if u.Flip.X < 0 {
		sx, tx = -sx, x1
	}
	if u.Flip.Y < 0 {
		sy, ty = -sy, y1
	}
	tx -= sx * float64(src.Min.X)
	ty -= sy * float64(src.Min.Y)
	return f64.Aff3{
		sx, 0, tx,
		0, sy, ty,
	}
}

// layerSource returns the layer pixels as an image whose color model
// matches the blend mode: NRGBA for straight alpha, an RGBA view over the
// same bytes for premultiplied alpha.
func layerSource(img *image.NRGBA, blend BlendMode) image.Image {
	if blend == BlendPremultiplied {
		return &image.RGBA{Pix: img.Pix, Stride: img.Stride, Rect: img.Rect}
	}
	return img
}

func interpolator(f Filter) draw.Transformer {
	if f == FilterLinear {
		return draw.ApproxBiLinear
	}
	return draw.NearestNeighbor
}
