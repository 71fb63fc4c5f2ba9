package compositor

import (
	"encoding/binary"
	"image"
	"math"
)

// UniformSize is the byte size of RenderUniform on the GPU: four vec2<f32>.
const UniformSize = 32

// QuadVertexCount is the number of vertices drawn per layer as a triangle
// strip.
const QuadVertexCount = 4

// QuadCorner returns the unit-rectangle corner for a vertex index. Bit 1
// selects x and bit 0 selects y:
//
//	0 -> (-1,-1)  1 -> (-1, 1)  2 -> ( 1,-1)  3 -> ( 1, 1)
//
// Drawn in order 0,1,2,3 as a triangle strip the corners cover the whole
// rectangle. Indices above 3 wrap on the two low bits. The WGSL function
// quad_corner uses the same mapping.
func QuadCorner(i uint32) Vec2 {
	return Vec2{
		X: float32((i>>1)&1)*2 - 1,
		Y: float32(i&1)*2 - 1,
	}
}

// RenderUniform is the per-layer transform uniform. Field order and layout
// match the WGSL LayerUniform struct.
type RenderUniform struct {
	Offset   Vec2
	Size     Vec2
	Viewport Vec2
	// Flip converts unit-rectangle positions into texture coordinates:
	// (1,1) for top-left origin images, (1,-1) for bottom-left ones.
	Flip Vec2
}

// FlipFor returns the sampling flip vector for a texture origin.
func FlipFor(origin TextureOrigin) Vec2 {
	if origin == OriginBottomLeft {
		return Vec2{1, -1}
	}
	return Vec2{1, 1}
}

// NewRenderUniform derives the uniform for one layer placement. The
// viewport must already be valid.
func NewRenderUniform(offset, size Vec2, vp Viewport, origin TextureOrigin) RenderUniform {
	return RenderUniform{
		Offset:   offset,
		Size:     size,
		Viewport: vp.Vec(),
		Flip:     FlipFor(origin),
	}
}

// Transform maps a unit-rectangle corner into normalized device
// coordinates in layer orientation (y grows downward):
//
//	ndc = vert * size / viewport + (2 * offset + size) / viewport - 1
//
// The quad therefore spans 2*offset/viewport - 1 to
// 2*(offset+size)/viewport - 1 on each axis. The vertex stage negates y
// when writing clip space.
func (u RenderUniform) Transform(vert Vec2) Vec2 {
	scale := u.Size.Div(u.Viewport)
	translate := u.Offset.Scale(2).Add(u.Size).Div(u.Viewport)
	return Vec2{
		X: vert.X*scale.X + translate.X - 1,
		Y: vert.Y*scale.Y + translate.Y - 1,
	}
}

// ClipPosition returns the clip-space position the vertex stage emits for
// a corner.
func (u RenderUniform) ClipPosition(vert Vec2) [4]float32 {
	ndc := u.Transform(vert)
	return [4]float32{ndc.X, -ndc.Y, 0, 1}
}

// TexCoord converts a unit-rectangle corner into texture coordinates:
// uv = (vert * flip + 1) / 2.
func (u RenderUniform) TexCoord(vert Vec2) Vec2 {
	return Vec2{
		X: (vert.X*u.Flip.X + 1) / 2,
		Y: (vert.Y*u.Flip.Y + 1) / 2,
	}
}

// Bounds returns the minimum and maximum corner of the transformed quad.
func (u RenderUniform) Bounds() (lo, hi Vec2) {
	lo = u.Transform(QuadCorner(0))
	hi = u.Transform(QuadCorner(3))
	if lo.X > hi.X {
		lo.X, hi.X = hi.X, lo.X
	}
	if lo.Y > hi.Y {
		lo.Y, hi.Y = hi.Y, lo.Y
	}
	return lo, hi
}

// Bytes returns the 32-byte little-endian GPU representation.
func (u RenderUniform) Bytes() []byte {
	buf := make([]byte, UniformSize)
	u.PutBytes(buf)
	return buf
}

// PutBytes writes the GPU representation into buf, which must hold at
// least UniformSize bytes.
func (u RenderUniform) PutBytes(buf []byte) {
	_ = buf[UniformSize-1]
	for i, f := range [8]float32{
		u.Offset.X, u.Offset.Y,
		u.Size.X, u.Size.Y,
		u.Viewport.X, u.Viewport.Y,
		u.Flip.X, u.Flip.Y,
	} {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
}

// FitRect returns the offset and size at which an image of the given pixel
// size is drawn inside the rectangle offset/size. FitStretch returns the
// rectangle unchanged. FitContain shrinks one axis so the image keeps its
// aspect ratio and centers it.
func FitRect(content image.Point, offset, size Vec2, fit FitMode) (Vec2, Vec2) {
	if fit != FitContain || content.X <= 0 || content.Y <= 0 || !size.Positive() {
		return offset, size
	}
	imageAspect := float32(content.X) / float32(content.Y)
	rectAspect := size.X / size.Y
	fitted := size
	switch {
	case imageAspect > rectAspect:
		fitted.Y = size.X / imageAspect
	case imageAspect < rectAspect:
		fitted.X = size.Y * imageAspect
	default:
		return offset, size
	}
	return Vec2{
		X: offset.X + (size.X-fitted.X)/2,
		Y: offset.Y + (size.Y-fitted.Y)/2,
	}, fitted
}
