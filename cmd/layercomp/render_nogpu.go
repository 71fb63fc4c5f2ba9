//go:build nogpu

package main

import (
	"image"

	"github.com/gogpu/compositor"
)

func compositeGPU(*compositor.Compositor, compositor.Viewport, []compositor.Layer, int, int) (image.Image, error) {
	return nil, compositor.ErrFallbackToCPU
}
