//go:build !nogpu

package main

import (
	"image"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/gpu"
)

func compositeGPU(c *compositor.Compositor, vp compositor.Viewport, layers []compositor.Layer, w, h int) (image.Image, error) {
	target, err := gpu.NewOffscreenTarget(w, h)
	if err != nil {
		return nil, err
	}
	defer target.Destroy()
	if err := c.Composite(target, vp, layers); err != nil {
		return nil, err
	}
	return target.Image(), nil
}
