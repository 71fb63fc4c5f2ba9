//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	_ "embed"
)

//go:embed shaders/layer.wgsl
var layerShaderSource string

// Shader entry points in layer.wgsl.
const (
	layerVertexEntry   = "vs_layer"
	layerFragmentEntry = "fs_layer"
	fillVertexEntry    = "vs_fill"
	fillFragmentEntry  = "fs_fill"
)

// fillUniformSize is the byte size of FillUniform (one vec4<f32>).
const fillUniformSize = 16

// LayerShaderSource returns the WGSL source of the layer and fill shaders.
func LayerShaderSource() string {
	return layerShaderSource
}
