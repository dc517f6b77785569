// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package main

import (
	"github.com/gogpu/compute/backend/software"
	"github.com/gogpu/compute/internal/pixel"
)

// Software counterparts of the WGSL entry points in shaders/.
func init() {
	software.RegisterKernel("invert4", invert4)
	software.RegisterKernel("invert3", invert3)
}

// info mirrors the Info uniform: two i32 followed by a vec2 of padding.
type info struct {
	Width  int32
	Height int32
	_      [2]float32
}

// pixelIndex returns the linear index of the invocation's pixel, or false
// when the invocation falls outside the image.
func pixelIndex(inv software.Invocation, b *software.Bindings) (int, bool) {
	gInfo, ok := software.Value[info](b, 0, 0)
	if !ok {
		return 0, false
	}
	x, y := int32(inv.WorkgroupID[0]), int32(inv.WorkgroupID[1])
	if x >= gInfo.Width || y >= gInfo.Height {
		return 0, false
	}
	return int(y)*int(gInfo.Width) + int(x), true
}

func invert4(inv software.Invocation, b *software.Bindings) {
	i, ok := pixelIndex(inv, b)
	if !ok {
		return
	}
	in := software.Slice[pixel.Vec4](b, 1, 0)
	out := software.Slice[pixel.Vec4](b, 2, 0)
	c := in[i]
	out[i] = pixel.Vec4{1 - c[0], 1 - c[1], 1 - c[2], c[3]}
}

func invert3(inv software.Invocation, b *software.Bindings) {
	i, ok := pixelIndex(inv, b)
	if !ok {
		return
	}
	in := software.Slice[pixel.Vec3](b, 1, 0)
	out := software.Slice[pixel.Vec3](b, 2, 0)
	c := in[i]
	out[i] = pixel.Vec3{1 - c[0], 1 - c[1], 1 - c[2]}
}
