// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package main

import (
	"embed"
	"fmt"
	"slices"

	"github.com/gogpu/compute"
	"github.com/gogpu/compute/gpucore"
)

//go:embed shaders/*.wgsl
var shaders embed.FS

func shaderSource(entryPoint string) (string, error) {
	src, err := shaders.ReadFile("shaders/" + entryPoint + ".wgsl")
	if err != nil {
		return "", fmt.Errorf("computedemo: shader %q: %w", entryPoint, err)
	}
	return string(src), nil
}

// invert runs the named inversion shader over input, a width x height grid
// of colors, and returns the output grid.
//
// The bindings are gInfo (set 0), gInput (set 1) and gOutput (set 2). One
// workgroup is dispatched per pixel. With check set, the uploaded input is
// read back and compared before dispatching.
func invert[T comparable](backend gpucore.Backend, entryPoint string, input []T, width, height int, check bool, opts ...compute.Option) ([]T, error) {
	src, err := shaderSource(entryPoint)
	if err != nil {
		return nil, err
	}

	s, err := compute.NewSession(backend, src, entryPoint, opts...)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	n := width * height
	infoDesc, err := compute.UniformDescriptor[info]("gInfo", 0, 0)
	if err != nil {
		return nil, err
	}
	inDesc, err := compute.StructuredDescriptor[T]("gInput", 1, 0, n)
	if err != nil {
		return nil, err
	}
	outDesc, err := compute.StructuredDescriptor[T]("gOutput", 2, 0, n)
	if err != nil {
		return nil, err
	}

	infoBuf, err := s.CreateBuffer(infoDesc)
	if err != nil {
		return nil, err
	}
	inBuf, err := s.CreateBuffer(inDesc)
	if err != nil {
		return nil, err
	}
	outBuf, err := s.CreateBuffer(outDesc)
	if err != nil {
		return nil, err
	}

	if err := compute.WriteValue(infoBuf, info{Width: int32(width), Height: int32(height)}); err != nil {
		return nil, err
	}
	if err := compute.Write(inBuf, input); err != nil {
		return nil, err
	}
	if check {
		if err := verifyUpload(inBuf, input); err != nil {
			return nil, err
		}
	}

	if err := s.Dispatch(uint32(width), uint32(height), 1); err != nil {
		return nil, err
	}
	return compute.Read[T](outBuf)
}

// verifyUpload reads buf back and checks it against want.
func verifyUpload[T comparable](buf *compute.Buffer, want []T) error {
	got, err := compute.Read[T](buf)
	if err != nil {
		return fmt.Errorf("computedemo: read back %s: %w", buf.Name(), err)
	}
	if !slices.Equal(got, want) {
		return fmt.Errorf("computedemo: %s does not read back what was written", buf.Name())
	}
	return nil
}
