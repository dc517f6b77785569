// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package wgpu

import "errors"

// Sentinel errors for the wgpu backend.
var (
	// ErrNoAdapter is returned when the instance exposes no adapters.
	ErrNoAdapter = errors.New("wgpu: no GPU adapters found")

	// ErrBackendUnavailable is returned when the HAL backend is not compiled in
	// or cannot create an instance.
	ErrBackendUnavailable = errors.New("wgpu: backend not available")

	// ErrShaderCompile is returned when WGSL fails to compile to SPIR-V.
	ErrShaderCompile = errors.New("wgpu: shader compilation failed")

	// ErrUnknownResource is returned when an ID does not name a live resource.
	ErrUnknownResource = errors.New("wgpu: unknown resource")

	// ErrNotRecording is returned when a command list is used outside Begin/End
	// or submitted before End.
	ErrNotRecording = errors.New("wgpu: command list is not recording")

	// ErrTimeout is returned when the device does not signal a fence in time.
	ErrTimeout = errors.New("wgpu: GPU timeout")

	// ErrInvalidProvider is returned by OpenShared when the provider does not
	// expose HAL device and queue handles.
	ErrInvalidProvider = errors.New("wgpu: provider does not expose HAL types")

	// ErrDeviceDestroyed is returned by operations on a destroyed device.
	ErrDeviceDestroyed = errors.New("wgpu: device destroyed")
)
