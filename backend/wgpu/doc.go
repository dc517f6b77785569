// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package wgpu implements gpucore.Device on the gogpu/wgpu HAL.
//
// Importing the package registers two backends with the gpucore registry:
//
//   - "vulkan": a standalone Vulkan device, preferring discrete or
//     integrated GPUs
//   - "noop": the HAL noop device, which accepts every call and runs nothing
//
// Shaders are written in WGSL and compiled to SPIR-V with gogpu/naga.
//
// # Shared devices
//
// Applications that already own a device through gogpu can hand it to a
// compute session instead of opening a second one:
//
//	dev, err := wgpu.OpenShared(app.DeviceProvider())
//	if err != nil {
//	    return err
//	}
//	s, err := compute.NewSessionOnDevice(dev, src, "main")
//
// # Build tags
//
// Building with -tags nogpu excludes this package's implementation.
package wgpu
