// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package software implements gpucore.Device in host memory.
//
// Shader source is not compiled. Instead, the entry point named when the
// shader module is created selects a Go [Kernel] registered with
// [RegisterKernel]. Dispatch runs the kernel once per workgroup, fanning
// workgroups out over a worker pool sized to GOMAXPROCS.
//
// Importing the package registers the "software" backend, which is always
// available. It serves as a reference device for tests and as a fallback
// when no GPU backend can be opened.
//
// Example:
//
//	software.RegisterKernel("copy", func(inv software.Invocation, b *software.Bindings) {
//	    in := software.Slice[float32](b, 0, 0)
//	    out := software.Slice[float32](b, 0, 1)
//	    i := inv.Index()
//	    out[i] = in[i]
//	})
//
//	s, err := compute.NewSession(software.Backend, "", "copy")
package software
