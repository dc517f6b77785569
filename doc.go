// Package compute runs compute shaders over named device buffers.
//
// # Overview
//
// A Session owns a device, one compiled compute shader and the buffers the
// shader reads and writes. Buffers are described by name and by their
// (set, binding) slot; the bind group layouts, bind groups and compute
// pipeline are derived from the buffer set and rebuilt lazily whenever it
// changes.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/compute"
//	    _ "github.com/gogpu/compute/backend/software"
//	)
//
//	s, err := compute.NewSession("software", src, "main")
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	in, _ := compute.StructuredDescriptor[float32]("gInput", 0, 0, 4)
//	out, _ := compute.StructuredDescriptor[float32]("gOutput", 0, 1, 4)
//	bin, _ := s.CreateBuffer(in)
//	bout, _ := s.CreateBuffer(out)
//
//	compute.Write(bin, []float32{1, 2, 3, 4})
//	s.Dispatch(2, 2, 1)
//	result, _ := compute.Read[float32](bout)
//
// # Buffers
//
// Structured buffers hold an array of fixed-size elements and can be
// written, read back and modified by the shader. Uniform buffers hold a
// single record; they are written by the host and only read by the shader.
//
// All transfers and dispatches are synchronous: each call submits its work
// and waits for the device before returning.
//
// # Backends
//
// Devices come from providers registered in the gpucore registry by
// backend packages:
//   - backend/wgpu: Vulkan through gogpu/wgpu, plus the noop HAL backend
//   - backend/software: host memory, with shaders resolved to Go kernels
//
// Import a backend package for its side effects to register it.
package compute
