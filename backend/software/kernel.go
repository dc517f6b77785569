// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package software

import (
	"fmt"
	"sync"
	"unsafe"
)

// Invocation identifies one workgroup of a dispatch.
type Invocation struct {
	// WorkgroupID is the workgroup's position in the dispatch grid.
	WorkgroupID [3]uint32

	// NumWorkgroups is the dispatch grid size.
	NumWorkgroups [3]uint32
}

// Index returns the row-major linear index of the workgroup.
func (inv Invocation) Index() int {
	n := inv.NumWorkgroups
	id := inv.WorkgroupID
	return int(id[2])*int(n[0])*int(n[1]) + int(id[1])*int(n[0]) + int(id[0])
}

// Kernel is the Go counterpart of a compute shader entry point. It runs
// once per workgroup, possibly concurrently with other workgroups of the
// same dispatch.
type Kernel func(inv Invocation, b *Bindings)

var (
	kernelsMu sync.RWMutex
	kernels   = make(map[string]Kernel)
)

// RegisterKernel registers k under an entry point name, replacing any
// kernel already registered under it.
func RegisterKernel(entryPoint string, k Kernel) {
	if k == nil {
		panic(fmt.Sprintf("software: nil kernel for %q", entryPoint))
	}
	kernelsMu.Lock()
	defer kernelsMu.Unlock()
	kernels[entryPoint] = k
}

// UnregisterKernel removes a kernel. This is useful for testing.
func UnregisterKernel(entryPoint string) {
	kernelsMu.Lock()
	defer kernelsMu.Unlock()
	delete(kernels, entryPoint)
}

// LookupKernel returns the kernel registered under entryPoint.
func LookupKernel(entryPoint string) (Kernel, bool) {
	kernelsMu.RLock()
	defer kernelsMu.RUnlock()
	k, ok := kernels[entryPoint]
	return k, ok
}

// Bindings exposes the buffers bound for a dispatch, addressed by
// (set, binding).
type Bindings struct {
	sets map[uint32]map[uint32][]byte
}

// Buffer returns the bound byte range, or nil if nothing is bound there.
func (b *Bindings) Buffer(set, binding uint32) []byte {
	return b.sets[set][binding]
}

// Slice views the buffer at (set, binding) as a slice of T. Trailing bytes
// that do not fill a whole T are not visible.
func Slice[T any](b *Bindings, set, binding uint32) []T {
	data := b.Buffer(set, binding)
	var zero T
	size := int(unsafe.Sizeof(zero))
	if len(data) < size || size == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(data))), len(data)/size)
}

// Value returns the first T stored at (set, binding), typically a uniform.
func Value[T any](b *Bindings, set, binding uint32) (T, bool) {
	s := Slice[T](b, set, binding)
	if len(s) == 0 {
		var zero T
		return zero, false
	}
	return s[0], true
}
