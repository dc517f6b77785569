package compute

import (
	"fmt"
	"unsafe"

	"github.com/gogpu/compute/gpucore"
)

// Buffer is a device buffer created by a Session.
//
// A structured buffer owns two device allocations: the primary allocation
// bound to the shader, and a host-mappable staging allocation used to read
// results back. A uniform buffer owns only the primary allocation and can
// be written but not read.
//
// Every transfer is synchronous: the call returns after the device has
// finished the copy. A Buffer must not be used after its session is closed.
type Buffer struct {
	desc    BufferDescriptor
	session *Session

	primary gpucore.BufferID
	staging gpucore.BufferID // InvalidID for uniform buffers

	released bool
}

// newBuffer allocates the device memory described by desc.
// On failure nothing stays allocated.
func newBuffer(s *Session, desc BufferDescriptor) (*Buffer, error) {
	b := &Buffer{desc: desc, session: s}
	size := uint64(desc.TotalBytes)

	primary := &gpucore.BufferDesc{
		Label: s.opts.label + ":" + desc.Name,
		Size:  size,
	}
	if desc.IsUniform() {
		primary.Usage = gpucore.BufferUsageUniform | gpucore.BufferUsageCopyDst
	} else {
		primary.Usage = gpucore.BufferUsageStorage | gpucore.BufferUsageCopySrc | gpucore.BufferUsageCopyDst
		primary.Stride = uint32(desc.BytesPerItem)
	}

	id, err := s.device.CreateBuffer(primary)
	if err != nil {
		return nil, fmt.Errorf("compute: create buffer %q: %w", desc.Name, err)
	}
	b.primary = id

	if !desc.IsUniform() {
		staging, err := s.device.CreateBuffer(&gpucore.BufferDesc{
			Label: s.opts.label + ":" + desc.Name + ":staging",
			Size:  size,
			Usage: gpucore.BufferUsageMapRead | gpucore.BufferUsageCopyDst,
		})
		if err != nil {
			s.device.DestroyBuffer(b.primary)
			return nil, fmt.Errorf("compute: create staging buffer %q: %w", desc.Name, err)
		}
		b.staging = staging
	}

	return b, nil
}

// Descriptor returns the descriptor the buffer was created from.
func (b *Buffer) Descriptor() BufferDescriptor { return b.desc }

// Name returns the shader resource name.
func (b *Buffer) Name() string { return b.desc.Name }

// Size returns the allocation size in bytes.
func (b *Buffer) Size() int { return b.desc.TotalBytes }

// stagingSize is the size of the staging allocation, or zero when absent.
func (b *Buffer) stagingSize() int {
	if b.staging == gpucore.InvalidID {
		return 0
	}
	return b.desc.TotalBytes
}

func (b *Buffer) checkOpen() error {
	if b.released || b.session == nil || b.session.closed {
		return fmt.Errorf("%w: buffer %q", ErrSessionClosed, b.desc.Name)
	}
	return nil
}

// WriteRaw copies n bytes starting at src into the primary allocation.
//
// It fails with ErrOutOfRange if n exceeds the buffer size. The caller
// must keep src valid and unmoved until WriteRaw returns; use [Pinned]
// or the typed [Write] helpers for Go memory.
func (b *Buffer) WriteRaw(src unsafe.Pointer, n int) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	if n < 0 || n > b.desc.TotalBytes {
		return fmt.Errorf("%w: write of %d bytes to %q (size %d)", ErrOutOfRange, n, b.desc.Name, b.desc.TotalBytes)
	}
	if n > 0 && src == nil {
		return fmt.Errorf("%w: nil source for %q", ErrInvalidOperation, b.desc.Name)
	}

	var data []byte
	if n > 0 {
		data = unsafe.Slice((*byte)(src), n)
	}

	s := b.session
	return s.submit("write "+b.desc.Name, func(cl gpucore.CommandList) {
		cl.UpdateBuffer(b.primary, 0, data)
	})
}

// ReadRaw copies the first n bytes of the buffer into dst.
//
// Uniform buffers cannot be read back and always fail with
// ErrInvalidOperation. A count larger than the primary or staging
// allocation fails with ErrOutOfRange before any copy is issued.
func (b *Buffer) ReadRaw(dst unsafe.Pointer, n int) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	if b.desc.IsUniform() {
		return fmt.Errorf("%w: read from uniform buffer %q", ErrInvalidOperation, b.desc.Name)
	}
	if n < 0 || n > b.desc.TotalBytes || n > b.stagingSize() {
		return fmt.Errorf("%w: read of %d bytes from %q (size %d)", ErrOutOfRange, n, b.desc.Name, b.desc.TotalBytes)
	}
	if n > 0 && dst == nil {
		return fmt.Errorf("%w: nil destination for %q", ErrInvalidOperation, b.desc.Name)
	}

	s := b.session
	size := uint64(b.desc.TotalBytes)
	err := s.submit("read "+b.desc.Name, func(cl gpucore.CommandList) {
		cl.CopyBuffer(b.primary, 0, b.staging, 0, size)
	})
	if err != nil {
		return err
	}

	mapped, err := s.device.MapRead(b.staging)
	if err != nil {
		return fmt.Errorf("compute: map %q: %w", b.desc.Name, err)
	}
	defer s.device.Unmap(b.staging)

	if len(mapped) < n {
		return fmt.Errorf("%w: mapped %d bytes of %q, want %d", ErrOutOfRange, len(mapped), b.desc.Name, n)
	}
	if n > 0 {
		copy(unsafe.Slice((*byte)(dst), n), mapped[:n])
	}
	return nil
}

// WriteBytes writes p to the start of the buffer.
func (b *Buffer) WriteBytes(p []byte) error {
	return Write(b, p)
}

// ReadBytes fills p from the start of the buffer.
func (b *Buffer) ReadBytes(p []byte) error {
	return ReadInto(b, p)
}

// describeBinding returns the layout entry and bind group entry the buffer
// contributes to pipeline construction.
func (b *Buffer) describeBinding() (gpucore.BindGroupLayoutEntry, gpucore.BindGroupEntry) {
	typ := gpucore.BindingTypeStorageBuffer
	if b.desc.IsUniform() {
		typ = gpucore.BindingTypeUniformBuffer
	}
	layout := gpucore.BindGroupLayoutEntry{
		Name:       b.desc.Name,
		Binding:    b.desc.LayoutBinding,
		Type:       typ,
		Visibility: gpucore.ShaderStageCompute,
	}
	entry := gpucore.BindGroupEntry{
		Binding: b.desc.LayoutBinding,
		Buffer:  b.primary,
		Offset:  0,
		Size:    uint64(b.desc.TotalBytes),
	}
	return layout, entry
}

// destroy releases the staging allocation, then the primary one.
// Calling it twice is a no-op.
func (b *Buffer) destroy(dev gpucore.Device) {
	if b.released {
		return
	}
	b.released = true
	if b.staging != gpucore.InvalidID {
		dev.DestroyBuffer(b.staging)
		b.staging = gpucore.InvalidID
	}
	if b.primary != gpucore.InvalidID {
		dev.DestroyBuffer(b.primary)
		b.primary = gpucore.InvalidID
	}
}
