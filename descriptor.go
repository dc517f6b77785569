package compute

import (
	"fmt"
	"unsafe"
)

// BufferKind distinguishes uniform from structured buffers.
type BufferKind uint8

const (
	// KindStructured is a read-write array of fixed-stride elements.
	KindStructured BufferKind = iota
	// KindUniform is a single host-written, shader-read-only record.
	KindUniform
)

// String returns the string representation of BufferKind.
func (k BufferKind) String() string {
	switch k {
	case KindStructured:
		return "Structured"
	case KindUniform:
		return "Uniform"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// BufferDescriptor describes a buffer's identity and shape.
// It is immutable once the buffer is created.
type BufferDescriptor struct {
	// Name is the shader resource name, unique within a session.
	Name string

	// LayoutSet is the bind group (set) index.
	LayoutSet uint32

	// LayoutBinding is the binding index within the set.
	LayoutBinding uint32

	// TotalBytes is the allocation size in bytes.
	TotalBytes int

	// BytesPerItem is the element stride. Equal to TotalBytes for uniforms.
	BytesPerItem int

	// Kind selects uniform or structured.
	Kind BufferKind
}

// NewStructuredDescriptor describes a structured buffer of count elements
// of itemSize bytes each.
func NewStructuredDescriptor(name string, set, binding uint32, itemSize, count int) (BufferDescriptor, error) {
	if itemSize <= 0 || count <= 0 {
		return BufferDescriptor{}, fmt.Errorf("%w: %q: item size %d and count %d must be positive",
			ErrInvalidDescriptor, name, itemSize, count)
	}
	d := BufferDescriptor{
		Name:          name,
		LayoutSet:     set,
		LayoutBinding: binding,
		TotalBytes:    itemSize * count,
		BytesPerItem:  itemSize,
		Kind:          KindStructured,
	}
	return d, d.Validate()
}

// NewUniformDescriptor describes a uniform buffer holding one record of size bytes.
func NewUniformDescriptor(name string, set, binding uint32, size int) (BufferDescriptor, error) {
	d := BufferDescriptor{
		Name:          name,
		LayoutSet:     set,
		LayoutBinding: binding,
		TotalBytes:    size,
		BytesPerItem:  size,
		Kind:          KindUniform,
	}
	return d, d.Validate()
}

// StructuredDescriptor describes a structured buffer of count elements of type T.
func StructuredDescriptor[T any](name string, set, binding uint32, count int) (BufferDescriptor, error) {
	var zero T
	return NewStructuredDescriptor(name, set, binding, int(unsafe.Sizeof(zero)), count)
}

// UniformDescriptor describes a uniform buffer holding one value of type T.
func UniformDescriptor[T any](name string, set, binding uint32) (BufferDescriptor, error) {
	var zero T
	return NewUniformDescriptor(name, set, binding, int(unsafe.Sizeof(zero)))
}

// IsUniform reports whether d describes a uniform buffer.
func (d BufferDescriptor) IsUniform() bool {
	return d.Kind == KindUniform
}

// ItemCount returns the number of elements the buffer holds.
func (d BufferDescriptor) ItemCount() int {
	if d.BytesPerItem <= 0 {
		return 0
	}
	return d.TotalBytes / d.BytesPerItem
}

// Validate checks the shape invariants of the descriptor.
func (d BufferDescriptor) Validate() error {
	switch {
	case d.Name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidDescriptor)
	case d.TotalBytes <= 0:
		return fmt.Errorf("%w: %q: total bytes %d must be positive", ErrInvalidDescriptor, d.Name, d.TotalBytes)
	case d.BytesPerItem <= 0:
		return fmt.Errorf("%w: %q: bytes per item %d must be positive", ErrInvalidDescriptor, d.Name, d.BytesPerItem)
	}

	switch d.Kind {
	case KindStructured:
		if d.TotalBytes%d.BytesPerItem != 0 {
			return fmt.Errorf("%w: %q: total bytes %d is not a multiple of item size %d",
				ErrInvalidDescriptor, d.Name, d.TotalBytes, d.BytesPerItem)
		}
	case KindUniform:
		if d.BytesPerItem != d.TotalBytes {
			return fmt.Errorf("%w: %q: uniform item size %d must equal total bytes %d",
				ErrInvalidDescriptor, d.Name, d.BytesPerItem, d.TotalBytes)
		}
	default:
		return fmt.Errorf("%w: %q: unknown kind %v", ErrInvalidDescriptor, d.Name, d.Kind)
	}
	return nil
}
