package compute

import (
	"fmt"
	"unsafe"
)

// Typed transfers. T must be a plain-old-data type whose layout matches
// the shader's declaration (no pointers, slices, strings or maps).

// Write copies data to the start of b.
func Write[T any](b *Buffer, data []T) error {
	return Pinned(data, func(ptr unsafe.Pointer, size int) error {
		return b.WriteRaw(ptr, size)
	})
}

// WriteValue copies a single value to the start of b.
// It is the usual way to fill a uniform buffer.
func WriteValue[T any](b *Buffer, v T) error {
	return Write(b, []T{v})
}

// ReadInto fills dst from the start of b.
func ReadInto[T any](b *Buffer, dst []T) error {
	return Pinned(dst, func(ptr unsafe.Pointer, size int) error {
		return b.ReadRaw(ptr, size)
	})
}

// Read returns the whole contents of b as a slice of T.
//
// The buffer size must be a multiple of the size of T; T need not match
// the element type the buffer was described with, so a buffer of vec4
// can be read as []float32.
func Read[T any](b *Buffer) ([]T, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	if b.desc.IsUniform() {
		return nil, fmt.Errorf("%w: read from uniform buffer %q", ErrInvalidOperation, b.desc.Name)
	}
	elem := sizeOf[T]()
	if elem == 0 || b.desc.TotalBytes%elem != 0 {
		return nil, fmt.Errorf("%w: size %d of %q is not a multiple of element size %d",
			ErrInvalidOperation, b.desc.TotalBytes, b.desc.Name, elem)
	}
	out := make([]T, b.desc.TotalBytes/elem)
	if err := ReadInto(b, out); err != nil {
		return nil, err
	}
	return out, nil
}
