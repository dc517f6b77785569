package compute

import (
	"fmt"
	"runtime"
	"unsafe"
)

// Pinned pins the backing array of data for the duration of fn and passes
// fn its base address and length in bytes. The array is unpinned when fn
// returns, including when fn panics. An empty slice is passed as (nil, 0).
func Pinned[T any](data []T, fn func(ptr unsafe.Pointer, size int) error) error {
	if fn == nil {
		return fmt.Errorf("%w: nil pinned callback", ErrInvalidOperation)
	}
	if len(data) == 0 {
		return fn(nil, 0)
	}

	var pinner runtime.Pinner
	defer pinner.Unpin()

	base := unsafe.Pointer(unsafe.SliceData(data))
	pinner.Pin(base)
	return fn(base, SizeInBytes(data))
}

// SizeInBytes returns the number of bytes spanned by data's elements.
func SizeInBytes[T any](data []T) int {
	var zero T
	return len(data) * int(unsafe.Sizeof(zero))
}

// sizeOf returns the byte size of T.
func sizeOf[T any]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}
