package compute

import "errors"

// Error kinds returned by sessions and buffers.
// Errors are wrapped with context; test for them with errors.Is.
var (
	// ErrNotSupported is returned when the requested backend is unavailable
	// or lacks read-write structured buffer support.
	ErrNotSupported = errors.New("compute: not supported")

	// ErrDuplicateResource is returned when a buffer name or a
	// (set, binding) slot is already taken in the session.
	ErrDuplicateResource = errors.New("compute: duplicate resource")

	// ErrOutOfRange is returned when a byte count exceeds a buffer's
	// allocation, or a dispatch group count is zero.
	ErrOutOfRange = errors.New("compute: out of range")

	// ErrInvalidOperation is returned for reads from uniform buffers and
	// for typed reads whose element size does not divide the buffer size.
	ErrInvalidOperation = errors.New("compute: invalid operation")

	// ErrInvalidDescriptor is returned when a buffer descriptor violates
	// its shape invariants.
	ErrInvalidDescriptor = errors.New("compute: invalid buffer descriptor")

	// ErrSessionClosed is returned when using a session or one of its
	// buffers after Close.
	ErrSessionClosed = errors.New("compute: session is closed")
)
