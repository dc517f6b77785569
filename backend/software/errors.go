// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package software

import "errors"

// Sentinel errors for the software backend.
var (
	// ErrUnknownKernel is returned when no kernel is registered for a
	// shader entry point.
	ErrUnknownKernel = errors.New("software: no kernel registered for entry point")

	// ErrUnknownResource is returned when an ID does not name a live resource.
	ErrUnknownResource = errors.New("software: unknown resource")

	// ErrNotRecording is returned when a command list is used outside
	// Begin/End or submitted before End.
	ErrNotRecording = errors.New("software: command list is not recording")

	// ErrOutOfBounds is returned when a copy or update exceeds a buffer.
	ErrOutOfBounds = errors.New("software: access out of buffer bounds")

	// ErrDeviceDestroyed is returned by operations on a destroyed device.
	ErrDeviceDestroyed = errors.New("software: device destroyed")
)
