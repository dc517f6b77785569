// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package wgpu

import (
	"fmt"

	"github.com/gogpu/compute/gpucore"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"
)

// BackendShared names devices adopted from an external provider.
const BackendShared gpucore.Backend = "shared"

// OpenShared adopts the device and queue of a host framework (e.g. gogpu)
// instead of opening a new one. The provider must implement
// HalDevice() any and HalQueue() any returning hal.Device and hal.Queue.
//
// Destroy on the returned device releases only the resources created
// through it; the provider's device and queue stay alive.
func OpenShared(provider gpucontext.DeviceProvider, opts ...Option) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrInvalidProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrInvalidProvider)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrInvalidProvider)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	d := newDevice(BackendShared, device, queue, o)
	d.shared = true

	slogger().Info("wgpu: adopted shared device")
	return d, nil
}
