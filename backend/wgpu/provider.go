// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package wgpu

import (
	"fmt"

	"github.com/gogpu/compute/gpucore"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// Backend identifiers registered by this package.
const (
	// BackendVulkan opens a Vulkan device through the HAL.
	BackendVulkan gpucore.Backend = "vulkan"

	// BackendNoop opens the HAL noop device. It accepts every call and
	// executes nothing, which makes it useful for exercising resource
	// lifecycles without a GPU.
	BackendNoop gpucore.Backend = "noop"
)

func init() {
	gpucore.Register(vulkanProvider{})
	gpucore.Register(noopProvider{})
}

type vulkanProvider struct{}

func (vulkanProvider) Name() gpucore.Backend { return BackendVulkan }

func (vulkanProvider) Available() bool {
	_, ok := hal.GetBackend(gputypes.BackendVulkan)
	return ok
}

func (vulkanProvider) Open() (gpucore.Device, error) {
	return OpenVulkan()
}

type noopProvider struct{}

func (noopProvider) Name() gpucore.Backend { return BackendNoop }

func (noopProvider) Available() bool { return true }

func (noopProvider) Open() (gpucore.Device, error) {
	return OpenNoop()
}

// OpenVulkan creates a standalone Vulkan device for compute-only use.
func OpenVulkan(opts ...Option) (*Device, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("%w: vulkan", ErrBackendUnavailable)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("%w: vulkan: create instance: %w", ErrBackendUnavailable, err)
	}
	return openInstance(BackendVulkan, instance, opts)
}

// OpenNoop creates a device on the HAL noop backend.
func OpenNoop(opts ...Option) (*Device, error) {
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: noop: create instance: %w", ErrBackendUnavailable, err)
	}
	return openInstance(BackendNoop, instance, opts)
}

// openInstance selects an adapter and opens a device on it. The device
// takes ownership of instance, which is destroyed on failure.
func openInstance(name gpucore.Backend, instance hal.Instance, opts []Option) (*Device, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	selected := selectAdapter(adapters, o)

	openDev, err := selected.Adapter.Open(gputypes.Features(0), o.limits)
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: open device: %w", err)
	}

	d := newDevice(name, openDev.Device, openDev.Queue, o)
	d.instance = instance
	d.adapterName = selected.Info.Name

	slogger().Info("wgpu: device opened",
		"backend", name,
		"adapter", selected.Info.Name,
		"device_type", selected.Info.DeviceType)
	return d, nil
}

// selectAdapter picks the requested device type if set, otherwise the first
// discrete or integrated GPU, otherwise the first adapter.
func selectAdapter(adapters []hal.ExposedAdapter, o options) *hal.ExposedAdapter {
	if o.preferType {
		for i := range adapters {
			if adapters[i].Info.DeviceType == o.deviceType {
				return &adapters[i]
			}
		}
	}
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			return &adapters[i]
		}
	}
	return &adapters[0]
}
