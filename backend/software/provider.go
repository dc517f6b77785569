// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package software

import "github.com/gogpu/compute/gpucore"

// Backend is the registry name of the software backend.
const Backend gpucore.Backend = "software"

func init() {
	gpucore.Register(provider{})
}

// provider opens software devices with default options.
type provider struct{}

func (provider) Name() gpucore.Backend { return Backend }

// Available always reports true: the backend needs nothing but the CPU.
func (provider) Available() bool { return true }

func (provider) Open() (gpucore.Device, error) {
	d := New()
	slogger().Debug("software: device opened", "workers", d.workers())
	return d, nil
}
