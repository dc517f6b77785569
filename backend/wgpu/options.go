// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package wgpu

import (
	"time"

	"github.com/gogpu/gputypes"
)

// DefaultTimeout is how long a submission may run before the device is
// considered hung.
const DefaultTimeout = 5 * time.Second

// Option configures a Device when it is opened.
type Option func(*options)

type options struct {
	timeout    time.Duration
	limits     gputypes.Limits
	deviceType gputypes.DeviceType
	preferType bool
}

func defaultOptions() options {
	return options{
		timeout: DefaultTimeout,
		limits:  gputypes.DefaultLimits(),
	}
}

// WithTimeout sets the fence wait timeout used by Submit and WaitIdle.
// Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithLimits sets the limits requested when opening the device.
func WithLimits(l gputypes.Limits) Option {
	return func(o *options) {
		o.limits = l
	}
}

// WithDeviceType prefers adapters of the given type. Without it discrete
// and integrated GPUs are preferred over everything else.
func WithDeviceType(t gputypes.DeviceType) Option {
	return func(o *options) {
		o.deviceType = t
		o.preferType = true
	}
}
