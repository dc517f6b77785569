// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package main

import "github.com/gogpu/compute/backend/wgpu"

func init() {
	loggerSetters = append(loggerSetters, wgpu.SetLogger)
}
