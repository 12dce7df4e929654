// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import "github.com/pkg/errors"

// Results a backend must report with these exact values,
// possibly wrapped.
var (
	ErrOutOfDate   = errors.New("swapchain out of date")
	ErrSuboptimal  = errors.New("swapchain suboptimal")
	ErrDeviceLost  = errors.New("device lost")
	ErrSurfaceLost = errors.New("surface lost")
	ErrTimeout     = errors.New("wait timed out")
)
