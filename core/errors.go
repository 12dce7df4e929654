// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"fmt"

	"github.com/devblok/kanvas/canvas"
	"github.com/devblok/kanvas/device"
	"github.com/devblok/kanvas/gfx"
	"github.com/devblok/kanvas/swapchain"
	"github.com/pkg/errors"
)

// Renderer errors.
var (
	ErrDeviceUnresponsive = errors.New("device unresponsive")
	ErrStopped            = errors.New("renderer stopped")
)

// Kind classifies renderer errors.
type Kind int

// Error kinds
const (
	KindUnknown Kind = iota
	KindConfiguration
	KindTransientPresentation
	KindDeviceUnresponsive
	KindDeviceLost
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindTransientPresentation:
		return "transient presentation"
	case KindDeviceUnresponsive:
		return "device unresponsive"
	case KindDeviceLost:
		return "device lost"
	}
	return "unknown"
}

// KindOf classifies err. Wrapped errors are classified by their cause.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, gfx.ErrDeviceLost), errors.Is(err, gfx.ErrSurfaceLost):
		return KindDeviceLost
	case errors.Is(err, ErrDeviceUnresponsive), errors.Is(err, gfx.ErrTimeout):
		return KindDeviceUnresponsive
	case errors.Is(err, device.ErrNoSuitableDevice),
		errors.Is(err, device.ErrValidationLayerUnavailable),
		errors.Is(err, swapchain.ErrUnsupportedUsage),
		errors.Is(err, canvas.ErrUnsupportedFormat):
		return KindConfiguration
	case errors.Is(err, gfx.ErrOutOfDate),
		errors.Is(err, gfx.ErrSuboptimal),
		errors.Is(err, swapchain.ErrZeroExtent):
		return KindTransientPresentation
	}
	return KindUnknown
}

// FatalError is what a renderer reports when it stops.
type FatalError struct {
	Kind Kind
	Err  error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal %s: %v", e.Kind, e.Err)
}

// Unwrap returns the cause.
func (e *FatalError) Unwrap() error {
	return e.Err
}
