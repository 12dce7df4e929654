// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package window defines the capabilities the renderer needs from a host
// window. Toolkit adapters live in subpackages.
package window

import "github.com/devblok/kanvas/gfx"

// Window is polled once per frame. It never calls back into the renderer.
type Window interface {
	gfx.SurfaceSource

	// PhysicalSize returns the drawable size in physical pixels.
	PhysicalSize() (width, height int)

	// ScaleFactor returns the ratio of physical to logical pixels.
	ScaleFactor() float64

	// RequiredExtensions lists the instance extensions surface creation needs.
	RequiredExtensions() []string
}
