// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package canvas binds swapchain images to a 2D drawing backend. A Bridge
// keeps one backend surface alive across frames and recreates it only
// when the swapchain does.
package canvas

import (
	"image"
	"image/color"

	"github.com/devblok/kanvas/gfx"
	"github.com/go-gl/mathgl/mgl64"
)

// Canvas is the drawing vocabulary handed to a draw callback. It is valid
// for one frame only.
type Canvas interface {
	// SetTransform replaces the current user to pixel transform.
	SetTransform(m mgl64.Mat3)
	Transform() mgl64.Mat3

	// Save pushes the transform and line width; Restore pops them.
	Save()
	Restore()

	// Clear fills every pixel with c, ignoring the transform.
	Clear(c color.Color)
	FillRect(x, y, w, h float64, c color.Color)

	BeginPath()
	MoveTo(x, y float64)
	LineTo(x, y float64)
	QuadTo(cx, cy, x, y float64)
	CubicTo(c1x, c1y, c2x, c2y, x, y float64)
	ClosePath()

	Fill(c color.Color)
	Stroke(c color.Color)
	SetLineWidth(w float64)

	// DrawImage draws img with its top left corner at (x, y).
	DrawImage(img image.Image, x, y float64)

	// FillText draws text with its baseline starting at (x, y).
	FillText(text string, x, y float64, c color.Color)

	// Size returns the pixel size of the drawable.
	Size() (w, h int)
}

// ImageDesc describes a swapchain image a backend surface draws into.
type ImageDesc struct {
	Image      gfx.Image
	Format     gfx.Format
	Extent     gfx.Extent2D
	Generation uint64
}

// Surface is a backend drawing target bound to one swapchain image at a time.
type Surface interface {
	Canvas() Canvas

	// Rebind points the surface at another image of the same swapchain.
	Rebind(img gfx.Image) error

	// Flush records the commands that bring the drawn frame into the bound
	// image, leaving it ready to present. slot selects per-frame resources.
	Flush(cmd gfx.CommandBuffer, slot int) error

	Release()
}

// Snapshotter is implemented by surfaces that keep a CPU copy of the frame.
type Snapshotter interface {
	Snapshot() *image.RGBA
}

// Backend creates surfaces.
type Backend interface {
	// Supports reports whether surfaces can be created for images of
	// the given format.
	Supports(format gfx.Format) bool
	NewSurface(desc ImageDesc) (Surface, error)
}
