// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package swapchain

import "github.com/devblok/kanvas/gfx"

// undefinedExtent marks a surface whose size follows the swapchain.
const undefinedExtent = 0xFFFFFFFF

var preferredFormats = []gfx.Format{
	gfx.FormatB8G8R8A8SRGB,
	gfx.FormatR8G8B8A8SRGB,
}

var compositeAlphaOrder = []gfx.CompositeAlpha{
	gfx.CompositeAlphaOpaque,
	gfx.CompositeAlphaPreMultiplied,
	gfx.CompositeAlphaPostMultiplied,
	gfx.CompositeAlphaInherit,
}

// ChooseFormat picks an 8-bit sRGB format with a nonlinear sRGB color
// space when offered, then any 8-bit RGBA or BGRA format, else the first
// supported one. A lone undefined entry means the surface takes anything.
func ChooseFormat(supported []gfx.SurfaceFormat) gfx.SurfaceFormat {
	fallback := gfx.SurfaceFormat{Format: gfx.FormatB8G8R8A8SRGB, ColorSpace: gfx.ColorSpaceSRGBNonlinear}
	if len(supported) == 0 {
		return fallback
	}
	if len(supported) == 1 && supported[0].Format == gfx.FormatUndefined {
		return fallback
	}

	for _, want := range preferredFormats {
		for _, sf := range supported {
			if sf.Format == want && sf.ColorSpace == gfx.ColorSpaceSRGBNonlinear {
				return sf
			}
		}
	}
	for _, sf := range supported {
		if sf.Format.RGBA8() {
			return sf
		}
	}
	return supported[0]
}

// ChoosePresentMode returns the first mode of priority that is supported,
// or FIFO, which every surface supports.
func ChoosePresentMode(priority, supported []gfx.PresentMode) gfx.PresentMode {
	for _, want := range priority {
		for _, have := range supported {
			if want == have {
				return want
			}
		}
	}
	return gfx.PresentModeFifo
}

// ChooseImageCount raises requested to the surface minimum and caps it at
// the maximum. A maximum of zero means unbounded.
func ChooseImageCount(requested uint32, caps gfx.SurfaceCapabilities) uint32 {
	count := requested
	if count < caps.MinImageCount {
		count = caps.MinImageCount
	}
	if caps.MaxImageCount != 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

// ChooseExtent returns the surface's current extent, or window clamped to
// the surface limits when the surface leaves the choice to the swapchain.
func ChooseExtent(caps gfx.SurfaceCapabilities, window gfx.Extent2D) gfx.Extent2D {
	if caps.CurrentExtent.Width != undefinedExtent {
		return caps.CurrentExtent
	}
	return gfx.Extent2D{
		Width:  clamp(window.Width, caps.MinExtent.Width, caps.MaxExtent.Width),
		Height: clamp(window.Height, caps.MinExtent.Height, caps.MaxExtent.Height),
	}
}

func chooseCompositeAlpha(supported gfx.CompositeAlpha) gfx.CompositeAlpha {
	for _, ca := range compositeAlphaOrder {
		if supported&ca != 0 {
			return ca
		}
	}
	return gfx.CompositeAlphaOpaque
}

// choosePreTransform keeps the surface's current transform so the
// compositor does not have to rotate images.
func choosePreTransform(current gfx.SurfaceTransform) gfx.SurfaceTransform {
	if current == 0 {
		return gfx.SurfaceTransformIdentity
	}
	return current
}

// clamp keeps zero as zero so a minimized window stays detectable.
func clamp(v, lo, hi uint32) uint32 {
	if v == 0 {
		return 0
	}
	if v < lo {
		return lo
	}
	if hi != 0 && v > hi {
		return hi
	}
	return v
}
