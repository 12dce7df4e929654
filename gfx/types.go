// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import (
	"fmt"
	"strings"
)

// DeviceType is the kind of a physical device.
type DeviceType int

// Device types
const (
	DeviceTypeOther DeviceType = iota
	DeviceTypeIntegratedGPU
	DeviceTypeDiscreteGPU
	DeviceTypeVirtualGPU
	DeviceTypeCPU
)

var deviceTypeNames = map[DeviceType]string{
	DeviceTypeOther:         "other",
	DeviceTypeIntegratedGPU: "integrated",
	DeviceTypeDiscreteGPU:   "discrete",
	DeviceTypeVirtualGPU:    "virtual",
	DeviceTypeCPU:           "cpu",
}

func (t DeviceType) String() string {
	if name, ok := deviceTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("DeviceType(%d)", int(t))
}

// ParseDeviceType parses the String form of a device type.
func ParseDeviceType(s string) (DeviceType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range deviceTypeNames {
		if name == s {
			return t, nil
		}
	}
	return DeviceTypeOther, fmt.Errorf("unknown device type %q", s)
}

// PresentMode governs how queued images reach the display.
type PresentMode int

// Present modes
const (
	PresentModeImmediate PresentMode = iota
	PresentModeMailbox
	PresentModeFifo
	PresentModeFifoRelaxed
)

var presentModeNames = map[PresentMode]string{
	PresentModeImmediate:   "immediate",
	PresentModeMailbox:     "mailbox",
	PresentModeFifo:        "fifo",
	PresentModeFifoRelaxed: "fifo_relaxed",
}

func (m PresentMode) String() string {
	if name, ok := presentModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("PresentMode(%d)", int(m))
}

// ParsePresentMode parses the String form of a present mode.
func ParsePresentMode(s string) (PresentMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for m, name := range presentModeNames {
		if name == s {
			return m, nil
		}
	}
	return PresentModeFifo, fmt.Errorf("unknown present mode %q", s)
}

// Format is a pixel format.
type Format int

// Formats the engine knows about. Others pass through untouched.
const (
	FormatUndefined     Format = 0
	FormatR8G8B8A8Unorm Format = 37
	FormatR8G8B8A8SRGB  Format = 43
	FormatB8G8R8A8Unorm Format = 44
	FormatB8G8R8A8SRGB  Format = 50
)

// RGBA8 reports a format with four 8-bit channels in RGBA or BGRA order.
func (f Format) RGBA8() bool {
	switch f {
	case FormatR8G8B8A8Unorm, FormatR8G8B8A8SRGB, FormatB8G8R8A8Unorm, FormatB8G8R8A8SRGB:
		return true
	}
	return false
}

// BGRA reports a blue-first byte order.
func (f Format) BGRA() bool {
	return f == FormatB8G8R8A8SRGB || f == FormatB8G8R8A8Unorm
}

// ColorSpace is the color space of a surface format.
type ColorSpace int

// ColorSpaceSRGBNonlinear is the only color space every surface supports.
const ColorSpaceSRGBNonlinear ColorSpace = 0

// CompositeAlpha is a set of alpha compositing modes.
type CompositeAlpha uint32

// Composite alpha modes
const (
	CompositeAlphaOpaque         CompositeAlpha = 0x1
	CompositeAlphaPreMultiplied  CompositeAlpha = 0x2
	CompositeAlphaPostMultiplied CompositeAlpha = 0x4
	CompositeAlphaInherit        CompositeAlpha = 0x8
)

// SurfaceTransform is a set of presentation transforms.
type SurfaceTransform uint32

// SurfaceTransformIdentity presents images as they are.
const SurfaceTransformIdentity SurfaceTransform = 0x1

// ImageUsage is a set of image usages.
type ImageUsage uint32

// Image usages
const (
	ImageUsageTransferSrc     ImageUsage = 0x1
	ImageUsageTransferDst     ImageUsage = 0x2
	ImageUsageColorAttachment ImageUsage = 0x10
)

// Layout is an image layout.
type Layout int

// Layouts used by presentation
const (
	LayoutUndefined   Layout = 0
	LayoutTransferDst Layout = 7
	LayoutPresentSrc  Layout = 1000001002
)

// DebugSeverity grades a validation message.
type DebugSeverity int

// Debug severities
const (
	DebugSeverityDebug DebugSeverity = iota
	DebugSeverityInfo
	DebugSeverityPerformance
	DebugSeverityWarning
	DebugSeverityError
)

// DebugMessage is a message emitted by a validation layer.
type DebugMessage struct {
	Severity DebugSeverity
	Layer    string
	Code     int32
	Message  string
}
