// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"time"

	"github.com/devblok/kanvas/coords"
	"github.com/devblok/kanvas/device"
	"github.com/devblok/kanvas/swapchain"
)

// Configuration defines a global engine configuration setting
type Configuration struct {
	Time      TimeConfiguration
	Renderer  RendererConfiguration
	Device    device.Configuration
	Swapchain swapchain.Configuration
	Window    WindowConfiguration
	Capture   CaptureConfiguration
}

// TimeConfiguration is used to configure time services
type TimeConfiguration struct {
	// FramesPerSecond caps frames per second that is put out
	// To unlimit, set to 0
	FramesPerSecond int

	// EventPollDelay is the delay between window event polls in milliseconds
	EventPollDelay int
}

// Renderer defaults
const (
	DefaultSyncSlots    = 2
	DefaultFenceTimeout = 2 * time.Second
)

// RendererConfiguration is used to configure the renderer
type RendererConfiguration struct {
	// SyncSlots is the number of frames the GPU may have in flight.
	SyncSlots int

	// FenceTimeout bounds every wait on the GPU. A wait that runs out
	// stops the renderer.
	FenceTimeout time.Duration

	Coordinates coords.System
}

func (c RendererConfiguration) withDefaults() RendererConfiguration {
	if c.SyncSlots <= 0 {
		c.SyncSlots = DefaultSyncSlots
	}
	if c.FenceTimeout <= 0 {
		c.FenceTimeout = DefaultFenceTimeout
	}
	return c
}

// WindowConfiguration describes the window the demo opens
type WindowConfiguration struct {
	Title  string
	Width  int
	Height int
}

// CaptureConfiguration enables frame capture when Path is set
type CaptureConfiguration struct {
	Path string
}
