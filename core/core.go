// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package core drives frames: it acquires a swapchain image, lets the
// user draw on a canvas bound to it, then submits and presents the result,
// rebuilding the swapchain whenever the surface changes.
package core

import (
	"fmt"
	"image"

	"github.com/devblok/kanvas/canvas"
)

// DrawFunc draws one frame. c must not be kept after it returns.
type DrawFunc func(c canvas.Canvas, t FrameTiming)

// FrameObserver receives the CPU pixels of every drawn frame before it is
// submitted. img is reused by the next frame.
type FrameObserver func(img *image.RGBA, t FrameTiming)

// State is a frame loop state.
type State int

// Frame loop states
const (
	StateIdle State = iota
	StateAcquiring
	StateDrawing
	StateSubmitting
	StatePresenting
	StateAwaitingRebuild
	StateFatal
)

var stateNames = [...]string{
	StateIdle:            "idle",
	StateAcquiring:       "acquiring",
	StateDrawing:         "drawing",
	StateSubmitting:      "submitting",
	StatePresenting:      "presenting",
	StateAwaitingRebuild: "awaiting rebuild",
	StateFatal:           "fatal",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// AppControl lets a draw callback ask the application to quit.
type AppControl struct {
	terminate bool
}

// Terminate asks the application to stop after the current frame.
func (a *AppControl) Terminate() {
	a.terminate = true
}

// ShouldTerminate reports whether Terminate was called.
func (a *AppControl) ShouldTerminate() bool {
	return a.terminate
}
