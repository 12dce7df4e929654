// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package sdlwin adapts an SDL2 window to window.Window.
package sdlwin

import (
	"unsafe"

	"github.com/devblok/kanvas/window"
	"github.com/pkg/errors"
	"github.com/veandco/go-sdl2/sdl"
)

var _ window.Window = (*Window)(nil)

// New creates a resizable high-DPI window with Vulkan support. The Vulkan
// library must be loaded with sdl.VulkanLoadLibrary beforehand.
func New(title string, width, height int) (*Window, error) {
	w, err := sdl.CreateWindow(title,
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		int32(width),
		int32(height),
		sdl.WINDOW_VULKAN|sdl.WINDOW_RESIZABLE|sdl.WINDOW_ALLOW_HIGHDPI)
	if err != nil {
		return nil, errors.Wrap(err, "sdl.CreateWindow()")
	}
	return &Window{window: w}, nil
}

// Window wraps an *sdl.Window.
type Window struct {
	window *sdl.Window
}

// SDL returns the wrapped window.
func (w *Window) SDL() *sdl.Window {
	return w.window
}

// CreateSurface implements interface
func (w *Window) CreateSurface(instance interface{}) (unsafe.Pointer, error) {
	surface, err := w.window.VulkanCreateSurface(instance)
	if err != nil {
		return nil, errors.Wrap(err, "sdl.VulkanCreateSurface()")
	}
	return surface, nil
}

// PhysicalSize implements interface. A minimized window reports 0x0
// even where SDL keeps the last size.
func (w *Window) PhysicalSize() (int, int) {
	if w.window.GetFlags()&sdl.WINDOW_MINIMIZED != 0 {
		return 0, 0
	}
	width, height := w.window.VulkanGetDrawableSize()
	return int(width), int(height)
}

// ScaleFactor implements interface
func (w *Window) ScaleFactor() float64 {
	lw, _ := w.window.GetSize()
	pw, _ := w.window.VulkanGetDrawableSize()
	if lw <= 0 || pw <= 0 {
		return 1
	}
	return float64(pw) / float64(lw)
}

// RequiredExtensions implements interface
func (w *Window) RequiredExtensions() []string {
	return w.window.VulkanGetInstanceExtensions()
}

// Destroy destroys the SDL window.
func (w *Window) Destroy() {
	w.window.Destroy()
}
