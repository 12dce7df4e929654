// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package gfx defines the graphics backend features that the presentation
// engine relies on. Enumerations share their numeric values with Vulkan, so a
// Vulkan backend can convert them without lookup tables.
package gfx

import (
	"time"
	"unsafe"
)

// Releasable defines any memory-occupying item that can be freed.
type Releasable interface {

	// Release releases memory occupied by the implementing structure.
	Release()
}

// API is the entry point of a graphics backend.
type API interface {

	// InstanceLayers lists the instance layers installed on the system.
	InstanceLayers() ([]string, error)

	// CreateInstance creates an instance with the requested layers and extensions.
	CreateInstance(cfg InstanceConfig) (Instance, error)
}

// InstanceConfig configures instance creation.
type InstanceConfig struct {
	ApplicationName string
	Extensions      []string
	Layers          []string

	// Debug receives validation messages when not nil.
	Debug func(DebugMessage)
}

// SurfaceSource is anything that can create a presentation surface
// for an instance, usually a window.
type SurfaceSource interface {
	CreateSurface(instance interface{}) (unsafe.Pointer, error)
}

// Instance is a created API instance.
type Instance interface {
	Releasable

	// PhysicalDevices returns the devices in enumeration order.
	PhysicalDevices() ([]PhysicalDevice, error)

	// CreateSurface creates a presentation surface through src.
	CreateSurface(src SurfaceSource) (Surface, error)

	// CreateDevice creates a logical device with queues from the given families.
	CreateDevice(pd PhysicalDevice, info DeviceInfo) (Device, error)
}

// Surface is a presentation surface.
type Surface interface {
	Releasable
}

// PhysicalDevice describes a device that can be opened.
type PhysicalDevice interface {
	Properties() PhysicalDeviceProperties
	QueueFamilies() []QueueFamily
	Extensions() ([]string, error)

	// SupportsPresent tells whether the queue family can present to s.
	SupportsPresent(family uint32, s Surface) (bool, error)
}

// PhysicalDeviceProperties are the general device properties.
type PhysicalDeviceProperties struct {
	Name          string
	Type          DeviceType
	VendorID      uint32
	DeviceID      uint32
	DriverVersion uint32
	APIVersion    uint32
}

// QueueFamily describes one queue family of a device.
type QueueFamily struct {
	Index    uint32
	Count    uint32
	Graphics bool
	Compute  bool
	Transfer bool
}

// DeviceInfo selects the queue families and extensions for device creation.
type DeviceInfo struct {
	GraphicsFamily uint32
	PresentFamily  uint32
	Extensions     []string
	Surface        Surface
}

// Device is a logical device bound to one surface.
type Device interface {
	Releasable

	// WaitIdle blocks until all queues are idle.
	WaitIdle() error

	// SurfaceCapabilities queries the surface the device was created for.
	SurfaceCapabilities() (SurfaceCapabilities, error)

	CreateSwapchain(info SwapchainInfo) (Swapchain, error)
	CreateImageView(img Image, format Format) (ImageView, error)
	CreateSemaphore() (Semaphore, error)
	CreateFence(signaled bool) (Fence, error)
	CreateCommandBuffer() (CommandBuffer, error)
	CreateUploadBuffer(size int) (UploadBuffer, error)

	// WaitForFences waits for all of fences. It returns ErrTimeout when
	// timeout passes first.
	WaitForFences(fences []Fence, timeout time.Duration) error
	ResetFences(fences []Fence) error

	// AcquireNextImage returns the index of the next presentable image.
	// ErrSuboptimal is returned along with a valid index.
	AcquireNextImage(sc Swapchain, timeout time.Duration, signal Semaphore) (uint32, error)

	Submit(info SubmitInfo) error
	Present(info PresentInfo) error
}

// Extent2D is a size in physical pixels.
type Extent2D struct {
	Width  uint32
	Height uint32
}

// Empty reports a zero-area extent.
func (e Extent2D) Empty() bool {
	return e.Width == 0 || e.Height == 0
}

// SurfaceFormat pairs a format with its color space.
type SurfaceFormat struct {
	Format     Format
	ColorSpace ColorSpace
}

// SurfaceCapabilities are the presentation capabilities of a surface.
type SurfaceCapabilities struct {
	MinImageCount uint32

	// MaxImageCount is zero when unbounded.
	MaxImageCount uint32

	CurrentExtent Extent2D
	MinExtent     Extent2D
	MaxExtent     Extent2D

	CompositeAlpha CompositeAlpha
	Usage          ImageUsage

	// CurrentTransform is the transform the surface is presented with.
	CurrentTransform SurfaceTransform

	Formats      []SurfaceFormat
	PresentModes []PresentMode
}

// SwapchainInfo describes a swapchain to create.
type SwapchainInfo struct {
	Extent         Extent2D
	Format         SurfaceFormat
	PresentMode    PresentMode
	MinImageCount  uint32
	CompositeAlpha CompositeAlpha
	Usage          ImageUsage
	PreTransform   SurfaceTransform

	// Old is handed over to the new swapchain when not nil.
	Old Swapchain
}

// Swapchain is a created presentation chain.
type Swapchain interface {
	Releasable
	Images() []Image
}

// Image is an opaque image handle owned by the backend.
type Image interface{}

// ImageView is a view on an Image.
type ImageView interface {
	Releasable
}

// Semaphore is a GPU-side signal.
type Semaphore interface {
	Releasable
}

// Fence is a GPU to host signal.
type Fence interface {
	Releasable
}

// CommandBuffer records commands for a single submission.
type CommandBuffer interface {
	Releasable
	Reset() error
	Begin() error
	End() error
	TransitionImage(img Image, from, to Layout)
	CopyBufferToImage(buf UploadBuffer, img Image, extent Extent2D)
}

// UploadBuffer is host visible memory the device can copy from.
type UploadBuffer interface {
	Releasable
	Bytes() []byte
	Size() int
}

// SubmitInfo describes one queue submission.
type SubmitInfo struct {
	Wait     Semaphore
	Signal   Semaphore
	Commands CommandBuffer
	Fence    Fence
}

// PresentInfo describes one present request.
type PresentInfo struct {
	Wait       Semaphore
	Swapchain  Swapchain
	ImageIndex uint32
}
