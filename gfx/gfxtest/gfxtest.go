// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package gfxtest provides an in-memory gfx backend for tests. GPU work
// completes at submission unless the device is held.
package gfxtest

import (
	"errors"
	"fmt"
	"time"
	"unsafe"

	"github.com/devblok/kanvas/gfx"
)

// API is a fake gfx.API.
type API struct {
	Layers  []string
	Devices []*PhysicalDevice

	// Device is handed out by CreateDevice. A default one is made when nil.
	Device *Device

	LastInstance *Instance
	CreateErr    error
}

// InstanceLayers implements interface
func (a *API) InstanceLayers() ([]string, error) {
	return a.Layers, nil
}

// CreateInstance implements interface
func (a *API) CreateInstance(cfg gfx.InstanceConfig) (gfx.Instance, error) {
	if a.CreateErr != nil {
		return nil, a.CreateErr
	}
	a.LastInstance = &Instance{api: a, Config: cfg}
	return a.LastInstance, nil
}

// Instance is a fake gfx.Instance.
type Instance struct {
	api      *API
	Config   gfx.InstanceConfig
	Released bool

	DeviceInfo gfx.DeviceInfo
	Selected   *PhysicalDevice
}

// PhysicalDevices implements interface
func (in *Instance) PhysicalDevices() ([]gfx.PhysicalDevice, error) {
	devices := make([]gfx.PhysicalDevice, 0, len(in.api.Devices))
	for _, d := range in.api.Devices {
		devices = append(devices, d)
	}
	return devices, nil
}

// CreateSurface implements interface
func (in *Instance) CreateSurface(src gfx.SurfaceSource) (gfx.Surface, error) {
	if _, err := src.CreateSurface(in); err != nil {
		return nil, err
	}
	return &Surface{}, nil
}

// CreateDevice implements interface
func (in *Instance) CreateDevice(pd gfx.PhysicalDevice, info gfx.DeviceInfo) (gfx.Device, error) {
	in.Selected = pd.(*PhysicalDevice)
	in.DeviceInfo = info
	if in.api.Device == nil {
		in.api.Device = NewDevice()
	}
	return in.api.Device, nil
}

// Release implements interface
func (in *Instance) Release() {
	in.Released = true
}

// Surface is a fake gfx.Surface.
type Surface struct {
	Released bool
}

// Release implements interface
func (s *Surface) Release() {
	s.Released = true
}

// Window is a fake surface source and window.
type Window struct {
	Width, Height int
	Scale         float64
	Extensions    []string
}

// CreateSurface implements interface
func (w *Window) CreateSurface(instance interface{}) (unsafe.Pointer, error) {
	return nil, nil
}

// PhysicalSize implements interface
func (w *Window) PhysicalSize() (int, int) {
	return w.Width, w.Height
}

// ScaleFactor implements interface
func (w *Window) ScaleFactor() float64 {
	if w.Scale == 0 {
		return 1
	}
	return w.Scale
}

// RequiredExtensions implements interface
func (w *Window) RequiredExtensions() []string {
	return w.Extensions
}

// PhysicalDevice is a fake gfx.PhysicalDevice.
type PhysicalDevice struct {
	Props            gfx.PhysicalDeviceProperties
	Families         []gfx.QueueFamily
	Present          map[uint32]bool
	DeviceExtensions []string
}

// NewPhysicalDevice returns a device with one graphics family that can
// present and supports swapchains.
func NewPhysicalDevice(name string, t gfx.DeviceType) *PhysicalDevice {
	return &PhysicalDevice{
		Props:            gfx.PhysicalDeviceProperties{Name: name, Type: t},
		Families:         []gfx.QueueFamily{{Index: 0, Count: 1, Graphics: true}},
		Present:          map[uint32]bool{0: true},
		DeviceExtensions: []string{"VK_KHR_swapchain"},
	}
}

// Properties implements interface
func (pd *PhysicalDevice) Properties() gfx.PhysicalDeviceProperties {
	return pd.Props
}

// QueueFamilies implements interface
func (pd *PhysicalDevice) QueueFamilies() []gfx.QueueFamily {
	return pd.Families
}

// Extensions implements interface
func (pd *PhysicalDevice) Extensions() ([]string, error) {
	return pd.DeviceExtensions, nil
}

// SupportsPresent implements interface
func (pd *PhysicalDevice) SupportsPresent(family uint32, s gfx.Surface) (bool, error) {
	return pd.Present[family], nil
}

// Device is a fake gfx.Device. Hooks return the result of the n-th call
// of an operation, counted from 1; a nil hook means success.
type Device struct {
	Caps gfx.SurfaceCapabilities

	OnAcquire func(n int) error
	OnSubmit  func(n int) error
	OnPresent func(n int) error
	OnUpload  func(n int) error

	// Hold keeps submitted fences unsignaled until Complete is called.
	Hold bool

	Acquires   int
	Submits    int
	Presents   int
	WaitIdles  int
	Released   bool
	Swapchains []*Swapchain
	Views      []*ImageView
	Fences     []*Fence
	Commands   []*CommandBuffer
	Uploads    []*UploadBuffer

	// Events is an ordered log of lifetime events.
	Events []string

	pending []*Fence
	nextID  int
}

// NewDevice returns a device with permissive capabilities.
func NewDevice() *Device {
	return &Device{
		Caps: gfx.SurfaceCapabilities{
			MinImageCount:    2,
			MaxImageCount:    8,
			CurrentExtent:    gfx.Extent2D{Width: 0xFFFFFFFF, Height: 0xFFFFFFFF},
			MinExtent:        gfx.Extent2D{Width: 1, Height: 1},
			MaxExtent:        gfx.Extent2D{Width: 16384, Height: 16384},
			CompositeAlpha:   gfx.CompositeAlphaOpaque,
			CurrentTransform: gfx.SurfaceTransformIdentity,
			Usage:            gfx.ImageUsageTransferDst | gfx.ImageUsageColorAttachment,
			Formats: []gfx.SurfaceFormat{
				{Format: gfx.FormatB8G8R8A8Unorm, ColorSpace: gfx.ColorSpaceSRGBNonlinear},
				{Format: gfx.FormatB8G8R8A8SRGB, ColorSpace: gfx.ColorSpaceSRGBNonlinear},
			},
			PresentModes: []gfx.PresentMode{gfx.PresentModeFifo, gfx.PresentModeMailbox},
		},
	}
}

func (d *Device) id() int {
	d.nextID++
	return d.nextID
}

func (d *Device) event(format string, args ...interface{}) {
	d.Events = append(d.Events, fmt.Sprintf(format, args...))
}

// Complete signals every fence submitted while the device was held.
func (d *Device) Complete() {
	for _, f := range d.pending {
		f.Signaled = true
	}
	d.pending = nil
}

// WaitIdle implements interface
func (d *Device) WaitIdle() error {
	d.WaitIdles++
	d.Complete()
	d.event("wait-idle")
	return nil
}

// SurfaceCapabilities implements interface
func (d *Device) SurfaceCapabilities() (gfx.SurfaceCapabilities, error) {
	return d.Caps, nil
}

// CreateSwapchain implements interface
func (d *Device) CreateSwapchain(info gfx.SwapchainInfo) (gfx.Swapchain, error) {
	count := info.MinImageCount
	if count == 0 {
		count = 1
	}
	sc := &Swapchain{ID: d.id(), Info: info, device: d}
	for i := uint32(0); i < count; i++ {
		sc.images = append(sc.images, &Image{ID: d.id(), Swapchain: sc.ID})
	}
	if info.Old != nil {
		sc.Old = info.Old.(*Swapchain)
		d.event("create-swapchain:%d:old=%d", sc.ID, sc.Old.ID)
	} else {
		d.event("create-swapchain:%d", sc.ID)
	}
	d.Swapchains = append(d.Swapchains, sc)
	return sc, nil
}

// CreateImageView implements interface
func (d *Device) CreateImageView(img gfx.Image, format gfx.Format) (gfx.ImageView, error) {
	v := &ImageView{Image: img.(*Image), device: d}
	d.Views = append(d.Views, v)
	return v, nil
}

// CreateSemaphore implements interface
func (d *Device) CreateSemaphore() (gfx.Semaphore, error) {
	return &Semaphore{ID: d.id()}, nil
}

// CreateFence implements interface
func (d *Device) CreateFence(signaled bool) (gfx.Fence, error) {
	f := &Fence{ID: d.id(), Signaled: signaled}
	d.Fences = append(d.Fences, f)
	return f, nil
}

// CreateCommandBuffer implements interface
func (d *Device) CreateCommandBuffer() (gfx.CommandBuffer, error) {
	c := &CommandBuffer{}
	d.Commands = append(d.Commands, c)
	return c, nil
}

// CreateUploadBuffer implements interface
func (d *Device) CreateUploadBuffer(size int) (gfx.UploadBuffer, error) {
	if d.OnUpload != nil {
		if err := d.OnUpload(len(d.Uploads) + 1); err != nil {
			return nil, err
		}
	}
	u := &UploadBuffer{Data: make([]byte, size)}
	d.Uploads = append(d.Uploads, u)
	return u, nil
}

// WaitForFences implements interface
func (d *Device) WaitForFences(fences []gfx.Fence, timeout time.Duration) error {
	for _, f := range fences {
		if !f.(*Fence).Signaled {
			d.event("wait-fences:timeout")
			return gfx.ErrTimeout
		}
	}
	d.event("wait-fences")
	return nil
}

// ResetFences implements interface
func (d *Device) ResetFences(fences []gfx.Fence) error {
	for _, f := range fences {
		f.(*Fence).Signaled = false
	}
	return nil
}

// AcquireNextImage implements interface
func (d *Device) AcquireNextImage(sc gfx.Swapchain, timeout time.Duration, signal gfx.Semaphore) (uint32, error) {
	d.Acquires++
	s := sc.(*Swapchain)
	if s.Released {
		return 0, fmt.Errorf("acquire on released swapchain %d", s.ID)
	}
	var err error
	if d.OnAcquire != nil {
		err = d.OnAcquire(d.Acquires)
	}
	if err != nil && !errors.Is(err, gfx.ErrSuboptimal) {
		return 0, err
	}
	return s.next(), err
}

// Submit implements interface
func (d *Device) Submit(info gfx.SubmitInfo) error {
	d.Submits++
	if d.OnSubmit != nil {
		if err := d.OnSubmit(d.Submits); err != nil {
			return err
		}
	}
	f := info.Fence.(*Fence)
	if d.Hold {
		d.pending = append(d.pending, f)
	} else {
		f.Signaled = true
	}
	return nil
}

// Present implements interface
func (d *Device) Present(info gfx.PresentInfo) error {
	d.Presents++
	if d.OnPresent != nil {
		return d.OnPresent(d.Presents)
	}
	return nil
}

// Release implements interface
func (d *Device) Release() {
	d.Released = true
	d.event("release-device")
}

// Swapchain is a fake gfx.Swapchain.
type Swapchain struct {
	ID       int
	Info     gfx.SwapchainInfo
	Old      *Swapchain
	Released bool

	device *Device
	images []gfx.Image
	cursor uint32
}

func (s *Swapchain) next() uint32 {
	index := s.cursor
	s.cursor = (s.cursor + 1) % uint32(len(s.images))
	return index
}

// Images implements interface
func (s *Swapchain) Images() []gfx.Image {
	return s.images
}

// Release implements interface
func (s *Swapchain) Release() {
	s.Released = true
	s.device.event("release-swapchain:%d", s.ID)
}

// Image is a fake image handle.
type Image struct {
	ID        int
	Swapchain int
}

// ImageView is a fake gfx.ImageView.
type ImageView struct {
	Image    *Image
	Released bool

	device *Device
}

// Release implements interface
func (v *ImageView) Release() {
	v.Released = true
	v.device.event("release-view:%d", v.Image.Swapchain)
}

// Semaphore is a fake gfx.Semaphore.
type Semaphore struct {
	ID       int
	Released bool
}

// Release implements interface
func (s *Semaphore) Release() {
	s.Released = true
}

// Fence is a fake gfx.Fence.
type Fence struct {
	ID       int
	Signaled bool
	Released bool
}

// Release implements interface
func (f *Fence) Release() {
	f.Released = true
}

// CommandBuffer is a fake gfx.CommandBuffer that records what it was told.
type CommandBuffer struct {
	Ops      []string
	Released bool
}

// Reset implements interface
func (c *CommandBuffer) Reset() error {
	c.Ops = c.Ops[:0]
	return nil
}

// Begin implements interface
func (c *CommandBuffer) Begin() error {
	c.Ops = append(c.Ops, "begin")
	return nil
}

// End implements interface
func (c *CommandBuffer) End() error {
	c.Ops = append(c.Ops, "end")
	return nil
}

// TransitionImage implements interface
func (c *CommandBuffer) TransitionImage(img gfx.Image, from, to gfx.Layout) {
	c.Ops = append(c.Ops, fmt.Sprintf("transition:%d:%d->%d", img.(*Image).ID, from, to))
}

// CopyBufferToImage implements interface
func (c *CommandBuffer) CopyBufferToImage(buf gfx.UploadBuffer, img gfx.Image, extent gfx.Extent2D) {
	c.Ops = append(c.Ops, fmt.Sprintf("copy:%d:%dx%d", img.(*Image).ID, extent.Width, extent.Height))
}

// Release implements interface
func (c *CommandBuffer) Release() {
	c.Released = true
}

// UploadBuffer is a fake gfx.UploadBuffer backed by a byte slice.
type UploadBuffer struct {
	Data     []byte
	Released bool
}

// Bytes implements interface
func (u *UploadBuffer) Bytes() []byte {
	return u.Data
}

// Size implements interface
func (u *UploadBuffer) Size() int {
	return len(u.Data)
}

// Release implements interface
func (u *UploadBuffer) Release() {
	u.Released = true
}
