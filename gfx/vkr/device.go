// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"time"

	"github.com/devblok/kanvas/gfx"
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

func newPhysicalDevice(h vk.PhysicalDevice) *physicalDevice {
	pd := &physicalDevice{handle: h}

	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(h, &props)
	props.Deref()
	pd.properties = gfx.PhysicalDeviceProperties{
		Name:          vk.ToString(props.DeviceName[:]),
		Type:          gfx.DeviceType(props.DeviceType),
		VendorID:      props.VendorID,
		DeviceID:      props.DeviceID,
		DriverVersion: props.DriverVersion,
		APIVersion:    props.ApiVersion,
	}

	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(h, &count, nil)
	families := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(h, &count, families)
	for i := range families {
		families[i].Deref()
		flags := families[i].QueueFlags
		pd.families = append(pd.families, gfx.QueueFamily{
			Index:    uint32(i),
			Count:    families[i].QueueCount,
			Graphics: flags&vk.QueueFlags(vk.QueueGraphicsBit) != 0,
			Compute:  flags&vk.QueueFlags(vk.QueueComputeBit) != 0,
			Transfer: flags&vk.QueueFlags(vk.QueueTransferBit) != 0,
		})
	}
	return pd
}

type physicalDevice struct {
	handle     vk.PhysicalDevice
	properties gfx.PhysicalDeviceProperties
	families   []gfx.QueueFamily
}

// Properties implements interface
func (pd *physicalDevice) Properties() gfx.PhysicalDeviceProperties {
	return pd.properties
}

// QueueFamilies implements interface
func (pd *physicalDevice) QueueFamilies() []gfx.QueueFamily {
	return pd.families
}

// Extensions implements interface
func (pd *physicalDevice) Extensions() ([]string, error) {
	var count uint32
	if err := NewError("vk.EnumerateDeviceExtensionProperties()", vk.EnumerateDeviceExtensionProperties(pd.handle, "", &count, nil)); err != nil {
		return nil, err
	}
	props := make([]vk.ExtensionProperties, count)
	if err := NewError("vk.EnumerateDeviceExtensionProperties()", vk.EnumerateDeviceExtensionProperties(pd.handle, "", &count, props)); err != nil {
		return nil, err
	}
	names := make([]string, 0, count)
	for _, ext := range props {
		ext.Deref()
		names = append(names, vk.ToString(ext.ExtensionName[:]))
	}
	return names, nil
}

// SupportsPresent implements interface
func (pd *physicalDevice) SupportsPresent(family uint32, s gfx.Surface) (bool, error) {
	srf, ok := s.(*surface)
	if !ok {
		return false, errors.New("vkr: foreign surface")
	}
	var supported vk.Bool32
	if err := NewError("vk.GetPhysicalDeviceSurfaceSupport()", vk.GetPhysicalDeviceSurfaceSupport(pd.handle, family, srf.surface, &supported)); err != nil {
		return false, err
	}
	return supported == vk.True, nil
}

func newDevice(pd *physicalDevice, srf *surface, info gfx.DeviceInfo) (*device, error) {
	queueInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: info.GraphicsFamily,
		QueueCount:       1,
		PQueuePriorities: []float32{1},
	}}
	if info.PresentFamily != info.GraphicsFamily {
		queueInfos = append(queueInfos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: info.PresentFamily,
			QueueCount:       1,
			PQueuePriorities: []float32{1},
		})
	}

	dci := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(info.Extensions)),
		PpEnabledExtensionNames: safeStrings(info.Extensions),
	}

	var handle vk.Device
	if err := NewError("vk.CreateDevice()", vk.CreateDevice(pd.handle, &dci, nil, &handle)); err != nil {
		return nil, err
	}

	d := &device{
		physical:       pd,
		surface:        srf,
		device:         handle,
		graphicsFamily: info.GraphicsFamily,
		presentFamily:  info.PresentFamily,
	}
	vk.GetDeviceQueue(handle, info.GraphicsFamily, 0, &d.graphicsQueue)
	vk.GetDeviceQueue(handle, info.PresentFamily, 0, &d.presentQueue)

	cpci := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: info.GraphicsFamily,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	if err := NewError("vk.CreateCommandPool()", vk.CreateCommandPool(handle, &cpci, nil, &d.commandPool)); err != nil {
		vk.DestroyDevice(handle, nil)
		return nil, err
	}

	d.allocator = NewMemoryAllocator(handle, pd.handle)
	return d, nil
}

type device struct {
	physical *physicalDevice
	surface  *surface

	device         vk.Device
	graphicsQueue  vk.Queue
	presentQueue   vk.Queue
	graphicsFamily uint32
	presentFamily  uint32
	commandPool    vk.CommandPool

	allocator *MemoryAllocator
}

// WaitIdle implements interface
func (d *device) WaitIdle() error {
	return NewError("vk.DeviceWaitIdle()", vk.DeviceWaitIdle(d.device))
}

// SurfaceCapabilities implements interface
func (d *device) SurfaceCapabilities() (gfx.SurfaceCapabilities, error) {
	var (
		pd   = d.physical.handle
		srf  = d.surface.surface
		caps vk.SurfaceCapabilities
	)
	if err := NewError("vk.GetPhysicalDeviceSurfaceCapabilities()", vk.GetPhysicalDeviceSurfaceCapabilities(pd, srf, &caps)); err != nil {
		return gfx.SurfaceCapabilities{}, err
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()

	result := gfx.SurfaceCapabilities{
		MinImageCount:  caps.MinImageCount,
		MaxImageCount:  caps.MaxImageCount,
		CurrentExtent:  gfx.Extent2D{Width: caps.CurrentExtent.Width, Height: caps.CurrentExtent.Height},
		MinExtent:      gfx.Extent2D{Width: caps.MinImageExtent.Width, Height: caps.MinImageExtent.Height},
		MaxExtent:      gfx.Extent2D{Width: caps.MaxImageExtent.Width, Height: caps.MaxImageExtent.Height},
		CompositeAlpha:   gfx.CompositeAlpha(caps.SupportedCompositeAlpha),
		Usage:            gfx.ImageUsage(caps.SupportedUsageFlags),
		CurrentTransform: gfx.SurfaceTransform(caps.CurrentTransform),
	}

	var formatCount uint32
	if err := NewError("vk.GetPhysicalDeviceSurfaceFormats()", vk.GetPhysicalDeviceSurfaceFormats(pd, srf, &formatCount, nil)); err != nil {
		return gfx.SurfaceCapabilities{}, err
	}
	formats := make([]vk.SurfaceFormat, formatCount)
	if err := NewError("vk.GetPhysicalDeviceSurfaceFormats()", vk.GetPhysicalDeviceSurfaceFormats(pd, srf, &formatCount, formats)); err != nil {
		return gfx.SurfaceCapabilities{}, err
	}
	for i := range formats {
		formats[i].Deref()
		result.Formats = append(result.Formats, gfx.SurfaceFormat{
			Format:     gfx.Format(formats[i].Format),
			ColorSpace: gfx.ColorSpace(formats[i].ColorSpace),
		})
	}

	var modeCount uint32
	if err := NewError("vk.GetPhysicalDeviceSurfacePresentModes()", vk.GetPhysicalDeviceSurfacePresentModes(pd, srf, &modeCount, nil)); err != nil {
		return gfx.SurfaceCapabilities{}, err
	}
	modes := make([]vk.PresentMode, modeCount)
	if err := NewError("vk.GetPhysicalDeviceSurfacePresentModes()", vk.GetPhysicalDeviceSurfacePresentModes(pd, srf, &modeCount, modes)); err != nil {
		return gfx.SurfaceCapabilities{}, err
	}
	for _, m := range modes {
		result.PresentModes = append(result.PresentModes, gfx.PresentMode(m))
	}
	return result, nil
}

// CreateSwapchain implements interface
func (d *device) CreateSwapchain(info gfx.SwapchainInfo) (gfx.Swapchain, error) {
	var old vk.Swapchain = vk.NullSwapchain
	if info.Old != nil {
		old = info.Old.(*swapchain).handle
	}

	scci := vk.SwapchainCreateInfo{
		SType:           vk.StructureTypeSwapchainCreateInfo,
		Surface:         d.surface.surface,
		MinImageCount:   info.MinImageCount,
		ImageFormat:     vk.Format(info.Format.Format),
		ImageColorSpace: vk.ColorSpace(info.Format.ColorSpace),
		ImageExtent: vk.Extent2D{
			Width:  info.Extent.Width,
			Height: info.Extent.Height,
		},
		ImageUsage:       vk.ImageUsageFlags(info.Usage),
		PreTransform:     vk.SurfaceTransformFlagBits(info.PreTransform),
		CompositeAlpha:   vk.CompositeAlphaFlagBits(info.CompositeAlpha),
		PresentMode:      vk.PresentMode(info.PresentMode),
		Clipped:          vk.True,
		ImageArrayLayers: 1,
		ImageSharingMode: vk.SharingModeExclusive,
		OldSwapchain:     old,
	}
	// Images are written on the graphics queue and presented on the
	// present queue without an ownership transfer.
	if d.graphicsFamily != d.presentFamily {
		scci.ImageSharingMode = vk.SharingModeConcurrent
		scci.QueueFamilyIndexCount = 2
		scci.PQueueFamilyIndices = []uint32{d.graphicsFamily, d.presentFamily}
	}

	var handle vk.Swapchain
	if err := NewError("vk.CreateSwapchain()", vk.CreateSwapchain(d.device, &scci, nil, &handle)); err != nil {
		return nil, err
	}

	var numImages uint32
	if err := NewError("vk.GetSwapchainImages()", vk.GetSwapchainImages(d.device, handle, &numImages, nil)); err != nil {
		vk.DestroySwapchain(d.device, handle, nil)
		return nil, err
	}
	images := make([]vk.Image, numImages)
	if err := NewError("vk.GetSwapchainImages()", vk.GetSwapchainImages(d.device, handle, &numImages, images)); err != nil {
		vk.DestroySwapchain(d.device, handle, nil)
		return nil, err
	}

	sc := &swapchain{device: d.device, handle: handle}
	for _, img := range images {
		sc.images = append(sc.images, img)
	}
	return sc, nil
}

// CreateImageView implements interface
func (d *device) CreateImageView(img gfx.Image, format gfx.Format) (gfx.ImageView, error) {
	ivci := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img.(vk.Image),
		ViewType: vk.ImageViewType2d,
		Format:   vk.Format(format),
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: colorSubresource(),
	}

	var view vk.ImageView
	if err := NewError("vk.CreateImageView()", vk.CreateImageView(d.device, &ivci, nil, &view)); err != nil {
		return nil, err
	}
	return &imageView{device: d.device, view: view}, nil
}

// CreateSemaphore implements interface
func (d *device) CreateSemaphore() (gfx.Semaphore, error) {
	sci := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var sem vk.Semaphore
	if err := NewError("vk.CreateSemaphore()", vk.CreateSemaphore(d.device, &sci, nil, &sem)); err != nil {
		return nil, err
	}
	return &semaphore{device: d.device, semaphore: sem}, nil
}

// CreateFence implements interface
func (d *device) CreateFence(signaled bool) (gfx.Fence, error) {
	fci := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		fci.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var f vk.Fence
	if err := NewError("vk.CreateFence()", vk.CreateFence(d.device, &fci, nil, &f)); err != nil {
		return nil, err
	}
	return &fence{device: d.device, fence: f}, nil
}

// CreateCommandBuffer implements interface
func (d *device) CreateCommandBuffer() (gfx.CommandBuffer, error) {
	cbai := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        d.commandPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	buffers := make([]vk.CommandBuffer, 1)
	if err := NewError("vk.AllocateCommandBuffers()", vk.AllocateCommandBuffers(d.device, &cbai, buffers)); err != nil {
		return nil, err
	}
	return &commandBuffer{device: d.device, pool: d.commandPool, cmd: buffers[0]}, nil
}

// CreateUploadBuffer implements interface
func (d *device) CreateUploadBuffer(size int) (gfx.UploadBuffer, error) {
	buf, err := NewBuffer(d.device, uint(size), vk.BufferUsageTransferSrcBit, vk.SharingModeExclusive, d.allocator)
	if err != nil {
		return nil, err
	}
	upload, err := newUploadBuffer(buf, size)
	if err != nil {
		return nil, err
	}
	return upload, nil
}

// WaitForFences implements interface
func (d *device) WaitForFences(fences []gfx.Fence, timeout time.Duration) error {
	if len(fences) == 0 {
		return nil
	}
	handles := fenceHandles(fences)
	res := vk.WaitForFences(d.device, uint32(len(handles)), handles, vk.True, uint64(timeout.Nanoseconds()))
	return NewError("vk.WaitForFences()", res)
}

// ResetFences implements interface
func (d *device) ResetFences(fences []gfx.Fence) error {
	handles := fenceHandles(fences)
	return NewError("vk.ResetFences()", vk.ResetFences(d.device, uint32(len(handles)), handles))
}

// AcquireNextImage implements interface
func (d *device) AcquireNextImage(sc gfx.Swapchain, timeout time.Duration, signal gfx.Semaphore) (uint32, error) {
	var index uint32
	res := vk.AcquireNextImage(d.device, sc.(*swapchain).handle, uint64(timeout.Nanoseconds()),
		signal.(*semaphore).semaphore, vk.NullFence, &index)
	return index, NewError("vk.AcquireNextImage()", res)
}

// Submit implements interface
func (d *device) Submit(info gfx.SubmitInfo) error {
	si := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{info.Wait.(*semaphore).semaphore},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageTransferBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{info.Commands.(*commandBuffer).cmd},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{info.Signal.(*semaphore).semaphore},
	}
	return NewError("vk.QueueSubmit()", vk.QueueSubmit(d.graphicsQueue, 1, []vk.SubmitInfo{si}, info.Fence.(*fence).fence))
}

// Present implements interface
func (d *device) Present(info gfx.PresentInfo) error {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{info.Wait.(*semaphore).semaphore},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{info.Swapchain.(*swapchain).handle},
		PImageIndices:      []uint32{info.ImageIndex},
	}
	return NewError("vk.QueuePresent()", vk.QueuePresent(d.presentQueue, &presentInfo))
}

// Release implements interface
func (d *device) Release() {
	vk.DestroyCommandPool(d.device, d.commandPool, nil)
	vk.DestroyDevice(d.device, nil)
}

type swapchain struct {
	device vk.Device
	handle vk.Swapchain
	images []gfx.Image
}

// Images implements interface
func (s *swapchain) Images() []gfx.Image {
	return s.images
}

// Release implements interface
func (s *swapchain) Release() {
	vk.DestroySwapchain(s.device, s.handle, nil)
}

type imageView struct {
	device vk.Device
	view   vk.ImageView
}

// Release implements interface
func (v *imageView) Release() {
	vk.DestroyImageView(v.device, v.view, nil)
}

type semaphore struct {
	device    vk.Device
	semaphore vk.Semaphore
}

// Release implements interface
func (s *semaphore) Release() {
	vk.DestroySemaphore(s.device, s.semaphore, nil)
}

type fence struct {
	device vk.Device
	fence  vk.Fence
}

// Release implements interface
func (f *fence) Release() {
	vk.DestroyFence(f.device, f.fence, nil)
}

func fenceHandles(fences []gfx.Fence) []vk.Fence {
	handles := make([]vk.Fence, 0, len(fences))
	for _, f := range fences {
		handles = append(handles, f.(*fence).fence)
	}
	return handles
}

func colorSubresource() vk.ImageSubresourceRange {
	return vk.ImageSubresourceRange{
		AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
		BaseMipLevel:   0,
		LevelCount:     1,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}
}
