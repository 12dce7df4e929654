// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package vkr implements the gfx backend on Vulkan.
package vkr

import (
	"fmt"
	"unsafe"

	"github.com/devblok/kanvas/gfx"
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// NewError converts a Vulkan result into an error. Presentation results map
// to the gfx sentinels so callers can match them with errors.Is.
func NewError(call string, res vk.Result) error {
	switch res {
	case vk.Success:
		return nil
	case vk.ErrorOutOfDate:
		return errors.Wrap(gfx.ErrOutOfDate, call)
	case vk.Suboptimal:
		return errors.Wrap(gfx.ErrSuboptimal, call)
	case vk.ErrorDeviceLost:
		return errors.Wrap(gfx.ErrDeviceLost, call)
	case vk.ErrorSurfaceLost:
		return errors.Wrap(gfx.ErrSurfaceLost, call)
	case vk.Timeout, vk.NotReady:
		return errors.Wrap(gfx.ErrTimeout, call)
	}
	if err := vk.Error(res); err != nil {
		return errors.Errorf("%s: %s (%d)", call, err.Error(), res)
	}
	return nil
}

// NewAPI loads the Vulkan loader. procAddr is the vkGetInstanceProcAddr
// supplied by a windowing library; when nil the system loader is used.
func NewAPI(procAddr unsafe.Pointer) (gfx.API, error) {
	if procAddr == nil {
		if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
			return nil, errors.Wrap(err, "vk.SetDefaultGetInstanceProcAddr()")
		}
	} else {
		vk.SetGetInstanceProcAddr(procAddr)
	}

	if err := vk.Init(); err != nil {
		return nil, errors.Wrap(err, "vk.Init()")
	}
	return &api{}, nil
}

type api struct{}

// InstanceLayers implements interface
func (api) InstanceLayers() ([]string, error) {
	var count uint32
	if err := NewError("vk.EnumerateInstanceLayerProperties()", vk.EnumerateInstanceLayerProperties(&count, nil)); err != nil {
		return nil, err
	}
	props := make([]vk.LayerProperties, count)
	if err := NewError("vk.EnumerateInstanceLayerProperties()", vk.EnumerateInstanceLayerProperties(&count, props)); err != nil {
		return nil, err
	}

	layers := make([]string, 0, count)
	for i := range props {
		props[i].Deref()
		layers = append(layers, vk.ToString(props[i].LayerName[:]))
	}
	return layers, nil
}

// CreateInstance implements interface
func (api) CreateInstance(cfg gfx.InstanceConfig) (gfx.Instance, error) {
	extensions := cfg.Extensions
	if cfg.Debug != nil {
		extensions = append(extensions, vk.ExtDebugReportExtensionName)
	}

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         vk.MakeVersion(1, 0, 0),
		ApplicationVersion: vk.MakeVersion(1, 0, 0),
		PApplicationName:   safeString(cfg.ApplicationName),
		PEngineName:        safeString("kanvas"),
	}

	instanceInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: safeStrings(extensions),
		EnabledLayerCount:       uint32(len(cfg.Layers)),
		PpEnabledLayerNames:     safeStrings(cfg.Layers),
	}

	var handle vk.Instance
	if err := NewError("vk.CreateInstance()", vk.CreateInstance(&instanceInfo, nil, &handle)); err != nil {
		return nil, err
	}
	if err := vk.InitInstance(handle); err != nil {
		vk.DestroyInstance(handle, nil)
		return nil, errors.Wrap(err, "vk.InitInstance()")
	}

	in := &instance{instance: handle}
	if cfg.Debug != nil {
		if err := in.installDebugCallback(cfg.Debug); err != nil {
			vk.DestroyInstance(handle, nil)
			return nil, err
		}
	}
	return in, nil
}

type instance struct {
	instance      vk.Instance
	debugCallback vk.DebugReportCallback
	debugActive   bool
}

func (in *instance) installDebugCallback(sink func(gfx.DebugMessage)) error {
	dci := vk.DebugReportCallbackCreateInfo{
		SType: vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags: vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit |
			vk.DebugReportPerformanceWarningBit | vk.DebugReportInformationBit),
		PfnCallback: func(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
			object uint64, location uint, messageCode int32, layerPrefix string,
			message string, userData unsafe.Pointer) vk.Bool32 {
			sink(gfx.DebugMessage{
				Severity: severityFromFlags(flags),
				Layer:    layerPrefix,
				Code:     messageCode,
				Message:  message,
			})
			return vk.False
		},
	}

	var cb vk.DebugReportCallback
	if err := NewError("vk.CreateDebugReportCallback()", vk.CreateDebugReportCallback(in.instance, &dci, nil, &cb)); err != nil {
		return err
	}
	in.debugCallback = cb
	in.debugActive = true
	return nil
}

func severityFromFlags(flags vk.DebugReportFlags) gfx.DebugSeverity {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		return gfx.DebugSeverityError
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		return gfx.DebugSeverityWarning
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		return gfx.DebugSeverityPerformance
	case flags&vk.DebugReportFlags(vk.DebugReportInformationBit) != 0:
		return gfx.DebugSeverityInfo
	}
	return gfx.DebugSeverityDebug
}

// PhysicalDevices implements interface
func (in *instance) PhysicalDevices() ([]gfx.PhysicalDevice, error) {
	var count uint32
	if err := NewError("vk.EnumeratePhysicalDevices()", vk.EnumeratePhysicalDevices(in.instance, &count, nil)); err != nil {
		return nil, err
	}
	handles := make([]vk.PhysicalDevice, count)
	if err := NewError("vk.EnumeratePhysicalDevices()", vk.EnumeratePhysicalDevices(in.instance, &count, handles)); err != nil {
		return nil, err
	}

	devices := make([]gfx.PhysicalDevice, 0, count)
	for _, h := range handles {
		devices = append(devices, newPhysicalDevice(h))
	}
	return devices, nil
}

// CreateSurface implements interface
func (in *instance) CreateSurface(src gfx.SurfaceSource) (gfx.Surface, error) {
	ptr, err := src.CreateSurface(in.instance)
	if err != nil {
		return nil, errors.Wrap(err, "create window surface")
	}
	return &surface{
		instance: in.instance,
		surface:  vk.SurfaceFromPointer(uintptr(ptr)),
	}, nil
}

// CreateDevice implements interface
func (in *instance) CreateDevice(pd gfx.PhysicalDevice, info gfx.DeviceInfo) (gfx.Device, error) {
	phy, ok := pd.(*physicalDevice)
	if !ok {
		return nil, errors.New("vkr: foreign physical device")
	}
	srf, ok := info.Surface.(*surface)
	if !ok {
		return nil, errors.New("vkr: foreign surface")
	}
	return newDevice(phy, srf, info)
}

// Release implements interface
func (in *instance) Release() {
	if in.debugActive {
		vk.DestroyDebugReportCallback(in.instance, in.debugCallback, nil)
		in.debugActive = false
	}
	vk.DestroyInstance(in.instance, nil)
}

type surface struct {
	instance vk.Instance
	surface  vk.Surface
}

// Release implements interface
func (s *surface) Release() {
	vk.DestroySurface(s.instance, s.surface, nil)
}

func safeString(s string) string {
	return fmt.Sprintf("%s\x00", s)
}

func safeStrings(sgs []string) []string {
	safe := []string{}
	for _, s := range sgs {
		safe = append(safe, safeString(s))
	}
	return safe
}
