// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package device selects a physical device and owns the API instance,
// presentation surface and logical device for the lifetime of a renderer.
package device

import (
	"github.com/devblok/kanvas/gfx"
	"github.com/devblok/kanvas/window"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Configuration errors reported by New.
var (
	ErrNoSuitableDevice           = errors.New("no suitable physical device")
	ErrValidationLayerUnavailable = errors.New("validation layer unavailable")
)

// Validation layer names, newest first.
const (
	ValidationLayer       = "VK_LAYER_KHRONOS_validation"
	LegacyValidationLayer = "VK_LAYER_LUNARG_standard_validation"
)

// SwapchainExtension is the device extension presentation requires.
const SwapchainExtension = "VK_KHR_swapchain"

// DefaultDeviceTypePriority is used when the configuration leaves the priority empty.
var DefaultDeviceTypePriority = []gfx.DeviceType{
	gfx.DeviceTypeDiscreteGPU,
	gfx.DeviceTypeIntegratedGPU,
	gfx.DeviceTypeVirtualGPU,
	gfx.DeviceTypeCPU,
	gfx.DeviceTypeOther,
}

// Configuration configures device selection.
type Configuration struct {
	ApplicationName string

	// Validation requires a validation layer. New fails when none is installed.
	Validation bool

	// DeviceTypePriority orders acceptable device types. Types left out are
	// never selected.
	DeviceTypePriority []gfx.DeviceType
}

// ValidationState tells whether validation is active and through which layer.
type ValidationState struct {
	Enabled bool
	Layer   string
}

// Context holds the handles every other component borrows. It is
// immutable once New returns.
type Context struct {
	api      gfx.API
	instance gfx.Instance
	surface  gfx.Surface
	physical gfx.PhysicalDevice
	device   gfx.Device

	properties     gfx.PhysicalDeviceProperties
	graphicsFamily uint32
	presentFamily  uint32
	validation     ValidationState

	log log.FieldLogger
}

// New creates the instance and surface for win, selects a physical device
// and opens it.
func New(api gfx.API, win window.Window, cfg Configuration, logger log.FieldLogger) (*Context, error) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	ctx := &Context{
		api: api,
		log: logger.WithField("component", "device"),
	}

	var layers []string
	if cfg.Validation {
		available, err := api.InstanceLayers()
		if err != nil {
			return nil, errors.Wrap(err, "list instance layers")
		}
		layer, err := findValidationLayer(available)
		if err != nil {
			return nil, err
		}
		layers = append(layers, layer)
		ctx.validation = ValidationState{Enabled: true, Layer: layer}
	}

	instanceCfg := gfx.InstanceConfig{
		ApplicationName: cfg.ApplicationName,
		Extensions:      win.RequiredExtensions(),
		Layers:          layers,
	}
	if ctx.validation.Enabled {
		instanceCfg.Debug = ctx.debugMessage
	}

	instance, err := api.CreateInstance(instanceCfg)
	if err != nil {
		return nil, errors.Wrap(err, "create instance")
	}
	ctx.instance = instance

	surface, err := instance.CreateSurface(win)
	if err != nil {
		instance.Release()
		return nil, errors.Wrap(err, "create surface")
	}
	ctx.surface = surface

	devices, err := instance.PhysicalDevices()
	if err != nil {
		ctx.releaseInstance()
		return nil, errors.Wrap(err, "enumerate physical devices")
	}

	priority := cfg.DeviceTypePriority
	if len(priority) == 0 {
		priority = DefaultDeviceTypePriority
	}
	selected, err := selectDevice(devices, surface, priority)
	if err != nil {
		ctx.releaseInstance()
		return nil, err
	}

	dev, err := instance.CreateDevice(selected.device, gfx.DeviceInfo{
		GraphicsFamily: selected.graphicsFamily,
		PresentFamily:  selected.presentFamily,
		Extensions:     []string{SwapchainExtension},
		Surface:        surface,
	})
	if err != nil {
		ctx.releaseInstance()
		return nil, errors.Wrap(err, "create device")
	}

	ctx.physical = selected.device
	ctx.device = dev
	ctx.properties = selected.device.Properties()
	ctx.graphicsFamily = selected.graphicsFamily
	ctx.presentFamily = selected.presentFamily

	ctx.log.WithFields(log.Fields{
		"name":       ctx.properties.Name,
		"type":       ctx.properties.Type,
		"graphics":   ctx.graphicsFamily,
		"present":    ctx.presentFamily,
		"validation": ctx.validation.Layer,
	}).Info("device selected")

	return ctx, nil
}

func findValidationLayer(available []string) (string, error) {
	for _, want := range []string{ValidationLayer, LegacyValidationLayer} {
		for _, have := range available {
			if have == want {
				return want, nil
			}
		}
	}
	return "", ErrValidationLayerUnavailable
}

func (c *Context) debugMessage(msg gfx.DebugMessage) {
	entry := c.log.WithFields(log.Fields{
		"layer": msg.Layer,
		"code":  msg.Code,
	})
	switch msg.Severity {
	case gfx.DebugSeverityError:
		entry.Error(msg.Message)
	case gfx.DebugSeverityWarning, gfx.DebugSeverityPerformance:
		entry.Warn(msg.Message)
	default:
		entry.Debug(msg.Message)
	}
}

// Device returns the logical device.
func (c *Context) Device() gfx.Device {
	return c.device
}

// Physical returns the selected physical device.
func (c *Context) Physical() gfx.PhysicalDevice {
	return c.physical
}

// Surface returns the presentation surface.
func (c *Context) Surface() gfx.Surface {
	return c.surface
}

// Properties returns the properties of the selected device.
func (c *Context) Properties() gfx.PhysicalDeviceProperties {
	return c.properties
}

// DeviceType returns the type of the selected device.
func (c *Context) DeviceType() gfx.DeviceType {
	return c.properties.Type
}

// QueueFamilies returns the graphics and present queue families. They are
// equal when one family does both.
func (c *Context) QueueFamilies() (graphics, present uint32) {
	return c.graphicsFamily, c.presentFamily
}

// Validation returns the validation state.
func (c *Context) Validation() ValidationState {
	return c.validation
}

// Logger returns the logger the context was created with.
func (c *Context) Logger() log.FieldLogger {
	return c.log
}

// Destroy waits for the device to go idle and releases the device, the
// surface and the instance in that order. Every resource created from the
// device must be released before.
func (c *Context) Destroy() {
	if c.device != nil {
		if err := c.device.WaitIdle(); err != nil {
			c.log.WithError(err).Warn("wait idle before destroy")
		}
		c.device.Release()
		c.device = nil
	}
	c.releaseInstance()
}

func (c *Context) releaseInstance() {
	if c.surface != nil {
		c.surface.Release()
		c.surface = nil
	}
	if c.instance != nil {
		c.instance.Release()
		c.instance = nil
	}
}
