// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

import (
	"github.com/devblok/kanvas/gfx"
	"github.com/pkg/errors"
)

// PhysicalDeviceInfo describes available physical properties of a rendering device
type PhysicalDeviceInfo struct {
	ID            uint32
	VendorID      uint32
	DriverVersion uint32
	Name          string
	Type          string
	Invalid       bool
	Extensions    []string
	QueueFamilies []gfx.QueueFamily

	// Capable is true when the device has a graphics queue and swapchain
	// support. Present support needs a surface and is not checked.
	Capable bool
}

// Describe lists every physical device visible through api, in
// enumeration order.
func Describe(api gfx.API) ([]PhysicalDeviceInfo, error) {
	instance, err := api.CreateInstance(gfx.InstanceConfig{ApplicationName: "kanvascli"})
	if err != nil {
		return nil, errors.Wrap(err, "create instance")
	}
	defer instance.Release()

	devices, err := instance.PhysicalDevices()
	if err != nil {
		return nil, errors.Wrap(err, "enumerate physical devices")
	}

	pdi := make([]PhysicalDeviceInfo, len(devices))
	for i, pd := range devices {
		props := pd.Properties()
		pdi[i].ID = props.DeviceID
		pdi[i].VendorID = props.VendorID
		pdi[i].DriverVersion = props.DriverVersion
		pdi[i].Name = props.Name
		pdi[i].Type = props.Type.String()
		pdi[i].QueueFamilies = pd.QueueFamilies()

		extensions, err := pd.Extensions()
		if err != nil {
			pdi[i].Invalid = true
			continue
		}
		pdi[i].Extensions = extensions

		var graphics bool
		for _, f := range pdi[i].QueueFamilies {
			graphics = graphics || f.Graphics
		}
		pdi[i].Capable = graphics && contains(extensions, SwapchainExtension)
	}
	return pdi, nil
}
