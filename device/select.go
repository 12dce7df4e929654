// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

import (
	"github.com/devblok/kanvas/gfx"
	"github.com/pkg/errors"
)

type candidate struct {
	device         gfx.PhysicalDevice
	graphicsFamily uint32
	presentFamily  uint32
}

// selectDevice returns the first capable device of the first type in
// priority that has one. Devices sharing a type are taken in enumeration
// order, so the first enumerated wins.
func selectDevice(devices []gfx.PhysicalDevice, surface gfx.Surface, priority []gfx.DeviceType) (candidate, error) {
	var capable []candidate
	for _, pd := range devices {
		c, ok, err := inspect(pd, surface)
		if err != nil {
			return candidate{}, err
		}
		if ok {
			capable = append(capable, c)
		}
	}

	for _, t := range priority {
		for _, c := range capable {
			if c.device.Properties().Type == t {
				return c, nil
			}
		}
	}
	return candidate{}, ErrNoSuitableDevice
}

// inspect tells whether pd can render and present to surface and picks its
// queue families.
func inspect(pd gfx.PhysicalDevice, surface gfx.Surface) (candidate, bool, error) {
	extensions, err := pd.Extensions()
	if err != nil {
		return candidate{}, false, errors.Wrapf(err, "extensions of %q", pd.Properties().Name)
	}
	if !contains(extensions, SwapchainExtension) {
		return candidate{}, false, nil
	}

	graphics, present, ok, err := queueFamilies(pd, surface)
	if err != nil || !ok {
		return candidate{}, false, err
	}
	return candidate{device: pd, graphicsFamily: graphics, presentFamily: present}, true, nil
}

// queueFamilies prefers one family doing both graphics and present, and
// falls back to the first of each.
func queueFamilies(pd gfx.PhysicalDevice, surface gfx.Surface) (graphics, present uint32, ok bool, err error) {
	var graphicsFound, presentFound bool
	for _, f := range pd.QueueFamilies() {
		supportsPresent, err := pd.SupportsPresent(f.Index, surface)
		if err != nil {
			return 0, 0, false, errors.Wrapf(err, "present support of %q", pd.Properties().Name)
		}
		if f.Graphics && supportsPresent {
			return f.Index, f.Index, true, nil
		}
		if f.Graphics && !graphicsFound {
			graphics, graphicsFound = f.Index, true
		}
		if supportsPresent && !presentFound {
			present, presentFound = f.Index, true
		}
	}
	return graphics, present, graphicsFound && presentFound, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
