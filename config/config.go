// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package config builds a core.Configuration from the environment. Every
// key has a packaged default, so an empty environment yields a working
// configuration.
package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/devblok/kanvas/coords"
	"github.com/devblok/kanvas/core"
	"github.com/devblok/kanvas/gfx"
	"github.com/gobuffalo/envy"
	"github.com/gobuffalo/packr"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Environment keys
const (
	KeyValidation     = "KANVAS_VALIDATION"
	KeyDeviceTypes    = "KANVAS_DEVICE_TYPES"
	KeyPresentModes   = "KANVAS_PRESENT_MODES"
	KeyMinImages      = "KANVAS_MIN_IMAGES"
	KeySyncSlots      = "KANVAS_SYNC_SLOTS"
	KeyFenceTimeout   = "KANVAS_FENCE_TIMEOUT"
	KeyCoordinates    = "KANVAS_COORDINATES"
	KeyFps            = "KANVAS_FPS"
	KeyEventPollDelay = "KANVAS_EVENT_POLL_DELAY"
	KeyWindowTitle    = "KANVAS_WINDOW_TITLE"
	KeyWindowWidth    = "KANVAS_WINDOW_WIDTH"
	KeyWindowHeight   = "KANVAS_WINDOW_HEIGHT"
	KeyCapture        = "KANVAS_CAPTURE"
)

const defaultsFile = "kanvas.env"

var defaultsBox = packr.NewBox("./defaults")

// Defaults returns the packaged default values by key.
func Defaults() (map[string]string, error) {
	s, err := defaultsBox.FindString(defaultsFile)
	if err != nil {
		return nil, errors.Wrapf(err, "find %s", defaultsFile)
	}
	values, err := godotenv.Unmarshal(s)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", defaultsFile)
	}
	return values, nil
}

// Load reads the environment through envy, which overlays a .env file in
// the working directory on the process environment. files are loaded on top
// of that. Keys missing from both fall back to Defaults.
func Load(files ...string) (core.Configuration, error) {
	if len(files) > 0 {
		if err := envy.Load(files...); err != nil {
			return core.Configuration{}, errors.Wrap(err, "envy.Load()")
		}
	}

	defaults, err := Defaults()
	if err != nil {
		return core.Configuration{}, err
	}

	return Parse(func(key string) string {
		return envy.Get(key, defaults[key])
	})
}

// Parse builds a configuration from the values get returns. An empty value
// leaves the field at its zero value, which the consumers replace with their
// own defaults.
func Parse(get func(key string) string) (core.Configuration, error) {
	p := parser{get: get}

	var cfg core.Configuration
	cfg.Device.Validation = p.bool(KeyValidation)
	cfg.Device.DeviceTypePriority = p.deviceTypes(KeyDeviceTypes)
	cfg.Swapchain.PresentModePriority = p.presentModes(KeyPresentModes)
	cfg.Swapchain.MinImageCount = uint32(p.uint(KeyMinImages))
	cfg.Renderer.SyncSlots = p.uint(KeySyncSlots)
	cfg.Renderer.FenceTimeout = p.duration(KeyFenceTimeout)
	cfg.Renderer.Coordinates = p.coordinates(KeyCoordinates)
	cfg.Time.FramesPerSecond = p.uint(KeyFps)
	cfg.Time.EventPollDelay = p.uint(KeyEventPollDelay)
	cfg.Window.Title = p.string(KeyWindowTitle)
	cfg.Window.Width = p.uint(KeyWindowWidth)
	cfg.Window.Height = p.uint(KeyWindowHeight)
	cfg.Capture.Path = p.string(KeyCapture)
	cfg.Device.ApplicationName = cfg.Window.Title

	if p.err != nil {
		return core.Configuration{}, p.err
	}
	return cfg, nil
}

// parser keeps the first error and turns later reads into no-ops.
type parser struct {
	get func(string) string
	err error
}

func (p *parser) value(key string) (string, bool) {
	if p.err != nil {
		return "", false
	}
	v := strings.TrimSpace(p.get(key))
	return v, v != ""
}

func (p *parser) fail(key, value string, err error) {
	p.err = errors.Wrapf(err, "%s=%q", key, value)
}

func (p *parser) string(key string) string {
	v, _ := p.value(key)
	return v
}

func (p *parser) bool(key string) bool {
	v, ok := p.value(key)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
	}
	return b
}

func (p *parser) uint(key string) int {
	v, ok := p.value(key)
	if !ok {
		return 0
	}
	n, err := strconv.ParseUint(v, 10, 31)
	if err != nil {
		p.fail(key, v, err)
		return 0
	}
	return int(n)
}

func (p *parser) duration(key string) time.Duration {
	v, ok := p.value(key)
	if !ok {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return 0
	}
	if d < 0 {
		p.fail(key, v, errors.New("negative duration"))
		return 0
	}
	return d
}

func (p *parser) coordinates(key string) coords.System {
	v, ok := p.value(key)
	if !ok {
		return coords.Logical()
	}
	sys, err := coords.Parse(v)
	if err != nil {
		p.fail(key, v, err)
	}
	return sys
}

func (p *parser) deviceTypes(key string) []gfx.DeviceType {
	v, ok := p.value(key)
	if !ok {
		return nil
	}
	var types []gfx.DeviceType
	for _, item := range splitList(v) {
		t, err := gfx.ParseDeviceType(item)
		if err != nil {
			p.fail(key, v, err)
			return nil
		}
		types = append(types, t)
	}
	return types
}

func (p *parser) presentModes(key string) []gfx.PresentMode {
	v, ok := p.value(key)
	if !ok {
		return nil
	}
	var modes []gfx.PresentMode
	for _, item := range splitList(v) {
		m, err := gfx.ParsePresentMode(item)
		if err != nil {
			p.fail(key, v, err)
			return nil
		}
		modes = append(modes, m)
	}
	return modes
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
