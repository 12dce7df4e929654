// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/devblok/kanvas/config"
	"github.com/devblok/kanvas/coords"
	"github.com/devblok/kanvas/gfx"
	"github.com/gobuffalo/envy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookup(values map[string]string) func(string) string {
	return func(key string) string {
		return values[key]
	}
}

func TestDefaults(t *testing.T) {
	defaults, err := config.Defaults()
	require.NoError(t, err)

	cfg, err := config.Parse(lookup(defaults))
	require.NoError(t, err)

	assert.False(t, cfg.Device.Validation)
	assert.Equal(t, []gfx.DeviceType{
		gfx.DeviceTypeDiscreteGPU,
		gfx.DeviceTypeIntegratedGPU,
		gfx.DeviceTypeVirtualGPU,
		gfx.DeviceTypeCPU,
		gfx.DeviceTypeOther,
	}, cfg.Device.DeviceTypePriority)
	assert.Equal(t, []gfx.PresentMode{gfx.PresentModeMailbox, gfx.PresentModeFifo}, cfg.Swapchain.PresentModePriority)
	assert.Equal(t, uint32(3), cfg.Swapchain.MinImageCount)
	assert.Equal(t, 2, cfg.Renderer.SyncSlots)
	assert.Equal(t, 2*time.Second, cfg.Renderer.FenceTimeout)
	assert.Equal(t, coords.Logical(), cfg.Renderer.Coordinates)
	assert.Equal(t, 60, cfg.Time.FramesPerSecond)
	assert.Equal(t, 5, cfg.Time.EventPollDelay)
	assert.Equal(t, "Kanvas", cfg.Window.Title)
	assert.Equal(t, "Kanvas", cfg.Device.ApplicationName)
	assert.Equal(t, 800, cfg.Window.Width)
	assert.Equal(t, 600, cfg.Window.Height)
	assert.Empty(t, cfg.Capture.Path)
}

func TestParseEmpty(t *testing.T) {
	cfg, err := config.Parse(lookup(nil))
	require.NoError(t, err)

	assert.Nil(t, cfg.Device.DeviceTypePriority)
	assert.Nil(t, cfg.Swapchain.PresentModePriority)
	assert.Zero(t, cfg.Renderer.FenceTimeout)
	assert.Equal(t, coords.Logical(), cfg.Renderer.Coordinates)
}

func TestParseValues(t *testing.T) {
	cfg, err := config.Parse(lookup(map[string]string{
		config.KeyValidation:   "true",
		config.KeyDeviceTypes:  " integrated , cpu ",
		config.KeyPresentModes: "fifo_relaxed,immediate",
		config.KeyCoordinates:  "visible:0,0,320,-240",
		config.KeyFenceTimeout: "150ms",
		config.KeyCapture:      "frames.kcap",
	}))
	require.NoError(t, err)

	assert.True(t, cfg.Device.Validation)
	assert.Equal(t, []gfx.DeviceType{gfx.DeviceTypeIntegratedGPU, gfx.DeviceTypeCPU}, cfg.Device.DeviceTypePriority)
	assert.Equal(t, []gfx.PresentMode{gfx.PresentModeFifoRelaxed, gfx.PresentModeImmediate}, cfg.Swapchain.PresentModePriority)
	assert.Equal(t, coords.VisibleRange(coords.Rect{Right: 320, Bottom: -240}), cfg.Renderer.Coordinates)
	assert.Equal(t, 150*time.Millisecond, cfg.Renderer.FenceTimeout)
	assert.Equal(t, "frames.kcap", cfg.Capture.Path)
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		config.KeyValidation:   "maybe",
		config.KeyDeviceTypes:  "discrete,quantum",
		config.KeyPresentModes: "vsync",
		config.KeyMinImages:    "-1",
		config.KeySyncSlots:    "two",
		config.KeyFenceTimeout: "-1s",
		config.KeyCoordinates:  "visible:1,2",
		config.KeyFps:          "1e3",
		config.KeyWindowWidth:  "wide",
	}
	for key, value := range cases {
		_, err := config.Parse(lookup(map[string]string{key: value}))
		if assert.Error(t, err, key) {
			assert.Contains(t, err.Error(), key)
		}
	}
}

func TestLoadPrefersEnvironment(t *testing.T) {
	envy.Temp(func() {
		envy.Set(config.KeyWindowTitle, "From env")
		envy.Set(config.KeySyncSlots, "3")

		cfg, err := config.Load()
		require.NoError(t, err)

		assert.Equal(t, "From env", cfg.Window.Title)
		assert.Equal(t, 3, cfg.Renderer.SyncSlots)
		assert.Equal(t, 800, cfg.Window.Width)
	})
}

func TestLoadFile(t *testing.T) {
	t.Cleanup(envy.Reload)
	t.Setenv(config.KeyCapture, "")

	file := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(file, []byte(config.KeyCapture+"=out.kcap\n"), 0o600))

	cfg, err := config.Load(file)
	require.NoError(t, err)
	assert.Equal(t, "out.kcap", cfg.Capture.Path)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}
