// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"image"
	"testing"
	"time"

	"github.com/devblok/kanvas/canvas"
	"github.com/devblok/kanvas/canvas/raster"
	"github.com/devblok/kanvas/coords"
	"github.com/devblok/kanvas/core"
	"github.com/devblok/kanvas/device"
	"github.com/devblok/kanvas/gfx"
	"github.com/devblok/kanvas/gfx/gfxtest"
	"github.com/devblok/kanvas/swapchain"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	dev      *gfxtest.Device
	win      *gfxtest.Window
	renderer *core.Renderer
	fatals   []error
}

func newRenderer(t *testing.T, dev *gfxtest.Device, win *gfxtest.Window, cfg core.RendererConfiguration) (*core.Renderer, error) {
	t.Helper()
	logger, _ := test.NewNullLogger()

	api := &gfxtest.API{
		Devices: []*gfxtest.PhysicalDevice{gfxtest.NewPhysicalDevice("gpu", gfx.DeviceTypeDiscreteGPU)},
		Device:  dev,
	}
	ctx, err := device.New(api, win, device.Configuration{}, logger)
	require.NoError(t, err)
	t.Cleanup(ctx.Destroy)

	manager := swapchain.NewManager(ctx, swapchain.Configuration{}, logger)
	bridge := canvas.NewBridge(raster.New(ctx.Device(), logger), logger)
	if cfg.FenceTimeout == 0 {
		cfg.FenceTimeout = time.Millisecond
	}
	return core.NewRenderer(ctx, win, manager, bridge, cfg, logger)
}

func newHarness(t *testing.T, w, h int, cfg core.RendererConfiguration) *harness {
	t.Helper()
	dev := gfxtest.NewDevice()
	win := &gfxtest.Window{Width: w, Height: h}
	r, err := newRenderer(t, dev, win, cfg)
	require.NoError(t, err)

	hs := &harness{dev: dev, win: win, renderer: r}
	r.OnFatal(func(err error) {
		hs.fatals = append(hs.fatals, err)
	})
	t.Cleanup(r.Destroy)
	return hs
}

func noop(canvas.Canvas, core.FrameTiming) {}

func TestFramesPresent(t *testing.T) {
	hs := newHarness(t, 64, 48, core.RendererConfiguration{})

	draws := 0
	for idx := 0; idx < 3; idx++ {
		require.NoError(t, hs.renderer.Frame(func(c canvas.Canvas, ft core.FrameTiming) {
			draws++
			w, h := c.Size()
			assert.Equal(t, 64, w)
			assert.Equal(t, 48, h)
			assert.Equal(t, uint64(draws), ft.FrameCount)
		}))
		assert.Equal(t, core.StateIdle, hs.renderer.State())
	}

	assert.Equal(t, 3, draws)
	assert.Equal(t, 3, hs.dev.Submits)
	assert.Equal(t, 3, hs.dev.Presents)
	assert.Len(t, hs.dev.Swapchains, 1)

	require.Len(t, hs.dev.Commands, core.DefaultSyncSlots)
	ops := hs.dev.Commands[0].Ops
	require.Len(t, ops, 5)
	assert.Equal(t, "begin", ops[0])
	assert.Contains(t, ops[2], "copy:")
	assert.Equal(t, "end", ops[4])
}

func TestOutOfDateOnAcquireSkipsOneFrame(t *testing.T) {
	hs := newHarness(t, 64, 48, core.RendererConfiguration{})
	hs.dev.OnAcquire = func(n int) error {
		if n == 3 {
			return gfx.ErrOutOfDate
		}
		return nil
	}

	var drawn []int
	for frame := 1; frame <= 10; frame++ {
		frame := frame
		require.NoError(t, hs.renderer.Frame(func(canvas.Canvas, core.FrameTiming) {
			drawn = append(drawn, frame)
		}))
	}

	assert.Equal(t, []int{1, 2, 4, 5, 6, 7, 8, 9, 10}, drawn)
	require.Len(t, hs.dev.Swapchains, 2, "exactly one rebuild")
	assert.Same(t, hs.dev.Swapchains[0], hs.dev.Swapchains[1].Old)
	assert.True(t, hs.dev.Swapchains[0].Released)
	assert.Empty(t, hs.fatals)
	assert.Equal(t, core.StateIdle, hs.renderer.State())
}

func TestMinimizedWindowSkipsFrames(t *testing.T) {
	hs := newHarness(t, 0, 0, core.RendererConfiguration{})

	draws := 0
	count := func(canvas.Canvas, core.FrameTiming) { draws++ }
	for idx := 0; idx < 5; idx++ {
		require.NoError(t, hs.renderer.Frame(count))
	}

	assert.Zero(t, draws)
	assert.Zero(t, hs.dev.Acquires)
	assert.Empty(t, hs.fatals)
	assert.Equal(t, core.StateAwaitingRebuild, hs.renderer.State())

	hs.win.Width, hs.win.Height = 32, 32
	require.NoError(t, hs.renderer.Frame(count))
	assert.Equal(t, 1, draws)
	assert.Equal(t, core.StateIdle, hs.renderer.State())
}

func TestMinimizeAfterRunning(t *testing.T) {
	hs := newHarness(t, 32, 32, core.RendererConfiguration{})

	require.NoError(t, hs.renderer.Frame(noop))
	hs.win.Width, hs.win.Height = 0, 0
	require.NoError(t, hs.renderer.Frame(noop))
	require.NoError(t, hs.renderer.Frame(noop))

	assert.Equal(t, 1, hs.dev.Acquires)
	assert.Equal(t, core.StateAwaitingRebuild, hs.renderer.State())
	assert.Len(t, hs.dev.Swapchains, 1)
}

func TestDeviceLostOnSubmitIsFatal(t *testing.T) {
	hs := newHarness(t, 32, 32, core.RendererConfiguration{})
	hs.dev.OnSubmit = func(n int) error {
		if n == 2 {
			return errors.Wrap(gfx.ErrDeviceLost, "vk.QueueSubmit()")
		}
		return nil
	}

	require.NoError(t, hs.renderer.Frame(noop))

	err := hs.renderer.Frame(noop)
	require.Error(t, err)
	var fe *core.FatalError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, core.KindDeviceLost, fe.Kind)
	assert.True(t, errors.Is(err, gfx.ErrDeviceLost))
	assert.Equal(t, core.StateFatal, hs.renderer.State())

	acquires := hs.dev.Acquires
	for idx := 0; idx < 3; idx++ {
		assert.Equal(t, core.ErrStopped, hs.renderer.Frame(noop))
	}
	assert.Equal(t, acquires, hs.dev.Acquires, "no acquire after fatal")
	require.Len(t, hs.fatals, 1)
	assert.Equal(t, err, hs.fatals[0])
	assert.Equal(t, err, hs.renderer.Err())
}

func TestDeviceLostOnPresentIsFatal(t *testing.T) {
	hs := newHarness(t, 32, 32, core.RendererConfiguration{})
	hs.dev.OnPresent = func(int) error { return gfx.ErrDeviceLost }

	err := hs.renderer.Frame(noop)
	assert.Equal(t, core.KindDeviceLost, core.KindOf(err))
	assert.Len(t, hs.fatals, 1)
}

func TestFenceTimeoutIsFatal(t *testing.T) {
	hs := newHarness(t, 32, 32, core.RendererConfiguration{SyncSlots: 2})
	hs.dev.Hold = true

	require.NoError(t, hs.renderer.Frame(noop))
	require.NoError(t, hs.renderer.Frame(noop))

	err := hs.renderer.Frame(noop)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrDeviceUnresponsive))
	assert.Equal(t, core.KindDeviceUnresponsive, core.KindOf(err))
	assert.Equal(t, 2, hs.dev.Acquires, "no acquire past a stuck fence")
	assert.Len(t, hs.fatals, 1)
}

func TestCompletedWorkFreesSlots(t *testing.T) {
	hs := newHarness(t, 32, 32, core.RendererConfiguration{SyncSlots: 2})
	hs.dev.Hold = true

	require.NoError(t, hs.renderer.Frame(noop))
	require.NoError(t, hs.renderer.Frame(noop))
	hs.dev.Complete()
	require.NoError(t, hs.renderer.Frame(noop))
	require.NoError(t, hs.renderer.Frame(noop))

	assert.Equal(t, 4, hs.dev.Submits)
	assert.Empty(t, hs.fatals)
}

func TestResizeRebuilds(t *testing.T) {
	hs := newHarness(t, 100, 100, core.RendererConfiguration{})

	var sizes [][2]int
	record := func(c canvas.Canvas, _ core.FrameTiming) {
		w, h := c.Size()
		sizes = append(sizes, [2]int{w, h})
	}

	require.NoError(t, hs.renderer.Frame(record))
	hs.win.Width, hs.win.Height = 200, 150
	require.NoError(t, hs.renderer.Frame(record))
	require.NoError(t, hs.renderer.Frame(record))

	assert.Equal(t, [][2]int{{100, 100}, {200, 150}, {200, 150}}, sizes)
	require.Len(t, hs.dev.Swapchains, 2)
	assert.True(t, hs.dev.Swapchains[0].Released)
	assert.False(t, hs.dev.Swapchains[1].Released)
}

func TestSuboptimalAcquireDrawsThenRebuilds(t *testing.T) {
	hs := newHarness(t, 32, 32, core.RendererConfiguration{})
	hs.dev.OnAcquire = func(n int) error {
		if n == 1 {
			return gfx.ErrSuboptimal
		}
		return nil
	}

	draws := 0
	require.NoError(t, hs.renderer.Frame(func(canvas.Canvas, core.FrameTiming) { draws++ }))
	assert.Equal(t, 1, draws)
	assert.Equal(t, 1, hs.dev.Presents)
	assert.Len(t, hs.dev.Swapchains, 2)
	assert.Equal(t, core.StateIdle, hs.renderer.State())
}

func TestStalePresentRebuilds(t *testing.T) {
	for _, stale := range []error{gfx.ErrOutOfDate, gfx.ErrSuboptimal} {
		hs := newHarness(t, 32, 32, core.RendererConfiguration{})
		hs.dev.OnPresent = func(n int) error {
			if n == 1 {
				return stale
			}
			return nil
		}

		require.NoError(t, hs.renderer.Frame(noop))
		require.NoError(t, hs.renderer.Frame(noop))
		assert.Len(t, hs.dev.Swapchains, 2, stale.Error())
		assert.Empty(t, hs.fatals)
	}
}

func TestUnsupportedUsageRejectedUpfront(t *testing.T) {
	dev := gfxtest.NewDevice()
	dev.Caps.Usage = gfx.ImageUsageColorAttachment

	r, err := newRenderer(t, dev, &gfxtest.Window{Width: 32, Height: 32}, core.RendererConfiguration{})
	assert.Nil(t, r)
	assert.True(t, errors.Is(err, swapchain.ErrUnsupportedUsage))
	assert.Equal(t, core.KindConfiguration, core.KindOf(err))
	assert.Empty(t, dev.Swapchains)
}

func TestUnsupportedFormatRejectedUpfront(t *testing.T) {
	dev := gfxtest.NewDevice()
	dev.Caps.Formats = []gfx.SurfaceFormat{{Format: gfx.Format(97), ColorSpace: gfx.ColorSpaceSRGBNonlinear}}

	r, err := newRenderer(t, dev, &gfxtest.Window{Width: 32, Height: 32}, core.RendererConfiguration{})
	assert.Nil(t, r)
	assert.True(t, errors.Is(err, canvas.ErrUnsupportedFormat))
	assert.Equal(t, core.KindConfiguration, core.KindOf(err))
}

func TestSurfaceChangesAfterStart(t *testing.T) {
	t.Run("usage", func(t *testing.T) {
		hs := newHarness(t, 32, 32, core.RendererConfiguration{})
		hs.dev.Caps.Usage = gfx.ImageUsageColorAttachment

		err := hs.renderer.Frame(noop)
		assert.Equal(t, core.KindConfiguration, core.KindOf(err))
		assert.Len(t, hs.fatals, 1)
	})

	t.Run("format", func(t *testing.T) {
		hs := newHarness(t, 32, 32, core.RendererConfiguration{})
		hs.dev.Caps.Formats = []gfx.SurfaceFormat{{Format: gfx.Format(97), ColorSpace: gfx.ColorSpaceSRGBNonlinear}}

		err := hs.renderer.Frame(noop)
		assert.True(t, errors.Is(err, canvas.ErrUnsupportedFormat))
		assert.Equal(t, core.KindConfiguration, core.KindOf(err))
		assert.Len(t, hs.fatals, 1)
		assert.Zero(t, hs.dev.Submits)
		assert.Empty(t, hs.dev.Uploads)
	})
}

func TestUploadMapFailureIsDeviceLost(t *testing.T) {
	hs := newHarness(t, 32, 32, core.RendererConfiguration{})
	hs.dev.OnUpload = func(n int) error {
		return errors.Wrap(gfx.ErrDeviceLost, "map upload memory")
	}

	err := hs.renderer.Frame(noop)
	assert.Equal(t, core.KindDeviceLost, core.KindOf(err))
	assert.Len(t, hs.fatals, 1)
	assert.Zero(t, hs.dev.Submits)
}

func TestCoordinateTransformApplied(t *testing.T) {
	hs := newHarness(t, 64, 64, core.RendererConfiguration{Coordinates: coords.Logical()})
	hs.win.Scale = 2

	require.NoError(t, hs.renderer.Frame(func(c canvas.Canvas, _ core.FrameTiming) {
		assert.Equal(t, mgl64.Scale2D(2, 2), c.Transform())
	}))

	hs = newHarness(t, 64, 32, core.RendererConfiguration{Coordinates: coords.Extents(32, 16)})
	require.NoError(t, hs.renderer.Frame(func(c canvas.Canvas, _ core.FrameTiming) {
		x, y := coords.Apply(c.Transform(), 32, 16)
		assert.InDelta(t, 64, x, 1e-9)
		assert.InDelta(t, 32, y, 1e-9)
	}))
}

func TestObserverSeesFrames(t *testing.T) {
	hs := newHarness(t, 8, 8, core.RendererConfiguration{})

	var seen []uint64
	hs.renderer.Observe(func(img *image.RGBA, ft core.FrameTiming) {
		assert.Equal(t, image.Rect(0, 0, 8, 8), img.Bounds())
		seen = append(seen, ft.FrameCount)
	})

	for idx := 0; idx < 3; idx++ {
		require.NoError(t, hs.renderer.Frame(noop))
	}
	assert.Equal(t, []uint64{1, 2, 3}, seen)
}

func TestDestroyReleasesResources(t *testing.T) {
	hs := newHarness(t, 16, 16, core.RendererConfiguration{})
	require.NoError(t, hs.renderer.Frame(noop))

	hs.renderer.Destroy()

	for _, f := range hs.dev.Fences {
		assert.True(t, f.Released)
	}
	for _, c := range hs.dev.Commands {
		assert.True(t, c.Released)
	}
	for _, u := range hs.dev.Uploads {
		assert.True(t, u.Released)
	}
	for _, sc := range hs.dev.Swapchains {
		assert.True(t, sc.Released)
	}
	for _, v := range hs.dev.Views {
		assert.True(t, v.Released)
	}
}
