// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"testing"
	"time"

	"github.com/devblok/kanvas/canvas"
	"github.com/devblok/kanvas/core"
	"github.com/devblok/kanvas/device"
	"github.com/devblok/kanvas/gfx"
	"github.com/devblok/kanvas/swapchain"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func TestTimeStateSmoothing(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	ts := core.NewTimeState(clock.Now)

	clock.Advance(10 * time.Millisecond)
	first := ts.Update()
	assert.Equal(t, uint64(1), first.FrameCount)
	assert.Equal(t, 10*time.Millisecond, first.PreviousFrameDt)
	assert.InDelta(t, 100, first.Fps, 1e-9)
	assert.InDelta(t, 5, first.FpsSmoothed, 1e-9)

	clock.Advance(10 * time.Millisecond)
	second := ts.Update()
	assert.InDelta(t, 9.75, second.FpsSmoothed, 1e-9)
	assert.Equal(t, 20*time.Millisecond, second.TotalTime)
	assert.Equal(t, time.Unix(1000, 0), second.AppStart)
	assert.Equal(t, second, ts.Timing())
}

func TestTimeStateZeroDelta(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	ts := core.NewTimeState(clock.Now)

	ft := ts.Update()
	assert.Zero(t, ft.Fps)
	assert.Zero(t, ft.FpsSmoothed)
	assert.Equal(t, uint64(1), ft.FrameCount)
}

func TestTimeTickers(t *testing.T) {
	tm := core.NewTime(core.TimeConfiguration{FramesPerSecond: 60, EventPollDelay: 5})
	defer tm.Stop()

	assert.Equal(t, 60, tm.Fps())
	assert.NotNil(t, tm.FpsTicker())
	assert.NotNil(t, tm.EventTicker())
}

func TestAppControl(t *testing.T) {
	var ac core.AppControl
	assert.False(t, ac.ShouldTerminate())
	ac.Terminate()
	assert.True(t, ac.ShouldTerminate())
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want core.Kind
	}{
		{nil, core.KindUnknown},
		{errors.New("boom"), core.KindUnknown},
		{device.ErrNoSuitableDevice, core.KindConfiguration},
		{errors.Wrap(device.ErrValidationLayerUnavailable, "create"), core.KindConfiguration},
		{swapchain.ErrUnsupportedUsage, core.KindConfiguration},
		{errors.Wrap(canvas.ErrUnsupportedFormat, "raster surface"), core.KindConfiguration},
		{gfx.ErrOutOfDate, core.KindTransientPresentation},
		{errors.Wrap(gfx.ErrSuboptimal, "vk.QueuePresent()"), core.KindTransientPresentation},
		{swapchain.ErrZeroExtent, core.KindTransientPresentation},
		{core.ErrDeviceUnresponsive, core.KindDeviceUnresponsive},
		{gfx.ErrTimeout, core.KindDeviceUnresponsive},
		{errors.Wrap(gfx.ErrDeviceLost, "vk.QueueSubmit()"), core.KindDeviceLost},
		{gfx.ErrSurfaceLost, core.KindDeviceLost},
		{&core.FatalError{Kind: core.KindDeviceLost, Err: gfx.ErrDeviceLost}, core.KindDeviceLost},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, core.KindOf(c.err), "%v", c.err)
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "awaiting rebuild", core.StateAwaitingRebuild.String())
	assert.Equal(t, "fatal", core.StateFatal.String())
	assert.Equal(t, "State(42)", core.State(42).String())
}
