// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"time"
)

// NewTime creates a new time service
func NewTime(cfg TimeConfiguration) Time {
	var interval time.Duration
	if cfg.FramesPerSecond <= 0 {
		interval = time.Nanosecond
	} else {
		interval = time.Second / time.Duration(cfg.FramesPerSecond)
	}

	delay := cfg.EventPollDelay
	if delay <= 0 {
		delay = 1
	}

	return Time{
		fps:            cfg.FramesPerSecond,
		fpsTicker:      time.NewTicker(interval),
		eventPollDelay: delay,
		eventTicker:    time.NewTicker(time.Duration(delay) * time.Millisecond),
	}
}

// Time contains all the time services and tickers
type Time struct {
	fps       int
	fpsTicker *time.Ticker

	eventPollDelay int
	eventTicker    *time.Ticker
}

// Fps gets the set frames per second
func (t *Time) Fps() int {
	return t.fps
}

// FpsTicker gets the initialized fps ticker
func (t *Time) FpsTicker() *time.Ticker {
	return t.fpsTicker
}

// EventTicker gets the initialized event ticker for the event loop
func (t *Time) EventTicker() *time.Ticker {
	return t.eventTicker
}

// Stop stops both tickers.
func (t *Time) Stop() {
	t.fpsTicker.Stop()
	t.eventTicker.Stop()
}

// fpsSmoothing weighs the previous smoothed rate against the newest one.
const fpsSmoothing = 0.95

// FrameTiming is the clock state handed to a draw callback.
type FrameTiming struct {
	AppStart time.Time

	// FrameStart is when the current frame began.
	FrameStart time.Time

	TotalTime       time.Duration
	PreviousFrameDt time.Duration

	Fps         float64
	FpsSmoothed float64
	FrameCount  uint64
}

// TimeState advances FrameTiming once per frame.
type TimeState struct {
	now    func() time.Time
	timing FrameTiming
}

// NewTimeState starts the clock. A nil now uses time.Now.
func NewTimeState(now func() time.Time) *TimeState {
	if now == nil {
		now = time.Now
	}
	start := now()
	return &TimeState{
		now: now,
		timing: FrameTiming{
			AppStart:   start,
			FrameStart: start,
		},
	}
}

// Update marks the start of a frame and returns the new timing.
func (ts *TimeState) Update() FrameTiming {
	now := ts.now()
	elapsed := now.Sub(ts.timing.FrameStart)
	if elapsed < 0 {
		elapsed = 0
	}

	t := &ts.timing
	t.FrameStart = now
	t.TotalTime += elapsed
	t.PreviousFrameDt = elapsed

	t.Fps = 0
	if dt := elapsed.Seconds(); dt > 0 {
		t.Fps = 1 / dt
	}
	t.FpsSmoothed = t.FpsSmoothed*fpsSmoothing + t.Fps*(1-fpsSmoothing)
	t.FrameCount++

	return *t
}

// Timing returns the timing of the last Update.
func (ts *TimeState) Timing() FrameTiming {
	return ts.timing
}
