// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"github.com/devblok/kanvas/canvas"
	"github.com/devblok/kanvas/coords"
	"github.com/devblok/kanvas/device"
	"github.com/devblok/kanvas/gfx"
	"github.com/devblok/kanvas/swapchain"
	"github.com/devblok/kanvas/window"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// frameSync is the set of per-slot objects one frame in flight uses.
type frameSync struct {
	imageAvailable gfx.Semaphore
	renderFinished gfx.Semaphore
	inFlight       gfx.Fence
	cmd            gfx.CommandBuffer
}

func (fs *frameSync) release() {
	for _, r := range []gfx.Releasable{fs.imageAvailable, fs.renderFinished, fs.inFlight, fs.cmd} {
		if r != nil {
			r.Release()
		}
	}
}

// Renderer runs the frame loop on the thread that owns the window.
type Renderer struct {
	ctx        *device.Context
	dev        gfx.Device
	win        window.Window
	swapchains *swapchain.Manager
	bridge     *canvas.Bridge
	cfg        RendererConfiguration

	sync           []frameSync
	imagesInFlight []gfx.Fence
	slot           int

	state State
	time  *TimeState

	onFatal  func(error)
	fatal    error
	observer FrameObserver

	log log.FieldLogger
}

// NewRenderer creates the per-slot synchronization objects. The first
// swapchain is built by the first Frame.
func NewRenderer(ctx *device.Context, win window.Window, swapchains *swapchain.Manager, bridge *canvas.Bridge, cfg RendererConfiguration, logger log.FieldLogger) (*Renderer, error) {
	if logger == nil {
		logger = ctx.Logger()
	}
	cfg = cfg.withDefaults()

	surfaceFormat, err := swapchains.CheckSupport()
	if err != nil {
		return nil, err
	}
	if !bridge.Supports(surfaceFormat.Format) {
		return nil, errors.Wrapf(canvas.ErrUnsupportedFormat, "surface format %v", surfaceFormat.Format)
	}

	r := &Renderer{
		ctx:        ctx,
		dev:        ctx.Device(),
		win:        win,
		swapchains: swapchains,
		bridge:     bridge,
		cfg:        cfg,
		state:      StateAwaitingRebuild,
		time:       NewTimeState(nil),
		log:        logger.WithField("component", "renderer"),
	}

	for idx := 0; idx < cfg.SyncSlots; idx++ {
		fs, err := r.newFrameSync()
		if err != nil {
			r.releaseSync()
			return nil, errors.Wrapf(err, "create sync slot %d", idx)
		}
		r.sync = append(r.sync, fs)
	}

	return r, nil
}

func (r *Renderer) newFrameSync() (fs frameSync, err error) {
	defer func() {
		if err != nil {
			fs.release()
		}
	}()
	if fs.imageAvailable, err = r.dev.CreateSemaphore(); err != nil {
		return
	}
	if fs.renderFinished, err = r.dev.CreateSemaphore(); err != nil {
		return
	}
	if fs.inFlight, err = r.dev.CreateFence(true); err != nil {
		return
	}
	fs.cmd, err = r.dev.CreateCommandBuffer()
	return
}

// OnFatal registers fn to be called once when the renderer stops.
func (r *Renderer) OnFatal(fn func(error)) {
	r.onFatal = fn
}

// Observe registers fn to receive every drawn frame.
func (r *Renderer) Observe(fn FrameObserver) {
	r.observer = fn
}

// State returns the frame loop state.
func (r *Renderer) State() State {
	return r.state
}

// Timing returns the timing of the last drawn frame.
func (r *Renderer) Timing() FrameTiming {
	return r.time.Timing()
}

// Frame renders one frame with draw. Transient presentation problems are
// handled internally and return nil; a frame may then be skipped. Any other
// failure stops the renderer and is returned as a *FatalError; later calls
// return ErrStopped.
func (r *Renderer) Frame(draw DrawFunc) error {
	if r.state == StateFatal {
		return ErrStopped
	}

	w, h := r.win.PhysicalSize()
	ratio := r.win.ScaleFactor()
	extent := gfx.Extent2D{Width: clampSize(w), Height: clampSize(h)}

	current := r.swapchains.Current()
	if r.state == StateAwaitingRebuild || current == nil || current.WindowExtent != extent {
		if err := r.rebuild(extent); err != nil {
			return r.fail(err)
		}
		if r.state == StateAwaitingRebuild {
			return nil
		}
	}

	return r.fail(r.frame(draw, extent, ratio))
}

func (r *Renderer) frame(draw DrawFunc, extent gfx.Extent2D, ratio float64) error {
	sc := r.swapchains.Current()
	fs := &r.sync[r.slot]

	r.state = StateAcquiring
	if err := r.dev.WaitForFences([]gfx.Fence{fs.inFlight}, r.cfg.FenceTimeout); err != nil {
		return r.waitError(err, "wait for frame slot")
	}

	index, err := r.dev.AcquireNextImage(sc.Handle(), r.cfg.FenceTimeout, fs.imageAvailable)
	suboptimal := false
	switch {
	case errors.Is(err, gfx.ErrOutOfDate):
		r.log.Warn("swapchain out of date on acquire")
		return r.rebuild(extent)
	case errors.Is(err, gfx.ErrSuboptimal):
		suboptimal = true
	case err != nil:
		return r.waitError(err, "acquire image")
	}

	if int(index) < len(r.imagesInFlight) {
		if owner := r.imagesInFlight[index]; owner != nil && owner != fs.inFlight {
			if err := r.dev.WaitForFences([]gfx.Fence{owner}, r.cfg.FenceTimeout); err != nil {
				return r.waitError(err, "wait for image owner")
			}
		}
		r.imagesInFlight[index] = fs.inFlight
	}
	if err := r.dev.ResetFences([]gfx.Fence{fs.inFlight}); err != nil {
		return errors.Wrap(err, "reset frame fence")
	}

	r.state = StateDrawing
	surface, err := r.bridge.Bind(sc, index)
	if err != nil {
		return err
	}
	c := surface.Canvas()
	size := sc.Extent()
	c.SetTransform(coords.Transform(int(size.Width), int(size.Height), ratio, r.cfg.Coordinates))

	timing := r.time.Update()
	draw(c, timing)

	if err := r.record(fs.cmd); err != nil {
		return err
	}
	if r.observer != nil {
		if snap, ok := surface.(canvas.Snapshotter); ok {
			r.observer(snap.Snapshot(), timing)
		}
	}

	r.state = StateSubmitting
	if r.bridge.Pending() {
		panic("kanvas: submitting a frame whose surface was not flushed")
	}
	if err := r.dev.Submit(gfx.SubmitInfo{
		Wait:     fs.imageAvailable,
		Signal:   fs.renderFinished,
		Commands: fs.cmd,
		Fence:    fs.inFlight,
	}); err != nil {
		return errors.Wrap(err, "submit frame")
	}

	r.state = StatePresenting
	err = r.dev.Present(gfx.PresentInfo{
		Wait:       fs.renderFinished,
		Swapchain:  sc.Handle(),
		ImageIndex: index,
	})
	r.slot = (r.slot + 1) % len(r.sync)

	switch {
	case errors.Is(err, gfx.ErrOutOfDate), errors.Is(err, gfx.ErrSuboptimal):
		r.log.WithError(err).Warn("swapchain stale on present")
		return r.rebuild(extent)
	case err != nil:
		return errors.Wrap(err, "present frame")
	case suboptimal:
		r.log.Warn("swapchain suboptimal on acquire")
		return r.rebuild(extent)
	}

	r.state = StateIdle
	r.log.WithField("frame", timing.FrameCount).Debug("frame presented")
	return nil
}

func (r *Renderer) record(cmd gfx.CommandBuffer) error {
	if err := cmd.Reset(); err != nil {
		return errors.Wrap(err, "reset command buffer")
	}
	if err := cmd.Begin(); err != nil {
		return errors.Wrap(err, "begin command buffer")
	}
	if err := r.bridge.Flush(cmd, r.slot); err != nil {
		return err
	}
	return errors.Wrap(cmd.End(), "end command buffer")
}

// rebuild replaces the swapchain. A zero-area window leaves the renderer
// awaiting the next attempt.
func (r *Renderer) rebuild(extent gfx.Extent2D) error {
	r.state = StateAwaitingRebuild

	sc, err := r.swapchains.Rebuild(extent)
	if err != nil {
		if errors.Is(err, swapchain.ErrZeroExtent) {
			r.log.Debug("window has no area, rebuild postponed")
			return nil
		}
		return err
	}

	if err := r.swapchains.ReleaseRetired(r.waitAllFences); err != nil {
		return err
	}
	r.imagesInFlight = make([]gfx.Fence, sc.ImageCount())
	r.state = StateIdle
	return nil
}

func (r *Renderer) waitAllFences() error {
	fences := make([]gfx.Fence, 0, len(r.sync))
	for _, fs := range r.sync {
		fences = append(fences, fs.inFlight)
	}
	if err := r.dev.WaitForFences(fences, r.cfg.FenceTimeout); err != nil {
		return r.waitError(err, "wait for all frame slots")
	}
	return nil
}

func (r *Renderer) waitError(err error, what string) error {
	if errors.Is(err, gfx.ErrTimeout) {
		return errors.Wrapf(ErrDeviceUnresponsive, "%s: no signal within %s", what, r.cfg.FenceTimeout)
	}
	return errors.Wrap(err, what)
}

// fail stops the renderer on any error that is not transient.
func (r *Renderer) fail(err error) error {
	if err == nil {
		return nil
	}
	kind := KindOf(err)
	if kind == KindTransientPresentation {
		r.log.WithError(err).Warn("transient presentation error")
		r.state = StateAwaitingRebuild
		return nil
	}

	fe := &FatalError{Kind: kind, Err: err}
	r.state = StateFatal
	r.fatal = fe
	r.log.WithError(err).WithField("kind", kind).Error("renderer stopped")
	if r.onFatal != nil {
		r.onFatal(fe)
	}
	return fe
}

// Err returns the error that stopped the renderer, if any.
func (r *Renderer) Err() error {
	return r.fatal
}

// Destroy waits for the device to go idle and releases the frame slots,
// the bridge surface and the swapchains in that order. The device context
// is left to its owner.
func (r *Renderer) Destroy() {
	if err := r.dev.WaitIdle(); err != nil {
		r.log.WithError(err).Warn("wait idle before destroy")
	}
	r.releaseSync()
	r.bridge.Release()
	r.swapchains.Close()
}

func (r *Renderer) releaseSync() {
	for idx := range r.sync {
		r.sync[idx].release()
	}
	r.sync = nil
}

func clampSize(v int) uint32 {
	if v < 0 {
		return 0
	}
	return uint32(v)
}
