// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package swapchain creates presentable image chains for a device context
// and rebuilds them when the surface changes.
package swapchain

import (
	"github.com/devblok/kanvas/device"
	"github.com/devblok/kanvas/gfx"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Errors reported by Create.
var (
	ErrZeroExtent       = errors.New("zero area extent")
	ErrUnsupportedUsage = errors.New("surface does not support transfer destination images")
)

// Configuration holds the user's swapchain preferences.
type Configuration struct {
	PresentModePriority []gfx.PresentMode
	MinImageCount       uint32
}

// SurfaceConfig is what a swapchain is created with, derived from the
// surface capabilities and the Configuration.
type SurfaceConfig struct {
	Format         gfx.SurfaceFormat
	PresentMode    gfx.PresentMode
	MinImageCount  uint32
	Extent         gfx.Extent2D
	CompositeAlpha gfx.CompositeAlpha
	PreTransform   gfx.SurfaceTransform
	Usage          gfx.ImageUsage
}

// Swapchain is a created swapchain with a view for each of its images.
type Swapchain struct {
	handle gfx.Swapchain

	Config SurfaceConfig

	// WindowExtent is the window size the swapchain was built for. It can
	// differ from Config.Extent when the surface dictates its own size.
	WindowExtent gfx.Extent2D

	Images     []gfx.Image
	Views      []gfx.ImageView
	Generation uint64
}

// Handle returns the backend swapchain.
func (s *Swapchain) Handle() gfx.Swapchain {
	return s.handle
}

// Extent returns the image extent.
func (s *Swapchain) Extent() gfx.Extent2D {
	return s.Config.Extent
}

// Format returns the image format.
func (s *Swapchain) Format() gfx.Format {
	return s.Config.Format.Format
}

// ImageCount returns the number of images the backend created.
func (s *Swapchain) ImageCount() int {
	return len(s.Images)
}

// Manager owns the current swapchain and the retired ones still awaiting
// release.
type Manager struct {
	ctx *device.Context
	cfg Configuration

	current    *Swapchain
	retired    []*Swapchain
	generation uint64

	log log.FieldLogger
}

// NewManager creates a Manager for the surface of ctx. No swapchain
// exists until the first Rebuild.
func NewManager(ctx *device.Context, cfg Configuration, logger log.FieldLogger) *Manager {
	if logger == nil {
		logger = ctx.Logger()
	}
	return &Manager{
		ctx: ctx,
		cfg: cfg,
		log: logger.WithField("component", "swapchain"),
	}
}

// Current returns the live swapchain, nil before the first Rebuild.
func (m *Manager) Current() *Swapchain {
	return m.current
}

// Generation returns the generation of the most recent swapchain.
func (m *Manager) Generation() uint64 {
	return m.generation
}

// Retired returns how many swapchains await ReleaseRetired.
func (m *Manager) Retired() int {
	return len(m.retired)
}

// CheckSupport queries the surface once and returns the format
// swapchains will be created with. It fails with ErrUnsupportedUsage when
// swapchain images cannot be copied into.
func (m *Manager) CheckSupport() (gfx.SurfaceFormat, error) {
	caps, err := m.surfaceCapabilities()
	if err != nil {
		return gfx.SurfaceFormat{}, err
	}
	return ChooseFormat(caps.Formats), nil
}

func (m *Manager) surfaceCapabilities() (gfx.SurfaceCapabilities, error) {
	caps, err := m.ctx.Device().SurfaceCapabilities()
	if err != nil {
		return gfx.SurfaceCapabilities{}, errors.Wrap(err, "query surface capabilities")
	}
	if caps.Usage&gfx.ImageUsageTransferDst == 0 {
		return gfx.SurfaceCapabilities{}, ErrUnsupportedUsage
	}
	return caps, nil
}

// Configure derives a SurfaceConfig for a window of the given size.
func (m *Manager) Configure(window gfx.Extent2D) (SurfaceConfig, error) {
	caps, err := m.surfaceCapabilities()
	if err != nil {
		return SurfaceConfig{}, err
	}

	extent := ChooseExtent(caps, window)
	if window.Empty() || extent.Empty() {
		return SurfaceConfig{}, ErrZeroExtent
	}

	return SurfaceConfig{
		Format:         ChooseFormat(caps.Formats),
		PresentMode:    ChoosePresentMode(m.cfg.PresentModePriority, caps.PresentModes),
		MinImageCount:  ChooseImageCount(m.cfg.MinImageCount, caps),
		Extent:         extent,
		CompositeAlpha: chooseCompositeAlpha(caps.CompositeAlpha),
		PreTransform:   choosePreTransform(caps.CurrentTransform),
		Usage:          gfx.ImageUsageTransferDst | caps.Usage&gfx.ImageUsageColorAttachment,
	}, nil
}

// Create creates a swapchain for a window of the given size. When old is
// not nil it is handed to the backend for reuse and must be destroyed by
// the caller once the device no longer uses it.
func (m *Manager) Create(window gfx.Extent2D, old *Swapchain) (*Swapchain, error) {
	sc, err := m.Configure(window)
	if err != nil {
		return nil, err
	}

	info := gfx.SwapchainInfo{
		Extent:         sc.Extent,
		Format:         sc.Format,
		PresentMode:    sc.PresentMode,
		MinImageCount:  sc.MinImageCount,
		CompositeAlpha: sc.CompositeAlpha,
		PreTransform:   sc.PreTransform,
		Usage:          sc.Usage,
	}
	if old != nil {
		info.Old = old.handle
	}

	dev := m.ctx.Device()
	handle, err := dev.CreateSwapchain(info)
	if err != nil {
		return nil, errors.Wrap(err, "create swapchain")
	}

	swapchain := &Swapchain{
		handle:       handle,
		Config:       sc,
		WindowExtent: window,
		Images:       handle.Images(),
	}
	for idx, img := range swapchain.Images {
		view, err := dev.CreateImageView(img, sc.Format.Format)
		if err != nil {
			m.Destroy(swapchain)
			return nil, errors.Wrapf(err, "create image view %d", idx)
		}
		swapchain.Views = append(swapchain.Views, view)
	}

	m.generation++
	swapchain.Generation = m.generation

	m.log.WithFields(log.Fields{
		"generation": swapchain.Generation,
		"width":      sc.Extent.Width,
		"height":     sc.Extent.Height,
		"format":     sc.Format.Format,
		"mode":       sc.PresentMode,
		"images":     len(swapchain.Images),
	}).Info("swapchain created")

	return swapchain, nil
}

// Rebuild replaces the current swapchain with one sized for window. The
// previous one is retired, not destroyed. On ErrZeroExtent the current
// swapchain stays as it is.
func (m *Manager) Rebuild(window gfx.Extent2D) (*Swapchain, error) {
	next, err := m.Create(window, m.current)
	if err != nil {
		if m.current != nil && !errors.Is(err, ErrZeroExtent) && !errors.Is(err, ErrUnsupportedUsage) {
			// The backend retires the old handle even when creation fails.
			m.retired = append(m.retired, m.current)
			m.current = nil
		}
		return nil, err
	}

	if m.current != nil {
		m.retired = append(m.retired, m.current)
	}
	m.current = next
	return next, nil
}

// ReleaseRetired destroys retired swapchains once confirm reports that the
// device no longer references them. Nothing is released if confirm fails.
func (m *Manager) ReleaseRetired(confirm func() error) error {
	if len(m.retired) == 0 {
		return nil
	}
	if err := confirm(); err != nil {
		return errors.Wrap(err, "confirm retired swapchains idle")
	}
	for _, sc := range m.retired {
		m.Destroy(sc)
	}
	m.retired = nil
	return nil
}

// Destroy releases the views of sc and then sc itself.
func (m *Manager) Destroy(sc *Swapchain) {
	if sc == nil {
		return
	}
	for _, view := range sc.Views {
		view.Release()
	}
	sc.Views = nil
	if sc.handle != nil {
		sc.handle.Release()
		sc.handle = nil
	}
	m.log.WithField("generation", sc.Generation).Debug("swapchain destroyed")
}

// Close destroys every swapchain. The device must be idle.
func (m *Manager) Close() {
	for _, sc := range m.retired {
		m.Destroy(sc)
	}
	m.retired = nil
	m.Destroy(m.current)
	m.current = nil
}
