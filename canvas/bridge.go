// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package canvas

import (
	"github.com/devblok/kanvas/gfx"
	"github.com/devblok/kanvas/swapchain"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Bridge errors.
var (
	ErrNotBound          = errors.New("no surface bound")
	ErrAlreadyFlushed    = errors.New("surface already flushed this frame")
	ErrUnsupportedFormat = errors.New("image format not supported by the canvas backend")
)

// Bridge owns the single live backend surface.
type Bridge struct {
	backend Backend

	surface    Surface
	generation uint64
	image      gfx.Image

	bound   bool
	flushed bool

	log log.FieldLogger
}

// NewBridge creates a Bridge that draws through backend.
func NewBridge(backend Backend, logger log.FieldLogger) *Bridge {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Bridge{
		backend: backend,
		log:     logger.WithField("component", "bridge"),
	}
}

// Supports reports whether the backend can draw into images of format.
func (b *Bridge) Supports(format gfx.Format) bool {
	return b.backend.Supports(format)
}

// Bind makes image index of sc the drawing target. The backend surface is
// recreated when sc belongs to a new generation and rebound otherwise.
func (b *Bridge) Bind(sc *swapchain.Swapchain, index uint32) (Surface, error) {
	if int(index) >= len(sc.Images) {
		return nil, errors.Errorf("image index %d out of range [0, %d)", index, len(sc.Images))
	}
	img := sc.Images[index]

	if b.surface == nil || b.generation != sc.Generation {
		if b.surface != nil {
			b.surface.Release()
			b.surface = nil
		}
		surface, err := b.backend.NewSurface(ImageDesc{
			Image:      img,
			Format:     sc.Format(),
			Extent:     sc.Extent(),
			Generation: sc.Generation,
		})
		if err != nil {
			b.bound = false
			return nil, errors.Wrap(err, "create surface")
		}
		b.surface = surface
		b.generation = sc.Generation
		b.log.WithField("generation", sc.Generation).Debug("surface created")
	} else if err := b.surface.Rebind(img); err != nil {
		b.bound = false
		return nil, errors.Wrap(err, "rebind surface")
	}

	b.image = img
	b.bound = true
	b.flushed = false
	return b.surface, nil
}

// Flush records the bound frame into cmd. It must be called exactly once
// per Bind.
func (b *Bridge) Flush(cmd gfx.CommandBuffer, slot int) error {
	if !b.bound {
		return ErrNotBound
	}
	if b.flushed {
		return ErrAlreadyFlushed
	}
	if err := b.surface.Flush(cmd, slot); err != nil {
		return errors.Wrap(err, "flush surface")
	}
	b.flushed = true
	return nil
}

// Pending reports a bound frame that has not been flushed.
func (b *Bridge) Pending() bool {
	return b.bound && !b.flushed
}

// Surface returns the live surface, nil before the first Bind.
func (b *Bridge) Surface() Surface {
	return b.surface
}

// Generation returns the swapchain generation of the live surface.
func (b *Bridge) Generation() uint64 {
	return b.generation
}

// Release releases the live surface.
func (b *Bridge) Release() {
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	b.bound = false
	b.flushed = false
	b.generation = 0
}
