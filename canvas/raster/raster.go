// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package raster is a CPU canvas backend. Frames are rasterized into host
// memory and uploaded into the swapchain image with a buffer copy.
package raster

import (
	"image"

	"github.com/devblok/kanvas/canvas"
	"github.com/devblok/kanvas/gfx"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Backend creates raster surfaces whose uploads go through dev.
type Backend struct {
	dev gfx.Device
	log log.FieldLogger
}

// New creates a raster Backend.
func New(dev gfx.Device, logger log.FieldLogger) *Backend {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Backend{
		dev: dev,
		log: logger.WithField("component", "raster"),
	}
}

// Supports implements interface. Pixels are packed four bytes each, so
// only 8-bit RGBA and BGRA images can be uploaded.
func (b *Backend) Supports(format gfx.Format) bool {
	return format.RGBA8()
}

// NewSurface implements interface
func (b *Backend) NewSurface(desc canvas.ImageDesc) (canvas.Surface, error) {
	if !b.Supports(desc.Format) {
		return nil, errors.Wrapf(canvas.ErrUnsupportedFormat, "raster surface for %v", desc.Format)
	}
	if desc.Extent.Empty() {
		return nil, errors.New("raster surface needs a non-empty extent")
	}
	img := image.NewRGBA(image.Rect(0, 0, int(desc.Extent.Width), int(desc.Extent.Height)))
	b.log.WithFields(log.Fields{
		"width":      desc.Extent.Width,
		"height":     desc.Extent.Height,
		"generation": desc.Generation,
	}).Debug("raster surface created")

	return &Surface{
		dev:    b.dev,
		desc:   desc,
		img:    img,
		canvas: NewCanvas(img),
	}, nil
}

// Surface is a raster drawing target for one swapchain generation. It
// keeps one upload buffer per frame slot.
type Surface struct {
	dev  gfx.Device
	desc canvas.ImageDesc

	img     *image.RGBA
	canvas  *Canvas
	uploads []gfx.UploadBuffer
}

// Canvas implements interface
func (s *Surface) Canvas() canvas.Canvas {
	return s.canvas
}

// Rebind implements interface
func (s *Surface) Rebind(img gfx.Image) error {
	s.desc.Image = img
	s.canvas.reset()
	return nil
}

// Snapshot implements interface
func (s *Surface) Snapshot() *image.RGBA {
	return s.img
}

func (s *Surface) upload(slot int) (gfx.UploadBuffer, error) {
	for len(s.uploads) <= slot {
		s.uploads = append(s.uploads, nil)
	}
	if s.uploads[slot] == nil {
		buf, err := s.dev.CreateUploadBuffer(len(s.img.Pix))
		if err != nil {
			return nil, errors.Wrapf(err, "create upload buffer for slot %d", slot)
		}
		s.uploads[slot] = buf
	}
	return s.uploads[slot], nil
}

// Flush implements interface
func (s *Surface) Flush(cmd gfx.CommandBuffer, slot int) error {
	buf, err := s.upload(slot)
	if err != nil {
		return err
	}
	dst := buf.Bytes()
	if len(dst) < len(s.img.Pix) {
		return errors.Errorf("upload buffer holds %d bytes, frame needs %d", len(dst), len(s.img.Pix))
	}
	Pack(dst, s.img, s.desc.Format.BGRA())

	cmd.TransitionImage(s.desc.Image, gfx.LayoutUndefined, gfx.LayoutTransferDst)
	cmd.CopyBufferToImage(buf, s.desc.Image, s.desc.Extent)
	cmd.TransitionImage(s.desc.Image, gfx.LayoutTransferDst, gfx.LayoutPresentSrc)
	return nil
}

// Release implements interface. The device must no longer use the uploads.
func (s *Surface) Release() {
	for _, buf := range s.uploads {
		if buf != nil {
			buf.Release()
		}
	}
	s.uploads = nil
}
