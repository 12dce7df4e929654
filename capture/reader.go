// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package capture

import (
	"bytes"
	"image"
	"io"
	"os"

	"github.com/pierrec/lz4"
	"github.com/pkg/errors"
)

// Limits that guard against allocating from corrupted size fields.
const (
	maxHeaderSize = 1 << 30
	maxFrameSize  = 1 << 30

	// lz4 cannot expand a compressed block more than 255 times.
	maxCompressionRatio = 256
)

// Open opens the archive in r. It will also check if r actually
// holds a capture archive and return ErrFileFormat when it doesn't.
func Open(r io.ReaderAt) (*Archive, error) {
	start := make([]byte, MagicLength+HeaderSizeLength)
	if _, err := r.ReadAt(start, 0); err != nil {
		if err == io.EOF {
			return nil, ErrFileFormat
		}
		return nil, errors.Wrap(err, "read archive start")
	}
	if !bytes.Equal(start[:MagicLength], magic[:]) {
		return nil, ErrFileFormat
	}

	headerSize := binaryToInt64(start[MagicLength:])
	if headerSize <= 0 || headerSize > maxHeaderSize {
		return nil, ErrFileFormat
	}

	headerBytes := make([]byte, headerSize)
	if _, err := r.ReadAt(headerBytes, int64(len(start))); err != nil {
		if err == io.EOF {
			return nil, ErrFileFormat
		}
		return nil, errors.Wrap(err, "read archive header")
	}

	header, err := decodeHeader(headerBytes)
	if err != nil {
		return nil, err
	}
	for _, e := range header.Index {
		if !validEntry(e) {
			return nil, errors.Wrapf(ErrFileFormat, "frame %d index entry", e.Frame)
		}
	}

	return &Archive{
		reader:    r,
		header:    header,
		dataStart: int64(len(start)) + headerSize,
	}, nil
}

// validEntry checks an index entry before anything is allocated for it.
func validEntry(e Entry) bool {
	if e.Offset < 0 || e.CompressedSize < 0 || e.Size < 0 || e.Size > maxFrameSize {
		return false
	}
	if e.Width < 0 || e.Height < 0 || e.Width > maxFrameSize/4 || e.Height > maxFrameSize/4 {
		return false
	}
	if e.Size != 4*int64(e.Width)*int64(e.Height) {
		return false
	}
	return e.Size <= e.CompressedSize*maxCompressionRatio
}

// OpenFile opens the archive stored at path. Close the Archive to
// release the file.
func OpenFile(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open capture archive")
	}
	ar, err := Open(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	ar.closer = f
	return ar, nil
}

// Archive provides concurrent access to the frames of a capture.
type Archive struct {
	reader    io.ReaderAt
	closer    io.Closer
	header    Header
	dataStart int64
}

// Header returns the archive header with its index.
func (a *Archive) Header() Header {
	return a.header
}

// Len returns the number of frames.
func (a *Archive) Len() int {
	return len(a.header.Index)
}

// ReadAll returns the decompressed pixels of frame i, four bytes per
// pixel in RGBA order.
func (a *Archive) ReadAll(i int) ([]byte, error) {
	if i < 0 || i >= len(a.header.Index) {
		return nil, errors.Wrapf(ErrNoFrame, "frame %d of %d", i, len(a.header.Index))
	}
	e := a.header.Index[i]

	section := io.NewSectionReader(a.reader, a.dataStart+e.Offset, e.CompressedSize)
	pixels := make([]byte, e.Size)
	if _, err := io.ReadFull(lz4.NewReader(section), pixels); err != nil {
		return nil, errors.Wrapf(ErrFileFormat, "frame %d: %v", e.Frame, err)
	}
	return pixels, nil
}

// Image returns frame i as an image.
func (a *Archive) Image(i int) (*image.RGBA, error) {
	pixels, err := a.ReadAll(i)
	if err != nil {
		return nil, err
	}
	e := a.header.Index[i]
	return &image.RGBA{
		Pix:    pixels,
		Stride: 4 * e.Width,
		Rect:   image.Rect(0, 0, e.Width, e.Height),
	}, nil
}

// Close closes the file opened by OpenFile.
func (a *Archive) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}
