// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package capture

import (
	"image"
	"io"
	"os"
	"sync"

	"github.com/devblok/kanvas/canvas/raster"
	"github.com/devblok/kanvas/core"
	"github.com/pierrec/lz4"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// NewRecorder creates a Recorder. Do not fill the Index in the
// header, it will be overwritten anyway.
func NewRecorder(header Header, logger log.FieldLogger) (*Recorder, error) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	data, err := os.CreateTemp("", "kanvas-capture-*")
	if err != nil {
		return nil, errors.Wrap(err, "create capture data file")
	}
	return &Recorder{
		header: header,
		data:   data,
		log:    logger.WithField("component", "capture"),
	}, nil
}

// Recorder collects frames and writes them out as an archive. Frames are
// compressed into a temporary file as they arrive, the archive is only
// assembled by WriteTo. It is safe to use from several goroutines.
type Recorder struct {
	header Header

	mutex  sync.Mutex
	data   *os.File
	offset int64
	index  []Entry
	pixels []byte
	err    error

	log log.FieldLogger
}

// Add compresses img and appends it to the archive. Blocks until lz4
// finishes compression.
func (r *Recorder) Add(img *image.RGBA, t core.FrameTiming) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.data == nil {
		return ErrClosed
	}

	b := img.Bounds()
	size := 4 * b.Dx() * b.Dy()
	if cap(r.pixels) < size {
		r.pixels = make([]byte, size)
	}
	pixels := r.pixels[:size]
	raster.Pack(pixels, img, false)

	cw := &countingWriter{w: r.data}
	zw := lz4.NewWriter(cw)
	if _, err := zw.Write(pixels); err != nil {
		return errors.Wrapf(err, "compress frame %d", t.FrameCount)
	}
	if err := zw.Close(); err != nil {
		return errors.Wrapf(err, "compress frame %d", t.FrameCount)
	}

	r.index = append(r.index, Entry{
		Frame:          t.FrameCount,
		Time:           t.TotalTime,
		Width:          b.Dx(),
		Height:         b.Dy(),
		Offset:         r.offset,
		Size:           int64(size),
		CompressedSize: cw.n,
	})
	r.offset += cw.n
	return nil
}

// Observe is a core.FrameObserver. The first failure is kept for Err and
// stops recording.
func (r *Recorder) Observe(img *image.RGBA, t core.FrameTiming) {
	if r.Err() != nil {
		return
	}
	if err := r.Add(img, t); err != nil {
		r.log.WithError(err).Error("frame capture failed, recording stopped")
		r.mutex.Lock()
		r.err = err
		r.mutex.Unlock()
	}
}

// Err returns the failure that stopped Observe.
func (r *Recorder) Err() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.err
}

// Len returns the number of recorded frames.
func (r *Recorder) Len() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.index)
}

// WriteTo writes the archive with every frame added so far.
func (r *Recorder) WriteTo(w io.Writer) (int64, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.data == nil {
		return 0, ErrClosed
	}

	header := r.header
	header.Index = append([]Entry(nil), r.index...)
	rawHeader, err := encodeHeader(header)
	if err != nil {
		return 0, err
	}

	cw := &countingWriter{w: w}
	for _, part := range [][]byte{magic[:], int64ToBinary(int64(len(rawHeader))), rawHeader} {
		if _, err := cw.Write(part); err != nil {
			return cw.n, errors.Wrap(err, "write header")
		}
	}
	if _, err := io.Copy(cw, io.NewSectionReader(r.data, 0, r.offset)); err != nil {
		return cw.n, errors.Wrap(err, "write frames")
	}
	return cw.n, nil
}

// Save writes the archive to a file at path.
func (r *Recorder) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create capture archive")
	}
	n, err := r.WriteTo(f)
	if err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "close capture archive")
	}
	r.log.WithFields(log.Fields{"path": path, "frames": r.Len(), "bytes": n}).Info("capture saved")
	return nil
}

// Close removes the temporary frame data. Frames not written out are lost.
func (r *Recorder) Close() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.data == nil {
		return nil
	}
	name := r.data.Name()
	r.data.Close()
	r.data = nil
	return errors.Wrap(os.Remove(name), "remove capture data file")
}
