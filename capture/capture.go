// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package capture records drawn frames into an lz4 backed archive for
// debugging. Like a kar archive, the archive itself is not compressed;
// every frame is compressed on its own and the header indexes all of them,
// so any frame can be located and decompressed without reading the rest.
// An archive can be read from concurrently.
package capture

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"io"
	"time"

	"github.com/pkg/errors"
)

// package errors
var (
	ErrFileFormat = errors.New("corrupted or not a capture archive")
	ErrClosed     = errors.New("recorder closed")
	ErrNoFrame    = errors.New("no such frame")
)

// Version is written into the header of new archives.
const Version = 1

// Sizes relevant to the beginning of the file
const (
	MagicLength      = 4
	HeaderSizeLength = 8
)

var magic = [MagicLength]byte{'K', 'C', 'A', 'P'}

// Entry describes one frame in the index. Offset is relative to the
// first byte after the header.
type Entry struct {
	Frame          uint64
	Time           time.Duration
	Width          int
	Height         int
	Offset         int64
	Size           int64
	CompressedSize int64
}

// Header is the file header for capture archives.
type Header struct {
	Author      string
	DateCreated int64
	Version     int64
	Index       []Entry
}

func encodeHeader(h Header) ([]byte, error) {
	var encoded bytes.Buffer
	if err := gob.NewEncoder(&encoded).Encode(h); err != nil {
		return nil, errors.Wrap(err, "encode header")
	}
	return encoded.Bytes(), nil
}

func decodeHeader(bts []byte) (Header, error) {
	var h Header
	if err := gob.NewDecoder(bytes.NewReader(bts)).Decode(&h); err != nil {
		return Header{}, errors.Wrap(ErrFileFormat, err.Error())
	}
	return h, nil
}

func int64ToBinary(num int64) []byte {
	bts := make([]byte, HeaderSizeLength)
	binary.LittleEndian.PutUint64(bts, uint64(num))
	return bts
}

func binaryToInt64(bts []byte) int64 {
	return int64(binary.LittleEndian.Uint64(bts))
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
