// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package raster

import (
	"image"

	"golang.org/x/image/draw"
)

// Pack writes the pixels of img tightly packed into dst, four bytes per
// pixel, swapping red and blue when bgra is set. dst must hold at least
// 4*width*height bytes. It returns the number of bytes written.
func Pack(dst []byte, img *image.RGBA, bgra bool) int {
	b := img.Bounds()
	rowLen := 4 * b.Dx()
	n := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := img.PixOffset(b.Min.X, y)
		row := dst[n : n+rowLen]
		copy(row, img.Pix[off:off+rowLen])
		if bgra {
			for i := 0; i < rowLen; i += 4 {
				row[i], row[i+2] = row[i+2], row[i]
			}
		}
		n += rowLen
	}
	return n
}

// ToRGBA returns img as an *image.RGBA, converting it when needed.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	return rgba
}
