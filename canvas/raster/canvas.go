// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package raster

import (
	"image"
	"image/color"
	"math"

	"github.com/devblok/kanvas/coords"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
)

type pathOp int

const (
	opMove pathOp = iota
	opLine
	opQuad
	opCubic
	opClose
)

// segment is a path command in user coordinates.
type segment struct {
	op  pathOp
	pts [3]mgl64.Vec2
}

type state struct {
	transform mgl64.Mat3
	lineWidth float64
}

// Canvas rasterizes into an *image.RGBA with rasterx.
type Canvas struct {
	img *image.RGBA

	filler *rasterx.Filler
	dasher *rasterx.Dasher
	fillSc *rasterx.ScannerGV
	strkSc *rasterx.ScannerGV

	state state
	saved []state
	path  []segment

	face font.Face
}

// NewCanvas returns a canvas drawing into img.
func NewCanvas(img *image.RGBA) *Canvas {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	fillSc := rasterx.NewScannerGV(w, h, img, img.Bounds())
	strkSc := rasterx.NewScannerGV(w, h, img, img.Bounds())
	return &Canvas{
		img:    img,
		fillSc: fillSc,
		strkSc: strkSc,
		filler: rasterx.NewFiller(w, h, fillSc),
		dasher: rasterx.NewDasher(w, h, strkSc),
		state:  state{transform: mgl64.Ident3(), lineWidth: 1},
		face:   basicfont.Face7x13,
	}
}

// SetTransform implements interface
func (c *Canvas) SetTransform(m mgl64.Mat3) {
	c.state.transform = m
}

// Transform implements interface
func (c *Canvas) Transform() mgl64.Mat3 {
	return c.state.transform
}

// Save implements interface
func (c *Canvas) Save() {
	c.saved = append(c.saved, c.state)
}

// Restore implements interface. Unbalanced calls are ignored.
func (c *Canvas) Restore() {
	if len(c.saved) == 0 {
		return
	}
	c.state = c.saved[len(c.saved)-1]
	c.saved = c.saved[:len(c.saved)-1]
}

// reset prepares the canvas for a new frame.
func (c *Canvas) reset() {
	c.state = state{transform: mgl64.Ident3(), lineWidth: 1}
	c.saved = c.saved[:0]
	c.path = c.path[:0]
}

// Clear implements interface
func (c *Canvas) Clear(clr color.Color) {
	draw.Draw(c.img, c.img.Bounds(), image.NewUniform(clr), image.Point{}, draw.Src)
}

// FillRect implements interface
func (c *Canvas) FillRect(x, y, w, h float64, clr color.Color) {
	rect := []segment{
		{op: opMove, pts: [3]mgl64.Vec2{{x, y}}},
		{op: opLine, pts: [3]mgl64.Vec2{{x + w, y}}},
		{op: opLine, pts: [3]mgl64.Vec2{{x + w, y + h}}},
		{op: opLine, pts: [3]mgl64.Vec2{{x, y + h}}},
		{op: opClose},
	}
	c.fillPath(rect, clr)
}

// BeginPath implements interface
func (c *Canvas) BeginPath() {
	c.path = c.path[:0]
}

// MoveTo implements interface
func (c *Canvas) MoveTo(x, y float64) {
	c.path = append(c.path, segment{op: opMove, pts: [3]mgl64.Vec2{{x, y}}})
}

// LineTo implements interface
func (c *Canvas) LineTo(x, y float64) {
	c.path = append(c.path, segment{op: opLine, pts: [3]mgl64.Vec2{{x, y}}})
}

// QuadTo implements interface
func (c *Canvas) QuadTo(cx, cy, x, y float64) {
	c.path = append(c.path, segment{op: opQuad, pts: [3]mgl64.Vec2{{cx, cy}, {x, y}}})
}

// CubicTo implements interface
func (c *Canvas) CubicTo(c1x, c1y, c2x, c2y, x, y float64) {
	c.path = append(c.path, segment{op: opCubic, pts: [3]mgl64.Vec2{{c1x, c1y}, {c2x, c2y}, {x, y}}})
}

// ClosePath implements interface
func (c *Canvas) ClosePath() {
	c.path = append(c.path, segment{op: opClose})
}

// Fill implements interface
func (c *Canvas) Fill(clr color.Color) {
	c.fillPath(c.path, clr)
}

// Stroke implements interface. The line width scales with the transform.
func (c *Canvas) Stroke(clr color.Color) {
	if len(c.path) == 0 {
		return
	}
	width := c.state.lineWidth * math.Sqrt(math.Abs(c.state.transform.Det()))
	c.dasher.SetStroke(toFixed(width), toFixed(4), rasterx.ButtCap, rasterx.ButtCap, rasterx.FlatGap, rasterx.Miter, nil, 0)
	c.strkSc.SetColor(clr)
	c.replay(c.dasher, c.path)
	c.dasher.Draw()
	c.dasher.Clear()
}

// SetLineWidth implements interface
func (c *Canvas) SetLineWidth(w float64) {
	if w > 0 {
		c.state.lineWidth = w
	}
}

// DrawImage implements interface
func (c *Canvas) DrawImage(img image.Image, x, y float64) {
	sr := img.Bounds()
	m := c.state.transform.Mul3(mgl64.Translate2D(x-float64(sr.Min.X), y-float64(sr.Min.Y)))
	s2d := f64.Aff3{
		m[0], m[3], m[6],
		m[1], m[4], m[7],
	}
	draw.BiLinear.Transform(c.img, s2d, img, sr, draw.Over, nil)
}

// FillText implements interface. Glyphs are not scaled by the transform.
func (c *Canvas) FillText(text string, x, y float64, clr color.Color) {
	px, py := coords.Apply(c.state.transform, x, y)
	d := font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(clr),
		Face: c.face,
		Dot:  toPoint(px, py),
	}
	d.DrawString(text)
}

// Size implements interface
func (c *Canvas) Size() (int, int) {
	return c.img.Bounds().Dx(), c.img.Bounds().Dy()
}

func (c *Canvas) fillPath(path []segment, clr color.Color) {
	if len(path) == 0 {
		return
	}
	c.fillSc.SetColor(clr)
	c.replay(c.filler, path)
	c.filler.Draw()
	c.filler.Clear()
}

// adder is the path building part of rasterx.Filler and rasterx.Dasher.
type adder interface {
	Start(a fixed.Point26_6)
	Line(b fixed.Point26_6)
	QuadBezier(b, c fixed.Point26_6)
	CubeBezier(b, c, d fixed.Point26_6)
	Stop(closeLoop bool)
}

// replay feeds path through the current transform into a.
func (c *Canvas) replay(a adder, path []segment) {
	m := c.state.transform
	pt := func(v mgl64.Vec2) fixed.Point26_6 {
		return toPoint(coords.Apply(m, v[0], v[1]))
	}

	open := false
	for _, s := range path {
		switch s.op {
		case opMove:
			if open {
				a.Stop(false)
			}
			a.Start(pt(s.pts[0]))
			open = true
		case opLine:
			if !open {
				a.Start(pt(s.pts[0]))
				open = true
				continue
			}
			a.Line(pt(s.pts[0]))
		case opQuad:
			if open {
				a.QuadBezier(pt(s.pts[0]), pt(s.pts[1]))
			}
		case opCubic:
			if open {
				a.CubeBezier(pt(s.pts[0]), pt(s.pts[1]), pt(s.pts[2]))
			}
		case opClose:
			if open {
				a.Stop(true)
				open = false
			}
		}
	}
	if open {
		a.Stop(false)
	}
}

func toFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(v * 64))
}

func toPoint(x, y float64) fixed.Point26_6 {
	return fixed.Point26_6{X: toFixed(x), Y: toFixed(y)}
}
