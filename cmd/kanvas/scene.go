// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/devblok/kanvas/canvas"
	"github.com/devblok/kanvas/coords"
	"github.com/devblok/kanvas/core"
	"github.com/go-gl/mathgl/mgl64"
)

var (
	background = color.RGBA{R: 24, G: 26, B: 33, A: 255}
	accent     = color.RGBA{R: 240, G: 160, B: 48, A: 255}
	outline    = color.RGBA{R: 90, G: 200, B: 250, A: 255}
	textColor  = color.RGBA{R: 230, G: 230, B: 230, A: 255}
)

// scene is the demo drawing: a spinning star, a wave and a badge.
type scene struct {
	badge *image.RGBA
}

func newScene() *scene {
	badge := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			badge.SetRGBA(x, y, color.RGBA{R: uint8(x * 8), G: uint8(y * 8), B: 160, A: 255})
		}
	}
	return &scene{badge: badge}
}

// bounds returns the user space rectangle the canvas shows.
func bounds(c canvas.Canvas) coords.Rect {
	w, h := c.Size()
	inv := c.Transform().Inv()
	left, top := coords.Apply(inv, 0, 0)
	right, bottom := coords.Apply(inv, float64(w), float64(h))
	return coords.Rect{Left: left, Top: top, Right: right, Bottom: bottom}
}

func (s *scene) draw(c canvas.Canvas, t core.FrameTiming) {
	c.Clear(background)

	r := bounds(c)
	cx, cy := (r.Left+r.Right)/2, (r.Top+r.Bottom)/2
	size := math.Min(math.Abs(r.Right-r.Left), math.Abs(r.Bottom-r.Top))
	if size <= 0 {
		return
	}
	elapsed := t.TotalTime.Seconds()

	c.Save()
	c.SetTransform(c.Transform().
		Mul3(mgl64.Translate2D(cx, cy)).
		Mul3(mgl64.HomogRotate2D(elapsed)))
	star(c, size*0.3, size*0.12, 5)
	c.Fill(accent)
	c.SetLineWidth(size * 0.01)
	c.Stroke(outline)
	c.Restore()

	c.BeginPath()
	c.MoveTo(r.Left, cy+size*0.35)
	width := r.Right - r.Left
	for i := 0; i < 4; i++ {
		x0 := r.Left + width*float64(i)/4
		phase := math.Sin(elapsed*2+float64(i)) * size * 0.08
		c.CubicTo(x0+width/12, cy+size*0.35-phase, x0+width/6, cy+size*0.35+phase, x0+width/4, cy+size*0.35)
	}
	c.SetLineWidth(size * 0.005)
	c.Stroke(outline)

	c.FillRect(r.Left+size*0.02, r.Top+size*0.02, size*0.1, size*0.02, accent)
	c.DrawImage(s.badge, r.Right-size*0.02-32, r.Top+size*0.02)
	c.FillText(fmt.Sprintf("frame %d  %.0f fps", t.FrameCount, t.FpsSmoothed), r.Left+size*0.02, r.Bottom-size*0.03, textColor)
}

func star(c canvas.Canvas, outer, inner float64, points int) {
	c.BeginPath()
	for i := 0; i < points*2; i++ {
		radius := outer
		if i%2 == 1 {
			radius = inner
		}
		angle := math.Pi*float64(i)/float64(points) - math.Pi/2
		x, y := radius*math.Cos(angle), radius*math.Sin(angle)
		if i == 0 {
			c.MoveTo(x, y)
		} else {
			c.LineTo(x, y)
		}
	}
	c.ClosePath()
}
