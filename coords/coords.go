// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package coords computes the affine transform that maps user drawing
// coordinates onto the physical pixels of a drawable.
package coords

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// Mode selects a coordinate policy.
type Mode int

// Coordinate policies.
const (
	ModeLogical Mode = iota
	ModePhysical
	ModeVisibleRange
	ModeFixedWidth
	ModeNone
)

func (m Mode) String() string {
	switch m {
	case ModeLogical:
		return "logical"
	case ModePhysical:
		return "physical"
	case ModeVisibleRange:
		return "visible"
	case ModeFixedWidth:
		return "fixed"
	case ModeNone:
		return "none"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Rect is a visible range in user units. Left may exceed Right and Top may
// exceed Bottom; the matching axis is then mirrored.
type Rect struct {
	Left, Top, Right, Bottom float64
}

// System is a coordinate policy with its parameters. The zero value is Logical.
type System struct {
	Mode   Mode
	Range  Rect
	Width  float64
	Aspect float64
}

// Logical makes one user unit one OS logical pixel.
func Logical() System { return System{Mode: ModeLogical} }

// Physical makes one user unit one physical pixel.
func Physical() System { return System{Mode: ModePhysical} }

// None leaves the canvas transform untouched.
func None() System { return System{Mode: ModeNone} }

// VisibleRange fits r into the drawable, keeping its aspect and centering it.
func VisibleRange(r Rect) System { return System{Mode: ModeVisibleRange, Range: r} }

// Extents is VisibleRange over (0,0)-(w,h).
func Extents(w, h float64) System { return VisibleRange(Rect{Right: w, Bottom: h}) }

// FixedWidth shows width user units horizontally and width/aspect vertically.
// An aspect of zero or less uses the drawable's own aspect.
func FixedWidth(width, aspect float64) System {
	return System{Mode: ModeFixedWidth, Width: width, Aspect: aspect}
}

func (s System) String() string {
	switch s.Mode {
	case ModeVisibleRange:
		return fmt.Sprintf("visible:%g,%g,%g,%g", s.Range.Left, s.Range.Top, s.Range.Right, s.Range.Bottom)
	case ModeFixedWidth:
		return fmt.Sprintf("fixed:%g,%g", s.Width, s.Aspect)
	}
	return s.Mode.String()
}

// Parse reads the form produced by System.String.
func Parse(s string) (System, error) {
	name, args := s, ""
	if i := strings.IndexByte(s, ':'); i >= 0 {
		name, args = s[:i], s[i+1:]
	}
	name = strings.ToLower(strings.TrimSpace(name))

	switch name {
	case "logical":
		return Logical(), nil
	case "physical":
		return Physical(), nil
	case "none":
		return None(), nil
	case "visible":
		v, err := parseFloats(args, 4)
		if err != nil {
			return System{}, errors.Wrapf(err, "coordinate system %q", s)
		}
		return VisibleRange(Rect{Left: v[0], Top: v[1], Right: v[2], Bottom: v[3]}), nil
	case "fixed":
		v, err := parseFloats(args, 2)
		if err != nil {
			return System{}, errors.Wrapf(err, "coordinate system %q", s)
		}
		return FixedWidth(v[0], v[1]), nil
	}
	return System{}, errors.Errorf("unknown coordinate system %q", s)
}

func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, errors.Errorf("want %d values, have %d", n, len(parts))
	}
	out := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Transform returns the matrix mapping user coordinates to physical pixels
// of a width x height drawable whose DPI ratio is ratio. A zero-area drawable
// or a degenerate range yields the identity.
func Transform(width, height int, ratio float64, sys System) mgl64.Mat3 {
	if width <= 0 || height <= 0 {
		return mgl64.Ident3()
	}
	dw, dh := float64(width), float64(height)

	switch sys.Mode {
	case ModeLogical:
		if !finite(ratio) || ratio <= 0 {
			ratio = 1
		}
		return mgl64.Scale2D(ratio, ratio)
	case ModeVisibleRange:
		return fit(sys.Range, dw, dh)
	case ModeFixedWidth:
		aspect := sys.Aspect
		if !finite(aspect) || aspect <= 0 {
			aspect = dw / dh
		}
		return fit(Rect{Right: sys.Width, Bottom: sys.Width / aspect}, dw, dh)
	}
	return mgl64.Ident3()
}

// fit scales r uniformly by its limiting axis and centers it in dw x dh.
func fit(r Rect, dw, dh float64) mgl64.Mat3 {
	rw, rh := r.Right-r.Left, r.Bottom-r.Top
	if rw == 0 || rh == 0 || !finite(rw) || !finite(rh) {
		return mgl64.Ident3()
	}

	s := math.Min(dw/math.Abs(rw), dh/math.Abs(rh))
	sx := math.Copysign(s, rw)
	sy := math.Copysign(s, rh)
	tx := -r.Left*sx + (dw-s*math.Abs(rw))/2
	ty := -r.Top*sy + (dh-s*math.Abs(rh))/2

	return mgl64.Mat3{
		sx, 0, 0,
		0, sy, 0,
		tx, ty, 1,
	}
}

// Apply maps the point (x, y) through m.
func Apply(m mgl64.Mat3, x, y float64) (float64, float64) {
	v := m.Mul3x1(mgl64.Vec3{x, y, 1})
	return v[0], v[1]
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
