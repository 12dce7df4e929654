// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package coords_test

import (
	"math"
	"testing"

	"github.com/devblok/kanvas/coords"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-9

func assertPoint(t *testing.T, m mgl64.Mat3, x, y, wantX, wantY float64) {
	t.Helper()
	gx, gy := coords.Apply(m, x, y)
	assert.InDelta(t, wantX, gx, eps, "x of (%g,%g)", x, y)
	assert.InDelta(t, wantY, gy, eps, "y of (%g,%g)", x, y)
}

func TestIdentityPolicies(t *testing.T) {
	for _, sys := range []coords.System{coords.Physical(), coords.None()} {
		assert.Equal(t, mgl64.Ident3(), coords.Transform(800, 600, 2, sys), sys.String())
	}
}

func TestLogical(t *testing.T) {
	m := coords.Transform(1600, 1200, 2, coords.Logical())
	assertPoint(t, m, 800, 600, 1600, 1200)

	for _, ratio := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		assert.Equal(t, mgl64.Ident3(), coords.Transform(800, 600, ratio, coords.Logical()), "ratio %v", ratio)
	}
}

func TestVisibleRangeMapsExtents(t *testing.T) {
	m := coords.Transform(1920, 1080, 1, coords.Extents(1920, 1080))
	assertPoint(t, m, 0, 0, 0, 0)
	assertPoint(t, m, 1920, 1080, 1920, 1080)

	m = coords.Transform(1920, 1080, 1, coords.Extents(960, 540))
	assertPoint(t, m, 960, 540, 1920, 1080)
}

func TestVisibleRangeCentersLimitingAxis(t *testing.T) {
	// A square range on a wide drawable is limited by height.
	m := coords.Transform(200, 100, 1, coords.VisibleRange(coords.Rect{Left: -1, Top: -1, Right: 1, Bottom: 1}))
	assertPoint(t, m, -1, -1, 50, 0)
	assertPoint(t, m, 1, 1, 150, 100)
	assertPoint(t, m, 0, 0, 100, 50)
}

func TestVisibleRangeFlipsAxis(t *testing.T) {
	m := coords.Transform(100, 100, 1, coords.VisibleRange(coords.Rect{Left: 0, Top: 10, Right: 10, Bottom: 0}))
	assertPoint(t, m, 0, 10, 0, 0)
	assertPoint(t, m, 10, 0, 100, 100)

	m = coords.Transform(100, 100, 1, coords.VisibleRange(coords.Rect{Left: 10, Top: 0, Right: 0, Bottom: 10}))
	assertPoint(t, m, 10, 0, 0, 0)
	assertPoint(t, m, 0, 10, 100, 100)
}

func TestFixedWidth(t *testing.T) {
	m := coords.Transform(400, 200, 1, coords.FixedWidth(100, 2))
	assertPoint(t, m, 0, 0, 0, 0)
	assertPoint(t, m, 100, 50, 400, 200)

	// The drawable aspect is used when none is given.
	m = coords.Transform(400, 200, 1, coords.FixedWidth(100, 0))
	assertPoint(t, m, 100, 50, 400, 200)
}

func TestZeroAreaIsIdentity(t *testing.T) {
	systems := []coords.System{
		coords.Logical(),
		coords.Physical(),
		coords.None(),
		coords.Extents(100, 100),
		coords.FixedWidth(100, 0),
	}
	sizes := [][2]int{{0, 0}, {0, 100}, {100, 0}, {-1, 10}}

	for _, sys := range systems {
		for _, size := range sizes {
			m := coords.Transform(size[0], size[1], 2, sys)
			assert.Equal(t, mgl64.Ident3(), m, "%s at %v", sys, size)
			for _, v := range m {
				assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
			}
		}
	}
}

func TestDegenerateRangeIsIdentity(t *testing.T) {
	assert.Equal(t, mgl64.Ident3(), coords.Transform(100, 100, 1, coords.Extents(0, 100)))
	assert.Equal(t, mgl64.Ident3(), coords.Transform(100, 100, 1, coords.FixedWidth(0, 1)))
}

func TestTransformIsIdempotent(t *testing.T) {
	systems := []coords.System{
		coords.Logical(),
		coords.Extents(300, 200),
		coords.VisibleRange(coords.Rect{Left: 5, Top: -3, Right: -5, Bottom: 3}),
		coords.FixedWidth(64, 1.5),
	}
	for _, sys := range systems {
		first := coords.Transform(1280, 720, 1.5, sys)
		second := coords.Transform(1280, 720, 1.5, sys)
		assert.Equal(t, first, second, sys.String())
	}
}

func TestParse(t *testing.T) {
	cases := map[string]coords.System{
		"logical":              coords.Logical(),
		"Physical":             coords.Physical(),
		"none":                 coords.None(),
		"visible:0,0,640,480":  coords.Extents(640, 480),
		"visible:-1, 1, 1, -1": coords.VisibleRange(coords.Rect{Left: -1, Top: 1, Right: 1, Bottom: -1}),
		"fixed:100,1.5":        coords.FixedWidth(100, 1.5),
	}
	for in, want := range cases {
		got, err := coords.Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)

		again, err := coords.Parse(got.String())
		require.NoError(t, err, got.String())
		assert.Equal(t, got, again)
	}

	for _, bad := range []string{"", "polar", "visible:1,2,3", "fixed:a,b"} {
		_, err := coords.Parse(bad)
		assert.Error(t, err, bad)
	}
}

func BenchmarkTransformVisibleRange(b *testing.B) {
	sys := coords.VisibleRange(coords.Rect{Left: -640, Top: -360, Right: 640, Bottom: 360})
	for idx := 0; idx < b.N; idx++ {
		coords.Transform(1920, 1080, 1, sys)
	}
}

func BenchmarkTransformLogical(b *testing.B) {
	for idx := 0; idx < b.N; idx++ {
		coords.Transform(1920, 1080, 2, coords.Logical())
	}
}
