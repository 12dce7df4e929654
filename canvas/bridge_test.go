// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package canvas_test

import (
	"errors"
	"testing"

	"github.com/devblok/kanvas/canvas"
	"github.com/devblok/kanvas/gfx"
	"github.com/devblok/kanvas/gfx/gfxtest"
	"github.com/devblok/kanvas/swapchain"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSurface struct {
	desc     canvas.ImageDesc
	image    gfx.Image
	flushes  int
	released bool
}

func (s *fakeSurface) Canvas() canvas.Canvas { return nil }

func (s *fakeSurface) Rebind(img gfx.Image) error {
	s.image = img
	return nil
}

func (s *fakeSurface) Flush(cmd gfx.CommandBuffer, slot int) error {
	s.flushes++
	return nil
}

func (s *fakeSurface) Release() { s.released = true }

type fakeBackend struct {
	surfaces []*fakeSurface
	err      error
}

func (b *fakeBackend) Supports(format gfx.Format) bool {
	return format != gfx.FormatUndefined
}

func (b *fakeBackend) NewSurface(desc canvas.ImageDesc) (canvas.Surface, error) {
	if b.err != nil {
		return nil, b.err
	}
	s := &fakeSurface{desc: desc, image: desc.Image}
	b.surfaces = append(b.surfaces, s)
	return s, nil
}

func fakeSwapchain(generation uint64, images int) *swapchain.Swapchain {
	sc := &swapchain.Swapchain{
		Config: swapchain.SurfaceConfig{
			Format: gfx.SurfaceFormat{Format: gfx.FormatB8G8R8A8SRGB},
			Extent: gfx.Extent2D{Width: 64, Height: 32},
		},
		Generation: generation,
	}
	for i := 0; i < images; i++ {
		sc.Images = append(sc.Images, &gfxtest.Image{ID: i, Swapchain: int(generation)})
	}
	return sc
}

func newBridge() (*canvas.Bridge, *fakeBackend) {
	logger, _ := test.NewNullLogger()
	backend := &fakeBackend{}
	return canvas.NewBridge(backend, logger), backend
}

func TestBindReusesSurfaceWithinGeneration(t *testing.T) {
	bridge, backend := newBridge()
	sc := fakeSwapchain(1, 3)
	cmd := &gfxtest.CommandBuffer{}

	for frame := 0; frame < 6; frame++ {
		idx := uint32(frame % 3)
		surface, err := bridge.Bind(sc, idx)
		require.NoError(t, err)
		assert.Same(t, sc.Images[idx], surface.(*fakeSurface).image)
		require.NoError(t, bridge.Flush(cmd, frame%2))
	}

	require.Len(t, backend.surfaces, 1)
	s := backend.surfaces[0]
	assert.Equal(t, 6, s.flushes)
	assert.Equal(t, gfx.FormatB8G8R8A8SRGB, s.desc.Format)
	assert.Equal(t, gfx.Extent2D{Width: 64, Height: 32}, s.desc.Extent)
	assert.Equal(t, uint64(1), s.desc.Generation)
}

func TestBindRecreatesOnNewGeneration(t *testing.T) {
	bridge, backend := newBridge()
	cmd := &gfxtest.CommandBuffer{}

	_, err := bridge.Bind(fakeSwapchain(1, 2), 0)
	require.NoError(t, err)
	require.NoError(t, bridge.Flush(cmd, 0))

	_, err = bridge.Bind(fakeSwapchain(2, 2), 1)
	require.NoError(t, err)

	require.Len(t, backend.surfaces, 2)
	assert.True(t, backend.surfaces[0].released)
	assert.False(t, backend.surfaces[1].released)
	assert.Equal(t, uint64(2), bridge.Generation())

	bridge.Release()
	assert.True(t, backend.surfaces[1].released)
	assert.Nil(t, bridge.Surface())
}

func TestFlushOncePerBind(t *testing.T) {
	bridge, _ := newBridge()
	cmd := &gfxtest.CommandBuffer{}

	assert.True(t, errors.Is(bridge.Flush(cmd, 0), canvas.ErrNotBound))

	_, err := bridge.Bind(fakeSwapchain(1, 1), 0)
	require.NoError(t, err)
	assert.True(t, bridge.Pending())

	require.NoError(t, bridge.Flush(cmd, 0))
	assert.False(t, bridge.Pending())
	assert.True(t, errors.Is(bridge.Flush(cmd, 0), canvas.ErrAlreadyFlushed))
}

func TestBindErrors(t *testing.T) {
	bridge, backend := newBridge()

	_, err := bridge.Bind(fakeSwapchain(1, 2), 2)
	assert.Error(t, err)

	backend.err = errors.New("out of memory")
	_, err = bridge.Bind(fakeSwapchain(1, 2), 0)
	assert.Error(t, err)
	assert.False(t, bridge.Pending())
	assert.True(t, errors.Is(bridge.Flush(&gfxtest.CommandBuffer{}, 0), canvas.ErrNotBound))
}
