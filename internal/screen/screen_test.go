package screen

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidFrame(w, h int, c color.RGBA) *ScreenFrame {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return FrameFromImage(img, DisplayInfo{})
}

func TestHashFrame(t *testing.T) {
	t.Run("identical pixels hash identically", func(t *testing.T) {
		a := solidFrame(8, 8, color.RGBA{R: 10, A: 255})
		b := solidFrame(8, 8, color.RGBA{R: 10, A: 255})
		assert.Equal(t, HashFrame(a, 1), HashFrame(b, 1))
		assert.Equal(t, HashFrame(a, 4), HashFrame(b, 4))
	})

	t.Run("sampled pixel change alters the hash", func(t *testing.T) {
		a := solidFrame(8, 8, color.RGBA{A: 255})
		b := solidFrame(8, 8, color.RGBA{A: 255})
		// Pixel 0 is always sampled.
		b.Pixels[0] = 200
		assert.NotEqual(t, HashFrame(a, 2), HashFrame(b, 2))
	})

	t.Run("unsampled pixel change is ignored", func(t *testing.T) {
		a := solidFrame(8, 8, color.RGBA{A: 255})
		b := solidFrame(8, 8, color.RGBA{A: 255})
		// With downscale 4 only every 4th pixel is read; pixel 1 is skipped.
		b.Pixels[4] = 200
		assert.Equal(t, HashFrame(a, 4), HashFrame(b, 4))
		assert.NotEqual(t, HashFrame(a, 1), HashFrame(b, 1))
	})

	t.Run("dimensions and downscale seed the hash", func(t *testing.T) {
		wide := solidFrame(4, 2, color.RGBA{A: 255})
		tall := solidFrame(2, 4, color.RGBA{A: 255})
		assert.NotEqual(t, HashFrame(wide, 1), HashFrame(tall, 1))
		assert.NotEqual(t, HashFrame(wide, 2), HashFrame(wide, 3))
	})

	t.Run("downscale zero behaves as one for sampling", func(t *testing.T) {
		a := solidFrame(4, 4, color.RGBA{A: 255})
		b := solidFrame(4, 4, color.RGBA{A: 255})
		b.Pixels[4] = 1
		assert.NotEqual(t, HashFrame(a, 0), HashFrame(b, 0))
	})

	t.Run("zero area is the sentinel", func(t *testing.T) {
		assert.Zero(t, HashFrame(&ScreenFrame{Width: 0, Height: 10}, 1))
		assert.Zero(t, HashFrame(nil, 1))
	})
}

type stubSource struct {
	frame *ScreenFrame
	err   error
	calls int
}

func (s *stubSource) CaptureRegion(ctx context.Context, region Region) (*ScreenFrame, error) {
	s.calls++
	return s.frame, s.err
}

func TestHashRegion(t *testing.T) {
	ctx := context.Background()

	t.Run("zero area returns zero without capturing", func(t *testing.T) {
		src := &stubSource{}
		h, err := HashRegion(ctx, src, Region{ID: "r", Rect: Rect{Width: 0, Height: 5}}, 1)
		require.NoError(t, err)
		assert.Zero(t, h)
		assert.Zero(t, src.calls)
	})

	t.Run("capture failure surfaces", func(t *testing.T) {
		boom := errors.New("display gone")
		src := &stubSource{err: boom}
		_, err := HashRegion(ctx, src, Region{ID: "r", Rect: Rect{Width: 2, Height: 2}}, 1)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("hash matches HashFrame", func(t *testing.T) {
		frame := solidFrame(3, 3, color.RGBA{G: 9, A: 255})
		src := &stubSource{frame: frame}
		h, err := HashRegion(ctx, src, Region{ID: "r", Rect: Rect{Width: 3, Height: 3}}, 2)
		require.NoError(t, err)
		assert.Equal(t, HashFrame(frame, 2), h)
	})
}

func TestCheckRegion(t *testing.T) {
	err := CheckRegion(Region{ID: "chat", Rect: Rect{Width: 10}})
	require.Error(t, err)

	var capErr *CaptureError
	require.True(t, errors.As(err, &capErr))
	assert.Equal(t, CodeInvalidRegion, capErr.Code)
	assert.Contains(t, err.Error(), "region 'chat'")

	assert.NoError(t, CheckRegion(Region{ID: "chat", Rect: Rect{Width: 1, Height: 1}}))
}

func TestRect(t *testing.T) {
	outer := Rect{X: 0, Y: 0, Width: 100, Height: 100}
	assert.True(t, outer.Contains(Rect{X: 10, Y: 10, Width: 20, Height: 20}))
	assert.False(t, outer.Contains(Rect{X: 90, Y: 90, Width: 20, Height: 20}))
	assert.Equal(t, Rect{X: 90, Y: 90, Width: 10, Height: 10}, outer.Intersect(Rect{X: 90, Y: 90, Width: 20, Height: 20}))
	assert.True(t, outer.Intersect(Rect{X: 200, Y: 200, Width: 5, Height: 5}).Empty())
	assert.Equal(t, "100x100+0+0", outer.String())
}

func TestFindDisplay(t *testing.T) {
	left := DisplayInfo{ID: 1, Width: 1920, Height: 1080}
	right := DisplayInfo{ID: 2, X: 1920, Width: 1920, Height: 1080}
	displays := []DisplayInfo{left, right}

	d, ok := FindDisplay(displays, Rect{X: 2000, Y: 10, Width: 100, Height: 100})
	require.True(t, ok)
	assert.Equal(t, uint32(2), d.ID)

	// Straddling both displays falls back to the first.
	d, ok = FindDisplay(displays, Rect{X: 1900, Y: 10, Width: 100, Height: 100})
	require.True(t, ok)
	assert.Equal(t, uint32(1), d.ID)

	_, ok = FindDisplay(nil, Rect{})
	assert.False(t, ok)
}

func TestEncodePNG(t *testing.T) {
	t.Run("round trips pixels", func(t *testing.T) {
		frame := solidFrame(4, 3, color.RGBA{R: 1, G: 2, B: 3, A: 255})
		data, err := EncodePNG(frame, 0)
		require.NoError(t, err)

		img, err := png.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 4, 3), img.Bounds())
		r, g, b, _ := img.At(2, 1).RGBA()
		assert.Equal(t, []uint32{1, 2, 3}, []uint32{r >> 8, g >> 8, b >> 8})
	})

	t.Run("downsamples to the longest side", func(t *testing.T) {
		frame := solidFrame(200, 100, color.RGBA{B: 255, A: 255})
		data, err := EncodePNG(frame, 50)
		require.NoError(t, err)

		cfg, err := png.DecodeConfig(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, 50, cfg.Width)
		assert.Equal(t, 25, cfg.Height)
	})

	t.Run("rejects empty and truncated frames", func(t *testing.T) {
		_, err := EncodePNG(&ScreenFrame{}, 0)
		assert.Error(t, err)

		_, err = EncodePNG(&ScreenFrame{Width: 4, Height: 4, Stride: 16, Pixels: make([]byte, 8)}, 0)
		assert.ErrorContains(t, err, "frame buffer too small")
	})
}
