// Package virtual is an in-memory desktop: a scriptable RGBA framebuffer and
// an input recorder. It backs dry runs and tests.
package virtual

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"time"

	"github.com/xkilldash9x/loopautoma/internal/screen"
)

// Screen is a single virtual display. Safe for concurrent use.
type Screen struct {
	mu       sync.RWMutex
	display  screen.DisplayInfo
	img      *image.RGBA
	failErr  error
	captures int
}

// NewScreen creates a black display of the given size.
func NewScreen(width, height int) *Screen {
	return &Screen{
		display: screen.DisplayInfo{
			ID:          1,
			Name:        "virtual-0",
			Width:       width,
			Height:      height,
			ScaleFactor: 1.0,
			Primary:     true,
		},
		img: image.NewRGBA(image.Rect(0, 0, width, height)),
	}
}

// Fill paints rect with c, clipped to the display.
func (s *Screen) Fill(rect screen.Rect, c color.RGBA) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := image.Rect(rect.X, rect.Y, rect.X+rect.Width, rect.Y+rect.Height)
	draw.Draw(s.img, r.Intersect(s.img.Bounds()), &image.Uniform{C: c}, image.Point{}, draw.Src)
}

// SetPixel paints a single pixel. Out-of-range coordinates are ignored.
func (s *Screen) SetPixel(x, y int, c color.RGBA) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.img.SetRGBA(x, y, c)
}

// FailWith makes every capture fail with err until cleared with nil.
func (s *Screen) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}

// Captures returns how many frames have been captured.
func (s *Screen) Captures() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.captures
}

// CaptureRegion copies the region into a new frame. Pixels outside the
// display are black; a region entirely off-screen is invalid.
func (s *Screen) CaptureRegion(ctx context.Context, region screen.Region) (*screen.ScreenFrame, error) {
	if err := screen.CheckRegion(region); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, &screen.CaptureError{Code: screen.CodeCaptureFailed, RegionID: region.ID, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failErr != nil {
		return nil, &screen.CaptureError{Code: screen.CodeCaptureFailed, RegionID: region.ID, Err: s.failErr}
	}
	if region.Rect.Intersect(s.display.Bounds()).Empty() {
		return nil, &screen.CaptureError{
			Code:     screen.CodeInvalidRegion,
			RegionID: region.ID,
			Err:      fmt.Errorf("region %s lies outside display %s", region.Rect, s.display.Bounds()),
		}
	}

	r := region.Rect
	dst := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	draw.Draw(dst, dst.Bounds(), s.img, image.Point{X: r.X, Y: r.Y}, draw.Src)
	s.captures++

	return &screen.ScreenFrame{
		Display:    s.display,
		Width:      r.Width,
		Height:     r.Height,
		Stride:     dst.Stride,
		Pixels:     dst.Pix,
		CapturedAt: time.Now(),
	}, nil
}

// HashRegion implements screen.Capturer.
func (s *Screen) HashRegion(ctx context.Context, region screen.Region, downscale uint32) (uint64, error) {
	return screen.HashRegion(ctx, s, region, downscale)
}

// ListDisplays implements screen.Capturer.
func (s *Screen) ListDisplays(context.Context) ([]screen.DisplayInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return []screen.DisplayInfo{s.display}, nil
}

var _ screen.Capturer = (*Screen)(nil)
