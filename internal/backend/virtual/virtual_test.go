package virtual

import (
	"context"
	"errors"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/loopautoma/internal/input"
	"github.com/xkilldash9x/loopautoma/internal/screen"
)

var red = color.RGBA{R: 255, A: 255}

func TestScreenCaptureRegion(t *testing.T) {
	s := NewScreen(64, 48)
	s.Fill(screen.Rect{X: 10, Y: 10, Width: 4, Height: 4}, red)

	frame, err := s.CaptureRegion(context.Background(), screen.Region{ID: "box", Rect: screen.Rect{X: 10, Y: 10, Width: 4, Height: 4}})
	require.NoError(t, err)
	assert.Equal(t, 4, frame.Width)
	assert.Equal(t, 4, frame.Height)
	assert.Equal(t, byte(255), frame.Pixels[0])
	assert.Equal(t, byte(255), frame.Pixels[3])
	assert.Equal(t, 1, s.Captures())
}

func TestScreenCaptureErrors(t *testing.T) {
	s := NewScreen(64, 48)

	_, err := s.CaptureRegion(context.Background(), screen.Region{ID: "flat", Rect: screen.Rect{Width: 0, Height: 5}})
	var cerr *screen.CaptureError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, screen.CodeInvalidRegion, cerr.Code)

	_, err = s.CaptureRegion(context.Background(), screen.Region{ID: "far", Rect: screen.Rect{X: 500, Y: 500, Width: 5, Height: 5}})
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, screen.CodeInvalidRegion, cerr.Code)
	assert.Equal(t, "far", cerr.RegionID)

	boom := errors.New("compositor gone")
	s.FailWith(boom)
	_, err = s.CaptureRegion(context.Background(), screen.Region{ID: "ok", Rect: screen.Rect{Width: 5, Height: 5}})
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, screen.CodeCaptureFailed, cerr.Code)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, s.Captures())
}

func TestScreenHashRegionTracksChanges(t *testing.T) {
	s := NewScreen(32, 32)
	region := screen.Region{ID: "r", Rect: screen.Rect{X: 0, Y: 0, Width: 16, Height: 16}}

	h1, err := s.HashRegion(context.Background(), region, 1)
	require.NoError(t, err)
	h2, err := s.HashRegion(context.Background(), region, 1)
	require.NoError(t, err)
	assert.Equal(t, h1, h2, "unchanged pixels hash identically")

	s.SetPixel(3, 3, red)
	h3, err := s.HashRegion(context.Background(), region, 1)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)

	zero, err := s.HashRegion(context.Background(), screen.Region{ID: "z"}, 1)
	require.NoError(t, err)
	assert.Zero(t, zero)
}

func TestScreenListDisplays(t *testing.T) {
	displays, err := NewScreen(1280, 800).ListDisplays(context.Background())
	require.NoError(t, err)
	require.Len(t, displays, 1)
	assert.True(t, displays[0].Primary)
	assert.Equal(t, 1280, displays[0].Width)
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	var seen []Event
	r.OnEvent = func(ev Event) { seen = append(seen, ev) }
	ctx := context.Background()

	require.NoError(t, r.MoveCursor(ctx, 5, 6))
	require.NoError(t, r.Click(ctx, input.ButtonLeft))
	require.NoError(t, r.TypeText(ctx, "hello"))
	require.NoError(t, r.Key(ctx, "return"))

	err := r.Key(ctx, "Hyper")
	assert.ErrorIs(t, err, input.ErrUnsupportedKey)

	events := r.Events()
	require.Len(t, events, 4)
	assert.Equal(t, Event{Kind: EventClick, X: 5, Y: 6, Button: input.ButtonLeft}, events[1])
	assert.Equal(t, "Enter", events[3].Key)
	assert.Equal(t, []string{"hello"}, r.Typed())
	assert.Equal(t, events, seen)
	assert.Equal(t, `type("hello")`, events[2].String())

	r.Reset()
	assert.Empty(t, r.Events())
}

func TestRecorderHonoursCancellation(t *testing.T) {
	r := NewRecorder()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, r.TypeText(ctx, "x"), context.Canceled)
	assert.Empty(t, r.Events())
}
