package browser

import (
	"testing"

	cdpinput "github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp/kb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/loopautoma/internal/config"
	"github.com/xkilldash9x/loopautoma/internal/input"
	"github.com/xkilldash9x/loopautoma/internal/screen"
)

func TestKeySequence(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Enter", kb.Enter},
		{"return", kb.Enter},
		{"esc", kb.Escape},
		{"ArrowLeft", kb.ArrowLeft},
		{"f5", kb.F5},
		{"a", "a"},
		{"space", " "},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := keySequence(tc.name)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := keySequence("Hyper")
	assert.ErrorIs(t, err, input.ErrUnsupportedKey)
}

func TestKeyEventsSplitDownAndUp(t *testing.T) {
	down, err := keyEvents("a", true)
	require.NoError(t, err)
	up, err := keyEvents("a", false)
	require.NoError(t, err)

	require.NotEmpty(t, down)
	require.NotEmpty(t, up)
	for _, a := range up {
		ev, ok := a.(*cdpinput.DispatchKeyEventParams)
		require.True(t, ok)
		assert.Equal(t, cdpinput.KeyUp, ev.Type)
	}
	for _, a := range down {
		ev, ok := a.(*cdpinput.DispatchKeyEventParams)
		require.True(t, ok)
		assert.NotEqual(t, cdpinput.KeyUp, ev.Type)
	}
}

func TestCdpButton(t *testing.T) {
	assert.Equal(t, cdpinput.Left, cdpButton(input.ButtonLeft))
	assert.Equal(t, cdpinput.Right, cdpButton(input.ButtonRight))
	assert.Equal(t, cdpinput.Middle, cdpButton(input.ButtonMiddle))
	assert.Equal(t, int64(2), buttonMask(input.ButtonRight))
}

func TestClipFor(t *testing.T) {
	clip := clipFor(screen.Rect{X: 10, Y: 20, Width: 30, Height: 40})
	assert.Equal(t, &page.Viewport{X: 10, Y: 20, Width: 30, Height: 40, Scale: 1}, clip)
}

func TestDisplayFromViewport(t *testing.T) {
	fallback := screen.DisplayInfo{ID: 1, Name: "chrome-tab", Width: 1280, Height: 800, ScaleFactor: 1, Primary: true}

	assert.Equal(t, fallback, displayFromViewport(nil, fallback))

	d := displayFromViewport(&page.VisualViewport{ClientWidth: 1024, ClientHeight: 700, Zoom: 2}, fallback)
	assert.Equal(t, 1024, d.Width)
	assert.Equal(t, 700, d.Height)
	assert.Equal(t, 2.0, d.ScaleFactor)
	assert.True(t, d.Primary)
}

func TestAllocatorOptions(t *testing.T) {
	opts := allocatorOptions(config.BrowserBackendConfig{Headless: true, Width: 800, Height: 600})
	assert.Greater(t, len(opts), 2)
}
