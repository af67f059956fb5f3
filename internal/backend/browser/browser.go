// Package browser drives a Chrome tab through the DevTools protocol: region
// screenshots for capture, synthesized mouse and keyboard events for input.
package browser

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"sync"
	"time"

	cdpinput "github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/loopautoma/internal/config"
	"github.com/xkilldash9x/loopautoma/internal/humanoid"
	"github.com/xkilldash9x/loopautoma/internal/input"
	"github.com/xkilldash9x/loopautoma/internal/screen"
)

const eventTimeout = 10 * time.Second

// Backend implements screen.Capturer and input.Automation for one tab.
type Backend struct {
	tabCtx   context.Context
	cancel   context.CancelFunc
	logger   *zap.Logger
	glider   *humanoid.Glider
	fallback screen.DisplayInfo

	// mu serializes input so events from different runs never interleave.
	mu   sync.Mutex
	x, y int
}

func allocatorOptions(cfg config.BrowserBackendConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption(nil), chromedp.DefaultExecAllocatorOptions[:]...)
	return append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.WindowSize(cfg.Width, cfg.Height),
	)
}

// Open launches Chrome, opens cfg.URL and sizes the viewport. The returned
// backend owns the browser until Close.
func Open(ctx context.Context, cfg config.BrowserBackendConfig, humanize bool, logger *zap.Logger) (*Backend, error) {
	logger = logger.Named("browser")

	// The browser lives until Close, not until the caller's context ends.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocatorOptions(cfg)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(logger.Sugar().Debugf),
		chromedp.WithErrorf(logger.Sugar().Errorf),
	)
	cancel := func() {
		tabCancel()
		allocCancel()
	}

	startCtx, startCancel := context.WithTimeout(tabCtx, 30*time.Second)
	defer startCancel()
	stop := context.AfterFunc(ctx, startCancel)
	defer stop()

	if err := chromedp.Run(startCtx,
		chromedp.EmulateViewport(int64(cfg.Width), int64(cfg.Height)),
		chromedp.Navigate(cfg.URL),
	); err != nil {
		cancel()
		return nil, &screen.CaptureError{Code: screen.CodeBackendUnavailable, Err: fmt.Errorf("failed to start browser: %w", err)}
	}

	b := &Backend{
		tabCtx: tabCtx,
		cancel: cancel,
		logger: logger,
		fallback: screen.DisplayInfo{
			ID: 1, Name: "chrome-tab", Width: cfg.Width, Height: cfg.Height, ScaleFactor: 1.0, Primary: true,
		},
	}
	if humanize {
		b.glider = humanoid.NewGlider(b, humanoid.DefaultGlideConfig(), 0, logger)
	}
	logger.Info("Browser backend ready", zap.String("url", cfg.URL), zap.Bool("headless", cfg.Headless))
	return b, nil
}

// Close shuts the tab and the browser process down.
func (b *Backend) Close() error {
	b.cancel()
	return nil
}

// run executes actions on the tab, cancelled when either ctx or the tab ends.
func (b *Backend) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	opCtx, cancel := context.WithTimeout(b.tabCtx, eventTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(opCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// -- Capture --

func clipFor(r screen.Rect) *page.Viewport {
	return &page.Viewport{
		X:      float64(r.X),
		Y:      float64(r.Y),
		Width:  float64(r.Width),
		Height: float64(r.Height),
		Scale:  1,
	}
}

func displayFromViewport(vp *page.VisualViewport, fallback screen.DisplayInfo) screen.DisplayInfo {
	if vp == nil || vp.ClientWidth <= 0 || vp.ClientHeight <= 0 {
		return fallback
	}
	d := fallback
	d.Width = int(vp.ClientWidth)
	d.Height = int(vp.ClientHeight)
	if vp.Zoom > 0 {
		d.ScaleFactor = vp.Zoom
	}
	return d
}

func (b *Backend) CaptureRegion(ctx context.Context, region screen.Region) (*screen.ScreenFrame, error) {
	if err := screen.CheckRegion(region); err != nil {
		return nil, err
	}

	var data []byte
	err := b.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		data, err = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatPng).
			WithClip(clipFor(region.Rect)).
			Do(ctx)
		return err
	}))
	if err != nil {
		return nil, &screen.CaptureError{Code: screen.CodeCaptureFailed, RegionID: region.ID, Err: err}
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &screen.CaptureError{Code: screen.CodeCaptureFailed, RegionID: region.ID, Err: fmt.Errorf("decode screenshot: %w", err)}
	}
	return screen.FrameFromImage(img, b.fallback), nil
}

func (b *Backend) HashRegion(ctx context.Context, region screen.Region, downscale uint32) (uint64, error) {
	return screen.HashRegion(ctx, b, region, downscale)
}

// ListDisplays reports the tab viewport as a single display.
func (b *Backend) ListDisplays(ctx context.Context) ([]screen.DisplayInfo, error) {
	var vp *page.VisualViewport
	err := b.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		_, _, _, _, vp, _, err = page.GetLayoutMetrics().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, &screen.CaptureError{Code: screen.CodeNoDisplay, Err: err}
	}
	return []screen.DisplayInfo{displayFromViewport(vp, b.fallback)}, nil
}

// -- Input --

func cdpButton(button input.MouseButton) cdpinput.MouseButton {
	switch button {
	case input.ButtonRight:
		return cdpinput.Right
	case input.ButtonMiddle:
		return cdpinput.Middle
	default:
		return cdpinput.Left
	}
}

func buttonMask(button input.MouseButton) int64 {
	switch button {
	case input.ButtonRight:
		return 2
	case input.ButtonMiddle:
		return 4
	default:
		return 1
	}
}

// MovePointer dispatches a single mouseMoved event. It is the humanoid
// executor hook; MoveCursor is the public entry point.
func (b *Backend) MovePointer(ctx context.Context, x, y int) error {
	if err := b.run(ctx, cdpinput.DispatchMouseEvent(cdpinput.MouseMoved, float64(x), float64(y))); err != nil {
		return fmt.Errorf("mouse move: %w", err)
	}
	b.x, b.y = x, y
	return nil
}

// Sleep implements humanoid.Executor.
func (b *Backend) Sleep(ctx context.Context, d time.Duration) error {
	return humanoid.SleepContext(ctx, d)
}

func (b *Backend) MoveCursor(ctx context.Context, x, y int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.glider != nil {
		b.glider.SetPosition(b.x, b.y)
		return b.glider.MoveTo(ctx, x, y)
	}
	return b.MovePointer(ctx, x, y)
}

func (b *Backend) mouseEvent(typ cdpinput.MouseType, button input.MouseButton) *cdpinput.DispatchMouseEventParams {
	return cdpinput.DispatchMouseEvent(typ, float64(b.x), float64(b.y)).
		WithButton(cdpButton(button)).
		WithButtons(buttonMask(button)).
		WithClickCount(1)
}

func (b *Backend) Click(ctx context.Context, button input.MouseButton) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.run(ctx,
		b.mouseEvent(cdpinput.MousePressed, button),
		b.mouseEvent(cdpinput.MouseReleased, button),
	); err != nil {
		return fmt.Errorf("mouse click: %w", err)
	}
	return nil
}

func (b *Backend) MouseDown(ctx context.Context, button input.MouseButton) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.run(ctx, b.mouseEvent(cdpinput.MousePressed, button))
}

func (b *Backend) MouseUp(ctx context.Context, button input.MouseButton) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.run(ctx, b.mouseEvent(cdpinput.MouseReleased, button))
}

// TypeText inserts text into the focused element as a single IME commit.
func (b *Backend) TypeText(ctx context.Context, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.run(ctx, cdpinput.InsertText(text)); err != nil {
		return fmt.Errorf("insert text: %w", err)
	}
	return nil
}

func (b *Backend) Key(ctx context.Context, name string) error {
	seq, err := keySequence(name)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.run(ctx, chromedp.KeyEvent(seq))
}

func (b *Backend) KeyDown(ctx context.Context, name string) error {
	events, err := keyEvents(name, true)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.run(ctx, events...)
}

func (b *Backend) KeyUp(ctx context.Context, name string) error {
	events, err := keyEvents(name, false)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.run(ctx, events...)
}

var (
	_ screen.Capturer   = (*Backend)(nil)
	_ input.Automation  = (*Backend)(nil)
	_ humanoid.Executor = (*Backend)(nil)
)
