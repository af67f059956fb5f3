//go:build desktop

package desktop

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-vgo/robotgo"
	"go.uber.org/zap"

	"github.com/xkilldash9x/loopautoma/internal/humanoid"
	"github.com/xkilldash9x/loopautoma/internal/input"
	"github.com/xkilldash9x/loopautoma/internal/screen"
)

// Backend drives the local desktop.
type Backend struct {
	logger *zap.Logger
	glider *humanoid.Glider

	// robotgo is not safe for concurrent use.
	mu sync.Mutex
}

// Open checks that at least one display is reachable.
func Open(_ context.Context, humanize bool, logger *zap.Logger) (*Backend, error) {
	logger = logger.Named("desktop")
	if robotgo.DisplaysNum() < 1 {
		return nil, &screen.CaptureError{Code: screen.CodeNoDisplay, Err: fmt.Errorf("no display detected")}
	}
	b := &Backend{logger: logger}
	if humanize {
		b.glider = humanoid.NewGlider(b, humanoid.DefaultGlideConfig(), 0, logger)
	}
	logger.Info("Desktop backend ready", zap.Int("displays", robotgo.DisplaysNum()))
	return b, nil
}

func (b *Backend) Close() error { return nil }

func (b *Backend) displays() []screen.DisplayInfo {
	n := robotgo.DisplaysNum()
	main := robotgo.GetMainId()
	out := make([]screen.DisplayInfo, 0, n)
	for i := 0; i < n; i++ {
		x, y, w, h := robotgo.GetDisplayBounds(i)
		out = append(out, screen.DisplayInfo{
			ID:          uint32(i),
			Name:        fmt.Sprintf("display-%d", i),
			X:           x,
			Y:           y,
			Width:       w,
			Height:      h,
			ScaleFactor: robotgo.ScaleF(i),
			Primary:     i == main,
		})
	}
	return out
}

func (b *Backend) ListDisplays(ctx context.Context) ([]screen.DisplayInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	displays := b.displays()
	if len(displays) == 0 {
		return nil, &screen.CaptureError{Code: screen.CodeNoDisplay}
	}
	return displays, nil
}

func (b *Backend) CaptureRegion(ctx context.Context, region screen.Region) (*screen.ScreenFrame, error) {
	if err := screen.CheckRegion(region); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, &screen.CaptureError{Code: screen.CodeCaptureFailed, RegionID: region.ID, Err: err}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	display, ok := screen.FindDisplay(b.displays(), region.Rect)
	if !ok {
		return nil, &screen.CaptureError{Code: screen.CodeNoDisplay, RegionID: region.ID}
	}
	r := region.Rect
	img, err := robotgo.CaptureImg(r.X, r.Y, r.Width, r.Height)
	if err != nil {
		return nil, &screen.CaptureError{Code: screen.CodeCaptureFailed, RegionID: region.ID, Err: err}
	}
	return screen.FrameFromImage(img, display), nil
}

func (b *Backend) HashRegion(ctx context.Context, region screen.Region, downscale uint32) (uint64, error) {
	return screen.HashRegion(ctx, b, region, downscale)
}

// MovePointer implements humanoid.Executor.
func (b *Backend) MovePointer(ctx context.Context, x, y int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	robotgo.Move(x, y)
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
		cx, cy := robotgo.Location()
		b.glider.SetPosition(cx, cy)
		return b.glider.MoveTo(ctx, x, y)
	}
	return b.MovePointer(ctx, x, y)
}

func (b *Backend) Click(ctx context.Context, button input.MouseButton) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	robotgo.Click(robotgoButton(button), false)
	return nil
}

func (b *Backend) MouseDown(ctx context.Context, button input.MouseButton) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return robotgo.Toggle(robotgoButton(button))
}

func (b *Backend) MouseUp(ctx context.Context, button input.MouseButton) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return robotgo.Toggle(robotgoButton(button), "up")
}

func (b *Backend) TypeText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	robotgo.TypeStr(text)
	return nil
}

func (b *Backend) key(ctx context.Context, name string, args ...interface{}) error {
	k, err := robotgoKey(name)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(args) == 0 {
		return robotgo.KeyTap(k)
	}
	return robotgo.KeyToggle(k, args...)
}

func (b *Backend) Key(ctx context.Context, name string) error {
	return b.key(ctx, name)
}

func (b *Backend) KeyDown(ctx context.Context, name string) error {
	return b.key(ctx, name, "down")
}

func (b *Backend) KeyUp(ctx context.Context, name string) error {
	return b.key(ctx, name, "up")
}

var (
	_ screen.Capturer   = (*Backend)(nil)
	_ input.Automation  = (*Backend)(nil)
	_ humanoid.Executor = (*Backend)(nil)
)
