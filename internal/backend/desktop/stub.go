//go:build !desktop

package desktop

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/xkilldash9x/loopautoma/internal/input"
	"github.com/xkilldash9x/loopautoma/internal/screen"
)

var errNotBuilt = errors.New("desktop backend not compiled in; rebuild with -tags desktop")

func unavailable() error {
	return &screen.CaptureError{Code: screen.CodeBackendUnavailable, Err: errNotBuilt}
}

// Backend is a placeholder; every call fails with backend_unavailable.
type Backend struct{}

// Open always fails in builds without the desktop tag.
func Open(context.Context, bool, *zap.Logger) (*Backend, error) {
	return nil, unavailable()
}

func (*Backend) Close() error { return nil }

func (*Backend) CaptureRegion(context.Context, screen.Region) (*screen.ScreenFrame, error) {
	return nil, unavailable()
}

func (*Backend) HashRegion(context.Context, screen.Region, uint32) (uint64, error) {
	return 0, unavailable()
}

func (*Backend) ListDisplays(context.Context) ([]screen.DisplayInfo, error) {
	return nil, unavailable()
}

func (*Backend) MoveCursor(context.Context, int, int) error         { return unavailable() }
func (*Backend) Click(context.Context, input.MouseButton) error     { return unavailable() }
func (*Backend) MouseDown(context.Context, input.MouseButton) error { return unavailable() }
func (*Backend) MouseUp(context.Context, input.MouseButton) error   { return unavailable() }
func (*Backend) TypeText(context.Context, string) error             { return unavailable() }
func (*Backend) Key(context.Context, string) error                  { return unavailable() }
func (*Backend) KeyDown(context.Context, string) error              { return unavailable() }
func (*Backend) KeyUp(context.Context, string) error                { return unavailable() }

var (
	_ screen.Capturer  = (*Backend)(nil)
	_ input.Automation = (*Backend)(nil)
)
