// File: internal/action/action.go
package action

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/loopautoma/internal/input"
)

// Action is one step of a profile's action sequence. The set of
// implementations is closed: MoveCursor, Click, TypeText, Key and
// LLMPromptGeneration.
type Action interface {
	// Name is the stable display name used in logs and metrics.
	Name() string
	// Execute runs the step. vars is the run's variable context.
	Execute(ctx context.Context, auto input.Automation, vars *Context) error
	sealed()
}

// IsInput reports whether a drives the input backend, as opposed to asking
// the LLM for a decision.
func IsInput(a Action) bool {
	_, decision := a.(*LLMPromptGeneration)
	return !decision
}

// MoveCursor moves the pointer to absolute virtual-desktop coordinates.
type MoveCursor struct {
	X, Y int
}

func (*MoveCursor) Name() string { return "MoveCursor" }
func (*MoveCursor) sealed()      {}

func (a *MoveCursor) Execute(ctx context.Context, auto input.Automation, _ *Context) error {
	return auto.MoveCursor(ctx, a.X, a.Y)
}

// Click presses and releases a mouse button at the current position.
type Click struct {
	Button input.MouseButton
}

func (*Click) Name() string { return "Click" }
func (*Click) sealed()      {}

func (a *Click) Execute(ctx context.Context, auto input.Automation, _ *Context) error {
	return auto.Click(ctx, a.Button)
}

// TypeText types Text after expanding $variables from the run context.
type TypeText struct {
	Text string
}

func (*TypeText) Name() string { return "Type" }
func (*TypeText) sealed()      {}

func (a *TypeText) Execute(ctx context.Context, auto input.Automation, vars *Context) error {
	return auto.TypeText(ctx, vars.Expand(a.Text))
}

// Key presses and releases a named key. Keys the backend cannot map are
// skipped with a warning rather than failing the run.
type Key struct {
	Key    string
	Logger *zap.Logger
}

func (*Key) Name() string { return "Key" }
func (*Key) sealed()      {}

func (a *Key) Execute(ctx context.Context, auto input.Automation, _ *Context) error {
	err := auto.Key(ctx, a.Key)
	if errors.Is(err, input.ErrUnsupportedKey) {
		if a.Logger != nil {
			a.Logger.Warn("Skipping unsupported key", zap.String("key", a.Key))
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("key %q: %w", a.Key, err)
	}
	return nil
}
