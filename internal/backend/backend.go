// Package backend opens the capture and input implementation selected by
// configuration.
package backend

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/loopautoma/internal/backend/browser"
	"github.com/xkilldash9x/loopautoma/internal/backend/desktop"
	"github.com/xkilldash9x/loopautoma/internal/backend/virtual"
	"github.com/xkilldash9x/loopautoma/internal/config"
	"github.com/xkilldash9x/loopautoma/internal/input"
	"github.com/xkilldash9x/loopautoma/internal/screen"
)

// Set pairs a capturer with the automation that drives the same surface.
type Set struct {
	Kind       string
	Capture    screen.Capturer
	Automation input.Automation
	close      func() error
}

// Close releases the backend. Safe to call on a nil Set.
func (s *Set) Close() error {
	if s == nil || s.close == nil {
		return nil
	}
	return s.close()
}

// NewVirtualSet wraps an existing virtual screen and recorder.
func NewVirtualSet(scr *virtual.Screen, rec *virtual.Recorder) *Set {
	return &Set{Kind: "virtual", Capture: scr, Automation: rec}
}

// Open builds the backend named by cfg.Kind.
func Open(ctx context.Context, cfg config.BackendConfig, logger *zap.Logger) (*Set, error) {
	logger = logger.Named("backend")

	switch cfg.Kind {
	case "virtual", "":
		logger.Info("Using virtual backend",
			zap.Int("width", cfg.Virtual.Width), zap.Int("height", cfg.Virtual.Height))
		return NewVirtualSet(virtual.NewScreen(cfg.Virtual.Width, cfg.Virtual.Height), virtual.NewRecorder()), nil

	case "browser":
		b, err := browser.Open(ctx, cfg.Browser, cfg.Humanize, logger)
		if err != nil {
			return nil, err
		}
		return &Set{Kind: cfg.Kind, Capture: b, Automation: b, close: b.Close}, nil

	case "desktop":
		d, err := desktop.Open(ctx, cfg.Humanize, logger)
		if err != nil {
			return nil, err
		}
		return &Set{Kind: cfg.Kind, Capture: d, Automation: d, close: d.Close}, nil

	default:
		return nil, fmt.Errorf("unknown backend kind %q", cfg.Kind)
	}
}
