// Filename: internal/humanoid/executor.go
package humanoid

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Executor is the low-level pointer sink a glide is replayed onto. Browser and
// desktop backends implement it; tests record calls instead.
type Executor interface {
	// MovePointer places the pointer at an absolute pixel position.
	MovePointer(ctx context.Context, x, y int) error
	// Sleep pauses execution, respecting context cancellation.
	Sleep(ctx context.Context, d time.Duration) error
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Glider replays planned glides onto an Executor and remembers where the
// pointer was last placed.
type Glider struct {
	executor Executor
	cfg      GlideConfig
	logger   *zap.Logger

	mu      sync.Mutex
	rng     *rand.Rand
	current Vector2D
	known   bool
}

// NewGlider creates a Glider. A zero seed picks one from the clock.
func NewGlider(executor Executor, cfg GlideConfig, seed int64, logger *zap.Logger) *Glider {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Glider{
		executor: executor,
		cfg:      cfg,
		logger:   logger.Named("humanoid"),
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// SetPosition records the pointer position without moving it.
func (g *Glider) SetPosition(x, y int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current = Point(x, y)
	g.known = true
}

// MoveTo glides from the last known position to (x, y). When no position is
// known yet the pointer jumps directly.
func (g *Glider) MoveTo(ctx context.Context, x, y int) error {
	target := Point(x, y)

	g.mu.Lock()
	from, known := g.current, g.known
	var path []Waypoint
	if known {
		path = Glide(from, target, g.cfg, g.rng)
	}
	g.mu.Unlock()

	if !known {
		path = []Waypoint{{Pos: target}}
	}

	start := time.Now()
	for _, wp := range path {
		if err := g.executor.Sleep(ctx, time.Until(start.Add(wp.Offset))); err != nil {
			return err
		}
		px, py := wp.Pos.Round()
		if err := g.executor.MovePointer(ctx, px, py); err != nil {
			if ctx.Err() == nil {
				g.logger.Warn("Failed to dispatch pointer move", zap.Error(err))
			}
			return err
		}
		g.mu.Lock()
		g.current = wp.Pos
		g.known = true
		g.mu.Unlock()
	}
	return nil
}
