// Filename: internal/humanoid/glide_test.go
package humanoid

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Infrastructure
// =============================================================================

type mockExecutor struct {
	mu     sync.Mutex
	moves  [][2]int
	sleeps []time.Duration

	failOnCall int
	returnErr  error
	calls      int
}

func (m *mockExecutor) MovePointer(_ context.Context, x, y int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failOnCall > 0 && m.calls >= m.failOnCall {
		return m.returnErr
	}
	m.moves = append(m.moves, [2]int{x, y})
	return nil
}

func (m *mockExecutor) Sleep(ctx context.Context, d time.Duration) error {
	m.mu.Lock()
	m.sleeps = append(m.sleeps, d)
	m.mu.Unlock()
	return ctx.Err()
}

// =============================================================================
// Tests
// =============================================================================

func TestGlideEndpointsExact(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	from, to := Vector2D{X: 10, Y: 20}, Vector2D{X: 640, Y: 400}

	path := Glide(from, to, DefaultGlideConfig(), rng)

	require.GreaterOrEqual(t, len(path), 2)
	assert.Equal(t, from, path[0].Pos)
	assert.Equal(t, to, path[len(path)-1].Pos)
	assert.Zero(t, path[0].Offset)
	for i := 1; i < len(path); i++ {
		assert.GreaterOrEqual(t, path[i].Offset, path[i-1].Offset, "offsets are monotonic")
	}
}

func TestGlideShortDistanceJumps(t *testing.T) {
	path := Glide(Vector2D{X: 5, Y: 5}, Vector2D{X: 5.5, Y: 5}, DefaultGlideConfig(), rand.New(rand.NewSource(1)))
	require.Len(t, path, 1)
	assert.Equal(t, Vector2D{X: 5.5, Y: 5}, path[0].Pos)
}

func TestGlideStaysNearSegment(t *testing.T) {
	cfg := DefaultGlideConfig()
	from, to := Vector2D{X: 0, Y: 0}, Vector2D{X: 300, Y: 0}
	path := Glide(from, to, cfg, rand.New(rand.NewSource(7)))

	// Bow plus drift bounds how far the path can leave the straight line.
	limit := cfg.CurveBow*300 + 2*cfg.PerlinAmplitude + 1
	for _, wp := range path {
		assert.LessOrEqual(t, wp.Pos.Y, limit)
		assert.GreaterOrEqual(t, wp.Pos.Y, -limit)
	}
}

func TestGlideDeterministicForSeed(t *testing.T) {
	a := Glide(Vector2D{}, Vector2D{X: 200, Y: 100}, DefaultGlideConfig(), rand.New(rand.NewSource(9)))
	b := Glide(Vector2D{}, Vector2D{X: 200, Y: 100}, DefaultGlideConfig(), rand.New(rand.NewSource(9)))
	assert.Equal(t, a, b)
}

func TestEaseInOutCubic(t *testing.T) {
	assert.Equal(t, 0.0, computeEaseInOutCubic(0))
	assert.Equal(t, 0.5, computeEaseInOutCubic(0.5))
	assert.Equal(t, 1.0, computeEaseInOutCubic(1))
}

func TestGliderMoveTo(t *testing.T) {
	exec := &mockExecutor{}
	g := NewGlider(exec, DefaultGlideConfig(), 3, nil)

	// Unknown start position: a single direct move.
	require.NoError(t, g.MoveTo(context.Background(), 100, 100))
	assert.Equal(t, [][2]int{{100, 100}}, exec.moves)

	require.NoError(t, g.MoveTo(context.Background(), 400, 250))
	require.Greater(t, len(exec.moves), 2)
	assert.Equal(t, [2]int{100, 100}, exec.moves[1])
	assert.Equal(t, [2]int{400, 250}, exec.moves[len(exec.moves)-1])
}

func TestGliderStopsOnError(t *testing.T) {
	boom := errors.New("dispatch failed")
	exec := &mockExecutor{failOnCall: 3, returnErr: boom}
	g := NewGlider(exec, DefaultGlideConfig(), 5, nil)
	g.SetPosition(0, 0)

	err := g.MoveTo(context.Background(), 500, 500)
	require.ErrorIs(t, err, boom)
	assert.Len(t, exec.moves, 2)
}

func TestGliderHonoursCancellation(t *testing.T) {
	exec := &mockExecutor{}
	g := NewGlider(exec, DefaultGlideConfig(), 5, nil)
	g.SetPosition(0, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := g.MoveTo(ctx, 500, 500)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, exec.moves)
}

func TestSleepContext(t *testing.T) {
	require.NoError(t, SleepContext(context.Background(), time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, SleepContext(ctx, time.Hour), context.Canceled)
}
