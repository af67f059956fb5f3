// internal/monitor/supervisor.go
package monitor

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Supervisor runs independent profiles side by side.
type Supervisor struct {
	limit  int
	logger *zap.Logger
}

// NewSupervisor bounds concurrent runs to limit; a non-positive limit means
// unbounded.
func NewSupervisor(limit int, logger *zap.Logger) *Supervisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Supervisor{limit: limit, logger: logger.Named("supervisor")}
}

// RunAll runs every runner on its own goroutine and waits for all of them.
// A failing run never cancels the others. Outcomes are returned in runner
// order; the error joins every failure.
func (s *Supervisor) RunAll(ctx context.Context, runners []*Runner) ([]*Outcome, error) {
	outcomes := make([]*Outcome, len(runners))
	errs := make([]error, len(runners))

	// A plain group rather than WithContext: sibling failures must not cancel.
	var g errgroup.Group
	if s.limit > 0 {
		g.SetLimit(s.limit)
	}

	s.logger.Info("Starting runs", zap.Int("runs", len(runners)), zap.Int("limit", s.limit))
	for i, runner := range runners {
		g.Go(func() error {
			out, err := runner.Run(ctx)
			outcomes[i] = out
			if err != nil {
				errs[i] = fmt.Errorf("profile %q (run %s): %w", runner.Profile().ID, runner.ID(), err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes, errors.Join(errs...)
}
