// internal/monitor/runner.go
package monitor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/loopautoma/internal/action"
)

// State is the position of a run in its watch/decide/act cycle.
type State int

const (
	StateIdle State = iota
	StateWatching
	StateDeciding
	StateActing
	StateCompleted
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWatching:
		return "watching"
	case StateDeciding:
		return "deciding"
	case StateActing:
		return "acting"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// ErrMaxRuntime ends a run that outlived its profile's max runtime.
var ErrMaxRuntime = errors.New("max runtime exceeded")

// Outcome is the audit record of a finished run. Err keeps the full error
// chain of a failed run.
type Outcome struct {
	RunID     string
	ProfileID string
	State     State
	Reason    string
	Err       error
	Decisions int
	Polls     int
	Vars      map[string]string
	StartedAt time.Time
	EndedAt   time.Time
}

// Duration is the wall-clock length of the run.
func (o *Outcome) Duration() time.Duration { return o.EndedAt.Sub(o.StartedAt) }

// Runner executes one run of a profile. It owns the run's action context and
// must not be shared between runs.
type Runner struct {
	id      string
	profile *Profile
	deps    Deps
	logger  *zap.Logger
	vars    *action.Context
	trigger chan struct{}

	mu      sync.Mutex
	state   State
	started bool

	polls     int
	decisions int
}

// NewRunner prepares a run of p.
func NewRunner(p *Profile, deps Deps) *Runner {
	id := uuid.NewString()
	return &Runner{
		id:      id,
		profile: p,
		deps:    deps,
		logger:  deps.logger().Named("monitor").With(zap.String("profile", p.ID), zap.String("run_id", id)),
		vars:    action.NewContext(),
		trigger: make(chan struct{}, 1),
		state:   StateIdle,
	}
}

// ID returns the run id.
func (r *Runner) ID() string { return r.id }

// Profile returns the profile being run.
func (r *Runner) Profile() *Profile { return r.profile }

// State returns the current state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	prev := r.state
	r.state = s
	r.mu.Unlock()
	if prev != s {
		r.logger.Debug("State transition", zap.Stringer("from", prev), zap.Stringer("to", s))
	}
}

// Trigger forces a decision on the next loop iteration even if no watched
// region changed. It never blocks; repeated triggers coalesce.
func (r *Runner) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Run drives the loop until the run completes, fails or ctx is cancelled. The
// returned error is non-nil only for a Failed run and equals Outcome.Err.
func (r *Runner) Run(ctx context.Context) (*Outcome, error) {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return nil, fmt.Errorf("run %s already started", r.id)
	}
	r.started = true
	r.mu.Unlock()

	started := time.Now()
	r.deps.Metrics.RunStarted()
	r.logger.Info("Run started",
		zap.Int("watched_regions", len(r.profile.Watch)),
		zap.Duration("interval", r.profile.Interval),
		zap.Int("actions", len(r.profile.Actions)))

	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if r.profile.MaxRuntime > 0 {
		runCtx, cancel = context.WithTimeoutCause(ctx, r.profile.MaxRuntime, ErrMaxRuntime)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	state, reason, err := r.loop(runCtx)
	r.setState(state)

	outcome := &Outcome{
		RunID:     r.id,
		ProfileID: r.profile.ID,
		State:     state,
		Reason:    reason,
		Err:       err,
		Decisions: r.decisions,
		Polls:     r.polls,
		Vars:      r.vars.Snapshot(),
		StartedAt: started,
		EndedAt:   time.Now(),
	}
	r.finish(ctx, outcome)

	if state == StateFailed {
		return outcome, err
	}
	return outcome, nil
}

func (r *Runner) finish(ctx context.Context, o *Outcome) {
	r.deps.Metrics.RunFinished(o.ProfileID, o.State.String())

	fields := []zap.Field{
		zap.Stringer("state", o.State),
		zap.Int("decisions", o.Decisions),
		zap.Int("polls", o.Polls),
		zap.Duration("duration", o.Duration()),
	}
	switch o.State {
	case StateCompleted:
		r.logger.Info("Run completed", append(fields, zap.String("reason", o.Reason))...)
		if r.deps.Alarm != nil {
			r.deps.Alarm.Ended(o.ProfileID)
		}
	case StateFailed:
		r.logger.Error("Run failed", append(fields, zap.Error(o.Err))...)
	default:
		r.logger.Info("Run cancelled", fields...)
	}

	if r.deps.Sink == nil {
		return
	}
	// The audit record is written even when the run was cancelled.
	sinkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := r.deps.Sink.Record(sinkCtx, o); err != nil {
		r.logger.Error("Failed to record run outcome", zap.Error(err))
	}
}

// stopped maps a done run context onto its terminal state.
func stopped(runCtx context.Context) (State, string, error) {
	if errors.Is(context.Cause(runCtx), ErrMaxRuntime) {
		return StateFailed, ErrMaxRuntime.Error(), ErrMaxRuntime
	}
	return StateCancelled, "cancelled", runCtx.Err()
}

func (r *Runner) loop(ctx context.Context) (State, string, error) {
	if ctx.Err() != nil {
		return stopped(ctx)
	}

	baseline, err := r.hashWatched(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return stopped(ctx)
		}
		return StateFailed, "baseline capture failed", err
	}
	r.setState(StateWatching)

	var limiter *rate.Limiter
	if r.profile.Cooldown > 0 {
		limiter = rate.NewLimiter(rate.Every(r.profile.Cooldown), 1)
	}

	ticker := time.NewTicker(r.profile.Interval)
	defer ticker.Stop()

	for {
		triggered := false
		select {
		case <-ctx.Done():
			return stopped(ctx)
		case <-ticker.C:
		case <-r.trigger:
			triggered = true
		}

		hashes, err := r.hashWatched(ctx)
		r.polls++
		if err != nil {
			if ctx.Err() != nil {
				return stopped(ctx)
			}
			r.deps.Metrics.ObservePoll(r.profile.ID, "error")
			return StateFailed, "region capture failed", err
		}
		changed := !slices.Equal(hashes, baseline)
		if changed {
			r.deps.Metrics.ObservePoll(r.profile.ID, "changed")
		} else {
			r.deps.Metrics.ObservePoll(r.profile.ID, "unchanged")
		}
		if !changed && !triggered {
			continue
		}
		// Re-baseline before deciding so churn during the decision shows up
		// as a change on the next tick.
		baseline = hashes
		r.logger.Debug("Decision point", zap.Bool("changed", changed), zap.Bool("triggered", triggered))

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				// Either cancelled, or the cooldown outlasts the max runtime.
				<-ctx.Done()
				return stopped(ctx)
			}
		}

		if err := r.cycle(ctx); err != nil {
			var done *action.CompletedError
			switch {
			case errors.As(err, &done):
				return StateCompleted, done.Reason, nil
			case ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
				return stopped(ctx)
			default:
				return StateFailed, err.Error(), err
			}
		}
		r.setState(StateWatching)
	}
}

// hashWatched fingerprints every watched region, in order.
func (r *Runner) hashWatched(ctx context.Context) ([]uint64, error) {
	hashes := make([]uint64, 0, len(r.profile.Watch))
	for _, region := range r.profile.Watch {
		h, err := r.deps.Capture.HashRegion(ctx, region, r.profile.Downscale)
		if err != nil {
			return nil, err
		}
		hashes = append(hashes, h)
	}
	return hashes, nil
}

// cycle runs the action sequence once. Cancellation is honoured only between
// actions; input actions always run to completion.
func (r *Runner) cycle(ctx context.Context) error {
	for i, a := range r.profile.Actions {
		if err := ctx.Err(); err != nil {
			return err
		}

		start := time.Now()
		var err error
		if action.IsInput(a) {
			r.setState(StateActing)
			err = a.Execute(context.WithoutCancel(ctx), r.deps.Automation, r.vars)
		} else {
			r.setState(StateDeciding)
			err = a.Execute(ctx, r.deps.Automation, r.vars)
			r.decisions++
			r.deps.Metrics.ObserveDecision(r.profile.ID, decisionOutcome(err))
		}
		r.deps.Metrics.ObserveAction(a.Name(), time.Since(start))

		if err != nil {
			r.logger.Debug("Action ended the cycle",
				zap.Int("index", i), zap.String("action", a.Name()), zap.Error(err))
			return err
		}
	}
	return nil
}

func decisionOutcome(err error) string {
	var (
		done    *action.CompletedError
		breach  *action.RiskBreachError
		invalid *action.ValidationError
	)
	switch {
	case err == nil:
		return "continuation"
	case errors.As(err, &done):
		return "completed"
	case errors.As(err, &breach):
		return "risk_breach"
	case errors.As(err, &invalid):
		return "invalid"
	default:
		return "error"
	}
}
