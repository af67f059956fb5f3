// internal/monitor/profile.go
package monitor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/loopautoma/internal/action"
	"github.com/xkilldash9x/loopautoma/internal/config"
	"github.com/xkilldash9x/loopautoma/internal/input"
	"github.com/xkilldash9x/loopautoma/internal/llmclient"
	"github.com/xkilldash9x/loopautoma/internal/observability"
	"github.com/xkilldash9x/loopautoma/internal/screen"
)

const (
	defaultInterval  = time.Second
	defaultDownscale = 4
)

// Alarm is the audible side channel of a run.
type Alarm interface {
	// Raise signals that a human must intervene. It must not block.
	Raise(reason string)
	// Ended signals that a profile finished successfully. It must not block.
	Ended(profileID string)
}

// Sink persists finished runs.
type Sink interface {
	Record(ctx context.Context, outcome *Outcome) error
}

// Deps are the collaborators shared by every run. All of them must be safe
// for concurrent use; per-run state lives in the Runner.
type Deps struct {
	Capture           screen.Capturer
	Automation        input.Automation
	Client            llmclient.Client
	Alarm             Alarm
	Sink              Sink
	Metrics           *observability.Metrics
	Logger            *zap.Logger
	MaxImageDimension int
}

func (d Deps) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// Profile is a built, immutable automation profile.
type Profile struct {
	ID         string
	Name       string
	Regions    []screen.Region
	Watch      []screen.Region
	Interval   time.Duration
	Downscale  uint32
	Cooldown   time.Duration
	MaxRuntime time.Duration
	Actions    []action.Action
}

// BuildProfile resolves a profile configuration against the monitor defaults
// and builds its actions.
func BuildProfile(cfg config.ProfileConfig, defaults config.MonitorConfig, deps Deps) (*Profile, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Profile{
		ID:         cfg.ID,
		Name:       cfg.Name,
		Interval:   firstPositive(cfg.Interval, defaults.Interval, defaultInterval),
		Cooldown:   firstPositive(cfg.Cooldown, defaults.Cooldown, 0),
		MaxRuntime: firstPositive(cfg.MaxRuntime, defaults.MaxRuntime, 0),
		Downscale:  cfg.Downscale,
	}
	if p.Name == "" {
		p.Name = p.ID
	}
	if p.Downscale == 0 {
		p.Downscale = defaults.Downscale
	}
	if p.Downscale == 0 {
		p.Downscale = defaultDownscale
	}

	byID := make(map[string]screen.Region, len(cfg.Regions))
	for _, rc := range cfg.Regions {
		r := screen.Region{
			ID:   rc.ID,
			Name: rc.Name,
			Rect: screen.Rect{X: rc.X, Y: rc.Y, Width: rc.Width, Height: rc.Height},
		}
		p.Regions = append(p.Regions, r)
		byID[r.ID] = r
	}
	if len(cfg.Watch) == 0 {
		p.Watch = append([]screen.Region(nil), p.Regions...)
	} else {
		for _, id := range cfg.Watch {
			p.Watch = append(p.Watch, byID[id])
		}
	}

	actions, err := action.BuildAll(cfg.Actions, action.Deps{
		Regions:           p.Regions,
		Capturer:          deps.Capture,
		Client:            deps.Client,
		Alarm:             deps.Alarm,
		Logger:            deps.logger().With(zap.String("profile", p.ID)),
		MaxImageDimension: deps.MaxImageDimension,
	})
	if err != nil {
		return nil, fmt.Errorf("profile %q: %w", p.ID, err)
	}
	p.Actions = actions
	return p, nil
}

func firstPositive(values ...time.Duration) time.Duration {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
