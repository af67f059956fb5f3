// File: internal/audio/notifier.go
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/xkilldash9x/loopautoma/internal/config"
	"go.uber.org/zap"
)

// Notifier plays the two audible cues of a run.
type Notifier interface {
	PlayInterventionNeeded() error
	PlayProfileEnded() error
	// SetVolume rejects values outside [0, 1]; it never clamps.
	SetVolume(volume float64) error
	SetEnabled(enabled bool)
	IsEnabled() bool
}

// ErrVolumeRange is returned by SetVolume for out-of-range values.
var ErrVolumeRange = errors.New("Volume must be between 0.0 and 1.0")

// settings is the enabled/volume state shared by every notifier.
type settings struct {
	mu      sync.RWMutex
	enabled bool
	volume  float64
}

func (s *settings) SetVolume(volume float64) error {
	if math.IsNaN(volume) || volume < 0 || volume > 1 {
		return ErrVolumeRange
	}
	s.mu.Lock()
	s.volume = volume
	s.mu.Unlock()
	return nil
}

func (s *settings) Volume() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.volume
}

func (s *settings) SetEnabled(enabled bool) {
	s.mu.Lock()
	s.enabled = enabled
	s.mu.Unlock()
}

func (s *settings) IsEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

// audible reports whether a cue should actually be played.
func (s *settings) audible() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled && s.volume > 0
}

// BellNotifier rings the terminal bell. The intervention cue is three rings,
// the profile-ended cue one.
type BellNotifier struct {
	settings
	mu  sync.Mutex
	out io.Writer
	gap time.Duration
}

// NewBellNotifier writes BEL characters to out.
func NewBellNotifier(out io.Writer, enabled bool, volume float64) *BellNotifier {
	return &BellNotifier{settings: settings{enabled: enabled, volume: volume}, out: out, gap: 150 * time.Millisecond}
}

func (b *BellNotifier) PlayInterventionNeeded() error { return b.ring(3) }
func (b *BellNotifier) PlayProfileEnded() error       { return b.ring(1) }

func (b *BellNotifier) ring(times int) error {
	if !b.audible() {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := 0; i < times; i++ {
		if i > 0 {
			time.Sleep(b.gap)
		}
		if _, err := io.WriteString(b.out, "\a"); err != nil {
			return fmt.Errorf("failed to ring bell: %w", err)
		}
	}
	return nil
}

// CommandNotifier runs an external player (paplay, afplay, aplay ...). The
// cue name ("intervention" or "ended") and the volume are substituted for
// {cue} and {volume} in the argument list.
type CommandNotifier struct {
	settings
	argv    []string
	timeout time.Duration
}

// NewCommandNotifier creates a notifier that executes argv per cue.
func NewCommandNotifier(argv []string, timeout time.Duration, enabled bool, volume float64) (*CommandNotifier, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("audio command must not be empty")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CommandNotifier{settings: settings{enabled: enabled, volume: volume}, argv: argv, timeout: timeout}, nil
}

func (c *CommandNotifier) PlayInterventionNeeded() error { return c.play("intervention") }
func (c *CommandNotifier) PlayProfileEnded() error       { return c.play("ended") }

func (c *CommandNotifier) play(cue string) error {
	if !c.audible() {
		return nil
	}
	replacer := strings.NewReplacer("{cue}", cue, "{volume}", fmt.Sprintf("%.2f", c.Volume()))
	args := make([]string, len(c.argv))
	for i, a := range c.argv {
		args[i] = replacer.Replace(a)
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	if out, err := exec.CommandContext(ctx, args[0], args[1:]...).CombinedOutput(); err != nil {
		return fmt.Errorf("audio command %q failed: %w (output: %s)", args[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Nop never plays anything.
type Nop struct {
	settings
}

// NewNop returns a silent notifier that still tracks its settings.
func NewNop() *Nop { return &Nop{settings: settings{volume: 0.5}} }

func (*Nop) PlayInterventionNeeded() error { return nil }
func (*Nop) PlayProfileEnded() error       { return nil }

// New builds the notifier named by cfg.Backend.
func New(cfg config.AudioConfig, out io.Writer, logger *zap.Logger) (Notifier, error) {
	switch cfg.Backend {
	case "bell", "":
		return NewBellNotifier(out, cfg.Enabled, cfg.Volume), nil
	case "command":
		n, err := NewCommandNotifier(cfg.Command, cfg.Timeout, cfg.Enabled, cfg.Volume)
		if err != nil {
			return nil, err
		}
		return n, nil
	case "none":
		logger.Debug("Audio notifications disabled by configuration")
		return NewNop(), nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q", cfg.Backend)
	}
}
