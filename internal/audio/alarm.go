// File: internal/audio/alarm.go
package audio

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrDisabled is returned by RecordingNotifier when playback is disabled.
var ErrDisabled = errors.New("Audio disabled")

// Alarm raises the intervention cue without blocking the caller. A slow or
// hung audio backend never delays the run that raised it.
type Alarm struct {
	notifier Notifier
	logger   *zap.Logger
	wg       sync.WaitGroup
}

// NewAlarm wraps notifier.
func NewAlarm(notifier Notifier, logger *zap.Logger) *Alarm {
	return &Alarm{notifier: notifier, logger: logger.Named("alarm")}
}

// Raise plays the intervention cue on its own goroutine and returns immediately.
func (a *Alarm) Raise(reason string) {
	a.logger.Warn("Intervention needed", zap.String("reason", reason))
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.notifier.PlayInterventionNeeded(); err != nil {
			a.logger.Warn("Failed to play intervention cue", zap.Error(err))
		}
	}()
}

// Ended plays the profile-ended cue on its own goroutine.
func (a *Alarm) Ended(profileID string) {
	a.logger.Info("Profile ended", zap.String("profile", profileID))
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.notifier.PlayProfileEnded(); err != nil {
			a.logger.Warn("Failed to play profile-ended cue", zap.Error(err))
		}
	}()
}

// Wait blocks until every raised cue has finished playing. Used on shutdown so
// the process does not exit mid-cue.
func (a *Alarm) Wait() { a.wg.Wait() }

// RecordingNotifier counts cues instead of playing them. It backs dry runs and
// tests. When Block is non-nil every play waits for it to be closed.
type RecordingNotifier struct {
	settings
	Block chan struct{}

	mu            sync.Mutex
	interventions int
	ended         int
}

// NewRecordingNotifier starts enabled at volume 0.5.
func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{settings: settings{enabled: true, volume: 0.5}}
}

func (r *RecordingNotifier) PlayInterventionNeeded() error {
	return r.record(&r.interventions)
}

func (r *RecordingNotifier) PlayProfileEnded() error {
	return r.record(&r.ended)
}

func (r *RecordingNotifier) record(counter *int) error {
	if r.Block != nil {
		<-r.Block
	}
	if !r.IsEnabled() {
		return ErrDisabled
	}
	r.mu.Lock()
	*counter++
	r.mu.Unlock()
	return nil
}

// Interventions returns how many intervention cues were played.
func (r *RecordingNotifier) Interventions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.interventions
}

// ProfileEnded returns how many profile-ended cues were played.
func (r *RecordingNotifier) ProfileEnded() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ended
}
