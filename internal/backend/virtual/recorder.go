package virtual

import (
	"context"
	"fmt"
	"sync"

	"github.com/xkilldash9x/loopautoma/internal/input"
)

// EventKind names a recorded input event.
type EventKind string

const (
	EventMove      EventKind = "move"
	EventClick     EventKind = "click"
	EventMouseDown EventKind = "mouse_down"
	EventMouseUp   EventKind = "mouse_up"
	EventType      EventKind = "type"
	EventKey       EventKind = "key"
	EventKeyDown   EventKind = "key_down"
	EventKeyUp     EventKind = "key_up"
)

// Event is one recorded input call.
type Event struct {
	Kind   EventKind
	X, Y   int
	Button input.MouseButton
	Text   string
	Key    string
}

func (e Event) String() string {
	switch e.Kind {
	case EventMove:
		return fmt.Sprintf("move(%d,%d)", e.X, e.Y)
	case EventClick, EventMouseDown, EventMouseUp:
		return fmt.Sprintf("%s(%s)", e.Kind, e.Button)
	case EventType:
		return fmt.Sprintf("type(%q)", e.Text)
	default:
		return fmt.Sprintf("%s(%s)", e.Kind, e.Key)
	}
}

// Recorder implements input.Automation by recording every call. Key names
// that input.NormalizeKey cannot map fail with input.ErrUnsupportedKey.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	x, y   int

	// OnEvent, when set, is called after each recorded event, outside the lock.
	// Tests use it to change the Screen in response to input.
	OnEvent func(Event)
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) record(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	if ev.Kind == EventMove {
		r.x, r.y = ev.X, ev.Y
	}
	r.events = append(r.events, ev)
	hook := r.OnEvent
	r.mu.Unlock()

	if hook != nil {
		hook(ev)
	}
	return nil
}

func (r *Recorder) recordKey(ctx context.Context, kind EventKind, name string) error {
	key, ok := input.NormalizeKey(name)
	if !ok {
		return fmt.Errorf("%w: %q", input.ErrUnsupportedKey, name)
	}
	return r.record(ctx, Event{Kind: kind, Key: key})
}

func (r *Recorder) MoveCursor(ctx context.Context, x, y int) error {
	return r.record(ctx, Event{Kind: EventMove, X: x, Y: y})
}

func (r *Recorder) Click(ctx context.Context, button input.MouseButton) error {
	x, y := r.Position()
	return r.record(ctx, Event{Kind: EventClick, X: x, Y: y, Button: button})
}

func (r *Recorder) MouseDown(ctx context.Context, button input.MouseButton) error {
	x, y := r.Position()
	return r.record(ctx, Event{Kind: EventMouseDown, X: x, Y: y, Button: button})
}

func (r *Recorder) MouseUp(ctx context.Context, button input.MouseButton) error {
	x, y := r.Position()
	return r.record(ctx, Event{Kind: EventMouseUp, X: x, Y: y, Button: button})
}

func (r *Recorder) TypeText(ctx context.Context, text string) error {
	return r.record(ctx, Event{Kind: EventType, Text: text})
}

func (r *Recorder) Key(ctx context.Context, name string) error {
	return r.recordKey(ctx, EventKey, name)
}

func (r *Recorder) KeyDown(ctx context.Context, name string) error {
	return r.recordKey(ctx, EventKeyDown, name)
}

func (r *Recorder) KeyUp(ctx context.Context, name string) error {
	return r.recordKey(ctx, EventKeyUp, name)
}

// Position returns the last cursor position.
func (r *Recorder) Position() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.x, r.y
}

// Events returns a copy of every recorded event.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Typed returns the text of every TypeText call, in order.
func (r *Recorder) Typed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, ev := range r.events {
		if ev.Kind == EventType {
			out = append(out, ev.Text)
		}
	}
	return out
}

// Reset discards recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

var _ input.Automation = (*Recorder)(nil)
