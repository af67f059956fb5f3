// File: internal/input/automation.go
package input

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrUnsupportedKey is returned by backends for key names they cannot map.
var ErrUnsupportedKey = errors.New("unsupported key")

// MouseButton is a platform-neutral mouse button.
type MouseButton string

const (
	ButtonLeft   MouseButton = "left"
	ButtonRight  MouseButton = "right"
	ButtonMiddle MouseButton = "middle"
)

// ParseButton accepts left, right or middle (case-insensitive). An empty string
// means left.
func ParseButton(s string) (MouseButton, error) {
	switch MouseButton(strings.ToLower(strings.TrimSpace(s))) {
	case "", ButtonLeft:
		return ButtonLeft, nil
	case ButtonRight:
		return ButtonRight, nil
	case ButtonMiddle:
		return ButtonMiddle, nil
	}
	return "", fmt.Errorf("unknown mouse button %q", s)
}

// Automation is the input port. Calls are synchronous and block until the OS or
// browser has accepted the event. Implementations must tolerate use from
// independent runs.
type Automation interface {
	MoveCursor(ctx context.Context, x, y int) error
	Click(ctx context.Context, button MouseButton) error
	MouseDown(ctx context.Context, button MouseButton) error
	MouseUp(ctx context.Context, button MouseButton) error
	TypeText(ctx context.Context, text string) error
	Key(ctx context.Context, name string) error
	KeyDown(ctx context.Context, name string) error
	KeyUp(ctx context.Context, name string) error
}

// Canonical key names produced by NormalizeKey.
const (
	KeyEnter     = "Enter"
	KeyTab       = "Tab"
	KeyEscape    = "Escape"
	KeyBackspace = "Backspace"
	KeyDelete    = "Delete"
	KeySpace     = "Space"
	KeyUp        = "ArrowUp"
	KeyDown      = "ArrowDown"
	KeyLeft      = "ArrowLeft"
	KeyRight     = "ArrowRight"
	KeyHome      = "Home"
	KeyEnd       = "End"
	KeyPageUp    = "PageUp"
	KeyPageDown  = "PageDown"
)

var keyAliases = map[string]string{
	"enter":      KeyEnter,
	"return":     KeyEnter,
	"tab":        KeyTab,
	"escape":     KeyEscape,
	"esc":        KeyEscape,
	"backspace":  KeyBackspace,
	"delete":     KeyDelete,
	"del":        KeyDelete,
	"space":      KeySpace,
	"up":         KeyUp,
	"arrowup":    KeyUp,
	"down":       KeyDown,
	"arrowdown":  KeyDown,
	"left":       KeyLeft,
	"arrowleft":  KeyLeft,
	"right":      KeyRight,
	"arrowright": KeyRight,
	"home":       KeyHome,
	"end":        KeyEnd,
	"pageup":     KeyPageUp,
	"pagedown":   KeyPageDown,
}

// NormalizeKey maps a symbolic key name to its canonical form. Function keys
// normalize to "F1".."F12"; a single character is returned unchanged.
func NormalizeKey(name string) (string, bool) {
	if utf8.RuneCountInString(name) == 1 {
		return name, true
	}
	lower := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := keyAliases[lower]; ok {
		return canonical, true
	}
	if len(lower) >= 2 && lower[0] == 'f' {
		var n int
		if _, err := fmt.Sscanf(lower[1:], "%d", &n); err == nil && n >= 1 && n <= 12 && fmt.Sprint(n) == lower[1:] {
			return fmt.Sprintf("F%d", n), true
		}
	}
	return "", false
}
