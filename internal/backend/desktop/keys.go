// Package desktop captures the real screen and synthesizes OS input through
// robotgo. The native implementation is compiled only with the "desktop" build
// tag because robotgo needs cgo and platform headers.
package desktop

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/loopautoma/internal/input"
)

var robotgoKeys = map[string]string{
	input.KeyEnter:     "enter",
	input.KeyTab:       "tab",
	input.KeyEscape:    "esc",
	input.KeyBackspace: "backspace",
	input.KeyDelete:    "delete",
	input.KeySpace:     "space",
	input.KeyUp:        "up",
	input.KeyDown:      "down",
	input.KeyLeft:      "left",
	input.KeyRight:     "right",
	input.KeyHome:      "home",
	input.KeyEnd:       "end",
	input.KeyPageUp:    "pageup",
	input.KeyPageDown:  "pagedown",
}

// robotgoKey maps a symbolic key name onto robotgo's key vocabulary.
func robotgoKey(name string) (string, error) {
	canonical, ok := input.NormalizeKey(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", input.ErrUnsupportedKey, name)
	}
	if k, ok := robotgoKeys[canonical]; ok {
		return k, nil
	}
	if len(canonical) > 1 && canonical[0] == 'F' {
		return strings.ToLower(canonical), nil
	}
	return canonical, nil
}

func robotgoButton(button input.MouseButton) string {
	switch button {
	case input.ButtonRight:
		return "right"
	case input.ButtonMiddle:
		return "center"
	default:
		return "left"
	}
}
