package browser

import (
	"fmt"

	cdpinput "github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"github.com/xkilldash9x/loopautoma/internal/input"
)

var namedKeys = map[string]string{
	input.KeyEnter:     kb.Enter,
	input.KeyTab:       kb.Tab,
	input.KeyEscape:    kb.Escape,
	input.KeyBackspace: kb.Backspace,
	input.KeyDelete:    kb.Delete,
	input.KeySpace:     " ",
	input.KeyUp:        kb.ArrowUp,
	input.KeyDown:      kb.ArrowDown,
	input.KeyLeft:      kb.ArrowLeft,
	input.KeyRight:     kb.ArrowRight,
	input.KeyHome:      kb.Home,
	input.KeyEnd:       kb.End,
	input.KeyPageUp:    kb.PageUp,
	input.KeyPageDown:  kb.PageDown,
	"F1":               kb.F1,
	"F2":               kb.F2,
	"F3":               kb.F3,
	"F4":               kb.F4,
	"F5":               kb.F5,
	"F6":               kb.F6,
	"F7":               kb.F7,
	"F8":               kb.F8,
	"F9":               kb.F9,
	"F10":              kb.F10,
	"F11":              kb.F11,
	"F12":              kb.F12,
}

// keySequence maps a symbolic key name onto the string chromedp.KeyEvent
// understands.
func keySequence(name string) (string, error) {
	canonical, ok := input.NormalizeKey(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", input.ErrUnsupportedKey, name)
	}
	if seq, ok := namedKeys[canonical]; ok {
		return seq, nil
	}
	// Single printable character.
	return canonical, nil
}

// keyEvents returns only the down (or only the up) half of a key press.
func keyEvents(name string, down bool) ([]chromedp.Action, error) {
	seq, err := keySequence(name)
	if err != nil {
		return nil, err
	}
	var actions []chromedp.Action
	for _, r := range seq {
		for _, ev := range kb.Encode(r) {
			isUp := ev.Type == cdpinput.KeyUp
			if isUp != down {
				actions = append(actions, ev)
			}
		}
	}
	return actions, nil
}
