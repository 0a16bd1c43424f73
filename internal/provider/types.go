package provider

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Button identifies a mouse button.
type Button int

const (
	ButtonUnknown Button = iota
	ButtonLeft
	ButtonRight
	ButtonMiddle
)

// ParseButton maps a config name ("left", "right", "middle") to a Button.
func ParseButton(name string) (Button, error) {
	switch strings.ToLower(name) {
	case "left":
		return ButtonLeft, nil
	case "right":
		return ButtonRight, nil
	case "middle":
		return ButtonMiddle, nil
	default:
		return ButtonUnknown, fmt.Errorf("unknown mouse button %q", name)
	}
}

func (b Button) String() string {
	switch b {
	case ButtonLeft:
		return "left"
	case ButtonRight:
		return "right"
	case ButtonMiddle:
		return "middle"
	default:
		return "unknown"
	}
}

// Modifier is a bit set of held modifier keys.
type Modifier uint8

const (
	ModShift Modifier = 1 << iota
	ModCtrl
	ModAlt
	ModMeta
)

// ParseModifiers combines config names ("ctrl", "shift", "alt", "meta") into a Modifier set.
func ParseModifiers(names []string) (Modifier, error) {
	var m Modifier
	for _, name := range names {
		switch strings.ToLower(name) {
		case "shift":
			m |= ModShift
		case "ctrl", "control":
			m |= ModCtrl
		case "alt":
			m |= ModAlt
		case "meta", "super", "cmd":
			m |= ModMeta
		default:
			return 0, fmt.Errorf("unknown modifier %q", name)
		}
	}
	return m, nil
}

var modifierNames = []struct {
	mod  Modifier
	name string
}{
	{ModCtrl, "ctrl"},
	{ModShift, "shift"},
	{ModAlt, "alt"},
	{ModMeta, "meta"},
}

// String renders the set as "ctrl+shift"; the empty set is "none".
func (m Modifier) String() string {
	var parts []string
	for _, n := range modifierNames {
		if m&n.mod != 0 {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "+")
}

// Has reports whether every modifier in want is held.
func (m Modifier) Has(want Modifier) bool { return m&want == want }

// MouseClick is a system-wide mouse click with the modifiers held at the time.
type MouseClick struct {
	Button    Button
	Modifiers Modifier
	At        time.Time
}

// ClipboardChange is an OS notification that the clipboard now holds Text.
type ClipboardChange struct {
	Text string
	At   time.Time
}

// Clipboard is raw, non-retrying access to the OS clipboard. Implementations
// may require every call to come from the same OS thread.
type Clipboard interface {
	ReadText() (string, error)
	Clear() error
}

// MouseHook installs a global mouse hook. Stop must remove it.
type MouseHook interface {
	Start() (<-chan MouseClick, error)
	Stop()
}

// ClipboardWatcher streams clipboard content changes until ctx is cancelled.
type ClipboardWatcher interface {
	Watch(ctx context.Context) (<-chan ClipboardChange, error)
}

// Keyboard simulates keystrokes into the focused window.
type Keyboard interface {
	SendCopy() error
}
