package desktop

import (
	"fmt"
	"runtime"

	"github.com/go-vgo/robotgo"

	"github.com/shahar-caura/lurker/internal/provider"
)

// Keyboard sends synthetic keystrokes to the focused window.
type Keyboard struct {
	copyModifier string
}

// NewKeyboard picks the platform copy chord.
func NewKeyboard() *Keyboard {
	mod := "ctrl"
	if runtime.GOOS == "darwin" {
		mod = "cmd"
	}
	return &Keyboard{copyModifier: mod}
}

// SendCopy taps the copy chord.
func (k *Keyboard) SendCopy() error {
	if err := robotgo.KeyTap("c", k.copyModifier); err != nil {
		return fmt.Errorf("sending %s+c: %w", k.copyModifier, err)
	}
	return nil
}

var _ provider.Keyboard = (*Keyboard)(nil)
