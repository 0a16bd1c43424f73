// Package desktop binds the provider interfaces to the running desktop
// session. Everything here needs a display server.
package desktop

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.design/x/clipboard"

	"github.com/shahar-caura/lurker/internal/provider"
)

var (
	initOnce sync.Once
	initErr  error
)

func initClipboard() error {
	initOnce.Do(func() { initErr = clipboard.Init() })
	return initErr
}

// Clipboard is the system clipboard, text format only.
type Clipboard struct{}

// NewClipboard initialises the platform clipboard.
func NewClipboard() (*Clipboard, error) {
	if err := initClipboard(); err != nil {
		return nil, fmt.Errorf("initialising clipboard: %w", err)
	}
	return &Clipboard{}, nil
}

// ReadText returns the clipboard text; non-text content reads as "".
// The library retries contention itself and reports no errors.
func (c *Clipboard) ReadText() (string, error) {
	return string(clipboard.Read(clipboard.FmtText)), nil
}

// Clear replaces the clipboard content with empty text.
func (c *Clipboard) Clear() error {
	clipboard.Write(clipboard.FmtText, []byte{})
	return nil
}

// Watch streams text clipboard changes until ctx is cancelled.
func (c *Clipboard) Watch(ctx context.Context) (<-chan provider.ClipboardChange, error) {
	if err := initClipboard(); err != nil {
		return nil, fmt.Errorf("initialising clipboard: %w", err)
	}

	raw := clipboard.Watch(ctx, clipboard.FmtText)
	out := make(chan provider.ClipboardChange, 16)
	go func() {
		defer close(out)
		for data := range raw {
			select {
			case out <- provider.ClipboardChange{Text: string(data), At: time.Now()}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

var (
	_ provider.Clipboard        = (*Clipboard)(nil)
	_ provider.ClipboardWatcher = (*Clipboard)(nil)
)
