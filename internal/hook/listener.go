package hook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shahar-caura/lurker/internal/provider"
)

// ErrClosed is returned by Subscribe after Close.
var ErrClosed = errors.New("hook: listener closed")

// Handle identifies a subscription.
type Handle uint64

type subscription struct {
	onClick  func(provider.MouseClick)
	onChange func(provider.ClipboardChange)
}

// Listener owns the process's global input hooks. The hooks are installed
// when the first subscriber arrives and removed when the last one leaves,
// so no hook outlives its subscribers.
//
// Handlers run on the listener's dispatch goroutine, one event at a time.
// They must return quickly and must not call Unsubscribe or Close.
type Listener struct {
	mouse   provider.MouseHook
	watcher provider.ClipboardWatcher
	logger  *slog.Logger

	mu      sync.Mutex
	subs    map[Handle]subscription
	nextID  Handle
	running bool
	closed  bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewListener creates a listener; nothing is installed until Subscribe.
func NewListener(mouse provider.MouseHook, watcher provider.ClipboardWatcher, logger *slog.Logger) *Listener {
	return &Listener{
		mouse:   mouse,
		watcher: watcher,
		logger:  logger,
		subs:    make(map[Handle]subscription),
	}
}

// Subscribe registers handlers for mouse clicks and clipboard changes.
// Either handler may be nil.
func (l *Listener) Subscribe(onClick func(provider.MouseClick), onChange func(provider.ClipboardChange)) (Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return 0, ErrClosed
	}
	if !l.running {
		if err := l.installLocked(); err != nil {
			return 0, err
		}
	}

	l.nextID++
	l.subs[l.nextID] = subscription{onClick: onClick, onChange: onChange}
	return l.nextID, nil
}

// Unsubscribe removes a subscription. Removing the last one uninstalls the
// hooks and waits for the dispatch goroutine to exit.
func (l *Listener) Unsubscribe(h Handle) {
	l.mu.Lock()
	delete(l.subs, h)
	var done chan struct{}
	if len(l.subs) == 0 && l.running {
		done = l.uninstallLocked()
	}
	l.mu.Unlock()

	if done != nil {
		<-done
	}
}

// Close drops every subscription and uninstalls the hooks. Safe to call twice.
func (l *Listener) Close() {
	l.mu.Lock()
	l.closed = true
	clear(l.subs)
	var done chan struct{}
	if l.running {
		done = l.uninstallLocked()
	}
	l.mu.Unlock()

	if done != nil {
		<-done
	}
}

// Running reports whether the OS hooks are currently installed.
func (l *Listener) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

func (l *Listener) installLocked() error {
	clicks, err := l.mouse.Start()
	if err != nil {
		return fmt.Errorf("installing mouse hook: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	changes, err := l.watcher.Watch(ctx)
	if err != nil {
		cancel()
		l.mouse.Stop()
		return fmt.Errorf("watching clipboard: %w", err)
	}

	l.cancel = cancel
	l.done = make(chan struct{})
	l.running = true
	go l.dispatch(ctx, clicks, changes, l.done)

	l.logger.Info("input hooks installed")
	return nil
}

func (l *Listener) uninstallLocked() chan struct{} {
	l.mouse.Stop()
	l.cancel()
	l.running = false
	l.logger.Info("input hooks removed")
	return l.done
}

func (l *Listener) dispatch(ctx context.Context, clicks <-chan provider.MouseClick, changes <-chan provider.ClipboardChange, done chan struct{}) {
	defer close(done)

	for clicks != nil || changes != nil {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-clicks:
			if !ok {
				clicks = nil
				continue
			}
			for _, s := range l.snapshot() {
				if s.onClick != nil {
					s.onClick(c)
				}
			}
		case ch, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			for _, s := range l.snapshot() {
				if s.onChange != nil {
					s.onChange(ch)
				}
			}
		}
	}
}

func (l *Listener) snapshot() []subscription {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]subscription, 0, len(l.subs))
	for _, s := range l.subs {
		out = append(out, s)
	}
	return out
}
