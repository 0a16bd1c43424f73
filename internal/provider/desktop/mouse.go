package desktop

import (
	"errors"
	"sync"
	"time"

	gohook "github.com/robotn/gohook"

	"github.com/shahar-caura/lurker/internal/provider"
)

// libuiohook modifier mask bits, left and right variants.
const (
	maskShift = 1<<0 | 1<<4
	maskCtrl  = 1<<1 | 1<<5
	maskMeta  = 1<<2 | 1<<6
	maskAlt   = 1<<3 | 1<<7
)

// MouseHook is the process-wide gohook event stream filtered to clicks.
// Only one may be started at a time.
type MouseHook struct {
	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewMouseHook returns an idle hook.
func NewMouseHook() *MouseHook { return &MouseHook{} }

// Start installs the global hook.
func (m *MouseHook) Start() (<-chan provider.MouseClick, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stop != nil {
		return nil, errors.New("mouse hook already started")
	}

	events := gohook.Start()
	out := make(chan provider.MouseClick, 16)
	m.stop = make(chan struct{})
	m.done = make(chan struct{})

	go func(stop, done chan struct{}) {
		defer close(done)
		defer close(out)
		for {
			select {
			case <-stop:
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				if ev.Kind != gohook.MouseDown {
					continue
				}
				click := provider.MouseClick{
					Button:    button(ev.Button),
					Modifiers: modifiers(ev.Mask),
					At:        time.Now(),
				}
				select {
				case out <- click:
				default:
					// Consumer is behind; a missed click is harmless.
				}
			}
		}
	}(m.stop, m.done)

	return out, nil
}

// Stop removes the global hook and waits for the translator to exit.
func (m *MouseHook) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stop == nil {
		return
	}
	close(m.stop)
	gohook.End()
	<-m.done
	m.stop, m.done = nil, nil
}

func button(b uint16) provider.Button {
	switch b {
	case 1:
		return provider.ButtonLeft
	case 2:
		return provider.ButtonRight
	case 3:
		return provider.ButtonMiddle
	default:
		return provider.ButtonUnknown
	}
}

func modifiers(mask uint16) provider.Modifier {
	var m provider.Modifier
	if mask&maskShift != 0 {
		m |= provider.ModShift
	}
	if mask&maskCtrl != 0 {
		m |= provider.ModCtrl
	}
	if mask&maskAlt != 0 {
		m |= provider.ModAlt
	}
	if mask&maskMeta != 0 {
		m |= provider.ModMeta
	}
	return m
}

var _ provider.MouseHook = (*MouseHook)(nil)
