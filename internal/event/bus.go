package event

import (
	"log/slog"
	"runtime/debug"
	"strconv"
	"sync"
	"sync/atomic"
)

// Handler receives a published event.
type Handler func(Event)

type subscription struct {
	id      string
	handler Handler
}

const wildcard = "*"

// Bus is a synchronous pub-sub fan-out. Publishers never wait on an
// acknowledgment; a panicking handler is logged and skipped.
type Bus struct {
	logger *slog.Logger

	mu     sync.RWMutex
	subs   map[string][]subscription // event type -> subscriptions
	nextID atomic.Uint64
}

// NewBus creates an empty bus.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		logger: logger,
		subs:   make(map[string][]subscription),
	}
}

// Subscribe registers handler for one event type and returns its subscription ID.
func (b *Bus) Subscribe(eventType string, handler Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := "sub-" + strconv.FormatUint(b.nextID.Add(1), 10)
	b.subs[eventType] = append(b.subs[eventType], subscription{id: id, handler: handler})
	return id
}

// SubscribeAll registers handler for every event type.
func (b *Bus) SubscribeAll(handler Handler) string {
	return b.Subscribe(wildcard, handler)
}

// Unsubscribe removes a subscription. It reports whether the ID was found.
func (b *Bus) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for eventType, subs := range b.subs {
		for i, sub := range subs {
			if sub.id == id {
				b.subs[eventType] = append(subs[:i:i], subs[i+1:]...)
				return true
			}
		}
	}
	return false
}

// Publish delivers e to type-specific handlers, then wildcard handlers,
// each group in registration order.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	specific := append([]subscription(nil), b.subs[e.EventType()]...)
	all := append([]subscription(nil), b.subs[wildcard]...)
	b.mu.RUnlock()

	for _, sub := range specific {
		b.safeCall(sub.handler, e)
	}
	for _, sub := range all {
		b.safeCall(sub.handler, e)
	}
}

// Len returns the number of active subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for _, subs := range b.subs {
		n += len(subs)
	}
	return n
}

func (b *Bus) safeCall(h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked", "type", e.EventType(), "panic", r, "stack", string(debug.Stack()))
		}
	}()
	h(e)
}
