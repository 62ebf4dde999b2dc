package event

import (
	"log/slog"
	"sync"
)

// Handler consumes a published event. Handlers run synchronously on the
// publishing goroutine and must not block.
type Handler func(Event)

// Bus is a minimal in-process publish/subscribe hub.
// Thread-safe: subscriptions protected by mu; dispatch uses a snapshot
// so handlers may subscribe/unsubscribe re-entrantly.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[int]Handler, 4)}
}

// Subscribe registers a handler for all events.
// Returns an id usable with Unsubscribe.
func (b *Bus) Subscribe(h Handler) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.handlers[b.nextID] = h
	return b.nextID
}

// Unsubscribe removes a handler. Unknown ids are ignored.
func (b *Bus) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, id)
}

// Publish delivers ev to every subscriber; delivery order between
// subscribers is unspecified. A panicking handler is logged and does
// not stop delivery to the others.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	snapshot := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		snapshot = append(snapshot, h)
	}
	b.mu.RUnlock()

	for _, h := range snapshot {
		deliver(h, ev)
	}
}

func deliver(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event handler panicked", "type", ev.EventType(), "panic", r)
		}
	}()
	h(ev)
}
