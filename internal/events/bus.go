package events

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Handler receives an event payload.
type Handler func(payload any)

type listener struct {
	id uuid.UUID
	fn Handler
}

// Bus is an in-process publish/subscribe channel.
// Listeners for an event are invoked in registration order; a panicking
// listener never prevents delivery to the remaining listeners.
type Bus struct {
	logger *slog.Logger

	mu        sync.Mutex
	listeners map[string][]listener
}

// NewBus creates an empty event bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		logger:    logger,
		listeners: make(map[string][]listener),
	}
}

// On registers a listener for the named event and returns a function
// that removes it. Multiple listeners per event are permitted.
func (b *Bus) On(event string, fn Handler) func() {
	id := uuid.New()

	b.mu.Lock()
	b.listeners[event] = append(b.listeners[event], listener{id: id, fn: fn})
	b.mu.Unlock()

	return func() { b.off(event, id) }
}

func (b *Bus) off(event string, id uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ls := b.listeners[event]
	for i, l := range ls {
		if l.id == id {
			b.listeners[event] = append(ls[:i:i], ls[i+1:]...)
			break
		}
	}
	if len(b.listeners[event]) == 0 {
		delete(b.listeners, event)
	}
}

// Emit delivers the payload to every listener registered for the event.
// Dispatch iterates a snapshot, so removing a listener mid-dispatch never
// skips or double-invokes the remaining ones.
func (b *Bus) Emit(event string, payload any) {
	b.mu.Lock()
	snapshot := make([]listener, len(b.listeners[event]))
	copy(snapshot, b.listeners[event])
	b.mu.Unlock()

	for _, l := range snapshot {
		b.dispatch(event, l, payload)
	}
}

func (b *Bus) dispatch(event string, l listener, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Warn("event listener panicked", "event", event, "panic", r)
		}
	}()
	l.fn(payload)
}

// ListenerCount returns the number of listeners for an event.
func (b *Bus) ListenerCount(event string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners[event])
}
