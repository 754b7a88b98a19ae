package testutil

import (
	"sync"

	"github.com/comalice/childtracker"
)

// EventBus is an EventTarget that dispatches synchronously.
type EventBus struct {
	mu        sync.Mutex
	listeners map[string][]childtracker.Listener
}

// NewEventBus creates an empty EventBus.
func NewEventBus() *EventBus {
	return &EventBus{listeners: make(map[string][]childtracker.Listener)}
}

func (b *EventBus) Subscribe(eventType string, l childtracker.Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[eventType] = append(b.listeners[eventType], l)
}

func (b *EventBus) Unsubscribe(eventType string, l childtracker.Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ls := b.listeners[eventType]
	for i, existing := range ls {
		if existing == l {
			b.listeners[eventType] = append(ls[:i], ls[i+1:]...)
			return
		}
	}
}

// Dispatch delivers eventType to its listeners.
func (b *EventBus) Dispatch(eventType string) {
	b.mu.Lock()
	ls := append([]childtracker.Listener(nil), b.listeners[eventType]...)
	b.mu.Unlock()

	for _, l := range ls {
		l.HandleEvent(eventType)
	}
}

// Listeners returns how many listeners are subscribed to eventType.
func (b *EventBus) Listeners(eventType string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners[eventType])
}

var _ childtracker.EventTarget = (*EventBus)(nil)
