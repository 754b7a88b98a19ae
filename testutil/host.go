// Package testutil provides in-memory hosts for driving trackers in tests.
package testutil

import (
	"sync"

	"github.com/comalice/childtracker"
	"github.com/comalice/childtracker/geometry"
)

// Message is one message sent through a FakeHost.
type Message struct {
	Event   string
	Payload string
}

// FakeHost records outbound messages and lets tests deliver inbound ones.
// Geometry is fixed until changed with SetFrame or SetViewport.
type FakeHost struct {
	mu       sync.Mutex
	sent     []Message
	handlers map[string][]func(string)
	frame    geometry.Box
	viewport geometry.Viewport

	// OnSend, when set, runs after a message is recorded.
	OnSend func(Message)
}

// NewFakeHost creates a FakeHost with the given geometry.
func NewFakeHost(frame geometry.Box, viewport geometry.Viewport) *FakeHost {
	return &FakeHost{
		handlers: make(map[string][]func(string)),
		frame:    frame,
		viewport: viewport,
	}
}

func (h *FakeHost) SendMessage(event, payload string) {
	h.mu.Lock()
	msg := Message{Event: event, Payload: payload}
	h.sent = append(h.sent, msg)
	onSend := h.OnSend
	h.mu.Unlock()

	if onSend != nil {
		onSend(msg)
	}
}

func (h *FakeHost) OnMessage(event string, handler func(string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[event] = append(h.handlers[event], handler)
}

// Deliver invokes every handler registered for event.
func (h *FakeHost) Deliver(event, payload string) {
	h.mu.Lock()
	handlers := append([]func(string){}, h.handlers[event]...)
	h.mu.Unlock()

	for _, handler := range handlers {
		handler(payload)
	}
}

func (h *FakeHost) FrameBox() geometry.Box {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frame
}

func (h *FakeHost) Viewport() geometry.Viewport {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.viewport
}

func (h *FakeHost) SetFrame(frame geometry.Box) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.frame = frame
}

func (h *FakeHost) SetViewport(vp geometry.Viewport) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.viewport = vp
}

// Sent returns a copy of every message sent so far.
func (h *FakeHost) Sent() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Message(nil), h.sent...)
}

// Count returns how many messages named event were sent.
func (h *FakeHost) Count(event string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, m := range h.sent {
		if m.Event == event {
			n++
		}
	}
	return n
}

// Reset forgets recorded messages.
func (h *FakeHost) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = nil
}

var _ childtracker.Host = (*FakeHost)(nil)
