package childtracker

import "github.com/comalice/childtracker/geometry"

// Message names exchanged with the child frame.
const (
	MessageRequestRect = "request-client-rect"
	MessageVisible     = "fact-check-visible"
)

// RectReturnMessage is the message name carrying rectangle replies for
// elementID.
func RectReturnMessage(elementID string) string {
	return elementID + "-rect-return"
}

// Burst trigger event types.
const (
	EventDOMContentLoaded = "DOMContentLoaded"
	EventLoad             = "load"
	EventScroll           = "scroll"
	EventResize           = "resize"
)

// BurstTriggers lists the event types a tracker subscribes to.
var BurstTriggers = []string{EventDOMContentLoaded, EventLoad, EventScroll, EventResize}

// Channel is the messaging link to the child frame. SendMessage is
// fire-and-forget. Handlers registered with OnMessage run for every message
// with that name.
//
// The tracker holds its lock while sending MessageVisible, so SendMessage must
// not deliver any message back into that tracker during that call.
// MessageRequestRect is sent without the lock and may be answered inline.
type Channel interface {
	SendMessage(event, payload string)
	OnMessage(event string, handler func(payload string))
}

// Geometry reports where the enclosing frame sits in the host viewport. It
// is queried on every classification.
type Geometry interface {
	FrameBox() geometry.Box
	Viewport() geometry.Viewport
}

// Host is everything a tracker borrows from the embedding page.
type Host interface {
	Channel
	Geometry
}

// Listener receives window events from an EventTarget. Implementations must
// be comparable so that Unsubscribe can find them.
type Listener interface {
	HandleEvent(eventType string)
}

// EventTarget delivers window events such as scroll and resize.
type EventTarget interface {
	Subscribe(eventType string, l Listener)
	Unsubscribe(eventType string, l Listener)
}
