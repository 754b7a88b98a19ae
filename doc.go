// Package childtracker detects when an element inside a cross-origin child
// frame has been visible in the host viewport for a minimum dwell time.
//
// The host cannot read the child's DOM, so a Tracker asks the child frame for
// the element's bounding rectangle over a messaging Channel and classifies
// each reply against the enclosing frame's position.
//
// # Protocol
//
//	host  -> child   request-client-rect   payload: element id
//	child -> host    <id>-rect-return      payload: "top left bottom right"
//	host  -> child   fact-check-visible    payload: element id
//
// A request is sent on construction, after every burst of window events
// (DOMContentLoaded, load, scroll, resize) once it has been throttled, and
// once more after the re-check delay following each transition to visible.
//
// # States
//
//	NOT_VISIBLE --[rect-visible]--> VISIBLE   start dwell, send fact-check-visible, schedule re-check
//	VISIBLE     --[rect-hidden]-->  NOT_VISIBLE  stop dwell
//
// Repeated classifications in the same state do nothing; in particular the
// dwell timer is not restarted while the element stays visible.
//
// # Example Usage
//
//	t := childtracker.New(host, "fact-1", func() {
//		log.Println("fact-1 read")
//	}, childtracker.Config{}, childtracker.WithEventTarget(bus))
//	defer t.StopTracking()
//
// # Concurrency
//
// Timers fire on their own goroutines. Reply handling is serialized by the
// tracker, and rectangle requests are sent without any tracker lock held.
// Replies carry no correlation token, so a stale reply may briefly set the
// wrong state until the next request corrects it.
package childtracker
