package childtracker_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/childtracker"
	"github.com/comalice/childtracker/clock"
	"github.com/comalice/childtracker/geometry"
	"github.com/comalice/childtracker/testutil"
)

const (
	elementID  = "fact-1"
	visibleRct = "10 10 100 500"
	hiddenRct  = "10 -600 100 -100"
)

var epoch = time.Date(2016, 9, 27, 12, 0, 0, 0, time.UTC)

type fixture struct {
	clock *clock.Fake
	host  *testutil.FakeHost
	bus   *testutil.EventBus
	reads atomic.Int32
	t     *childtracker.Tracker
}

func newFixture(t *testing.T, cfg childtracker.Config, opts ...childtracker.Option) *fixture {
	t.Helper()
	f := &fixture{
		clock: clock.NewFake(epoch),
		host:  testutil.NewFakeHost(geometry.Box{Top: 0, Height: 2000}, geometry.Viewport{Width: 1024, Height: 768}),
		bus:   testutil.NewEventBus(),
	}
	opts = append([]childtracker.Option{
		childtracker.WithClock(f.clock),
		childtracker.WithEventTarget(f.bus),
	}, opts...)
	f.t = childtracker.New(f.host, elementID, func() { f.reads.Add(1) }, cfg, opts...)
	return f
}

func (f *fixture) reply(rect string) {
	f.host.Deliver(childtracker.RectReturnMessage(elementID), rect)
}

func (f *fixture) requests() int {
	return f.host.Count(childtracker.MessageRequestRect)
}

func TestTracker_InitialRequest(t *testing.T) {
	f := newFixture(t, childtracker.Config{})

	sent := f.host.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, testutil.Message{Event: "request-client-rect", Payload: elementID}, sent[0])
	assert.Equal(t, elementID, f.t.ID())
	assert.False(t, f.t.IsVisible())
	assert.Equal(t, childtracker.StateNotVisible, f.t.State())
	for _, eventType := range childtracker.BurstTriggers {
		assert.Equal(t, 1, f.bus.Listeners(eventType), eventType)
	}
}

func TestTracker_BecomesVisibleOnce(t *testing.T) {
	f := newFixture(t, childtracker.Config{})

	f.reply(visibleRct)
	assert.True(t, f.t.IsVisible())
	assert.Equal(t, 1, f.host.Count(childtracker.MessageVisible))

	f.clock.Advance(200 * time.Millisecond)
	f.reply(visibleRct)
	assert.Equal(t, 1, f.host.Count(childtracker.MessageVisible), "no re-emit while visible")

	// The dwell deadline is measured from the first visible reply.
	f.clock.Advance(300 * time.Millisecond)
	assert.EqualValues(t, 1, f.reads.Load())

	f.clock.Advance(5 * time.Second)
	assert.EqualValues(t, 1, f.reads.Load())
}

func TestTracker_HiddenBeforeDwell(t *testing.T) {
	f := newFixture(t, childtracker.Config{})

	f.reply(visibleRct)
	f.clock.Advance(499 * time.Millisecond)
	f.reply(hiddenRct)
	assert.False(t, f.t.IsVisible())

	f.clock.Advance(5 * time.Second)
	assert.Zero(t, f.reads.Load())
}

func TestTracker_NewEpisodeAfterHidden(t *testing.T) {
	f := newFixture(t, childtracker.Config{})

	f.reply(visibleRct)
	f.reply(hiddenRct)
	f.reply(hiddenRct)
	f.reply(visibleRct)

	assert.Equal(t, 2, f.host.Count(childtracker.MessageVisible))
	f.clock.Advance(500 * time.Millisecond)
	assert.EqualValues(t, 1, f.reads.Load())
}

func TestTracker_MalformedReplyIsHidden(t *testing.T) {
	f := newFixture(t, childtracker.Config{})

	f.reply("abc 1 2 3")
	assert.False(t, f.t.IsVisible())

	f.reply(visibleRct)
	f.reply("")
	assert.False(t, f.t.IsVisible())
	assert.Equal(t, 1, f.host.Count(childtracker.MessageVisible))
}

func TestTracker_GeometryReadPerReply(t *testing.T) {
	f := newFixture(t, childtracker.Config{})

	f.reply(visibleRct)
	require.True(t, f.t.IsVisible())

	// Host page scrolled the frame far above the viewport.
	f.host.SetFrame(geometry.Box{Top: -2000, Height: 2000})
	f.reply(visibleRct)
	assert.False(t, f.t.IsVisible())
}

func TestTracker_ViewportResize(t *testing.T) {
	f := newFixture(t, childtracker.Config{})

	f.reply(visibleRct)
	require.True(t, f.t.IsVisible())

	// Window narrowed so the element's left edge is past the right border.
	f.host.SetViewport(geometry.Viewport{Width: 5, Height: 768})
	f.bus.Dispatch(childtracker.EventResize)
	f.reply(visibleRct)
	assert.False(t, f.t.IsVisible())

	f.host.SetViewport(geometry.Viewport{Width: 1024, Height: 768})
	f.reply(visibleRct)
	assert.True(t, f.t.IsVisible())
	assert.Equal(t, 2, f.host.Count(childtracker.MessageVisible))
}

func TestTracker_RecheckAfterAnimation(t *testing.T) {
	f := newFixture(t, childtracker.Config{DwellDuration: 2 * time.Second})

	f.reply(visibleRct)
	assert.Equal(t, 1, f.requests())

	f.clock.Advance(799 * time.Millisecond)
	assert.Equal(t, 1, f.requests())
	f.clock.Advance(time.Millisecond)
	assert.Equal(t, 2, f.requests())

	// The element was only visible mid-animation.
	f.reply(hiddenRct)
	f.clock.Advance(5 * time.Second)
	assert.Zero(t, f.reads.Load())
}

func TestTracker_BurstIsThrottled(t *testing.T) {
	f := newFixture(t, childtracker.Config{})

	for i := 0; i < 10; i++ {
		f.bus.Dispatch(childtracker.EventScroll)
		f.clock.Advance(2 * time.Millisecond)
	}
	// initial + leading
	assert.Equal(t, 2, f.requests())

	f.clock.Advance(40 * time.Millisecond)
	assert.Equal(t, 3, f.requests(), "one trailing request")

	f.clock.Advance(time.Second)
	assert.Equal(t, 3, f.requests())
}

func TestTracker_CustomBurstWindow(t *testing.T) {
	f := newFixture(t, childtracker.Config{BurstWindow: 100 * time.Millisecond})

	f.bus.Dispatch(childtracker.EventResize)
	f.clock.Advance(50 * time.Millisecond)
	f.bus.Dispatch(childtracker.EventResize)
	f.clock.Advance(49 * time.Millisecond)
	assert.Equal(t, 2, f.requests())

	f.clock.Advance(time.Millisecond)
	assert.Equal(t, 3, f.requests())
}

func TestTracker_StopTracking(t *testing.T) {
	f := newFixture(t, childtracker.Config{})

	f.t.StopTracking()
	for _, eventType := range childtracker.BurstTriggers {
		assert.Zero(t, f.bus.Listeners(eventType), eventType)
	}

	for i := 0; i < 5; i++ {
		f.bus.Dispatch(childtracker.EventScroll)
		f.bus.Dispatch(childtracker.EventResize)
		f.clock.Advance(100 * time.Millisecond)
	}
	assert.Equal(t, 1, f.requests())

	f.t.StopTracking()
}

func TestTracker_StopCancelsTimers(t *testing.T) {
	f := newFixture(t, childtracker.Config{})

	f.bus.Dispatch(childtracker.EventScroll)
	f.bus.Dispatch(childtracker.EventScroll) // pending trailing request
	f.reply(visibleRct)                      // dwell + re-check armed
	requests := f.requests()

	f.t.StopTracking()
	f.clock.Advance(5 * time.Second)

	assert.Equal(t, requests, f.requests())
	assert.Zero(t, f.reads.Load())
	assert.Zero(t, f.clock.Pending())
}

func TestTracker_ReplyAfterStopIgnored(t *testing.T) {
	f := newFixture(t, childtracker.Config{})

	f.t.StopTracking()
	f.reply(visibleRct)

	assert.False(t, f.t.IsVisible())
	assert.Zero(t, f.host.Count(childtracker.MessageVisible))
}

func TestTracker_WithoutEventTarget(t *testing.T) {
	c := clock.NewFake(epoch)
	host := testutil.NewFakeHost(geometry.Box{}, geometry.Viewport{Width: 1024, Height: 768})

	tr := childtracker.New(host, elementID, nil, childtracker.Config{}, childtracker.WithClock(c))
	assert.Equal(t, 1, host.Count(childtracker.MessageRequestRect))

	host.Deliver(childtracker.RectReturnMessage(elementID), visibleRct)
	assert.True(t, tr.IsVisible())

	// No callback means no dwell alarm, only the re-check.
	assert.Equal(t, 1, c.Pending())
	tr.StopTracking()
}

func TestTracker_SynchronousLoopback(t *testing.T) {
	c := clock.NewFake(epoch)
	host := testutil.NewFakeHost(geometry.Box{}, geometry.Viewport{Width: 1024, Height: 768})
	host.OnSend = func(m testutil.Message) {
		if m.Event == childtracker.MessageRequestRect {
			host.Deliver(childtracker.RectReturnMessage(m.Payload), visibleRct)
		}
	}

	var reads atomic.Int32
	tr := childtracker.New(host, elementID, func() { reads.Add(1) }, childtracker.Config{}, childtracker.WithClock(c))
	assert.True(t, tr.IsVisible())

	c.Advance(time.Second)
	assert.EqualValues(t, 1, reads.Load())
	assert.Equal(t, 1, host.Count(childtracker.MessageVisible))
}

func TestTracker_PublishesTransitions(t *testing.T) {
	ch := make(chan childtracker.StateChange, 4)
	f := newFixture(t, childtracker.Config{}, childtracker.WithPublisher(childtracker.NewChannelPublisher(ch)))

	f.reply(visibleRct)
	f.clock.Advance(100 * time.Millisecond)
	f.reply(hiddenRct)
	f.reply(hiddenRct)

	require.Len(t, ch, 2)
	first, second := <-ch, <-ch
	assert.Equal(t, childtracker.StateChange{ElementID: elementID, From: childtracker.StateNotVisible, To: childtracker.StateVisible, At: epoch}, first)
	assert.Equal(t, childtracker.StateNotVisible, second.To)
	assert.Equal(t, epoch.Add(100*time.Millisecond), second.At)
}

func TestTracker_DOT(t *testing.T) {
	f := newFixture(t, childtracker.Config{})
	f.reply(visibleRct)

	dot := f.t.DOT()
	assert.Contains(t, dot, `digraph "fact-1"`)
	assert.Contains(t, dot, `"visible" [label="visible" style=filled fillcolor=lightgreen];`)
	assert.Contains(t, dot, `"not-visible" -> "visible" [label="rect-visible"];`)
}
