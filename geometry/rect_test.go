package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var desktop = Viewport{Width: 1024, Height: 768}

func TestParseRect(t *testing.T) {
	r := ParseRect("10 -20.5 100 500")
	assert.Equal(t, Rect{Top: 10, Left: -20.5, Bottom: 100, Right: 500}, r)
	assert.True(t, r.Valid())
}

func TestParseRect_Malformed(t *testing.T) {
	r := ParseRect("abc 1 2 3")
	assert.True(t, math.IsNaN(r.Top))
	assert.Equal(t, 1.0, r.Left)
	assert.False(t, r.Valid())

	short := ParseRect("1 2")
	assert.True(t, math.IsNaN(short.Bottom))
	assert.True(t, math.IsNaN(short.Right))

	// Consecutive separators yield an empty field.
	doubled := ParseRect("1  2 3")
	assert.True(t, math.IsNaN(doubled.Left))

	assert.False(t, ParseRect("").Valid())
}

func TestParseRect_OutOfRange(t *testing.T) {
	r := ParseRect("1e400 -1e400 10 10")
	assert.True(t, math.IsInf(r.Top, 1))
	assert.True(t, math.IsInf(r.Left, -1))
	assert.True(t, r.Valid())
	assert.False(t, InViewport(r, Box{}, desktop))

	assert.True(t, math.IsNaN(ParseRect("10px 0 10 10").Top))
}

func TestRectString_RoundTrip(t *testing.T) {
	r := Rect{Top: 12.25, Left: 0, Bottom: -3, Right: 640}
	assert.Equal(t, "12.25 0 -3 640", r.String())
	assert.Equal(t, r, ParseRect(r.String()))
}

func TestInViewport_Scenarios(t *testing.T) {
	frame := Box{Top: 0}

	assert.True(t, InViewport(ParseRect("10 10 100 500"), frame, desktop))
	assert.False(t, InViewport(ParseRect("10 -600 100 -100"), frame, desktop), "right edge left of the window")
	assert.False(t, InViewport(ParseRect("abc 1 2 3"), frame, desktop), "malformed payload")
}

func TestInViewport_InsideIsVisible(t *testing.T) {
	frame := Box{Top: 0, Height: 2000}
	for top := 0.0; top < desktop.Height; top += 97 {
		for left := 0.0; left < desktop.Width; left += 131 {
			r := Rect{
				Top:    top,
				Left:   left,
				Bottom: math.Min(top+50, desktop.Height),
				Right:  math.Min(left+50, desktop.Width),
			}
			require.True(t, InViewport(r, frame, desktop), "rect %v", r)
		}
	}
}

func TestInViewport_HorizontallyOutside(t *testing.T) {
	frame := Box{Top: -300}
	for _, top := range []float64{-5000, -10, 0, 200, 700, 5000} {
		assert.False(t, InViewport(Rect{Top: top, Left: 1025, Bottom: top + 10, Right: 1100}, frame, desktop))
		assert.False(t, InViewport(Rect{Top: top, Left: -80, Bottom: top + 10, Right: -1}, frame, desktop))
	}
}

func TestInViewport_Vertical(t *testing.T) {
	// Frame scrolled 400px above the viewport top.
	frame := Box{Top: -400, Height: 3000}

	assert.True(t, InViewport(Rect{Top: 500, Left: 0, Bottom: 600, Right: 100}, frame, desktop))
	assert.False(t, InViewport(Rect{Top: 1200, Left: 0, Bottom: 1300, Right: 100}, frame, desktop), "below the fold")
	assert.False(t, InViewport(Rect{Top: 100, Left: 0, Bottom: 300, Right: 100}, frame, desktop), "scrolled past")
	assert.False(t, InViewport(Rect{Top: 1100, Left: 0, Bottom: 1200, Right: 100}, frame, desktop), "bottom cut off")
}

func TestInViewport_PartialHorizontalOverlapCounts(t *testing.T) {
	r := Rect{Top: 10, Left: -50, Bottom: 60, Right: 20}
	assert.True(t, InViewport(r, Box{}, desktop))
}
