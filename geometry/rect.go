// Package geometry holds the rectangle types exchanged with a child frame and
// the viewport test used to classify them.
package geometry

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// Rect is an element bounding box reported by the child frame, in coordinates
// relative to the enclosing frame. Edges are not required to be ordered.
type Rect struct {
	Top    float64
	Left   float64
	Bottom float64
	Right  float64
}

// Box is the enclosing frame element's bounding box in host viewport
// coordinates.
type Box struct {
	Top    float64
	Height float64
}

// Viewport is the size of the host viewport.
type Viewport struct {
	Width  float64
	Height float64
}

// ParseRect decodes "top left bottom right". Fields are separated by single
// spaces; a missing or non-numeric field becomes NaN. Numeric prefixes such as
// "10px" are not accepted. Values beyond float64 range become ±Inf.
func ParseRect(s string) Rect {
	fields := strings.Split(s, " ")
	return Rect{
		Top:    field(fields, 0),
		Left:   field(fields, 1),
		Bottom: field(fields, 2),
		Right:  field(fields, 3),
	}
}

func field(fields []string, i int) float64 {
	if i >= len(fields) {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(fields[i]), 64)
	if errors.Is(err, strconv.ErrRange) {
		return v
	}
	if err != nil {
		return math.NaN()
	}
	return v
}

// String renders r in the format accepted by ParseRect.
func (r Rect) String() string {
	return strings.Join([]string{
		strconv.FormatFloat(r.Top, 'f', -1, 64),
		strconv.FormatFloat(r.Left, 'f', -1, 64),
		strconv.FormatFloat(r.Bottom, 'f', -1, 64),
		strconv.FormatFloat(r.Right, 'f', -1, 64),
	}, " ")
}

// Valid reports whether all four edges are numbers.
func (r Rect) Valid() bool {
	return !math.IsNaN(r.Top) && !math.IsNaN(r.Left) &&
		!math.IsNaN(r.Bottom) && !math.IsNaN(r.Right)
}

// InViewport reports whether r counts as visible inside the host viewport,
// given the frame box it is relative to.
//
// The test is a set of box comparisons rather than an exact containment
// check: horizontally the element only needs to overlap the viewport, and the
// two bottom conditions overlap. Callers rely on these exact results.
func InViewport(r Rect, frame Box, vp Viewport) bool {
	if !r.Valid() {
		return false
	}

	verticalScroll := math.Abs(frame.Top) + vp.Height
	bottomBound := r.Bottom + vp.Height

	leftSideRightOfWindow := r.Left > vp.Width
	rightSideLeftOfWindow := r.Right < 0
	topBelowWindow := r.Top > verticalScroll
	bottomAboveWindow := verticalScroll > bottomBound || r.Bottom > verticalScroll

	return !(leftSideRightOfWindow || rightSideLeftOfWindow || topBelowWindow || bottomAboveWindow)
}
