// Package pan models the click-versus-drag pointer state of the pannable map
// as an immutable value moved along by pure transition functions.
package pan

import "math"

// Threshold is the displacement in pixels, on either axis, a press must
// travel before it counts as a drag.
const Threshold = 5.0

// Map asset size in pixels.
const (
	MapWidth  = 2500.0
	MapHeight = 1700.0
)

type Phase int

const (
	Idle Phase = iota
	PointerDown
	Dragging
)

func (p Phase) String() string {
	switch p {
	case PointerDown:
		return "pointer_down"
	case Dragging:
		return "dragging"
	default:
		return "idle"
	}
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

type Bounds struct {
	MinX float64 `json:"min_x"`
	MaxX float64 `json:"max_x"`
	MinY float64 `json:"min_y"`
	MaxY float64 `json:"max_y"`
}

// BoundsFor returns the offsets that keep a map of mapW x mapH covering a
// view of viewW x viewH. A view larger than the map pins that axis at 0.
func BoundsFor(viewW, viewH, mapW, mapH float64) Bounds {
	return Bounds{
		MinX: math.Min(viewW-mapW, 0),
		MaxX: 0,
		MinY: math.Min(viewH-mapH, 0),
		MaxY: 0,
	}
}

// Clamp limits p to b per axis.
func (b Bounds) Clamp(p Point) Point {
	return Point{X: clamp(p.X, b.MinX, b.MaxX), Y: clamp(p.Y, b.MinY, b.MaxY)}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

// State is the full drag state. The zero value is Idle at offset (0,0).
type State struct {
	Phase  Phase
	Offset Point
	// DidDrag is cleared by Press and survives Release so a click handler
	// can tell a drag release from a click.
	DidDrag bool
	Start   Point
	Last    Point
}

// Press starts tracking a pointer at p.
func Press(s State, p Point) State {
	s.Phase = PointerDown
	s.DidDrag = false
	s.Start = p
	s.Last = p
	return s
}

// Move applies a pointer move to p. Movement before the threshold is crossed
// is absorbed; afterwards each move shifts the offset by p - Last, clamped to
// b.
func Move(s State, p Point, b Bounds) State {
	switch s.Phase {
	case Idle:
		return s
	case PointerDown:
		total := p.Sub(s.Start)
		if math.Abs(total.X) <= Threshold && math.Abs(total.Y) <= Threshold {
			s.Last = p
			return s
		}
		s.Phase = Dragging
		s.DidDrag = true
	}
	d := p.Sub(s.Last)
	s.Offset = b.Clamp(Point{X: s.Offset.X + d.X, Y: s.Offset.Y + d.Y})
	s.Last = p
	return s
}

// Release ends the press. Offset and DidDrag are kept.
func Release(s State) State {
	s.Phase = Idle
	return s
}

// Leave behaves like Release.
func Leave(s State) State {
	return Release(s)
}
