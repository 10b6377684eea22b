package spatialmath

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"go.viam.com/purepursuit/utils"
)

// angleTolerance is how far apart, in degrees, two directions may be and still be
// considered the same direction by segment membership tests.
const angleTolerance = 1e-5

var (
	// ErrNoIntersection is returned when two lines are parallel and so never cross.
	ErrNoIntersection = errors.New("lines are parallel and do not intersect")
	// ErrDegenerateLine is returned when a query needs a direction from a zero-length line.
	ErrDegenerateLine = errors.New("line has zero length")
)

// Line is the directed segment from an initial point to a terminal point. Queries that
// mention the "infinite line" use the segment's extension in both directions.
type Line struct {
	initial  Point
	terminal Point
	delta    Vector
}

// NewLine returns the line from initial to terminal.
func NewLine(initial, terminal Point) Line {
	return Line{initial: initial, terminal: terminal, delta: NewVector(initial, terminal)}
}

// NewLineFromVector returns the line from initial to initial+delta.
func NewLineFromVector(initial Point, delta Vector) Line {
	return NewLine(initial, initial.Add(delta))
}

// Initial returns the start point of the line.
func (l Line) Initial() Point {
	return l.initial
}

// Terminal returns the end point of the line.
func (l Line) Terminal() Point {
	return l.terminal
}

// Delta returns terminal - initial.
func (l Line) Delta() Vector {
	return l.delta
}

// IsDegenerate reports whether the line has no length and therefore no direction.
func (l Line) IsDegenerate() bool {
	return l.delta.IsZero()
}

// Slope returns dy/dx. Vertical lines, in either direction, have a slope of +Inf.
func (l Line) Slope() float64 {
	if l.delta.X == 0 {
		return math.Inf(1)
	}
	return l.delta.Y / l.delta.X
}

// Angle returns the direction of the line in degrees.
func (l Line) Angle() float64 {
	return l.delta.Angle()
}

// Length returns the distance from initial to terminal.
func (l Line) Length() float64 {
	return l.delta.Magnitude()
}

// Midpoint returns the point halfway along the line.
func (l Line) Midpoint() Point {
	return l.initial.Add(l.delta.Scale(0.5))
}

// Shift translates both end points by v.
func (l Line) Shift(v Vector) Line {
	return NewLine(l.initial.Add(v), l.terminal.Add(v))
}

// EvaluateX returns the point of the infinite line at the given x. It reports false for
// vertical lines, which have no unique point at a given x.
func (l Line) EvaluateX(x float64) (Point, bool) {
	if l.delta.X == 0 {
		return Point{}, false
	}
	return NewPoint(x, l.initial.Y+(x-l.initial.X)*l.Slope()), true
}

// EvaluateY returns the point of the infinite line at the given y. It reports false for
// horizontal lines.
func (l Line) EvaluateY(y float64) (Point, bool) {
	if l.delta.Y == 0 {
		return Point{}, false
	}
	return NewPoint(l.initial.X+(y-l.initial.Y)*l.delta.X/l.delta.Y, y), true
}

// Intersection returns the point where the infinite extensions of l and other cross.
// Lines with equal slopes, including any two vertical lines, return ErrNoIntersection.
func (l Line) Intersection(other Line) (Point, error) {
	if l.IsDegenerate() || other.IsDegenerate() {
		return Point{}, ErrDegenerateLine
	}
	cross := l.delta.Cross(other.delta)
	if l.Slope() == other.Slope() || cross == 0 {
		return Point{}, ErrNoIntersection
	}

	// Axis-aligned lines are solved directly so the shared coordinate is exact.
	switch {
	case l.delta.X == 0:
		p, _ := other.EvaluateX(l.initial.X)
		return p, nil
	case other.delta.X == 0:
		p, _ := l.EvaluateX(other.initial.X)
		return p, nil
	case l.delta.Y == 0:
		p, _ := other.EvaluateY(l.initial.Y)
		return p, nil
	case other.delta.Y == 0:
		p, _ := l.EvaluateY(other.initial.Y)
		return p, nil
	}

	t := other.initial.Sub(l.initial).Cross(other.delta) / cross
	return l.initial.Add(l.delta.Scale(t)), nil
}

// PointFromDistance walks distance along the line's direction from the initial point.
func (l Line) PointFromDistance(distance float64) (Point, error) {
	unit, ok := l.delta.Normalize()
	if !ok {
		return Point{}, ErrDegenerateLine
	}
	return l.initial.Add(unit.Scale(distance)), nil
}

// Projection returns the signed distance from the initial point to the projection of p
// onto the infinite line, positive in the line's direction.
func (l Line) Projection(p Point) (float64, error) {
	unit, ok := l.delta.Normalize()
	if !ok {
		return 0, ErrDegenerateLine
	}
	return p.Sub(l.initial).Dot(unit), nil
}

// ClosestPoint projects p onto the infinite line.
func (l Line) ClosestPoint(p Point) (Point, error) {
	along, err := l.Projection(p)
	if err != nil {
		return Point{}, err
	}
	return l.PointFromDistance(along)
}

// IsInSegment reports whether the projection of p onto the line falls within the segment.
// Directions are compared with an angle tolerance instead of coordinate bounds so that
// floating point drift along the line does not matter. The segment is treated as half
// open: a projection landing on the initial point is inside, one landing on the terminal
// point is not, because the terminal point belongs to whatever line follows.
func (l Line) IsInSegment(p Point) bool {
	closest, err := l.ClosestPoint(p)
	if err != nil {
		return p.AlmostEqual(l.initial)
	}
	fromInitial := closest.Sub(l.initial)
	if fromInitial.IsZero() {
		return true
	}
	fromTerminal := closest.Sub(l.terminal)
	if fromTerminal.IsZero() {
		return false
	}
	return sameDirection(fromInitial, l.delta) && sameDirection(fromTerminal, l.delta.Invert())
}

// IsInDomain reports whether x lies between the x coordinates of the end points.
func (l Line) IsInDomain(x float64) bool {
	return math.Min(l.initial.X, l.terminal.X) <= x && x <= math.Max(l.initial.X, l.terminal.X)
}

// IsInRange reports whether y lies between the y coordinates of the end points.
func (l Line) IsInRange(y float64) bool {
	return math.Min(l.initial.Y, l.terminal.Y) <= y && y <= math.Max(l.initial.Y, l.terminal.Y)
}

// ClosestPointInSection projects p onto the line and clamps the result to the nearer end
// point when the projection falls outside the segment.
func (l Line) ClosestPointInSection(p Point) Point {
	closest, err := l.ClosestPoint(p)
	if err != nil {
		return l.initial
	}
	if fromInitial := closest.Sub(l.initial); !fromInitial.IsZero() && !sameDirection(fromInitial, l.delta) {
		return l.initial
	}
	if fromTerminal := closest.Sub(l.terminal); !fromTerminal.IsZero() && !sameDirection(fromTerminal, l.delta.Invert()) {
		return l.terminal
	}
	return closest
}

// DistanceFromInitial returns the distance between p and the initial point.
func (l Line) DistanceFromInitial(p Point) float64 {
	return p.Distance(l.initial)
}

// DistanceFromTerminal returns the distance between p and the terminal point.
func (l Line) DistanceFromTerminal(p Point) float64 {
	return p.Distance(l.terminal)
}

func (l Line) String() string {
	return fmt.Sprintf("%v -> %v", l.initial, l.terminal)
}

func sameDirection(v, w Vector) bool {
	return utils.ToleranceEquals(utils.AngleWrap(v.Angle()-w.Angle()), 0, angleTolerance)
}
