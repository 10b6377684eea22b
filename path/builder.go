package path

import (
	"github.com/pkg/errors"

	"go.viam.com/purepursuit/spatialmath"
)

// Builder assembles a path from a start point and a sequence of moves.
//
//	p, err := path.Start(0, 0).LineTo(50, 0).LineTo(50, 50).Build()
type Builder struct {
	constraints Constraints
	segments    []Segment
	pending     []spatialmath.Point
	err         error
}

// Start begins a path at (x, y).
func Start(x, y float64) *Builder {
	return StartAt(spatialmath.NewPoint(x, y))
}

// StartAt begins a path at point.
func StartAt(point spatialmath.Point) *Builder {
	return &Builder{constraints: DefaultConstraints(), pending: []spatialmath.Point{point}}
}

// WithConstraints replaces the default constraints.
func (b *Builder) WithConstraints(constraints Constraints) *Builder {
	b.constraints = constraints
	return b
}

// LineTo adds a straight line to (x, y). Consecutive lines form one segment.
func (b *Builder) LineTo(x, y float64) *Builder {
	return b.LineToPoint(spatialmath.NewPoint(x, y))
}

// LineToPoint adds a straight line to point.
func (b *Builder) LineToPoint(point spatialmath.Point) *Builder {
	b.pending = append(b.pending, point)
	return b
}

// SmoothTo adds a segment through points that is densely sampled and smoothed so that its
// corners are rounded off.
func (b *Builder) SmoothTo(points ...spatialmath.Point) *Builder {
	if b.err != nil || len(points) == 0 {
		return b
	}
	start := b.closePending()
	dense, err := SmoothWaypoints(append([]spatialmath.Point{start}, points...), DefaultSmoothingOptions())
	if err != nil {
		b.err = errors.Wrap(err, "smoothing waypoints")
		return b
	}
	b.segments = append(b.segments, NewLineSegment(dense...))
	b.pending = []spatialmath.Point{dense[len(dense)-1]}
	return b
}

// Build returns the path. A builder with only its start point produces a path that is
// done as soon as it is followed.
func (b *Builder) Build() (*Path, error) {
	if b.err != nil {
		return nil, b.err
	}
	segments := append([]Segment(nil), b.segments...)
	if len(b.pending) > 1 || len(segments) == 0 {
		segments = append(segments, NewLineSegment(b.pending...))
	}
	return NewPath(b.constraints, segments...)
}

// closePending ends the segment of straight lines being built, if it has any lines, and
// returns the point the next segment starts from.
func (b *Builder) closePending() spatialmath.Point {
	last := b.pending[len(b.pending)-1]
	if len(b.pending) > 1 {
		b.segments = append(b.segments, NewLineSegment(b.pending...))
	}
	b.pending = []spatialmath.Point{last}
	return last
}
