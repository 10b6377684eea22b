package spatialmath

import (
	"fmt"
	"math"
)

// tangentEpsilon is the relative size under which the discriminant of a circle-line
// intersection is treated as zero, i.e. the line touches the circle at a single point.
const tangentEpsilon = 1e-12

// Circle is a center point and a radius.
type Circle struct {
	center Point
	radius float64
}

// NewCircle returns the circle of the given radius around center.
func NewCircle(center Point, radius float64) Circle {
	return Circle{center: center, radius: radius}
}

// Center returns the center of the circle.
func (c Circle) Center() Point {
	return c.center
}

// Radius returns the radius of the circle.
func (c Circle) Radius() float64 {
	return c.radius
}

// Diameter returns twice the radius.
func (c Circle) Diameter() float64 {
	return c.radius * 2
}

// Circumference returns the perimeter of the circle.
func (c Circle) Circumference() float64 {
	return c.Diameter() * math.Pi
}

// Intersections returns the points where the infinite extension of line crosses the
// circle: none, one when the line is tangent, or two. With two, the first is the solution
// taking the positive root, which for a line with non-negative dy is the one further
// along the line's direction.
// See https://mathworld.wolfram.com/Circle-LineIntersection.html.
func (c Circle) Intersections(line Line) []Point {
	if line.IsDegenerate() {
		return nil
	}
	shift := VectorFromPoint(c.center).Invert()
	shifted := line.Shift(shift)

	dx := shifted.Delta().X
	dy := shifted.Delta().Y
	drSquared := dx*dx + dy*dy
	d := shifted.Initial().X*shifted.Terminal().Y - shifted.Terminal().X*shifted.Initial().Y
	scale := c.radius * c.radius * drSquared
	discriminant := scale - d*d

	if discriminant < -tangentEpsilon*scale {
		return nil
	}
	if discriminant <= tangentEpsilon*scale {
		tangent := NewPoint(d*dy/drSquared, -d*dx/drSquared)
		return []Point{tangent.Add(shift.Invert())}
	}

	sgn := 1.0
	if dy < 0 {
		sgn = -1
	}
	root := math.Sqrt(discriminant)
	xRoot := sgn * dx * root
	yRoot := math.Abs(dy) * root

	return []Point{
		NewPoint((d*dy+xRoot)/drSquared, (-d*dx+yRoot)/drSquared).Add(shift.Invert()),
		NewPoint((d*dy-xRoot)/drSquared, (-d*dx-yRoot)/drSquared).Add(shift.Invert()),
	}
}

func (c Circle) String() string {
	return fmt.Sprintf("center %v radius %.3f", c.center, c.radius)
}
