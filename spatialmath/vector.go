// Package spatialmath defines the planar geometry used to follow paths: points, vectors,
// lines, circles and robot poses.
package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"

	"go.viam.com/purepursuit/utils"
)

// coincidentEpsilon is the distance under which two points are treated as the same point.
const coincidentEpsilon = 1e-9

// Point is an immutable position in the plane.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewPoint returns the point (x, y).
func NewPoint(x, y float64) Point {
	return Point{X: x, Y: y}
}

func (p Point) r2() r2.Point {
	return r2.Point{X: p.X, Y: p.Y}
}

// Add translates the point by v.
func (p Point) Add(v Vector) Point {
	return Point(p.r2().Add(v.r2()))
}

// Sub returns the vector that takes q to p.
func (p Point) Sub(q Point) Vector {
	return Vector(p.r2().Sub(q.r2()))
}

// Distance returns the euclidean distance between p and q.
func (p Point) Distance(q Point) float64 {
	return p.Sub(q).Magnitude()
}

// AlmostEqual reports whether p and q are closer than a nanometre-scale epsilon.
func (p Point) AlmostEqual(q Point) bool {
	return p.Distance(q) < coincidentEpsilon
}

func (p Point) String() string {
	return fmt.Sprintf("(%.3f, %.3f)", p.X, p.Y)
}

// Vector is a directed magnitude in the plane.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewVector returns the vector pointing from initial to terminal.
func NewVector(initial, terminal Point) Vector {
	return terminal.Sub(initial)
}

// NewPolarVector returns a vector with the given magnitude pointing at angleDeg degrees
// counter-clockwise from the positive x axis.
func NewPolarVector(magnitude, angleDeg float64) Vector {
	rad := utils.DegToRad(angleDeg)
	return Vector{X: magnitude * math.Cos(rad), Y: magnitude * math.Sin(rad)}
}

// VectorFromPoint treats p as an offset from the origin.
func VectorFromPoint(p Point) Vector {
	return Vector{X: p.X, Y: p.Y}
}

func (v Vector) r2() r2.Point {
	return r2.Point{X: v.X, Y: v.Y}
}

// Magnitude returns the length of v. The zero vector has magnitude 0.
func (v Vector) Magnitude() float64 {
	return v.r2().Norm()
}

// Angle returns the direction of v in degrees over the full (-180, 180] range. The zero
// vector reports 0, which carries no directional meaning.
func (v Vector) Angle() float64 {
	return utils.RadToDeg(math.Atan2(v.Y, v.X))
}

// IsZero reports whether v is too short to have a meaningful direction.
func (v Vector) IsZero() bool {
	return v.Magnitude() < coincidentEpsilon
}

// Normalize returns the unit vector in the direction of v. The boolean is false when v is
// the zero vector, which has no direction to normalize.
func (v Vector) Normalize() (Vector, bool) {
	if v.IsZero() {
		return Vector{}, false
	}
	return Vector(v.r2().Normalize()), true
}

// Scale multiplies v by s.
func (v Vector) Scale(s float64) Vector {
	return Vector(v.r2().Mul(s))
}

// Invert returns v pointing the opposite way.
func (v Vector) Invert() Vector {
	return v.Scale(-1)
}

// Add returns the sum of v and w.
func (v Vector) Add(w Vector) Vector {
	return Vector(v.r2().Add(w.r2()))
}

// Rotate rotates v counter-clockwise by angleDeg degrees.
func (v Vector) Rotate(angleDeg float64) Vector {
	rad := utils.DegToRad(angleDeg)
	sin, cos := math.Sincos(rad)
	return Vector{X: v.X*cos - v.Y*sin, Y: v.X*sin + v.Y*cos}
}

// Dot returns the dot product of v and w.
func (v Vector) Dot(w Vector) float64 {
	return v.r2().Dot(w.r2())
}

// Cross returns the z component of the cross product of v and w.
func (v Vector) Cross(w Vector) float64 {
	return v.r2().Cross(w.r2())
}

func (v Vector) String() string {
	return fmt.Sprintf("<%.3f, %.3f>", v.X, v.Y)
}
