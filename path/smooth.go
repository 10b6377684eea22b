package path

import (
	"math"

	"github.com/pkg/errors"

	"go.viam.com/purepursuit/spatialmath"
)

// fillEpsilon keeps fill from placing a point a rounding error away from the next waypoint.
const fillEpsilon = 1e-6

// SmoothingOptions controls SmoothWaypoints.
type SmoothingOptions struct {
	// Spacing is the distance between the points filled in between waypoints.
	Spacing float64
	// Weight is how far each pass moves a point toward the midpoint of its neighbours,
	// from 0 (not at all) to 1 (all the way).
	Weight float64
	// Tolerance stops smoothing once the mean distance points move in a pass drops below it.
	Tolerance float64
	// MaxIterations bounds the number of passes.
	MaxIterations int
}

// DefaultSmoothingOptions returns one unit spacing and half weight smoothing.
func DefaultSmoothingOptions() SmoothingOptions {
	return SmoothingOptions{Spacing: 1, Weight: 0.5, Tolerance: 0.01, MaxIterations: 10000}
}

// SmoothWaypoints fills the gaps between waypoints with evenly spaced points and then
// repeatedly relaxes every interior point toward the midpoint of its neighbours. The first
// and last waypoints never move.
func SmoothWaypoints(waypoints []spatialmath.Point, opts SmoothingOptions) ([]spatialmath.Point, error) {
	if opts.Spacing <= 0 {
		return nil, errors.Errorf("spacing must be positive, got %v", opts.Spacing)
	}
	if opts.Weight < 0 || opts.Weight > 1 {
		return nil, errors.Errorf("weight must be within [0, 1], got %v", opts.Weight)
	}
	if len(waypoints) == 0 {
		return nil, ErrNoWaypoints
	}

	points := fill(waypoints, opts.Spacing)
	if len(points) < 3 {
		return points, nil
	}

	for iteration := 0; iteration < opts.MaxIterations; iteration++ {
		next := append([]spatialmath.Point(nil), points...)
		change := 0.0
		for i := 1; i < len(points)-1; i++ {
			mid := spatialmath.NewLine(points[i-1], points[i+1]).Midpoint()
			moved := points[i].Add(mid.Sub(points[i]).Scale(opts.Weight))
			if math.IsNaN(moved.X) || math.IsNaN(moved.Y) {
				continue
			}
			change += points[i].Distance(moved)
			next[i] = moved
		}
		points = next
		if change/float64(len(points)-2) < opts.Tolerance {
			break
		}
	}
	return points, nil
}

// fill returns the waypoints with points every spacing units in between. Repeated
// waypoints are skipped.
func fill(waypoints []spatialmath.Point, spacing float64) []spatialmath.Point {
	filled := make([]spatialmath.Point, 0, len(waypoints))
	for i := 1; i < len(waypoints); i++ {
		gap := waypoints[i].Sub(waypoints[i-1])
		step, ok := gap.Normalize()
		if !ok {
			continue
		}
		step = step.Scale(spacing)
		count := int(math.Ceil(gap.Magnitude()/spacing - fillEpsilon))
		for j := 0; j < count; j++ {
			filled = append(filled, waypoints[i-1].Add(step.Scale(float64(j))))
		}
	}
	return append(filled, waypoints[len(waypoints)-1])
}
