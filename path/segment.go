// Package path describes the routes a robot follows: segments of waypoints, the velocity
// profile along them, and a builder to put them together.
package path

import (
	"math"

	"go.viam.com/purepursuit/spatialmath"
	"go.viam.com/purepursuit/utils"
)

// Segment is one piece of a path. Segments keep a cursor of how far along them the robot
// has progressed, so a segment belongs to a single follow run at a time.
type Segment interface {
	// Length is the distance along the segment from its first to its last waypoint.
	Length() float64
	// LookaheadPoint returns the point on the segment the robot at pose should steer toward.
	LookaheadPoint(pose spatialmath.Pose) spatialmath.Point
	// Distance returns the progress along the segment corresponding to the lookahead point
	// for pose.
	Distance(pose spatialmath.Pose) float64
	// IsDone reports whether the robot at pose has reached the end of the segment.
	IsDone(pose spatialmath.Pose) bool
	// InitialAngle is the direction of travel, in degrees, at the start of the segment.
	InitialAngle() float64
	// FinalAngle is the direction of travel, in degrees, at the end of the segment.
	FinalAngle() float64
	// SpeedReductions maps distances along the segment to severities in [0, 1].
	SpeedReductions() map[float64]float64
	// Waypoints returns the points the segment passes through.
	Waypoints() []spatialmath.Point

	SetLookaheadDistance(distance float64)
	LookaheadDistance() float64
	SetCompletionTolerance(tolerance float64)
	// Reset rewinds the segment to its start.
	Reset()
}

// turnSeverity measures how sharp a change of direction is: 0 when going straight through
// and 1 for a turn of 90 degrees or more.
func turnSeverity(fromAngle, toAngle float64) float64 {
	return utils.Clamp(math.Abs(utils.AngleWrap(toAngle-fromAngle))/90, 0, 1)
}

// addReduction records a reduction, keeping the more severe one when two share a distance.
func addReduction(reductions map[float64]float64, distance, severity float64) {
	if severity <= 0 {
		return
	}
	if existing, ok := reductions[distance]; ok && existing >= severity {
		return
	}
	reductions[distance] = severity
}
