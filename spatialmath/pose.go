package spatialmath

import (
	"fmt"
)

// Pose is a robot position in path coordinates together with its heading in degrees,
// measured counter-clockwise from the positive x axis.
type Pose struct {
	Point
	Heading float64 `json:"heading"`
}

// NewPose returns a pose at (x, y) facing headingDeg.
func NewPose(x, y, headingDeg float64) Pose {
	return Pose{Point: NewPoint(x, y), Heading: headingDeg}
}

// WithHeading returns a copy of the pose facing headingDeg.
func (p Pose) WithHeading(headingDeg float64) Pose {
	p.Heading = headingDeg
	return p
}

func (p Pose) String() string {
	return fmt.Sprintf("(%.3f, %.3f, %.2f°)", p.X, p.Y, p.Heading)
}
