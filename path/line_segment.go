package path

import (
	"github.com/samber/lo"

	"go.viam.com/purepursuit/spatialmath"
)

const defaultLookaheadDistance = 15

// LineSegment is a segment made of straight lines between consecutive waypoints.
type LineSegment struct {
	waypoints []spatialmath.Point
	lines     []spatialmath.Line

	lookaheadDistance   float64
	completionTolerance float64

	// currentLine only moves forward during a follow run; the robot never needs to look
	// back at a line it has already passed.
	currentLine int
}

// NewLineSegment returns a segment through the given waypoints. Repeated consecutive
// waypoints are dropped so every line has a direction. A single waypoint gives a segment
// with no lines, which is done as soon as it is followed.
func NewLineSegment(waypoints ...spatialmath.Point) *LineSegment {
	s := &LineSegment{
		lookaheadDistance:   defaultLookaheadDistance,
		completionTolerance: DefaultConstraints().CompletionTolerance,
	}
	for _, waypoint := range waypoints {
		if len(s.waypoints) > 0 {
			last := s.waypoints[len(s.waypoints)-1]
			if waypoint.AlmostEqual(last) {
				continue
			}
			s.lines = append(s.lines, spatialmath.NewLine(last, waypoint))
		}
		s.waypoints = append(s.waypoints, waypoint)
	}
	return s
}

// Lines returns the lines between the waypoints.
func (s *LineSegment) Lines() []spatialmath.Line {
	return append([]spatialmath.Line(nil), s.lines...)
}

// Waypoints returns the points the segment passes through.
func (s *LineSegment) Waypoints() []spatialmath.Point {
	return append([]spatialmath.Point(nil), s.waypoints...)
}

// CurrentLine returns the index of the line the segment is currently following.
func (s *LineSegment) CurrentLine() int {
	return s.currentLine
}

// Length returns the summed length of the lines.
func (s *LineSegment) Length() float64 {
	return lo.SumBy(s.lines, spatialmath.Line.Length)
}

// LookaheadPoint intersects the lookahead circle around pose with the lines from the
// current one onward and returns the first acceptable point. A line is passed over, and
// never revisited, when everything it offers lies beyond its end. Past the last line the
// final waypoint is returned so the robot converges on it.
func (s *LineSegment) LookaheadPoint(pose spatialmath.Pose) spatialmath.Point {
	if len(s.lines) == 0 {
		if len(s.waypoints) == 0 {
			return pose.Point
		}
		return s.waypoints[0]
	}

	circle := spatialmath.NewCircle(pose.Point, s.lookaheadDistance)
	for ; s.currentLine < len(s.lines); s.currentLine++ {
		line := s.lines[s.currentLine]

		candidates := circle.Intersections(line)
		if len(candidates) == 0 {
			closest, err := line.ClosestPoint(pose.Point)
			if err != nil {
				continue
			}
			candidates = []spatialmath.Point{closest}
		}

		ahead := lo.MaxBy(candidates, func(a, b spatialmath.Point) bool {
			return projection(line, a) > projection(line, b)
		})
		if line.IsInSegment(ahead) {
			return ahead
		}
		if projection(line, ahead) < 0 {
			return line.Initial()
		}
		if s.currentLine == len(s.lines)-1 {
			break
		}
	}
	s.currentLine = len(s.lines) - 1
	return s.lines[s.currentLine].Terminal()
}

// Distance returns the length of the lines already passed plus the distance from the start
// of the current line to the lookahead point.
func (s *LineSegment) Distance(pose spatialmath.Pose) float64 {
	if len(s.lines) == 0 {
		return 0
	}
	lookahead := s.LookaheadPoint(pose)
	passed := lo.SumBy(s.lines[:s.currentLine], spatialmath.Line.Length)
	return passed + s.lines[s.currentLine].DistanceFromInitial(lookahead)
}

// IsDone reports whether the robot is following the last line and is either within the
// completion tolerance of the final waypoint or past it.
func (s *LineSegment) IsDone(pose spatialmath.Pose) bool {
	if len(s.lines) == 0 {
		return true
	}
	s.LookaheadPoint(pose)
	if s.currentLine != len(s.lines)-1 {
		return false
	}
	last := s.lines[s.currentLine]
	return last.DistanceFromTerminal(pose.Point) <= s.completionTolerance ||
		projection(last, pose.Point) >= last.Length()
}

// InitialAngle returns the direction of the first line, or 0 without lines.
func (s *LineSegment) InitialAngle() float64 {
	if len(s.lines) == 0 {
		return 0
	}
	return s.lines[0].Angle()
}

// FinalAngle returns the direction of the last line, or 0 without lines.
func (s *LineSegment) FinalAngle() float64 {
	if len(s.lines) == 0 {
		return 0
	}
	return s.lines[len(s.lines)-1].Angle()
}

// SpeedReductions returns a reduction at every waypoint where the segment changes direction.
func (s *LineSegment) SpeedReductions() map[float64]float64 {
	reductions := map[float64]float64{}
	distance := 0.0
	for i := 1; i < len(s.lines); i++ {
		distance += s.lines[i-1].Length()
		addReduction(reductions, distance, turnSeverity(s.lines[i-1].Angle(), s.lines[i].Angle()))
	}
	return reductions
}

// SetLookaheadDistance sets the radius of the lookahead circle.
func (s *LineSegment) SetLookaheadDistance(distance float64) {
	s.lookaheadDistance = distance
}

// LookaheadDistance returns the radius of the lookahead circle.
func (s *LineSegment) LookaheadDistance() float64 {
	return s.lookaheadDistance
}

// SetCompletionTolerance sets how close to the final waypoint counts as done.
func (s *LineSegment) SetCompletionTolerance(tolerance float64) {
	s.completionTolerance = tolerance
}

// Reset moves the cursor back to the first line.
func (s *LineSegment) Reset() {
	s.currentLine = 0
}

// projection is only called on lines with a direction.
func projection(line spatialmath.Line, p spatialmath.Point) float64 {
	along, _ := line.Projection(p)
	return along
}
