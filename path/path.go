package path

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/purepursuit/control"
	"go.viam.com/purepursuit/spatialmath"
)

// ErrNoWaypoints is returned when a path is created without anything to follow.
var ErrNoWaypoints = errors.New("path has no waypoints")

// Path is an ordered list of segments together with the velocity profile along all of
// them. It tracks which segment is being followed, so like its segments it belongs to one
// follow run at a time; Reset starts a new run over the same geometry.
type Path struct {
	segments    []Segment
	offsets     []float64
	constraints Constraints
	profile     *control.TrapezoidVelocityProfile

	currentSegment int
}

// NewPath builds the velocity profile for the segments and returns the path.
func NewPath(constraints Constraints, segments ...Segment) (*Path, error) {
	if len(segments) == 0 {
		return nil, ErrNoWaypoints
	}
	if err := constraints.Validate("constraints"); err != nil {
		return nil, err
	}

	p := &Path{segments: segments, constraints: constraints}
	p.offsets = make([]float64, len(segments))
	for i := 1; i < len(segments); i++ {
		p.offsets[i] = p.offsets[i-1] + segments[i-1].Length()
	}

	profile, err := control.NewTrapezoidVelocityProfile(p.Length(), constraints.VelocityLimits(), p.SpeedReductions())
	if err != nil {
		return nil, errors.Wrap(err, "building velocity profile")
	}
	p.profile = profile
	p.configureSegments()
	return p, nil
}

// Length returns the summed length of the segments.
func (p *Path) Length() float64 {
	return lo.SumBy(p.segments, Segment.Length)
}

// Segments returns the segments of the path.
func (p *Path) Segments() []Segment {
	return append([]Segment(nil), p.segments...)
}

// Constraints returns the constraints the path was built with.
func (p *Path) Constraints() Constraints {
	return p.constraints
}

// Profile returns the velocity profile along the path.
func (p *Path) Profile() *control.TrapezoidVelocityProfile {
	return p.profile
}

// CurrentSegment returns the index of the segment being followed.
func (p *Path) CurrentSegment() int {
	return p.currentSegment
}

// SetLookaheadDistance changes the lookahead distance used from the next query on.
func (p *Path) SetLookaheadDistance(distance float64) {
	p.constraints.LookaheadDistance = distance
}

// SpeedReductions returns the reductions of every segment, shifted to distances along the
// whole path, plus one at each segment boundary where the direction changes. Segments
// without length have no direction and add nothing at their boundaries.
func (p *Path) SpeedReductions() map[float64]float64 {
	reductions := map[float64]float64{}
	for i, segment := range p.segments {
		for distance, severity := range segment.SpeedReductions() {
			addReduction(reductions, p.offsets[i]+distance, severity)
		}
		if i == 0 {
			continue
		}
		prev := p.segments[i-1]
		if prev.Length() == 0 || segment.Length() == 0 {
			continue
		}
		addReduction(reductions, p.offsets[i], turnSeverity(prev.FinalAngle(), segment.InitialAngle()))
	}
	return reductions
}

// Velocity returns the target velocity for the robot at pose.
func (p *Path) Velocity(pose spatialmath.Pose) (float64, error) {
	segment := p.resolveSegment(pose)
	progress := p.offsets[p.currentSegment] + segment.Distance(pose)
	velocity, err := p.profile.Velocity(progress)
	if err != nil {
		return 0, errors.Wrapf(err, "segment %d", p.currentSegment)
	}
	return velocity, nil
}

// LookaheadPoint returns the point the robot at pose should steer toward.
func (p *Path) LookaheadPoint(pose spatialmath.Pose) spatialmath.Point {
	return p.resolveSegment(pose).LookaheadPoint(pose)
}

// IsDone reports whether the robot at pose has finished the last segment.
func (p *Path) IsDone(pose spatialmath.Pose) bool {
	segment := p.resolveSegment(pose)
	return p.currentSegment == len(p.segments)-1 && segment.IsDone(pose)
}

// Reset rewinds the path and all of its segments to the start.
func (p *Path) Reset() {
	p.currentSegment = 0
	for _, segment := range p.segments {
		segment.Reset()
	}
}

// resolveSegment moves on to the next segment when the current one is done. At most one
// segment is passed per call, so callers should query every control tick.
func (p *Path) resolveSegment(pose spatialmath.Pose) Segment {
	p.configureSegments()
	segment := p.segments[p.currentSegment]
	if p.currentSegment < len(p.segments)-1 && segment.IsDone(pose) {
		p.currentSegment++
		segment = p.segments[p.currentSegment]
	}
	return segment
}

func (p *Path) configureSegments() {
	for _, segment := range p.segments {
		segment.SetLookaheadDistance(p.constraints.LookaheadDistance)
		segment.SetCompletionTolerance(p.constraints.CompletionTolerance)
	}
}

func (p *Path) String() string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Waypoints", "Start", "End", "Length", "Offset"})
	for i, segment := range p.segments {
		waypoints := segment.Waypoints()
		start, end := "", ""
		if len(waypoints) > 0 {
			start = waypoints[0].String()
			end = waypoints[len(waypoints)-1].String()
		}
		t.AppendRow(table.Row{
			i,
			len(waypoints),
			start,
			end,
			fmt.Sprintf("%.3f", segment.Length()),
			fmt.Sprintf("%.3f", p.offsets[i]),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "Total", fmt.Sprintf("%.3f", p.Length()), ""})
	return t.Render()
}
