package control

import (
	"fmt"
	"math"
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/purepursuit/spatialmath"
	"go.viam.com/purepursuit/utils"
)

// domainEpsilon is how far outside a profile line's x extent a distance may fall and still
// be evaluated on that line.
const domainEpsilon = 1e-6

// ErrDistanceOutOfRange is returned when a velocity is requested for a distance outside of
// the profile's [0, length] domain.
var ErrDistanceOutOfRange = errors.New("distance is outside of the velocity profile")

// VelocityLimits bounds a velocity profile. Acceleration and deceleration are slopes in
// distance-velocity space: velocity gained or lost per unit of distance travelled.
type VelocityLimits struct {
	MinVelocity     float64
	MaxVelocity     float64
	MaxAcceleration float64
	MaxDeceleration float64
}

// Validate checks that the limits can produce a profile.
func (limits VelocityLimits) Validate() error {
	if limits.MinVelocity < 0 {
		return errors.Errorf("min velocity must be non-negative, got %v", limits.MinVelocity)
	}
	if limits.MaxVelocity <= 0 || limits.MaxVelocity < limits.MinVelocity {
		return errors.Errorf("max velocity must be positive and at least min velocity %v, got %v",
			limits.MinVelocity, limits.MaxVelocity)
	}
	if limits.MaxAcceleration <= 0 || limits.MaxDeceleration <= 0 {
		return errors.Errorf("acceleration (%v) and deceleration (%v) must be positive",
			limits.MaxAcceleration, limits.MaxDeceleration)
	}
	return nil
}

// SeverityToVelocity maps a speed reduction severity in [0, 1] onto a velocity floor:
// 0 leaves the cruise velocity untouched and 1 brakes all the way to the minimum.
func (limits VelocityLimits) SeverityToVelocity(severity float64) float64 {
	return utils.Interpolate(severity, 0, 1, limits.MaxVelocity, limits.MinVelocity)
}

// vertex is a point the profile must pass through or below.
type vertex struct {
	distance float64
	velocity float64
}

// TrapezoidVelocityProfile is a piecewise linear velocity as a function of distance along a
// path. It starts and ends at the minimum velocity, ramps up and down with bounded slopes,
// cruises at the maximum velocity, and dips below it at speed reductions.
type TrapezoidVelocityProfile struct {
	limits VelocityLimits
	length float64
	lines  []spatialmath.Line
}

// NewTrapezoidVelocityProfile builds the profile for a path of the given length. Reductions
// maps distances along the path to severities in [0, 1].
func NewTrapezoidVelocityProfile(
	length float64,
	limits VelocityLimits,
	reductions map[float64]float64,
) (*TrapezoidVelocityProfile, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	if length < 0 || math.IsNaN(length) || math.IsInf(length, 0) {
		return nil, errors.Errorf("invalid profile length %v", length)
	}

	profile := &TrapezoidVelocityProfile{limits: limits, length: length}
	if length == 0 {
		origin := spatialmath.NewPoint(0, limits.MinVelocity)
		profile.lines = []spatialmath.Line{spatialmath.NewLine(origin, origin)}
		return profile, nil
	}

	vertices := profile.envelopeVertices(reductions)
	for i := 1; i < len(vertices); i++ {
		lines, err := profile.merge(vertices[i-1], vertices[i])
		if err != nil {
			return nil, err
		}
		profile.lines = append(profile.lines, lines...)
	}
	return profile, nil
}

// envelopeVertices returns the start, the end, and every reduction that is not already
// satisfied by another one's ramps, ordered by distance.
func (p *TrapezoidVelocityProfile) envelopeVertices(reductions map[float64]float64) []vertex {
	start := vertex{0, p.limits.MinVelocity}
	end := vertex{p.length, p.limits.MinVelocity}

	candidates := make([]vertex, 0, len(reductions))
	for distance, severity := range reductions {
		if severity <= 0 || distance <= 0 || distance >= p.length {
			continue
		}
		v := vertex{distance, p.limits.SeverityToVelocity(severity)}
		if v.velocity >= p.limits.MaxVelocity {
			continue
		}
		candidates = append(candidates, v)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})

	bounds := append([]vertex{start, end}, candidates...)
	kept := lo.Filter(candidates, func(v vertex, i int) bool {
		for j, other := range bounds {
			if j == i+2 {
				continue
			}
			if p.ceiling(other, v.distance) <= v.velocity {
				return false
			}
		}
		return true
	})

	return append(append([]vertex{start}, kept...), end)
}

// ceiling is the highest velocity reachable at distance given that the profile passes
// through v: ramps of the maximum acceleration and deceleration leave v on either side.
func (p *TrapezoidVelocityProfile) ceiling(v vertex, distance float64) float64 {
	if distance >= v.distance {
		return v.velocity + p.limits.MaxAcceleration*(distance-v.distance)
	}
	return v.velocity + p.limits.MaxDeceleration*(v.distance-distance)
}

// merge joins the acceleration ramp leaving from and the deceleration ramp arriving at to.
// If the ramps cross above the maximum velocity they are clipped to it and joined by a
// cruise line; otherwise both are truncated at their intersection.
func (p *TrapezoidVelocityProfile) merge(from, to vertex) ([]spatialmath.Line, error) {
	fromPoint := spatialmath.NewPoint(from.distance, from.velocity)
	toPoint := spatialmath.NewPoint(to.distance, to.velocity)
	rising := spatialmath.NewLine(
		fromPoint, spatialmath.NewPoint(from.distance+1, from.velocity+p.limits.MaxAcceleration))
	falling := spatialmath.NewLine(
		spatialmath.NewPoint(to.distance-1, to.velocity+p.limits.MaxDeceleration), toPoint)

	peak, err := rising.Intersection(falling)
	if err != nil {
		return nil, errors.Wrapf(err, "merging ramps between %v and %v", fromPoint, toPoint)
	}

	var corners []spatialmath.Point
	if peak.Y > p.limits.MaxVelocity {
		cruise := spatialmath.NewLine(
			spatialmath.NewPoint(0, p.limits.MaxVelocity), spatialmath.NewPoint(1, p.limits.MaxVelocity))
		top, err := rising.Intersection(cruise)
		if err != nil {
			return nil, errors.Wrap(err, "clipping acceleration ramp")
		}
		bottom, err := falling.Intersection(cruise)
		if err != nil {
			return nil, errors.Wrap(err, "clipping deceleration ramp")
		}
		corners = []spatialmath.Point{fromPoint, top, bottom, toPoint}
	} else {
		corners = []spatialmath.Point{fromPoint, peak, toPoint}
	}

	lines := make([]spatialmath.Line, 0, len(corners)-1)
	for i := 1; i < len(corners); i++ {
		line := spatialmath.NewLine(corners[i-1], corners[i])
		if line.IsDegenerate() {
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// Velocity returns the profile's velocity at distance. Distances outside of [0, length]
// return ErrDistanceOutOfRange.
func (p *TrapezoidVelocityProfile) Velocity(distance float64) (float64, error) {
	if math.IsNaN(distance) || distance < -domainEpsilon || distance > p.length+domainEpsilon {
		return 0, errors.Wrapf(ErrDistanceOutOfRange, "distance %v not in [0, %v]", distance, p.length)
	}
	distance = utils.Clamp(distance, 0, p.length)

	for _, line := range p.lines {
		if distance < line.Initial().X-domainEpsilon || distance > line.Terminal().X+domainEpsilon {
			continue
		}
		velocity := line.Initial().Y
		if point, ok := line.EvaluateX(distance); ok {
			velocity = point.Y
		}
		return utils.Clamp(velocity, p.limits.MinVelocity, p.limits.MaxVelocity), nil
	}
	return 0, errors.Wrapf(ErrDistanceOutOfRange, "no profile line covers distance %v", distance)
}

// Length returns the distance covered by the profile.
func (p *TrapezoidVelocityProfile) Length() float64 {
	return p.length
}

// Limits returns the limits the profile was built with.
func (p *TrapezoidVelocityProfile) Limits() VelocityLimits {
	return p.limits
}

// Lines returns the profile's lines in distance-velocity space, ordered by distance.
func (p *TrapezoidVelocityProfile) Lines() []spatialmath.Line {
	return append([]spatialmath.Line(nil), p.lines...)
}

// Corners returns the end points of the profile lines, ordered by distance.
func (p *TrapezoidVelocityProfile) Corners() []spatialmath.Point {
	if len(p.lines) == 0 {
		return nil
	}
	corners := lo.Map(p.lines, func(line spatialmath.Line, _ int) spatialmath.Point {
		return line.Initial()
	})
	return append(corners, p.lines[len(p.lines)-1].Terminal())
}

func (p *TrapezoidVelocityProfile) String() string {
	return fmt.Sprintf("trapezoid profile over %.3f with %d lines", p.length, len(p.lines))
}
