// Package purepursuit steers a differential drive base along a path with the pure pursuit
// tracking law: aim at a point one lookahead distance ahead on the path and turn with the
// curvature of the arc that reaches it.
package purepursuit

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/purepursuit/components/base"
	"go.viam.com/purepursuit/logging"
	"go.viam.com/purepursuit/path"
	"go.viam.com/purepursuit/spatialmath"
	"go.viam.com/purepursuit/utils"
)

const (
	// wheelNormalization scales curvature times track width into a fraction of the body
	// velocity added to one side and removed from the other.
	wheelNormalization = 1.5
	// minLookaheadDX keeps the angle to the lookahead point away from a vertical tangent.
	minLookaheadDX = 0.3
)

// FollowDirection is which end of the chassis leads along the path.
type FollowDirection int

const (
	// Forward drives the chassis front first.
	Forward FollowDirection = iota
	// Reverse drives the chassis back first while keeping the path's geometry.
	Reverse
)

// FollowDirectionFromString parses "forward" or "reverse". The empty string is forward.
func FollowDirectionFromString(s string) (FollowDirection, error) {
	switch strings.ToLower(s) {
	case "", "forward":
		return Forward, nil
	case "reverse":
		return Reverse, nil
	}
	return Forward, errors.Errorf("unknown follow direction %q", s)
}

func (d FollowDirection) String() string {
	if d == Reverse {
		return "reverse"
	}
	return "forward"
}

// MarshalJSON writes the direction name.
func (d FollowDirection) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON reads a direction name.
func (d *FollowDirection) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := FollowDirectionFromString(name)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Command is what the controller decided on a single tick.
type Command struct {
	Pose      spatialmath.Pose
	Lookahead spatialmath.Point
	Velocity  float64
	Curvature float64
	Left      float64
	Right     float64
}

// Controller follows one path at a time with a differential drive base. It is driven by
// calling UpdateFollower once per control tick.
type Controller struct {
	mu         sync.Mutex
	poses      base.PoseSource
	drive      base.DriveActuator
	trackWidth float64
	direction  FollowDirection
	logger     logging.Logger

	path        *path.Path
	runID       uuid.UUID
	following   bool
	lastCommand Command
}

// NewController returns an idle controller.
func NewController(
	poses base.PoseSource,
	drive base.DriveActuator,
	trackWidth float64,
	direction FollowDirection,
	logger logging.Logger,
) (*Controller, error) {
	if poses == nil || drive == nil {
		return nil, errors.New("controller needs both a pose source and a drive")
	}
	if trackWidth <= 0 {
		return nil, errors.Errorf("track width must be positive, got %v", trackWidth)
	}
	return &Controller{
		poses:      poses,
		drive:      drive,
		trackWidth: trackWidth,
		direction:  direction,
		logger:     logger,
	}, nil
}

// TrackWidth returns the distance between the wheels.
func (c *Controller) TrackWidth() float64 {
	return c.trackWidth
}

// FollowPath rewinds p and starts following it from the next tick.
func (c *Controller) FollowPath(p *path.Path) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p.Reset()
	c.path = p
	c.runID = uuid.New()
	c.following = true
	c.lastCommand = Command{}
	c.logger.Infow("following path",
		"run", c.runID,
		"length", p.Length(),
		"segments", len(p.Segments()),
		"direction", c.direction)
}

// RunID identifies the current or last follow run. It is the zero UUID before the first.
func (c *Controller) RunID() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runID
}

// IsFollowing reports whether a path is being followed.
func (c *Controller) IsFollowing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.following
}

// IsPathFinished reports whether there is nothing left to follow.
func (c *Controller) IsPathFinished() bool {
	return !c.IsFollowing()
}

// FollowDirection returns which end of the chassis leads.
func (c *Controller) FollowDirection() FollowDirection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.direction
}

// SetFollowDirection changes which end of the chassis leads.
func (c *Controller) SetFollowDirection(direction FollowDirection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.direction = direction
}

// LastCommand returns the command issued by the last successful tick.
func (c *Controller) LastCommand() Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastCommand
}

// StopDrive commands both sides of the drive to zero.
func (c *Controller) StopDrive(ctx context.Context) error {
	return c.drive.SetDriveVelocities(ctx, 0, 0)
}

// UpdateFollower runs one control tick. Without a path to follow it stops the drive.
// Any failure during the tick also stops the drive and is returned, but does not end the
// follow run; the next tick tries again.
func (c *Controller) UpdateFollower(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.path == nil || !c.following {
		return c.StopDrive(ctx)
	}

	pose, err := c.poses.CurrentPose(ctx)
	if err != nil {
		return c.stopWithError(ctx, errors.Wrap(err, "reading current pose"))
	}

	followPose := pose
	if c.direction == Reverse {
		followPose.Heading = math.Mod(pose.Heading+360, 360) - 180
	}

	velocity, err := c.path.Velocity(followPose)
	if err != nil {
		c.logger.Warnw("no velocity for pose", "pose", followPose, "error", err)
		return c.stopWithError(ctx, err)
	}
	lookahead := c.path.LookaheadPoint(followPose)

	// curvature is measured from the chassis as it actually faces
	curvature := Curvature(pose, lookahead)
	left, right := WheelVelocities(velocity, curvature, c.trackWidth, c.direction)

	c.logger.Debugw("tick",
		"length", c.path.Length(),
		"pose", followPose,
		"lookahead", lookahead,
		"velocity", velocity,
		"curvature", curvature)

	if err := c.drive.SetDriveVelocities(ctx, left, right); err != nil {
		return c.stopWithError(ctx, errors.Wrap(err, "setting drive velocities"))
	}
	c.lastCommand = Command{
		Pose:      pose,
		Lookahead: lookahead,
		Velocity:  velocity,
		Curvature: curvature,
		Left:      left,
		Right:     right,
	}

	if c.path.IsDone(followPose) {
		c.following = false
		c.logger.Infow("finished path", "run", c.runID, "pose", pose)
	}
	return nil
}

func (c *Controller) stopWithError(ctx context.Context, err error) error {
	return multierr.Combine(err, c.StopDrive(ctx))
}

// Curvature returns the curvature of the arc from pose to point. The sign follows the
// heading minus the bearing to the point, so a point to the left of the heading gives a
// negative curvature. Points more than 90 degrees off the heading get the tightest turn
// for their distance, and a point on top of the pose gives 0.
func Curvature(pose spatialmath.Pose, point spatialmath.Point) float64 {
	delta := point.Sub(pose.Point)

	dx := delta.X
	if math.Abs(dx) <= minLookaheadDX {
		dx = minLookaheadDX * utils.Sign(dx)
	}
	angle := utils.RadToDeg(math.Atan2(delta.Y, dx))
	deltaAngle := utils.AngleWrap(pose.Heading - angle)

	turn := math.Sin(utils.DegToRad(deltaAngle))
	if math.Abs(deltaAngle) > 90 {
		turn = utils.Sign(deltaAngle)
	}
	curvature := turn / (delta.Magnitude() / 2)
	if math.IsInf(curvature, 0) || math.IsNaN(curvature) {
		return 0
	}
	return curvature
}

// WheelVelocities converts a body velocity and curvature into left and right wheel
// velocities. Driving in reverse negates and swaps the sides.
func WheelVelocities(velocity, curvature, trackWidth float64, direction FollowDirection) (float64, float64) {
	outer := velocity * (wheelNormalization + curvature*trackWidth) / wheelNormalization
	inner := velocity * (wheelNormalization - curvature*trackWidth) / wheelNormalization
	if direction == Reverse {
		return -inner, -outer
	}
	return outer, inner
}
