package purepursuit

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/purepursuit/components/base/fake"
	"go.viam.com/purepursuit/logging"
	"go.viam.com/purepursuit/path"
	"go.viam.com/purepursuit/spatialmath"
)

// scriptedBase reports a fixed pose and records every command it is given.
type scriptedBase struct {
	pose     spatialmath.Pose
	poseErr  error
	driveErr error
	commands [][2]float64
}

func (b *scriptedBase) CurrentPose(ctx context.Context) (spatialmath.Pose, error) {
	return b.pose, b.poseErr
}

func (b *scriptedBase) SetDriveVelocities(ctx context.Context, left, right float64) error {
	b.commands = append(b.commands, [2]float64{left, right})
	return b.driveErr
}

func (b *scriptedBase) Stop(ctx context.Context) error {
	return b.SetDriveVelocities(ctx, 0, 0)
}

func (b *scriptedBase) lastCommand() [2]float64 {
	return b.commands[len(b.commands)-1]
}

func demoPath(t *testing.T) *path.Path {
	t.Helper()
	p, err := path.Start(0, 0).LineTo(50, 0).LineTo(50, 50).LineTo(100, 50).LineTo(100, 0).LineTo(150, 0).Build()
	test.That(t, err, test.ShouldBeNil)
	return p
}

func TestCurvature(t *testing.T) {
	origin := spatialmath.NewPose(0, 0, 0)

	left := Curvature(origin, spatialmath.NewPoint(5, 5))
	right := Curvature(origin, spatialmath.NewPoint(5, -5))
	test.That(t, left, test.ShouldAlmostEqual, -0.2)
	test.That(t, right, test.ShouldAlmostEqual, 0.2)

	// a point to the left speeds up the right wheel
	l, r := WheelVelocities(10, left, 5, Forward)
	test.That(t, r, test.ShouldBeGreaterThan, l)
	l, r = WheelVelocities(10, right, 5, Forward)
	test.That(t, l, test.ShouldBeGreaterThan, r)

	test.That(t, Curvature(origin, spatialmath.NewPoint(15, 0)), test.ShouldEqual, 0.0)

	behind := spatialmath.NewPoint(-5, 1)
	test.That(t, Curvature(origin, behind), test.ShouldAlmostEqual, -1/(behind.Distance(origin.Point)/2))

	test.That(t, Curvature(origin, origin.Point), test.ShouldEqual, 0.0)
}

func TestCurvatureNearVertical(t *testing.T) {
	north := spatialmath.NewPose(0, 0, 90)
	test.That(t, Curvature(north, spatialmath.NewPoint(0, 10)), test.ShouldAlmostEqual, 0)

	// small x offsets are widened so the bearing stays away from straight up
	nudged := Curvature(north, spatialmath.NewPoint(0.1, 10))
	expectedAngle := 90 - math.Atan2(10, 0.3)*180/math.Pi
	expected := math.Sin(expectedAngle*math.Pi/180) / (spatialmath.NewPoint(0.1, 10).Distance(north.Point) / 2)
	test.That(t, nudged, test.ShouldAlmostEqual, expected)
	test.That(t, nudged, test.ShouldBeGreaterThan, 0)

	// headings wrap around
	test.That(t, Curvature(spatialmath.NewPose(0, 0, 360), spatialmath.NewPoint(5, 5)), test.ShouldAlmostEqual, -0.2)
}

func TestWheelVelocities(t *testing.T) {
	l, r := WheelVelocities(10, 0.1, 5, Forward)
	test.That(t, l, test.ShouldAlmostEqual, 40.0/3)
	test.That(t, r, test.ShouldAlmostEqual, 20.0/3)

	l, r = WheelVelocities(10, 0.1, 5, Reverse)
	test.That(t, l, test.ShouldAlmostEqual, -20.0/3)
	test.That(t, r, test.ShouldAlmostEqual, -40.0/3)

	l, r = WheelVelocities(10, 0, 5, Forward)
	test.That(t, l, test.ShouldEqual, 10.0)
	test.That(t, r, test.ShouldEqual, 10.0)
}

func TestFollowDirection(t *testing.T) {
	d, err := FollowDirectionFromString("REVERSE")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d, test.ShouldEqual, Reverse)
	d, err = FollowDirectionFromString("")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d, test.ShouldEqual, Forward)
	_, err = FollowDirectionFromString("sideways")
	test.That(t, err, test.ShouldNotBeNil)

	test.That(t, d.UnmarshalJSON([]byte(`"reverse"`)), test.ShouldBeNil)
	test.That(t, d, test.ShouldEqual, Reverse)
	out, err := d.MarshalJSON()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(out), test.ShouldEqual, `"reverse"`)
}

func TestNewControllerValidation(t *testing.T) {
	logger := logging.NewTestLogger(t)
	b := &scriptedBase{}
	_, err := NewController(b, b, 0, Forward, logger)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewController(nil, b, 5, Forward, logger)
	test.That(t, err, test.ShouldNotBeNil)
	c, err := NewController(b, b, 5, Forward, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c.TrackWidth(), test.ShouldEqual, 5.0)
}

func TestIdleControllerStops(t *testing.T) {
	ctx := context.Background()
	b := &scriptedBase{}
	c, err := NewController(b, b, 5, Forward, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	test.That(t, c.IsFollowing(), test.ShouldBeFalse)
	test.That(t, c.IsPathFinished(), test.ShouldBeTrue)
	test.That(t, c.UpdateFollower(ctx), test.ShouldBeNil)
	test.That(t, b.commands, test.ShouldResemble, [][2]float64{{0, 0}})
}

func TestUpdateFollower(t *testing.T) {
	ctx := context.Background()
	logger, logs := logging.NewObservedTestLogger(t)
	b := &scriptedBase{pose: spatialmath.NewPose(0, 0, 0)}
	c, err := NewController(b, b, 5, Forward, logger)
	test.That(t, err, test.ShouldBeNil)

	c.FollowPath(demoPath(t))
	test.That(t, c.IsFollowing(), test.ShouldBeTrue)
	test.That(t, c.UpdateFollower(ctx), test.ShouldBeNil)
	test.That(t, b.lastCommand()[0], test.ShouldAlmostEqual, 20)
	test.That(t, b.lastCommand()[1], test.ShouldAlmostEqual, 20)
	test.That(t, logs.FilterMessage("tick").Len(), test.ShouldEqual, 1)

	b.pose = spatialmath.NewPose(50, 20, 0)
	test.That(t, c.UpdateFollower(ctx), test.ShouldBeNil)
	cmd := c.LastCommand()
	test.That(t, cmd.Velocity, test.ShouldAlmostEqual, 20)
	test.That(t, cmd.Lookahead.Y, test.ShouldAlmostEqual, 35)
	// the lookahead is straight up while the chassis faces along x
	test.That(t, cmd.Curvature, test.ShouldAlmostEqual, -1/7.5)
	test.That(t, cmd.Right, test.ShouldBeGreaterThan, cmd.Left)
	test.That(t, c.IsFollowing(), test.ShouldBeTrue)
}

func TestReverseFollowing(t *testing.T) {
	ctx := context.Background()
	b := &scriptedBase{pose: spatialmath.NewPose(0, 0, 180)}
	c, err := NewController(b, b, 5, Forward, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	c.SetFollowDirection(Reverse)
	test.That(t, c.FollowDirection(), test.ShouldEqual, Reverse)

	c.FollowPath(demoPath(t))
	test.That(t, c.UpdateFollower(ctx), test.ShouldBeNil)

	cmd := c.LastCommand()
	test.That(t, cmd.Velocity, test.ShouldAlmostEqual, 20)
	// velocity and lookahead come from the flipped heading; curvature from the raw one
	test.That(t, cmd.Curvature, test.ShouldAlmostEqual, Curvature(b.pose, spatialmath.NewPoint(15, 0)))
	left, right := WheelVelocities(20, cmd.Curvature, 5, Reverse)
	test.That(t, b.lastCommand()[0], test.ShouldAlmostEqual, left)
	test.That(t, b.lastCommand()[1], test.ShouldAlmostEqual, right)
	test.That(t, b.lastCommand()[0], test.ShouldBeLessThan, 0)
	test.That(t, b.lastCommand()[1], test.ShouldBeLessThan, 0)
}

func TestFollowingFinishes(t *testing.T) {
	ctx := context.Background()
	b := &scriptedBase{pose: spatialmath.NewPose(0, 0, 0)}
	c, err := NewController(b, b, 5, Forward, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	p, err := path.Start(10, 0).Build()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c.RunID(), test.ShouldEqual, uuid.Nil)
	c.FollowPath(p)
	firstRun := c.RunID()
	test.That(t, firstRun, test.ShouldNotEqual, uuid.Nil)
	test.That(t, c.UpdateFollower(ctx), test.ShouldBeNil)
	test.That(t, c.IsFollowing(), test.ShouldBeFalse)
	test.That(t, b.lastCommand(), test.ShouldResemble, [2]float64{5, 5})

	test.That(t, c.UpdateFollower(ctx), test.ShouldBeNil)
	test.That(t, b.lastCommand(), test.ShouldResemble, [2]float64{0, 0})

	// following again starts over
	c.FollowPath(p)
	test.That(t, c.IsFollowing(), test.ShouldBeTrue)
	test.That(t, c.RunID(), test.ShouldNotEqual, firstRun)
}

func TestTickFailuresStopTheDrive(t *testing.T) {
	ctx := context.Background()
	b := &scriptedBase{pose: spatialmath.NewPose(0, 0, 0), poseErr: errors.New("no fix")}
	c, err := NewController(b, b, 5, Forward, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	c.FollowPath(demoPath(t))

	err = c.UpdateFollower(ctx)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "no fix")
	test.That(t, b.lastCommand(), test.ShouldResemble, [2]float64{0, 0})
	test.That(t, c.IsFollowing(), test.ShouldBeTrue)

	b.poseErr = nil
	b.driveErr = errors.New("motor fault")
	err = c.UpdateFollower(ctx)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "motor fault")
	test.That(t, b.lastCommand(), test.ShouldResemble, [2]float64{0, 0})
	test.That(t, c.IsFollowing(), test.ShouldBeTrue)

	b.driveErr = nil
	test.That(t, c.UpdateFollower(ctx), test.ShouldBeNil)
}

func TestSimulatedFollow(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	logger.SetLevel(logging.INFO)
	b := fake.NewBase(fake.Config{TrackWidth: 12}, clock.NewMock(), logger)
	c, err := NewController(b, b, b.TrackWidth(), Forward, logger)
	test.That(t, err, test.ShouldBeNil)

	c.FollowPath(demoPath(t))
	const dt = 20 * time.Millisecond
	ticks := 0
	for ; ticks < 10000 && c.IsFollowing(); ticks++ {
		test.That(t, c.UpdateFollower(ctx), test.ShouldBeNil)
		b.Step(dt)
	}
	test.That(t, c.IsFollowing(), test.ShouldBeFalse)

	pose, err := b.CurrentPose(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pose.Distance(spatialmath.NewPoint(150, 0)), test.ShouldBeLessThan, 5)
	test.That(t, c.UpdateFollower(ctx), test.ShouldBeNil)
	moving, err := b.IsMoving(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, moving, test.ShouldBeFalse)
}
