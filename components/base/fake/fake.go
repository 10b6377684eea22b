// Package fake implements a simulated differential drive base.
package fake

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/purepursuit/components/base"
	"go.viam.com/purepursuit/logging"
	"go.viam.com/purepursuit/spatialmath"
	rutils "go.viam.com/purepursuit/utils"
)

// ModelName is the model the fake base registers under.
const ModelName = "fake"

const defaultTrackWidth = 12

func init() {
	base.RegisterModel(ModelName, func(
		ctx context.Context, attributes rutils.AttributeMap, logger logging.Logger,
	) (base.Base, error) {
		var conf Config
		if err := rutils.TransformAttributeMapToStruct(attributes, &conf); err != nil {
			return nil, err
		}
		if err := conf.Validate("base.attributes"); err != nil {
			return nil, err
		}
		return NewBase(conf, clock.New(), logger), nil
	})
}

// Config is how you configure a fake base.
type Config struct {
	TrackWidth       float64 `json:"track_width,omitempty"`
	MaxWheelVelocity float64 `json:"max_wheel_velocity,omitempty"`
	StartX           float64 `json:"start_x,omitempty"`
	StartY           float64 `json:"start_y,omitempty"`
	StartHeading     float64 `json:"start_heading,omitempty"`
	// Realtime integrates the commanded velocities over the time that passes on the clock.
	// Otherwise the base only moves when stepped.
	Realtime bool `json:"realtime,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	if conf.TrackWidth < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("track_width cannot be negative, got %v", conf.TrackWidth))
	}
	if conf.MaxWheelVelocity < 0 {
		return utils.NewConfigValidationError(path,
			errors.Errorf("max_wheel_velocity cannot be negative, got %v", conf.MaxWheelVelocity))
	}
	return nil
}

// Base is a simulated base. It integrates the last commanded wheel velocities with
// differential drive kinematics; headings are in degrees, counter-clockwise positive.
type Base struct {
	mu       sync.Mutex
	conf     Config
	clock    clock.Clock
	logger   logging.Logger
	pose     spatialmath.Pose
	left     float64
	right    float64
	lastStep time.Time
	commands int

	CloseCount int
}

// NewBase returns a fake base at the configured start pose.
func NewBase(conf Config, clk clock.Clock, logger logging.Logger) *Base {
	if conf.TrackWidth == 0 {
		conf.TrackWidth = defaultTrackWidth
	}
	return &Base{
		conf:     conf,
		clock:    clk,
		logger:   logger,
		pose:     spatialmath.NewPose(conf.StartX, conf.StartY, conf.StartHeading),
		lastStep: clk.Now(),
	}
}

// TrackWidth returns the distance between the simulated wheels.
func (b *Base) TrackWidth() float64 {
	return b.conf.TrackWidth
}

// CurrentPose returns the simulated pose.
func (b *Base) CurrentPose(ctx context.Context) (spatialmath.Pose, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return spatialmath.Pose{}, err
	}
	b.advance()
	return b.pose, nil
}

// SetPose moves the base without driving it.
func (b *Base) SetPose(pose spatialmath.Pose) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pose = pose
	b.lastStep = b.clock.Now()
}

// SetDriveVelocities stores the wheel velocities, saturated at the configured maximum.
func (b *Base) SetDriveVelocities(ctx context.Context, left, right float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if math.IsNaN(left) || math.IsNaN(right) {
		return errors.Errorf("invalid wheel velocities %v, %v", left, right)
	}
	b.advance()
	if limit := b.conf.MaxWheelVelocity; limit > 0 {
		left = rutils.Clamp(left, -limit, limit)
		right = rutils.Clamp(right, -limit, limit)
	}
	b.left, b.right = left, right
	b.commands++
	return nil
}

// DriveVelocities returns the last commanded wheel velocities.
func (b *Base) DriveVelocities() (float64, float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.left, b.right
}

// Commands returns how many times wheel velocities have been set.
func (b *Base) Commands() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.commands
}

// Stop zeroes the wheel velocities.
func (b *Base) Stop(ctx context.Context) error {
	return b.SetDriveVelocities(ctx, 0, 0)
}

// IsMoving reports whether either wheel is commanded to move.
func (b *Base) IsMoving(ctx context.Context) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.left != 0 || b.right != 0, nil
}

// Step integrates the current wheel velocities over dt.
func (b *Base) Step(dt time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.step(dt.Seconds())
}

// Close stops the base.
func (b *Base) Close(ctx context.Context) error {
	b.mu.Lock()
	b.CloseCount++
	b.mu.Unlock()
	return b.Stop(ctx)
}

// advance integrates over the clock time since the last update when running in real time.
func (b *Base) advance() {
	now := b.clock.Now()
	if b.conf.Realtime {
		b.step(now.Sub(b.lastStep).Seconds())
	}
	b.lastStep = now
}

func (b *Base) step(seconds float64) {
	if seconds <= 0 {
		return
	}
	linear := (b.left + b.right) / 2
	angular := (b.right - b.left) / b.conf.TrackWidth

	// integrate along the chord at the mean heading of the step
	mid := rutils.DegToRad(b.pose.Heading) + angular*seconds/2
	b.pose.X += linear * math.Cos(mid) * seconds
	b.pose.Y += linear * math.Sin(mid) * seconds
	b.pose.Heading = rutils.AngleWrap(b.pose.Heading + rutils.RadToDeg(angular*seconds))
}
