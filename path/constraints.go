package path

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/purepursuit/control"
)

// Constraints are the limits a path is followed within. Velocities are in path units per
// second; acceleration and deceleration are velocity change per unit of distance.
type Constraints struct {
	MinVelocity         float64 `json:"min_velocity"`
	MaxVelocity         float64 `json:"max_velocity"`
	MaxAcceleration     float64 `json:"max_acceleration"`
	MaxDeceleration     float64 `json:"max_deceleration"`
	LookaheadDistance   float64 `json:"lookahead_distance"`
	CompletionTolerance float64 `json:"completion_tolerance"`
}

// DefaultConstraints returns the constraints used when a path is built without any.
func DefaultConstraints() Constraints {
	return Constraints{
		MinVelocity:         5,
		MaxVelocity:         40,
		MaxAcceleration:     1,
		MaxDeceleration:     1,
		LookaheadDistance:   15,
		CompletionTolerance: 1,
	}
}

// Validate ensures all parts of the constraints are valid.
func (c Constraints) Validate(path string) error {
	var err error
	for _, required := range []struct {
		name  string
		value float64
	}{
		{"max_velocity", c.MaxVelocity},
		{"max_acceleration", c.MaxAcceleration},
		{"max_deceleration", c.MaxDeceleration},
		{"lookahead_distance", c.LookaheadDistance},
	} {
		if required.value == 0 {
			err = multierr.Append(err, utils.NewConfigValidationFieldRequiredError(path, required.name))
		}
	}
	if err != nil {
		return err
	}

	if c.LookaheadDistance < 0 {
		err = multierr.Append(err, utils.NewConfigValidationError(path,
			errors.Errorf("lookahead_distance must be positive, got %v", c.LookaheadDistance)))
	}
	if c.CompletionTolerance < 0 {
		err = multierr.Append(err, utils.NewConfigValidationError(path,
			errors.Errorf("completion_tolerance cannot be negative, got %v", c.CompletionTolerance)))
	}
	if limitsErr := c.VelocityLimits().Validate(); limitsErr != nil {
		err = multierr.Append(err, utils.NewConfigValidationError(path, limitsErr))
	}
	return err
}

// VelocityLimits returns the subset of the constraints that shape the velocity profile.
func (c Constraints) VelocityLimits() control.VelocityLimits {
	return control.VelocityLimits{
		MinVelocity:     c.MinVelocity,
		MaxVelocity:     c.MaxVelocity,
		MaxAcceleration: c.MaxAcceleration,
		MaxDeceleration: c.MaxDeceleration,
	}
}
