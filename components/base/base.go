// Package base defines what a path follower needs from a mobile base: a way to read the
// robot's pose and a way to command its wheels.
package base

import (
	"context"
	"sort"
	"sync"

	"github.com/samber/lo"

	"go.viam.com/purepursuit/logging"
	"go.viam.com/purepursuit/spatialmath"
	"go.viam.com/purepursuit/utils"
)

// A PoseSource reports the robot's best estimate of its pose in path coordinates.
type PoseSource interface {
	CurrentPose(ctx context.Context) (spatialmath.Pose, error)
}

// A DriveActuator commands the two sides of a differential drive.
type DriveActuator interface {
	// SetDriveVelocities sets signed left and right wheel velocities in path units per second.
	SetDriveVelocities(ctx context.Context, left, right float64) error
	// Stop commands both sides to zero.
	Stop(ctx context.Context) error
}

// Base is a differential drive base that can both be driven and report its pose.
type Base interface {
	PoseSource
	DriveActuator
	Close(ctx context.Context) error
}

// A Constructor creates a base from its configuration attributes.
type Constructor func(ctx context.Context, attributes utils.AttributeMap, logger logging.Logger) (Base, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Constructor{}
)

// RegisterModel registers a base model. Registering the same model twice panics.
func RegisterModel(model string, constructor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[model]; ok {
		panic("base model " + model + " already registered")
	}
	registry[model] = constructor
}

// RegisteredModels returns the names of every registered model, sorted.
func RegisteredModels() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	models := lo.Keys(registry)
	sort.Strings(models)
	return models
}

// New creates a base of the given model.
func New(ctx context.Context, model string, attributes utils.AttributeMap, logger logging.Logger) (Base, error) {
	registryMu.RLock()
	constructor, ok := registry[model]
	registryMu.RUnlock()
	if !ok {
		return nil, utils.NewUnsupportedModelError("base", model)
	}
	return constructor(ctx, attributes, logger.Sublogger(model))
}
