// Package config defines the file used to configure a path follower: the path and its
// constraints, the controller and its follow loop, and the base it drives.
package config

import (
	"context"
	"io"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/purepursuit/components/base"
	"go.viam.com/purepursuit/control/purepursuit"
	"go.viam.com/purepursuit/logging"
	"go.viam.com/purepursuit/path"
	rutils "go.viam.com/purepursuit/utils"
)

const defaultLogFileMaxSizeMB = 10

// Config is the whole configuration of a path follower.
type Config struct {
	ConfigFilePath string `json:"-"`

	Constraints path.Constraints `json:"constraints"`
	Controller  ControllerConfig `json:"controller"`
	Loop        LoopConfig       `json:"loop"`
	Base        BaseConfig       `json:"base"`
	Path        PathConfig       `json:"path"`
	Debug       bool             `json:"debug,omitempty"`
	LogLevel    *logging.Level   `json:"log_level,omitempty"`
	// LogFile also writes logs to this file, rotated every LogFileMaxSizeMB (default 10).
	LogFile          string `json:"log_file,omitempty"`
	LogFileMaxSizeMB int    `json:"log_file_max_size_mb,omitempty"`
}

// ControllerConfig configures the pure pursuit controller.
type ControllerConfig struct {
	TrackWidth float64                     `json:"track_width"`
	Direction  purepursuit.FollowDirection `json:"direction,omitempty"`
}

// LoopConfig configures the follow loop.
type LoopConfig struct {
	FrequencyHz float64 `json:"frequency_hz"`
}

// BaseConfig names a registered base model and its model specific attributes.
type BaseConfig struct {
	Model      string               `json:"model"`
	Attributes rutils.AttributeMap `json:"attributes,omitempty"`
}

// Default returns the configuration used for anything a file leaves out.
func Default() *Config {
	return &Config{
		Constraints: path.DefaultConstraints(),
		Controller:  ControllerConfig{TrackWidth: 12, Direction: purepursuit.Forward},
		Loop:        LoopConfig{FrequencyHz: 50},
		Base:        BaseConfig{Model: "fake"},
	}
}

// Ensure validates every part of the config and reports all problems at once.
func (c *Config) Ensure(logger logging.Logger) error {
	var err error
	if constraintsErr := c.Constraints.Validate("constraints"); constraintsErr != nil {
		err = multierr.Append(err, constraintsErr)
	}
	if c.Controller.TrackWidth == 0 {
		err = multierr.Append(err, utils.NewConfigValidationFieldRequiredError("controller", "track_width"))
	} else if c.Controller.TrackWidth < 0 {
		err = multierr.Append(err, utils.NewConfigValidationError("controller",
			errors.Errorf("track_width must be positive, got %v", c.Controller.TrackWidth)))
	}
	if c.Loop.FrequencyHz <= 0 || c.Loop.FrequencyHz > purepursuit.MaxFrequencyHz {
		err = multierr.Append(err, utils.NewConfigValidationError("loop",
			errors.Errorf("frequency_hz must be in (0, %d], got %v", purepursuit.MaxFrequencyHz, c.Loop.FrequencyHz)))
	}
	if pathErr := c.Path.Validate("path"); pathErr != nil {
		err = multierr.Append(err, pathErr)
	}
	if c.LogFileMaxSizeMB < 0 {
		err = multierr.Append(err, utils.NewConfigValidationError("log_file_max_size_mb",
			errors.Errorf("cannot be negative, got %d", c.LogFileMaxSizeMB)))
	}
	if c.Base.Model == "" {
		err = multierr.Append(err, utils.NewConfigValidationFieldRequiredError("base", "model"))
	}
	if err != nil {
		return err
	}

	if c.Debug && logger != nil {
		logger.Debugw("validated config", "file", c.ConfigFilePath, "base", c.Base.Model)
	}
	return nil
}

// Level returns the configured log level, which Debug raises to DEBUG.
func (c *Config) Level() logging.Level {
	if c.Debug {
		return logging.DEBUG
	}
	if c.LogLevel != nil {
		return *c.LogLevel
	}
	return logging.INFO
}

// AddLogFile adds the configured log file, if any, to logger. The returned closer is nil
// when there is no log file.
func (c *Config) AddLogFile(logger logging.Logger) io.Closer {
	if c.LogFile == "" {
		return nil
	}
	maxSize := c.LogFileMaxSizeMB
	if maxSize == 0 {
		maxSize = defaultLogFileMaxSizeMB
	}
	appender, closer := logging.NewFileAppender(c.LogFile, maxSize)
	logger.AddAppender(appender)
	return closer
}

// NewBase creates the configured base.
func (c *Config) NewBase(ctx context.Context, logger logging.Logger) (base.Base, error) {
	b, err := base.New(ctx, c.Base.Model, c.Base.Attributes, logger)
	if err != nil {
		return nil, errors.Wrap(err, "creating base")
	}
	return b, nil
}

// NewController creates a controller driving b.
func (c *Config) NewController(b base.Base, logger logging.Logger) (*purepursuit.Controller, error) {
	return purepursuit.NewController(b, b, c.Controller.TrackWidth, c.Controller.Direction, logger.Sublogger("controller"))
}

// NewLoop creates a follow loop around controller.
func (c *Config) NewLoop(controller *purepursuit.Controller, clk clock.Clock, logger logging.Logger) (*purepursuit.Loop, error) {
	return purepursuit.NewLoop(controller, c.Loop.FrequencyHz, clk, logger.Sublogger("loop"))
}
