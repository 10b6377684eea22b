package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"

	_ "go.viam.com/purepursuit/components/base/fake"
	"go.viam.com/purepursuit/control/purepursuit"
	"go.viam.com/purepursuit/logging"
	"go.viam.com/purepursuit/path"
)

func TestFromReaderDefaults(t *testing.T) {
	logger := logging.NewTestLogger(t)
	cfg, err := FromReader(context.Background(), "", strings.NewReader(`{}`), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg, test.ShouldResemble, Default())
	test.That(t, cfg.Level(), test.ShouldEqual, logging.INFO)
}

func TestFromReaderOverrides(t *testing.T) {
	logger := logging.NewTestLogger(t)
	cfg, err := FromReader(context.Background(), "follow.json", strings.NewReader(`{
		"constraints": {"max_velocity": 60, "lookahead_distance": 10},
		"controller": {"track_width": 24, "direction": "reverse"},
		"loop": {"frequency_hz": 100},
		"base": {"model": "fake", "attributes": {"track_width": 24, "start_x": 5}},
		"log_level": "warn"
	}`), logger)
	test.That(t, err, test.ShouldBeNil)

	expected := path.DefaultConstraints()
	expected.MaxVelocity = 60
	expected.LookaheadDistance = 10
	test.That(t, cfg.Constraints, test.ShouldResemble, expected)
	test.That(t, cfg.Controller.Direction, test.ShouldEqual, purepursuit.Reverse)
	test.That(t, cfg.ConfigFilePath, test.ShouldEqual, "follow.json")
	test.That(t, cfg.Level(), test.ShouldEqual, logging.WARN)

	ctx := context.Background()
	b, err := cfg.NewBase(ctx, logger)
	test.That(t, err, test.ShouldBeNil)
	pose, err := b.CurrentPose(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pose.X, test.ShouldEqual, 5.0)

	controller, err := cfg.NewController(b, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, controller.FollowDirection(), test.ShouldEqual, purepursuit.Reverse)
	loop, err := cfg.NewLoop(controller, clock.NewMock(), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, loop.Period().Milliseconds(), test.ShouldEqual, 10)
}

func TestFromReaderInvalid(t *testing.T) {
	logger := logging.NewTestLogger(t)
	for _, tc := range []struct {
		name     string
		input    string
		contains string
	}{
		{"bad json", `{"loop": `, "decode"},
		{"negative track width", `{"controller": {"track_width": -3}}`, "track_width"},
		{"fast loop", `{"loop": {"frequency_hz": 500}}`, "frequency_hz"},
		{"no model", `{"base": {"model": ""}}`, "model"},
		{"bad constraints", `{"constraints": {"min_velocity": 80}}`, "constraints"},
		{"bad direction", `{"controller": {"direction": "sideways"}}`, "sideways"},
		{"bad segment type", `{"path": {"segments": [{"type": "arc", "waypoints": [{"x": 1}]}]}}`, "arc"},
		{"no segment type", `{"path": {"segments": [{"waypoints": [{"x": 1}]}]}}`, "type"},
		{"empty segment", `{"path": {"segments": [{"type": "line"}]}}`, "waypoints"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromReader(context.Background(), "", strings.NewReader(tc.input), logger)
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.contains)
		})
	}

	cfg, err := FromReader(context.Background(), "", strings.NewReader(`{"base": {"model": "omni"}}`), logger)
	test.That(t, err, test.ShouldBeNil)
	_, err = cfg.NewBase(context.Background(), logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestReadSubstitutesEnvironment(t *testing.T) {
	t.Setenv("PP_TRACK_WIDTH", "30")
	file := filepath.Join(t.TempDir(), "follow.json")
	test.That(t, os.WriteFile(file, []byte(`{"controller": {"track_width": ${PP_TRACK_WIDTH}}, "debug": true}`), 0o600), test.ShouldBeNil)

	cfg, err := Read(context.Background(), file, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Controller.TrackWidth, test.ShouldEqual, 30.0)
	test.That(t, cfg.Level(), test.ShouldEqual, logging.DEBUG)

	_, err = Read(context.Background(), filepath.Join(t.TempDir(), "missing.json"), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestBuildPath(t *testing.T) {
	logger := logging.NewTestLogger(t)
	cfg, err := FromReader(context.Background(), "", strings.NewReader(`{
		"constraints": {"lookahead_distance": 8},
		"path": {
			"start": {"x": 0, "y": 0},
			"segments": [
				{"type": "line", "waypoints": [{"x": 50, "y": 0}, {"x": 50, "y": 50}]},
				{"type": "smooth", "waypoints": [{"x": 100, "y": 50}, {"x": 100, "y": 100}]}
			]
		}
	}`), logger)
	test.That(t, err, test.ShouldBeNil)

	p, err := cfg.BuildPath()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.Segments(), test.ShouldHaveLength, 2)
	test.That(t, p.Constraints().LookaheadDistance, test.ShouldEqual, 8.0)
	test.That(t, p.Segments()[0].Length(), test.ShouldAlmostEqual, 100.0)
	test.That(t, p.Length(), test.ShouldBeGreaterThan, 100.0)

	_, err = Default().BuildPath()
	test.That(t, err, test.ShouldBeError, path.ErrNoWaypoints)
}

func TestAddLogFile(t *testing.T) {
	cfg := Default()
	logger := logging.NewBlankLogger("test")
	test.That(t, cfg.AddLogFile(logger), test.ShouldBeNil)

	cfg.LogFile = filepath.Join(t.TempDir(), "follow.log")
	closer := cfg.AddLogFile(logger)
	test.That(t, closer, test.ShouldNotBeNil)
	logger.Info("written")
	test.That(t, closer.Close(), test.ShouldBeNil)

	contents, err := os.ReadFile(cfg.LogFile)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(contents), test.ShouldContainSubstring, "written")

	_, err = FromReader(context.Background(), "", strings.NewReader(`{"log_file_max_size_mb": -1}`), logger)
	test.That(t, err, test.ShouldNotBeNil)
}
