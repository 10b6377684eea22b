package cli

import (
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/purepursuit/components/base/fake"
	"go.viam.com/purepursuit/config"
	"go.viam.com/purepursuit/control"
	"go.viam.com/purepursuit/control/purepursuit"
	"go.viam.com/purepursuit/logging"
	"go.viam.com/purepursuit/path"
	"go.viam.com/purepursuit/spatialmath"
	"go.viam.com/purepursuit/utils"
)

func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

// loadConfig reads the file named by the config flag, or the defaults when there is none,
// and returns it with a logger writing to the app's error writer and the configured log
// file. Callers must call the returned cleanup when done.
func loadConfig(c *cli.Context) (*config.Config, logging.Logger, func() error, error) {
	logger := logging.NewBlankLogger("purepursuit")
	logger.AddAppender(logging.NewWriterAppender(c.App.ErrWriter))

	cfg := config.Default()
	if file := c.String(configFlag); file != "" {
		var err error
		cfg, err = config.Read(c.Context, file, logger)
		if err != nil {
			return nil, nil, nil, err
		}
	}
	if c.Bool(debugFlag) {
		cfg.Debug = true
	}
	logger.SetLevel(cfg.Level())

	closer := cfg.AddLogFile(logger)
	cleanup := func() error {
		err := logger.Sync()
		if closer != nil {
			err = multierr.Combine(err, closer.Close())
		}
		return err
	}
	return cfg, logger, cleanup, nil
}

func parseReductions(raw []string) (map[float64]float64, error) {
	reductions := make(map[float64]float64, len(raw))
	for _, r := range raw {
		distanceStr, severityStr, ok := strings.Cut(r, ":")
		if !ok {
			return nil, errors.Errorf("reduction %q is not DISTANCE:SEVERITY", r)
		}
		distance, err := strconv.ParseFloat(strings.TrimSpace(distanceStr), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "reduction %q has a bad distance", r)
		}
		severity, err := strconv.ParseFloat(strings.TrimSpace(severityStr), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "reduction %q has a bad severity", r)
		}
		reductions[distance] = math.Max(reductions[distance], severity)
	}
	return reductions, nil
}

// ProfileAction is the corresponding Action for 'profile'.
func ProfileAction(c *cli.Context) (err error) {
	cfg, logger, cleanup, err := loadConfig(c)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, cleanup())
	}()

	var profile *control.TrapezoidVelocityProfile
	if c.IsSet(profileFlagLength) {
		reductions, err := parseReductions(c.StringSlice(profileFlagReduction))
		if err != nil {
			return err
		}
		profile, err = control.NewTrapezoidVelocityProfile(
			c.Float64(profileFlagLength), cfg.Constraints.VelocityLimits(), reductions)
		if err != nil {
			return err
		}
	} else {
		if c.IsSet(profileFlagReduction) {
			return errors.Errorf("--%s needs --%s; configured paths derive their own reductions",
				profileFlagReduction, profileFlagLength)
		}
		p, err := cfg.BuildPath()
		if err != nil {
			return errors.Wrap(err, "building the configured path")
		}
		profile = p.Profile()
	}
	logger.Debugw("profile", "length", profile.Length(), "lines", len(profile.Lines()))

	step := c.Float64(profileFlagStep)
	if step <= 0 {
		return errors.Errorf("--%s must be positive, got %v", profileFlagStep, step)
	}
	samples, err := sampleProfile(profile, step)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Distance", "Velocity"})
	for _, sample := range samples {
		t.AppendRow(table.Row{fmt.Sprintf("%.3f", sample.X), fmt.Sprintf("%.3f", sample.Y)})
	}
	t.AppendFooter(table.Row{"Lines", len(profile.Lines())})
	printf(c.App.Writer, "%s", t.Render())

	if file := c.String(profileFlagPlot); file != "" {
		if err := savePlot(profile, samples, file); err != nil {
			return err
		}
		printf(c.App.Writer, "saved plot to %s", file)
	}
	return nil
}

// sampleProfile evaluates the profile every step along its length, including both ends.
func sampleProfile(profile *control.TrapezoidVelocityProfile, step float64) ([]spatialmath.Point, error) {
	count := int(math.Ceil(profile.Length() / step))
	samples := make([]spatialmath.Point, 0, count+1)
	for i := 0; i <= count; i++ {
		distance := math.Min(float64(i)*step, profile.Length())
		velocity, err := profile.Velocity(distance)
		if err != nil {
			return nil, err
		}
		samples = append(samples, spatialmath.NewPoint(distance, velocity))
	}
	return samples, nil
}

// LookaheadAction is the corresponding Action for 'lookahead'.
func LookaheadAction(c *cli.Context) (err error) {
	cfg, _, cleanup, err := loadConfig(c)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, cleanup())
	}()
	p, err := cfg.BuildPath()
	if err != nil {
		return errors.Wrap(err, "building the configured path")
	}

	pose := spatialmath.NewPose(c.Float64(poseFlagX), c.Float64(poseFlagY), c.Float64(poseFlagHeading))
	velocity, err := p.Velocity(pose)
	if err != nil {
		return err
	}
	lookahead := p.LookaheadPoint(pose)
	curvature := purepursuit.Curvature(pose, lookahead)
	left, right := purepursuit.WheelVelocities(velocity, curvature, cfg.Controller.TrackWidth, cfg.Controller.Direction)

	t := table.NewWriter()
	t.AppendRows([]table.Row{
		{"Pose", pose.String()},
		{"Segment", p.CurrentSegment()},
		{"Velocity", fmt.Sprintf("%.3f", velocity)},
		{"Lookahead", lookahead.String()},
		{"Curvature", fmt.Sprintf("%.5f", curvature)},
		{"Left", fmt.Sprintf("%.3f", left)},
		{"Right", fmt.Sprintf("%.3f", right)},
		{"Done", p.IsDone(pose)},
	})
	printf(c.App.Writer, "%s", t.Render())
	return nil
}

// SimulateAction is the corresponding Action for 'simulate'.
func SimulateAction(c *cli.Context) (err error) {
	cfg, logger, cleanup, err := loadConfig(c)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, cleanup())
	}()
	p, err := cfg.BuildPath()
	if err != nil {
		return errors.Wrap(err, "building the configured path")
	}

	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	b, err := cfg.NewBase(ctx, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, b.Close(ctx))
	}()
	sim, ok := b.(*fake.Base)
	if !ok {
		return errors.Wrapf(utils.NewUnexpectedTypeError(sim, b), "simulate needs the %q base model", fake.ModelName)
	}

	controller, err := cfg.NewController(b, logger)
	if err != nil {
		return err
	}
	dt := c.Duration(simulateFlagStep)
	if dt <= 0 {
		dt = time.Duration(float64(time.Second) / cfg.Loop.FrequencyHz)
	}

	result, err := simulate(ctx, controller, sim, p, dt, c.Int(simulateFlagMaxTicks), c.Int(simulateFlagTrace))
	if err != nil {
		return err
	}
	if len(result.trace) > 0 {
		printf(c.App.Writer, "%s", result.traceTable())
	}
	summary, err := result.summaryTable()
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", summary)
	return nil
}

type simulation struct {
	ticks          int
	dt             time.Duration
	final          spatialmath.Pose
	goal           spatialmath.Point
	trackingErrors []float64
	trace          []purepursuit.Command
}

// simulate follows p with the fake base, stepping it by dt after every controller tick.
func simulate(
	ctx context.Context,
	controller *purepursuit.Controller,
	sim *fake.Base,
	p *path.Path,
	dt time.Duration,
	maxTicks, traceEvery int,
) (*simulation, error) {
	polyline := pathLines(p)
	if len(polyline) == 0 {
		return nil, path.ErrNoWaypoints
	}
	result := &simulation{dt: dt, goal: polyline[len(polyline)-1].Terminal()}

	controller.FollowPath(p)
	for ; controller.IsFollowing(); result.ticks++ {
		if result.ticks >= maxTicks {
			return nil, multierr.Combine(
				errors.Errorf("path not finished after %d ticks", maxTicks),
				controller.StopDrive(ctx),
			)
		}
		if err := controller.UpdateFollower(ctx); err != nil {
			return nil, err
		}
		command := controller.LastCommand()
		if controller.IsFollowing() {
			result.trackingErrors = append(result.trackingErrors, distanceToLines(polyline, command.Pose.Point))
			if traceEvery > 0 && result.ticks%traceEvery == 0 {
				result.trace = append(result.trace, command)
			}
		}
		sim.Step(dt)
	}

	pose, err := sim.CurrentPose(ctx)
	if err != nil {
		return nil, err
	}
	result.final = pose
	return result, nil
}

// pathLines returns the straight lines joining the waypoints of every segment, in order.
func pathLines(p *path.Path) []spatialmath.Line {
	var lines []spatialmath.Line
	for _, segment := range p.Segments() {
		waypoints := segment.Waypoints()
		if len(waypoints) == 1 {
			lines = append(lines, spatialmath.NewLine(waypoints[0], waypoints[0]))
		}
		for i := 1; i < len(waypoints); i++ {
			lines = append(lines, spatialmath.NewLine(waypoints[i-1], waypoints[i]))
		}
	}
	return lines
}

func distanceToLines(lines []spatialmath.Line, point spatialmath.Point) float64 {
	return lo.Min(lo.Map(lines, func(line spatialmath.Line, _ int) float64 {
		return line.ClosestPointInSection(point).Distance(point)
	}))
}

func (s *simulation) traceTable() string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"X", "Y", "Heading", "Velocity", "Curvature", "Left", "Right"})
	for _, command := range s.trace {
		t.AppendRow(table.Row{
			fmt.Sprintf("%.3f", command.Pose.X),
			fmt.Sprintf("%.3f", command.Pose.Y),
			fmt.Sprintf("%.2f", command.Pose.Heading),
			fmt.Sprintf("%.3f", command.Velocity),
			fmt.Sprintf("%.5f", command.Curvature),
			fmt.Sprintf("%.3f", command.Left),
			fmt.Sprintf("%.3f", command.Right),
		})
	}
	return t.Render()
}

func (s *simulation) summaryTable() (string, error) {
	t := table.NewWriter()
	t.AppendRows([]table.Row{
		{"Ticks", s.ticks},
		{"Time", (time.Duration(s.ticks) * s.dt).String()},
		{"Final pose", s.final.String()},
		{"Distance to goal", fmt.Sprintf("%.3f", s.final.Distance(s.goal))},
	})
	if len(s.trackingErrors) > 0 {
		mean, err := stats.Mean(s.trackingErrors)
		if err != nil {
			return "", err
		}
		p95, err := stats.Percentile(s.trackingErrors, 95)
		if err != nil {
			return "", err
		}
		maximum, err := stats.Max(s.trackingErrors)
		if err != nil {
			return "", err
		}
		t.AppendRows([]table.Row{
			{"Mean tracking error", fmt.Sprintf("%.3f", mean)},
			{"P95 tracking error", fmt.Sprintf("%.3f", p95)},
			{"Max tracking error", fmt.Sprintf("%.3f", maximum)},
		})
	}
	return t.Render(), nil
}
