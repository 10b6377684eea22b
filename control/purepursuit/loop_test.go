package purepursuit

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.viam.com/test"
	"go.viam.com/utils/testutils"

	"go.viam.com/purepursuit/components/base/fake"
	"go.viam.com/purepursuit/logging"
	"go.viam.com/purepursuit/path"
)

func newTestLoop(t *testing.T, clk clock.Clock) (*Loop, *fake.Base) {
	t.Helper()
	logger := logging.NewTestLogger(t)
	logger.SetLevel(logging.INFO)
	b := fake.NewBase(fake.Config{}, clock.NewMock(), logger)
	c, err := NewController(b, b, b.TrackWidth(), Forward, logger)
	test.That(t, err, test.ShouldBeNil)
	loop, err := NewLoop(c, 100, clk, logger)
	test.That(t, err, test.ShouldBeNil)
	return loop, b
}

func TestNewLoopFrequency(t *testing.T) {
	logger := logging.NewTestLogger(t)
	b := fake.NewBase(fake.Config{}, clock.NewMock(), logger)
	c, err := NewController(b, b, b.TrackWidth(), Forward, logger)
	test.That(t, err, test.ShouldBeNil)

	for _, hz := range []float64{0, -5, 250} {
		_, err := NewLoop(c, hz, nil, logger)
		test.That(t, err, test.ShouldNotBeNil)
	}
	loop, err := NewLoop(c, 50, nil, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, loop.Period(), test.ShouldEqual, 20*time.Millisecond)
}

func TestRunFinishesPath(t *testing.T) {
	loop, b := newTestLoop(t, clock.New())
	p, err := path.Start(3, 0).Build()
	test.That(t, err, test.ShouldBeNil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	test.That(t, loop.Run(ctx, p), test.ShouldBeNil)
	test.That(t, loop.Running(), test.ShouldBeFalse)
	test.That(t, b.Commands(), test.ShouldBeGreaterThanOrEqualTo, 2)

	moving, err := b.IsMoving(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, moving, test.ShouldBeFalse)
}

func TestRunStopsWithContext(t *testing.T) {
	loop, b := newTestLoop(t, clock.New())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := loop.Run(ctx, demoPath(t))
	test.That(t, errors.Is(err, context.DeadlineExceeded), test.ShouldBeTrue)
	test.That(t, b.Commands(), test.ShouldBeGreaterThan, 1)

	moving, err := b.IsMoving(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, moving, test.ShouldBeFalse)
}

func TestStartAndStop(t *testing.T) {
	clk := clock.NewMock()
	loop, b := newTestLoop(t, clk)
	p := demoPath(t)

	test.That(t, loop.Start(context.Background(), p), test.ShouldBeNil)
	test.That(t, loop.Running(), test.ShouldBeTrue)
	test.That(t, loop.Start(context.Background(), p), test.ShouldNotBeNil)
	test.That(t, loop.Run(context.Background(), p), test.ShouldNotBeNil)

	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		clk.Add(loop.Period())
		test.That(tb, b.Commands(), test.ShouldBeGreaterThanOrEqualTo, 3)
	})
	moving, err := b.IsMoving(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, moving, test.ShouldBeTrue)

	test.That(t, loop.Stop(), test.ShouldBeNil)
	test.That(t, loop.Running(), test.ShouldBeFalse)
	moving, err = b.IsMoving(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, moving, test.ShouldBeFalse)

	// a stopped loop can run again
	test.That(t, loop.Start(context.Background(), p), test.ShouldBeNil)
	test.That(t, loop.Stop(), test.ShouldBeNil)
}
