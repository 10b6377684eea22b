package purepursuit

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.viam.com/utils"

	"go.viam.com/purepursuit/logging"
	"go.viam.com/purepursuit/path"
)

// MaxFrequencyHz is the fastest a follow loop may tick.
const MaxFrequencyHz = 200

// Loop ticks a controller at a fixed frequency until its path is finished. While a loop is
// running it is the only caller of the controller.
type Loop struct {
	controller *Controller
	clock      clock.Clock
	logger     logging.Logger
	dt         time.Duration

	running                 atomic.Bool
	mu                      sync.Mutex
	cancel                  context.CancelFunc
	runErr                  error
	activeBackgroundWorkers sync.WaitGroup
}

// NewLoop returns a loop ticking controller frequencyHz times per second on clk.
func NewLoop(controller *Controller, frequencyHz float64, clk clock.Clock, logger logging.Logger) (*Loop, error) {
	if frequencyHz <= 0 || frequencyHz > MaxFrequencyHz {
		return nil, errors.Errorf("loop frequency must be in (0, %d]Hz, got %v", MaxFrequencyHz, frequencyHz)
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Loop{
		controller: controller,
		clock:      clk,
		logger:     logger,
		dt:         time.Duration(float64(time.Second) / frequencyHz),
	}, nil
}

// Period returns the time between ticks.
func (l *Loop) Period() time.Duration {
	return l.dt
}

// Running reports whether the loop is following a path.
func (l *Loop) Running() bool {
	return l.running.Load()
}

// Run follows p until it is finished or ctx is done, then stops the drive. It returns
// ctx's error when cut short.
func (l *Loop) Run(ctx context.Context, p *path.Path) error {
	if !l.running.CompareAndSwap(false, true) {
		return errors.New("loop is already running")
	}
	defer l.running.Store(false)
	return l.run(ctx, p)
}

// Start follows p in the background. Use Stop to end the run early and collect its result.
func (l *Loop) Start(ctx context.Context, p *path.Path) error {
	if !l.running.CompareAndSwap(false, true) {
		return errors.New("loop is already running")
	}
	cancelCtx, cancel := context.WithCancel(ctx)

	l.mu.Lock()
	l.cancel = cancel
	l.runErr = nil
	l.mu.Unlock()

	l.activeBackgroundWorkers.Add(1)
	utils.ManagedGo(func() {
		defer l.running.Store(false)
		err := l.run(cancelCtx, p)
		l.mu.Lock()
		l.runErr = err
		l.mu.Unlock()
	}, l.activeBackgroundWorkers.Done)
	return nil
}

// Stop cancels a run started with Start, waits for it to end, and returns its error. A run
// that was cancelled by Stop returns nil.
func (l *Loop) Stop() error {
	l.mu.Lock()
	cancel := l.cancel
	l.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	l.activeBackgroundWorkers.Wait()

	l.mu.Lock()
	defer l.mu.Unlock()
	if errors.Is(l.runErr, context.Canceled) {
		return nil
	}
	return l.runErr
}

func (l *Loop) run(ctx context.Context, p *path.Path) error {
	l.controller.FollowPath(p)
	ticker := l.clock.Ticker(l.dt)
	defer ticker.Stop()

	l.logger.Infof("running follow loop every %v", l.dt)
	var failedTicks int
	for {
		select {
		case <-ctx.Done():
			// the run's context is gone, so stopping uses a fresh one
			if err := l.controller.StopDrive(context.Background()); err != nil {
				l.logger.Errorw("failed to stop drive", "error", err)
			}
			return ctx.Err()
		case <-ticker.C:
		}

		if err := l.controller.UpdateFollower(ctx); err != nil {
			failedTicks++
			l.logger.Warnw("follow tick failed", "error", err, "failed_ticks", failedTicks)
			continue
		}
		if l.controller.IsPathFinished() {
			l.logger.Infow("path finished", "failed_ticks", failedTicks)
			return l.controller.StopDrive(ctx)
		}
	}
}
