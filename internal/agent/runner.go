package agent

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pecuschain/farmsync/internal/config"
)

// Scheduler timing constants.
const (
	// failureWait replaces the configured interval after a failed
	// cycle so a transient outage is retried promptly.
	failureWait = 60 * time.Second

	// sleepSlice bounds each individual sleep so the scheduler can
	// notice wall clock jumps after a machine suspend.
	sleepSlice = time.Minute

	// resumeSlack is how far past a slice the wall clock must land
	// before the gap is treated as a suspend/resume rather than
	// scheduler jitter.
	resumeSlack = 30 * time.Second
)

// waitEvent says why a scheduler wait returned.
type waitEvent int

const (
	waitElapsed waitEvent = iota
	waitNudged
)

// Runner drives sync cycles at a fixed interval until its context is
// canceled. Cycles never overlap: the loop is strictly sequential.
// Configuration is re-read before every cycle so interval or database
// changes take effect without a restart.
type Runner struct {
	syncer     *Syncer
	loadConfig func() (*config.Config, error)
	logger     *slog.Logger
	nudge      chan struct{}

	// now and wait are the scheduler's clock and sleep, injectable
	// for tests.
	now  func() time.Time
	wait func(ctx context.Context, d time.Duration) (waitEvent, error)
}

// NewRunner creates a Runner. loadConfig is called at the top of every
// cycle.
func NewRunner(syncer *Syncer, loadConfig func() (*config.Config, error), logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Runner{
		syncer:     syncer,
		loadConfig: loadConfig,
		logger:     logger,
		nudge:      make(chan struct{}, 1),
		now:        time.Now,
	}
	r.wait = r.sleepOrNudge

	return r
}

// Nudge asks the scheduler to start the next cycle early. Non-blocking;
// nudges arriving while one is already pending are coalesced.
func (r *Runner) Nudge() {
	select {
	case r.nudge <- struct{}{}:
	default:
	}
}

// Run executes sync cycles until ctx is canceled, then returns nil.
// A cycle failure is logged and shortens the following wait to
// failureWait; it never stops the loop.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("sync agent started")

	for {
		interval := failureWait

		cfg, err := r.loadConfig()
		if err != nil {
			r.logger.Error("loading configuration", slog.String("error", err.Error()))
		} else {
			interval = cfg.Interval()

			if err := r.syncer.RunCycle(ctx, cfg); err != nil {
				if ctx.Err() != nil {
					r.logger.Info("sync agent stopping")
					return nil
				}

				r.logger.Error("sync cycle failed",
					slog.String("error", err.Error()),
					slog.Duration("retry_in", failureWait),
				)

				interval = failureWait
			}
		}

		if err := r.waitNext(ctx, interval); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				r.logger.Info("sync agent stopping")
				return nil
			}

			return err
		}
	}
}

// waitNext sleeps until the next cycle is due. Sleeping happens in
// bounded slices: if the wall clock jumps well past a slice, the
// machine was suspended, and the pass resumes with an immediate cycle
// instead of blindly finishing the old schedule.
func (r *Runner) waitNext(ctx context.Context, interval time.Duration) error {
	deadline := r.now().Add(interval)

	for {
		remaining := deadline.Sub(r.now())
		if remaining <= 0 {
			return nil
		}

		slice := remaining
		if slice > sleepSlice {
			slice = sleepSlice
		}

		before := r.now()

		ev, err := r.wait(ctx, slice)
		if err != nil {
			return err
		}

		if ev == waitNudged {
			r.logger.Info("database activity detected, starting cycle early")
			return nil
		}

		if gap := r.now().Sub(before) - slice; gap > resumeSlack {
			r.logger.Warn("wall clock jump detected, starting cycle now",
				slog.Duration("gap", gap),
			)

			return nil
		}
	}
}

// sleepOrNudge waits for d, a nudge, or context cancellation.
func (r *Runner) sleepOrNudge(ctx context.Context, d time.Duration) (waitEvent, error) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return waitElapsed, ctx.Err()
	case <-r.nudge:
		return waitNudged, nil
	case <-timer.C:
		return waitElapsed, nil
	}
}
