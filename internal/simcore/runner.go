package simcore

import (
	"context"
	"log/slog"
	"time"
)

// Runner owns a World on a single goroutine and is the only thing
// allowed to touch it, matching spec.md §5's "single-threaded
// cooperative main loop": the prediction buffer, craft states and plan
// registry require no locking because exactly one goroutine ever
// mutates them. HTTP handlers and other callers reach the World only by
// submitting a command through Do, the same message-passing discipline
// the teacher's worker pool uses for job/result exchange.
type Runner struct {
	world        *World
	cmds         chan func(*World)
	tickInterval time.Duration
	logger       *slog.Logger
}

// NewRunner creates a Runner that ticks World every tickInterval of
// wall-clock time once Run is called.
func NewRunner(world *World, tickInterval time.Duration, logger *slog.Logger) *Runner {
	return &Runner{
		world:        world,
		cmds:         make(chan func(*World), 32),
		tickInterval: tickInterval,
		logger:       logger,
	}
}

// Run drives the world loop until ctx is cancelled: every tick interval
// it advances the clock by the elapsed wall time, and in between it
// drains queued commands as they arrive. Blocks until ctx.Done().
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.tickInterval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("world runner stopped")
			return
		case cmd := <-r.cmds:
			cmd(r.world)
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			r.world.Tick(ctx, dt)
		}
	}
}

// Do submits fn to run on the owning goroutine and blocks until it has
// completed, so callers can safely read or mutate the World and
// capture a result in a closure.
func (r *Runner) Do(fn func(w *World)) {
	done := make(chan struct{})
	r.cmds <- func(w *World) {
		fn(w)
		close(done)
	}
	<-done
}
