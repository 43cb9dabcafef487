package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultTickInterval drives the attempt clock.
const DefaultTickInterval = time.Second

// Runner is the single-writer loop that owns a Session.
//
// Commands from any goroutine are serialized through a FIFO queue and run
// one at a time, interleaved with clock ticks, so the Session never sees
// concurrent access.
//
// Thread-safety model:
//   - Do(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
type Runner struct {
	session  *Session
	queue    *commandQueue
	wall     WallClock
	interval time.Duration
	logger   *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithTickInterval sets the tick period. Zero disables ticking.
func WithTickInterval(d time.Duration) RunnerOption {
	return func(r *Runner) { r.interval = d }
}

// WithRunnerLogger sets the logger.
func WithRunnerLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// NewRunner wraps a session. Ticks read time from the session's wall clock.
func NewRunner(s *Session, opts ...RunnerOption) *Runner {
	r := &Runner{
		session:  s,
		queue:    newCommandQueue(),
		wall:     s.wall,
		interval: DefaultTickInterval,
		logger:   s.logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Do runs fn on the loop goroutine and returns its error.
//
// If ctx ends before fn runs, Do returns ctx.Err() and fn may still run
// later; commands are never cancelled once queued. Returns ErrStopped when
// the runner has shut down.
func (r *Runner) Do(ctx context.Context, fn func(ctx context.Context, s *Session) error) error {
	c := command{fn: fn, done: make(chan error, 1)}
	if !r.queue.Enqueue(c) {
		return ErrStopped
	}
	select {
	case err := <-c.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the loop. Blocks until ctx is cancelled or Stop is called.
//
// CRITICAL: Must be called from exactly ONE goroutine.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("runner starting", "tick", r.interval)

	var tick <-chan time.Time
	if r.interval > 0 {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if c, ok := r.queue.TryDequeue(); ok {
			c.done <- r.execute(ctx, c)
			continue
		}

		select {
		case <-ctx.Done():
			r.logger.Info("runner stopping: context cancelled")
			r.queue.Close()
			return ctx.Err()

		case <-tick:
			r.session.Tick(r.wall.Now())

		case _, ok := <-r.queue.Wait():
			if !ok && r.queue.Len() == 0 {
				r.logger.Info("runner stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the command queue, which causes Run to return.
func (r *Runner) Stop() {
	r.queue.Close()
}

// execute runs one command. A panicking command is reported as an error
// so one bad request cannot take the session down.
func (r *Runner) execute(ctx context.Context, c command) (err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("command panicked", "panic", p)
			err = fmt.Errorf("command panicked: %v", p)
		}
	}()
	return c.fn(ctx, r.session)
}
