// Package poller tracks one generation task at a time by querying its status
// at a fixed cadence until it completes, fails or runs out of attempts.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/maauso/text2video-api/internal/task"
)

// Defaults for a Poller.
const (
	DefaultInterval    = 5 * time.Second
	DefaultMaxAttempts = 60
)

// Ramp parameters for the progress estimate used when the provider reports none.
const (
	rampStart = 10
	rampStep  = 3
	rampCap   = 95
)

var (
	// ErrFetcherRequired is returned by New when no Fetcher is given.
	ErrFetcherRequired = errors.New("poller: fetcher is required")
	// ErrTaskIDRequired is returned by Start for an empty task ID.
	ErrTaskIDRequired = errors.New("poller: task ID is required")
	// ErrTerminalFailure is returned by Run.Wait when the provider reported failure.
	ErrTerminalFailure = errors.New("poller: generation failed")
	// ErrTimedOut is returned by Run.Wait when the attempt ceiling was reached.
	ErrTimedOut = errors.New("poller: timed out")
	// ErrSuperseded is returned by Run.Wait when a newer Start replaced the run.
	ErrSuperseded = errors.New("poller: superseded by a newer task")
	// ErrStopped is returned by Run.Wait when Stop cancelled the run.
	ErrStopped = errors.New("poller: stopped")
)

// Fetcher returns the normalized status of a task.
// An error means the status relay itself could not be reached.
type Fetcher interface {
	Fetch(ctx context.Context, taskID string) (task.Status, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, taskID string) (task.Status, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, taskID string) (task.Status, error) {
	return f(ctx, taskID)
}

// Update is published to the observer after every tick.
type Update struct {
	TaskID   string
	State    State
	Attempt  int
	Progress int
	Message  string
	Status   task.Status
}

// Option configures a Poller.
type Option func(*Poller)

// WithInterval sets the fixed delay between ticks.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithMaxAttempts sets the attempt ceiling.
func WithMaxAttempts(n int) Option {
	return func(p *Poller) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// WithObserver registers fn to receive every Update. fn runs while the poller
// lock is held, so it must not call back into the Poller.
func WithObserver(fn func(Update)) Option {
	return func(p *Poller) {
		p.observer = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Poller) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Poller owns the polling lifecycle for at most one task at a time.
type Poller struct {
	fetcher     Fetcher
	interval    time.Duration
	maxAttempts int
	observer    func(Update)
	logger      *slog.Logger

	mu         sync.Mutex
	generation uint64
	current    *Run
}

// New creates a Poller.
func New(fetcher Fetcher, opts ...Option) (*Poller, error) {
	if fetcher == nil {
		return nil, ErrFetcherRequired
	}
	p := &Poller{
		fetcher:     fetcher,
		interval:    DefaultInterval,
		maxAttempts: DefaultMaxAttempts,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run is one polling lifecycle for a single task.
type Run struct {
	p          *Poller
	taskID     string
	generation uint64
	cancel     context.CancelFunc
	done       chan struct{}

	// Guarded by p.mu.
	state    State
	attempt  int
	progress int
	message  string
	last     task.Status
	err      error
}

// Start begins polling taskID, abandoning any run still in progress.
// The run stops when ctx is cancelled.
func (p *Poller) Start(ctx context.Context, taskID string) (*Run, error) {
	if taskID == "" {
		return nil, ErrTaskIDRequired
	}

	runCtx, cancel := context.WithCancel(ctx)

	p.mu.Lock()
	if prev := p.current; prev != nil && !prev.state.IsTerminal() {
		prev.err = ErrSuperseded
		prev.cancel()
		p.logger.Info("polling superseded",
			slog.String("task_id", prev.taskID),
			slog.String("next_task_id", taskID),
		)
	}
	p.generation++
	run := &Run{
		p:          p,
		taskID:     taskID,
		generation: p.generation,
		cancel:     cancel,
		done:       make(chan struct{}),
		state:      StateIdle,
	}
	p.current = run
	p.mu.Unlock()

	go p.loop(runCtx, run)
	return run, nil
}

// Stop cancels the active run. A response arriving afterwards is discarded.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	run := p.current
	if run == nil || run.state.IsTerminal() {
		return
	}
	p.generation++
	if run.err == nil {
		run.err = ErrStopped
	}
	run.cancel()
}

// Current returns the most recently started run, or nil.
func (p *Poller) Current() *Run {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *Poller) loop(ctx context.Context, run *Run) {
	defer p.finish(ctx, run)

	p.mu.Lock()
	err := p.transition(run, StatePolling)
	p.mu.Unlock()
	if err != nil {
		return
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.tick(ctx, run) {
				return
			}
		}
	}
}

// tick performs one attempt and reports whether the run is over.
func (p *Poller) tick(ctx context.Context, run *Run) bool {
	p.mu.Lock()
	if !p.isCurrent(run) || run.state.IsTerminal() {
		p.mu.Unlock()
		return true
	}
	run.attempt++
	attempt := run.attempt
	p.mu.Unlock()

	st, err := p.fetcher.Fetch(ctx, run.taskID)

	p.mu.Lock()
	defer p.mu.Unlock()

	if ctx.Err() != nil || !p.isCurrent(run) {
		p.logger.Debug("discarding stale status",
			slog.String("task_id", run.taskID),
			slog.Int("attempt", attempt),
		)
		return true
	}
	p.apply(run, attempt, st, err)
	return run.state.IsTerminal()
}

// apply classifies one fetch result. Called with p.mu held.
func (p *Poller) apply(run *Run, attempt int, st task.Status, fetchErr error) {
	next := StatePolling

	switch {
	case fetchErr != nil:
		run.message = fmt.Sprintf("status check failed: %v", fetchErr)
	case st.State == task.StateCompleted && st.VideoURL != "":
		next = StateCompleted
		run.progress = 100
		run.message = "video ready"
	case st.State == task.StateCompleted:
		run.message = "completed without a video URL yet"
	case st.State == task.StateFailed:
		next = StateFailed
		run.message = st.Error
		if run.message == "" {
			run.message = "video generation failed"
		}
	case st.State.IsInProgress():
		run.progress = p.nextProgress(run.progress, attempt, st.Progress)
		run.message = fmt.Sprintf("%s (%d%%)", st.State, run.progress)
	case st.State == task.StateNotFound:
		run.message = "task not found yet"
	case st.State == task.StateError:
		run.message = "status relay error"
		if st.Error != "" {
			run.message += ": " + st.Error
		}
	default:
		run.message = "unknown status"
		if st.UpstreamStatus != "" {
			run.message = fmt.Sprintf("unknown status %q", st.UpstreamStatus)
		}
	}
	if fetchErr == nil {
		run.last = st
	}

	if next == StatePolling && attempt >= p.maxAttempts {
		next = StateTimedOut
		run.message = fmt.Sprintf("timed out after %d attempts", attempt)
	}

	if next != StatePolling {
		if err := p.transition(run, next); err != nil {
			p.logger.Error("poller transition rejected",
				slog.String("task_id", run.taskID),
				slog.String("error", err.Error()),
			)
		}
		switch next {
		case StateFailed:
			run.err = fmt.Errorf("%w: %s", ErrTerminalFailure, run.message)
		case StateTimedOut:
			run.err = fmt.Errorf("%w after %d attempts", ErrTimedOut, attempt)
		}
	}

	p.logger.Debug("poll tick",
		slog.String("task_id", run.taskID),
		slog.Int("attempt", attempt),
		slog.String("state", string(run.state)),
		slog.String("status", string(st.State)),
		slog.Int("progress", run.progress),
	)

	if p.observer != nil {
		p.observer(run.snapshot())
	}
}

// nextProgress prefers the reported percentage, falls back to the ramp and never decreases.
func (p *Poller) nextProgress(prev, attempt, reported int) int {
	estimate := reported
	if estimate <= 0 {
		estimate = min(rampStart+attempt*rampStep, rampCap)
	}
	return max(prev, estimate)
}

func (p *Poller) finish(ctx context.Context, run *Run) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !run.state.IsTerminal() {
		_ = p.transition(run, StateCancelled)
		if run.err == nil {
			run.err = ctx.Err()
		}
		run.message = "polling cancelled"
	}
	run.cancel()
	close(run.done)
}

// transition moves run to the given state. Called with p.mu held.
func (p *Poller) transition(run *Run, to State) error {
	if !canTransition(run.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, run.state, to)
	}
	run.state = to
	return nil
}

func (p *Poller) isCurrent(run *Run) bool {
	return run.generation == p.generation
}

// TaskID returns the task being polled.
func (r *Run) TaskID() string {
	return r.taskID
}

// Done is closed when the run reaches a terminal state.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Snapshot returns the latest observable state of the run.
func (r *Run) Snapshot() Update {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()
	return r.snapshot()
}

func (r *Run) snapshot() Update {
	return Update{
		TaskID:   r.taskID,
		State:    r.state,
		Attempt:  r.attempt,
		Progress: r.progress,
		Message:  r.message,
		Status:   r.last,
	}
}

// Wait blocks until the run ends or ctx is done. It returns the last status
// seen and nil on completion, or ErrTerminalFailure, ErrTimedOut, ErrSuperseded
// or ErrStopped (possibly wrapped).
func (r *Run) Wait(ctx context.Context) (task.Status, error) {
	select {
	case <-r.done:
	case <-ctx.Done():
		return task.Status{}, ctx.Err()
	}
	r.p.mu.Lock()
	defer r.p.mu.Unlock()
	return r.last, r.err
}
