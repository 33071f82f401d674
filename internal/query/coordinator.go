// Package query drives the lifecycle of the query of one editor tab: submit a
// job, wait for its result and reconcile a cancel that races with the result.
package query

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/beequen/beequen/internal/core"
)

var (
	// ErrNotRunning is returned by Cancel when the tab is not running the job.
	ErrNotRunning = core.ErrConflict(core.CodeNotRunning, "the query is not running")

	// ErrNoBackend is returned by Execute when no backend was given.
	ErrNoBackend = errors.New("query: nil backend")
)

// Transition is one state change of a tab. Query and Started describe the
// Execute call the new state belongs to.
type Transition struct {
	TabID   string
	State   core.QueryState
	Query   string
	Started time.Time
}

// Listener is told about every state transition of a tab. It is called with
// the coordinator locked, so transitions are reported in order; it must not
// call back into the coordinator.
type Listener func(t Transition)

// run is one Execute call.
type run struct {
	query   string
	started time.Time
}

// Coordinator owns the QueryState of one tab. A nil state means the tab never
// ran a query.
type Coordinator struct {
	tabID    string
	logger   *slog.Logger
	listener Listener

	mu    sync.Mutex
	state *core.QueryState
	// active is the run of the job the tab is running.
	active run

	// cancels tracks remote cancel calls still in flight.
	cancels sync.WaitGroup
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// WithListener registers the transition listener.
func WithListener(l Listener) Option {
	return func(c *Coordinator) { c.listener = l }
}

// NewCoordinator creates an idle coordinator for tabID.
func NewCoordinator(tabID string, opts ...Option) *Coordinator {
	c := &Coordinator{
		tabID:  tabID,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("tab_id", tabID)
	return c
}

// TabID returns the tab the coordinator belongs to.
func (c *Coordinator) TabID() string {
	return c.tabID
}

// State returns a snapshot of the current state, or nil when idle.
func (c *Coordinator) State() *core.QueryState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Coordinator) snapshot() *core.QueryState {
	if c.state == nil {
		return nil
	}
	s := *c.state
	return &s
}

// set replaces the state with one produced by r. Callers hold c.mu.
func (c *Coordinator) set(s core.QueryState, r run) {
	c.state = &s
	if s.Status == core.StatusRunning {
		c.active = r
	}
	if c.listener != nil {
		c.listener(Transition{TabID: c.tabID, State: s, Query: r.query, Started: r.started})
	}
}

// Execute submits query and waits for its result. A failed submission moves
// the tab straight to error. Otherwise the tab is running the new job until
// the result is in; the result is applied only if the tab is still running
// that same job, so a cancel or a newer Execute in the meantime wins.
//
// Execute returns the state the tab is in when it returns.
func (c *Coordinator) Execute(ctx context.Context, query string, conn core.Backend) (*core.QueryState, error) {
	if conn == nil {
		return nil, ErrNoBackend
	}

	r := run{query: query, started: time.Now()}
	submitted, err := conn.Submit(ctx, query)
	if err != nil {
		c.logger.Debug("submit failed", "error", err)
		c.mu.Lock()
		defer c.mu.Unlock()
		c.set(core.Failed(core.MessageOf(err)), r)
		return c.snapshot(), nil
	}
	jobID := submitted.JobID

	c.mu.Lock()
	c.set(core.Running(jobID), r)
	c.mu.Unlock()
	c.logger.Debug("job running", "job_id", jobID)

	result, err := conn.AwaitResult(ctx, jobID)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.IsRunning(jobID) {
		c.logger.Debug("discarding superseded result", "job_id", jobID, "status", c.state.Status)
		return c.snapshot(), nil
	}
	switch {
	case core.IsAlreadyCanceled(err):
		c.logger.Debug("job canceled remotely", "job_id", jobID)
	case err != nil:
		c.set(core.Failed(core.MessageOf(err)), r)
	default:
		c.set(core.Completed(result), r)
	}
	return c.snapshot(), nil
}

// Cancel marks the tab canceled and then asks the backend to stop the job in
// the background. The local transition is complete when Cancel returns; the
// remote call is best effort and its outcome is only logged.
func (c *Coordinator) Cancel(ctx context.Context, jobID string, conn core.Backend) error {
	c.mu.Lock()
	if !c.state.IsRunning(jobID) {
		c.mu.Unlock()
		return ErrNotRunning
	}
	c.set(core.Canceled(jobID), c.active)
	c.mu.Unlock()

	if conn == nil {
		return nil
	}

	ctx = context.WithoutCancel(ctx)
	c.cancels.Add(1)
	go func() {
		defer c.cancels.Done()
		if err := conn.Cancel(ctx, jobID); err != nil {
			c.logger.Warn("remote cancel failed", "job_id", jobID, "error", err)
			return
		}
		c.logger.Debug("remote cancel sent", "job_id", jobID)
	}()
	return nil
}

// Wait blocks until every remote cancel started by Cancel has returned.
func (c *Coordinator) Wait() {
	c.cancels.Wait()
}
