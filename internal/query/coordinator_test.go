package query

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beequen/beequen/internal/core"
	"github.com/beequen/beequen/internal/testutil"
)

const waitTimeout = 2 * time.Second

type recorder struct {
	mu          sync.Mutex
	states      []core.QueryState
	transitions []Transition
}

func (r *recorder) listen(tr Transition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, tr.State)
	r.transitions = append(r.transitions, tr)
}

func (r *recorder) queries() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.transitions))
	for i, tr := range r.transitions {
		out[i] = tr.Query
	}
	return out
}

func (r *recorder) statuses() []core.QueryStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]core.QueryStatus, len(r.states))
	for i, s := range r.states {
		out[i] = s.Status
	}
	return out
}

func newTestCoordinator() (*Coordinator, *recorder) {
	rec := &recorder{}
	return NewCoordinator("tab-1", WithListener(rec.listen)), rec
}

// execute runs Execute in the background and returns its outcome channel.
func execute(c *Coordinator, query string, conn core.Backend) <-chan *core.QueryState {
	done := make(chan *core.QueryState, 1)
	go func() {
		s, _ := c.Execute(context.Background(), query, conn)
		done <- s
	}()
	return done
}

func waitFor[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(waitTimeout):
		t.Fatal("timed out")
		var zero T
		return zero
	}
}

func waitClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(waitTimeout):
		t.Fatal("timed out")
	}
}

func sampleResult() *core.JobResult {
	return &core.JobResult{
		Rows:     []core.Row{{"n": int64(1)}},
		Metadata: core.JobMetadata{TotalBytesProcessed: 10, TotalSlotMs: 3},
	}
}

func TestCoordinator_IdleState(t *testing.T) {
	c, _ := newTestCoordinator()
	assert.Nil(t, c.State())
	assert.Equal(t, "tab-1", c.TabID())
}

func TestCoordinator_AwaitBeforeCancelCompletes(t *testing.T) {
	c, rec := newTestCoordinator()
	conn := testutil.NewMockBackend()

	done := execute(c, "select 1", conn)
	waitClosed(t, conn.AwaitStarted("j1"))
	assert.Equal(t, &core.QueryState{Status: core.StatusRunning, JobID: "j1"}, c.State())

	result := sampleResult()
	conn.Resolve("j1", result, nil)
	final := waitFor(t, done)

	require.NotNil(t, final)
	assert.Equal(t, core.StatusCompleted, final.Status)
	assert.Same(t, result, final.Result)
	assert.Equal(t, []core.QueryStatus{core.StatusRunning, core.StatusCompleted}, rec.statuses())

	assert.ErrorIs(t, c.Cancel(context.Background(), "j1", conn), ErrNotRunning)
	assert.Equal(t, 0, conn.CallCount("Cancel"))
}

func TestCoordinator_CancelBeforeAwaitResolves(t *testing.T) {
	c, rec := newTestCoordinator()
	conn := testutil.NewMockBackend()

	done := execute(c, "select 1", conn)
	waitClosed(t, conn.AwaitStarted("j1"))

	require.NoError(t, c.Cancel(context.Background(), "j1", conn))
	// The local transition is visible as soon as Cancel returns.
	assert.Equal(t, &core.QueryState{Status: core.StatusCanceled, JobID: "j1"}, c.State())
	assert.Equal(t, "j1", waitFor(t, conn.Canceled()))

	// The result arrives anyway and is discarded.
	conn.Resolve("j1", sampleResult(), nil)
	final := waitFor(t, done)

	assert.Equal(t, core.StatusCanceled, final.Status)
	assert.Equal(t, []core.QueryStatus{core.StatusRunning, core.StatusCanceled}, rec.statuses())
}

func TestCoordinator_CancelThenAlreadyCanceled(t *testing.T) {
	c, rec := newTestCoordinator()
	conn := testutil.NewMockBackend()

	done := execute(c, "select 1", conn)
	waitClosed(t, conn.AwaitStarted("j1"))
	require.NoError(t, c.Cancel(context.Background(), "j1", conn))

	conn.Resolve("j1", nil, core.ErrAlreadyCanceled)
	final := waitFor(t, done)

	assert.Equal(t, core.Canceled("j1"), *final)
	assert.Equal(t, []core.QueryStatus{core.StatusRunning, core.StatusCanceled}, rec.statuses())
}

func TestCoordinator_CancelFailureStaysCanceled(t *testing.T) {
	c, _ := newTestCoordinator()
	conn := testutil.NewMockBackend().WithCancelFunc(func(context.Context, string) error {
		return testutil.ErrTest
	})

	done := execute(c, "select 1", conn)
	waitClosed(t, conn.AwaitStarted("j1"))
	require.NoError(t, c.Cancel(context.Background(), "j1", conn))
	c.Wait()

	conn.Resolve("j1", sampleResult(), nil)
	assert.Equal(t, core.StatusCanceled, waitFor(t, done).Status)
}

func TestCoordinator_SubmitFailureSkipsRunning(t *testing.T) {
	c, rec := newTestCoordinator()
	conn := testutil.NewMockBackend().WithSubmitError(
		core.ErrBackend(core.CodeSubmitFailed, testutil.ErrTest))

	final, err := c.Execute(context.Background(), "selec 1", conn)
	require.NoError(t, err)

	assert.Equal(t, core.Failed(testutil.ErrTest.Error()), *final)
	assert.Equal(t, []core.QueryStatus{core.StatusError}, rec.statuses())
	assert.Equal(t, 0, conn.CallCount("AwaitResult"))
}

func TestCoordinator_AwaitFailure(t *testing.T) {
	c, _ := newTestCoordinator()
	conn := testutil.NewMockBackend()

	done := execute(c, "select broken", conn)
	waitClosed(t, conn.AwaitStarted("j1"))
	conn.Resolve("j1", nil, core.ErrBackend(core.CodeFetchFailed, testutil.ErrTest))

	assert.Equal(t, core.Failed(testutil.ErrTest.Error()), *waitFor(t, done))
}

func TestCoordinator_AlreadyCanceledWithoutLocalCancel(t *testing.T) {
	c, rec := newTestCoordinator()
	conn := testutil.NewMockBackend()

	done := execute(c, "select 1", conn)
	waitClosed(t, conn.AwaitStarted("j1"))
	conn.Resolve("j1", nil, core.ErrAlreadyCanceled)

	assert.Equal(t, core.Running("j1"), *waitFor(t, done))
	assert.Equal(t, []core.QueryStatus{core.StatusRunning}, rec.statuses())
}

func TestCoordinator_NewerExecuteSupersedes(t *testing.T) {
	c, _ := newTestCoordinator()
	conn := testutil.NewMockBackend()

	first := execute(c, "select 1", conn)
	waitClosed(t, conn.AwaitStarted("j1"))
	second := execute(c, "select 2", conn)
	waitClosed(t, conn.AwaitStarted("j2"))

	conn.Resolve("j1", sampleResult(), nil)
	assert.Equal(t, core.Running("j2"), *waitFor(t, first))

	result := sampleResult()
	conn.Resolve("j2", result, nil)
	final := waitFor(t, second)
	assert.Same(t, result, final.Result)
	assert.Equal(t, 0, conn.CallCount("Cancel"), "the older job is not canceled")
}

// Transitions carry the query of the job they belong to, not the query of the
// latest Execute.
func TestCoordinator_TransitionsCarryJobQuery(t *testing.T) {
	c, rec := newTestCoordinator()
	conn := testutil.NewMockBackend()

	first := execute(c, "select 1", conn)
	waitClosed(t, conn.AwaitStarted("j1"))
	second := execute(c, "select 2", conn)
	waitClosed(t, conn.AwaitStarted("j2"))

	require.NoError(t, c.Cancel(context.Background(), "j2", conn))
	conn.Resolve("j1", sampleResult(), nil)
	assert.Equal(t, core.Canceled("j2"), *waitFor(t, first))
	conn.Resolve("j2", nil, core.ErrAlreadyCanceled)
	waitFor(t, second)
	c.Wait()

	assert.Equal(t, []core.QueryStatus{
		core.StatusRunning, core.StatusRunning, core.StatusCanceled,
	}, rec.statuses())
	assert.Equal(t, []string{"select 1", "select 2", "select 2"}, rec.queries())

	rec.mu.Lock()
	defer rec.mu.Unlock()
	for _, tr := range rec.transitions {
		assert.Equal(t, "tab-1", tr.TabID)
		assert.False(t, tr.Started.IsZero())
	}
	assert.Equal(t, rec.transitions[1].Started, rec.transitions[2].Started)
}

// A tab runs j1, cancels it, and runs again as j2. The late j1 result must not
// touch the tab, and j2 completes normally.
func TestCoordinator_RerunAfterCancel(t *testing.T) {
	c, rec := newTestCoordinator()
	conn := testutil.NewMockBackend()

	first := execute(c, "select 1", conn)
	waitClosed(t, conn.AwaitStarted("j1"))
	require.NoError(t, c.Cancel(context.Background(), "j1", conn))

	second := execute(c, "select 1", conn)
	waitClosed(t, conn.AwaitStarted("j2"))

	conn.Resolve("j1", sampleResult(), nil)
	assert.Equal(t, core.Running("j2"), *waitFor(t, first))

	conn.Resolve("j2", sampleResult(), nil)
	assert.Equal(t, core.StatusCompleted, waitFor(t, second).Status)

	assert.Equal(t, []core.QueryStatus{
		core.StatusRunning, core.StatusCanceled, core.StatusRunning, core.StatusCompleted,
	}, rec.statuses())
}

func TestCoordinator_CancelWrongJob(t *testing.T) {
	c, _ := newTestCoordinator()
	conn := testutil.NewMockBackend()

	assert.ErrorIs(t, c.Cancel(context.Background(), "j1", conn), ErrNotRunning, "idle tab")

	done := execute(c, "select 1", conn)
	waitClosed(t, conn.AwaitStarted("j1"))

	err := c.Cancel(context.Background(), "j9", conn)
	assert.ErrorIs(t, err, ErrNotRunning)
	assert.True(t, core.IsCategory(err, core.ErrCatConflict))
	assert.Equal(t, core.Running("j1"), *c.State())

	conn.Resolve("j1", sampleResult(), nil)
	waitFor(t, done)
}

func TestCoordinator_CancelTwice(t *testing.T) {
	c, _ := newTestCoordinator()
	conn := testutil.NewMockBackend()

	done := execute(c, "select 1", conn)
	waitClosed(t, conn.AwaitStarted("j1"))

	require.NoError(t, c.Cancel(context.Background(), "j1", conn))
	assert.ErrorIs(t, c.Cancel(context.Background(), "j1", conn), ErrNotRunning)
	c.Wait()
	assert.Equal(t, 1, conn.CallCount("Cancel"))

	conn.Resolve("j1", nil, core.ErrAlreadyCanceled)
	waitFor(t, done)
}

func TestCoordinator_CallerContextCanceled(t *testing.T) {
	c, _ := newTestCoordinator()
	conn := testutil.NewMockBackend()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan *core.QueryState, 1)
	go func() {
		s, _ := c.Execute(ctx, "select 1", conn)
		done <- s
	}()
	waitClosed(t, conn.AwaitStarted("j1"))
	cancel()

	final := waitFor(t, done)
	assert.Equal(t, core.StatusError, final.Status)
	assert.Equal(t, context.Canceled.Error(), final.Message)
}

func TestCoordinator_NilBackend(t *testing.T) {
	c, rec := newTestCoordinator()

	_, err := c.Execute(context.Background(), "select 1", nil)
	assert.ErrorIs(t, err, ErrNoBackend)
	assert.Nil(t, c.State())
	assert.Empty(t, rec.statuses())
}

func TestCoordinator_StateIsSnapshot(t *testing.T) {
	c, _ := newTestCoordinator()
	conn := testutil.NewMockBackend().WithSubmitError(testutil.ErrTest)

	_, err := c.Execute(context.Background(), "select 1", conn)
	require.NoError(t, err)

	s := c.State()
	s.Message = "changed"
	assert.Equal(t, testutil.ErrTest.Error(), c.State().Message)
}
