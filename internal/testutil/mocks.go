// Package testutil holds test doubles shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/beequen/beequen/internal/core"
)

// MockCall records a call to the mock.
type MockCall struct {
	Method    string
	Args      []string
	Timestamp time.Time
}

type awaitOutcome struct {
	result *core.JobResult
	err    error
}

// MockBackend implements core.Backend. Submit hands out sequential job ids
// (j1, j2, ...). AwaitResult blocks until the test calls Resolve for that
// job, unless an await func was set.
type MockBackend struct {
	mu       sync.Mutex
	calls    []MockCall
	nextJob  int
	outcomes map[string]chan awaitOutcome
	awaiting map[string]chan struct{}
	canceled chan string
	closed   bool

	submitFunc   func(context.Context, string) (core.ExecuteQueryResult, error)
	awaitFunc    func(context.Context, string) (*core.JobResult, error)
	cancelFunc   func(context.Context, string) error
	dryRunFunc   func(context.Context, string) (*core.DryRunResult, error)
	datasetsFunc func(context.Context) ([]core.Dataset, error)
	schemaFunc   func(context.Context, string, string) ([]core.Field, error)
}

// NewMockBackend creates a new mock backend.
func NewMockBackend() *MockBackend {
	return &MockBackend{
		outcomes: make(map[string]chan awaitOutcome),
		awaiting: make(map[string]chan struct{}),
		canceled: make(chan string, 64),
	}
}

// WithSubmitFunc sets a custom submit function.
func (m *MockBackend) WithSubmitFunc(fn func(context.Context, string) (core.ExecuteQueryResult, error)) *MockBackend {
	m.submitFunc = fn
	return m
}

// WithSubmitError makes every submission fail with err.
func (m *MockBackend) WithSubmitError(err error) *MockBackend {
	return m.WithSubmitFunc(func(context.Context, string) (core.ExecuteQueryResult, error) {
		return core.ExecuteQueryResult{}, err
	})
}

// WithAwaitFunc replaces the blocking await.
func (m *MockBackend) WithAwaitFunc(fn func(context.Context, string) (*core.JobResult, error)) *MockBackend {
	m.awaitFunc = fn
	return m
}

// WithCancelFunc sets a custom cancel function.
func (m *MockBackend) WithCancelFunc(fn func(context.Context, string) error) *MockBackend {
	m.cancelFunc = fn
	return m
}

// WithDryRunFunc sets a custom dry run function.
func (m *MockBackend) WithDryRunFunc(fn func(context.Context, string) (*core.DryRunResult, error)) *MockBackend {
	m.dryRunFunc = fn
	return m
}

// WithDatasets sets a fixed dataset listing.
func (m *MockBackend) WithDatasets(datasets []core.Dataset) *MockBackend {
	m.datasetsFunc = func(context.Context) ([]core.Dataset, error) { return datasets, nil }
	return m
}

// WithSchemaFunc sets a custom table schema function.
func (m *MockBackend) WithSchemaFunc(fn func(context.Context, string, string) ([]core.Field, error)) *MockBackend {
	m.schemaFunc = fn
	return m
}

// Submit mocks job submission.
func (m *MockBackend) Submit(ctx context.Context, query string) (core.ExecuteQueryResult, error) {
	m.recordCall("Submit", query)
	if m.submitFunc != nil {
		return m.submitFunc(ctx, query)
	}
	m.mu.Lock()
	m.nextJob++
	id := fmt.Sprintf("j%d", m.nextJob)
	m.mu.Unlock()
	return core.ExecuteQueryResult{JobID: id}, nil
}

// AwaitResult blocks until Resolve is called for jobID or ctx is done.
func (m *MockBackend) AwaitResult(ctx context.Context, jobID string) (*core.JobResult, error) {
	m.recordCall("AwaitResult", jobID)
	if m.awaitFunc != nil {
		return m.awaitFunc(ctx, jobID)
	}
	ch := m.outcome(jobID)
	m.markAwaiting(jobID)

	select {
	case out := <-ch:
		return out.result, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Resolve completes the pending AwaitResult of jobID. It may be called
// before the await starts.
func (m *MockBackend) Resolve(jobID string, result *core.JobResult, err error) {
	m.outcome(jobID) <- awaitOutcome{result: result, err: err}
}

// AwaitStarted is closed once AwaitResult was entered for jobID.
func (m *MockBackend) AwaitStarted(jobID string) <-chan struct{} {
	return m.awaitSignal(jobID)
}

// Canceled receives the job id of every Cancel call.
func (m *MockBackend) Canceled() <-chan string {
	return m.canceled
}

func (m *MockBackend) outcome(jobID string) chan awaitOutcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.outcomes[jobID]
	if !ok {
		ch = make(chan awaitOutcome, 1)
		m.outcomes[jobID] = ch
	}
	return ch
}

func (m *MockBackend) awaitSignal(jobID string) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.awaiting[jobID]
	if !ok {
		ch = make(chan struct{})
		m.awaiting[jobID] = ch
	}
	return ch
}

func (m *MockBackend) markAwaiting(jobID string) {
	signal := m.awaitSignal(jobID)
	m.mu.Lock()
	defer m.mu.Unlock()
	select {
	case <-signal:
	default:
		close(signal)
	}
}

// Cancel mocks job cancellation.
func (m *MockBackend) Cancel(ctx context.Context, jobID string) error {
	m.recordCall("Cancel", jobID)
	defer func() { m.canceled <- jobID }()
	if m.cancelFunc != nil {
		return m.cancelFunc(ctx, jobID)
	}
	return nil
}

// DryRun mocks a dry run. The default estimate is the query length.
func (m *MockBackend) DryRun(ctx context.Context, query string) (*core.DryRunResult, error) {
	m.recordCall("DryRun", query)
	if m.dryRunFunc != nil {
		return m.dryRunFunc(ctx, query)
	}
	return &core.DryRunResult{TotalBytesProcessed: int64(len(query))}, nil
}

// ListDatasets mocks the dataset listing.
func (m *MockBackend) ListDatasets(ctx context.Context) ([]core.Dataset, error) {
	m.recordCall("ListDatasets")
	if m.datasetsFunc != nil {
		return m.datasetsFunc(ctx)
	}
	return []core.Dataset{}, nil
}

// GetTableSchema mocks a schema lookup.
func (m *MockBackend) GetTableSchema(ctx context.Context, datasetID, tableID string) ([]core.Field, error) {
	m.recordCall("GetTableSchema", datasetID, tableID)
	if m.schemaFunc != nil {
		return m.schemaFunc(ctx, datasetID, tableID)
	}
	return []core.Field{{Name: "id", Type: "INTEGER", Mode: "REQUIRED"}}, nil
}

// Close marks the mock closed.
func (m *MockBackend) Close() error {
	m.recordCall("Close")
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockBackend) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockBackend) recordCall(method string, args ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{Method: method, Args: args, Timestamp: time.Now()})
}

// Calls returns recorded calls, optionally only those of method.
func (m *MockBackend) Calls(method ...string) []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(method) == 0 {
		out := make([]MockCall, len(m.calls))
		copy(out, m.calls)
		return out
	}
	var out []MockCall
	for _, c := range m.calls {
		if c.Method == method[0] {
			out = append(out, c)
		}
	}
	return out
}

// CallCount returns the number of calls to method.
func (m *MockBackend) CallCount(method string) int {
	return len(m.Calls(method))
}

// MockDialer hands out a fixed backend and records the profiles it saw.
type MockDialer struct {
	mu       sync.Mutex
	Backend  *MockBackend
	Err      error
	Profiles []core.ConnectionProfile
}

// Dial implements core.Dialer.
func (d *MockDialer) Dial(_ context.Context, profile core.ConnectionProfile) (core.Backend, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Profiles = append(d.Profiles, profile)
	if d.Err != nil {
		return nil, d.Err
	}
	return d.Backend, nil
}

// MockProvider resolves every project uuid to the same backend, or fails
// with Err.
type MockProvider struct {
	Conn *MockBackend
	Err  error
}

// Backend implements core.BackendProvider.
func (p *MockProvider) Backend(_ context.Context, _ string) (core.Backend, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Conn, nil
}
