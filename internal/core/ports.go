package core

import "context"

// Backend is the query execution service seen by the rest of the program.
// One Backend is bound to one project profile. Implementations must be safe
// for concurrent use; several tabs share a Backend.
type Backend interface {
	// Submit starts a query job and returns its identifier.
	Submit(ctx context.Context, query string) (ExecuteQueryResult, error)

	// AwaitResult blocks until the job finishes and returns its rows and
	// statistics. It returns ErrAlreadyCanceled when the job was canceled.
	AwaitResult(ctx context.Context, jobID string) (*JobResult, error)

	// Cancel requests cancellation of a running job.
	Cancel(ctx context.Context, jobID string) error

	// DryRun estimates a query without running it.
	DryRun(ctx context.Context, query string) (*DryRunResult, error)

	// ListDatasets lists every dataset of the project with its tables.
	ListDatasets(ctx context.Context) ([]Dataset, error)

	// GetTableSchema returns the columns of a table.
	GetTableSchema(ctx context.Context, datasetID, tableID string) ([]Field, error)

	// Close releases the underlying client.
	Close() error
}

// ConnectionProfile is what is needed to reach a project.
type ConnectionProfile struct {
	ProjectID       string `json:"projectId"`
	CredentialsPath string `json:"credentialsPath"`
}

// Dialer builds a Backend from a connection profile. The caller owns the
// returned Backend and must close it.
type Dialer interface {
	Dial(ctx context.Context, profile ConnectionProfile) (Backend, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, profile ConnectionProfile) (Backend, error)

// Dial calls f.
func (f DialerFunc) Dial(ctx context.Context, profile ConnectionProfile) (Backend, error) {
	return f(ctx, profile)
}

// BackendProvider resolves the shared Backend of a stored project.
type BackendProvider interface {
	Backend(ctx context.Context, projectUUID string) (Backend, error)
}
