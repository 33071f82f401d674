// Package bigquery adapts Google BigQuery to core.Backend.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/bigquery"
	bqv2 "google.golang.org/api/bigquery/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/beequen/beequen/internal/core"
)

// Compile-time check.
var _ core.Backend = (*Backend)(nil)

const (
	// DefaultTableListBudget is half of BigQuery's documented limit of 100
	// API requests per second per method.
	DefaultTableListBudget = 50
	DefaultTableListWindow = time.Second
)

// Backend runs queries for one project profile.
type Backend struct {
	client    *bigquery.Client
	catalog   catalogSource
	projectID string
	location  string
	maxRows   int
	budget    int
	window    time.Duration
	logger    *slog.Logger

	// jobs keeps the handles of submitted jobs. Entries are dropped once the
	// job was awaited or canceled.
	jobs *jobTable
}

// Option configures a Backend.
type Option func(*Backend)

// WithLocation pins jobs to a location such as "US" or "asia-northeast1".
func WithLocation(location string) Option {
	return func(b *Backend) { b.location = location }
}

// WithMaxResultRows caps the number of rows read per job. Zero reads all.
func WithMaxResultRows(n int) Option {
	return func(b *Backend) { b.maxRows = n }
}

// WithTableListBudget sets how many catalog calls may start per window.
func WithTableListBudget(budget int, window time.Duration) Option {
	return func(b *Backend) {
		b.budget = budget
		b.window = window
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) { b.logger = logger }
}

// Open creates a Backend for profile. An empty CredentialsPath uses
// Application Default Credentials.
func Open(ctx context.Context, profile core.ConnectionProfile, opts ...Option) (*Backend, error) {
	if profile.ProjectID == "" {
		return nil, core.ErrValidation(core.CodeMissingField, "projectId is required")
	}

	var clientOpts []option.ClientOption
	if profile.CredentialsPath != "" {
		clientOpts = append(clientOpts, option.WithAuthCredentialsFile(option.ServiceAccount, profile.CredentialsPath))
	}

	// The clients outlive the request that created them.
	ctx = context.WithoutCancel(ctx)

	client, err := bigquery.NewClient(ctx, profile.ProjectID, clientOpts...)
	if err != nil {
		return nil, core.ErrBackend(core.CodeConnectFailed, err)
	}
	svc, err := bqv2.NewService(ctx, clientOpts...)
	if err != nil {
		client.Close()
		return nil, core.ErrBackend(core.CodeConnectFailed, err)
	}

	b := &Backend{
		client:    client,
		projectID: profile.ProjectID,
		budget:    DefaultTableListBudget,
		window:    DefaultTableListWindow,
		logger:    slog.Default(),
		jobs:      newJobTable(maxTrackedJobs),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.location != "" {
		client.Location = b.location
	}
	b.catalog = &serviceCatalog{client: client, svc: svc, projectID: profile.ProjectID}
	b.logger = b.logger.With("project_id", profile.ProjectID)
	return b, nil
}

// Submit starts a query job.
func (b *Backend) Submit(ctx context.Context, query string) (core.ExecuteQueryResult, error) {
	job, err := b.client.Query(query).Run(ctx)
	if err != nil {
		return core.ExecuteQueryResult{}, core.ErrBackend(core.CodeSubmitFailed, err)
	}
	if job.ID() == "" {
		return core.ExecuteQueryResult{}, core.ErrBackend(core.CodeInvalidJob, errors.New("invalid job: no id returned"))
	}
	b.jobs.put(job.ID(), job)
	b.logger.Debug("job submitted", "job_id", job.ID(), "location", job.Location())
	return core.ExecuteQueryResult{JobID: job.ID()}, nil
}

func (b *Backend) job(ctx context.Context, jobID string) (*bigquery.Job, error) {
	if job, ok := b.jobs.get(jobID); ok {
		return job, nil
	}
	if b.location != "" {
		return b.client.JobFromIDLocation(ctx, jobID, b.location)
	}
	return b.client.JobFromID(ctx, jobID)
}

// AwaitResult waits for the job and reads its rows.
func (b *Backend) AwaitResult(ctx context.Context, jobID string) (*core.JobResult, error) {
	defer b.jobs.remove(jobID)

	job, err := b.job(ctx, jobID)
	if err != nil {
		return nil, mapJobError(err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return nil, mapJobError(err)
	}
	if err := status.Err(); err != nil {
		return nil, mapJobError(err)
	}

	it, err := job.Read(ctx)
	if err != nil {
		return nil, mapJobError(err)
	}
	rows, truncated, err := readRows(it, b.maxRows)
	if err != nil {
		return nil, mapJobError(err)
	}

	result := &core.JobResult{
		Rows:      rows,
		Schema:    columns(it.Schema),
		Metadata:  jobMetadata(status),
		Truncated: truncated,
	}
	b.logger.Debug("job finished", "job_id", jobID, "rows", len(rows),
		"bytes_processed", result.Metadata.TotalBytesProcessed)
	return result, nil
}

// readRows drains it, stopping after max rows when max > 0.
func readRows(it *bigquery.RowIterator, max int) ([]core.Row, bool, error) {
	rows := make([]core.Row, 0)
	for {
		if max > 0 && len(rows) == max {
			return rows, it.TotalRows > uint64(max), nil
		}
		var values map[string]bigquery.Value
		err := it.Next(&values)
		if errors.Is(err, iterator.Done) {
			return rows, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		rows = append(rows, convertRow(values))
	}
}

func jobMetadata(status *bigquery.JobStatus) core.JobMetadata {
	var md core.JobMetadata
	if status == nil || status.Statistics == nil {
		return md
	}
	md.TotalBytesProcessed = status.Statistics.TotalBytesProcessed
	if qs, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
		md.TotalSlotMs = qs.SlotMillis
	}
	return md
}

// Cancel requests cancellation of a job.
func (b *Backend) Cancel(ctx context.Context, jobID string) error {
	defer b.jobs.remove(jobID)

	job, err := b.job(ctx, jobID)
	if err != nil {
		return core.ErrBackend(core.CodeCancelFailed, err)
	}
	if err := job.Cancel(ctx); err != nil {
		return core.ErrBackend(core.CodeCancelFailed, err)
	}
	return nil
}

// DryRun estimates the bytes a query would process.
func (b *Backend) DryRun(ctx context.Context, query string) (*core.DryRunResult, error) {
	q := b.client.Query(query)
	q.DryRun = true
	job, err := q.Run(ctx)
	if err != nil {
		return nil, core.ErrBackend(core.CodeDryRunFailed, err)
	}
	status := job.LastStatus()
	if status == nil || status.Statistics == nil {
		return &core.DryRunResult{}, nil
	}
	return &core.DryRunResult{TotalBytesProcessed: status.Statistics.TotalBytesProcessed}, nil
}

// ListDatasets lists every dataset with its tables, pacing the table
// listings under the configured budget.
func (b *Backend) ListDatasets(ctx context.Context) ([]core.Dataset, error) {
	datasets, err := listDatasets(ctx, b.catalog, b.budget, b.window)
	if err != nil {
		return nil, core.ErrBackend(core.CodeCatalogFailed, err)
	}
	return datasets, nil
}

// GetTableSchema returns the columns of datasetID.tableID.
func (b *Backend) GetTableSchema(ctx context.Context, datasetID, tableID string) ([]core.Field, error) {
	md, err := b.client.Dataset(datasetID).Table(tableID).Metadata(ctx)
	if err != nil {
		return nil, core.ErrBackend(core.CodeCatalogFailed, fmt.Errorf("%s.%s: %w", datasetID, tableID, err))
	}
	return fields(md.Schema), nil
}

// Close releases the client.
func (b *Backend) Close() error {
	return b.client.Close()
}
