package bigquery

import (
	"errors"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"

	"github.com/beequen/beequen/internal/core"
)

// reasonStopped is the error reason BigQuery reports for canceled jobs.
const reasonStopped = "stopped"

// isStopped reports whether err says the job was canceled.
func isStopped(err error) bool {
	var bqErr *bigquery.Error
	if errors.As(err, &bqErr) && bqErr.Reason == reasonStopped {
		return true
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		for _, item := range apiErr.Errors {
			if item.Reason == reasonStopped {
				return true
			}
		}
	}
	return false
}

// mapJobError converts an error seen while awaiting a job.
func mapJobError(err error) error {
	if isStopped(err) {
		return core.ErrAlreadyCanceled
	}
	return core.ErrBackend(core.CodeFetchFailed, err)
}
