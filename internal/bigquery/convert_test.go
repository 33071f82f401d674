package bigquery

import (
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"

	"github.com/beequen/beequen/internal/core"
)

type fakeDate struct{}

func (fakeDate) String() string { return "2024-05-01" }

func TestConvertRow(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	row := convertRow(map[string]bigquery.Value{
		"id":      int64(7),
		"name":    "alice",
		"active":  true,
		"score":   1.5,
		"amount":  big.NewRat(5, 4),
		"created": ts,
		"day":     fakeDate{},
		"tags":    []bigquery.Value{"a", "b"},
		"address": map[string]bigquery.Value{"city": "Tokyo", "zip": nil},
		"missing": nil,
	})

	assert.Equal(t, int64(7), row["id"])
	assert.Equal(t, "alice", row["name"])
	assert.Equal(t, true, row["active"])
	assert.Equal(t, 1.5, row["score"])
	assert.Equal(t, "1.250000000", row["amount"])
	assert.Equal(t, "2024-05-01T10:30:00Z", row["created"])
	assert.Equal(t, "2024-05-01", row["day"])
	assert.Equal(t, []any{"a", "b"}, row["tags"])
	assert.Equal(t, map[string]any{"city": "Tokyo", "zip": nil}, row["address"])
	assert.Nil(t, row["missing"])
}

func TestFields(t *testing.T) {
	schema := bigquery.Schema{
		{Name: "id", Type: bigquery.IntegerFieldType, Required: true},
		{Name: "tags", Type: bigquery.StringFieldType, Repeated: true, Description: "labels"},
		{Name: "address", Type: bigquery.RecordFieldType, Schema: bigquery.Schema{
			{Name: "city", Type: bigquery.StringFieldType},
		}},
	}

	got := fields(schema)
	assert.Equal(t, []core.Field{
		{Name: "id", Type: "INTEGER", Mode: "REQUIRED"},
		{Name: "tags", Type: "STRING", Mode: "REPEATED", Description: "labels"},
		{Name: "address", Type: "RECORD", Mode: "NULLABLE", Fields: []core.Field{
			{Name: "city", Type: "STRING", Mode: "NULLABLE"},
		}},
	}, got)

	assert.Equal(t, []core.Column{{Name: "id", Type: "INTEGER"}, {Name: "tags", Type: "STRING"}, {Name: "address", Type: "RECORD"}}, columns(schema))
	assert.Nil(t, columns(nil))
}

func TestJobMetadata(t *testing.T) {
	status := &bigquery.JobStatus{
		Statistics: &bigquery.JobStatistics{
			TotalBytesProcessed: 1024,
			Details:             &bigquery.QueryStatistics{SlotMillis: 42},
		},
	}
	assert.Equal(t, core.JobMetadata{TotalBytesProcessed: 1024, TotalSlotMs: 42}, jobMetadata(status))
	assert.Equal(t, core.JobMetadata{}, jobMetadata(nil))
	assert.Equal(t, core.JobMetadata{}, jobMetadata(&bigquery.JobStatus{}))
}

func TestMapJobError(t *testing.T) {
	stopped := &bigquery.Error{Reason: "stopped", Message: "Job execution was cancelled: User requested cancellation"}
	assert.True(t, core.IsAlreadyCanceled(mapJobError(stopped)))
	assert.True(t, core.IsAlreadyCanceled(mapJobError(fmt.Errorf("wait: %w", stopped))))

	apiStopped := &googleapi.Error{Code: 400, Errors: []googleapi.ErrorItem{{Reason: "stopped"}}}
	assert.True(t, core.IsAlreadyCanceled(mapJobError(apiStopped)))

	invalid := &bigquery.Error{Reason: "invalidQuery", Message: "Syntax error"}
	err := mapJobError(invalid)
	assert.False(t, core.IsAlreadyCanceled(err))
	assert.True(t, core.IsCategory(err, core.ErrCatBackend))
	assert.Equal(t, core.CodeFetchFailed, core.CodeOf(err))

	assert.False(t, isStopped(errors.New("stopped")))
}
