package core

import "sort"

// QueryStatus names the variant of a QueryState.
type QueryStatus string

const (
	StatusRunning   QueryStatus = "running"
	StatusCompleted QueryStatus = "completed"
	StatusCanceled  QueryStatus = "canceled"
	StatusError     QueryStatus = "error"
)

// String returns the string representation of the status
func (s QueryStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is expected.
func (s QueryStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCanceled || s == StatusError
}

// QueryState is the per-tab query state. It is a tagged union keyed by
// Status: running and canceled carry JobID, completed carries Result and
// error carries Message. States are values and are replaced wholesale.
type QueryState struct {
	Status  QueryStatus `json:"status"`
	JobID   string      `json:"jobId,omitempty"`
	Result  *JobResult  `json:"result,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Running returns a running state for jobID.
func Running(jobID string) QueryState {
	return QueryState{Status: StatusRunning, JobID: jobID}
}

// Completed returns a completed state holding result.
func Completed(result *JobResult) QueryState {
	return QueryState{Status: StatusCompleted, Result: result}
}

// Canceled returns a canceled state for jobID.
func Canceled(jobID string) QueryState {
	return QueryState{Status: StatusCanceled, JobID: jobID}
}

// Failed returns an error state with message.
func Failed(message string) QueryState {
	return QueryState{Status: StatusError, Message: message}
}

// IsRunning reports whether the state is running{jobID}.
func (s *QueryState) IsRunning(jobID string) bool {
	return s != nil && s.Status == StatusRunning && s.JobID == jobID
}

// ExecuteQueryResult is returned by a successful job submission.
type ExecuteQueryResult struct {
	JobID string `json:"jobId"`
}

// Row is one result row keyed by column name.
type Row map[string]any

// Column describes one result column.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// JobMetadata carries the execution statistics of a finished job.
type JobMetadata struct {
	TotalBytesProcessed int64 `json:"totalBytesProcessed,string"`
	TotalSlotMs         int64 `json:"totalSlotMs"`
}

// JobResult is the payload of a completed query.
type JobResult struct {
	Rows     []Row       `json:"rows"`
	Schema   []Column    `json:"schema,omitempty"`
	Metadata JobMetadata `json:"metadata"`
	// Truncated is set when more rows were available than the configured cap.
	Truncated bool `json:"truncated,omitempty"`
}

// ColumnNames returns the column names in result order. When the schema is
// unknown the names of the first row are used.
func (r *JobResult) ColumnNames() []string {
	if r == nil {
		return nil
	}
	if len(r.Schema) > 0 {
		names := make([]string, len(r.Schema))
		for i, c := range r.Schema {
			names[i] = c.Name
		}
		return names
	}
	if len(r.Rows) == 0 {
		return nil
	}
	names := make([]string, 0, len(r.Rows[0]))
	for k := range r.Rows[0] {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// DryRunResult estimates the bytes a query would scan.
type DryRunResult struct {
	TotalBytesProcessed int64 `json:"totalBytesProcessed,string"`
}

// TableType is the kind of a table listed in a dataset.
type TableType string

const (
	TableTypeTable            TableType = "TABLE"
	TableTypeView             TableType = "VIEW"
	TableTypeExternal         TableType = "EXTERNAL"
	TableTypeMaterializedView TableType = "MATERIALIZED_VIEW"
	TableTypeSnapshot         TableType = "SNAPSHOT"
)

// Table is a table entry of a dataset listing.
type Table struct {
	ID   string    `json:"id"`
	Type TableType `json:"type"`
}

// Dataset is a dataset with its tables.
type Dataset struct {
	ID     string  `json:"id"`
	Tables []Table `json:"tables"`
}

// Field is a column of a table schema. RECORD fields nest.
type Field struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Mode        string  `json:"mode,omitempty"`
	Description string  `json:"description,omitempty"`
	Fields      []Field `json:"fields,omitempty"`
}
