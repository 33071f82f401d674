// Package history keeps a local record of finished queries in SQLite.
package history

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/beequen/beequen/internal/core"
)

//go:embed migrations/*.sql
var migrations embed.FS

// DefaultLimit is the number of entries List returns when limit is not
// positive.
const DefaultLimit = 50

// Entry is one finished query.
type Entry struct {
	ID                  int64            `json:"id"`
	ProjectUUID         string           `json:"projectUuid"`
	TabID               string           `json:"tabId,omitempty"`
	JobID               string           `json:"jobId,omitempty"`
	Query               string           `json:"query"`
	Status              core.QueryStatus `json:"status"`
	Message             string           `json:"message,omitempty"`
	TotalBytesProcessed int64            `json:"totalBytesProcessed"`
	TotalSlotMs         int64            `json:"totalSlotMs"`
	RowCount            int              `json:"rowCount"`
	StartedAt           time.Time        `json:"startedAt"`
	FinishedAt          time.Time        `json:"finishedAt"`
}

// NewEntry builds the entry of a query that reached state.
func NewEntry(projectUUID, tabID, query string, state core.QueryState, startedAt time.Time) Entry {
	e := Entry{
		ProjectUUID: projectUUID,
		TabID:       tabID,
		JobID:       state.JobID,
		Query:       query,
		Status:      state.Status,
		Message:     state.Message,
		StartedAt:   startedAt,
		FinishedAt:  time.Now(),
	}
	if r := state.Result; r != nil {
		e.TotalBytesProcessed = r.Metadata.TotalBytesProcessed
		e.TotalSlotMs = r.Metadata.TotalSlotMs
		e.RowCount = len(r.Rows)
	}
	return e
}

// Store is a SQLite backed history.
type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

// Open opens or creates the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	s := &Store{path: path, db: db}
	if err := s.migrate(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("running migrations: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Path returns the database file.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) migrate() error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, s.db, fsys)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := provider.Up(context.Background()); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Record appends e and returns its id.
func (s *Store) Record(ctx context.Context, e Entry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO query_history (
			project_uuid, tab_id, job_id, query, status, message,
			total_bytes_processed, total_slot_ms, row_count, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ProjectUUID, e.TabID, e.JobID, e.Query, string(e.Status), e.Message,
		e.TotalBytesProcessed, e.TotalSlotMs, e.RowCount, e.StartedAt.UTC(), e.FinishedAt.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting history entry: %w", err)
	}
	return res.LastInsertId()
}

// List returns the latest entries of projectUUID, newest first. An empty
// projectUUID lists every project.
func (s *Store) List(ctx context.Context, projectUUID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_uuid, tab_id, job_id, query, status, message,
			total_bytes_processed, total_slot_ms, row_count, started_at, finished_at
		FROM query_history
		WHERE ? = '' OR project_uuid = ?
		ORDER BY finished_at DESC, id DESC
		LIMIT ?
	`, projectUUID, projectUUID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		var status string
		if err := rows.Scan(
			&e.ID, &e.ProjectUUID, &e.TabID, &e.JobID, &e.Query, &status, &e.Message,
			&e.TotalBytesProcessed, &e.TotalSlotMs, &e.RowCount, &e.StartedAt, &e.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning history entry: %w", err)
		}
		e.Status = core.QueryStatus(status)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Clear deletes the entries of projectUUID, or all entries when it is empty.
// It returns the number of deleted entries.
func (s *Store) Clear(ctx context.Context, projectUUID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM query_history WHERE ? = '' OR project_uuid = ?", projectUUID, projectUUID)
	if err != nil {
		return 0, fmt.Errorf("clearing history: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
