package project

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/beequen/beequen/internal/fsutil"
)

// Store defines the operations on stored projects.
type Store interface {
	// List returns every project in insertion order.
	List() ([]*Project, error)

	// Get returns the project with uuid, or an error matching
	// ErrProjectNotFound.
	Get(uuid string) (*Project, error)

	// Create stores a new project and assigns its uuid.
	Create(input CreateInput) (*Project, error)

	// Update replaces the stored project with the same uuid.
	Update(p *Project) error

	// Delete removes the project with uuid.
	Delete(uuid string) error

	// Close releases any resources held by the store.
	Close() error
}

// CreateInput is a project without its uuid.
type CreateInput struct {
	ProjectID       string `json:"projectId"`
	CredentialsPath string `json:"credentialsPath,omitempty"`
}

// FileStore implements Store on a JSON array file. The file is the source of
// truth: every operation reads it, so edits made by another process are seen
// without a reload.
type FileStore struct {
	path      string
	mu        sync.Mutex
	logger    *slog.Logger
	observers []Observer
	closed    bool
	// known is the list as last saved or reloaded by this store. Reload
	// diffs against it so that our own writes are not reported twice.
	known map[string]Project
}

// StoreOption configures a FileStore.
type StoreOption func(*FileStore)

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *FileStore) {
		s.logger = logger
	}
}

// WithObserver registers observers notified after each change.
func WithObserver(observers ...Observer) StoreOption {
	return func(s *FileStore) {
		s.observers = append(s.observers, observers...)
	}
}

// NewFileStore creates a store backed by path. The file need not exist.
func NewFileStore(path string, opts ...StoreOption) *FileStore {
	s := &FileStore{
		path:   path,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

// load reads the project list. A missing file is an empty list, and so is a
// file that is not valid JSON; the latter is logged. Caller must hold mu.
func (s *FileStore) load() ([]*Project, error) {
	data, ok, err := fsutil.ReadOptional(s.path)
	if err != nil {
		return nil, NewStoreError("load", err)
	}
	if !ok {
		if s.known == nil {
			s.known = map[string]Project{}
		}
		return []*Project{}, nil
	}

	var projects []*Project
	if err := json.Unmarshal(data, &projects); err != nil {
		s.logger.Warn("ignoring unreadable project file", "path", s.path, "error", err)
		projects = nil
	}
	valid := make([]*Project, 0, len(projects))
	for i, p := range projects {
		if p == nil || p.UUID == "" {
			s.logger.Warn("ignoring project entry without uuid", "path", s.path, "index", i)
			continue
		}
		valid = append(valid, p)
	}
	projects = valid
	if s.known == nil {
		s.remember(projects)
	}
	return projects, nil
}

func (s *FileStore) remember(projects []*Project) {
	s.known = make(map[string]Project, len(projects))
	for _, p := range projects {
		s.known[p.UUID] = *p
	}
}

// save writes the list. Caller must hold mu.
func (s *FileStore) save(projects []*Project) error {
	if err := fsutil.WriteJSON(s.path, projects); err != nil {
		return NewStoreError("save", err)
	}
	s.remember(projects)
	return nil
}

func (s *FileStore) notify(reason, uuid string) {
	for _, o := range s.observers {
		o.ProjectChanged(reason, uuid)
	}
}

// List returns all projects.
func (s *FileStore) List() ([]*Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	return s.load()
}

// Get retrieves a project by uuid.
func (s *FileStore) Get(id string) (*Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	projects, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, p := range projects {
		if p.UUID == id {
			return p.Clone(), nil
		}
	}
	return nil, notFound(id)
}

// Create appends a new project with a fresh uuid.
func (s *FileStore) Create(input CreateInput) (*Project, error) {
	if strings.TrimSpace(input.ProjectID) == "" {
		return nil, missingProjectID()
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrStoreClosed
	}
	projects, err := s.load()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	p := &Project{
		UUID:            uuid.NewString(),
		ProjectID:       input.ProjectID,
		CredentialsPath: input.CredentialsPath,
	}
	if err := s.save(append(projects, p)); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()

	s.logger.Info("project created", "uuid", p.UUID, "project_id", p.ProjectID)
	s.notify(ChangeCreated, p.UUID)
	return p.Clone(), nil
}

// Update replaces the project with the same uuid.
func (s *FileStore) Update(p *Project) error {
	if p == nil {
		return missingProjectID()
	}
	if strings.TrimSpace(p.ProjectID) == "" {
		return missingProjectID()
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStoreClosed
	}
	projects, err := s.load()
	if err != nil {
		s.mu.Unlock()
		return err
	}

	idx := indexOf(projects, p.UUID)
	if idx < 0 {
		s.mu.Unlock()
		return notFound(p.UUID)
	}
	projects[idx] = p.Clone()
	if err := s.save(projects); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.logger.Info("project updated", "uuid", p.UUID, "project_id", p.ProjectID)
	s.notify(ChangeUpdated, p.UUID)
	return nil
}

// Delete removes a project by uuid.
func (s *FileStore) Delete(id string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStoreClosed
	}
	projects, err := s.load()
	if err != nil {
		s.mu.Unlock()
		return err
	}

	idx := indexOf(projects, id)
	if idx < 0 {
		s.mu.Unlock()
		return notFound(id)
	}
	projects = append(projects[:idx], projects[idx+1:]...)
	if err := s.save(projects); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.logger.Info("project deleted", "uuid", id)
	s.notify(ChangeDeleted, id)
	return nil
}

// Reload re-reads the file after someone else changed it and reports each
// difference to the observers: created, updated or deleted per uuid. A
// reload that finds the list as this store last wrote it notifies nothing.
func (s *FileStore) Reload() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStoreClosed
	}
	before := s.known
	projects, err := s.load()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.remember(projects)
	after := s.known
	s.mu.Unlock()

	type change struct{ reason, uuid string }
	var changes []change
	for _, p := range projects {
		old, ok := before[p.UUID]
		switch {
		case !ok:
			changes = append(changes, change{ChangeCreated, p.UUID})
		case old != *p:
			changes = append(changes, change{ChangeUpdated, p.UUID})
		}
	}
	for _, id := range slices.Sorted(maps.Keys(before)) {
		if _, ok := after[id]; !ok {
			changes = append(changes, change{ChangeDeleted, id})
		}
	}

	s.logger.Debug("project file reloaded", "project_count", len(projects), "changes", len(changes))
	for _, c := range changes {
		s.notify(c.reason, c.uuid)
	}
	return nil
}

// Close marks the store closed.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func indexOf(projects []*Project, id string) int {
	for i, p := range projects {
		if p.UUID == id {
			return i
		}
	}
	return -1
}

// String implements fmt.Stringer for log output.
func (p *Project) String() string {
	return fmt.Sprintf("%s (%s)", p.ProjectID, p.UUID)
}
