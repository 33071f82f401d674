package bigquery

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/beequen/beequen/internal/core"
	"github.com/beequen/beequen/internal/project"
)

var (
	_ core.Dialer          = (*Connector)(nil)
	_ core.BackendProvider = (*Connector)(nil)
	_ project.Observer     = (*Connector)(nil)
)

// ErrConnectorClosed is returned after Close.
var ErrConnectorClosed = errors.New("connector closed")

// ProjectLookup resolves stored projects by uuid.
type ProjectLookup interface {
	Get(uuid string) (*project.Project, error)
}

// Connector opens Backends and shares one per stored project. A cached
// Backend is retired when its project is deleted or its connection profile
// changes, and closed once the calls already using it have returned.
type Connector struct {
	projects ProjectLookup
	dialer   core.Dialer
	logger   *slog.Logger

	mu       sync.Mutex
	backends map[string]*sharedBackend
	closed   bool
}

// ConnectorOption configures a Connector.
type ConnectorOption func(*Connector)

// WithDialer replaces the function used to open Backends.
func WithDialer(d core.Dialer) ConnectorOption {
	return func(c *Connector) { c.dialer = d }
}

// WithConnectorLogger sets the logger.
func WithConnectorLogger(logger *slog.Logger) ConnectorOption {
	return func(c *Connector) { c.logger = logger }
}

// NewConnector creates a Connector. opts are applied to every Backend it
// opens.
func NewConnector(projects ProjectLookup, opts []Option, copts ...ConnectorOption) *Connector {
	c := &Connector{
		projects: projects,
		logger:   slog.Default(),
		backends: make(map[string]*sharedBackend),
	}
	c.dialer = core.DialerFunc(func(ctx context.Context, profile core.ConnectionProfile) (core.Backend, error) {
		return Open(ctx, profile, append(slices.Clone(opts), WithLogger(c.logger))...)
	})
	for _, opt := range copts {
		opt(c)
	}
	return c
}

// Dial opens a new Backend for profile. The caller owns it.
func (c *Connector) Dial(ctx context.Context, profile core.ConnectionProfile) (core.Backend, error) {
	return c.dialer.Dial(ctx, profile)
}

// Backend returns the shared Backend of the project with projectUUID,
// opening it on first use. Closing it is a no-op; the Connector owns it.
func (c *Connector) Backend(ctx context.Context, projectUUID string) (core.Backend, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrConnectorClosed
	}
	if b, ok := c.backends[projectUUID]; ok {
		return b, nil
	}

	p, err := c.projects.Get(projectUUID)
	if err != nil {
		return nil, err
	}
	b, err := c.dialer.Dial(ctx, p.Profile())
	if err != nil {
		return nil, err
	}
	shared := newSharedBackend(b, p.Profile(), func(err error) {
		if err != nil {
			c.logger.Warn("closing backend", "project_uuid", projectUUID, "error", err)
		}
	})
	c.backends[projectUUID] = shared
	c.logger.Debug("backend opened", "project_uuid", projectUUID, "project_id", p.ProjectID)
	return shared, nil
}

// ProjectChanged retires Backends whose profile is stale. An update that
// leaves the project id and credentials alone keeps the Backend.
func (c *Connector) ProjectChanged(reason, uuid string) {
	switch reason {
	case project.ChangeDeleted:
		c.evict(uuid)
	case project.ChangeUpdated:
		c.mu.Lock()
		b, ok := c.backends[uuid]
		c.mu.Unlock()
		if !ok {
			return
		}
		if p, err := c.projects.Get(uuid); err == nil && p.Profile() == b.profile {
			return
		}
		c.evict(uuid)
	}
}

func (c *Connector) evict(uuid string) {
	c.mu.Lock()
	b, ok := c.backends[uuid]
	delete(c.backends, uuid)
	c.mu.Unlock()

	if ok {
		c.logger.Debug("backend retired", "project_uuid", uuid)
		b.retire()
	}
}

// Close closes every shared Backend. Calls still running keep their Backend
// until they return.
func (c *Connector) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	backends := c.backends
	c.backends = nil
	c.mu.Unlock()

	var errs []error
	for _, b := range backends {
		errs = append(errs, b.retire())
	}
	return errors.Join(errs...)
}

// errBackendRetired is the cause returned by a retired Backend.
var errBackendRetired = errors.New("backend was closed after its project changed")

// sharedBackend counts the calls using a cached Backend so that retiring it
// does not pull the client out from under them.
type sharedBackend struct {
	backend core.Backend
	profile core.ConnectionProfile
	onClose func(error)

	mu       sync.Mutex
	inflight int
	retired  bool
	closed   bool
}

var _ core.Backend = (*sharedBackend)(nil)

func newSharedBackend(b core.Backend, profile core.ConnectionProfile, onClose func(error)) *sharedBackend {
	return &sharedBackend{backend: b, profile: profile, onClose: onClose}
}

func (s *sharedBackend) acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return core.ErrBackend(core.CodeConnectFailed, errBackendRetired)
	}
	s.inflight++
	return nil
}

func (s *sharedBackend) release() {
	s.mu.Lock()
	s.inflight--
	closeNow := s.retired && s.inflight == 0 && !s.closed
	if closeNow {
		s.closed = true
	}
	s.mu.Unlock()

	if closeNow {
		s.onClose(s.backend.Close())
	}
}

// retire closes the Backend now when it is idle, otherwise when the last
// running call returns. Only an immediate close reports its error.
func (s *sharedBackend) retire() error {
	s.mu.Lock()
	if s.retired {
		s.mu.Unlock()
		return nil
	}
	s.retired = true
	closeNow := s.inflight == 0
	if closeNow {
		s.closed = true
	}
	s.mu.Unlock()

	if !closeNow {
		return nil
	}
	err := s.backend.Close()
	s.onClose(err)
	return err
}

func (s *sharedBackend) Submit(ctx context.Context, query string) (core.ExecuteQueryResult, error) {
	if err := s.acquire(); err != nil {
		return core.ExecuteQueryResult{}, err
	}
	defer s.release()
	return s.backend.Submit(ctx, query)
}

func (s *sharedBackend) AwaitResult(ctx context.Context, jobID string) (*core.JobResult, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()
	return s.backend.AwaitResult(ctx, jobID)
}

func (s *sharedBackend) Cancel(ctx context.Context, jobID string) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()
	return s.backend.Cancel(ctx, jobID)
}

func (s *sharedBackend) DryRun(ctx context.Context, query string) (*core.DryRunResult, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()
	return s.backend.DryRun(ctx, query)
}

func (s *sharedBackend) ListDatasets(ctx context.Context) ([]core.Dataset, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()
	return s.backend.ListDatasets(ctx)
}

func (s *sharedBackend) GetTableSchema(ctx context.Context, datasetID, tableID string) ([]core.Field, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()
	return s.backend.GetTableSchema(ctx, datasetID, tableID)
}

// Close is a no-op: the Connector closes shared Backends.
func (s *sharedBackend) Close() error { return nil }
