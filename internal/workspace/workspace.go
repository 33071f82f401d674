// Package workspace holds the editor tabs of every project and runs their
// queries. Each tab owns a query.Coordinator.
package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/beequen/beequen/internal/core"
	"github.com/beequen/beequen/internal/events"
	"github.com/beequen/beequen/internal/history"
	"github.com/beequen/beequen/internal/query"
)

// CodeTabNotFound is the error code for an unknown tab.
const CodeTabNotFound = "TAB_NOT_FOUND"

// Tab is an editor tab.
type Tab struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// TabUpdate carries the fields to change. Nil fields are left alone.
type TabUpdate struct {
	Title *string `json:"title,omitempty"`
	Text  *string `json:"text,omitempty"`
}

// Publisher is the part of the event bus the workspace needs.
type Publisher interface {
	Publish(event events.Event)
}

// Recorder stores finished queries.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) (int64, error)
}

type tab struct {
	Tab
	coord *query.Coordinator
}

type projectTabs struct {
	tabs    []*tab
	current string
	seq     int
}

func (p *projectTabs) index(id string) int {
	return slices.IndexFunc(p.tabs, func(t *tab) bool { return t.ID == id })
}

// Workspace is safe for concurrent use.
type Workspace struct {
	provider core.BackendProvider
	bus      Publisher
	recorder Recorder
	logger   *slog.Logger

	mu       sync.Mutex
	projects map[string]*projectTabs
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithPublisher publishes query_state_changed events to bus.
func WithPublisher(bus Publisher) Option {
	return func(w *Workspace) { w.bus = bus }
}

// WithRecorder records terminal states.
func WithRecorder(r Recorder) Option {
	return func(w *Workspace) { w.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workspace) { w.logger = logger }
}

// New creates an empty workspace. Backends are resolved through provider.
func New(provider core.BackendProvider, opts ...Option) *Workspace {
	w := &Workspace{
		provider: provider,
		logger:   slog.Default(),
		projects: make(map[string]*projectTabs),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Workspace) project(projectUUID string) *projectTabs {
	p, ok := w.projects[projectUUID]
	if !ok {
		p = &projectTabs{}
		w.projects[projectUUID] = p
	}
	return p
}

func (w *Workspace) lookup(projectUUID, tabID string) (*tab, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if p, ok := w.projects[projectUUID]; ok {
		if i := p.index(tabID); i >= 0 {
			return p.tabs[i], nil
		}
	}
	return nil, tabNotFound(tabID)
}

func tabNotFound(tabID string) error {
	return &core.DomainError{
		Category: core.ErrCatNotFound,
		Code:     CodeTabNotFound,
		Message:  fmt.Sprintf("Tab id: %s does not exist.", tabID),
	}
}

// CreateTab appends a new tab titled "Query N" and makes it current.
func (w *Workspace) CreateTab(projectUUID string) Tab {
	w.mu.Lock()
	defer w.mu.Unlock()

	p := w.project(projectUUID)
	p.seq++
	t := &tab{Tab: Tab{ID: uuid.NewString(), Title: fmt.Sprintf("Query %d", p.seq)}}
	t.coord = query.NewCoordinator(t.ID,
		query.WithLogger(w.logger),
		query.WithListener(w.listener(projectUUID)),
	)
	p.tabs = append(p.tabs, t)
	p.current = t.ID
	return t.Tab
}

// UpdateTab changes the title or text of a tab.
func (w *Workspace) UpdateTab(projectUUID, tabID string, update TabUpdate) (Tab, error) {
	t, err := w.lookup(projectUUID, tabID)
	if err != nil {
		return Tab{}, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if update.Title != nil {
		t.Title = *update.Title
	}
	if update.Text != nil {
		t.Text = *update.Text
	}
	return t.Tab, nil
}

// DeleteTab removes a tab. A running query of the tab is canceled first. When
// the current tab is deleted its right neighbour becomes current, or the left
// one when it was the last tab.
func (w *Workspace) DeleteTab(ctx context.Context, projectUUID, tabID string) error {
	t, err := w.lookup(projectUUID, tabID)
	if err != nil {
		return err
	}

	if s := t.coord.State(); s != nil && s.Status == core.StatusRunning {
		if err := w.cancel(ctx, projectUUID, t, s.JobID); err != nil {
			w.logger.Warn("canceling query of deleted tab", "tab_id", tabID, "error", err)
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	p := w.projects[projectUUID]
	i := p.index(tabID)
	if i < 0 {
		return nil
	}
	p.tabs = slices.Delete(p.tabs, i, i+1)
	if p.current == tabID {
		p.current = ""
		if len(p.tabs) > 0 {
			p.current = p.tabs[min(i, len(p.tabs)-1)].ID
		}
	}
	return nil
}

// SelectTab makes tabID the current tab of the project.
func (w *Workspace) SelectTab(projectUUID, tabID string) error {
	if _, err := w.lookup(projectUUID, tabID); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.project(projectUUID).current = tabID
	return nil
}

// Tabs returns the tabs of a project in creation order.
func (w *Workspace) Tabs(projectUUID string) []Tab {
	w.mu.Lock()
	defer w.mu.Unlock()

	tabs := make([]Tab, 0)
	if p, ok := w.projects[projectUUID]; ok {
		for _, t := range p.tabs {
			tabs = append(tabs, t.Tab)
		}
	}
	return tabs
}

// Current returns the current tab of a project.
func (w *Workspace) Current(projectUUID string) (Tab, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, ok := w.projects[projectUUID]
	if !ok {
		return Tab{}, false
	}
	if i := p.index(p.current); i >= 0 {
		return p.tabs[i].Tab, true
	}
	return Tab{}, false
}

// DropProject forgets the tabs of a deleted project, canceling their
// running queries.
func (w *Workspace) DropProject(ctx context.Context, projectUUID string) {
	for _, t := range w.Tabs(projectUUID) {
		_ = w.DeleteTab(ctx, projectUUID, t.ID)
	}
	w.mu.Lock()
	delete(w.projects, projectUUID)
	w.mu.Unlock()
}

// Run executes the text of a tab and blocks until the query reached a state
// that will not change without a new run. It returns that state.
func (w *Workspace) Run(ctx context.Context, projectUUID, tabID string) (*core.QueryState, error) {
	t, err := w.lookup(projectUUID, tabID)
	if err != nil {
		return nil, err
	}
	conn, err := w.provider.Backend(ctx, projectUUID)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	text := t.Text
	w.mu.Unlock()

	return t.coord.Execute(ctx, text, conn)
}

// Cancel cancels the running query of a tab.
func (w *Workspace) Cancel(ctx context.Context, projectUUID, tabID string) error {
	t, err := w.lookup(projectUUID, tabID)
	if err != nil {
		return err
	}
	s := t.coord.State()
	if s == nil || s.Status != core.StatusRunning {
		return query.ErrNotRunning
	}
	return w.cancel(ctx, projectUUID, t, s.JobID)
}

func (w *Workspace) cancel(ctx context.Context, projectUUID string, t *tab, jobID string) error {
	conn, err := w.provider.Backend(ctx, projectUUID)
	if err != nil {
		// The tab still stops; only the remote call is skipped.
		w.logger.Warn("no backend for cancel", "project_uuid", projectUUID, "error", err)
		conn = nil
	}
	return t.coord.Cancel(ctx, jobID, conn)
}

// DryRun estimates the text of a tab.
func (w *Workspace) DryRun(ctx context.Context, projectUUID, tabID string) (*core.DryRunResult, error) {
	t, err := w.lookup(projectUUID, tabID)
	if err != nil {
		return nil, err
	}
	conn, err := w.provider.Backend(ctx, projectUUID)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	text := t.Text
	w.mu.Unlock()
	return conn.DryRun(ctx, text)
}

// State returns the query state of a tab, nil when it never ran.
func (w *Workspace) State(projectUUID, tabID string) (*core.QueryState, error) {
	t, err := w.lookup(projectUUID, tabID)
	if err != nil {
		return nil, err
	}
	return t.coord.State(), nil
}

// Wait blocks until every remote cancel has returned.
func (w *Workspace) Wait() {
	w.mu.Lock()
	var coords []*query.Coordinator
	for _, p := range w.projects {
		for _, t := range p.tabs {
			coords = append(coords, t.coord)
		}
	}
	w.mu.Unlock()

	for _, c := range coords {
		c.Wait()
	}
}

// listener publishes every transition of a tab and records terminal ones
// under the query of the run they belong to.
func (w *Workspace) listener(projectUUID string) query.Listener {
	return func(tr query.Transition) {
		if w.bus != nil {
			w.bus.Publish(events.NewQueryStateChangedEvent(projectUUID, tr.TabID, tr.State))
		}
		if w.recorder == nil || !tr.State.Status.IsTerminal() {
			return
		}

		entry := history.NewEntry(projectUUID, tr.TabID, tr.Query, tr.State, tr.Started)
		if _, err := w.recorder.Record(context.Background(), entry); err != nil {
			w.logger.Warn("recording query history", "tab_id", tr.TabID, "error", err)
		}
	}
}
