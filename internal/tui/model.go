package tui

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/beequen/beequen/internal/clip"
	"github.com/beequen/beequen/internal/core"
	"github.com/beequen/beequen/internal/events"
	"github.com/beequen/beequen/internal/project"
	"github.com/beequen/beequen/internal/render"
	"github.com/beequen/beequen/internal/setting"
	"github.com/beequen/beequen/internal/workspace"
)

type focus int

const (
	focusEditor focus = iota
	focusResults
)

// Options wires the model to the services it drives.
type Options struct {
	Workspace *workspace.Workspace
	Projects  project.Store
	// Settings is optional; defaults apply without it.
	Settings *setting.Store
	// Bus is optional; without it the model only sees its own changes.
	Bus *events.EventBus
	// State is optional and remembers the selected project.
	State  *UIStateManager
	Logger *slog.Logger
}

// Model is the main TUI model.
type Model struct {
	ctx      context.Context
	ws       *workspace.Workspace
	projects project.Store
	settings *setting.Store
	adapter  *EventBusAdapter
	uiState  *UIStateManager
	logger   *slog.Logger

	projectList []*project.Project
	projectUUID string

	editor   textarea.Model
	results  table.Model
	spinner  spinner.Model
	help     help.Model
	keys     keyMap
	focus    focus
	showHelp bool
	helpView string
	indent   string

	status    string
	statusErr bool

	width  int
	height int
	ready  bool
}

// New creates the model. ctx bounds every query the model starts.
func New(ctx context.Context, opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	editor := textarea.New()
	editor.Placeholder = "select 1"
	editor.ShowLineNumbers = true
	editor.CharLimit = 0
	editor.MaxHeight = 0
	editor.Focus()

	m := Model{
		ctx:      ctx,
		ws:       opts.Workspace,
		projects: opts.Projects,
		settings: opts.Settings,
		uiState:  opts.State,
		logger:   logger,
		editor:   editor,
		results:  newResultsTable(),
		spinner:  spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(RunningStyle)),
		help:     help.New(),
		keys:     defaultKeyMap(),
		indent:   "  ",
	}
	if opts.Bus != nil {
		m.adapter = NewEventBusAdapter(opts.Bus)
	}
	m.applySetting()
	return m
}

// Close releases the event subscription and flushes the UI state.
func (m Model) Close() {
	if m.adapter != nil {
		m.adapter.Close()
	}
	if m.uiState != nil {
		if err := m.uiState.Close(); err != nil {
			m.logger.Warn("saving ui state", "error", err)
		}
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.spinner.Tick,
		textarea.Blink,
		m.loadProjects(),
	}
	if m.adapter != nil {
		cmds = append(cmds, waitForEventBusUpdate(m.adapter))
	}
	return tea.Batch(cmds...)
}

// next re-arms the event subscription after an event message.
func (m Model) next() tea.Cmd {
	if m.adapter == nil {
		return nil
	}
	return waitForEventBusUpdate(m.adapter)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.layout()
		if m.showHelp {
			m.helpView = renderHelp(m.width)
		}
		return m, nil

	case ProjectsLoadedMsg:
		if msg.Err != nil {
			m.setStatus(core.MessageOf(msg.Err), true)
			return m, nil
		}
		m.setProjects(msg.Projects)
		return m, nil

	case ProjectsChangedMsg:
		return m, tea.Batch(m.loadProjects(), m.next())

	case SettingChangedMsg:
		m.applySetting()
		return m, m.next()

	case QueryStateMsg:
		if msg.ProjectUUID == m.projectUUID {
			if tab, ok := m.ws.Current(m.projectUUID); ok && tab.ID == msg.TabID {
				m.refreshResults()
			}
		}
		return m, m.next()

	case ExecuteFromMenuMsg:
		return m, tea.Batch(m.runCurrent(), m.next())

	case DryRunMsg:
		if msg.Err != nil {
			m.setStatus(core.MessageOf(msg.Err), true)
		} else {
			m.setStatus(fmt.Sprintf("This query will process %s when run.",
				render.Bytes(msg.Result.TotalBytesProcessed)), false)
		}
		return m, nil

	case StatusMsg:
		m.setStatus(msg.Text, msg.Error)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m.forward(msg)
}

// forward passes msg to the focused widget.
func (m Model) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.focus == focusResults {
		m.results, cmd = m.results.Update(msg)
		return m, cmd
	}

	before := m.editor.Value()
	m.editor, cmd = m.editor.Update(msg)
	if after := m.editor.Value(); after != before {
		m.saveText(after)
	}
	return m, cmd
}

// handleKeyPress handles keyboard input.
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		if key.Matches(msg, m.keys.Help, m.keys.Quit) || msg.String() == "esc" {
			m.showHelp = false
		}
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		m.helpView = renderHelp(m.width)
		return m, nil
	}

	if m.projectUUID == "" {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Run):
		return m, m.runCurrent()

	case key.Matches(msg, m.keys.Cancel):
		return m, m.cancelCurrent()

	case key.Matches(msg, m.keys.DryRun):
		return m, m.dryRunCurrent()

	case key.Matches(msg, m.keys.NewTab):
		m.ws.CreateTab(m.projectUUID)
		m.loadCurrentTab()
		return m, nil

	case key.Matches(msg, m.keys.CloseTab):
		m.closeCurrentTab()
		return m, nil

	case key.Matches(msg, m.keys.NextTab):
		m.stepTab(1)
		return m, nil

	case key.Matches(msg, m.keys.PrevTab):
		m.stepTab(-1)
		return m, nil

	case key.Matches(msg, m.keys.NextProject):
		m.stepProject()
		return m, nil

	case key.Matches(msg, m.keys.Focus):
		m.toggleFocus()
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		return m, m.copyResults()
	}

	if m.focus == focusEditor && msg.Type == tea.KeyTab {
		m.editor.InsertString(m.indent)
		m.saveText(m.editor.Value())
		return m, nil
	}
	return m.forward(msg)
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

func (m Model) loadProjects() tea.Cmd {
	store := m.projects
	return func() tea.Msg {
		list, err := store.List()
		return ProjectsLoadedMsg{Projects: list, Err: err}
	}
}

// setProjects installs a new project list. The current project is kept when
// it still exists; tabs of projects that went away are dropped.
func (m *Model) setProjects(list []*project.Project) {
	old := m.projectList
	m.projectList = list

	for _, p := range old {
		if m.indexOfProject(p.UUID) < 0 {
			m.ws.DropProject(m.ctx, p.UUID)
			if m.uiState != nil {
				m.uiState.ForgetProject(p.UUID)
			}
		}
	}

	if m.projectUUID != "" && m.indexOfProject(m.projectUUID) >= 0 {
		return
	}

	uuid := ""
	if m.uiState != nil {
		if last := m.uiState.Get().LastProject; m.indexOfProject(last) >= 0 {
			uuid = last
		}
	}
	if uuid == "" && len(list) > 0 {
		uuid = list[0].UUID
	}
	m.selectProject(uuid)
}

func (m *Model) indexOfProject(uuid string) int {
	for i, p := range m.projectList {
		if p.UUID == uuid {
			return i
		}
	}
	return -1
}

func (m *Model) selectProject(uuid string) {
	m.projectUUID = uuid
	if uuid == "" {
		m.editor.SetValue("")
		setResult(&m.results, nil)
		return
	}
	if m.uiState != nil {
		m.uiState.SetLastProject(uuid)
	}
	if _, ok := m.ws.Current(uuid); !ok {
		tab := m.ws.CreateTab(uuid)
		if m.uiState != nil {
			if draft := m.uiState.Draft(uuid); draft != "" {
				_, _ = m.ws.UpdateTab(uuid, tab.ID, workspace.TabUpdate{Text: &draft})
			}
		}
	}
	m.loadCurrentTab()
}

func (m *Model) stepProject() {
	if len(m.projectList) < 2 {
		return
	}
	i := (m.indexOfProject(m.projectUUID) + 1) % len(m.projectList)
	m.selectProject(m.projectList[i].UUID)
}

// loadCurrentTab shows the current tab of the project in the editor.
func (m *Model) loadCurrentTab() {
	tab, ok := m.ws.Current(m.projectUUID)
	if !ok {
		return
	}
	m.editor.SetValue(tab.Text)
	m.setStatus("", false)
	m.refreshResults()
}

func (m *Model) saveText(text string) {
	tab, ok := m.ws.Current(m.projectUUID)
	if !ok {
		return
	}
	if _, err := m.ws.UpdateTab(m.projectUUID, tab.ID, workspace.TabUpdate{Text: &text}); err != nil {
		m.logger.Warn("saving tab text", "tab_id", tab.ID, "error", err)
	}
	// Only the first tab survives a restart.
	if tabs := m.ws.Tabs(m.projectUUID); m.uiState != nil && len(tabs) > 0 && tabs[0].ID == tab.ID {
		m.uiState.SetDraft(m.projectUUID, text)
	}
}

func (m *Model) stepTab(delta int) {
	tabs := m.ws.Tabs(m.projectUUID)
	cur, ok := m.ws.Current(m.projectUUID)
	if !ok || len(tabs) < 2 {
		return
	}
	i := 0
	for j, t := range tabs {
		if t.ID == cur.ID {
			i = j
		}
	}
	i = (i + delta + len(tabs)) % len(tabs)
	if err := m.ws.SelectTab(m.projectUUID, tabs[i].ID); err != nil {
		m.setStatus(core.MessageOf(err), true)
		return
	}
	m.loadCurrentTab()
}

// closeCurrentTab deletes the current tab, keeping at least one open.
func (m *Model) closeCurrentTab() {
	cur, ok := m.ws.Current(m.projectUUID)
	if !ok {
		return
	}
	if err := m.ws.DeleteTab(m.ctx, m.projectUUID, cur.ID); err != nil {
		m.setStatus(core.MessageOf(err), true)
		return
	}
	if _, ok := m.ws.Current(m.projectUUID); !ok {
		m.ws.CreateTab(m.projectUUID)
	}
	m.loadCurrentTab()
}

func (m *Model) toggleFocus() {
	if m.focus == focusEditor {
		m.focus = focusResults
		m.editor.Blur()
		m.results.Focus()
		return
	}
	m.focus = focusEditor
	m.results.Blur()
	m.editor.Focus()
}

// currentState returns the state of the current tab.
func (m Model) currentState() (workspace.Tab, *core.QueryState) {
	tab, ok := m.ws.Current(m.projectUUID)
	if !ok {
		return workspace.Tab{}, nil
	}
	state, err := m.ws.State(m.projectUUID, tab.ID)
	if err != nil {
		return tab, nil
	}
	return tab, state
}

// refreshResults loads the result of the current tab into the table.
func (m *Model) refreshResults() {
	_, state := m.currentState()
	if state != nil && state.Status == core.StatusCompleted {
		setResult(&m.results, state.Result)
		return
	}
	setResult(&m.results, nil)
}

// runCurrent starts the current tab. The returned command blocks until the
// query settles; transitions arrive as QueryStateMsg either way.
func (m Model) runCurrent() tea.Cmd {
	tab, ok := m.ws.Current(m.projectUUID)
	if !ok {
		return nil
	}
	ctx, ws, projectUUID := m.ctx, m.ws, m.projectUUID
	return func() tea.Msg {
		if _, err := ws.Run(ctx, projectUUID, tab.ID); err != nil {
			return StatusMsg{Text: core.MessageOf(err), Error: true}
		}
		return QueryStateMsg{ProjectUUID: projectUUID, TabID: tab.ID}
	}
}

func (m Model) cancelCurrent() tea.Cmd {
	tab, ok := m.ws.Current(m.projectUUID)
	if !ok {
		return nil
	}
	ctx, ws, projectUUID := m.ctx, m.ws, m.projectUUID
	return func() tea.Msg {
		if err := ws.Cancel(ctx, projectUUID, tab.ID); err != nil {
			return StatusMsg{Text: core.MessageOf(err), Error: true}
		}
		return QueryStateMsg{ProjectUUID: projectUUID, TabID: tab.ID}
	}
}

func (m Model) dryRunCurrent() tea.Cmd {
	tab, ok := m.ws.Current(m.projectUUID)
	if !ok {
		return nil
	}
	ctx, ws, projectUUID := m.ctx, m.ws, m.projectUUID
	return func() tea.Msg {
		res, err := ws.DryRun(ctx, projectUUID, tab.ID)
		return DryRunMsg{TabID: tab.ID, Result: res, Err: err}
	}
}

// copyResults copies the completed result of the current tab as CSV.
func (m Model) copyResults() tea.Cmd {
	_, state := m.currentState()
	if state == nil || state.Status != core.StatusCompleted {
		return func() tea.Msg { return StatusMsg{Text: "No results to copy.", Error: true} }
	}
	result := state.Result
	return func() tea.Msg {
		var buf bytes.Buffer
		if err := render.Result(&buf, result, render.FormatCSV); err != nil {
			return StatusMsg{Text: err.Error(), Error: true}
		}
		res, err := clip.Copy(buf.String(), render.FormatCSV.Ext())
		if err != nil {
			return StatusMsg{Text: err.Error(), Error: true}
		}
		return StatusMsg{Text: res.String()}
	}
}

func (m *Model) applySetting() {
	if m.settings == nil {
		return
	}
	s, err := m.settings.Load()
	if err != nil {
		m.logger.Warn("loading setting", "error", err)
	}
	m.indent = strings.Repeat(" ", s.Editor.Indent.Width())
}

// layout sizes the widgets from the window size.
func (m *Model) layout() {
	inner := max(m.width-2, 10)
	// header, tab bar, status line and footer, plus two pane borders
	avail := max(m.height-4-4, 6)
	editorH := max(avail*2/5, 3)
	resultsH := max(avail-editorH, 3)

	m.editor.SetWidth(inner)
	m.editor.SetHeight(editorH)
	m.results.SetWidth(inner)
	m.results.SetHeight(resultsH)
	m.help.Width = m.width
}

// View renders the TUI.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.showHelp {
		return m.helpView
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	if m.projectUUID == "" {
		b.WriteString(SubtleStyle.Render(
			"No projects. Add one with: beequen project add <project-id> [--credentials <key.json>]"))
		b.WriteString("\n")
		b.WriteString(m.renderStatus())
		b.WriteString("\n")
		b.WriteString(FooterStyle.Render(m.help.ShortHelpView([]key.Binding{m.keys.Help, m.keys.Quit})))
		return b.String()
	}

	b.WriteString(m.renderTabs())
	b.WriteString("\n")

	editorPane, resultsPane := PaneStyle, PaneStyle
	if m.focus == focusEditor {
		editorPane = FocusedPaneStyle
	} else {
		resultsPane = FocusedPaneStyle
	}
	b.WriteString(editorPane.Render(m.editor.View()))
	b.WriteString("\n")
	b.WriteString(resultsPane.Render(m.renderResults()))
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(FooterStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func (m Model) renderHeader() string {
	name := "no project"
	if i := m.indexOfProject(m.projectUUID); i >= 0 {
		name = fmt.Sprintf("%s (%d/%d)", m.projectList[i].ProjectID, i+1, len(m.projectList))
	}
	return HeaderStyle.Render("beequen · " + name)
}

func (m Model) renderTabs() string {
	cur, _ := m.ws.Current(m.projectUUID)
	var parts []string
	for _, t := range m.ws.Tabs(m.projectUUID) {
		label := t.Title
		if s, err := m.ws.State(m.projectUUID, t.ID); err == nil && s != nil {
			label = statusIcon(s.Status) + " " + label
		}
		style := TabStyle
		if t.ID == cur.ID {
			style = ActiveTabStyle
		}
		parts = append(parts, style.Render(label))
	}
	return Truncate(lipgloss.JoinHorizontal(lipgloss.Top, parts...), max(m.width, 1))
}

func (m Model) renderResults() string {
	_, state := m.currentState()
	inner := max(m.width-2, 10)
	var msg string
	switch {
	case state == nil:
		msg = SubtleStyle.Render("Run the query with ctrl+r.")
	case state.Status == core.StatusRunning:
		msg = m.spinner.View() + " " + RunningStyle.Render("Running job "+state.JobID)
	case state.Status == core.StatusCanceled:
		msg = CanceledStyle.Render("Canceled job " + state.JobID)
	case state.Status == core.StatusError:
		msg = ErrorStyle.Render(state.Message)
	case len(state.Result.Rows) == 0:
		msg = SubtleStyle.Render("The query returned no rows.")
	default:
		return m.results.View()
	}
	return lipgloss.NewStyle().Width(inner).Height(m.results.Height()).Render(msg)
}

func (m Model) renderStatus() string {
	if m.status != "" {
		if m.statusErr {
			return ErrorStyle.Render(m.status)
		}
		return SubtleStyle.Render(m.status)
	}
	if _, state := m.currentState(); state != nil && state.Status == core.StatusCompleted {
		return CompletedStyle.Render(render.Stats(state.Result))
	}
	return ""
}

// statusIcon returns the tab marker for a query status.
func statusIcon(status core.QueryStatus) string {
	switch status {
	case core.StatusRunning:
		return StatusStyle(status).Render("●")
	case core.StatusCompleted:
		return StatusStyle(status).Render("✓")
	case core.StatusCanceled:
		return StatusStyle(status).Render("⊘")
	case core.StatusError:
		return StatusStyle(status).Render("✗")
	default:
		return ""
	}
}
