package tui

import (
	"github.com/beequen/beequen/internal/core"
	"github.com/beequen/beequen/internal/project"
)

// QueryStateMsg reports that the query of a tab moved. The model re-reads
// the state from the workspace; the message only names the tab.
type QueryStateMsg struct {
	ProjectUUID string
	TabID       string
}

// ExecuteFromMenuMsg asks to run the current tab.
type ExecuteFromMenuMsg struct{}

// ProjectsChangedMsg asks to reload the project list.
type ProjectsChangedMsg struct{}

// ProjectsLoadedMsg carries a fresh project list.
type ProjectsLoadedMsg struct {
	Projects []*project.Project
	Err      error
}

// SettingChangedMsg asks to reload the setting.
type SettingChangedMsg struct{}

// DryRunMsg carries the estimate of a tab.
type DryRunMsg struct {
	TabID  string
	Result *core.DryRunResult
	Err    error
}

// StatusMsg replaces the status line.
type StatusMsg struct {
	Text  string
	Error bool
}
