package events

import "github.com/beequen/beequen/internal/core"

// Event type constants. The values double as SSE event names.
const (
	TypeExecuteQueryFromMenu = "execute_query_from_menu"
	TypeQueryStateChanged    = "query_state_changed"
	TypeProjectsChanged      = "projects_changed"
	TypeSettingChanged       = "setting_changed"
)

// ExecuteQueryFromMenuEvent asks the UI to run the current tab. It carries
// no payload; the UI decides which tab is current.
type ExecuteQueryFromMenuEvent struct {
	BaseEvent
}

// NewExecuteQueryFromMenuEvent creates a menu execute notification.
func NewExecuteQueryFromMenuEvent() ExecuteQueryFromMenuEvent {
	return ExecuteQueryFromMenuEvent{BaseEvent: NewBaseEvent(TypeExecuteQueryFromMenu, "")}
}

// QueryStateChangedEvent is emitted on every transition of a tab's query.
type QueryStateChangedEvent struct {
	BaseEvent
	TabID string          `json:"tabId"`
	State core.QueryState `json:"state"`
}

// NewQueryStateChangedEvent creates a new query state event.
func NewQueryStateChangedEvent(projectID, tabID string, state core.QueryState) QueryStateChangedEvent {
	return QueryStateChangedEvent{
		BaseEvent: NewBaseEvent(TypeQueryStateChanged, projectID),
		TabID:     tabID,
		State:     state,
	}
}

// ProjectsChangedEvent is emitted after a project was written, or found
// changed on disk.
type ProjectsChangedEvent struct {
	BaseEvent
	Reason string `json:"reason"` // created, updated, deleted
	UUID   string `json:"uuid,omitempty"`
}

// NewProjectsChangedEvent creates a new projects changed event.
func NewProjectsChangedEvent(reason, uuid string) ProjectsChangedEvent {
	return ProjectsChangedEvent{
		BaseEvent: NewBaseEvent(TypeProjectsChanged, ""),
		Reason:    reason,
		UUID:      uuid,
	}
}

// SettingChangedEvent is emitted after the settings were saved or reloaded.
type SettingChangedEvent struct {
	BaseEvent
	Reason string `json:"reason"` // saved, reloaded
}

// NewSettingChangedEvent creates a new setting changed event.
func NewSettingChangedEvent(reason string) SettingChangedEvent {
	return SettingChangedEvent{
		BaseEvent: NewBaseEvent(TypeSettingChanged, ""),
		Reason:    reason,
	}
}
