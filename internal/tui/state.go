package tui

import (
	"encoding/json"
	"path/filepath"
	"sync"
	"time"

	"github.com/beequen/beequen/internal/fsutil"
)

// UIStateFile is the file in the data dir that remembers UI choices.
const UIStateFile = "tui-state.json"

// CurrentUIStateVersion is the schema version for UI state.
const CurrentUIStateVersion = 2

// saveDelay coalesces bursts of updates, such as typing, into one write.
const saveDelay = 500 * time.Millisecond

// UIState is what the editor restores on the next start: the selected
// project and the text of the first tab of each project.
type UIState struct {
	Version     int               `json:"version"`
	LastProject string            `json:"lastProject,omitempty"`
	Drafts      map[string]string `json:"drafts,omitempty"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// DefaultUIState returns the default UI state.
func DefaultUIState() UIState {
	return UIState{Version: CurrentUIStateVersion}
}

// UIStateManager keeps UIState in memory and writes it behind a short delay.
type UIStateManager struct {
	path string

	writeMu sync.Mutex // orders writes so the newest state lands last

	mu     sync.Mutex
	state  UIState
	timer  *time.Timer
	dirty  bool
	closed bool
}

// NewUIStateManager creates a manager for <dataDir>/tui-state.json.
func NewUIStateManager(dataDir string) *UIStateManager {
	return &UIStateManager{
		path:  filepath.Join(dataDir, UIStateFile),
		state: DefaultUIState(),
	}
}

// Load reads the state file. A missing or corrupt file leaves the defaults.
func (m *UIStateManager) Load() error {
	data, ok, err := fsutil.ReadOptional(m.path)
	if err != nil || !ok {
		return err
	}

	var state UIState
	if json.Unmarshal(data, &state) != nil {
		return nil
	}
	// Version 1 only had the project, under a snake_case key.
	if state.Version < 2 {
		var v1 struct {
			LastProject string `json:"last_project"`
		}
		_ = json.Unmarshal(data, &v1)
		state.LastProject = v1.LastProject
	}
	state.Version = CurrentUIStateVersion

	m.mu.Lock()
	m.state = state
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the current state.
func (m *UIStateManager) Get() UIState {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.state
	if s.Drafts != nil {
		s.Drafts = make(map[string]string, len(m.state.Drafts))
		for k, v := range m.state.Drafts {
			s.Drafts[k] = v
		}
	}
	return s
}

// Draft returns the remembered text of a project's first tab.
func (m *UIStateManager) Draft(projectUUID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Drafts[projectUUID]
}

// SetLastProject remembers the selected project.
func (m *UIStateManager) SetLastProject(uuid string) {
	m.update(func(s *UIState) { s.LastProject = uuid })
}

// SetDraft remembers text for a project. Empty text forgets it.
func (m *UIStateManager) SetDraft(projectUUID, text string) {
	m.update(func(s *UIState) {
		if text == "" {
			delete(s.Drafts, projectUUID)
			return
		}
		if s.Drafts == nil {
			s.Drafts = make(map[string]string)
		}
		s.Drafts[projectUUID] = text
	})
}

// ForgetProject drops what is remembered about a deleted project.
func (m *UIStateManager) ForgetProject(uuid string) {
	m.update(func(s *UIState) {
		delete(s.Drafts, uuid)
		if s.LastProject == uuid {
			s.LastProject = ""
		}
	})
}

func (m *UIStateManager) update(fn func(*UIState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	fn(&m.state)
	m.dirty = true
	if m.timer == nil {
		m.timer = time.AfterFunc(saveDelay, func() { _ = m.flush() })
	} else {
		m.timer.Reset(saveDelay)
	}
}

// flush writes the state when it changed since the last write.
func (m *UIStateManager) flush() error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	if !m.dirty {
		m.mu.Unlock()
		return nil
	}
	m.dirty = false
	state := m.state
	m.mu.Unlock()

	state.UpdatedAt = time.Now()
	return fsutil.WriteJSON(m.path, state)
}

// Close stops the pending write and writes unsaved changes. Later updates
// are ignored.
func (m *UIStateManager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	if m.timer != nil {
		m.timer.Stop()
	}
	m.mu.Unlock()
	return m.flush()
}
