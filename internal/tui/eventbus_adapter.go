package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/beequen/beequen/internal/events"
)

// EventBusAdapter bridges EventBus events to Bubbletea messages.
type EventBusAdapter struct {
	bus        *events.EventBus
	eventCh    <-chan events.Event
	priorityCh <-chan events.Event
	msgCh      chan tea.Msg
	closeCh    chan struct{}
	mu         sync.Mutex
	closed     bool
}

// NewEventBusAdapter subscribes to the events the terminal UI reacts to.
// Menu execute requests use the priority channel so they are never dropped.
func NewEventBusAdapter(bus *events.EventBus) *EventBusAdapter {
	adapter := &EventBusAdapter{
		bus: bus,
		eventCh: bus.Subscribe(
			events.TypeQueryStateChanged,
			events.TypeProjectsChanged,
			events.TypeSettingChanged,
		),
		priorityCh: bus.SubscribePriority(events.TypeExecuteQueryFromMenu),
		msgCh:      make(chan tea.Msg, 100),
		closeCh:    make(chan struct{}),
	}

	go adapter.run()
	return adapter
}

// MsgChannel returns the channel for Bubbletea to read from.
func (a *EventBusAdapter) MsgChannel() <-chan tea.Msg {
	return a.msgCh
}

// Close shuts down the adapter.
func (a *EventBusAdapter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return
	}
	a.closed = true
	close(a.closeCh)

	// A priority publisher may be blocked on a full channel while holding
	// the bus lock that Unsubscribe needs.
	go func() {
		for range a.priorityCh {
		}
	}()
	a.bus.Unsubscribe(a.eventCh)
	a.bus.Unsubscribe(a.priorityCh)
}

// run processes events and converts them to tea.Msg.
func (a *EventBusAdapter) run() {
	defer close(a.msgCh)
	for {
		select {
		case <-a.closeCh:
			return

		case event, ok := <-a.priorityCh:
			if !ok {
				return
			}
			a.handleEvent(event, true)

		case event, ok := <-a.eventCh:
			if !ok {
				return
			}
			a.handleEvent(event, false)
		}
	}
}

// handleEvent forwards the converted event. Priority messages wait for room;
// others are dropped when the UI is behind, since the model re-reads state.
func (a *EventBusAdapter) handleEvent(event events.Event, priority bool) {
	msg := eventToMsg(event)
	if msg == nil {
		return
	}

	if priority {
		select {
		case a.msgCh <- msg:
		case <-a.closeCh:
		}
		return
	}
	select {
	case a.msgCh <- msg:
	default:
	}
}

// eventToMsg converts an events.Event to a tea.Msg.
func eventToMsg(event events.Event) tea.Msg {
	switch e := event.(type) {
	case events.ExecuteQueryFromMenuEvent:
		return ExecuteFromMenuMsg{}
	case events.QueryStateChangedEvent:
		return QueryStateMsg{ProjectUUID: e.ProjectID(), TabID: e.TabID}
	case events.ProjectsChangedEvent:
		return ProjectsChangedMsg{}
	case events.SettingChangedEvent:
		return SettingChangedMsg{}
	default:
		return nil
	}
}

// waitForEventBusUpdate reads the next message from the adapter.
func waitForEventBusUpdate(a *EventBusAdapter) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-a.MsgChannel()
		if !ok {
			return nil
		}
		return msg
	}
}
