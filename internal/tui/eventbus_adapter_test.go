package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/beequen/beequen/internal/core"
	"github.com/beequen/beequen/internal/events"
)

func receive(t *testing.T, a *EventBusAdapter) tea.Msg {
	t.Helper()
	select {
	case msg := <-a.MsgChannel():
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a message")
		return nil
	}
}

func TestEventBusAdapter_ConvertsEvents(t *testing.T) {
	bus := events.New(10)
	defer bus.Close()
	a := NewEventBusAdapter(bus)
	defer a.Close()

	bus.Publish(events.NewQueryStateChangedEvent("p1", "t1", core.Running("j1")))
	msg, ok := receive(t, a).(QueryStateMsg)
	if !ok {
		t.Fatalf("expected QueryStateMsg, got %T", msg)
	}
	if msg.ProjectUUID != "p1" || msg.TabID != "t1" {
		t.Errorf("msg = %+v", msg)
	}

	bus.Publish(events.NewProjectsChangedEvent("created", "p2"))
	if _, ok := receive(t, a).(ProjectsChangedMsg); !ok {
		t.Error("expected ProjectsChangedMsg")
	}

	bus.Publish(events.NewSettingChangedEvent("saved"))
	if _, ok := receive(t, a).(SettingChangedMsg); !ok {
		t.Error("expected SettingChangedMsg")
	}
}

func TestEventBusAdapter_MenuExecuteIsPriority(t *testing.T) {
	bus := events.New(10)
	defer bus.Close()
	a := NewEventBusAdapter(bus)
	defer a.Close()

	// A plain publish does not reach priority subscribers.
	bus.Publish(events.NewExecuteQueryFromMenuEvent())
	bus.PublishPriority(events.NewExecuteQueryFromMenuEvent())

	if _, ok := receive(t, a).(ExecuteFromMenuMsg); !ok {
		t.Fatal("expected ExecuteFromMenuMsg")
	}
	select {
	case msg := <-a.MsgChannel():
		t.Errorf("unexpected second message %T", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEventBusAdapter_CloseIsIdempotent(t *testing.T) {
	bus := events.New(10)
	defer bus.Close()
	a := NewEventBusAdapter(bus)

	a.Close()
	a.Close()

	select {
	case _, ok := <-a.MsgChannel():
		if ok {
			t.Error("message channel should be closed")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("message channel was not closed")
	}
	if msg := waitForEventBusUpdate(a)(); msg != nil {
		t.Errorf("closed adapter should yield nil, got %T", msg)
	}
}
