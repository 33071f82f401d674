package project

import "github.com/beequen/beequen/internal/events"

// Publisher is the part of the event bus the store needs.
type Publisher interface {
	Publish(event events.Event)
}

// PublishChanges returns an observer that publishes every change as a
// projects_changed event.
func PublishChanges(bus Publisher) Observer {
	return ObserverFunc(func(reason, uuid string) {
		bus.Publish(events.NewProjectsChangedEvent(reason, uuid))
	})
}
