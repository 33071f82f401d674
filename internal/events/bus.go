// Package events provides the in-process event bus that carries UI
// notifications: menu-triggered execution, query state transitions and
// store changes. It implements pub/sub with backpressure control and
// priority channels.
package events

import (
	"sync"
	"sync/atomic"
	"time"
)

// Event is the base interface for all events.
type Event interface {
	EventType() string
	Timestamp() time.Time
	// ProjectID is the project uuid the event concerns, or empty when the
	// event is global.
	ProjectID() string
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	Type    string    `json:"type"`
	Time    time.Time `json:"timestamp"`
	Project string    `json:"projectUuid,omitempty"`
}

func (e BaseEvent) EventType() string    { return e.Type }
func (e BaseEvent) Timestamp() time.Time { return e.Time }
func (e BaseEvent) ProjectID() string    { return e.Project }

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType, projectID string) BaseEvent {
	return BaseEvent{
		Type:    eventType,
		Time:    time.Now(),
		Project: projectID,
	}
}

// Subscriber represents an event subscription.
type Subscriber struct {
	ch        chan Event
	types     map[string]bool // Empty means all types
	projectID string          // Empty means all projects
}

func (s *Subscriber) matches(event Event) bool {
	if len(s.types) > 0 && !s.types[event.EventType()] {
		return false
	}
	if s.projectID != "" && event.ProjectID() != "" && s.projectID != event.ProjectID() {
		return false
	}
	return true
}

// EventBus provides pub/sub with backpressure control.
type EventBus struct {
	mu           sync.RWMutex
	subscribers  []*Subscriber
	prioritySubs []*Subscriber
	bufferSize   int
	droppedCount int64
	closed       bool
}

// New creates a new EventBus with the specified buffer size.
func New(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &EventBus{bufferSize: bufferSize}
}

// Subscribe creates a subscription for specific event types.
// If no types are specified, subscribes to all events.
func (eb *EventBus) Subscribe(types ...string) <-chan Event {
	return eb.SubscribeForProject("", types...)
}

// SubscribeForProject subscribes to events of one project. Global events
// (no project) are always delivered. An empty projectID receives everything.
func (eb *EventBus) SubscribeForProject(projectID string, types ...string) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	sub := newSubscriber(eb.bufferSize, projectID, types)
	eb.subscribers = append(eb.subscribers, sub)
	return sub.ch
}

// SubscribePriority creates a subscription that never drops events. Events
// reach it only through PublishPriority, and publishing blocks until the
// subscriber has room, so the reader must keep draining.
func (eb *EventBus) SubscribePriority(types ...string) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	sub := newSubscriber(16, "", types)
	eb.prioritySubs = append(eb.prioritySubs, sub)
	return sub.ch
}

func newSubscriber(size int, projectID string, types []string) *Subscriber {
	sub := &Subscriber{
		ch:        make(chan Event, size),
		types:     make(map[string]bool, len(types)),
		projectID: projectID,
	}
	for _, t := range types {
		sub.types[t] = true
	}
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (eb *EventBus) Unsubscribe(ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscribers = removeSubscriber(eb.subscribers, ch)
	eb.prioritySubs = removeSubscriber(eb.prioritySubs, ch)
}

func removeSubscriber(subs []*Subscriber, ch <-chan Event) []*Subscriber {
	result := make([]*Subscriber, 0, len(subs))
	for _, sub := range subs {
		if sub.ch != ch {
			result = append(result, sub)
		} else {
			close(sub.ch)
		}
	}
	return result
}

// Publish sends an event to all matching subscribers. A subscriber whose
// buffer is full loses its oldest event (ring buffer behavior).
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}
	eb.publish(event)
}

// PublishPriority delivers to regular subscribers like Publish and then to
// every matching priority subscriber, blocking until each accepts it.
func (eb *EventBus) PublishPriority(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}
	eb.publish(event)

	for _, sub := range eb.prioritySubs {
		if sub.matches(event) {
			sub.ch <- event
		}
	}
}

// publish is the internal version that doesn't acquire the lock.
func (eb *EventBus) publish(event Event) {
	for _, sub := range eb.subscribers {
		if !sub.matches(event) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			select {
			case <-sub.ch:
				atomic.AddInt64(&eb.droppedCount, 1)
			default:
			}
			select {
			case sub.ch <- event:
			default:
				atomic.AddInt64(&eb.droppedCount, 1)
			}
		}
	}
}

// DroppedCount returns the total number of dropped events.
func (eb *EventBus) DroppedCount() int64 {
	return atomic.LoadInt64(&eb.droppedCount)
}

// Close closes the event bus and all subscriber channels.
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}
	eb.closed = true

	for _, sub := range eb.subscribers {
		close(sub.ch)
	}
	for _, sub := range eb.prioritySubs {
		close(sub.ch)
	}
	eb.subscribers = nil
	eb.prioritySubs = nil
}
