// Package sse streams bus events to UI clients as Server-Sent Events.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/beequen/beequen/internal/events"
)

// Handler streams events from the EventBus to connected SSE clients.
type Handler struct {
	bus           *events.EventBus
	mu            sync.RWMutex
	clients       map[*client]struct{}
	heartbeatFreq time.Duration
}

type client struct {
	id      string
	done    chan struct{}
	project string // optional filter by project uuid
	closed  bool   // tracks if done channel is already closed
}

// NewHandler creates a new SSE handler connected to the given EventBus.
func NewHandler(bus *events.EventBus) *Handler {
	return &Handler{
		bus:           bus,
		clients:       make(map[*client]struct{}),
		heartbeatFreq: 30 * time.Second,
	}
}

// SetHeartbeatFrequency sets the interval between heartbeat messages.
func (h *Handler) SetHeartbeatFrequency(d time.Duration) {
	h.heartbeatFreq = d
}

// ServeHTTP implements http.Handler for SSE connections. The optional
// "project" query parameter limits project scoped events to one project;
// global events such as execute_query_from_menu are always sent. The
// optional "types" parameter is a comma separated list of event types.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	projectID := r.URL.Query().Get("project")
	c := &client{
		id:      fmt.Sprintf("%d", time.Now().UnixNano()),
		done:    make(chan struct{}),
		project: projectID,
	}

	h.addClient(c)
	defer h.removeClient(c)

	eventCh := h.bus.SubscribeForProject(projectID, splitTypes(r.URL.Query().Get("types"))...)
	defer h.bus.Unsubscribe(eventCh)

	h.sendEvent(w, flusher, "connected", map[string]string{
		"clientId": c.id,
		"project":  projectID,
	})

	heartbeat := time.NewTicker(h.heartbeatFreq)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-heartbeat.C:
			h.sendComment(w, flusher, "heartbeat")
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			h.sendEvent(w, flusher, event.EventType(), event)
		}
	}
}

func splitTypes(s string) []string {
	if s == "" {
		return nil
	}
	var types []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			types = append(types, t)
		}
	}
	return types
}

func (h *Handler) sendEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, jsonData)
	flusher.Flush()
}

func (h *Handler) sendComment(w http.ResponseWriter, flusher http.Flusher, comment string) {
	fmt.Fprintf(w, ": %s\n\n", comment)
	flusher.Flush()
}

func (h *Handler) addClient(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Handler) removeClient(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	if !c.closed {
		c.closed = true
		close(c.done)
	}
}

// ClientCount returns the number of connected clients.
func (h *Handler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown disconnects all clients.
func (h *Handler) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		if !c.closed {
			c.closed = true
			close(c.done)
		}
	}
	h.clients = make(map[*client]struct{})
	return nil
}
