package ipc

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/beequen/beequen/internal/core"
	"github.com/beequen/beequen/internal/events"
)

// maxBodyBytes bounds an invocation body.
const maxBodyBytes = 8 << 20

// Request is the body of POST /ipc/{channel}.
type Request struct {
	Args Args `json:"args"`
}

// Response is the body of a successful invocation.
type Response struct {
	Result any `json:"result"`
}

// ErrorBody is the body of a failed invocation.
type ErrorBody struct {
	Error *ErrorResponse `json:"error"`
}

// ErrorResponse describes a failed invocation.
type ErrorResponse struct {
	Category core.ErrorCategory `json:"category"`
	Code     string             `json:"code"`
	Message  string             `json:"message"`
}

// MenuPublisher delivers the menu notification to UI clients.
type MenuPublisher interface {
	PublishPriority(event events.Event)
}

// Transport serves a Bridge over HTTP.
type Transport struct {
	bridge *Bridge
	menu   MenuPublisher
	logger *slog.Logger
}

// NewTransport creates the HTTP transport. menu may be nil, which disables
// the menu endpoint.
func NewTransport(bridge *Bridge, menu MenuPublisher, logger *slog.Logger) *Transport {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{bridge: bridge, menu: menu, logger: logger}
}

// RegisterRoutes mounts the IPC routes on r:
//
//	GET  /ipc            list channels
//	POST /ipc/{channel}  invoke a channel
//	POST /menu/execute   send executeQueryFromMenu
func (t *Transport) RegisterRoutes(r chi.Router) {
	r.Get("/ipc", t.handleChannels)
	r.Post("/ipc/{channel}", t.handleInvoke)
	if t.menu != nil {
		r.Post("/menu/execute", t.handleMenuExecute)
	}
}

func (t *Transport) handleChannels(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"channels":      t.bridge.Channels(),
		"notifications": []string{ChannelExecuteQueryFromMenu},
	})
}

func (t *Transport) handleInvoke(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")

	var req Request
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		t.respondError(w, channel, core.ErrValidation(core.CodeInvalidArgument, "cannot read request body"))
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			t.respondError(w, channel, core.ErrValidation(core.CodeInvalidArgument, "invalid request body: "+err.Error()))
			return
		}
	}

	result, err := t.bridge.Invoke(r.Context(), channel, req.Args)
	if err != nil {
		t.respondError(w, channel, err)
		return
	}
	respondJSON(w, http.StatusOK, Response{Result: result})
}

func (t *Transport) handleMenuExecute(w http.ResponseWriter, _ *http.Request) {
	t.menu.PublishPriority(events.NewExecuteQueryFromMenuEvent())
	w.WriteHeader(http.StatusAccepted)
}

func (t *Transport) respondError(w http.ResponseWriter, channel string, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		t.logger.Warn("ipc invoke failed", "channel", channel, "status", status, "error", err)
	}
	respondJSON(w, status, ErrorBody{Error: &ErrorResponse{
		Category: core.GetCategory(err),
		Code:     core.CodeOf(err),
		Message:  core.MessageOf(err),
	}})
}

// StatusFor maps an error to an HTTP status by its category.
func StatusFor(err error) int {
	var domErr *core.DomainError
	if !errors.As(err, &domErr) {
		return http.StatusInternalServerError
	}

	switch domErr.Category {
	case core.ErrCatValidation:
		return http.StatusUnprocessableEntity
	case core.ErrCatNotFound:
		return http.StatusNotFound
	case core.ErrCatCanceled, core.ErrCatConflict:
		return http.StatusConflict
	case core.ErrCatBackend:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}
