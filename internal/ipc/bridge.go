// Package ipc exposes the backend operations as named channels. A channel
// takes positional JSON arguments and returns one JSON value, the way the
// UI invokes the backend.
package ipc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/beequen/beequen/internal/core"
)

// Handler serves one channel.
type Handler func(ctx context.Context, args Args) (any, error)

// Bridge routes invocations to channel handlers.
type Bridge struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	logger   *slog.Logger
}

// NewBridge creates an empty bridge.
func NewBridge(logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		handlers: make(map[string]Handler),
		logger:   logger,
	}
}

// Handle registers h for channel, replacing any previous handler.
func (b *Bridge) Handle(channel string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[channel] = h
}

// Channels returns the registered channel names, sorted.
func (b *Bridge) Channels() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.handlers))
	for name := range b.handlers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Invoke calls the handler of channel.
func (b *Bridge) Invoke(ctx context.Context, channel string, args Args) (any, error) {
	b.mu.RLock()
	h, ok := b.handlers[channel]
	b.mu.RUnlock()
	if !ok {
		return nil, &core.DomainError{
			Category: core.ErrCatNotFound,
			Code:     core.CodeUnknownChannel,
			Message:  fmt.Sprintf("unknown channel: %s", channel),
		}
	}

	start := time.Now()
	result, err := h(ctx, args)
	if err != nil {
		b.logger.Debug("ipc invoke failed", "channel", channel, "duration", time.Since(start), "error", err)
		return nil, err
	}
	b.logger.Debug("ipc invoke", "channel", channel, "duration", time.Since(start))
	return result, nil
}

// Args are the positional arguments of an invocation.
type Args []json.RawMessage

// NewArgs encodes values as Args.
func NewArgs(values ...any) (Args, error) {
	args := make(Args, len(values))
	for i, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encoding argument %d: %w", i, err)
		}
		args[i] = data
	}
	return args, nil
}

func invalidArgument(i int, format string, a ...any) error {
	return core.ErrValidation(core.CodeInvalidArgument,
		fmt.Sprintf("argument %d: %s", i, fmt.Sprintf(format, a...)))
}

// Has reports whether argument i was given and is not null.
func (a Args) Has(i int) bool {
	return i < len(a) && string(a[i]) != "null"
}

// Decode unmarshals argument i into v. A missing argument is an error.
func (a Args) Decode(i int, v any) error {
	if !a.Has(i) {
		return invalidArgument(i, "missing")
	}
	if err := json.Unmarshal(a[i], v); err != nil {
		return invalidArgument(i, "%v", err)
	}
	return nil
}

// String returns argument i as a non-empty string.
func (a Args) String(i int) (string, error) {
	var s string
	if err := a.Decode(i, &s); err != nil {
		return "", err
	}
	if s == "" {
		return "", invalidArgument(i, "must not be empty")
	}
	return s, nil
}

// OptionalString returns argument i, or "" when it is absent.
func (a Args) OptionalString(i int) (string, error) {
	if !a.Has(i) {
		return "", nil
	}
	var s string
	if err := a.Decode(i, &s); err != nil {
		return "", err
	}
	return s, nil
}

// OptionalInt returns argument i, or def when it is absent.
func (a Args) OptionalInt(i, def int) (int, error) {
	if !a.Has(i) {
		return def, nil
	}
	var n int
	if err := a.Decode(i, &n); err != nil {
		return 0, err
	}
	return n, nil
}
