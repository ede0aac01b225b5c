package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrNotImplemented is returned by a MethodHandler for methods it does not
// recognize. It is reported to the caller as a not-implemented reply, not as
// an error.
var ErrNotImplemented = errors.New("method not implemented")

// MethodCall is a single request received on a channel.
type MethodCall struct {
	Method    string
	Arguments map[string]any
}

// Argument returns the raw argument stored under name.
func (c MethodCall) Argument(name string) (any, bool) {
	if c.Arguments == nil {
		return nil, false
	}
	v, ok := c.Arguments[name]
	return v, ok
}

// StringArgument returns the argument under name as a string. The second
// result is false when the argument is absent, null or not a string.
func (c MethodCall) StringArgument(name string) (string, bool) {
	v, ok := c.Argument(name)
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// MethodError is a structured failure sent back over a channel.
type MethodError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (e *MethodError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MethodHandler answers method calls for one channel.
type MethodHandler interface {
	HandleMethodCall(ctx context.Context, call MethodCall) (any, error)
}

// MethodHandlerFunc adapts a function to MethodHandler.
type MethodHandlerFunc func(ctx context.Context, call MethodCall) (any, error)

func (f MethodHandlerFunc) HandleMethodCall(ctx context.Context, call MethodCall) (any, error) {
	return f(ctx, call)
}

// Reply is the outcome of a dispatched call. Exactly one of Error and
// NotImplemented is set on failure; otherwise Result holds the payload,
// which may be nil.
type Reply struct {
	Result         any
	Error          *MethodError
	NotImplemented bool
}

// Messenger routes method calls to the handler registered for a channel
// name. The host decides when calls arrive and on which goroutine.
type Messenger struct {
	mu       sync.RWMutex
	handlers map[string]MethodHandler
	logger   *slog.Logger
}

// NewMessenger creates an empty Messenger.
func NewMessenger(logger *slog.Logger) *Messenger {
	return &Messenger{handlers: make(map[string]MethodHandler), logger: logger}
}

// SetMethodCallHandler registers h on channel, replacing any previous
// handler. A nil handler unregisters the channel.
func (m *Messenger) SetMethodCallHandler(channel string, h MethodHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h == nil {
		delete(m.handlers, channel)
		return
	}
	m.handlers[channel] = h
}

// Dispatch invokes the handler for channel. The boolean is false when no
// handler is registered.
func (m *Messenger) Dispatch(ctx context.Context, channel string, call MethodCall) (Reply, bool) {
	m.mu.RLock()
	h, ok := m.handlers[channel]
	m.mu.RUnlock()
	if !ok {
		return Reply{}, false
	}

	result, err := h.HandleMethodCall(ctx, call)
	if err == nil {
		return Reply{Result: result}, true
	}

	if errors.Is(err, ErrNotImplemented) {
		return Reply{NotImplemented: true}, true
	}

	var merr *MethodError
	if errors.As(err, &merr) {
		return Reply{Error: merr}, true
	}

	m.logger.Error("method call failed", "error", err, "channel", channel, "method", call.Method)
	return Reply{Error: &MethodError{Code: "ERROR", Message: err.Error()}}, true
}
