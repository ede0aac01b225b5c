package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ChannelHandler carries channel calls from HTTP into a Messenger.
type ChannelHandler struct {
	messenger *Messenger
	logger    *slog.Logger
}

// NewChannelHandler creates a new handler dispatching to m.
func NewChannelHandler(m *Messenger, logger *slog.Logger) *ChannelHandler {
	return &ChannelHandler{messenger: m, logger: logger}
}

// Invoke decodes a method call and dispatches it on the named channel.
func (h *ChannelHandler) Invoke(w http.ResponseWriter, r *http.Request) {
	channel := r.PathValue("channel")
	if channel == "" {
		writeError(w, http.StatusBadRequest, "missing channel")
		return
	}

	var req MethodCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Method == "" {
		writeError(w, http.StatusBadRequest, "missing method")
		return
	}

	reply, ok := h.messenger.Dispatch(r.Context(), channel, MethodCall{
		Method:    req.Method,
		Arguments: req.Args,
	})
	if !ok {
		writeError(w, http.StatusNotFound, "channel not found")
		return
	}

	if reply.Error != nil {
		h.logger.Info("method call rejected",
			"channel", channel, "method", req.Method, "code", reply.Error.Code)
	}

	writeReply(w, reply)
}
