package main

import (
	"encoding/json"
	"net/http"
)

// APIError represents a structured transport-level error response. Errors
// raised by a channel handler travel inside MethodCallResponse instead.
type APIError struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIError{Error: msg, Code: status})
}

// writeReply encodes a dispatched call. Every dispatched call is a 200;
// the outcome is in the body.
func writeReply(w http.ResponseWriter, reply Reply) {
	writeJSON(w, http.StatusOK, MethodCallResponse{
		Result:         reply.Result,
		Error:          reply.Error,
		NotImplemented: reply.NotImplemented,
	})
}
