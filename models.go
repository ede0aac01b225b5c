package main

// MethodCallRequest is the body of a channel call.
type MethodCallRequest struct {
	Method string         `json:"method"`
	Args   map[string]any `json:"args"`
}

// MethodCallResponse is the reply to a dispatched channel call. Result is
// always present and may be null.
type MethodCallResponse struct {
	Result         any          `json:"result"`
	Error          *MethodError `json:"error,omitempty"`
	NotImplemented bool         `json:"notImplemented,omitempty"`
}
