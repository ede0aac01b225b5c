package main

import (
	"context"
	"log/slog"
)

const (
	// LocalStoreChannel is the channel the bridge listens on.
	LocalStoreChannel = "local_store"
	// LocalStorePrefs is the namespace the bridge reads and writes.
	LocalStorePrefs = "local_store_prefs"
)

// PreferenceBridge answers get/set calls against a preference namespace.
type PreferenceBridge struct {
	provider  *PreferencesProvider
	namespace string
	logger    *slog.Logger
}

// NewPreferenceBridge creates a bridge over the LocalStorePrefs namespace.
func NewPreferenceBridge(provider *PreferencesProvider, logger *slog.Logger) *PreferenceBridge {
	return &PreferenceBridge{provider: provider, namespace: LocalStorePrefs, logger: logger}
}

// RegisterPreferenceBridge installs a bridge on the LocalStoreChannel of m.
func RegisterPreferenceBridge(m *Messenger, provider *PreferencesProvider, logger *slog.Logger) *PreferenceBridge {
	b := NewPreferenceBridge(provider, logger)
	m.SetMethodCallHandler(LocalStoreChannel, b)
	return b
}

func argError(msg string) *MethodError {
	return &MethodError{Code: "ARG", Message: msg}
}

// storeError reports a backing store failure. The cause travels in Details.
func (b *PreferenceBridge) storeError(err error) *MethodError {
	return &MethodError{
		Code:    "STORE",
		Message: "preferences unavailable",
		Details: map[string]string{"namespace": b.namespace, "cause": err.Error()},
	}
}

// HandleMethodCall implements MethodHandler.
func (b *PreferenceBridge) HandleMethodCall(ctx context.Context, call MethodCall) (any, error) {
	switch call.Method {
	case "get":
		return b.get(ctx, call)
	case "set":
		return b.set(ctx, call)
	default:
		return nil, ErrNotImplemented
	}
}

func (b *PreferenceBridge) get(ctx context.Context, call MethodCall) (any, error) {
	key, ok := call.StringArgument("key")
	if !ok {
		return nil, argError("key es null")
	}

	// The handle is reacquired on every call; the provider returns the
	// same container for the namespace.
	prefs := b.provider.Preferences(b.namespace)
	value, err := prefs.GetString(ctx, key)
	if err != nil {
		b.logger.Error("preference get failed", "error", err, "key", key)
		return nil, b.storeError(err)
	}

	b.logger.Debug("preference get", "key", key, "found", value != nil)
	if value == nil {
		return nil, nil
	}
	return *value, nil
}

func (b *PreferenceBridge) set(ctx context.Context, call MethodCall) (any, error) {
	key, ok := call.StringArgument("key")
	if !ok {
		return nil, argError("key es null")
	}

	var value *string
	if raw, present := call.Argument("value"); present && raw != nil {
		s, ok := raw.(string)
		if !ok {
			return nil, argError("value no es string")
		}
		value = &s
	}

	prefs := b.provider.Preferences(b.namespace)
	if err := prefs.PutString(ctx, key, value); err != nil {
		b.logger.Error("preference set failed", "error", err, "key", key)
		return nil, b.storeError(err)
	}

	b.logger.Debug("preference set", "key", key, "null", value == nil)
	return nil, nil
}
