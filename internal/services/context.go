package services

import "context"

type contextKey string

const (
	threadKey    contextKey = "thread"
	sessionKey   contextKey = "session_id"
	requestIDKey contextKey = "request_id"
)

// WithThread annotates context with the canonical thread reference string.
func WithThread(ctx context.Context, ref string) context.Context {
	if ref == "" {
		return ctx
	}
	return context.WithValue(ctx, threadKey, ref)
}

// ThreadFromContext returns the thread reference if present.
func ThreadFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(threadKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithSessionID annotates context with the process session identifier.
func WithSessionID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionKey, id)
}

// SessionIDFromContext returns the session identifier if present.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(sessionKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
