package common

import (
	"context"
	"time"
)

// ContextKey represents a context key type
type ContextKey string

// Context keys
const (
	ContextKeyRequestID  ContextKey = "request_id"
	ContextKeyProjectRef ContextKey = "project_ref"
	ContextKeyBackend    ContextKey = "backend"
	ContextKeyStartTime  ContextKey = "start_time"
)

// WithRequestID adds request ID to context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// GetRequestID extracts request ID from context
func GetRequestID(ctx context.Context) (string, bool) {
	requestID, ok := ctx.Value(ContextKeyRequestID).(string)
	return requestID, ok
}

// WithProjectRef records the project reference being served
func WithProjectRef(ctx context.Context, ref string) context.Context {
	return context.WithValue(ctx, ContextKeyProjectRef, ref)
}

// GetProjectRef extracts the project reference from context
func GetProjectRef(ctx context.Context) (string, bool) {
	ref, ok := ctx.Value(ContextKeyProjectRef).(string)
	return ref, ok
}

// WithBackend records which storage backend served the request
func WithBackend(ctx context.Context, backend string) context.Context {
	return context.WithValue(ctx, ContextKeyBackend, backend)
}

// GetBackend extracts the serving backend name from context
func GetBackend(ctx context.Context) (string, bool) {
	backend, ok := ctx.Value(ContextKeyBackend).(string)
	return backend, ok
}

// WithStartTime adds start time to context
func WithStartTime(ctx context.Context, startTime time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyStartTime, startTime)
}

// GetStartTime extracts start time from context
func GetStartTime(ctx context.Context) (time.Time, bool) {
	startTime, ok := ctx.Value(ContextKeyStartTime).(time.Time)
	return startTime, ok
}

// GetElapsedTime calculates elapsed time from start time in context
func GetElapsedTime(ctx context.Context) time.Duration {
	if startTime, ok := GetStartTime(ctx); ok {
		return time.Since(startTime)
	}
	return 0
}

// ContextMetadata contains all context metadata
type ContextMetadata struct {
	RequestID  string        `json:"request_id,omitempty"`
	ProjectRef string        `json:"project_ref,omitempty"`
	Backend    string        `json:"backend,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
}

// ExtractMetadata extracts all metadata from context
func ExtractMetadata(ctx context.Context) ContextMetadata {
	meta := ContextMetadata{}

	if requestID, ok := GetRequestID(ctx); ok {
		meta.RequestID = requestID
	}
	if ref, ok := GetProjectRef(ctx); ok {
		meta.ProjectRef = ref
	}
	if backend, ok := GetBackend(ctx); ok {
		meta.Backend = backend
	}
	meta.Duration = GetElapsedTime(ctx)

	return meta
}
