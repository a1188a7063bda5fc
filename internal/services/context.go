package services

import "context"

type contextKey string

const (
	runIDKey        contextKey = "run_id"
	recordIDKey     contextKey = "record_id"
	resourceKindKey contextKey = "resource_kind"
)

// WithRunID annotates context with the build run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the build run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRecordID annotates context with the record being processed.
func WithRecordID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, recordIDKey, id)
}

// RecordIDFromContext returns the record identifier if present.
func RecordIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(recordIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithResourceKind annotates context with the resource kind being fetched.
func WithResourceKind(ctx context.Context, kind string) context.Context {
	if kind == "" {
		return ctx
	}
	return context.WithValue(ctx, resourceKindKey, kind)
}

// ResourceKindFromContext returns the resource kind if present.
func ResourceKindFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(resourceKindKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
