package logging

import (
	"context"
	"log/slog"

	"lexideck/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID is the standardized structured logging key for build run identifiers.
	FieldRunID = "run_id"
	// FieldRecordID is the standardized structured logging key for vocabulary record identifiers.
	FieldRecordID = "record_id"
	// FieldResourceKind is the standardized structured logging key for media kinds (word_audio, image, ...).
	FieldResourceKind = "resource_kind"
	// FieldEventType classifies a log line for filtering (e.g. fetch_rate_limited).
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to try next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, RunID(id))
	}
	if id, ok := services.RecordIDFromContext(ctx); ok {
		fields = append(fields, RecordID(id))
	}
	if kind, ok := services.ResourceKindFromContext(ctx); ok {
		fields = append(fields, ResourceKind(kind))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
