// Package logging assembles structured slog loggers and formatting helpers used
// across lexideck.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag log
// lines with run IDs, record IDs, and resource kinds. The package also
// provides a no-op logger for tests, a tee helper for mirroring records into
// additional handlers, and a sampler for progress lines.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits data with the same shape.
package logging
