// Package services defines shared utilities consumed by the media pipeline and
// its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, record IDs, and resource kinds for
//     logging.
//   - Structured error markers plus the Wrap helper so every failure can be
//     classified as transient, rate limited, fatal, cache-write, or
//     configuration.
//   - Retry primitives (context-aware sleep, capped exponential backoff,
//     Retry-After parsing) shared by the HTTP clients and the orchestrator.
//
// Use these helpers when wiring a new fetcher so retry and reporting behaviour
// stays uniform across resource kinds.
package services
