// Package pipeline resolves the media requested by vocabulary records.
//
// A Driver walks the records with bounded parallelism and hands each one to
// an Orchestrator, which answers cached requests synchronously and fetches
// the rest concurrently behind the shared rate-limit governor. Every request
// yields exactly one ResourceOutcome; failures stay local to the resource
// that produced them.
package pipeline
