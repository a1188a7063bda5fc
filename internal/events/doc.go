// Package events normalizes pipeline progress into sequenced events and
// delivers them to a consumer-supplied sink without blocking the pipeline.
//
// A Reporter stamps each event with a sequence number at emission, so the
// sequence reflects completion order. Delivery happens on a single goroutine;
// sink errors and panics are counted and swallowed.
package events
