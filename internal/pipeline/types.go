package pipeline

import (
	"context"
	"strings"
	"time"

	"lexideck/internal/events"
	"lexideck/internal/mediacache"
)

// Kind names a category of media resource.
type Kind string

const (
	KindWordAudio     Kind = "word_audio"
	KindSentenceAudio Kind = "sentence_audio"
	KindImage         Kind = "image"
)

// Kinds lists every known kind in display order.
var Kinds = []Kind{KindWordAudio, KindSentenceAudio, KindImage}

// DefaultExt returns the artifact extension used when a request does not set
// one.
func (k Kind) DefaultExt() string {
	switch k {
	case KindImage:
		return ".jpg"
	case KindWordAudio, KindSentenceAudio:
		return ".mp3"
	default:
		return ""
	}
}

// Request is one external resource a record needs.
type Request struct {
	Kind      Kind   `json:"kind"`
	Content   string `json:"content"`
	Variant   string `json:"variant,omitempty"`
	Slot      int    `json:"slot"`
	Mandatory bool   `json:"mandatory"`
	Ext       string `json:"ext,omitempty"`
}

// Key returns the cache address of the request.
func (r Request) Key() mediacache.Key {
	ext := r.Ext
	if strings.TrimSpace(ext) == "" {
		ext = r.Kind.DefaultExt()
	}
	return mediacache.Key{
		Kind:    string(r.Kind),
		Content: r.Content,
		Variant: r.Variant,
		Ext:     ext,
	}
}

// Record is one row of the vocabulary table, built once at ingestion.
type Record struct {
	ID       string            `json:"id"`
	Label    string            `json:"label"`
	Requests []Request         `json:"requests"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// State is the terminal state of a resource.
type State int

const (
	StateCached State = iota + 1
	StateFetched
	StateFailed
)

// String returns the event label for the state.
func (s State) String() string {
	switch s {
	case StateCached:
		return events.StateCached
	case StateFetched:
		return events.StateFetched
	case StateFailed:
		return events.StateFailed
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ResourceOutcome is the result of resolving one Request. A successful
// outcome carries an Artifact; a failed one carries Reason and Err.
type ResourceOutcome struct {
	Request  Request             `json:"request"`
	State    State               `json:"state"`
	Artifact mediacache.Artifact `json:"artifact"`
	Reason   string              `json:"reason,omitempty"`
	Err      error               `json:"-"`
	Attempts int                 `json:"attempts"`
}

// OK reports whether the resource resolved to an artifact.
func (o ResourceOutcome) OK() bool {
	return o.State == StateCached || o.State == StateFetched
}

// RecordOutcome aggregates the outcomes of one record. Resources has the
// same length and order as the record's requests.
type RecordOutcome struct {
	RecordID  string            `json:"record_id"`
	Label     string            `json:"label"`
	Resources []ResourceOutcome `json:"resources"`
	Duration  time.Duration     `json:"duration"`
}

// Usable reports whether every mandatory resource succeeded.
func (o RecordOutcome) Usable() bool {
	for _, res := range o.Resources {
		if res.Request.Mandatory && !res.OK() {
			return false
		}
	}
	return true
}

// Complete reports whether every resource succeeded.
func (o RecordOutcome) Complete() bool {
	for _, res := range o.Resources {
		if !res.OK() {
			return false
		}
	}
	return true
}

// Fetcher retrieves the bytes for a request from an external service. Errors
// should carry a marker from internal/services so the pipeline can decide
// whether to retry.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, req Request) ([]byte, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, req Request) ([]byte, error) {
	return f(ctx, req)
}

// Cache is the subset of the media cache the pipeline depends on.
type Cache interface {
	Lookup(ctx context.Context, key mediacache.Key) (mediacache.Artifact, bool)
	Store(ctx context.Context, key mediacache.Key, data []byte) (mediacache.Artifact, error)
	FileName(key mediacache.Key) string
}

// Observer receives per-resource measurements. internal/metrics implements
// it; nil disables observation.
type Observer interface {
	ObserveAttempt(kind, class string, elapsed time.Duration)
	ObserveResource(kind, state string, attempts int)
	ObserveRecord(usable bool)
}
