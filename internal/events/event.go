package events

import (
	"log/slog"
	"time"
)

// Kind discriminates event payloads.
type Kind string

const (
	KindLog      Kind = "log"
	KindProgress Kind = "progress"
	KindResource Kind = "resource"
)

// Resource states as reported to consumers.
const (
	StateCached  = "cached"
	StateFetched = "fetched"
	StateFailed  = "failed"
)

// Payload is implemented by Log, Progress and Resource.
type Payload interface {
	Kind() Kind
}

// Event is one sequenced notification.
type Event struct {
	Seq     uint64    `json:"seq"`
	Time    time.Time `json:"time"`
	Payload Payload   `json:"payload"`
}

// Kind returns the payload kind, or "" for an empty event.
func (e Event) Kind() Kind {
	if e.Payload == nil {
		return ""
	}
	return e.Payload.Kind()
}

// Log is a human-readable message for the consumer.
type Log struct {
	Level    slog.Level `json:"level"`
	Message  string     `json:"message"`
	RecordID string     `json:"record_id,omitempty"`
}

// Kind implements Payload.
func (Log) Kind() Kind { return KindLog }

// Progress reports how many records have completed.
type Progress struct {
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Label     string `json:"label,omitempty"`
}

// Kind implements Payload.
func (Progress) Kind() Kind { return KindProgress }

// Fraction returns completion in [0, 1]. An empty run counts as complete.
func (p Progress) Fraction() float64 {
	if p.Total <= 0 {
		return 1
	}
	return float64(p.Completed) / float64(p.Total)
}

// Resource reports the terminal state of one requested resource.
type Resource struct {
	RecordID     string `json:"record_id"`
	ResourceKind string `json:"kind"`
	Slot         int    `json:"slot"`
	State        string `json:"state"`
	Reason       string `json:"reason,omitempty"`
	FileName     string `json:"file_name,omitempty"`
	Attempts     int    `json:"attempts"`
}

// Kind implements Payload.
func (Resource) Kind() Kind { return KindResource }
