package pipeline

import "sort"

// KindSummary counts outcomes of one resource kind.
type KindSummary struct {
	Kind    Kind  `json:"kind"`
	Cached  int   `json:"cached"`
	Fetched int   `json:"fetched"`
	Failed  int   `json:"failed"`
	Bytes   int64 `json:"bytes"`
}

// Total returns the number of outcomes of this kind.
func (k KindSummary) Total() int {
	return k.Cached + k.Fetched + k.Failed
}

// Failure identifies one failed resource.
type Failure struct {
	RecordID  string `json:"record_id"`
	Label     string `json:"label"`
	Kind      Kind   `json:"kind"`
	Slot      int    `json:"slot"`
	Mandatory bool   `json:"mandatory"`
	Reason    string `json:"reason"`
}

// Summary aggregates a run.
type Summary struct {
	Records  int           `json:"records"`
	Usable   int           `json:"usable"`
	Complete int           `json:"complete"`
	Kinds    []KindSummary `json:"kinds"`
	Failures []Failure     `json:"failures,omitempty"`
}

// Failed returns the number of failed resources across kinds.
func (s Summary) Failed() int {
	n := 0
	for _, k := range s.Kinds {
		n += k.Failed
	}
	return n
}

// Summarize aggregates outcomes per kind. Known kinds come first in display
// order, unknown kinds follow alphabetically.
func Summarize(outcomes []RecordOutcome) Summary {
	summary := Summary{Records: len(outcomes)}
	byKind := make(map[Kind]*KindSummary)
	for _, rec := range outcomes {
		if rec.Usable() {
			summary.Usable++
		}
		if rec.Complete() {
			summary.Complete++
		}
		for _, res := range rec.Resources {
			ks := byKind[res.Request.Kind]
			if ks == nil {
				ks = &KindSummary{Kind: res.Request.Kind}
				byKind[res.Request.Kind] = ks
			}
			switch res.State {
			case StateCached:
				ks.Cached++
				ks.Bytes += res.Artifact.Size
			case StateFetched:
				ks.Fetched++
				ks.Bytes += res.Artifact.Size
			default:
				ks.Failed++
				summary.Failures = append(summary.Failures, Failure{
					RecordID:  rec.RecordID,
					Label:     rec.Label,
					Kind:      res.Request.Kind,
					Slot:      res.Request.Slot,
					Mandatory: res.Request.Mandatory,
					Reason:    res.Reason,
				})
			}
		}
	}
	for _, kind := range Kinds {
		if ks, ok := byKind[kind]; ok {
			summary.Kinds = append(summary.Kinds, *ks)
			delete(byKind, kind)
		}
	}
	rest := make([]Kind, 0, len(byKind))
	for kind := range byKind {
		rest = append(rest, kind)
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	for _, kind := range rest {
		summary.Kinds = append(summary.Kinds, *byKind[kind])
	}
	return summary
}
