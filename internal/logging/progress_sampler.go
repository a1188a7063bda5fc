package logging

import "sync"

// ProgressSampler thins "N of M done" log lines to one per percentage bucket
// while always letting the first and final updates through. Safe for
// concurrent use.
type ProgressSampler struct {
	mu         sync.Mutex
	bucketSize float64
	lastBucket int
}

// NewProgressSampler constructs a sampler that emits when progress crosses a
// bucket boundary (default 10%).
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 10
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether the completed/total update deserves a log line.
func (s *ProgressSampler) ShouldLog(completed, total int) bool {
	if s == nil || total <= 0 {
		return true
	}
	if completed >= total {
		return true
	}
	percent := float64(completed) * 100 / float64(total)
	bucket := int(percent / s.bucketSize)
	s.mu.Lock()
	defer s.mu.Unlock()
	if bucket > s.lastBucket {
		s.lastBucket = bucket
		return true
	}
	return false
}

// Reset clears the sampler state before a new run.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.lastBucket = -1
	s.mu.Unlock()
}
