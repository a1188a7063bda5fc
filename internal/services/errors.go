package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrTransient     = errors.New("transient failure")
	ErrRateLimited   = errors.New("rate limited")
	ErrFatal         = errors.New("fatal failure")
	ErrCacheWrite    = errors.New("cache write failure")
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// RateLimitError reports an upstream throttling signal. RetryAfter is zero when
// the upstream did not send a hint.
type RateLimitError struct {
	RetryAfter time.Duration
	Err        error
}

// RateLimited constructs a RateLimitError tagged with ErrRateLimited.
func RateLimited(component, operation string, retryAfter time.Duration, err error) error {
	return &RateLimitError{
		RetryAfter: retryAfter,
		Err:        Wrap(ErrRateLimited, component, operation, "upstream throttled request", err),
	}
}

func (e *RateLimitError) Error() string {
	if e == nil || e.Err == nil {
		return ErrRateLimited.Error()
	}
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s (retry after %s)", e.Err.Error(), e.RetryAfter)
	}
	return e.Err.Error()
}

func (e *RateLimitError) Unwrap() error {
	if e == nil || e.Err == nil {
		return ErrRateLimited
	}
	return e.Err
}

// Is lets a bare RateLimitError match ErrRateLimited.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// RetryAfter extracts the upstream retry hint when present.
func RetryAfter(err error) (time.Duration, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter, true
	}
	return 0, false
}

// IsRateLimited reports whether err carries the rate-limit marker.
func IsRateLimited(err error) bool {
	return err != nil && errors.Is(err, ErrRateLimited)
}

// Retryable reports whether a fetch failure may succeed on another attempt.
// Errors without a class marker are treated as transient. Fatal,
// configuration and cache write failures are final, as is caller
// cancellation.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrFatal), errors.Is(err, ErrConfiguration), errors.Is(err, ErrCacheWrite):
		return false
	case errors.Is(err, context.Canceled):
		return false
	default:
		return true
	}
}

// Class returns a short, stable label for the error category, suitable for
// metrics labels and user-facing failure reasons.
func Class(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrFatal):
		return "fatal"
	case errors.Is(err, ErrCacheWrite):
		return "cache_write"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrTransient):
		return "transient"
	default:
		return "unknown"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

const maxReasonLength = 240

// Reason renders err as a single-line, bounded string for resource events and
// summaries.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.Join(strings.Fields(err.Error()), " ")
	if runes := []rune(msg); len(runes) > maxReasonLength {
		msg = string(runes[:maxReasonLength]) + "..."
	}
	return msg
}
