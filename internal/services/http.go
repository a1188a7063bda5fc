package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const maxBodySnippet = 200

// StatusError classifies a non-success HTTP response from an upstream
// service: 429 is rate limited, 408 and 5xx are transient, 401 and 403 are
// configuration problems, and any other status is fatal.
func StatusError(component, operation string, resp *http.Response, body []byte) error {
	if resp == nil {
		return Wrap(ErrTransient, component, operation, "missing response", nil)
	}
	detail := fmt.Sprintf("http %d: %s", resp.StatusCode, snippet(body))
	switch code := resp.StatusCode; {
	case code == http.StatusTooManyRequests:
		retryAfter, _ := ParseRetryAfter(resp.Header.Get("Retry-After"))
		return RateLimited(component, operation, retryAfter, errors.New(detail))
	case code == http.StatusRequestTimeout, code >= http.StatusInternalServerError:
		return Wrap(ErrTransient, component, operation, detail, nil)
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return Wrap(ErrConfiguration, component, operation, detail+" (check api key)", nil)
	default:
		return Wrap(ErrFatal, component, operation, detail, nil)
	}
}

// TransportError classifies a failed HTTP round trip. Caller cancellation is
// returned unchanged; everything else is transient.
func TransportError(ctx context.Context, component, operation string, err error) error {
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return ctx.Err()
	}
	return Wrap(ErrTransient, component, operation, "http request failed", err)
}

func snippet(body []byte) string {
	text := strings.Join(strings.Fields(string(body)), " ")
	if len(text) > maxBodySnippet {
		text = text[:maxBodySnippet] + "..."
	}
	if text == "" {
		return "<empty body>"
	}
	return text
}
