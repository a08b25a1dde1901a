package providers

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstreamUnavailable means the stats service could not be reached within
	// the retry budget, answered with a server error, or the breaker is open.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrUpstreamDataShape means the service answered but the payload is missing
	// fields the tracker depends on.
	ErrUpstreamDataShape = errors.New("upstream data shape")
)

// UpstreamError carries request context for a failed call. It unwraps to one of
// the sentinels above so callers can use errors.Is.
type UpstreamError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func unavailable(op, url string, status int, cause error) *UpstreamError {
	return &UpstreamError{Op: op, URL: url, StatusCode: status, Err: fmt.Errorf("%w: %w", ErrUpstreamUnavailable, cause)}
}

func dataShape(op, url string, cause error) *UpstreamError {
	return &UpstreamError{Op: op, URL: url, Err: fmt.Errorf("%w: %w", ErrUpstreamDataShape, cause)}
}
