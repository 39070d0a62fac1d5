package gateway

import (
	"errors"
	"fmt"
)

// ErrUpstreamUnavailable is matched by every error the client returns.
var ErrUpstreamUnavailable = errors.New("upstream gateway unavailable")

// UpstreamError describes a failed gateway call.
// StatusCode is zero when no response was received.
type UpstreamError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("gateway %s: HTTP %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is reports ErrUpstreamUnavailable as a match for any UpstreamError.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstreamUnavailable
}
