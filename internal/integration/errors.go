package integration

import (
	"errors"
	"fmt"
)

// ErrUpstreamUnavailable marks failures of the upstream random-person source.
var ErrUpstreamUnavailable = errors.New("falha ao buscar usuarios no servico externo")

// UpstreamError reports a failed candidate fetch. It maps to HTTP 502 and aborts the run.
type UpstreamError struct {
	// StatusCode is the upstream HTTP status, or 0 for transport and decode failures.
	StatusCode int
	Err        error
}

// NewUpstreamError wraps err with the upstream status code.
func NewUpstreamError(statusCode int, err error) *UpstreamError {
	return &UpstreamError{StatusCode: statusCode, Err: err}
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", ErrUpstreamUnavailable, e.StatusCode, e.Err)
	}

	return fmt.Sprintf("%s: %v", ErrUpstreamUnavailable, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrUpstreamUnavailable) match any UpstreamError.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstreamUnavailable
}
