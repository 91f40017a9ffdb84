package quotesource

import (
	"errors"
	"fmt"
)

// NotFoundError is returned when the provider has no data for a symbol.
// It is an expected outcome, not a fatal one.
type NotFoundError struct {
	Symbol string
	Reason string
}

func (e *NotFoundError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("no quote data found for %s: %s", e.Symbol, e.Reason)
	}
	return fmt.Sprintf("no quote data found for %s", e.Symbol)
}

// UpstreamError is a transport or parse failure against the data source
type UpstreamError struct {
	Symbol     string
	StatusCode int
	Transient  bool
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("upstream error for %s (status %d): %v", e.Symbol, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("upstream error for %s: %v", e.Symbol, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is, or wraps, a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsUpstream reports whether err is, or wraps, an UpstreamError
func IsUpstream(err error) bool {
	var up *UpstreamError
	return errors.As(err, &up)
}
