package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownBackend is returned for a backend mode other than api, rendered or auto
var ErrUnknownBackend = errors.New("unknown scraper backend")

// ErrNoIntegerInCell marks a matched table cell that holds no digits
var ErrNoIntegerInCell = errors.New("no integer in cell")

// TransportError is a network failure or a non-2xx response
type TransportError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 && e.Err != nil {
		return fmt.Sprintf("%s %s: unexpected status %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Op, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NoDataError means the API answered but no records could be extracted
type NoDataError struct {
	URL      string
	Attempts int
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("api %s returned no records after %d payload(s); payload or endpoint may have changed", e.URL, e.Attempts)
}

// NotFoundError means no row matched the identifier.
// Sample lists identifiers seen instead, when the source can provide them.
type NotFoundError struct {
	Identifier string
	Sample     []string
}

func (e *NotFoundError) Error() string {
	if len(e.Sample) == 0 {
		return fmt.Sprintf("row %q not found", e.Identifier)
	}
	return fmt.Sprintf("row %q not found; sample identifiers: [%s]", e.Identifier, strings.Join(e.Sample, ", "))
}

// ParseError means the matched row's availability is not an integer
type ParseError struct {
	Identifier string
	Raw        string
	Err        error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("non-integer availability for %s: %q", e.Identifier, e.Raw)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// TimeoutError means a page load or element wait ran past its bound
type TimeoutError struct {
	Op      string
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s: %v", e.Op, e.Timeout, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// FallbackUnavailableError means the rendered-page lookup was needed but its
// runtime is not present. APIErr is nil when no API attempt preceded it.
type FallbackUnavailableError struct {
	APIErr error
	Reason error
}

func (e *FallbackUnavailableError) Error() string {
	if e.APIErr == nil {
		return fmt.Sprintf("rendered-page lookup not available: %v", e.Reason)
	}
	return fmt.Sprintf("api lookup failed (%v); rendered-page fallback not available: %v", e.APIErr, e.Reason)
}

func (e *FallbackUnavailableError) Unwrap() []error {
	var errs []error
	if e.APIErr != nil {
		errs = append(errs, e.APIErr)
	}
	if e.Reason != nil {
		errs = append(errs, e.Reason)
	}
	return errs
}

// ErrorClass names the kind of a lookup or notify failure, for logs and
// metric labels
func ErrorClass(err error) string {
	var (
		fallback  *FallbackUnavailableError
		transport *TransportError
		noData    *NoDataError
		notFound  *NotFoundError
		parse     *ParseError
		timeout   *TimeoutError
	)
	switch {
	case err == nil:
		return "none"
	case errors.As(err, &fallback):
		return "fallback_unavailable"
	case errors.As(err, &timeout):
		return "timeout"
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &parse):
		return "parse"
	case errors.As(err, &noData):
		return "no_data"
	case errors.As(err, &transport):
		return "transport"
	case errors.Is(err, ErrUnknownBackend):
		return "config"
	}
	return "other"
}
