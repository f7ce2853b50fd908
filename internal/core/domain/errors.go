package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is a stable, machine-readable identifier for a terminal failure.
// The set is closed: every failure leaving the pipeline carries exactly one.
type ErrorKind string

const (
	KindUnauthorized       ErrorKind = "unauthorized"
	KindForbidden          ErrorKind = "forbidden"
	KindNotFound           ErrorKind = "not_found"
	KindConflict           ErrorKind = "conflict"
	KindBadRequest         ErrorKind = "bad_request"
	KindRateLimited        ErrorKind = "rate_limited"
	KindServerError        ErrorKind = "server_error"
	KindTimeout            ErrorKind = "timeout"
	KindNetworkUnavailable ErrorKind = "network_unavailable"
	KindCancelled          ErrorKind = "cancelled"
	KindUnknown            ErrorKind = "unknown"
)

// APIError is the terminal error type callers receive. Transport errors and
// raw status codes never escape the pipeline; they are folded into one of
// these.
type APIError struct {
	Kind       ErrorKind
	Message    string
	StatusCode int    // 0 when no HTTP response was obtained
	Body       []byte // raw response body, if any
	Err        error  // underlying transport error, if any
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// KindOf extracts the error kind from any error returned by the pipeline.
// Errors that are not APIErrors report KindUnknown.
func KindOf(err error) ErrorKind {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}
