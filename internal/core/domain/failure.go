package domain

import "strconv"

// TransportErrorKind identifies a failure that occurred before any HTTP
// response was obtained.
type TransportErrorKind int

const (
	TransportUnknown TransportErrorKind = iota
	TransportTimeout
	TransportConnectionError
	TransportTLSError
	TransportCancelled
)

func (k TransportErrorKind) String() string {
	switch k {
	case TransportTimeout:
		return "timeout"
	case TransportConnectionError:
		return "connection_error"
	case TransportTLSError:
		return "tls_error"
	case TransportCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Failure is an unresolved attempt outcome flowing through the error phase.
// Exactly one of the two shapes holds: a transport failure (Response nil,
// Kind and Err set) or a response failure (Response non-nil, any non-2xx).
type Failure struct {
	Kind     TransportErrorKind
	Err      error
	Response *Response
}

// NewTransportFailure wraps an error raised before a response was obtained.
func NewTransportFailure(kind TransportErrorKind, err error) *Failure {
	return &Failure{Kind: kind, Err: err}
}

// NewResponseFailure wraps a delivered response with error semantics.
func NewResponseFailure(resp *Response) *Failure {
	return &Failure{Response: resp}
}

// IsTransport reports whether no HTTP response was obtained.
func (f *Failure) IsTransport() bool {
	return f.Response == nil
}

// StatusCode returns the response status, or 0 for transport failures.
func (f *Failure) StatusCode() int {
	if f.Response == nil {
		return 0
	}
	return f.Response.StatusCode
}

// Label returns a short identifier used for metrics and audit rows.
func (f *Failure) Label() string {
	if f.IsTransport() {
		return f.Kind.String()
	}
	return "http_" + strconv.Itoa(f.Response.StatusCode)
}
