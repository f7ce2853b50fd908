// Package domain defines the request/response model and the error taxonomy
// shared by every pipeline stage.
package domain

import (
	"net/http"
	"net/url"

	"github.com/google/uuid"
)

// MetaRetryCount is the attempt-context key holding the number of retries
// already performed for a logical call.
const MetaRetryCount = "retry_count"

// Request is one logical HTTP request before transport-level concerns are
// applied. Meta is the attempt context: it is carried across retries of the
// same logical call and is never shared between logical calls.
type Request struct {
	ID      string
	Method  string
	Path    string
	Query   url.Values
	Headers http.Header
	Body    []byte

	// Meta persists stage state across retries of this logical call.
	Meta map[string]any

	// DisableRetry opts this request out of automatic retry. Useful for
	// non-idempotent writes where a duplicate side effect is worse than a
	// surfaced failure.
	DisableRetry bool
}

// NewRequest creates a request with a fresh ID and an empty attempt context.
func NewRequest(method, path string) *Request {
	return &Request{
		ID:      uuid.New().String(),
		Method:  method,
		Path:    path,
		Query:   url.Values{},
		Headers: http.Header{},
		Meta:    map[string]any{},
	}
}

// Clone returns a copy suitable for resubmission. Headers, query and body are
// deep-copied so a retry cannot observe mutations from the failed attempt,
// while Meta is shared: the clone is the same logical call.
func (r *Request) Clone() *Request {
	c := &Request{
		ID:           r.ID,
		Method:       r.Method,
		Path:         r.Path,
		Body:         append([]byte(nil), r.Body...),
		Meta:         r.Meta,
		DisableRetry: r.DisableRetry,
	}
	if r.Query != nil {
		c.Query = url.Values{}
		for k, vs := range r.Query {
			c.Query[k] = append([]string(nil), vs...)
		}
	}
	if r.Headers != nil {
		c.Headers = r.Headers.Clone()
	}
	return c
}

// RetryCount reports how many retries this logical call has performed.
func (r *Request) RetryCount() int {
	if r.Meta == nil {
		return 0
	}
	n, _ := r.Meta[MetaRetryCount].(int)
	return n
}

// SetRetryCount records the retry counter in the attempt context.
func (r *Request) SetRetryCount(n int) {
	if r.Meta == nil {
		r.Meta = map[string]any{}
	}
	r.Meta[MetaRetryCount] = n
}
