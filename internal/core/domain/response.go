package domain

import "net/http"

// Response is a fully-read HTTP response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// IsSuccess reports whether the status code is in [200,300).
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
