// Package transport implements the pipeline's Transport contract over
// net/http. TCP, TLS and connection pooling are delegated to the standard
// library; this package only builds the wire request and folds transport
// errors into failure kinds the pipeline can reason about.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/devwspito/pasos-httpkit/internal/core/domain"
)

// HTTP sends requests to a single base URL.
type HTTP struct {
	baseURL string
	client  *http.Client
}

// New creates an HTTP transport. The timeout bounds each attempt end to end;
// retries get a fresh budget.
func New(baseURL string, timeout time.Duration) *HTTP {
	return &HTTP{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Send performs one attempt. Non-2xx statuses are not errors here: the full
// response is returned and the pipeline decides what it means.
func (t *HTTP) Send(ctx context.Context, req *domain.Request) (*domain.Response, *domain.Failure) {
	u := t.baseURL + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return nil, domain.NewTransportFailure(domain.TransportUnknown,
			fmt.Errorf("build request: %w", err))
	}
	if req.Headers != nil {
		httpReq.Header = req.Headers.Clone()
	}
	if req.ID != "" && httpReq.Header.Get("X-Request-ID") == "" {
		httpReq.Header.Set("X-Request-ID", req.ID)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, failureFromError(fmt.Errorf("send request: %w", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, failureFromError(fmt.Errorf("read response: %w", err))
	}

	return &domain.Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       data,
	}, nil
}

// Close releases idle connections.
func (t *HTTP) Close() error {
	t.client.CloseIdleConnections()
	return nil
}

// failureFromError maps a net/http error chain onto a transport failure kind.
// Order matters: explicit cancellation wins over timeouts, timeouts over
// connection errors.
func failureFromError(err error) *domain.Failure {
	switch {
	case errors.Is(err, context.Canceled):
		return domain.NewTransportFailure(domain.TransportCancelled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return domain.NewTransportFailure(domain.TransportTimeout, err)
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return domain.NewTransportFailure(domain.TransportTimeout, err)
	}

	if isTLSError(err) {
		return domain.NewTransportFailure(domain.TransportTLSError, err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return domain.NewTransportFailure(domain.TransportConnectionError, err)
	}

	return domain.NewTransportFailure(domain.TransportUnknown, err)
}

func isTLSError(err error) bool {
	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) {
		return true
	}
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "tls:") ||
		strings.Contains(msg, "x509:") ||
		strings.Contains(msg, "certificate")
}
