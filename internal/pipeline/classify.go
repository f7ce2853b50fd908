package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/devwspito/pasos-httpkit/internal/core/domain"
)

// ClassifyStage maps any unresolved failure to exactly one APIError. It is
// registered last so it always gets the final say: no raw transport error or
// bare status code ever reaches a caller. The mapping is pure — no I/O, no
// side effects — and total over both failure shapes.
type ClassifyStage struct{}

func NewClassifyStage() *ClassifyStage {
	return &ClassifyStage{}
}

func (s *ClassifyStage) OnBuild(context.Context, *domain.Request) error { return nil }

func (s *ClassifyStage) OnResponse(context.Context, *domain.Request, *domain.Response) {}

func (s *ClassifyStage) OnError(ctx context.Context, req *domain.Request, f *domain.Failure) (*domain.Response, error) {
	return nil, Classify(f)
}

// Classify is the deterministic failure-to-error mapping. Given the same
// failure it always yields the same kind.
func Classify(f *domain.Failure) *domain.APIError {
	if f.IsTransport() {
		return classifyTransport(f)
	}
	return classifyResponse(f.Response)
}

func classifyTransport(f *domain.Failure) *domain.APIError {
	e := &domain.APIError{Err: f.Err}
	switch f.Kind {
	case domain.TransportTimeout:
		e.Kind = domain.KindTimeout
		e.Message = "request timed out"
	case domain.TransportConnectionError:
		e.Kind = domain.KindNetworkUnavailable
		e.Message = "network unavailable"
	case domain.TransportTLSError:
		e.Kind = domain.KindNetworkUnavailable
		e.Message = "secure connection failed"
	case domain.TransportCancelled:
		e.Kind = domain.KindCancelled
		e.Message = "request cancelled"
	default:
		msg := "request failed"
		if f.Err != nil {
			msg = f.Err.Error()
		}
		if looksLikeNetworkError(msg) {
			e.Kind = domain.KindNetworkUnavailable
			e.Message = "network unavailable"
		} else {
			e.Kind = domain.KindUnknown
			e.Message = msg
		}
	}
	return e
}

func classifyResponse(resp *domain.Response) *domain.APIError {
	var kind domain.ErrorKind
	var fallback string

	switch resp.StatusCode {
	case 400, 422:
		kind = domain.KindBadRequest
		fallback = "invalid request"
	case 401:
		kind = domain.KindUnauthorized
		fallback = "authentication required"
	case 403:
		kind = domain.KindForbidden
		fallback = "access denied"
	case 404:
		kind = domain.KindNotFound
		fallback = "resource not found"
	case 409:
		kind = domain.KindConflict
		fallback = "conflict"
	case 429:
		kind = domain.KindRateLimited
		fallback = "too many requests"
	case 500, 502, 503, 504:
		kind = domain.KindServerError
		fallback = "server error"
	default:
		kind = domain.KindUnknown
		fallback = fmt.Sprintf("unexpected status %d", resp.StatusCode)
	}

	msg := messageFromBody(resp.Body)
	if msg == "" {
		msg = fallback
	}
	return &domain.APIError{
		Kind:       kind,
		Message:    msg,
		StatusCode: resp.StatusCode,
		Body:       resp.Body,
	}
}

// messageFromBody extracts a human-readable message from a structured error
// body, trying the conventional field names in order.
func messageFromBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	for _, key := range []string{"message", "error", "detail"} {
		if v, ok := payload[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func looksLikeNetworkError(msg string) bool {
	low := strings.ToLower(msg)
	return strings.Contains(low, "socket") ||
		strings.Contains(low, "network") ||
		strings.Contains(low, "connection")
}
