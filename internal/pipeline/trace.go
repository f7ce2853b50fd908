package pipeline

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/devwspito/pasos-httpkit/internal/core/domain"
)

const (
	redactedMarker = "[REDACTED]"
	maxTracedBody  = 500
)

var sensitiveHeaders = []string{"Authorization", "Cookie"}

// TraceStage logs request/response metadata. It is a pure observer: it never
// mutates the request, never alters control flow and never returns an error.
type TraceStage struct {
	logger  *slog.Logger
	verbose bool
}

// NewTraceStage creates a trace stage. Verbose mode adds truncated response
// bodies to error records.
func NewTraceStage(verbose bool) *TraceStage {
	return &TraceStage{logger: slog.Default(), verbose: verbose}
}

// NewTraceStageWithLogger creates a trace stage writing to a specific logger.
func NewTraceStageWithLogger(logger *slog.Logger, verbose bool) *TraceStage {
	return &TraceStage{logger: logger, verbose: verbose}
}

func (s *TraceStage) OnBuild(ctx context.Context, req *domain.Request) error {
	s.logger.Debug("request",
		"method", req.Method,
		"path", req.Path,
		"request_id", req.ID,
		"headers", redactHeaders(req.Headers))
	return nil
}

func (s *TraceStage) OnResponse(ctx context.Context, req *domain.Request, resp *domain.Response) {
	s.logger.Debug("response",
		"status", resp.StatusCode,
		"path", req.Path,
		"request_id", req.ID)
}

func (s *TraceStage) OnError(ctx context.Context, req *domain.Request, f *domain.Failure) (*domain.Response, error) {
	status := "N/A"
	if !f.IsTransport() {
		status = strconv.Itoa(f.StatusCode())
	}
	attrs := []any{
		"status", status,
		"path", req.Path,
		"request_id", req.ID,
	}
	if f.Err != nil {
		attrs = append(attrs, "error", f.Err.Error())
	}
	if s.verbose && f.Response != nil && len(f.Response.Body) > 0 {
		attrs = append(attrs, "body", truncate(string(f.Response.Body), maxTracedBody))
	}
	s.logger.Warn("request failed", attrs...)
	return nil, nil
}

func redactHeaders(headers map[string][]string) map[string]string {
	out := make(map[string]string, len(headers))
	for key, values := range headers {
		if isSensitiveHeader(key) {
			out[key] = redactedMarker
			continue
		}
		out[key] = strings.Join(values, ", ")
	}
	return out
}

func isSensitiveHeader(key string) bool {
	for _, h := range sensitiveHeaders {
		if strings.EqualFold(key, h) {
			return true
		}
	}
	return false
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
