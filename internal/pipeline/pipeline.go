// Package pipeline implements the ordered interceptor chain every data-layer
// request routes through: auth injection, traffic tracing, bounded retry and
// failure classification.
//
// A Client owns a fixed stage list decided at construction. Each logical call
// runs build-phase hooks in registration order, invokes the Transport, then
// runs response- or error-phase hooks. The classification stage is registered
// last, so every call returns either a Response or an *domain.APIError —
// never a raw transport error.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/devwspito/pasos-httpkit/internal/core/domain"
	"github.com/devwspito/pasos-httpkit/internal/infra/metrics"
)

// Transport performs the actual network call for a fully-built request.
// Implementations must honor ctx cancellation and return a transport Failure
// rather than an error so the kind survives into classification.
type Transport interface {
	Send(ctx context.Context, req *domain.Request) (*domain.Response, *domain.Failure)
}

// Stage is a pipeline participant. OnBuild may mutate the outgoing request.
// OnResponse observes successful responses. OnError may pass through
// (nil, nil), resolve with a substitute response (resp, nil) or terminally
// reject (nil, err); the first stage to resolve or reject stops the chain.
type Stage interface {
	OnBuild(ctx context.Context, req *domain.Request) error
	OnResponse(ctx context.Context, req *domain.Request, resp *domain.Response)
	OnError(ctx context.Context, req *domain.Request, f *domain.Failure) (*domain.Response, error)
}

// Resubmitter re-enters the pipeline with a cloned request. The retry stage
// receives the owning Client through Bind at construction.
type Resubmitter interface {
	Execute(ctx context.Context, req *domain.Request) (*domain.Response, error)
}

// AttemptRecord describes one transport invocation for the audit trail.
type AttemptRecord struct {
	RequestID   string
	Attempt     int
	Method      string
	Path        string
	StatusCode  int    // 0 for transport failures
	FailureKind string // empty on success
	Latency     time.Duration
	StartedAt   time.Time
}

// AuditSink persists attempt records. Best effort: sink errors are logged
// and never affect the call outcome.
type AuditSink interface {
	RecordAttempt(ctx context.Context, rec AttemptRecord) error
}

// Client orchestrates the per-request lifecycle. Safe for concurrent use;
// the only state shared across calls is the stage list, which is immutable
// after New.
type Client struct {
	transport Transport
	stages    []Stage
	audit     AuditSink
	logger    *slog.Logger
	clock     func() time.Time
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithStages appends stages in execution order. Order is fixed once built.
func WithStages(stages ...Stage) Option {
	return func(c *Client) {
		c.stages = append(c.stages, stages...)
	}
}

// WithAuditSink enables the per-attempt audit trail.
func WithAuditSink(s AuditSink) Option {
	return func(c *Client) {
		c.audit = s
	}
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithClock overrides the time source, used by tests.
func WithClock(f func() time.Time) Option {
	return func(c *Client) {
		c.clock = f
	}
}

// New builds a Client over the given transport. Stages implementing
// Bind(Resubmitter) are handed the client so they can re-enter it.
func New(t Transport, opts ...Option) *Client {
	c := &Client{
		transport: t,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	for _, s := range c.stages {
		if b, ok := s.(interface{ Bind(Resubmitter) }); ok {
			b.Bind(c)
		}
	}
	return c
}

// Default builds the canonical chain: auth, trace, retry, classification.
func Default(t Transport, tokens TokenSource, policy RetryPolicy, verbose bool, opts ...Option) *Client {
	stages := WithStages(
		NewAuthStage(tokens),
		NewTraceStage(verbose),
		NewRetryStage(policy),
		NewClassifyStage(),
	)
	return New(t, append([]Option{stages}, opts...)...)
}

// Execute runs one attempt of a logical call through the chain. Retries show
// up as nested Execute calls on a cloned request; the attempt context bounds
// the recursion.
func (c *Client) Execute(ctx context.Context, req *domain.Request) (*domain.Response, error) {
	for _, s := range c.stages {
		if err := s.OnBuild(ctx, req); err != nil {
			return nil, &domain.APIError{
				Kind:    domain.KindUnknown,
				Message: "request build failed: " + err.Error(),
				Err:     err,
			}
		}
	}

	start := c.clock()
	metrics.AttemptsTotal.WithLabelValues(req.Method).Inc()

	resp, failure := c.transport.Send(ctx, req)
	latency := c.clock().Sub(start)
	metrics.AttemptLatency.WithLabelValues(req.Method).Observe(latency.Seconds())

	if failure == nil && resp.IsSuccess() {
		for _, s := range c.stages {
			s.OnResponse(ctx, req, resp)
		}
		c.recordAttempt(ctx, req, resp.StatusCode, "", start, latency)
		return resp, nil
	}

	if failure == nil {
		failure = domain.NewResponseFailure(resp)
	}
	metrics.FailuresTotal.WithLabelValues(req.Method, failure.Label()).Inc()
	c.recordAttempt(ctx, req, failure.StatusCode(), failure.Label(), start, latency)

	for _, s := range c.stages {
		sub, err := s.OnError(ctx, req, failure)
		if sub != nil {
			return sub, nil
		}
		if err != nil {
			return nil, err
		}
	}

	// Unreachable with the default chain; guards custom chains built
	// without a classification stage.
	return nil, Classify(failure)
}

func (c *Client) recordAttempt(ctx context.Context, req *domain.Request, status int, failureKind string, start time.Time, latency time.Duration) {
	if c.audit == nil {
		return
	}
	rec := AttemptRecord{
		RequestID:   req.ID,
		Attempt:     req.RetryCount() + 1,
		Method:      req.Method,
		Path:        req.Path,
		StatusCode:  status,
		FailureKind: failureKind,
		Latency:     latency,
		StartedAt:   start,
	}
	if err := c.audit.RecordAttempt(ctx, rec); err != nil {
		c.logger.Warn("audit record failed", "request_id", req.ID, "error", err)
	}
}
