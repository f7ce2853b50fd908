package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/devwspito/pasos-httpkit/internal/core/domain"
	"github.com/devwspito/pasos-httpkit/internal/infra/metrics"
)

// RetryPolicy bounds automatic retry of transient failures.
//
// The policy does not inspect the HTTP method: POST and PATCH are retried
// exactly like GET, with no idempotency-key mechanism. Callers for whom a
// duplicated write is unacceptable should set Request.DisableRetry.
type RetryPolicy struct {
	MaxAttempts       int
	Delay             time.Duration
	RetryableStatuses map[int]struct{}
}

// DefaultRetryPolicy returns the stock policy: 3 attempts, 1s fixed delay,
// retry on 408/500/502/503/504.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Delay:       time.Second,
		RetryableStatuses: map[int]struct{}{
			408: {}, 500: {}, 502: {}, 503: {}, 504: {},
		},
	}
}

// Retryable reports whether a failure is worth another attempt. Cancellation
// is never retryable.
func (p RetryPolicy) Retryable(f *domain.Failure) bool {
	if f.IsTransport() {
		return f.Kind == domain.TransportTimeout || f.Kind == domain.TransportConnectionError
	}
	_, ok := p.RetryableStatuses[f.StatusCode()]
	return ok
}

// RetryStage resubmits retryable failures to the pipeline with a fixed
// inter-attempt delay. The retry counter lives in the request's attempt
// context so nested resubmissions recognize the same logical call and the
// max-attempts bound terminates.
type RetryStage struct {
	policy RetryPolicy
	exec   Resubmitter
	sleep  func(ctx context.Context, d time.Duration) error
	logger *slog.Logger
}

// NewRetryStage creates a retry stage. Zero-valued policy fields fall back
// to DefaultRetryPolicy.
func NewRetryStage(policy RetryPolicy) *RetryStage {
	def := DefaultRetryPolicy()
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = def.MaxAttempts
	}
	if policy.Delay <= 0 {
		policy.Delay = def.Delay
	}
	if policy.RetryableStatuses == nil {
		policy.RetryableStatuses = def.RetryableStatuses
	}
	return &RetryStage{
		policy: policy,
		sleep:  sleepContext,
		logger: slog.Default(),
	}
}

// Bind hands the stage the client it re-enters on retry. Called by New.
func (s *RetryStage) Bind(r Resubmitter) {
	s.exec = r
}

func (s *RetryStage) OnBuild(context.Context, *domain.Request) error { return nil }

func (s *RetryStage) OnResponse(context.Context, *domain.Request, *domain.Response) {}

func (s *RetryStage) OnError(ctx context.Context, req *domain.Request, f *domain.Failure) (*domain.Response, error) {
	if s.exec == nil || req.DisableRetry || !s.policy.Retryable(f) {
		return nil, nil
	}
	attempts := req.RetryCount() + 1 // transport invocations so far
	if attempts >= s.policy.MaxAttempts {
		s.logger.Warn("retry budget exhausted",
			"path", req.Path,
			"attempts", attempts,
			"failure", f.Label())
		return nil, nil
	}

	if err := s.sleep(ctx, s.policy.Delay); err != nil {
		// Cancelled while waiting: downgrade to a cancelled transport
		// failure so classification reports Cancelled, not the original
		// failure kind.
		*f = *domain.NewTransportFailure(domain.TransportCancelled, err)
		return nil, nil
	}

	retry := req.Clone()
	retry.SetRetryCount(attempts)
	s.logger.Info("retrying request",
		"path", req.Path,
		"attempt", attempts+1,
		"max_attempts", s.policy.MaxAttempts,
		"failure", f.Label())
	metrics.RetriesTotal.WithLabelValues(req.Method).Inc()

	return s.exec.Execute(ctx, retry)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
