package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/devwspito/pasos-httpkit/internal/core/domain"
)

func TestRetryPolicy_Retryable(t *testing.T) {
	policy := DefaultRetryPolicy()

	tests := []struct {
		name    string
		failure *domain.Failure
		want    bool
	}{
		{"transport timeout", domain.NewTransportFailure(domain.TransportTimeout, errors.New("timeout")), true},
		{"connection error", domain.NewTransportFailure(domain.TransportConnectionError, errors.New("refused")), true},
		{"tls error", domain.NewTransportFailure(domain.TransportTLSError, errors.New("bad cert")), false},
		{"cancelled", domain.NewTransportFailure(domain.TransportCancelled, context.Canceled), false},
		{"unknown transport", domain.NewTransportFailure(domain.TransportUnknown, errors.New("weird")), false},
		{"status 408", domain.NewResponseFailure(&domain.Response{StatusCode: 408}), true},
		{"status 500", domain.NewResponseFailure(&domain.Response{StatusCode: 500}), true},
		{"status 502", domain.NewResponseFailure(&domain.Response{StatusCode: 502}), true},
		{"status 503", domain.NewResponseFailure(&domain.Response{StatusCode: 503}), true},
		{"status 504", domain.NewResponseFailure(&domain.Response{StatusCode: 504}), true},
		{"status 404", domain.NewResponseFailure(&domain.Response{StatusCode: 404}), false},
		{"status 401", domain.NewResponseFailure(&domain.Response{StatusCode: 401}), false},
		{"status 429", domain.NewResponseFailure(&domain.Response{StatusCode: 429}), false},
	}
	for _, tt := range tests {
		if got := policy.Retryable(tt.failure); got != tt.want {
			t.Errorf("%s: Retryable = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestNewRetryStage_DefaultsZeroPolicy(t *testing.T) {
	stage := NewRetryStage(RetryPolicy{})
	if stage.policy.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", stage.policy.MaxAttempts)
	}
	if stage.policy.Delay != time.Second {
		t.Errorf("Delay = %v, want 1s", stage.policy.Delay)
	}
	if _, ok := stage.policy.RetryableStatuses[503]; !ok {
		t.Error("expected default retryable statuses")
	}
}

func TestRetryStage_PassThroughWhenExhausted(t *testing.T) {
	stage := NewRetryStage(DefaultRetryPolicy())
	stage.logger = quietLogger()
	stage.Bind(resubmitterFunc(func(ctx context.Context, req *domain.Request) (*domain.Response, error) {
		t.Fatal("must not resubmit when budget is exhausted")
		return nil, nil
	}))

	req := domain.NewRequest("GET", "/v1/feed")
	req.SetRetryCount(2) // third attempt already happened

	f := domain.NewTransportFailure(domain.TransportTimeout, errors.New("timeout"))
	resp, err := stage.OnError(context.Background(), req, f)
	if resp != nil || err != nil {
		t.Errorf("expected pass-through, got resp=%v err=%v", resp, err)
	}
}

func TestRetryStage_ResubmitsWithIncrementedCounter(t *testing.T) {
	var resubmitted *domain.Request
	stage := NewRetryStage(DefaultRetryPolicy())
	stage.logger = quietLogger()
	stage.sleep = func(context.Context, time.Duration) error { return nil }
	stage.Bind(resubmitterFunc(func(ctx context.Context, req *domain.Request) (*domain.Response, error) {
		resubmitted = req
		return &domain.Response{StatusCode: 200}, nil
	}))

	req := domain.NewRequest("GET", "/v1/feed")
	f := domain.NewResponseFailure(&domain.Response{StatusCode: 503})
	resp, err := stage.OnError(context.Background(), req, f)
	if err != nil || resp == nil || resp.StatusCode != 200 {
		t.Fatalf("expected resolved response, got resp=%v err=%v", resp, err)
	}
	if resubmitted == nil || resubmitted.RetryCount() != 1 {
		t.Fatalf("expected resubmission with retry count 1, got %+v", resubmitted)
	}
	if resubmitted == req {
		t.Error("retry must resubmit a clone, not the original request")
	}
}

func TestRetryStage_CancelledDuringWait(t *testing.T) {
	stage := NewRetryStage(DefaultRetryPolicy())
	stage.logger = quietLogger()
	stage.Bind(resubmitterFunc(func(ctx context.Context, req *domain.Request) (*domain.Response, error) {
		t.Fatal("must not resubmit after cancellation")
		return nil, nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := domain.NewTransportFailure(domain.TransportTimeout, errors.New("timeout"))
	resp, err := stage.OnError(ctx, domain.NewRequest("GET", "/v1/feed"), f)
	if resp != nil || err != nil {
		t.Fatalf("expected pass-through, got resp=%v err=%v", resp, err)
	}
	if f.Kind != domain.TransportCancelled {
		t.Errorf("expected failure downgraded to cancelled, got %s", f.Kind)
	}
	if Classify(f).Kind != domain.KindCancelled {
		t.Error("cancelled wait must classify as Cancelled, not Timeout")
	}
}

func TestRetryStage_UnboundPassesThrough(t *testing.T) {
	stage := NewRetryStage(DefaultRetryPolicy())
	stage.logger = quietLogger()

	f := domain.NewTransportFailure(domain.TransportTimeout, errors.New("timeout"))
	resp, err := stage.OnError(context.Background(), domain.NewRequest("GET", "/v1/feed"), f)
	if resp != nil || err != nil {
		t.Errorf("expected pass-through for unbound stage, got resp=%v err=%v", resp, err)
	}
}

func TestSleepContext(t *testing.T) {
	if err := sleepContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

type resubmitterFunc func(ctx context.Context, req *domain.Request) (*domain.Response, error)

func (f resubmitterFunc) Execute(ctx context.Context, req *domain.Request) (*domain.Response, error) {
	return f(ctx, req)
}
