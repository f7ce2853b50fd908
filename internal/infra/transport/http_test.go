package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/devwspito/pasos-httpkit/internal/core/domain"
)

func TestSend_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/profile" {
			t.Errorf("expected path /v1/profile, got %s", r.URL.Path)
		}
		if r.URL.Query().Get("fields") != "name" {
			t.Errorf("expected query fields=name, got %s", r.URL.RawQuery)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("expected bearer header, got %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID header")
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"name":"ana"}`))
	}))
	defer server.Close()

	tr := New(server.URL, 5*time.Second)
	defer tr.Close()

	req := domain.NewRequest("GET", "/v1/profile")
	req.Headers.Set("Authorization", "Bearer tok")
	req.Query.Set("fields", "name")

	resp, failure := tr.Send(context.Background(), req)
	if failure != nil {
		t.Fatalf("unexpected failure: %v", failure.Err)
	}
	if resp.StatusCode != 200 || string(resp.Body) != `{"name":"ana"}` {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestSend_ErrorStatusIsNotATransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"Email already registered"}`))
	}))
	defer server.Close()

	tr := New(server.URL, 5*time.Second)
	defer tr.Close()

	resp, failure := tr.Send(context.Background(), domain.NewRequest("POST", "/v1/register"))
	if failure != nil {
		t.Fatalf("4xx must be delivered as a response, got failure: %v", failure.Err)
	}
	if resp.StatusCode != 409 {
		t.Errorf("expected 409, got %d", resp.StatusCode)
	}
	if string(resp.Body) != `{"message":"Email already registered"}` {
		t.Errorf("unexpected body: %s", resp.Body)
	}
}

func TestSend_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	tr := New(url, 2*time.Second)
	defer tr.Close()

	resp, failure := tr.Send(context.Background(), domain.NewRequest("GET", "/v1/feed"))
	if resp != nil || failure == nil {
		t.Fatalf("expected transport failure, got resp=%v", resp)
	}
	if failure.Kind != domain.TransportConnectionError {
		t.Errorf("expected connection_error, got %s", failure.Kind)
	}
}

func TestSend_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	tr := New(server.URL, 50*time.Millisecond)
	defer tr.Close()

	_, failure := tr.Send(context.Background(), domain.NewRequest("GET", "/v1/feed"))
	if failure == nil {
		t.Fatal("expected transport failure")
	}
	if failure.Kind != domain.TransportTimeout {
		t.Errorf("expected timeout, got %s", failure.Kind)
	}
}

func TestSend_Cancelled(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	tr := New(server.URL, 5*time.Second)
	defer tr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, failure := tr.Send(ctx, domain.NewRequest("GET", "/v1/feed"))
	if failure == nil {
		t.Fatal("expected transport failure")
	}
	// Cancellation must never be mistaken for a timeout or network outage.
	if failure.Kind != domain.TransportCancelled {
		t.Errorf("expected cancelled, got %s", failure.Kind)
	}
}

func TestFailureFromError_ContextErrors(t *testing.T) {
	if f := failureFromError(context.Canceled); f.Kind != domain.TransportCancelled {
		t.Errorf("expected cancelled, got %s", f.Kind)
	}
	if f := failureFromError(context.DeadlineExceeded); f.Kind != domain.TransportTimeout {
		t.Errorf("expected timeout, got %s", f.Kind)
	}
}
