package n8n

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/neuronai/neuronbot/internal/common"
	"github.com/neuronai/neuronbot/internal/logging"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestClient(attempts int) *Client {
	return NewClient(testLogger(), 2*time.Second, attempts, time.Millisecond)
}

func TestCall_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("want POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("want json content type, got %q", ct)
		}
		w.Write([]byte(`{"question": "Tell me about yourself", "done": false}`))
	}))
	defer srv.Close()

	resp, err := newTestClient(3).Call(context.Background(), srv.URL, Request{Action: "start", UserID: 42})
	if err != nil {
		t.Fatalf("Call error: %v", err)
	}
	if resp.Question != "Tell me about yourself" || resp.Done {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestCall_RetriesOn404ThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"question": "Q1", "done": false}`))
	}))
	defer srv.Close()

	resp, err := newTestClient(5).Call(context.Background(), srv.URL, Request{Action: "start"})
	if err != nil {
		t.Fatalf("Call error: %v", err)
	}
	if resp.Question != "Q1" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("want 3 calls, got %d", got)
	}
}

func TestCall_404Exhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(4).Call(context.Background(), srv.URL, Request{Action: "start"})
	if !errors.Is(err, common.ErrCollaboratorUnready) {
		t.Fatalf("want ErrCollaboratorUnready, got %v", err)
	}
	if got := calls.Load(); got != 4 {
		t.Fatalf("want 4 attempts, got %d", got)
	}
}

func TestCall_ServerErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(5).Call(context.Background(), srv.URL, Request{Action: "answer"})
	if !errors.Is(err, common.ErrCollaborator) {
		t.Fatalf("want ErrCollaborator, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("5xx must not be retried, got %d calls", got)
	}
}

func TestCall_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"question": `))
	}))
	defer srv.Close()

	_, err := newTestClient(2).Call(context.Background(), srv.URL, Request{Action: "answer"})
	if !errors.Is(err, common.ErrCollaborator) {
		t.Fatalf("want ErrCollaborator for malformed body, got %v", err)
	}
}

func TestCall_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse immediately

	_, err := newTestClient(2).Call(context.Background(), srv.URL, Request{Action: "answer"})
	if !errors.Is(err, common.ErrCollaborator) {
		t.Fatalf("want ErrCollaborator, got %v", err)
	}
}
