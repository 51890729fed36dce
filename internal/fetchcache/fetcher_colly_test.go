package fetchcache

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestCollyFetcherAppliesHeaders(t *testing.T) {
	t.Parallel()

	var gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer server.Close()

	fetcher := NewCollyFetcher(5*time.Second, zap.NewNop())
	headers := http.Header{}
	headers.Set("User-Agent", "agent-a")

	body, err := fetcher.Fetch(context.Background(), server.URL, headers)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(body) != "<html>ok</html>" {
		t.Fatalf("unexpected body %q", body)
	}
	if gotAgent != "agent-a" {
		t.Fatalf("expected User-Agent agent-a, got %q", gotAgent)
	}
}

func TestCollyFetcherReturnsErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	fetcher := NewCollyFetcher(5*time.Second, zap.NewNop())
	if _, err := fetcher.Fetch(context.Background(), server.URL, http.Header{}); err == nil {
		t.Fatal("expected error for 503 response")
	}
}

func TestCollyFetcherReturnsOnCanceledContext(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(4 * time.Second):
		}
		_, _ = w.Write([]byte("late"))
	}))
	defer server.Close()

	fetcher := NewCollyFetcher(3*time.Second, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := fetcher.Fetch(ctx, server.URL, http.Header{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("expected prompt return after cancel, took %v", elapsed)
	}
}
