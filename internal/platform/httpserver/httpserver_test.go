package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /artifacts", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return Wrap(slog.New(slog.DiscardHandler), "registry", mux)
}

func TestWrapGeneratesRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://registry.test/artifacts", nil)
	rec := httptest.NewRecorder()
	testHandler().ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected a generated X-Request-Id response header")
	}
}

func TestWrapKeepsCallerRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://registry.test/artifacts", nil)
	req.Header.Set("X-Request-Id", "req-artifact-list-7")
	rec := httptest.NewRecorder()
	testHandler().ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-Id"); got != "req-artifact-list-7" {
		t.Fatalf("X-Request-Id = %q, want req-artifact-list-7", got)
	}
}

func TestWrapRecoversHandlerPanic(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /artifacts/{artifact_id}/diff", func(w http.ResponseWriter, r *http.Request) {
		panic("diff blew up")
	})
	h := Wrap(slog.New(slog.DiscardHandler), "registry", mux)

	req := httptest.NewRequest(http.MethodGet, "http://registry.test/artifacts/art-1/diff", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type = %q, want application/json", ct)
	}
}

func TestReadyzWithChecksReportsReady(t *testing.T) {
	handler := ReadyzWithChecks("registry",
		ReadinessCheck{Name: "postgres", Check: func(ctx context.Context) error { return nil }},
		ReadinessCheck{Name: "minio", Check: func(ctx context.Context) error { return nil }},
	)

	req := httptest.NewRequest(http.MethodGet, "http://registry.test/readyz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "\"status\":\"ready\"") {
		t.Fatalf("expected ready status in response: %s", rec.Body.String())
	}
}

func TestReadyzWithChecksReportsFailedDependency(t *testing.T) {
	handler := ReadyzWithChecks("registry",
		ReadinessCheck{Name: "postgres", Check: func(ctx context.Context) error { return nil }},
		ReadinessCheck{Name: "minio", Check: func(ctx context.Context) error {
			return errors.New("bucket registry-exports missing")
		}},
	)

	req := httptest.NewRequest(http.MethodGet, "http://registry.test/readyz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "\"status\":\"not_ready\"") {
		t.Fatalf("expected not_ready status in response: %s", body)
	}
	if !strings.Contains(body, "minio") {
		t.Fatalf("expected the failed check to be named: %s", body)
	}
}
