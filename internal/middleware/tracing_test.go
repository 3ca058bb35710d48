package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTracingMiddlewareSetsRequestID(t *testing.T) {
	var seen string
	handler := TracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/projects", nil))

	header := rec.Header().Get("X-Request-ID")
	if header == "" {
		t.Fatal("expected X-Request-ID header")
	}
	if seen != header {
		t.Errorf("context request id %q does not match header %q", seen, header)
	}
	if rec.Code != http.StatusTeapot {
		t.Errorf("expected status to pass through, got %d", rec.Code)
	}
}

func TestGetRequestIDUnknown(t *testing.T) {
	if got := GetRequestID(context.Background()); got != "unknown" {
		t.Errorf("expected unknown, got %q", got)
	}
}

func TestErrorRecoveryMiddleware(t *testing.T) {
	handler := ErrorRecoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 after panic, got %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	called := false
	handler := CORSMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/projects", nil))

	if called {
		t.Error("preflight should not reach the handler")
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS origin header")
	}
}

func TestWrapperKeepsFirstStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	w := &responseWriterWrapper{ResponseWriter: rec, statusCode: http.StatusOK}
	w.WriteHeader(http.StatusNotFound)
	w.WriteHeader(http.StatusInternalServerError)
	if w.statusCode != http.StatusNotFound {
		t.Errorf("expected first status to stick, got %d", w.statusCode)
	}
}
