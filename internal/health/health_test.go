package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

type alwaysReady struct{ err error }

func (a alwaysReady) Ready(ctx context.Context) error { return a.err }

func TestHealthz_AlwaysOK(t *testing.T) {
	s := NewServer(alwaysReady{}, "")
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestReadyz_FailsWhenCheckerErrors(t *testing.T) {
	s := NewServer(alwaysReady{err: context.DeadlineExceeded}, "")
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestReadyz_FailsImmediatelyWhenShuttingDown(t *testing.T) {
	s := NewServer(alwaysReady{}, "")
	s.MarkShuttingDown()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestMetrics_Served(t *testing.T) {
	s := NewServer(alwaysReady{}, "")
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
