package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics("ragchat")

	m.ObserveTurn(false)
	m.ObserveTurn(true)
	m.ObserveTurn(true)
	m.ObserveGenerationAttempt("retryable")
	m.ObserveRetrievalFailure()
	m.ObserveStoreOp("memory", "append", nil)
	m.ObserveStoreOp("memory", "append", errors.New("x"))

	if got := testutil.ToFloat64(m.Turns.WithLabelValues("degraded")); got != 2 {
		t.Fatalf("expected 2 degraded turns, got %v", got)
	}
	if got := testutil.ToFloat64(m.Turns.WithLabelValues("answered")); got != 1 {
		t.Fatalf("expected 1 answered turn, got %v", got)
	}
	if got := testutil.ToFloat64(m.GenerationAttempts.WithLabelValues("retryable")); got != 1 {
		t.Fatalf("expected 1 retryable attempt, got %v", got)
	}
	if got := testutil.ToFloat64(m.RetrievalFailures); got != 1 {
		t.Fatalf("expected 1 retrieval failure, got %v", got)
	}
	if got := testutil.ToFloat64(m.StoreOps.WithLabelValues("memory", "append", "error")); got != 1 {
		t.Fatalf("expected 1 store error, got %v", got)
	}
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics("ragchat")
	m.ObserveTurn(false)
	// second instance must not collide on registration
	_ = NewMetrics("ragchat")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ragchat_turns_total") {
		t.Fatalf("expected turns metric in exposition")
	}
}
