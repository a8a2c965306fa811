package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestHTTPClientGenerate(t *testing.T) {
	t.Run("respuesta ok", func(t *testing.T) {
		var gotAuth, gotPath string
		var gotReq chatRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gotPath = r.URL.Path
			_ = json.NewDecoder(r.Body).Decode(&gotReq)
			_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"X happened."}}]}`))
		}))
		defer srv.Close()

		c := NewHTTPClient(srv.URL+"/", "key", "gemini-1.5-flash", zap.NewNop())
		out, err := c.Generate(context.Background(), "prompt")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out != "X happened." {
			t.Fatalf("unexpected output %q", out)
		}
		if gotAuth != "Bearer key" || gotPath != "/chat/completions" {
			t.Fatalf("unexpected request auth=%q path=%q", gotAuth, gotPath)
		}
		if gotReq.Model != "gemini-1.5-flash" || len(gotReq.Messages) != 1 || gotReq.Messages[0].Content != "prompt" {
			t.Fatalf("unexpected request body %+v", gotReq)
		}
	})

	t.Run("503 devuelve StatusError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`[{"error":{"code":503,"message":"The model is overloaded. Please try again later."}}]`))
		}))
		defer srv.Close()

		c := NewHTTPClient(srv.URL, "key", "m", nil)
		_, err := c.Generate(context.Background(), "p")
		var se *StatusError
		if !errors.As(err, &se) {
			t.Fatalf("expected StatusError, got %T %v", err, err)
		}
		if se.StatusCode != 503 || se.Message != "The model is overloaded. Please try again later." {
			t.Fatalf("unexpected status error %+v", se)
		}
	})

	t.Run("error en cuerpo 200", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota"}}`))
		}))
		defer srv.Close()

		_, err := NewHTTPClient(srv.URL, "key", "m", nil).Generate(context.Background(), "p")
		var se *StatusError
		if !errors.As(err, &se) || se.StatusCode != 429 {
			t.Fatalf("expected 429 StatusError, got %v", err)
		}
	})

	t.Run("code como string en cuerpo 200", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"error":{"code":"rate_limit_exceeded","message":"Rate limit reached"}}`))
		}))
		defer srv.Close()

		_, err := NewHTTPClient(srv.URL, "key", "m", nil).Generate(context.Background(), "p")
		var se *StatusError
		if !errors.As(err, &se) || se.StatusCode != http.StatusTooManyRequests || se.Message != "Rate limit reached" {
			t.Fatalf("expected 429 StatusError, got %v", err)
		}
	})

	t.Run("code string desconocido en cuerpo 200", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"error":{"code":"invalid_api_key","message":"bad key"}}`))
		}))
		defer srv.Close()

		_, err := NewHTTPClient(srv.URL, "key", "m", nil).Generate(context.Background(), "p")
		var se *StatusError
		if !errors.As(err, &se) || se.StatusCode != http.StatusBadGateway || se.Message != "bad key" {
			t.Fatalf("expected 502 StatusError, got %v", err)
		}
	})

	t.Run("429 con code string extrae el mensaje", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"code":"rate_limit_exceeded","type":"requests","message":"Rate limit reached"}}`))
		}))
		defer srv.Close()

		_, err := NewHTTPClient(srv.URL, "key", "m", nil).Generate(context.Background(), "p")
		var se *StatusError
		if !errors.As(err, &se) || se.StatusCode != 429 || se.Message != "Rate limit reached" {
			t.Fatalf("expected parsed message, got %v", err)
		}
	})

	t.Run("sin choices", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[]}`))
		}))
		defer srv.Close()

		_, err := NewHTTPClient(srv.URL, "key", "m", nil).Generate(context.Background(), "p")
		if err == nil {
			t.Fatalf("expected error on empty choices")
		}
		var se *StatusError
		if errors.As(err, &se) {
			t.Fatalf("empty response should not be a status error")
		}
	})
}

func TestHTTPClientCreateEmbedding(t *testing.T) {
	var gotReq embeddingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.1,0.2,0.3]}]}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "key", "m", nil).WithEmbeddingModel("text-embedding-004")
	vec, err := c.CreateEmbedding(context.Background(), "hola")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 3 || vec[2] != 0.3 {
		t.Fatalf("unexpected embedding %+v", vec)
	}
	if gotReq.Model != "text-embedding-004" || gotReq.Input != "hola" {
		t.Fatalf("unexpected request %+v", gotReq)
	}
}

func TestStatusErrorMessage(t *testing.T) {
	if got := (&StatusError{StatusCode: 500}).Error(); got != "llm http error: status=500" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestMockClientSequence(t *testing.T) {
	boom := errors.New("boom")
	m := &MockClient{Response: "ok", Errs: []error{boom, nil}}

	if _, err := m.Generate(context.Background(), "a"); !errors.Is(err, boom) {
		t.Fatalf("expected scripted error, got %v", err)
	}
	if out, err := m.Generate(context.Background(), "b"); err != nil || out != "ok" {
		t.Fatalf("expected ok, got %q %v", out, err)
	}
	if out, _ := m.Generate(context.Background(), "c"); out != "ok" {
		t.Fatalf("expected fallback response, got %q", out)
	}
	if m.Calls() != 3 || m.LastPrompt() != "c" {
		t.Fatalf("unexpected bookkeeping calls=%d last=%q", m.Calls(), m.LastPrompt())
	}
}
