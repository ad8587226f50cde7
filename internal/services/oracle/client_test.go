package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"claimcheck/internal/services"
)

func replyWith(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()
	payload := map[string]any{"message": map[string]any{"role": "assistant", "content": content}}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func TestClientCompleteSendsWireFormat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if got := r.Header.Get("model"); got != "vision-large" {
			t.Errorf("unexpected model header %q", got)
		}
		if got := r.Header.Get("access-key"); got != "secret" {
			t.Errorf("unexpected access-key header %q", got)
		}
		var body struct {
			Contents struct {
				Role  string `json:"role"`
				Parts []Part `json:"parts"`
			} `json:"contents"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.Contents.Role != "user" || len(body.Contents.Parts) != 2 {
			t.Errorf("unexpected contents %+v", body.Contents)
		}
		image := body.Contents.Parts[0].InlineData
		if image == nil || image.MimeType != "image/jpeg" || image.Data != "AQID" {
			t.Errorf("unexpected inline data %+v", image)
		}
		if body.Contents.Parts[1].Text != "describe" {
			t.Errorf("unexpected text part %+v", body.Contents.Parts[1])
		}
		replyWith(t, w, `{"ok":true}`)
	}))
	defer server.Close()

	client := NewClient(Config{URL: server.URL, Model: "vision-large", AccessKey: "secret"})
	reply, err := client.Complete(context.Background(), ImagePart("", []byte{1, 2, 3}), TextPart("describe"))
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if reply != `{"ok":true}` {
		t.Fatalf("unexpected reply %q", reply)
	}
}

func TestClientHealthCheckCodeFence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		replyWith(t, w, "```json\n{\"ok\":true}\n```")
	}))
	defer server.Close()

	client := NewClient(Config{URL: server.URL, Model: "demo", AccessKey: "key"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHTTPFailureIsOracleCallError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
	}))
	defer server.Close()

	client := NewClient(Config{URL: server.URL, Model: "demo", AccessKey: "bad"})
	_, err := client.Complete(context.Background(), TextPart("hi"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrOracleCall) {
		t.Fatalf("expected ErrOracleCall, got %v", err)
	}
	var statusErr *httpStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected http status error, got %v", err)
	}
}

func TestClientAPIErrorField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{"message": "model overloaded"}})
	}))
	defer server.Close()

	client := NewClient(Config{URL: server.URL, Model: "demo", AccessKey: "key"})
	_, err := client.Complete(context.Background(), TextPart("hi"))
	if !errors.Is(err, services.ErrOracleCall) {
		t.Fatalf("expected ErrOracleCall, got %v", err)
	}
}

func TestClientDoesNotRetryByDefault(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(Config{URL: server.URL, Model: "demo", AccessKey: "key"})
	if _, err := client.Complete(context.Background(), TextPart("hi")); err == nil {
		t.Fatal("expected error")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected exactly one attempt, got %d", got)
	}
}

func TestClientRetriesWhenEnabled(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		replyWith(t, w, `{"ok":true}`)
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(
		Config{URL: server.URL, Model: "demo", AccessKey: "key"},
		WithRetryMaxAttempts(3),
		WithRetryBackoff(time.Second, 4*time.Second),
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
	)
	if _, err := client.Complete(context.Background(), TextPart("hi")); err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
	if len(slept) != 2 || slept[0] != time.Second || slept[1] != 2*time.Second {
		t.Fatalf("unexpected backoff sequence %v", slept)
	}
}

func TestClientEmptyContentIsOracleCallError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		replyWith(t, w, "   ")
	}))
	defer server.Close()

	client := NewClient(Config{URL: server.URL, Model: "demo", AccessKey: "key"})
	_, err := client.Complete(context.Background(), TextPart("hi"))
	var emptyErr *emptyContentError
	if !errors.Is(err, services.ErrOracleCall) || !errors.As(err, &emptyErr) {
		t.Fatalf("expected empty content oracle error, got %v", err)
	}
}

func TestClientRequiresConfiguration(t *testing.T) {
	client := NewClient(Config{URL: "http://127.0.0.1:1"})
	_, err := client.Complete(context.Background(), TextPart("hi"))
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
