package ollama_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/garnizeh/mockinterview/pkg/ollama"
)

func newClient(t *testing.T, srv *httptest.Server, cfg ollama.Config) *ollama.Client {
	t.Helper()
	cfg.BaseURL = srv.URL
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Second
	}
	client, err := ollama.NewClient(cfg, srv.Client())
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestClient_ListModelsAndHealth_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/api/tags" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"models":[{"name":"mistral:latest","size":42}]}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client := newClient(t, srv, ollama.Config{})
	ctx := context.Background()

	models, err := client.ListModels(ctx)
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
	if len(models) != 1 || models[0].Name != "mistral:latest" || models[0].Size != 42 {
		t.Fatalf("unexpected models: %#v", models)
	}

	if err := client.Health(ctx); err != nil {
		t.Fatalf("Health failed: %v", err)
	}
}

func TestClient_Health_NoModels_Fails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models":[]}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client := newClient(t, srv, ollama.Config{})
	if err := client.Health(context.Background()); err == nil {
		t.Fatalf("expected Health to fail when no models returned")
	}
}

func TestClient_Generate_SendsContextAndReturnsContinuation(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/api/generate" {
			if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"model":"mistral","response":"Tell me about a project.","done":true,"context":[7,8,9]}` + "\n"))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client := newClient(t, srv, ollama.Config{})
	res, err := client.Generate(context.Background(), "mistral", "next question", ollama.GenerateOptions{Context: []int{1, 2}, JSON: true})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if res.Text != "Tell me about a project." {
		t.Fatalf("unexpected text: %q", res.Text)
	}
	if len(res.Context) != 3 || res.Context[2] != 9 {
		t.Fatalf("unexpected continuation context: %v", res.Context)
	}
	if _, ok := res.Meta["latency_ms"]; !ok {
		t.Fatalf("expected latency_ms in meta")
	}

	if got["stream"] != false {
		t.Fatalf("expected non-streaming request, got %v", got["stream"])
	}
	if got["format"] != "json" {
		t.Fatalf("expected json format, got %v", got["format"])
	}
	if ctx, ok := got["context"].([]any); !ok || len(ctx) != 2 {
		t.Fatalf("expected prior context to be sent, got %v", got["context"])
	}
}

func TestClient_Chat_Success(t *testing.T) {
	var got struct {
		Model    string           `json:"model"`
		Messages []ollama.Message `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/api/chat" {
			_ = json.NewDecoder(r.Body).Decode(&got)
			_, _ = w.Write([]byte(`{"model":"mistral","message":{"role":"assistant","content":"Why Go?"},"done":true}` + "\n"))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client := newClient(t, srv, ollama.Config{})
	res, err := client.Chat(context.Background(), "mistral", []ollama.Message{
		{Role: "system", Content: "You are an interviewer."},
		{Role: "user", Content: "I like Go."},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if res.Text != "Why Go?" {
		t.Fatalf("unexpected reply %q", res.Text)
	}
	if got.Model != "mistral" || len(got.Messages) != 2 || got.Messages[1].Role != "user" {
		t.Fatalf("unexpected request: %#v", got)
	}
}

func TestClient_Generate_Non200_Fails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"model crashed"}`))
	}))
	defer srv.Close()

	client := newClient(t, srv, ollama.Config{})
	_, err := client.Generate(context.Background(), "m", "p", ollama.GenerateOptions{})
	if err == nil {
		t.Fatalf("expected Generate to fail on non-200")
	}
	if !strings.Contains(err.Error(), "model crashed") {
		t.Fatalf("expected upstream message in error, got %v", err)
	}
}

func TestClient_Generate_MalformedJSON_Fails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{ this is : not json `))
	}))
	defer srv.Close()

	client := newClient(t, srv, ollama.Config{})
	if _, err := client.Generate(context.Background(), "m", "p", ollama.GenerateOptions{}); err == nil {
		t.Fatalf("expected Generate to fail on malformed JSON")
	}
}

func TestClient_Generate_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := newClient(t, srv, ollama.Config{Timeout: 50 * time.Millisecond})
	_, err := client.Generate(context.Background(), "m", "p", ollama.GenerateOptions{})
	if err == nil || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestClient_CircuitBreaker_Opens(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		http.Error(w, `{"error":"permanent"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newClient(t, srv, ollama.Config{CircuitFailureThreshold: 2, CircuitReset: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := client.Chat(ctx, "m", []ollama.Message{{Role: "user", Content: "hi"}})
		if err == nil || errors.Is(err, ollama.ErrCircuitOpen) {
			t.Fatalf("expected plain error on attempt %d, got %v", i+1, err)
		}
	}

	if _, err := client.Generate(ctx, "m", "p", ollama.GenerateOptions{}); !errors.Is(err, ollama.ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if got := atomic.LoadInt32(&attempts); got != 2 {
		t.Fatalf("expected no request while circuit is open, got %d attempts", got)
	}
}

func TestRenderTemplate(t *testing.T) {
	out, err := ollama.RenderTemplate("Hello {{.Name}}", map[string]any{"Name": "Ada"})
	if err != nil || out != "Hello Ada" {
		t.Fatalf("RenderTemplate = %q, %v", out, err)
	}
	if _, err := ollama.RenderTemplate("{{.Missing}}", map[string]any{}); err == nil {
		t.Fatalf("expected error for missing key")
	}
	if _, err := ollama.RenderTemplate("{{", nil); err == nil {
		t.Fatalf("expected parse error")
	}
	out, err = ollama.RenderTemplate("{{range $i, $v := .}}{{inc $i}}={{lower $v}} {{end}}", []string{"A", "B"})
	if err != nil || out != "1=a 2=b " {
		t.Fatalf("RenderTemplate with helpers = %q, %v", out, err)
	}
}
