package speech_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/garnizeh/mockinterview/pkg/speech"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeAgent mimics the voice agent endpoints.
func fakeAgent(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/stt/transcribe", func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("audio")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"No audio file provided"}`))
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		if string(b) == "silence" {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"decoder failed"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"transcription": "  I built a scheduler in Go " + hdr.Filename})
	})
	mux.HandleFunc("/api/tts/synthesize", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Text == "" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"No text provided"}`))
			return
		}
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write([]byte("RIFF" + body.Text))
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok","service":"voice-agent"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, baseURL string) *speech.Client {
	t.Helper()
	c, err := speech.NewClient(speech.Config{Enabled: true, BaseURL: baseURL, Timeout: 2 * time.Second}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestTranscribe(t *testing.T) {
	srv := fakeAgent(t)
	c := newClient(t, srv.URL)

	text, err := c.Transcribe(context.Background(), []byte("webm-bytes"), "answer.webm")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "I built a scheduler in Go answer.webm" {
		t.Fatalf("unexpected transcription %q", text)
	}

	_, err = c.Transcribe(context.Background(), []byte("silence"), "")
	if err == nil || !strings.Contains(err.Error(), "decoder failed") {
		t.Fatalf("expected upstream error message, got %v", err)
	}

	if _, err := c.Transcribe(context.Background(), nil, ""); err == nil {
		t.Fatalf("expected error for empty audio")
	}
}

func TestSynthesize(t *testing.T) {
	srv := fakeAgent(t)
	c := newClient(t, srv.URL)

	wav, err := c.Synthesize(context.Background(), "Hello there")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(wav) != "RIFFHello there" {
		t.Fatalf("unexpected audio %q", wav)
	}

	if _, err := c.Synthesize(context.Background(), "   "); err == nil {
		t.Fatalf("expected error for blank text")
	}
}

func TestHealth(t *testing.T) {
	srv := fakeAgent(t)
	c := newClient(t, srv.URL)
	if err := c.Health(context.Background()); err != nil {
		t.Fatalf("Health: %v", err)
	}

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()
	if err := newClient(t, down.URL).Health(context.Background()); err == nil {
		t.Fatalf("expected health failure")
	}
}

func TestDisabled(t *testing.T) {
	c, err := speech.NewClient(speech.Config{Enabled: false}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer c.Close()

	if c.Enabled() {
		t.Fatalf("expected disabled client")
	}
	if _, err := c.Transcribe(context.Background(), []byte("x"), ""); err != speech.ErrDisabled {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
	if _, err := c.Synthesize(context.Background(), "x"); err != speech.ErrDisabled {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}

	if _, err := speech.NewClient(speech.Config{Enabled: true}, nil); err == nil {
		t.Fatalf("expected error for enabled client without base url")
	}
}
