package audio_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/garnizeh/mockinterview/internal/audio"
)

func TestSaveAndServe(t *testing.T) {
	s, err := audio.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	url, err := s.Save("abc", []byte("RIFFdata"), "answer.webm")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasPrefix(url, "/audio/abc/") || !strings.HasSuffix(url, ".webm") {
		t.Fatalf("unexpected url %q", url)
	}

	mux := http.NewServeMux()
	mux.Handle(audio.URLPrefix, s.Handler())
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, url, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Body.String() != "RIFFdata" {
		t.Fatalf("unexpected body %q", rr.Body.String())
	}
}

func TestSave_Rejects(t *testing.T) {
	s, err := audio.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if _, err := s.Save("abc", nil, "a.wav"); err != audio.ErrEmpty {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
	if _, err := s.Save("../x", []byte("a"), "a.wav"); err == nil {
		t.Fatalf("expected error for path-like session id")
	}
	url, err := s.Save("abc", []byte("a"), "clip.exe")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasSuffix(url, ".wav") {
		t.Fatalf("expected default .wav extension, got %q", url)
	}
}

func TestNewStore_RequiresDir(t *testing.T) {
	if _, err := audio.NewStore(""); err == nil {
		t.Fatalf("expected error for empty dir")
	}
}
