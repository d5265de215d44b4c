// Package audio stores uploaded and synthesized audio clips on disk and
// serves them back under a URL prefix.
package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// package-level logger; can be replaced by callers
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger sets the logger used by internal/audio. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// URLPrefix is the path under which stored clips are served.
const URLPrefix = "/audio/"

var ErrEmpty = errors.New("audio payload is empty")

// Store writes clips below dir, grouped by session.
type Store struct {
	dir string
}

// NewStore creates dir when missing.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("audio dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audio dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string { return s.dir }

// Save writes data to a new file for the session and returns its URL. The
// extension of filename is kept when it looks like an audio extension.
func (s *Store) Save(sessionID string, data []byte, filename string) (string, error) {
	if len(data) == 0 {
		return "", ErrEmpty
	}
	if sessionID == "" || strings.ContainsAny(sessionID, `/\.`) {
		return "", fmt.Errorf("invalid session id %q", sessionID)
	}

	sub := filepath.Join(s.dir, sessionID)
	if err := os.MkdirAll(sub, 0o755); err != nil {
		return "", fmt.Errorf("create session audio dir: %w", err)
	}

	name := uuid.NewString() + extension(filename)
	if err := os.WriteFile(filepath.Join(sub, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write audio file: %w", err)
	}
	logger.Debug("audio: clip stored", slog.String("session_id", sessionID), slog.String("file", name), slog.Int("bytes", len(data)))
	return path.Join(URLPrefix, sessionID, name), nil
}

// Handler serves stored clips. Mount it at URLPrefix.
func (s *Store) Handler() http.Handler {
	return http.StripPrefix(URLPrefix, http.FileServer(http.Dir(s.dir)))
}

func extension(filename string) string {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".wav", ".webm", ".ogg", ".mp3", ".m4a":
		return ext
	default:
		return ".wav"
	}
}
