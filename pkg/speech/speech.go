// Package speech is a client for the voice agent that provides speech-to-text
// and text-to-speech over HTTP.
package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

// ErrDisabled is returned by every call when the speech service is turned off.
var ErrDisabled = errors.New("speech service not configured")

// package-level logger; can be replaced by callers
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger sets the logger used by pkg/speech. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// Config holds settings for the voice agent client.
type Config struct {
	Enabled bool          `yaml:"enabled" json:"enabled"`
	BaseURL string        `yaml:"base_url" json:"base_url"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// DefaultConfig returns the settings of a voice agent running locally.
func DefaultConfig() Config {
	return Config{
		Enabled: true,
		BaseURL: "http://localhost:5001",
		Timeout: 60 * time.Second,
	}
}

// Client talks to the voice agent.
type Client struct {
	rc  *resty.Client
	cfg Config
}

// NewClient creates a voice agent client. httpClient may be nil.
func NewClient(cfg Config, httpClient *http.Client) (*Client, error) {
	if cfg.Enabled && strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("speech base url is required")
	}

	var rc *resty.Client
	if httpClient != nil {
		rc = resty.NewWithClient(httpClient)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))
	if cfg.Timeout > 0 {
		rc.SetTimeout(cfg.Timeout)
	}

	logger.Info("speech: NewClient created", slog.String("base_url", cfg.BaseURL), slog.Bool("enabled", cfg.Enabled))
	return &Client{rc: rc, cfg: cfg}, nil
}

// Enabled reports whether calls will reach the voice agent.
func (c *Client) Enabled() bool {
	return c != nil && c.cfg.Enabled
}

// Transcribe uploads audio as the multipart field "audio" and returns the
// recognized text.
func (c *Client) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}
	if len(audio) == 0 {
		return "", fmt.Errorf("transcribe: empty audio")
	}
	if filename == "" {
		filename = "recording.webm"
	}

	resp, err := c.rc.R().
		SetContext(ctx).
		SetFileReader("audio", filename, bytes.NewReader(audio)).
		Post("/api/stt/transcribe")
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("transcribe: %s", describeError(resp))
	}

	body := resp.Body()
	text := gjson.GetBytes(body, "transcription")
	if !text.Exists() {
		return "", fmt.Errorf("transcribe: response has no transcription field")
	}
	return strings.TrimSpace(text.String()), nil
}

// Synthesize converts text to speech and returns the WAV bytes.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("synthesize: empty text")
	}

	resp, err := c.rc.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"text": text}).
		Post("/api/tts/synthesize")
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("synthesize: %s", describeError(resp))
	}
	if len(resp.Body()) == 0 {
		return nil, fmt.Errorf("synthesize: empty audio response")
	}
	return resp.Body(), nil
}

// Health calls GET /health and expects {"status":"ok"}.
func (c *Client) Health(ctx context.Context) error {
	if !c.Enabled() {
		return ErrDisabled
	}
	resp, err := c.rc.R().SetContext(ctx).Get("/health")
	if err != nil {
		return fmt.Errorf("speech health: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("speech health: %s", describeError(resp))
	}
	if status := gjson.GetBytes(resp.Body(), "status").String(); status != "ok" {
		return fmt.Errorf("speech health: unexpected status %q", status)
	}
	return nil
}

// Close releases idle connections.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.rc.GetClient().CloseIdleConnections()
}

func describeError(resp *resty.Response) string {
	if msg := gjson.GetBytes(resp.Body(), "error").String(); msg != "" {
		return fmt.Sprintf("status %d: %s", resp.StatusCode(), msg)
	}
	return fmt.Sprintf("status %d", resp.StatusCode())
}
