package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ollama/ollama/api"
)

var ErrCircuitOpen = errors.New("ollama circuit open")

// package-level logger for pkg/ollama; can be replaced by callers
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger sets the logger used by pkg/ollama. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// Client wraps the Ollama API client and adds a per-call timeout and a
// consecutive-failure circuit breaker. It never retries: retry policy belongs
// to the caller.
type Client struct {
	api    *api.Client
	cfg    Config
	client *http.Client

	// simple circuit breaker state
	failures  int32
	openUntil int64 // unix nano
	closed    int32 // atomic flag for Close()
}

// GenerateOptions tunes a single Generate call.
type GenerateOptions struct {
	// Context is the continuation context returned by a previous call.
	Context []int
	// System overrides the model's system prompt.
	System string
	// JSON asks the model to answer with a JSON document.
	JSON bool
}

// GenerateResult is a typed representation of a model completion.
type GenerateResult struct {
	Text    string         `json:"text"`
	Context []int          `json:"context,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResult is the assistant reply to a chat request.
type ChatResult struct {
	Text string         `json:"text"`
	Meta map[string]any `json:"meta,omitempty"`
}

// ModelInfo is a lightweight model descriptor returned by ListModels.
type ModelInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// NewClient creates a new Ollama client wrapper.
func NewClient(cfg Config, httpClient *http.Client) (*Client, error) {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if cfg.CircuitFailureThreshold <= 0 {
		cfg.CircuitFailureThreshold = DefaultConfig().CircuitFailureThreshold
	}

	u, err := url.ParseRequestURI(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	c := &Client{
		api:    api.NewClient(u, httpClient),
		cfg:    cfg,
		client: httpClient,
	}
	logger.Info("ollama: NewClient created", slog.String("base_url", cfg.BaseURL), slog.Duration("timeout", cfg.Timeout))
	return c, nil
}

// NewDefaultClient builds a client with a pooled transport. Generation can
// take minutes on local hardware, so the http.Client itself has no timeout
// and the per-call timeout from cfg applies instead.
func NewDefaultClient(cfg Config) (*Client, error) {
	defaultClient := &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 15 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}

	return NewClient(cfg, defaultClient)
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.failures) < int32(c.cfg.CircuitFailureThreshold) {
		return false
	}

	if time.Now().UnixNano() < atomic.LoadInt64(&c.openUntil) {
		return true
	}

	// attempt half-open: reset failures and allow a request
	atomic.StoreInt32(&c.failures, 0)
	return false
}

func (c *Client) recordFailure() {
	v := atomic.AddInt32(&c.failures, 1)
	if v >= int32(c.cfg.CircuitFailureThreshold) {
		atomic.StoreInt64(&c.openUntil, time.Now().Add(c.cfg.CircuitReset).UnixNano())
	}
}

func (c *Client) recordSuccess() {
	atomic.StoreInt32(&c.failures, 0)
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, c.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

// Close releases any resources held by the client. Currently this will close
// idle connections on the underlying HTTP transport when supported. Close is
// idempotent and safe to call multiple times.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil
	}
	if c.client != nil && c.client.Transport != nil {
		if tr, ok := c.client.Transport.(interface{ CloseIdleConnections() }); ok {
			tr.CloseIdleConnections()
			logger.Info("ollama: client Close() called - CloseIdleConnections invoked")
		}
	}
	return nil
}

// Health checks that the Ollama instance answers and has at least one model.
func (c *Client) Health(ctx context.Context) error {
	models, err := c.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if len(models) == 0 {
		return fmt.Errorf("health check failed: no models returned")
	}
	return nil
}

// ListModels returns the locally available models (GET /api/tags).
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	if c.isCircuitOpen() {
		return nil, ErrCircuitOpen
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.api.List(ctx)
	if err != nil {
		c.recordFailure()
		return nil, fmt.Errorf("list models: %w", err)
	}
	c.recordSuccess()

	out := make([]ModelInfo, 0, len(resp.Models))
	for _, m := range resp.Models {
		out = append(out, ModelInfo{Name: m.Name, Size: m.Size})
	}
	return out, nil
}

// Generate sends a single non-streaming completion request. The returned
// Context can be passed back through GenerateOptions to continue the exchange.
func (c *Client) Generate(ctx context.Context, model, prompt string, opts GenerateOptions) (GenerateResult, error) {
	var empty GenerateResult
	if c.isCircuitOpen() {
		return empty, ErrCircuitOpen
	}

	ctxReq, cancel := c.withTimeout(ctx)
	defer cancel()

	stream := false
	req := &api.GenerateRequest{
		Model:   model,
		Prompt:  prompt,
		System:  opts.System,
		Context: opts.Context,
		Stream:  &stream,
	}
	if opts.JSON {
		req.Format = json.RawMessage(`"json"`)
	}

	var (
		text  strings.Builder
		final []int
		done  bool
	)
	started := time.Now()
	err := c.api.Generate(ctxReq, req, func(r api.GenerateResponse) error {
		text.WriteString(r.Response)
		if r.Done {
			done = true
			final = r.Context
		}
		return nil
	})
	latency := time.Since(started)
	if err != nil {
		c.recordFailure()
		logger.Warn("ollama: generate failed", slog.String("model", model), slog.Any("err", err))
		return empty, fmt.Errorf("generate: %w", err)
	}
	if !done {
		c.recordFailure()
		return empty, fmt.Errorf("generate: response ended before completion")
	}

	c.recordSuccess()
	meta := map[string]any{"model": model, "latency_ms": latency.Milliseconds()}
	return GenerateResult{Text: text.String(), Context: final, Meta: meta}, nil
}

// Chat sends the conversation to the model and returns the assistant reply.
func (c *Client) Chat(ctx context.Context, model string, messages []Message) (ChatResult, error) {
	var empty ChatResult
	if c.isCircuitOpen() {
		return empty, ErrCircuitOpen
	}

	ctxReq, cancel := c.withTimeout(ctx)
	defer cancel()

	msgs := make([]api.Message, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, api.Message{Role: m.Role, Content: m.Content})
	}

	stream := false
	req := &api.ChatRequest{Model: model, Messages: msgs, Stream: &stream}

	var (
		text strings.Builder
		done bool
	)
	started := time.Now()
	err := c.api.Chat(ctxReq, req, func(r api.ChatResponse) error {
		text.WriteString(r.Message.Content)
		if r.Done {
			done = true
		}
		return nil
	})
	latency := time.Since(started)
	if err != nil {
		c.recordFailure()
		logger.Warn("ollama: chat failed", slog.String("model", model), slog.Any("err", err))
		return empty, fmt.Errorf("chat: %w", err)
	}
	if !done {
		c.recordFailure()
		return empty, fmt.Errorf("chat: response ended before completion")
	}

	c.recordSuccess()
	return ChatResult{Text: text.String(), Meta: map[string]any{"model": model, "latency_ms": latency.Milliseconds()}}, nil
}
