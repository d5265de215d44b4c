// Package client is a Go client for the interview practice API.
//
// Calls that fail with a connectivity error (HTTP 502, 503 or 504, or a
// transport failure) are retried at most once: the client waits, asks
// GET /health and only repeats the call when the service reports itself up.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/garnizeh/mockinterview/pkg/models"
)

// DefaultRetryWait is the pause before the health probe that precedes a retry.
const DefaultRetryWait = 2 * time.Second

// package-level logger; can be replaced by callers
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger sets the logger used by pkg/client. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// Config holds client settings.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	RetryWait time.Duration
	// Token is sent as a bearer token on operator endpoints.
	Token string
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status   int
	Category string
	Message  string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error %d (%s)", e.Status, e.Category)
	}
	return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Category, e.Message)
}

// Retryable reports whether the error is a connectivity failure.
func (e *APIError) Retryable() bool {
	switch e.Status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == http.StatusNotFound
}

// Client calls the interview practice API.
type Client struct {
	rc    *resty.Client
	wait  time.Duration
	token string
}

// New creates a client. httpClient may be nil.
func New(cfg Config, httpClient *http.Client) (*Client, error) {
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
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

	wait := cfg.RetryWait
	if wait <= 0 {
		wait = DefaultRetryWait
	}
	return &Client{rc: rc, wait: wait, token: cfg.Token}, nil
}

// SetToken replaces the operator bearer token.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Close releases idle connections.
func (c *Client) Close() {
	if c == nil || c.rc == nil {
		return
	}
	c.rc.GetClient().CloseIdleConnections()
}

func apiError(resp *resty.Response) error {
	body := resp.Body()
	e := &APIError{
		Status:   resp.StatusCode(),
		Category: gjson.GetBytes(body, "error").String(),
		Message:  gjson.GetBytes(body, "message").String(),
	}
	if e.Category == "" {
		e.Category = "server"
		if e.Retryable() {
			e.Category = "connectivity"
		}
	}
	if e.Message == "" && !gjson.ValidBytes(body) {
		e.Message = strings.TrimSpace(string(body))
	}
	return e
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Retryable()
	}
	return true
}

// send runs one attempt and turns non-2xx answers into *APIError.
func (c *Client) send(build func() (*resty.Response, error)) (*resty.Response, error) {
	resp, err := build()
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return resp, apiError(resp)
	}
	return resp, nil
}

// call applies the retry policy around build. build must create a fresh
// request each time it is invoked.
func (c *Client) call(ctx context.Context, op string, build func() (*resty.Response, error)) (*resty.Response, error) {
	resp, err := c.send(build)
	if err == nil || !retryable(ctx, err) {
		if err != nil {
			return resp, fmt.Errorf("%s: %w", op, err)
		}
		return resp, nil
	}

	logger.Warn("client: call failed, probing health before retry", slog.String("op", op), slog.Duration("wait", c.wait), slog.Any("err", err))
	t := time.NewTimer(c.wait)
	select {
	case <-ctx.Done():
		t.Stop()
		return resp, fmt.Errorf("%s: %w", op, err)
	case <-t.C:
	}

	if herr := c.Health(ctx); herr != nil {
		logger.Warn("client: service unhealthy, not retrying", slog.String("op", op), slog.Any("err", herr))
		return resp, fmt.Errorf("%s: %w", op, err)
	}

	resp, err = c.send(build)
	if err != nil {
		return resp, fmt.Errorf("%s (retried): %w", op, err)
	}
	return resp, nil
}

// Health returns the service health. A degraded service is still healthy.
func (c *Client) Health(ctx context.Context) error {
	var out models.HealthResponse
	resp, err := c.send(func() (*resty.Response, error) {
		return c.rc.R().SetContext(ctx).SetResult(&out).Get("/health")
	})
	if err != nil {
		return fmt.Errorf("health: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("health: status %d", resp.StatusCode())
	}
	return nil
}

// Signin exchanges operator credentials for a token and keeps it for
// subsequent operator calls.
func (c *Client) Signin(ctx context.Context, username, password string) (string, error) {
	var out models.SigninResponse
	_, err := c.call(ctx, "signin", func() (*resty.Response, error) {
		return c.rc.R().SetContext(ctx).
			SetBody(models.SigninRequest{Username: username, Password: password}).
			SetResult(&out).
			Post("/v1/auth/signin")
	})
	if err != nil {
		return "", err
	}
	c.token = out.Token
	return out.Token, nil
}

func (c *Client) ListRoles(ctx context.Context) ([]models.RoleTemplate, error) {
	var out []models.RoleTemplate
	_, err := c.call(ctx, "list roles", func() (*resty.Response, error) {
		return c.rc.R().SetContext(ctx).SetResult(&out).Get("/v1/roles")
	})
	return out, err
}

// UpsertRole creates or replaces a role template. It needs an operator token.
func (c *Client) UpsertRole(ctx context.Context, role models.RoleTemplate) (*models.RoleTemplate, error) {
	var out models.RoleTemplate
	_, err := c.call(ctx, "upsert role", func() (*resty.Response, error) {
		return c.rc.R().SetContext(ctx).
			SetAuthToken(c.token).
			SetPathParam("id", role.ID).
			SetBody(role).
			SetResult(&out).
			Put("/v1/admin/roles/{id}")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteRole(ctx context.Context, id string) error {
	_, err := c.call(ctx, "delete role", func() (*resty.Response, error) {
		return c.rc.R().SetContext(ctx).
			SetAuthToken(c.token).
			SetPathParam("id", id).
			Delete("/v1/admin/roles/{id}")
	})
	return err
}

// StartSession opens an interview and returns the welcome message.
func (c *Client) StartSession(ctx context.Context, req models.StartSessionRequest) (*models.StartSessionResponse, error) {
	var out models.StartSessionResponse
	_, err := c.call(ctx, "start session", func() (*resty.Response, error) {
		return c.rc.R().SetContext(ctx).SetBody(req).SetResult(&out).Post("/v1/sessions")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetSession(ctx context.Context, id string) (*models.SessionView, error) {
	var out models.SessionView
	_, err := c.call(ctx, "get session", func() (*resty.Response, error) {
		return c.rc.R().SetContext(ctx).SetPathParam("id", id).SetResult(&out).Get("/v1/sessions/{id}")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SendMessage submits a candidate answer and returns the interviewer reply.
func (c *Client) SendMessage(ctx context.Context, id, message string) (*models.MessageResponse, error) {
	var out models.MessageResponse
	_, err := c.call(ctx, "send message", func() (*resty.Response, error) {
		return c.rc.R().SetContext(ctx).
			SetPathParam("id", id).
			SetBody(models.MessageRequest{Message: message}).
			SetResult(&out).
			Post("/v1/sessions/{id}/messages")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SendAudio uploads a recorded answer as the multipart field "audio".
func (c *Client) SendAudio(ctx context.Context, id string, audio []byte, filename string) (*models.AudioResponse, error) {
	var out models.AudioResponse
	_, err := c.call(ctx, "send audio", func() (*resty.Response, error) {
		return c.rc.R().SetContext(ctx).
			SetPathParam("id", id).
			SetFileReader("audio", filename, bytes.NewReader(audio)).
			SetResult(&out).
			Post("/v1/sessions/{id}/audio")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// EndSession closes a session without evaluating it. score may be nil.
func (c *Client) EndSession(ctx context.Context, id string, score *int) (*models.Session, error) {
	var out models.Session
	_, err := c.call(ctx, "end session", func() (*resty.Response, error) {
		return c.rc.R().SetContext(ctx).
			SetPathParam("id", id).
			SetBody(models.EndSessionRequest{Score: score}).
			SetResult(&out).
			Post("/v1/sessions/{id}/end")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Evaluate ends the interview and returns its evaluation. Calling it again
// returns the stored evaluation.
func (c *Client) Evaluate(ctx context.Context, id string) (*models.Evaluation, error) {
	var out models.Evaluation
	_, err := c.call(ctx, "evaluate", func() (*resty.Response, error) {
		return c.rc.R().SetContext(ctx).SetPathParam("id", id).SetResult(&out).Post("/v1/sessions/{id}/evaluation")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetEvaluation returns nil, nil when the session has not been evaluated.
func (c *Client) GetEvaluation(ctx context.Context, id string) (*models.Evaluation, error) {
	var out models.Evaluation
	_, err := c.call(ctx, "get evaluation", func() (*resty.Response, error) {
		return c.rc.R().SetContext(ctx).SetPathParam("id", id).SetResult(&out).Get("/v1/sessions/{id}/evaluation")
	})
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Report fetches the session report as Markdown, or HTML when html is set.
func (c *Client) Report(ctx context.Context, id string, html bool) (string, error) {
	format := "md"
	if html {
		format = "html"
	}
	resp, err := c.call(ctx, "report", func() (*resty.Response, error) {
		return c.rc.R().SetContext(ctx).
			SetPathParam("id", id).
			SetQueryParam("format", format).
			Get("/v1/sessions/{id}/report")
	})
	if err != nil {
		return "", err
	}
	return resp.String(), nil
}

func (c *Client) ListSessions(ctx context.Context, limit, offset int) ([]models.Session, error) {
	var out []models.Session
	_, err := c.call(ctx, "list sessions", func() (*resty.Response, error) {
		return c.rc.R().SetContext(ctx).
			SetQueryParams(map[string]string{"limit": strconv.Itoa(limit), "offset": strconv.Itoa(offset)}).
			SetResult(&out).
			Get("/v1/history/sessions")
	})
	return out, err
}

func (c *Client) SessionDetail(ctx context.Context, id string) (*models.SessionDetail, error) {
	var out models.SessionDetail
	_, err := c.call(ctx, "session detail", func() (*resty.Response, error) {
		return c.rc.R().SetContext(ctx).SetPathParam("id", id).SetResult(&out).Get("/v1/history/sessions/{id}")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
