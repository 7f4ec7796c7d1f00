package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/recordshop/storefront/pkg/config"
	pkgerrors "github.com/recordshop/storefront/pkg/errors"
	"github.com/recordshop/storefront/pkg/logger"
)

const (
	requestIDHeader              = "X-Request-Id"
	errorBodyReadLimit     int64 = 4096
	defaultRequestTimeout        = 10 * time.Second
)

var errLoggerRequired = errors.New("api logger is required")

// TokenSource supplies the bearer token attached to protected calls. An
// empty token means the call goes out unauthenticated.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a plain function to a TokenSource.
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

// Client is the shared authenticated HTTP transport for every storefront
// API client. It owns bearer-header injection, request-id propagation,
// phase logging, and the HTTP-status to taxonomy-code mapping.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenSource
	logger     *logger.Logger
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = strings.TrimRight(trimmed, "/")
		}
	}
}

// NewClient builds the base transport from the API configuration.
func NewClient(cfg config.APIConfig, tokens TokenSource, logg *logger.Logger, opts ...Option) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("api base URL is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		tokens:     tokens,
		logger:     logg,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// BaseURL reports the normalized API root.
func (c *Client) BaseURL() string {
	if c == nil {
		return ""
	}
	return c.baseURL
}

// Get issues a GET and returns the raw response body.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, nil, "")
}

// GetJSON issues a GET and decodes the response body into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	raw, err := c.Get(ctx, path)
	if err != nil {
		return err
	}
	return c.decode(raw, out, path)
}

// PostJSON issues a POST with a JSON body; when out is non-nil the response
// body is decoded into it.
func (c *Client) PostJSON(ctx context.Context, path string, body, out any) error {
	return c.sendJSON(ctx, http.MethodPost, path, body, out)
}

// PutJSON issues a PUT with a JSON body; when out is non-nil the response
// body is decoded into it.
func (c *Client) PutJSON(ctx context.Context, path string, body, out any) error {
	return c.sendJSON(ctx, http.MethodPut, path, body, out)
}

// Delete issues a DELETE and returns the raw response body, which servers
// may leave empty.
func (c *Client) Delete(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodDelete, path, nil, "application/json")
}

func (c *Client) sendJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("marshal %s body", path))
		}
		reader = bytes.NewReader(payload)
	}
	raw, err := c.do(ctx, method, path, reader, "application/json")
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return c.decode(raw, out, path)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "api client not configured")
	}

	url := c.buildURL(path)
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("build %s request", path))
	}
	c.setCommonHeaders(req, contentType)

	ctx = c.logger.WithFields(ctx, map[string]any{
		"method": method,
		"path":   path,
	})
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error(ctx, "api request failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeNetwork, err, fmt.Sprintf("%s %s", method, path))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.errorFromResponse(ctx, resp, method, path)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNetwork, err, fmt.Sprintf("read %s response", path))
	}
	return raw, nil
}

func (c *Client) setCommonHeaders(req *http.Request, contentType string) {
	req.Header.Set(requestIDHeader, uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.tokens != nil {
		if token := strings.TrimSpace(c.tokens.Token()); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
}

// errorFromResponse converts an error-status response into a typed error,
// carrying the server message verbatim when one is present.
func (c *Client) errorFromResponse(ctx context.Context, resp *http.Response, method, path string) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
	code := pkgerrors.FromStatus(resp.StatusCode)

	message := serverMessage(raw)
	if message == "" {
		message = fmt.Sprintf("%s %s: status %d", method, path, resp.StatusCode)
	}

	c.logger.Error(ctx, "api request rejected", fmt.Errorf("status %d: %s", resp.StatusCode, message))
	return pkgerrors.New(code, message).WithDetails(map[string]any{
		"status": resp.StatusCode,
	})
}

// serverMessage probes the known error-body envelopes for a human message.
func serverMessage(raw []byte) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
		Error   struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error.Message
}

func (c *Client) decode(raw []byte, out any, path string) error {
	if err := json.Unmarshal(bytes.TrimSpace(raw), out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeMalformed, err, fmt.Sprintf("decode %s response", path))
	}
	return nil
}

func (c *Client) buildURL(path string) string {
	return fmt.Sprintf("%s/%s", c.baseURL, strings.TrimLeft(path, "/"))
}

// EscapeSegment encodes a value for use as a single URL path segment.
// Stricter than net/url path escaping: "+" and "@" are percent-encoded
// too, so an email address round-trips intact through servers that decode
// "+" as a space.
func EscapeSegment(value string) string {
	return strings.ReplaceAll(url.QueryEscape(value), "+", "%20")
}
