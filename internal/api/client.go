// Package api is the HTTP client for the UrbanMD backend endpoints the
// dashboard pages call.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/urbanmd/urbanmd/internal/domain"
	"github.com/urbanmd/urbanmd/internal/logging"
	"github.com/urbanmd/urbanmd/internal/session"
	"github.com/urbanmd/urbanmd/internal/version"
)

const (
	headerCSRF        = "X-CSRFToken"
	headerRequestedBy = "X-Requested-With"
	ajaxMarker        = "XMLHttpRequest"

	maxErrorBody = 512
)

// StatusError is returned when the backend answers with a non-2xx status and
// a body that is not the JSON envelope.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("api: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("api: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Client talks to one backend.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	csrfToken  string
	userAgent  string
	logger     logging.Logger
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger logging.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCSRFToken sets the token sent in X-CSRFToken.
func WithCSRFToken(token string) ClientOption {
	return func(c *Client) {
		c.csrfToken = token
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a client for baseURL (e.g. "http://localhost:8000").
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("api: invalid base url %q", baseURL)
	}

	c := &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		userAgent: version.UserAgent(),
		logger:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FromSession creates a client that shares the session's cookies and CSRF
// token.
func FromSession(s *session.Session, timeout time.Duration, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    s.BaseURL(),
		httpClient: &http.Client{Timeout: timeout, Jar: s.Jar()},
		csrfToken:  s.CSRFToken(),
		userAgent:  version.UserAgent(),
		logger:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request describes one call. Exactly one of JSON and Form may be set.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	JSON   any
	Form   []domain.FormField
	// JSONContent marks a bodiless POST as application/json, the way the
	// dashboard action buttons send them.
	JSONContent bool
}

// Do sends req and decodes the JSON envelope. Transport failures, bodies that
// are not JSON and non-2xx statuses without an envelope are returned as
// errors; an envelope with success=false is not an error.
func (c *Client) Do(ctx context.Context, req Request) (*domain.Response, error) {
	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("api request", "method", httpReq.Method, "path", httpReq.URL.Path)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("api: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("api: read response: %w", err)
	}

	var result domain.Response
	if err := json.Unmarshal(body, &result); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body))}
		}
		return nil, fmt.Errorf("api: decode response: %w", err)
	}

	c.logger.Debug("api response", "path", httpReq.URL.Path, "status", resp.StatusCode, "success", result.Success)
	return &result, nil
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	if req.JSON != nil && req.Form != nil {
		return nil, errors.New("api: request has both JSON and form body")
	}
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	target := c.URL(req.Path)
	query := target.Query()
	for key, values := range req.Query {
		for _, v := range values {
			query.Add(key, v)
		}
	}

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case req.JSON != nil:
		payload, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, fmt.Errorf("api: marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	case req.Form != nil && method == http.MethodGet:
		for _, f := range req.Form {
			query.Add(f.Name, f.Value)
		}
	case req.Form != nil:
		payload, ct, err := encodeMultipart(req.Form)
		if err != nil {
			return nil, err
		}
		body = payload
		contentType = ct
	case req.JSONContent:
		contentType = "application/json"
	}
	target.RawQuery = query.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("api: create request: %w", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if c.csrfToken != "" {
		httpReq.Header.Set(headerCSRF, c.csrfToken)
	}
	httpReq.Header.Set(headerRequestedBy, ajaxMarker)
	httpReq.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	return httpReq, nil
}

// URL resolves a server-relative path (or absolute URL) against the base.
func (c *Client) URL(ref string) *url.URL {
	parsed, err := url.Parse(ref)
	if err != nil {
		parsed = &url.URL{Path: ref}
	}
	return c.baseURL.ResolveReference(parsed)
}

// FetchPage GETs an HTML page with the session cookies.
func (c *Client) FetchPage(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(path).String(), nil)
	if err != nil {
		return nil, fmt.Errorf("api: create page request: %w", err)
	}
	req.Header.Set("Accept", "text/html")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api: page request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("api: read page: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body))}
	}
	return body, nil
}

func encodeMultipart(fields []domain.FormField) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range fields {
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return nil, "", fmt.Errorf("api: encode form field %s: %w", f.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("api: encode form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}
