// Package api is a client for the finance REST API and its bill-scanning endpoints.
//
// Every call is bounded by the client's request timeout on top of the caller's context,
// carries an X-Request-ID header, and sends "Authorization: Bearer <token>" when the
// configured TokenSource has a token. Without a token, requests go out unauthenticated
// and the server decides.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fintrack/internal/logger"
)

const (
	// DefaultTimeout bounds a single request when no timeout is configured.
	DefaultTimeout = 30 * time.Second

	// maxErrorBody caps how much of an error response is read for its message.
	maxErrorBody = 64 * 1024

	// maxErrorRunes caps a plain-text error message shown to the user.
	maxErrorRunes = 200
)

// TokenSource supplies the bearer token for outgoing requests.
type TokenSource interface {
	Token() string
}

// StaticToken is a TokenSource with a fixed value.
type StaticToken string

// Token implements TokenSource.
func (s StaticToken) Token() string { return string(s) }

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

// Token implements TokenSource.
func (f TokenFunc) Token() string { return f() }

// Client talks to the finance API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	tokens     TokenSource
	log        zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// NewClient creates a client for the API rooted at baseURL (e.g. "http://localhost:8080/api").
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		timeout:    DefaultTimeout,
		log:        logger.WithComponent("api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// request is a single API call description.
type request struct {
	op          string
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
}

// jsonRequest builds a request whose body is payload encoded as JSON.
func jsonRequest(op, method, path string, payload interface{}) (request, error) {
	req := request{op: op, method: method, path: path}
	if payload == nil {
		return req, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return req, fmt.Errorf("%s: failed to encode request: %w", op, err)
	}
	req.body = bytes.NewReader(data)
	req.contentType = "application/json"
	return req, nil
}

// do executes req and decodes a JSON response into out (which may be nil).
// A *string out receives the raw body, for endpoints that answer in plain text.
func (c *Client) do(ctx context.Context, req request, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, req.body)
	if err != nil {
		return newTransportError(req.op, err)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	log := logger.WithRequestID(c.log, requestID)
	start := time.Now()

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		log.Debug().
			Err(err).
			Str("op", req.op).
			Str("method", req.method).
			Str("path", req.path).
			Msg("Request failed")
		return newTransportError(req.op, err)
	}
	defer resp.Body.Close()

	log.Debug().
		Str("op", req.op).
		Str("method", req.method).
		Str("path", req.path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Request completed")

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return newRemoteError(req.op, resp.StatusCode, errorMessage(body))
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return newTransportError(req.op, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if text, ok := out.(*string); ok {
		*text = string(bytes.TrimSpace(body))
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return newDecodeError(req.op, err)
	}
	return nil
}

// errorMessage extracts a human-readable reason from an error response body.
// Spring sends {"message": ...} or {"error": ...}; some endpoints send plain text.
func errorMessage(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}
	var payload struct {
		Message      string `json:"message"`
		Error        string `json:"error"`
		ErrorMessage string `json:"errorMessage"`
	}
	if json.Unmarshal(trimmed, &payload) == nil {
		for _, s := range []string{payload.Message, payload.ErrorMessage, payload.Error} {
			if s != "" {
				return s
			}
		}
	}
	msg := string(trimmed)
	if utf8.RuneCountInString(msg) > maxErrorRunes {
		msg = string([]rune(msg)[:maxErrorRunes]) + "..."
	}
	return msg
}

// PageQuery selects a page of a list endpoint, optionally bounded by date.
type PageQuery struct {
	Page      int
	Size      int
	StartDate string // YYYY-MM-DD, optional
	EndDate   string // YYYY-MM-DD, optional
}

// Values encodes the query. Page defaults to 0 and size to 10.
func (q PageQuery) Values() url.Values {
	size := q.Size
	if size <= 0 {
		size = 10
	}
	page := q.Page
	if page < 0 {
		page = 0
	}
	v := url.Values{}
	v.Set("page", fmt.Sprint(page))
	v.Set("size", fmt.Sprint(size))
	if q.StartDate != "" {
		v.Set("startDate", q.StartDate)
	}
	if q.EndDate != "" {
		v.Set("endDate", q.EndDate)
	}
	return v
}

// dateRangeValues encodes the optional bounds of a summary endpoint.
func dateRangeValues(startDate, endDate string) url.Values {
	v := url.Values{}
	if startDate != "" {
		v.Set("startDate", startDate)
	}
	if endDate != "" {
		v.Set("endDate", endDate)
	}
	return v
}

func pathID(id string) string {
	return "/" + url.PathEscape(id)
}
