// Package api is the HTTP client for the prediction service.
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

	"github.com/julianstephens/moodlit/internal/auth"
	"github.com/julianstephens/moodlit/internal/constants"
	apperrors "github.com/julianstephens/moodlit/internal/errors"
	"github.com/julianstephens/moodlit/internal/logger"
	"github.com/julianstephens/moodlit/internal/models"
)

// maxErrorBody caps how much of a failed response is read for its detail
const maxErrorBody = 4 << 10

// Client talks to one prediction service. A nil session sends requests
// without an Authorization header.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	session auth.Session
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithSession decorates requests with the session's bearer token.
func WithSession(s auth.Session) Option {
	return func(c *Client) { c.session = s }
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid api url %q: scheme must be http or https", baseURL)
	}
	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: constants.DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the service address.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// History returns predictions for the inclusive range [start, end].
func (c *Client) History(ctx context.Context, start, end models.DateKey) (models.HistoryResponse, error) {
	var resp models.HistoryResponse
	err := c.do(ctx, "history", http.MethodGet, "/history", rangeQuery(start, end), nil, &resp)
	return resp, withRange(err, start, end)
}

// Checkins returns the user's check-ins for the inclusive range [start, end].
func (c *Client) Checkins(ctx context.Context, start, end models.DateKey) (models.CheckinHistoryResponse, error) {
	var resp models.CheckinHistoryResponse
	err := c.do(ctx, "checkins", http.MethodGet, "/mood", rangeQuery(start, end), nil, &resp)
	return resp, withRange(err, start, end)
}

// SubmitCheckin creates or replaces the check-in for req.Date.
func (c *Client) SubmitCheckin(ctx context.Context, req models.CheckinRequest) (models.CheckinResponse, error) {
	var resp models.CheckinResponse
	err := c.do(ctx, "submit check-in", http.MethodPost, "/mood", nil, req, &resp)
	return resp, err
}

// Today returns the service's prediction for its current day.
func (c *Client) Today(ctx context.Context) (models.TodayResponse, error) {
	var resp models.TodayResponse
	err := c.do(ctx, "today", http.MethodGet, "/today", nil, nil, &resp)
	return resp, err
}

// Ping checks that the service answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, "ping", http.MethodGet, "/", nil, nil, &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return &apperrors.FetchError{Op: "ping", Err: fmt.Errorf("unexpected health status %q", resp.Status)}
	}
	return nil
}

func rangeQuery(start, end models.DateKey) url.Values {
	return url.Values{"start": {start.String()}, "end": {end.String()}}
}

func withRange(err error, start, end models.DateKey) error {
	var fe *apperrors.FetchError
	if errors.As(err, &fe) {
		fe.Start, fe.End = start.String(), end.String()
	}
	return err
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	req.Header.Set(constants.RequestIDHeader, requestID)

	if c.session != nil {
		if !c.session.Active() {
			return fmt.Errorf("%s: %w", op, apperrors.ErrNotAuthenticated)
		}
		token, err := c.session.Token()
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return &apperrors.FetchError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	logger.Debug("API request", "method", method, "path", u.Path, "status", resp.StatusCode,
		"duration", time.Since(started), "request_id", requestID)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &apperrors.FetchError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Detail:     errorDetail(resp.Body),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &apperrors.FetchError{Op: op, StatusCode: resp.StatusCode, Detail: "invalid response body", Err: err}
	}
	return nil
}

// errorDetail extracts the "detail" message of an error body, falling back
// to the raw text.
func errorDetail(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(b) == 0 {
		return ""
	}
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(b, &body) == nil && len(body.Detail) > 0 {
		var msg string
		if json.Unmarshal(body.Detail, &msg) == nil {
			return msg
		}
		return string(body.Detail)
	}
	return strings.TrimSpace(string(b))
}
