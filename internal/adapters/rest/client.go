package rest

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

	"github.com/cenkalti/backoff/v5"

	"gitlab.com/timkado/web/storefront-state/internal/domain"
	"gitlab.com/timkado/web/storefront-state/pkg/contextkeys"
)

const maxErrorBody = 4 << 10

// StatusError is returned for a non-2xx response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Client sends JSON requests to the storefront backend. Transport failures and 5xx/429
// responses are retried with exponential backoff; other failures are returned at once.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	maxTries   uint
	retryWait  time.Duration
	logger     domain.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithMaxTries bounds the number of attempts per request.
func WithMaxTries(n uint) Option {
	return func(cl *Client) { cl.maxTries = n }
}

// WithRetryInterval sets the initial wait between attempts.
func WithRetryInterval(d time.Duration) Option {
	return func(cl *Client) { cl.retryWait = d }
}

// IdempotencyKeyHeader carries the key that lets the backend drop a replayed request.
const IdempotencyKeyHeader = "X-Idempotency-Key"

type requestSettings struct {
	idempotencyKey string
}

// RequestOption adjusts a single call to Do.
type RequestOption func(*requestSettings)

// WithIdempotencyKey sends key in the X-Idempotency-Key header on every attempt. POST requests
// are only retried when they carry a key.
func WithIdempotencyKey(key string) RequestOption {
	return func(s *requestSettings) { s.idempotencyKey = key }
}

// NewClient creates a client rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, logger domain.Logger, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: timeout},
		maxTries:   3,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Do sends body (when non-nil) as JSON and decodes the response into out (when non-nil).
// Failed attempts are retried with exponential backoff, except POSTs without an idempotency key.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any, opts ...RequestOption) error {
	var settings requestSettings
	for _, opt := range opts {
		opt(&settings)
	}
	maxTries := c.maxTries
	if method == http.MethodPost && settings.idempotencyKey == "" {
		maxTries = 1
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
	}
	target := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	policy := backoff.NewExponentialBackOff()
	if c.retryWait > 0 {
		policy.InitialInterval = c.retryWait
	}
	var attempt uint
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		retry, err := c.once(ctx, method, target.String(), path, payload, out, settings)
		if err == nil {
			return struct{}{}, nil
		}
		if !retry || attempt >= maxTries {
			return struct{}{}, backoff.Permanent(err)
		}
		c.logger.Warn(ctx, "Backend request failed; retrying", "method", method, "path", path, "attempt", attempt, "error", err.Error())
		return struct{}{}, err
	}, backoff.WithBackOff(policy), backoff.WithMaxTries(maxTries))
	return err
}

// once performs a single attempt and reports whether a failure is worth retrying.
func (c *Client) once(ctx context.Context, method, target, path string, payload []byte, out any, settings requestSettings) (bool, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return false, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if reqID, ok := ctx.Value(contextkeys.RequestIDKey).(string); ok && reqID != "" {
		req.Header.Set("X-Request-ID", reqID)
	}
	if settings.idempotencyKey != "" {
		req.Header.Set(IdempotencyKeyHeader, settings.idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		retry := !errors.Is(err, context.Canceled) && ctx.Err() == nil
		return retry, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		retry := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return retry, &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return false, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return false, nil
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}
