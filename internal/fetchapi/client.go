// Package fetchapi is the HTTP client for the upstream dog adoption API.
//
// CREDENTIALS:
// The API authenticates with an HttpOnly cookie set by POST /auth/login.
// Each Client owns its own cookie jar, so one Client represents exactly
// one logged-in visitor. The server keeps one Client per browser session.
//
// 401 HANDLING:
// Every response passes through the same request path (do). A 401 on any
// endpoint other than /auth/login fires the registered UnauthorizedHandler
// before the error is returned to the caller. The handler is how the rest
// of the app learns that the upstream session expired.
package fetchapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sakif/dog-adoption/internal/apperror"
	"github.com/sakif/dog-adoption/internal/metrics"
)

const loginPath = "/auth/login"

// UnauthorizedHandler is called when the API rejects our credentials.
type UnauthorizedHandler func(ctx context.Context)

type Config struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64 // requests per second, burst of the same size
}

type Client struct {
	baseURL *url.URL
	http    *http.Client
	jar     http.CookieJar
	limiter *rate.Limiter
	metrics *metrics.Collector
	logger  *slog.Logger

	mu             sync.RWMutex
	onUnauthorized UnauthorizedHandler
}

// HTTPError is returned for any non-2xx response.
// It unwraps to the apperror sentinel matching its status so callers can
// use errors.Is without knowing about HTTP.
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

func (e *HTTPError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return apperror.ErrUnauthorized
	case http.StatusNotFound:
		return apperror.ErrNotFound
	default:
		return apperror.ErrUnavailable
	}
}

// New creates a client with an empty cookie jar.
// m may be nil when metrics are not wanted (tests).
func New(cfg Config, m *metrics.Collector, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing API url %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("API url %q must be absolute", cfg.BaseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = 10
	}

	return &Client{
		baseURL: base,
		http:    &http.Client{Jar: jar, Timeout: timeout},
		jar:     jar,
		limiter: rate.NewLimiter(rate.Limit(limit), int(limit)+1),
		metrics: m,
		logger:  logger,
	}, nil
}

// OnUnauthorized registers the hook fired on a 401 from any endpoint
// except login. Registering again replaces the previous hook.
func (c *Client) OnUnauthorized(h UnauthorizedHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = h
}

// do performs one JSON request. query may be nil; in and out may be nil.
// A nil out discards the body (the auth endpoints answer with plain text).
func (c *Client) do(ctx context.Context, action, method, path string, query url.Values, in, out any) error {
	start := time.Now()
	err := c.roundTrip(ctx, method, path, query, in, out)
	if c.metrics != nil {
		c.metrics.ObserveCall(action, time.Since(start), err)
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusUnauthorized && path != loginPath {
		c.logger.Warn("upstream session rejected",
			slog.String("action", action),
			slog.String("path", path),
		)
		if c.metrics != nil {
			c.metrics.IncUnauthorized()
		}
		c.mu.RLock()
		hook := c.onUnauthorized
		c.mu.RUnlock()
		if hook != nil {
			hook(ctx)
		}
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}

	u := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding %s %s request: %w", method, path, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("building %s %s request: %w", method, path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %w", method, path, apperror.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &HTTPError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(msg)),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}
