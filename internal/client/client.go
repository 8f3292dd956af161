// Package client provides the HTTP transport used by virtual users, the
// fixture loader and the contract verifier. Calls are never retried; every
// call is bounded by a timeout and reported to the registered hooks.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/example/restarate/loadgen/internal/config"
)

// ErrTransport marks failures where no HTTP response was obtained: refused
// connections, DNS errors and timeouts.
var ErrTransport = errors.New("client: transport failure")

// DefaultTimeout bounds a call when neither the client nor the request sets one.
const DefaultTimeout = 5 * time.Second

// Hook observes every completed call, successful or not. Hooks run on the
// calling goroutine and must be safe for concurrent use.
type Hook func(Result)

// Result describes one finished call for observers.
type Result struct {
	Endpoint     string
	Method       string
	Path         string
	StatusCode   int
	Latency      time.Duration
	ResponseSize int64
	Timestamp    time.Time
	Err          error
}

// Success reports whether the call produced a 2xx response.
func (r Result) Success() bool {
	return r.Err == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Client is the HTTP client shared by all sessions of a run.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	timeout    time.Duration
	headers    map[string]string
	limiter    *rate.Limiter
	hooks      []Hook
	mu         sync.RWMutex
}

// Option customizes a Client.
type Option func(*Client)

// WithRateLimit caps the aggregate request rate of the client.
func WithRateLimit(qps float64, burst int) Option {
	return func(c *Client) {
		if qps <= 0 {
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(qps), burst)
	}
}

// WithHook registers a post-call observer.
func WithHook(h Hook) Option {
	return func(c *Client) {
		if h != nil {
			c.hooks = append(c.hooks, h)
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a client for the target described by cfg.
func NewClient(cfg config.TargetConfig, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL: %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.TLSSkipVerify, //nolint:gosec // opt-in for test targets
		},
		MaxIdleConns:        200,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
	}

	c := &Client{
		httpClient: &http.Client{Transport: transport},
		baseURL:    base,
		timeout:    timeout,
		headers: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
			"User-Agent":   "restarate-loadgen/1.0",
		},
	}
	for k, v := range cfg.Headers {
		c.headers[k] = v
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Request represents an HTTP request to be executed.
type Request struct {
	// Endpoint is a stable label for metrics, e.g. "POST /reviews".
	Endpoint    string
	Method      string
	Path        string
	QueryParams map[string]string
	Headers     map[string]string
	Body        any
	// Timeout overrides the client timeout for this call.
	Timeout time.Duration
}

// Do executes req once. A non-2xx status is not an error: the response is
// returned and the caller decides. Errors are returned only when no response
// could be read; they wrap ErrTransport except for request-building failures.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	u, err := c.buildURL(req.Path, req.QueryParams)
	if err != nil {
		return nil, fmt.Errorf("building URL: %w", err)
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %w", ErrTransport, err)
		}
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, req.Method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}
	c.setHeaders(httpReq, req.Headers)

	endpoint := req.Endpoint
	if endpoint == "" {
		endpoint = req.Method + " " + req.Path
	}
	result := Result{
		Endpoint:  endpoint,
		Method:    req.Method,
		Path:      req.Path,
		Timestamp: time.Now(),
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		result.Latency = time.Since(start)
		result.Err = fmt.Errorf("%w: %s %s: %w", ErrTransport, req.Method, req.Path, err)
		c.notify(result)
		return nil, result.Err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	result.Latency = time.Since(start)
	result.StatusCode = httpResp.StatusCode
	result.ResponseSize = int64(len(data))
	if err != nil {
		result.Err = fmt.Errorf("%w: reading response body: %w", ErrTransport, err)
		c.notify(result)
		return nil, result.Err
	}
	c.notify(result)

	return &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       data,
		Duration:   result.Latency,
	}, nil
}

func (c *Client) notify(r Result) {
	for _, h := range c.hooks {
		h(r)
	}
}

// buildURL joins path onto the base URL and appends query parameters.
func (c *Client) buildURL(path string, queryParams map[string]string) (*url.URL, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	u, err := c.baseURL.Parse(strings.TrimRight(c.baseURL.Path, "/") + path)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	if len(queryParams) > 0 {
		q := u.Query()
		for k, v := range queryParams {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return u, nil
}

func (c *Client) setHeaders(req *http.Request, custom map[string]string) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range custom {
		req.Header.Set(k, v)
	}
	if req.Header.Get("X-Request-ID") == "" {
		req.Header.Set("X-Request-ID", uuid.NewString())
	}
}

// SetHeader sets a default header for all requests.
func (c *Client) SetHeader(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers[key] = value
}

// BaseURL returns the service root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Timeout returns the per-call timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
