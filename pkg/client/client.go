// Package client is the resilient HTTP core shared by the dashboard
// façades. It resolves endpoint paths against a base URL, bounds every
// request with a timeout, caches selected GET responses and retries a
// failed call once after a per-URL exponential backoff delay.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"omega/pkg/log"
)

const (
	defaultTimeout   = 5 * time.Second
	defaultCacheTime = 5 * time.Second
	maxResponseBytes = 8 << 20
)

// Recorder receives request outcomes. pkg/metrics implements it.
type Recorder interface {
	ObserveRequest(client, method string, status int, elapsed time.Duration)
	RetryScheduled(client string)
	CacheLookup(client string, hit bool)
}

// Options tune a single Fetch call. Zero values select the defaults:
// GET, retry enabled, 5s timeout, no caching, 5s cache window.
type Options struct {
	Method    string
	Header    http.Header
	Query     url.Values
	Body      any
	NoRetry   bool
	Timeout   time.Duration
	UseCache  bool
	CacheTime time.Duration
}

func (o Options) method() string {
	if o.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(o.Method)
}

func (o Options) cacheable() bool {
	return o.UseCache && o.method() == http.MethodGet
}

func (o Options) cacheTime() time.Duration {
	if o.CacheTime <= 0 {
		return defaultCacheTime
	}
	return o.CacheTime
}

// Result is the never-failing form of a fetch. Status is 0 when no
// response arrived and 408 when the request timed out.
type Result struct {
	OK     bool
	Status int
	Data   json.RawMessage
	Err    error
}

type response struct {
	status int
	data   json.RawMessage
}

// Client issues requests against one backend.
type Client struct {
	mu             sync.RWMutex
	name           string
	baseURL        string
	defaultTimeout time.Duration
	header         http.Header
	httpClient     *http.Client

	backoff  *Backoff
	cache    *Cache
	group    singleflight.Group
	recorder Recorder
	logger   zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRetryPolicy sets the backoff policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) {
		c.backoff = NewBackoff(p)
	}
}

// WithCache bounds the response cache to maxEntries keys.
func WithCache(maxEntries int) Option {
	return func(c *Client) {
		c.cache = NewCache(maxEntries)
	}
}

// WithMetrics reports request outcomes to r.
func WithMetrics(r Recorder) Option {
	return func(c *Client) {
		c.recorder = r
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.header.Set(key, value)
	}
}

// WithDefaultTimeout sets the timeout used when Options.Timeout is zero.
func WithDefaultTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.defaultTimeout = d
		}
	}
}

// WithName labels the client in logs and metrics.
func WithName(name string) Option {
	return func(c *Client) {
		c.name = name
	}
}

// New creates a client for baseURL. An empty base leaves paths as given,
// which only works for absolute paths.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		name:           "default",
		baseURL:        strings.TrimRight(baseURL, "/"),
		defaultTimeout: defaultTimeout,
		header:         make(http.Header),
		httpClient:     &http.Client{},
		backoff:        NewBackoff(DefaultRetryPolicy()),
		cache:          NewCache(defaultCacheEntries),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = log.Component("client").With().Str("client", c.name).Logger()
	return c
}

// Reconfigure swaps the base URL and default timeout of a live client.
// Cached responses belong to the old base and are dropped.
func (c *Client) Reconfigure(baseURL string, timeout time.Duration) {
	c.mu.Lock()
	changed := c.baseURL != strings.TrimRight(baseURL, "/")
	c.baseURL = strings.TrimRight(baseURL, "/")
	if timeout > 0 {
		c.defaultTimeout = timeout
	}
	c.mu.Unlock()

	if changed {
		c.cache.Purge()
	}
}

// SetRetryPolicy replaces the backoff policy of a live client.
func (c *Client) SetRetryPolicy(p RetryPolicy) {
	c.backoff.SetPolicy(p)
}

// BaseURL returns the current base URL.
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// Backoff exposes the per-URL retry state.
func (c *Client) Backoff() *Backoff {
	return c.backoff
}

// Cache exposes the response cache.
func (c *Client) Cache() *Cache {
	return c.cache
}

// Resolve returns the absolute URL for path and query.
func (c *Client) Resolve(path string, query url.Values) (string, error) {
	c.mu.RLock()
	base := c.baseURL
	c.mu.RUnlock()

	raw := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		raw = base + path
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Fetch performs one logical request and returns the JSON body. A failed
// call is retried at most once, after the URL's current backoff delay.
func (c *Client) Fetch(ctx context.Context, path string, opts Options) (json.RawMessage, error) {
	resp, err := c.fetch(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	return resp.data, nil
}

// FetchWithStatus is Fetch that never fails; the outcome and HTTP status
// are reported in the Result.
func (c *Client) FetchWithStatus(ctx context.Context, path string, opts Options) Result {
	resp, err := c.fetch(ctx, path, opts)
	if err != nil {
		status := resp.status
		if status == 0 {
			status = StatusCode(err)
		}
		return Result{OK: false, Status: status, Err: err}
	}
	return Result{OK: true, Status: resp.status, Data: resp.data}
}

func (c *Client) fetch(ctx context.Context, path string, opts Options) (response, error) {
	target, err := c.Resolve(path, opts.Query)
	if err != nil {
		return response{}, err
	}

	if !opts.cacheable() {
		return c.attempt(ctx, target, opts)
	}

	if data, ok := c.cache.Get(target, opts.cacheTime()); ok {
		c.cacheLookup(true)
		return response{status: http.StatusOK, data: data}, nil
	}
	c.cacheLookup(false)

	// The shared attempt outlives any single caller; each caller stops
	// waiting on its own context.
	ch := c.group.DoChan(target, func() (any, error) {
		return c.attempt(context.WithoutCancel(ctx), target, opts)
	})
	select {
	case <-ctx.Done():
		return response{}, abandoned(ctx, target)
	case res := <-ch:
		resp, _ := res.Val.(response)
		return resp, res.Err
	}
}

// abandoned is the error of a caller whose context ended while it waited
// on a shared request.
func abandoned(ctx context.Context, target string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return timeoutError()
	}
	return &TransportError{URL: target, Err: ctx.Err()}
}

// attempt runs the request and, on failure, at most one retry.
func (c *Client) attempt(ctx context.Context, target string, opts Options) (response, error) {
	resp, err := c.do(ctx, target, opts)
	if err == nil {
		c.backoff.Reset(target)
		if opts.cacheable() {
			c.cache.Put(target, resp.data)
		}
		return resp, nil
	}

	c.logger.Debug().Str("url", target).Int("status", resp.status).Err(err).Msg("Request failed")

	if opts.NoRetry || ctx.Err() != nil {
		return resp, err
	}
	delay, ok := c.backoff.Next(target)
	if !ok {
		return resp, err
	}

	if c.recorder != nil {
		c.recorder.RetryScheduled(c.name)
	}
	c.logger.Debug().Str("url", target).Int("retries", c.backoff.Retries(target)).Dur("delay", delay).Msg("Retrying request")

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return resp, err
	case <-timer.C:
	}

	opts.NoRetry = true
	return c.attempt(ctx, target, opts)
}

func (c *Client) do(ctx context.Context, target string, opts Options) (response, error) {
	c.mu.RLock()
	timeout := c.defaultTimeout
	header := c.header.Clone()
	c.mu.RUnlock()
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}

	body, err := encodeBody(opts.Body)
	if err != nil {
		return response{}, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, opts.method(), target, body)
	if err != nil {
		return response{}, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	for k, vs := range header {
		req.Header[k] = vs
	}
	for k, vs := range opts.Header {
		req.Header[k] = vs
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(opts.method(), 0, start)
		return response{}, c.classify(ctx, reqCtx, target, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	c.observe(opts.method(), resp.StatusCode, start)
	if err != nil {
		return response{status: resp.StatusCode}, c.classify(ctx, reqCtx, target, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return response{status: resp.StatusCode}, &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       payload,
		}
	}

	payload = bytes.TrimSpace(payload)
	if !json.Valid(payload) {
		return response{status: resp.StatusCode}, fmt.Errorf("%w: %s", ErrDecode, target)
	}
	return response{status: resp.StatusCode, data: payload}, nil
}

func (c *Client) classify(parent, reqCtx context.Context, target string, err error) error {
	if parent.Err() == nil && errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
		return timeoutError()
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return timeoutError()
	}
	return &TransportError{URL: target, Err: err}
}

func (c *Client) observe(method string, status int, start time.Time) {
	if c.recorder != nil {
		c.recorder.ObserveRequest(c.name, method, status, time.Since(start))
	}
}

func (c *Client) cacheLookup(hit bool) {
	if c.recorder != nil {
		c.recorder.CacheLookup(c.name, hit)
	}
}

func encodeBody(body any) (io.Reader, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return bytes.NewReader(b), nil
	case json.RawMessage:
		return bytes.NewReader(b), nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		return bytes.NewReader(data), nil
	}
}
