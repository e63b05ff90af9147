package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxErrorBody = 4 << 10

// TokenSource supplies the bearer token for outgoing requests. An empty token
// sends no Authorization header.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context) (string, error)

func (f TokenSourceFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// Observer receives request-level telemetry. Implementations must not block.
type Observer interface {
	ObserveRequest(method string, status int, latency time.Duration, err error)
	ObserveCache(hit bool)
	ObserveDeduplicated()
	ObserveAbandoned()
}

// UnauthorizedFunc is called once per 401 response, before the error is returned.
type UnauthorizedFunc func(ctx context.Context, err *StatusError)

// Config configures a Client.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string

	CacheTTL     time.Duration
	CacheSize    int
	DisableCache bool
}

// Request is a single call. Body is JSON-encoded unless it is already
// []byte or json.RawMessage.
type Request struct {
	Method string
	Path   string
	Body   any
	Header http.Header
}

// Response is a settled call. Body is the caller's own copy.
type Response struct {
	Status int
	Body   []byte
	Cached bool
	Shared bool
}

// Decode unmarshals the body into out. An empty body leaves out untouched.
func (r *Response) Decode(out any) error {
	if out == nil || len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}

// Option customizes a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

func WithUnauthorizedHook(fn UnauthorizedFunc) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock replaces the time source used for cache expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithRequestIDFunc replaces the X-Request-ID generator.
func WithRequestIDFunc(fn func() string) Option {
	return func(c *Client) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// Client is safe for concurrent use.
type Client struct {
	baseURL   string
	userAgent string
	tokens    TokenSource

	http    *http.Client
	cache   *responseCache
	flights *flightTable

	observer       Observer
	onUnauthorized UnauthorizedFunc
	logger         *slog.Logger
	now            func() time.Time
	newID          func() string
}

// New builds a Client. tokens may be nil for anonymous clients.
func New(cfg Config, tokens TokenSource, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("client: base url required")
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return nil, fmt.Errorf("client: base url %q must be http or https", base)
	}

	c := &Client{
		baseURL:   base,
		userAgent: cfg.UserAgent,
		tokens:    tokens,
		http:      &http.Client{Timeout: cfg.Timeout},
		flights:   newFlightTable(),
		logger:    slog.New(slog.DiscardHandler),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}

	if !cfg.DisableCache {
		cache, err := newResponseCache(cfg.CacheSize, cfg.CacheTTL, c.now)
		if err != nil {
			return nil, err
		}
		c.cache = cache
	}
	return c, nil
}

// BaseURL returns the resolved base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// URL resolves path against the base URL. Absolute URLs pass through.
func (c *Client) URL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// Get fetches path and decodes the JSON body into out (which may be nil).
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.call(ctx, Request{Method: http.MethodGet, Path: path}, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.call(ctx, Request{Method: http.MethodDelete, Path: path}, out)
}

func (c *Client) call(ctx context.Context, req Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

// Do executes req. GETs are deduplicated and cached; other methods always
// reach the network.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}
	body, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}
	url := c.URL(req.Path)

	if method != http.MethodGet {
		res := c.roundTrip(ctx, method, url, body, req.Header)
		if res.err != nil {
			return nil, res.err
		}
		return &Response{Status: res.status, Body: res.payload}, nil
	}

	key := NewRequestKey(method, url, body)
	if c.cache != nil {
		if e, ok := c.cache.get(key); ok {
			c.observeCache(true)
			return &Response{Status: e.status, Body: clone(e.payload), Cached: true}, nil
		}
		c.observeCache(false)
	}

	var gen uint64
	if c.cache != nil {
		gen = c.cache.generation()
	}
	res, shared := c.flights.do(ctx, key,
		func(fctx context.Context) result {
			return c.roundTrip(fctx, method, url, body, req.Header)
		},
		func(res result) {
			if res.err == nil && c.cache != nil {
				c.cache.put(key, res.payload, res.status, gen)
			}
		},
	)
	if shared {
		c.observeDeduplicated()
	}
	if res.err != nil {
		if errors.Is(res.err, context.Canceled) || errors.Is(res.err, context.DeadlineExceeded) {
			if ctx.Err() != nil {
				c.observeAbandoned()
			}
		}
		return nil, res.err
	}
	return &Response{Status: res.status, Body: clone(res.payload), Shared: shared}, nil
}

func (c *Client) roundTrip(ctx context.Context, method, url string, body []byte, header http.Header) result {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return result{err: fmt.Errorf("client: build request: %w", err)}
	}
	for k, vs := range header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if len(body) > 0 {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	requestID := c.newID()
	httpReq.Header.Set("X-Request-ID", requestID)

	if c.tokens != nil {
		tok, err := c.tokens.Token(ctx)
		if err != nil {
			return result{err: fmt.Errorf("client: token source: %w", err)}
		}
		if tok != "" {
			httpReq.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	start := time.Now()
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		c.observeRequest(method, 0, time.Since(start), err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result{err: ctxErr}
		}
		c.logger.Debug("request failed", "method", method, "url", url, "request_id", requestID, "error", err)
		return result{err: fmt.Errorf("%w: %v", ErrNetworkFailure, err)}
	}
	defer httpResp.Body.Close()

	payload, err := io.ReadAll(httpResp.Body)
	latency := time.Since(start)
	if err != nil {
		c.observeRequest(method, httpResp.StatusCode, latency, err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result{err: ctxErr}
		}
		return result{err: fmt.Errorf("%w: read body: %v", ErrNetworkFailure, err)}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		text := string(payload)
		if len(text) > maxErrorBody {
			text = text[:maxErrorBody]
		}
		serr := &StatusError{Method: method, URL: url, Status: httpResp.StatusCode, Body: strings.TrimSpace(text)}
		c.observeRequest(method, httpResp.StatusCode, latency, serr)
		c.logger.Debug("request rejected", "method", method, "url", url, "status", httpResp.StatusCode, "request_id", requestID)
		if httpResp.StatusCode == http.StatusUnauthorized && c.onUnauthorized != nil {
			c.onUnauthorized(ctx, serr)
		}
		return result{status: httpResp.StatusCode, err: serr}
	}

	c.observeRequest(method, httpResp.StatusCode, latency, nil)
	return result{payload: payload, status: httpResp.StatusCode}
}

// Invalidate drops cached GETs whose URL starts with prefix and returns how
// many entries were removed. A relative prefix is resolved against the base
// URL. Matching in-flight GETs keep their current waiters but are not joined
// by later calls, and do not write their result back.
func (c *Client) Invalidate(prefix string) int {
	prefix = c.URL(prefix)
	removed := 0
	if c.cache != nil {
		removed = c.cache.invalidate(prefix)
	}
	c.flights.detach(func(k RequestKey) bool { return strings.HasPrefix(k.URL(), prefix) })
	return removed
}

// Purge drops every cached response. In-flight GETs started before the purge
// do not write their result back, and a GET issued after it never joins them.
func (c *Client) Purge() {
	if c.cache != nil {
		c.cache.purge()
	}
	c.flights.detach(func(RequestKey) bool { return true })
}

// Stats reports cache occupancy and pending flights.
func (c *Client) Stats() (cached, pending int) {
	if c.cache != nil {
		cached = c.cache.len()
	}
	return cached, c.flights.inFlight()
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	default:
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("client: encode body: %w", err)
		}
		return raw, nil
	}
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

func (c *Client) observeRequest(method string, status int, latency time.Duration, err error) {
	if c.observer != nil {
		c.observer.ObserveRequest(method, status, latency, err)
	}
}

func (c *Client) observeCache(hit bool) {
	if c.observer != nil {
		c.observer.ObserveCache(hit)
	}
}

func (c *Client) observeDeduplicated() {
	if c.observer != nil {
		c.observer.ObserveDeduplicated()
	}
}

func (c *Client) observeAbandoned() {
	if c.observer != nil {
		c.observer.ObserveAbandoned()
	}
}
