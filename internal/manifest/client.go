// Package manifest is a client for the Manifest backend-as-a-service REST
// API: authentication, collection CRUD with relation expansion, file upload
// and a health endpoint.
package manifest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/publicsuffix"

	"lunarmonkeys/internal/logging"
)

const tracerName = "lunarmonkeys/manifest"

// Client talks to one Manifest backend. It is safe for concurrent use.
type Client struct {
	base      *url.URL
	http      *http.Client
	jar       *sessionJar
	tokens    TokenStore
	metrics   *Metrics
	timeout   time.Duration
	userAgent string

	mu    sync.RWMutex
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
		c.jar = nil
	}
}

// WithTokenStore persists the session token. The stored token, if any, is
// loaded when the client is created.
func WithTokenStore(s TokenStore) Option {
	return func(c *Client) { c.tokens = s }
}

// WithMetrics records per-operation Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithTimeout bounds every request. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New creates a client for the backend at baseURL (e.g. http://localhost:1111).
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend url %q: scheme must be http or https", baseURL)
	}

	jar, err := newSessionJar()
	if err != nil {
		return nil, err
	}

	c := &Client{
		base:      u,
		http:      &http.Client{Jar: jar},
		jar:       jar,
		tokens:    &MemoryTokenStore{},
		userAgent: "lunarmonkeys",
	}
	for _, opt := range opts {
		opt(c)
	}

	token, err := c.tokens.Load()
	if err != nil {
		logging.APIWarn("Ignoring unreadable session token: %v", err)
	} else {
		c.token = token
	}
	return c, nil
}

// sessionJar is a cookie jar that can be emptied on logout.
type sessionJar struct {
	mu  sync.Mutex
	jar *cookiejar.Jar
}

func newSessionJar() (*sessionJar, error) {
	j := &sessionJar{}
	if err := j.reset(); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *sessionJar) reset() error {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return fmt.Errorf("failed to create cookie jar: %w", err)
	}
	j.mu.Lock()
	j.jar = jar
	j.mu.Unlock()
	return nil
}

func (j *sessionJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.jar.SetCookies(u, cookies)
}

func (j *sessionJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.jar.Cookies(u)
}

// BaseURL returns the backend base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// ResolveURL turns a path returned by the backend into an absolute URL.
// Absolute URLs are returned unchanged.
func (c *Client) ResolveURL(ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil || u.IsAbs() {
		return ref
	}
	if !strings.HasPrefix(u.Path, "/") {
		u.Path = "/" + u.Path
	}
	return c.base.ResolveReference(u).String()
}

// Resolve makes f.URL absolute in place. A nil f is ignored.
func (c *Client) Resolve(f *FileRef) {
	if f != nil {
		f.URL = c.ResolveURL(f.URL)
	}
}

// Health checks that the backend answers on its health endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, "health", http.MethodGet, "/api/health", nil, nil, "", nil)
}

func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// doJSON sends in as a JSON body.
func (c *Client) doJSON(ctx context.Context, op, method, path string, query url.Values, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", op, err)
	}
	return c.do(ctx, op, method, path, query, bytes.NewReader(body), "application/json", out)
}

// do performs one request and decodes a 2xx JSON response into out.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body io.Reader, contentType string, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	reqID := uuid.NewString()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "manifest."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("manifest.path", path),
			attribute.String("request.id", reqID),
		),
	)
	defer span.End()

	log := logging.WithRequestID(logging.CategoryAPI, reqID).WithField("op", op)

	target := *c.base
	target.Path = c.base.Path + path
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build request")
		return fmt.Errorf("failed to create %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := c.currentToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	log.Debug("%s %s", method, target.String())
	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.metrics.observe(op, "error", elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		log.Warn("transport failure after %v: %v", elapsed, err)
		return fmt.Errorf("%s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	c.metrics.observe(op, strconv.Itoa(resp.StatusCode), elapsed)
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		apiErr := newAPIError(resp.StatusCode, data)
		span.SetStatus(codes.Error, apiErr.Message)
		log.Warn("status %d after %v: %s", resp.StatusCode, elapsed, apiErr.Message)
		return apiErr
	}
	log.Debug("status %d after %v", resp.StatusCode, elapsed)

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode")
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}
