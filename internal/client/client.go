// Package client talks to the NDVI analysis backend over HTTP.
package client

import (
	"context"
	"io"
	"net/http"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/noah-isme/ndvi-gateway/internal/resolver"
	"github.com/noah-isme/ndvi-gateway/pkg/config"
	"github.com/noah-isme/ndvi-gateway/pkg/middleware/requestid"
)

const (
	userAgent = "ndvi-gateway/1.0"

	// DefaultGalleryLimit is the page size used when callers pass zero.
	DefaultGalleryLimit = 50
)

// Observer receives backend call instrumentation.
type Observer interface {
	ObserveBackendCall(operation, outcome string, duration time.Duration)
	SetBreakerState(name string, state gobreaker.State)
}

// Options configures a Client.
type Options struct {
	BaseURL        string
	RequestTimeout time.Duration
	SubmitTimeout  time.Duration
	Breaker        config.BreakerConfig
	HTTPClient     *http.Client
	Logger         *zap.Logger
	Observer       Observer
}

// Client is safe for concurrent use.
type Client struct {
	urls           resolver.Resolver
	http           *http.Client
	requestTimeout time.Duration
	submitTimeout  time.Duration
	breaker        *gobreaker.CircuitBreaker[*http.Response]
	gallery        singleflight.Group
	logger         *zap.Logger
	observer       Observer
}

// New builds a Client from opts, filling in defaults.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = config.DefaultAPIURL
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.SubmitTimeout <= 0 {
		opts.SubmitTimeout = 3 * time.Minute
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	c := &Client{
		urls:           resolver.New(opts.BaseURL),
		http:           opts.HTTPClient,
		requestTimeout: opts.RequestTimeout,
		submitTimeout:  opts.SubmitTimeout,
		logger:         opts.Logger,
		observer:       opts.Observer,
	}
	c.breaker = newBreaker(opts.Breaker, c.logger, c.observer)
	return c
}

// Resolver exposes the URL resolver bound to the backend origin.
func (c *Client) Resolver() resolver.Resolver {
	return c.urls
}

func (c *Client) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if id := requestid.FromContext(ctx); id != "" {
		req.Header.Set(requestid.Header, id)
	}
	return req, nil
}

// do executes req through the circuit breaker and normalises every failure
// into a typed error. On success the caller owns the response body.
func (c *Client) do(op string, req *http.Request, timeoutIsProcessing bool) (*http.Response, error) {
	start := time.Now()
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		return c.http.Do(req)
	})
	if err != nil {
		appErr := classifyTransport(err, timeoutIsProcessing)
		c.observe(op, appErr.Code, start)
		c.logger.Warn("backend call failed",
			zap.String("operation", op),
			zap.String("url", req.URL.Redacted()),
			zap.String("code", appErr.Code),
			zap.Error(err))
		return nil, appErr
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer drain(resp.Body)
		appErr := errorFromResponse(resp)
		c.observe(op, appErr.Code, start)
		c.logger.Warn("backend returned error status",
			zap.String("operation", op),
			zap.String("url", req.URL.Redacted()),
			zap.Int("status", resp.StatusCode),
			zap.String("message", appErr.Message))
		return nil, appErr
	}
	c.observe(op, "success", start)
	return resp, nil
}

func (c *Client) observe(op, outcome string, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveBackendCall(op, outcome, time.Since(start))
	}
}

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	_ = body.Close()
}
