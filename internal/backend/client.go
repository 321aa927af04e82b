// Package backend is the HTTP transport to the external product API.
//
// The client never interprets status codes: every response that arrives is
// returned as-is, and only failures to obtain a complete response are
// reported as errors (*TransportError).
package backend

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/catalog-editor/internal/domain/product"
	"github.com/xenking/catalog-editor/pkg/httpmiddleware"
)

// maxBodySize caps how much of a backend response is buffered. Larger
// bodies fail with ErrResponseTooLarge instead of being truncated.
const maxBodySize = 4 << 20

// ErrResponseTooLarge is wrapped in a TransportError when the product API
// answers with a body over maxBodySize.
var ErrResponseTooLarge = errors.New("response body too large")

// Config describes where the product API lives and how to reach it.
type Config struct {
	// BaseURL is the scheme and host of the product API, e.g. http://localhost:5002.
	BaseURL string
	// ProductsPath is the resource path segment, e.g. "products".
	ProductsPath string
	// SecretKey, when set, is sent as a bearer credential.
	SecretKey string
	// Timeout bounds a whole exchange. A context deadline can still shorten it.
	Timeout time.Duration
}

// Request is a single call against the products resource. An empty ID
// addresses the collection.
type Request struct {
	Method string
	ID     product.ID
	Body   []byte
}

// Response is the raw outcome of a call that reached the product API.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// TransportError reports that no response was obtained (DNS failure,
// refused connection, timeout, cancelled context).
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string { return e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// Client issues requests to the product API with a fixed header set.
type Client struct {
	http     *http.Client
	base     *url.URL
	resource string
	secret   string
}

// Option configures a Client.
type Option func(*options)

type options struct {
	httpClient     *http.Client
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// WithHTTPClient replaces the default instrumented HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithTracerProvider sets the tracer provider for outbound spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// WithMeterProvider sets the meter provider for outbound request metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// New validates cfg and builds a Client.
func New(cfg Config, opts ...Option) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, errors.Errorf("base url %q: scheme must be http or https", cfg.BaseURL)
	}
	if base.Host == "" {
		return nil, errors.Errorf("base url %q: host is required", cfg.BaseURL)
	}

	resource := strings.Trim(cfg.ProductsPath, "/")
	if resource == "" {
		return nil, errors.New("products path is required")
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	hc := o.httpClient
	if hc == nil {
		hc = newHTTPClient(cfg.Timeout, o)
	}

	return &Client{
		http:     hc,
		base:     base,
		resource: resource,
		secret:   cfg.SecretKey,
	}, nil
}

// newHTTPClient builds a client with explicit dial and header timeouts and an
// otelhttp transport.
func newHTTPClient(timeout time.Duration, o options) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}

	var otelOpts []otelhttp.Option
	if o.tracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(o.tracerProvider))
	}
	if o.meterProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithMeterProvider(o.meterProvider))
	}

	return &http.Client{
		Transport: otelhttp.NewTransport(tr, otelOpts...),
		Timeout:   timeout,
	}
}

// URL returns the address of the collection, or of a single product when
// id is non-empty.
func (c *Client) URL(id product.ID) string {
	if id == "" {
		return c.base.JoinPath(c.resource).String()
	}
	return c.base.JoinPath(c.resource, string(id)).String()
}

// Do performs req and returns the raw response regardless of its status.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	target := c.URL(req.ID)

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	c.setHeaders(ctx, httpReq)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Method: req.Method, URL: target, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, &TransportError{Method: req.Method, URL: target, Err: errors.Wrap(err, "read response body")}
	}
	if len(data) > maxBodySize {
		return nil, &TransportError{Method: req.Method, URL: target, Err: ErrResponseTooLarge}
	}

	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header.Clone(),
		Body:   data,
	}, nil
}

func (c *Client) setHeaders(ctx context.Context, req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.secret != "" {
		req.Header.Set("Authorization", "Bearer "+c.secret)
	}
	if req.Method == http.MethodGet {
		// Reads always reflect current backend state.
		req.Header.Set("Cache-Control", "no-store")
	}
	if id := httpmiddleware.RequestIDFromContext(ctx); id != "" {
		req.Header.Set(httpmiddleware.RequestIDHeader, id)
	}
}

// Ping reports whether the product API answers the collection endpoint
// without a server error. It is used as a readiness check.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.Do(ctx, Request{Method: http.MethodGet})
	if err != nil {
		return err
	}
	if resp.Status >= http.StatusInternalServerError {
		return errors.Errorf("product API answered %d", resp.Status)
	}
	return nil
}
