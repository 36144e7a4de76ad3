// Package httpengine is the net/http transport engine behind courier
// clients. It performs exactly one round trip per Do call; retries,
// logging and classification are handled by the interceptor chain.
package httpengine

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/glimte/courier-go/config"
	"github.com/glimte/courier-go/contracts"
	"github.com/glimte/courier-go/exceptions"
)

// Engine executes requests over HTTP
type Engine struct {
	client  *http.Client
	headers map[string]string
}

// EngineConfig holds construction settings that are not part of config.Config
type EngineConfig struct {
	Client    *http.Client
	Transport http.RoundTripper
}

// EngineOption configures the engine
type EngineOption func(*EngineConfig)

// WithHTTPClient uses client as is, ignoring the engine options of the config
func WithHTTPClient(client *http.Client) EngineOption {
	return func(cfg *EngineConfig) {
		cfg.Client = client
	}
}

// WithTransport replaces the round tripper built from the config
func WithTransport(rt http.RoundTripper) EngineOption {
	return func(cfg *EngineConfig) {
		cfg.Transport = rt
	}
}

// NewEngine creates an engine from the client configuration
func NewEngine(cfg config.Config, options ...EngineOption) *Engine {
	ec := &EngineConfig{}
	for _, opt := range options {
		opt(ec)
	}

	client := ec.Client
	if client == nil {
		rt := ec.Transport
		if rt == nil {
			rt = NewTransport(cfg.Engine)
		}
		client = &http.Client{
			Transport: rt,
			Timeout:   cfg.Timeout,
		}
	}

	return &Engine{
		client:  client,
		headers: cfg.Engine.Headers,
	}
}

// NewTransport builds an *http.Transport from engine options
func NewTransport(opts config.EngineOptions) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	if opts.MaxIdleConns > 0 {
		t.MaxIdleConns = opts.MaxIdleConns
	}
	if opts.MaxIdleConnsPerHost > 0 {
		t.MaxIdleConnsPerHost = opts.MaxIdleConnsPerHost
	}
	if opts.IdleConnTimeout > 0 {
		t.IdleConnTimeout = opts.IdleConnTimeout
	}
	if opts.TLSHandshakeTimeout > 0 {
		t.TLSHandshakeTimeout = opts.TLSHandshakeTimeout
	}
	t.DisableKeepAlives = opts.DisableKeepAlives
	if opts.InsecureSkipVerify {
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return t
}

// Do performs one round trip bound to ctx. Callers pass the request context
// or one derived from it. The response body is read fully. Transport
// failures are returned as *exceptions.TransportError carrying the error
// code when one is known.
func (e *Engine) Do(ctx context.Context, req *contracts.Request) (*contracts.Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create http request: %w", err)
	}
	for k, v := range e.headers {
		httpReq.Header.Set(k, v)
	}
	for k, vs := range req.Header {
		httpReq.Header[k] = append([]string(nil), vs...)
	}

	start := time.Now()
	httpResp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, exceptions.NewTransportError("round trip", err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, exceptions.NewTransportError("read body", err)
	}

	return &contracts.Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
		Request:    req,
		Duration:   time.Since(start),
	}, nil
}

// HTTPClient exposes the underlying client for advanced callers
func (e *Engine) HTTPClient() *http.Client {
	return e.client
}

// Close releases idle connections
func (e *Engine) Close() error {
	e.client.CloseIdleConnections()
	return nil
}
