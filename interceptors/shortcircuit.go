package interceptors

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/glimte/courier-go/config"
	"github.com/glimte/courier-go/contracts"
)

// Default orders of the short-circuit stages. Both sit in front of the
// metrics stage so answered requests are not counted as upstream calls.
const (
	OrderShortCircuit = 280
	OrderCache        = 290
	OrderFallback     = 270
)

// ShortCircuitEvaluator decides whether a request can be answered without
// calling the rest of the chain
type ShortCircuitEvaluator interface {
	Evaluate(ctx context.Context, req *contracts.Request) (*contracts.Response, bool, error)
}

// ShortCircuitFunc is a function adapter for ShortCircuitEvaluator
type ShortCircuitFunc func(ctx context.Context, req *contracts.Request) (*contracts.Response, bool, error)

// Evaluate implements ShortCircuitEvaluator
func (f ShortCircuitFunc) Evaluate(ctx context.Context, req *contracts.Request) (*contracts.Response, bool, error) {
	return f(ctx, req)
}

// ShortCircuitInterceptor answers requests from an evaluator. When the
// evaluator reports a hit, the inner stages and the transport never run.
// Each caller receives its own copy of the evaluator's response, so
// evaluators may return a shared value.
type ShortCircuitInterceptor struct {
	evaluator ShortCircuitEvaluator
	order     int
}

// NewShortCircuitInterceptor creates a new short-circuit interceptor
func NewShortCircuitInterceptor(evaluator ShortCircuitEvaluator) *ShortCircuitInterceptor {
	return &ShortCircuitInterceptor{evaluator: evaluator, order: OrderShortCircuit}
}

// WithOrder moves the interceptor to another position
func (i *ShortCircuitInterceptor) WithOrder(order int) *ShortCircuitInterceptor {
	i.order = order
	return i
}

// Order implements Interceptor
func (i *ShortCircuitInterceptor) Order() int {
	return i.order
}

// Init implements Interceptor
func (i *ShortCircuitInterceptor) Init(config.Config) error {
	return nil
}

// Intercept implements Interceptor
func (i *ShortCircuitInterceptor) Intercept(ctx context.Context, req *contracts.Request, next Handler) (*contracts.Response, error) {
	resp, hit, err := i.evaluator.Evaluate(ctx, req)
	if err != nil {
		return nil, err
	}
	if hit {
		if resp == nil {
			resp = &contracts.Response{StatusCode: http.StatusNoContent}
		} else {
			resp = resp.Clone()
		}
		resp.Request = req
		return resp, nil
	}
	return next.Handle(ctx, req)
}

// Name implements Interceptor
func (i *ShortCircuitInterceptor) Name() string {
	return "ShortCircuitInterceptor"
}

// ResponseCache stores responses by key
type ResponseCache interface {
	Get(ctx context.Context, key string) (*contracts.Response, bool, error)
	Set(ctx context.Context, key string, resp *contracts.Response) error
}

// CachingInterceptor serves repeated GET requests from a cache. Only
// successful responses are stored, as copies detached from the caller's.
type CachingInterceptor struct {
	cache  ResponseCache
	order  int
	logger *slog.Logger
}

// NewCachingInterceptor creates a new caching interceptor
func NewCachingInterceptor(cache ResponseCache) *CachingInterceptor {
	return &CachingInterceptor{cache: cache, order: OrderCache, logger: slog.Default()}
}

// WithLogger sets the logger used to report cache write failures
func (i *CachingInterceptor) WithLogger(logger *slog.Logger) *CachingInterceptor {
	if logger != nil {
		i.logger = logger
	}
	return i
}

// WithOrder moves the interceptor to another position
func (i *CachingInterceptor) WithOrder(order int) *CachingInterceptor {
	i.order = order
	return i
}

// Order implements Interceptor
func (i *CachingInterceptor) Order() int {
	return i.order
}

// Init implements Interceptor
func (i *CachingInterceptor) Init(config.Config) error {
	return nil
}

// Intercept implements Interceptor
func (i *CachingInterceptor) Intercept(ctx context.Context, req *contracts.Request, next Handler) (*contracts.Response, error) {
	if req.Method != http.MethodGet || req.URL == nil {
		return next.Handle(ctx, req)
	}

	key := req.Method + " " + req.URL.String()
	cached, found, err := i.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if found {
		hit := cached.Clone()
		hit.Request = req
		hit.Duration = 0
		return hit, nil
	}

	resp, err := next.Handle(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.IsSuccess() {
		stored := resp.Clone()
		stored.Request = nil
		if err := i.cache.Set(ctx, key, stored); err != nil {
			i.logger.Warn("failed to cache response",
				"requestId", req.ID,
				"route", req.Route(),
				"error", err,
			)
		}
	}
	return resp, nil
}

// Name implements Interceptor
func (i *CachingInterceptor) Name() string {
	return "CachingInterceptor"
}

// MemoryCache is an in-process ResponseCache with a fixed time to live
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

type cacheEntry struct {
	resp    *contracts.Response
	expires time.Time
}

// NewMemoryCache creates a cache whose entries expire after ttl.
// A non-positive ttl keeps entries forever.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Get implements ResponseCache
func (c *MemoryCache) Get(_ context.Context, key string) (*contracts.Response, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return e.resp, true, nil
}

// Set implements ResponseCache
func (c *MemoryCache) Set(_ context.Context, key string, resp *contracts.Response) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := cacheEntry{resp: resp}
	if c.ttl > 0 {
		e.expires = c.now().Add(c.ttl)
	}
	c.entries[key] = e
	return nil
}

// Len returns the number of stored entries, expired ones included
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// FallbackEvaluator turns a failure into a stand-in response
type FallbackEvaluator interface {
	Fallback(req *contracts.Request, err error) (*contracts.Response, bool)
}

// FallbackFunc is a function adapter for FallbackEvaluator
type FallbackFunc func(req *contracts.Request, err error) (*contracts.Response, bool)

// Fallback implements FallbackEvaluator
func (f FallbackFunc) Fallback(req *contracts.Request, err error) (*contracts.Response, bool) {
	return f(req, err)
}

// FallbackInterceptor replaces failures of the inner stages with a copy of
// the response the evaluator provides. Cancelled requests always fail.
type FallbackInterceptor struct {
	evaluator FallbackEvaluator
	order     int
}

// NewFallbackInterceptor creates a new fallback interceptor
func NewFallbackInterceptor(evaluator FallbackEvaluator) *FallbackInterceptor {
	return &FallbackInterceptor{evaluator: evaluator, order: OrderFallback}
}

// WithOrder moves the interceptor to another position
func (i *FallbackInterceptor) WithOrder(order int) *FallbackInterceptor {
	i.order = order
	return i
}

// Order implements Interceptor
func (i *FallbackInterceptor) Order() int {
	return i.order
}

// Init implements Interceptor
func (i *FallbackInterceptor) Init(config.Config) error {
	return nil
}

// Intercept implements Interceptor
func (i *FallbackInterceptor) Intercept(ctx context.Context, req *contracts.Request, next Handler) (*contracts.Response, error) {
	resp, err := next.Handle(ctx, req)
	if err == nil || req.IsCancel() {
		return resp, err
	}
	if fb, ok := i.evaluator.Fallback(req, err); ok && fb != nil {
		fb = fb.Clone()
		fb.Request = req
		return fb, nil
	}
	return nil, err
}

// Name implements Interceptor
func (i *FallbackInterceptor) Name() string {
	return "FallbackInterceptor"
}
